package extraction

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("ExtractWithPatterns", func() {
	var (
		text    string
		receipt *ParsedReceipt
	)

	JustBeforeEach(func() {
		receipt = ExtractWithPatterns(text, 0.87)
	})

	When("parsing a simple receipt", func() {
		BeforeEach(func() {
			text = "Store Name\n12/16/2025\nMilk $4.98\nBread $3.99\nTotal $8.97"
		})

		It("takes the first non-empty line as the store", func() {
			Expect(receipt.Store).To(HaveValue(Equal("Store Name")))
		})

		It("returns the matched date verbatim", func() {
			Expect(receipt.Date).To(HaveValue(Equal("12/16/2025")))
		})

		It("extracts the total", func() {
			Expect(receipt.Total).To(HaveValue(Equal(8.97)))
		})

		It("finds no tax", func() {
			Expect(receipt.Tax).To(BeNil())
		})

		It("extracts both items with quantity 1", func() {
			Expect(receipt.Items).To(Equal([]ReceiptItem{
				{Description: "Milk", Quantity: 1, UnitPrice: 4.98, Total: 4.98, Category: CategoryUncategorized},
				{Description: "Bread", Quantity: 1, UnitPrice: 3.99, Total: 3.99, Category: CategoryUncategorized},
			}))
		})

		It("carries the OCR confidence", func() {
			Expect(receipt.Confidence).To(Equal(0.87))
		})

		It("is deterministic across runs", func() {
			Expect(ExtractWithPatterns(text, 0.87)).To(Equal(receipt))
		})
	})

	When("a line carries a quantity pattern", func() {
		BeforeEach(func() {
			text = "Corner Shop\n2 x Milk $9.98"
		})

		It("derives the unit price from the line total", func() {
			Expect(receipt.Items).To(HaveLen(1))
			Expect(receipt.Items[0].Quantity).To(Equal(2))
			Expect(receipt.Items[0].UnitPrice).To(Equal(4.99))
			Expect(receipt.Items[0].Total).To(Equal(9.98))
			Expect(receipt.Items[0].Description).To(Equal("Milk"))
		})
	})

	When("a quantity needs rounding", func() {
		BeforeEach(func() {
			text = "Corner Shop\n3 x Eggs $10.00"
		})

		It("rounds the unit price to 2 decimals", func() {
			Expect(receipt.Items).To(HaveLen(1))
			Expect(receipt.Items[0].UnitPrice).To(Equal(3.33))
		})
	})

	When("tax appears on its own line", func() {
		BeforeEach(func() {
			text = "Shop\nSales Tax $1.20\nTotal $13.19"
		})

		It("extracts both tax and total", func() {
			Expect(receipt.Tax).To(HaveValue(Equal(1.20)))
			Expect(receipt.Total).To(HaveValue(Equal(13.19)))
		})

		It("does not emit keyword lines as items", func() {
			Expect(receipt.Items).To(BeEmpty())
		})
	})

	When("a subtotal line precedes the total line", func() {
		BeforeEach(func() {
			text = "Shop\nSubtotal $11.99\nTotal $13.19"
		})

		It("keeps the first containment match", func() {
			Expect(receipt.Total).To(HaveValue(Equal(11.99)))
		})

		It("spends the later total line without emitting an item", func() {
			Expect(receipt.Items).To(BeEmpty())
		})
	})

	When("a line has both a quantity pattern and total vocabulary", func() {
		BeforeEach(func() {
			text = "Shop\n2 x Total Cereal $7.98"
		})

		It("classifies the line as a total, not an item", func() {
			Expect(receipt.Total).To(HaveValue(Equal(7.98)))
			Expect(receipt.Items).To(BeEmpty())
		})
	})

	When("lines match no pattern", func() {
		BeforeEach(func() {
			text = "Shop\nThank you for shopping\n*** 123 ***"
		})

		It("discards them", func() {
			Expect(receipt.Items).To(BeEmpty())
			Expect(receipt.Total).To(BeNil())
		})
	})

	When("the text uses dash-separated dates", func() {
		BeforeEach(func() {
			text = "Shop\n3-07-24\nCoffee $2.50"
		})

		It("matches the date without normalization", func() {
			Expect(receipt.Date).To(HaveValue(Equal("3-07-24")))
		})
	})

	When("the text is empty", func() {
		BeforeEach(func() {
			text = ""
		})

		It("returns an empty receipt with no nil items", func() {
			Expect(receipt.Store).To(BeNil())
			Expect(receipt.Date).To(BeNil())
			Expect(receipt.Items).NotTo(BeNil())
			Expect(receipt.Items).To(BeEmpty())
		})
	})
})
