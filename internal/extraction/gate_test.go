package extraction

import (
	"errors"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/anass-elhannaoui/RecieptsBudgetizerBackend/internal/ocr"
)

var _ = Describe("Gate", func() {
	var (
		gate   Gate
		result *ocr.Result
		err    error
	)

	BeforeEach(func() {
		gate = NewGate(0.35)
	})

	JustBeforeEach(func() {
		err = gate.Check(result)
	})

	When("the confidence is above the threshold", func() {
		BeforeEach(func() {
			result = &ocr.Result{AverageConfidence: 0.9}
		})

		It("passes", func() {
			Expect(err).NotTo(HaveOccurred())
		})
	})

	When("the confidence equals the threshold", func() {
		BeforeEach(func() {
			result = &ocr.Result{AverageConfidence: 0.35}
		})

		It("passes", func() {
			Expect(err).NotTo(HaveOccurred())
		})
	})

	When("the confidence is below the threshold", func() {
		BeforeEach(func() {
			result = &ocr.Result{AverageConfidence: 0.2}
		})

		It("fails with a LowConfidenceError", func() {
			var lowConfidence *LowConfidenceError
			Expect(errors.As(err, &lowConfidence)).To(BeTrue())
			Expect(lowConfidence.Observed).To(Equal(0.2))
			Expect(lowConfidence.Threshold).To(Equal(0.35))
		})
	})

	When("no threshold is configured", func() {
		BeforeEach(func() {
			gate = NewGate(0)
			result = &ocr.Result{AverageConfidence: 0.3}
		})

		It("falls back to the default threshold", func() {
			Expect(gate.Threshold()).To(Equal(DefaultConfidenceThreshold))
			Expect(err).To(HaveOccurred())
		})
	})
})
