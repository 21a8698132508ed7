package api

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/onsi/gomega/ghttp"
)

var _ = Describe("Server", func() {
	var (
		engine      *mockEngine
		completer   *mockCompleter
		config      Config
		service     *Service
		server      *Server
		ghttpServer *ghttp.Server
	)

	BeforeEach(func() {
		engine = &mockEngine{result: goodOCRResult()}
		completer = &mockCompleter{}
		config = Config{}
	})

	JustBeforeEach(func() {
		service = NewService(engine, completer, config)
		server = NewServerWithMux(service, "test", http.NewServeMux())
		ghttpServer = ghttp.NewServer()
		ghttpServer.AppendHandlers(server.ServeHTTP)
	})

	AfterEach(func() {
		ghttpServer.Close()
	})

	decodeBody := func(resp *http.Response) map[string]any {
		defer resp.Body.Close()
		body, err := io.ReadAll(resp.Body)
		Expect(err).NotTo(HaveOccurred())
		var decoded map[string]any
		Expect(json.Unmarshal(body, &decoded)).To(Succeed())
		return decoded
	}

	Describe("GET /api/health", func() {
		It("reports ok with the version", func() {
			resp, err := http.Get(ghttpServer.URL() + "/api/health")
			Expect(err).NotTo(HaveOccurred())
			Expect(resp.StatusCode).To(Equal(http.StatusOK))
			body := decodeBody(resp)
			Expect(body["status"]).To(Equal("ok"))
			Expect(body["version"]).To(Equal("test"))
		})
	})

	Describe("POST /api/process-receipt", func() {
		post := func() *http.Response {
			req := uploadRequest(ghttpServer.URL()+"/api/process-receipt", testPNG(), "image/png")
			resp, err := http.DefaultClient.Do(req)
			Expect(err).NotTo(HaveOccurred())
			return resp
		}

		When("the upload is missing", func() {
			It("returns 400 with an error body", func() {
				resp, err := http.Post(ghttpServer.URL()+"/api/process-receipt", "application/json", nil)
				Expect(err).NotTo(HaveOccurred())
				Expect(resp.StatusCode).To(Equal(http.StatusBadRequest))
				Expect(decodeBody(resp)).To(HaveKey("error"))
			})
		})

		When("OCR succeeds with good confidence", func() {
			It("returns the assembled pattern response", func() {
				resp := post()
				Expect(resp.StatusCode).To(Equal(http.StatusOK))
				body := decodeBody(resp)
				Expect(body["message"]).To(Equal("Receipt processed successfully"))
				Expect(body["store"]).To(Equal("Store Name"))
				Expect(body["date"]).To(Equal("12/16/2025"))
				Expect(body["total"]).To(Equal(8.97))
				Expect(body["tax"]).To(BeNil())
				Expect(body["items"]).To(HaveLen(2))
				Expect(body["ocr_data"]).To(HaveLen(5))
				Expect(body["raw_text"]).To(ContainSubstring("Milk $4.98"))
			})

			It("leaves items Uncategorized when categorization is off", func() {
				body := decodeBody(post())
				items := body["items"].([]any)
				first := items[0].(map[string]any)
				Expect(first["category"]).To(Equal("Uncategorized"))
				Expect(first["unitPrice"]).To(Equal(4.98))
				Expect(completer.calls).To(BeZero())
			})
		})

		When("categorization is enabled", func() {
			BeforeEach(func() {
				config.CategorizeItems = true
				completer.response = `["Groceries", "Groceries"]`
			})

			It("fills the categories from the AI response", func() {
				body := decodeBody(post())
				items := body["items"].([]any)
				for _, item := range items {
					Expect(item.(map[string]any)["category"]).To(Equal("Groceries"))
				}
			})
		})

		When("categorization fails", func() {
			BeforeEach(func() {
				config.CategorizeItems = true
				completer.err = errors.New("connection refused")
			})

			It("still succeeds with Uncategorized items", func() {
				resp := post()
				Expect(resp.StatusCode).To(Equal(http.StatusOK))
				items := decodeBody(resp)["items"].([]any)
				for _, item := range items {
					Expect(item.(map[string]any)["category"]).To(Equal("Uncategorized"))
				}
			})
		})

		When("OCR confidence is below the threshold", func() {
			BeforeEach(func() {
				engine.result = lowConfidenceResult()
			})

			It("returns 400 without running extraction", func() {
				resp := post()
				Expect(resp.StatusCode).To(Equal(http.StatusBadRequest))
				body := decodeBody(resp)
				Expect(body["error"]).To(ContainSubstring("below threshold"))
				Expect(body).NotTo(HaveKey("suggestion"))
			})
		})

		When("degraded mode is configured", func() {
			BeforeEach(func() {
				engine.result = lowConfidenceResult()
				config.AllowLowConfidence = true
			})

			It("proceeds despite the gate", func() {
				resp := post()
				Expect(resp.StatusCode).To(Equal(http.StatusOK))
			})
		})

		When("the OCR engine fails", func() {
			BeforeEach(func() {
				engine.err = errors.New("model not loaded")
			})

			It("returns 500", func() {
				resp := post()
				Expect(resp.StatusCode).To(Equal(http.StatusInternalServerError))
			})
		})

		When("the upload exceeds the size limit", func() {
			It("is rejected while parsing the form", func() {
				var buf bytes.Buffer
				writer := multipart.NewWriter(&buf)
				part, err := writer.CreateFormFile("file", "receipt.png")
				Expect(err).NotTo(HaveOccurred())
				_, err = part.Write(make([]byte, int(maxUploadSize)+1))
				Expect(err).NotTo(HaveOccurred())
				Expect(writer.Close()).To(Succeed())

				req := httptest.NewRequest("POST", "/api/process-receipt", &buf)
				req.Header.Set("Content-Type", writer.FormDataContentType())
				_, _, err = readUpload(httptest.NewRecorder(), req)
				Expect(err).To(MatchError(ContainSubstring("too large")))
			})
		})

		When("the upload is not a supported image", func() {
			It("returns 400", func() {
				req := uploadRequest(ghttpServer.URL()+"/api/process-receipt", []byte("garbage"), "image/jpeg")
				resp, err := http.DefaultClient.Do(req)
				Expect(err).NotTo(HaveOccurred())
				Expect(resp.StatusCode).To(Equal(http.StatusBadRequest))
				Expect(decodeBody(resp)["error"]).To(ContainSubstring("unsupported"))
			})
		})
	})

	Describe("POST /api/process-receipt-ai", func() {
		post := func() *http.Response {
			req := uploadRequest(ghttpServer.URL()+"/api/process-receipt-ai", testPNG(), "image/png")
			resp, err := http.DefaultClient.Do(req)
			Expect(err).NotTo(HaveOccurred())
			return resp
		}

		When("no AI provider is configured", func() {
			JustBeforeEach(func() {
				service = NewService(engine, nil, config)
				server = NewServerWithMux(service, "test", http.NewServeMux())
				ghttpServer.Close()
				ghttpServer = ghttp.NewServer()
				ghttpServer.AppendHandlers(server.ServeHTTP)
			})

			It("returns 503", func() {
				resp := post()
				Expect(resp.StatusCode).To(Equal(http.StatusServiceUnavailable))
				Expect(decodeBody(resp)).To(HaveKey("error"))
			})
		})

		When("the collaborator returns a structured receipt", func() {
			BeforeEach(func() {
				completer.response = `{"unreadable": false, "store": "Store Name", "date": "2025-12-16",
					"total": 8.97, "tax": 0.45, "confidence": 0.96,
					"items": [{"description": "Milk", "quantity": 1, "unit_price": 4.98, "total": 4.98, "category": "Groceries"}]}`
			})

			It("returns the assembled AI response", func() {
				resp := post()
				Expect(resp.StatusCode).To(Equal(http.StatusOK))
				body := decodeBody(resp)
				Expect(body["store"]).To(Equal("Store Name"))
				Expect(body["date"]).To(Equal("2025-12-16"))
				Expect(body["confidence"]).To(Equal(0.96))
				Expect(body["ocr_confidence"]).To(BeNumerically("~", 0.914, 0.001))
				items := body["items"].([]any)
				Expect(items[0].(map[string]any)["id"]).To(Equal("item-1"))
				Expect(body["ocr_data"]).To(HaveLen(5))
			})
		})

		When("OCR confidence is below the threshold", func() {
			BeforeEach(func() {
				engine.result = lowConfidenceResult()
			})

			It("returns 400 with a remediation suggestion", func() {
				resp := post()
				Expect(resp.StatusCode).To(Equal(http.StatusBadRequest))
				body := decodeBody(resp)
				Expect(body).To(HaveKey("reason"))
				Expect(body["suggestion"]).To(ContainSubstring("Retake"))
			})
		})

		When("the collaborator flags the text unreadable", func() {
			BeforeEach(func() {
				completer.response = `{"unreadable": true, "store": null, "date": null, "total": null, "tax": null, "items": []}`
			})

			It("returns 400", func() {
				resp := post()
				Expect(resp.StatusCode).To(Equal(http.StatusBadRequest))
				Expect(decodeBody(resp)["error"]).To(ContainSubstring("not readable"))
			})
		})

		When("the collaborator fails", func() {
			BeforeEach(func() {
				completer.err = errors.New("connection timed out")
			})

			It("returns 500", func() {
				resp := post()
				Expect(resp.StatusCode).To(Equal(http.StatusInternalServerError))
				Expect(decodeBody(resp)["error"]).To(ContainSubstring("AI extraction failed"))
			})
		})
	})
})
