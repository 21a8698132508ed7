package api

import (
	"errors"
	"io"
	"log/slog"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/anass-elhannaoui/RecieptsBudgetizerBackend/internal/extraction"
	"github.com/anass-elhannaoui/RecieptsBudgetizerBackend/internal/ocr"
)

// maxUploadSize bounds receipt uploads (high-resolution phone photos)
const maxUploadSize = int64(50 << 20) // 50MB

// handleHealth reports service liveness
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status":  "ok",
		"version": s.version,
	})
}

// readUpload extracts the receipt file from the multipart form. It returns
// the file bytes and the content type, falling back to the file extension
// when the browser sent none.
func readUpload(w http.ResponseWriter, r *http.Request) ([]byte, string, error) {
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadSize)
	if err := r.ParseMultipartForm(maxUploadSize); err != nil {
		var maxBytes *http.MaxBytesError
		if errors.As(err, &maxBytes) || err.Error() == "http: request body too large" {
			return nil, "", errors.New("file is too large, maximum size is 50MB")
		}
		return nil, "", errors.New("error parsing form")
	}

	f, header, err := r.FormFile("file")
	if err != nil {
		return nil, "", errors.New("no file provided")
	}
	defer f.Close()

	if header.Size > maxUploadSize {
		return nil, "", errors.New("file is too large, maximum size is 50MB")
	}

	data, err := io.ReadAll(f)
	if err != nil {
		return nil, "", errors.New("error reading file")
	}

	contentType := strings.ToLower(strings.TrimSpace(header.Header.Get("Content-Type")))
	if contentType == "" {
		switch strings.ToLower(filepath.Ext(header.Filename)) {
		case ".jpg", ".jpeg":
			contentType = "image/jpeg"
		case ".png":
			contentType = "image/png"
		case ".gif":
			contentType = "image/gif"
		case ".pdf":
			contentType = "application/pdf"
		case ".heic":
			contentType = "image/heic"
		case ".heif":
			contentType = "image/heif"
		default:
			contentType = "application/octet-stream"
		}
	}

	return data, contentType, nil
}

// handleProcessReceipt runs the pattern extraction strategy
func (s *Server) handleProcessReceipt(w http.ResponseWriter, r *http.Request) {
	data, contentType, err := readUpload(w, r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	receipt, result, err := s.service.ProcessPattern(r.Context(), data, contentType)
	if err != nil {
		s.writeProcessError(w, err, false)
		return
	}

	writeJSON(w, http.StatusOK, newPatternResponse(receipt, result))
}

// handleProcessReceiptAI runs the AI full-parse strategy
func (s *Server) handleProcessReceiptAI(w http.ResponseWriter, r *http.Request) {
	if !s.service.AIEnabled() {
		writeError(w, http.StatusServiceUnavailable, "AI parsing is not configured")
		return
	}

	data, contentType, err := readUpload(w, r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	receipt, result, err := s.service.ProcessAI(r.Context(), data, contentType)
	if err != nil {
		s.writeProcessError(w, err, true)
		return
	}

	writeJSON(w, http.StatusOK, newAIResponse(receipt, result))
}

// writeProcessError maps pipeline errors to the HTTP error contract.
// Low-confidence rejections on the AI path additionally carry a remediation
// suggestion for retaking the photo.
func (s *Server) writeProcessError(w http.ResponseWriter, err error, aiPath bool) {
	var invalidInput *ocr.InvalidInputError
	var lowConfidence *extraction.LowConfidenceError
	var unreadable *extraction.UnreadableError
	var aiFailure *extraction.AiFailureError

	switch {
	case errors.As(err, &invalidInput):
		writeError(w, http.StatusBadRequest, invalidInput.Error())

	case errors.As(err, &lowConfidence):
		if aiPath {
			writeJSON(w, http.StatusBadRequest, errorResponse{
				Error:      "OCR confidence too low",
				Reason:     lowConfidence.Error(),
				Suggestion: "Retake the photo with better lighting and keep the receipt flat",
			})
			return
		}
		writeError(w, http.StatusBadRequest, lowConfidence.Error())

	case errors.As(err, &unreadable):
		writeError(w, http.StatusBadRequest, unreadable.Error())

	case errors.As(err, &aiFailure):
		slog.Error("AI extraction failed", "error", err)
		writeError(w, http.StatusInternalServerError, aiFailure.Error())

	default:
		slog.Error("Error processing receipt", "error", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
	}
}
