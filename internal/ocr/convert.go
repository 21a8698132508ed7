package ocr

import (
	"bytes"
	"fmt"
	"image"
	_ "image/gif"  // Register GIF decoder
	_ "image/jpeg" // Register JPEG decoder
	"image/png"
	"strings"

	"github.com/gen2brain/go-fitz"
	"github.com/gen2brain/heic"
)

// InvalidInputError reports an upload that is not a supported receipt image.
// It is raised before any extraction work begins.
type InvalidInputError struct {
	ContentType string
	Detail      string
}

func (e *InvalidInputError) Error() string {
	if e.Detail != "" {
		return fmt.Sprintf("unsupported input (%s): %s", e.ContentType, e.Detail)
	}
	return fmt.Sprintf("unsupported input: %s", e.ContentType)
}

// pdfToPNG renders the first page of a PDF as a PNG image. Most receipts
// are single page, so only the first page is used.
func pdfToPNG(pdfData []byte) ([]byte, error) {
	doc, err := fitz.NewFromMemory(pdfData)
	if err != nil {
		return nil, fmt.Errorf("opening PDF: %w", err)
	}
	defer doc.Close()

	img, err := doc.Image(0)
	if err != nil {
		return nil, fmt.Errorf("rendering PDF page: %w", err)
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, fmt.Errorf("encoding PNG: %w", err)
	}

	return buf.Bytes(), nil
}

// isHEIC checks the data for the HEIC/HEIF ftyp box signature. Go's
// standard image package cannot decode it, so it needs special handling.
func isHEIC(data []byte) bool {
	if len(data) < 12 || string(data[4:8]) != "ftyp" {
		return false
	}
	switch string(data[8:12]) {
	case "heic", "heif", "mif1", "msf1":
		return true
	}
	return false
}

// isHEICMimeType checks whether the declared MIME type indicates HEIC/HEIF.
func isHEICMimeType(mimeType string) bool {
	return strings.Contains(mimeType, "heic") || strings.Contains(mimeType, "heif")
}

// PrepareImage normalizes an uploaded receipt file to PNG bytes ready for
// OCR. Supported inputs are PNG, JPEG, GIF, HEIC/HEIF (common on iPhones)
// and single-page PDF. Anything else fails with an InvalidInputError.
func PrepareImage(data []byte, contentType string) ([]byte, error) {
	mimeType := strings.ToLower(strings.TrimSpace(contentType))
	if mimeType == "" {
		mimeType = "image/jpeg"
	}

	switch {
	case mimeType == "application/pdf":
		pngData, err := pdfToPNG(data)
		if err != nil {
			return nil, &InvalidInputError{ContentType: mimeType, Detail: err.Error()}
		}
		return pngData, nil

	case isHEIC(data) || isHEICMimeType(mimeType):
		img, err := heic.Decode(bytes.NewReader(data))
		if err != nil {
			return nil, &InvalidInputError{ContentType: mimeType, Detail: fmt.Sprintf("decoding HEIC/HEIF image: %v", err)}
		}
		return encodePNG(img, mimeType)

	case mimeType == "image/png":
		// Passthrough, but corrupt bytes still get rejected here rather
		// than surfacing later as an OCR engine failure.
		if _, err := png.Decode(bytes.NewReader(data)); err != nil {
			return nil, &InvalidInputError{ContentType: mimeType, Detail: fmt.Sprintf("decoding PNG: %v", err)}
		}
		return data, nil

	default:
		img, _, err := image.Decode(bytes.NewReader(data))
		if err != nil {
			return nil, &InvalidInputError{
				ContentType: mimeType,
				Detail:      "supported formats: JPEG, PNG, GIF, HEIC, HEIF, PDF",
			}
		}
		return encodePNG(img, mimeType)
	}
}

func encodePNG(img image.Image, mimeType string) ([]byte, error) {
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, &InvalidInputError{ContentType: mimeType, Detail: fmt.Sprintf("encoding PNG: %v", err)}
	}
	return buf.Bytes(), nil
}
