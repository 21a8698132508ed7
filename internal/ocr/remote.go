package ocr

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// Remote implements the Engine interface against an OCR inference sidecar
// (an EasyOCR-style HTTP service that returns per-token text, confidence
// and a four-point bounding polygon).
type Remote struct {
	baseURL string
	client  *http.Client
}

// NewRemote creates a new Remote engine instance
func NewRemote(baseURL string) (*Remote, error) {
	if baseURL == "" {
		baseURL = "http://localhost:8501"
	}

	return &Remote{
		baseURL: baseURL,
		client: &http.Client{
			Timeout: 60 * time.Second, // model inference can be slow on CPU
		},
	}, nil
}

// remoteRequest represents the request body for the sidecar's recognize API
type remoteRequest struct {
	Image string `json:"image"` // base64-encoded PNG
}

// remoteDetection is one detected text region as the sidecar reports it
type remoteDetection struct {
	Text       string        `json:"text"`
	Confidence float64       `json:"confidence"`
	Box        [4][2]float64 `json:"box"`
}

type remoteResponse struct {
	Detections []remoteDetection `json:"detections"`
}

// Recognize sends the image to the sidecar and normalizes its detections
func (r *Remote) Recognize(ctx context.Context, image []byte) (*Result, error) {
	reqBody := remoteRequest{
		Image: base64.StdEncoding.EncodeToString(image),
	}

	jsonData, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("marshaling request: %w", err)
	}

	url := fmt.Sprintf("%s/recognize", r.baseURL)
	req, err := http.NewRequestWithContext(ctx, "POST", url, bytes.NewBuffer(jsonData))
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := r.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("calling OCR service: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("OCR service error (status %d): %s", resp.StatusCode, string(body))
	}

	var ocrResp remoteResponse
	if err := json.NewDecoder(resp.Body).Decode(&ocrResp); err != nil {
		return nil, fmt.Errorf("decoding response: %w", err)
	}

	tokens := make([]Token, 0, len(ocrResp.Detections))
	for _, d := range ocrResp.Detections {
		tokens = append(tokens, Token{
			Text:       d.Text,
			Confidence: d.Confidence,
			BoundingBox: Quad{
				Point(d.Box[0]),
				Point(d.Box[1]),
				Point(d.Box[2]),
				Point(d.Box[3]),
			},
		})
	}

	return NewResult(tokens), nil
}

// Close closes the Remote engine (no-op for HTTP client)
func (r *Remote) Close() error {
	return nil
}
