package ocr

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// EdgeFunction implements the Extractor interface against a hosted
// extraction function: one POST with the encoded image, structured fields
// back
type EdgeFunction struct {
	endpoint string
	apiKey   string
	client   *http.Client
}

// NewEdgeFunction creates a new EdgeFunction Extractor instance
func NewEdgeFunction(endpoint, apiKey string) (*EdgeFunction, error) {
	if endpoint == "" {
		return nil, fmt.Errorf("extraction endpoint is required")
	}

	return &EdgeFunction{
		endpoint: endpoint,
		apiKey:   apiKey,
		client: &http.Client{
			Timeout: 60 * time.Second, // outer bound; Assist applies the real deadline
		},
	}, nil
}

// edgeRequest is the request body the extraction function accepts
type edgeRequest struct {
	ImageData string `json:"imageData"`
}

// Extract sends a compressed receipt image to the extraction function
func (e *EdgeFunction) Extract(ctx context.Context, imageData []byte) (*PartialFields, error) {
	reqBody := edgeRequest{
		ImageData: base64.StdEncoding.EncodeToString(imageData),
	}
	jsonData, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("marshaling request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", e.endpoint, bytes.NewBuffer(jsonData))
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if e.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+e.apiKey)
	}

	resp, err := e.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("calling extraction function: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		switch {
		case resp.StatusCode == http.StatusTooManyRequests:
			return nil, fmt.Errorf("extraction function returned 429: %w", ErrRateLimited)
		case resp.StatusCode == http.StatusPaymentRequired || strings.Contains(strings.ToLower(string(body)), "quota"):
			return nil, fmt.Errorf("extraction function (status %d): %w", resp.StatusCode, ErrQuotaExhausted)
		default:
			return nil, fmt.Errorf("extraction function error (status %d): %s", resp.StatusCode, string(body))
		}
	}

	var payload extractionPayload
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("decoding response: %w", err)
	}

	return fieldsFromPayload(payload), nil
}

// Close closes the EdgeFunction extractor (no-op for HTTP client)
func (e *EdgeFunction) Close() error {
	return nil
}
