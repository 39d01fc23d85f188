package transcript

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

const ocrPrompt = `You are performing OCR on a scanned academic transcript.

Extract ALL visible text exactly as it appears. Keep each table row of the
transcript on its own line, with course code, title, grade and credits in the
order printed. Do not add commentary. Output only the extracted text.`

// DefaultOCRModel is the vision model used when none is configured.
const DefaultOCRModel = "llama3.2-vision"

// OllamaOCR extracts text from transcript images with a vision model served
// by an Ollama-compatible /api/generate endpoint.
type OllamaOCR struct {
	URL    string
	Model  string
	Client *http.Client
}

// NewOllamaOCR creates an OCR extractor.
func NewOllamaOCR(url, model string, timeout time.Duration) *OllamaOCR {
	if model == "" {
		model = DefaultOCRModel
	}
	return &OllamaOCR{URL: url, Model: model, Client: &http.Client{Timeout: timeout}}
}

// ImageTypes lists the media types OllamaOCR should be registered for.
var ImageTypes = []string{"image/png", "image/jpeg", "image/tiff", "image/webp"}

// Extract implements Extractor.
func (o *OllamaOCR) Extract(ctx context.Context, data []byte) (string, error) {
	requestBody := map[string]interface{}{
		"model":  o.Model,
		"prompt": ocrPrompt,
		"images": []string{base64.StdEncoding.EncodeToString(data)},
		"stream": false,
		"options": map[string]interface{}{
			"temperature": 0.0,
		},
	}
	jsonData, err := json.Marshal(requestBody)
	if err != nil {
		return "", fmt.Errorf("failed to marshal OCR request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, o.URL+"/api/generate", bytes.NewReader(jsonData))
	if err != nil {
		return "", fmt.Errorf("failed to build OCR request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := o.Client.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to call OCR API: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return "", fmt.Errorf("OCR API returned status %d: %s", resp.StatusCode, string(body))
	}

	var ollamaResp struct {
		Response string `json:"response"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&ollamaResp); err != nil {
		return "", fmt.Errorf("failed to decode OCR response: %w", err)
	}
	return ollamaResp.Response, nil
}
