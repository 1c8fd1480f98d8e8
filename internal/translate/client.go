package translate

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// LibreTranslateClient talks to a LibreTranslate-compatible /translate endpoint.
type LibreTranslateClient struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

type translateRequest struct {
	Q      string `json:"q"`
	Source string `json:"source"`
	Target string `json:"target"`
	Format string `json:"format"`
	APIKey string `json:"api_key,omitempty"`
}

type translateResponse struct {
	TranslatedText string `json:"translatedText"`
	Error          string `json:"error,omitempty"`
}

func NewLibreTranslateClient(baseURL, apiKey string) *LibreTranslateClient {
	return &LibreTranslateClient{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		apiKey:  apiKey,
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

func (c *LibreTranslateClient) Translate(ctx context.Context, text, source, target string) (string, error) {
	jsonData, err := json.Marshal(translateRequest{
		Q:      text,
		Source: source,
		Target: target,
		Format: "text",
		APIKey: c.apiKey,
	})
	if err != nil {
		return "", fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/translate", bytes.NewReader(jsonData))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to execute request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	if err != nil {
		return "", fmt.Errorf("failed to read response body: %w", err)
	}

	var result translateResponse
	if err := json.Unmarshal(body, &result); err != nil {
		return "", fmt.Errorf("failed to decode response: status %d: %w", resp.StatusCode, err)
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("translate failed: status %d: %s", resp.StatusCode, result.Error)
	}
	if strings.TrimSpace(result.TranslatedText) == "" {
		return "", fmt.Errorf("translate returned an empty text")
	}
	return result.TranslatedText, nil
}
