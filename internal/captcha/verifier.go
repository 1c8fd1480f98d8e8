// Package captcha checks CAPTCHA response tokens against the provider's
// siteverify endpoint.
package captcha

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

var (
	ErrMissingToken = errors.New("captcha token is required")
	ErrRejected     = errors.New("captcha verification failed")
)

type siteVerifyResponse struct {
	Success    bool     `json:"success"`
	ErrorCodes []string `json:"error-codes"`
}

type Verifier struct {
	secret     string
	verifyURL  string
	enabled    bool
	httpClient *http.Client
}

// NewVerifier returns a verifier that accepts everything when enabled is false.
func NewVerifier(secret, verifyURL string, enabled bool) *Verifier {
	return &Verifier{
		secret:    secret,
		verifyURL: verifyURL,
		enabled:   enabled,
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

func (v *Verifier) Enabled() bool {
	return v.enabled
}

func (v *Verifier) Verify(ctx context.Context, token, remoteIP string) error {
	if !v.enabled {
		return nil
	}
	if strings.TrimSpace(token) == "" {
		return ErrMissingToken
	}

	form := url.Values{"secret": {v.secret}, "response": {token}}
	if remoteIP != "" {
		form.Set("remoteip", remoteIP)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, v.verifyURL, strings.NewReader(form.Encode()))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := v.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to execute request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 16<<10))
	if err != nil {
		return fmt.Errorf("failed to read response body: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("captcha provider returned status %d", resp.StatusCode)
	}

	var result siteVerifyResponse
	if err := json.Unmarshal(body, &result); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	if !result.Success {
		return fmt.Errorf("%w: %s", ErrRejected, strings.Join(result.ErrorCodes, ","))
	}
	return nil
}
