package captcha_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"uk-eta-backend/internal/captcha"
)

func newProvider(t *testing.T) *httptest.Server {
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		assert.Equal(t, "secret", r.PostForm.Get("secret"))
		w.Header().Set("Content-Type", "application/json")
		if r.PostForm.Get("response") == "good" {
			_, _ = w.Write([]byte(`{"success":true}`))
			return
		}
		_, _ = w.Write([]byte(`{"success":false,"error-codes":["invalid-input-response"]}`))
	}))
}

func TestVerifier(t *testing.T) {
	server := newProvider(t)
	defer server.Close()
	v := captcha.NewVerifier("secret", server.URL, true)

	assert.True(t, v.Enabled())
	assert.NoError(t, v.Verify(context.Background(), "good", "203.0.113.7"))

	err := v.Verify(context.Background(), "bad", "")
	assert.ErrorIs(t, err, captcha.ErrRejected)
	assert.ErrorContains(t, err, "invalid-input-response")

	assert.ErrorIs(t, v.Verify(context.Background(), " ", ""), captcha.ErrMissingToken)
}

func TestVerifier_Disabled(t *testing.T) {
	v := captcha.NewVerifier("", "http://127.0.0.1:0", false)
	assert.False(t, v.Enabled())
	assert.NoError(t, v.Verify(context.Background(), "", ""))
}

func TestVerifier_ProviderError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer server.Close()

	err := captcha.NewVerifier("secret", server.URL, true).Verify(context.Background(), "good", "")
	assert.ErrorContains(t, err, "502")
	assert.NotErrorIs(t, err, captcha.ErrRejected)
}
