package translate_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"uk-eta-backend/internal/translate"
)

type stubTranslator struct {
	calls int
	out   string
	err   error
}

func (s *stubTranslator) Translate(ctx context.Context, text, source, target string) (string, error) {
	s.calls++
	return s.out, s.err
}

func TestTranslateJobTitle_NoTranslator(t *testing.T) {
	svc := translate.NewService(nil)

	resp := svc.TranslateJobTitle(context.Background(), "  software   ENGINEER ", "")
	require.NotNil(t, resp.Translated)
	assert.Equal(t, "Software Engineer", resp.Normalized)
	assert.Equal(t, "Software Engineer", *resp.Translated)
	assert.False(t, resp.NeedsManualTranslation)

	resp = svc.TranslateJobTitle(context.Background(), "Ingénieur", "fr")
	assert.Nil(t, resp.Translated)
	assert.True(t, resp.NeedsManualTranslation)
}

func TestTranslateJobTitle_CachesSuccess(t *testing.T) {
	stub := &stubTranslator{out: "software engineer"}
	svc := translate.NewService(stub)

	for range 2 {
		resp := svc.TranslateJobTitle(context.Background(), "ingeniero de software", "es")
		require.NotNil(t, resp.Translated)
		assert.Equal(t, "Software Engineer", *resp.Translated)
	}
	assert.Equal(t, 1, stub.calls)

	svc.Reset()
	svc.TranslateJobTitle(context.Background(), "ingeniero de software", "es")
	assert.Equal(t, 2, stub.calls)
}

func TestTranslateJobTitle_FailureNeedsManual(t *testing.T) {
	stub := &stubTranslator{err: errors.New("unavailable")}
	svc := translate.NewService(stub)

	resp := svc.TranslateJobTitle(context.Background(), "Ingeniero", "")
	assert.Nil(t, resp.Translated)
	assert.True(t, resp.NeedsManualTranslation)
	assert.Equal(t, "Ingeniero", resp.Original)

	resp = svc.TranslateJobTitle(context.Background(), "   ", "")
	assert.True(t, resp.NeedsManualTranslation)
	assert.Equal(t, 1, stub.calls)
}

func TestLibreTranslateClient(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/translate", r.URL.Path)
		var body map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "Ingeniero", body["q"])
		assert.Equal(t, "es", body["source"])
		assert.Equal(t, "en", body["target"])
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"translatedText":"Engineer"}`))
	}))
	defer server.Close()

	client := translate.NewLibreTranslateClient(server.URL+"/", "")
	out, err := client.Translate(context.Background(), "Ingeniero", "es", "en")
	require.NoError(t, err)
	assert.Equal(t, "Engineer", out)
}

func TestLibreTranslateClient_Error(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"error":"unsupported language"}`))
	}))
	defer server.Close()

	_, err := translate.NewLibreTranslateClient(server.URL, "").Translate(context.Background(), "x", "zz", "en")
	assert.ErrorContains(t, err, "unsupported language")
}
