package handlers_test

import (
	"bytes"
	"image/jpeg"
	"net/http"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"uk-eta-backend/internal/models"
	"uk-eta-backend/internal/services"
)

func TestUpload_PhotoReturnsQuality(t *testing.T) {
	s := newTestServer(t)
	ready := s.prepare(t)

	w := s.upload(t, "/api/v1/applicants/"+ready.applicantID+"/documents",
		map[string]string{"document_type": "photo"}, "../../me.png", pngBytes(t, checkerboard(1000, 1000)))

	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	resp := decode[models.DocumentUploadResponse](t, w)
	assert.Equal(t, models.DocumentPhoto, resp.Document.DocumentType)
	assert.Equal(t, "photos", resp.Document.Bucket)
	assert.Equal(t, "image/png", resp.Document.MimeType)
	assert.Equal(t, models.VerificationPending, resp.Document.VerificationStatus)
	assert.Equal(t, "me.png", resp.Document.Metadata.OriginalFilename)
	require.NotNil(t, resp.Quality)
	assert.Empty(t, resp.Quality.Errors)
	assert.NotNil(t, resp.Document.Metadata.QualityScore)
}

func TestUpload_Rejections(t *testing.T) {
	s := newTestServer(t)
	ready := s.prepare(t)
	path := "/api/v1/applicants/" + ready.applicantID + "/documents"
	img := pngBytes(t, checkerboard(1000, 1000))

	tests := []struct {
		name    string
		path    string
		docType string
		data    []byte
		want    int
		message string
	}{
		{"bad applicant id", "/api/v1/applicants/nope/documents", "photo", img, http.StatusBadRequest, ""},
		{"unknown applicant", "/api/v1/applicants/9b2f4c1e-6a53-4d0e-9a61-3f0c8e7d2b11/documents", "photo", img, http.StatusNotFound, ""},
		{"no file", path, "photo", nil, http.StatusBadRequest, "file"},
		{"unknown type", path, "selfie", img, http.StatusBadRequest, "Unsupported document type"},
		{"text file", path, "supporting", []byte("just some notes"), http.StatusBadRequest, "Unsupported file type"},
		{"pdf photo", path, "photo", []byte("%PDF-1.4\n%âãÏÓ\n1 0 obj\n"), http.StatusBadRequest, "Photos must be"},
		{"too large", path, "supporting", bytes.Repeat([]byte{0}, services.MaxUploadBytes+1), http.StatusBadRequest, "larger than 10 MB"},
		{"too many pixels", path, "photo", pngHeader(50000, 50000), http.StatusBadRequest, "dimensions are too large"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := s.upload(t, tt.path, map[string]string{"document_type": tt.docType}, "doc.bin", tt.data)

			assert.Equal(t, tt.want, w.Code, w.Body.String())
			if tt.message != "" {
				assert.Contains(t, w.Body.String(), tt.message)
			}
		})
	}
}

func TestUpload_AfterSubmission(t *testing.T) {
	s := newTestServer(t)
	ready := s.prepare(t)
	require.Equal(t, http.StatusOK, s.do(t, http.MethodPost, "/api/v1/drafts/"+ready.draftID+"/submit", s.token, nil).Code)

	w := s.upload(t, "/api/v1/applicants/"+ready.applicantID+"/documents",
		map[string]string{"document_type": "passport"}, "passport.png", pngBytes(t, checkerboard(800, 800)))

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "after the application is submitted")
}

func TestPreview(t *testing.T) {
	s := newTestServer(t)
	ready := s.prepare(t)

	w := s.do(t, http.MethodGet, "/api/v1/documents/"+ready.passportID+"/preview", s.token, nil)

	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	resp := decode[models.PreviewResponse](t, w)
	assert.True(t, strings.HasPrefix(resp.URL, "https://storage.example/objects/passports/"), resp.URL)
	assert.Equal(t, 3600, resp.ExpiresIn)

	w = s.do(t, http.MethodGet, "/api/v1/documents/9b2f4c1e-6a53-4d0e-9a61-3f0c8e7d2b11/preview", s.token, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestThumbnail(t *testing.T) {
	s := newTestServer(t)
	ready := s.prepare(t)

	w := s.do(t, http.MethodGet, "/api/v1/documents/"+ready.photoID+"/thumbnail", s.token, nil)

	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, "image/jpeg", w.Header().Get("Content-Type"))
	cfg, err := jpeg.DecodeConfig(bytes.NewReader(w.Body.Bytes()))
	require.NoError(t, err)
	assert.Equal(t, services.ThumbnailSize, cfg.Width)
	assert.Equal(t, services.ThumbnailSize, cfg.Height)

	w = s.do(t, http.MethodGet, "/api/v1/documents/nope/thumbnail", s.token, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestCheckPhoto(t *testing.T) {
	s := newTestServer(t)

	w := s.upload(t, "/api/v1/photos/check", nil, "me.png", pngBytes(t, checkerboard(1000, 1000)))

	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	resp := decode[models.QualitySummary](t, w)
	assert.Positive(t, resp.Score)
	assert.NotNil(t, resp.Passes)
	assert.NotNil(t, resp.Errors)

	w = s.upload(t, "/api/v1/photos/check", map[string]string{"quick": "true"}, "notes.txt", []byte("not an image"))
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "could not be read as an image")

	w = s.upload(t, "/api/v1/photos/check", nil, "huge.png", pngHeader(50000, 50000))
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "dimensions are too large")
}

func TestDocuments_OtherUserCannotReach(t *testing.T) {
	s := newTestServer(t)
	ready := s.prepare(t)
	intruder := signToken(t, "mallory@example.com")

	w := s.uploadAs(t, intruder, "/api/v1/applicants/"+ready.applicantID+"/documents",
		map[string]string{"document_type": "passport"}, "passport.png", pngBytes(t, checkerboard(800, 800)))
	assert.Equal(t, http.StatusNotFound, w.Code, w.Body.String())

	for _, path := range []string{
		"/api/v1/documents/" + ready.passportID + "/preview",
		"/api/v1/documents/" + ready.photoID + "/thumbnail",
		"/api/v1/drafts/" + ready.draftID,
	} {
		w = s.do(t, http.MethodGet, path, intruder, nil)
		assert.Equal(t, http.StatusNotFound, w.Code, path)

		w = s.do(t, http.MethodGet, path, s.token, nil)
		assert.Equal(t, http.StatusOK, w.Code, path)
	}

	w = s.do(t, http.MethodPut, "/api/v1/drafts/"+ready.draftID+"/applicants/1", intruder, fullApplicant())
	assert.Equal(t, http.StatusNotFound, w.Code)
}
