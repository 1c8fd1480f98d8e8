package handlers_test

import (
	"bytes"
	"context"
	"encoding/binary"
	"encoding/json"
	"hash/crc32"
	"image"
	"image/color"
	"image/png"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"uk-eta-backend/internal/captcha"
	"uk-eta-backend/internal/config"
	"uk-eta-backend/internal/draft"
	"uk-eta-backend/internal/handlers"
	"uk-eta-backend/internal/imagequality"
	"uk-eta-backend/internal/middleware"
	"uk-eta-backend/internal/models"
	"uk-eta-backend/internal/notification"
	"uk-eta-backend/internal/payment"
	"uk-eta-backend/internal/resume"
	"uk-eta-backend/internal/security"
	"uk-eta-backend/internal/services"
	"uk-eta-backend/internal/store"
	"uk-eta-backend/internal/translate"
	"uk-eta-backend/internal/validation"
)

const (
	testSecret    = "test-secret-key-for-jwt-signing-must-be-long-enough"
	testServerKey = "server-key"
	testPortal    = "https://portal.example"
	testEmail     = "jane@example.com"
	adminEmail    = "admin@example.com"
)

type faceDetector struct{}

func (faceDetector) Detect(ctx context.Context, img image.Image) (*imagequality.FaceBox, error) {
	return &imagequality.FaceBox{X: 350, Y: 250, Width: 300, Height: 450}, nil
}

type testServer struct {
	router  *gin.Engine
	store   *store.MemoryStore
	drafts  *draft.Manager
	links   *resume.MemoryStore
	mailer  *notification.RecordingMailer
	token   string
	admin   string
	captcha *captcha.Verifier
}

type serverOption func(*testServer)

// withCaptcha points draft submission at a fake siteverify endpoint.
func withCaptcha(verifyURL string) serverOption {
	return func(s *testServer) {
		s.captcha = captcha.NewVerifier("captcha-secret", verifyURL, true)
	}
}

func newTestServer(t *testing.T, opts ...serverOption) *testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)

	s := &testServer{
		store:  store.NewMemoryStore(),
		links:  resume.NewMemoryStore(),
		mailer: &notification.RecordingMailer{},
	}
	for _, opt := range opts {
		opt(s)
	}
	s.drafts = draft.NewManager()
	s.token = signToken(t, testEmail)
	s.admin = signToken(t, adminEmail)
	s.store.AddAdminUser(models.AdminUser{Email: adminEmail, Role: models.RoleAdmin})

	v := validation.New()
	require.NoError(t, validation.RegisterBindings(v))

	fee := decimal.RequireFromString("16.00")
	notifier := notification.NewService(s.mailer)
	sanitizer := security.NewSanitizer()
	analyzer := imagequality.NewAnalyzer(imagequality.WithDetectorLoader(func() (imagequality.FaceDetector, error) {
		return faceDetector{}, nil
	}))
	jobTitles := translate.NewService(nil)
	objects := store.NewMemoryObjectStore("https://storage.example")

	apps := services.NewApplicationService(s.store, s.drafts, notifier, services.ApplicationConfig{
		FeePerApplicant: fee,
		PortalURL:       testPortal,
		Objects:         objects,
	})
	documents := services.NewDocumentService(s.store, objects, analyzer, sanitizer)
	payments := services.NewPaymentService(s.store, payment.NewStubGateway(testPortal), notifier, services.PaymentConfig{
		FeePerApplicant: fee,
		ServerKey:       testServerKey,
		PortalURL:       testPortal,
	})
	resumes := services.NewResumeService(s.links, s.drafts, notifier, testPortal)
	admin := services.NewAdminService(s.store, nil, notifier, testPortal)

	cfg := &config.Config{
		PaymentPublicKey:  "pk-test",
		CaptchaSiteKey:    "site-key",
		FeePerApplicant:   fee,
		PassportNumberMin: 6,
		PassportNumberMax: 12,
	}

	routes := handlers.Routes{
		Health: handlers.NewHealthHandler(nil),
		Config: handlers.NewConfigHandler(cfg),
		Drafts: handlers.NewDraftsHandler(handlers.DraftsHandlerConfig{
			Drafts:     s.drafts,
			Apps:       apps,
			Resumes:    resumes,
			Normalizer: services.NewApplicantNormalizer(v, sanitizer),
			Validator:  v,
			Captcha:    s.captcha,
		}),
		Resume:    handlers.NewResumeHandler(resumes, nil),
		Documents: handlers.NewDocumentsHandler(documents, analyzer, nil),
		Status:    handlers.NewStatusHandler(apps, nil),
		Translate: handlers.NewTranslateHandler(jobTitles, v),
		Functions: handlers.NewFunctionsHandler(apps, payments, documents, v, nil),
		Admin:     handlers.NewAdminHandler(admin, v, nil),
		Webhook:   handlers.NewWebhookHandler(payments, v, nil),
		Auth:      middleware.AuthMiddleware(testSecret),
		AdminOnly: middleware.AdminMiddleware(s.store, nil),
	}

	s.router = gin.New()
	routes.Register(s.router)
	return s
}

func signToken(t *testing.T, email string) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub":   "user-" + email,
		"email": email,
		"role":  "authenticated",
		"exp":   time.Now().Add(time.Hour).Unix(),
	})
	signed, err := token.SignedString([]byte(testSecret))
	require.NoError(t, err)
	return signed
}

// do sends body as JSON with the given bearer token; an empty token sends none.
func (s *testServer) do(t *testing.T, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var r io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		r = bytes.NewReader(raw)
	}
	req, err := http.NewRequest(method, path, r)
	require.NoError(t, err)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	return w
}

func (s *testServer) upload(t *testing.T, path string, fields map[string]string, fileName string, data []byte) *httptest.ResponseRecorder {
	t.Helper()
	return s.uploadAs(t, s.token, path, fields, fileName, data)
}

func (s *testServer) uploadAs(t *testing.T, token, path string, fields map[string]string, fileName string, data []byte) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for k, v := range fields {
		require.NoError(t, mw.WriteField(k, v))
	}
	if data != nil {
		fw, err := mw.CreateFormFile("file", fileName)
		require.NoError(t, err)
		_, err = fw.Write(data)
		require.NoError(t, err)
	}
	require.NoError(t, mw.Close())

	req, err := http.NewRequest(http.MethodPost, path, &buf)
	require.NoError(t, err)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+token)
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out), w.Body.String())
	return out
}

func fullApplicant() models.ApplicantInput {
	return models.ApplicantInput{
		FirstName:      "JANE",
		LastName:       "DOE",
		DateOfBirth:    "1990-01-31",
		Nationality:    "USA",
		PassportNumber: "X7R29Q4",
		PassportExpiry: "2036-05-01",
		Email:          testEmail,
		Phone:          "+14155550100",
		Address:        "1 Main Street",
		JobTitle:       models.JobTitleField{Original: "engineer"},
	}
}

type readyApplication struct {
	draftID       string
	applicationID string
	reference     string
	applicantID   string
	passportID    string
	photoID       string
}

// prepare walks one applicant through the form, persists it and uploads a
// passport and a photo, leaving the draft on the review step.
func (s *testServer) prepare(t *testing.T) readyApplication {
	t.Helper()

	w := s.do(t, http.MethodPost, "/api/v1/drafts", s.token, nil)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	draftID := decode[models.DraftResponse](t, w).Draft.ID.String()

	w = s.do(t, http.MethodPut, "/api/v1/drafts/"+draftID+"/applicants/1", s.token, fullApplicant())
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	for range 2 {
		w = s.do(t, http.MethodPost, "/api/v1/drafts/"+draftID+"/advance", s.token, nil)
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	}

	w = s.do(t, http.MethodPost, "/api/v1/drafts/"+draftID+"/persist", s.token, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	saved := decode[models.PersistDraftResponse](t, w)
	require.Len(t, saved.ApplicantIDs, 1)

	img := pngBytes(t, checkerboard(1000, 1000))
	docs := make(map[string]string, 2)
	for _, docType := range []string{"passport", "photo"} {
		w = s.upload(t, "/api/v1/applicants/"+saved.ApplicantIDs[0]+"/documents",
			map[string]string{"document_type": docType}, docType+".png", img)
		require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
		docs[docType] = decode[models.DocumentUploadResponse](t, w).Document.ID.String()
	}

	return readyApplication{
		draftID:       draftID,
		applicationID: saved.ApplicationID,
		reference:     saved.ReferenceNumber,
		applicantID:   saved.ApplicantIDs[0],
		passportID:    docs["passport"],
		photoID:       docs["photo"],
	}
}

func checkerboard(w, h int) *image.Gray {
	img := image.NewGray(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			v := uint8(110)
			if (x/7+y/7)%2 == 1 {
				v = 190
			}
			img.SetGray(x, y, color.Gray{Y: v})
		}
	}
	return img
}

func pngBytes(t *testing.T, img image.Image) []byte {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

// pngHeader is a PNG holding only a signature and an IHDR chunk declaring w x h.
func pngHeader(w, h uint32) []byte {
	ihdr := make([]byte, 13)
	binary.BigEndian.PutUint32(ihdr[0:4], w)
	binary.BigEndian.PutUint32(ihdr[4:8], h)
	ihdr[8] = 8
	ihdr[9] = 2
	chunk := append([]byte("IHDR"), ihdr...)

	var buf bytes.Buffer
	buf.WriteString("\x89PNG\r\n\x1a\n")
	_ = binary.Write(&buf, binary.BigEndian, uint32(len(ihdr)))
	buf.Write(chunk)
	_ = binary.Write(&buf, binary.BigEndian, crc32.ChecksumIEEE(chunk))
	return buf.Bytes()
}
