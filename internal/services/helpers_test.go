package services_test

import (
	"bytes"
	"context"
	"encoding/binary"
	"hash/crc32"
	"image"
	"image/color"
	"image/png"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"uk-eta-backend/internal/draft"
	"uk-eta-backend/internal/imagequality"
	"uk-eta-backend/internal/models"
	"uk-eta-backend/internal/notification"
	"uk-eta-backend/internal/payment"
	"uk-eta-backend/internal/resume"
	"uk-eta-backend/internal/security"
	"uk-eta-backend/internal/services"
	"uk-eta-backend/internal/store"
)

const (
	testPortal    = "https://portal.example"
	testServerKey = "server-key"
	testEmail     = "jane@example.com"
)

var testFee = decimal.RequireFromString("16.00")

// switchDetector returns whatever face the test last set.
type switchDetector struct {
	face *imagequality.FaceBox
}

func (d *switchDetector) Detect(ctx context.Context, img image.Image) (*imagequality.FaceBox, error) {
	return d.face, nil
}

var centredFace = &imagequality.FaceBox{X: 350, Y: 250, Width: 300, Height: 450}

type testEnv struct {
	now      time.Time
	store    *store.MemoryStore
	objects  *store.MemoryObjectStore
	drafts   *draft.Manager
	mailer   *notification.RecordingMailer
	notifier *notification.Service
	detector *switchDetector
	gateway  *payment.StubGateway
	links    *resume.MemoryStore

	apps      *services.ApplicationService
	documents *services.DocumentService
	payments  *services.PaymentService
	resumes   *services.ResumeService
	admin     *services.AdminService
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	e := &testEnv{
		now:      time.Date(2026, 10, 18, 9, 0, 0, 0, time.UTC),
		store:    store.NewMemoryStore(),
		objects:  store.NewMemoryObjectStore("https://storage.example"),
		mailer:   &notification.RecordingMailer{},
		detector: &switchDetector{face: centredFace},
		gateway:  payment.NewStubGateway(testPortal),
		links:    resume.NewMemoryStore(),
	}
	e.store.SetClock(e.clock)
	e.drafts = draft.NewManager(draft.WithClock(e.clock))
	e.notifier = notification.NewService(e.mailer)

	clock := services.WithClock(e.clock)
	analyzer := imagequality.NewAnalyzer(imagequality.WithDetectorLoader(func() (imagequality.FaceDetector, error) {
		return e.detector, nil
	}))

	e.apps = services.NewApplicationService(e.store, e.drafts, e.notifier, services.ApplicationConfig{
		FeePerApplicant: testFee,
		PortalURL:       testPortal,
		Objects:         e.objects,
	}, clock)
	e.documents = services.NewDocumentService(e.store, e.objects, analyzer, security.NewSanitizer(), clock)
	e.payments = services.NewPaymentService(e.store, e.gateway, e.notifier, services.PaymentConfig{
		FeePerApplicant: testFee,
		ServerKey:       testServerKey,
		PortalURL:       testPortal,
	}, clock)
	e.resumes = services.NewResumeService(e.links, e.drafts, e.notifier, testPortal, clock)
	e.admin = services.NewAdminService(e.store, nil, e.notifier, testPortal, clock)
	return e
}

func (e *testEnv) clock() time.Time { return e.now }

func (e *testEnv) advance(d time.Duration) { e.now = e.now.Add(d) }

func fullApplicant(first string) models.ApplicantInput {
	return models.ApplicantInput{
		FirstName:      first,
		LastName:       "DOE",
		DateOfBirth:    "1990-01-31",
		Nationality:    "USA",
		PassportNumber: "X7R29Q4",
		PassportExpiry: "2030-05-01",
		Email:          testEmail,
		Phone:          "+14155550100",
		Address:        "1 Main Street",
		JobTitle:       models.JobTitleField{Original: "Engineer"},
	}
}

// newDraft creates a draft holding the given applicants.
func (e *testEnv) newDraft(t *testing.T, applicants ...models.ApplicantInput) uuid.UUID {
	t.Helper()
	d := e.drafts.Create(testEmail)
	for i, in := range applicants {
		if i > 0 {
			_, _, err := e.drafts.AddApplicant(d.ID)
			require.NoError(t, err)
		}
		_, err := e.drafts.WriteApplicant(d.ID, i+1, in)
		require.NoError(t, err)
	}
	return d.ID
}

func (e *testEnv) toReview(t *testing.T, draftID uuid.UUID) {
	t.Helper()
	for _, step := range []int{models.StepDocuments, models.StepReview} {
		d, err := e.drafts.Advance(draftID)
		require.NoError(t, err)
		require.Equal(t, step, d.Step)
	}
}

type seeded struct {
	draftID     uuid.UUID
	appID       uuid.UUID
	reference   string
	applicantID uuid.UUID
	passportID  uuid.UUID
	photoID     uuid.UUID
}

// seedReady persists a one-applicant draft with a passport and a photo, ready to submit.
func (e *testEnv) seedReady(t *testing.T) seeded {
	t.Helper()
	ctx := context.Background()

	draftID := e.newDraft(t, fullApplicant("JANE"))
	saved, err := e.apps.SaveDraft(ctx, draftID, testEmail)
	require.NoError(t, err)

	s := seeded{
		draftID:     draftID,
		appID:       uuid.MustParse(saved.ApplicationID),
		reference:   saved.ReferenceNumber,
		applicantID: uuid.MustParse(saved.ApplicantIDs[0]),
	}
	s.passportID = e.upload(t, s.applicantID, models.DocumentPassport, pngBytes(t, checkerboard(1000, 1000)))
	s.photoID = e.upload(t, s.applicantID, models.DocumentPhoto, pngBytes(t, checkerboard(1000, 1000)))
	return s
}

// seedSubmitted is seedReady followed by a submission.
func (e *testEnv) seedSubmitted(t *testing.T) seeded {
	t.Helper()
	s := e.seedReady(t)
	_, err := e.apps.SubmitApplication(context.Background(), s.appID, testEmail)
	require.NoError(t, err)
	return s
}

func (e *testEnv) upload(t *testing.T, applicantID uuid.UUID, docType models.DocumentType, data []byte) uuid.UUID {
	t.Helper()
	resp, err := e.documents.UploadDocument(context.Background(), services.UploadInput{
		ApplicantID:  applicantID,
		DocumentType: docType,
		FileName:     string(docType) + ".png",
		Data:         data,
		Actor:        testEmail,
	})
	require.NoError(t, err)
	return resp.Document.ID
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

func flat(w, h int) *image.Gray {
	img := image.NewGray(image.Rect(0, 0, w, h))
	for i := range img.Pix {
		img.Pix[i] = 150
	}
	return img
}

func pngBytes(t *testing.T, img image.Image) []byte {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func auditActions(t *testing.T, st *store.MemoryStore, appID uuid.UUID) []string {
	t.Helper()
	logs, err := st.ListAuditLogs(context.Background(), appID)
	require.NoError(t, err)
	out := make([]string, 0, len(logs))
	for _, l := range logs {
		out = append(out, l.Action)
	}
	return out
}

// pngHeader is a PNG holding only a signature and an IHDR chunk declaring w x h.
func pngHeader(w, h uint32) []byte {
	ihdr := make([]byte, 13)
	binary.BigEndian.PutUint32(ihdr[0:4], w)
	binary.BigEndian.PutUint32(ihdr[4:8], h)
	ihdr[8] = 8 // bit depth
	ihdr[9] = 2 // truecolour
	chunk := append([]byte("IHDR"), ihdr...)

	var buf bytes.Buffer
	buf.WriteString("\x89PNG\r\n\x1a\n")
	_ = binary.Write(&buf, binary.BigEndian, uint32(len(ihdr)))
	buf.Write(chunk)
	_ = binary.Write(&buf, binary.BigEndian, crc32.ChecksumIEEE(chunk))
	return buf.Bytes()
}
