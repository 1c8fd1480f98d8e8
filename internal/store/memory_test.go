package store_test

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
	"uk-eta-backend/internal/models"
	"uk-eta-backend/internal/store"
)

type MemoryStoreSuite struct {
	suite.Suite
	store *store.MemoryStore
	ctx   context.Context
	clock time.Time
}

func (s *MemoryStoreSuite) SetupTest() {
	s.store = store.NewMemoryStore()
	s.ctx = context.Background()
	s.clock = time.Date(2026, 10, 18, 9, 0, 0, 0, time.UTC)
	s.store.SetClock(func() time.Time {
		s.clock = s.clock.Add(time.Second)
		return s.clock
	})
}

func TestMemoryStoreSuite(t *testing.T) {
	suite.Run(t, new(MemoryStoreSuite))
}

func (s *MemoryStoreSuite) newApplication(ref, email string) *models.Application {
	app := &models.Application{
		ReferenceNumber: ref,
		Status:          models.StatusDraft,
		PaymentStatus:   models.PaymentPending,
		UserEmail:       email,
		ApplicationType: models.ApplicationSingle,
	}
	s.Require().NoError(s.store.CreateApplication(s.ctx, app))
	return app
}

func (s *MemoryStoreSuite) TestCreateApplication_DuplicateReference() {
	s.newApplication("ETA-20261018-AAAAAA", "a@example.com")

	err := s.store.CreateApplication(s.ctx, &models.Application{ReferenceNumber: "ETA-20261018-AAAAAA"})
	s.ErrorIs(err, store.ErrConflict)
}

func (s *MemoryStoreSuite) TestGetApplication_NotFound() {
	_, err := s.store.GetApplication(s.ctx, uuid.New())
	s.ErrorIs(err, store.ErrNotFound)

	_, err = s.store.GetApplicationByReference(s.ctx, "ETA-NOPE")
	s.ErrorIs(err, store.ErrNotFound)
}

func (s *MemoryStoreSuite) TestUpsertApplicant_Idempotent() {
	app := s.newApplication("ETA-20261018-BBBBBB", "b@example.com")

	first := &models.Applicant{ApplicationID: app.ID, ApplicantNumber: 1, FirstName: "JANE"}
	s.Require().NoError(s.store.UpsertApplicant(s.ctx, first))

	second := &models.Applicant{ApplicationID: app.ID, ApplicantNumber: 1, FirstName: "JANET"}
	s.Require().NoError(s.store.UpsertApplicant(s.ctx, second))

	applicants, err := s.store.ListApplicants(s.ctx, app.ID)
	s.Require().NoError(err)
	s.Require().Len(applicants, 1)
	s.Equal(first.ID, second.ID)
	s.Equal("JANET", applicants[0].FirstName)
	s.Equal(first.CreatedAt, applicants[0].CreatedAt)
}

func (s *MemoryStoreSuite) TestUpdateApplicant_Renumbers() {
	app := s.newApplication("ETA-20261018-CCCCCC", "c@example.com")
	first := &models.Applicant{ApplicationID: app.ID, ApplicantNumber: 1, FirstName: "ALICE"}
	second := &models.Applicant{ApplicationID: app.ID, ApplicantNumber: 2, FirstName: "BOB"}
	s.Require().NoError(s.store.UpsertApplicant(s.ctx, first))
	s.Require().NoError(s.store.UpsertApplicant(s.ctx, second))

	second.ApplicantNumber = 1
	s.ErrorIs(s.store.UpdateApplicant(s.ctx, second), store.ErrConflict)

	s.Require().NoError(s.store.DeleteApplicant(s.ctx, first.ID))
	s.Require().NoError(s.store.UpdateApplicant(s.ctx, second))

	applicants, err := s.store.ListApplicants(s.ctx, app.ID)
	s.Require().NoError(err)
	s.Require().Len(applicants, 1)
	s.Equal(second.ID, applicants[0].ID)
	s.Equal(1, applicants[0].ApplicantNumber)
	s.Equal("BOB", applicants[0].FirstName)

	s.ErrorIs(s.store.UpdateApplicant(s.ctx, &models.Applicant{ID: uuid.New(), ApplicantNumber: 1}), store.ErrNotFound)
}

func (s *MemoryStoreSuite) TestDeleteApplicant_RemovesDocuments() {
	app := s.newApplication("ETA-20261018-CCCCCD", "c@example.com")
	applicant := &models.Applicant{ApplicationID: app.ID, ApplicantNumber: 1}
	s.Require().NoError(s.store.UpsertApplicant(s.ctx, applicant))
	s.Require().NoError(s.store.CreateDocument(s.ctx, &models.Document{
		ApplicationID: app.ID,
		ApplicantID:   applicant.ID,
		DocumentType:  models.DocumentPassport,
		StoragePath:   "passport.jpg",
	}))

	s.Require().NoError(s.store.DeleteApplicant(s.ctx, applicant.ID))

	docs, err := s.store.ListDocumentsByApplication(s.ctx, app.ID)
	s.Require().NoError(err)
	s.Empty(docs)
	s.ErrorIs(s.store.DeleteApplicant(s.ctx, applicant.ID), store.ErrNotFound)
}

func (s *MemoryStoreSuite) TestWithinTx_RollsBack() {
	boom := errors.New("boom")

	err := s.store.WithinTx(s.ctx, func(ctx context.Context) error {
		app := &models.Application{ReferenceNumber: "ETA-20261018-DDDDDD"}
		if err := s.store.CreateApplication(ctx, app); err != nil {
			return err
		}
		if err := s.store.UpsertApplicant(ctx, &models.Applicant{ApplicationID: app.ID, ApplicantNumber: 1}); err != nil {
			return err
		}
		return boom
	})
	s.ErrorIs(err, boom)

	_, err = s.store.GetApplicationByReference(s.ctx, "ETA-20261018-DDDDDD")
	s.ErrorIs(err, store.ErrNotFound)
}

func (s *MemoryStoreSuite) TestWithinTx_Nested() {
	err := s.store.WithinTx(s.ctx, func(ctx context.Context) error {
		return s.store.WithinTx(ctx, func(ctx context.Context) error {
			return s.store.CreateApplication(ctx, &models.Application{ReferenceNumber: "ETA-20261018-EEEEEE"})
		})
	})
	s.Require().NoError(err)

	_, err = s.store.GetApplicationByReference(s.ctx, "ETA-20261018-EEEEEE")
	s.NoError(err)
}

func (s *MemoryStoreSuite) TestListApplications_FilterAndPage() {
	for i := 0; i < 5; i++ {
		s.newApplication(fmt.Sprintf("ETA-20261018-%06d", i), fmt.Sprintf("user%d@example.com", i))
	}
	paid := s.newApplication("ETA-20261018-PAID01", "Payer@Example.com")
	paid.PaymentStatus = models.PaymentPaid
	paid.PaymentAmount = decimal.RequireFromString("32.00")
	s.Require().NoError(s.store.UpdateApplication(s.ctx, paid))

	page, total, err := s.store.ListApplications(s.ctx, store.ApplicationFilter{Limit: 2, Offset: 0})
	s.Require().NoError(err)
	s.Equal(6, total)
	s.Require().Len(page, 2)
	s.Equal("ETA-20261018-PAID01", page[0].ReferenceNumber)

	page, total, err = s.store.ListApplications(s.ctx, store.ApplicationFilter{Search: "payer@"})
	s.Require().NoError(err)
	s.Equal(1, total)
	s.Equal(paid.ID, page[0].ID)

	_, total, err = s.store.ListApplications(s.ctx, store.ApplicationFilter{PaymentStatus: models.PaymentPaid})
	s.Require().NoError(err)
	s.Equal(1, total)

	page, _, err = s.store.ListApplications(s.ctx, store.ApplicationFilter{Offset: 10, Limit: 5})
	s.Require().NoError(err)
	s.Empty(page)

	sum, err := s.store.SumPaidAmount(s.ctx)
	s.Require().NoError(err)
	s.True(sum.Equal(decimal.RequireFromString("32")))
}

func (s *MemoryStoreSuite) TestDocumentVerification() {
	app := s.newApplication("ETA-20261018-FFFFFF", "f@example.com")
	applicant := &models.Applicant{ApplicationID: app.ID, ApplicantNumber: 1}
	s.Require().NoError(s.store.UpsertApplicant(s.ctx, applicant))

	doc := &models.Document{
		ApplicationID:      app.ID,
		ApplicantID:        applicant.ID,
		DocumentType:       models.DocumentPhoto,
		VerificationStatus: models.VerificationPending,
	}
	s.Require().NoError(s.store.CreateDocument(s.ctx, doc))

	n, err := s.store.CountDocumentsByVerification(s.ctx, models.VerificationPending)
	s.Require().NoError(err)
	s.Equal(1, n)

	doc.VerificationStatus = models.VerificationVerified
	s.Require().NoError(s.store.UpdateDocumentVerification(s.ctx, doc))

	got, err := s.store.GetDocument(s.ctx, doc.ID)
	s.Require().NoError(err)
	s.Equal(models.VerificationVerified, got.VerificationStatus)
}

func TestMemoryStore_AdminLookupIsCaseInsensitive(t *testing.T) {
	s := store.NewMemoryStore()
	s.AddAdminUser(models.AdminUser{Email: "Ops@Example.gov.uk", Role: models.RoleAdmin})

	u, err := s.GetAdminUserByEmail(context.Background(), "ops@example.gov.uk")
	require.NoError(t, err)
	assert.Equal(t, models.RoleAdmin, u.Role)

	_, err = s.GetAdminUserByEmail(context.Background(), "nobody@example.com")
	assert.ErrorIs(t, err, store.ErrNotFound)
}
