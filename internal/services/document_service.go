package services

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"path"
	"strings"
	"time"

	"github.com/google/uuid"
	"uk-eta-backend/internal/imagequality"
	"uk-eta-backend/internal/models"
	"uk-eta-backend/internal/security"
	"uk-eta-backend/internal/store"
)

const (
	MaxUploadBytes = 10 << 20

	PreviewExpiry = time.Hour

	ThumbnailSize = 240

	// AutoVerifyScore is the lowest score the automated check accepts.
	AutoVerifyScore = 80

	AutoVerifier = "auto-verifier"
)

var uploadExtensions = map[string]string{
	"image/jpeg":      "jpg",
	"image/png":       "png",
	"image/webp":      "webp",
	"application/pdf": "pdf",
}

var photoAnalysis = imagequality.Options{RequireFaceDetection: true}

type DocumentService struct {
	base
	store     store.Store
	objects   store.ObjectStore
	analyzer  *imagequality.Analyzer
	sanitizer *security.Sanitizer
}

func NewDocumentService(st store.Store, objects store.ObjectStore, analyzer *imagequality.Analyzer, sanitizer *security.Sanitizer, opts ...Option) *DocumentService {
	return &DocumentService{
		base:      newBase(opts),
		store:     st,
		objects:   objects,
		analyzer:  analyzer,
		sanitizer: sanitizer,
	}
}

type UploadInput struct {
	ApplicantID  uuid.UUID
	DocumentType models.DocumentType
	FileName     string
	Data         []byte
	Actor        string
	// Subject is the caller's auth subject; see models.Application.OwnedBy.
	Subject string
}

// UploadDocument stores the blob first and the row second. If the row cannot
// be written the blob is removed again.
func (s *DocumentService) UploadDocument(ctx context.Context, in UploadInput) (*models.DocumentUploadResponse, error) {
	if !in.DocumentType.Valid() {
		return nil, NewBusinessError("Unsupported document type %q", in.DocumentType)
	}
	contentType, ext, err := detectUpload(in.DocumentType, in.Data)
	if err != nil {
		return nil, err
	}

	applicant, err := s.store.GetApplicant(ctx, in.ApplicantID)
	if err != nil {
		return nil, fmt.Errorf("failed to load applicant: %w", err)
	}
	app, err := s.store.GetApplication(ctx, applicant.ApplicationID)
	if err != nil {
		return nil, fmt.Errorf("failed to load application: %w", err)
	}
	if !app.OwnedBy(in.Subject) {
		return nil, fmt.Errorf("applicant %s: %w", in.ApplicantID, store.ErrNotFound)
	}
	if app.Status != models.StatusDraft {
		return nil, NewBusinessError("Documents cannot be changed after the application is submitted")
	}

	meta := models.DocumentMetadata{
		OriginalFilename: s.sanitizer.Clean(ctx, "file_name", path.Base(in.FileName)),
	}
	var quality *models.QualitySummary
	if in.DocumentType == models.DocumentPhoto {
		res, err := s.analyzer.AnalyzeBytes(ctx, in.Data, photoAnalysis)
		if err != nil {
			s.metrics.IncUpload(string(in.DocumentType), "rejected")
			if errors.Is(err, imagequality.ErrTooManyPixels) {
				return nil, NewBusinessError("Photo dimensions are too large")
			}
			return nil, NewBusinessError("Photo could not be read as an image")
		}
		applyQuality(&meta, res)
		quality = SummarizeQuality(res)
		s.metrics.ObserveQualityScore(res.Score)
	}

	bucket := in.DocumentType.Bucket()
	objectPath := fmt.Sprintf("%s/%s/%s-%d.%s", app.ID, applicant.ID, in.DocumentType, s.now().UnixMilli(), ext)
	if err := s.objects.Upload(ctx, bucket, objectPath, contentType, in.Data); err != nil {
		s.metrics.IncUpload(string(in.DocumentType), "failed")
		return nil, fmt.Errorf("failed to upload document: %w", err)
	}

	doc := &models.Document{
		ApplicationID:      app.ID,
		ApplicantID:        applicant.ID,
		DocumentType:       in.DocumentType,
		FileName:           path.Base(objectPath),
		Bucket:             bucket,
		StoragePath:        objectPath,
		MimeType:           contentType,
		FileSize:           int64(len(in.Data)),
		VerificationStatus: models.VerificationPending,
		Metadata:           meta,
	}
	err = s.store.WithinTx(ctx, func(ctx context.Context) error {
		if err := s.store.CreateDocument(ctx, doc); err != nil {
			return fmt.Errorf("failed to save document: %w", err)
		}
		return audit(ctx, s.store, app.ID, in.Actor, models.AuditDocumentUploaded, models.JSONMap{
			"document_id":   doc.ID.String(),
			"applicant_id":  applicant.ID.String(),
			"document_type": string(in.DocumentType),
		})
	})
	if err != nil {
		if rmErr := s.objects.Remove(context.WithoutCancel(ctx), bucket, objectPath); rmErr != nil {
			s.logger.ErrorContext(ctx, "failed to remove orphaned upload", "bucket", bucket, "path", objectPath, "error", rmErr)
		}
		s.metrics.IncUpload(string(in.DocumentType), "failed")
		return nil, err
	}

	s.metrics.IncUpload(string(in.DocumentType), "stored")
	s.logger.InfoContext(ctx, "document uploaded",
		"document_id", doc.ID,
		"application_id", app.ID,
		"document_type", string(in.DocumentType),
		"size", doc.FileSize,
	)
	return &models.DocumentUploadResponse{Document: *doc, Quality: quality}, nil
}

func detectUpload(docType models.DocumentType, data []byte) (contentType, ext string, err error) {
	if len(data) == 0 {
		return "", "", NewBusinessError("File is empty")
	}
	if len(data) > MaxUploadBytes {
		return "", "", NewBusinessError("File is larger than %d MB", MaxUploadBytes>>20)
	}

	contentType, _, _ = strings.Cut(http.DetectContentType(data), ";")
	ext, ok := uploadExtensions[contentType]
	if !ok {
		return "", "", NewBusinessError("Unsupported file type %s; upload a JPEG, PNG, WebP or PDF file", contentType)
	}
	if docType == models.DocumentPhoto && contentType == "application/pdf" {
		return "", "", NewBusinessError("Photos must be JPEG, PNG or WebP images")
	}
	return contentType, ext, nil
}

// ownedDocument loads a document whose application subject may access.
// Anything else is reported as not found.
func (s *DocumentService) ownedDocument(ctx context.Context, documentID uuid.UUID, subject string) (*models.Document, error) {
	doc, err := s.store.GetDocument(ctx, documentID)
	if err != nil {
		return nil, err
	}
	app, err := s.store.GetApplication(ctx, doc.ApplicationID)
	if err != nil {
		return nil, fmt.Errorf("failed to load application: %w", err)
	}
	if !app.OwnedBy(subject) {
		return nil, fmt.Errorf("document %s: %w", documentID, store.ErrNotFound)
	}
	return doc, nil
}

// PreviewURL signs the stored path; documents never carry inline image data.
func (s *DocumentService) PreviewURL(ctx context.Context, documentID uuid.UUID, subject string) (*models.PreviewResponse, error) {
	doc, err := s.ownedDocument(ctx, documentID, subject)
	if err != nil {
		return nil, err
	}
	signed, err := s.objects.SignedURL(ctx, doc.Bucket, doc.StoragePath, PreviewExpiry)
	if err != nil {
		return nil, fmt.Errorf("failed to sign preview url: %w", err)
	}
	return &models.PreviewResponse{URL: signed, ExpiresIn: int(PreviewExpiry.Seconds())}, nil
}

// Thumbnail renders a small JPEG of an image document. PDFs have no thumbnail.
func (s *DocumentService) Thumbnail(ctx context.Context, documentID uuid.UUID, subject string) ([]byte, error) {
	doc, err := s.ownedDocument(ctx, documentID, subject)
	if err != nil {
		return nil, err
	}
	if doc.MimeType == "application/pdf" {
		return nil, NewBusinessError("Thumbnails are only available for images")
	}

	data, err := s.objects.Download(ctx, doc.Bucket, doc.StoragePath)
	if err != nil {
		return nil, fmt.Errorf("failed to download document: %w", err)
	}
	img, err := imagequality.Decode(data)
	if errors.Is(err, imagequality.ErrTooManyPixels) {
		return nil, NewBusinessError("Image is too large to preview")
	}
	if err != nil {
		return nil, err
	}
	return imagequality.Thumbnail(img, ThumbnailSize)
}

// AutoVerify scores a pending photo. A score of AutoVerifyScore or more with
// no errors and a located face verifies it. Any error other than a missed face
// rejects it. Anything else, a missed face included, is left for a reviewer.
// Other document types are returned unchanged.
func (s *DocumentService) AutoVerify(ctx context.Context, documentID uuid.UUID, actor string) (*models.AutoVerifyResponse, error) {
	doc, err := s.store.GetDocument(ctx, documentID)
	if err != nil {
		return nil, err
	}
	if doc.DocumentType != models.DocumentPhoto {
		return &models.AutoVerifyResponse{Success: true, Document: *doc}, nil
	}
	if doc.VerificationStatus != models.VerificationPending {
		return nil, NewBusinessError("Document has already been reviewed")
	}

	data, err := s.objects.Download(ctx, doc.Bucket, doc.StoragePath)
	if err != nil {
		return nil, fmt.Errorf("failed to download document: %w", err)
	}
	res, err := s.analyzer.AnalyzeBytes(ctx, data, photoAnalysis)
	if err != nil {
		res = imagequality.Result{Errors: []string{"Photo could not be read as an image"}}
	}
	s.metrics.ObserveQualityScore(res.Score)

	applyQuality(&doc.Metadata, res)
	doc.Metadata.AutoVerified = true
	switch {
	case !res.Acceptable() && !onlyFaceMissing(res):
		doc.VerificationStatus = models.VerificationRejected
	case res.Acceptable() && res.Score >= AutoVerifyScore && res.Metadata.Face != nil:
		doc.VerificationStatus = models.VerificationVerified
	}
	if doc.VerificationStatus != models.VerificationPending {
		now := s.now()
		verifier := AutoVerifier
		doc.VerifiedBy = &verifier
		doc.VerifiedAt = &now
	}

	err = s.store.WithinTx(ctx, func(ctx context.Context) error {
		if err := s.store.UpdateDocumentVerification(ctx, doc); err != nil {
			return fmt.Errorf("failed to update document: %w", err)
		}
		if doc.VerificationStatus == models.VerificationVerified {
			if _, err := applyDocumentsVerified(ctx, s.store, doc.ApplicantID); err != nil {
				return err
			}
		}
		return audit(ctx, s.store, doc.ApplicationID, actor, models.AuditDocumentAutoScored, models.JSONMap{
			"document_id":         doc.ID.String(),
			"score":               res.Score,
			"verification_status": string(doc.VerificationStatus),
		})
	})
	if err != nil {
		return nil, err
	}

	s.logger.InfoContext(ctx, "photo auto-verified",
		"document_id", doc.ID,
		"score", res.Score,
		"verification_status", string(doc.VerificationStatus),
	)
	return &models.AutoVerifyResponse{Success: true, Document: *doc, Quality: SummarizeQuality(res)}, nil
}

// applyDocumentsVerified moves an applicant to documents_verified once both a
// passport and a photo of theirs are verified. It returns the applicant's status.
func applyDocumentsVerified(ctx context.Context, st store.Store, applicantID uuid.UUID) (models.ApplicantStatus, error) {
	applicant, err := st.GetApplicant(ctx, applicantID)
	if err != nil {
		return "", fmt.Errorf("failed to load applicant: %w", err)
	}
	docs, err := st.ListDocumentsByApplicant(ctx, applicantID)
	if err != nil {
		return "", fmt.Errorf("failed to list applicant documents: %w", err)
	}

	var passport, photo bool
	for _, d := range docs {
		if d.VerificationStatus != models.VerificationVerified {
			continue
		}
		switch d.DocumentType {
		case models.DocumentPassport:
			passport = true
		case models.DocumentPhoto:
			photo = true
		}
	}
	if !passport || !photo || applicant.Status == models.ApplicantDocumentsVerified {
		return applicant.Status, nil
	}
	if err := st.UpdateApplicantStatus(ctx, applicantID, models.ApplicantDocumentsVerified); err != nil {
		return "", fmt.Errorf("failed to update applicant status: %w", err)
	}
	return models.ApplicantDocumentsVerified, nil
}

func applyQuality(meta *models.DocumentMetadata, res imagequality.Result) {
	score := res.Score
	meta.QualityScore = &score
	meta.QualityPasses = res.Passes
	meta.QualityWarnings = res.Warnings
	meta.QualityErrors = res.Errors
	meta.Width = res.Metadata.Width
	meta.Height = res.Metadata.Height
}

// SummarizeQuality is the client-facing view of an analysis. Lists are never nil.
func SummarizeQuality(res imagequality.Result) *models.QualitySummary {
	orEmpty := func(s []string) []string {
		if s == nil {
			return []string{}
		}
		return s
	}
	return &models.QualitySummary{
		Score:    res.Score,
		Passes:   orEmpty(res.Passes),
		Warnings: orEmpty(res.Warnings),
		Errors:   orEmpty(res.Errors),
	}
}

func onlyFaceMissing(res imagequality.Result) bool {
	return len(res.Errors) == 1 && res.Errors[0] == imagequality.MsgNoFace
}
