package handlers

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"uk-eta-backend/internal/imagequality"
	"uk-eta-backend/internal/middleware"
	"uk-eta-backend/internal/models"
	"uk-eta-backend/internal/services"
)

type DocumentsHandler struct {
	documents *services.DocumentService
	analyzer  *imagequality.Analyzer
	logger    *slog.Logger
}

func NewDocumentsHandler(documents *services.DocumentService, analyzer *imagequality.Analyzer, logger *slog.Logger) *DocumentsHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &DocumentsHandler{documents: documents, analyzer: analyzer, logger: logger}
}

// readUpload reads the single file in the "file" form field. The request body
// is capped at the upload limit plus room for the form itself.
func readUpload(c *gin.Context) (*multipart.FileHeader, []byte, bool) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, services.MaxUploadBytes+1<<20)

	file, err := c.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{
			Error:   "no file uploaded",
			Message: "please provide the document in the \"file\" form field",
		})
		return nil, nil, false
	}
	if file.Size > services.MaxUploadBytes {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{
			Error:   "request rejected",
			Message: fmt.Sprintf("File is larger than %d MB", services.MaxUploadBytes>>20),
		})
		return nil, nil, false
	}

	src, err := file.Open()
	if err != nil {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{Error: "failed to open file", Message: err.Error()})
		return nil, nil, false
	}
	defer src.Close()

	data, err := io.ReadAll(io.LimitReader(src, services.MaxUploadBytes+1))
	if err != nil {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{Error: "failed to read file data", Message: err.Error()})
		return nil, nil, false
	}
	return file, data, true
}

// Upload godoc
// @Summary     Upload a passport scan, photo or supporting document
// @Description Photos are scored by the image quality analyzer and the score is stored with the document. Accepted types are JPEG, PNG, WebP and, except for photos, PDF. The limit is 10 MB.
// @Tags        documents
// @Accept      multipart/form-data
// @Produce     json
// @Security    Bearer
// @Param       applicant_id path string true "Applicant ID (UUID)"
// @Param       file formData file true "Document file"
// @Param       document_type formData string true "passport, photo or supporting"
// @Success     201 {object} models.DocumentUploadResponse
// @Failure     400 {object} models.ErrorResponse
// @Failure     404 {object} models.ErrorResponse
// @Failure     500 {object} models.ErrorResponse
// @Router      /applicants/{applicant_id}/documents [post]
func (h *DocumentsHandler) Upload(c *gin.Context) {
	applicantID, err := uuid.Parse(c.Param("applicant_id"))
	if err != nil {
		invalidID(c, "applicant id")
		return
	}

	file, data, ok := readUpload(c)
	if !ok {
		return
	}

	resp, err := h.documents.UploadDocument(c.Request.Context(), services.UploadInput{
		ApplicantID:  applicantID,
		DocumentType: models.DocumentType(c.PostForm("document_type")),
		FileName:     file.Filename,
		Data:         data,
		Actor:        middleware.Actor(c),
		Subject:      middleware.Subject(c),
	})
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusCreated, resp)
}

// Preview godoc
// @Summary     Get a short-lived URL for viewing a document
// @Tags        documents
// @Produce     json
// @Security    Bearer
// @Param       document_id path string true "Document ID (UUID)"
// @Success     200 {object} models.PreviewResponse
// @Failure     404 {object} models.ErrorResponse
// @Router      /documents/{document_id}/preview [get]
func (h *DocumentsHandler) Preview(c *gin.Context) {
	documentID, err := uuid.Parse(c.Param("document_id"))
	if err != nil {
		invalidID(c, "document id")
		return
	}
	resp, err := h.documents.PreviewURL(c.Request.Context(), documentID, middleware.Subject(c))
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// Thumbnail godoc
// @Summary     Get a JPEG thumbnail of an image document
// @Tags        documents
// @Produce     jpeg
// @Security    Bearer
// @Param       document_id path string true "Document ID (UUID)"
// @Success     200 {file} binary
// @Failure     400 {object} models.ErrorResponse
// @Failure     404 {object} models.ErrorResponse
// @Router      /documents/{document_id}/thumbnail [get]
func (h *DocumentsHandler) Thumbnail(c *gin.Context) {
	documentID, err := uuid.Parse(c.Param("document_id"))
	if err != nil {
		invalidID(c, "document id")
		return
	}
	data, err := h.documents.Thumbnail(c.Request.Context(), documentID, middleware.Subject(c))
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.Header("Cache-Control", "private, max-age=300")
	c.Data(http.StatusOK, "image/jpeg", data)
}

// CheckPhoto godoc
// @Summary     Score a photo before uploading it
// @Description Runs the image quality checks without storing anything, so the form can warn before the upload.
// @Tags        documents
// @Accept      multipart/form-data
// @Produce     json
// @Security    Bearer
// @Param       file formData file true "Photo"
// @Param       quick formData bool false "Skip face detection"
// @Success     200 {object} models.QualitySummary
// @Failure     400 {object} models.ErrorResponse
// @Router      /photos/check [post]
func (h *DocumentsHandler) CheckPhoto(c *gin.Context) {
	_, data, ok := readUpload(c)
	if !ok {
		return
	}

	quick := c.PostForm("quick") == "true"
	res, err := h.analyzer.AnalyzeBytes(c.Request.Context(), data, imagequality.Options{
		RequireFaceDetection: !quick,
		QuickMode:            quick,
	})
	if err != nil {
		msg := "The file could not be read as an image"
		if errors.Is(err, imagequality.ErrTooManyPixels) {
			msg = "The image dimensions are too large"
		}
		c.JSON(http.StatusBadRequest, models.ErrorResponse{
			Error:   "request rejected",
			Message: msg,
		})
		return
	}
	c.JSON(http.StatusOK, services.SummarizeQuality(res))
}
