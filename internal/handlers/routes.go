package handlers

import (
	"github.com/gin-gonic/gin"
)

// Routes holds every handler the HTTP surface is built from. Auth and Admin
// guard the /api/v1 and /functions/v1 groups; either may be nil in tests.
type Routes struct {
	Health    *HealthHandler
	Config    *ConfigHandler
	Drafts    *DraftsHandler
	Resume    *ResumeHandler
	Documents *DocumentsHandler
	Status    *StatusHandler
	Translate *TranslateHandler
	Functions *FunctionsHandler
	Admin     *AdminHandler
	Webhook   *WebhookHandler

	Auth      gin.HandlerFunc
	AdminOnly gin.HandlerFunc
}

func (r Routes) Register(router gin.IRouter) {
	router.GET("/health", r.Health.Health)

	open := router.Group("/api/v1")
	open.GET("/config/public", r.Config.PublicConfig)
	// signature in the body authenticates the processor
	open.POST("/webhooks/payment", r.Webhook.HandlePayment)

	api := router.Group("/api/v1")
	if r.Auth != nil {
		api.Use(r.Auth)
	}

	drafts := api.Group("/drafts")
	drafts.POST("", r.Drafts.CreateDraft)
	drafts.GET("/:draft_id", r.Drafts.GetDraft)
	drafts.DELETE("/:draft_id", r.Drafts.ClearDraft)
	drafts.POST("/:draft_id/applicants", r.Drafts.AddApplicant)
	drafts.PUT("/:draft_id/applicants/:number", r.Drafts.WriteApplicant)
	drafts.DELETE("/:draft_id/applicants/:number", r.Drafts.RemoveApplicant)
	drafts.POST("/:draft_id/advance", r.Drafts.Advance)
	drafts.POST("/:draft_id/step", r.Drafts.GoToStep)
	drafts.POST("/:draft_id/persist", r.Drafts.Persist)
	drafts.POST("/:draft_id/save-for-later", r.Drafts.SaveForLater)
	drafts.POST("/:draft_id/submit", r.Drafts.Submit)

	api.GET("/resume/:token", r.Resume.Resume)

	api.POST("/applicants/:applicant_id/documents", r.Documents.Upload)
	api.GET("/documents/:document_id/preview", r.Documents.Preview)
	api.GET("/documents/:document_id/thumbnail", r.Documents.Thumbnail)
	api.POST("/photos/check", r.Documents.CheckPhoto)

	api.GET("/applications/track", r.Status.Track)
	api.POST("/job-title/translate", r.Translate.TranslateJobTitle)

	functions := router.Group("/functions/v1")
	if r.Auth != nil {
		functions.Use(r.Auth)
	}
	functions.POST("/submit-application", r.Functions.SubmitApplication)
	functions.POST("/create-payment-intent", r.Functions.CreatePaymentIntent)

	admin := functions.Group("")
	if r.AdminOnly != nil {
		admin.Use(r.AdminOnly)
	}
	admin.POST("/verify-document", r.Functions.VerifyDocument)
	admin.POST("/admin-dashboard", r.Admin.Dashboard)
}
