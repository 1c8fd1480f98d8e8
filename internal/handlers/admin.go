package handlers

import (
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"uk-eta-backend/internal/middleware"
	"uk-eta-backend/internal/models"
	"uk-eta-backend/internal/services"
	"uk-eta-backend/internal/validation"
)

const (
	ActionGetStats                = "GET_STATS"
	ActionDashboardMetrics        = "DASHBOARD_METRICS"
	ActionGetApplications         = "GET_APPLICATIONS"
	ActionGetApplication          = "GET_APPLICATION"
	ActionUpdateApplicationStatus = "UPDATE_APPLICATION_STATUS"
	ActionVerifyDocument          = "VERIFY_DOCUMENT"
	ActionSendReminders           = "SEND_REMINDERS"
	ActionRetryEmails             = "RETRY_EMAILS"
)

type AdminHandler struct {
	admin     *services.AdminService
	validator *validation.Validator
	logger    *slog.Logger
}

func NewAdminHandler(admin *services.AdminService, v *validation.Validator, logger *slog.Logger) *AdminHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &AdminHandler{admin: admin, validator: v, logger: logger}
}

// Dashboard godoc
// @Summary     Admin dashboard actions
// @Description Dispatches on action: GET_STATS, DASHBOARD_METRICS, GET_APPLICATIONS, GET_APPLICATION, UPDATE_APPLICATION_STATUS, VERIFY_DOCUMENT, SEND_REMINDERS or RETRY_EMAILS. The other fields are read according to the action.
// @Tags        admin
// @Accept      json
// @Produce     json
// @Security    Bearer
// @Param       request body models.AdminDashboardRequest true "Action and its arguments"
// @Success     200 {object} object
// @Failure     400 {object} models.ErrorResponse
// @Failure     403 {object} models.ErrorResponse
// @Failure     404 {object} models.ErrorResponse
// @Router      /admin-dashboard [post]
func (h *AdminHandler) Dashboard(c *gin.Context) {
	var req models.AdminDashboardRequest
	if !bindJSON(c, h.validator, &req) {
		return
	}

	ctx := c.Request.Context()
	actor := middleware.Actor(c)
	if admin, ok := middleware.AdminFrom(c); ok {
		actor = admin.Email
	}

	var (
		resp any
		err  error
	)
	switch strings.ToUpper(strings.TrimSpace(req.Action)) {
	case ActionGetStats:
		from, to, ok := dateRange(c, req.DateFrom, req.DateTo)
		if !ok {
			return
		}
		resp, err = h.admin.GetStats(ctx, from, to)

	case ActionDashboardMetrics:
		resp, err = h.admin.DashboardMetrics(ctx)

	case ActionGetApplications:
		resp, err = h.admin.ListApplications(ctx, services.ListApplicationsInput{
			Page:          req.Page,
			PerPage:       req.PerPage,
			Status:        req.Status,
			PaymentStatus: req.PaymentStatus,
			Search:        req.Search,
		})

	case ActionGetApplication:
		id, ok := parseBodyID(c, req.ApplicationID, "application id")
		if !ok {
			return
		}
		resp, err = h.admin.GetApplication(ctx, id)

	case ActionUpdateApplicationStatus:
		id, ok := parseBodyID(c, req.ApplicationID, "application id")
		if !ok {
			return
		}
		resp, err = h.admin.UpdateApplicationStatus(ctx, id, models.ApplicationStatus(req.Status), req.Notes, actor)

	case ActionVerifyDocument:
		id, ok := parseBodyID(c, req.DocumentID, "document id")
		if !ok {
			return
		}
		resp, err = h.admin.VerifyDocument(ctx, id, models.VerificationStatus(req.VerificationStatus), req.Notes, actor)

	case ActionSendReminders:
		var sent int
		sent, err = h.admin.SendReminders(ctx, time.Duration(req.OlderThanDays)*24*time.Hour)
		resp = models.RemindersResponse{Success: err == nil, Sent: sent}

	case ActionRetryEmails:
		var sent int
		sent, err = h.admin.RetryEmails(ctx)
		if err != nil {
			// partial failures stay queued; report what went out
			h.logger.WarnContext(ctx, "some queued emails failed again", "error", err)
			err = nil
		}
		resp = models.RemindersResponse{Success: true, Sent: sent}

	default:
		c.JSON(http.StatusBadRequest, models.ErrorResponse{
			Error:   "unknown action",
			Message: "action " + req.Action + " is not supported",
		})
		return
	}

	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

func parseBodyID(c *gin.Context, raw, what string) (uuid.UUID, bool) {
	id, err := uuid.Parse(strings.TrimSpace(raw))
	if err != nil {
		invalidID(c, what)
		return uuid.Nil, false
	}
	return id, true
}

// dateRange accepts RFC 3339 timestamps or plain dates. A plain end date
// covers the whole day.
func dateRange(c *gin.Context, rawFrom, rawTo string) (from, to *time.Time, ok bool) {
	parse := func(raw string, endOfDay bool) (*time.Time, bool) {
		raw = strings.TrimSpace(raw)
		if raw == "" {
			return nil, true
		}
		if t, err := time.Parse(time.RFC3339, raw); err == nil {
			return &t, true
		}
		t, err := time.Parse(validation.DateLayout, raw)
		if err != nil {
			return nil, false
		}
		if endOfDay {
			t = t.Add(24*time.Hour - time.Nanosecond)
		}
		return &t, true
	}

	if from, ok = parse(rawFrom, false); !ok {
		invalidID(c, "date_from")
		return nil, nil, false
	}
	if to, ok = parse(rawTo, true); !ok {
		invalidID(c, "date_to")
		return nil, nil, false
	}
	return from, to, true
}
