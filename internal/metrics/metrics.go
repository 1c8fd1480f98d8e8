// Package metrics exposes the prometheus collectors for the portal.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics groups every collector the services record into.
// A nil *Metrics is valid and records nothing.
type Metrics struct {
	Submissions    prometheus.Counter
	Uploads        *prometheus.CounterVec
	Payments       *prometheus.CounterVec
	Emails         *prometheus.CounterVec
	SecurityFlags  *prometheus.CounterVec
	QualityScores  prometheus.Histogram
	ResumeLinks    *prometheus.CounterVec
	StatusUpdates  *prometheus.CounterVec
	RateLimitDrops prometheus.Counter
}

// New registers the collectors on reg. Pass prometheus.DefaultRegisterer in main
// and a fresh prometheus.NewRegistry() in tests.
func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		Submissions: f.NewCounter(prometheus.CounterOpts{
			Name: "eta_applications_submitted_total",
			Help: "Total number of applications submitted",
		}),
		Uploads: f.NewCounterVec(prometheus.CounterOpts{
			Name: "eta_documents_uploaded_total",
			Help: "Total number of uploaded documents by type and result",
		}, []string{"document_type", "result"}),
		Payments: f.NewCounterVec(prometheus.CounterOpts{
			Name: "eta_payments_total",
			Help: "Payment notifications processed by resulting status",
		}, []string{"status"}),
		Emails: f.NewCounterVec(prometheus.CounterOpts{
			Name: "eta_emails_total",
			Help: "Notification emails by template and delivery result",
		}, []string{"template", "result"}),
		SecurityFlags: f.NewCounterVec(prometheus.CounterOpts{
			Name: "eta_security_flags_total",
			Help: "Free-text inputs that matched a suspicious pattern",
		}, []string{"kind"}),
		QualityScores: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "eta_photo_quality_score",
			Help:    "Distribution of photo quality scores",
			Buckets: []float64{10, 20, 30, 40, 50, 60, 65, 70, 80, 90, 100},
		}),
		ResumeLinks: f.NewCounterVec(prometheus.CounterOpts{
			Name: "eta_resume_links_total",
			Help: "Resume link saves and lookups by outcome",
		}, []string{"outcome"}),
		StatusUpdates: f.NewCounterVec(prometheus.CounterOpts{
			Name: "eta_status_updates_total",
			Help: "Admin status updates by new status",
		}, []string{"status"}),
		RateLimitDrops: f.NewCounter(prometheus.CounterOpts{
			Name: "eta_rate_limited_requests_total",
			Help: "Requests rejected by the per-client rate limiter",
		}),
	}
}

func (m *Metrics) IncSubmission() {
	if m == nil {
		return
	}
	m.Submissions.Inc()
}

func (m *Metrics) IncUpload(documentType, result string) {
	if m == nil {
		return
	}
	m.Uploads.WithLabelValues(documentType, result).Inc()
}

func (m *Metrics) IncPayment(status string) {
	if m == nil {
		return
	}
	m.Payments.WithLabelValues(status).Inc()
}

func (m *Metrics) IncEmail(template, result string) {
	if m == nil {
		return
	}
	m.Emails.WithLabelValues(template, result).Inc()
}

func (m *Metrics) IncSecurityFlag(kind string) {
	if m == nil {
		return
	}
	m.SecurityFlags.WithLabelValues(kind).Inc()
}

func (m *Metrics) ObserveQualityScore(score int) {
	if m == nil {
		return
	}
	m.QualityScores.Observe(float64(score))
}

func (m *Metrics) IncResumeLink(outcome string) {
	if m == nil {
		return
	}
	m.ResumeLinks.WithLabelValues(outcome).Inc()
}

func (m *Metrics) IncStatusUpdate(status string) {
	if m == nil {
		return
	}
	m.StatusUpdates.WithLabelValues(status).Inc()
}

func (m *Metrics) IncRateLimited() {
	if m == nil {
		return
	}
	m.RateLimitDrops.Inc()
}
