// Package security cleans free-text input before it is persisted.
//
// Structured fields (names, passport numbers, dates) are checked by the
// allow-list validators in package validation and never reach this package.
// Free text is always sanitized and never rejected; the pattern predicates only
// flag suspicious input for logging and metrics.
package security

import (
	"context"
	"html"
	"log/slog"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/microcosm-cc/bluemonday"
	"uk-eta-backend/internal/metrics"
)

const (
	DefaultMaxLength = 1000
	maxPasses        = 16

	KindXSS = "xss"
	KindSQL = "sql"
)

var (
	scriptBlock    = regexp.MustCompile(`(?is)<\s*script\b[^>]*>.*?<\s*/\s*script\s*>`)
	scriptFragment = regexp.MustCompile(`(?i)<\s*/?\s*script[^>]*>?`)
	scriptScheme   = regexp.MustCompile(`(?i)(?:java|vb)\s*script\s*:`)
	htmlDataURI    = regexp.MustCompile(`(?i)data\s*:\s*text/html`)
	eventHandler   = regexp.MustCompile(`(?i)\bon[a-z]+\s*=`)
	sqlSeparators  = regexp.MustCompile(`;|--|/\*|\*/`)
)

var xssPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)<\s*script`),
	regexp.MustCompile(`(?i)<\s*iframe`),
	regexp.MustCompile(`(?i)<\s*embed`),
	regexp.MustCompile(`(?i)<\s*object`),
	regexp.MustCompile(`(?i)javascript\s*:`),
	regexp.MustCompile(`(?i)\bon[a-z]+\s*=`),
	regexp.MustCompile(`(?i)\b(?:eval|alert|prompt|confirm)\s*\(`),
}

var sqlPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)\b(?:select|insert|update|delete|drop|union|alter|create|exec|execute|truncate)\b`),
	regexp.MustCompile(`--|/\*|\*/`),
	regexp.MustCompile(`;`),
	regexp.MustCompile(`['"]`),
}

type Sanitizer struct {
	policy    *bluemonday.Policy
	maxLength int
	logger    *slog.Logger
	metrics   *metrics.Metrics
}

type Option func(*Sanitizer)

func WithMaxLength(n int) Option {
	return func(s *Sanitizer) {
		if n > 0 {
			s.maxLength = n
		}
	}
}

func WithLogger(l *slog.Logger) Option {
	return func(s *Sanitizer) {
		if l != nil {
			s.logger = l
		}
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Sanitizer) { s.metrics = m }
}

func NewSanitizer(opts ...Option) *Sanitizer {
	s := &Sanitizer{
		policy:    bluemonday.StrictPolicy(),
		maxLength: DefaultMaxLength,
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// SanitizeInput strips markup, script vectors and SQL statement separators,
// repeating until the output stops changing, then trims and caps the length.
func (s *Sanitizer) SanitizeInput(input string) string {
	out := input
	for i := 0; i < maxPasses; i++ {
		next := s.pass(out)
		if next == out {
			break
		}
		out = next
	}
	// nested payloads that outlast every pass lose their angle brackets
	if scriptFragment.MatchString(out) {
		out = strings.NewReplacer("<", "", ">", "").Replace(out)
	}

	out = strings.TrimSpace(out)
	if utf8.RuneCountInString(out) > s.maxLength {
		out = strings.TrimSpace(string([]rune(out)[:s.maxLength]))
	}
	return out
}

func (s *Sanitizer) pass(in string) string {
	out := scriptBlock.ReplaceAllString(in, "")
	out = s.policy.Sanitize(out)
	out = html.UnescapeString(out)
	out = scriptFragment.ReplaceAllString(out, "")
	out = scriptScheme.ReplaceAllString(out, "")
	out = htmlDataURI.ReplaceAllString(out, "")
	out = eventHandler.ReplaceAllString(out, "")
	out = sqlSeparators.ReplaceAllString(out, "")
	return out
}

func (s *Sanitizer) HasXSSPatterns(input string) bool {
	return matchesAny(xssPatterns, input)
}

func (s *Sanitizer) HasSQLInjectionPatterns(input string) bool {
	return matchesAny(sqlPatterns, input)
}

func matchesAny(patterns []*regexp.Regexp, input string) bool {
	for _, p := range patterns {
		if p.MatchString(input) {
			return true
		}
	}
	return false
}

// Clean flags and sanitizes a single free-text field. The raw value is never logged.
func (s *Sanitizer) Clean(ctx context.Context, field, value string) string {
	if value == "" {
		return value
	}
	if s.HasXSSPatterns(value) {
		s.flag(ctx, field, KindXSS)
	}
	if s.HasSQLInjectionPatterns(value) {
		s.flag(ctx, field, KindSQL)
	}
	return s.SanitizeInput(value)
}

// CleanPtr is Clean for optional fields.
func (s *Sanitizer) CleanPtr(ctx context.Context, field string, value *string) *string {
	if value == nil {
		return nil
	}
	cleaned := s.Clean(ctx, field, *value)
	return &cleaned
}

func (s *Sanitizer) flag(ctx context.Context, field, kind string) {
	s.metrics.IncSecurityFlag(kind)
	s.logger.WarnContext(ctx, "suspicious input pattern", "field", field, "kind", kind)
}
