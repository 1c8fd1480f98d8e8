// Package translate fills the English half of the two-state job title field.
// Translation is best-effort: when it fails the applicant is asked to supply
// the English title by hand.
package translate

import (
	"context"
	"log/slog"
	"strings"
	"sync"

	"uk-eta-backend/internal/models"
	"uk-eta-backend/internal/validation"
)

type Translator interface {
	Translate(ctx context.Context, text, source, target string) (string, error)
}

type Service struct {
	translator Translator
	logger     *slog.Logger

	mu    sync.RWMutex
	cache map[string]string
}

type Option func(*Service)

func WithLogger(l *slog.Logger) Option {
	return func(s *Service) { s.logger = l }
}

// NewService accepts a nil translator, in which case only plain ASCII titles
// are taken as already English.
func NewService(translator Translator, opts ...Option) *Service {
	s := &Service{
		translator: translator,
		logger:     slog.Default(),
		cache:      make(map[string]string),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	return s
}

func (s *Service) TranslateJobTitle(ctx context.Context, title, sourceLanguage string) models.TranslateResponse {
	normalized := validation.NormalizeJobTitle(title)
	resp := models.TranslateResponse{Original: title, Normalized: normalized}
	if normalized == "" {
		resp.NeedsManualTranslation = true
		return resp
	}

	if s.translator == nil {
		if validation.IsASCII(normalized) {
			resp.Translated = &normalized
		} else {
			resp.NeedsManualTranslation = true
		}
		return resp
	}

	source := strings.ToLower(strings.TrimSpace(sourceLanguage))
	if source == "" {
		source = "auto"
	}
	key := source + "|" + strings.ToLower(normalized)

	s.mu.RLock()
	cached, ok := s.cache[key]
	s.mu.RUnlock()
	if ok {
		resp.Translated = &cached
		return resp
	}

	translated, err := s.translator.Translate(ctx, normalized, source, "en")
	if err != nil {
		s.logger.WarnContext(ctx, "job title translation failed", "source", source, "error", err)
		resp.NeedsManualTranslation = true
		return resp
	}
	translated = validation.NormalizeJobTitle(translated)

	s.mu.Lock()
	s.cache[key] = translated
	s.mu.Unlock()

	resp.Translated = &translated
	return resp
}

func (s *Service) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cache = make(map[string]string)
}
