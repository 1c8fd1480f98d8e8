package resume

import (
	"context"
	"fmt"
	"sync"

	"uk-eta-backend/internal/models"
	"uk-eta-backend/internal/store"
)

// MemoryStore keeps snapshots in process. Entries are never swept; expiry is
// enforced by the resume service when a token is read.
type MemoryStore struct {
	mu        sync.RWMutex
	snapshots map[string]models.ResumeSnapshot
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{snapshots: make(map[string]models.ResumeSnapshot)}
}

func (m *MemoryStore) Save(ctx context.Context, snap *models.ResumeSnapshot) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.snapshots[snap.Token] = cloneSnapshot(*snap)
	return nil
}

func (m *MemoryStore) Get(ctx context.Context, token string) (*models.ResumeSnapshot, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	snap, ok := m.snapshots[token]
	if !ok {
		return nil, fmt.Errorf("resume token: %w", store.ErrNotFound)
	}
	out := cloneSnapshot(snap)
	return &out, nil
}

func (m *MemoryStore) Delete(ctx context.Context, token string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.snapshots, token)
	return nil
}

func (m *MemoryStore) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.snapshots)
}

func (m *MemoryStore) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.snapshots = make(map[string]models.ResumeSnapshot)
}

func cloneSnapshot(s models.ResumeSnapshot) models.ResumeSnapshot {
	s.Applicants = append([]models.ApplicantInput(nil), s.Applicants...)
	for i := range s.Applicants {
		if t := s.Applicants[i].JobTitle.Translated; t != nil {
			v := *t
			s.Applicants[i].JobTitle.Translated = &v
		}
	}
	if s.ApplicationID != nil {
		id := *s.ApplicationID
		s.ApplicationID = &id
	}
	return s
}
