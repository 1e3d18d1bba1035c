package store

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"sync"
	"time"
)

// MemoryProgressRepo is an in-process ProgressRepo. It keeps copies so
// callers can never mutate stored records through a returned pointer.
type MemoryProgressRepo struct {
	mu   sync.Mutex
	recs map[[2]string]ProgressRecord

	// Err, when set, is returned by every call.
	Err error
}

// NewMemoryProgressRepo returns an empty MemoryProgressRepo.
func NewMemoryProgressRepo() *MemoryProgressRepo {
	return &MemoryProgressRepo{recs: make(map[[2]string]ProgressRecord)}
}

func (m *MemoryProgressRepo) Get(_ context.Context, learnerID, moduleID string) (*ProgressRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return nil, m.Err
	}
	rec, ok := m.recs[[2]string{learnerID, moduleID}]
	if !ok {
		return nil, nil
	}
	rec.Recent = slices.Clone(rec.Recent)
	return &rec, nil
}

func (m *MemoryProgressRepo) Put(_ context.Context, rec *ProgressRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return m.Err
	}
	key := [2]string{rec.LearnerID, rec.ModuleID}
	if m.recs[key].Version != rec.Version {
		return fmt.Errorf("put progress %s/%s: %w", rec.LearnerID, rec.ModuleID, ErrConflict)
	}
	rec.Version++
	c := *rec
	c.Recent = slices.Clone(rec.Recent)
	if c.UpdatedAt.IsZero() {
		c.UpdatedAt = time.Now().UTC()
	}
	m.recs[key] = c
	return nil
}

func (m *MemoryProgressRepo) List(_ context.Context, learnerID string) ([]ProgressRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return nil, m.Err
	}
	var out []ProgressRecord
	for k, rec := range m.recs {
		if k[0] == learnerID {
			rec.Recent = slices.Clone(rec.Recent)
			out = append(out, rec)
		}
	}
	slices.SortFunc(out, func(a, b ProgressRecord) int { return strings.Compare(a.ModuleID, b.ModuleID) })
	return out, nil
}

func (m *MemoryProgressRepo) Delete(_ context.Context, learnerID string) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return 0, m.Err
	}
	n := 0
	for k := range m.recs {
		if k[0] == learnerID {
			delete(m.recs, k)
			n++
		}
	}
	return n, nil
}
