package storage

import (
	"context"
	"sort"
	"sync"

	"github.com/elum-utils/moderation/interfaces"
	"github.com/elum-utils/moderation/models"
)

// MemoryAdapter is an in-memory term, preference and moderation status store.
type MemoryAdapter struct {
	mu          sync.RWMutex
	terms       []string
	preferences map[string]models.FilterLevel
	statuses    map[models.ContentRef]models.ModerationStatus
}

var (
	_ interfaces.TermSource      = (*MemoryAdapter)(nil)
	_ interfaces.PreferenceStore = (*MemoryAdapter)(nil)
	_ interfaces.ModerationStore = (*MemoryAdapter)(nil)
)

// NewMemoryAdapter creates a memory storage adapter seeded with terms.
func NewMemoryAdapter(terms ...string) *MemoryAdapter {
	return &MemoryAdapter{
		terms:       append([]string(nil), terms...),
		preferences: make(map[string]models.FilterLevel),
		statuses:    make(map[models.ContentRef]models.ModerationStatus),
	}
}

func (m *MemoryAdapter) GetTerms(_ context.Context) ([]string, error) {
	m.mu.RLock()
	out := append([]string(nil), m.terms...)
	m.mu.RUnlock()
	return out, nil
}

func (m *MemoryAdapter) GetLevel(_ context.Context, userID string) (models.FilterLevel, error) {
	m.mu.RLock()
	level, ok := m.preferences[userID]
	m.mu.RUnlock()
	if !ok {
		return "", interfaces.ErrNotFound
	}
	return level, nil
}

func (m *MemoryAdapter) SetLevel(_ context.Context, userID string, level models.FilterLevel) error {
	m.mu.Lock()
	m.preferences[userID] = level
	m.mu.Unlock()
	return nil
}

func (m *MemoryAdapter) SetStatus(_ context.Context, ref models.ContentRef, status models.ModerationStatus) error {
	status.Reasons = append([]string{}, status.Reasons...)
	m.mu.Lock()
	m.statuses[ref] = status
	m.mu.Unlock()
	return nil
}

func (m *MemoryAdapter) ListByStatus(_ context.Context, flagged bool) ([]models.ModeratedContent, error) {
	m.mu.RLock()
	out := make([]models.ModeratedContent, 0, len(m.statuses))
	for ref, status := range m.statuses {
		if status.IsFlagged == flagged {
			status.Reasons = append([]string{}, status.Reasons...)
			out = append(out, models.ModeratedContent{ContentRef: ref, Status: status})
		}
	}
	m.mu.RUnlock()

	sortNewestFirst(out)
	return out, nil
}

// sortNewestFirst orders by flag time, newest first, then by reference.
func sortNewestFirst(items []models.ModeratedContent) {
	sort.SliceStable(items, func(i, j int) bool {
		a, b := items[i], items[j]
		if models.NewerFirst(a, b) {
			return true
		}
		if models.NewerFirst(b, a) {
			return false
		}
		if a.PostID != b.PostID {
			return a.PostID < b.PostID
		}
		return a.CommentID < b.CommentID
	})
}
