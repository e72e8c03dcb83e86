package repository

import (
	"context"
	"sync"

	"github.com/mumu-bot/teamdraft/go/internal/draft"
	"github.com/mumu-bot/teamdraft/go/internal/models"
)

// Memory is the in-process draft store. Drafts are transient by design: a
// process restart forfeits running drafts, and completed matches live in the
// match recorder instead.
type Memory struct {
	mu     sync.RWMutex
	drafts map[int64]*models.Draft
}

func NewMemory() *Memory {
	return &Memory{drafts: make(map[int64]*models.Draft)}
}

// Create inserts the draft if the channel has none.
func (m *Memory) Create(ctx context.Context, d *models.Draft) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.drafts[d.ChannelID]; ok {
		return draft.ErrDraftExists
	}
	m.drafts[d.ChannelID] = d
	return nil
}

// Save overwrites the channel's draft.
func (m *Memory) Save(ctx context.Context, d *models.Draft) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.drafts[d.ChannelID]; !ok {
		return draft.ErrDraftNotFound
	}
	m.drafts[d.ChannelID] = d
	return nil
}

func (m *Memory) Get(ctx context.Context, channelID int64) (*models.Draft, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	d, ok := m.drafts[channelID]
	if !ok {
		return nil, draft.ErrDraftNotFound
	}
	return d, nil
}

// Delete is idempotent: removing a missing draft succeeds.
func (m *Memory) Delete(ctx context.Context, channelID int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.drafts, channelID)
	return nil
}

// ListActive returns every draft that has not completed.
func (m *Memory) ListActive(ctx context.Context) ([]*models.Draft, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []*models.Draft
	for _, d := range m.drafts {
		if !d.IsCompleted() {
			out = append(out, d)
		}
	}
	return out, nil
}
