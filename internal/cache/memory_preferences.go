package cache

import (
	"context"
	"sync"

	"lawgpt/internal/model"
)

// MemoryPreferences is the process-local preference store used when Redis
// is disabled. Preferences are lost on restart.
type MemoryPreferences struct {
	mu     sync.RWMutex
	scopes map[string]model.Scope
}

func NewMemoryPreferences() *MemoryPreferences {
	return &MemoryPreferences{scopes: make(map[string]model.Scope)}
}

func (m *MemoryPreferences) GetScope(ctx context.Context, channelID string) (model.Scope, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	scope, ok := m.scopes[channelID]
	return scope, ok, nil
}

func (m *MemoryPreferences) SetScope(ctx context.Context, channelID string, scope model.Scope) error {
	m.mu.Lock()
	m.scopes[channelID] = scope
	m.mu.Unlock()
	return nil
}
