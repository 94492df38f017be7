package store

import (
	"errors"
	"sync"
)

var (
	ErrStoreNotFound     = errors.New("store not found")
	ErrWorkspaceNotFound = errors.New("workspace not found")
)

// Provider hands out the store holding a workspace.
type Provider interface {
	Provide(workspaceID string) (Store, error)
}

// WorkspaceStoreProvider routes workspaces to dedicated stores.
type WorkspaceStoreProvider struct {
	mu     sync.RWMutex
	stores map[string]Store
}

func NewWorkspaceStoreProvider() *WorkspaceStoreProvider {
	return &WorkspaceStoreProvider{
		stores: make(map[string]Store),
	}
}

func (p *WorkspaceStoreProvider) Register(workspaceID string, store Store) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.stores[workspaceID] = store
}

func (p *WorkspaceStoreProvider) Provide(workspaceID string) (Store, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if store, ok := p.stores[workspaceID]; ok {
		return store, nil
	}

	return nil, ErrStoreNotFound
}

// DefaultProvider serves every workspace from one store.
type DefaultProvider struct {
	store Store
}

func NewDefaultProvider(store Store) *DefaultProvider {
	return &DefaultProvider{store: store}
}

func (p *DefaultProvider) Provide(string) (Store, error) {
	return p.store, nil
}
