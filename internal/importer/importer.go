// Package importer defines icon-set sources for the serving process and
// their persistable state.
package importer

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/JakeFAU/iconsync/internal/icons"
)

// ErrNotPersistable is returned by Snapshot for importers that cannot be
// restored from the init cache.
var ErrNotPersistable = errors.New("importer is not persistable")

// ErrUnknownKind is returned when no restorer is registered for a state.
var ErrUnknownKind = errors.New("unknown importer kind")

// State is the persisted form of one importer.
type State struct {
	Kind string          `json:"kind"`
	Data json.RawMessage `json:"data"`
}

// Importer loads icon sets from a source. Every importer either returns its
// State from Snapshot or declines with ErrNotPersistable.
type Importer interface {
	Kind() string
	Init(ctx context.Context) error
	Sets() []*icons.Set
	Snapshot() (State, error)
}

// Ephemeral is embedded by importers that decline persistence.
type Ephemeral struct{}

// Snapshot always returns ErrNotPersistable.
func (Ephemeral) Snapshot() (State, error) {
	return State{}, ErrNotPersistable
}

// Restorer rebuilds a live importer from its state without discovery.
type Restorer func(State) (Importer, error)

// Registry maps importer kinds to restorers.
type Registry struct {
	mu        sync.RWMutex
	restorers map[string]Restorer
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{restorers: make(map[string]Restorer)}
}

// Register adds or replaces the restorer for kind.
func (r *Registry) Register(kind string, fn Restorer) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.restorers[kind] = fn
}

// Restore rebuilds an importer from state.
func (r *Registry) Restore(state State) (Importer, error) {
	r.mu.RLock()
	fn, ok := r.restorers[state.Kind]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownKind, state.Kind)
	}
	imp, err := fn(state)
	if err != nil {
		return nil, fmt.Errorf("restore %s importer: %w", state.Kind, err)
	}
	return imp, nil
}
