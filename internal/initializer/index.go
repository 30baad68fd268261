package initializer

import (
	"sort"
	"sync"

	"go.uber.org/zap"

	"github.com/JakeFAU/iconsync/internal/icons"
	"github.com/JakeFAU/iconsync/internal/importer"
)

// Index maps prefixes to the icon sets of the active importers.
type Index struct {
	mu        sync.RWMutex
	importers []importer.Importer
	sets      map[string]*icons.Set
	ready     bool
}

// NewIndex returns an empty, not-ready index.
func NewIndex() *Index {
	return &Index{sets: make(map[string]*icons.Set)}
}

// Rebuild replaces the active importers and their sets. When two importers
// provide the same prefix the later one wins.
func (x *Index) Rebuild(importers []importer.Importer, logger *zap.Logger) {
	sets := make(map[string]*icons.Set)
	for _, imp := range importers {
		for _, set := range imp.Sets() {
			if _, dup := sets[set.Prefix]; dup && logger != nil {
				logger.Warn("icon set prefix provided twice", zap.String("prefix", set.Prefix), zap.String("importer", imp.Kind()))
			}
			sets[set.Prefix] = set
		}
	}
	x.mu.Lock()
	x.importers = append([]importer.Importer(nil), importers...)
	x.sets = sets
	x.ready = true
	x.mu.Unlock()
}

// Get returns the set for prefix.
func (x *Index) Get(prefix string) (*icons.Set, bool) {
	x.mu.RLock()
	defer x.mu.RUnlock()
	s, ok := x.sets[prefix]
	return s, ok
}

// Prefixes returns the indexed prefixes in lexical order.
func (x *Index) Prefixes() []string {
	x.mu.RLock()
	defer x.mu.RUnlock()
	out := make([]string, 0, len(x.sets))
	for p := range x.sets {
		out = append(out, p)
	}
	sort.Strings(out)
	return out
}

// Importers returns the active importers.
func (x *Index) Importers() []importer.Importer {
	x.mu.RLock()
	defer x.mu.RUnlock()
	return append([]importer.Importer(nil), x.importers...)
}

// Ready reports whether Rebuild has run.
func (x *Index) Ready() bool {
	x.mu.RLock()
	defer x.mu.RUnlock()
	return x.ready
}
