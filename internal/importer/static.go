package importer

import (
	"context"
	"sync"

	"github.com/JakeFAU/iconsync/internal/icons"
)

// KindStatic identifies StaticImporter.
const KindStatic = "static"

// StaticImporter serves sets built in code or read from artifact files on
// every Init. It declines persistence, so it is rebuilt on warm starts too.
type StaticImporter struct {
	Ephemeral
	base  []*icons.Set
	files []string

	mu   sync.RWMutex
	sets []*icons.Set
}

// NewStaticImporter wraps sets.
func NewStaticImporter(sets ...*icons.Set) *StaticImporter {
	return &StaticImporter{base: sets, sets: sets}
}

// NewStaticFileImporter serves the artifacts stored at files.
func NewStaticFileImporter(files ...string) *StaticImporter {
	return &StaticImporter{files: files}
}

// Kind returns KindStatic.
func (s *StaticImporter) Kind() string { return KindStatic }

// Init reads the artifact files. Any unreadable file fails the whole import.
func (s *StaticImporter) Init(ctx context.Context) error {
	sets := append([]*icons.Set(nil), s.base...)
	for _, path := range s.files {
		if err := ctx.Err(); err != nil {
			return err
		}
		a, err := readArtifact(path)
		if err != nil {
			return err
		}
		set, err := a.ToSet()
		if err != nil {
			return err
		}
		sets = append(sets, set)
	}
	s.mu.Lock()
	s.sets = sets
	s.mu.Unlock()
	return nil
}

// Sets returns the loaded sets.
func (s *StaticImporter) Sets() []*icons.Set {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]*icons.Set(nil), s.sets...)
}

var _ Importer = (*StaticImporter)(nil)
