package importer

import (
	"encoding/json"
	"fmt"
	"sync"

	"github.com/JakeFAU/iconsync/internal/export"
	"github.com/JakeFAU/iconsync/internal/icons"
)

// artifactState is the persisted payload of artifact-backed importers.
type artifactState struct {
	Source    string            `json:"source"`
	Artifacts []export.Artifact `json:"artifacts"`
}

// artifactSets holds the artifacts an importer loaded and the sets built
// from them.
type artifactSets struct {
	mu        sync.RWMutex
	artifacts []export.Artifact
	sets      []*icons.Set
}

func (a *artifactSets) load(artifacts []export.Artifact) error {
	sets := make([]*icons.Set, 0, len(artifacts))
	for _, art := range artifacts {
		set, err := art.ToSet()
		if err != nil {
			return err
		}
		sets = append(sets, set)
	}
	a.mu.Lock()
	a.artifacts, a.sets = artifacts, sets
	a.mu.Unlock()
	return nil
}

// Sets returns the loaded icon sets.
func (a *artifactSets) Sets() []*icons.Set {
	a.mu.RLock()
	defer a.mu.RUnlock()
	out := make([]*icons.Set, len(a.sets))
	copy(out, a.sets)
	return out
}

func (a *artifactSets) snapshot(kind, source string) (State, error) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	data, err := json.Marshal(artifactState{Source: source, Artifacts: a.artifacts})
	if err != nil {
		return State{}, fmt.Errorf("encode %s state: %w", kind, err)
	}
	return State{Kind: kind, Data: data}, nil
}

func decodeArtifactState(state State) (artifactState, error) {
	var s artifactState
	if err := json.Unmarshal(state.Data, &s); err != nil {
		return artifactState{}, fmt.Errorf("decode %s state: %w", state.Kind, err)
	}
	return s, nil
}
