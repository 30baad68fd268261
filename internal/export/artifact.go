// Package export serializes icon sets into JSON artifacts.
package export

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/JakeFAU/iconsync/internal/icons"
)

// Artifact is the JSON document written for one collection.
type Artifact struct {
	Prefix       string               `json:"prefix"`
	Info         Info                 `json:"info"`
	LastModified int64                `json:"lastModified,omitempty"`
	Icons        map[string]IconData  `json:"icons"`
	Aliases      map[string]AliasData `json:"aliases,omitempty"`
	Width        float64              `json:"width,omitempty"`
	Height       float64              `json:"height,omitempty"`
}

// IconData is one icon. Geometry equal to the artifact default is omitted.
type IconData struct {
	Body   string  `json:"body"`
	Left   float64 `json:"left,omitempty"`
	Top    float64 `json:"top,omitempty"`
	Width  float64 `json:"width,omitempty"`
	Height float64 `json:"height,omitempty"`
}

// AliasData points at another entry.
type AliasData struct {
	Parent string `json:"parent"`
}

// Info describes the collection.
type Info struct {
	Name    string  `json:"name"`
	Total   int     `json:"total"`
	Author  Author  `json:"author"`
	License License `json:"license"`
}

// Author credits the icon author.
type Author struct {
	Name string `json:"name"`
	URL  string `json:"url,omitempty"`
}

// License names the icon license.
type License struct {
	Title string `json:"title"`
	SPDX  string `json:"spdx,omitempty"`
	URL   string `json:"url,omitempty"`
}

// Decode reads an artifact.
func Decode(r io.Reader) (Artifact, error) {
	var a Artifact
	if err := json.NewDecoder(r).Decode(&a); err != nil {
		return Artifact{}, fmt.Errorf("decode artifact: %w", err)
	}
	if a.Prefix == "" {
		return Artifact{}, fmt.Errorf("decode artifact: missing prefix")
	}
	return a, nil
}

// ToSet rebuilds the icon set, applying default geometry.
func (a Artifact) ToSet() (*icons.Set, error) {
	set := icons.NewSet(a.Prefix)
	for name, d := range a.Icons {
		icon := icons.Icon{Body: d.Body, Left: d.Left, Top: d.Top, Width: d.Width, Height: d.Height}
		if icon.Width == 0 {
			icon.Width = orDefault(a.Width)
		}
		if icon.Height == 0 {
			icon.Height = orDefault(a.Height)
		}
		set.SetIcon(name, icon)
	}

	// Aliases may point at other aliases; add them once their parent exists.
	pending := make(map[string]string, len(a.Aliases))
	for name, alias := range a.Aliases {
		pending[name] = alias.Parent
	}
	for len(pending) > 0 {
		progress := false
		for name, parent := range pending {
			if _, ok := set.Get(parent); !ok {
				continue
			}
			if err := set.SetAlias(name, parent); err != nil {
				return nil, err
			}
			delete(pending, name)
			progress = true
		}
		if !progress {
			return nil, fmt.Errorf("artifact %s: %d aliases with missing parents", a.Prefix, len(pending))
		}
	}
	return set, nil
}

func orDefault(v float64) float64 {
	if v == 0 {
		return 16
	}
	return v
}
