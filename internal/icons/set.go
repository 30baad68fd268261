// Package icons holds the in-memory icon collection built for one prefix.
package icons

import (
	"fmt"
	"sort"
	"sync"

	"github.com/JakeFAU/iconsync/internal/svg"
)

// EntryKind distinguishes icons from aliases.
type EntryKind int

// Entry kinds reported by ForEach.
const (
	KindIcon EntryKind = iota
	KindAlias
)

func (k EntryKind) String() string {
	if k == KindAlias {
		return "alias"
	}
	return "icon"
}

// Icon is the markup and geometry of one icon.
type Icon struct {
	Body   string
	Left   float64
	Top    float64
	Width  float64
	Height float64
}

// ViewBox returns the icon geometry as an SVG view box.
func (i Icon) ViewBox() svg.ViewBox {
	return svg.ViewBox{Left: i.Left, Top: i.Top, Width: i.Width, Height: i.Height}
}

// Entry is one named member of a Set.
type Entry struct {
	Kind EntryKind
	// Icon is set for KindIcon.
	Icon Icon
	// Parent is the target name for KindAlias.
	Parent string
}

// Set is a prefix-scoped collection of icons and aliases. Methods are safe
// for concurrent use.
type Set struct {
	Prefix string

	mu      sync.RWMutex
	entries map[string]Entry
}

// NewSet creates an empty set.
func NewSet(prefix string) *Set {
	return &Set{Prefix: prefix, entries: make(map[string]Entry)}
}

// FullName returns prefix:name.
func (s *Set) FullName(name string) string {
	return s.Prefix + ":" + name
}

// SetIcon adds or replaces an icon.
func (s *Set) SetIcon(name string, icon Icon) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries[name] = Entry{Kind: KindIcon, Icon: icon}
}

// SetAlias adds an alias for an existing entry.
func (s *Set) SetAlias(name, parent string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.entries[parent]; !ok {
		return fmt.Errorf("alias %s: parent %s not found", name, parent)
	}
	s.entries[name] = Entry{Kind: KindAlias, Parent: parent}
	return nil
}

// Get returns the raw entry.
func (s *Set) Get(name string) (Entry, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.entries[name]
	return e, ok
}

// Resolve follows aliases to the icon they point at.
func (s *Set) Resolve(name string) (Icon, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for range len(s.entries) + 1 {
		e, ok := s.entries[name]
		if !ok {
			return Icon{}, false
		}
		if e.Kind == KindIcon {
			return e.Icon, true
		}
		name = e.Parent
	}
	return Icon{}, false
}

// Names returns every entry name in lexical order.
func (s *Set) Names() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	names := make([]string, 0, len(s.entries))
	for n := range s.entries {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// ForEach visits entries in lexical order. fn may modify the set; entries
// removed before they are reached are skipped.
func (s *Set) ForEach(fn func(name string, kind EntryKind)) {
	for _, name := range s.Names() {
		e, ok := s.Get(name)
		if !ok {
			continue
		}
		fn(name, e.Kind)
	}
}

// Count returns the number of icons, excluding aliases.
func (s *Set) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	n := 0
	for _, e := range s.entries {
		if e.Kind == KindIcon {
			n++
		}
	}
	return n
}

// Len returns the number of entries including aliases.
func (s *Set) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}

// Remove deletes name and every alias that resolves through it. It returns
// the number of entries removed.
func (s *Set) Remove(name string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.remove(name)
}

func (s *Set) remove(name string) int {
	if _, ok := s.entries[name]; !ok {
		return 0
	}
	delete(s.entries, name)
	removed := 1
	for child, e := range s.entries {
		if e.Kind == KindAlias && e.Parent == name {
			removed += s.remove(child)
		}
	}
	return removed
}

// ToSVG renders an icon to an editable document. It returns nil for aliases,
// unknown names and icons whose markup does not parse.
func (s *Set) ToSVG(name string) *svg.Document {
	e, ok := s.Get(name)
	if !ok || e.Kind != KindIcon || e.Icon.Body == "" {
		return nil
	}
	doc, err := svg.New(e.Icon.Body, e.Icon.ViewBox())
	if err != nil {
		return nil
	}
	return doc
}

// FromSVG stores the document's body and view box as icon name.
func (s *Set) FromSVG(name string, doc *svg.Document) error {
	if doc == nil {
		return fmt.Errorf("icon %s: nil document", name)
	}
	body := doc.Body()
	if body == "" {
		return fmt.Errorf("icon %s: empty body", name)
	}
	box := doc.ViewBox()
	s.SetIcon(name, Icon{Body: body, Left: box.Left, Top: box.Top, Width: box.Width, Height: box.Height})
	return nil
}
