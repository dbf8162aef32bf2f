package locale

import (
	"fmt"
	"os"
)

// Store is the immutable, ordered set of locale tables known to the process.
type Store struct {
	tables []*Data
	byID   map[string]*Data
}

// NewStore builds a store from tables. Ids must be unique and non-empty.
func NewStore(tables ...*Data) (*Store, error) {
	s := &Store{
		tables: make([]*Data, 0, len(tables)),
		byID:   make(map[string]*Data, len(tables)),
	}
	for _, t := range tables {
		if t == nil || t.Locale == "" {
			return nil, ErrMissingID
		}
		if _, ok := s.byID[t.Locale]; ok {
			return nil, fmt.Errorf("%w: %s", ErrDuplicateID, t.Locale)
		}
		s.tables = append(s.tables, t)
		s.byID[t.Locale] = t
	}
	return s, nil
}

// DefaultStore returns a store holding the builtin tables.
func DefaultStore() (*Store, error) {
	tables, err := Builtin()
	if err != nil {
		return nil, fmt.Errorf("loading builtin locales: %w", err)
	}
	return NewStore(tables...)
}

// MustDefaultStore is DefaultStore for callers that cannot recover from broken
// embedded data.
func MustDefaultStore() *Store {
	s, err := DefaultStore()
	if err != nil {
		panic(err)
	}
	return s
}

// StoreWithDir returns the builtin tables plus every *.yaml table in dir.
// A table in dir replaces the builtin table with the same id.
func StoreWithDir(dir string) (*Store, error) {
	builtin, err := Builtin()
	if err != nil {
		return nil, fmt.Errorf("loading builtin locales: %w", err)
	}
	if dir == "" {
		return NewStore(builtin...)
	}

	extra, err := LoadFS(os.DirFS(dir), ".")
	if err != nil {
		return nil, fmt.Errorf("loading locales from %s: %w", dir, err)
	}

	overrides := make(map[string]*Data, len(extra))
	for _, t := range extra {
		overrides[t.Locale] = t
	}
	merged := make([]*Data, 0, len(builtin)+len(extra))
	for _, t := range builtin {
		if o, ok := overrides[t.Locale]; ok {
			merged = append(merged, o)
			delete(overrides, t.Locale)
			continue
		}
		merged = append(merged, t)
	}
	for _, t := range extra {
		if _, ok := overrides[t.Locale]; ok {
			merged = append(merged, t)
		}
	}
	return NewStore(merged...)
}

// Lookup returns the table for id.
func (s *Store) Lookup(id string) (*Data, bool) {
	d, ok := s.byID[id]
	return d, ok
}

// Select returns the tables whose ids are in ids, in store order.
// Unknown ids are ignored.
func (s *Store) Select(ids []string) []*Data {
	want := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		want[id] = struct{}{}
	}
	selected := make([]*Data, 0, len(ids))
	for _, t := range s.tables {
		if _, ok := want[t.Locale]; ok {
			selected = append(selected, t)
		}
	}
	return selected
}

// IDs returns every locale id in store order.
func (s *Store) IDs() []string {
	ids := make([]string, len(s.tables))
	for i, t := range s.tables {
		ids[i] = t.Locale
	}
	return ids
}

// Available lists the locales for display.
func (s *Store) Available() []Info {
	infos := make([]Info, len(s.tables))
	for i, t := range s.tables {
		infos[i] = Info{Locale: t.Locale, Label: t.Label}
	}
	return infos
}
