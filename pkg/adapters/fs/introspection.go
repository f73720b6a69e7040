package fs

import (
	"github.com/aretw0/introspection"
)

// StoreState exposes internal state for observability.
type StoreState struct {
	Path      string   `json:"path"`
	Format    string   `json:"format"`
	ReadOnly  bool     `json:"read_only"`
	Closed    bool     `json:"closed"`
	Listeners int      `json:"listeners"`
	Ignore    []string `json:"ignore"`
	Debounce  string   `json:"debounce"`
}

// State implements introspection.Introspectable.
func (s *Store) State() any {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return StoreState{
		Path:      s.Path,
		Format:    s.serializer.Ext(),
		ReadOnly:  s.config.ReadOnly,
		Closed:    s.closed,
		Listeners: s.listeners,
		Ignore:    append([]string(nil), s.ignore...),
		Debounce:  s.config.Debounce.String(),
	}
}

// ComponentType implements introspection.Component.
func (s *Store) ComponentType() string {
	return "store"
}

var _ introspection.Introspectable = (*Store)(nil)
var _ introspection.Component = (*Store)(nil)
