package typed

import (
	"github.com/aretw0/introspection"
)

// FactoryState exposes internal state for observability.
type FactoryState struct {
	ClientType  string `json:"client_type"`
	ClientState any    `json:"client_state,omitempty"`
}

// State implements introspection.Introspectable.
func (f *Factory) State() any {
	clientType := "unknown"
	// Adapters that describe themselves report their own type and state.
	if comp, ok := f.client.(introspection.Component); ok {
		clientType = comp.ComponentType()
	}
	var clientState any
	if in, ok := f.client.(introspection.Introspectable); ok {
		clientState = in.State()
	}
	return FactoryState{
		ClientType:  clientType,
		ClientState: clientState,
	}
}

// ComponentType implements introspection.Component.
func (f *Factory) ComponentType() string {
	return "factory"
}

var _ introspection.Introspectable = (*Factory)(nil)
var _ introspection.Component = (*Factory)(nil)
