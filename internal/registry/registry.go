package registry

import (
	"fmt"
	"log/slog"
	"reflect"

	"github.com/gridci/gridci/internal/config"
)

// Module is the interface that all built-in action packages implement to be
// registered with an application instance.
type Module interface {
	Register(r *Registry)
}

// RegisteredAction holds the compiled Go parts of an action's lifecycle
// function. Fn must have the signature
//
//	func(ctx context.Context, job *J, input *I) (O, error)
//
// where *I matches the value produced by NewInput.
type RegisteredAction struct {
	NewInput  func() any
	InputType reflect.Type
	Fn        any
}

// Registry holds all the registered handlers and definitions for a single
// application instance.
type Registry struct {
	HandlerRegistry    map[string]*RegisteredAction
	DefinitionRegistry map[string]*config.ActionDefinition
}

// New creates and initializes a new Registry instance.
func New() *Registry {
	return &Registry{
		HandlerRegistry:    make(map[string]*RegisteredAction),
		DefinitionRegistry: make(map[string]*config.ActionDefinition),
	}
}

// RegisterAction registers a Go function for an action's lifecycle event.
func (r *Registry) RegisterAction(name string, handler *RegisteredAction) {
	if _, exists := r.HandlerRegistry[name]; exists {
		panic(fmt.Sprintf("action handler with name '%s' already registered", name))
	}
	slog.Debug("Registering action handler.", "name", name)
	r.HandlerRegistry[name] = handler
}

// RegisterDefinition registers an action's manifest.
func (r *Registry) RegisterDefinition(def *config.ActionDefinition) {
	if _, exists := r.DefinitionRegistry[def.Type]; exists {
		panic(fmt.Sprintf("action definition with type '%s' already registered", def.Type))
	}
	slog.Debug("Registering action definition.", "type", def.Type)
	r.DefinitionRegistry[def.Type] = def
}

// Definition returns the manifest for an action type, or nil.
func (r *Registry) Definition(actionType string) *config.ActionDefinition {
	return r.DefinitionRegistry[actionType]
}
