// Package spec rebuilds components from versioned parameter records.
//
// Every component kind (detector, preprocessor, metric, threshold, data
// source) owns a Registry. Implementations register a factory under a type
// name in their init functions; the engine and worker processes rebuild
// instances from a core.Spec without ever loading code.
package spec

import (
	"fmt"
	"sort"
	"sync"

	"github.com/go-viper/mapstructure/v2"

	"github.com/leapstack-labs/gridbench/pkg/core"
)

// Factory builds a component from its parameters.
type Factory[T any] func(params map[string]any) (T, error)

type entry[T any] struct {
	version int
	factory Factory[T]
}

// Registry maps type names to factories for one component kind.
type Registry[T any] struct {
	kind    string
	mu      sync.RWMutex
	entries map[string]entry[T]
}

// NewRegistry creates an empty registry. kind names the component kind in errors.
func NewRegistry[T any](kind string) *Registry[T] {
	return &Registry[T]{kind: kind, entries: make(map[string]entry[T])}
}

// Register adds a factory. version is the current parameter-record version;
// records with a newer version are rejected.
func (r *Registry[T]) Register(name string, version int, factory Factory[T]) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries[name] = entry[T]{version: version, factory: factory}
}

// Build creates a component from a spec.
func (r *Registry[T]) Build(s core.Spec) (T, error) {
	var zero T
	if s.Type == "" {
		return zero, core.Configf("%s type not specified", r.kind)
	}

	r.mu.RLock()
	e, ok := r.entries[s.Type]
	r.mu.RUnlock()
	if !ok {
		return zero, &core.ConfigurationError{
			Msg: fmt.Sprintf("%s %q", r.kind, s.DisplayName()),
			Err: &UnknownTypeError{Kind: r.kind, Type: s.Type, Available: r.List()},
		}
	}
	if s.Version > e.version {
		return zero, core.Configf("%s %q: record version %d is newer than supported version %d", r.kind, s.Type, s.Version, e.version)
	}

	v, err := e.factory(s.Params)
	if err != nil {
		return zero, &core.ConfigurationError{Msg: fmt.Sprintf("%s %q", r.kind, s.DisplayName()), Err: err}
	}
	return v, nil
}

// Version returns the registered record version for a type.
func (r *Registry[T]) Version(name string) (int, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.entries[name]
	return e.version, ok
}

// IsRegistered checks if a type is registered.
func (r *Registry[T]) IsRegistered(name string) bool {
	_, ok := r.Version(name)
	return ok
}

// List returns all registered type names (sorted).
func (r *Registry[T]) List() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.entries))
	for name := range r.entries {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// UnknownTypeError is returned when a spec names an unregistered type.
type UnknownTypeError struct {
	Kind      string
	Type      string
	Available []string
}

func (e *UnknownTypeError) Error() string {
	return fmt.Sprintf("unknown %s type %q\nAvailable: %v", e.Kind, e.Type, e.Available)
}

// Decode copies params into the struct pointed to by out. Keys are matched
// against `param` struct tags; unknown keys are an error.
func Decode(params map[string]any, out any) error {
	if len(params) == 0 {
		return nil
	}
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		TagName:          "param",
		ErrorUnused:      true,
		WeaklyTypedInput: true,
		Result:           out,
	})
	if err != nil {
		return err
	}
	return dec.Decode(params)
}

// Encode converts a parameter struct back into a params map using the same
// `param` tags as Decode.
func Encode(in any) (map[string]any, error) {
	out := make(map[string]any)
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		TagName: "param",
		Result:  &out,
	})
	if err != nil {
		return nil, err
	}
	if err := dec.Decode(in); err != nil {
		return nil, err
	}
	return out, nil
}
