package field

import (
	"fmt"
	"sort"
)

// Registry maps type names to field types. Each instance is independent.
type Registry struct {
	types   map[string]Type
	unknown Type
}

// NewRegistry creates a registry holding the given types.
func NewRegistry(types ...Type) *Registry {
	r := &Registry{
		types:   make(map[string]Type, len(types)),
		unknown: Unknown{},
	}
	for _, t := range types {
		r.Register(t)
	}
	return r
}

// DefaultRegistry creates a registry with every built-in type.
func DefaultRegistry() *Registry {
	return NewRegistry(
		Text{},
		Textarea{},
		Number{},
		URL{},
		Date{},
		Menu{},
		RadioButton{},
		Checkbox{},
		MultiMenu{},
		LatLong{},
		File{},
		Picture{},
	)
}

// Register adds or replaces a type.
func (r *Registry) Register(t Type) {
	r.types[t.Name()] = t
}

// Lookup returns the named type, or ErrUnknownType.
func (r *Registry) Lookup(name string) (Type, error) {
	t, ok := r.types[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownType, name)
	}
	return t, nil
}

// Resolve returns the named type, falling back to the passive unknown type.
func (r *Registry) Resolve(name string) Type {
	if t, ok := r.types[name]; ok {
		return t
	}
	return r.unknown
}

// Bind resolves def into a Field.
func (r *Registry) Bind(def Definition) Field {
	return Field{Definition: def, Kind: r.Resolve(def.Type)}
}

// Capabilities reports the capabilities of the named type; all false when unknown.
func (r *Registry) Capabilities(name string) Capabilities {
	return r.Resolve(name).Capabilities()
}

// Names lists registered type names in sorted order.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.types))
	for name := range r.types {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
