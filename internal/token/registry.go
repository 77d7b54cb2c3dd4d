package token

import (
	"sort"

	"tokenforge/engine/internal/errs"
)

// Registry maps type tags to their Class implementations. It is built once at
// startup with every supported type and injected into the services; there is
// no process-global registry.
type Registry struct {
	classes map[string]Class
}

// NewRegistry builds a registry from the given classes. Duplicate type tags
// are an IntegrityError.
func NewRegistry(classes ...Class) (*Registry, error) {
	r := &Registry{classes: make(map[string]Class, len(classes))}
	for _, c := range classes {
		if _, ok := r.classes[c.Type()]; ok {
			return nil, errs.Integrity("duplicate token class " + c.Type())
		}
		r.classes[c.Type()] = c
	}
	return r, nil
}

// Get returns the class for typeTag. An unknown tag is an IntegrityError:
// a record with a tag nobody registered means broken configuration.
func (r *Registry) Get(typeTag string) (Class, error) {
	c, ok := r.classes[typeTag]
	if !ok {
		return nil, errs.Integrity("unknown token type " + typeTag)
	}
	return c, nil
}

// Types returns the registered type tags, sorted.
func (r *Registry) Types() []string {
	out := make([]string, 0, len(r.classes))
	for t := range r.classes {
		out = append(out, t)
	}
	sort.Strings(out)
	return out
}
