// Package container defines the container class contract, its registry and
// the built-in container types (generic, smartphone, yubikey).
package container

import (
	"sort"

	"tokenforge/engine/internal/errs"
)

// PolicyItem describes one policy knob of a container class: its value type,
// its default or allowed values, and a human description.
type PolicyItem struct {
	Type  string `json:"type"`
	Value any    `json:"value"`
	Desc  string `json:"desc"`
}

// Class is the contract every container type implements.
type Class interface {
	// Type returns the stable container type identifier (e.g. "yubikey").
	Type() string
	// Prefix returns the serial prefix for new containers of this type.
	Prefix() string
	// Description returns a human description of the container class.
	Description() string
	// SupportedTokenTypes returns the whitelist of token type tags the
	// container may hold.
	SupportedTokenTypes() []string
	// MaxTokens returns the token-count bound; 0 means unbounded.
	MaxTokens() int
	// PolicyInfo declares the policy knobs of the class: at minimum
	// token_count, token_types and user_modifiable.
	PolicyInfo() map[string]PolicyItem
	// TemplateOptions declares the options a template for this class may set,
	// with their allowed values. May be empty.
	TemplateOptions() map[string]PolicyItem
}

// Supports reports whether the class admits the given token type.
func Supports(c Class, tokenType string) bool {
	for _, t := range c.SupportedTokenTypes() {
		if t == tokenType {
			return true
		}
	}
	return false
}

// Registry maps container type tags to their Class implementations, built at
// startup and injected like the token registry.
type Registry struct {
	classes map[string]Class
}

// NewRegistry builds a registry from the given classes. Duplicate type tags
// are an IntegrityError.
func NewRegistry(classes ...Class) (*Registry, error) {
	r := &Registry{classes: make(map[string]Class, len(classes))}
	for _, c := range classes {
		if _, ok := r.classes[c.Type()]; ok {
			return nil, errs.Integrity("duplicate container class " + c.Type())
		}
		r.classes[c.Type()] = c
	}
	return r, nil
}

// Get returns the class for typeTag; unknown tags are an IntegrityError.
func (r *Registry) Get(typeTag string) (Class, error) {
	c, ok := r.classes[typeTag]
	if !ok {
		return nil, errs.Integrity("unknown container type " + typeTag)
	}
	return c, nil
}

// Types returns the registered container type tags, sorted.
func (r *Registry) Types() []string {
	out := make([]string, 0, len(r.classes))
	for t := range r.classes {
		out = append(out, t)
	}
	sort.Strings(out)
	return out
}

// basePolicyInfo builds the common policy schema shared by all classes.
func basePolicyInfo(c Class, userModifiable bool) map[string]PolicyItem {
	count := any("any")
	if c.MaxTokens() > 0 {
		count = c.MaxTokens()
	}
	return map[string]PolicyItem{
		"token_count": {
			Type:  "int",
			Value: count,
			Desc:  "The maximum number of tokens in this container",
		},
		"token_types": {
			Type:  "list",
			Value: c.SupportedTokenTypes(),
			Desc:  "The token types that can be stored in this container",
		},
		"user_modifiable": {
			Type:  "bool",
			Value: []string{boolValue(userModifiable)},
			Desc:  "Whether the user can modify the tokens in this container",
		},
	}
}

func boolValue(b bool) string {
	if b {
		return "true"
	}
	return "false"
}
