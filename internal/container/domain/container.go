package domain

import "time"

// Container represents a named group of tokens governed by a type-specific
// policy (stored in the containers table, membership in container_tokens).
// Destroying a container does not destroy its member tokens.
type Container struct {
	Serial      string
	Type        string
	Description string
	OwnerID     string
	Realm       string
	// TokenSerials is the membership list. Admissible types and count are
	// enforced by the container class on every mutation.
	TokenSerials []string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Holds reports whether the container currently holds the token serial.
func (c *Container) Holds(serial string) bool {
	for _, s := range c.TokenSerials {
		if s == serial {
			return true
		}
	}
	return false
}
