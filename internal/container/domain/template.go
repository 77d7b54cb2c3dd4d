package domain

import "time"

// TokenTemplate describes one token a container template provisions.
type TokenTemplate struct {
	Type        string `json:"type"`
	GenKey      bool   `json:"genkey,omitempty"`
	Description string `json:"description,omitempty"`
}

// Template is a reusable provisioning recipe for containers of one type
// (stored in the container_templates table): the tokens to enroll and the
// class options to apply. At most one template per container type carries the
// default flag.
type Template struct {
	Name          string
	ContainerType string
	// Tokens are enrolled and added to the container when it is created from
	// this template.
	Tokens []TokenTemplate
	// Options holds class option values, validated against the class's
	// declared option schema.
	Options   map[string]string
	Default   bool
	CreatedAt time.Time
	UpdatedAt time.Time
}
