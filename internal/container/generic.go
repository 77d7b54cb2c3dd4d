package container

// Generic is a container class that can hold tokens of any registered type
// and has no special operations.
type Generic struct {
	// tokenTypes is the full set of registered token types, injected at
	// startup so the whitelist tracks the token registry.
	tokenTypes []string
}

// NewGeneric returns the generic container class. tokenTypes should be the
// full list of registered token types.
func NewGeneric(tokenTypes []string) *Generic {
	return &Generic{tokenTypes: tokenTypes}
}

func (g *Generic) Type() string   { return "generic" }
func (g *Generic) Prefix() string { return "CONT" }

func (g *Generic) Description() string {
	return "General purpose container that can hold any token type"
}

func (g *Generic) SupportedTokenTypes() []string { return g.tokenTypes }

func (g *Generic) MaxTokens() int { return 0 }

func (g *Generic) PolicyInfo() map[string]PolicyItem {
	return basePolicyInfo(g, true)
}

func (g *Generic) TemplateOptions() map[string]PolicyItem { return nil }
