package container

// Smartphone is the container class for an authenticator app on a phone.
type Smartphone struct{}

// NewSmartphone returns the smartphone container class.
func NewSmartphone() *Smartphone { return &Smartphone{} }

func (s *Smartphone) Type() string   { return "smartphone" }
func (s *Smartphone) Prefix() string { return "SMPH" }

func (s *Smartphone) Description() string {
	return "A smartphone that uses an authenticator app."
}

func (s *Smartphone) SupportedTokenTypes() []string {
	return []string{"hotp", "totp", "push", "daypassword", "sms"}
}

func (s *Smartphone) MaxTokens() int { return 0 }

func (s *Smartphone) PolicyInfo() map[string]PolicyItem {
	return basePolicyInfo(s, true)
}

// TemplateOptions declares force_biometric: whether the app must unlock the
// container with biometrics.
func (s *Smartphone) TemplateOptions() map[string]PolicyItem {
	return map[string]PolicyItem{
		"force_biometric": {
			Type:  "bool",
			Value: []string{"false", "true"},
			Desc:  "Require the authenticator app to unlock this container with biometrics",
		},
	}
}
