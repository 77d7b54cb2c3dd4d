package container

// Yubikey is the container class for a Yubikey hardware device.
type Yubikey struct{}

// NewYubikey returns the yubikey container class.
func NewYubikey() *Yubikey { return &Yubikey{} }

func (y *Yubikey) Type() string   { return "yubikey" }
func (y *Yubikey) Prefix() string { return "YUBI" }

func (y *Yubikey) Description() string {
	return "Yubikey hardware device that can hold HOTP, certificate and FIDO2 tokens"
}

func (y *Yubikey) SupportedTokenTypes() []string {
	return []string{"hotp", "certificate", "passkey"}
}

func (y *Yubikey) MaxTokens() int { return 0 }

func (y *Yubikey) PolicyInfo() map[string]PolicyItem {
	return basePolicyInfo(y, false)
}

func (y *Yubikey) TemplateOptions() map[string]PolicyItem { return nil }
