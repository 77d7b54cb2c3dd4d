// Package config loads and validates app config from env and an optional .env file using Viper.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// DefaultChallengeValidity is the fallback challenge lifetime when neither a
// type-specific nor the global DefaultChallengeValidityTime key is set.
const DefaultChallengeValidity = 120 * time.Second

// Config holds application configuration loaded from the environment.
type Config struct {
	// DatabaseURL is the Postgres DSN; empty until DB is wired.
	DatabaseURL string `mapstructure:"DATABASE_URL"`
	// BcryptCost is the bcrypt cost factor (4–31) for token PIN hashing; default 12.
	BcryptCost int `mapstructure:"BCRYPT_COST"`
	// AppID is the application identity (origin) presented in U2F registration and sign requests.
	AppID string `mapstructure:"U2F_APP_ID"`
	// PasskeyRPID is the relying party id for passkey registration and assertions.
	PasskeyRPID string `mapstructure:"PASSKEY_RP_ID"`
	// PasskeyRPName is the human-readable relying party name shown during passkey registration.
	PasskeyRPName string `mapstructure:"PASSKEY_RP_NAME"`
	// SMSGatewayAPIKey is the API key for the HTTP SMS gateway used by the sms token type.
	SMSGatewayAPIKey string `mapstructure:"SMS_GATEWAY_API_KEY"`
	// SMSGatewaySender is the optional sender ID for the SMS gateway.
	SMSGatewaySender string `mapstructure:"SMS_GATEWAY_SENDER"`
	// SMSGatewayBaseURL is the SMS gateway API base URL.
	SMSGatewayBaseURL string `mapstructure:"SMS_GATEWAY_BASE_URL"`
	// Env is the application environment (e.g. "development", "production").
	Env string `mapstructure:"APP_ENV"`

	// v keeps the underlying Viper so dynamic keys (per-type tunables such as
	// TotpChallengeValidityTime) can be resolved after Load.
	v *viper.Viper
}

// Load reads .env (if present), then builds and validates Config from the environment via Viper.
// Missing .env is ignored (e.g. in CI). Env vars override .env. Returns an error if required fields are invalid.
func Load() (*Config, error) {
	v := viper.New()

	v.SetConfigFile(".env")
	v.SetConfigType("env")
	_ = v.ReadInConfig() // ignore ErrConfigFileNotFound

	v.AutomaticEnv()

	v.SetDefault("DATABASE_URL", "")
	v.SetDefault("BCRYPT_COST", 12)
	v.SetDefault("U2F_APP_ID", "http://localhost:5000")
	v.SetDefault("PASSKEY_RP_ID", "localhost")
	v.SetDefault("PASSKEY_RP_NAME", "tokenforge")
	v.SetDefault("SMS_GATEWAY_API_KEY", "")
	v.SetDefault("SMS_GATEWAY_SENDER", "")
	v.SetDefault("SMS_GATEWAY_BASE_URL", "https://www.smslocal.com/dev/bulkV2")
	v.SetDefault("APP_ENV", "")

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}
	cfg.v = v

	if cfg.BcryptCost == 0 {
		cfg.BcryptCost = 12
	}
	if cfg.BcryptCost < 4 || cfg.BcryptCost > 31 {
		return nil, errors.New("config: BCRYPT_COST must be between 4 and 31")
	}

	return &cfg, nil
}

// New returns a Config over a fresh Viper with only built-in defaults set.
// Used by tests and by callers that inject tunables via Set.
func New() *Config {
	return &Config{
		v:             viper.New(),
		BcryptCost:    12,
		AppID:         "http://localhost:5000",
		PasskeyRPID:   "localhost",
		PasskeyRPName: "tokenforge",
	}
}

// Set overrides a dynamic key (e.g. "HotpChallengeValidityTime"). Intended for
// tests and programmatic configuration.
func (c *Config) Set(key string, value any) {
	if c.v == nil {
		c.v = viper.New()
	}
	c.v.Set(key, value)
}

// Int returns the integer value for key, or def when the key is absent.
// Absence of a key is not an error.
func (c *Config) Int(key string, def int) int {
	if c == nil || c.v == nil || !c.v.IsSet(key) {
		return def
	}
	return c.v.GetInt(key)
}

// ChallengeValidity resolves the challenge lifetime for a token type: the
// "<Capitalized type>ChallengeValidityTime" key wins, then the global
// DefaultChallengeValidityTime, then 120 seconds. Values are in seconds.
func (c *Config) ChallengeValidity(tokenType string) time.Duration {
	secs := c.Int("DefaultChallengeValidityTime", int(DefaultChallengeValidity/time.Second))
	if tokenType != "" {
		key := fmt.Sprintf("%sChallengeValidityTime", capitalize(tokenType))
		secs = c.Int(key, secs)
	}
	if secs <= 0 {
		return DefaultChallengeValidity
	}
	return time.Duration(secs) * time.Second
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + strings.ToLower(s[1:])
}
