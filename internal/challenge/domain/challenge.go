package domain

import "time"

// Challenge represents one outstanding challenge-response round (stored in the
// challenges table). A challenge belongs to exactly one token serial; a token
// may accumulate many challenges over time.
type Challenge struct {
	// TransactionID correlates challenge creation with the later response.
	TransactionID string
	// Serial is the serial of the token the challenge was issued for.
	Serial string
	// Value is the fresh random challenge value, hex-encoded. Never reused,
	// never derived from caller input.
	Value string
	// Data is optional per-type payload (e.g. the hash of an SMS one-time
	// code). Opaque to the engine.
	Data string
	// Session is opaque caller context, returned unchanged on retrieval.
	Session string
	// Consumed is set exactly once, on the first successful verification.
	Consumed  bool
	ExpiresAt time.Time
	CreatedAt time.Time
}

// Expired reports whether the challenge deadline has passed at the given time.
func (c *Challenge) Expired(now time.Time) bool {
	return !now.Before(c.ExpiresAt)
}

// Outstanding reports whether the challenge can still be answered: not yet
// consumed and not expired.
func (c *Challenge) Outstanding(now time.Time) bool {
	return !c.Consumed && !c.Expired(now)
}
