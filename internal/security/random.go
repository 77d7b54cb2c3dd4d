package security

import (
	"crypto/rand"
	"encoding/hex"
	"strings"
)

// serialSuffixBytes is the number of random bytes behind a serial suffix
// (8 hex characters).
const serialSuffixBytes = 4

// RandomBytes returns n cryptographically secure random bytes.
func RandomBytes(n int) ([]byte, error) {
	b := make([]byte, n)
	if _, err := rand.Read(b); err != nil {
		return nil, err
	}
	return b, nil
}

// RandomHex returns the hex encoding of n random bytes (2n characters).
// Used for challenge values and nonces; never derived from caller input.
func RandomHex(n int) (string, error) {
	b, err := RandomBytes(n)
	if err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}

// NewSerial returns a serial of the form <PREFIX><8 uppercase hex chars>.
// The prefix is fixed per token or container type.
func NewSerial(prefix string) (string, error) {
	suffix, err := RandomHex(serialSuffixBytes)
	if err != nil {
		return "", err
	}
	return prefix + strings.ToUpper(suffix), nil
}

// RandomDigits returns a numeric one-time code of length n (e.g. an SMS OTP).
func RandomDigits(n int) (string, error) {
	b, err := RandomBytes(n)
	if err != nil {
		return "", err
	}
	s := make([]byte, n)
	for i := 0; i < n; i++ {
		s[i] = '0' + (b[i] % 10)
	}
	return string(s), nil
}
