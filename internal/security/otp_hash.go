package security

import (
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
)

// HashOTP returns a SHA-256 hash of the OTP string, hex-encoded.
// Used for storing and comparing one-time codes without storing the raw code.
func HashOTP(otp string) string {
	h := sha256.Sum256([]byte(otp))
	return hex.EncodeToString(h[:])
}

// OTPHashEqual performs constant-time comparison of the provided OTP's hash
// with the stored hash. Returns true only if they match.
func OTPHashEqual(providedOTP, storedHash string) bool {
	providedHash := HashOTP(providedOTP)
	return subtle.ConstantTimeCompare([]byte(providedHash), []byte(storedHash)) == 1
}
