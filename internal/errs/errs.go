// Package errs defines the error taxonomy shared by the token, challenge and
// container packages. Handlers and CLIs map these to exit codes / responses.
package errs

import "errors"

// ErrChallengeFailed is returned for any failed challenge response: wrong
// answer, expired challenge or already consumed challenge. The cases are
// deliberately indistinguishable to the caller.
var ErrChallengeFailed = errors.New("challenge response failed")

// ParameterError reports malformed or missing caller input. The operation it
// failed is never partially applied.
type ParameterError struct {
	Msg string
}

func (e *ParameterError) Error() string { return "parameter error: " + e.Msg }

// Parameter returns a new ParameterError with the given message.
func Parameter(msg string) error { return &ParameterError{Msg: msg} }

// IsParameter reports whether err is a ParameterError.
func IsParameter(err error) bool {
	var pe *ParameterError
	return errors.As(err, &pe)
}

// IntegrityError reports a configuration or data integrity violation: unknown
// type tag, container whitelist violation, duplicate serial. Fatal to the
// current operation, never silently coerced.
type IntegrityError struct {
	Msg string
}

func (e *IntegrityError) Error() string { return "integrity error: " + e.Msg }

// Integrity returns a new IntegrityError with the given message.
func Integrity(msg string) error { return &IntegrityError{Msg: msg} }

// IsIntegrity reports whether err is an IntegrityError.
func IsIntegrity(err error) bool {
	var ie *IntegrityError
	return errors.As(err, &ie)
}

// CryptoParseError reports a malformed registration blob or certificate during
// enrollment. The token record keeps its prior state; no secret material is
// committed.
type CryptoParseError struct {
	Msg string
	Err error
}

func (e *CryptoParseError) Error() string {
	if e.Err != nil {
		return "crypto parse error: " + e.Msg + ": " + e.Err.Error()
	}
	return "crypto parse error: " + e.Msg
}

func (e *CryptoParseError) Unwrap() error { return e.Err }

// CryptoParse returns a new CryptoParseError wrapping err (err may be nil).
func CryptoParse(msg string, err error) error { return &CryptoParseError{Msg: msg, Err: err} }

// IsCryptoParse reports whether err is a CryptoParseError.
func IsCryptoParse(err error) bool {
	var ce *CryptoParseError
	return errors.As(err, &ce)
}
