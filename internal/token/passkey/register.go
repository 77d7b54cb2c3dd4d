package passkey

import (
	"crypto/sha256"
	"encoding/base64"
	"encoding/binary"
	"encoding/json"

	"tokenforge/engine/internal/errs"
)

// registrationResponse is the JSON payload of the second enrollment step, as
// assembled by the client from the authenticator's create() result.
type registrationResponse struct {
	// CredentialID is the base64url credential id (resident key reference).
	CredentialID string `json:"credentialId"`
	// PublicKey is the base64url 65-byte uncompressed P-256 public key of the
	// new credential.
	PublicKey string `json:"publicKey"`
	// ClientDataJSON is the base64url client data echoed by the browser.
	ClientDataJSON string `json:"clientDataJSON"`
	// AuthenticatorData is the base64url authenticator data of the create()
	// result; carries the initial signature counter.
	AuthenticatorData string `json:"authenticatorData"`
}

// Registration is the verified result of a passkey registration response.
type Registration struct {
	CredentialID []byte
	PubKey       []byte
	// SignCount is the authenticator's initial signature counter.
	SignCount uint32
}

// ParseRegistration decodes and checks a passkey registration response against
// the challenge value issued at the first enrollment step and the configured
// relying party. Any structural error is a CryptoParseError; a challenge or
// relying-party mismatch fails the same way so callers commit nothing.
func ParseRegistration(regData, expectedChallenge, rpID string) (*Registration, error) {
	if regData == "" {
		return nil, errs.Parameter("missing registration data")
	}
	var resp registrationResponse
	if err := json.Unmarshal([]byte(regData), &resp); err != nil {
		return nil, errs.CryptoParse("registration data is not valid JSON", err)
	}
	credID, err := decodeBase64URL(resp.CredentialID)
	if err != nil || len(credID) == 0 {
		return nil, errs.CryptoParse("bad credential id", err)
	}
	pubKey, err := decodeBase64URL(resp.PublicKey)
	if err != nil {
		return nil, errs.CryptoParse("bad public key encoding", err)
	}
	if len(pubKey) != 65 || pubKey[0] != 0x04 {
		return nil, errs.CryptoParse("public key is not an uncompressed P-256 point", nil)
	}
	clientDataRaw, err := decodeBase64URL(resp.ClientDataJSON)
	if err != nil {
		return nil, errs.CryptoParse("bad clientDataJSON encoding", err)
	}
	var cd clientData
	if err := json.Unmarshal(clientDataRaw, &cd); err != nil {
		return nil, errs.CryptoParse("bad clientDataJSON", err)
	}
	if cd.Typ != "webauthn.create" {
		return nil, errs.CryptoParse("clientData type is not webauthn.create", nil)
	}
	if cd.Challenge != expectedChallenge {
		return nil, errs.CryptoParse("clientData challenge does not match the enrollment challenge", nil)
	}
	authData, err := decodeBase64URL(resp.AuthenticatorData)
	if err != nil {
		return nil, errs.CryptoParse("bad authenticatorData encoding", err)
	}
	signCount, ok := checkAuthData(authData, rpID, false)
	if !ok {
		return nil, errs.CryptoParse("bad authenticatorData", nil)
	}
	return &Registration{
		CredentialID: credID,
		PubKey:       pubKey,
		SignCount:    signCount,
	}, nil
}

// clientData is the browser-assembled JSON echoed in create() and get()
// responses.
type clientData struct {
	Typ       string `json:"type"`
	Challenge string `json:"challenge"`
	Origin    string `json:"origin"`
}

// Authenticator data flag bits.
const (
	flagUserPresent  = 0x01
	flagUserVerified = 0x04
)

// checkAuthData validates the fixed-layout head of authenticator data:
// rpIdHash (32) ‖ flags (1) ‖ signCount (4). User presence is always
// required; user verification additionally when requireUV is set.
func checkAuthData(authData []byte, rpID string, requireUV bool) (uint32, bool) {
	if len(authData) < 37 {
		return 0, false
	}
	rpHash := sha256.Sum256([]byte(rpID))
	if string(authData[:32]) != string(rpHash[:]) {
		return 0, false
	}
	flags := authData[32]
	if flags&flagUserPresent == 0 {
		return 0, false
	}
	if requireUV && flags&flagUserVerified == 0 {
		return 0, false
	}
	return binary.BigEndian.Uint32(authData[33:37]), true
}

// decodeBase64URL decodes s, tolerating missing padding.
func decodeBase64URL(s string) ([]byte, error) {
	if n := len(s) % 4; n != 0 {
		s += string([]byte{'=', '=', '='}[:4-n])
	}
	return base64.URLEncoding.DecodeString(s)
}
