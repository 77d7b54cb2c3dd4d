package passkey

import (
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/sha256"
	"encoding/json"
)

// VerifyAssertion checks a passkey authentication response against the issued
// challenge value and the registered public key. The signature covers
// authenticatorData ‖ sha256(clientDataJSON). User verification is required:
// a passkey is unlocked on the device, not just touched. The signature
// counter must move strictly forward when the authenticator maintains one;
// counters pinned at zero are accepted as-is.
// Returns the new counter and whether the assertion verified; all failures
// look alike to the caller.
func VerifyAssertion(pubKey []byte, rpID, challengeValue, clientDataB64, authDataB64, signatureB64 string, storedSignCount uint32) (uint32, bool) {
	clientDataRaw, err := decodeBase64URL(clientDataB64)
	if err != nil {
		return 0, false
	}
	authData, err := decodeBase64URL(authDataB64)
	if err != nil {
		return 0, false
	}
	sig, err := decodeBase64URL(signatureB64)
	if err != nil {
		return 0, false
	}
	var cd clientData
	if err := json.Unmarshal(clientDataRaw, &cd); err != nil {
		return 0, false
	}
	if cd.Typ != "webauthn.get" {
		return 0, false
	}
	if cd.Challenge != challengeValue {
		return 0, false
	}
	signCount, ok := checkAuthData(authData, rpID, true)
	if !ok {
		return 0, false
	}
	if signCount != 0 && signCount <= storedSignCount {
		return 0, false
	}

	cdHash := sha256.Sum256(clientDataRaw)
	signBase := make([]byte, 0, len(authData)+len(cdHash))
	signBase = append(signBase, authData...)
	signBase = append(signBase, cdHash[:]...)
	digest := sha256.Sum256(signBase)

	x, y := elliptic.Unmarshal(elliptic.P256(), pubKey)
	if x == nil {
		return 0, false
	}
	pub := &ecdsa.PublicKey{Curve: elliptic.P256(), X: x, Y: y}
	if !ecdsa.VerifyASN1(pub, digest[:], sig) {
		return 0, false
	}
	return signCount, true
}
