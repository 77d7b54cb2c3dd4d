package u2f

import (
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/sha256"
	"encoding/json"
)

// clientData is the browser-assembled JSON echoed in a U2F sign response.
type clientData struct {
	Typ       string `json:"typ"`
	Challenge string `json:"challenge"`
	Origin    string `json:"origin"`
}

// VerifySignResponse checks a U2F authentication response against the issued
// challenge value and the registered public key. The signature covers
// sha256(appID) ‖ flags ‖ counter ‖ sha256(clientData). Any malformed input or
// mismatch yields false; callers treat all failures alike.
func VerifySignResponse(pubKey []byte, appID, challengeValue, clientDataB64, signatureDataB64 string) bool {
	clientDataRaw, err := decodeBase64URL(clientDataB64)
	if err != nil {
		return false
	}
	sigData, err := decodeBase64URL(signatureDataB64)
	if err != nil {
		return false
	}
	var cd clientData
	if err := json.Unmarshal(clientDataRaw, &cd); err != nil {
		return false
	}
	if cd.Challenge != challengeValue {
		return false
	}
	// flags (1) + counter (4) + DER signature
	if len(sigData) < 6 {
		return false
	}
	flags := sigData[0]
	const userPresence = 0x01
	if flags&userPresence == 0 {
		return false
	}
	counter := sigData[1:5]
	sig := sigData[5:]

	appHash := sha256.Sum256([]byte(appID))
	cdHash := sha256.Sum256(clientDataRaw)
	signBase := make([]byte, 0, len(appHash)+1+len(counter)+len(cdHash))
	signBase = append(signBase, appHash[:]...)
	signBase = append(signBase, flags)
	signBase = append(signBase, counter...)
	signBase = append(signBase, cdHash[:]...)
	digest := sha256.Sum256(signBase)

	x, y := elliptic.Unmarshal(elliptic.P256(), pubKey)
	if x == nil {
		return false
	}
	pub := &ecdsa.PublicKey{Curve: elliptic.P256(), X: x, Y: y}
	return ecdsa.VerifyASN1(pub, digest[:], sig)
}
