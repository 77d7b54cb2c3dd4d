package u2f

import (
	"crypto/x509"
	"encoding/base64"
	"fmt"

	"tokenforge/engine/internal/errs"
)

// Registration message layout, see the FIDO U2F raw message format:
// reserved byte 0x05, 65-byte user public key, key handle length, key handle,
// attestation certificate (DER), signature.
const (
	registrationReserved = 0x05
	pubKeyLen            = 65
	minRegistrationLen   = 1 + pubKeyLen + 1
)

// Registration is the parsed result of a U2F registration blob.
type Registration struct {
	// PubKey is the 65-byte uncompressed P-256 public key of the new
	// credential. Not secret; needed to verify later sign responses.
	PubKey []byte
	// KeyHandle is the opaque handle the device needs to locate the key.
	// Stored as the token's secret material.
	KeyHandle []byte
	// Cert is the attestation certificate; its subject CN becomes the token
	// description.
	Cert *x509.Certificate
}

// ParseRegistration decodes and parses a base64url registration blob. The blob
// may come unpadded. Any structural or certificate error is a CryptoParseError
// and nothing is returned.
func ParseRegistration(regData string) (*Registration, error) {
	if regData == "" {
		return nil, errs.Parameter("missing regdata")
	}
	raw, err := decodeBase64URL(regData)
	if err != nil {
		return nil, errs.CryptoParse("regdata is not valid base64url", err)
	}
	if len(raw) < minRegistrationLen {
		return nil, errs.CryptoParse(fmt.Sprintf("regdata too short: %d bytes", len(raw)), nil)
	}
	if raw[0] != registrationReserved {
		return nil, errs.CryptoParse(fmt.Sprintf("bad reserved byte 0x%02x", raw[0]), nil)
	}
	pubKey := raw[1 : 1+pubKeyLen]
	khLen := int(raw[1+pubKeyLen])
	rest := raw[minRegistrationLen:]
	if len(rest) < khLen {
		return nil, errs.CryptoParse("key handle truncated", nil)
	}
	keyHandle := rest[:khLen]
	certDER := rest[khLen:]
	if len(certDER) == 0 {
		return nil, errs.CryptoParse("missing attestation certificate", nil)
	}
	// The certificate may be followed by the registration signature; slice it
	// off by the certificate's own DER length.
	n, err := derLen(certDER)
	if err != nil {
		return nil, errs.CryptoParse("bad attestation certificate encoding", err)
	}
	cert, err := x509.ParseCertificate(certDER[:n])
	if err != nil {
		return nil, errs.CryptoParse("bad attestation certificate", err)
	}
	return &Registration{
		PubKey:    append([]byte(nil), pubKey...),
		KeyHandle: append([]byte(nil), keyHandle...),
		Cert:      cert,
	}, nil
}

// derLen returns the total length of the DER element at the start of b
// (tag + length bytes + content).
func derLen(b []byte) (int, error) {
	if len(b) < 2 {
		return 0, fmt.Errorf("truncated DER header")
	}
	l := int(b[1])
	if l < 0x80 {
		return 2 + l, nil
	}
	numBytes := l & 0x7f
	if numBytes == 0 || numBytes > 4 || len(b) < 2+numBytes {
		return 0, fmt.Errorf("unsupported DER length encoding")
	}
	l = 0
	for _, c := range b[2 : 2+numBytes] {
		l = l<<8 | int(c)
	}
	total := 2 + numBytes + l
	if total > len(b) {
		return 0, fmt.Errorf("DER element longer than input")
	}
	return total, nil
}

// decodeBase64URL decodes s, tolerating missing padding.
func decodeBase64URL(s string) ([]byte, error) {
	if n := len(s) % 4; n != 0 {
		s += string([]byte{'=', '=', '='}[:4-n])
	}
	return base64.URLEncoding.DecodeString(s)
}
