package domain

import (
	"crypto/sha256"
	"encoding/hex"
)

// Fingerprint is the one-way hash of a bearer token. Raw tokens are
// never persisted; every cache, session and revocation key is derived
// from the fingerprint instead.
type Fingerprint string

// NewFingerprint hashes a raw bearer token with SHA-256.
func NewFingerprint(token string) Fingerprint {
	sum := sha256.Sum256([]byte(token))
	return Fingerprint(hex.EncodeToString(sum[:]))
}

func (f Fingerprint) String() string {
	return string(f)
}

// Short returns a truncated fingerprint safe for log output.
func (f Fingerprint) Short() string {
	if len(f) <= 8 {
		return string(f)
	}
	return string(f[:8])
}
