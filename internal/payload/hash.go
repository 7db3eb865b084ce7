package payload

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// Domain prefixes for content-addressed digests. The version suffix
// enables future algorithm migration without colliding with old digests.
const (
	DomainComponent = "tangle/component/v1"
	DomainTrace     = "tangle/trace/v1"
)

// hashWithDomain computes SHA-256 with domain separation.
// Format: SHA256(domain + 0x00 + data)
// The null byte separator prevents domain/data boundary ambiguity.
func hashWithDomain(domain string, data []byte) string {
	h := sha256.New()
	h.Write([]byte(domain))
	h.Write([]byte{0x00})
	h.Write(data)
	return hex.EncodeToString(h.Sum(nil))
}

// Digest computes the hex SHA-256 digest of v's canonical form under the
// given domain. Equal values digest equally; values differing anywhere,
// including map key order-insensitive content, digest differently.
func Digest(domain string, v Value) (string, error) {
	canonical, err := MarshalCanonical(v)
	if err != nil {
		return "", fmt.Errorf("digest: %w", err)
	}
	return hashWithDomain(domain, canonical), nil
}

// ComponentDigest identifies a component value. The archive uses it for
// content-addressed idempotency: saving an unchanged component writes no
// new revision.
func ComponentDigest(v Value) (string, error) {
	return Digest(DomainComponent, v)
}

// TraceDigest identifies an execution trace snapshot. The replay command
// compares trace digests to prove determinism.
func TraceDigest(v Value) (string, error) {
	return Digest(DomainTrace, v)
}

// MustComponentDigest is like ComponentDigest but panics on error.
// Use only in tests or when inputs are known to be valid.
func MustComponentDigest(v Value) string {
	d, err := ComponentDigest(v)
	if err != nil {
		panic(err)
	}
	return d
}
