package model

import "github.com/google/uuid"

// TokenSource mints cascade correlation tokens. Implemented by UUIDSource
// (production) and the fixed/sequence sources in internal/testutil.
type TokenSource interface {
	Generate() string
}

// UUIDSource generates time-sortable UUIDv7 cascade tokens.
//
// UUIDv7 embeds a timestamp in the most significant bits, so tokens sort
// by cascade creation time, which keeps traces and logs scannable.
//
// UUIDSource is stateless and safe for concurrent use.
type UUIDSource struct{}

// Generate returns a new UUIDv7 as a hyphenated string.
//
// Panics if UUID generation fails (should never happen in practice).
func (UUIDSource) Generate() string {
	return uuid.Must(uuid.NewV7()).String()
}
