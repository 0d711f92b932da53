package debugdb

import "github.com/google/uuid"

// TokenSource produces session ids.
type TokenSource interface {
	Generate() string
}

// UUIDv7Source generates time-sortable UUIDv7 session ids.
//
// UUIDv7 embeds a timestamp in the most significant bits, so sessions sort
// by creation time in the database and in listings.
//
// Thread-safety: UUIDv7Source is stateless and safe for concurrent use.
type UUIDv7Source struct{}

// Generate creates a new UUIDv7 and returns it as a hyphenated string.
// Panics if UUID generation fails (should never happen in practice).
func (UUIDv7Source) Generate() string {
	return uuid.Must(uuid.NewV7()).String()
}
