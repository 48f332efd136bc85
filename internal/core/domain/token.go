package domain

import "time"

// RevokedToken is an entry in the revocation ledger. Tokens are stored as
// one-way fingerprints, never as the raw credential.
type RevokedToken struct {
	Fingerprint string
	UserID      string
	RevokedAt   time.Time
	ExpiresAt   time.Time
}

// IsExpired reports whether the underlying token has elapsed its natural
// lifetime, making the ledger entry eligible for garbage collection.
func (t RevokedToken) IsExpired(at time.Time) bool {
	return !t.ExpiresAt.After(at)
}
