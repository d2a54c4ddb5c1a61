package auth

import "time"

// Strategy issues and verifies session tokens. Issuance belongs to the
// identity service; this process mostly parses.
type Strategy interface {
	IssueToken(userID int64) (string, error)
	ParseToken(token string) (int64, error)
	Name() string
}

// Options tune token issuance. A non-positive TTL means one day.
type Options struct {
	TTL time.Duration
}
