package models

import "time"

// RefreshToken is a stored refresh token row. The token string itself is the
// lookup key and is not kept here.
type RefreshToken struct {
	UserID  string
	Expires time.Time
}

// ExpiredAt reports whether the token is no longer valid at now.
func (t RefreshToken) ExpiredAt(now time.Time) bool {
	return !now.Before(t.Expires)
}
