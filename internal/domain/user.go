package domain

import "time"

// User is a tracked trader identity. Users are created out-of-band (seed
// scripts, admin tooling); the tracker only reads them and toggles activity
// through the is_live flag.
type User struct {
	ID             int64
	Username       string
	WalletAddress  string
	Email          string
	StreamPlatform string
	StreamURL      string
	IsLive         bool
	LastActive     *time.Time
	CreatedAt      time.Time
	UpdatedAt      time.Time
}
