package types

import (
	"time"
)

// Record is a single computer login event belonging to an account.
type Record struct {
	Label     string    `json:"label"`
	Timestamp time.Time `json:"timestamp,omitzero"`
}

func (r Record) HasTimestamp() bool {
	return !r.Timestamp.IsZero()
}

// Location is a point picked on the map by the user.
type Location struct {
	Latitude  float64 `json:"lat"`
	Longitude float64 `json:"lng"`
}

// Account is the profile data of an authenticated user.
type Account struct {
	ID           string    `json:"id"`
	DisplayName  string    `json:"displayName"`
	Phone        string    `json:"phone"`
	PhotoURL     string    `json:"photoUrl,omitempty"`
	Location     *Location `json:"location,omitempty"`
	DeviceTokens []string  `json:"-"`
}

// LoginEvent is the message agents publish when a machine reports a login.
type LoginEvent struct {
	UserID    string    `json:"userId"`
	Label     string    `json:"label"`
	Timestamp time.Time `json:"timestamp,omitzero"`
}

func (e LoginEvent) Record() Record {
	return Record{Label: e.Label, Timestamp: e.Timestamp}
}
