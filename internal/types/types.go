// Package types holds the shared data structures used across the
// application. Keeping them in one place prevents import cycles: the
// record store, the credential directory, storage backends and the HTTP
// handlers can all import types without depending on each other.
package types

import "time"

// StudentRecord is one row of the student dataset.
//
// The validate tags are checked once per row at load time by
// go-playground/validator, so aggregations never meet a half-valid row.
type StudentRecord struct {
	Name    string  `json:"name"    validate:"required"`
	Grade   string  `json:"grade"   validate:"required"`
	Age     int     `json:"age"     validate:"min=0"`
	Average float64 `json:"average"`
}

// UserProfile is a registered user of the dashboard.
//
// RegisteredAt is optional: older credential files carry no registration
// date for some users.
type UserProfile struct {
	Username     string     `json:"username"      validate:"required"`
	DisplayName  string     `json:"display_name"`
	Email        string     `json:"email"         validate:"omitempty,email"`
	RegisteredAt *time.Time `json:"registered_at,omitempty"`
}
