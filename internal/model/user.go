// Package model defines the data structures used throughout the application.
package model

import "time"

// User is a patient account.
//
// The ID comes from the identity provider's subject claim, so it is an
// opaque string and never changes once assigned. Every profile field is
// optional: a nil pointer means "not supplied", which matters for Upsert,
// where only supplied fields overwrite what is stored.
type User struct {
	ID              string    `json:"id"`
	Email           *string   `json:"email"`
	FirstName       *string   `json:"firstName"`
	LastName        *string   `json:"lastName"`
	ProfileImageURL *string   `json:"profileImageUrl"`
	Age             *int      `json:"age"`
	Gender          *string   `json:"gender"`
	CancerType      *string   `json:"cancerType"`
	Phone           *string   `json:"phone"`
	CreatedAt       time.Time `json:"createdAt"`
	UpdatedAt       time.Time `json:"updatedAt"`
}

// StringPtr returns a pointer to s. Handy for building optional fields.
func StringPtr(s string) *string { return &s }

// IntPtr returns a pointer to n.
func IntPtr(n int) *int { return &n }
