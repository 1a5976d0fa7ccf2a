// Package models defines the core data structures for users and contacts.
package models

import "errors"

var (
	// ErrNotFound is returned when a referenced user or contact does not exist
	// (or is not visible to the requesting owner).
	ErrNotFound = errors.New("not found")
	// ErrEmailTaken is returned when a user is created or renamed to an email
	// that is already registered.
	ErrEmailTaken = errors.New("email already registered")
)

// User represents an application user with credentials.
type User struct {
	// ID is the unique identifier for the user.
	ID int64 `json:"id"`
	// Email is the unique login of the user.
	Email string `json:"email"`
	// HashedPassword is the bcrypt hash of the user's password. It is never
	// serialized.
	HashedPassword string `json:"-"`
	// IsActive reports whether the account may log in.
	IsActive bool `json:"is_active"`
}

// UserUpdate carries the optional fields of a profile update.
// Nil fields are left unchanged.
type UserUpdate struct {
	Email          *string
	HashedPassword *string
	IsActive       *bool
}

// Contact is an address book entry owned by exactly one user.
type Contact struct {
	// ID is the unique identifier for the contact.
	ID int64 `json:"id"`
	// Name is the display name of the contact.
	Name string `json:"name"`
	// Email is the contact's email address.
	Email string `json:"email"`
	// Phone is the contact's phone number.
	Phone string `json:"phone"`
	// OwnerID is the id of the user owning the contact.
	OwnerID int64 `json:"owner_id"`
}

// ContactInput holds the user-editable attributes of a contact.
type ContactInput struct {
	Name  string `json:"name" validate:"required,max=255"`
	Email string `json:"email" validate:"required,email,max=255"`
	Phone string `json:"phone" validate:"required,max=32"`
}
