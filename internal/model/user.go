// Package model defines the data structures used throughout the application.
//
// These are storage-agnostic: the DynamoDB and SQLite repositories each
// translate them to their own item/row shapes, so no storage tags live here.
package model

import (
	"strings"
	"time"
)

// Role decides which route guards a user passes.
type Role string

const (
	RoleUser  Role = "user"
	RoleAdmin Role = "admin"
)

// Gender is the closed set accepted on registration and profile updates.
type Gender string

const (
	GenderMale   Gender = "male"
	GenderFemale Gender = "female"
	GenderOther  Gender = "other"
)

// Valid reports whether g is one of the known genders.
// The empty value is not valid; callers treat "absent" separately.
func (g Gender) Valid() bool {
	switch g {
	case GenderMale, GenderFemale, GenderOther:
		return true
	}
	return false
}

// User is a registered account, identified by email.
//
// The email is the identity key: it is set once by CreateUser and no
// update path can change it. PasswordHash is empty for accounts created
// through OAuth, which means password login always fails for them.
//
// WHY json:"-" ON PasswordHash?
// The struct is returned from several endpoints (/me, login, profile PUT).
// Hiding the hash at the type level means no handler can leak it by forgetting
// to strip it.
type User struct {
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	FirstName    string    `json:"firstName"`
	LastName     string    `json:"lastName"`
	DateOfBirth  string    `json:"dateOfBirth,omitempty"` // YYYY-MM-DD as entered
	Gender       Gender    `json:"gender,omitempty"`
	Phone        string    `json:"phone,omitempty"`
	Address      string    `json:"address,omitempty"`
	Role         Role      `json:"role"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

// IsAdmin reports whether the user may access /admin and /api/admin.
func (u *User) IsAdmin() bool {
	return u != nil && u.Role == RoleAdmin
}

// Profile is the editable subset shown on the profile page.
type Profile struct {
	FirstName   string `json:"firstName"`
	LastName    string `json:"lastName"`
	DateOfBirth string `json:"dateOfBirth"`
	Gender      Gender `json:"gender"`
	Phone       string `json:"phone"`
	Address     string `json:"address"`
}

// Profile returns the user's editable fields.
func (u *User) Profile() Profile {
	return Profile{
		FirstName:   u.FirstName,
		LastName:    u.LastName,
		DateOfBirth: u.DateOfBirth,
		Gender:      u.Gender,
		Phone:       u.Phone,
		Address:     u.Address,
	}
}

// ProfileUpdate is the whitelist of fields a profile update may touch.
//
// A nil pointer means "leave unchanged". There is deliberately no Email,
// Role or PasswordHash field: the JSON decoder rejects them as unknown, and
// repositories build their update statements from these fields only.
type ProfileUpdate struct {
	FirstName   *string `json:"firstName,omitempty"`
	LastName    *string `json:"lastName,omitempty"`
	DateOfBirth *string `json:"dateOfBirth,omitempty"`
	Gender      *Gender `json:"gender,omitempty"`
	Phone       *string `json:"phone,omitempty"`
	Address     *string `json:"address,omitempty"`
}

// IsEmpty reports whether the update would only refresh updatedAt.
func (p ProfileUpdate) IsEmpty() bool {
	return p.FirstName == nil && p.LastName == nil && p.DateOfBirth == nil &&
		p.Gender == nil && p.Phone == nil && p.Address == nil
}

// Apply copies the set fields onto u. Repositories without an update
// expression language (and test fakes) use this to get identical semantics.
func (p ProfileUpdate) Apply(u *User) {
	if p.FirstName != nil {
		u.FirstName = *p.FirstName
	}
	if p.LastName != nil {
		u.LastName = *p.LastName
	}
	if p.DateOfBirth != nil {
		u.DateOfBirth = *p.DateOfBirth
	}
	if p.Gender != nil {
		u.Gender = *p.Gender
	}
	if p.Phone != nil {
		u.Phone = *p.Phone
	}
	if p.Address != nil {
		u.Address = *p.Address
	}
}

// SplitName splits a provider display name ("Ada King Lovelace") into
// first name and the remainder, the way OAuth sign-ups fill the profile.
func SplitName(full string) (first, last string) {
	parts := strings.Fields(full)
	if len(parts) == 0 {
		return "", ""
	}
	return parts[0], strings.Join(parts[1:], " ")
}
