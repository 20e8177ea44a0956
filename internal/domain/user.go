package domain

import (
	"regexp"
	"strings"
	"time"
)

var emailPattern = regexp.MustCompile(`\S+@\S+\.\S+`)

// MinPasswordLength is the shortest password the console accepts.
const MinPasswordLength = 6

// User is the authenticated operator of the console.
type User struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	Role      string    `json:"role"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// Credentials are submitted at login.
type Credentials struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// ValidEmail reports whether s looks like an email address.
func ValidEmail(s string) bool {
	return emailPattern.MatchString(s)
}

// Validate applies the login form rules.
func (c Credentials) Validate() error {
	fields := map[string]string{}
	switch {
	case strings.TrimSpace(c.Email) == "":
		fields["email"] = "email is required"
	case !ValidEmail(c.Email):
		fields["email"] = "email is invalid"
	}
	switch {
	case c.Password == "":
		fields["password"] = "password is required"
	case len(c.Password) < MinPasswordLength:
		fields["password"] = "password must be at least 6 characters"
	}
	if len(fields) > 0 {
		return &ValidationError{Fields: fields}
	}
	return nil
}

// UserPatch updates profile fields.
type UserPatch struct {
	Name  *string `json:"name,omitempty"`
	Email *string `json:"email,omitempty"`
}

// Validate checks the fields present in the patch.
func (p UserPatch) Validate() error {
	fields := map[string]string{}
	if p.Name != nil && strings.TrimSpace(*p.Name) == "" {
		fields["name"] = "name is required"
	}
	if p.Email != nil && !ValidEmail(*p.Email) {
		fields["email"] = "email is invalid"
	}
	if len(fields) > 0 {
		return &ValidationError{Fields: fields}
	}
	return nil
}

// PasswordChange is the account settings password form.
type PasswordChange struct {
	CurrentPassword string `json:"currentPassword"`
	NewPassword     string `json:"newPassword"`
	ConfirmPassword string `json:"confirmPassword"`
}

// Validate requires the current password, a long enough new one and a matching confirmation.
func (p PasswordChange) Validate() error {
	fields := map[string]string{}
	if p.CurrentPassword == "" {
		fields["currentPassword"] = "current password is required"
	}
	if len(p.NewPassword) < MinPasswordLength {
		fields["newPassword"] = "new password must be at least 6 characters"
	}
	if p.ConfirmPassword != p.NewPassword {
		fields["confirmPassword"] = "passwords do not match"
	}
	if len(fields) > 0 {
		return &ValidationError{Fields: fields}
	}
	return nil
}

// AuthResponse is returned by a successful login.
type AuthResponse struct {
	User  *User  `json:"user"`
	Token string `json:"token"`
}
