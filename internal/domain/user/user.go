// Package user defines the user domain model for authentication and
// personalized recommendation profiles.
package user

import (
	"errors"
	"net/mail"
	"regexp"
	"time"
)

// Role represents the authorization level of a user.
type Role string

const (
	RoleUser  Role = "user"
	RoleAdmin Role = "admin"
)

// ValidRoles is the set of all valid user roles.
var ValidRoles = map[Role]bool{
	RoleUser:  true,
	RoleAdmin: true,
}

// Supported languages for recommendations: Indonesian, English, Sundanese.
const (
	LangIndonesian = "id"
	LangEnglish    = "en"
	LangSundanese  = "su"
)

var validLanguages = map[string]bool{
	LangIndonesian: true,
	LangEnglish:    true,
	LangSundanese:  true,
}

// ValidLanguage reports whether lang is a supported recommendation language.
func ValidLanguage(lang string) bool {
	return validLanguages[lang]
}

var phoneE164 = regexp.MustCompile(`^\+[1-9]\d{6,14}$`)

// User represents a registered user with their recommendation profile.
// Health conditions are stored AES-256-GCM encrypted and never serialized.
type User struct {
	ID               string    `json:"id"`
	Email            string    `json:"email"`
	FullName         string    `json:"full_name"`
	PhoneE164        string    `json:"phone_e164,omitempty"`
	PasswordHash     string    `json:"-"` // never serialized
	Role             Role      `json:"role"`
	Language         string    `json:"language"`
	Age              int       `json:"age,omitempty"`
	Occupation       string    `json:"occupation,omitempty"`
	Location         string    `json:"location,omitempty"`
	ActivityLevel    string    `json:"activity_level,omitempty"`
	SensitivityLevel string    `json:"sensitivity_level,omitempty"`
	HealthEncrypted  []byte    `json:"-"` // AES-GCM ciphertext, nonce-prefixed
	CreatedAt        time.Time `json:"created_at"`
	UpdatedAt        time.Time `json:"updated_at"`
}

// CreateRequest is the input for registering a new user.
type CreateRequest struct {
	Email     string `json:"email"`
	FullName  string `json:"full_name"`
	PhoneE164 string `json:"phone_e164,omitempty"`
	Password  string `json:"password"` //nolint:gosec // request field, not a hardcoded secret
	Language  string `json:"language,omitempty"`
	Role      Role   `json:"role,omitempty"`
}

// Validate checks that the CreateRequest has all required fields.
func (r *CreateRequest) Validate() error {
	if r.Email == "" {
		return errors.New("email is required")
	}
	if _, err := mail.ParseAddress(r.Email); err != nil {
		return errors.New("invalid email format")
	}
	if r.Password == "" {
		return errors.New("password is required")
	}
	if len(r.Password) < 8 {
		return errors.New("password must be at least 8 characters")
	}
	if r.PhoneE164 != "" && !phoneE164.MatchString(r.PhoneE164) {
		return errors.New("phone must be in E.164 format")
	}
	if r.Language != "" && !validLanguages[r.Language] {
		return errors.New("language must be id, en, or su")
	}
	if r.Role != "" && !ValidRoles[r.Role] {
		return errors.New("invalid role: must be user or admin")
	}
	return nil
}

// UpdateProfileRequest is the input for updating a user's recommendation profile.
type UpdateProfileRequest struct {
	FullName         string `json:"full_name,omitempty"`
	PhoneE164        string `json:"phone_e164,omitempty"`
	Language         string `json:"language,omitempty"`
	Age              int    `json:"age,omitempty"`
	Occupation       string `json:"occupation,omitempty"`
	Location         string `json:"location,omitempty"`
	ActivityLevel    string `json:"activity_level,omitempty"`
	SensitivityLevel string `json:"sensitivity_level,omitempty"`
	HealthConditions string `json:"health_conditions,omitempty"`
}

// Validate checks the optional profile fields.
func (r *UpdateProfileRequest) Validate() error {
	if r.PhoneE164 != "" && !phoneE164.MatchString(r.PhoneE164) {
		return errors.New("phone must be in E.164 format")
	}
	if r.Language != "" && !validLanguages[r.Language] {
		return errors.New("language must be id, en, or su")
	}
	if r.Age < 0 || r.Age > 130 {
		return errors.New("age out of range")
	}
	return nil
}

// LoginRequest is the input for user authentication.
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"` //nolint:gosec // request field, not a hardcoded secret
}

// Validate checks that the LoginRequest has all required fields.
func (r *LoginRequest) Validate() error {
	if r.Email == "" {
		return errors.New("email is required")
	}
	if r.Password == "" {
		return errors.New("password is required")
	}
	return nil
}

// LoginResponse is returned after successful authentication.
type LoginResponse struct {
	AccessToken string `json:"access_token"` //nolint:gosec // response field, not a hardcoded secret
	TokenType   string `json:"token_type"`
	ExpiresIn   int    `json:"expires_in"` // seconds until access token expires
	User        User   `json:"user"`
}

// TokenClaims is the payload of an access token.
type TokenClaims struct {
	UserID   string `json:"sub"`
	Email    string `json:"email"`
	Name     string `json:"name"`
	Role     Role   `json:"role"`
	IssuedAt int64  `json:"iat"`
	Expiry   int64  `json:"exp"`
	JTI      string `json:"jti"`
	Audience string `json:"aud"`
	Issuer   string `json:"iss"`
}
