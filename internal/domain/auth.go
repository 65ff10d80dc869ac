package domain

import (
	"encoding/json"
	"fmt"
	"strings"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/go-ozzo/ozzo-validation/v4/is"
)

const (
	MinPasswordLength = 8
	MaxPasswordBytes  = 72 // bcrypt input limit
	MaxNameLength     = 120
)

// SignUpRequest carries the fields needed to register an account
type SignUpRequest struct {
	Email    string `json:"email"`
	Name     string `json:"name"`
	Password string `json:"password"`
}

// Normalize trims whitespace and lower-cases the email
func (r *SignUpRequest) Normalize() {
	r.Email = strings.ToLower(strings.TrimSpace(r.Email))
	r.Name = strings.TrimSpace(r.Name)
}

func (r SignUpRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Email, validation.Required, is.EmailFormat),
		validation.Field(&r.Name, validation.Required, validation.Length(1, MaxNameLength)),
		validation.Field(&r.Password, validation.Required, validation.RuneLength(MinPasswordLength, 0), validation.By(maxPasswordBytes)),
	)
}

// maxPasswordBytes checks the encoded length, since bcrypt counts bytes not characters
func maxPasswordBytes(value interface{}) error {
	if s, _ := value.(string); len(s) > MaxPasswordBytes {
		return validation.NewError("validation_password_too_long", fmt.Sprintf("must be at most %d bytes", MaxPasswordBytes))
	}
	return nil
}

// SignInRequest carries credentials
type SignInRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (r SignInRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Email, validation.Required, is.EmailFormat),
		validation.Field(&r.Password, validation.Required),
	)
}

// UserSummary is the public projection of a User
type UserSummary struct {
	ID    string `json:"id"`
	Email string `json:"email"`
	Name  string `json:"name"`
	Role  Role   `json:"role"`
}

// SignInResponse is the immutable result of a successful sign in
type SignInResponse struct {
	token     string
	expiresIn int64
	user      UserSummary
}

// NewSignInResponse builds the response in one step from an already valid user
func NewSignInResponse(token string, expiresIn int64, user *User) SignInResponse {
	return SignInResponse{
		token:     token,
		expiresIn: expiresIn,
		user: UserSummary{
			ID:    user.ID,
			Email: user.Email,
			Name:  user.Name,
			Role:  user.Role,
		},
	}
}

func (r SignInResponse) Token() string     { return r.token }
func (r SignInResponse) ExpiresIn() int64  { return r.expiresIn }
func (r SignInResponse) User() UserSummary { return r.user }

// MarshalJSON exposes the unexported fields on the wire
func (r SignInResponse) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Token     string      `json:"token"`
		ExpiresIn int64       `json:"expires_in"`
		User      UserSummary `json:"user"`
	}{r.token, r.expiresIn, r.user})
}
