package domain

import (
	"github.com/golang-jwt/jwt/v5"
)

// AccessClaims represents the custom JWT claims issued on sign in
type AccessClaims struct {
	UserID string `json:"user_id"`
	Email  string `json:"email,omitempty"`
	Role   Role   `json:"role"`
	jwt.RegisteredClaims
}
