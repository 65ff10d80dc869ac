package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/mansoorceksport/floorplan/internal/config"
	"github.com/mansoorceksport/floorplan/internal/domain"
	"golang.org/x/crypto/bcrypt"
)

// ErrInvalidCredentials is returned for an unknown email or a wrong password
var ErrInvalidCredentials = errors.New("invalid email or password")

// AuthService handles account registration and sign in
type AuthService struct {
	userRepo  domain.UserRepository
	jwtConfig config.JWTConfig
}

// NewAuthService creates a new auth service
func NewAuthService(userRepo domain.UserRepository, jwtConfig config.JWTConfig) *AuthService {
	if jwtConfig.AccessTokenExpiry <= 0 {
		jwtConfig.AccessTokenExpiry = 24 * time.Hour
	}
	return &AuthService{
		userRepo:  userRepo,
		jwtConfig: jwtConfig,
	}
}

// SignUp registers a new account with the default USER role
func (s *AuthService) SignUp(ctx context.Context, req domain.SignUpRequest) (*domain.User, error) {
	req.Normalize()
	if err := req.Validate(); err != nil {
		return nil, err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	user := &domain.User{
		Email:        req.Email,
		Name:         req.Name,
		PasswordHash: string(hash),
		Role:         domain.RoleUser,
	}
	if err := s.userRepo.Create(ctx, user); err != nil {
		return nil, err
	}
	return user, nil
}

// SignIn verifies credentials and returns a signed access token
func (s *AuthService) SignIn(ctx context.Context, req domain.SignInRequest) (domain.SignInResponse, error) {
	if err := req.Validate(); err != nil {
		return domain.SignInResponse{}, err
	}

	user, err := s.userRepo.GetByEmail(ctx, normalizeEmail(req.Email))
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return domain.SignInResponse{}, ErrInvalidCredentials
		}
		return domain.SignInResponse{}, fmt.Errorf("failed to fetch user: %w", err)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)); err != nil {
		return domain.SignInResponse{}, ErrInvalidCredentials
	}

	token, err := s.GenerateAccessToken(user)
	if err != nil {
		return domain.SignInResponse{}, err
	}

	return domain.NewSignInResponse(token, int64(s.jwtConfig.AccessTokenExpiry.Seconds()), user), nil
}

// Promote changes the role of an existing user
func (s *AuthService) Promote(ctx context.Context, userID string, role domain.Role) (*domain.User, error) {
	if !role.Valid() {
		return nil, domain.ErrInvalidRole
	}
	if err := s.userRepo.UpdateRole(ctx, userID, role); err != nil {
		return nil, err
	}
	return s.userRepo.GetByID(ctx, userID)
}

// GetUser returns the account behind a verified token
func (s *AuthService) GetUser(ctx context.Context, userID string) (*domain.User, error) {
	return s.userRepo.GetByID(ctx, userID)
}

// GenerateAccessToken creates a JWT token with custom claims
func (s *AuthService) GenerateAccessToken(user *domain.User) (string, error) {
	now := time.Now()
	claims := domain.AccessClaims{
		UserID: user.ID,
		Email:  user.Email,
		Role:   user.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   user.ID,
			ExpiresAt: jwt.NewNumericDate(now.Add(s.jwtConfig.AccessTokenExpiry)),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)

	tokenString, err := token.SignedString([]byte(s.jwtConfig.Secret))
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}
	return tokenString, nil
}

func normalizeEmail(email string) string {
	r := domain.SignUpRequest{Email: email}
	r.Normalize()
	return r.Email
}
