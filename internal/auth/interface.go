package auth

import (
	"context"

	"github.com/zfogg/bizfeed/backend/internal/models"
)

// AuthServiceInterface defines the contract handlers and middleware use.
type AuthServiceInterface interface {
	Signup(ctx context.Context, req SignupRequest) (*AuthResponse, error)
	Login(ctx context.Context, req LoginRequest) (*AuthResponse, error)
	Verify(ctx context.Context, tokenString string) (*models.User, error)
	IssueToken(user *models.User) (*AuthResponse, error)
}

// TokenVerifier is the slice of the service the auth middleware needs
type TokenVerifier interface {
	Verify(ctx context.Context, tokenString string) (*models.User, error)
}

// Ensure Service implements AuthServiceInterface
var _ AuthServiceInterface = (*Service)(nil)
