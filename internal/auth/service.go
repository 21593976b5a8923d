package auth

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"regexp"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/golang-jwt/jwt/v5"
	apierrors "github.com/zfogg/bizfeed/backend/internal/errors"
	"github.com/zfogg/bizfeed/backend/internal/logger"
	"github.com/zfogg/bizfeed/backend/internal/models"
	"github.com/zfogg/bizfeed/backend/internal/repository"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

var (
	ErrUserExists         = repository.ErrUserExists
	ErrInvalidCredentials = apierrors.Unauthorized("invalid credentials")
	ErrInvalidToken       = apierrors.Unauthorized("invalid or expired token")
)

// Service handles signup, login and token verification
type Service struct {
	users     repository.UserRepository
	jwtSecret []byte
	expiry    time.Duration
	validate  *validator.Validate
	now       func() time.Time
}

// NewService creates a new authentication service
func NewService(users repository.UserRepository, jwtSecret []byte, expiry time.Duration) *Service {
	if expiry <= 0 {
		expiry = 7 * 24 * time.Hour
	}
	return &Service{
		users:     users,
		jwtSecret: jwtSecret,
		expiry:    expiry,
		validate:  newValidator(),
		now:       time.Now,
	}
}

// Claims is the signed token payload
type Claims struct {
	UserID      string `json:"user_id"`
	Username    string `json:"username"`
	AccountType string `json:"account_type"`
	jwt.RegisteredClaims
}

// AuthResponse represents authentication response
type AuthResponse struct {
	Token     string      `json:"token"`
	User      models.User `json:"user"`
	ExpiresAt time.Time   `json:"expiresAt"`
}

// SignupRequest represents a new account
type SignupRequest struct {
	Username         string `json:"username" validate:"required,min=3,max=30,username"`
	Email            string `json:"email" validate:"required,email"`
	Password         string `json:"password" validate:"required,min=8,max=72"`
	DisplayName      string `json:"displayName" validate:"max=100"`
	AccountType      string `json:"accountType" validate:"omitempty,oneof=personal business"`
	BusinessCategory string `json:"businessCategory" validate:"max=100"`
}

// LoginRequest identifies the account by username or email
type LoginRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Signup creates an account and returns a token for it
func (s *Service) Signup(ctx context.Context, req SignupRequest) (*AuthResponse, error) {
	req.Username = strings.TrimSpace(req.Username)
	req.Email = strings.TrimSpace(req.Email)
	req.AccountType = strings.ToLower(strings.TrimSpace(req.AccountType))

	if err := s.validate.Struct(req); err != nil {
		return nil, validationError(err)
	}

	taken, err := s.users.UsernameOrEmailTaken(ctx, req.Username, req.Email)
	if err != nil {
		return nil, fmt.Errorf("check existing user: %w", err)
	}
	if taken {
		return nil, ErrUserExists
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	accountType := req.AccountType
	if accountType == "" {
		accountType = models.AccountPersonal
	}
	displayName := strings.TrimSpace(req.DisplayName)
	if displayName == "" {
		displayName = req.Username
	}

	user := &models.User{
		Username:         req.Username,
		Email:            strings.ToLower(req.Email),
		PasswordHash:     string(hashed),
		DisplayName:      displayName,
		AccountType:      accountType,
		BusinessCategory: strings.TrimSpace(req.BusinessCategory),
	}
	if err := s.users.CreateUser(ctx, user); err != nil {
		// The unique index catches a signup that raced past the check above
		if errors.Is(err, ErrUserExists) {
			return nil, ErrUserExists
		}
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	logger.Log.Info("User signed up",
		logger.WithUserID(user.ID),
		zap.String("username", user.Username),
		zap.String("account_type", user.AccountType),
	)
	return s.issue(user)
}

// Login authenticates an active user. Unknown identifiers and wrong
// passwords fail identically.
func (s *Service) Login(ctx context.Context, req LoginRequest) (*AuthResponse, error) {
	identifier := strings.TrimSpace(req.Username)
	if identifier == "" {
		identifier = strings.TrimSpace(req.Email)
	}
	if identifier == "" || req.Password == "" {
		return nil, apierrors.ValidationError("username", "username or email and password are required")
	}

	user, err := s.users.GetUserByLogin(ctx, identifier)
	if errors.Is(err, repository.ErrUserNotFound) {
		// Unknown identifiers cost one bcrypt compare, like a wrong password
		_ = bcrypt.CompareHashAndPassword(dummyHash, []byte(req.Password))
		return nil, ErrInvalidCredentials
	}
	if err != nil {
		return nil, fmt.Errorf("load user: %w", err)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)); err != nil {
		return nil, ErrInvalidCredentials
	}

	return s.issue(user)
}

// Verify parses a token and returns its subject if still active
func (s *Service) Verify(ctx context.Context, tokenString string) (*models.User, error) {
	claims, err := s.ParseToken(tokenString)
	if err != nil {
		return nil, err
	}

	user, err := s.users.GetUser(ctx, claims.UserID)
	if errors.Is(err, repository.ErrUserNotFound) {
		return nil, ErrInvalidToken
	}
	if err != nil {
		return nil, fmt.Errorf("load user: %w", err)
	}
	if !user.IsActive {
		return nil, ErrInvalidToken
	}
	return user, nil
}

// ParseToken validates signature and expiry without touching the database
func (s *Service) ParseToken(tokenString string) (*Claims, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return s.jwtSecret, nil
	}, jwt.WithTimeFunc(s.now))
	if err != nil || !token.Valid || claims.UserID == "" {
		return nil, ErrInvalidToken
	}
	return claims, nil
}

// IssueToken signs a token for an existing user
func (s *Service) IssueToken(user *models.User) (*AuthResponse, error) {
	return s.issue(user)
}

func (s *Service) issue(user *models.User) (*AuthResponse, error) {
	now := s.now()
	expiresAt := now.Add(s.expiry)

	claims := Claims{
		UserID:      user.ID,
		Username:    user.Username,
		AccountType: user.AccountType,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   user.ID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.jwtSecret)
	if err != nil {
		return nil, fmt.Errorf("failed to sign token: %w", err)
	}

	return &AuthResponse{
		Token:     signed,
		User:      *user,
		ExpiresAt: expiresAt,
	}, nil
}

// dummyHash is compared against when the login identifier is unknown
var dummyHash, _ = bcrypt.GenerateFromPassword([]byte("bizfeed-timing-pad"), bcrypt.DefaultCost)

func validationError(err error) error {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return apierrors.BadRequest(err.Error())
	}

	fe := verrs[0]
	field := fe.Field()
	var msg string
	switch fe.Tag() {
	case "required":
		msg = field + " is required"
	case "email":
		msg = "email must be a valid email address"
	case "min":
		msg = fmt.Sprintf("%s must be at least %s characters", field, fe.Param())
	case "max":
		msg = fmt.Sprintf("%s must be at most %s characters", field, fe.Param())
	case "oneof":
		msg = fmt.Sprintf("%s must be one of: %s", field, fe.Param())
	case "username":
		msg = field + " may only contain letters, numbers, dots and underscores"
	default:
		msg = field + " is invalid"
	}
	return apierrors.ValidationError(field, msg)
}

// newValidator reports fields by their JSON names
func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	_ = v.RegisterValidation("username", func(fl validator.FieldLevel) bool {
		return usernamePattern.MatchString(fl.Field().String())
	})
	return v
}

var usernamePattern = regexp.MustCompile(`^[A-Za-z0-9_.]+$`)
