package service

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"bloh/internal/middleware"
	"bloh/internal/models"
	"bloh/internal/repository"
	"bloh/internal/validation"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

// TokenTTL is the lifetime of an access token.
const TokenTTL = 7 * 24 * time.Hour

// AuthService registers accounts and issues access tokens.
type AuthService struct {
	users  repository.UserRepository
	secret string
	now    func() time.Time
}

type RegisterInput struct {
	Username    string
	Email       string
	Password    string
	DisplayName string
}

// TokenResult is returned by a successful login or registration.
type TokenResult struct {
	Token string       `json:"token"`
	User  *models.User `json:"user"`
}

func NewAuthService(users repository.UserRepository, secret string) *AuthService {
	return &AuthService{users: users, secret: secret, now: time.Now}
}

func (s *AuthService) Register(ctx context.Context, in RegisterInput) (*TokenResult, error) {
	username := strings.TrimSpace(in.Username)
	email := strings.ToLower(strings.TrimSpace(in.Email))

	if err := validation.ValidateUsername(username); err != nil {
		return nil, models.NewFieldValidationError("username", err.Error())
	}
	if err := validation.ValidateEmail(email); err != nil {
		return nil, models.NewFieldValidationError("email", err.Error())
	}
	if err := validation.ValidatePassword(in.Password); err != nil {
		return nil, models.NewFieldValidationError("password", err.Error())
	}

	taken, err := s.users.UsernameTaken(ctx, username)
	if err != nil {
		return nil, err
	}
	if taken {
		return nil, models.NewFieldValidationError("username", "A user with that username already exists")
	}
	if taken, err = s.users.EmailTaken(ctx, email, 0); err != nil {
		return nil, err
	}
	if taken {
		return nil, models.NewFieldValidationError("email", "A user with that email already exists")
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(in.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, models.NewInternalError(err)
	}
	user := &models.User{
		Username:    username,
		Email:       email,
		Password:    string(hashed),
		DisplayName: strings.TrimSpace(in.DisplayName),
		Role:        models.RoleUser,
	}
	if err := s.users.Create(ctx, user); err != nil {
		return nil, err
	}

	token, err := s.IssueToken(user)
	if err != nil {
		return nil, err
	}
	return &TokenResult{Token: token, User: user}, nil
}

// Login checks the credentials and returns a fresh token. Unknown users and wrong
// passwords are indistinguishable to the caller.
func (s *AuthService) Login(ctx context.Context, username, password string) (*TokenResult, error) {
	if strings.TrimSpace(username) == "" || password == "" {
		return nil, models.NewValidationError("Username and password are required")
	}
	user, err := s.users.GetByUsername(ctx, strings.TrimSpace(username))
	if err != nil {
		if models.ErrorCode(err) == models.CodeNotFound {
			return nil, models.NewUnauthorizedError("Invalid credentials")
		}
		return nil, err
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(password)); err != nil {
		return nil, models.NewUnauthorizedError("Invalid credentials")
	}

	token, err := s.IssueToken(user)
	if err != nil {
		return nil, err
	}
	return &TokenResult{Token: token, User: user}, nil
}

// IssueToken signs an HS256 access token for user.
func (s *AuthService) IssueToken(user *models.User) (string, error) {
	if s.secret == "" {
		return "", models.NewInternalError(errors.New("JWT secret not configured"))
	}
	role := user.Role
	if user.IsAdmin() {
		role = models.RoleAdmin
	}

	now := s.now()
	claims := middleware.Claims{
		Username: user.Username,
		Role:     string(role),
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   strconv.FormatUint(uint64(user.ID), 10),
			Issuer:    middleware.TokenIssuer,
			Audience:  jwt.ClaimStrings{middleware.TokenAudience},
			ExpiresAt: jwt.NewNumericDate(now.Add(TokenTTL)),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ID:        uuid.NewString(),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(s.secret))
	if err != nil {
		return "", models.NewInternalError(fmt.Errorf("sign token: %w", err))
	}
	return signed, nil
}
