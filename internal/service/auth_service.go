package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/launchsignal/api/internal/auth"
	"github.com/launchsignal/api/internal/config"
	"github.com/launchsignal/api/internal/model"
	"github.com/launchsignal/api/internal/store"
)

// ErrInvalidCredentials is returned on login failure without revealing
// whether the account exists.
var ErrInvalidCredentials = errors.New("invalid email or password")

// AuthService handles registration and login. Registration creates the
// tenant and its first user in one step.
type AuthService struct {
	users  *store.UserStore
	jwtCfg config.JWTConfig
}

func NewAuthService(users *store.UserStore, jwtCfg config.JWTConfig) *AuthService {
	return &AuthService{users: users, jwtCfg: jwtCfg}
}

func (s *AuthService) Register(ctx context.Context, req *model.RegisterRequest) (*model.AuthResponse, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	tenant := &model.Tenant{
		TenantID: uuid.New().String(),
		Name:     req.TenantName,
	}
	if err := s.users.CreateTenant(ctx, tenant); err != nil {
		return nil, fmt.Errorf("failed to create tenant: %w", err)
	}

	user := &model.User{
		UserID:       uuid.New().String(),
		TenantID:     tenant.TenantID,
		Email:        req.Email,
		FirstName:    req.FirstName,
		LastName:     req.LastName,
		PasswordHash: string(hash),
	}
	if err := s.users.CreateUser(ctx, user); err != nil {
		return nil, err
	}

	return s.authResponse(user)
}

func (s *AuthService) Login(ctx context.Context, req *model.LoginRequest) (*model.AuthResponse, error) {
	user, err := s.users.FindByEmail(ctx, req.Email)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)); err != nil {
		return nil, ErrInvalidCredentials
	}

	return s.authResponse(user)
}

func (s *AuthService) authResponse(user *model.User) (*model.AuthResponse, error) {
	ttl := time.Duration(s.jwtCfg.Expiration) * time.Hour
	token, err := auth.IssueToken(s.jwtCfg.Secret, ttl, user.UserID, user.TenantID, user.Email)
	if err != nil {
		return nil, fmt.Errorf("failed to sign token: %w", err)
	}
	return &model.AuthResponse{
		Token:    token,
		UserID:   user.UserID,
		TenantID: user.TenantID,
		Email:    user.Email,
	}, nil
}
