package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"invoicegen/internal/model"
	"invoicegen/internal/repository"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// DTOs for Request validation
type RegisterRequest struct {
	Email     string `json:"email" binding:"required,email"`
	Password  string `json:"password" binding:"required,min=8"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
}

type LoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

type TokenResponse struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
}

// UserResponse never exposes the password hash.
type UserResponse struct {
	ID                 uuid.UUID                `json:"id"`
	Email              string                   `json:"email"`
	FirstName          string                   `json:"first_name"`
	LastName           string                   `json:"last_name"`
	SubscriptionPlan   model.PlanType           `json:"subscription_plan"`
	SubscriptionStatus model.SubscriptionStatus `json:"subscription_status"`
	CreatedAt          time.Time                `json:"created_at"`
}

type AuthService interface {
	Register(ctx context.Context, req RegisterRequest) (*UserResponse, error)
	Login(ctx context.Context, req LoginRequest) (*TokenResponse, error)
	GetUser(ctx context.Context, id uuid.UUID) (*UserResponse, error)
}

type authService struct {
	repo      repository.UserRepository
	secret    []byte
	expiresIn time.Duration
	now       func() time.Time
}

func NewAuthService(repo repository.UserRepository, secret string, expiresIn time.Duration) AuthService {
	return &authService{repo: repo, secret: []byte(secret), expiresIn: expiresIn, now: time.Now}
}

func mapUser(user *model.User) *UserResponse {
	return &UserResponse{
		ID:                 user.ID,
		Email:              user.Email,
		FirstName:          user.FirstName,
		LastName:           user.LastName,
		SubscriptionPlan:   user.SubscriptionPlan,
		SubscriptionStatus: user.SubscriptionStatus,
		CreatedAt:          utc(user.CreatedAt),
	}
}

func (s *authService) Register(ctx context.Context, req RegisterRequest) (*UserResponse, error) {
	email := strings.ToLower(strings.TrimSpace(req.Email))
	if _, err := s.repo.GetByEmail(ctx, email); err == nil {
		return nil, invalid("email", "already registered")
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	user := &model.User{
		Email:              email,
		Password:           string(hashed),
		FirstName:          req.FirstName,
		LastName:           req.LastName,
		SubscriptionPlan:   model.PlanFree,
		SubscriptionStatus: model.SubscriptionActive,
	}
	if err := s.repo.Create(ctx, user); err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, invalid("email", "already registered")
		}
		return nil, err
	}
	return mapUser(user), nil
}

func (s *authService) Login(ctx context.Context, req LoginRequest) (*TokenResponse, error) {
	user, err := s.repo.GetByEmail(ctx, strings.ToLower(strings.TrimSpace(req.Email)))
	if err != nil {
		return nil, ErrUnauthorized
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(req.Password)); err != nil {
		return nil, ErrUnauthorized
	}

	expiresAt := s.now().Add(s.expiresIn).UTC()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub":  user.ID.String(),
		"plan": string(user.SubscriptionPlan),
		"exp":  expiresAt.Unix(),
	})
	tokenString, err := token.SignedString(s.secret)
	if err != nil {
		return nil, fmt.Errorf("failed to generate token: %w", err)
	}
	return &TokenResponse{Token: tokenString, ExpiresAt: expiresAt}, nil
}

func (s *authService) GetUser(ctx context.Context, id uuid.UUID) (*UserResponse, error) {
	user, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, translate(err, "user")
	}
	return mapUser(user), nil
}
