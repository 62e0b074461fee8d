package app

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"

	"lawgpt/internal/model"
	"lawgpt/internal/pkg/jwtutil"
)

var (
	ErrUsernameExists    = errors.New("username already exists")
	ErrInvalidCredential = errors.New("invalid username or password")
)

const minPasswordLen = 8

type OperatorStore interface {
	Create(ctx context.Context, op *model.Operator) error
	GetByUsername(ctx context.Context, username string) (*model.Operator, error)
}

// AuthService manages the operators allowed to use the admin API.
type AuthService struct {
	operators     OperatorStore
	jwtSecret     string
	jwtExpiration time.Duration
}

type LoginInput struct {
	Username string
	Password string
}

type AuthResult struct {
	Token    string          `json:"token"`
	Operator *model.Operator `json:"operator"`
}

func NewAuthService(operators OperatorStore, jwtSecret string, jwtExpiration time.Duration) *AuthService {
	return &AuthService{
		operators:     operators,
		jwtSecret:     jwtSecret,
		jwtExpiration: jwtExpiration,
	}
}

func (s *AuthService) CreateOperator(ctx context.Context, username, password string) (*model.Operator, error) {
	username = strings.TrimSpace(username)
	if username == "" || len(password) < minPasswordLen {
		return nil, ErrInvalidInput
	}

	existing, err := s.operators.GetByUsername(ctx, username)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, ErrUsernameExists
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("hash password failed: %w", err)
	}
	op := &model.Operator{Username: username, PasswordHash: string(hash)}
	if err := s.operators.Create(ctx, op); err != nil {
		return nil, err
	}
	return op, nil
}

func (s *AuthService) Login(ctx context.Context, input LoginInput) (*AuthResult, error) {
	username := strings.TrimSpace(input.Username)
	if username == "" || input.Password == "" {
		return nil, ErrInvalidInput
	}

	op, err := s.operators.GetByUsername(ctx, username)
	if err != nil {
		return nil, err
	}
	if op == nil {
		return nil, ErrInvalidCredential
	}
	if err := bcrypt.CompareHashAndPassword([]byte(op.PasswordHash), []byte(input.Password)); err != nil {
		return nil, ErrInvalidCredential
	}

	token, err := jwtutil.GenerateToken(s.jwtSecret, s.jwtExpiration, op.ID, op.Username)
	if err != nil {
		return nil, err
	}
	return &AuthResult{Token: token, Operator: op}, nil
}
