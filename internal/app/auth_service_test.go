package app

import (
	"context"
	"errors"
	"testing"
	"time"

	"lawgpt/internal/model"
	"lawgpt/internal/pkg/jwtutil"
)

type memOperators struct {
	byName map[string]*model.Operator
	nextID uint
}

func newMemOperators() *memOperators {
	return &memOperators{byName: make(map[string]*model.Operator)}
}

func (m *memOperators) Create(ctx context.Context, op *model.Operator) error {
	m.nextID++
	op.ID = m.nextID
	m.byName[op.Username] = op
	return nil
}

func (m *memOperators) GetByUsername(ctx context.Context, username string) (*model.Operator, error) {
	return m.byName[username], nil
}

func TestCreateOperatorAndLogin(t *testing.T) {
	ops := newMemOperators()
	svc := NewAuthService(ops, "test-secret", time.Hour)
	ctx := context.Background()

	op, err := svc.CreateOperator(ctx, " clerk ", "correct-horse")
	if err != nil {
		t.Fatal(err)
	}
	if op.Username != "clerk" || op.PasswordHash == "correct-horse" {
		t.Fatalf("operator = %+v", op)
	}
	if _, err := svc.CreateOperator(ctx, "clerk", "another-pass"); !errors.Is(err, ErrUsernameExists) {
		t.Fatalf("duplicate: err = %v", err)
	}

	res, err := svc.Login(ctx, LoginInput{Username: "clerk", Password: "correct-horse"})
	if err != nil {
		t.Fatal(err)
	}
	claims, err := jwtutil.ParseToken("test-secret", res.Token)
	if err != nil {
		t.Fatal(err)
	}
	if claims.OperatorID != op.ID || claims.Username != "clerk" {
		t.Fatalf("claims = %+v", claims)
	}
}

func TestLoginFailures(t *testing.T) {
	ops := newMemOperators()
	svc := NewAuthService(ops, "test-secret", time.Hour)
	ctx := context.Background()
	if _, err := svc.CreateOperator(ctx, "clerk", "correct-horse"); err != nil {
		t.Fatal(err)
	}

	cases := []struct {
		name string
		in   LoginInput
		want error
	}{
		{"empty", LoginInput{}, ErrInvalidInput},
		{"unknown user", LoginInput{Username: "judge", Password: "correct-horse"}, ErrInvalidCredential},
		{"wrong password", LoginInput{Username: "clerk", Password: "battery-staple"}, ErrInvalidCredential},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := svc.Login(ctx, tc.in); !errors.Is(err, tc.want) {
				t.Fatalf("err = %v, want %v", err, tc.want)
			}
		})
	}
}

func TestCreateOperatorShortPassword(t *testing.T) {
	svc := NewAuthService(newMemOperators(), "s", time.Hour)
	if _, err := svc.CreateOperator(context.Background(), "clerk", "short"); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("err = %v", err)
	}
}
