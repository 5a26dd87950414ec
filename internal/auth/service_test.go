package auth

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/jpollard44/ai-saas-platform-sub000/internal/models"
	"github.com/jpollard44/ai-saas-platform-sub000/internal/store"
)

func TestRegisterLoginValidate(t *testing.T) {
	svc := NewService(store.NewMemory().Users(), "test-secret", time.Hour)
	ctx := context.Background()

	u, err := svc.Register(ctx, "  Ada@Example.com ", "correct horse", "Ada")
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	if u.Email != "ada@example.com" || u.Role != models.RoleUser || u.PasswordHash == "correct horse" {
		t.Errorf("unexpected user %+v", u)
	}

	if _, err := svc.Register(ctx, "ada@example.com", "another pass", "Ada 2"); !errors.Is(err, ErrDuplicateEmail) {
		t.Errorf("expected duplicate email, got %v", err)
	}

	token, err := svc.Login(ctx, "ADA@example.com", "correct horse")
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	id, role, err := svc.ValidateToken(ctx, token)
	if err != nil {
		t.Fatalf("validate: %v", err)
	}
	if id != u.ID || role != models.RoleUser {
		t.Errorf("token carries %s/%s", id, role)
	}
}

func TestLogin_InvalidCredentials(t *testing.T) {
	svc := NewService(store.NewMemory().Users(), "s", time.Hour)
	ctx := context.Background()
	_, _ = svc.Register(ctx, "bob@example.com", "password1", "Bob")

	if _, err := svc.Login(ctx, "bob@example.com", "wrong-pass"); !errors.Is(err, ErrInvalidCredentials) {
		t.Errorf("wrong password: expected invalid credentials, got %v", err)
	}
	if _, err := svc.Login(ctx, "nobody@example.com", "password1"); !errors.Is(err, ErrInvalidCredentials) {
		t.Errorf("unknown user: expected invalid credentials, got %v", err)
	}
}

func TestRegister_Validation(t *testing.T) {
	svc := NewService(store.NewMemory().Users(), "s", time.Hour)
	if _, err := svc.Register(context.Background(), "not-an-email", "password1", "X"); !errors.Is(err, models.ErrInvalidField) {
		t.Errorf("expected invalid email, got %v", err)
	}
	if _, err := svc.Register(context.Background(), "x@example.com", "short", "X"); !errors.Is(err, models.ErrInvalidField) {
		t.Errorf("expected short password rejected, got %v", err)
	}
}

func TestValidateToken_Rejects(t *testing.T) {
	users := store.NewMemory().Users()
	svc := NewService(users, "secret-a", time.Hour)
	other := NewService(users, "secret-b", time.Hour)

	token, err := other.issueToken(uuid.New(), models.RoleUser)
	if err != nil {
		t.Fatal(err)
	}
	if _, _, err := svc.ValidateToken(context.Background(), token); !errors.Is(err, ErrInvalidToken) {
		t.Errorf("foreign secret: expected invalid token, got %v", err)
	}

	expired := NewService(users, "secret-a", time.Hour)
	expired.now = func() time.Time { return time.Now().Add(-2 * time.Hour) }
	token, _ = expired.issueToken(uuid.New(), models.RoleUser)
	if _, _, err := svc.ValidateToken(context.Background(), token); !errors.Is(err, ErrInvalidToken) {
		t.Errorf("expired: expected invalid token, got %v", err)
	}

	if _, _, err := svc.ValidateToken(context.Background(), "garbage"); !errors.Is(err, ErrInvalidToken) {
		t.Errorf("garbage: expected invalid token, got %v", err)
	}
}
