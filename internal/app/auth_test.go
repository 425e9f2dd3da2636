package app_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"quizlytic-service/internal/app"
	"quizlytic-service/internal/domain"
	"quizlytic-service/internal/infra/memory"
)

func TestSignUpAndSignIn(t *testing.T) {
	ctx := context.Background()
	auth := app.NewAuthService(memory.NewStore(), "test-secret", time.Hour)

	user, token, err := auth.SignUp(ctx, "  Alice@Example.COM ", "hunter22")
	if err != nil {
		t.Fatalf("sign up failed: %v", err)
	}
	if user.Email != "alice@example.com" {
		t.Fatalf("expected normalized email, got %q", user.Email)
	}
	if token == "" {
		t.Fatal("expected a token on sign up")
	}

	resolved, err := auth.CurrentUser(ctx, token)
	if err != nil {
		t.Fatalf("resolve token failed: %v", err)
	}
	if resolved.ID != user.ID {
		t.Fatalf("token resolved to wrong user: %+v", resolved)
	}

	if _, _, err := auth.SignIn(ctx, "alice@example.com", "hunter22"); err != nil {
		t.Fatalf("sign in failed: %v", err)
	}
	if _, _, err := auth.SignIn(ctx, "alice@example.com", "wrong-pass"); !errors.Is(err, domain.ErrInvalidCredentials) {
		t.Fatalf("expected invalid credentials, got %v", err)
	}
	if _, _, err := auth.SignIn(ctx, "nobody@example.com", "hunter22"); !errors.Is(err, domain.ErrInvalidCredentials) {
		t.Fatalf("expected invalid credentials for unknown email, got %v", err)
	}
}

func TestSignUpRejectsDuplicatesAndWeakInput(t *testing.T) {
	ctx := context.Background()
	auth := app.NewAuthService(memory.NewStore(), "test-secret", time.Hour)

	if _, _, err := auth.SignUp(ctx, "bob@example.com", "longenough"); err != nil {
		t.Fatalf("sign up failed: %v", err)
	}
	if _, _, err := auth.SignUp(ctx, "BOB@example.com", "longenough"); !errors.Is(err, domain.ErrEmailTaken) {
		t.Fatalf("expected duplicate email error, got %v", err)
	}
	if _, _, err := auth.SignUp(ctx, "not-an-email", "longenough"); err == nil {
		t.Fatal("expected invalid email error")
	}
	if _, _, err := auth.SignUp(ctx, "carol@example.com", "short"); err == nil {
		t.Fatal("expected short password error")
	}
}

func TestExpiredTokenIsRejected(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()
	auth := app.NewAuthService(store, "test-secret", time.Minute)

	user, token, err := auth.SignUp(ctx, "dora@example.com", "longenough")
	if err != nil {
		t.Fatalf("sign up failed: %v", err)
	}

	// Same store and secret; only the clock differs.
	soon := app.NewAuthService(store, "test-secret", time.Minute)
	soon.WithClock(func() time.Time { return time.Now().Add(30 * time.Second) })
	resolved, err := soon.CurrentUser(ctx, token)
	if err != nil {
		t.Fatalf("token rejected before expiry: %v", err)
	}
	if resolved.ID != user.ID {
		t.Fatalf("token resolved to wrong user: %+v", resolved)
	}

	late := app.NewAuthService(store, "test-secret", time.Minute)
	late.WithClock(func() time.Time { return time.Now().Add(2 * time.Minute) })
	if _, err := late.CurrentUser(ctx, token); err == nil {
		t.Fatal("expected expired token to be rejected")
	}
}

func TestTokenSignedWithOtherSecretIsRejected(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()
	auth := app.NewAuthService(store, "secret-a", time.Hour)
	other := app.NewAuthService(store, "secret-b", time.Hour)

	_, token, err := auth.SignUp(ctx, "eli@example.com", "longenough")
	if err != nil {
		t.Fatalf("sign up failed: %v", err)
	}
	if _, err := other.CurrentUser(ctx, token); err == nil {
		t.Fatal("expected token from other secret to be rejected")
	}
}
