package services

import (
	"context"
	"errors"
	"testing"

	"github.com/fitcoach-app/CoachChatBack/internal/models"
	"github.com/fitcoach-app/CoachChatBack/pkg/utils"
)

const testSecret = "supersecret"

func TestAuthenticateResolvesUser(t *testing.T) {
	users := &stubUsers{users: map[string]*models.User{
		"user-1": {ID: "user-1", Name: "Dana", Email: "dana@example.com", Role: models.RoleUser},
	}}
	verifier := NewSessionVerifier(users, testSecret)

	token, err := utils.GenerateToken("user-1", models.RoleUser, testSecret)
	if err != nil {
		t.Fatalf("GenerateToken: %v", err)
	}

	user, err := verifier.Authenticate(context.Background(), token)
	if err != nil {
		t.Fatalf("Authenticate: %v", err)
	}
	if user.ID != "user-1" || user.Name != "Dana" || user.Role != models.RoleUser {
		t.Fatalf("unexpected user: %+v", user)
	}
}

func TestAuthenticateMissingCredential(t *testing.T) {
	verifier := NewSessionVerifier(&stubUsers{}, testSecret)

	_, err := verifier.Authenticate(context.Background(), "")
	if !errors.Is(err, ErrMissingCredential) {
		t.Fatalf("expected ErrMissingCredential, got %v", err)
	}
}

func TestAuthenticateRejectsTamperedToken(t *testing.T) {
	verifier := NewSessionVerifier(&stubUsers{}, testSecret)

	token, err := utils.GenerateToken("user-1", models.RoleUser, "othersecret")
	if err != nil {
		t.Fatalf("GenerateToken: %v", err)
	}

	_, err = verifier.Authenticate(context.Background(), token)
	if !errors.Is(err, ErrInvalidCredential) {
		t.Fatalf("expected ErrInvalidCredential, got %v", err)
	}
}

func TestAuthenticateUnknownSubject(t *testing.T) {
	verifier := NewSessionVerifier(&stubUsers{users: map[string]*models.User{}}, testSecret)

	token, err := utils.GenerateToken("deleted-user", models.RoleUser, testSecret)
	if err != nil {
		t.Fatalf("GenerateToken: %v", err)
	}

	_, err = verifier.Authenticate(context.Background(), token)
	if !errors.Is(err, ErrUnknownUser) {
		t.Fatalf("expected ErrUnknownUser, got %v", err)
	}
}
