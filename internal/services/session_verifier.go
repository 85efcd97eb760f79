package services

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"

	"github.com/fitcoach-app/CoachChatBack/internal/models"
	"github.com/fitcoach-app/CoachChatBack/pkg/utils"
)

// SessionVerifier resolves a bearer token to a user record. It runs
// once per connection, before the upgrade, so no socket ever exists for
// an unauthenticated caller.
type SessionVerifier struct {
	users  userReader
	secret string
}

func NewSessionVerifier(users userReader, secret string) *SessionVerifier {
	return &SessionVerifier{users: users, secret: secret}
}

func (v *SessionVerifier) Authenticate(ctx context.Context, token string) (*models.User, error) {
	if token == "" {
		return nil, ErrMissingCredential
	}

	claims, err := utils.ValidateToken(token, v.secret)
	if err != nil {
		return nil, ErrInvalidCredential
	}

	user, err := v.users.GetByID(ctx, claims.UserID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			// Valid signature over a deleted account.
			return nil, ErrUnknownUser
		}
		return nil, err
	}

	return user, nil
}
