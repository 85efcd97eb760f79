package services

import "errors"

var (
	// Handshake phase. These abort the connection before any operation
	// is possible.
	ErrMissingCredential = errors.New("authentication token is required")
	ErrInvalidCredential = errors.New("invalid or expired token")
	ErrUnknownUser       = errors.New("unknown user")

	// Operation phase. Returned to the caller, never fatal to the
	// connection.
	ErrForbidden            = errors.New("forbidden")
	ErrInvalidInput         = errors.New("invalid input")
	ErrConflict             = errors.New("conflict")
	ErrInvalidStatus        = errors.New("invalid status")
	ErrConversationNotFound = errors.New("conversation not found")
	ErrMessageNotFound      = errors.New("message not found")
	ErrUserNotFound         = errors.New("user not found")
	ErrCoachNotFound        = errors.New("coach not found")
)
