package services

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/fitcoach-app/CoachChatBack/internal/models"
	"github.com/fitcoach-app/CoachChatBack/internal/repository"
)

type assignmentManager interface {
	GetByID(ctx context.Context, id string) (*models.Assignment, error)
	FindActivePair(ctx context.Context, userID, coachID string) (*models.Assignment, error)
	UpdateStatus(ctx context.Context, id, status string) (*models.Assignment, error)
}

// AssignmentService owns the coach-to-user assignment lifecycle,
// including the reassignment sequence the chat layer depends on being
// atomic: end the user's previous ACTIVE assignment, create the new
// one, create its conversation. A partial unique index on
// assignments(user_id) WHERE status = 'ACTIVE' backs the at-most-one
// invariant at the database level.
type AssignmentService struct {
	db          *pgxpool.Pool
	users       userReader
	assignments assignmentManager
}

func NewAssignmentService(
	db *pgxpool.Pool,
	users userReader,
	assignments assignmentManager,
) *AssignmentService {
	return &AssignmentService{db: db, users: users, assignments: assignments}
}

func (s *AssignmentService) CreateAssignment(
	ctx context.Context,
	userID string,
	coachID string,
	assignedBy string,
) (*models.Assignment, *models.Conversation, error) {
	if userID == "" || coachID == "" || userID == coachID {
		return nil, nil, ErrInvalidInput
	}

	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil, ErrUserNotFound
		}
		return nil, nil, err
	}
	if user.Role != models.RoleUser {
		return nil, nil, ErrInvalidInput
	}

	coach, err := s.users.GetByID(ctx, coachID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil, ErrCoachNotFound
		}
		return nil, nil, err
	}
	if coach.Role != models.RoleCoach {
		return nil, nil, ErrInvalidInput
	}

	if _, err := s.assignments.FindActivePair(ctx, userID, coachID); err == nil {
		return nil, nil, ErrConflict
	} else if !errors.Is(err, pgx.ErrNoRows) {
		return nil, nil, err
	}

	tx, err := s.db.Begin(ctx)
	if err != nil {
		return nil, nil, err
	}
	defer func() {
		_ = tx.Rollback(ctx)
	}()

	txAssignmentRepo := repository.NewAssignmentRepository(tx)
	txConversationRepo := repository.NewConversationRepository(tx)

	if err := txAssignmentRepo.EndActiveForUser(ctx, userID); err != nil {
		return nil, nil, err
	}

	assignment, err := txAssignmentRepo.Create(ctx, userID, coachID, assignedBy)
	if err != nil {
		return nil, nil, err
	}

	conversation, err := txConversationRepo.Create(ctx, assignment.ID)
	if err != nil {
		return nil, nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, nil, err
	}

	assignment.ConversationID = conversation.ID
	return assignment, conversation, nil
}

func (s *AssignmentService) EndAssignment(ctx context.Context, assignmentID string) (*models.Assignment, error) {
	assignment, err := s.assignments.GetByID(ctx, assignmentID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, pgx.ErrNoRows
		}
		return nil, err
	}

	if assignment.Status != models.AssignmentActive {
		return nil, ErrInvalidStatus
	}

	return s.assignments.UpdateStatus(ctx, assignmentID, models.AssignmentEnded)
}
