package repository

import (
	"context"

	"github.com/google/uuid"

	"github.com/fitcoach-app/CoachChatBack/internal/models"
)

type AssignmentRepository struct {
	db DBTX
}

func NewAssignmentRepository(db DBTX) *AssignmentRepository {
	return &AssignmentRepository{db: db}
}

func (r *AssignmentRepository) Create(
	ctx context.Context,
	userID string,
	coachID string,
	assignedBy string,
) (*models.Assignment, error) {
	query := `
		INSERT INTO assignments (id, user_id, coach_id, assigned_by, status)
		VALUES ($1, $2, $3, NULLIF($4, ''), 'ACTIVE')
		RETURNING id, user_id, coach_id, COALESCE(assigned_by, ''), status, created_at
	`

	var assignment models.Assignment
	err := r.db.QueryRow(ctx, query, uuid.NewString(), userID, coachID, assignedBy).Scan(
		&assignment.ID,
		&assignment.UserID,
		&assignment.CoachID,
		&assignment.AssignedBy,
		&assignment.Status,
		&assignment.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	return &assignment, nil
}

func (r *AssignmentRepository) GetByID(ctx context.Context, id string) (*models.Assignment, error) {
	query := `
		SELECT id, user_id, coach_id, COALESCE(assigned_by, ''), status, created_at
		FROM assignments
		WHERE id = $1
	`

	var assignment models.Assignment
	err := r.db.QueryRow(ctx, query, id).Scan(
		&assignment.ID,
		&assignment.UserID,
		&assignment.CoachID,
		&assignment.AssignedBy,
		&assignment.Status,
		&assignment.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	return &assignment, nil
}

// ListActiveForParticipant returns every ACTIVE assignment where the
// given user is either party, with the backing conversation id joined
// in when the conversation row exists.
func (r *AssignmentRepository) ListActiveForParticipant(
	ctx context.Context,
	participantID string,
) ([]models.Assignment, error) {
	query := `
		SELECT a.id, a.user_id, a.coach_id, COALESCE(a.assigned_by, ''), a.status, a.created_at,
		       COALESCE(c.id, '')
		FROM assignments a
		LEFT JOIN conversations c ON c.assignment_id = a.id
		WHERE (a.user_id = $1 OR a.coach_id = $1)
		  AND a.status = 'ACTIVE'
		ORDER BY a.created_at DESC, a.id DESC
	`

	rows, err := r.db.Query(ctx, query, participantID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	assignments := make([]models.Assignment, 0)
	for rows.Next() {
		var assignment models.Assignment
		if err := rows.Scan(
			&assignment.ID,
			&assignment.UserID,
			&assignment.CoachID,
			&assignment.AssignedBy,
			&assignment.Status,
			&assignment.CreatedAt,
			&assignment.ConversationID,
		); err != nil {
			return nil, err
		}
		assignments = append(assignments, assignment)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return assignments, nil
}

// FindActivePair returns the ACTIVE assignment linking the exact
// user/coach pair, or pgx.ErrNoRows.
func (r *AssignmentRepository) FindActivePair(
	ctx context.Context,
	userID string,
	coachID string,
) (*models.Assignment, error) {
	query := `
		SELECT id, user_id, coach_id, COALESCE(assigned_by, ''), status, created_at
		FROM assignments
		WHERE user_id = $1 AND coach_id = $2 AND status = 'ACTIVE'
	`

	var assignment models.Assignment
	err := r.db.QueryRow(ctx, query, userID, coachID).Scan(
		&assignment.ID,
		&assignment.UserID,
		&assignment.CoachID,
		&assignment.AssignedBy,
		&assignment.Status,
		&assignment.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	return &assignment, nil
}

func (r *AssignmentRepository) EndActiveForUser(ctx context.Context, userID string) error {
	_, err := r.db.Exec(ctx, `
		UPDATE assignments
		SET status = 'ENDED'
		WHERE user_id = $1 AND status = 'ACTIVE'
	`, userID)
	return err
}

func (r *AssignmentRepository) UpdateStatus(
	ctx context.Context,
	id string,
	status string,
) (*models.Assignment, error) {
	query := `
		UPDATE assignments
		SET status = $2
		WHERE id = $1
		RETURNING id, user_id, coach_id, COALESCE(assigned_by, ''), status, created_at
	`

	var assignment models.Assignment
	err := r.db.QueryRow(ctx, query, id, status).Scan(
		&assignment.ID,
		&assignment.UserID,
		&assignment.CoachID,
		&assignment.AssignedBy,
		&assignment.Status,
		&assignment.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	return &assignment, nil
}
