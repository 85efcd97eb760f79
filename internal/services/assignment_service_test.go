package services

import (
	"context"
	"errors"
	"testing"

	"github.com/jackc/pgx/v5"

	"github.com/fitcoach-app/CoachChatBack/internal/models"
)

type stubAssignmentManager struct {
	byID       *models.Assignment
	byIDErr    error
	activePair *models.Assignment
	pairErr    error
	updated    *models.Assignment
	lastStatus string
}

func (s *stubAssignmentManager) GetByID(_ context.Context, _ string) (*models.Assignment, error) {
	if s.byIDErr != nil {
		return nil, s.byIDErr
	}
	copied := *s.byID
	return &copied, nil
}

func (s *stubAssignmentManager) FindActivePair(_ context.Context, _, _ string) (*models.Assignment, error) {
	if s.pairErr != nil {
		return nil, s.pairErr
	}
	copied := *s.activePair
	return &copied, nil
}

func (s *stubAssignmentManager) UpdateStatus(_ context.Context, id, status string) (*models.Assignment, error) {
	s.lastStatus = status
	if s.updated != nil {
		copied := *s.updated
		return &copied, nil
	}
	copied := *s.byID
	copied.Status = status
	_ = id
	return &copied, nil
}

func assignmentUsers() *stubUsers {
	return &stubUsers{users: map[string]*models.User{
		"user-1":  {ID: "user-1", Role: models.RoleUser},
		"coach-1": {ID: "coach-1", Role: models.RoleCoach},
		"admin-1": {ID: "admin-1", Role: models.RoleAdmin},
	}}
}

func TestCreateAssignmentValidation(t *testing.T) {
	cases := []struct {
		name    string
		userID  string
		coachID string
		want    error
	}{
		{"empty user", "", "coach-1", ErrInvalidInput},
		{"empty coach", "user-1", "", ErrInvalidInput},
		{"self assignment", "user-1", "user-1", ErrInvalidInput},
		{"unknown user", "ghost", "coach-1", ErrUserNotFound},
		{"unknown coach", "user-1", "ghost", ErrCoachNotFound},
		{"coach as assignee", "coach-1", "user-1", ErrInvalidInput},
		{"user as coach", "user-1", "admin-1", ErrInvalidInput},
	}

	service := NewAssignmentService(nil, assignmentUsers(), &stubAssignmentManager{pairErr: pgx.ErrNoRows})
	for _, tc := range cases {
		_, _, err := service.CreateAssignment(context.Background(), tc.userID, tc.coachID, "admin-1")
		if !errors.Is(err, tc.want) {
			t.Errorf("%s: expected %v, got %v", tc.name, tc.want, err)
		}
	}
}

func TestCreateAssignmentRejectsDuplicateActivePair(t *testing.T) {
	manager := &stubAssignmentManager{
		activePair: &models.Assignment{ID: "assign-1", UserID: "user-1", CoachID: "coach-1", Status: models.AssignmentActive},
	}
	service := NewAssignmentService(nil, assignmentUsers(), manager)

	_, _, err := service.CreateAssignment(context.Background(), "user-1", "coach-1", "admin-1")
	if !errors.Is(err, ErrConflict) {
		t.Fatalf("expected ErrConflict, got %v", err)
	}
}

func TestEndAssignmentUnknown(t *testing.T) {
	service := NewAssignmentService(nil, assignmentUsers(), &stubAssignmentManager{byIDErr: pgx.ErrNoRows})

	_, err := service.EndAssignment(context.Background(), "missing")
	if !errors.Is(err, pgx.ErrNoRows) {
		t.Fatalf("expected pgx.ErrNoRows, got %v", err)
	}
}

func TestEndAssignmentRequiresActiveStatus(t *testing.T) {
	manager := &stubAssignmentManager{
		byID: &models.Assignment{ID: "assign-1", Status: models.AssignmentEnded},
	}
	service := NewAssignmentService(nil, assignmentUsers(), manager)

	_, err := service.EndAssignment(context.Background(), "assign-1")
	if !errors.Is(err, ErrInvalidStatus) {
		t.Fatalf("expected ErrInvalidStatus, got %v", err)
	}
}

func TestEndAssignmentFlipsStatus(t *testing.T) {
	manager := &stubAssignmentManager{
		byID: &models.Assignment{ID: "assign-1", UserID: "user-1", CoachID: "coach-1", Status: models.AssignmentActive},
	}
	service := NewAssignmentService(nil, assignmentUsers(), manager)

	assignment, err := service.EndAssignment(context.Background(), "assign-1")
	if err != nil {
		t.Fatalf("EndAssignment: %v", err)
	}
	if assignment.Status != models.AssignmentEnded || manager.lastStatus != models.AssignmentEnded {
		t.Fatalf("unexpected status: %+v", assignment)
	}
}
