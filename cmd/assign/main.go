package main

import (
	"context"
	"flag"
	"log"

	"github.com/fitcoach-app/CoachChatBack/internal/config"
	"github.com/fitcoach-app/CoachChatBack/internal/database"
	"github.com/fitcoach-app/CoachChatBack/internal/repository"
	"github.com/fitcoach-app/CoachChatBack/internal/services"
)

// Assigns a coach to a user from the command line. Ends the user's
// previous active assignment and creates the conversation in the same
// transaction.
func main() {
	userID := flag.String("user", "", "user id to assign a coach to")
	coachID := flag.String("coach", "", "coach id")
	adminID := flag.String("admin", "", "acting admin id (optional)")
	end := flag.String("end", "", "assignment id to end instead of creating one")
	flag.Parse()

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	if cfg.DBUrl == "" {
		log.Fatal("DB_URL is required")
	}

	ctx := context.Background()
	db, err := database.Connect(ctx, cfg.DBUrl)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()

	userRepo := repository.NewUserRepository(db)
	assignmentRepo := repository.NewAssignmentRepository(db)
	service := services.NewAssignmentService(db, userRepo, assignmentRepo)

	if *end != "" {
		assignment, err := service.EndAssignment(ctx, *end)
		if err != nil {
			log.Fatalf("Failed to end assignment: %v", err)
		}
		log.Printf("Ended assignment %s (user %s, coach %s)", assignment.ID, assignment.UserID, assignment.CoachID)
		return
	}

	if *userID == "" || *coachID == "" {
		log.Fatal("-user and -coach are required")
	}

	assignment, conversation, err := service.CreateAssignment(ctx, *userID, *coachID, *adminID)
	if err != nil {
		log.Fatalf("Failed to create assignment: %v", err)
	}
	log.Printf("Created assignment %s with conversation %s", assignment.ID, conversation.ID)
}
