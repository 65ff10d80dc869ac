package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/mansoorceksport/floorplan/internal/config"
	"github.com/mansoorceksport/floorplan/internal/domain"
	"github.com/mansoorceksport/floorplan/internal/repository"
	"github.com/mansoorceksport/floorplan/internal/service"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// seed/admin bootstraps the first ADMIN account. Sign-up only ever creates
// USER accounts, so somebody has to hold the role before the promote
// endpoint can be used.
func main() {
	email := flag.String("email", "", "Admin email (required)")
	name := flag.String("name", "Administrator", "Display name")
	password := flag.String("password", os.Getenv("SEED_ADMIN_PASSWORD"), "Password, defaults to $SEED_ADMIN_PASSWORD")
	flag.Parse()

	if *email == "" || *password == "" {
		fmt.Println("Usage: seed-admin -email <EMAIL> [-name <NAME>] [-password <PASSWORD>]")
		os.Exit(1)
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(cfg.MongoDB.URI))
	if err != nil {
		log.Fatalf("Failed to connect to Mongo: %v", err)
	}
	defer client.Disconnect(ctx)

	userRepo := repository.NewMongoUserRepository(client.Database(cfg.MongoDB.Database))
	authService := service.NewAuthService(userRepo, cfg.JWT)

	req := domain.SignUpRequest{
		Email:    *email,
		Name:     *name,
		Password: *password,
	}
	req.Normalize()

	user, err := authService.SignUp(ctx, req)
	switch {
	case errors.Is(err, domain.ErrConflict):
		// Existing account, only the role changes
		user, err = userRepo.GetByEmail(ctx, req.Email)
		if err != nil {
			log.Fatalf("Failed to load existing user: %v", err)
		}
		fmt.Printf("User %s already exists\n", user.Email)
	case err != nil:
		log.Fatalf("Failed to create user: %v", err)
	default:
		fmt.Printf("Created: %s\n", user.Email)
	}

	if user.IsAdmin() {
		fmt.Println("Already an admin, nothing to do.")
		return
	}
	if _, err := authService.Promote(ctx, user.ID, domain.RoleAdmin); err != nil {
		log.Fatalf("Failed to promote %s: %v", user.Email, err)
	}
	fmt.Printf("Promoted %s to %s\n", user.Email, domain.RoleAdmin)
}
