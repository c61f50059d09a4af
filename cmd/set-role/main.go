package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"

	"github.com/stemsi/student-records/internal/config"
	"github.com/stemsi/student-records/internal/database"
	"github.com/stemsi/student-records/internal/logger"
	"github.com/stemsi/student-records/internal/model"
	"github.com/stemsi/student-records/internal/repository"
	"github.com/stemsi/student-records/internal/service"
)

func main() {
	email := flag.String("email", "", "Email of the account to change")
	role := flag.String("role", model.RoleAdmin, "New role (admin or user)")
	flag.Parse()

	if *email == "" {
		fmt.Println("Usage: set-role -email <email> [-role admin|user]")
		os.Exit(2)
	}

	// ─── Load Configuration ────────────────────────────────────────────
	cfg := config.Load()

	// ─── Initialize Logger ─────────────────────────────────────────────
	log := logger.Setup(cfg.LogLevel, cfg.LogFormat, os.Stdout)

	ctx := context.Background()

	// ─── Connect to PostgreSQL ─────────────────────────────────────────
	pool, err := database.NewPostgresPool(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to PostgreSQL")
	}
	defer pool.Close()

	userService := service.NewUserService(
		repository.NewUserRepository(pool),
		repository.NewRoleRepository(pool),
	)

	fmt.Println("=== Set User Role ===")

	u, err := userService.SetRoleByEmail(ctx, *email, *role)
	switch {
	case errors.Is(err, service.ErrUnknownRole):
		fmt.Printf("Error: Role must be %q or %q\n", model.RoleAdmin, model.RoleUser)
		os.Exit(1)
	case errors.Is(err, repository.ErrUserNotFound):
		fmt.Printf("Error: No account registered under %s\n", *email)
		os.Exit(1)
	case err != nil:
		log.Fatal().Err(err).Msg("Failed to set role")
	}

	fmt.Printf("\nSuccess! %s (%s) is now %s.\n", u.Email, u.ID, *role)
}
