package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/stemsi/student-records/internal/config"
	"github.com/stemsi/student-records/internal/database"
	"github.com/stemsi/student-records/internal/logger"
	"github.com/stemsi/student-records/internal/model"
	"github.com/stemsi/student-records/internal/repository"
	"github.com/stemsi/student-records/internal/service"
)

var names = []string{
	"Ana Souza", "Bruno Lima", "Carla Mendes", "Diego Alves", "Eduarda Rocha",
	"Felipe Castro", "Gabriela Nunes", "Henrique Barros", "Isabela Freitas", "João Pedro Dias",
	"Karina Moreira", "Lucas Teixeira", "Mariana Costa", "Nicolas Ribeiro", "Olívia Martins",
	"Paulo Henrique", "Queila Santos", "Rafael Gomes", "Sofia Carvalho", "Thiago Araújo",
	"Úrsula Pires", "Vinícius Melo", "Wesley Cardoso", "Ximena Duarte", "Yasmin Lopes",
}

func main() {
	count := flag.Int("n", 50, "Number of students to insert")
	owner := flag.String("owner", "", "Email of the admin who owns the seeded rows")
	prefix := flag.String("prefix", "SEED", "Enrollment prefix")
	flag.Parse()

	cfg := config.Load()
	log := logger.Setup(cfg.LogLevel, cfg.LogFormat, os.Stdout)
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
	defer cancel()

	if *owner == "" {
		log.Fatal().Msg("-owner is required")
	}

	pool, err := database.NewPostgresPool(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to PostgreSQL")
	}
	defer pool.Close()

	rdb, err := database.NewRedisClient(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to Redis")
	}
	defer rdb.Close()

	userRepo := repository.NewUserRepository(pool)
	roleRepo := repository.NewRoleRepository(pool)
	studentRepo := repository.NewStudentRepository(pool)

	// Seeded rows go through the regular service so live dashboards and the
	// audit log see them.
	userService := service.NewUserService(userRepo, roleRepo)
	studentService := service.NewStudentService(studentRepo, repository.NewChangeRepository(rdb, log), log)

	admin, err := userRepo.GetByEmail(ctx, *owner)
	if err != nil {
		log.Fatal().Err(err).Str("email", *owner).Msg("Failed to find owner")
	}
	role, err := userService.GetRole(ctx, admin.ID)
	if err != nil || role.Role != model.RoleAdmin {
		log.Fatal().Str("email", *owner).Msg("Owner must be an admin")
	}

	fmt.Printf("=== Seeding %d Students ===\n", *count)

	base := time.Date(2007, time.January, 1, 0, 0, 0, 0, time.UTC)
	successCount := 0
	for i := 0; i < *count; i++ {
		status := model.StatusActive
		// Every fifth student is inactive.
		if i%5 == 4 {
			status = model.StatusInactive
		}

		fields := model.StudentFields{
			Name:       names[i%len(names)],
			Enrollment: fmt.Sprintf("%s%05d", *prefix, i+1),
			BirthDate:  base.AddDate(0, 0, i*37).Format("2006-01-02"),
			Email:      fmt.Sprintf("aluno%03d@escola.test", i+1),
			Status:     status,
		}

		_, err := studentService.Create(ctx, fields, admin.ID, admin.ID)
		switch {
		case errors.Is(err, repository.ErrDuplicateEnrollment):
			fmt.Printf("Skipping %s: enrollment already exists\n", fields.Enrollment)
		case err != nil:
			fmt.Printf("Error creating student %s (%s): %v\n", fields.Name, fields.Enrollment, err)
		default:
			successCount++
			if (i+1)%10 == 0 {
				fmt.Printf("Created %d students...\n", i+1)
			}
		}
	}

	fmt.Printf("\nSeed completed! Successfully added %d/%d students.\n", successCount, *count)
}
