package main

import (
	"errors"
	"flag"
	"fmt"
	"os"
	"strconv"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/stemsi/student-records/internal/config"
	"github.com/stemsi/student-records/internal/logger"
)

// migrator is the part of *migrate.Migrate the commands drive.
type migrator interface {
	Up() error
	Down() error
	Steps(n int) error
	Force(version int) error
	Version() (uint, bool, error)
}

var errUsage = errors.New("usage")

func main() {
	dir := flag.String("path", "migrations", "Path to migration files")
	flag.Parse()

	cfg := config.Load()
	log := logger.Setup(cfg.LogLevel, cfg.LogFormat, os.Stderr)

	if flag.NArg() == 0 {
		printUsage()
		os.Exit(2)
	}

	m, err := migrate.New("file://"+*dir, cfg.DatabaseURL)
	if err != nil {
		log.Fatal().Err(err).Str("path", *dir).Msg("Migration failed to initialize")
	}
	defer m.Close()

	out, err := run(m, flag.Args())
	if errors.Is(err, errUsage) {
		printUsage()
		os.Exit(2)
	}
	if err != nil {
		log.Fatal().Err(err).Str("command", flag.Arg(0)).Msg("Migration failed")
	}
	fmt.Println(out)
}

// run executes one command and returns the line to report. A schema that is
// already where it should be is not an error.
func run(m migrator, args []string) (string, error) {
	if len(args) == 0 {
		return "", errUsage
	}
	noChange := func(err error) error {
		if errors.Is(err, migrate.ErrNoChange) {
			return nil
		}
		return err
	}

	switch args[0] {
	case "up":
		if err := noChange(m.Up()); err != nil {
			return "", err
		}
		return "Migrated up successfully", nil
	case "down":
		if err := noChange(m.Down()); err != nil {
			return "", err
		}
		return "Migrated down successfully", nil
	case "steps":
		n, err := intArg(args)
		if err != nil {
			return "", err
		}
		if err := noChange(m.Steps(n)); err != nil {
			return "", err
		}
		return fmt.Sprintf("Applied %d step(s)", n), nil
	case "force":
		v, err := intArg(args)
		if err != nil {
			return "", err
		}
		if err := m.Force(v); err != nil {
			return "", err
		}
		return fmt.Sprintf("Forced version to %d", v), nil
	case "version":
		version, dirty, err := m.Version()
		if errors.Is(err, migrate.ErrNilVersion) {
			return "No migrations applied", nil
		}
		if err != nil {
			return "", err
		}
		return fmt.Sprintf("Version: %d, Dirty: %t", version, dirty), nil
	}
	return "", errUsage
}

func intArg(args []string) (int, error) {
	if len(args) < 2 {
		return 0, fmt.Errorf("%s requires a number: %w", args[0], errUsage)
	}
	n, err := strconv.Atoi(args[1])
	if err != nil {
		return 0, fmt.Errorf("invalid %s argument %q: %w", args[0], args[1], errUsage)
	}
	return n, nil
}

func printUsage() {
	fmt.Fprintln(os.Stderr, "Usage: migrate [flags] <command>")
	fmt.Fprintln(os.Stderr, "Commands: up, down, version, force <version>, steps <n>")
	fmt.Fprintln(os.Stderr, "Flags:")
	flag.PrintDefaults()
}
