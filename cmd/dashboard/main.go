package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/stemsi/student-records/internal/config"
	"github.com/stemsi/student-records/internal/dashboard"
	"github.com/stemsi/student-records/internal/logger"
	"github.com/stemsi/student-records/internal/storeclient"
	ws "github.com/stemsi/student-records/internal/websocket"
	"golang.org/x/term"
)

// watchRetry is the pause before redialing a dropped change feed.
const watchRetry = 5 * time.Second

func main() {
	// ─── Load Configuration ────────────────────────────────────────────
	cfg := config.Load()

	apiURL := flag.String("api", cfg.APIBaseURL, "Base URL of the student records API")
	email := flag.String("email", "", "Account email (prompted when empty)")
	flag.Parse()

	// ─── Initialize Logger ─────────────────────────────────────────────
	// Logs go to stderr so they never interleave with the table on stdout.
	log := logger.Component(logger.Setup(cfg.LogLevel, cfg.LogFormat, os.Stderr), "dashboard")

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	client := storeclient.New(*apiURL, &http.Client{Timeout: 30 * time.Second}, log)
	sh := newShell(os.Stdin, os.Stdout, client)

	// ─── Sign In ───────────────────────────────────────────────────────
	if err := login(ctx, sh, client, *email); err != nil {
		fmt.Fprintln(os.Stderr, "Falha no login:", err)
		os.Exit(1)
	}
	defer func() {
		logoutCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := client.Logout(logoutCtx); err != nil {
			log.Warn().Err(err).Msg("Logout failed")
		}
	}()

	// ─── Activate Dashboard ────────────────────────────────────────────
	sh.ctrl = dashboard.NewController(client, dashboard.NotifierFunc(sh.notify), log)
	if err := sh.ctrl.Activate(ctx); err != nil {
		log.Debug().Err(err).Msg("Initial fetch failed")
	}

	// ─── Follow Change Feed ────────────────────────────────────────────
	go watch(ctx, client, sh, log)

	// A signal unblocks the pending read by closing stdin.
	go func() {
		<-ctx.Done()
		_ = os.Stdin.Close()
	}()

	if err := sh.run(ctx); err != nil && ctx.Err() == nil {
		log.Error().Err(err).Msg("Command loop failed")
	}
}

// login prompts for credentials and opens a session.
func login(ctx context.Context, sh *shell, client *storeclient.Client, email string) error {
	var err error
	if email == "" {
		if email, err = sh.ask("E-mail", ""); err != nil {
			return err
		}
	}

	sh.printf("Senha: ")
	password, err := readPassword(sh)
	if err != nil {
		return err
	}

	res, err := client.Login(ctx, email, password)
	if err != nil {
		return err
	}
	sh.printf("Bem-vindo(a), %s\n", res.User.Email)
	return nil
}

// readPassword reads without echo on a terminal and falls back to a plain
// line when stdin is piped.
func readPassword(sh *shell) (string, error) {
	fd := int(os.Stdin.Fd())
	if !term.IsTerminal(fd) {
		return sh.readLine()
	}
	b, err := term.ReadPassword(fd)
	sh.printf("\n")
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(b)), nil
}

// watch keeps the change feed open for the lifetime of ctx and refetches on
// every event.
func watch(ctx context.Context, client *storeclient.Client, sh *shell, log zerolog.Logger) {
	for {
		err := client.Watch(ctx, func(evt ws.ChangeEvent) {
			log.Debug().Str("action", string(evt.Action)).Str("student_id", evt.StudentID).Msg("Student changed")
			sh.onChange(ctx)
		})
		if ctx.Err() != nil {
			return
		}
		log.Warn().Err(err).Dur("retry_in", watchRetry).Msg("Change feed disconnected")

		select {
		case <-ctx.Done():
			return
		case <-time.After(watchRetry):
		}
	}
}

