// Command admin creates an administrator account, or promotes an existing
// user, against the database configured for the server.
//
//	admin -username admin -email admin@example.com
//
// The password is read from the terminal without echo.
package main

import (
	"context"
	"database/sql"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"os"

	"github.com/dmitrijs2005/neurorecall/internal/admin"
	"github.com/dmitrijs2005/neurorecall/internal/flagx"
	"github.com/dmitrijs2005/neurorecall/internal/logging"
	"github.com/dmitrijs2005/neurorecall/internal/server/config"
	"github.com/dmitrijs2005/neurorecall/internal/server/ratelimit"
	"github.com/dmitrijs2005/neurorecall/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/neurorecall/internal/server/services"
)

func main() {
	if err := run(context.Background()); err != nil {
		log.Fatalf("%v", err)
	}
}

func run(ctx context.Context) error {
	var userName, email string

	fs := flag.NewFlagSet("admin", flag.ContinueOnError)
	fs.StringVar(&userName, "username", "", "admin user name")
	fs.StringVar(&email, "email", "", "admin email, used when the account is created")
	if err := fs.Parse(flagx.FilterArgs(os.Args[1:], []string{"-username", "-email"})); err != nil {
		return err
	}

	cfg := config.LoadConfig()
	logger := logging.New(logging.FormatConsole, os.Stderr, slog.LevelWarn)

	db, err := sql.Open("pgx", cfg.DatabaseDSN)
	if err != nil {
		return fmt.Errorf("db open error: %w", err)
	}
	defer db.Close()

	rm, err := repomanager.NewPostgresRepositoryManager(db)
	if err != nil {
		return fmt.Errorf("db init error: %w", err)
	}
	if err := rm.RunMigrations(ctx, db); err != nil {
		return fmt.Errorf("migrations error: %w", err)
	}

	limiter := ratelimit.NewLimiter(ratelimit.NewMemoryCounter(), cfg.MaxLoginAttempts, cfg.LoginLockoutDuration)
	users := services.NewUserService(db, rm, cfg, limiter, logger)

	_, err = admin.NewBootstrap(users, os.Stdin, os.Stdout).Run(ctx, userName, email)
	return err
}
