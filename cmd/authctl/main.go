// Command authctl runs operator tasks against the auth database: schema
// migration and account deactivation/reactivation.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/ovaphlow/pitchfork/service-gig-auth/internal/config"
	profilerepo "github.com/ovaphlow/pitchfork/service-gig-auth/internal/profile/repo"
	"github.com/ovaphlow/pitchfork/service-gig-auth/internal/token"
	"github.com/ovaphlow/pitchfork/service-gig-auth/internal/user"
	userrepo "github.com/ovaphlow/pitchfork/service-gig-auth/internal/user/repo"
	"github.com/ovaphlow/pitchfork/service-gig-auth/pkg/database"
	"github.com/ovaphlow/pitchfork/service-gig-auth/pkg/utilities"
)

const usage = `usage: authctl <command> [flags]

commands:
  migrate                create or update tables and indexes
  deactivate -email E    block logins and revoke issued tokens
  reactivate -email E    allow logins again`

func main() {
	if len(os.Args) < 2 {
		fmt.Fprintln(os.Stderr, usage)
		os.Exit(2)
	}
	cmd, args := os.Args[1], os.Args[2:]

	fs := flag.NewFlagSet(cmd, flag.ExitOnError)
	email := fs.String("email", "", "account email")
	timeout := fs.Duration("timeout", 30*time.Second, "overall deadline")
	_ = fs.Parse(args)

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}

	// init logger
	lg, err := utilities.Init(cfg.Log)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to init logger: %v\n", err)
		os.Exit(1)
	}
	defer lg.Sync()
	sugar := lg.Sugar()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx, cancel := context.WithTimeout(ctx, *timeout)
	defer cancel()

	if err := run(ctx, cfg, sugar, cmd, *email); err != nil {
		sugar.Errorw("authctl failed", "command", cmd, "err", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg config.Config, sugar *zap.SugaredLogger, cmd, email string) error {
	switch cmd {
	case "migrate", "deactivate", "reactivate":
	default:
		return fmt.Errorf("unknown command %q\n%s", cmd, usage)
	}
	if cmd != "migrate" && email == "" {
		return errors.New("-email is required")
	}

	db, err := database.Connect(cfg.Database)
	if err != nil {
		return fmt.Errorf("db connect: %w", err)
	}
	defer db.Close()

	users := userrepo.NewUserRepo(db)
	profiles := profilerepo.NewProfileRepo(db)

	if cmd == "migrate" {
		if err := users.EnsureTable(ctx); err != nil {
			return fmt.Errorf("ensure users table: %w", err)
		}
		if err := profiles.EnsureTable(ctx); err != nil {
			return fmt.Errorf("ensure profile tables: %w", err)
		}
		sugar.Info("schema is up to date")
		return nil
	}

	tokens, err := token.NewService(token.Config{Secret: []byte(cfg.JWTSecret), TTL: cfg.TokenTTL, Issuer: cfg.JWTIssuer})
	if err != nil {
		return err
	}
	svc, err := user.NewUserService(users, profiles, tokens, sugar, user.WithHasher(user.BcryptHasher{Cost: cfg.BcryptCost}))
	if err != nil {
		return err
	}
	if cmd == "deactivate" {
		err = svc.Deactivate(ctx, email)
	} else {
		err = svc.Reactivate(ctx, email)
	}
	if err != nil {
		return err
	}
	sugar.Infow("done", "command", cmd, "email", email)
	return nil
}
