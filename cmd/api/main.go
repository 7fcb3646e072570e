package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ovaphlow/pitchfork/service-gig-auth/internal/config"
	profilerepo "github.com/ovaphlow/pitchfork/service-gig-auth/internal/profile/repo"
	"github.com/ovaphlow/pitchfork/service-gig-auth/internal/router"
	"github.com/ovaphlow/pitchfork/service-gig-auth/internal/token"
	"github.com/ovaphlow/pitchfork/service-gig-auth/internal/user"
	userrepo "github.com/ovaphlow/pitchfork/service-gig-auth/internal/user/repo"
	"github.com/ovaphlow/pitchfork/service-gig-auth/pkg/database"
	"github.com/ovaphlow/pitchfork/service-gig-auth/pkg/utilities"
)

func main() {
	// .env is loaded inside config.Load
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
	sugar.Infow("starting service-gig-auth", "env", cfg.Environment, "addr", cfg.HTTPAddr)

	// init db
	db, err := database.Connect(cfg.Database)
	if err != nil {
		sugar.Fatalf("db connect: %v", err)
	}
	defer db.Close()

	// users before profiles, profiles reference users(id)
	users := userrepo.NewUserRepo(db)
	profiles := profilerepo.NewProfileRepo(db)
	migrateCtx, cancelMigrate := context.WithTimeout(context.Background(), 30*time.Second)
	if err := users.EnsureTable(migrateCtx); err != nil {
		sugar.Fatalf("ensure users table: %v", err)
	}
	if err := profiles.EnsureTable(migrateCtx); err != nil {
		sugar.Fatalf("ensure profile tables: %v", err)
	}
	cancelMigrate()

	ids, err := utilities.NewIDGenerator(cfg.SnowflakeNode)
	if err != nil {
		sugar.Fatalf("id generator: %v", err)
	}
	tokens, err := token.NewService(token.Config{
		Secret: []byte(cfg.JWTSecret),
		TTL:    cfg.TokenTTL,
		Issuer: cfg.JWTIssuer,
	})
	if err != nil {
		sugar.Fatalf("token service: %v", err)
	}
	svc, err := user.NewUserService(users, profiles, tokens, sugar,
		user.WithHasher(user.BcryptHasher{Cost: cfg.BcryptCost}),
		user.WithIDSource(ids),
		user.WithProfileAttempts(cfg.ProfileCreateAttempts),
	)
	if err != nil {
		sugar.Fatalf("user service: %v", err)
	}

	// graceful shutdown
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// mount http server
	handler := router.RegisterRoutes(sugar, user.NewHandler(svc, sugar, cfg.IsDevelopment()))
	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	// run server in background
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			sugar.Fatalf("http server failed: %v", err)
		}
	}()
	sugar.Info("service is running; press Ctrl+C to stop")

	<-ctx.Done()

	sugar.Info("shutting down")

	doneCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	// shutdown http server
	if err := srv.Shutdown(doneCtx); err != nil {
		sugar.Warnf("http server shutdown failed: %v", err)
	}

	sugar.Info("goodbye")
}
