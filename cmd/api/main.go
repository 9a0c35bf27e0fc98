package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/croissant/croissant-api/internal/config"
	"github.com/croissant/croissant-api/internal/db"
	"github.com/croissant/croissant-api/internal/handler"
	appmw "github.com/croissant/croissant-api/internal/middleware"
	"github.com/croissant/croissant-api/internal/server"
	"github.com/joho/godotenv"
)

func main() {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config load error: %v", err)
	}
	conn, err := db.Connect(cfg)
	if err != nil {
		log.Fatalf("db connect error: %v", err)
	}
	if err := db.Migrate(conn); err != nil {
		log.Fatalf("auto migrate error: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var (
		verifier appmw.TokenVerifier
		users    handler.UserDirectory
	)
	switch cfg.AuthMode {
	case config.AuthModeJWT:
		v, err := appmw.NewJWTVerifier(cfg.JWTSecret, cfg.JWTTTL)
		if err != nil {
			log.Fatalf("jwt verifier error: %v", err)
		}
		verifier = v
	default:
		v, err := appmw.NewFirebaseVerifier(ctx, cfg.FirebaseProjectID, cfg.FirebaseCredentialsFile)
		if err != nil {
			log.Fatalf("failed to init firebase auth: %v", err)
		}
		verifier = v
		users = v.Client()
	}

	srv := server.New(conn, server.Options{
		Verifier:         verifier,
		Users:            users,
		CORSHostSuffixes: cfg.CORSHostSuffixes,
		GitSHA:           cfg.GitSHA,
		BuildTime:        cfg.BuildTime,
	})

	addr := ":" + cfg.Port
	errCh := make(chan error, 1)
	go func() {
		log.Printf("starting server on %s auth=%s", addr, cfg.AuthMode)
		errCh <- srv.Start(addr)
	}()

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("server stopped: %v", err)
		}
	case <-ctx.Done():
		log.Printf("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Printf("shutdown error: %v", err)
		}
	}
}
