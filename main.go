// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/danielhkuo/vve-governance/auth"
	"github.com/danielhkuo/vve-governance/cliparse"
	"github.com/danielhkuo/vve-governance/db"
	"github.com/danielhkuo/vve-governance/governance"
	"github.com/danielhkuo/vve-governance/middleware"
	"github.com/danielhkuo/vve-governance/router"
	"github.com/danielhkuo/vve-governance/sweeper"
)

func main() {
	if len(os.Args) > 1 && os.Args[1] == "token" {
		if err := issueToken(os.Args[2:]); err != nil {
			slog.Error("Error issuing token", "error", err)
			os.Exit(1)
		}
		return
	}

	cfg, err := cliparse.ParseFlags(os.Args[1:])
	if err != nil {
		slog.Error("Error parsing flags", "error", err)
		os.Exit(1)
	}

	if err := serve(cfg); err != nil {
		slog.Error("Server closed", "error", err)
		os.Exit(1)
	}
	slog.Info("Server closed")
}

func serve(cfg cliparse.Config) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	dbConn, err := db.Open(ctx, cfg.DatabaseType, cfg.DatabaseURL)
	if err != nil {
		return err
	}
	defer dbConn.Close()

	if err := db.CreateSchema(ctx, dbConn); err != nil {
		return err
	}
	slog.Info("Database schema ready", "type", cfg.DatabaseType)

	store := db.NewStore(dbConn)
	svc := governance.NewService(store)

	server := http.Server{
		Handler: middleware.CORS(router.NewRouterWithService(store, svc, cfg)),
		Addr:    ":" + strconv.Itoa(cfg.Port),
	}

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		slog.Info("Listening", "port", cfg.Port)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})

	if cfg.SweepSchedule != "" {
		g.Go(func() error {
			return sweeper.New(svc.Lifecycle).Run(ctx, cfg.SweepSchedule)
		})
	} else {
		slog.Info("expiry sweeper disabled")
	}

	return g.Wait()
}

// issueToken prints an actor token for the configured salt:
//
//	vve-governance token -person alice -role member
func issueToken(args []string) error {
	fs := flag.NewFlagSet("token", flag.ContinueOnError)
	person := fs.String("person", "", "Person ID")
	role := fs.String("role", string(governance.RoleMember), "Role (member, manager, superadmin)")
	salt := fs.String("actor-salt", "", "Actor token salt (default ACTOR_TOKEN_SALT env)")
	if err := fs.Parse(args); err != nil {
		return err
	}

	if *person == "" {
		return errors.New("-person is required")
	}
	if !governance.Role(*role).Valid() {
		return fmt.Errorf("unknown role %q", *role)
	}
	if *salt == "" {
		*salt = os.Getenv("ACTOR_TOKEN_SALT")
	}
	if *salt == "" {
		return errors.New("ACTOR_TOKEN_SALT required")
	}

	fmt.Println(auth.GenerateActorToken(*person, governance.Role(*role), *salt))
	return nil
}
