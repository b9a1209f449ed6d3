// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package cliparse

import (
	"errors"
	"flag"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"github.com/robfig/cron"
)

const (
	DefaultPort          = 3318
	DefaultSweepSchedule = "@every 1m"
	DefaultEnvFile       = ".env"
)

type Config struct {
	Port           int
	DatabaseURL    string
	DatabaseType   string
	ActorTokenSalt string
	SweepSchedule  string
	EnvFile        string
}

// ParseFlags reads flags, then the env file, then environment variables.
// Flags win over the environment and the environment wins over the env file.
func ParseFlags(args []string) (Config, error) {
	var cfg Config

	fs := flag.NewFlagSet("vve-governance", flag.ContinueOnError)

	fs.IntVar(&cfg.Port, "p", 0, "Server port")
	fs.StringVar(&cfg.DatabaseURL, "d", "", "Database URL")
	fs.StringVar(&cfg.DatabaseType, "t", "", "Database type (sqlite or postgres)")
	fs.StringVar(&cfg.SweepSchedule, "sweep", "", "Schedule for closing overdue proposals: @every 1m, @hourly, or a 6-field cron spec starting with seconds (empty disables)")
	fs.StringVar(&cfg.EnvFile, "env-file", DefaultEnvFile, "Optional file with environment defaults")

	// Secrets (prefer env variables, but allow CLI for dev)
	fs.StringVar(&cfg.ActorTokenSalt, "actor-salt", "", "Actor token salt (prefer env)")

	if err := fs.Parse(args); err != nil {
		return Config{}, err
	}

	if err := loadEnvFile(cfg.EnvFile); err != nil {
		return Config{}, err
	}

	if cfg.Port == 0 {
		if portStr := os.Getenv("PORT"); portStr != "" {
			port, err := strconv.Atoi(portStr)
			if err != nil {
				return Config{}, errors.New("invalid PORT env variable")
			}
			cfg.Port = port
		} else {
			cfg.Port = DefaultPort
		}
	}

	if cfg.DatabaseURL == "" {
		cfg.DatabaseURL = os.Getenv("DATABASE_URL")
	}
	if cfg.DatabaseURL == "" {
		return Config{}, errors.New("database URL required (use -d or DATABASE_URL env)")
	}

	if cfg.DatabaseType == "" {
		cfg.DatabaseType = os.Getenv("DATABASE_TYPE")
		if cfg.DatabaseType == "" {
			cfg.DatabaseType = "sqlite"
		}
	}
	if cfg.DatabaseType != "sqlite" && cfg.DatabaseType != "postgres" {
		return Config{}, fmt.Errorf("unsupported database type %q", cfg.DatabaseType)
	}

	// An explicitly empty schedule disables the sweeper.
	if !isSet(fs, "sweep") {
		if schedule, ok := os.LookupEnv("SWEEP_SCHEDULE"); ok {
			cfg.SweepSchedule = schedule
		} else {
			cfg.SweepSchedule = DefaultSweepSchedule
		}
	}

	if err := validateSchedule(cfg.SweepSchedule); err != nil {
		return Config{}, err
	}

	// Secrets - MUST be provided
	if cfg.ActorTokenSalt == "" {
		cfg.ActorTokenSalt = os.Getenv("ACTOR_TOKEN_SALT")
	}
	if cfg.ActorTokenSalt == "" {
		return Config{}, errors.New("ACTOR_TOKEN_SALT required")
	}

	return cfg, nil
}

// loadEnvFile sets variables from path that are not already set. A missing
// file is not an error.
func loadEnvFile(path string) error {
	if path == "" {
		return nil
	}
	if err := godotenv.Load(path); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("failed to load env file %s: %w", path, err)
	}
	return nil
}

func isSet(fs *flag.FlagSet, name string) bool {
	set := false
	fs.Visit(func(f *flag.Flag) {
		if f.Name == name {
			set = true
		}
	})
	return set
}

// validateSchedule rejects specs the sweeper cannot run. The cron parser
// reads the first field as seconds, so a five-field crontab line would fire
// every few seconds instead of minutes; those are refused outright.
func validateSchedule(schedule string) error {
	if schedule == "" {
		return nil
	}
	if !strings.HasPrefix(schedule, "@") {
		if n := len(strings.Fields(schedule)); n != 6 {
			return fmt.Errorf("sweep schedule %q has %d fields, want 6 (seconds first) or a descriptor such as @every 1m", schedule, n)
		}
	}
	if _, err := cron.Parse(schedule); err != nil {
		return fmt.Errorf("invalid sweep schedule %q: %w", schedule, err)
	}
	return nil
}
