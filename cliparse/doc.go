// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

// Package cliparse handles command-line argument parsing and configuration.
//
// # Configuration
//
// ParseFlags returns a Config struct with all settings:
//
//	cfg, err := cliparse.ParseFlags(os.Args[1:])
//
// # Config Fields
//
//   - Port: Server listen port (default: 3318)
//   - DatabaseURL: SQLite or PostgreSQL connection string (required)
//   - DatabaseType: sqlite (default) or postgres
//   - ActorTokenSalt: Secret for actor token HMAC (required)
//   - SweepSchedule: When to close overdue proposals (default: @every 1m).
//     Either a descriptor (@every 5m, @hourly, @daily) or a six-field cron
//     spec whose first field is seconds: "0 */5 * * * *" runs every five
//     minutes. Five-field crontab lines are rejected.
//   - EnvFile: Optional file with environment defaults (default: .env)
//
// # CLI Flags
//
//	-p            Server port
//	-d            Database URL
//	-t            Database type
//	--actor-salt  Actor token salt
//	--sweep       Sweep schedule; --sweep= disables the sweeper
//	--env-file    Env file path
//
// # Environment Variables
//
// Flags fall back to environment variables:
//
//	PORT             → -p
//	DATABASE_URL     → -d
//	DATABASE_TYPE    → -t
//	ACTOR_TOKEN_SALT → --actor-salt
//	SWEEP_SCHEDULE   → --sweep
//
// CLI flags take precedence over environment variables. Variables in the env
// file only fill in what the environment does not already set. A missing env
// file is ignored.
//
// # Validation
//
// ParseFlags returns an error if DATABASE_URL or ACTOR_TOKEN_SALT is missing,
// if PORT is not a number, or if the database type is unknown.
package cliparse
