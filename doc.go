// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package main provides the entry point for the VvE governance API server.

The server records votes of a homeowners' association (Vereniging van
Eigenaars) on proposals, one ballot per voting unit, and decides them by
simple, two-thirds or unanimous majority of all eligible units.

# Starting the Server

The server requires environment variables or CLI flags for configuration:

	DATABASE_URL=file:vve.db ACTOR_TOKEN_SALT=... go run .

Or with flags:

	go run . -p 3318 -d "postgres://..." -t postgres -actor-salt ...

Settings may also come from a .env file (--env-file).

# Configuration

Required settings:

  - DATABASE_URL (-d): SQLite or PostgreSQL connection string
  - ACTOR_TOKEN_SALT (--actor-salt): Secret for actor token HMAC

Optional settings:

  - PORT (-p): Server port (default: 3318)
  - DATABASE_TYPE (-t): sqlite (default) or postgres
  - SWEEP_SCHEDULE (--sweep): Cron spec for expiring overdue proposals

# Issuing Tokens

	ACTOR_TOKEN_SALT=... go run . token -person alice -role member

# Architecture

  - governance: ledger, decision evaluator, proposal lifecycle, eligibility
  - db: SQLite and PostgreSQL store
  - handlers: HTTP request handlers
  - router: Route definitions using Go 1.22+ routing
  - middleware: CORS, logging, actor resolution, JSON helpers
  - models: Request/response types
  - auth: Actor token generation and validation
  - sweeper: Scheduled expiry of overdue proposals
  - cliparse: Configuration parsing

See package documentation for each component.
*/
package main
