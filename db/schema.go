// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package db

import (
	"context"
	"database/sql"
	"fmt"
)

// CreateSchema creates all tables needed for the application.
// Safe to call multiple times - uses IF NOT EXISTS.
func CreateSchema(ctx context.Context, db *sql.DB) error {
	_, err := db.ExecContext(ctx, schema)
	if err != nil {
		return fmt.Errorf("failed to create schema: %w", err)
	}

	return nil
}

// The schema sticks to SQL that both SQLite and PostgreSQL accept.
const schema = `
-- Voting units (apartment rights); ownership is maintained by the member registry
CREATE TABLE IF NOT EXISTS voting_unit (
    id TEXT PRIMARY KEY,
    owner_id TEXT NOT NULL,
    label TEXT NOT NULL DEFAULT '',
    weight REAL CHECK (weight IS NULL OR weight > 0),
    created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE INDEX IF NOT EXISTS idx_voting_unit_owner_id ON voting_unit(owner_id);

-- Proposals
CREATE TABLE IF NOT EXISTS proposal (
    id TEXT PRIMARY KEY,
    title TEXT NOT NULL,
    description TEXT NOT NULL DEFAULT '',
    policy TEXT NOT NULL CHECK (policy IN ('simple', 'qualified_two_thirds', 'unanimous')),
    status TEXT NOT NULL DEFAULT 'draft' CHECK (status IN ('draft', 'open', 'accepted', 'rejected', 'expired')),
    author_id TEXT NOT NULL,
    meeting_id TEXT,
    closes_at TIMESTAMP,
    decided_at TIMESTAMP,
    eligible_at_close INTEGER,
    created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE INDEX IF NOT EXISTS idx_proposal_status ON proposal(status);

-- Ballots: one per proposal and voting unit. unit_id is not a foreign key
-- so ballots outlive the unit they were cast for.
CREATE TABLE IF NOT EXISTS ballot (
    id TEXT PRIMARY KEY,
    proposal_id TEXT NOT NULL REFERENCES proposal(id) ON DELETE CASCADE,
    unit_id TEXT NOT NULL,
    caster_id TEXT NOT NULL,
    choice TEXT NOT NULL CHECK (choice IN ('for', 'against', 'abstain')),
    weight REAL NOT NULL CHECK (weight > 0),
    cast_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
    UNIQUE (proposal_id, unit_id)
);

CREATE INDEX IF NOT EXISTS idx_ballot_proposal_id ON ballot(proposal_id);
CREATE INDEX IF NOT EXISTS idx_ballot_caster ON ballot(proposal_id, caster_id);
`
