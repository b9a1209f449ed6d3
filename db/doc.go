// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package db persists voting units, proposals and ballots in SQLite or
PostgreSQL.

# Connecting

	conn, err := db.Open(ctx, db.TypeSQLite, "file:vve.db?_pragma=foreign_keys(1)")
	if err != nil {
		log.Fatal(err)
	}
	if err := db.CreateSchema(ctx, conn); err != nil {
		log.Fatal(err)
	}

CreateSchema is safe to call multiple times; it uses IF NOT EXISTS for all
tables and indexes.

# Tables

  - voting_unit: apartment rights with owner and optional weight
  - proposal: proposal content and lifecycle state
  - ballot: one ballot per proposal and voting unit

# Concurrency

Store implements the governance store interfaces. Ballot inserts run in a
transaction that first locks the proposal row with a no-op update guarded by
status = 'open', then inserts with ON CONFLICT DO NOTHING. A concurrent close
therefore either waits for the insert or makes it fail with
governance.ErrProposalNotOpen, and two ballots for the same unit never both
land. Status changes are compare-and-set on the current status; reverting to
draft additionally requires that no ballot exists.
*/
package db
