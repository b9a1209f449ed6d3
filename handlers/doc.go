// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package handlers contains HTTP request handlers for the VvE governance API.

# Handler Types

Each handler is a struct holding the governance service and config:

  - ProposalHandler: Proposal lifecycle (create, edit, open, revert, finalize, delete)
  - VotingHandler: Ballot casting and the caller's own ballots
  - ResultsHandler: Decision snapshots and the ballot list
  - MemberHandler: Voting unit registry and per-person unit lists

Handlers are created via constructor functions:

	proposalHandler := handlers.NewProposalHandler(svc, cfg)

# Proposal Lifecycle

Proposals move draft → open → accepted, rejected or expired. An open
proposal may return to draft only while it has no ballots.

	POST /proposals               → CreateProposal
	PATCH /proposals/{id}         → EditProposal (draft only, author)
	POST /proposals/{id}/open     → OpenProposal
	POST /proposals/{id}/revert   → RevertProposal
	POST /proposals/{id}/finalize → FinalizeProposal

# Voting

	POST /proposals/{id}/ballots  → CastBallots

A body with unit_id casts one ballot. unit_ids casts for each listed unit,
and an empty selection casts for every unit the caller owns. Batches are
all or nothing.

# Identity

Every mutating endpoint requires the X-Actor-Token header. Missing or
forged tokens get 401; a role that may not perform the operation gets 403.

# Errors

Governance errors map to statuses in errors.go and carry a stable code in
the JSON body, e.g. {"error": "Conflict", "code": "duplicate_vote"}.
*/
package handlers
