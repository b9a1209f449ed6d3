// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package router defines HTTP routes for the governance API.

# Route Registration

NewRouter creates a configured http.ServeMux with all endpoints:

	mux := router.NewRouter(db, cfg)

NewRouterWithService does the same over an existing governance.Service.

# Endpoints

Health:

	GET /health

Voting unit registry (manager role):

	POST  /units      - Register a voting unit
	PATCH /units/{id} - Change owner, label or weight

Members:

	GET /members/me         - Units controlled by the actor
	GET /members/{id}/units - Units controlled by a person

Proposals:

	POST   /proposals               - Create (draft, or open with "open": true)
	GET    /proposals               - List
	GET    /proposals/{id}          - Proposal and current decision
	PATCH  /proposals/{id}          - Edit draft (author)
	DELETE /proposals/{id}          - Delete (super-admin once ballots exist)
	POST   /proposals/{id}/open     - draft → open
	POST   /proposals/{id}/revert   - open → draft, only without ballots
	POST   /proposals/{id}/finalize - open → accepted or rejected

Voting and results:

	POST /proposals/{id}/ballots    - Cast for one, several or all units
	GET  /proposals/{id}/ballots    - All ballots
	GET  /proposals/{id}/my-ballots - Ballots cast by the actor
	GET  /proposals/{id}/decision   - Decision snapshot

Acting endpoints require the X-Actor-Token header.
*/
package router
