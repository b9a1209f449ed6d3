// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package models defines request and response types for the API.

Domain types (proposals, ballots, voting units, decision snapshots) live in
package governance and are embedded here as-is.

# Request Types

  - CreateProposalRequest: title, description, policy, meeting_id, closes_at, open
  - EditProposalRequest: optional title, description, policy, meeting_id, closes_at
  - CastBallotRequest: choice plus unit_id, unit_ids, or neither for all units
  - CreateUnitRequest: id, owner_id, label, weight
  - UpdateUnitRequest: optional owner_id, label, weight; clear_weight

# Response Types

  - ProposalResponse: proposal, decision, outcome
  - ListProposalsResponse: proposals
  - CastBallotResponse: ballots
  - BallotsResponse: proposal_id, ballots
  - MemberUnitsResponse: person_id, role, units
  - ErrorResponse: error, code, message
*/
package models
