// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package models

import (
	"time"

	"github.com/danielhkuo/vve-governance/governance"
)

// Request types

type CreateProposalRequest struct {
	Title       string     `json:"title"`
	Description string     `json:"description"`
	Policy      string     `json:"policy"`
	MeetingID   *string    `json:"meeting_id,omitempty"`
	ClosesAt    *time.Time `json:"closes_at,omitempty"`
	// Open publishes the proposal right away instead of leaving a draft.
	Open bool `json:"open"`
}

// Absent fields are left unchanged.
type EditProposalRequest struct {
	Title       *string    `json:"title,omitempty"`
	Description *string    `json:"description,omitempty"`
	Policy      *string    `json:"policy,omitempty"`
	MeetingID   *string    `json:"meeting_id,omitempty"`
	ClosesAt    *time.Time `json:"closes_at,omitempty"`
}

// CastBallotRequest casts for one unit, a list of units, or, when both are
// empty, every unit the actor controls.
type CastBallotRequest struct {
	Choice  string   `json:"choice"`
	UnitID  string   `json:"unit_id,omitempty"`
	UnitIDs []string `json:"unit_ids,omitempty"`
}

type CreateUnitRequest struct {
	ID      string   `json:"id,omitempty"`
	OwnerID string   `json:"owner_id"`
	Label   string   `json:"label"`
	Weight  *float64 `json:"weight,omitempty"`
}

type UpdateUnitRequest struct {
	OwnerID     *string  `json:"owner_id,omitempty"`
	Label       *string  `json:"label,omitempty"`
	Weight      *float64 `json:"weight,omitempty"`
	ClearWeight bool     `json:"clear_weight,omitempty"`
}

// Response types

type ProposalResponse struct {
	Proposal governance.Proposal         `json:"proposal"`
	Decision governance.DecisionSnapshot `json:"decision"`
	Outcome  governance.Outcome          `json:"outcome"`
}

type ListProposalsResponse struct {
	Proposals []governance.Proposal `json:"proposals"`
}

type CastBallotResponse struct {
	Ballots []governance.Ballot `json:"ballots"`
}

type BallotsResponse struct {
	ProposalID string              `json:"proposal_id"`
	Ballots    []governance.Ballot `json:"ballots"`
}

type MemberUnitsResponse struct {
	PersonID string                  `json:"person_id"`
	Role     governance.Role         `json:"role,omitempty"`
	Units    []governance.VotingUnit `json:"units"`
}

type HealthResponse struct {
	Status string `json:"status"`
}

// Error response

type ErrorResponse struct {
	Error   string `json:"error"`
	Code    string `json:"code,omitempty"`
	Message string `json:"message,omitempty"`
}
