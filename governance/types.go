// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package governance

import "time"

// Policy is the majority rule a proposal is decided by.
type Policy string

const (
	PolicySimple             Policy = "simple"
	PolicyQualifiedTwoThirds Policy = "qualified_two_thirds"
	PolicyUnanimous          Policy = "unanimous"
)

func (p Policy) Valid() bool {
	switch p {
	case PolicySimple, PolicyQualifiedTwoThirds, PolicyUnanimous:
		return true
	}
	return false
}

// Status is the lifecycle state of a proposal.
type Status string

const (
	StatusDraft    Status = "draft"
	StatusOpen     Status = "open"
	StatusAccepted Status = "accepted"
	StatusRejected Status = "rejected"
	StatusExpired  Status = "expired"
)

func (s Status) Valid() bool {
	switch s {
	case StatusDraft, StatusOpen, StatusAccepted, StatusRejected, StatusExpired:
		return true
	}
	return false
}

// Terminal reports whether no further transition is possible from s.
func (s Status) Terminal() bool {
	return s == StatusAccepted || s == StatusRejected || s == StatusExpired
}

// Choice is what a ballot says.
type Choice string

const (
	ChoiceFor     Choice = "for"
	ChoiceAgainst Choice = "against"
	ChoiceAbstain Choice = "abstain"
)

func (c Choice) Valid() bool {
	return c == ChoiceFor || c == ChoiceAgainst || c == ChoiceAbstain
}

// Role is the privilege class of an acting person.
type Role string

const (
	RoleMember     Role = "member"
	RoleManager    Role = "manager"
	RoleSuperAdmin Role = "superadmin"
)

func (r Role) Valid() bool {
	return r == RoleMember || r == RoleManager || r == RoleSuperAdmin
}

// CanManage reports whether r may create and transition proposals.
func (r Role) CanManage() bool {
	return r == RoleManager || r == RoleSuperAdmin
}

// Actor is the person performing an operation. It is always passed
// explicitly; nothing in this package looks up a current user.
type Actor struct {
	PersonID string `json:"person_id"`
	Role     Role   `json:"role"`
}

// DefaultWeight applies to voting units without an explicit weight.
const DefaultWeight = 1.0

// VotingUnit is a share of ownership entitled to one ballot per proposal.
type VotingUnit struct {
	ID      string   `json:"id"`
	OwnerID string   `json:"owner_id"`
	Label   string   `json:"label,omitempty"`
	Weight  *float64 `json:"weight,omitempty"`
}

// EffectiveWeight returns the unit's weight, or DefaultWeight when unset.
func (u VotingUnit) EffectiveWeight() float64 {
	if u.Weight == nil {
		return DefaultWeight
	}
	return *u.Weight
}

type Proposal struct {
	ID          string     `json:"id"`
	Title       string     `json:"title"`
	Description string     `json:"description"`
	Policy      Policy     `json:"policy"`
	Status      Status     `json:"status"`
	AuthorID    string     `json:"author_id"`
	MeetingID   *string    `json:"meeting_id,omitempty"`
	ClosesAt    *time.Time `json:"closes_at,omitempty"`
	DecidedAt   *time.Time `json:"decided_at,omitempty"`
	// EligibleAtClose is the number of voting units when the proposal
	// reached a terminal status.
	EligibleAtClose *int `json:"eligible_at_close,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
}

// Ballot is one cast vote. Weight is copied from the unit when the ballot
// is cast and never recomputed.
type Ballot struct {
	ID         string    `json:"id"`
	ProposalID string    `json:"proposal_id"`
	UnitID     string    `json:"unit_id"`
	CasterID   string    `json:"caster_id"`
	Choice     Choice    `json:"choice"`
	Weight     float64   `json:"weight"`
	CastAt     time.Time `json:"cast_at"`
}
