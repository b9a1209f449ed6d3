// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package governance

import (
	"context"
	"time"
)

// UnitStore reads voting units. Ownership changes happen elsewhere.
type UnitStore interface {
	// GetUnit returns ErrUnitNotFound for unknown IDs.
	GetUnit(ctx context.Context, id string) (VotingUnit, error)
	// ListUnits returns the units owned by ownerID, possibly none.
	ListUnits(ctx context.Context, ownerID string) ([]VotingUnit, error)
	ListAllUnits(ctx context.Context) ([]VotingUnit, error)
}

// BallotStore persists ballots. The insert methods are the enforcement
// point for one ballot per (proposal, unit): they must be atomic against
// concurrent inserts and must only succeed while the proposal is open.
type BallotStore interface {
	// InsertBallotIfAbsent returns ErrDuplicateVote when the unit already
	// voted and ErrProposalNotOpen when the proposal is no longer open.
	InsertBallotIfAbsent(ctx context.Context, b Ballot) error
	// InsertBallotsIfAbsent inserts all ballots or none. A duplicate is
	// reported as a *BatchError wrapping ErrDuplicateVote.
	InsertBallotsIfAbsent(ctx context.Context, bs []Ballot) error
	HasBallot(ctx context.Context, proposalID, unitID string) (bool, error)
	CountBallots(ctx context.Context, proposalID string) (int, error)
	ListBallots(ctx context.Context, proposalID string) ([]Ballot, error)
	ListBallotsBy(ctx context.Context, proposalID, casterID string) ([]Ballot, error)
}

// ProposalStore persists proposals.
type ProposalStore interface {
	// GetProposal returns ErrProposalNotFound for unknown IDs.
	GetProposal(ctx context.Context, id string) (Proposal, error)
	ListProposals(ctx context.Context) ([]Proposal, error)
	// ListOverdue returns open proposals whose deadline is not after now.
	ListOverdue(ctx context.Context, now time.Time) ([]Proposal, error)
	CreateProposal(ctx context.Context, p Proposal) error
	// UpdateDraft stores edited content. It returns ErrStatusConflict
	// unless the stored proposal is still a draft.
	UpdateDraft(ctx context.Context, p Proposal) error
	// UpdateStatus moves id from one status to another only if the stored
	// status is still from; otherwise it returns ErrStatusConflict. When
	// to is StatusDraft it returns ErrVotesAlreadyCast if any ballot
	// exists. A terminal to records at as the decision time.
	UpdateStatus(ctx context.Context, id string, from, to Status, at time.Time) error
	// DeleteProposal removes the proposal and its ballots. Unless
	// withBallots is set it returns ErrVotesCast when any ballot exists;
	// the check and the delete must be atomic against concurrent casts.
	DeleteProposal(ctx context.Context, id string, withBallots bool) error
}

// TallySource is a pre-aggregated tally, e.g. a database view.
type TallySource interface {
	Tally(ctx context.Context, proposalID string) (Tally, error)
}

// Closer is implemented by stores that can count and close an open
// proposal in one step. verdict receives the tally and returns the terminal
// status to record; no ballot may be added between the two.
type Closer interface {
	CloseOpen(ctx context.Context, id string, at time.Time, verdict func(Tally) Status) (Status, error)
}

// Store is everything the service needs from persistence. A Store that also
// implements TallySource is used as the tally source.
type Store interface {
	UnitStore
	BallotStore
	ProposalStore
}
