// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package governance

import (
	"errors"
	"fmt"
)

var (
	ErrProposalNotOpen  = errors.New("proposal is not open for voting")
	ErrDuplicateVote    = errors.New("voting unit has already voted on this proposal")
	ErrUnitNotEligible  = errors.New("voting unit is not controlled by this person")
	ErrVotesAlreadyCast = errors.New("votes already cast; proposal cannot return to draft")
	ErrVotesCast        = errors.New("votes cast; deletion requires super-admin privilege")
	ErrStatusConflict   = errors.New("proposal status changed concurrently")

	ErrProposalNotFound  = errors.New("proposal not found")
	ErrUnitNotFound      = errors.New("voting unit not found")
	ErrInvalidTransition = errors.New("status transition not allowed")
	ErrProposalNotDraft  = errors.New("proposal is not a draft")
	ErrNotExpired        = errors.New("proposal deadline has not passed")
	ErrForbidden         = errors.New("actor is not allowed to perform this operation")
	ErrInvalidChoice     = errors.New("invalid ballot choice")
	ErrInvalidPolicy     = errors.New("invalid majority policy")
	ErrInvalidProposal   = errors.New("invalid proposal")
	ErrInvalidTally      = errors.New("inconsistent tally")
)

// BatchError reports the unit that stopped a batch cast. Nothing from the
// batch is persisted when it is returned.
type BatchError struct {
	UnitID string
	Err    error
}

func (e *BatchError) Error() string {
	return fmt.Sprintf("unit %s: %v", e.UnitID, e.Err)
}

func (e *BatchError) Unwrap() error {
	return e.Err
}
