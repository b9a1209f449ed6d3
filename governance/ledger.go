// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package governance

import (
	"context"
	"fmt"
	"time"
)

// Ledger casts and lists ballots.
type Ledger struct {
	proposals ProposalStore
	ballots   BallotStore
	resolver  *Resolver
	newID     func() string
	now       func() time.Time
}

func NewLedger(proposals ProposalStore, ballots BallotStore, resolver *Resolver, opts ...Option) *Ledger {
	o := buildOptions(opts)
	return &Ledger{
		proposals: proposals,
		ballots:   ballots,
		resolver:  resolver,
		newID:     o.newID,
		now:       o.now,
	}
}

// CastBallot records one ballot for unitID on behalf of personID. The
// unit's weight is copied into the ballot as it is right now.
func (l *Ledger) CastBallot(ctx context.Context, personID, proposalID, unitID string, choice Choice) (Ballot, error) {
	if !choice.Valid() {
		return Ballot{}, fmt.Errorf("%w: %q", ErrInvalidChoice, choice)
	}

	p, err := l.openProposal(ctx, proposalID)
	if err != nil {
		return Ballot{}, err
	}

	unit, err := l.resolver.Controls(ctx, personID, unitID)
	if err != nil {
		return Ballot{}, err
	}

	cast, err := l.resolver.HasCast(ctx, p.ID, unit.ID)
	if err != nil {
		return Ballot{}, err
	}
	if cast {
		return Ballot{}, fmt.Errorf("%w: unit %s", ErrDuplicateVote, unit.ID)
	}

	b := l.newBallot(p.ID, unit, personID, choice)
	if err := l.ballots.InsertBallotIfAbsent(ctx, b); err != nil {
		return Ballot{}, err
	}
	return b, nil
}

// CastBatch casts the same choice for several units in one step. Either
// every ballot is stored or none is. With no unitIDs it votes every unit
// personID controls.
func (l *Ledger) CastBatch(ctx context.Context, personID, proposalID string, choice Choice, unitIDs []string) ([]Ballot, error) {
	if !choice.Valid() {
		return nil, fmt.Errorf("%w: %q", ErrInvalidChoice, choice)
	}

	p, err := l.openProposal(ctx, proposalID)
	if err != nil {
		return nil, err
	}

	var units []VotingUnit
	if len(unitIDs) == 0 {
		units, err = l.resolver.UnitsControlledBy(ctx, personID)
		if err != nil {
			return nil, err
		}
		if len(units) == 0 {
			return nil, fmt.Errorf("%w: %s controls no voting units", ErrUnitNotEligible, personID)
		}
	} else {
		seen := make(map[string]bool, len(unitIDs))
		for _, id := range unitIDs {
			if seen[id] {
				return nil, &BatchError{UnitID: id, Err: ErrDuplicateVote}
			}
			seen[id] = true

			u, err := l.resolver.Controls(ctx, personID, id)
			if err != nil {
				return nil, &BatchError{UnitID: id, Err: err}
			}
			units = append(units, u)
		}
	}

	ballots := make([]Ballot, 0, len(units))
	for _, u := range units {
		cast, err := l.resolver.HasCast(ctx, p.ID, u.ID)
		if err != nil {
			return nil, err
		}
		if cast {
			return nil, &BatchError{UnitID: u.ID, Err: ErrDuplicateVote}
		}
		ballots = append(ballots, l.newBallot(p.ID, u, personID, choice))
	}

	if err := l.ballots.InsertBallotsIfAbsent(ctx, ballots); err != nil {
		return nil, err
	}
	return ballots, nil
}

func (l *Ledger) BallotsFor(ctx context.Context, proposalID string) ([]Ballot, error) {
	if _, err := l.proposals.GetProposal(ctx, proposalID); err != nil {
		return nil, err
	}
	return l.ballots.ListBallots(ctx, proposalID)
}

func (l *Ledger) BallotsBy(ctx context.Context, proposalID, casterID string) ([]Ballot, error) {
	if _, err := l.proposals.GetProposal(ctx, proposalID); err != nil {
		return nil, err
	}
	return l.ballots.ListBallotsBy(ctx, proposalID, casterID)
}

// openProposal returns the proposal if ballots may be cast on it now. An
// open proposal past its deadline counts as closed even before it has been
// expired.
func (l *Ledger) openProposal(ctx context.Context, proposalID string) (Proposal, error) {
	p, err := l.proposals.GetProposal(ctx, proposalID)
	if err != nil {
		return Proposal{}, err
	}
	if p.Status != StatusOpen {
		return Proposal{}, fmt.Errorf("%w: proposal %s is %s", ErrProposalNotOpen, p.ID, p.Status)
	}
	if p.ClosesAt != nil && !l.now().Before(*p.ClosesAt) {
		return Proposal{}, fmt.Errorf("%w: proposal %s closed at %s",
			ErrProposalNotOpen, p.ID, p.ClosesAt.Format(time.RFC3339))
	}
	return p, nil
}

func (l *Ledger) newBallot(proposalID string, u VotingUnit, personID string, choice Choice) Ballot {
	return Ballot{
		ID:         l.newID(),
		ProposalID: proposalID,
		UnitID:     u.ID,
		CasterID:   personID,
		Choice:     choice,
		Weight:     u.EffectiveWeight(),
		CastAt:     l.now(),
	}
}
