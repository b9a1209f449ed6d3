// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package governance

import (
	"context"
	"fmt"
)

// Tally is the count-based summary a decision is computed from. Counts are
// per voting unit. The weight sums are for reporting only and never feed a
// threshold.
type Tally struct {
	TotalEligible int `json:"total_eligible"`
	VotesCast     int `json:"votes_cast"`
	VotesFor      int `json:"votes_for"`
	VotesAgainst  int `json:"votes_against"`

	WeightCast    float64 `json:"weight_cast"`
	WeightFor     float64 `json:"weight_for"`
	WeightAgainst float64 `json:"weight_against"`
}

// Validate rejects tallies no real electorate can produce.
func (t Tally) Validate() error {
	switch {
	case t.TotalEligible < 0 || t.VotesCast < 0 || t.VotesFor < 0 || t.VotesAgainst < 0:
		return fmt.Errorf("%w: negative count in %+v", ErrInvalidTally, t)
	case t.VotesFor+t.VotesAgainst > t.VotesCast:
		return fmt.Errorf("%w: %d for + %d against exceeds %d cast",
			ErrInvalidTally, t.VotesFor, t.VotesAgainst, t.VotesCast)
	case t.VotesCast > t.TotalEligible:
		return fmt.Errorf("%w: %d cast exceeds %d eligible",
			ErrInvalidTally, t.VotesCast, t.TotalEligible)
	}
	return nil
}

// DeriveTally aggregates raw ballots against the eligible units. Ballots
// for other proposals are ignored. Abstentions count as cast only.
func DeriveTally(proposalID string, eligible []VotingUnit, ballots []Ballot) Tally {
	t := Tally{TotalEligible: len(eligible)}
	for _, b := range ballots {
		if b.ProposalID != proposalID {
			continue
		}
		t.VotesCast++
		t.WeightCast += b.Weight
		switch b.Choice {
		case ChoiceFor:
			t.VotesFor++
			t.WeightFor += b.Weight
		case ChoiceAgainst:
			t.VotesAgainst++
			t.WeightAgainst += b.Weight
		}
	}
	return t
}

// Counter resolves the tally of a proposal. It prefers a pre-aggregated
// source and falls back to deriving the tally from units and ballots.
type Counter struct {
	source  TallySource
	units   UnitStore
	ballots BallotStore
}

func NewCounter(source TallySource, units UnitStore, ballots BallotStore) *Counter {
	return &Counter{source: source, units: units, ballots: ballots}
}

func (c *Counter) Tally(ctx context.Context, proposalID string) (Tally, error) {
	var t Tally
	if c.source != nil {
		var err error
		t, err = c.source.Tally(ctx, proposalID)
		if err != nil {
			return Tally{}, fmt.Errorf("failed to read tally: %w", err)
		}
	} else {
		units, err := c.units.ListAllUnits(ctx)
		if err != nil {
			return Tally{}, fmt.Errorf("failed to list units: %w", err)
		}
		ballots, err := c.ballots.ListBallots(ctx, proposalID)
		if err != nil {
			return Tally{}, fmt.Errorf("failed to list ballots: %w", err)
		}
		t = DeriveTally(proposalID, units, ballots)
	}

	if err := t.Validate(); err != nil {
		return Tally{}, err
	}
	return t, nil
}
