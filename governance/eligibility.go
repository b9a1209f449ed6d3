// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package governance

import (
	"context"
	"errors"
	"fmt"
)

// Resolver answers which units a person may vote with.
type Resolver struct {
	units   UnitStore
	ballots BallotStore
}

func NewResolver(units UnitStore, ballots BallotStore) *Resolver {
	return &Resolver{units: units, ballots: ballots}
}

// UnitsControlledBy returns every unit currently owned by personID. An
// unknown person owns nothing, which is not an error.
func (r *Resolver) UnitsControlledBy(ctx context.Context, personID string) ([]VotingUnit, error) {
	if personID == "" {
		return []VotingUnit{}, nil
	}
	units, err := r.units.ListUnits(ctx, personID)
	if err != nil {
		return nil, fmt.Errorf("failed to list units of %s: %w", personID, err)
	}
	if units == nil {
		units = []VotingUnit{}
	}
	return units, nil
}

// Controls returns the unit if personID owns it, ErrUnitNotEligible if not.
func (r *Resolver) Controls(ctx context.Context, personID, unitID string) (VotingUnit, error) {
	u, err := r.units.GetUnit(ctx, unitID)
	if errors.Is(err, ErrUnitNotFound) {
		return VotingUnit{}, fmt.Errorf("%w: unknown unit %s", ErrUnitNotEligible, unitID)
	}
	if err != nil {
		return VotingUnit{}, fmt.Errorf("failed to get unit %s: %w", unitID, err)
	}
	if personID == "" || u.OwnerID != personID {
		return VotingUnit{}, fmt.Errorf("%w: unit %s", ErrUnitNotEligible, unitID)
	}
	return u, nil
}

// HasCast reports whether unitID already voted on proposalID. It is a
// pre-check only; the ballot store enforces uniqueness.
func (r *Resolver) HasCast(ctx context.Context, proposalID, unitID string) (bool, error) {
	cast, err := r.ballots.HasBallot(ctx, proposalID, unitID)
	if err != nil {
		return false, fmt.Errorf("failed to check ballot: %w", err)
	}
	return cast, nil
}
