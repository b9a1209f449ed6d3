// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package governance

import "fmt"

// Outcome is the momentary verdict carried by a DecisionSnapshot.
type Outcome string

const (
	OutcomePassed     Outcome = "passed"
	OutcomeImpossible Outcome = "impossible"
	OutcomePending    Outcome = "pending"
)

// DecisionSnapshot is derived from a Tally and a Policy on demand. It is
// advisory: computing one never changes a proposal's status.
type DecisionSnapshot struct {
	Policy         Policy `json:"policy"`
	TotalEligible  int    `json:"total_eligible"`
	VotesCast      int    `json:"votes_cast"`
	VotesFor       int    `json:"votes_for"`
	VotesAgainst   int    `json:"votes_against"`
	VotesAbstain   int    `json:"votes_abstain"`
	VotesUncast    int    `json:"votes_uncast"`
	RequiredFor    int    `json:"required_for"`
	StillNeeded    int    `json:"still_needed"`
	MaxPossibleFor int    `json:"max_possible_for"`
	IsPassed       bool   `json:"is_passed"`
	IsImpossible   bool   `json:"is_impossible"`
}

func (d DecisionSnapshot) Outcome() Outcome {
	switch {
	case d.IsPassed:
		return OutcomePassed
	case d.IsImpossible:
		return OutcomeImpossible
	default:
		return OutcomePending
	}
}

// RequiredFor returns the number of FOR votes a proposal needs, measured
// against the whole electorate rather than the ballots cast.
func RequiredFor(policy Policy, totalEligible int) int {
	switch policy {
	case PolicyUnanimous:
		return totalEligible
	case PolicyQualifiedTwoThirds:
		// ceil(2n/3)
		return (2*totalEligible + 2) / 3
	default:
		return totalEligible/2 + 1
	}
}

// Evaluate computes the decision snapshot for a tally under a policy.
// With no eligible units a simple-majority proposal needs one FOR vote and
// is therefore impossible straight away.
func Evaluate(policy Policy, t Tally) DecisionSnapshot {
	required := RequiredFor(policy, t.TotalEligible)
	uncast := t.TotalEligible - t.VotesCast
	maxFor := t.VotesFor + uncast

	d := DecisionSnapshot{
		Policy:         policy,
		TotalEligible:  t.TotalEligible,
		VotesCast:      t.VotesCast,
		VotesFor:       t.VotesFor,
		VotesAgainst:   t.VotesAgainst,
		VotesAbstain:   t.VotesCast - t.VotesFor - t.VotesAgainst,
		VotesUncast:    uncast,
		RequiredFor:    required,
		StillNeeded:    max(0, required-t.VotesFor),
		MaxPossibleFor: maxFor,
		IsPassed:       t.VotesFor >= required,
		IsImpossible:   maxFor < required,
	}

	if d.IsPassed && d.IsImpossible && d.TotalEligible >= 1 {
		panic(fmt.Sprintf("decision both passed and impossible: policy %s, tally %+v", policy, t))
	}

	return d
}
