// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package governance implements proposal voting for a homeowners' association.

# Components

  - Resolver: which voting units a person controls, and whether a unit has
    already voted on a proposal.
  - Ledger: casts ballots, one per (proposal, voting unit), copying the
    unit's weight into the ballot at cast time.
  - Evaluate: pure decision function over a Tally and a Policy.
  - Lifecycle: draft → open → accepted | rejected | expired, plus revert,
    delete and the advisory Decision.

Build all of them over one Store with NewService:

	svc := governance.NewService(store)
	b, err := svc.Ledger.CastBallot(ctx, personID, proposalID, unitID, governance.ChoiceFor)

# Thresholds

Thresholds are counted in voting units against the whole electorate, not
against the ballots cast:

	simple                 floor(n/2) + 1
	qualified_two_thirds   ceil(2n/3)
	unanimous              n

A proposal is impossible once the FOR votes plus the units that have not
voted cannot reach the threshold. Abstentions count toward turnout only.
Ballot weights are recorded and summed on the Tally for reporting but do
not affect thresholds.

# Errors

Every precondition failure is reported as one of the sentinel errors
(ErrProposalNotOpen, ErrDuplicateVote, ErrUnitNotEligible,
ErrVotesAlreadyCast, ErrVotesCast, ErrStatusConflict, ...) wrapped with
context; match with errors.Is. Nothing is retried.
*/
package governance
