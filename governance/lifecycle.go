// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package governance

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"time"
)

var transitions = map[Status][]Status{
	StatusDraft: {StatusOpen},
	StatusOpen:  {StatusDraft, StatusAccepted, StatusRejected, StatusExpired},
}

// CanTransition reports whether a proposal may move from one status to
// another. Terminal statuses have no outgoing transitions.
func CanTransition(from, to Status) bool {
	return slices.Contains(transitions[from], to)
}

// Draft is the content of a new proposal.
type Draft struct {
	Title       string
	Description string
	Policy      Policy
	MeetingID   *string
	ClosesAt    *time.Time
	// Open creates the proposal directly in StatusOpen.
	Open bool
}

// Changes edits a draft. Nil fields are left alone.
type Changes struct {
	Title       *string
	Description *string
	Policy      *Policy
	MeetingID   *string
	ClosesAt    *time.Time
}

// Lifecycle governs proposal status transitions.
type Lifecycle struct {
	proposals ProposalStore
	ballots   BallotStore
	tally     TallySource
	newID     func() string
	now       func() time.Time
}

func NewLifecycle(proposals ProposalStore, ballots BallotStore, tally TallySource, opts ...Option) *Lifecycle {
	o := buildOptions(opts)
	return &Lifecycle{
		proposals: proposals,
		ballots:   ballots,
		tally:     tally,
		newID:     o.newID,
		now:       o.now,
	}
}

func (lc *Lifecycle) Create(ctx context.Context, actor Actor, d Draft) (Proposal, error) {
	if !actor.Role.CanManage() {
		return Proposal{}, fmt.Errorf("%w: %s may not create proposals", ErrForbidden, actor.Role)
	}

	p := Proposal{
		ID:          lc.newID(),
		Title:       strings.TrimSpace(d.Title),
		Description: d.Description,
		Policy:      d.Policy,
		Status:      StatusDraft,
		AuthorID:    actor.PersonID,
		MeetingID:   d.MeetingID,
		ClosesAt:    d.ClosesAt,
		CreatedAt:   lc.now(),
	}
	if d.Open {
		p.Status = StatusOpen
	}
	if err := validateContent(p); err != nil {
		return Proposal{}, err
	}

	if err := lc.proposals.CreateProposal(ctx, p); err != nil {
		return Proposal{}, fmt.Errorf("failed to create proposal: %w", err)
	}
	return p, nil
}

// Edit changes the content of a draft. Only its author or a super-admin
// may edit it.
func (lc *Lifecycle) Edit(ctx context.Context, actor Actor, id string, c Changes) (Proposal, error) {
	p, err := lc.proposals.GetProposal(ctx, id)
	if err != nil {
		return Proposal{}, err
	}
	if p.Status != StatusDraft {
		return Proposal{}, fmt.Errorf("%w: proposal %s is %s", ErrProposalNotDraft, p.ID, p.Status)
	}
	if actor.PersonID != p.AuthorID && actor.Role != RoleSuperAdmin {
		return Proposal{}, fmt.Errorf("%w: only the author may edit a draft", ErrForbidden)
	}

	if c.Title != nil {
		p.Title = strings.TrimSpace(*c.Title)
	}
	if c.Description != nil {
		p.Description = *c.Description
	}
	if c.Policy != nil {
		p.Policy = *c.Policy
	}
	if c.MeetingID != nil {
		p.MeetingID = c.MeetingID
	}
	if c.ClosesAt != nil {
		p.ClosesAt = c.ClosesAt
	}
	if err := validateContent(p); err != nil {
		return Proposal{}, err
	}

	if err := lc.proposals.UpdateDraft(ctx, p); err != nil {
		return Proposal{}, err
	}
	return p, nil
}

// Open makes a draft votable.
func (lc *Lifecycle) Open(ctx context.Context, actor Actor, id string) (Proposal, error) {
	p, err := lc.managed(ctx, actor, id)
	if err != nil {
		return Proposal{}, err
	}
	return lc.transition(ctx, p, StatusOpen, lc.now())
}

// Revert returns an open proposal to draft. It fails with
// ErrVotesAlreadyCast once any ballot exists.
func (lc *Lifecycle) Revert(ctx context.Context, actor Actor, id string) (Proposal, error) {
	p, err := lc.managed(ctx, actor, id)
	if err != nil {
		return Proposal{}, err
	}
	if !CanTransition(p.Status, StatusDraft) {
		return Proposal{}, fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, p.Status, StatusDraft)
	}

	n, err := lc.ballots.CountBallots(ctx, p.ID)
	if err != nil {
		return Proposal{}, fmt.Errorf("failed to count ballots: %w", err)
	}
	if n > 0 {
		return Proposal{}, fmt.Errorf("%w: %d ballots on proposal %s", ErrVotesAlreadyCast, n, p.ID)
	}
	return lc.transition(ctx, p, StatusDraft, lc.now())
}

// Finalize closes voting and records the verdict: accepted if the proposal
// has passed, rejected otherwise. Units that have not voted yet do not
// block it.
func (lc *Lifecycle) Finalize(ctx context.Context, actor Actor, id string) (Proposal, DecisionSnapshot, error) {
	p, err := lc.managed(ctx, actor, id)
	if err != nil {
		return Proposal{}, DecisionSnapshot{}, err
	}
	if p.Status != StatusOpen {
		return Proposal{}, DecisionSnapshot{}, fmt.Errorf("%w: proposal %s is %s", ErrProposalNotOpen, p.ID, p.Status)
	}

	if c, ok := lc.proposals.(Closer); ok {
		return lc.closeAtomically(ctx, c, p)
	}

	t, err := lc.tally.Tally(ctx, p.ID)
	if err != nil {
		return Proposal{}, DecisionSnapshot{}, err
	}
	d := Evaluate(p.Policy, t)

	p, err = lc.transition(ctx, p, verdictOf(d), lc.now())
	if err != nil {
		return Proposal{}, DecisionSnapshot{}, err
	}
	p.EligibleAtClose = &d.TotalEligible
	return p, d, nil
}

func (lc *Lifecycle) closeAtomically(ctx context.Context, c Closer, p Proposal) (Proposal, DecisionSnapshot, error) {
	var d DecisionSnapshot
	at := lc.now()
	to, err := c.CloseOpen(ctx, p.ID, at, func(t Tally) Status {
		d = Evaluate(p.Policy, t)
		return verdictOf(d)
	})
	if err != nil {
		return Proposal{}, DecisionSnapshot{}, err
	}

	p.Status = to
	p.DecidedAt = &at
	p.EligibleAtClose = &d.TotalEligible
	return p, d, nil
}

func verdictOf(d DecisionSnapshot) Status {
	if d.IsPassed {
		return StatusAccepted
	}
	return StatusRejected
}

// Expire closes an open proposal whose deadline has passed without a
// verdict.
func (lc *Lifecycle) Expire(ctx context.Context, id string, now time.Time) (Proposal, error) {
	p, err := lc.proposals.GetProposal(ctx, id)
	if err != nil {
		return Proposal{}, err
	}
	if p.Status != StatusOpen {
		return Proposal{}, fmt.Errorf("%w: proposal %s is %s", ErrProposalNotOpen, p.ID, p.Status)
	}
	if p.ClosesAt == nil || now.Before(*p.ClosesAt) {
		return Proposal{}, fmt.Errorf("%w: proposal %s", ErrNotExpired, p.ID)
	}
	return lc.transition(ctx, p, StatusExpired, now)
}

// Overdue lists open proposals that Expire would accept at now.
func (lc *Lifecycle) Overdue(ctx context.Context, now time.Time) ([]Proposal, error) {
	return lc.proposals.ListOverdue(ctx, now)
}

// Delete removes a proposal and its ballots. Once ballots exist only a
// super-admin may delete it.
func (lc *Lifecycle) Delete(ctx context.Context, actor Actor, id string) error {
	p, err := lc.managed(ctx, actor, id)
	if err != nil {
		return err
	}

	if err := lc.proposals.DeleteProposal(ctx, p.ID, actor.Role == RoleSuperAdmin); err != nil {
		return fmt.Errorf("failed to delete proposal: %w", err)
	}
	return nil
}

// Decision computes the current snapshot without changing anything. A
// closed proposal is measured against the electorate it was closed with, so
// units registered later do not change its verdict.
func (lc *Lifecycle) Decision(ctx context.Context, id string) (Proposal, DecisionSnapshot, error) {
	p, err := lc.proposals.GetProposal(ctx, id)
	if err != nil {
		return Proposal{}, DecisionSnapshot{}, err
	}
	t, err := lc.tally.Tally(ctx, p.ID)
	if err != nil {
		return Proposal{}, DecisionSnapshot{}, err
	}
	if p.EligibleAtClose != nil && *p.EligibleAtClose >= t.VotesCast {
		t.TotalEligible = *p.EligibleAtClose
	}
	return p, Evaluate(p.Policy, t), nil
}

func (lc *Lifecycle) Get(ctx context.Context, id string) (Proposal, error) {
	return lc.proposals.GetProposal(ctx, id)
}

func (lc *Lifecycle) List(ctx context.Context) ([]Proposal, error) {
	return lc.proposals.ListProposals(ctx)
}

func (lc *Lifecycle) managed(ctx context.Context, actor Actor, id string) (Proposal, error) {
	if !actor.Role.CanManage() {
		return Proposal{}, fmt.Errorf("%w: %s may not manage proposals", ErrForbidden, actor.Role)
	}
	return lc.proposals.GetProposal(ctx, id)
}

func (lc *Lifecycle) transition(ctx context.Context, p Proposal, to Status, at time.Time) (Proposal, error) {
	if !CanTransition(p.Status, to) {
		return Proposal{}, fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, p.Status, to)
	}
	if err := lc.proposals.UpdateStatus(ctx, p.ID, p.Status, to, at); err != nil {
		return Proposal{}, err
	}

	p.Status = to
	if to.Terminal() {
		p.DecidedAt = &at
	}
	return p, nil
}

func validateContent(p Proposal) error {
	if p.Title == "" {
		return fmt.Errorf("%w: title is required", ErrInvalidProposal)
	}
	if !p.Policy.Valid() {
		return fmt.Errorf("%w: %q", ErrInvalidPolicy, p.Policy)
	}
	return nil
}
