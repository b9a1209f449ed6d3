// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package db_test

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/danielhkuo/vve-governance/db"
	"github.com/danielhkuo/vve-governance/governance"
	"github.com/danielhkuo/vve-governance/testutil"
	"github.com/google/go-cmp/cmp"
)

var now = time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

func newStore(t *testing.T) *db.Store {
	t.Helper()
	return db.NewStore(testutil.SetupTestDB(t))
}

func weight(w float64) *float64 { return &w }

func openProposal(t *testing.T, store *db.Store, id string, closesAt *time.Time) governance.Proposal {
	t.Helper()
	p := governance.Proposal{
		ID:        id,
		Title:     "Roof repair",
		Policy:    governance.PolicySimple,
		Status:    governance.StatusOpen,
		AuthorID:  "board",
		ClosesAt:  closesAt,
		CreatedAt: now,
	}
	if err := store.CreateProposal(context.Background(), p); err != nil {
		t.Fatalf("CreateProposal: %v", err)
	}
	return p
}

func ballot(proposalID, unitID string, choice governance.Choice, w float64) governance.Ballot {
	return governance.Ballot{
		ID:         proposalID + "-" + unitID,
		ProposalID: proposalID,
		UnitID:     unitID,
		CasterID:   "alice",
		Choice:     choice,
		Weight:     w,
		CastAt:     now,
	}
}

func TestUnits(t *testing.T) {
	ctx := context.Background()
	store := newStore(t)

	units := []governance.VotingUnit{
		{ID: "a1", OwnerID: "alice", Label: "1A", Weight: weight(0.5)},
		{ID: "a2", OwnerID: "alice", Label: "1B"},
		{ID: "b1", OwnerID: "bob", Label: "2A", Weight: weight(2)},
	}
	for _, u := range units {
		if err := store.CreateUnit(ctx, u); err != nil {
			t.Fatalf("CreateUnit(%s): %v", u.ID, err)
		}
	}

	t.Run("duplicate", func(t *testing.T) {
		err := store.CreateUnit(ctx, governance.VotingUnit{ID: "a1", OwnerID: "carol"})
		if !errors.Is(err, db.ErrUnitExists) {
			t.Fatalf("got %v, want %v", err, db.ErrUnitExists)
		}
	})

	t.Run("list by owner", func(t *testing.T) {
		got, err := store.ListUnits(ctx, "alice")
		if err != nil {
			t.Fatal(err)
		}
		if diff := cmp.Diff(units[:2], got); diff != "" {
			t.Errorf("ListUnits mismatch (-want +got):\n%s", diff)
		}
	})

	t.Run("unknown owner", func(t *testing.T) {
		got, err := store.ListUnits(ctx, "nobody")
		if err != nil {
			t.Fatal(err)
		}
		if got == nil || len(got) != 0 {
			t.Errorf("expected empty non-nil slice, got %#v", got)
		}
	})

	t.Run("update", func(t *testing.T) {
		changed := governance.VotingUnit{ID: "a2", OwnerID: "bob", Label: "1B", Weight: weight(1.5)}
		if err := store.UpdateUnit(ctx, changed); err != nil {
			t.Fatal(err)
		}
		got, err := store.GetUnit(ctx, "a2")
		if err != nil {
			t.Fatal(err)
		}
		if diff := cmp.Diff(changed, got); diff != "" {
			t.Errorf("GetUnit mismatch (-want +got):\n%s", diff)
		}
	})

	t.Run("missing", func(t *testing.T) {
		if _, err := store.GetUnit(ctx, "zz"); !errors.Is(err, governance.ErrUnitNotFound) {
			t.Errorf("GetUnit: got %v, want %v", err, governance.ErrUnitNotFound)
		}
		err := store.UpdateUnit(ctx, governance.VotingUnit{ID: "zz", OwnerID: "x"})
		if !errors.Is(err, governance.ErrUnitNotFound) {
			t.Errorf("UpdateUnit: got %v, want %v", err, governance.ErrUnitNotFound)
		}
	})
}

func TestProposalRoundTrip(t *testing.T) {
	ctx := context.Background()
	store := newStore(t)

	meeting := "alv-2025"
	closes := now.Add(72 * time.Hour)
	want := governance.Proposal{
		ID:          "p1",
		Title:       "Solar panels",
		Description: "Install panels on the south roof",
		Policy:      governance.PolicyQualifiedTwoThirds,
		Status:      governance.StatusDraft,
		AuthorID:    "board",
		MeetingID:   &meeting,
		ClosesAt:    &closes,
		CreatedAt:   now,
	}
	if err := store.CreateProposal(ctx, want); err != nil {
		t.Fatal(err)
	}

	got, err := store.GetProposal(ctx, "p1")
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("GetProposal mismatch (-want +got):\n%s", diff)
	}

	want.Title = "Solar panels and battery"
	want.MeetingID = nil
	if err := store.UpdateDraft(ctx, want); err != nil {
		t.Fatal(err)
	}
	got, _ = store.GetProposal(ctx, "p1")
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("after UpdateDraft (-want +got):\n%s", diff)
	}

	list, err := store.ListProposals(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(list) != 1 || list[0].ID != "p1" {
		t.Errorf("ListProposals = %v", list)
	}

	if _, err := store.GetProposal(ctx, "nope"); !errors.Is(err, governance.ErrProposalNotFound) {
		t.Errorf("got %v, want %v", err, governance.ErrProposalNotFound)
	}
}

func TestUpdateDraftAfterOpen(t *testing.T) {
	ctx := context.Background()
	store := newStore(t)
	p := openProposal(t, store, "p1", nil)

	err := store.UpdateDraft(ctx, p)
	if !errors.Is(err, governance.ErrStatusConflict) {
		t.Fatalf("got %v, want %v", err, governance.ErrStatusConflict)
	}
}

func TestBallotInsert(t *testing.T) {
	ctx := context.Background()
	store := newStore(t)
	openProposal(t, store, "p1", nil)

	first := ballot("p1", "u1", governance.ChoiceFor, 1)
	if err := store.InsertBallotIfAbsent(ctx, first); err != nil {
		t.Fatal(err)
	}

	second := ballot("p1", "u1", governance.ChoiceAgainst, 1)
	second.ID = "other-id"
	if err := store.InsertBallotIfAbsent(ctx, second); !errors.Is(err, governance.ErrDuplicateVote) {
		t.Fatalf("got %v, want %v", err, governance.ErrDuplicateVote)
	}

	got, err := store.ListBallots(ctx, "p1")
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff([]governance.Ballot{first}, got); diff != "" {
		t.Errorf("ListBallots mismatch (-want +got):\n%s", diff)
	}

	has, err := store.HasBallot(ctx, "p1", "u1")
	if err != nil || !has {
		t.Errorf("HasBallot(u1) = %v, %v", has, err)
	}
	has, err = store.HasBallot(ctx, "p1", "u2")
	if err != nil || has {
		t.Errorf("HasBallot(u2) = %v, %v", has, err)
	}
}

func TestBallotInsertRequiresOpenProposal(t *testing.T) {
	ctx := context.Background()
	store := newStore(t)
	openProposal(t, store, "p1", nil)
	if err := store.UpdateStatus(ctx, "p1", governance.StatusOpen, governance.StatusRejected, now); err != nil {
		t.Fatal(err)
	}

	err := store.InsertBallotIfAbsent(ctx, ballot("p1", "u1", governance.ChoiceFor, 1))
	if !errors.Is(err, governance.ErrProposalNotOpen) {
		t.Fatalf("got %v, want %v", err, governance.ErrProposalNotOpen)
	}
	if n, _ := store.CountBallots(ctx, "p1"); n != 0 {
		t.Errorf("CountBallots = %d, want 0", n)
	}
}

func TestBatchIsAllOrNothing(t *testing.T) {
	ctx := context.Background()
	store := newStore(t)
	openProposal(t, store, "p1", nil)

	if err := store.InsertBallotIfAbsent(ctx, ballot("p1", "u2", governance.ChoiceAgainst, 1)); err != nil {
		t.Fatal(err)
	}

	batch := []governance.Ballot{
		ballot("p1", "u1", governance.ChoiceFor, 1),
		ballot("p1", "u2", governance.ChoiceFor, 1),
		ballot("p1", "u3", governance.ChoiceFor, 1),
	}
	batch[1].ID = "retry-u2"

	err := store.InsertBallotsIfAbsent(ctx, batch)
	var be *governance.BatchError
	if !errors.As(err, &be) || be.UnitID != "u2" {
		t.Fatalf("got %v, want batch error for u2", err)
	}

	if n, _ := store.CountBallots(ctx, "p1"); n != 1 {
		t.Errorf("CountBallots = %d, want 1", n)
	}
}

func TestUpdateStatusTransitions(t *testing.T) {
	ctx := context.Background()
	store := newStore(t)

	t.Run("revert without ballots", func(t *testing.T) {
		openProposal(t, store, "p1", nil)
		if err := store.UpdateStatus(ctx, "p1", governance.StatusOpen, governance.StatusDraft, now); err != nil {
			t.Fatal(err)
		}
		p, _ := store.GetProposal(ctx, "p1")
		if p.Status != governance.StatusDraft || p.DecidedAt != nil {
			t.Errorf("got status %s decided %v", p.Status, p.DecidedAt)
		}
	})

	t.Run("revert with ballots", func(t *testing.T) {
		openProposal(t, store, "p2", nil)
		if err := store.InsertBallotIfAbsent(ctx, ballot("p2", "u1", governance.ChoiceFor, 1)); err != nil {
			t.Fatal(err)
		}
		err := store.UpdateStatus(ctx, "p2", governance.StatusOpen, governance.StatusDraft, now)
		if !errors.Is(err, governance.ErrVotesAlreadyCast) {
			t.Fatalf("got %v, want %v", err, governance.ErrVotesAlreadyCast)
		}
	})

	t.Run("stale from status", func(t *testing.T) {
		openProposal(t, store, "p3", nil)
		if err := store.UpdateStatus(ctx, "p3", governance.StatusOpen, governance.StatusAccepted, now); err != nil {
			t.Fatal(err)
		}
		err := store.UpdateStatus(ctx, "p3", governance.StatusOpen, governance.StatusRejected, now)
		if !errors.Is(err, governance.ErrStatusConflict) {
			t.Fatalf("got %v, want %v", err, governance.ErrStatusConflict)
		}
		p, _ := store.GetProposal(ctx, "p3")
		if p.Status != governance.StatusAccepted {
			t.Errorf("status = %s, want accepted", p.Status)
		}
		if p.DecidedAt == nil || !p.DecidedAt.Equal(now) {
			t.Errorf("decided_at = %v, want %v", p.DecidedAt, now)
		}
	})

	t.Run("missing proposal", func(t *testing.T) {
		err := store.UpdateStatus(ctx, "zz", governance.StatusOpen, governance.StatusAccepted, now)
		if !errors.Is(err, governance.ErrProposalNotFound) {
			t.Fatalf("got %v, want %v", err, governance.ErrProposalNotFound)
		}
	})
}

func TestTallyMatchesDeriveTally(t *testing.T) {
	ctx := context.Background()
	store := newStore(t)
	openProposal(t, store, "p1", nil)
	openProposal(t, store, "p2", nil)

	weights := []*float64{nil, weight(0.5), weight(1.5), nil, weight(2), nil}
	choices := []governance.Choice{governance.ChoiceFor, governance.ChoiceAgainst, governance.ChoiceFor, governance.ChoiceAbstain}
	for i, w := range weights {
		u := governance.VotingUnit{ID: fmt.Sprintf("u%d", i), OwnerID: "alice", Weight: w}
		if err := store.CreateUnit(ctx, u); err != nil {
			t.Fatal(err)
		}
		if i < len(choices) {
			if err := store.InsertBallotIfAbsent(ctx, ballot("p1", u.ID, choices[i], u.EffectiveWeight())); err != nil {
				t.Fatal(err)
			}
		}
	}
	// Ballots on another proposal must not leak into p1.
	if err := store.InsertBallotIfAbsent(ctx, ballot("p2", "u5", governance.ChoiceFor, 1)); err != nil {
		t.Fatal(err)
	}

	units, _ := store.ListAllUnits(ctx)
	ballots, _ := store.ListBallots(ctx, "p1")
	want := governance.DeriveTally("p1", units, ballots)

	got, err := store.Tally(ctx, "p1")
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("Tally mismatch (-DeriveTally +SQL):\n%s", diff)
	}
	if got.TotalEligible != 6 || got.VotesCast != 4 || got.VotesFor != 2 || got.VotesAgainst != 1 {
		t.Errorf("unexpected tally %+v", got)
	}

	empty, err := store.Tally(ctx, "nope")
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff(governance.Tally{TotalEligible: 6}, empty); diff != "" {
		t.Errorf("empty tally mismatch (-want +got):\n%s", diff)
	}
}

func TestListOverdue(t *testing.T) {
	ctx := context.Background()
	store := newStore(t)

	past := now.Add(-time.Minute)
	future := now.Add(time.Hour)
	openProposal(t, store, "late", &past)
	openProposal(t, store, "exact", &now)
	openProposal(t, store, "early", &future)
	openProposal(t, store, "none", nil)
	openProposal(t, store, "closed", &past)
	if err := store.UpdateStatus(ctx, "closed", governance.StatusOpen, governance.StatusRejected, now); err != nil {
		t.Fatal(err)
	}

	got, err := store.ListOverdue(ctx, now)
	if err != nil {
		t.Fatal(err)
	}
	var ids []string
	for _, p := range got {
		ids = append(ids, p.ID)
	}
	if diff := cmp.Diff([]string{"late", "exact"}, ids); diff != "" {
		t.Errorf("ListOverdue mismatch (-want +got):\n%s", diff)
	}
}

func TestDeleteProposalRemovesBallots(t *testing.T) {
	ctx := context.Background()
	store := newStore(t)
	openProposal(t, store, "p1", nil)
	for _, u := range []string{"u1", "u2"} {
		if err := store.InsertBallotIfAbsent(ctx, ballot("p1", u, governance.ChoiceFor, 1)); err != nil {
			t.Fatal(err)
		}
	}

	if err := store.DeleteProposal(ctx, "p1", false); !errors.Is(err, governance.ErrVotesCast) {
		t.Fatalf("got %v, want %v", err, governance.ErrVotesCast)
	}
	if n, _ := store.CountBallots(ctx, "p1"); n != 2 {
		t.Fatalf("CountBallots = %d, want 2 after refused delete", n)
	}

	if err := store.DeleteProposal(ctx, "p1", true); err != nil {
		t.Fatal(err)
	}
	if n, _ := store.CountBallots(ctx, "p1"); n != 0 {
		t.Errorf("CountBallots = %d, want 0", n)
	}
	if err := store.DeleteProposal(ctx, "p1", true); !errors.Is(err, governance.ErrProposalNotFound) {
		t.Errorf("got %v, want %v", err, governance.ErrProposalNotFound)
	}
}

func TestConcurrentCastsThroughLedger(t *testing.T) {
	ctx := context.Background()
	store := newStore(t)
	svc := governance.NewService(store)

	if err := store.CreateUnit(ctx, governance.VotingUnit{ID: "u1", OwnerID: "alice"}); err != nil {
		t.Fatal(err)
	}
	openProposal(t, store, "p1", nil)

	const attempts = 10
	var ok, dup atomic.Int32
	var wg sync.WaitGroup
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := svc.Ledger.CastBallot(ctx, "alice", "p1", "u1", governance.ChoiceFor)
			switch {
			case err == nil:
				ok.Add(1)
			case errors.Is(err, governance.ErrDuplicateVote):
				dup.Add(1)
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}()
	}
	wg.Wait()

	if ok.Load() != 1 || dup.Load() != attempts-1 {
		t.Errorf("ok=%d dup=%d, want 1 and %d", ok.Load(), dup.Load(), attempts-1)
	}
	if n, _ := store.CountBallots(ctx, "p1"); n != 1 {
		t.Errorf("CountBallots = %d, want 1", n)
	}
}

// lateBallotStore commits a ballot right after the lifecycle has read the
// proposal or counted its ballots, before the lifecycle acts on what it saw.
type lateBallotStore struct {
	*db.Store
	late    governance.Ballot
	afterGP bool
	once    sync.Once
	err     error
}

func (s *lateBallotStore) castLate(ctx context.Context) {
	s.once.Do(func() { s.err = s.Store.InsertBallotIfAbsent(ctx, s.late) })
}

func (s *lateBallotStore) GetProposal(ctx context.Context, id string) (governance.Proposal, error) {
	p, err := s.Store.GetProposal(ctx, id)
	if s.afterGP {
		s.castLate(ctx)
	}
	return p, err
}

func (s *lateBallotStore) CountBallots(ctx context.Context, proposalID string) (int, error) {
	n, err := s.Store.CountBallots(ctx, proposalID)
	s.castLate(ctx)
	return n, err
}

func TestDeleteRefusesBallotCastAfterCheck(t *testing.T) {
	ctx := context.Background()
	store := &lateBallotStore{
		Store:   newStore(t),
		late:    ballot("p1", "u1", governance.ChoiceFor, 1),
		afterGP: true,
	}
	openProposal(t, store.Store, "p1", nil)
	svc := governance.NewService(store)

	manager := governance.Actor{PersonID: "board", Role: governance.RoleManager}
	err := svc.Lifecycle.Delete(ctx, manager, "p1")
	if store.err != nil {
		t.Fatalf("late ballot: %v", store.err)
	}
	if !errors.Is(err, governance.ErrVotesCast) {
		t.Fatalf("got %v, want %v", err, governance.ErrVotesCast)
	}
	if n, _ := store.Store.CountBallots(ctx, "p1"); n != 1 {
		t.Errorf("CountBallots = %d, want the late ballot kept", n)
	}
}

func TestRevertRefusesBallotCastAfterCheck(t *testing.T) {
	ctx := context.Background()
	store := &lateBallotStore{
		Store: newStore(t),
		late:  ballot("p1", "u1", governance.ChoiceAgainst, 1),
	}
	openProposal(t, store.Store, "p1", nil)
	svc := governance.NewService(store)

	manager := governance.Actor{PersonID: "board", Role: governance.RoleManager}
	_, err := svc.Lifecycle.Revert(ctx, manager, "p1")
	if store.err != nil {
		t.Fatalf("late ballot: %v", store.err)
	}
	if !errors.Is(err, governance.ErrVotesAlreadyCast) {
		t.Fatalf("got %v, want %v", err, governance.ErrVotesAlreadyCast)
	}
	p, _ := store.Store.GetProposal(ctx, "p1")
	if p.Status != governance.StatusOpen {
		t.Errorf("status = %s, want open", p.Status)
	}
}
