// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package governance

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"
)

// memStore is an in-memory Store for tests. Its insert methods hold the
// lock across check and write, like a unique constraint would.
type memStore struct {
	mu        sync.Mutex
	units     map[string]VotingUnit
	proposals map[string]Proposal
	ballots   []Ballot
}

func newMemStore() *memStore {
	return &memStore{
		units:     make(map[string]VotingUnit),
		proposals: make(map[string]Proposal),
	}
}

func (s *memStore) putUnit(u VotingUnit) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.units[u.ID] = u
}

func (s *memStore) putProposal(p Proposal) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.proposals[p.ID] = p
}

func (s *memStore) GetUnit(_ context.Context, id string) (VotingUnit, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.units[id]
	if !ok {
		return VotingUnit{}, ErrUnitNotFound
	}
	return u, nil
}

func (s *memStore) ListUnits(_ context.Context, ownerID string) ([]VotingUnit, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []VotingUnit
	for _, u := range s.units {
		if u.OwnerID == ownerID {
			out = append(out, u)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *memStore) ListAllUnits(_ context.Context) ([]VotingUnit, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]VotingUnit, 0, len(s.units))
	for _, u := range s.units {
		out = append(out, u)
	}
	return out, nil
}

func (s *memStore) insertLocked(b Ballot) error {
	p, ok := s.proposals[b.ProposalID]
	if !ok || p.Status != StatusOpen {
		return ErrProposalNotOpen
	}
	for _, existing := range s.ballots {
		if existing.ProposalID == b.ProposalID && existing.UnitID == b.UnitID {
			return ErrDuplicateVote
		}
	}
	s.ballots = append(s.ballots, b)
	return nil
}

func (s *memStore) InsertBallotIfAbsent(_ context.Context, b Ballot) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.insertLocked(b)
}

func (s *memStore) InsertBallotsIfAbsent(_ context.Context, bs []Ballot) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	saved := len(s.ballots)
	for _, b := range bs {
		if err := s.insertLocked(b); err != nil {
			s.ballots = s.ballots[:saved]
			return &BatchError{UnitID: b.UnitID, Err: err}
		}
	}
	return nil
}

func (s *memStore) HasBallot(_ context.Context, proposalID, unitID string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, b := range s.ballots {
		if b.ProposalID == proposalID && b.UnitID == unitID {
			return true, nil
		}
	}
	return false, nil
}

func (s *memStore) CountBallots(ctx context.Context, proposalID string) (int, error) {
	bs, err := s.ListBallots(ctx, proposalID)
	return len(bs), err
}

func (s *memStore) ListBallots(_ context.Context, proposalID string) ([]Ballot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []Ballot
	for _, b := range s.ballots {
		if b.ProposalID == proposalID {
			out = append(out, b)
		}
	}
	return out, nil
}

func (s *memStore) ListBallotsBy(ctx context.Context, proposalID, casterID string) ([]Ballot, error) {
	bs, _ := s.ListBallots(ctx, proposalID)
	var out []Ballot
	for _, b := range bs {
		if b.CasterID == casterID {
			out = append(out, b)
		}
	}
	return out, nil
}

func (s *memStore) GetProposal(_ context.Context, id string) (Proposal, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.proposals[id]
	if !ok {
		return Proposal{}, ErrProposalNotFound
	}
	return p, nil
}

func (s *memStore) ListProposals(_ context.Context) ([]Proposal, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Proposal, 0, len(s.proposals))
	for _, p := range s.proposals {
		out = append(out, p)
	}
	return out, nil
}

func (s *memStore) ListOverdue(_ context.Context, now time.Time) ([]Proposal, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []Proposal
	for _, p := range s.proposals {
		if p.Status == StatusOpen && p.ClosesAt != nil && !now.Before(*p.ClosesAt) {
			out = append(out, p)
		}
	}
	return out, nil
}

func (s *memStore) CreateProposal(_ context.Context, p Proposal) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.proposals[p.ID] = p
	return nil
}

func (s *memStore) UpdateDraft(_ context.Context, p Proposal) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cur, ok := s.proposals[p.ID]
	if !ok || cur.Status != StatusDraft {
		return ErrStatusConflict
	}
	s.proposals[p.ID] = p
	return nil
}

func (s *memStore) UpdateStatus(_ context.Context, id string, from, to Status, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.proposals[id]
	if !ok || p.Status != from {
		return ErrStatusConflict
	}
	if to == StatusDraft {
		for _, b := range s.ballots {
			if b.ProposalID == id {
				return ErrVotesAlreadyCast
			}
		}
	}
	p.Status = to
	if to.Terminal() {
		p.DecidedAt = &at
		n := len(s.units)
		p.EligibleAtClose = &n
	}
	s.proposals[id] = p
	return nil
}

func (s *memStore) DeleteProposal(_ context.Context, id string, withBallots bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.proposals[id]; !ok {
		return fmt.Errorf("%w: %s", ErrProposalNotFound, id)
	}
	if !withBallots {
		for _, b := range s.ballots {
			if b.ProposalID == id {
				return fmt.Errorf("%w: proposal %s", ErrVotesCast, id)
			}
		}
	}
	delete(s.proposals, id)
	kept := s.ballots[:0]
	for _, b := range s.ballots {
		if b.ProposalID != id {
			kept = append(kept, b)
		}
	}
	s.ballots = kept
	return nil
}
