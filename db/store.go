// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/danielhkuo/vve-governance/governance"
)

var ErrUnitExists = errors.New("voting unit already exists")

var (
	_ governance.Store       = (*Store)(nil)
	_ governance.TallySource = (*Store)(nil)
	_ governance.Closer      = (*Store)(nil)
)

// Store is the SQL implementation of the governance store interfaces.
type Store struct {
	db *sql.DB
}

func NewStore(db *sql.DB) *Store {
	return &Store{db: db}
}

type scanner interface {
	Scan(dest ...any) error
}

// Voting units

const unitColumns = `id, owner_id, label, weight`

func scanUnit(row scanner) (governance.VotingUnit, error) {
	var u governance.VotingUnit
	var weight sql.NullFloat64
	if err := row.Scan(&u.ID, &u.OwnerID, &u.Label, &weight); err != nil {
		return governance.VotingUnit{}, err
	}
	if weight.Valid {
		w := weight.Float64
		u.Weight = &w
	}
	return u, nil
}

func (s *Store) queryUnits(ctx context.Context, query string, args ...any) ([]governance.VotingUnit, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	units := []governance.VotingUnit{}
	for rows.Next() {
		u, err := scanUnit(rows)
		if err != nil {
			return nil, err
		}
		units = append(units, u)
	}
	return units, rows.Err()
}

func (s *Store) GetUnit(ctx context.Context, id string) (governance.VotingUnit, error) {
	u, err := scanUnit(s.db.QueryRowContext(ctx, `
		SELECT `+unitColumns+` FROM voting_unit WHERE id = $1
	`, id))
	if err == sql.ErrNoRows {
		return governance.VotingUnit{}, fmt.Errorf("%w: %s", governance.ErrUnitNotFound, id)
	}
	if err != nil {
		return governance.VotingUnit{}, fmt.Errorf("failed to query unit: %w", err)
	}
	return u, nil
}

func (s *Store) ListUnits(ctx context.Context, ownerID string) ([]governance.VotingUnit, error) {
	return s.queryUnits(ctx, `
		SELECT `+unitColumns+` FROM voting_unit WHERE owner_id = $1 ORDER BY id
	`, ownerID)
}

func (s *Store) ListAllUnits(ctx context.Context) ([]governance.VotingUnit, error) {
	return s.queryUnits(ctx, `SELECT `+unitColumns+` FROM voting_unit ORDER BY id`)
}

// CreateUnit registers a voting unit. It returns ErrUnitExists if the ID is
// taken.
func (s *Store) CreateUnit(ctx context.Context, u governance.VotingUnit) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO voting_unit (id, owner_id, label, weight, created_at)
		VALUES ($1, $2, $3, $4, $5)
	`, u.ID, u.OwnerID, u.Label, u.Weight, time.Now().UTC())
	if isUniqueViolation(err) {
		return fmt.Errorf("%w: %s", ErrUnitExists, u.ID)
	}
	if err != nil {
		return fmt.Errorf("failed to insert unit: %w", err)
	}
	return nil
}

// UpdateUnit changes owner, label and weight of a unit. Ballots already
// cast keep the weight they were cast with.
func (s *Store) UpdateUnit(ctx context.Context, u governance.VotingUnit) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE voting_unit SET owner_id = $1, label = $2, weight = $3 WHERE id = $4
	`, u.OwnerID, u.Label, u.Weight, u.ID)
	if err != nil {
		return fmt.Errorf("failed to update unit: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to update unit: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("%w: %s", governance.ErrUnitNotFound, u.ID)
	}
	return nil
}

// Proposals

const proposalColumns = `id, title, description, policy, status, author_id,
	meeting_id, closes_at, decided_at, eligible_at_close, created_at`

func scanProposal(row scanner) (governance.Proposal, error) {
	var (
		p               governance.Proposal
		policy, status  string
		meetingID       sql.NullString
		closes, decided sql.NullTime
		eligible        sql.NullInt64
	)
	err := row.Scan(
		&p.ID, &p.Title, &p.Description, &policy, &status, &p.AuthorID,
		&meetingID, &closes, &decided, &eligible, &p.CreatedAt,
	)
	if err != nil {
		return governance.Proposal{}, err
	}

	p.Policy = governance.Policy(policy)
	p.Status = governance.Status(status)
	if meetingID.Valid {
		p.MeetingID = &meetingID.String
	}
	if closes.Valid {
		p.ClosesAt = &closes.Time
	}
	if eligible.Valid {
		n := int(eligible.Int64)
		p.EligibleAtClose = &n
	}
	if decided.Valid {
		p.DecidedAt = &decided.Time
	}
	return p, nil
}

func (s *Store) queryProposals(ctx context.Context, query string, args ...any) ([]governance.Proposal, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query proposals: %w", err)
	}
	defer rows.Close()

	proposals := []governance.Proposal{}
	for rows.Next() {
		p, err := scanProposal(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan proposal: %w", err)
		}
		proposals = append(proposals, p)
	}
	return proposals, rows.Err()
}

func (s *Store) GetProposal(ctx context.Context, id string) (governance.Proposal, error) {
	p, err := scanProposal(s.db.QueryRowContext(ctx, `
		SELECT `+proposalColumns+` FROM proposal WHERE id = $1
	`, id))
	if err == sql.ErrNoRows {
		return governance.Proposal{}, fmt.Errorf("%w: %s", governance.ErrProposalNotFound, id)
	}
	if err != nil {
		return governance.Proposal{}, fmt.Errorf("failed to query proposal: %w", err)
	}
	return p, nil
}

func (s *Store) ListProposals(ctx context.Context) ([]governance.Proposal, error) {
	return s.queryProposals(ctx, `
		SELECT `+proposalColumns+` FROM proposal ORDER BY created_at DESC, id
	`)
}

func (s *Store) ListOverdue(ctx context.Context, now time.Time) ([]governance.Proposal, error) {
	open, err := s.queryProposals(ctx, `
		SELECT `+proposalColumns+` FROM proposal
		WHERE status = $1 AND closes_at IS NOT NULL
		ORDER BY closes_at
	`, string(governance.StatusOpen))
	if err != nil {
		return nil, err
	}

	// Deadlines are compared in Go; SQLite stores timestamps as text.
	overdue := open[:0]
	for _, p := range open {
		if !now.Before(*p.ClosesAt) {
			overdue = append(overdue, p)
		}
	}
	return overdue, nil
}

func (s *Store) CreateProposal(ctx context.Context, p governance.Proposal) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO proposal (id, title, description, policy, status, author_id,
			meeting_id, closes_at, decided_at, eligible_at_close, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`, p.ID, p.Title, p.Description, string(p.Policy), string(p.Status), p.AuthorID,
		p.MeetingID, p.ClosesAt, p.DecidedAt, p.EligibleAtClose, p.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert proposal: %w", err)
	}
	return nil
}

func (s *Store) UpdateDraft(ctx context.Context, p governance.Proposal) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE proposal
		SET title = $1, description = $2, policy = $3, meeting_id = $4, closes_at = $5
		WHERE id = $6 AND status = $7
	`, p.Title, p.Description, string(p.Policy), p.MeetingID, p.ClosesAt, p.ID, string(governance.StatusDraft))
	if err != nil {
		return fmt.Errorf("failed to update proposal: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to update proposal: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("%w: proposal %s is no longer a draft", governance.ErrStatusConflict, p.ID)
	}
	return nil
}

// UpdateStatus locks the proposal row in its expected status before doing
// anything else. Ballot inserts take the same lock, so the ballot count
// read afterwards for a revert includes every committed ballot.
func (s *Store) UpdateStatus(ctx context.Context, id string, from, to governance.Status, at time.Time) error {
	var decidedAt *time.Time
	if to.Terminal() {
		decidedAt = &at
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	locked, err := lockProposal(ctx, tx, id, from)
	if err != nil {
		return err
	}
	if !locked {
		tx.Rollback()
		if _, err := s.GetProposal(ctx, id); err != nil {
			return err
		}
		return fmt.Errorf("%w: proposal %s is no longer %s", governance.ErrStatusConflict, id, from)
	}

	if to == governance.StatusDraft {
		n, err := countBallots(ctx, tx, id)
		if err != nil {
			return err
		}
		if n > 0 {
			return fmt.Errorf("%w: %d ballots on proposal %s", governance.ErrVotesAlreadyCast, n, id)
		}
	}

	var eligible *int
	if to.Terminal() {
		n, err := countUnits(ctx, tx)
		if err != nil {
			return err
		}
		eligible = &n
	}

	if _, err := tx.ExecContext(ctx, `
		UPDATE proposal SET status = $1, decided_at = $2, eligible_at_close = $3 WHERE id = $4
	`, string(to), decidedAt, eligible, id); err != nil {
		return fmt.Errorf("failed to update proposal status: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit status change: %w", err)
	}
	return nil
}

// DeleteProposal removes the proposal and its ballots. The ballot check runs
// under the proposal lock; ballots are deleted explicitly for SQLite
// connections without foreign key enforcement.
func (s *Store) DeleteProposal(ctx context.Context, id string, withBallots bool) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx, `UPDATE proposal SET status = status WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to lock proposal: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to lock proposal: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("%w: %s", governance.ErrProposalNotFound, id)
	}

	if !withBallots {
		count, err := countBallots(ctx, tx, id)
		if err != nil {
			return err
		}
		if count > 0 {
			return fmt.Errorf("%w: %d ballots on proposal %s", governance.ErrVotesCast, count, id)
		}
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM ballot WHERE proposal_id = $1`, id); err != nil {
		return fmt.Errorf("failed to delete ballots: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM proposal WHERE id = $1`, id); err != nil {
		return fmt.Errorf("failed to delete proposal: %w", err)
	}

	return tx.Commit()
}

// Ballots

// lockProposal takes a write lock on the proposal row if it is in status.
// It reports false when no such row exists.
func lockProposal(ctx context.Context, tx *sql.Tx, proposalID string, status governance.Status) (bool, error) {
	res, err := tx.ExecContext(ctx, `
		UPDATE proposal SET status = status WHERE id = $1 AND status = $2
	`, proposalID, string(status))
	if err != nil {
		return false, fmt.Errorf("failed to lock proposal: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to lock proposal: %w", err)
	}
	return n == 1, nil
}

// lockOpenProposal keeps a concurrent status change from interleaving with
// a ballot insert or a verdict.
func lockOpenProposal(ctx context.Context, tx *sql.Tx, proposalID string) error {
	locked, err := lockProposal(ctx, tx, proposalID, governance.StatusOpen)
	if err != nil {
		return err
	}
	if !locked {
		return fmt.Errorf("%w: proposal %s", governance.ErrProposalNotOpen, proposalID)
	}
	return nil
}

// insertBallot reports false when the unit already voted on the proposal.
func insertBallot(ctx context.Context, tx *sql.Tx, b governance.Ballot) (bool, error) {
	res, err := tx.ExecContext(ctx, `
		INSERT INTO ballot (id, proposal_id, unit_id, caster_id, choice, weight, cast_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (proposal_id, unit_id) DO NOTHING
	`, b.ID, b.ProposalID, b.UnitID, b.CasterID, string(b.Choice), b.Weight, b.CastAt)
	if err != nil {
		return false, fmt.Errorf("failed to insert ballot: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to insert ballot: %w", err)
	}
	return n == 1, nil
}

func (s *Store) InsertBallotIfAbsent(ctx context.Context, b governance.Ballot) error {
	return s.InsertBallotsIfAbsent(ctx, []governance.Ballot{b})
}

func (s *Store) InsertBallotsIfAbsent(ctx context.Context, bs []governance.Ballot) error {
	if len(bs) == 0 {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if err := lockOpenProposal(ctx, tx, bs[0].ProposalID); err != nil {
		return err
	}

	for _, b := range bs {
		if b.ProposalID != bs[0].ProposalID {
			return fmt.Errorf("ballot batch spans proposals %s and %s", bs[0].ProposalID, b.ProposalID)
		}
		inserted, err := insertBallot(ctx, tx, b)
		if err != nil {
			return err
		}
		if !inserted {
			if len(bs) == 1 {
				return fmt.Errorf("%w: unit %s", governance.ErrDuplicateVote, b.UnitID)
			}
			return &governance.BatchError{UnitID: b.UnitID, Err: governance.ErrDuplicateVote}
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit ballots: %w", err)
	}
	return nil
}

func (s *Store) HasBallot(ctx context.Context, proposalID, unitID string) (bool, error) {
	var exists bool
	err := s.db.QueryRowContext(ctx, `
		SELECT EXISTS(
			SELECT 1 FROM ballot WHERE proposal_id = $1 AND unit_id = $2
		)
	`, proposalID, unitID).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to query ballot: %w", err)
	}
	return exists, nil
}

func (s *Store) CountBallots(ctx context.Context, proposalID string) (int, error) {
	return countBallots(ctx, s.db, proposalID)
}

func countUnits(ctx context.Context, q rowQuerier) (int, error) {
	var n int
	if err := q.QueryRowContext(ctx, `SELECT COUNT(*) FROM voting_unit`).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count voting units: %w", err)
	}
	return n, nil
}

func countBallots(ctx context.Context, q rowQuerier, proposalID string) (int, error) {
	var n int
	err := q.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM ballot WHERE proposal_id = $1
	`, proposalID).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("failed to count ballots: %w", err)
	}
	return n, nil
}

const ballotColumns = `id, proposal_id, unit_id, caster_id, choice, weight, cast_at`

func (s *Store) queryBallots(ctx context.Context, query string, args ...any) ([]governance.Ballot, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query ballots: %w", err)
	}
	defer rows.Close()

	ballots := []governance.Ballot{}
	for rows.Next() {
		var b governance.Ballot
		var choice string
		if err := rows.Scan(&b.ID, &b.ProposalID, &b.UnitID, &b.CasterID, &choice, &b.Weight, &b.CastAt); err != nil {
			return nil, fmt.Errorf("failed to scan ballot: %w", err)
		}
		b.Choice = governance.Choice(choice)
		ballots = append(ballots, b)
	}
	return ballots, rows.Err()
}

func (s *Store) ListBallots(ctx context.Context, proposalID string) ([]governance.Ballot, error) {
	return s.queryBallots(ctx, `
		SELECT `+ballotColumns+` FROM ballot WHERE proposal_id = $1 ORDER BY cast_at, id
	`, proposalID)
}

func (s *Store) ListBallotsBy(ctx context.Context, proposalID, casterID string) ([]governance.Ballot, error) {
	return s.queryBallots(ctx, `
		SELECT `+ballotColumns+` FROM ballot WHERE proposal_id = $1 AND caster_id = $2 ORDER BY cast_at, id
	`, proposalID, casterID)
}

type rowQuerier interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// Tally aggregates in SQL what governance.DeriveTally computes in Go. Every
// registered voting unit is eligible.
func (s *Store) Tally(ctx context.Context, proposalID string) (governance.Tally, error) {
	return queryTally(ctx, s.db, proposalID)
}

func queryTally(ctx context.Context, q rowQuerier, proposalID string) (governance.Tally, error) {
	var t governance.Tally
	err := q.QueryRowContext(ctx, `
		SELECT
			(SELECT COUNT(*) FROM voting_unit),
			COUNT(b.id),
			COALESCE(SUM(CASE WHEN b.choice = 'for' THEN 1 ELSE 0 END), 0),
			COALESCE(SUM(CASE WHEN b.choice = 'against' THEN 1 ELSE 0 END), 0),
			COALESCE(SUM(b.weight), 0),
			COALESCE(SUM(CASE WHEN b.choice = 'for' THEN b.weight ELSE 0 END), 0),
			COALESCE(SUM(CASE WHEN b.choice = 'against' THEN b.weight ELSE 0 END), 0)
		FROM ballot b
		WHERE b.proposal_id = $1
	`, proposalID).Scan(
		&t.TotalEligible, &t.VotesCast, &t.VotesFor, &t.VotesAgainst,
		&t.WeightCast, &t.WeightFor, &t.WeightAgainst,
	)
	if err != nil {
		return governance.Tally{}, fmt.Errorf("failed to aggregate tally: %w", err)
	}
	return t, nil
}

// CloseOpen counts and closes an open proposal while holding the same lock
// ballot inserts take, so the recorded verdict covers every stored ballot.
func (s *Store) CloseOpen(ctx context.Context, id string, at time.Time, verdict func(governance.Tally) governance.Status) (governance.Status, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return "", fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if err := lockOpenProposal(ctx, tx, id); err != nil {
		return "", err
	}

	t, err := queryTally(ctx, tx, id)
	if err != nil {
		return "", err
	}
	to := verdict(t)
	if !to.Terminal() {
		return "", fmt.Errorf("%w: %s -> %s", governance.ErrInvalidTransition, governance.StatusOpen, to)
	}

	if _, err := tx.ExecContext(ctx, `
		UPDATE proposal SET status = $1, decided_at = $2, eligible_at_close = $3 WHERE id = $4
	`, string(to), at, t.TotalEligible, id); err != nil {
		return "", fmt.Errorf("failed to close proposal: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return "", fmt.Errorf("failed to commit verdict: %w", err)
	}
	return to, nil
}
