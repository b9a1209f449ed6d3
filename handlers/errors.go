// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package handlers

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/danielhkuo/vve-governance/auth"
	"github.com/danielhkuo/vve-governance/db"
	"github.com/danielhkuo/vve-governance/governance"
	"github.com/danielhkuo/vve-governance/middleware"
)

type errorKind struct {
	err    error
	status int
	code   string
}

// Order matters: the first match wins.
var errorKinds = []errorKind{
	{governance.ErrProposalNotFound, http.StatusNotFound, "proposal_not_found"},
	{governance.ErrUnitNotFound, http.StatusNotFound, "unit_not_found"},

	{governance.ErrForbidden, http.StatusForbidden, "forbidden"},
	{governance.ErrUnitNotEligible, http.StatusForbidden, "unit_not_eligible"},

	{governance.ErrProposalNotOpen, http.StatusConflict, "proposal_not_open"},
	{governance.ErrDuplicateVote, http.StatusConflict, "duplicate_vote"},
	{governance.ErrVotesAlreadyCast, http.StatusConflict, "votes_already_cast"},
	{governance.ErrVotesCast, http.StatusConflict, "votes_cast"},
	{governance.ErrStatusConflict, http.StatusConflict, "status_conflict"},
	{governance.ErrInvalidTransition, http.StatusConflict, "invalid_transition"},
	{governance.ErrProposalNotDraft, http.StatusConflict, "proposal_not_draft"},
	{governance.ErrNotExpired, http.StatusConflict, "not_expired"},
	{db.ErrUnitExists, http.StatusConflict, "unit_exists"},

	{governance.ErrInvalidChoice, http.StatusBadRequest, "invalid_choice"},
	{governance.ErrInvalidPolicy, http.StatusBadRequest, "invalid_policy"},
	{governance.ErrInvalidProposal, http.StatusBadRequest, "invalid_proposal"},
}

// writeGovernanceError maps a governance error to a status code. Unknown
// errors are logged and reported as 500 without details.
func writeGovernanceError(w http.ResponseWriter, err error, msg string, args ...any) {
	for _, k := range errorKinds {
		if errors.Is(err, k.err) {
			middleware.ErrorWithCode(w, k.status, k.code, err.Error())
			return
		}
	}

	slog.Error(msg, append(args, "error", err)...)
	middleware.ErrorResponse(w, http.StatusInternalServerError, msg)
}

// requireActor resolves the acting person or writes a 401.
func requireActor(w http.ResponseWriter, r *http.Request, salt string) (governance.Actor, bool) {
	actor, err := middleware.ActorFromRequest(r, salt)
	if err != nil {
		if errors.Is(err, auth.ErrInvalidToken) {
			middleware.ErrorWithCode(w, http.StatusUnauthorized, "invalid_actor", "Invalid actor token")
		} else {
			middleware.ErrorWithCode(w, http.StatusUnauthorized, "missing_actor", "X-Actor-Token header required")
		}
		return governance.Actor{}, false
	}
	return actor, true
}
