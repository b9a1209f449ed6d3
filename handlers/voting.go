// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package handlers

import (
	"log/slog"
	"net/http"

	"github.com/danielhkuo/vve-governance/cliparse"
	"github.com/danielhkuo/vve-governance/governance"
	"github.com/danielhkuo/vve-governance/middleware"
	"github.com/danielhkuo/vve-governance/models"
)

type VotingHandler struct {
	svc *governance.Service
	cfg cliparse.Config
}

func NewVotingHandler(svc *governance.Service, cfg cliparse.Config) *VotingHandler {
	return &VotingHandler{svc: svc, cfg: cfg}
}

// CastBallots handles POST /proposals/{id}/ballots
// A single unit_id casts one ballot; unit_ids or an empty selection casts
// for several units at once, all or nothing
func (h *VotingHandler) CastBallots(w http.ResponseWriter, r *http.Request) {
	actor, ok := requireActor(w, r, h.cfg.ActorTokenSalt)
	if !ok {
		return
	}

	var req models.CastBallotRequest
	if err := middleware.ParseJSONBody(r, &req); err != nil {
		middleware.ErrorResponse(w, http.StatusBadRequest, "Invalid JSON")
		return
	}
	if req.UnitID != "" && len(req.UnitIDs) > 0 {
		middleware.ErrorResponse(w, http.StatusBadRequest, "Use either unit_id or unit_ids, not both")
		return
	}

	proposalID := r.PathValue("id")
	choice := governance.Choice(req.Choice)

	var ballots []governance.Ballot
	if req.UnitID != "" {
		b, err := h.svc.Ledger.CastBallot(r.Context(), actor.PersonID, proposalID, req.UnitID, choice)
		if err != nil {
			writeGovernanceError(w, err, "Failed to cast ballot", "proposal_id", proposalID, "unit_id", req.UnitID)
			return
		}
		ballots = []governance.Ballot{b}
	} else {
		var err error
		ballots, err = h.svc.Ledger.CastBatch(r.Context(), actor.PersonID, proposalID, choice, req.UnitIDs)
		if err != nil {
			writeGovernanceError(w, err, "Failed to cast ballots", "proposal_id", proposalID)
			return
		}
	}

	for _, b := range ballots {
		slog.Info("ballot cast",
			"proposal_id", proposalID,
			"unit_id", b.UnitID,
			"caster", actor.PersonID,
			"choice", b.Choice,
			"weight", b.Weight,
		)
	}

	middleware.JSONResponse(w, http.StatusCreated, models.CastBallotResponse{Ballots: ballots})
}

// GetMyBallots handles GET /proposals/{id}/my-ballots
func (h *VotingHandler) GetMyBallots(w http.ResponseWriter, r *http.Request) {
	actor, ok := requireActor(w, r, h.cfg.ActorTokenSalt)
	if !ok {
		return
	}

	proposalID := r.PathValue("id")
	ballots, err := h.svc.Ledger.BallotsBy(r.Context(), proposalID, actor.PersonID)
	if err != nil {
		writeGovernanceError(w, err, "Failed to load ballots", "proposal_id", proposalID)
		return
	}

	middleware.JSONResponse(w, http.StatusOK, models.BallotsResponse{
		ProposalID: proposalID,
		Ballots:    ballots,
	})
}
