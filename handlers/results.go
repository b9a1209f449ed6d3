// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package handlers

import (
	"net/http"

	"github.com/danielhkuo/vve-governance/cliparse"
	"github.com/danielhkuo/vve-governance/governance"
	"github.com/danielhkuo/vve-governance/middleware"
	"github.com/danielhkuo/vve-governance/models"
)

type ResultsHandler struct {
	svc *governance.Service
	cfg cliparse.Config
}

func NewResultsHandler(svc *governance.Service, cfg cliparse.Config) *ResultsHandler {
	return &ResultsHandler{svc: svc, cfg: cfg}
}

// GetDecision handles GET /proposals/{id}/decision
// Computes the snapshot from the current tally; never changes status
func (h *ResultsHandler) GetDecision(w http.ResponseWriter, r *http.Request) {
	proposalID := r.PathValue("id")
	_, d, err := h.svc.Lifecycle.Decision(r.Context(), proposalID)
	if err != nil {
		writeGovernanceError(w, err, "Failed to compute decision", "proposal_id", proposalID)
		return
	}

	middleware.JSONResponse(w, http.StatusOK, d)
}

// GetBallots handles GET /proposals/{id}/ballots
func (h *ResultsHandler) GetBallots(w http.ResponseWriter, r *http.Request) {
	proposalID := r.PathValue("id")
	ballots, err := h.svc.Ledger.BallotsFor(r.Context(), proposalID)
	if err != nil {
		writeGovernanceError(w, err, "Failed to load ballots", "proposal_id", proposalID)
		return
	}

	middleware.JSONResponse(w, http.StatusOK, models.BallotsResponse{
		ProposalID: proposalID,
		Ballots:    ballots,
	})
}
