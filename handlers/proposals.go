// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package handlers

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/danielhkuo/vve-governance/cliparse"
	"github.com/danielhkuo/vve-governance/governance"
	"github.com/danielhkuo/vve-governance/middleware"
	"github.com/danielhkuo/vve-governance/models"
)

type ProposalHandler struct {
	svc *governance.Service
	cfg cliparse.Config
}

func NewProposalHandler(svc *governance.Service, cfg cliparse.Config) *ProposalHandler {
	return &ProposalHandler{svc: svc, cfg: cfg}
}

// CreateProposal handles POST /proposals
func (h *ProposalHandler) CreateProposal(w http.ResponseWriter, r *http.Request) {
	actor, ok := requireActor(w, r, h.cfg.ActorTokenSalt)
	if !ok {
		return
	}

	var req models.CreateProposalRequest
	if err := middleware.ParseJSONBody(r, &req); err != nil {
		middleware.ErrorResponse(w, http.StatusBadRequest, "Invalid JSON")
		return
	}

	p, err := h.svc.Lifecycle.Create(r.Context(), actor, governance.Draft{
		Title:       req.Title,
		Description: req.Description,
		Policy:      governance.Policy(req.Policy),
		MeetingID:   req.MeetingID,
		ClosesAt:    req.ClosesAt,
		Open:        req.Open,
	})
	if err != nil {
		writeGovernanceError(w, err, "Failed to create proposal")
		return
	}

	slog.Info("proposal created",
		"proposal_id", p.ID,
		"author", actor.PersonID,
		"policy", p.Policy,
		"status", p.Status,
	)

	h.respondWithDecision(w, r, http.StatusCreated, p)
}

// ListProposals handles GET /proposals
func (h *ProposalHandler) ListProposals(w http.ResponseWriter, r *http.Request) {
	proposals, err := h.svc.Lifecycle.List(r.Context())
	if err != nil {
		writeGovernanceError(w, err, "Failed to list proposals")
		return
	}

	middleware.JSONResponse(w, http.StatusOK, models.ListProposalsResponse{Proposals: proposals})
}

// GetProposal handles GET /proposals/{id}
// Returns the proposal with its current decision snapshot
func (h *ProposalHandler) GetProposal(w http.ResponseWriter, r *http.Request) {
	p, d, err := h.svc.Lifecycle.Decision(r.Context(), r.PathValue("id"))
	if err != nil {
		writeGovernanceError(w, err, "Failed to load proposal", "proposal_id", r.PathValue("id"))
		return
	}

	middleware.JSONResponse(w, http.StatusOK, models.ProposalResponse{
		Proposal: p,
		Decision: d,
		Outcome:  d.Outcome(),
	})
}

// EditProposal handles PATCH /proposals/{id}
// Only the author may edit, and only while the proposal is a draft
func (h *ProposalHandler) EditProposal(w http.ResponseWriter, r *http.Request) {
	actor, ok := requireActor(w, r, h.cfg.ActorTokenSalt)
	if !ok {
		return
	}

	var req models.EditProposalRequest
	if err := middleware.ParseJSONBody(r, &req); err != nil {
		middleware.ErrorResponse(w, http.StatusBadRequest, "Invalid JSON")
		return
	}

	changes := governance.Changes{
		Title:       req.Title,
		Description: req.Description,
		MeetingID:   req.MeetingID,
		ClosesAt:    req.ClosesAt,
	}
	if req.Policy != nil {
		policy := governance.Policy(*req.Policy)
		changes.Policy = &policy
	}

	p, err := h.svc.Lifecycle.Edit(r.Context(), actor, r.PathValue("id"), changes)
	if err != nil {
		writeGovernanceError(w, err, "Failed to edit proposal", "proposal_id", r.PathValue("id"))
		return
	}

	slog.Info("proposal edited", "proposal_id", p.ID, "actor", actor.PersonID)
	middleware.JSONResponse(w, http.StatusOK, p)
}

// DeleteProposal handles DELETE /proposals/{id}
func (h *ProposalHandler) DeleteProposal(w http.ResponseWriter, r *http.Request) {
	actor, ok := requireActor(w, r, h.cfg.ActorTokenSalt)
	if !ok {
		return
	}

	id := r.PathValue("id")
	if err := h.svc.Lifecycle.Delete(r.Context(), actor, id); err != nil {
		writeGovernanceError(w, err, "Failed to delete proposal", "proposal_id", id)
		return
	}

	slog.Info("proposal deleted", "proposal_id", id, "actor", actor.PersonID, "role", actor.Role)
	w.WriteHeader(http.StatusNoContent)
}

// OpenProposal handles POST /proposals/{id}/open
func (h *ProposalHandler) OpenProposal(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, "opened", h.svc.Lifecycle.Open)
}

// RevertProposal handles POST /proposals/{id}/revert
// Fails with 409 once any ballot has been cast
func (h *ProposalHandler) RevertProposal(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, "reverted to draft", h.svc.Lifecycle.Revert)
}

func (h *ProposalHandler) transition(
	w http.ResponseWriter,
	r *http.Request,
	verb string,
	fn func(ctx context.Context, actor governance.Actor, id string) (governance.Proposal, error),
) {
	actor, ok := requireActor(w, r, h.cfg.ActorTokenSalt)
	if !ok {
		return
	}

	id := r.PathValue("id")
	p, err := fn(r.Context(), actor, id)
	if err != nil {
		writeGovernanceError(w, err, "Failed to update proposal", "proposal_id", id)
		return
	}

	slog.Info("proposal "+verb, "proposal_id", p.ID, "actor", actor.PersonID)
	h.respondWithDecision(w, r, http.StatusOK, p)
}

// FinalizeProposal handles POST /proposals/{id}/finalize
// Closes voting; accepted if the threshold is met, rejected otherwise
func (h *ProposalHandler) FinalizeProposal(w http.ResponseWriter, r *http.Request) {
	actor, ok := requireActor(w, r, h.cfg.ActorTokenSalt)
	if !ok {
		return
	}

	id := r.PathValue("id")
	p, d, err := h.svc.Lifecycle.Finalize(r.Context(), actor, id)
	if err != nil {
		writeGovernanceError(w, err, "Failed to finalize proposal", "proposal_id", id)
		return
	}

	slog.Info("proposal finalized",
		"proposal_id", p.ID,
		"status", p.Status,
		"votes_for", d.VotesFor,
		"required_for", d.RequiredFor,
		"total_eligible", d.TotalEligible,
	)

	middleware.JSONResponse(w, http.StatusOK, models.ProposalResponse{
		Proposal: p,
		Decision: d,
		Outcome:  d.Outcome(),
	})
}

func (h *ProposalHandler) respondWithDecision(w http.ResponseWriter, r *http.Request, status int, p governance.Proposal) {
	tally, err := h.svc.Counter.Tally(r.Context(), p.ID)
	if err != nil {
		writeGovernanceError(w, err, "Failed to compute decision", "proposal_id", p.ID)
		return
	}

	d := governance.Evaluate(p.Policy, tally)
	middleware.JSONResponse(w, status, models.ProposalResponse{
		Proposal: p,
		Decision: d,
		Outcome:  d.Outcome(),
	})
}
