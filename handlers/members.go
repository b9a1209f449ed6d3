// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package handlers

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/danielhkuo/vve-governance/cliparse"
	"github.com/danielhkuo/vve-governance/db"
	"github.com/danielhkuo/vve-governance/governance"
	"github.com/danielhkuo/vve-governance/middleware"
	"github.com/danielhkuo/vve-governance/models"
	"github.com/google/uuid"
)

// MemberHandler serves the voting unit registry and per-person views.
type MemberHandler struct {
	store *db.Store
	svc   *governance.Service
	cfg   cliparse.Config
}

func NewMemberHandler(store *db.Store, svc *governance.Service, cfg cliparse.Config) *MemberHandler {
	return &MemberHandler{store: store, svc: svc, cfg: cfg}
}

// requireManager writes 403 unless the actor may manage the registry.
func (h *MemberHandler) requireManager(w http.ResponseWriter, r *http.Request) (governance.Actor, bool) {
	actor, ok := requireActor(w, r, h.cfg.ActorTokenSalt)
	if !ok {
		return governance.Actor{}, false
	}
	if !actor.Role.CanManage() {
		middleware.ErrorWithCode(w, http.StatusForbidden, "forbidden", "Manager role required")
		return governance.Actor{}, false
	}
	return actor, true
}

func validWeight(w *float64) bool {
	return w == nil || *w > 0
}

// CreateUnit handles POST /units
func (h *MemberHandler) CreateUnit(w http.ResponseWriter, r *http.Request) {
	actor, ok := h.requireManager(w, r)
	if !ok {
		return
	}

	var req models.CreateUnitRequest
	if err := middleware.ParseJSONBody(r, &req); err != nil {
		middleware.ErrorResponse(w, http.StatusBadRequest, "Invalid JSON")
		return
	}

	if strings.TrimSpace(req.OwnerID) == "" {
		middleware.ErrorResponse(w, http.StatusBadRequest, "owner_id is required")
		return
	}
	if !validWeight(req.Weight) {
		middleware.ErrorResponse(w, http.StatusBadRequest, "weight must be positive")
		return
	}

	unit := governance.VotingUnit{
		ID:      req.ID,
		OwnerID: req.OwnerID,
		Label:   req.Label,
		Weight:  req.Weight,
	}
	if unit.ID == "" {
		unit.ID = uuid.NewString()
	}

	if err := h.store.CreateUnit(r.Context(), unit); err != nil {
		writeGovernanceError(w, err, "Failed to create voting unit", "unit_id", unit.ID)
		return
	}

	slog.Info("voting unit registered", "unit_id", unit.ID, "owner", unit.OwnerID, "by", actor.PersonID)
	middleware.JSONResponse(w, http.StatusCreated, unit)
}

// UpdateUnit handles PATCH /units/{id}
// Ownership and weight changes only affect ballots cast afterwards
func (h *MemberHandler) UpdateUnit(w http.ResponseWriter, r *http.Request) {
	actor, ok := h.requireManager(w, r)
	if !ok {
		return
	}

	var req models.UpdateUnitRequest
	if err := middleware.ParseJSONBody(r, &req); err != nil {
		middleware.ErrorResponse(w, http.StatusBadRequest, "Invalid JSON")
		return
	}
	if !validWeight(req.Weight) {
		middleware.ErrorResponse(w, http.StatusBadRequest, "weight must be positive")
		return
	}
	if req.ClearWeight && req.Weight != nil {
		middleware.ErrorResponse(w, http.StatusBadRequest, "Use either weight or clear_weight, not both")
		return
	}

	unit, err := h.store.GetUnit(r.Context(), r.PathValue("id"))
	if err != nil {
		writeGovernanceError(w, err, "Failed to load voting unit", "unit_id", r.PathValue("id"))
		return
	}

	if req.OwnerID != nil {
		if strings.TrimSpace(*req.OwnerID) == "" {
			middleware.ErrorResponse(w, http.StatusBadRequest, "owner_id must not be empty")
			return
		}
		unit.OwnerID = *req.OwnerID
	}
	if req.Label != nil {
		unit.Label = *req.Label
	}
	if req.Weight != nil {
		unit.Weight = req.Weight
	}
	if req.ClearWeight {
		unit.Weight = nil
	}

	if err := h.store.UpdateUnit(r.Context(), unit); err != nil {
		writeGovernanceError(w, err, "Failed to update voting unit", "unit_id", unit.ID)
		return
	}

	slog.Info("voting unit updated", "unit_id", unit.ID, "owner", unit.OwnerID, "by", actor.PersonID)
	middleware.JSONResponse(w, http.StatusOK, unit)
}

// GetMe handles GET /members/me
// Returns the voting units the actor controls
func (h *MemberHandler) GetMe(w http.ResponseWriter, r *http.Request) {
	actor, ok := requireActor(w, r, h.cfg.ActorTokenSalt)
	if !ok {
		return
	}

	units, err := h.svc.Resolver.UnitsControlledBy(r.Context(), actor.PersonID)
	if err != nil {
		writeGovernanceError(w, err, "Failed to load voting units", "person_id", actor.PersonID)
		return
	}

	middleware.JSONResponse(w, http.StatusOK, models.MemberUnitsResponse{
		PersonID: actor.PersonID,
		Role:     actor.Role,
		Units:    units,
	})
}

// GetUnits handles GET /members/{id}/units
func (h *MemberHandler) GetUnits(w http.ResponseWriter, r *http.Request) {
	personID := r.PathValue("id")
	units, err := h.svc.Resolver.UnitsControlledBy(r.Context(), personID)
	if err != nil {
		writeGovernanceError(w, err, "Failed to load voting units", "person_id", personID)
		return
	}

	middleware.JSONResponse(w, http.StatusOK, models.MemberUnitsResponse{
		PersonID: personID,
		Units:    units,
	})
}
