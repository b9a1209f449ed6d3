// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package router

import (
	"database/sql"
	"net/http"

	"github.com/danielhkuo/vve-governance/cliparse"
	"github.com/danielhkuo/vve-governance/db"
	"github.com/danielhkuo/vve-governance/governance"
	"github.com/danielhkuo/vve-governance/handlers"
	"github.com/danielhkuo/vve-governance/middleware"
)

func NewRouter(conn *sql.DB, cfg cliparse.Config, opts ...governance.Option) *http.ServeMux {
	store := db.NewStore(conn)
	return NewRouterWithService(store, governance.NewService(store, opts...), cfg)
}

// NewRouterWithService registers all endpoints over an existing service,
// so the server and the expiry sweeper can share one.
func NewRouterWithService(store *db.Store, svc *governance.Service, cfg cliparse.Config) *http.ServeMux {
	mux := http.NewServeMux()

	// Initialize handlers
	proposalHandler := handlers.NewProposalHandler(svc, cfg)
	votingHandler := handlers.NewVotingHandler(svc, cfg)
	resultsHandler := handlers.NewResultsHandler(svc, cfg)
	memberHandler := handlers.NewMemberHandler(store, svc, cfg)

	// Health check
	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})

	// Voting unit registry (managers)
	mux.HandleFunc("POST /units", middleware.WithLogging(memberHandler.CreateUnit))
	mux.HandleFunc("PATCH /units/{id}", middleware.WithLogging(memberHandler.UpdateUnit))

	// Members
	mux.HandleFunc("GET /members/me", middleware.WithLogging(memberHandler.GetMe))
	mux.HandleFunc("GET /members/{id}/units", middleware.WithLogging(memberHandler.GetUnits))

	// Proposal lifecycle
	mux.HandleFunc("POST /proposals", middleware.WithLogging(proposalHandler.CreateProposal))
	mux.HandleFunc("GET /proposals", middleware.WithLogging(proposalHandler.ListProposals))
	mux.HandleFunc("GET /proposals/{id}", middleware.WithLogging(proposalHandler.GetProposal))
	mux.HandleFunc("PATCH /proposals/{id}", middleware.WithLogging(proposalHandler.EditProposal))
	mux.HandleFunc("DELETE /proposals/{id}", middleware.WithLogging(proposalHandler.DeleteProposal))
	mux.HandleFunc("POST /proposals/{id}/open", middleware.WithLogging(proposalHandler.OpenProposal))
	mux.HandleFunc("POST /proposals/{id}/revert", middleware.WithLogging(proposalHandler.RevertProposal))
	mux.HandleFunc("POST /proposals/{id}/finalize", middleware.WithLogging(proposalHandler.FinalizeProposal))

	// Voting
	mux.HandleFunc("POST /proposals/{id}/ballots", middleware.WithLogging(votingHandler.CastBallots))
	mux.HandleFunc("GET /proposals/{id}/my-ballots", middleware.WithLogging(votingHandler.GetMyBallots))

	// Results
	mux.HandleFunc("GET /proposals/{id}/ballots", middleware.WithLogging(resultsHandler.GetBallots))
	mux.HandleFunc("GET /proposals/{id}/decision", middleware.WithLogging(resultsHandler.GetDecision))

	// Root endpoint
	mux.HandleFunc("GET /", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("vve-governance API v1"))
	})

	return mux
}
