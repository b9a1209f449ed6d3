// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package handlers

import (
	"database/sql"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/danielhkuo/vve-governance/cliparse"
	"github.com/danielhkuo/vve-governance/db"
	"github.com/danielhkuo/vve-governance/governance"
	"github.com/danielhkuo/vve-governance/models"
	"github.com/danielhkuo/vve-governance/testutil"
)

// testEnv bundles a fresh database with the handlers under test.
type testEnv struct {
	db        *sql.DB
	cfg       cliparse.Config
	store     *db.Store
	svc       *governance.Service
	proposals *ProposalHandler
	voting    *VotingHandler
	results   *ResultsHandler
	members   *MemberHandler
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	conn := testutil.SetupTestDB(t)
	cfg := testutil.GetTestConfig()
	store := db.NewStore(conn)
	svc := governance.NewService(store)
	return &testEnv{
		db:        conn,
		cfg:       cfg,
		store:     store,
		svc:       svc,
		proposals: NewProposalHandler(svc, cfg),
		voting:    NewVotingHandler(svc, cfg),
		results:   NewResultsHandler(svc, cfg),
		members:   NewMemberHandler(store, svc, cfg),
	}
}

func (e *testEnv) member(personID string) map[string]string {
	return testutil.ActorHeaders(e.cfg, personID, governance.RoleMember)
}

func (e *testEnv) manager() map[string]string {
	return testutil.ActorHeaders(e.cfg, "board", governance.RoleManager)
}

func (e *testEnv) superAdmin() map[string]string {
	return testutil.ActorHeaders(e.cfg, "root", governance.RoleSuperAdmin)
}

// serve runs handler on a request with the {id} path value set.
func serve(handler http.HandlerFunc, method, path, id string, body interface{}, headers map[string]string) *httptest.ResponseRecorder {
	req := testutil.MakeRequest(method, path, body, headers)
	if id != "" {
		req.SetPathValue("id", id)
	}
	w := httptest.NewRecorder()
	handler(w, req)
	return w
}

// assertCode checks the status and the machine-readable error code.
func assertCode(t *testing.T, w *httptest.ResponseRecorder, status int, code string) {
	t.Helper()
	testutil.AssertStatus(t, w, status)
	var resp models.ErrorResponse
	testutil.AssertJSON(t, w, &resp)
	if resp.Code != code {
		t.Errorf("Expected error code '%s', got '%s' (%s)", code, resp.Code, resp.Message)
	}
}

// createOpenProposal creates an open proposal through the handler.
func (e *testEnv) createOpenProposal(t *testing.T, policy governance.Policy) string {
	t.Helper()
	w := serve(e.proposals.CreateProposal, "POST", "/proposals", "",
		models.CreateProposalRequest{Title: "Replace boiler", Policy: string(policy), Open: true}, e.manager())
	if w.Code != http.StatusCreated {
		t.Fatalf("Failed to create proposal: %d - %s", w.Code, w.Body.String())
	}
	var resp models.ProposalResponse
	testutil.AssertJSON(t, w, &resp)
	return resp.Proposal.ID
}

func (e *testEnv) cast(proposalID, personID string, req models.CastBallotRequest) *httptest.ResponseRecorder {
	return serve(e.voting.CastBallots, "POST", "/proposals/"+proposalID+"/ballots", proposalID, req, e.member(personID))
}
