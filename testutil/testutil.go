// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package testutil

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/danielhkuo/vve-governance/auth"
	"github.com/danielhkuo/vve-governance/cliparse"
	"github.com/danielhkuo/vve-governance/db"
	"github.com/danielhkuo/vve-governance/governance"
	"github.com/google/uuid"
)

// SetupTestDB creates a fresh file-backed SQLite database with the full
// schema. It is closed when the test ends.
func SetupTestDB(t *testing.T) *sql.DB {
	t.Helper()

	url := "file:" + filepath.Join(t.TempDir(), "test.db") +
		"?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)"

	conn, err := db.Open(context.Background(), db.TypeSQLite, url)
	if err != nil {
		t.Fatalf("Failed to open test database: %v", err)
	}
	t.Cleanup(func() { conn.Close() })

	if err := db.CreateSchema(context.Background(), conn); err != nil {
		t.Fatalf("Failed to create schema: %v", err)
	}

	return conn
}

// GetTestConfig returns a standard test configuration
func GetTestConfig() cliparse.Config {
	return cliparse.Config{
		Port:           3318,
		DatabaseURL:    "file::memory:",
		DatabaseType:   db.TypeSQLite,
		ActorTokenSalt: "test-actor-salt",
	}
}

// ActorHeaders returns request headers identifying personID with role
func ActorHeaders(cfg cliparse.Config, personID string, role governance.Role) map[string]string {
	return map[string]string{
		"X-Actor-Token": auth.GenerateActorToken(personID, role, cfg.ActorTokenSalt),
	}
}

// CreateTestUnit registers a voting unit owned by ownerID. A nil weight
// counts as 1.
func CreateTestUnit(t *testing.T, conn *sql.DB, unitID, ownerID string, weight *float64) {
	t.Helper()

	err := db.NewStore(conn).CreateUnit(context.Background(), governance.VotingUnit{
		ID:      unitID,
		OwnerID: ownerID,
		Label:   "Apartment " + unitID,
		Weight:  weight,
	})
	if err != nil {
		t.Fatalf("Failed to create test unit: %v", err)
	}
}

// CreateTestProposal creates a proposal in the given status and returns its ID
func CreateTestProposal(t *testing.T, conn *sql.DB, status governance.Status, policy governance.Policy) string {
	t.Helper()

	p := governance.Proposal{
		ID:          uuid.NewString(),
		Title:       "Test Proposal",
		Description: "A test proposal",
		Policy:      policy,
		Status:      status,
		AuthorID:    "board",
		CreatedAt:   time.Now().UTC(),
	}
	if status.Terminal() {
		p.DecidedAt = &p.CreatedAt
	}

	if err := db.NewStore(conn).CreateProposal(context.Background(), p); err != nil {
		t.Fatalf("Failed to create test proposal: %v", err)
	}

	return p.ID
}

// CastTestBallot stores a ballot directly, bypassing eligibility checks.
// The proposal must be open.
func CastTestBallot(t *testing.T, conn *sql.DB, proposalID, unitID, casterID string, choice governance.Choice) string {
	t.Helper()

	b := governance.Ballot{
		ID:         uuid.NewString(),
		ProposalID: proposalID,
		UnitID:     unitID,
		CasterID:   casterID,
		Choice:     choice,
		Weight:     governance.DefaultWeight,
		CastAt:     time.Now().UTC(),
	}
	if err := db.NewStore(conn).InsertBallotIfAbsent(context.Background(), b); err != nil {
		t.Fatalf("Failed to create test ballot: %v", err)
	}

	return b.ID
}

// MakeRequest creates an HTTP test request
func MakeRequest(method, path string, body interface{}, headers map[string]string) *http.Request {
	var req *http.Request
	if body != nil {
		jsonBody, _ := json.Marshal(body)
		req = httptest.NewRequest(method, path, bytes.NewReader(jsonBody))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, path, nil)
	}

	for k, v := range headers {
		req.Header.Set(k, v)
	}

	return req
}

// AssertStatus checks that the response has the expected status code
func AssertStatus(t *testing.T, w *httptest.ResponseRecorder, expected int) {
	t.Helper()
	if w.Code != expected {
		t.Errorf("Expected status %d, got %d. Body: %s", expected, w.Code, w.Body.String())
	}
}

// AssertJSON decodes the response body into the provided struct
func AssertJSON(t *testing.T, w *httptest.ResponseRecorder, v interface{}) {
	t.Helper()
	if err := json.NewDecoder(w.Body).Decode(v); err != nil {
		t.Fatalf("Failed to decode JSON response: %v", err)
	}
}
