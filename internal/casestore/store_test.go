package casestore

import (
	"context"
	"encoding/json"
	"path/filepath"
	"testing"
	"time"

	"github.com/joelkehle/col-analyzer/internal/colanalysis"
	"github.com/joelkehle/col-analyzer/internal/refdata"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "cases.db"))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func sampleSession() *colanalysis.Session {
	score := 85
	return &colanalysis.Session{
		ID:                  "s-1",
		CaseCitation:        "Federal Court, 20.12.2005 - BGE 132 III 285",
		Username:            "jdoe",
		UserEmail:           "jdoe@example.org",
		Model:               "test-model",
		FullText:            "full judgment text",
		PreciseJurisdiction: "Switzerland",
		JurisdictionCode:    "CHE",
		LegalSystem:         refdata.CivilLaw,
		JurisdictionScore:   &score,
		StageOrder:          colanalysis.StageSequence(refdata.CivilLaw),
		Stages:              map[colanalysis.StageName]*colanalysis.StageRecord{},
		Done:                true,
		CreatedAt:           time.Now().UTC(),
	}
}

func TestSaveAndRoundTrip(t *testing.T) {
	s := openTestStore(t)
	sess := sampleSession()
	if err := s.Save(context.Background(), sess); err != nil {
		t.Fatalf("Save: %v", err)
	}

	var row struct {
		Username     string `db:"username"`
		Model        string `db:"model"`
		CaseCitation string `db:"case_citation"`
		UserEmail    string `db:"user_email"`
		Data         string `db:"data"`
	}
	if err := s.db.Get(&row, `SELECT username, model, case_citation, user_email, data FROM case_analyses`); err != nil {
		t.Fatalf("select: %v", err)
	}
	if row.Username != "jdoe" || row.Model != "test-model" || row.UserEmail != "jdoe@example.org" {
		t.Fatalf("unexpected metadata columns: %+v", row)
	}
	if row.CaseCitation != sess.CaseCitation {
		t.Fatalf("case_citation = %q", row.CaseCitation)
	}

	var restored colanalysis.Session
	if err := json.Unmarshal([]byte(row.Data), &restored); err != nil {
		t.Fatalf("unmarshal data: %v", err)
	}
	if restored.ID != sess.ID || restored.PreciseJurisdiction != "Switzerland" || !restored.Done {
		t.Fatalf("round trip mismatch: %+v", restored)
	}
	if len(restored.StageOrder) != 7 {
		t.Fatalf("stage order length = %d", len(restored.StageOrder))
	}
}

func TestSaveAppendsRows(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	for i := 0; i < 3; i++ {
		if err := s.Save(ctx, sampleSession()); err != nil {
			t.Fatalf("Save %d: %v", i, err)
		}
	}
	n, err := s.Count(ctx)
	if err != nil {
		t.Fatalf("Count: %v", err)
	}
	if n != 3 {
		t.Fatalf("count = %d, want 3", n)
	}
}

func TestOpenIsIdempotentAcrossUpgrades(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "cases.db")

	s1, err := Open(path)
	if err != nil {
		t.Fatalf("first Open: %v", err)
	}
	if err := s1.Save(context.Background(), sampleSession()); err != nil {
		t.Fatalf("Save: %v", err)
	}
	s1.Close()

	// Reopening must re-run schema and upgrades without error or data loss.
	s2, err := Open(path)
	if err != nil {
		t.Fatalf("second Open: %v", err)
	}
	defer s2.Close()
	n, err := s2.Count(context.Background())
	if err != nil {
		t.Fatalf("Count: %v", err)
	}
	if n != 1 {
		t.Fatalf("count = %d, want 1", n)
	}
}
