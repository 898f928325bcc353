package colanalysis

import (
	"context"
	"strings"
	"testing"

	"github.com/joelkehle/col-analyzer/internal/refdata"
)

func TestStageSequenceLengths(t *testing.T) {
	civil := StageSequence(refdata.CivilLaw)
	if len(civil) != 7 {
		t.Fatalf("civil-law sequence length = %d, want 7", len(civil))
	}
	common := StageSequence(refdata.CommonLaw)
	if len(common) != 9 {
		t.Fatalf("common-law sequence length = %d, want 9", len(common))
	}
	if civil[len(civil)-1] != StageAbstract || common[len(common)-1] != StageAbstract {
		t.Fatal("abstract must be last in both sequences")
	}
	for _, name := range []StageName{StageObiterDicta, StageDissenting} {
		for _, s := range civil {
			if s == name {
				t.Fatalf("%s must not appear in the civil-law sequence", name)
			}
		}
	}
}

func TestSubstitute(t *testing.T) {
	out := substitute("a {x} b {y} c {x}", map[string]string{"x": "1", "y": "2"})
	if out != "a 1 b 2 c 1" {
		t.Fatalf("substitute = %q", out)
	}
}

func TestParseThemeListJSON(t *testing.T) {
	tables := testTables()
	themes, ok := parseThemeList(tables, "```json\n[\"Contractual Obligations\", \"Torts\"]\n```")
	if !ok || len(themes) != 2 {
		t.Fatalf("parse failed: %v %v", themes, ok)
	}
}

func TestParseThemeListLines(t *testing.T) {
	tables := testTables()
	themes, ok := parseThemeList(tables, "- Contractual Obligations\n- Party Autonomy\n")
	if !ok || len(themes) != 2 || themes[1] != "Party Autonomy" {
		t.Fatalf("parse failed: %v %v", themes, ok)
	}
}

func TestParseThemeListRejectsUnknownMembers(t *testing.T) {
	tables := testTables()
	if _, ok := parseThemeList(tables, `["Contractual Obligations", "NotATheme"]`); ok {
		t.Fatal("unknown theme accepted")
	}
	if _, ok := parseThemeList(tables, ""); ok {
		t.Fatal("empty response accepted")
	}
}

func TestThemeRetriesExhaustedKeepsRaw(t *testing.T) {
	caller := &scriptedCaller{respond: func(system, user string) (string, error) {
		if strings.Contains(user, "known jurisdictions") {
			return `/"Switzerland"/`, nil
		}
		if strings.Contains(user, "Available themes") {
			return `["Contractual Obligations", "NotATheme"]`, nil
		}
		return "text", nil
	}}
	m := NewManager(testTables(), caller, nil)
	s := startSession(t, m, swissText)
	if _, err := m.CommitJurisdiction(s.ID, JurisdictionDecision{Score: 90}); err != nil {
		t.Fatal(err)
	}
	driveStage(t, m, s.ID, 80) // col_section

	callsBefore := len(caller.calls)
	if _, err := m.RunStage(context.Background(), s.ID); err != nil {
		t.Fatalf("RunStage themes: %v", err)
	}
	if got := len(caller.calls) - callsBefore; got != ThemeValidationRetries+1 {
		t.Fatalf("theme calls = %d, want %d", got, ThemeValidationRetries+1)
	}

	state, _ := m.GetState(s.ID)
	rec := state.Stages[StageThemes]
	if rec.ThemesValidated {
		t.Fatal("themes flagged validated despite invalid output")
	}
	if rec.Themes != nil {
		t.Fatalf("themes = %v, want nil", rec.Themes)
	}
	if !strings.Contains(rec.Generations[0], "NotATheme") {
		t.Fatal("raw response not preserved")
	}
}

func TestThemeRetrySucceedsMidway(t *testing.T) {
	themeCalls := 0
	caller := &scriptedCaller{respond: func(system, user string) (string, error) {
		if strings.Contains(user, "known jurisdictions") {
			return `/"Switzerland"/`, nil
		}
		if strings.Contains(user, "Available themes") {
			themeCalls++
			if themeCalls < 3 {
				return "not a list at all", nil
			}
			return `["Torts"]`, nil
		}
		return "text", nil
	}}
	m := NewManager(testTables(), caller, nil)
	s := startSession(t, m, swissText)
	if _, err := m.CommitJurisdiction(s.ID, JurisdictionDecision{Score: 90}); err != nil {
		t.Fatal(err)
	}
	driveStage(t, m, s.ID, 80)

	if _, err := m.RunStage(context.Background(), s.ID); err != nil {
		t.Fatal(err)
	}
	state, _ := m.GetState(s.ID)
	rec := state.Stages[StageThemes]
	if !rec.ThemesValidated || len(rec.Themes) != 1 || rec.Themes[0] != "Torts" {
		t.Fatalf("unexpected theme record: %+v", rec)
	}
	if rec.ThemeRetries != 2 {
		t.Fatalf("theme retries = %d, want 2", rec.ThemeRetries)
	}
	if len(rec.Generations) != 1 {
		t.Fatalf("generations = %d; retries must not append", len(rec.Generations))
	}
}

func TestNormalizeProvisionsFlatList(t *testing.T) {
	out := normalizeProvisions("```json\n[\"Art. 116 PILA\", \"Rome I Art. 3\"]\n```")
	want := "- Art. 116 PILA\n- Rome I Art. 3"
	if out != want {
		t.Fatalf("normalize = %q, want %q", out, want)
	}
}

func TestNormalizeProvisionsStructured(t *testing.T) {
	raw := `Statutory provisions:
- Art. 116 PILA
- Art. 117 PILA

Judicial precedents: BGE 130 III 417

Summary:
The court applied the closest-connection test.`
	out := normalizeProvisions(raw)
	if !strings.Contains(out, "Statutory provisions:\n- Art. 116 PILA") {
		t.Fatalf("missing statutory section: %q", out)
	}
	if !strings.Contains(out, "Judicial precedents:\n- BGE 130 III 417") {
		t.Fatalf("missing precedents section: %q", out)
	}
	if !strings.Contains(out, "Summary:\n- The court applied the closest-connection test.") {
		t.Fatalf("missing summary section: %q", out)
	}
}

func TestNormalizeProvisionsFallsBackToRaw(t *testing.T) {
	raw := "The court relied mainly on Art. 116 PILA and scholarly commentary."
	if out := normalizeProvisions(raw); out != raw {
		t.Fatalf("free text must pass through unchanged, got %q", out)
	}
}

func TestUncommittedOutputsNeverEnterPrompts(t *testing.T) {
	caller := &scriptedCaller{respond: func(system, user string) (string, error) {
		if strings.Contains(user, "known jurisdictions") {
			return `/"Switzerland"/`, nil
		}
		if strings.Contains(user, "Available themes") {
			return `["Torts"]`, nil
		}
		return "UNCOMMITTED-MARKER", nil
	}}
	m := NewManager(testTables(), caller, nil)
	s := startSession(t, m, swissText)
	if _, err := m.CommitJurisdiction(s.ID, JurisdictionDecision{Score: 90}); err != nil {
		t.Fatal(err)
	}
	// Generate col_section but commit a different text.
	if _, err := m.RunStage(context.Background(), s.ID); err != nil {
		t.Fatal(err)
	}
	if err := m.SubmitFirstScore(s.ID, 50); err != nil {
		t.Fatal(err)
	}
	if _, err := m.CommitStage(context.Background(), s.ID, "COMMITTED-SECTION"); err != nil {
		t.Fatal(err)
	}
	if _, err := m.RunStage(context.Background(), s.ID); err != nil {
		t.Fatal(err)
	}
	themesPrompt := caller.calls[len(caller.calls)-1].User
	if strings.Contains(themesPrompt, "UNCOMMITTED-MARKER") {
		t.Fatal("uncommitted generation leaked into a later prompt")
	}
	if !strings.Contains(themesPrompt, "COMMITTED-SECTION") {
		t.Fatal("committed output missing from dependent prompt")
	}
}
