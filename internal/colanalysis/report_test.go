package colanalysis

import (
	"strings"
	"testing"
	"time"

	"github.com/joelkehle/col-analyzer/internal/refdata"
)

func reportSession() *Session {
	score := 90
	first := 75
	s := &Session{
		ID:                  "s-1",
		CaseCitation:        "Federal Court, 20.12.2005 - BGE 132 III 285",
		Username:            "jdoe",
		Model:               "test-model",
		PreciseJurisdiction: "Switzerland",
		JurisdictionCode:    "CHE",
		LegalSystem:         refdata.CivilLaw,
		JurisdictionScore:   &score,
		StageOrder:          StageSequence(refdata.CivilLaw),
		Stages:              map[StageName]*StageRecord{},
		CreatedAt:           time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC),
	}
	s.Stages[StageColSection] = &StageRecord{
		Name:        StageColSection,
		Generations: []string{"quoted section", "quoted section, tightened"},
		Raw:         []string{"quoted section", "quoted section, tightened"},
		Feedbacks:   []string{"tighten the quote"},
		FirstScore:  &first,
		FinalEdit:   "quoted CoL section text",
		Status:      StatusCommitted,
	}
	return s
}

func TestBuildReportSections(t *testing.T) {
	report := BuildReport(reportSession())

	for _, want := range []string{
		"# Choice-of-Law Analysis",
		"BGE 132 III 285",
		"Switzerland (CHE)",
		"Legal system: civil-law",
		"## Choice-of-Law Section",
		"quoted CoL section text",
		"first generation scored 75/100",
		"1 refinement round(s)",
		"## Abstract",
		"_not committed_",
		"### Session State (JSON)",
	} {
		if !strings.Contains(report, want) {
			t.Fatalf("report missing %q\n%s", want, report)
		}
	}
}

func TestBuildReportFlagsUnvalidatedThemes(t *testing.T) {
	s := reportSession()
	s.Stages[StageThemes] = &StageRecord{
		Name:            StageThemes,
		Generations:     []string{`["Contractual Obligations", "NotATheme"]`},
		Raw:             []string{`["Contractual Obligations", "NotATheme"]`},
		FinalEdit:       "Contractual Obligations",
		Status:          StatusCommitted,
		ThemesValidated: false,
	}
	report := BuildReport(s)
	if !strings.Contains(report, "without automatic validation") {
		t.Fatal("unvalidated theme warning missing")
	}
}
