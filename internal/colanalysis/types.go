// Package colanalysis implements the interactive choice-of-law analysis
// pipeline: a jurisdiction-aware, human-in-the-loop state machine that
// drives a fixed sequence of LLM-backed stages over the text of a court
// decision. Each stage output is reviewed, scored, and optionally edited by
// an operator before the next stage runs.
package colanalysis

import (
	"time"

	"github.com/joelkehle/col-analyzer/internal/refdata"
)

const (
	// MaxCaseTextChars bounds the judgment prefix handed to the model.
	MaxCaseTextChars = 100000
	// MinCaseTextChars is the threshold below which the text cannot be a
	// court decision and no model call is made.
	MinCaseTextChars = 50
	// ThemeValidationRetries bounds the structured-output retry loop for
	// theme classification.
	ThemeValidationRetries = 5

	// UnknownJurisdiction is the fallback when precise detection fails.
	UnknownJurisdiction = "Unknown"
)

type StageName string

const (
	StageColSection     StageName = "col_section"
	StageThemes         StageName = "theme_classification"
	StageRelevantFacts  StageName = "relevant_facts"
	StagePILProvisions  StageName = "pil_provisions"
	StageColIssue       StageName = "col_issue"
	StageCourtsPosition StageName = "courts_position"
	StageObiterDicta    StageName = "obiter_dicta"
	StageDissenting     StageName = "dissenting_opinions"
	StageAbstract       StageName = "abstract"
	StageLegalSystem    StageName = "legal_system_detection"
	StageJurisdiction   StageName = "precise_jurisdiction_detection"
)

type StageStatus string

const (
	StatusPending   StageStatus = "pending"
	StatusGenerated StageStatus = "generated"
	StatusScored    StageStatus = "scored"
	StatusCommitted StageStatus = "committed"
)

// StageRecord is the per-stage history. Generations and Feedbacks are
// append-only; len(Feedbacks) == len(Generations)-1 holds after every
// driver operation once the stage has been entered.
type StageRecord struct {
	Name        StageName   `json:"name"`
	Generations []string    `json:"generations"`
	Raw         []string    `json:"raw_generations"`
	Feedbacks   []string    `json:"feedbacks"`
	FirstScore  *int        `json:"first_score,omitempty"`
	FinalEdit   string      `json:"final_edit,omitempty"`
	Status      StageStatus `json:"status"`
	ElapsedMS   int64       `json:"elapsed_ms"`

	// Theme classification only.
	Themes          []string `json:"themes,omitempty"`
	ThemesValidated bool     `json:"themes_validated,omitempty"`
	ThemeRetries    int      `json:"theme_retries,omitempty"`
}

func (r *StageRecord) latestGeneration() string {
	if len(r.Generations) == 0 {
		return ""
	}
	return r.Generations[len(r.Generations)-1]
}

// committedText is what later stages consume as this stage's output.
func (r *StageRecord) committedText() string {
	if r.Status == StatusCommitted {
		return r.FinalEdit
	}
	return ""
}

// Session is the full durable analysis state for one court decision.
type Session struct {
	ID           string `json:"id"`
	CaseCitation string `json:"case_citation"`
	Username     string `json:"username"`
	UserEmail    string `json:"user_email,omitempty"`
	Model        string `json:"model"`
	FullText     string `json:"full_text"`

	PreciseJurisdiction   string              `json:"precise_jurisdiction"`
	JurisdictionCode      string              `json:"jurisdiction_code,omitempty"`
	LegalSystem           refdata.LegalSystem `json:"legal_system"`
	JurisdictionScore     *int                `json:"jurisdiction_score,omitempty"`
	JurisdictionCommitted bool                `json:"jurisdiction_committed"`

	StageOrder   []StageName                `json:"stage_order,omitempty"`
	Stages       map[StageName]*StageRecord `json:"stages"`
	CurrentStage int                        `json:"current_stage"`
	Done         bool                       `json:"done"`
	Persisted    bool                       `json:"persisted"`

	CreatedAt   time.Time `json:"created_at"`
	CompletedAt time.Time `json:"completed_at,omitempty"`
}

func (s *Session) currentRecord() *StageRecord {
	if s.CurrentStage < 0 || s.CurrentStage >= len(s.StageOrder) {
		return nil
	}
	name := s.StageOrder[s.CurrentStage]
	rec, ok := s.Stages[name]
	if !ok {
		rec = &StageRecord{Name: name, Status: StatusPending}
		s.Stages[name] = rec
	}
	return rec
}

func (s *Session) record(name StageName) *StageRecord {
	return s.Stages[name]
}

// committed returns the committed output of a stage, or "" when the stage
// has not been committed. Uncommitted generations never leak into prompts.
func (s *Session) committed(name StageName) string {
	rec, ok := s.Stages[name]
	if !ok {
		return ""
	}
	return rec.committedText()
}

// clone deep-copies the session for read-only snapshots.
func (s *Session) clone() *Session {
	cp := *s
	cp.StageOrder = append([]StageName(nil), s.StageOrder...)
	cp.Stages = make(map[StageName]*StageRecord, len(s.Stages))
	for name, rec := range s.Stages {
		rc := *rec
		rc.Generations = append([]string(nil), rec.Generations...)
		rc.Raw = append([]string(nil), rec.Raw...)
		rc.Feedbacks = append([]string(nil), rec.Feedbacks...)
		rc.Themes = append([]string(nil), rec.Themes...)
		if rec.FirstScore != nil {
			v := *rec.FirstScore
			rc.FirstScore = &v
		}
		cp.Stages[name] = &rc
	}
	if s.JurisdictionScore != nil {
		v := *s.JurisdictionScore
		cp.JurisdictionScore = &v
	}
	return &cp
}

// StageSequence computes the frozen stage order for a legal-system family.
// The common-law track adds obiter dicta and dissenting opinions; the
// abstract always closes the sequence.
func StageSequence(ls refdata.LegalSystem) []StageName {
	seq := []StageName{
		StageColSection,
		StageThemes,
		StageRelevantFacts,
		StagePILProvisions,
		StageColIssue,
		StageCourtsPosition,
	}
	if ls == refdata.CommonLaw {
		seq = append(seq, StageObiterDicta, StageDissenting)
	}
	return append(seq, StageAbstract)
}
