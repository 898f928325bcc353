package colanalysis

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/joelkehle/col-analyzer/internal/refdata"
)

// RecordStore receives one finished session. Implementations append; they
// never read back into the pipeline.
type RecordStore interface {
	Save(ctx context.Context, s *Session) error
}

// Manager owns all live sessions and exposes the driver operations the
// presentation layer calls. Stage execution is never implicit: every model
// call happens inside a named driver operation.
type Manager struct {
	tables *refdata.Tables
	engine *engine
	store  RecordStore

	mu       sync.Mutex
	sessions map[string]*Session
}

func NewManager(tables *refdata.Tables, caller LLMCaller, store RecordStore) *Manager {
	return &Manager{
		tables:   tables,
		engine:   &engine{caller: caller, tables: tables},
		store:    store,
		sessions: map[string]*Session{},
	}
}

type StartInput struct {
	CaseCitation string
	FullText     string
	Username     string
	UserEmail    string
	Model        string
}

// Start validates the input, creates the session, and runs both phases of
// the jurisdiction classifier. The caller reviews the detected values and
// commits them (possibly overridden) via CommitJurisdiction.
func (m *Manager) Start(ctx context.Context, in StartInput) (*Session, error) {
	if strings.TrimSpace(in.CaseCitation) == "" {
		return nil, invalidInput("case_citation is required")
	}
	if strings.TrimSpace(in.FullText) == "" {
		return nil, invalidInput("full_text is required")
	}

	det := classifyJurisdiction(ctx, m.engine.caller, m.tables, in.FullText)

	s := &Session{
		ID:                  uuid.NewString(),
		CaseCitation:        strings.TrimSpace(in.CaseCitation),
		Username:            strings.TrimSpace(in.Username),
		UserEmail:           strings.TrimSpace(in.UserEmail),
		Model:               strings.TrimSpace(in.Model),
		FullText:            in.FullText,
		PreciseJurisdiction: det.Name,
		JurisdictionCode:    det.Code,
		LegalSystem:         det.LegalSystem,
		Stages:              map[StageName]*StageRecord{},
		CreatedAt:           time.Now().UTC(),
	}

	m.mu.Lock()
	m.sessions[s.ID] = s
	m.mu.Unlock()
	return s.clone(), nil
}

type JurisdictionDecision struct {
	// Name and LegalSystem override the detected values when non-empty.
	Name        string
	LegalSystem refdata.LegalSystem
	Score       int
}

// CommitJurisdiction applies the operator's score and overrides and freezes
// the stage sequence. The sequence does not change afterwards, even if a
// later caller disagrees with the legal-system family.
func (m *Manager) CommitJurisdiction(sessionID string, d JurisdictionDecision) ([]StageName, error) {
	if d.Score < 0 || d.Score > 100 {
		return nil, invalidInput("score must be in 0..100, got %d", d.Score)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[sessionID]
	if !ok {
		return nil, notFound(sessionID)
	}
	if s.JurisdictionCommitted {
		return nil, stageOrder("jurisdiction already committed")
	}

	if name := strings.TrimSpace(d.Name); name != "" {
		s.PreciseJurisdiction = name
		s.JurisdictionCode = ""
		if j, ok := m.tables.LookupJurisdiction(name); ok {
			s.PreciseJurisdiction = j.Name
			s.JurisdictionCode = j.Alpha3
		}
	}
	if d.LegalSystem != "" {
		switch d.LegalSystem {
		case refdata.CivilLaw, refdata.CommonLaw, refdata.UnknownSystem:
			s.LegalSystem = d.LegalSystem
		default:
			return nil, invalidInput("invalid legal_system %q", d.LegalSystem)
		}
	}
	// Unknown drives prompt selection and sequencing down the civil-law
	// track.
	if s.LegalSystem == refdata.UnknownSystem || s.LegalSystem == refdata.NoCourtDecision {
		s.LegalSystem = refdata.CivilLaw
	}

	score := d.Score
	s.JurisdictionScore = &score
	s.StageOrder = StageSequence(s.LegalSystem)
	s.JurisdictionCommitted = true
	return append([]StageName(nil), s.StageOrder...), nil
}

// RunStage generates into the current stage. When the stage already has a
// generation awaiting review this is a no-op; regeneration only happens
// through SubmitFeedback.
func (m *Manager) RunStage(ctx context.Context, sessionID string) (*Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[sessionID]
	if !ok {
		return nil, notFound(sessionID)
	}
	if !s.JurisdictionCommitted {
		return nil, stageOrder("jurisdiction not committed")
	}
	if s.Done {
		return nil, stageOrder("session is done")
	}

	rec := s.currentRecord()
	if rec == nil {
		return nil, stageOrder("no current stage")
	}
	if len(rec.Generations) > 0 {
		return s.clone(), nil
	}
	if err := m.engine.generateStage(ctx, s, rec, ""); err != nil {
		return nil, err
	}
	rec.Status = StatusGenerated
	return s.clone(), nil
}

// SubmitFirstScore scores the first generation of the current stage. It can
// be set exactly once per stage and gates both feedback and the final edit.
func (m *Manager) SubmitFirstScore(sessionID string, score int) error {
	if score < 0 || score > 100 {
		return invalidInput("score must be in 0..100, got %d", score)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[sessionID]
	if !ok {
		return notFound(sessionID)
	}
	rec := s.currentRecord()
	if rec == nil || s.Done {
		return stageOrder("no current stage")
	}
	switch rec.Status {
	case StatusPending:
		return stageOrder("%s: nothing generated yet", rec.Name)
	case StatusScored, StatusCommitted:
		return stageOrder("%s: first score already set", rec.Name)
	}
	rec.FirstScore = &score
	rec.Status = StatusScored
	return nil
}

// SubmitFeedback appends operator feedback to the current stage and
// triggers exactly one regeneration. Feedback is only accepted after the
// first score; on model failure nothing is recorded and the call may be
// repeated.
func (m *Manager) SubmitFeedback(ctx context.Context, sessionID, feedback string) (*Session, error) {
	if strings.TrimSpace(feedback) == "" {
		return nil, invalidInput("feedback must not be empty")
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[sessionID]
	if !ok {
		return nil, notFound(sessionID)
	}
	rec := s.currentRecord()
	if rec == nil || s.Done {
		return nil, stageOrder("no current stage")
	}
	if rec.Status != StatusScored {
		return nil, stageOrder("%s: feedback requires a scored generation (status %s)", rec.Name, rec.Status)
	}
	if err := m.engine.generateStage(ctx, s, rec, feedback); err != nil {
		return nil, err
	}
	// Appended only after a successful regeneration so that
	// len(feedbacks) == len(generations)-1 survives failures.
	rec.Feedbacks = append(rec.Feedbacks, feedback)
	return s.clone(), nil
}

// CommitStage records the operator's final text for the current stage and
// advances. Committing the last stage marks the session done and writes it
// to the record store; a persistence failure leaves the session in memory
// for a later Persist retry.
func (m *Manager) CommitStage(ctx context.Context, sessionID, editedText string) (*Session, error) {
	if strings.TrimSpace(editedText) == "" {
		return nil, invalidInput("edited text must not be empty")
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[sessionID]
	if !ok {
		return nil, notFound(sessionID)
	}
	if s.Done {
		return nil, stageOrder("session is done")
	}
	rec := s.currentRecord()
	if rec == nil {
		return nil, stageOrder("no current stage")
	}
	if rec.Status != StatusScored {
		return nil, stageOrder("%s: commit requires a scored stage (status %s)", rec.Name, rec.Status)
	}

	rec.FinalEdit = editedText
	rec.Status = StatusCommitted
	s.CurrentStage++
	if s.CurrentStage >= len(s.StageOrder) {
		s.Done = true
		s.CompletedAt = time.Now().UTC()
		if err := m.persistLocked(ctx, s); err != nil {
			return s.clone(), err
		}
	}
	return s.clone(), nil
}

// Persist retries the final write after a persistence failure.
func (m *Manager) Persist(ctx context.Context, sessionID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[sessionID]
	if !ok {
		return notFound(sessionID)
	}
	if !s.Done {
		return stageOrder("session is not done")
	}
	if s.Persisted {
		return nil
	}
	return m.persistLocked(ctx, s)
}

func (m *Manager) persistLocked(ctx context.Context, s *Session) error {
	if m.store == nil {
		s.Persisted = true
		return nil
	}
	if err := m.store.Save(ctx, s); err != nil {
		return persistenceFailure(err)
	}
	s.Persisted = true
	return nil
}

// GetState returns a read-only deep copy of the session.
func (m *Manager) GetState(sessionID string) (*Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[sessionID]
	if !ok {
		return nil, notFound(sessionID)
	}
	return s.clone(), nil
}
