package colanalysis

import (
	"context"
	"regexp"
	"strings"

	"github.com/joelkehle/col-analyzer/internal/refdata"
)

// jurisdictionSentinel matches the /"Name"/ form the detection prompt asks
// the model to use.
var jurisdictionSentinel = regexp.MustCompile(`/"([^"]+)"/`)

// JurisdictionResult is the outcome of the two detection phases, before any
// operator override.
type JurisdictionResult struct {
	Name        string
	Code        string
	LegalSystem refdata.LegalSystem
	// LegalSystemFromLLM records whether Phase B needed a model call.
	LegalSystemFromLLM bool
}

// classifyJurisdiction runs Phase A (precise jurisdiction) and Phase B
// (legal-system family). Phase A never fails hard: any model or parse
// trouble falls back to "Unknown". Phase B consults the static map first
// and only calls the model for jurisdictions outside it.
func classifyJurisdiction(ctx context.Context, caller LLMCaller, tables *refdata.Tables, fullText string) JurisdictionResult {
	res := JurisdictionResult{Name: UnknownJurisdiction, LegalSystem: refdata.UnknownSystem}

	text := strings.TrimSpace(fullText)
	if len(text) < MinCaseTextChars {
		res.LegalSystem = refdata.NoCourtDecision
		return res
	}
	if len(text) > MaxCaseTextChars {
		text = text[:MaxCaseTextChars]
	}

	// Phase A.
	prompt := substitute(PromptTemplate(refdata.UnknownSystem, "", StageJurisdiction), map[string]string{
		"jurisdictions": strings.Join(tables.JurisdictionNames(), "\n"),
		"case_text":     text,
	})
	system := ComposeSystemPrompt(tables, "", refdata.UnknownSystem)
	if raw, err := generate(ctx, caller, system, prompt); err == nil {
		res.Name = resolveJurisdictionName(tables, raw)
	}
	if j, ok := tables.LookupJurisdiction(res.Name); ok {
		res.Name = j.Name
		res.Code = j.Alpha3
	}

	// Phase B.
	if ls, ok := refdata.StaticLegalSystem(res.Name); ok {
		res.LegalSystem = ls
		return res
	}
	prompt = substitute(PromptTemplate(refdata.UnknownSystem, "", StageLegalSystem), map[string]string{
		"case_text": text,
	})
	if raw, err := generate(ctx, caller, system, prompt); err == nil {
		res.LegalSystem = refdata.ParseLegalSystem(raw)
		res.LegalSystemFromLLM = true
	}
	return res
}

// resolveJurisdictionName applies the tolerant match cascade to the model's
// reply: sentinel extraction, exact case-insensitive match, substring match
// in either direction, then the short literal, then "Unknown".
func resolveJurisdictionName(tables *refdata.Tables, raw string) string {
	candidate := strings.TrimSpace(raw)
	if m := jurisdictionSentinel.FindStringSubmatch(raw); m != nil {
		candidate = strings.TrimSpace(m[1])
	}
	if candidate == "" {
		return UnknownJurisdiction
	}

	lower := strings.ToLower(candidate)
	if j, ok := tables.LookupJurisdiction(candidate); ok {
		return j.Name
	}
	for _, j := range tables.Jurisdictions() {
		jn := strings.ToLower(j.Name)
		if strings.Contains(jn, lower) || strings.Contains(lower, jn) {
			return j.Name
		}
	}
	if len(candidate) <= 40 && !isJurisdictionStopWord(lower) {
		return candidate
	}
	return UnknownJurisdiction
}

func isJurisdictionStopWord(s string) bool {
	switch s {
	case "unknown", "none", "n/a", "not applicable", "unclear":
		return true
	}
	return false
}
