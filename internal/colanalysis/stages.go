package colanalysis

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/joelkehle/col-analyzer/internal/refdata"
)

func substitute(tpl string, vars map[string]string) string {
	pairs := make([]string, 0, len(vars)*2)
	for k, v := range vars {
		pairs = append(pairs, "{"+k+"}", v)
	}
	return strings.NewReplacer(pairs...).Replace(tpl)
}

// engine executes single stage invocations: template resolution, placeholder
// substitution, the model call, output parsing, and timing. It never touches
// stage sequencing; that is the session state machine's job.
type engine struct {
	caller LLMCaller
	tables *refdata.Tables
}

// stagePromptVars gathers the committed dependency outputs a stage's
// template may reference. Uncommitted generations are never included.
func (e *engine) stagePromptVars(s *Session, stage StageName) map[string]string {
	text := s.FullText
	if len(text) > MaxCaseTextChars {
		text = text[:MaxCaseTextChars]
	}
	vars := map[string]string{
		"case_text":   text,
		"col_section": s.committed(StageColSection),
		"col_issue":   s.committed(StageColIssue),
		"themes":      e.tables.ThemesPromptBlock(),
	}
	switch stage {
	case StageColIssue:
		vars["classification"] = s.committed(StageThemes)
	case StageAbstract:
		vars["classification"] = committedDigest(s)
	default:
		vars["classification"] = s.committed(StageThemes)
	}
	return vars
}

// committedDigest concatenates every committed stage output, labeled, in
// stage order. The abstract consumes this as its single input block.
func committedDigest(s *Session) string {
	var b strings.Builder
	for _, name := range s.StageOrder {
		out := s.committed(name)
		if out == "" {
			continue
		}
		fmt.Fprintf(&b, "[%s]\n%s\n\n", name, out)
	}
	return strings.TrimSpace(b.String())
}

// generateStage produces one generation for rec and appends it. feedback is
// empty for the first generation; for a regeneration it is the operator's
// comment on the latest uncommitted generation, which is included in the
// prompt together with that generation. On any error nothing is appended.
func (e *engine) generateStage(ctx context.Context, s *Session, rec *StageRecord, feedback string) error {
	tpl := PromptTemplate(s.LegalSystem, s.PreciseJurisdiction, rec.Name)
	user := substitute(tpl, e.stagePromptVars(s, rec.Name))
	if feedback != "" {
		user += fmt.Sprintf(
			"\n\nYour previous answer was:\n%s\n\nThe reviewer commented:\n%s\n\nProduce a revised answer that addresses the comment.",
			rec.latestGeneration(), feedback)
	}
	system := ComposeSystemPrompt(e.tables, s.PreciseJurisdiction, s.LegalSystem)

	started := time.Now()
	if rec.Name == StageThemes {
		if err := e.generateThemes(ctx, rec, system, user); err != nil {
			return err
		}
	} else {
		raw, err := generate(ctx, e.caller, system, user)
		if err != nil {
			return llmFailure(string(rec.Name), err)
		}
		display := raw
		if rec.Name == StagePILProvisions {
			display = normalizeProvisions(raw)
		}
		rec.Raw = append(rec.Raw, raw)
		rec.Generations = append(rec.Generations, display)
	}
	rec.ElapsedMS = time.Since(started).Milliseconds()
	return nil
}

// generateThemes runs the classification call with a bounded validation
// retry loop: every returned theme must be a member of the themes table.
// When retries are exhausted the last raw response is kept and the record
// is flagged unvalidated so the driver can fall back to manual selection.
func (e *engine) generateThemes(ctx context.Context, rec *StageRecord, system, user string) error {
	var raw string
	for attempt := 0; attempt <= ThemeValidationRetries; attempt++ {
		var err error
		raw, err = generate(ctx, e.caller, system, user)
		if err != nil {
			return llmFailure(string(rec.Name), err)
		}
		themes, ok := parseThemeList(e.tables, raw)
		if ok {
			display, _ := json.Marshal(themes)
			rec.Raw = append(rec.Raw, raw)
			rec.Generations = append(rec.Generations, string(display))
			rec.Themes = themes
			rec.ThemesValidated = true
			rec.ThemeRetries = attempt
			return nil
		}
	}
	rec.Raw = append(rec.Raw, raw)
	rec.Generations = append(rec.Generations, raw)
	rec.Themes = nil
	rec.ThemesValidated = false
	rec.ThemeRetries = ThemeValidationRetries
	return nil
}

// parseThemeList accepts a JSON array of strings or a line/bullet list and
// validates every entry against the themes table.
func parseThemeList(tables *refdata.Tables, raw string) ([]string, bool) {
	clean := stripCodeFences(raw)

	var themes []string
	if err := json.Unmarshal([]byte(clean), &themes); err != nil {
		themes = themes[:0]
		for _, line := range strings.Split(clean, "\n") {
			line = strings.TrimSpace(line)
			line = strings.TrimLeft(line, "-*• \t")
			line = strings.Trim(line, `",`)
			if line != "" {
				themes = append(themes, line)
			}
		}
	}
	if len(themes) == 0 {
		return nil, false
	}
	for _, th := range themes {
		if !tables.IsTheme(th) {
			return nil, false
		}
	}
	return themes, true
}

// Canonical section labels of the structured pil_provisions form.
var provisionSections = []struct {
	canonical string
	prefixes  []string
}{
	{"Judicial precedents", []string{"judicial precedent", "precedent", "case law"}},
	{"Textbooks and academic sources", []string{"textbook", "academic", "doctrine", "scholarly"}},
	{"Statutory provisions", []string{"statutory provision", "statute", "legislation"}},
	{"Legal principles", []string{"legal principle", "principle"}},
	{"Summary", []string{"summary"}},
}

// normalizeProvisions folds the two accepted shapes of the provisions stage
// into one display form. A flat JSON list becomes a bullet list; a labeled
// structured form is rewritten under the canonical section headers.
// Anything else is left as-is; the raw text is preserved by the caller
// either way.
func normalizeProvisions(raw string) string {
	clean := stripCodeFences(raw)

	var flat []string
	if err := json.Unmarshal([]byte(clean), &flat); err == nil && len(flat) > 0 {
		var b strings.Builder
		for _, p := range flat {
			if p = strings.TrimSpace(p); p != "" {
				fmt.Fprintf(&b, "- %s\n", p)
			}
		}
		return strings.TrimSpace(b.String())
	}

	sections := map[string][]string{}
	order := []string{}
	current := ""
	matched := 0
	for _, line := range strings.Split(clean, "\n") {
		trimmed := strings.TrimSpace(strings.TrimLeft(strings.TrimSpace(line), "#*"))
		if canonical, ok := matchProvisionHeader(trimmed); ok {
			if _, seen := sections[canonical]; !seen {
				order = append(order, canonical)
				matched++
			}
			current = canonical
			if rest := headerRemainder(trimmed); rest != "" {
				sections[current] = append(sections[current], rest)
			} else if _, seen := sections[canonical]; !seen {
				sections[canonical] = []string{}
			}
			continue
		}
		if current != "" && strings.TrimSpace(line) != "" {
			sections[current] = append(sections[current], strings.TrimSpace(line))
		}
	}
	if matched < 2 {
		return raw
	}
	var b strings.Builder
	for _, canonical := range order {
		fmt.Fprintf(&b, "%s:\n", canonical)
		for _, item := range sections[canonical] {
			item = strings.TrimLeft(item, "-*• \t")
			if item != "" {
				fmt.Fprintf(&b, "- %s\n", item)
			}
		}
		b.WriteString("\n")
	}
	return strings.TrimSpace(b.String())
}

func matchProvisionHeader(line string) (string, bool) {
	lower := strings.ToLower(line)
	for _, sec := range provisionSections {
		for _, p := range sec.prefixes {
			if strings.HasPrefix(lower, p) {
				// A header line is short or ends in a colon before content.
				head := lower
				if idx := strings.Index(lower, ":"); idx >= 0 {
					head = lower[:idx]
				}
				if len(head) <= len(sec.canonical)+20 {
					return sec.canonical, true
				}
			}
		}
	}
	return "", false
}

func headerRemainder(line string) string {
	if idx := strings.Index(line, ":"); idx >= 0 {
		return strings.TrimSpace(line[idx+1:])
	}
	return ""
}
