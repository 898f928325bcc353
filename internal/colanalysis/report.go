package colanalysis

import (
	"encoding/json"
	"fmt"
	"strings"
)

var stageHeadings = map[StageName]string{
	StageColSection:     "Choice-of-Law Section",
	StageThemes:         "Theme Classification",
	StageRelevantFacts:  "Relevant Facts",
	StagePILProvisions:  "PIL Provisions",
	StageColIssue:       "Choice-of-Law Issue",
	StageCourtsPosition: "Court's Position",
	StageObiterDicta:    "Obiter Dicta",
	StageDissenting:     "Dissenting Opinions",
	StageAbstract:       "Abstract",
}

// BuildReport renders a session as a markdown report: header, jurisdiction
// block, committed stage outputs in stage order, and a JSON appendix of the
// full state.
func BuildReport(s *Session) string {
	var b strings.Builder
	fmt.Fprintf(&b, "# Choice-of-Law Analysis\n\n")
	fmt.Fprintf(&b, "- Case: %s\n", s.CaseCitation)
	if s.Username != "" {
		fmt.Fprintf(&b, "- Analyst: %s\n", s.Username)
	}
	fmt.Fprintf(&b, "- Model: %s\n", s.Model)
	fmt.Fprintf(&b, "- Created: %s\n\n", s.CreatedAt.Format("2006-01-02 15:04 UTC"))

	fmt.Fprintf(&b, "## Jurisdiction\n\n")
	fmt.Fprintf(&b, "- Jurisdiction: %s", s.PreciseJurisdiction)
	if s.JurisdictionCode != "" {
		fmt.Fprintf(&b, " (%s)", s.JurisdictionCode)
	}
	b.WriteString("\n")
	fmt.Fprintf(&b, "- Legal system: %s\n", s.LegalSystem)
	if s.JurisdictionScore != nil {
		fmt.Fprintf(&b, "- Reviewer score: %d/100\n", *s.JurisdictionScore)
	}
	b.WriteString("\n")

	for _, name := range s.StageOrder {
		rec := s.record(name)
		heading := stageHeadings[name]
		if heading == "" {
			heading = string(name)
		}
		fmt.Fprintf(&b, "## %s\n\n", heading)
		if rec == nil || rec.Status != StatusCommitted {
			fmt.Fprintf(&b, "_not committed_\n\n")
			continue
		}
		fmt.Fprintf(&b, "%s\n\n", strings.TrimSpace(rec.FinalEdit))
		if name == StageThemes && !rec.ThemesValidated {
			fmt.Fprintf(&b, "_Themes were committed without automatic validation; the list above was selected manually._\n\n")
		}
		if len(rec.Feedbacks) > 0 || rec.FirstScore != nil {
			fmt.Fprintf(&b, "> Review: ")
			if rec.FirstScore != nil {
				fmt.Fprintf(&b, "first generation scored %d/100", *rec.FirstScore)
			}
			if len(rec.Feedbacks) > 0 {
				fmt.Fprintf(&b, ", %d refinement round(s)", len(rec.Feedbacks))
			}
			b.WriteString("\n\n")
		}
	}

	fmt.Fprintf(&b, "## Appendix\n\n### Session State (JSON)\n\n```json\n%s\n```\n", prettyJSON(s))
	return b.String()
}

func prettyJSON(v any) string {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return "{}"
	}
	return string(b)
}
