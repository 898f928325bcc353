package refdata

import "strings"

// LegalSystem is the legal-system family used for prompt selection.
type LegalSystem string

const (
	CivilLaw        LegalSystem = "civil-law"
	CommonLaw       LegalSystem = "common-law"
	UnknownSystem   LegalSystem = "unknown"
	NoCourtDecision LegalSystem = "no-court-decision"
)

// legalSystemByJurisdiction covers the jurisdictions that appear in court
// decision corpora often enough that an LLM round-trip would be wasteful.
// Mixed systems are mapped to the family whose CoL methodology dominates.
var legalSystemByJurisdiction = map[string]LegalSystem{
	"albania":              CivilLaw,
	"argentina":            CivilLaw,
	"australia":            CommonLaw,
	"austria":              CivilLaw,
	"bahamas":              CommonLaw,
	"bangladesh":           CommonLaw,
	"barbados":             CommonLaw,
	"belgium":              CivilLaw,
	"bolivia":              CivilLaw,
	"brazil":               CivilLaw,
	"bulgaria":             CivilLaw,
	"canada":               CommonLaw,
	"chile":                CivilLaw,
	"china":                CivilLaw,
	"colombia":             CivilLaw,
	"costa rica":           CivilLaw,
	"croatia":              CivilLaw,
	"cyprus":               CommonLaw,
	"czech republic":       CivilLaw,
	"denmark":              CivilLaw,
	"dominican republic":   CivilLaw,
	"ecuador":              CivilLaw,
	"egypt":                CivilLaw,
	"estonia":              CivilLaw,
	"finland":              CivilLaw,
	"france":               CivilLaw,
	"germany":              CivilLaw,
	"ghana":                CommonLaw,
	"greece":               CivilLaw,
	"guatemala":            CivilLaw,
	"hong kong":            CommonLaw,
	"hungary":              CivilLaw,
	"iceland":              CivilLaw,
	"india":                CommonLaw,
	"indonesia":            CivilLaw,
	"ireland":              CommonLaw,
	"israel":               CommonLaw,
	"italy":                CivilLaw,
	"jamaica":              CommonLaw,
	"japan":                CivilLaw,
	"kenya":                CommonLaw,
	"latvia":               CivilLaw,
	"liechtenstein":        CivilLaw,
	"lithuania":            CivilLaw,
	"luxembourg":           CivilLaw,
	"malaysia":             CommonLaw,
	"malta":                CivilLaw,
	"mexico":               CivilLaw,
	"netherlands":          CivilLaw,
	"new zealand":          CommonLaw,
	"nigeria":              CommonLaw,
	"norway":               CivilLaw,
	"pakistan":             CommonLaw,
	"panama":               CivilLaw,
	"paraguay":             CivilLaw,
	"peru":                 CivilLaw,
	"philippines":          CivilLaw,
	"poland":               CivilLaw,
	"portugal":             CivilLaw,
	"romania":              CivilLaw,
	"russia":               CivilLaw,
	"singapore":            CommonLaw,
	"slovakia":             CivilLaw,
	"slovenia":             CivilLaw,
	"south africa":         CivilLaw,
	"south korea":          CivilLaw,
	"spain":                CivilLaw,
	"sri lanka":            CivilLaw,
	"sweden":               CivilLaw,
	"switzerland":          CivilLaw,
	"taiwan":               CivilLaw,
	"thailand":             CivilLaw,
	"turkey":               CivilLaw,
	"uganda":               CommonLaw,
	"ukraine":              CivilLaw,
	"united arab emirates": CivilLaw,
	"united kingdom":       CommonLaw,
	"united states":        CommonLaw,
	"uruguay":              CivilLaw,
	"venezuela":            CivilLaw,
	"vietnam":              CivilLaw,
	"zimbabwe":             CommonLaw,
}

// StaticLegalSystem resolves the legal-system family of a jurisdiction from
// the built-in map. The second return is false when the jurisdiction is not
// covered and an LLM determination is needed.
func StaticLegalSystem(jurisdiction string) (LegalSystem, bool) {
	ls, ok := legalSystemByJurisdiction[strings.ToLower(strings.TrimSpace(jurisdiction))]
	return ls, ok
}

// ParseLegalSystem normalizes free-form LLM output into a family.
func ParseLegalSystem(raw string) LegalSystem {
	s := strings.ToLower(strings.TrimSpace(raw))
	switch {
	case strings.Contains(s, "no-court-decision") || strings.Contains(s, "no court decision"):
		return NoCourtDecision
	case strings.Contains(s, "common"):
		return CommonLaw
	case strings.Contains(s, "civil"):
		return CivilLaw
	default:
		return UnknownSystem
	}
}
