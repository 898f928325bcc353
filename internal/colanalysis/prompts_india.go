package colanalysis

// India gets its own prompt entries where the general common-law wording
// fits Indian practice poorly. Stages without an entry fall through the
// normal resolution order. Selection keys on the precise jurisdiction, so
// the India wording wins even when the operator overrides the legal-system
// family.
var jurisdictionPacks = map[string]map[StageName]string{
	"india": indiaPack,
}

var indiaPack = map[StageName]string{
	StageColSection: `Quote verbatim the passages of this Indian judgment that address choice of
law or the applicable law. Indian courts often discuss the proper law of the
contract or the lex loci delicti within broader reasoning; quote the whole
passage in which that discussion sits. Reproduce the original wording
exactly, with paragraph numbers where present. Do not summarise.

Judgment text:
{case_text}`,

	StagePILProvisions: `List the authorities this Indian judgment relied on for the choice-of-law
question: Supreme Court and High Court precedents, English authorities where
followed, statutory provisions (for example the Indian Contract Act or the
Code of Civil Procedure), and academic writing where cited. Return a JSON
array of short strings, most important first.

Judgment text:
{case_text}

Choice-of-law passages:
{col_section}`,

	StageCourtsPosition: `Summarise the court's holding on the choice-of-law issue below. Indian
judgments frequently restate English conflicts doctrine before applying it;
separate what the court adopts as the governing rule from what it merely
recites. Set out rule, reasoning, and conclusion, staying within the
judgment.

Choice-of-law issue:
{col_issue}

Choice-of-law passages:
{col_section}

Judgment text:
{case_text}`,
}
