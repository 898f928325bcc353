package colanalysis

import (
	"strings"

	"github.com/joelkehle/col-analyzer/internal/refdata"
)

// Prompt templates are plain strings with named {placeholder} slots. The
// registry only resolves which template applies; substitution happens in
// the stage engine.
//
// Placeholders in use: {case_text}, {col_section}, {themes},
// {classification}, {col_issue}, {jurisdictions}.

const baseSystemPrompt = `You are an expert in private international law (conflict of laws). ` +
	`You analyse court decisions strictly on the basis of the text provided; you never speculate ` +
	`or import facts from outside the decision. You answer in English. When you quote passages ` +
	`that are not in English, keep the original language and add an English translation in square brackets.`

// ComposeSystemPrompt builds the per-call system prompt: base instruction,
// optional jurisdiction summary paragraph, optional legal-system hint.
// Pure function of session state.
func ComposeSystemPrompt(tables *refdata.Tables, preciseJurisdiction string, ls refdata.LegalSystem) string {
	var b strings.Builder
	b.WriteString(baseSystemPrompt)
	if preciseJurisdiction != "" && preciseJurisdiction != UnknownJurisdiction {
		if j, ok := tables.LookupJurisdiction(preciseJurisdiction); ok && j.Summary != "" {
			b.WriteString("\n\nThe decision under analysis was rendered in ")
			b.WriteString(j.Name)
			b.WriteString(". ")
			b.WriteString(j.Summary)
		}
	}
	switch ls {
	case refdata.CivilLaw:
		b.WriteString("\n\nTreat the decision as coming from a civil-law jurisdiction.")
	case refdata.CommonLaw:
		b.WriteString("\n\nTreat the decision as coming from a common-law jurisdiction.")
	}
	return b.String()
}

const jurisdictionDetectionPrompt = `Identify the jurisdiction whose court rendered the following decision.

Choose exactly one name from this list of known jurisdictions:
{jurisdictions}

Reply with the chosen name quoted in the form /"Name"/ so it can be extracted
mechanically. If the text does not allow a determination, reply /"Unknown"/.

Decision text:
{case_text}`

const legalSystemDetectionPrompt = `Determine the legal-system family of the court that rendered the following
decision. Answer with exactly one of: civil-law, common-law, no-court-decision.
Answer no-court-decision only if the text is not a court decision at all.

Decision text:
{case_text}`

// --- civil-law pack (the default) ---

var civilLawPack = map[StageName]string{
	StageColSection: `Quote the choice-of-law section of this court decision verbatim. The
choice-of-law section is the part of the decision that discusses which law
applies to the dispute: the conflict-of-laws rules invoked, their
interpretation, and their application to the facts. Reproduce the original
wording exactly, including paragraph numbers where present. Do not summarise
and do not add commentary. If the discussion is spread over several passages,
quote each passage in the order it appears.

Decision text:
{case_text}`,

	StageThemes: `Classify the choice-of-law discussion below into the predefined themes.
Return a JSON array of theme names, for example ["Party autonomy"]. Use only
names from the list; do not invent new themes.

Available themes with definitions:
{themes}

Choice-of-law section:
{col_section}`,

	StageRelevantFacts: `State the facts of this case relevant to its private-international-law
dimension: the parties, their connections to different legal orders, the
cross-border elements of the dispute, and the procedural posture. Write a
single compact paragraph. Mention only facts that appear in the text.

Decision text:
{case_text}

Choice-of-law section for orientation:
{col_section}`,

	StagePILProvisions: `List the rules the court relied on to resolve the choice-of-law question:
statutory conflict-of-laws provisions, international instruments, and, where
cited, scholarly writing and case law. Return a JSON array of short strings,
most important first, e.g. ["Art. 116 PILA", "Rome I Regulation Art. 3"].

Decision text:
{case_text}

Choice-of-law section:
{col_section}`,

	StageColIssue: `Formulate the choice-of-law issue this decision resolves, as a single
question the court had to answer (for example: "Does a tacit choice of law
bind the parties under Art. 116 PILA?"). The issue must concern the themes
identified for this case and be answerable from the choice-of-law section.

Themes identified:
{classification}

Choice-of-law section:
{col_section}`,

	StageCourtsPosition: `Summarise the court's position on the choice-of-law issue stated below.
Present the court's reasoning in a short text that mirrors the structure of
the decision: rule invoked, interpretation, application, conclusion. Stay
strictly within the text of the decision.

Choice-of-law issue:
{col_issue}

Choice-of-law section:
{col_section}

Decision text:
{case_text}`,

	StageAbstract: `Write an abstract of this decision from a private-international-law
perspective: two to five sentences covering the cross-border setting, the
choice-of-law issue, and the court's answer. The abstract must stand on its
own and stay faithful to the committed analysis below.

Committed analysis:
{classification}

Decision text:
{case_text}`,
}

// --- common-law pack ---

var commonLawPack = map[StageName]string{
	StageColSection: `Quote verbatim the passages of this judgment that address choice of law
(which system of law governs the matter). Include the discussion of the
ratio on the conflicts question. Reproduce the original wording exactly,
with paragraph numbers where present. Do not summarise, do not paraphrase.
If several passages qualify, quote them in the order they appear.

Judgment text:
{case_text}`,

	StageThemes: `Classify the choice-of-law discussion below into the predefined themes.
Return a JSON array of theme names drawn only from the list.

Available themes with definitions:
{themes}

Choice-of-law passages:
{col_section}`,

	StageRelevantFacts: `Set out the facts of this case material to its conflict-of-laws dimension:
the parties, the foreign elements, the forum, and how the matter came before
the court. One compact paragraph, facts from the judgment only.

Judgment text:
{case_text}

Choice-of-law passages for orientation:
{col_section}`,

	StagePILProvisions: `List the authorities the court relied on for the choice-of-law question:
precedents, statutory provisions, rules of court, and academic writing where
cited. Return a JSON array of short strings, most important first. Cite
precedents by their usual short form.

Judgment text:
{case_text}

Choice-of-law passages:
{col_section}`,

	StageColIssue: `State the choice-of-law issue this judgment decides, as a single question
the court had to answer. The issue must concern the themes identified and be
answerable from the quoted passages.

Themes identified:
{classification}

Choice-of-law passages:
{col_section}`,

	StageCourtsPosition: `Summarise the court's holding on the choice-of-law issue below, that is,
the ratio decidendi on the conflicts question. Set out the rule applied, the reasoning,
and the conclusion, staying strictly within the judgment.

Choice-of-law issue:
{col_issue}

Choice-of-law passages:
{col_section}

Judgment text:
{case_text}`,

	StageObiterDicta: `Identify any obiter dicta in this judgment bearing on choice of law:
remarks on the conflicts question that were not necessary to the decision.
Quote or closely paraphrase each remark and say in one sentence why it is
obiter. If there are none, say so plainly.

Choice-of-law issue:
{col_issue}

Judgment text:
{case_text}`,

	StageDissenting: `Identify any dissenting or separately concurring opinions in this judgment
and summarise their position on the choice-of-law question, if they address
it. If there are no separate opinions, or none addresses choice of law, say
so plainly.

Judgment text:
{case_text}

Choice-of-law passages of the majority:
{col_section}`,

	StageAbstract: `Write an abstract of this judgment from a conflict-of-laws perspective:
two to five sentences covering the foreign elements, the choice-of-law issue,
and the court's holding, noting significant obiter or dissent where present.
Stay faithful to the committed analysis below.

Committed analysis:
{classification}

Judgment text:
{case_text}`,
}

// PromptTemplate resolves the template for a stage. Resolution order:
// jurisdiction-specific pack, then the common-law pack, then the civil-law
// pack as the default (this is also where legal_system == unknown lands).
func PromptTemplate(ls refdata.LegalSystem, specificJurisdiction string, stage StageName) string {
	switch stage {
	case StageJurisdiction:
		return jurisdictionDetectionPrompt
	case StageLegalSystem:
		return legalSystemDetectionPrompt
	}
	if pack, ok := jurisdictionPacks[strings.ToLower(strings.TrimSpace(specificJurisdiction))]; ok {
		if tpl, ok := pack[stage]; ok {
			return tpl
		}
	}
	if ls == refdata.CommonLaw {
		if tpl, ok := commonLawPack[stage]; ok {
			return tpl
		}
	}
	if tpl, ok := civilLawPack[stage]; ok {
		return tpl
	}
	// Common-law-only stages requested outside that track resolve to the
	// common-law wording rather than failing.
	return commonLawPack[stage]
}
