package llm

import (
	"strings"

	"github.com/zhada/appraisal-extractor/constants"
)

// BuildSystemPrompt composes the system message: role, form-type whitelist,
// the as-is/ARV reconciliation rules, and strict output formatting.
func BuildSystemPrompt() string {
	parts := []string{
		"You are an expert data extraction specialist for real estate appraisal documents.",
		"Analyze the entire document thoroughly and return ONLY a valid JSON object matching the provided JSON Schema.",
		"Use ISO-8601 dates (YYYY-MM-DD).",

		"Appraisal Form Type: search for the exact form designation text. " +
			"Only return one of: " + strings.Join(constants.AppraisalFormTypes, ", ") + ".",

		// Reconciliation-box rules for which value lands where.
		"As-Is Value and ARV Value: check the reconciliation section box that starts with \"This appraisal is made\". " +
			"If the 'as is' box is checked, the As-Is value is in the reconciliation section and the ARV is in comments or addendum. " +
			"If a 'subject to completion/repairs' box is checked, the ARV is in the reconciliation section and the As-Is value is in comments or addendum.",

		"Comparable sections: Sales Comparables are regular market sales for current value; " +
			"ARV Comparables support after-repair value analysis; Land Comparables are land sales; " +
			"Other Comparables cover rental comps, listings, and anything else.",

		"For each comparable extract every field: address, bed/bath count, GLA, sale price, adjusted price, " +
			"sale date, data source, lot size, amenities, distance from subject, whether As-Is or ARV, " +
			"additional square footage, and the comparable number and section type. " +
			"Tag each comparable's section type as one of: " + compTypeList() + ".",

		"Distance: look for distance measurements on location maps or in comparable descriptions.",
		"Additional square footage: find basement, ADU, or casita square footage for the subject and each comparable.",

		"Return null for missing numeric values and an empty string for missing text values. " +
			"Keep every comparable array present even when empty.",
	}
	return strings.Join(parts, " ")
}

func compTypeList() string {
	types := constants.AllCompTypes()
	names := make([]string, len(types))
	for i, t := range types {
		names[i] = string(t)
	}
	return strings.Join(names, ", ")
}

// BuildUserPrompt packages the filename hint and the parsed document text.
func BuildUserPrompt(req ExtractRequest) string {
	var b strings.Builder
	if f := strings.TrimSpace(req.FilenameHint); f != "" {
		b.WriteString("Document filename: ")
		b.WriteString(f)
		b.WriteString("\n")
	}
	b.WriteString("\nDocument text:\n")
	b.WriteString(req.Text)
	return b.String()
}
