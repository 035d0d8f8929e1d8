package llm

// RequiredScalarFields are the scalar payload fields an extraction must carry
// to count as complete. Order matters for stable reporting.
var RequiredScalarFields = []string{
	"Filename",
	"Appraisal Form Type",
	"Subject Property Address",
	"Effective Date of Appraisal",
	"Appraiser Name",
	"Borrower Name",
	"Document Title",
	"Subject Additional Square Footage",
	"Subject Property Value",
	"As-Is Value",
	"ARV Value",
}

// ComparableSections are the four comparable array fields in the payload.
var ComparableSections = []string{
	"Sales Comparables",
	"ARV Comparables",
	"Land Comparables",
	"Other Comparables",
}

// BuildAppraisalJSONSchema returns a JSON-Schema (draft 2020-12 subset) as a
// generic map. Passed to the model as a structured output constraint and used
// locally for the strict validation pass.
func BuildAppraisalJSONSchema() map[string]any {
	comp := map[string]any{
		"type": "object",
		"properties": map[string]any{
			"Comp Address":                   map[string]any{"type": "string"},
			"Comp Bed Count":                 numberOrString(),
			"Comp Bath Count":                numberOrString(),
			"Comp GLA":                       numberOrString(),
			"Comp Sale Price":                numberOrString(),
			"Comp Adjusted Sale Price":       numberOrString(),
			"Comp Sale Date":                 map[string]any{"type": "string"},
			"Comp Data Source":               map[string]any{"type": "string"},
			"Comp Lot Size":                  numberOrString(),
			"Comp List of Amenities":         map[string]any{"type": "string"},
			"Comp Distance":                  map[string]any{"type": "string"},
			"As-Is/ARV":                      map[string]any{"type": "string"},
			"Comp Additional Square Footage": numberOrString(),
			"Comp Number and Type":           map[string]any{"type": "string"},
		},
		"required": []string{"Comp Address"},
	}

	props := map[string]any{
		"Filename":                          map[string]any{"type": "string"},
		"Appraisal Form Type":               map[string]any{"type": "string"},
		"Subject Property Address":          map[string]any{"type": "string", "minLength": 1},
		"Effective Date of Appraisal":       map[string]any{"type": "string", "pattern": `^\d{4}-\d{2}-\d{2}$`},
		"Appraiser Name":                    map[string]any{"type": "string"},
		"Borrower Name":                     map[string]any{"type": "string"},
		"Document Title":                    map[string]any{"type": "string"},
		"Subject Additional Square Footage": numberOrString(),
		"Subject Property Value":            numberOrString(),
		"As-Is Value":                       numberOrString(),
		"ARV Value":                         numberOrString(),
	}
	for _, section := range ComparableSections {
		props[section] = map[string]any{"type": "array", "items": comp}
	}

	required := make([]any, 0, len(RequiredScalarFields)+len(ComparableSections))
	for _, f := range RequiredScalarFields {
		required = append(required, f)
	}
	for _, s := range ComparableSections {
		required = append(required, s)
	}

	return map[string]any{
		"type":       "object",
		"properties": props,
		"required":   required,
	}
}

// numberOrString admits both numeric JSON and the currency-formatted strings
// models emit despite instructions; the validator coerces to float64.
func numberOrString() map[string]any {
	return map[string]any{
		"type": []any{"number", "string", "null"},
	}
}
