package llm

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zhada/appraisal-extractor/constants"
)

func TestSalvageJSON(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
		ok   bool
	}{
		{"clean object", `{"a":1}`, `{"a":1}`, true},
		{"leading whitespace", "  \n{\"a\":1}", `{"a":1}`, true},
		{"code fence", "```json\n{\"a\":1}\n```", `{"a":1}`, true},
		{"prose wrapper", `Here is the result: {"a":1}. Let me know!`, `{"a":1}`, true},
		{"nested braces", `noise {"a":{"b":2}} noise`, `{"a":{"b":2}}`, true},
		{"object with trailing prose", `{"a":1} hope that helps`, `{"a":1}`, true},
		{"no object", "no json here", "", false},
		{"empty", "", "", false},
		{"only open brace", "{", "", false},
		{"only close brace", "}", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := SalvageJSON([]byte(tt.in))
			assert.Equal(t, tt.ok, ok)
			if tt.ok {
				assert.Equal(t, tt.want, string(got))
			}
		})
	}
}

func validPayloadJSON(t *testing.T) []byte {
	t.Helper()
	payload := map[string]any{
		"Filename":                          "appraisal.pdf",
		"Appraisal Form Type":               "Fannie Mae Form 1004",
		"Subject Property Address":          "123 Main St, Austin, TX 78701",
		"Effective Date of Appraisal":       "2026-07-15",
		"Appraiser Name":                    "Jane Roe",
		"Borrower Name":                     "John Doe",
		"Document Title":                    "Uniform Residential Appraisal Report",
		"Subject Additional Square Footage": 0,
		"Subject Property Value":            650000,
		"As-Is Value":                       "$650,000",
		"ARV Value":                         850000,
		"Sales Comparables": []any{
			map[string]any{"Comp Address": "125 Main St", "Comp Sale Price": 640000},
		},
		"ARV Comparables":   []any{},
		"Land Comparables":  []any{},
		"Other Comparables": []any{},
	}
	b, err := json.Marshal(payload)
	require.NoError(t, err)
	return b
}

func TestValidateJSONAgainstSchema_Valid(t *testing.T) {
	err := ValidateJSONAgainstSchema(BuildAppraisalJSONSchema(), validPayloadJSON(t))
	assert.NoError(t, err)
}

func TestValidateJSONAgainstSchema_MissingRequiredField(t *testing.T) {
	var payload map[string]any
	require.NoError(t, json.Unmarshal(validPayloadJSON(t), &payload))
	delete(payload, "Appraiser Name")
	b, err := json.Marshal(payload)
	require.NoError(t, err)

	err = ValidateJSONAgainstSchema(BuildAppraisalJSONSchema(), b)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "does not match schema")
}

func TestValidateJSONAgainstSchema_BadDatePattern(t *testing.T) {
	var payload map[string]any
	require.NoError(t, json.Unmarshal(validPayloadJSON(t), &payload))
	payload["Effective Date of Appraisal"] = "07/15/2026"
	b, err := json.Marshal(payload)
	require.NoError(t, err)

	assert.Error(t, ValidateJSONAgainstSchema(BuildAppraisalJSONSchema(), b))
}

func TestValidateJSONAgainstSchema_ComparableNeedsAddress(t *testing.T) {
	var payload map[string]any
	require.NoError(t, json.Unmarshal(validPayloadJSON(t), &payload))
	payload["Sales Comparables"] = []any{map[string]any{"Comp Sale Price": 640000}}
	b, err := json.Marshal(payload)
	require.NoError(t, err)

	assert.Error(t, ValidateJSONAgainstSchema(BuildAppraisalJSONSchema(), b))
}

func TestBuildAppraisalJSONSchema_CoversAllRequiredFields(t *testing.T) {
	schema := BuildAppraisalJSONSchema()
	props, ok := schema["properties"].(map[string]any)
	require.True(t, ok)

	for _, f := range RequiredScalarFields {
		assert.Contains(t, props, f)
	}
	for _, s := range ComparableSections {
		assert.Contains(t, props, s)
	}
}

func TestBuildSystemPrompt_NamesEveryFormAndCompType(t *testing.T) {
	prompt := BuildSystemPrompt()

	for _, f := range constants.AppraisalFormTypes {
		assert.Contains(t, prompt, f)
	}
	for _, ct := range constants.AllCompTypes() {
		assert.Contains(t, prompt, string(ct))
	}
}
