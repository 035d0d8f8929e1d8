package validator

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zhada/appraisal-extractor/constants"
)

// fullPayload is an extraction payload with every required field present.
func fullPayload() map[string]any {
	return map[string]any{
		"Appraisal Form Type":               "Fannie Mae Form 1004",
		"Subject Property Address":          "123 Main St, Austin, TX 78701",
		"Effective Date of Appraisal":       "2026-07-15",
		"Appraiser Name":                    "Jane Roe",
		"Borrower Name":                     "John Doe",
		"Document Title":                    "Uniform Residential Appraisal Report",
		"Subject Additional Square Footage": float64(0),
		"Subject Property Value":            float64(650000),
		"As-Is Value":                       float64(650000),
		"ARV Value":                         float64(850000),
		"Sales Comparables": []any{
			map[string]any{
				"Comp Address":         "125 Main St, Austin, TX 78701",
				"Comp Number and Type": "Sales Comparable 1",
				"Comp Sale Price":      float64(640000),
				"Comp Bed Count":       float64(3),
				"Comp Bath Count":      float64(2),
				"Comp GLA":             float64(1850),
			},
		},
		"ARV Comparables":   []any{},
		"Land Comparables":  []any{},
		"Other Comparables": []any{},
	}
}

func TestValidate_CompletePayload(t *testing.T) {
	rec := New(nil).Validate(fullPayload(), nil, "appraisal.pdf")

	assert.True(t, rec.Complete)
	assert.Empty(t, rec.MissingFields)
	assert.Empty(t, rec.Anomalies)
	assert.Equal(t, "appraisal.pdf", rec.Filename)
	assert.Equal(t, float64(650000), rec.AsIsValue)
	assert.Equal(t, float64(850000), rec.ARVValue)
	require.Len(t, rec.SalesComps, 1)
	assert.Equal(t, constants.CompSales, rec.SalesComps[0].Type)
	assert.False(t, rec.SalesComps[0].TypeNormalized)
}

func TestValidate_MissingFieldsFlaggedNotRejected(t *testing.T) {
	payload := fullPayload()
	delete(payload, "Appraiser Name")
	delete(payload, "As-Is Value")

	rec := New(nil).Validate(payload, nil, "appraisal.pdf")

	assert.False(t, rec.Complete)
	assert.Contains(t, rec.MissingFields, "Appraiser Name")
	assert.Contains(t, rec.MissingFields, "As-Is Value")
	// the rest of the record survives
	assert.Equal(t, "John Doe", rec.BorrowerName)
	assert.Len(t, rec.SalesComps, 1)
}

func TestValidate_CoercesCurrencyStrings(t *testing.T) {
	payload := fullPayload()
	payload["As-Is Value"] = "$650,000"
	payload["ARV Value"] = "$850,000.50"

	rec := New(nil).Validate(payload, nil, "appraisal.pdf")

	assert.True(t, rec.Complete)
	assert.Equal(t, float64(650000), rec.AsIsValue)
	assert.Equal(t, float64(850000.50), rec.ARVValue)
}

func TestValidate_NullStringsCountAsMissing(t *testing.T) {
	payload := fullPayload()
	payload["Subject Property Value"] = "N/A"
	payload["Borrower Name"] = "null"

	rec := New(nil).Validate(payload, nil, "appraisal.pdf")

	assert.False(t, rec.Complete)
	assert.Contains(t, rec.MissingFields, "Subject Property Value")
	assert.Contains(t, rec.MissingFields, "Borrower Name")
}

func TestValidate_UnknownComparableTypeNormalizesToOther(t *testing.T) {
	payload := fullPayload()
	payload["Sales Comparables"] = []any{
		map[string]any{
			"Comp Address":         "10 Elm St",
			"Comp Number and Type": "Rental Comparable 1",
		},
	}

	rec := New(nil).Validate(payload, nil, "appraisal.pdf")

	require.Len(t, rec.SalesComps, 1)
	assert.Equal(t, constants.CompOther, rec.SalesComps[0].Type)
	assert.True(t, rec.SalesComps[0].TypeNormalized)
	require.NotEmpty(t, rec.Anomalies)
	assert.Contains(t, rec.Anomalies[0], "Rental")
}

func TestValidate_UnlabeledComparableInheritsSectionType(t *testing.T) {
	payload := fullPayload()
	payload["ARV Comparables"] = []any{
		map[string]any{"Comp Address": "10 Elm St"},
	}

	rec := New(nil).Validate(payload, nil, "appraisal.pdf")

	require.Len(t, rec.ARVComps, 1)
	assert.Equal(t, constants.CompARV, rec.ARVComps[0].Type)
	assert.False(t, rec.ARVComps[0].TypeNormalized)
}

func TestValidate_ARVBelowAsIsFlagsAnomalyButStaysComplete(t *testing.T) {
	payload := fullPayload()
	payload["As-Is Value"] = float64(650000)
	payload["ARV Value"] = float64(500000)

	rec := New(nil).Validate(payload, nil, "appraisal.pdf")

	assert.True(t, rec.Complete)
	require.Len(t, rec.Anomalies, 1)
	assert.Contains(t, rec.Anomalies[0], "ARV value")
}

func TestValidate_ARVAboveAsIsIsNotAnAnomaly(t *testing.T) {
	rec := New(nil).Validate(fullPayload(), nil, "appraisal.pdf")

	assert.True(t, rec.Complete)
	assert.Empty(t, rec.Anomalies)
}

func TestValidate_UnrecognizedFormTypeFlagged(t *testing.T) {
	payload := fullPayload()
	payload["Appraisal Form Type"] = "Form XYZ-99"

	rec := New(nil).Validate(payload, nil, "appraisal.pdf")

	assert.True(t, rec.Complete)
	require.NotEmpty(t, rec.Anomalies)
	assert.Contains(t, rec.Anomalies[0], "Form XYZ-99")
}

func TestValidate_MissingComparableAddressFlagged(t *testing.T) {
	payload := fullPayload()
	payload["Sales Comparables"] = []any{
		map[string]any{"Comp Number and Type": "Sales Comparable 1"},
	}

	rec := New(nil).Validate(payload, nil, "appraisal.pdf")

	assert.False(t, rec.Complete)
	assert.Contains(t, rec.MissingFields, "Sales Comparables[0]: Comp Address")
}

func TestValidate_DateNormalization(t *testing.T) {
	payload := fullPayload()
	payload["Effective Date of Appraisal"] = "07/15/2026"

	rec := New(nil).Validate(payload, nil, "appraisal.pdf")

	assert.Equal(t, "2026-07-15", rec.EffectiveDate)
	assert.Empty(t, rec.Anomalies)
}

func TestValidate_UnparseableDateFlagged(t *testing.T) {
	payload := fullPayload()
	payload["Effective Date of Appraisal"] = "sometime last summer"

	rec := New(nil).Validate(payload, nil, "appraisal.pdf")

	assert.True(t, rec.Complete)
	require.NotEmpty(t, rec.Anomalies)
	assert.Contains(t, rec.Anomalies[0], "unparseable date")
}

func TestCoerceNumber(t *testing.T) {
	tests := []struct {
		name string
		in   any
		want float64
		ok   bool
	}{
		{"plain float", float64(42), 42, true},
		{"currency", "$650,000", 650000, true},
		{"commas only", "1,234", 1234, true},
		{"trailing unit", "1850 sq ft", 1850, true},
		{"distance", "0.25 miles", 0.25, true},
		{"n/a", "N/A", 0, false},
		{"null string", "null", 0, false},
		{"empty", "", 0, false},
		{"garbage", "three", 0, false},
		{"nil", nil, 0, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := CoerceNumber(tt.in)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}
