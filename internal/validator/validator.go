// Package validator turns the untyped extraction payload into a strongly
// typed ExtractedRecord. Output is always produced: problems are recorded on
// the record, never thrown, so incompleteness is reported rather than lost.
package validator

import (
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/zhada/appraisal-extractor/constants"
	"github.com/zhada/appraisal-extractor/internal/entity"
	"github.com/zhada/appraisal-extractor/internal/llm"
)

// Validator applies schema, coercion, and business checks to raw payloads.
type Validator struct {
	logger *slog.Logger
}

func New(logger *slog.Logger) *Validator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Validator{logger: logger}
}

// Validate builds an ExtractedRecord from the raw payload. rawJSON, when
// present, additionally runs through the strict JSON-Schema check; a strict
// failure is logged for observability but never rejects the record.
func (v *Validator) Validate(raw map[string]any, rawJSON []byte, filename string) entity.ExtractedRecord {
	if rawJSON != nil {
		if err := llm.ValidateJSONAgainstSchema(llm.BuildAppraisalJSONSchema(), rawJSON); err != nil {
			v.logger.Warn("validator.strict_schema_failed", "filename", filename, "error", err)
		}
	}

	rec := entity.ExtractedRecord{Filename: filename}
	var missing, anomalies []string

	rec.FormType = requireString(raw, "Appraisal Form Type", &missing)
	rec.PropertyAddress = requireString(raw, "Subject Property Address", &missing)
	rec.AppraiserName = requireString(raw, "Appraiser Name", &missing)
	rec.BorrowerName = requireString(raw, "Borrower Name", &missing)
	rec.DocumentTitle = requireString(raw, "Document Title", &missing)
	rec.EffectiveDate = requireDate(raw, "Effective Date of Appraisal", &missing, &anomalies)
	rec.AdditionalSqFt = requireNumber(raw, "Subject Additional Square Footage", &missing)
	rec.SubjectValue = requireNumber(raw, "Subject Property Value", &missing)
	rec.AsIsValue = requireNumber(raw, "As-Is Value", &missing)
	rec.ARVValue = requireNumber(raw, "ARV Value", &missing)

	rec.SalesComps = v.comparables(raw, "Sales Comparables", constants.CompSales, &missing, &anomalies)
	rec.ARVComps = v.comparables(raw, "ARV Comparables", constants.CompARV, &missing, &anomalies)
	rec.LandComps = v.comparables(raw, "Land Comparables", constants.CompLand, &missing, &anomalies)
	rec.OtherComps = v.comparables(raw, "Other Comparables", constants.CompOther, &missing, &anomalies)

	// Cross-field business checks. Flagged, never rejected.
	if rec.FormType != "" && !constants.KnownFormType(rec.FormType) {
		anomalies = append(anomalies, fmt.Sprintf("unrecognized appraisal form type: %q", rec.FormType))
	}
	if rec.AsIsValue > 0 && rec.ARVValue > 0 && rec.ARVValue < rec.AsIsValue {
		anomalies = append(anomalies, fmt.Sprintf("ARV value %.0f lower than as-is value %.0f", rec.ARVValue, rec.AsIsValue))
	}

	rec.MissingFields = missing
	rec.Anomalies = anomalies
	rec.Complete = len(missing) == 0

	v.logger.Debug("validator.done",
		"filename", filename,
		"complete", rec.Complete,
		"missing", len(missing),
		"anomalies", len(anomalies),
		"comparables", len(rec.AllComparables()),
	)
	return rec
}

// comparables validates one comparable section. Entries are kept regardless
// of problems; unrecognized type tags normalize to Other with a flag.
func (v *Validator) comparables(raw map[string]any, section string, sectionType constants.CompType, missing, anomalies *[]string) []entity.Comparable {
	arr, ok := raw[section].([]any)
	if !ok {
		if _, present := raw[section]; !present {
			*missing = append(*missing, section)
		}
		return nil
	}

	out := make([]entity.Comparable, 0, len(arr))
	for i, item := range arr {
		m, ok := item.(map[string]any)
		if !ok {
			*anomalies = append(*anomalies, fmt.Sprintf("%s[%d] is not an object", section, i))
			continue
		}
		c := entity.Comparable{
			Address:        stringField(m, "Comp Address"),
			SaleDate:       normalizeDate(stringField(m, "Comp Sale Date")),
			DataSource:     stringField(m, "Comp Data Source"),
			Amenities:      stringField(m, "Comp List of Amenities"),
			Distance:       stringField(m, "Comp Distance"),
			ValueBasis:     stringField(m, "As-Is/ARV"),
			Label:          stringField(m, "Comp Number and Type"),
			BedCount:       numberField(m, "Comp Bed Count"),
			BathCount:      numberField(m, "Comp Bath Count"),
			GLA:            numberField(m, "Comp GLA"),
			SalePrice:      numberField(m, "Comp Sale Price"),
			AdjustedPrice:  numberField(m, "Comp Adjusted Sale Price"),
			LotSize:        numberField(m, "Comp Lot Size"),
			AdditionalSqFt: numberField(m, "Comp Additional Square Footage"),
		}
		if c.Address == "" {
			*missing = append(*missing, fmt.Sprintf("%s[%d]: Comp Address", section, i))
		}

		c.Type, c.TypeNormalized = compType(c.Label, sectionType)
		if c.TypeNormalized {
			*anomalies = append(*anomalies, fmt.Sprintf("%s[%d]: unrecognized comparable type %q normalized to %s", section, i, c.Label, c.Type))
		}
		out = append(out, c)
	}
	return out
}

// compType derives a comparable's type tag from its label, falling back to
// the section it appeared in. normalized reports a tag that did not match any
// defined type.
func compType(label string, sectionType constants.CompType) (ct constants.CompType, normalized bool) {
	tag := label
	if i := strings.Index(strings.ToLower(label), "comparable"); i >= 0 {
		tag = label[:i]
	}
	tag = strings.TrimSpace(tag)
	if tag == "" {
		return sectionType, false
	}
	ct, ok := constants.NormalizeCompType(tag)
	return ct, !ok
}

func requireString(raw map[string]any, field string, missing *[]string) string {
	s := stringField(raw, field)
	if s == "" {
		*missing = append(*missing, field)
	}
	return s
}

func requireNumber(raw map[string]any, field string, missing *[]string) float64 {
	v, ok := raw[field]
	if !ok {
		*missing = append(*missing, field)
		return 0
	}
	n, ok := CoerceNumber(v)
	if !ok {
		*missing = append(*missing, field)
		return 0
	}
	return n
}

func requireDate(raw map[string]any, field string, missing, anomalies *[]string) string {
	s := stringField(raw, field)
	if s == "" {
		*missing = append(*missing, field)
		return ""
	}
	n := normalizeDate(s)
	if n == s && !isISODate(s) {
		*anomalies = append(*anomalies, fmt.Sprintf("%s: unparseable date %q", field, s))
	}
	return n
}

func stringField(m map[string]any, field string) string {
	if s, ok := m[field].(string); ok {
		s = strings.TrimSpace(s)
		if strings.EqualFold(s, "null") || strings.EqualFold(s, "n/a") {
			return ""
		}
		return s
	}
	return ""
}

func numberField(m map[string]any, field string) float64 {
	n, _ := CoerceNumber(m[field])
	return n
}

// CoerceNumber parses numeric JSON values and the currency/count strings
// models emit ("$650,000", "1,234 sq ft"). Returns ok=false for values that
// cannot be read as the expected type.
func CoerceNumber(v any) (float64, bool) {
	switch t := v.(type) {
	case float64:
		return t, true
	case int:
		return float64(t), true
	case string:
		s := strings.TrimSpace(t)
		if s == "" || strings.EqualFold(s, "null") || strings.EqualFold(s, "n/a") {
			return 0, false
		}
		s = strings.TrimPrefix(s, "$")
		s = strings.ReplaceAll(s, ",", "")
		// strip trailing unit annotations ("1234 sq ft", "0.25 miles")
		if i := strings.IndexByte(s, ' '); i > 0 {
			s = s[:i]
		}
		f, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return 0, false
		}
		return f, true
	}
	return 0, false
}

var dateLayouts = []string{
	"2006-01-02",
	"01/02/2006",
	"1/2/2006",
	"January 2, 2006",
	"Jan 2, 2006",
}

// normalizeDate rewrites recognizable dates to YYYY-MM-DD and leaves
// everything else untouched.
func normalizeDate(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return ""
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.Format("2006-01-02")
		}
	}
	return s
}

func isISODate(s string) bool {
	_, err := time.Parse("2006-01-02", s)
	return err == nil
}
