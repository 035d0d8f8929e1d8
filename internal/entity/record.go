package entity

import (
	"github.com/zhada/appraisal-extractor/constants"
)

// Comparable is one reference-property record attached to an appraisal.
// Numeric fields are 0 when absent; absence of required sub-fields is rolled
// into the parent record's MissingFields.
type Comparable struct {
	Address        string             `json:"Comp Address"`
	BedCount       float64            `json:"Comp Bed Count"`
	BathCount      float64            `json:"Comp Bath Count"`
	GLA            float64            `json:"Comp GLA"`
	SalePrice      float64            `json:"Comp Sale Price"`
	AdjustedPrice  float64            `json:"Comp Adjusted Sale Price"`
	SaleDate       string             `json:"Comp Sale Date"`
	DataSource     string             `json:"Comp Data Source"`
	LotSize        float64            `json:"Comp Lot Size"`
	Amenities      string             `json:"Comp List of Amenities"`
	Distance       string             `json:"Comp Distance"`
	ValueBasis     string             `json:"As-Is/ARV"`
	AdditionalSqFt float64            `json:"Comp Additional Square Footage"`
	Label          string             `json:"Comp Number and Type"`
	Type           constants.CompType `json:"comp_type"`
	TypeNormalized bool               `json:"comp_type_normalized,omitempty"`
}

// ExtractedRecord is the validated structured output for one appraisal.
// Field names in JSON mirror the extraction schema so the persisted result
// object reads the same as the raw payload.
//
// The record is always produced: required scalars that were absent or
// uncoercible are listed in MissingFields and Complete is false, but nothing
// is dropped.
type ExtractedRecord struct {
	Filename        string  `json:"Filename"`
	FormType        string  `json:"Appraisal Form Type"`
	PropertyAddress string  `json:"Subject Property Address"`
	EffectiveDate   string  `json:"Effective Date of Appraisal"`
	AppraiserName   string  `json:"Appraiser Name"`
	BorrowerName    string  `json:"Borrower Name"`
	DocumentTitle   string  `json:"Document Title"`
	AdditionalSqFt  float64 `json:"Subject Additional Square Footage"`
	SubjectValue    float64 `json:"Subject Property Value"`
	AsIsValue       float64 `json:"As-Is Value"`
	ARVValue        float64 `json:"ARV Value"`

	SalesComps []Comparable `json:"Sales Comparables"`
	ARVComps   []Comparable `json:"ARV Comparables"`
	LandComps  []Comparable `json:"Land Comparables"`
	OtherComps []Comparable `json:"Other Comparables"`

	MissingFields []string `json:"missing_fields,omitempty"`
	Anomalies     []string `json:"anomalies,omitempty"`
	Complete      bool     `json:"complete"`
}

// AllComparables returns every comparable across the four sections.
func (r *ExtractedRecord) AllComparables() []Comparable {
	out := make([]Comparable, 0, len(r.SalesComps)+len(r.ARVComps)+len(r.LandComps)+len(r.OtherComps))
	out = append(out, r.SalesComps...)
	out = append(out, r.ARVComps...)
	out = append(out, r.LandComps...)
	out = append(out, r.OtherComps...)
	return out
}
