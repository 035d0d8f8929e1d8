package constants

import (
	"strings"
)

// CompType classifies a comparable-property record attached to an appraisal.
type CompType string

const (
	CompSales CompType = "Sales"
	CompARV   CompType = "ARV"
	CompLand  CompType = "Land"
	CompOther CompType = "Other"
)

var allCompTypes = []CompType{
	CompSales,
	CompARV,
	CompLand,
	CompOther,
}

// AllCompTypes returns the defined comparable types in stable order.
func AllCompTypes() []CompType {
	out := make([]CompType, len(allCompTypes))
	copy(out, allCompTypes)
	return out
}

// NormalizeCompType maps a raw tag onto a defined CompType.
// Unrecognized tags normalize to CompOther; ok reports whether the tag matched.
func NormalizeCompType(raw string) (ct CompType, ok bool) {
	s := strings.TrimSpace(raw)
	for _, t := range allCompTypes {
		if strings.EqualFold(s, string(t)) {
			return t, true
		}
	}
	// common aliases seen in appraisal sections
	switch {
	case strings.EqualFold(s, "after repair value"), strings.EqualFold(s, "after-repair"):
		return CompARV, true
	case strings.EqualFold(s, "sale"), strings.EqualFold(s, "sales comparable"):
		return CompSales, true
	}
	return CompOther, false
}

// AppraisalFormTypes is the whitelist of recognized form designations.
var AppraisalFormTypes = []string{
	"Fannie Mae Form 1004",
	"Fannie Mae Form 2055",
	"Fannie Mae Form 1025",
	"Fannie Mae Form 1073",
	"Fannie Mae Form 1075",
	"Form GP2-4",
	"Form GPLND",
}

// KnownFormType reports whether s contains one of the recognized form designations.
func KnownFormType(s string) bool {
	for _, f := range AppraisalFormTypes {
		if strings.Contains(s, f) {
			return true
		}
	}
	return false
}
