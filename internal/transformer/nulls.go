package transformer

import (
	"math"

	"sheetimport/internal/records"
)

// naValues are the text spellings read as missing values. The set is the
// one spreadsheet tooling conventionally treats as NA.
var naValues = map[string]struct{}{
	"":         {},
	"#N/A":     {},
	"#N/A N/A": {},
	"#NA":      {},
	"-1.#IND":  {},
	"-1.#QNAN": {},
	"-NaN":     {},
	"-nan":     {},
	"1.#IND":   {},
	"1.#QNAN":  {},
	"<NA>":     {},
	"N/A":      {},
	"NA":       {},
	"NULL":     {},
	"NaN":      {},
	"None":     {},
	"n/a":      {},
	"nan":      {},
	"null":     {},
}

// IsNA reports whether s spells a missing value.
func IsNA(s string) bool {
	_, ok := naValues[s]
	return ok
}

// NullNormalizer replaces NA text and non-finite floats with Null.
type NullNormalizer struct{}

func (NullNormalizer) Apply(in records.Table) records.Table {
	return mapRows(in, nil, func(_ int, v records.Value) records.Value {
		switch v.Kind() {
		case records.KindText:
			if IsNA(v.Str()) {
				return records.Null()
			}
		case records.KindFloat:
			if f := v.Float(); math.IsNaN(f) || math.IsInf(f, 0) {
				return records.Null()
			}
		}
		return v
	})
}
