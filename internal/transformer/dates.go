package transformer

import (
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"

	"sheetimport/internal/records"
)

// TwoDigitYearPivot: two-digit years that would land more than this many
// years in the future are moved to the previous century.
var TwoDigitYearPivot = 20

// Layouts tried in order. Zoned layouts keep their offset; the rest are read
// in the converter's Location. Month-first slash forms follow US usage.
var (
	zonedLayouts = []string{
		time.RFC3339Nano,
		time.RFC3339,
		"2006-01-02 15:04:05Z07:00",
		"2006-01-02 15:04:05 -0700",
		time.RFC1123Z,
		time.RFC1123,
	}
	naiveLayouts = []string{
		"2006-01-02 15:04:05.999999999",
		"2006-01-02 15:04:05",
		"2006-01-02 15:04",
		"2006-01-02T15:04:05.999999999",
		"2006-01-02T15:04:05",
		"2006-01-02T15:04",
		"2006-01-02",
		"2006/01/02 15:04:05",
		"2006/01/02",
		"2006.01.02",
		"1/2/2006 15:04:05",
		"1/2/2006 15:04",
		"1/2/2006 3:04:05 PM",
		"1/2/2006 3:04 PM",
		"1/2/2006",
		"1-2-2006",
		"1.2.2006",
		"Jan 2, 2006",
		"January 2, 2006",
		"Jan 2 2006",
		"2 Jan 2006",
		"2 January 2006",
		"02-Jan-2006",
		"20060102",
	}
	twoDigitYearLayouts = []string{
		"1/2/06", "1-2-06", "1.2.06", "02-Jan-06",
	}
)

// DateConverter replaces the values of the named columns with Int Unix
// seconds, floored to the second. Values that cannot be read as dates become
// Null. Unknown and Unparsed are filled by Apply.
type DateConverter struct {
	Columns  []string
	Location *time.Location

	Unknown  []string
	Unparsed map[string]int
}

func (d *DateConverter) Apply(in records.Table) records.Table {
	d.Unknown = nil
	d.Unparsed = map[string]int{}
	if len(d.Columns) == 0 {
		return in
	}
	loc := d.Location
	if loc == nil {
		loc = time.UTC
	}

	keep := make([]bool, len(in.Columns))
	found := false
	for _, name := range d.Columns {
		i := in.Index(name)
		if i < 0 {
			d.Unknown = append(d.Unknown, name)
			continue
		}
		keep[i] = true
		found = true
	}
	if !found {
		return in
	}

	return mapRows(in, keep, func(col int, v records.Value) records.Value {
		if v.IsNull() {
			return v
		}
		t, ok := ToTime(v, loc)
		if !ok {
			d.Unparsed[in.Columns[col]]++
			return records.Null()
		}
		return records.Int(EpochSeconds(t))
	})
}

// EpochSeconds returns t as Unix seconds floored to the second.
func EpochSeconds(t time.Time) int64 { return t.Unix() }

// ToTime reads v as an instant. Time values carry workbook wall-clock time
// and are placed in loc; numbers are spreadsheet serial dates; text is
// parsed with the layout list.
func ToTime(v records.Value, loc *time.Location) (time.Time, bool) {
	switch v.Kind() {
	case records.KindTime:
		t := v.Time()
		if t.Location() == time.UTC && loc != time.UTC {
			t = time.Date(t.Year(), t.Month(), t.Day(), t.Hour(), t.Minute(), t.Second(), t.Nanosecond(), loc)
		}
		return t, true
	case records.KindInt:
		return serialToTime(float64(v.Int()), loc)
	case records.KindFloat:
		return serialToTime(v.Float(), loc)
	case records.KindText:
		return ParseDate(v.Str(), loc)
	default:
		return time.Time{}, false
	}
}

// ParseDate parses date text. Text without a zone is read in loc. A bare
// number is taken as a spreadsheet serial date.
func ParseDate(s string, loc *time.Location) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}
	for _, layout := range zonedLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	for _, layout := range naiveLayouts {
		if t, err := time.ParseInLocation(layout, s, loc); err == nil {
			return t, true
		}
	}
	pivot := time.Now().Year() + TwoDigitYearPivot
	for _, layout := range twoDigitYearLayouts {
		if t, err := time.ParseInLocation(layout, s, loc); err == nil {
			if t.Year() > pivot {
				t = t.AddDate(-100, 0, 0)
			}
			return t, true
		}
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil {
		return serialToTime(f, loc)
	}
	return time.Time{}, false
}

// serialToTime converts a 1900-system spreadsheet serial date.
func serialToTime(f float64, loc *time.Location) (time.Time, bool) {
	if math.IsNaN(f) || math.IsInf(f, 0) || f < 0 {
		return time.Time{}, false
	}
	t, err := excelize.ExcelDateToTime(f, false)
	if err != nil {
		return time.Time{}, false
	}
	t = t.Round(time.Millisecond)
	return time.Date(t.Year(), t.Month(), t.Day(), t.Hour(), t.Minute(), t.Second(), t.Nanosecond(), loc), true
}
