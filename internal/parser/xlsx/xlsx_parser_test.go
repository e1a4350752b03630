package xlsx

import (
	"bytes"
	"reflect"
	"strings"
	"testing"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/xuri/excelize/v2"

	"sheetimport/internal/failure"
	"sheetimport/internal/records"
)

// workbook builds an in-memory workbook. sheets maps sheet name to rows; the
// first name in order replaces the default Sheet1.
func workbook(t *testing.T, order []string, sheets map[string][][]any) *bytes.Reader {
	t.Helper()
	f := excelize.NewFile()
	t.Cleanup(func() { _ = f.Close() })
	for i, name := range order {
		if i == 0 {
			if err := f.SetSheetName("Sheet1", name); err != nil {
				t.Fatalf("SetSheetName: %v", err)
			}
		} else if _, err := f.NewSheet(name); err != nil {
			t.Fatalf("NewSheet: %v", err)
		}
		for r, row := range sheets[name] {
			cell, err := excelize.CoordinatesToCellName(1, r+1)
			if err != nil {
				t.Fatalf("cell name: %v", err)
			}
			vals := row
			if err := f.SetSheetRow(name, cell, &vals); err != nil {
				t.Fatalf("SetSheetRow: %v", err)
			}
		}
	}
	buf, err := f.WriteToBuffer()
	if err != nil {
		t.Fatalf("WriteToBuffer: %v", err)
	}
	return bytes.NewReader(buf.Bytes())
}

func TestParse_TypesAndHeader(t *testing.T) {
	t.Parallel()

	due := time.Date(2024, 1, 15, 10, 30, 0, 0, time.UTC)
	r := workbook(t, []string{"Clients"}, map[string][][]any{
		"Clients": {
			{"Client #", "Full Name", "Due Date", "Amount", "Active"},
			{1, "Ada", due, 12.5, true},
			{2, "N/A", nil, 3, false},
		},
	})

	p := NewParser(Options{Sheet: "0"})
	tbl, err := p.Parse(r)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if p.Sheet() != "Clients" {
		t.Fatalf("Sheet() = %q", p.Sheet())
	}
	wantCols := []string{"Client #", "Full Name", "Due Date", "Amount", "Active"}
	if !reflect.DeepEqual(tbl.Columns, wantCols) {
		t.Fatalf("Columns = %q, want %q", tbl.Columns, wantCols)
	}
	if tbl.Len() != 2 {
		t.Fatalf("Len() = %d, want 2", tbl.Len())
	}
	if err := tbl.Validate(); err != nil {
		t.Fatalf("Validate: %v", err)
	}

	want := [][]records.Value{
		{records.Int(1), records.Text("Ada"), records.Time(due), records.Float(12.5), records.Int(1)},
		{records.Int(2), records.Text("N/A"), records.Null(), records.Int(3), records.Int(0)},
	}
	for i := range want {
		for j := range want[i] {
			if got := tbl.Rows[i][j]; !got.Equal(want[i][j]) {
				t.Errorf("row %d col %q = %#v, want %#v", i, tbl.Columns[j], got, want[i][j])
			}
		}
	}
}

func TestParse_SheetSelection(t *testing.T) {
	t.Parallel()

	sheets := map[string][][]any{
		"First": {{"a"}, {"first"}},
		"1":     {{"a"}, {"named one"}},
		"Third": {{"a"}, {"third"}},
	}
	order := []string{"First", "1", "Third"}

	tests := []struct {
		sel     string
		want    string
		wantErr bool
	}{
		{"", "first", false},
		{"0", "first", false},
		{"Third", "third", false},
		{"2", "third", false},
		// A sheet literally named "1" wins over index 1.
		{"1", "named one", false},
		{"7", "", true},
		{"Missing", "", true},
	}
	for _, tt := range tests {
		tt := tt
		t.Run("sel="+tt.sel, func(t *testing.T) {
			t.Parallel()
			tbl, err := NewParser(Options{Sheet: tt.sel}).Parse(workbook(t, order, sheets))
			if tt.wantErr {
				if !errors.Is(err, failure.ErrSourceRead) {
					t.Fatalf("err = %v, want ErrSourceRead", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("Parse: %v", err)
			}
			if got := tbl.Rows[0][0].Str(); got != tt.want {
				t.Fatalf("value = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestParse_MissingSheetHint(t *testing.T) {
	t.Parallel()

	r := workbook(t, []string{"Data"}, map[string][][]any{"Data": {{"a"}, {1}}})
	_, err := NewParser(Options{Sheet: "Nope"}).Parse(r)
	if err == nil {
		t.Fatal("want error")
	}
	hints := strings.Join(errors.GetAllHints(err), "\n")
	if !strings.Contains(hints, "Data") {
		t.Fatalf("hints = %q, want available sheet names", hints)
	}
}

func TestParse_BlankRowsAndWideRows(t *testing.T) {
	t.Parallel()

	r := workbook(t, []string{"S"}, map[string][][]any{
		"S": {
			{"id", "", "id"},
			{1, "x", "y"},
			{nil, nil, nil},
			{2, nil, nil, "extra"},
		},
	})
	tbl, err := NewParser(Options{}).Parse(r)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	wantCols := []string{"id", "Unnamed: 1", "id.1", "Unnamed: 3"}
	if !reflect.DeepEqual(tbl.Columns, wantCols) {
		t.Fatalf("Columns = %q, want %q", tbl.Columns, wantCols)
	}
	if tbl.Len() != 2 {
		t.Fatalf("Len() = %d, want 2 (blank row dropped)", tbl.Len())
	}
	if err := tbl.Validate(); err != nil {
		t.Fatalf("Validate: %v", err)
	}
	if !tbl.Rows[0][3].IsNull() || tbl.Rows[1][3].Str() != "extra" {
		t.Fatalf("rows = %v", tbl.Rows)
	}
}

func TestParse_EmptySheet(t *testing.T) {
	t.Parallel()

	r := workbook(t, []string{"Empty"}, map[string][][]any{})
	tbl, err := NewParser(Options{}).Parse(r)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if !tbl.Empty() {
		t.Fatalf("want empty table, got %d rows", tbl.Len())
	}

	r = workbook(t, []string{"HeaderOnly"}, map[string][][]any{"HeaderOnly": {{"a", "b"}}})
	tbl, err = NewParser(Options{}).Parse(r)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if !tbl.Empty() || len(tbl.Columns) != 2 {
		t.Fatalf("table = %+v", tbl)
	}
}

func TestParse_NotAWorkbook(t *testing.T) {
	t.Parallel()

	_, err := NewParser(Options{}).Parse(strings.NewReader("id,name\n1,Ada\n"))
	if !errors.Is(err, failure.ErrSourceRead) {
		t.Fatalf("err = %v, want ErrSourceRead", err)
	}
	if len(errors.GetAllHints(err)) == 0 {
		t.Fatal("want a hint about supported formats")
	}
}

func TestIsDateNumFmt(t *testing.T) {
	t.Parallel()

	s := func(v string) *string { return &v }
	tests := []struct {
		name   string
		id     int
		custom *string
		want   bool
	}{
		{"general", 0, nil, false},
		{"builtin date", 14, nil, true},
		{"builtin datetime", 22, nil, true},
		{"builtin percent", 10, nil, false},
		{"custom iso", 164, s("yyyy-mm-dd"), true},
		{"custom time", 164, s("hh:mm:ss"), true},
		{"elapsed", 164, s("[h]:mm"), true},
		{"currency color", 164, s(`[Red]#,##0.00`), false},
		{"quoted literal", 164, s(`0.0" days"`), false},
		{"escaped", 164, s(`0\d`), false},
		{"negative section ignored", 164, s(`0.00;"d"0.00`), false},
		{"scientific", 164, s("0.00E+00"), false},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := isDateNumFmt(tt.id, tt.custom); got != tt.want {
				t.Fatalf("isDateNumFmt(%d, %v) = %v, want %v", tt.id, tt.custom, got, tt.want)
			}
		})
	}
}

func TestNumber(t *testing.T) {
	t.Parallel()

	if v := number(3); v.Kind() != records.KindInt || v.Int() != 3 {
		t.Fatalf("number(3) = %#v", v)
	}
	if v := number(2.5); v.Kind() != records.KindFloat {
		t.Fatalf("number(2.5) = %#v", v)
	}
	if v := number(1e300); v.Kind() != records.KindFloat {
		t.Fatalf("number(1e300) = %#v", v)
	}
}
