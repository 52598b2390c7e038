package grid

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/xuri/excelize/v2"
)

func TestCellString(t *testing.T) {
	tests := []struct {
		name string
		cell Cell
		want string
	}{
		{"empty", Cell{}, ""},
		{"text", TextCell(" Weekly Total "), " Weekly Total "},
		{"integer number", NumberCell(100), "100"},
		{"decimal number", NumberCell(123.45), "123.45"},
		{"date", DateCell(time.Date(2024, 2, 5, 0, 0, 0, 0, time.UTC)), "2024-02-05 00:00:00"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.cell.String(); got != tt.want {
				t.Errorf("String() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestCellIsBlank(t *testing.T) {
	if !(Cell{}).IsBlank() {
		t.Error("empty cell should be blank")
	}
	if !TextCell("   ").IsBlank() {
		t.Error("whitespace text should be blank")
	}
	if NumberCell(0).IsBlank() {
		t.Error("zero is a value, not blank")
	}
}

func TestGridAtOutOfBounds(t *testing.T) {
	g := FromStrings([][]string{{"a", "1"}, {"b"}})
	if g.Rows() != 2 || g.Cols() != 2 {
		t.Fatalf("dims = %dx%d, want 2x2", g.Rows(), g.Cols())
	}
	if c := g.At(0, 1); c.Kind != Number || c.Num != 1 {
		t.Errorf("At(0,1) = %+v, want number 1", c)
	}
	for _, pos := range [][2]int{{1, 1}, {5, 0}, {-1, 0}, {0, -1}} {
		if c := g.At(pos[0], pos[1]); c.Kind != Empty {
			t.Errorf("At(%d,%d) kind = %v, want empty", pos[0], pos[1], c.Kind)
		}
	}
}

func TestDetectFormat(t *testing.T) {
	tests := []struct {
		name    string
		want    Format
		wantErr bool
	}{
		{"takings.xlsx", FormatXLSX, false},
		{"TAKINGS.XLS", FormatXLS, false},
		{"macro.xlsm", FormatXLSX, false},
		{"export.csv", FormatCSV, false},
		{"notes.txt", "", true},
		{"noext", "", true},
	}
	for _, tt := range tests {
		got, err := DetectFormat(tt.name)
		if (err != nil) != tt.wantErr {
			t.Fatalf("DetectFormat(%q) err = %v, wantErr %v", tt.name, err, tt.wantErr)
		}
		if got != tt.want {
			t.Errorf("DetectFormat(%q) = %q, want %q", tt.name, got, tt.want)
		}
	}
}

func TestReadUnsupportedAndCorrupt(t *testing.T) {
	if _, err := Read("takings.pdf", []byte("%PDF")); !errors.Is(err, ErrUnreadable) || !errors.Is(err, ErrUnsupportedFormat) {
		t.Errorf("pdf: err = %v, want ErrUnreadable wrapping ErrUnsupportedFormat", err)
	}
	if _, err := Read("takings.xlsx", []byte("not a zip")); !errors.Is(err, ErrUnreadable) {
		t.Errorf("corrupt xlsx: err = %v, want ErrUnreadable", err)
	}
	if _, err := Read("takings.xls", []byte("not biff")); !errors.Is(err, ErrUnreadable) {
		t.Errorf("corrupt xls: err = %v, want ErrUnreadable", err)
	}
}

func TestReadXLS(t *testing.T) {
	data, err := os.ReadFile(filepath.Join("testdata", "takings.xls"))
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	g, err := Read("takings.xls", data)
	if err != nil {
		t.Fatalf("Read: %v", err)
	}

	day := func(d int) time.Time { return time.Date(2024, 2, d, 0, 0, 0, 0, time.UTC) }
	tests := []struct {
		name     string
		row, col int
		want     Cell
	}{
		{"store name", 4, 2, TextCell("Main Street")},
		{"formula string result", 4, 4, TextCell("Branch")},
		{"blank row", 6, 0, Cell{}},
		{"header", 9, 0, TextCell("Date")},
		{"built-in date format", 10, 0, DateCell(day(5))},
		{"number", 10, 2, NumberCell(123.45)},
		{"custom date format rk", 11, 0, DateCell(day(6))},
		{"formula number result", 11, 2, NumberCell(99.9)},
		{"weekly label", 12, 0, TextCell("Weekly total")},
		{"mulrk date", 13, 0, DateCell(day(7))},
		{"mulrk integer", 13, 1, NumberCell(1)},
		{"mulrk scaled", 13, 2, NumberCell(50.5)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := g.At(tt.row, tt.col)
			if got.Kind != tt.want.Kind || got.Text != tt.want.Text || got.Num != tt.want.Num || !got.Time.Equal(tt.want.Time) {
				t.Fatalf("At(%d, %d) = %+v, want %+v", tt.row, tt.col, got, tt.want)
			}
		})
	}
}

func TestReadXLSRejectsTruncatedStream(t *testing.T) {
	data, err := os.ReadFile(filepath.Join("testdata", "takings.xls"))
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	if _, err := Read("takings.xls", data[:1024]); !errors.Is(err, ErrUnreadable) {
		t.Fatalf("truncated xls: err = %v, want ErrUnreadable", err)
	}
}

func TestDecodeRK(t *testing.T) {
	tests := []struct {
		rk   uint32
		want float64
	}{
		{45327<<2 | 0x02, 45327},
		{5050<<2 | 0x03, 50.5},
		{uint32(0x3FF00000), 1},
		{uint32(0x3FF00000) | 0x01, 0.01},
		{uint32(0xFFFFFFFE), -1},
	}
	for _, tt := range tests {
		if got := decodeRK(tt.rk); got != tt.want {
			t.Errorf("decodeRK(%#x) = %v, want %v", tt.rk, got, tt.want)
		}
	}
}

func TestParseSSTAcrossContinue(t *testing.T) {
	// "Main Street" split across two segments, the tail restated as UTF-16.
	first := []byte{2, 0, 0, 0, 2, 0, 0, 0, 11, 0, 0, 'M', 'a', 'i', 'n', ' '}
	second := []byte{0x01, 'S', 0, 't', 0, 'r', 0, 'e', 0, 'e', 0, 't', 0, 3, 0, 0, 'A', 'B', 'C'}
	got, err := parseSST([][]byte{first, second})
	if err != nil {
		t.Fatalf("parseSST: %v", err)
	}
	if len(got) != 2 || got[0] != "Main Street" || got[1] != "ABC" {
		t.Fatalf("parseSST = %q", got)
	}
	if _, err := parseSST([][]byte{first}); err == nil {
		t.Fatal("parseSST on a truncated table: want error")
	}
}

func TestReadCSV(t *testing.T) {
	data := []byte("\xef\xbb\xbfStore,,Main St\n2024-02-05,,123.45\n\"Weekly, total\",,500\n")
	g, err := Read("export.csv", data)
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if g.Rows() != 3 {
		t.Fatalf("rows = %d, want 3", g.Rows())
	}
	if c := g.At(0, 0); c.Kind != Text || c.Text != "Store" {
		t.Errorf("BOM not stripped: %+v", c)
	}
	if c := g.At(1, 1); c.Kind != Empty {
		t.Errorf("blank field kind = %v, want empty", c.Kind)
	}
	if c := g.At(1, 2); c.Kind != Number || c.Num != 123.45 {
		t.Errorf("amount = %+v, want number 123.45", c)
	}
	if c := g.At(2, 0); c.Text != "Weekly, total" {
		t.Errorf("quoted field = %q", c.Text)
	}
}

func TestReadXLSX(t *testing.T) {
	f := excelize.NewFile()
	defer f.Close()
	sheet := f.GetSheetName(0)

	mustSet := func(cell string, v any) {
		t.Helper()
		if err := f.SetCellValue(sheet, cell, v); err != nil {
			t.Fatalf("SetCellValue(%s): %v", cell, err)
		}
	}
	mustSet("C5", "Main Street")
	mustSet("A11", "2024-02-05")
	mustSet("C11", 123.45)
	mustSet("A12", time.Date(2024, 2, 6, 0, 0, 0, 0, time.UTC))
	mustSet("C12", 99.9)

	buf, err := f.WriteToBuffer()
	if err != nil {
		t.Fatalf("WriteToBuffer: %v", err)
	}

	g, err := Read("takings.xlsx", buf.Bytes())
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if c := g.At(4, 2); c.Kind != Text || c.Text != "Main Street" {
		t.Errorf("store cell = %+v", c)
	}
	if c := g.At(10, 0); c.Kind != Text || c.Text != "2024-02-05" {
		t.Errorf("text date cell = %+v", c)
	}
	if c := g.At(10, 2); c.Kind != Number || c.Num != 123.45 {
		t.Errorf("amount cell = %+v", c)
	}
	c := g.At(11, 0)
	if c.Kind != Date {
		t.Fatalf("date cell kind = %v, want date", c.Kind)
	}
	if got := c.String(); got != "2024-02-06 00:00:00" {
		t.Errorf("date cell string = %q", got)
	}
}

func TestIsDateNumFmt(t *testing.T) {
	tests := map[string]bool{
		"yyyy-mm-dd":         true,
		"dddd, dd mmmm yyyy": true,
		"[$-409]d-mmm-yy;@":  true,
		"0.00":               false,
		"#,##0.00 \"days\"":  false,
		"General":            false,
		"[Red]#,##0.00":      false,
	}
	for code, want := range tests {
		if got := isDateNumFmt(code); got != want {
			t.Errorf("isDateNumFmt(%q) = %v, want %v", code, got, want)
		}
	}
}
