package extract

import (
	"errors"
	"testing"
	"time"

	"takings/internal/grid"
)

// sheet builds a template grid: the store name at C5 and the given data
// rows starting at row 11.
func sheet(store grid.Cell, data ...[3]grid.Cell) *grid.Grid {
	rows := make([][]grid.Cell, FirstDataRow, FirstDataRow+len(data))
	for i := range rows {
		rows[i] = make([]grid.Cell, 3)
	}
	rows[StoreNameRow][StoreNameCol] = store
	for _, d := range data {
		rows = append(rows, []grid.Cell{d[0], d[1], d[2]})
	}
	return grid.New(rows)
}

func row(date, amount grid.Cell) [3]grid.Cell {
	return [3]grid.Cell{date, {}, amount}
}

var (
	txt = grid.TextCell
	num = grid.NumberCell
)

func TestExtractStoreName(t *testing.T) {
	name, err := ExtractStoreName(sheet(txt("  Main Street  ")))
	if err != nil {
		t.Fatalf("ExtractStoreName: %v", err)
	}
	if name != "Main Street" {
		t.Errorf("name = %q, want trimmed", name)
	}

	name, err = ExtractStoreName(sheet(num(42)))
	if err != nil || name != "42" {
		t.Errorf("numeric store name = %q, %v", name, err)
	}
}

func TestExtractStoreNameMalformed(t *testing.T) {
	tests := []struct {
		name string
		g    *grid.Grid
	}{
		{"nil grid", nil},
		{"too few rows", grid.FromStrings([][]string{{"a", "b", "c"}})},
		{"too few columns", grid.FromStrings([][]string{{"a"}, {"a"}, {"a"}, {"a"}, {"a", "b"}})},
		{"empty cell", sheet(grid.Cell{})},
		{"blank text", sheet(txt("   "))},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := ExtractStoreName(tt.g); !errors.Is(err, ErrMalformedTemplate) {
				t.Fatalf("err = %v, want ErrMalformedTemplate", err)
			}
		})
	}
}

func TestExtractRoundTrip(t *testing.T) {
	g := sheet(txt("Main Street"),
		row(txt("2024-02-05"), num(123.45)),
		row(txt("Monday, 05 February 2024"), txt("99.9")),
	)
	res, err := New(nil).Extract(g)
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	if res.StoreName != "Main Street" {
		t.Errorf("store = %q", res.StoreName)
	}
	if len(res.Records) != 2 {
		t.Fatalf("records = %d, want 2", len(res.Records))
	}

	want := []struct {
		date   string
		amount string
	}{
		{"2024-02-05", "123.45"},
		{"2024-02-05", "99.90"},
	}
	for i, w := range want {
		r := res.Records[i]
		if r.Store != "Main Street" {
			t.Errorf("record %d store = %q", i, r.Store)
		}
		if r.Date.String() != w.date {
			t.Errorf("record %d date = %s, want %s", i, r.Date, w.date)
		}
		if got := r.Amount.StringFixed(2); got != w.amount {
			t.Errorf("record %d amount = %s, want %s", i, got, w.amount)
		}
	}
}

func TestExtractDateFormats(t *testing.T) {
	tests := []struct {
		name string
		cell grid.Cell
		want string
	}{
		{"iso date", txt("2024-02-05"), "2024-02-05"},
		{"iso date padded", txt("  2024-02-05 "), "2024-02-05"},
		{"iso date single digits", txt("2024-2-5"), "2024-02-05"},
		{"iso datetime", txt("2024-02-05 13:45:00"), "2024-02-05"},
		{"long form", txt("Monday, 05 February 2024"), "2024-02-05"},
		{"long form any case", txt("monday, 5 FEBRUARY 2024"), "2024-02-05"},
		{"date cell", grid.DateCell(time.Date(2024, 2, 5, 0, 0, 0, 0, time.UTC)), "2024-02-05"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := New(nil).ExtractRecords(sheet(txt("S"), row(tt.cell, num(1))), "S")
			if len(res.Records) != 1 {
				t.Fatalf("records = %d, outcomes = %+v", len(res.Records), res.Outcomes)
			}
			if got := res.Records[0].Date.String(); got != tt.want {
				t.Errorf("date = %s, want %s", got, tt.want)
			}
		})
	}
}

func TestExtractSkipsWithReasons(t *testing.T) {
	g := sheet(txt("S"),
		row(grid.Cell{}, grid.Cell{}),               // blank separator
		row(txt("  "), txt(" ")),                    // whitespace only
		row(txt("Weekly Total"), num(700)),          // subtotal
		row(txt("WEEKLY"), txt("oops")),             // subtotal wins over bad amount
		row(txt("week ending wEeKlY"), grid.Cell{}), // any casing
		row(txt("not-a-date"), num(10)),             // bad date
		row(txt("2024-02-06"), txt("n/a")),          // bad amount
		row(grid.Cell{}, num(5)),                    // missing date
		row(txt("2024-02-07"), grid.Cell{}),         // missing amount
		row(txt("2024-02-08"), num(1e9)),            // does not fit DECIMAL(10,2)
		row(txt("2024-02-09"), num(50)),
	)
	res := New(nil).ExtractRecords(g, "S")

	wantReasons := []SkipReason{
		SkipBlank, SkipBlank,
		SkipWeekly, SkipWeekly, SkipWeekly,
		SkipBadDate, SkipBadAmount, SkipBadDate, SkipBadAmount, SkipBadAmount,
	}
	skipped := res.Skipped()
	if len(skipped) != len(wantReasons) {
		t.Fatalf("skipped = %d, want %d: %+v", len(skipped), len(wantReasons), skipped)
	}
	for i, want := range wantReasons {
		if skipped[i].Skip != want {
			t.Errorf("skip %d (row %d) = %s, want %s", i, skipped[i].Row, skipped[i].Skip, want)
		}
		if skipped[i].Row != FirstDataRow+i {
			t.Errorf("skip %d row = %d, want %d", i, skipped[i].Row, FirstDataRow+i)
		}
		if want.IsError() && skipped[i].Err == nil {
			t.Errorf("skip %d has no error", i)
		}
	}

	if got := res.ErrorCount(); got != 5 {
		t.Errorf("ErrorCount = %d, want 5 (blank and weekly rows are not errors)", got)
	}
	if len(res.Records) != 1 || res.Records[0].Date.String() != "2024-02-09" {
		t.Errorf("records = %+v", res.Records)
	}
}

func TestExtractBadRowDoesNotStopBatch(t *testing.T) {
	g := sheet(txt("S"),
		row(txt("2024-02-01"), num(1)),
		row(txt("not-a-date"), num(2)),
		row(txt("2024-02-03"), num(3)),
		row(txt("2024-02-04"), num(4)),
	)
	res := New(nil).ExtractRecords(g, "S")
	var got []string
	for _, r := range res.Records {
		got = append(got, r.Date.String()+"="+r.Amount.String())
	}
	want := []string{"2024-02-01=1", "2024-02-03=3", "2024-02-04=4"}
	if len(got) != len(want) {
		t.Fatalf("records = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("record %d = %s, want %s", i, got[i], want[i])
		}
	}
}

func TestExtractKeepsInSheetDuplicates(t *testing.T) {
	g := sheet(txt("S"),
		row(txt("2024-02-05"), num(10)),
		row(txt("2024-02-05"), num(20)),
	)
	res := New(nil).ExtractRecords(g, "S")
	if len(res.Records) != 2 {
		t.Fatalf("records = %d, want both duplicates", len(res.Records))
	}
	if res.Records[0].Amount.IntPart() != 10 || res.Records[1].Amount.IntPart() != 20 {
		t.Errorf("duplicates out of order: %s, %s", res.Records[0].Amount, res.Records[1].Amount)
	}
}

func TestExtractNoDataRows(t *testing.T) {
	g := grid.FromStrings([][]string{{}, {}, {}, {}, {"", "", "Store"}})
	res, err := New(nil).Extract(g)
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	if len(res.Records) != 0 || len(res.Outcomes) != 0 {
		t.Errorf("expected nothing extracted, got %+v", res)
	}
}

func TestExtractRoundsAmounts(t *testing.T) {
	g := sheet(txt("S"), row(txt("2024-02-05"), txt("10.005")))
	res := New(nil).ExtractRecords(g, "S")
	if len(res.Records) != 1 {
		t.Fatalf("records = %d", len(res.Records))
	}
	if got := res.Records[0].Amount.StringFixed(2); got != "10.00" {
		t.Errorf("amount = %s, want 10.00", got)
	}
}
