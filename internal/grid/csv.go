package grid

import (
	"bytes"
	"encoding/csv"
)

// readCSV loads comma separated data. Rows may have differing widths.
func readCSV(data []byte) (*Grid, error) {
	r := csv.NewReader(bytes.NewReader(bytes.TrimPrefix(data, []byte("\xef\xbb\xbf"))))
	r.FieldsPerRecord = -1
	r.LazyQuotes = true

	rows, err := r.ReadAll()
	if err != nil {
		return nil, err
	}
	return FromStrings(rows), nil
}
