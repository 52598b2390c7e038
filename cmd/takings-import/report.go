package main

import (
	"encoding/json"
	"fmt"
	"io"

	"gopkg.in/yaml.v3"

	"takings/internal/services"
)

const (
	formatText = "text"
	formatJSON = "json"
	formatYAML = "yaml"
)

type report struct {
	Source   string      `json:"source" yaml:"source"`
	Store    string      `json:"store" yaml:"store"`
	UploadID int64       `json:"upload_id" yaml:"upload_id"`
	Records  int         `json:"records" yaml:"records"`
	Inserted int         `json:"inserted" yaml:"inserted"`
	Ignored  int         `json:"ignored" yaml:"ignored"`
	Skipped  int         `json:"skipped" yaml:"skipped"`
	BadRows  []badRow    `json:"bad_rows,omitempty" yaml:"bad_rows,omitempty"`
	Days     []reportDay `json:"days" yaml:"days"`
}

// badRow is a data row dropped for an unparseable date or amount. Row is
// one based, as spreadsheets number them.
type badRow struct {
	Row    int    `json:"row" yaml:"row"`
	Reason string `json:"reason" yaml:"reason"`
	Error  string `json:"error,omitempty" yaml:"error,omitempty"`
}

type reportDay struct {
	Date   string `json:"date" yaml:"date"`
	Amount string `json:"amount" yaml:"amount"`
}

func newReport(source string, res services.ImportResult) report {
	rep := report{
		Source:   source,
		Store:    res.StoreName,
		UploadID: res.Summary.UploadID,
		Records:  len(res.Records),
		Inserted: res.Summary.Inserted,
		Ignored:  res.Summary.Ignored,
		Skipped:  len(res.Skipped),
		Days:     make([]reportDay, 0, len(res.Records)),
	}
	for _, o := range res.Skipped {
		if !o.Skip.IsError() {
			continue
		}
		row := badRow{Row: o.Row + 1, Reason: string(o.Skip)}
		if o.Err != nil {
			row.Error = o.Err.Error()
		}
		rep.BadRows = append(rep.BadRows, row)
	}
	for _, r := range res.Records {
		rep.Days = append(rep.Days, reportDay{Date: r.Date.String(), Amount: r.Amount.StringFixed(2)})
	}
	return rep
}

func writeReport(w io.Writer, format string, rep report) error {
	switch format {
	case formatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(rep)
	case formatYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(rep); err != nil {
			return err
		}
		return enc.Close()
	}

	fmt.Fprintf(w, "%s\n", rep.Source)
	fmt.Fprintf(w, "  store:    %s\n", rep.Store)
	fmt.Fprintf(w, "  records:  %d (inserted %d, ignored %d)\n", rep.Records, rep.Inserted, rep.Ignored)
	fmt.Fprintf(w, "  skipped:  %d\n", rep.Skipped)
	for _, b := range rep.BadRows {
		fmt.Fprintf(w, "    row %d: %s: %s\n", b.Row, b.Reason, b.Error)
	}
	return nil
}
