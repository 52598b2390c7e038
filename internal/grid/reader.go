package grid

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"
)

var (
	// ErrUnreadable wraps any failure to turn uploaded bytes into a Grid.
	ErrUnreadable = errors.New("unreadable spreadsheet")
	// ErrUnsupportedFormat is returned for extensions no reader handles.
	ErrUnsupportedFormat = errors.New("unsupported spreadsheet format")
)

// Format names a concrete spreadsheet encoding.
type Format string

const (
	FormatXLSX Format = "xlsx"
	FormatXLS  Format = "xls"
	FormatCSV  Format = "csv"
)

// DetectFormat maps a file name to the reader that handles it.
func DetectFormat(name string) (Format, error) {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".xlsx", ".xlsm", ".xltx", ".xltm":
		return FormatXLSX, nil
	case ".xls":
		return FormatXLS, nil
	case ".csv":
		return FormatCSV, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnsupportedFormat, filepath.Ext(name))
	}
}

// Read decodes the first worksheet of data into a Grid, choosing the
// reader from the file name's extension. Every failure is wrapped with
// ErrUnreadable.
func Read(name string, data []byte) (*Grid, error) {
	format, err := DetectFormat(name)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrUnreadable, err)
	}

	var g *Grid
	switch format {
	case FormatXLSX:
		g, err = readXLSX(data)
	case FormatXLS:
		g, err = readXLS(data)
	case FormatCSV:
		g, err = readCSV(data)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrUnreadable, format, err)
	}
	return g, nil
}
