// Package backend assembles the pluggable infrastructure behind the import
// service: where raw uploads are retained and where takings are mirrored.
package backend

import (
	"context"

	"takings/internal/blob"
	"takings/internal/sheets"
)

// CleanupFunc releases resources held by a backend.
type CleanupFunc func() error

// BlobResult is a ready blob store plus its cleanup.
type BlobResult struct {
	Store   blob.Store
	Cleanup CleanupFunc
}

// SheetsResult is the mirror destination. Reader is nil when hosted sheets
// cannot be read, which disables sheet imports.
type SheetsResult struct {
	Writer  sheets.TakingsWriter
	Reader  sheets.GridReader
	Remote  bool
	Cleanup CleanupFunc
}

// Factory creates backends based on configuration
type Factory interface {
	CreateBlobStore(ctx context.Context, config Config) (*BlobResult, error)
	CreateSheets(ctx context.Context, config Config) (*SheetsResult, error)
}

// Config holds configuration for backend creation
type Config struct {
	BlobType BlobType

	// local
	UploadDir string

	// gcs
	GCSBucket string

	// Google Sheets; empty spreadsheet ID selects the in-memory mirror.
	GoogleSpreadsheetID string
	GoogleSheetName     string
}

// BlobType selects where raw uploads are kept.
type BlobType string

const (
	LocalBlob BlobType = "local"
	GCSBlob   BlobType = "gcs"
)

// String implements fmt.Stringer
func (bt BlobType) String() string {
	return string(bt)
}

// IsValid returns true if the blob type is known
func (bt BlobType) IsValid() bool {
	switch bt {
	case LocalBlob, GCSBlob:
		return true
	default:
		return false
	}
}
