package backend

import (
	"context"
	"fmt"
	"log/slog"

	"takings/internal/blob"
	gsheet "takings/internal/sheets/google"
	"takings/internal/sheets/memory"
)

// DefaultFactory implements the Factory interface
type DefaultFactory struct {
	logger *slog.Logger
}

// NewFactory creates a new backend factory
func NewFactory(logger *slog.Logger) Factory {
	if logger == nil {
		logger = slog.Default()
	}
	return &DefaultFactory{
		logger: logger,
	}
}

// CreateBlobStore implements Factory.CreateBlobStore
func (f *DefaultFactory) CreateBlobStore(ctx context.Context, config Config) (*BlobResult, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	switch config.BlobType {
	case LocalBlob:
		store, err := blob.NewLocal(config.UploadDir)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize local blob store: %w", err)
		}
		f.logger.Info("Initialized local blob store", "upload_dir", config.UploadDir)
		return &BlobResult{Store: store}, nil

	case GCSBlob:
		store, err := blob.NewGCS(ctx, config.GCSBucket)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize GCS blob store: %w", err)
		}
		f.logger.Info("Initialized GCS blob store", "bucket", config.GCSBucket)
		return &BlobResult{Store: store, Cleanup: store.Close}, nil

	default:
		return nil, fmt.Errorf("unsupported blob backend: %s", config.BlobType)
	}
}

// CreateSheets implements Factory.CreateSheets. Without a spreadsheet ID
// takings are mirrored to memory, which keeps the worker runnable locally.
func (f *DefaultFactory) CreateSheets(ctx context.Context, config Config) (*SheetsResult, error) {
	if config.GoogleSpreadsheetID == "" {
		f.logger.Info("Initialized in-memory takings mirror")
		return &SheetsResult{Writer: memory.New()}, nil
	}

	cli, err := gsheet.NewWithCredentials(ctx, config.GoogleSpreadsheetID, config.GoogleSheetName)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize Google Sheets client: %w", err)
	}

	f.logger.Info("Initialized Google Sheets mirror",
		"spreadsheet_id", config.GoogleSpreadsheetID,
		"sheet", config.GoogleSheetName)

	return &SheetsResult{Writer: cli, Reader: cli, Remote: true}, nil
}
