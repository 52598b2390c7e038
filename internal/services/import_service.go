package services

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"takings/internal/amqp"
	"takings/internal/blob"
	"takings/internal/cache"
	"takings/internal/core"
	"takings/internal/extract"
	"takings/internal/grid"
	"takings/internal/sheets"
	"takings/internal/storage"
)

// Repository is the persistence the import service needs.
type Repository interface {
	SaveImport(ctx context.Context, upload *core.Upload, storeName string, records []core.Taking) (storage.ImportSummary, error)
	GetTaking(ctx context.Context, storeName string, date core.Date) (core.Taking, error)
	ListTakingsByDate(ctx context.Context, date core.Date) ([]core.Taking, error)
	ListStores(ctx context.Context) ([]core.Store, error)
	Ping(ctx context.Context) error
}

// Publisher announces committed imports.
type Publisher interface {
	PublishTakingsImported(ctx context.Context, msg *amqp.TakingsImportedMessage) error
}

// ParseError is a spreadsheet the service could not turn into takings.
// Its message is the underlying cause.
type ParseError struct {
	Err error
}

func (e *ParseError) Error() string { return e.Err.Error() }
func (e *ParseError) Unwrap() error { return e.Err }

// ImportResult describes one completed import.
type ImportResult struct {
	StoreName string
	Records   []core.Taking
	Summary   storage.ImportSummary
	Skipped   []extract.RowOutcome
	ErrorRows int
}

const storesCacheKey = "stores"

// ErrSheetsNotConfigured is returned by ImportSheet without a sheet reader.
var ErrSheetsNotConfigured = errors.New("google sheets import is not configured")

// ImportService orchestrates spreadsheet imports across blob storage, the
// extractor, SQLite and AMQP.
type ImportService struct {
	repo      Repository
	blobs     blob.Store
	publisher Publisher
	sheets    sheets.GridReader
	extractor *extract.Extractor
	stores    *cache.Loader[[]core.Store]
	logger    *slog.Logger
	now       func() time.Time
}

type Option func(*ImportService)

// WithPublisher enables import events.
func WithPublisher(p Publisher) Option {
	return func(s *ImportService) { s.publisher = p }
}

// WithSheetReader enables imports from hosted Google Sheets.
func WithSheetReader(r sheets.GridReader) Option {
	return func(s *ImportService) { s.sheets = r }
}

// WithStoresCache replaces the default stores cache.
func WithStoresCache(c cache.Cache[[]core.Store]) Option {
	return func(s *ImportService) { s.stores = cache.NewLoader(c) }
}

func WithLogger(l *slog.Logger) Option {
	return func(s *ImportService) { s.logger = l }
}

func NewImportService(repo Repository, blobs blob.Store, opts ...Option) *ImportService {
	s := &ImportService{
		repo:   repo,
		blobs:  blobs,
		stores: cache.NewLoader[[]core.Store](cache.NewLRUCache[[]core.Store](1, 5*time.Minute)),
		logger: slog.Default(),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.extractor = extract.New(s.logger.With("component", "extract"))
	return s
}

// ImportFile retains the raw upload, extracts it and stores every record in
// one transaction. Unreadable or malformed spreadsheets return a
// *ParseError; nothing is written to the database in that case.
func (s *ImportService) ImportFile(ctx context.Context, filename string, data []byte) (ImportResult, error) {
	if len(data) == 0 {
		return ImportResult{}, core.ErrNoFile
	}

	upload := &core.Upload{
		ObjectKey:    blob.NewKey(s.now(), filename),
		OriginalName: filename,
		Size:         int64(len(data)),
	}
	if s.blobs != nil {
		if err := s.blobs.Put(ctx, upload.ObjectKey, bytes.NewReader(data), upload.Size); err != nil {
			return ImportResult{}, fmt.Errorf("retain upload: %w", err)
		}
	}

	g, err := grid.Read(filename, data)
	if err != nil {
		s.logger.WarnContext(ctx, "Unreadable spreadsheet",
			"filename", filename,
			"object_key", upload.ObjectKey,
			"error", err)
		return ImportResult{}, &ParseError{Err: err}
	}

	return s.importGrid(ctx, g, upload)
}

// ImportSheet runs the same extraction on a hosted Google Sheet.
func (s *ImportService) ImportSheet(ctx context.Context, spreadsheetID, readRange string) (ImportResult, error) {
	if s.sheets == nil {
		return ImportResult{}, ErrSheetsNotConfigured
	}
	if spreadsheetID == "" {
		return ImportResult{}, &ParseError{Err: errors.New("spreadsheet id is required")}
	}

	g, err := s.sheets.ReadGrid(ctx, spreadsheetID, readRange)
	if errors.Is(err, sheets.ErrSheetUnreadable) {
		return ImportResult{}, &ParseError{Err: err}
	}
	if err != nil {
		return ImportResult{}, fmt.Errorf("read sheet: %w", err)
	}

	upload := &core.Upload{
		ObjectKey:    "sheets://" + spreadsheetID + "/" + readRange,
		OriginalName: readRange,
	}
	return s.importGrid(ctx, g, upload)
}

func (s *ImportService) importGrid(ctx context.Context, g *grid.Grid, upload *core.Upload) (ImportResult, error) {
	res, err := s.extractor.Extract(g)
	if err != nil {
		return ImportResult{}, &ParseError{Err: err}
	}

	summary, err := s.repo.SaveImport(ctx, upload, res.StoreName, res.Records)
	if err != nil {
		return ImportResult{}, fmt.Errorf("save takings: %w", err)
	}
	s.stores.Invalidate()

	out := ImportResult{
		StoreName: res.StoreName,
		Records:   res.Records,
		Summary:   summary,
		Skipped:   res.Skipped(),
		ErrorRows: res.ErrorCount(),
	}

	s.logger.InfoContext(ctx, "Takings imported",
		"store", res.StoreName,
		"object_key", upload.ObjectKey,
		"records", len(res.Records),
		"inserted", summary.Inserted,
		"ignored", summary.Ignored,
		"error_rows", out.ErrorRows)

	// The import is committed; a lost event only delays the mirror.
	if err := s.publishImported(ctx, summary, res.StoreName); err != nil {
		s.logger.ErrorContext(ctx, "Failed to publish import event",
			"store", res.StoreName,
			"upload_id", summary.UploadID,
			"error", err)
	}

	return out, nil
}

func (s *ImportService) publishImported(ctx context.Context, summary storage.ImportSummary, storeName string) error {
	if s.publisher == nil {
		s.logger.DebugContext(ctx, "AMQP publisher not configured, skipping import event")
		return nil
	}

	dates := make([]string, len(summary.Dates))
	for i, d := range summary.Dates {
		dates[i] = d.String()
	}
	msg := amqp.NewTakingsImportedMessage(summary.UploadID, storeName, dates, summary.Inserted, summary.Ignored)
	return s.publisher.PublishTakingsImported(ctx, msg)
}

// GetTaking returns one store's takings for one day.
func (s *ImportService) GetTaking(ctx context.Context, storeName string, date core.Date) (core.Taking, error) {
	return s.repo.GetTaking(ctx, storeName, date)
}

// ListTakingsByDate returns all stores' takings for one day.
func (s *ImportService) ListTakingsByDate(ctx context.Context, date core.Date) ([]core.Taking, error) {
	return s.repo.ListTakingsByDate(ctx, date)
}

// ListStores returns every known store, served from cache between imports.
func (s *ImportService) ListStores(ctx context.Context) ([]core.Store, error) {
	return s.stores.Get(ctx, storesCacheKey, s.repo.ListStores)
}

// Ready reports whether the database answers.
func (s *ImportService) Ready(ctx context.Context) error {
	return s.repo.Ping(ctx)
}
