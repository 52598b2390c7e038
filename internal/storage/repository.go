package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"takings/internal/core"

	_ "modernc.org/sqlite"
)

const timeLayout = time.RFC3339Nano

// ImportSummary reports what one SaveImport call changed.
type ImportSummary struct {
	UploadID int64
	Store    core.Store
	Inserted int
	// Ignored counts records whose (store, date) already existed, including
	// repeats within the same batch.
	Ignored int
	// Dates lists the days newly inserted, in sheet order.
	Dates []core.Date
}

type SQLiteRepository struct {
	db      *sql.DB
	queries *Queries
	now     func() time.Time
}

// DSN builds the modernc connection string used for every connection:
// writers wait on a busy database instead of failing, foreign keys are
// enforced, and transactions take the write lock up front.
func DSN(dbPath string) string {
	return "file:" + dbPath +
		"?_pragma=busy_timeout(5000)" +
		"&_pragma=foreign_keys(1)" +
		"&_pragma=journal_mode(WAL)" +
		"&_txlock=immediate"
}

func NewSQLiteRepository(dbPath string) (*SQLiteRepository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	dsn := DSN(dbPath)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := RunMigrations(dsn); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLiteRepository{
		db:      db,
		queries: New(db),
		now:     func() time.Time { return time.Now().UTC() },
	}, nil
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// Ping reports whether the database is reachable.
func (r *SQLiteRepository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

// SaveImport persists one extracted sheet atomically: the upload record,
// the store (created on first sight) and every taking. A taking whose
// (store, date) is already stored is left untouched and counted as
// ignored. Any failure rolls the whole import back. upload may be nil when
// no raw file was retained.
func (r *SQLiteRepository) SaveImport(ctx context.Context, upload *core.Upload, storeName string, records []core.Taking) (ImportSummary, error) {
	if storeName == "" {
		return ImportSummary{}, core.ErrEmptyStore
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return ImportSummary{}, fmt.Errorf("begin import: %w", err)
	}
	defer tx.Rollback()

	q := r.queries.WithTx(tx)
	now := r.now().Format(timeLayout)
	var summary ImportSummary

	var uploadID sql.NullInt64
	if upload != nil {
		id, err := q.CreateUpload(ctx, CreateUploadParams{
			ObjectKey:    upload.ObjectKey,
			OriginalName: upload.OriginalName,
			SizeBytes:    upload.Size,
			UploadedAt:   now,
		})
		if err != nil {
			return ImportSummary{}, fmt.Errorf("record upload: %w", err)
		}
		uploadID = sql.NullInt64{Int64: id, Valid: true}
		summary.UploadID = id
	}

	store, err := getOrCreateStore(ctx, q, storeName, now)
	if err != nil {
		return ImportSummary{}, err
	}
	summary.Store = store

	for _, rec := range records {
		cents, err := core.AmountToCents(rec.Amount)
		if err != nil {
			return ImportSummary{}, fmt.Errorf("taking %s: %w", rec.Date, err)
		}
		n, err := q.InsertTakingIgnoreConflict(ctx, InsertTakingParams{
			StoreID:     store.ID,
			UploadID:    uploadID,
			Date:        rec.Date.String(),
			AmountCents: cents,
			CreatedAt:   now,
			UpdatedAt:   now,
		})
		if err != nil {
			return ImportSummary{}, fmt.Errorf("insert taking %s: %w", rec.Date, err)
		}
		if n == 0 {
			summary.Ignored++
			continue
		}
		summary.Inserted++
		summary.Dates = append(summary.Dates, rec.Date)
	}

	if err := tx.Commit(); err != nil {
		return ImportSummary{}, fmt.Errorf("commit import: %w", err)
	}

	slog.InfoContext(ctx, "Takings saved to SQLite",
		"store", store.Name,
		"store_id", store.ID,
		"upload_id", summary.UploadID,
		"inserted", summary.Inserted,
		"ignored", summary.Ignored)

	return summary, nil
}

// GetOrCreateStore returns the store named name, creating it if needed.
func (r *SQLiteRepository) GetOrCreateStore(ctx context.Context, name string) (core.Store, error) {
	if name == "" {
		return core.Store{}, core.ErrEmptyStore
	}
	return getOrCreateStore(ctx, r.queries, name, r.now().Format(timeLayout))
}

func getOrCreateStore(ctx context.Context, q *Queries, name, now string) (core.Store, error) {
	s, err := q.GetStoreByName(ctx, name)
	if errors.Is(err, sql.ErrNoRows) {
		s, err = q.CreateStore(ctx, CreateStoreParams{Name: name, CreatedAt: now, UpdatedAt: now})
		if err != nil {
			return core.Store{}, fmt.Errorf("create store %q: %w", name, err)
		}
	} else if err != nil {
		return core.Store{}, fmt.Errorf("get store %q: %w", name, err)
	}
	return toStore(s), nil
}

// GetTaking returns the taking for storeName on date. An unknown store
// wraps core.ErrStoreNotFound; a known store without that day wraps
// core.ErrNotFound.
func (r *SQLiteRepository) GetTaking(ctx context.Context, storeName string, date core.Date) (core.Taking, error) {
	if _, err := r.queries.GetStoreByName(ctx, storeName); errors.Is(err, sql.ErrNoRows) {
		return core.Taking{}, fmt.Errorf("%q: %w", storeName, core.ErrStoreNotFound)
	} else if err != nil {
		return core.Taking{}, fmt.Errorf("get store: %w", err)
	}

	row, err := r.queries.GetTaking(ctx, GetTakingParams{StoreName: storeName, Date: date.String()})
	if errors.Is(err, sql.ErrNoRows) {
		return core.Taking{}, fmt.Errorf("taking for %q on %s: %w", storeName, date, core.ErrNotFound)
	}
	if err != nil {
		return core.Taking{}, fmt.Errorf("get taking: %w", err)
	}
	return toTaking(row)
}

// ListTakingsByDate returns every store's taking for date, ordered by store
// name. The result is empty, not nil, when nothing matches.
func (r *SQLiteRepository) ListTakingsByDate(ctx context.Context, date core.Date) ([]core.Taking, error) {
	rows, err := r.queries.ListTakingsByDate(ctx, date.String())
	if err != nil {
		return nil, fmt.Errorf("list takings by date: %w", err)
	}

	takings := make([]core.Taking, 0, len(rows))
	for _, row := range rows {
		t, err := toTaking(row)
		if err != nil {
			return nil, err
		}
		takings = append(takings, t)
	}
	return takings, nil
}

// ListStores returns all stores in creation order.
func (r *SQLiteRepository) ListStores(ctx context.Context) ([]core.Store, error) {
	rows, err := r.queries.ListStores(ctx)
	if err != nil {
		return nil, fmt.Errorf("list stores: %w", err)
	}

	stores := make([]core.Store, len(rows))
	for i, s := range rows {
		stores[i] = toStore(s)
	}
	return stores, nil
}

// ListUploads returns the most recent uploads first.
func (r *SQLiteRepository) ListUploads(ctx context.Context, limit int) ([]core.Upload, error) {
	rows, err := r.queries.ListUploads(ctx, int64(limit))
	if err != nil {
		return nil, fmt.Errorf("list uploads: %w", err)
	}

	uploads := make([]core.Upload, len(rows))
	for i, u := range rows {
		uploads[i] = core.Upload{
			ID:           u.ID,
			ObjectKey:    u.ObjectKey,
			OriginalName: u.OriginalName,
			Size:         u.SizeBytes,
			UploadedAt:   parseTime(u.UploadedAt),
		}
	}
	return uploads, nil
}

func toStore(s Store) core.Store {
	return core.Store{
		ID:        s.ID,
		Name:      s.Name,
		CreatedAt: parseTime(s.CreatedAt),
		UpdatedAt: parseTime(s.UpdatedAt),
	}
}

func toTaking(row DailyTakingRow) (core.Taking, error) {
	date, err := core.ParseDate(row.Date)
	if err != nil {
		return core.Taking{}, fmt.Errorf("taking %d: %w", row.ID, err)
	}
	return core.Taking{
		ID:        row.ID,
		StoreID:   row.StoreID,
		Store:     row.StoreName,
		Date:      date,
		Amount:    core.CentsToAmount(row.AmountCents),
		CreatedAt: parseTime(row.CreatedAt),
		UpdatedAt: parseTime(row.UpdatedAt),
	}, nil
}

// parseTime tolerates malformed timestamps; they read back as zero.
func parseTime(s string) time.Time {
	t, err := time.Parse(timeLayout, s)
	if err != nil {
		return time.Time{}
	}
	return t
}
