package storage

import (
	"context"
	"database/sql"
)

const getStoreByName = `-- name: GetStoreByName :one
SELECT id, name, created_at, updated_at FROM stores WHERE name = ?
`

func (q *Queries) GetStoreByName(ctx context.Context, name string) (Store, error) {
	row := q.db.QueryRowContext(ctx, getStoreByName, name)
	var i Store
	err := row.Scan(&i.ID, &i.Name, &i.CreatedAt, &i.UpdatedAt)
	return i, err
}

const createStore = `-- name: CreateStore :one
INSERT INTO stores (name, created_at, updated_at) VALUES (?, ?, ?)
RETURNING id, name, created_at, updated_at
`

type CreateStoreParams struct {
	Name      string
	CreatedAt string
	UpdatedAt string
}

func (q *Queries) CreateStore(ctx context.Context, arg CreateStoreParams) (Store, error) {
	row := q.db.QueryRowContext(ctx, createStore, arg.Name, arg.CreatedAt, arg.UpdatedAt)
	var i Store
	err := row.Scan(&i.ID, &i.Name, &i.CreatedAt, &i.UpdatedAt)
	return i, err
}

const listStores = `-- name: ListStores :many
SELECT id, name, created_at, updated_at FROM stores ORDER BY id
`

func (q *Queries) ListStores(ctx context.Context) ([]Store, error) {
	rows, err := q.db.QueryContext(ctx, listStores)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []Store
	for rows.Next() {
		var i Store
		if err := rows.Scan(&i.ID, &i.Name, &i.CreatedAt, &i.UpdatedAt); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Close(); err != nil {
		return nil, err
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

const insertTakingIgnoreConflict = `-- name: InsertTakingIgnoreConflict :execrows
INSERT INTO daily_takings (store_id, upload_id, date, amount_cents, created_at, updated_at)
VALUES (?, ?, ?, ?, ?, ?)
ON CONFLICT (store_id, date) DO NOTHING
`

type InsertTakingParams struct {
	StoreID     int64
	UploadID    sql.NullInt64
	Date        string
	AmountCents int64
	CreatedAt   string
	UpdatedAt   string
}

// InsertTakingIgnoreConflict returns 0 rows affected when (store_id, date)
// already exists.
func (q *Queries) InsertTakingIgnoreConflict(ctx context.Context, arg InsertTakingParams) (int64, error) {
	result, err := q.db.ExecContext(ctx, insertTakingIgnoreConflict,
		arg.StoreID,
		arg.UploadID,
		arg.Date,
		arg.AmountCents,
		arg.CreatedAt,
		arg.UpdatedAt,
	)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

const getTaking = `-- name: GetTaking :one
SELECT t.id, t.store_id, t.upload_id, t.date, t.amount_cents, t.created_at, t.updated_at, s.name
FROM daily_takings t
JOIN stores s ON s.id = t.store_id
WHERE s.name = ? AND t.date = ?
`

type GetTakingParams struct {
	StoreName string
	Date      string
}

func (q *Queries) GetTaking(ctx context.Context, arg GetTakingParams) (DailyTakingRow, error) {
	row := q.db.QueryRowContext(ctx, getTaking, arg.StoreName, arg.Date)
	var i DailyTakingRow
	err := row.Scan(
		&i.ID,
		&i.StoreID,
		&i.UploadID,
		&i.Date,
		&i.AmountCents,
		&i.CreatedAt,
		&i.UpdatedAt,
		&i.StoreName,
	)
	return i, err
}

const listTakingsByDate = `-- name: ListTakingsByDate :many
SELECT t.id, t.store_id, t.upload_id, t.date, t.amount_cents, t.created_at, t.updated_at, s.name
FROM daily_takings t
JOIN stores s ON s.id = t.store_id
WHERE t.date = ?
ORDER BY s.name
`

func (q *Queries) ListTakingsByDate(ctx context.Context, date string) ([]DailyTakingRow, error) {
	rows, err := q.db.QueryContext(ctx, listTakingsByDate, date)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []DailyTakingRow
	for rows.Next() {
		var i DailyTakingRow
		if err := rows.Scan(
			&i.ID,
			&i.StoreID,
			&i.UploadID,
			&i.Date,
			&i.AmountCents,
			&i.CreatedAt,
			&i.UpdatedAt,
			&i.StoreName,
		); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Close(); err != nil {
		return nil, err
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

const createUpload = `-- name: CreateUpload :one
INSERT INTO uploads (object_key, original_name, size_bytes, uploaded_at)
VALUES (?, ?, ?, ?)
RETURNING id
`

type CreateUploadParams struct {
	ObjectKey    string
	OriginalName string
	SizeBytes    int64
	UploadedAt   string
}

func (q *Queries) CreateUpload(ctx context.Context, arg CreateUploadParams) (int64, error) {
	row := q.db.QueryRowContext(ctx, createUpload,
		arg.ObjectKey,
		arg.OriginalName,
		arg.SizeBytes,
		arg.UploadedAt,
	)
	var id int64
	err := row.Scan(&id)
	return id, err
}

const listUploads = `-- name: ListUploads :many
SELECT id, object_key, original_name, size_bytes, uploaded_at
FROM uploads
ORDER BY id DESC
LIMIT ?
`

func (q *Queries) ListUploads(ctx context.Context, limit int64) ([]Upload, error) {
	rows, err := q.db.QueryContext(ctx, listUploads, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []Upload
	for rows.Next() {
		var i Upload
		if err := rows.Scan(
			&i.ID,
			&i.ObjectKey,
			&i.OriginalName,
			&i.SizeBytes,
			&i.UploadedAt,
		); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Close(); err != nil {
		return nil, err
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}
