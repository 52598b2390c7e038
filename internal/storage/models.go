package storage

import "database/sql"

// Timestamps are stored as RFC 3339 text in UTC.

type Store struct {
	ID        int64
	Name      string
	CreatedAt string
	UpdatedAt string
}

type DailyTaking struct {
	ID          int64
	StoreID     int64
	UploadID    sql.NullInt64
	Date        string
	AmountCents int64
	CreatedAt   string
	UpdatedAt   string
}

type Upload struct {
	ID           int64
	ObjectKey    string
	OriginalName string
	SizeBytes    int64
	UploadedAt   string
}

// DailyTakingRow is a taking joined with its store name.
type DailyTakingRow struct {
	DailyTaking
	StoreName string
}
