package core

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// DateLayout is the wire and storage format for calendar dates.
const DateLayout = "2006-01-02"

type (
	// Date is a calendar day, always held at midnight UTC.
	Date struct {
		time.Time
	}

	// Store is a retail outlet, identified by its unique, case-sensitive name.
	Store struct {
		ID        int64
		Name      string
		CreatedAt time.Time
		UpdatedAt time.Time
	}

	// Taking is one day's takings for one store. (Store, Date) is unique.
	Taking struct {
		ID        int64
		StoreID   int64
		Store     string
		Date      Date
		Amount    decimal.Decimal
		CreatedAt time.Time
		UpdatedAt time.Time
	}

	// Upload records a retained raw spreadsheet.
	Upload struct {
		ID           int64
		ObjectKey    string
		OriginalName string
		Size         int64
		UploadedAt   time.Time
	}
)

var (
	ErrNoFile        = errors.New("no file uploaded")
	ErrStoreRequired = errors.New("store name is required")
	ErrDateRequired  = errors.New("date is required")
	ErrInvalidDate   = errors.New("invalid date")
	ErrEmptyStore    = errors.New("empty store name")
	ErrNotFound      = errors.New("not found")

	// ErrStoreNotFound is an ErrNotFound for the store itself rather than
	// one of its takings.
	ErrStoreNotFound = fmt.Errorf("store %w", ErrNotFound)
)

// NewDate creates a Date from year, month, day.
func NewDate(year, month, day int) Date {
	return Date{Time: time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)}
}

// DateOf truncates t to its calendar day.
func DateOf(t time.Time) Date {
	y, m, d := t.Date()
	return NewDate(y, int(m), d)
}

// ParseDate parses a strict YYYY-MM-DD string.
func ParseDate(s string) (Date, error) {
	t, err := time.Parse(DateLayout, strings.TrimSpace(s))
	if err != nil {
		return Date{}, fmt.Errorf("%w %q: use YYYY-MM-DD", ErrInvalidDate, s)
	}
	return DateOf(t), nil
}

func (d Date) String() string {
	return d.Format(DateLayout)
}

// MarshalJSON renders the date as "YYYY-MM-DD".
func (d Date) MarshalJSON() ([]byte, error) {
	return []byte(`"` + d.String() + `"`), nil
}

// UnmarshalJSON accepts "YYYY-MM-DD".
func (d *Date) UnmarshalJSON(b []byte) error {
	s, err := strconv.Unquote(string(b))
	if err != nil {
		return fmt.Errorf("%w: %s", ErrInvalidDate, b)
	}
	parsed, err := ParseDate(s)
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

// Validate checks the fields a taking needs before it can be stored.
func (t Taking) Validate() error {
	if strings.TrimSpace(t.Store) == "" {
		return ErrEmptyStore
	}
	if t.Date.IsZero() {
		return errors.New("date cannot be zero")
	}
	if _, err := AmountToCents(t.Amount); err != nil {
		return err
	}
	return nil
}
