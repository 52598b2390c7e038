// Package blob retains raw uploaded spreadsheets.
package blob

import (
	"context"
	"errors"
	"io"
	"path"
	"strings"
	"time"
	"unicode"

	"github.com/google/uuid"
)

// ErrNotFound is returned by Get for unknown keys.
var ErrNotFound = errors.New("blob not found")

// Store keeps uploaded files by key.
type Store interface {
	Put(ctx context.Context, key string, r io.Reader, size int64) error
	Get(ctx context.Context, key string) (io.ReadCloser, error)
}

// keyPrefix groups retained spreadsheets under one namespace.
const keyPrefix = "excel_uploads"

// NewKey returns a unique key for an upload named filename received at t:
// excel_uploads/YYYY/MM/DD/<uuid>-<name>.
func NewKey(t time.Time, filename string) string {
	return path.Join(keyPrefix, t.UTC().Format("2006/01/02"), uuid.NewString()+"-"+SanitizeName(filename))
}

// SanitizeName reduces a client supplied filename to a safe base name.
func SanitizeName(name string) string {
	name = strings.ReplaceAll(name, "\\", "/")
	name = path.Base(name)
	if name == "." || name == "/" || name == ".." {
		name = ""
	}

	var b strings.Builder
	for _, r := range name {
		switch {
		case r < unicode.MaxASCII && (unicode.IsLetter(r) || unicode.IsDigit(r)):
			b.WriteRune(r)
		case r == '.' || r == '-' || r == '_':
			b.WriteRune(r)
		default:
			b.WriteRune('_')
		}
	}
	out := strings.TrimLeft(b.String(), ".")
	if out == "" {
		return "upload"
	}
	if len(out) > 100 {
		out = out[len(out)-100:]
	}
	return out
}
