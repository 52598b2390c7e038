package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"takings/internal/core"
)

// uploadField is the multipart field carrying the spreadsheet.
const uploadField = "file"

var errFileTooLarge = errors.New("file too large")

// TakingsQuery is a parsed GET /upload/ query.
type TakingsQuery struct {
	Store     string
	AllStores bool
	Date      core.Date
}

// ParseTakingsQuery validates the date first, then the store, so a request
// without a date is always reported as such.
func ParseTakingsQuery(q url.Values) (TakingsQuery, error) {
	rawDate := q.Get("date")
	if rawDate == "" {
		return TakingsQuery{}, core.ErrDateRequired
	}
	date, err := core.ParseDate(rawDate)
	if err != nil {
		return TakingsQuery{}, err
	}

	store := q.Get("store")
	if strings.EqualFold(store, "all") {
		return TakingsQuery{AllStores: true, Date: date}, nil
	}
	if store == "" {
		return TakingsQuery{}, core.ErrStoreRequired
	}
	return TakingsQuery{Store: store, Date: date}, nil
}

// ReadUploadedFile returns the name and content of the "file" part. A
// missing part or a body that is not multipart yields core.ErrNoFile.
func ReadUploadedFile(w http.ResponseWriter, r *http.Request, maxBytes int64) (string, []byte, error) {
	if maxBytes > 0 {
		r.Body = http.MaxBytesReader(w, r.Body, maxBytes)
	}

	if err := r.ParseMultipartForm(maxMemory(maxBytes)); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return "", nil, errFileTooLarge
		}
		return "", nil, core.ErrNoFile
	}
	defer r.MultipartForm.RemoveAll()

	file, header, err := r.FormFile(uploadField)
	if err != nil {
		return "", nil, core.ErrNoFile
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		return "", nil, fmt.Errorf("read upload: %w", err)
	}
	if len(data) == 0 {
		return "", nil, core.ErrNoFile
	}
	return header.Filename, data, nil
}

func maxMemory(maxBytes int64) int64 {
	const defaultMemory = 32 << 20
	if maxBytes > 0 && maxBytes < defaultMemory {
		return maxBytes
	}
	return defaultMemory
}

// SheetImportRequest is the body of POST /import/sheet.
type SheetImportRequest struct {
	SpreadsheetID string `json:"spreadsheet_id"`
	Range         string `json:"range"`
}

// DecodeSheetImportRequest reads a small JSON body; unknown fields are
// rejected.
func DecodeSheetImportRequest(r *http.Request) (SheetImportRequest, error) {
	var req SheetImportRequest
	dec := json.NewDecoder(io.LimitReader(r.Body, 64<<10))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&req); err != nil {
		return SheetImportRequest{}, fmt.Errorf("invalid request body: %w", err)
	}
	req.SpreadsheetID = sanitizeInput(req.SpreadsheetID)
	req.Range = sanitizeInput(req.Range)
	if req.SpreadsheetID == "" {
		return SheetImportRequest{}, errors.New("spreadsheet_id is required")
	}
	return req, nil
}
