package google

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"strings"

	"takings/internal/core"
	"takings/internal/grid"
	ports "takings/internal/sheets"

	"google.golang.org/api/googleapi"
	goption "google.golang.org/api/option"
	gsheet "google.golang.org/api/sheets/v4"
)

// DefaultSheetName is the tab takings are mirrored to.
const DefaultSheetName = "Takings"

type Client struct {
	svc           *gsheet.Service
	spreadsheetID string
	sheetName     string
}

var (
	_ ports.TakingsWriter = (*Client)(nil)
	_ ports.GridReader    = (*Client)(nil)
)

// NewFromEnv creates a Sheets client from environment variables.
// Required: GOOGLE_SPREADSHEET_ID.
// Optional: GOOGLE_SHEET_NAME (default "Takings").
// Credentials: GOOGLE_SERVICE_ACCOUNT_JSON, GOOGLE_SERVICE_ACCOUNT_FILE or
// GOOGLE_APPLICATION_CREDENTIALS.
func NewFromEnv(ctx context.Context) (*Client, error) {
	return NewWithCredentials(ctx,
		strings.TrimSpace(os.Getenv("GOOGLE_SPREADSHEET_ID")),
		os.Getenv("GOOGLE_SHEET_NAME"))
}

// NewWithCredentials builds a client for spreadsheetID using the service
// account credentials found in the environment.
func NewWithCredentials(ctx context.Context, spreadsheetID, sheetName string) (*Client, error) {
	if spreadsheetID == "" {
		return nil, errors.New("missing GOOGLE_SPREADSHEET_ID")
	}

	creds, err := credentialsFromEnv(ctx)
	if err != nil {
		return nil, err
	}
	svc, err := gsheet.NewService(ctx,
		goption.WithCredentialsJSON(creds),
		goption.WithScopes(gsheet.SpreadsheetsScope))
	if err != nil {
		return nil, fmt.Errorf("create sheets service: %w", err)
	}

	return New(svc, spreadsheetID, sheetName), nil
}

// New wraps an existing service. An empty sheetName selects
// DefaultSheetName.
func New(svc *gsheet.Service, spreadsheetID, sheetName string) *Client {
	sheetName = strings.TrimSpace(sheetName)
	if sheetName == "" {
		sheetName = DefaultSheetName
	}
	return &Client{svc: svc, spreadsheetID: spreadsheetID, sheetName: sheetName}
}

func credentialsFromEnv(ctx context.Context) ([]byte, error) {
	inline := strings.TrimSpace(os.Getenv("GOOGLE_SERVICE_ACCOUNT_JSON"))
	file := strings.TrimSpace(os.Getenv("GOOGLE_SERVICE_ACCOUNT_FILE"))
	if inline == "" && file == "" {
		file = strings.TrimSpace(os.Getenv("GOOGLE_APPLICATION_CREDENTIALS"))
	}

	switch {
	case inline != "":
		slog.DebugContext(ctx, "Using inline service account credentials")
		return []byte(inline), nil
	case file != "":
		slog.DebugContext(ctx, "Reading service account credentials", "path", file)
		b, err := os.ReadFile(file)
		if err != nil {
			return nil, fmt.Errorf("read service account file: %w", err)
		}
		return b, nil
	default:
		return nil, errors.New("missing service account credentials (set GOOGLE_SERVICE_ACCOUNT_JSON, GOOGLE_SERVICE_ACCOUNT_FILE, or GOOGLE_APPLICATION_CREDENTIALS)")
	}
}

// AppendTakings adds one row per taking: date, store, amount.
func (c *Client) AppendTakings(ctx context.Context, takings []core.Taking) error {
	if c.svc == nil {
		return errors.New("sheets service not initialized")
	}
	if len(takings) == 0 {
		return nil
	}

	rng := fmt.Sprintf("%s!A:C", c.sheetName)
	vr := &gsheet.ValueRange{Values: takingsToValues(takings)}
	_, err := c.svc.Spreadsheets.Values.Append(c.spreadsheetID, rng, vr).
		ValueInputOption("USER_ENTERED").
		InsertDataOption("INSERT_ROWS").
		Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("append takings to %s: %w", c.sheetName, err)
	}

	slog.InfoContext(ctx, "Takings mirrored to Google Sheets",
		"sheet", c.sheetName,
		"rows", len(takings))
	return nil
}

// ReadGrid loads readRange of a spreadsheet as raw values. Numbers arrive
// unformatted; dates arrive as their displayed text.
func (c *Client) ReadGrid(ctx context.Context, spreadsheetID, readRange string) (*grid.Grid, error) {
	if c.svc == nil {
		return nil, errors.New("sheets service not initialized")
	}
	if spreadsheetID == "" {
		spreadsheetID = c.spreadsheetID
	}

	resp, err := c.svc.Spreadsheets.Values.Get(spreadsheetID, readRange).
		ValueRenderOption("UNFORMATTED_VALUE").
		DateTimeRenderOption("FORMATTED_STRING").
		Context(ctx).Do()
	if err != nil {
		if isClientError(err) {
			return nil, fmt.Errorf("read %s: %w: %w", readRange, ports.ErrSheetUnreadable, err)
		}
		return nil, fmt.Errorf("read %s: %w", readRange, err)
	}
	return valuesToGrid(resp.Values), nil
}

// isClientError reports a 4xx answer from the API other than timeouts and
// rate limiting.
func isClientError(err error) bool {
	var apiErr *googleapi.Error
	if !errors.As(err, &apiErr) {
		return false
	}
	switch apiErr.Code {
	case http.StatusRequestTimeout, http.StatusTooManyRequests:
		return false
	}
	return apiErr.Code >= 400 && apiErr.Code < 500
}
