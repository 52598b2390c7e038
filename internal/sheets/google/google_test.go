package google

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	goption "google.golang.org/api/option"
	gsheet "google.golang.org/api/sheets/v4"

	"takings/internal/core"
	"takings/internal/grid"
	ports "takings/internal/sheets"
)

func newTestClient(t *testing.T, h http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)

	svc, err := gsheet.NewService(context.Background(),
		goption.WithEndpoint(srv.URL+"/"),
		goption.WithHTTPClient(srv.Client()))
	if err != nil {
		t.Fatalf("NewService: %v", err)
	}
	return New(svc, "sid", "")
}

func TestNewFromEnv_MissingSpreadsheetID(t *testing.T) {
	t.Setenv("GOOGLE_SPREADSHEET_ID", "")

	_, err := NewFromEnv(context.Background())
	if err == nil || err.Error() != "missing GOOGLE_SPREADSHEET_ID" {
		t.Fatalf("err = %v", err)
	}
}

func TestNewFromEnv_MissingCredentials(t *testing.T) {
	t.Setenv("GOOGLE_SPREADSHEET_ID", "sid")
	t.Setenv("GOOGLE_SERVICE_ACCOUNT_JSON", "")
	t.Setenv("GOOGLE_SERVICE_ACCOUNT_FILE", "")
	t.Setenv("GOOGLE_APPLICATION_CREDENTIALS", "")

	_, err := NewFromEnv(context.Background())
	if err == nil || !strings.Contains(err.Error(), "missing service account credentials") {
		t.Fatalf("err = %v", err)
	}
}

func TestCredentialsFromFile(t *testing.T) {
	path := t.TempDir() + "/sa.json"
	if err := os.WriteFile(path, []byte(`{"type":"service_account"}`), 0600); err != nil {
		t.Fatal(err)
	}
	t.Setenv("GOOGLE_SERVICE_ACCOUNT_JSON", "")
	t.Setenv("GOOGLE_SERVICE_ACCOUNT_FILE", "")
	t.Setenv("GOOGLE_APPLICATION_CREDENTIALS", path)

	b, err := credentialsFromEnv(context.Background())
	if err != nil {
		t.Fatalf("credentialsFromEnv: %v", err)
	}
	if !strings.Contains(string(b), "service_account") {
		t.Errorf("credentials = %s", b)
	}
}

func TestNew_DefaultSheetName(t *testing.T) {
	if c := New(nil, "sid", "  "); c.sheetName != DefaultSheetName {
		t.Errorf("sheetName = %q, want %q", c.sheetName, DefaultSheetName)
	}
}

func TestClient_NilService(t *testing.T) {
	c := &Client{spreadsheetID: "sid", sheetName: "Takings"}
	if err := c.AppendTakings(context.Background(), []core.Taking{{}}); err == nil {
		t.Error("AppendTakings with nil service should fail")
	}
	if _, err := c.ReadGrid(context.Background(), "", "A1:C10"); err == nil {
		t.Error("ReadGrid with nil service should fail")
	}
}

func TestAppendTakings(t *testing.T) {
	var (
		gotPath  string
		gotInput string
		gotBody  gsheet.ValueRange
	)
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotInput = r.URL.Query().Get("valueInputOption")
		if err := json.NewDecoder(r.Body).Decode(&gotBody); err != nil {
			t.Errorf("decode body: %v", err)
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"spreadsheetId":"sid","updates":{"updatedRows":2}}`))
	})

	err := c.AppendTakings(context.Background(), []core.Taking{
		{Store: "Main Street", Date: core.NewDate(2024, 2, 5), Amount: decimal.RequireFromString("123.45")},
		{Store: "Main Street", Date: core.NewDate(2024, 2, 6), Amount: decimal.NewFromInt(10)},
	})
	if err != nil {
		t.Fatalf("AppendTakings: %v", err)
	}

	if !strings.HasPrefix(gotPath, "/v4/spreadsheets/sid/values/Takings!A:C") || !strings.HasSuffix(gotPath, ":append") {
		t.Errorf("path = %q", gotPath)
	}
	if gotInput != "USER_ENTERED" {
		t.Errorf("valueInputOption = %q", gotInput)
	}
	if len(gotBody.Values) != 2 {
		t.Fatalf("rows = %d, want 2", len(gotBody.Values))
	}
	row := gotBody.Values[1]
	if row[0] != "2024-02-06" || row[1] != "Main Street" || row[2] != "10.00" {
		t.Errorf("row = %v", row)
	}
}

func TestAppendTakings_Empty(t *testing.T) {
	called := false
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) { called = true })
	if err := c.AppendTakings(context.Background(), nil); err != nil {
		t.Fatalf("AppendTakings: %v", err)
	}
	if called {
		t.Error("no request expected for an empty batch")
	}
}

func TestReadGrid(t *testing.T) {
	var gotRender string
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotRender = r.URL.Query().Get("valueRenderOption")
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{
			"range": "Feb!A1:C11",
			"majorDimension": "ROWS",
			"values": [[], [], [], [], ["", "", "Main Street"], [], [], [], [], [],
				["Monday, 05 February 2024", "", 123.45]]
		}`))
	})

	g, err := c.ReadGrid(context.Background(), "other", "Feb!A1:C11")
	if err != nil {
		t.Fatalf("ReadGrid: %v", err)
	}
	if gotRender != "UNFORMATTED_VALUE" {
		t.Errorf("valueRenderOption = %q", gotRender)
	}
	if g.Rows() != 11 {
		t.Fatalf("rows = %d, want 11", g.Rows())
	}
	if c := g.At(4, 2); c.Kind != grid.Text || c.Text != "Main Street" {
		t.Errorf("store cell = %+v", c)
	}
	if c := g.At(10, 2); c.Kind != grid.Number || c.Num != 123.45 {
		t.Errorf("amount cell = %+v", c)
	}
	if c := g.At(10, 1); c.Kind != grid.Empty {
		t.Errorf("blank string kind = %v, want empty", c.Kind)
	}
}

func TestReadGridClassifiesAPIErrors(t *testing.T) {
	tests := []struct {
		name       string
		status     int
		unreadable bool
	}{
		{"not found", http.StatusNotFound, true},
		{"bad range", http.StatusBadRequest, true},
		{"forbidden", http.StatusForbidden, true},
		{"rate limited", http.StatusTooManyRequests, false},
		{"server error", http.StatusInternalServerError, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(tt.status)
				w.Write([]byte(`{"error":{"code":` + strconv.Itoa(tt.status) + `,"message":"nope"}}`))
			})
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()

			_, err := c.ReadGrid(ctx, "sid", "Feb!A1:C40")
			if err == nil {
				t.Fatal("ReadGrid: want error")
			}
			if got := errors.Is(err, ports.ErrSheetUnreadable); got != tt.unreadable {
				t.Fatalf("errors.Is(err, ErrSheetUnreadable) = %v, want %v (err = %v)", got, tt.unreadable, err)
			}
		})
	}
}

func TestToCell(t *testing.T) {
	tests := []struct {
		in   interface{}
		want grid.Cell
	}{
		{nil, grid.Cell{}},
		{"  ", grid.Cell{}},
		{"Weekly", grid.TextCell("Weekly")},
		{float64(7), grid.NumberCell(7)},
		{true, grid.TextCell("TRUE")},
	}
	for _, tt := range tests {
		if got := toCell(tt.in); got != tt.want {
			t.Errorf("toCell(%v) = %+v, want %+v", tt.in, got, tt.want)
		}
	}
}
