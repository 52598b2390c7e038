package http

import (
	"encoding/json"
	"net/http"
	"time"

	"takings/internal/core"
	"takings/internal/services"
)

// JSONResponseBuilder provides a fluent API for writing JSON responses.
type JSONResponseBuilder struct {
	statusCode int
	headers    map[string]string
	body       any
}

// NewJSONResponse creates a builder with a 200 status.
func NewJSONResponse() *JSONResponseBuilder {
	return &JSONResponseBuilder{
		statusCode: http.StatusOK,
		headers:    make(map[string]string),
	}
}

func (b *JSONResponseBuilder) Status(code int) *JSONResponseBuilder {
	b.statusCode = code
	return b
}

func (b *JSONResponseBuilder) Header(name, value string) *JSONResponseBuilder {
	b.headers[name] = value
	return b
}

func (b *JSONResponseBuilder) Body(v any) *JSONResponseBuilder {
	b.body = v
	return b
}

// Detail sets the {"detail": msg} error body clients expect.
func (b *JSONResponseBuilder) Detail(msg string) *JSONResponseBuilder {
	return b.Body(detailResponse{Detail: msg})
}

// Send writes headers, status and the encoded body.
func (b *JSONResponseBuilder) Send(w http.ResponseWriter) error {
	w.Header().Set("Content-Type", "application/json")
	for k, v := range b.headers {
		w.Header().Set(k, v)
	}
	w.WriteHeader(b.statusCode)
	if b.body == nil {
		return nil
	}
	return json.NewEncoder(w).Encode(b.body)
}

type detailResponse struct {
	Detail string `json:"detail"`
}

// takingRecord is one extracted row echoed back after an upload.
type takingRecord struct {
	Date         core.Date `json:"date"`
	Store        string    `json:"store"`
	DailyTakings float64   `json:"daily_takings"`
}

type uploadResponse struct {
	StoreName        string         `json:"store_name"`
	DailyTakingsData []takingRecord `json:"daily_takings_data"`
	Message          string         `json:"message"`
}

type takingResponse struct {
	Store        string    `json:"store"`
	Date         core.Date `json:"date"`
	DailyTakings float64   `json:"daily_takings"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

type storeResponse struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

const uploadSuccessMessage = "Data successfully saved to database"

func newUploadResponse(res services.ImportResult) uploadResponse {
	data := make([]takingRecord, len(res.Records))
	for i, rec := range res.Records {
		data[i] = takingRecord{
			Date:         rec.Date,
			Store:        res.StoreName,
			DailyTakings: rec.Amount.InexactFloat64(),
		}
	}
	return uploadResponse{
		StoreName:        res.StoreName,
		DailyTakingsData: data,
		Message:          uploadSuccessMessage,
	}
}

func newTakingResponse(t core.Taking) takingResponse {
	return takingResponse{
		Store:        t.Store,
		Date:         t.Date,
		DailyTakings: t.Amount.InexactFloat64(),
		CreatedAt:    t.CreatedAt,
		UpdatedAt:    t.UpdatedAt,
	}
}

func newTakingsResponse(takings []core.Taking) []takingResponse {
	out := make([]takingResponse, len(takings))
	for i, t := range takings {
		out[i] = newTakingResponse(t)
	}
	return out
}

func newStoresResponse(stores []core.Store) []storeResponse {
	out := make([]storeResponse, len(stores))
	for i, s := range stores {
		out[i] = storeResponse{ID: s.ID, Name: s.Name}
	}
	return out
}
