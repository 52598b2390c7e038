package http

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync/atomic"
	"time"

	"takings/internal/core"
	"takings/internal/log"
	"takings/internal/services"
)

const (
	detailNoFile         = "No file uploaded."
	detailFileTooLarge   = "File too large."
	detailDateRequired   = "Date is required."
	detailStoreRequired  = "Store name is required."
	detailInvalidDate    = "Invalid date format. Use YYYY-MM-DD."
	detailStoreNotFound  = "No Store matches the given query."
	detailTakingNotFound = "No DailyTaking matches the given query."
	detailInternal       = "Internal server error."
	detailSheetsDisabled = "Google Sheets import is not configured."
)

// handleUpload imports one spreadsheet sent as multipart field "file".
func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := log.FromContext(ctx).WithComponent(log.ComponentHTTP)

	filename, data, err := ReadUploadedFile(w, r, s.maxUploadBytes)
	switch {
	case errors.Is(err, core.ErrNoFile):
		s.sendDetail(w, r, http.StatusBadRequest, detailNoFile)
		return
	case errors.Is(err, errFileTooLarge):
		s.sendDetail(w, r, http.StatusRequestEntityTooLarge, detailFileTooLarge)
		return
	case err != nil:
		logger.ErrorContext(ctx, "Failed to read upload", log.FieldError, err)
		s.sendDetail(w, r, http.StatusBadRequest, detailNoFile)
		return
	}

	atomic.AddInt64(&s.metrics.uploads, 1)
	res, err := s.svc.ImportFile(ctx, filename, data)
	if err != nil {
		atomic.AddInt64(&s.metrics.uploadFailures, 1)
		s.writeImportError(w, r, err, "Error parsing Excel: ", log.FieldFilename, filename)
		return
	}

	logger.InfoContext(ctx, "Upload imported",
		log.NewFields().
			WithImport(res.StoreName, res.Summary.UploadID, res.Summary.Inserted, res.Summary.Ignored, len(res.Skipped)).
			With(log.FieldFilename, filename).
			WithOperation(log.OpUpload).
			ToSlice()...)

	s.send(w, r, NewJSONResponse().Body(newUploadResponse(res)))
}

// handleImportSheet runs the upload pipeline on a hosted Google Sheet.
func (s *Server) handleImportSheet(w http.ResponseWriter, r *http.Request) {
	req, err := DecodeSheetImportRequest(r)
	if err != nil {
		s.sendDetail(w, r, http.StatusBadRequest, err.Error())
		return
	}

	res, err := s.svc.ImportSheet(r.Context(), req.SpreadsheetID, req.Range)
	if errors.Is(err, services.ErrSheetsNotConfigured) {
		s.sendDetail(w, r, http.StatusNotImplemented, detailSheetsDisabled)
		return
	}
	if err != nil {
		s.writeImportError(w, r, err, "Error parsing sheet: ", "spreadsheet_id", req.SpreadsheetID)
		return
	}

	s.send(w, r, NewJSONResponse().Body(newUploadResponse(res)))
}

// writeImportError maps an import failure: bad spreadsheets are the
// caller's fault, anything else is ours.
func (s *Server) writeImportError(w http.ResponseWriter, r *http.Request, err error, parsePrefix string, logArgs ...any) {
	ctx := r.Context()
	logger := log.FromContext(ctx).WithComponent(log.ComponentHTTP)

	var perr *services.ParseError
	switch {
	case errors.As(err, &perr):
		logger.WarnContext(ctx, "Spreadsheet rejected",
			append(logArgs, log.FieldError, err, log.FieldErrorType, log.ErrorTypeParse)...)
		s.sendDetail(w, r, http.StatusBadRequest, parsePrefix+perr.Error())
	case errors.Is(err, core.ErrNoFile):
		s.sendDetail(w, r, http.StatusBadRequest, detailNoFile)
	default:
		logger.ErrorContext(ctx, "Import failed",
			append(logArgs, log.FieldError, err, log.FieldErrorType, log.ErrorTypeInternal)...)
		s.sendDetail(w, r, http.StatusInternalServerError, detailInternal)
	}
}

// handleGetTakings serves one store's day, or every store's day when
// store is "all".
func (s *Server) handleGetTakings(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	q, err := ParseTakingsQuery(r.URL.Query())
	switch {
	case errors.Is(err, core.ErrDateRequired):
		s.sendDetail(w, r, http.StatusBadRequest, detailDateRequired)
		return
	case errors.Is(err, core.ErrInvalidDate):
		s.sendDetail(w, r, http.StatusBadRequest, detailInvalidDate)
		return
	case errors.Is(err, core.ErrStoreRequired):
		s.sendDetail(w, r, http.StatusBadRequest, detailStoreRequired)
		return
	case err != nil:
		s.sendDetail(w, r, http.StatusBadRequest, err.Error())
		return
	}

	if q.AllStores {
		takings, err := s.svc.ListTakingsByDate(ctx, q.Date)
		if err != nil {
			s.internalError(w, r, "List takings failed", err, log.FieldDate, q.Date.String())
			return
		}
		s.send(w, r, NewJSONResponse().Body(newTakingsResponse(takings)))
		return
	}

	taking, err := s.svc.GetTaking(ctx, q.Store, q.Date)
	switch {
	case errors.Is(err, core.ErrStoreNotFound):
		s.sendDetail(w, r, http.StatusNotFound, detailStoreNotFound)
	case errors.Is(err, core.ErrNotFound):
		s.sendDetail(w, r, http.StatusNotFound, detailTakingNotFound)
	case err != nil:
		s.internalError(w, r, "Get taking failed", err, log.FieldStore, q.Store, log.FieldDate, q.Date.String())
	default:
		s.send(w, r, NewJSONResponse().Body(newTakingResponse(taking)))
	}
}

func (s *Server) handleListStores(w http.ResponseWriter, r *http.Request) {
	stores, err := s.svc.ListStores(r.Context())
	if err != nil {
		s.internalError(w, r, "List stores failed", err)
		return
	}
	s.send(w, r, NewJSONResponse().Body(newStoresResponse(stores)))
}

// handleHealth performs basic liveness check
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.send(w, r, NewJSONResponse().Body(map[string]any{
		"status":    "ok",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
		"uptime":    time.Since(s.metrics.started).Round(time.Second).String(),
	}))
}

// handleReady reports whether the database answers within a few seconds.
func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	status, code := "ready", http.StatusOK
	checks := map[string]string{"database": "ok"}
	if err := s.svc.Ready(ctx); err != nil {
		checks["database"] = fmt.Sprintf("failed: %v", err)
		status, code = "not_ready", http.StatusServiceUnavailable
	}

	s.send(w, r, NewJSONResponse().Status(code).Body(map[string]any{
		"status":    status,
		"timestamp": time.Now().UTC().Format(time.RFC3339),
		"checks":    checks,
	}))
}

// handleMetrics writes counters in the Prometheus text format.
func (s *Server) handleMetrics(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")

	traceMetrics := s.tracer.GetMetrics()
	limitMetrics := s.limiter.GetMetrics()
	securityMetrics := s.detector.GetMetrics()

	counters := []struct {
		name, help string
		value      int64
	}{
		{"http_requests_total", "Total number of HTTP requests", traceMetrics.TotalRequests},
		{"http_server_errors_total", "Responses with a 5xx status", traceMetrics.ServerErrors},
		{"takings_uploads_total", "Spreadsheet uploads received", atomic.LoadInt64(&s.metrics.uploads)},
		{"takings_upload_failures_total", "Uploads that were not imported", atomic.LoadInt64(&s.metrics.uploadFailures)},
		{"rate_limit_rejections_total", "Requests rejected by the rate limiter", limitMetrics.Rejected},
		{"suspicious_requests_total", "Requests matching probe patterns", securityMetrics.SuspiciousRequests},
	}
	for _, c := range counters {
		fmt.Fprintf(w, "# HELP %s %s\n# TYPE %s counter\n%s %d\n\n", c.name, c.help, c.name, c.name, c.value)
	}
	fmt.Fprintf(w, "# HELP uptime_seconds Seconds since the server started\n# TYPE uptime_seconds gauge\nuptime_seconds %.0f\n",
		time.Since(s.metrics.started).Seconds())
}

func (s *Server) internalError(w http.ResponseWriter, r *http.Request, msg string, err error, args ...any) {
	log.FromContext(r.Context()).WithComponent(log.ComponentHTTP).ErrorContext(r.Context(), msg,
		append(args, log.FieldError, err, log.FieldErrorType, log.ErrorTypeDatabase)...)
	s.sendDetail(w, r, http.StatusInternalServerError, detailInternal)
}

func (s *Server) sendDetail(w http.ResponseWriter, r *http.Request, code int, detail string) {
	s.send(w, r, NewJSONResponse().Status(code).Detail(detail))
}

func (s *Server) send(w http.ResponseWriter, r *http.Request, b *JSONResponseBuilder) {
	if err := b.Send(w); err != nil {
		log.FromContext(r.Context()).WarnContext(r.Context(), "Failed to write response", log.FieldError, err)
	}
}
