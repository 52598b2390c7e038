package log

import "fmt"

// Common field names for structured logging
const (
	FieldComponent  = "component"
	FieldRequestID  = "request_id"
	FieldClientIP   = "client_ip"
	FieldMethod     = "method"
	FieldPath       = "path"
	FieldQuery      = "query"
	FieldStatusCode = "status_code"
	FieldDuration   = "duration_ms"
	FieldUserAgent  = "user_agent"
	FieldError      = "error"
	FieldErrorType  = "error_type"
	FieldOperation  = "operation"
	FieldStore      = "store"
	FieldDate       = "date"
	FieldUploadID   = "upload_id"
	FieldFilename   = "filename"
	FieldObjectKey  = "object_key"
	FieldInserted   = "inserted"
	FieldIgnored    = "ignored"
	FieldSkipped    = "skipped"
)

// Components defines standard component names
const (
	ComponentApp       = "app"
	ComponentHTTP      = "http"
	ComponentImport    = "import"
	ComponentStorage   = "storage"
	ComponentBlob      = "blob"
	ComponentAMQP      = "amqp"
	ComponentWorker    = "worker"
	ComponentSheets    = "sheets"
	ComponentCache     = "cache"
	ComponentSecurity  = "security"
	ComponentRateLimit = "rate_limit"
	ComponentTrace     = "trace"
)

// Operations
const (
	OpUpload   = "upload"
	OpImport   = "import"
	OpRead     = "read"
	OpList     = "list"
	OpAppend   = "append"
	OpMirror   = "mirror"
	OpParse    = "parse"
	OpStartup  = "startup"
	OpShutdown = "shutdown"
)

// Error categories for FieldErrorType.
const (
	ErrorTypeValidation = "validation_error"
	ErrorTypeParse      = "parse_error"
	ErrorTypeDatabase   = "database_error"
	ErrorTypeNotFound   = "not_found_error"
	ErrorTypeInternal   = "internal_error"
)

// LogFields provides a builder pattern for structured log fields
type LogFields map[string]any

func NewFields() LogFields {
	return make(LogFields)
}

// WithHTTPRequest adds request attributes.
func (f LogFields) WithHTTPRequest(method, path, query, userAgent string) LogFields {
	f[FieldMethod] = method
	f[FieldPath] = path
	if query != "" {
		f[FieldQuery] = query
	}
	if userAgent != "" {
		f[FieldUserAgent] = userAgent
	}
	return f
}

// WithImport adds the outcome of one import.
func (f LogFields) WithImport(store string, uploadID int64, inserted, ignored, skipped int) LogFields {
	f[FieldStore] = store
	if uploadID != 0 {
		f[FieldUploadID] = uploadID
	}
	f[FieldInserted] = inserted
	f[FieldIgnored] = ignored
	f[FieldSkipped] = skipped
	return f
}

func (f LogFields) WithError(err error) LogFields {
	if err != nil {
		f[FieldError] = err.Error()
	}
	return f
}

func (f LogFields) WithErrorType(errType string) LogFields {
	f[FieldErrorType] = errType
	return f
}

func (f LogFields) WithOperation(op string) LogFields {
	f[FieldOperation] = op
	return f
}

func (f LogFields) WithComponent(component string) LogFields {
	f[FieldComponent] = component
	return f
}

func (f LogFields) WithClientIP(ip string) LogFields {
	f[FieldClientIP] = ip
	return f
}

func (f LogFields) With(key string, value any) LogFields {
	f[key] = value
	return f
}

// ToSlice flattens the fields into slog key/value arguments.
func (f LogFields) ToSlice() []any {
	out := make([]any, 0, len(f)*2)
	for k, v := range f {
		out = append(out, k, v)
	}
	return out
}

func (f LogFields) String() string {
	return fmt.Sprintf("%v", map[string]any(f))
}
