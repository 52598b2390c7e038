package security

import (
	"net/http"
	"slices"
	"strconv"
	"strings"
)

// CORSConfig controls which browser origins may call the API.
type CORSConfig struct {
	// AllowedOrigins lists exact origins; "*" allows any.
	AllowedOrigins []string
	AllowedMethods []string
	AllowedHeaders []string
	MaxAge         int
}

// DefaultCORSConfig allows origin (comma separated) to use the upload and
// query endpoints.
func DefaultCORSConfig(origin string) CORSConfig {
	var origins []string
	for _, o := range strings.Split(origin, ",") {
		if o = strings.TrimSpace(o); o != "" {
			origins = append(origins, o)
		}
	}
	return CORSConfig{
		AllowedOrigins: origins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Content-Type", "X-Request-ID"},
		MaxAge:         600,
	}
}

// CORSMiddleware answers preflight requests and decorates actual ones.
type CORSMiddleware struct {
	config CORSConfig
}

func NewCORSMiddleware(config CORSConfig) *CORSMiddleware {
	return &CORSMiddleware{config: config}
}

func (c *CORSMiddleware) allowedOrigin(origin string) (string, bool) {
	if origin == "" {
		return "", false
	}
	if slices.Contains(c.config.AllowedOrigins, "*") {
		return "*", true
	}
	if slices.Contains(c.config.AllowedOrigins, origin) {
		return origin, true
	}
	return "", false
}

func (c *CORSMiddleware) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		origin := r.Header.Get("Origin")
		allow, ok := c.allowedOrigin(origin)
		if ok {
			h := w.Header()
			h.Set("Access-Control-Allow-Origin", allow)
			if allow != "*" {
				h.Add("Vary", "Origin")
			}
		}

		preflight := r.Method == http.MethodOptions && r.Header.Get("Access-Control-Request-Method") != ""
		if !preflight {
			next.ServeHTTP(w, r)
			return
		}

		if ok {
			h := w.Header()
			h.Set("Access-Control-Allow-Methods", strings.Join(c.config.AllowedMethods, ", "))
			h.Set("Access-Control-Allow-Headers", strings.Join(c.config.AllowedHeaders, ", "))
			if c.config.MaxAge > 0 {
				h.Set("Access-Control-Max-Age", strconv.Itoa(c.config.MaxAge))
			}
		}
		w.WriteHeader(http.StatusNoContent)
	})
}
