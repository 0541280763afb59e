package util

import (
	"net/http"
	"strings"
)

// CORSPolicy lists the values sent on every response.
type CORSPolicy struct {
	AllowOrigin  string
	AllowMethods []string
	AllowHeaders []string
}

// DefaultCORS is the permissive policy the draft editor expects when it is
// opened straight from disk.
var DefaultCORS = CORSPolicy{
	AllowOrigin:  "*",
	AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodDelete, http.MethodOptions},
	AllowHeaders: []string{"Content-Type", "Authorization"},
}

// WithCORS applies DefaultCORS.
func WithCORS(next http.Handler) http.Handler {
	return DefaultCORS.Wrap(next)
}

// Wrap sets the policy headers and answers pre-flight requests with 204.
func (p CORSPolicy) Wrap(next http.Handler) http.Handler {
	methods := strings.Join(p.AllowMethods, ", ")
	headers := strings.Join(p.AllowHeaders, ", ")
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		h := w.Header()
		h.Set("Access-Control-Allow-Origin", p.AllowOrigin)
		h.Set("Access-Control-Allow-Methods", methods)
		h.Set("Access-Control-Allow-Headers", headers)
		h.Set("Access-Control-Expose-Headers", requestIDHeader)
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}
