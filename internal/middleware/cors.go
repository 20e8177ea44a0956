// Package middleware provides HTTP middleware for the WooAgent API.
package middleware

import (
	"net/http"
	"slices"
	"strconv"
	"strings"
)

// CORSOptions configures cross-origin access to the API.
type CORSOptions struct {
	// Origins lists the allowed origins. "*" echoes any origin back but never
	// allows credentials.
	Origins []string
	Methods []string
	Headers []string
	// Expose lists response headers readable by the browser.
	Expose  []string
	MaxAge  int
}

// DefaultCORS allows the verbs and headers the console API uses.
func DefaultCORS(origins ...string) CORSOptions {
	return CORSOptions{
		Origins: origins,
		Methods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete, http.MethodOptions},
		Headers: []string{"Content-Type", "Authorization", "Last-Event-ID"},
		MaxAge:  600,
	}
}

// CORS returns middleware that handles CORS headers and answers preflight requests.
func CORS(opts CORSOptions) func(http.Handler) http.Handler {
	methods := strings.Join(opts.Methods, ", ")
	headers := strings.Join(opts.Headers, ", ")
	expose := strings.Join(opts.Expose, ", ")
	wildcard := slices.Contains(opts.Origins, "*")

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			origin := r.Header.Get("Origin")
			preflight := r.Method == http.MethodOptions && r.Header.Get("Access-Control-Request-Method") != ""

			explicit := origin != "" && slices.Contains(opts.Origins, origin)
			if origin != "" && (explicit || wildcard) {
				h := w.Header()
				h.Set("Access-Control-Allow-Origin", origin)
				h.Add("Vary", "Origin")
				if explicit {
					h.Set("Access-Control-Allow-Credentials", "true")
				}
				if preflight {
					h.Set("Access-Control-Allow-Methods", methods)
					h.Set("Access-Control-Allow-Headers", headers)
					if opts.MaxAge > 0 {
						h.Set("Access-Control-Max-Age", strconv.Itoa(opts.MaxAge))
					}
				} else if expose != "" {
					h.Set("Access-Control-Expose-Headers", expose)
				}
			}

			if preflight {
				w.WriteHeader(http.StatusNoContent)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
