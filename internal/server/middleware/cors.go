package middleware

import (
	"net/http"
	"strings"
)

// CORSMiddleware answers cross-origin requests from the configured web
// frontends. An allowed-origins entry of "*" opens the API to any origin;
// an entry of the form "*.example.com" matches every subdomain.
type CORSMiddleware struct {
	exact    map[string]bool
	suffixes []string
	allowAll bool
}

func NewCORSMiddleware(allowedOrigins []string) *CORSMiddleware {
	m := &CORSMiddleware{exact: make(map[string]bool)}
	for _, origin := range allowedOrigins {
		switch {
		case origin == "*":
			m.allowAll = true
		case strings.HasPrefix(origin, "*."):
			m.suffixes = append(m.suffixes, origin[1:])
		default:
			m.exact[origin] = true
		}
	}
	return m
}

// Handler returns the middleware handler.
func (m *CORSMiddleware) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if origin := r.Header.Get("Origin"); origin != "" && m.allows(origin) {
			h := w.Header()
			h.Set("Access-Control-Allow-Origin", origin)
			h.Set("Access-Control-Allow-Methods", "GET, POST, PATCH, DELETE, OPTIONS")
			h.Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
			h.Set("Access-Control-Max-Age", "3600")
			h.Add("Vary", "Origin")
		}

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (m *CORSMiddleware) allows(origin string) bool {
	if m.allowAll || m.exact[origin] {
		return true
	}
	for _, suffix := range m.suffixes {
		if strings.HasSuffix(origin, suffix) {
			return true
		}
	}
	return false
}
