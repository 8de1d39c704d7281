package middleware

import (
	"net/http"
	"strings"
)

const (
	corsAllowHeaders = "Content-Type, Authorization, X-Request-ID"
	corsAllowMethods = "GET, POST, PUT, DELETE, OPTIONS"
)

// CORS answers preflight requests and tags responses for origins the console may be served from.
// A "*" entry admits every origin without credentials; listed origins are echoed back with them.
func CORS(allowedOrigins []string) func(http.Handler) http.Handler {
	wildcard := false
	origins := make(map[string]struct{}, len(allowedOrigins))
	for _, o := range allowedOrigins {
		o = strings.TrimSpace(o)
		if o == "*" {
			wildcard = true
			continue
		}
		origins[strings.ToLower(o)] = struct{}{}
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if origin := r.Header.Get("Origin"); origin != "" {
				_, known := origins[strings.ToLower(origin)]
				h := w.Header()
				switch {
				case known:
					h.Add("Vary", "Origin")
					h.Set("Access-Control-Allow-Origin", origin)
					h.Set("Access-Control-Allow-Credentials", "true")
				case wildcard:
					h.Set("Access-Control-Allow-Origin", "*")
				}
				if known || wildcard {
					h.Set("Access-Control-Allow-Headers", corsAllowHeaders)
					h.Set("Access-Control-Allow-Methods", corsAllowMethods)
					h.Set("Access-Control-Expose-Headers", "X-Request-ID")
				}
			}
			if r.Method == http.MethodOptions && r.Header.Get("Access-Control-Request-Method") != "" {
				w.WriteHeader(http.StatusNoContent)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
