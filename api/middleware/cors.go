package middleware

import (
	"net/http"
	"strings"

	"github.com/go-chi/cors"
)

var defaultCORSOrigins = []string{
	"http://localhost:3000",     // local dev
	"https://app.venuehq.app",   // platform dashboard
	"https://admin.venuehq.app", // internal admin
}

// CORS returns middleware that applies the platform's allowed origin policy.
// Tenant storefronts live on first-level subdomains of the base domain, so
// any https origin under it is allowed alongside the fixed list.
func CORS(baseDomain string) func(http.Handler) http.Handler {
	suffix := "." + strings.TrimSuffix(strings.ToLower(baseDomain), ".")
	return cors.New(cors.Options{
		AllowOriginFunc: func(r *http.Request, origin string) bool {
			for _, allowed := range defaultCORSOrigins {
				if origin == allowed {
					return true
				}
			}
			lowered := strings.ToLower(origin)
			return strings.HasPrefix(lowered, "https://") && strings.HasSuffix(lowered, suffix)
		},
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-API-Key", "X-Requested-With"},
		AllowCredentials: true,
		MaxAge:           300,
	}).Handler
}
