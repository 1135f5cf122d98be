package gateway

import (
	"net/http"
	"strings"

	"github.com/rs/cors"
)

// NewCORS allows the given comma-separated origins; an empty list allows any.
func NewCORS(allowedOrigins string) *cors.Cors {
	var origins []string
	for _, o := range strings.Split(allowedOrigins, ",") {
		if o = strings.TrimSpace(o); o != "" {
			origins = append(origins, o)
		}
	}
	if len(origins) == 0 {
		origins = []string{"*"}
	}

	return cors.New(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost},
		AllowedHeaders: []string{"*"},
	})
}

// OriginChecker applies the same policy to WebSocket upgrades.
func OriginChecker(c *cors.Cors) func(r *http.Request) bool {
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		return origin == "" || c.OriginAllowed(r)
	}
}
