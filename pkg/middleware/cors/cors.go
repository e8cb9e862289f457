package cors

import (
	"net/http"
	"strings"

	rscors "github.com/rs/cors"
)

// New builds the CORS policy for the API. An empty origin list allows any origin.
func New(allowedOrigins []string) *rscors.Cors {
	origins := make([]string, 0, len(allowedOrigins))
	for _, origin := range allowedOrigins {
		if trimmed := strings.TrimRight(strings.TrimSpace(origin), "/"); trimmed != "" {
			origins = append(origins, trimmed)
		}
	}
	if len(origins) == 0 {
		origins = []string{"*"}
	}

	return rscors.New(rscors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{
			http.MethodGet, http.MethodPost, http.MethodPut,
			http.MethodPatch, http.MethodDelete, http.MethodOptions,
		},
		AllowedHeaders:       []string{"Authorization", "Content-Type", "X-Requested-With", "X-Request-ID"},
		ExposedHeaders:       []string{"X-Request-ID", "Content-Disposition"},
		AllowCredentials:     true,
		MaxAge:               600,
		OptionsSuccessStatus: http.StatusNoContent,
	})
}

// Wrap applies the policy to handler.
func Wrap(handler http.Handler, allowedOrigins []string) http.Handler {
	return New(allowedOrigins).Handler(handler)
}
