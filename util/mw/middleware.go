package mw

import (
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/cors"
	"github.com/wkalt/outline/util/httputil"
	"github.com/wkalt/outline/util/log"
)

/*
mw contains http middlewares.
*/

////////////////////////////////////////////////////////////////////////////////

// RequestIDHeader carries the request ID back to the client.
const RequestIDHeader = "X-Request-ID"

// WithRequestID is a middleware that adds a request ID to the context of each
// request and echoes it in the response headers. A well-formed ID supplied by
// the client is reused.
func WithRequestID(h http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		id, err := uuid.Parse(r.Header.Get(RequestIDHeader))
		if err != nil {
			id = uuid.New()
		}
		ctx = log.AddTags(ctx, "request_id", id.String())
		w.Header().Set(RequestIDHeader, id.String())
		h.ServeHTTP(w, r.WithContext(ctx))
	})
}

// WithCORSAllowedOrigins is a middleware that allows cross-origin requests
// from the specified origins for every method the API serves.
func WithCORSAllowedOrigins(origins []string) func(http.Handler) http.Handler {
	c := cors.New(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{
			http.MethodGet,
			http.MethodPost,
			http.MethodPatch,
			http.MethodDelete,
			http.MethodOptions,
		},
		AllowedHeaders: []string{"Authorization", "Content-Type", "If-None-Match", RequestIDHeader},
		ExposedHeaders: []string{"ETag", RequestIDHeader},
	})
	return c.Handler
}

func parseBearerToken(authHeader string) string {
	parts := strings.Split(authHeader, " ")
	if len(parts) != 2 || parts[0] != "Bearer" {
		return ""
	}
	return parts[1]
}

// WithSharedKeyAuth is a middleware that requires a shared key to be present in
// the Authorization header. An empty key disables the check. This is only
// suitable for trusted deployments and should sit behind a proper auth proxy
// otherwise.
func WithSharedKeyAuth(key string) func(http.Handler) http.Handler {
	return func(h http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if key != "" {
				ctx := r.Context()
				token := parseBearerToken(r.Header.Get("Authorization"))
				if token != key {
					httputil.Unauthorized(ctx, w, "invalid token")
					return
				}
			}
			h.ServeHTTP(w, r)
		})
	}
}
