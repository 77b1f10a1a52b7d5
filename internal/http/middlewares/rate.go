package middlewares

import (
	"net/http"
	"strconv"
	"time"

	"github.com/wayfarerhq/wayfarer/internal/cache"
	httperrors "github.com/wayfarerhq/wayfarer/internal/http/errors"
)

const keyHTTPRate = "http_rate:"

// WithRateLimit aplica un límite fijo de requests por IP en una ventana.
// Los contadores viven en el cache compartido; con cache deshabilitado el
// middleware deja pasar todo.
//
// Esto es un freno grueso para los endpoints públicos de auth; el lockout
// por usuario vive aparte en el paquete rate.
func WithRateLimit(guarded *cache.Guarded, limit int64, window time.Duration) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := keyHTTPRate + clientIP(r)
			if n := guarded.Incr(r.Context(), key, window); n > limit {
				w.Header().Set("Retry-After", formatSeconds(window))
				httperrors.WriteError(w, r, httperrors.ErrRateLimitExceeded)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func formatSeconds(d time.Duration) string {
	s := int(d.Seconds())
	if s < 1 {
		s = 1
	}
	return strconv.Itoa(s)
}
