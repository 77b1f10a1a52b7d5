// Package rate implementa el lockout escalonado por intentos fallidos de
// login. Los contadores viven en el cache con una ventana de 24h; si el
// cache está deshabilitado no hay lockout (se prefiere disponibilidad).
package rate

import (
	"context"
	"strconv"
	"time"

	"github.com/wayfarerhq/wayfarer/internal/cache"
	"github.com/wayfarerhq/wayfarer/internal/observability/logger"
)

const (
	keyLoginAttempts = "login_attempts:"
	keyLoginLock     = "login_lock:"

	// window es cuánto viven los contadores sin nuevos fallos.
	window = 24 * time.Hour
)

// Umbrales de escalamiento: al alcanzar N fallos se bloquea por la duración
// asociada. 15 o más siempre aplica el bloqueo máximo.
var thresholds = []struct {
	attempts int64
	lock     time.Duration
}{
	{15, 24 * time.Hour},
	{10, time.Hour},
	{5, 15 * time.Minute},
}

// Lockout lleva la cuenta de fallos de login por email.
type Lockout struct {
	cache *cache.Guarded
}

// NewLockout construye el Lockout sobre el cache compartido.
func NewLockout(guarded *cache.Guarded) *Lockout {
	return &Lockout{cache: guarded}
}

// RecordFailure suma un intento fallido y retorna la duración del bloqueo
// resultante (0 si el email todavía no alcanza un umbral).
func (l *Lockout) RecordFailure(ctx context.Context, email string) time.Duration {
	attempts := l.cache.Incr(ctx, keyLoginAttempts+email, window)
	if attempts == 0 {
		// Cache deshabilitado o caído: sin contadores no hay lockout.
		return 0
	}

	lock := lockFor(attempts)
	if lock > 0 {
		l.cache.Set(ctx, keyLoginLock+email, strconv.FormatInt(attempts, 10), lock)
		logger.From(ctx).Warn("user locked out after failed logins",
			logger.Email(email),
			logger.Int("attempts", int(attempts)),
			logger.Duration(lock))
	}
	return lock
}

// Locked indica si el email está dentro de una ventana de bloqueo.
func (l *Lockout) Locked(ctx context.Context, email string) bool {
	_, ok := l.cache.Get(ctx, keyLoginLock+email)
	return ok
}

// Attempts retorna el contador actual de fallos (0 si no hay o el cache
// está deshabilitado).
func (l *Lockout) Attempts(ctx context.Context, email string) int64 {
	raw, ok := l.cache.Get(ctx, keyLoginAttempts+email)
	if !ok {
		return 0
	}
	n, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0
	}
	return n
}

// Reset limpia el contador y el bloqueo tras un login exitoso.
func (l *Lockout) Reset(ctx context.Context, email string) {
	l.cache.Delete(ctx, keyLoginAttempts+email)
	l.cache.Delete(ctx, keyLoginLock+email)
}

func lockFor(attempts int64) time.Duration {
	for _, t := range thresholds {
		if attempts >= t.attempts {
			return t.lock
		}
	}
	return 0
}
