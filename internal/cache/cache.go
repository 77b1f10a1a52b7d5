// Package cache provee abstracciones para caching con soporte multi-backend.
//
// Soporta:
//   - Memory (in-process, para desarrollo/testing)
//   - Redis (distribuido, para producción)
//
// Todo acceso de los services pasa por Guarded, que tolera un cache
// deshabilitado o caído: las lecturas degradan a miss y las escrituras a
// no-op, nunca a error del request.
package cache

import (
	"context"
	"time"
)

// Client define las operaciones de cache.
type Client interface {
	// Get obtiene un valor. Retorna ErrNotFound si no existe.
	Get(ctx context.Context, key string) (string, error)

	// Set guarda un valor con TTL. Si ttl es 0, no expira.
	Set(ctx context.Context, key, value string, ttl time.Duration) error

	// Delete elimina una key.
	Delete(ctx context.Context, key string) error

	// Exists verifica si una key existe.
	Exists(ctx context.Context, key string) (bool, error)

	// DeleteByPrefix elimina todas las keys con un prefijo.
	// Retorna el número de keys eliminadas.
	DeleteByPrefix(ctx context.Context, prefix string) (int, error)

	// ListPush agrega un valor al final de una lista y refresca su TTL.
	ListPush(ctx context.Context, key, value string, ttl time.Duration) error

	// ListRange retorna todos los elementos de una lista.
	// Lista inexistente retorna slice vacío, no error.
	ListRange(ctx context.Context, key string) ([]string, error)

	// ListRemove elimina todas las ocurrencias de value en la lista.
	ListRemove(ctx context.Context, key, value string) error

	// Incr incrementa atómicamente un contador y retorna el valor nuevo.
	// El TTL se fija cuando el contador nace; incrementos posteriores no
	// lo corren (ventana fija).
	Incr(ctx context.Context, key string, ttl time.Duration) (int64, error)

	// Ping verifica la conexión.
	Ping(ctx context.Context) error

	// Stats retorna métricas básicas del backend.
	Stats(ctx context.Context) (Stats, error)

	// Close cierra la conexión.
	Close() error
}

// Stats métricas básicas de un backend de cache.
type Stats struct {
	Backend string `json:"backend"`
	Keys    int64  `json:"keys"`
}

// Config configuración para crear un cliente de cache.
type Config struct {
	Kind     string // "memory" | "redis" | "disabled"
	Addr     string
	Password string
	DB       int
	Prefix   string // Prefijo para todas las keys
}

// Errores de cache.
var ErrNotFound = errNotFound{}

type errNotFound struct{}

func (e errNotFound) Error() string { return "cache: key not found" }

// IsNotFound verifica si el error es porque la key no existe.
func IsNotFound(err error) bool {
	_, ok := err.(errNotFound)
	return ok
}

// New crea un cliente de cache según la configuración.
// Kind "disabled" retorna nil: Guarded lo convierte en no-op.
func New(cfg Config) (Client, error) {
	switch cfg.Kind {
	case "redis":
		return NewRedis(cfg)
	case "disabled":
		return nil, nil
	default:
		return NewMemory(cfg.Prefix), nil
	}
}
