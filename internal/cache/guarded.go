package cache

import (
	"context"
	"time"

	"github.com/wayfarerhq/wayfarer/internal/observability/logger"
)

// Guarded envuelve un Client con un flag de habilitación. Es el único punto
// de acceso al cache para los services: si el backend está deshabilitado o
// caído, las lecturas degradan a miss y las escrituras a no-op. Los errores
// de backend se loguean y se tragan; la corrección del request nunca depende
// del cache.
type Guarded struct {
	client  Client
	enabled bool
}

// NewGuarded construye el wrapper. Un client nil deshabilita el cache.
func NewGuarded(client Client) *Guarded {
	return &Guarded{client: client, enabled: client != nil}
}

// Enabled indica si hay backend activo.
func (g *Guarded) Enabled() bool { return g.enabled }

// Get retorna (valor, true) en hit; ("", false) en miss, deshabilitado o error.
func (g *Guarded) Get(ctx context.Context, key string) (string, bool) {
	if !g.enabled {
		return "", false
	}
	v, err := g.client.Get(ctx, key)
	if err != nil {
		if !IsNotFound(err) {
			logger.From(ctx).Warn("cache get failed", logger.Key(key), logger.Err(err))
		}
		return "", false
	}
	return v, true
}

// Set guarda best-effort.
func (g *Guarded) Set(ctx context.Context, key, value string, ttl time.Duration) {
	if !g.enabled {
		return
	}
	if err := g.client.Set(ctx, key, value, ttl); err != nil {
		logger.From(ctx).Warn("cache set failed", logger.Key(key), logger.Err(err))
	}
}

// Delete elimina best-effort.
func (g *Guarded) Delete(ctx context.Context, key string) {
	if !g.enabled {
		return
	}
	if err := g.client.Delete(ctx, key); err != nil {
		logger.From(ctx).Warn("cache delete failed", logger.Key(key), logger.Err(err))
	}
}

// DeleteByPrefix elimina por prefijo best-effort.
func (g *Guarded) DeleteByPrefix(ctx context.Context, prefix string) {
	if !g.enabled {
		return
	}
	if _, err := g.client.DeleteByPrefix(ctx, prefix); err != nil {
		logger.From(ctx).Warn("cache delete-by-prefix failed", logger.Key(prefix), logger.Err(err))
	}
}

// ListPush agrega a una lista best-effort.
func (g *Guarded) ListPush(ctx context.Context, key, value string, ttl time.Duration) {
	if !g.enabled {
		return
	}
	if err := g.client.ListPush(ctx, key, value, ttl); err != nil {
		logger.From(ctx).Warn("cache list push failed", logger.Key(key), logger.Err(err))
	}
}

// ListRange retorna los elementos; nil en miss, deshabilitado o error.
func (g *Guarded) ListRange(ctx context.Context, key string) []string {
	if !g.enabled {
		return nil
	}
	vals, err := g.client.ListRange(ctx, key)
	if err != nil {
		logger.From(ctx).Warn("cache list range failed", logger.Key(key), logger.Err(err))
		return nil
	}
	return vals
}

// ListRemove elimina de una lista best-effort.
func (g *Guarded) ListRemove(ctx context.Context, key, value string) {
	if !g.enabled {
		return
	}
	if err := g.client.ListRemove(ctx, key, value); err != nil {
		logger.From(ctx).Warn("cache list remove failed", logger.Key(key), logger.Err(err))
	}
}

// Incr incrementa atómicamente un contador en el backend. Retorna el valor
// nuevo; 0 si el cache está deshabilitado o caído.
func (g *Guarded) Incr(ctx context.Context, key string, ttl time.Duration) int64 {
	if !g.enabled {
		return 0
	}
	n, err := g.client.Incr(ctx, key, ttl)
	if err != nil {
		logger.From(ctx).Warn("cache incr failed", logger.Key(key), logger.Err(err))
		return 0
	}
	return n
}
