// Package rbac resuelve permisos efectivos de roles con herencia y cachea
// el resultado. También expone la administración de roles y permisos.
package rbac

import (
	"context"
	"encoding/json"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/wayfarerhq/wayfarer/internal/cache"
	"github.com/wayfarerhq/wayfarer/internal/domain/repository"
	"github.com/wayfarerhq/wayfarer/internal/observability/logger"
)

const (
	keyRolePermissions = "role_permissions:"

	// RoleSuperAdmin pasa todo chequeo de permisos sin consultar el resolver.
	RoleSuperAdmin = "super_admin"

	permissionsTTL = time.Hour

	// maxInheritanceDepth corta cadenas de herencia absurdas aun si el
	// guard de ciclos fallara por datos inconsistentes.
	maxInheritanceDepth = 16
)

// Resolver calcula el set efectivo de permisos de un rol: los propios más
// los heredados por la cadena de padres.
type Resolver struct {
	store repository.Store
	cache *cache.Guarded
	group singleflight.Group
}

// NewResolver construye el Resolver.
func NewResolver(store repository.Store, guarded *cache.Guarded) *Resolver {
	return &Resolver{store: store, cache: guarded}
}

// EffectivePermissions retorna los nombres de permisos efectivos del rol.
// El resultado se cachea por nombre de rol; lookups concurrentes del mismo
// rol colapsan en una sola resolución.
func (r *Resolver) EffectivePermissions(ctx context.Context, roleName string) ([]string, error) {
	if raw, ok := r.cache.Get(ctx, keyRolePermissions+roleName); ok {
		var perms []string
		if err := json.Unmarshal([]byte(raw), &perms); err == nil {
			return perms, nil
		}
		r.cache.Delete(ctx, keyRolePermissions+roleName)
	}

	v, err, _ := r.group.Do(roleName, func() (any, error) {
		perms, err := r.resolve(ctx, roleName)
		if err != nil {
			return nil, err
		}
		if b, err := json.Marshal(perms); err == nil {
			r.cache.Set(ctx, keyRolePermissions+roleName, string(b), permissionsTTL)
		}
		return perms, nil
	})
	if err != nil {
		return nil, err
	}
	return v.([]string), nil
}

// HasPermission indica si el rol otorga el permiso. super_admin siempre
// pasa; un permiso deprecado se resuelve normal (sigue asignado).
func (r *Resolver) HasPermission(ctx context.Context, roleName, permission string) (bool, error) {
	if roleName == RoleSuperAdmin {
		return true, nil
	}
	perms, err := r.EffectivePermissions(ctx, roleName)
	if err != nil {
		return false, err
	}
	for _, p := range perms {
		if p == permission {
			return true, nil
		}
	}
	return false, nil
}

// Invalidate descarta el set cacheado de un rol.
func (r *Resolver) Invalidate(ctx context.Context, roleName string) {
	r.cache.Delete(ctx, keyRolePermissions+roleName)
}

// InvalidateAll descarta todos los sets cacheados.
func (r *Resolver) InvalidateAll(ctx context.Context) {
	r.cache.DeleteByPrefix(ctx, keyRolePermissions)
}

// resolve recorre la cadena de herencia acumulando permisos. Un rol ya
// visitado corta la recursión: un ciclo en los datos no cuelga el server.
func (r *Resolver) resolve(ctx context.Context, roleName string) ([]string, error) {
	seen := make(map[string]struct{})
	acc := make(map[string]struct{})

	role, err := r.store.Roles().GetByName(ctx, roleName)
	if err != nil {
		return nil, err
	}

	for depth := 0; role != nil && depth < maxInheritanceDepth; depth++ {
		if _, visited := seen[role.ID]; visited {
			logger.From(ctx).Warn("role inheritance cycle detected",
				logger.Role(roleName), logger.String("at_role", role.Name))
			break
		}
		seen[role.ID] = struct{}{}

		perms, err := r.store.Roles().GetPermissions(ctx, role.ID)
		if err != nil {
			return nil, err
		}
		for _, p := range perms {
			acc[p.Name] = struct{}{}
		}

		if role.ParentRoleID == nil {
			break
		}
		parent, err := r.store.Roles().GetByID(ctx, *role.ParentRoleID)
		if repository.IsNotFound(err) {
			// Padre colgante: se resuelve con lo acumulado.
			logger.From(ctx).Warn("role parent not found",
				logger.Role(role.Name), logger.String("parent_id", *role.ParentRoleID))
			break
		}
		if err != nil {
			return nil, err
		}
		role = parent
	}

	out := make([]string, 0, len(acc))
	for name := range acc {
		out = append(out, name)
	}
	return out, nil
}
