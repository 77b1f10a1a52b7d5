package middlewares

import (
	"net/http"
	"strconv"

	"github.com/wayfarerhq/wayfarer/internal/audit"
	httperrors "github.com/wayfarerhq/wayfarer/internal/http/errors"
	"github.com/wayfarerhq/wayfarer/internal/metrics"
	"github.com/wayfarerhq/wayfarer/internal/rbac"
)

// OwnerFunc resuelve el dueño del recurso de la request. Retorna cadena
// vacía si el recurso no tiene dueño o no se pudo determinar.
type OwnerFunc func(r *http.Request) string

// Gate decide el acceso a operaciones protegidas: el usuario pasa si su
// rol otorga el permiso, o si es dueño del recurso. Cada decisión se
// audita y alimenta métricas.
type Gate struct {
	resolver *rbac.Resolver
	audit    *audit.Logger
}

// NewGate construye el Gate.
func NewGate(resolver *rbac.Resolver, auditLog *audit.Logger) *Gate {
	return &Gate{resolver: resolver, audit: auditLog}
}

// Require exige el permiso dado. Debe montarse después de WithAuth.
func (g *Gate) Require(permission string) Middleware {
	return g.RequireOrOwner(permission, nil)
}

// RequireOrOwner exige el permiso, o que el usuario sea dueño del recurso
// según owner. Con owner nil solo cuenta el permiso.
func (g *Gate) RequireOrOwner(permission string, owner OwnerFunc) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			userID := GetUserID(ctx)
			roleName := GetRole(ctx)

			if userID == "" {
				httperrors.WriteError(w, r, httperrors.ErrTokenMissing)
				return
			}

			isOwner := false
			if owner != nil {
				isOwner = owner(r) == userID
			}

			allowed := isOwner
			if !allowed {
				ok, err := g.resolver.HasPermission(ctx, roleName, permission)
				if err != nil {
					httperrors.WriteError(w, r, httperrors.ErrInternalServerError.WithCause(err))
					return
				}
				allowed = ok
			}

			g.audit.Record(ctx, audit.Event{
				UserID:     userID,
				Action:     "access_check",
				Role:       roleName,
				Permission: permission,
				IsOwner:    isOwner,
				Allowed:    allowed,
				IP:         clientIP(r),
				Path:       r.URL.Path,
			})
			metrics.PermissionChecks.WithLabelValues(strconv.FormatBool(allowed)).Inc()

			if !allowed {
				httperrors.WriteError(w, r,
					httperrors.ErrForbidden.WithDetail(
						"requiere el permiso "+permission+"; el rol "+roleName+" no lo otorga"))
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
