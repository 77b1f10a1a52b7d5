package middlewares

import (
	"errors"
	"net/http"
	"strings"

	"github.com/wayfarerhq/wayfarer/internal/domain/repository"
	httperrors "github.com/wayfarerhq/wayfarer/internal/http/errors"
	jwtx "github.com/wayfarerhq/wayfarer/internal/jwt"
	"github.com/wayfarerhq/wayfarer/internal/observability/logger"
	"github.com/wayfarerhq/wayfarer/internal/session"
)

// WithAuth valida el Bearer token y la sesión que referencia. Inyecta las
// claims y el rol del usuario en el contexto.
//
// Un token firmado pero cuya sesión fue revocada NO pasa: la sesión manda.
func WithAuth(issuer *jwtx.Issuer, sessions *session.Service, store repository.Store) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			raw := bearerToken(r)
			if raw == "" {
				httperrors.WriteError(w, r, httperrors.ErrTokenMissing)
				return
			}

			claims, err := issuer.VerifyAccess(raw)
			if err != nil {
				if errors.Is(err, jwtx.ErrTokenExpired) {
					httperrors.WriteError(w, r, httperrors.ErrTokenExpired)
					return
				}
				httperrors.WriteError(w, r, httperrors.ErrTokenInvalid)
				return
			}

			sess, err := sessions.Validate(r.Context(), claims.SessionID)
			if err != nil {
				httperrors.WriteError(w, r, httperrors.ErrInternalServerError.WithCause(err))
				return
			}
			if sess == nil || sess.UserID != claims.UserID {
				httperrors.WriteError(w, r, httperrors.ErrSessionExpired)
				return
			}

			user, err := store.Users().GetByID(r.Context(), claims.UserID)
			if repository.IsNotFound(err) {
				httperrors.WriteError(w, r, httperrors.ErrSessionExpired)
				return
			}
			if err != nil {
				httperrors.WriteError(w, r, httperrors.ErrInternalServerError.WithCause(err))
				return
			}
			if !user.Active {
				httperrors.WriteError(w, r, httperrors.ErrAccountInactive)
				return
			}

			role, err := store.Roles().GetByID(r.Context(), user.RoleID)
			if err != nil {
				httperrors.WriteError(w, r, httperrors.ErrInternalServerError.WithCause(err))
				return
			}

			ctx := WithClaims(r.Context(), claims)
			ctx = WithRole(ctx, role.Name)
			ctx = logger.ToContext(ctx, logger.From(ctx).With(
				logger.UserID(claims.UserID),
				logger.SessionID(claims.SessionID),
			))

			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func bearerToken(r *http.Request) string {
	h := r.Header.Get("Authorization")
	if h == "" {
		return ""
	}
	parts := strings.SplitN(h, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}
	return strings.TrimSpace(parts[1])
}
