// Package middlewares contiene la cadena HTTP: request id, logging,
// recover, CORS, rate limiting, autenticación y el gate de autorización.
package middlewares

import (
	"context"
	"net"
	"net/http"
	"strings"

	jwtx "github.com/wayfarerhq/wayfarer/internal/jwt"
)

type ctxKey string

const (
	// ctxClaimsKey guarda las claims del access token validado
	ctxClaimsKey ctxKey = "claims"
	// ctxRoleKey guarda el nombre del rol del usuario autenticado
	ctxRoleKey ctxKey = "role"
	// ctxRequestIDKey guarda el request ID
	ctxRequestIDKey ctxKey = "request_id"
)

// WithClaims inyecta las claims validadas en el contexto.
func WithClaims(ctx context.Context, claims *jwtx.Claims) context.Context {
	return context.WithValue(ctx, ctxClaimsKey, claims)
}

// WithRole inyecta el nombre del rol en el contexto.
func WithRole(ctx context.Context, role string) context.Context {
	return context.WithValue(ctx, ctxRoleKey, role)
}

func setRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, ctxRequestIDKey, requestID)
}

// GetClaims obtiene las claims del contexto. Retorna nil si la request no
// pasó por RequireAuth.
func GetClaims(ctx context.Context) *jwtx.Claims {
	if v := ctx.Value(ctxClaimsKey); v != nil {
		if c, ok := v.(*jwtx.Claims); ok {
			return c
		}
	}
	return nil
}

// GetUserID obtiene el user ID del contexto, o cadena vacía.
func GetUserID(ctx context.Context) string {
	if c := GetClaims(ctx); c != nil {
		return c.UserID
	}
	return ""
}

// GetSessionID obtiene el session ID del contexto, o cadena vacía.
func GetSessionID(ctx context.Context) string {
	if c := GetClaims(ctx); c != nil {
		return c.SessionID
	}
	return ""
}

// GetRole obtiene el nombre del rol del contexto, o cadena vacía.
func GetRole(ctx context.Context) string {
	if v := ctx.Value(ctxRoleKey); v != nil {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return ""
}

// GetRequestID obtiene el request ID del contexto, o cadena vacía.
func GetRequestID(ctx context.Context) string {
	if v := ctx.Value(ctxRequestIDKey); v != nil {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return ""
}

// clientIP extrae la IP real del cliente considerando proxies.
func clientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		if i := strings.IndexByte(xff, ','); i > 0 {
			return strings.TrimSpace(xff[:i])
		}
		return strings.TrimSpace(xff)
	}
	if xri := r.Header.Get("X-Real-IP"); xri != "" {
		return strings.TrimSpace(xri)
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
