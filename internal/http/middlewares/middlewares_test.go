package middlewares_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/wayfarerhq/wayfarer/internal/audit"
	"github.com/wayfarerhq/wayfarer/internal/cache"
	"github.com/wayfarerhq/wayfarer/internal/domain/repository"
	"github.com/wayfarerhq/wayfarer/internal/http/middlewares"
	jwtx "github.com/wayfarerhq/wayfarer/internal/jwt"
	"github.com/wayfarerhq/wayfarer/internal/rbac"
	"github.com/wayfarerhq/wayfarer/internal/session"
	"github.com/wayfarerhq/wayfarer/internal/store/memory"
)

type authEnv struct {
	store    *memory.Store
	issuer   *jwtx.Issuer
	sessions *session.Service
	role     *repository.Role
}

func newAuthEnv(t *testing.T) *authEnv {
	t.Helper()
	store := memory.New()
	role := store.SeedRole(repository.Role{Name: "user"})
	issuer, err := jwtx.NewIssuer("test", []byte("acc"), []byte("ref"), 15*time.Minute, time.Hour)
	if err != nil {
		t.Fatalf("NewIssuer: %v", err)
	}
	sessions := session.New(store, cache.NewGuarded(cache.NewMemory("")), issuer, time.Hour)
	return &authEnv{store: store, issuer: issuer, sessions: sessions, role: role}
}

func (e *authEnv) loginUser(t *testing.T, active bool) (userID, token string) {
	t.Helper()
	u := e.store.SeedUser(repository.User{
		Email: "ana@example.com", Username: "ana",
		RoleID: e.role.ID, Active: active, EmailVerified: true,
	})
	created, err := e.sessions.Create(context.Background(), u.ID, "", "", "")
	if err != nil {
		t.Fatalf("session Create: %v", err)
	}
	return u.ID, created.Token
}

// okHandler responde 200 con el user id del contexto.
var okHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
	w.Write([]byte(middlewares.GetUserID(r.Context())))
})

func errCode(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var body struct {
		Code string `json:"code"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("unmarshal error body: %v", err)
	}
	return body.Code
}

func TestWithAuth(t *testing.T) {
	e := newAuthEnv(t)
	userID, token := e.loginUser(t, true)
	h := middlewares.WithAuth(e.issuer, e.sessions, e.store)(okHandler)

	t.Run("valid token", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("Authorization", "Bearer "+token)
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		if rec.Code != http.StatusOK || rec.Body.String() != userID {
			t.Fatalf("got %d %q", rec.Code, rec.Body.String())
		}
	})

	t.Run("missing token", func(t *testing.T) {
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
		if rec.Code != http.StatusUnauthorized || errCode(t, rec) != "TOKEN_MISSING" {
			t.Fatalf("got %d %s", rec.Code, rec.Body.String())
		}
	})

	t.Run("garbage token", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("Authorization", "Bearer basura")
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		if rec.Code != http.StatusUnauthorized || errCode(t, rec) != "TOKEN_INVALID" {
			t.Fatalf("got %d %s", rec.Code, rec.Body.String())
		}
	})

	t.Run("revoked session", func(t *testing.T) {
		cl, _ := e.issuer.VerifyAccess(token)
		if err := e.sessions.Revoke(context.Background(), cl.SessionID); err != nil {
			t.Fatalf("Revoke: %v", err)
		}
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("Authorization", "Bearer "+token)
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		if rec.Code != http.StatusUnauthorized || errCode(t, rec) != "SESSION_EXPIRED" {
			t.Fatalf("got %d %s", rec.Code, rec.Body.String())
		}
	})
}

func TestWithAuth_InactiveUser(t *testing.T) {
	e := newAuthEnv(t)
	userID, token := e.loginUser(t, true)
	h := middlewares.WithAuth(e.issuer, e.sessions, e.store)(okHandler)

	if err := e.store.Users().SetActive(context.Background(), userID, false); err != nil {
		t.Fatalf("SetActive: %v", err)
	}

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusForbidden || errCode(t, rec) != "ACCOUNT_INACTIVE" {
		t.Fatalf("got %d %s", rec.Code, rec.Body.String())
	}
}

func newGate(e *authEnv) *middlewares.Gate {
	resolver := rbac.NewResolver(e.store, cache.NewGuarded(cache.NewMemory("")))
	return middlewares.NewGate(resolver, audit.NewLogger())
}

// withIdentity simula WithAuth inyectando claims y rol directo al contexto.
func withIdentity(userID, sessionID, role string, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := middlewares.WithClaims(r.Context(), &jwtx.Claims{UserID: userID, SessionID: sessionID})
		ctx = middlewares.WithRole(ctx, role)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func TestGate_Require(t *testing.T) {
	e := newAuthEnv(t)
	perm := e.store.SeedPermission(repository.Permission{Name: "blogs:delete"})
	mod := e.store.SeedRole(repository.Role{Name: "moderator"})
	e.store.Grant(mod.ID, perm.ID)
	gate := newGate(e)

	protected := gate.Require("blogs:delete")(okHandler)

	rec := httptest.NewRecorder()
	withIdentity("u1", "s1", "moderator", protected).ServeHTTP(rec, httptest.NewRequest(http.MethodDelete, "/blogs/1", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("moderator: got %d %s", rec.Code, rec.Body.String())
	}

	rec = httptest.NewRecorder()
	withIdentity("u1", "s1", "user", protected).ServeHTTP(rec, httptest.NewRequest(http.MethodDelete, "/blogs/1", nil))
	if rec.Code != http.StatusForbidden {
		t.Fatalf("user: got %d %s", rec.Code, rec.Body.String())
	}
	// el detalle informa permiso y rol
	var denied struct {
		Detail string `json:"detail"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &denied); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if !strings.Contains(denied.Detail, "blogs:delete") || !strings.Contains(denied.Detail, "user") {
		t.Fatalf("detail = %q, want permission and role", denied.Detail)
	}

	// sin identidad en el contexto
	rec = httptest.NewRecorder()
	protected.ServeHTTP(rec, httptest.NewRequest(http.MethodDelete, "/blogs/1", nil))
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("anonymous: got %d %s", rec.Code, rec.Body.String())
	}
}

func TestGate_RequireOrOwner(t *testing.T) {
	e := newAuthEnv(t)
	gate := newGate(e)

	owner := func(r *http.Request) string { return r.Header.Get("X-Resource-Owner") }
	protected := gate.RequireOrOwner("blogs:update", owner)(okHandler)

	// el dueño pasa sin permiso
	req := httptest.NewRequest(http.MethodPut, "/blogs/1", nil)
	req.Header.Set("X-Resource-Owner", "u1")
	rec := httptest.NewRecorder()
	withIdentity("u1", "s1", "user", protected).ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("owner: got %d %s", rec.Code, rec.Body.String())
	}

	// otro usuario sin permiso no pasa
	req = httptest.NewRequest(http.MethodPut, "/blogs/1", nil)
	req.Header.Set("X-Resource-Owner", "u2")
	rec = httptest.NewRecorder()
	withIdentity("u1", "s1", "user", protected).ServeHTTP(rec, req)
	if rec.Code != http.StatusForbidden {
		t.Fatalf("non-owner: got %d %s", rec.Code, rec.Body.String())
	}

	// super_admin pasa siempre
	req = httptest.NewRequest(http.MethodPut, "/blogs/1", nil)
	req.Header.Set("X-Resource-Owner", "u2")
	rec = httptest.NewRecorder()
	withIdentity("u1", "s1", "super_admin", protected).ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("super_admin: got %d %s", rec.Code, rec.Body.String())
	}
}

func TestWithRateLimit(t *testing.T) {
	guarded := cache.NewGuarded(cache.NewMemory(""))
	h := middlewares.WithRateLimit(guarded, 3, time.Minute)(okHandler)

	for i := 0; i < 3; i++ {
		req := httptest.NewRequest(http.MethodPost, "/auth/login", nil)
		req.RemoteAddr = "10.0.0.1:1234"
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		if rec.Code != http.StatusOK {
			t.Fatalf("request %d: got %d", i+1, rec.Code)
		}
	}

	req := httptest.NewRequest(http.MethodPost, "/auth/login", nil)
	req.RemoteAddr = "10.0.0.1:1234"
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusTooManyRequests {
		t.Fatalf("4th request: got %d", rec.Code)
	}
	if rec.Header().Get("Retry-After") == "" {
		t.Error("missing Retry-After header")
	}

	// otra IP no comparte el contador
	req = httptest.NewRequest(http.MethodPost, "/auth/login", nil)
	req.RemoteAddr = "10.0.0.2:1234"
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("other ip: got %d", rec.Code)
	}
}
