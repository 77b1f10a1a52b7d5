package auth_test

import (
	"context"
	"errors"
	"testing"

	"github.com/wayfarerhq/wayfarer/internal/http/services/auth"
	"github.com/wayfarerhq/wayfarer/internal/oauth"
)

func loginVerified(t *testing.T, f *fixture) *auth.Result {
	t.Helper()
	res := f.register(t)
	f.verifyEmail(t, res.User.ID)
	out, err := f.svc.Login(context.Background(), "ana@example.com", "password-larga", auth.LoginMeta{})
	if err != nil {
		t.Fatalf("Login: %v", err)
	}
	return out
}

func TestRefresh_Rotation(t *testing.T) {
	f := newFixture(t)
	res := loginVerified(t, f)
	ctx := context.Background()

	pair, err := f.svc.Refresh(ctx, res.RefreshToken)
	if err != nil {
		t.Fatalf("Refresh: %v", err)
	}
	if pair.AccessToken == "" || pair.RefreshToken == "" {
		t.Fatal("missing tokens")
	}
	if pair.RefreshToken == res.RefreshToken {
		t.Fatal("refresh token not rotated")
	}

	// el nuevo access token conserva la sesión original
	oldClaims, _ := f.issuer.VerifyAccess(res.AccessToken)
	newClaims, err := f.issuer.VerifyAccess(pair.AccessToken)
	if err != nil {
		t.Fatalf("VerifyAccess: %v", err)
	}
	if newClaims.SessionID != oldClaims.SessionID {
		t.Error("rotation changed the session")
	}

	// el par nuevo se puede rotar de nuevo
	if _, err := f.svc.Refresh(ctx, pair.RefreshToken); err != nil {
		t.Fatalf("second rotation: %v", err)
	}
}

func TestRefresh_ReplayDetected(t *testing.T) {
	f := newFixture(t)
	res := loginVerified(t, f)
	ctx := context.Background()

	if _, err := f.svc.Refresh(ctx, res.RefreshToken); err != nil {
		t.Fatalf("Refresh: %v", err)
	}
	// reusar el token ya rotado: firma válida, registro revocado
	if _, err := f.svc.Refresh(ctx, res.RefreshToken); !errors.Is(err, auth.ErrRefreshRevoked) {
		t.Fatalf("replay: err = %v, want ErrRefreshRevoked", err)
	}
}

func TestRefresh_ConcurrentRotationSingleWinner(t *testing.T) {
	f := newFixture(t)
	res := loginVerified(t, f)
	ctx := context.Background()

	// Dos rotaciones simultáneas del mismo token: exactamente una gana,
	// la otra recibe la señal de replay.
	type outcome struct {
		pair *auth.TokenPair
		err  error
	}
	token := res.RefreshToken
	for i := 0; i < 50; i++ {
		results := make(chan outcome, 2)
		for g := 0; g < 2; g++ {
			go func() {
				pair, err := f.svc.Refresh(ctx, token)
				results <- outcome{pair: pair, err: err}
			}()
		}

		var winners int
		var next string
		for g := 0; g < 2; g++ {
			out := <-results
			switch {
			case out.err == nil:
				winners++
				next = out.pair.RefreshToken
			case errors.Is(out.err, auth.ErrRefreshRevoked):
			default:
				t.Fatalf("iter %d: err = %v", i, out.err)
			}
		}
		if winners != 1 {
			t.Fatalf("iter %d: %d concurrent rotations succeeded, want exactly 1", i, winners)
		}
		token = next
	}
}

func TestRefresh_Garbage(t *testing.T) {
	f := newFixture(t)
	loginVerified(t, f)

	if _, err := f.svc.Refresh(context.Background(), "no-es-un-jwt"); !errors.Is(err, auth.ErrRefreshInvalid) {
		t.Fatalf("err = %v, want ErrRefreshInvalid", err)
	}
}

func TestRefresh_SessionRevoked(t *testing.T) {
	f := newFixture(t)
	res := loginVerified(t, f)
	ctx := context.Background()

	cl, _ := f.issuer.VerifyAccess(res.AccessToken)
	if err := f.svc.Logout(ctx, cl.SessionID); err != nil {
		t.Fatalf("Logout: %v", err)
	}

	// la sesión murió: el refresh atado a ella no rota más
	if _, err := f.svc.Refresh(ctx, res.RefreshToken); !errors.Is(err, auth.ErrRefreshRevoked) {
		t.Fatalf("err = %v, want ErrRefreshRevoked", err)
	}
}

func TestRevokeRefresh(t *testing.T) {
	f := newFixture(t)
	res := loginVerified(t, f)
	ctx := context.Background()

	if err := f.svc.RevokeRefresh(ctx, res.RefreshToken); err != nil {
		t.Fatalf("RevokeRefresh: %v", err)
	}
	// idempotente, incluso con tokens desconocidos
	if err := f.svc.RevokeRefresh(ctx, res.RefreshToken); err != nil {
		t.Fatalf("second revoke: %v", err)
	}
	if err := f.svc.RevokeRefresh(ctx, "desconocido"); err != nil {
		t.Fatalf("unknown token: %v", err)
	}

	if _, err := f.svc.Refresh(ctx, res.RefreshToken); !errors.Is(err, auth.ErrRefreshRevoked) {
		t.Fatalf("refresh after revoke: err = %v, want ErrRefreshRevoked", err)
	}
}

func TestListRefreshTokens(t *testing.T) {
	f := newFixture(t)
	res := loginVerified(t, f)
	ctx := context.Background()

	// register + login emitieron un refresh cada uno
	list, err := f.svc.ListRefreshTokens(ctx, res.User.ID)
	if err != nil {
		t.Fatalf("ListRefreshTokens: %v", err)
	}
	if len(list) != 2 {
		t.Fatalf("len = %d, want 2", len(list))
	}
	for _, tk := range list {
		if tk.TokenHash == res.RefreshToken {
			t.Fatal("raw refresh token persisted")
		}
	}
}

func TestLoginOAuth(t *testing.T) {
	fv := &fakeVerifier{name: "google", identity: &oauth.Identity{
		Provider: "google", Subject: "g-123", Email: "ana@gmail.com",
		EmailVerified: true, Name: "Ana Viajera",
	}}
	f := newFixture(t, fv)
	ctx := context.Background()

	res, err := f.svc.LoginOAuth(ctx, "google", "tok", auth.LoginMeta{})
	if err != nil {
		t.Fatalf("LoginOAuth: %v", err)
	}
	if res.User.PasswordHash != nil {
		t.Error("oauth account has a password hash")
	}
	if !res.User.EmailVerified {
		t.Error("provider-verified email not trusted")
	}
	if res.User.Username != "ana_viajera_g-123" {
		t.Errorf("username = %q", res.User.Username)
	}

	// segundo login reusa la cuenta
	again, err := f.svc.LoginOAuth(ctx, "google", "tok", auth.LoginMeta{})
	if err != nil {
		t.Fatalf("second LoginOAuth: %v", err)
	}
	if again.User.ID != res.User.ID {
		t.Error("second oauth login created a new account")
	}
}

func TestLoginOAuth_Failures(t *testing.T) {
	rejected := &fakeVerifier{name: "google", err: oauth.ErrVerificationFailed}
	f := newFixture(t, rejected)
	ctx := context.Background()

	if _, err := f.svc.LoginOAuth(ctx, "github", "tok", auth.LoginMeta{}); !errors.Is(err, auth.ErrUnsupportedProvider) {
		t.Fatalf("unsupported: err = %v, want ErrUnsupportedProvider", err)
	}
	if _, err := f.svc.LoginOAuth(ctx, "google", "tok-malo", auth.LoginMeta{}); !errors.Is(err, auth.ErrInvalidCredentials) {
		t.Fatalf("rejected: err = %v, want ErrInvalidCredentials", err)
	}
}

func TestLoginOAuth_EmailCollision(t *testing.T) {
	fv := &fakeVerifier{name: "google", identity: &oauth.Identity{
		Provider: "google", Subject: "g-123", Email: "ana@example.com", EmailVerified: true, Name: "Ana",
	}}
	f := newFixture(t, fv)
	f.register(t) // cuenta local con el mismo email

	if _, err := f.svc.LoginOAuth(context.Background(), "google", "tok", auth.LoginMeta{}); !errors.Is(err, auth.ErrEmailTaken) {
		t.Fatalf("err = %v, want ErrEmailTaken", err)
	}
}
