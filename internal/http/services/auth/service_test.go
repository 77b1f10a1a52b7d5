package auth_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/wayfarerhq/wayfarer/internal/cache"
	"github.com/wayfarerhq/wayfarer/internal/domain/repository"
	"github.com/wayfarerhq/wayfarer/internal/email"
	"github.com/wayfarerhq/wayfarer/internal/http/services/auth"
	jwtx "github.com/wayfarerhq/wayfarer/internal/jwt"
	"github.com/wayfarerhq/wayfarer/internal/oauth"
	"github.com/wayfarerhq/wayfarer/internal/rate"
	"github.com/wayfarerhq/wayfarer/internal/session"
	"github.com/wayfarerhq/wayfarer/internal/store/memory"
)

type sentMail struct {
	to, subject string
}

type fakeSender struct {
	sent []sentMail
	err  error
}

func (f *fakeSender) Send(to, subject, htmlBody, textBody string) error {
	if f.err != nil {
		return f.err
	}
	f.sent = append(f.sent, sentMail{to: to, subject: subject})
	return nil
}

type fakeVerifier struct {
	name     string
	identity *oauth.Identity
	err      error
}

func (f *fakeVerifier) Provider() string { return f.name }
func (f *fakeVerifier) Verify(ctx context.Context, accessToken string) (*oauth.Identity, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.identity, nil
}

type fixture struct {
	svc     *auth.Service
	store   *memory.Store
	issuer  *jwtx.Issuer
	lockout *rate.Lockout
	mailer  *fakeSender
	guarded *cache.Guarded
}

func newFixture(t *testing.T, verifiers ...oauth.Verifier) *fixture {
	t.Helper()

	store := memory.New()
	store.SeedRole(repository.Role{Name: "user", Level: 1})

	issuer, err := jwtx.NewIssuer("test", []byte("acc-secret"), []byte("ref-secret"), 15*time.Minute, time.Hour)
	if err != nil {
		t.Fatalf("NewIssuer: %v", err)
	}
	guarded := cache.NewGuarded(cache.NewMemory(""))
	sessions := session.New(store, guarded, issuer, time.Hour)
	lockout := rate.NewLockout(guarded)
	mailer := &fakeSender{}

	svc := auth.NewService(auth.Deps{
		Store:     store,
		Sessions:  sessions,
		Issuer:    issuer,
		Lockout:   lockout,
		Email:     email.NewService(mailer, "https://app.test"),
		Providers: oauth.NewRegistry(verifiers...),
	})
	return &fixture{svc: svc, store: store, issuer: issuer, lockout: lockout, mailer: mailer, guarded: guarded}
}

func (f *fixture) register(t *testing.T) *auth.Result {
	t.Helper()
	res, err := f.svc.Register(context.Background(), auth.RegisterInput{
		Email:    "ana@example.com",
		Username: "ana",
		Password: "password-larga",
	}, auth.LoginMeta{})
	if err != nil {
		t.Fatalf("Register: %v", err)
	}
	return res
}

func (f *fixture) verifyEmail(t *testing.T, userID string) {
	t.Helper()
	tok, err := f.issuer.IssueTyped(userID, jwtx.TokenEmailVerification, time.Hour)
	if err != nil {
		t.Fatalf("IssueTyped: %v", err)
	}
	if err := f.svc.VerifyEmail(context.Background(), tok); err != nil {
		t.Fatalf("VerifyEmail: %v", err)
	}
}

func TestRegister(t *testing.T) {
	f := newFixture(t)
	res := f.register(t)

	if res.User.EmailVerified {
		t.Error("new account born verified")
	}
	if res.RoleName != "user" {
		t.Errorf("role = %q", res.RoleName)
	}
	if res.AccessToken == "" || res.RefreshToken == "" {
		t.Error("missing tokens")
	}
	if len(f.mailer.sent) != 1 || f.mailer.sent[0].to != "ana@example.com" {
		t.Errorf("verification mail = %+v", f.mailer.sent)
	}

	// el access token sale verificable y atado a una sesión viva
	cl, err := f.issuer.VerifyAccess(res.AccessToken)
	if err != nil {
		t.Fatalf("VerifyAccess: %v", err)
	}
	if cl.UserID != res.User.ID || cl.SessionID == "" {
		t.Fatalf("claims = %+v", cl)
	}
}

func TestRegister_Validation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	cases := []struct {
		name string
		in   auth.RegisterInput
		want error
	}{
		{"missing email", auth.RegisterInput{Username: "ana", Password: "password-larga"}, auth.ErrMissingFields},
		{"missing username", auth.RegisterInput{Email: "a@b.co", Password: "password-larga"}, auth.ErrMissingFields},
		{"missing password", auth.RegisterInput{Email: "a@b.co", Username: "ana"}, auth.ErrMissingFields},
		{"bad email", auth.RegisterInput{Email: "no-es-email", Username: "ana", Password: "password-larga"}, auth.ErrInvalidEmail},
		{"short password", auth.RegisterInput{Email: "a@b.co", Username: "ana", Password: "corta"}, auth.ErrWeakPassword},
	}
	for _, c := range cases {
		if _, err := f.svc.Register(ctx, c.in, auth.LoginMeta{}); !errors.Is(err, c.want) {
			t.Errorf("%s: err = %v, want %v", c.name, err, c.want)
		}
	}
}

func TestRegister_Duplicates(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.register(t)

	_, err := f.svc.Register(ctx, auth.RegisterInput{
		Email: "ana@example.com", Username: "otra", Password: "password-larga",
	}, auth.LoginMeta{})
	if !errors.Is(err, auth.ErrEmailTaken) {
		t.Errorf("email dup: err = %v, want ErrEmailTaken", err)
	}

	_, err = f.svc.Register(ctx, auth.RegisterInput{
		Email: "otra@example.com", Username: "ana", Password: "password-larga",
	}, auth.LoginMeta{})
	if !errors.Is(err, auth.ErrUsernameTaken) {
		t.Errorf("username dup: err = %v, want ErrUsernameTaken", err)
	}
}

func TestLogin_Unverified(t *testing.T) {
	f := newFixture(t)
	f.register(t)

	_, err := f.svc.Login(context.Background(), "ana@example.com", "password-larga", auth.LoginMeta{})
	if !errors.Is(err, auth.ErrEmailNotVerified) {
		t.Fatalf("err = %v, want ErrEmailNotVerified", err)
	}
}

func TestLogin_Success(t *testing.T) {
	f := newFixture(t)
	res := f.register(t)
	f.verifyEmail(t, res.User.ID)

	out, err := f.svc.Login(context.Background(), "Ana@Example.com", "password-larga", auth.LoginMeta{
		IPAddress: "10.0.0.1", UserAgent: "test",
	})
	if err != nil {
		t.Fatalf("Login: %v", err)
	}
	if out.AccessToken == "" || out.RefreshToken == "" {
		t.Error("missing tokens")
	}
	if !out.User.EmailVerified {
		t.Error("user not verified in result")
	}
}

func TestLogin_AntiEnumeration(t *testing.T) {
	f := newFixture(t)
	res := f.register(t)
	f.verifyEmail(t, res.User.ID)
	ctx := context.Background()

	_, errUnknown := f.svc.Login(ctx, "nadie@example.com", "password-larga", auth.LoginMeta{})
	_, errWrongPass := f.svc.Login(ctx, "ana@example.com", "password-incorrecta", auth.LoginMeta{})

	if !errors.Is(errUnknown, auth.ErrInvalidCredentials) || !errors.Is(errWrongPass, auth.ErrInvalidCredentials) {
		t.Fatalf("unknown = %v, wrong pass = %v; both must be ErrInvalidCredentials", errUnknown, errWrongPass)
	}
}

func TestLogin_LockoutAfterFiveFailures(t *testing.T) {
	f := newFixture(t)
	res := f.register(t)
	f.verifyEmail(t, res.User.ID)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		if _, err := f.svc.Login(ctx, "ana@example.com", "mala", auth.LoginMeta{}); !errors.Is(err, auth.ErrInvalidCredentials) {
			t.Fatalf("attempt %d: %v", i+1, err)
		}
	}

	// el sexto intento falla locked aunque la password sea la correcta
	if _, err := f.svc.Login(ctx, "ana@example.com", "password-larga", auth.LoginMeta{}); !errors.Is(err, auth.ErrAccountLocked) {
		t.Fatalf("6th attempt: err = %v, want ErrAccountLocked", err)
	}

	// el lock quedó persistido en la fila
	row, err := f.store.Users().GetByID(ctx, res.User.ID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if row.LockUntil == nil || !row.LockUntil.After(time.Now().UTC()) {
		t.Error("lock state not persisted")
	}
}

func TestLogin_DBLockSurvivesColdCache(t *testing.T) {
	f := newFixture(t)
	res := f.register(t)
	f.verifyEmail(t, res.User.ID)
	ctx := context.Background()

	until := time.Now().UTC().Add(time.Hour)
	if err := f.store.Users().SetLockState(ctx, res.User.ID, 5, &until); err != nil {
		t.Fatalf("SetLockState: %v", err)
	}

	// el cache no sabe nada del lock; la fila alcanza
	if _, err := f.svc.Login(ctx, "ana@example.com", "password-larga", auth.LoginMeta{}); !errors.Is(err, auth.ErrAccountLocked) {
		t.Fatalf("err = %v, want ErrAccountLocked", err)
	}
}

func TestLogin_SuccessResetsCounter(t *testing.T) {
	f := newFixture(t)
	res := f.register(t)
	f.verifyEmail(t, res.User.ID)
	ctx := context.Background()

	for i := 0; i < 4; i++ {
		f.svc.Login(ctx, "ana@example.com", "mala", auth.LoginMeta{})
	}
	if _, err := f.svc.Login(ctx, "ana@example.com", "password-larga", auth.LoginMeta{}); err != nil {
		t.Fatalf("Login: %v", err)
	}
	if got := f.lockout.Attempts(ctx, "ana@example.com"); got != 0 {
		t.Fatalf("Attempts = %d, want 0", got)
	}

	// cuatro fallos nuevos no bloquean: el contador arrancó de cero
	for i := 0; i < 4; i++ {
		f.svc.Login(ctx, "ana@example.com", "mala", auth.LoginMeta{})
	}
	if _, err := f.svc.Login(ctx, "ana@example.com", "password-larga", auth.LoginMeta{}); err != nil {
		t.Fatalf("Login after reset: %v", err)
	}
}

func TestLogin_Inactive(t *testing.T) {
	f := newFixture(t)
	res := f.register(t)
	f.verifyEmail(t, res.User.ID)
	ctx := context.Background()

	if err := f.store.Users().SetActive(ctx, res.User.ID, false); err != nil {
		t.Fatalf("SetActive: %v", err)
	}
	if _, err := f.svc.Login(ctx, "ana@example.com", "password-larga", auth.LoginMeta{}); !errors.Is(err, auth.ErrAccountInactive) {
		t.Fatalf("err = %v, want ErrAccountInactive", err)
	}
}

func TestVerifyEmail(t *testing.T) {
	f := newFixture(t)
	res := f.register(t)
	ctx := context.Background()

	tok, err := f.issuer.IssueTyped(res.User.ID, jwtx.TokenEmailVerification, time.Hour)
	if err != nil {
		t.Fatalf("IssueTyped: %v", err)
	}
	if err := f.svc.VerifyEmail(ctx, tok); err != nil {
		t.Fatalf("VerifyEmail: %v", err)
	}

	// segunda verificación con token válido
	if err := f.svc.VerifyEmail(ctx, tok); !errors.Is(err, auth.ErrAlreadyVerified) {
		t.Errorf("re-verify: err = %v, want ErrAlreadyVerified", err)
	}

	// token basura
	if err := f.svc.VerifyEmail(ctx, "basura"); !errors.Is(err, auth.ErrInvalidToken) {
		t.Errorf("garbage: err = %v, want ErrInvalidToken", err)
	}

	// un access token no sirve como token de verificación
	access, _ := f.issuer.IssueAccess(res.User.ID, "s")
	if err := f.svc.VerifyEmail(ctx, access); !errors.Is(err, auth.ErrInvalidToken) {
		t.Errorf("access as verify: err = %v, want ErrInvalidToken", err)
	}
}

func TestResendVerification(t *testing.T) {
	f := newFixture(t)
	res := f.register(t)
	ctx := context.Background()
	f.mailer.sent = nil

	if err := f.svc.ResendVerification(ctx, "ana@example.com"); err != nil {
		t.Fatalf("ResendVerification: %v", err)
	}
	if len(f.mailer.sent) != 1 {
		t.Fatalf("sent = %d, want 1", len(f.mailer.sent))
	}

	// email desconocido responde igual que uno válido
	if err := f.svc.ResendVerification(ctx, "nadie@example.com"); err != nil {
		t.Fatalf("unknown email: %v", err)
	}

	f.verifyEmail(t, res.User.ID)
	if err := f.svc.ResendVerification(ctx, "ana@example.com"); !errors.Is(err, auth.ErrAlreadyVerified) {
		t.Fatalf("verified: err = %v, want ErrAlreadyVerified", err)
	}

	// acá el fallo de SMTP sí se escala
	f2 := newFixture(t)
	f2.register(t)
	f2.mailer.err = errors.New("smtp caído")
	if err := f2.svc.ResendVerification(ctx, "ana@example.com"); err == nil {
		t.Fatal("smtp failure swallowed")
	}
}

func TestRegister_SMTPDownStillRegisters(t *testing.T) {
	f := newFixture(t)
	f.mailer.err = errors.New("smtp caído")

	res, err := f.svc.Register(context.Background(), auth.RegisterInput{
		Email: "ana@example.com", Username: "ana", Password: "password-larga",
	}, auth.LoginMeta{})
	if err != nil {
		t.Fatalf("Register with smtp down: %v", err)
	}
	if res.AccessToken == "" {
		t.Error("missing access token")
	}
}

func TestLogout_Idempotent(t *testing.T) {
	f := newFixture(t)
	res := f.register(t)
	ctx := context.Background()

	cl, _ := f.issuer.VerifyAccess(res.AccessToken)
	if err := f.svc.Logout(ctx, cl.SessionID); err != nil {
		t.Fatalf("Logout: %v", err)
	}
	if err := f.svc.Logout(ctx, cl.SessionID); err != nil {
		t.Fatalf("second Logout: %v", err)
	}
	if err := f.svc.Logout(ctx, ""); err != nil {
		t.Fatalf("empty session id: %v", err)
	}
}
