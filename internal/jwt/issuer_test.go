package jwt_test

import (
	"errors"
	"testing"
	"time"

	jwtx "github.com/wayfarerhq/wayfarer/internal/jwt"
)

func newIssuer(t *testing.T) *jwtx.Issuer {
	t.Helper()
	iss, err := jwtx.NewIssuer("wayfarer-test", []byte("access-secret"), []byte("refresh-secret"), 15*time.Minute, 7*24*time.Hour)
	if err != nil {
		t.Fatalf("NewIssuer: %v", err)
	}
	return iss
}

func TestIssueAccess_RoundTrip(t *testing.T) {
	iss := newIssuer(t)

	tok, err := iss.IssueAccess("user-1", "sess-1")
	if err != nil {
		t.Fatalf("IssueAccess: %v", err)
	}

	cl, err := iss.VerifyAccess(tok)
	if err != nil {
		t.Fatalf("VerifyAccess: %v", err)
	}
	if cl.UserID != "user-1" {
		t.Errorf("UserID = %q, want user-1", cl.UserID)
	}
	if cl.SessionID != "sess-1" {
		t.Errorf("SessionID = %q, want sess-1", cl.SessionID)
	}
	if cl.Type != jwtx.TokenAccess {
		t.Errorf("Type = %q, want access", cl.Type)
	}
	if time.Until(cl.ExpiresAt) <= 0 {
		t.Error("ExpiresAt already in the past")
	}
}

func TestVerify_CrossTypeRejected(t *testing.T) {
	iss := newIssuer(t)

	refresh, err := iss.IssueRefresh("user-1", "sess-1")
	if err != nil {
		t.Fatalf("IssueRefresh: %v", err)
	}
	if _, err := iss.VerifyAccess(refresh); !errors.Is(err, jwtx.ErrTokenInvalid) {
		t.Errorf("refresh as access: err = %v, want ErrTokenInvalid", err)
	}

	access, err := iss.IssueAccess("user-1", "sess-1")
	if err != nil {
		t.Fatalf("IssueAccess: %v", err)
	}
	if _, err := iss.VerifyRefresh(access); !errors.Is(err, jwtx.ErrTokenInvalid) {
		t.Errorf("access as refresh: err = %v, want ErrTokenInvalid", err)
	}

	verify, err := iss.IssueTyped("user-1", jwtx.TokenEmailVerification, time.Hour)
	if err != nil {
		t.Fatalf("IssueTyped: %v", err)
	}
	if _, err := iss.VerifyAccess(verify); !errors.Is(err, jwtx.ErrTokenInvalid) {
		t.Errorf("email token as access: err = %v, want ErrTokenInvalid", err)
	}
	if _, err := iss.VerifyTyped(verify, jwtx.TokenEmailVerification); err != nil {
		t.Errorf("email token as typed: %v", err)
	}
}

func TestVerify_Expired(t *testing.T) {
	iss := newIssuer(t)
	iss.AccessTTL = -time.Minute

	tok, err := iss.IssueAccess("user-1", "sess-1")
	if err != nil {
		t.Fatalf("IssueAccess: %v", err)
	}
	if _, err := iss.VerifyAccess(tok); !errors.Is(err, jwtx.ErrTokenExpired) {
		t.Errorf("err = %v, want ErrTokenExpired", err)
	}
}

func TestVerify_WrongSecret(t *testing.T) {
	iss := newIssuer(t)
	other, err := jwtx.NewIssuer("wayfarer-test", []byte("otro-access"), []byte("otro-refresh"), time.Minute, time.Hour)
	if err != nil {
		t.Fatalf("NewIssuer: %v", err)
	}

	tok, err := iss.IssueAccess("user-1", "sess-1")
	if err != nil {
		t.Fatalf("IssueAccess: %v", err)
	}
	if _, err := other.VerifyAccess(tok); !errors.Is(err, jwtx.ErrTokenInvalid) {
		t.Errorf("err = %v, want ErrTokenInvalid", err)
	}
}

func TestVerify_Garbage(t *testing.T) {
	iss := newIssuer(t)
	for _, tok := range []string{"", "no-es-un-jwt", "a.b.c"} {
		if _, err := iss.VerifyAccess(tok); !errors.Is(err, jwtx.ErrTokenInvalid) {
			t.Errorf("VerifyAccess(%q): err = %v, want ErrTokenInvalid", tok, err)
		}
	}
}

func TestIssueTyped_RefusesRefresh(t *testing.T) {
	iss := newIssuer(t)
	if _, err := iss.IssueTyped("user-1", jwtx.TokenRefresh, time.Hour); err == nil {
		t.Fatal("expected error issuing refresh via IssueTyped")
	}
}
