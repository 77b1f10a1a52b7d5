package oauth

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestGoogleVerify(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer tok-valido" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"sub":"g-123","email":"ana@gmail.com","email_verified":true,"name":"Ana","picture":"https://p.example/a.png"}`))
	}))
	defer srv.Close()

	g := NewGoogle()
	g.userinfoURL = srv.URL

	id, err := g.Verify(context.Background(), "tok-valido")
	if err != nil {
		t.Fatalf("Verify: %v", err)
	}
	if id.Provider != "google" || id.Subject != "g-123" || !id.EmailVerified {
		t.Fatalf("identity = %+v", id)
	}

	if _, err := g.Verify(context.Background(), "tok-malo"); !errors.Is(err, ErrVerificationFailed) {
		t.Fatalf("rejected token: err = %v, want ErrVerificationFailed", err)
	}
}

func TestGoogleVerify_MalformedBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"email":"sin-sub@gmail.com"}`))
	}))
	defer srv.Close()

	g := NewGoogle()
	g.userinfoURL = srv.URL
	if _, err := g.Verify(context.Background(), "tok"); !errors.Is(err, ErrVerificationFailed) {
		t.Fatalf("err = %v, want ErrVerificationFailed", err)
	}
}

func TestFacebookVerify(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("access_token") != "tok-fb" {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		w.Write([]byte(`{"id":"fb-9","name":"Ana","email":"ana@example.com","picture":{"data":{"url":"https://fb/p.jpg"}}}`))
	}))
	defer srv.Close()

	f := NewFacebook()
	f.graphURL = srv.URL

	id, err := f.Verify(context.Background(), "tok-fb")
	if err != nil {
		t.Fatalf("Verify: %v", err)
	}
	if id.Subject != "fb-9" || !id.EmailVerified || id.Picture != "https://fb/p.jpg" {
		t.Fatalf("identity = %+v", id)
	}
}

func TestFacebookVerify_NoEmail(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"id":"fb-9","name":"Ana"}`))
	}))
	defer srv.Close()

	f := NewFacebook()
	f.graphURL = srv.URL
	id, err := f.Verify(context.Background(), "tok")
	if err != nil {
		t.Fatalf("Verify: %v", err)
	}
	if id.EmailVerified {
		t.Error("missing email marked as verified")
	}
}

func TestDiscordVerify(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"id":"d-7","username":"ana","email":"ana@example.com","verified":true,"avatar":"abc"}`))
	}))
	defer srv.Close()

	d := NewDiscord()
	d.meURL = srv.URL

	id, err := d.Verify(context.Background(), "tok")
	if err != nil {
		t.Fatalf("Verify: %v", err)
	}
	if id.Subject != "d-7" || id.Name != "ana" {
		t.Fatalf("identity = %+v", id)
	}
	if id.Picture != "https://cdn.discordapp.com/avatars/d-7/abc.png" {
		t.Errorf("picture = %q", id.Picture)
	}
}

func TestRegistry(t *testing.T) {
	reg := NewRegistry(NewGoogle(), NewDiscord())

	if v, ok := reg.Lookup("google"); !ok || v.Provider() != "google" {
		t.Fatal("google lookup failed")
	}
	if _, ok := reg.Lookup("github"); ok {
		t.Fatal("unsupported provider resolved")
	}
}
