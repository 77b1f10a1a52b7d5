package password_test

import (
	"testing"

	"github.com/wayfarerhq/wayfarer/internal/security/password"
)

func TestHashAndVerify(t *testing.T) {
	h, err := password.Hash("hunter2segura", password.MinCost)
	if err != nil {
		t.Fatalf("Hash: %v", err)
	}
	if h == "hunter2segura" {
		t.Fatal("hash equals plaintext")
	}

	if !password.Verify(&h, "hunter2segura") {
		t.Error("Verify rejected correct password")
	}
	if password.Verify(&h, "otra-cosa") {
		t.Error("Verify accepted wrong password")
	}
}

func TestHash_EmptyPassword(t *testing.T) {
	if _, err := password.Hash("", password.MinCost); err == nil {
		t.Fatal("expected error for empty password")
	}
}

func TestVerify_NilHash(t *testing.T) {
	// cuentas OAuth-only no tienen hash
	if password.Verify(nil, "lo-que-sea") {
		t.Error("nil hash verified")
	}
	empty := ""
	if password.Verify(&empty, "lo-que-sea") {
		t.Error("empty hash verified")
	}
	h, err := password.Hash("hunter2segura", password.MinCost)
	if err != nil {
		t.Fatalf("Hash: %v", err)
	}
	if password.Verify(&h, "") {
		t.Error("empty plain verified")
	}
}
