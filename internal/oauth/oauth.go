// Package oauth verifica tokens de providers externos (Google, Facebook,
// Discord) contra sus endpoints de userinfo y normaliza la identidad.
//
// Una verificación fallida retorna siempre ErrVerificationFailed; el
// detalle del provider solo se loguea, nunca viaja al cliente.
package oauth

import (
	"context"
	"errors"
	"net/http"
	"time"
)

// ErrVerificationFailed indica que el provider no validó el token.
var ErrVerificationFailed = errors.New("oauth token verification failed")

// Identity es la identidad normalizada que retorna un provider.
type Identity struct {
	Provider      string
	Subject       string // id estable del usuario en el provider
	Email         string
	EmailVerified bool
	Name          string
	Picture       string
}

// Verifier valida un access token de provider y retorna la identidad.
type Verifier interface {
	Provider() string
	Verify(ctx context.Context, accessToken string) (*Identity, error)
}

// Registry resuelve verifiers por nombre de provider.
type Registry struct {
	verifiers map[string]Verifier
}

// NewRegistry construye el registry con los verifiers dados.
func NewRegistry(vs ...Verifier) *Registry {
	m := make(map[string]Verifier, len(vs))
	for _, v := range vs {
		m[v.Provider()] = v
	}
	return &Registry{verifiers: m}
}

// Lookup retorna el verifier del provider, o false si no está soportado.
func (r *Registry) Lookup(provider string) (Verifier, bool) {
	v, ok := r.verifiers[provider]
	return v, ok
}

func newHTTPClient() *http.Client {
	return &http.Client{Timeout: 10 * time.Second}
}
