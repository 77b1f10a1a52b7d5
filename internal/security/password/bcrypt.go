// Package password encapsula hashing y verificación de contraseñas.
package password

import (
	"fmt"

	"golang.org/x/crypto/bcrypt"
)

// MinCost es el cost mínimo aceptado para producción.
const MinCost = 10

// DefaultCost es el cost usado cuando la configuración no especifica uno.
const DefaultCost = 12

// Hash genera un hash bcrypt del password con el cost dado.
// Cost por debajo de MinCost se eleva a MinCost.
func Hash(plain string, cost int) (string, error) {
	if plain == "" {
		return "", fmt.Errorf("empty password")
	}
	if cost < MinCost {
		cost = MinCost
	}
	b, err := bcrypt.GenerateFromPassword([]byte(plain), cost)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// Verify compara un password plano contra un hash almacenado.
// Un hash nil (cuenta OAuth-only) nunca verifica.
func Verify(hash *string, plain string) bool {
	if hash == nil || *hash == "" || plain == "" {
		return false
	}
	return bcrypt.CompareHashAndPassword([]byte(*hash), []byte(plain)) == nil
}
