// Package validation valida los nombres que viajan por la API de RBAC.
package validation

import "regexp"

// Reglas de nombre de permiso:
// - Solo minúsculas.
// - Empieza y termina en [a-z0-9].
// - En el medio se admite [a-z0-9:_.-].
// - Largo 1..64.
//
// Válidos: blogs:create, comments:moderate, users:manage, a
// Inválidos: ;hack, BAD, "con espacio", :lead, trail:, "", 65+ chars.
var permissionNameRe = regexp.MustCompile(`^[a-z0-9](?:[a-z0-9:_\.-]{0,62}[a-z0-9])?$`)

// Los roles no llevan ":" (eso es de permisos).
var roleNameRe = regexp.MustCompile(`^[a-z0-9](?:[a-z0-9_-]{0,62}[a-z0-9])?$`)

// ValidPermissionName indica si name cumple el patrón de permisos.
func ValidPermissionName(name string) bool {
	return permissionNameRe.MatchString(name)
}

// ValidRoleName indica si name cumple el patrón de roles.
func ValidRoleName(name string) bool {
	return roleNameRe.MatchString(name)
}
