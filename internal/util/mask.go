// Package util tiene helpers chicos sin dependencias.
package util

import "strings"

// MaskEmail reduce un email a una forma segura para logs:
// "juan@example.com" -> "j…@e….com". Entradas sin "@" se truncan.
func MaskEmail(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" {
		return ""
	}
	i := strings.IndexByte(s, '@')
	if i <= 0 {
		if len(s) <= 3 {
			return "***"
		}
		return s[:1] + "…" + s[len(s)-1:]
	}
	user, dom := s[:i], s[i+1:]
	if len(user) > 1 {
		user = user[:1] + "…"
	}
	if j := strings.IndexByte(dom, '.'); j > 1 {
		dom = dom[:1] + "…" + dom[j:]
	}
	return user + "@" + dom
}
