// Package controllers adapta los services a la superficie HTTP JSON.
package controllers

import (
	"encoding/json"
	"net"
	"net/http"
	"strings"

	httperrors "github.com/wayfarerhq/wayfarer/internal/http/errors"
)

const maxBodyBytes = 1 << 20 // 1 MiB

// decodeJSON parsea el body en dst con límite de tamaño.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return httperrors.ErrInvalidJSON.WithCause(err)
	}
	return nil
}

// writeJSON serializa la respuesta con el status dado.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// clientIP extrae la IP real del cliente considerando proxies.
func clientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		if i := strings.IndexByte(xff, ','); i > 0 {
			return strings.TrimSpace(xff[:i])
		}
		return strings.TrimSpace(xff)
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
