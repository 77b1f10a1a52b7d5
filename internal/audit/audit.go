// Package audit emite eventos de auditoría de autorización. El sink es el
// logger estructurado; un sink externo puede colgarse del mismo named
// logger sin tocar a los callers.
package audit

import (
	"context"

	"go.uber.org/zap"

	"github.com/wayfarerhq/wayfarer/internal/observability/logger"
)

// Event describe una decisión de autorización.
type Event struct {
	UserID     string
	Action     string // ej. "access_check", "login", "logout"
	Role       string
	Permission string
	IsOwner    bool
	Allowed    bool
	IP         string
	Path       string
}

// Logger escribe eventos de auditoría.
type Logger struct {
	log *zap.Logger
}

// NewLogger construye el audit logger sobre el logger global.
func NewLogger() *Logger {
	return &Logger{log: logger.Named("audit")}
}

// Record emite el evento. Nunca falla: auditar no bloquea la request.
func (l *Logger) Record(ctx context.Context, ev Event) {
	l.log.Info("authorization decision",
		logger.UserID(ev.UserID),
		logger.String("action", ev.Action),
		logger.Role(ev.Role),
		logger.Permission(ev.Permission),
		logger.Bool("is_owner", ev.IsOwner),
		logger.Bool("allowed", ev.Allowed),
		logger.ClientIP(ev.IP),
		logger.Path(ev.Path),
	)
}
