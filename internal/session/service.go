// Package session gestiona los logins lógicos: creación, validación y
// revocación de sesiones.
//
// La fila en la base es la fuente de verdad; el cache acelera el lookup por
// request (write-through con TTL) y mantiene un índice por usuario. Con el
// cache deshabilitado todo degrada al store sin pérdida de corrección.
package session

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"github.com/wayfarerhq/wayfarer/internal/cache"
	"github.com/wayfarerhq/wayfarer/internal/domain/repository"
	jwtx "github.com/wayfarerhq/wayfarer/internal/jwt"
	"github.com/wayfarerhq/wayfarer/internal/observability/logger"
)

const (
	keySession      = "session:"
	keyUserSessions = "user_sessions:"

	// DefaultTTL es la vida de una sesión.
	DefaultTTL = 24 * time.Hour
)

// Service crea, valida y revoca sesiones.
type Service struct {
	store  repository.Store
	cache  *cache.Guarded
	issuer *jwtx.Issuer
	ttl    time.Duration
}

// New construye el Service. ttl <= 0 usa DefaultTTL.
func New(store repository.Store, guarded *cache.Guarded, issuer *jwtx.Issuer, ttl time.Duration) *Service {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Service{store: store, cache: guarded, issuer: issuer, ttl: ttl}
}

// Created es el resultado de crear una sesión.
type Created struct {
	Session *repository.Session
	Token   string // access token con {userId, sessionId} embebidos
}

// Create registra una nueva sesión y emite su access token.
func (s *Service) Create(ctx context.Context, userID, ipAddress, userAgent, deviceInfo string) (*Created, error) {
	input := repository.CreateSessionInput{
		ID:         uuid.NewString(),
		UserID:     userID,
		IPAddress:  ipAddress,
		UserAgent:  userAgent,
		DeviceInfo: deviceInfo,
		ExpiresAt:  time.Now().UTC().Add(s.ttl),
	}

	sess, err := s.store.Sessions().Create(ctx, input)
	if err != nil {
		return nil, err
	}

	s.cacheSession(ctx, sess)
	s.cache.ListPush(ctx, keyUserSessions+userID, sess.ID, s.ttl)

	token, err := s.issuer.IssueAccess(userID, sess.ID)
	if err != nil {
		return nil, err
	}
	return &Created{Session: sess, Token: token}, nil
}

// Validate retorna la sesión si está viva, o nil si no existe, fue revocada
// o expiró. Una sesión expirada se revoca como side effect (lazy expiry).
func (s *Service) Validate(ctx context.Context, sessionID string) (*repository.Session, error) {
	now := time.Now().UTC()

	if raw, ok := s.cache.Get(ctx, keySession+sessionID); ok {
		var sess repository.Session
		if err := json.Unmarshal([]byte(raw), &sess); err == nil {
			if sess.Revoked() {
				return nil, nil
			}
			if sess.Expired(now) {
				s.revokeExpired(ctx, &sess)
				return nil, nil
			}
			return &sess, nil
		}
		// Entrada corrupta: descartar y seguir al store.
		s.cache.Delete(ctx, keySession+sessionID)
	}

	sess, err := s.store.Sessions().Get(ctx, sessionID)
	if repository.IsNotFound(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if sess.Revoked() {
		return nil, nil
	}
	if sess.Expired(now) {
		s.revokeExpired(ctx, sess)
		return nil, nil
	}

	s.cacheSession(ctx, sess)
	return sess, nil
}

// Revoke revoca una sesión. Idempotente: revocar dos veces no es error.
func (s *Service) Revoke(ctx context.Context, sessionID string) error {
	// Buscar el owner antes de borrar la key para limpiar el índice.
	var userID string
	if sess, err := s.store.Sessions().Get(ctx, sessionID); err == nil {
		userID = sess.UserID
	}

	if err := s.store.Sessions().Revoke(ctx, sessionID); err != nil {
		return err
	}

	s.cache.Delete(ctx, keySession+sessionID)
	if userID != "" {
		s.cache.ListRemove(ctx, keyUserSessions+userID, sessionID)
	}
	return nil
}

// ActiveForUser retorna las sesiones vivas del usuario. Entradas del índice
// que ya no existen (carreras con revocación) se toleran sin fallar el call.
func (s *Service) ActiveForUser(ctx context.Context, userID string) ([]repository.Session, error) {
	ids := s.cache.ListRange(ctx, keyUserSessions+userID)
	if len(ids) == 0 {
		return s.store.Sessions().ListActiveByUser(ctx, userID)
	}

	out := make([]repository.Session, 0, len(ids))
	seen := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}

		sess, err := s.Validate(ctx, id)
		if err != nil {
			logger.From(ctx).Warn("session lookup failed during listing",
				logger.SessionID(id), logger.Err(err))
			continue
		}
		if sess != nil && sess.UserID == userID {
			out = append(out, *sess)
		}
	}
	return out, nil
}

// RevokeAll revoca todas las sesiones del usuario; exceptID (si no es vacío)
// se preserva ("cerrar sesión en los demás dispositivos").
func (s *Service) RevokeAll(ctx context.Context, userID, exceptID string) (int, error) {
	n, err := s.store.Sessions().RevokeAllByUser(ctx, userID, exceptID)
	if err != nil {
		return 0, err
	}

	for _, id := range s.cache.ListRange(ctx, keyUserSessions+userID) {
		if id == exceptID {
			continue
		}
		s.cache.Delete(ctx, keySession+id)
		s.cache.ListRemove(ctx, keyUserSessions+userID, id)
	}
	return n, nil
}

// PurgeExpired borra de la base las sesiones expiradas o revocadas. Lo corre
// el sweeper periódico del proceso servidor; la validación no depende de él
// (lazy expiry), solo acota el crecimiento de la tabla.
func (s *Service) PurgeExpired(ctx context.Context) (int, error) {
	return s.store.Sessions().DeleteExpired(ctx)
}

// RunSweeper purga sesiones viejas cada interval hasta que el contexto se
// cancele. Bloqueante: llamar en su propia goroutine.
func (s *Service) RunSweeper(ctx context.Context, interval time.Duration) {
	t := time.NewTicker(interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			n, err := s.PurgeExpired(ctx)
			if err != nil {
				logger.From(ctx).Warn("session sweep failed", logger.Err(err))
				continue
			}
			if n > 0 {
				logger.From(ctx).Info("expired sessions purged", logger.Int("count", n))
			}
		}
	}
}

func (s *Service) cacheSession(ctx context.Context, sess *repository.Session) {
	ttl := time.Until(sess.ExpiresAt)
	if ttl <= 0 {
		return
	}
	if b, err := json.Marshal(sess); err == nil {
		s.cache.Set(ctx, keySession+sess.ID, string(b), ttl)
	}
}

func (s *Service) revokeExpired(ctx context.Context, sess *repository.Session) {
	if err := s.store.Sessions().Revoke(ctx, sess.ID); err != nil {
		logger.From(ctx).Warn("eager revoke of expired session failed",
			logger.SessionID(sess.ID), logger.Err(err))
	}
	s.cache.Delete(ctx, keySession+sess.ID)
	s.cache.ListRemove(ctx, keyUserSessions+sess.UserID, sess.ID)
}
