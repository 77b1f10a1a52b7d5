package auth

import (
	"context"
	"errors"

	"github.com/wayfarerhq/wayfarer/internal/domain/repository"
	jwtx "github.com/wayfarerhq/wayfarer/internal/jwt"
	"github.com/wayfarerhq/wayfarer/internal/metrics"
	"github.com/wayfarerhq/wayfarer/internal/observability/logger"
	tokens "github.com/wayfarerhq/wayfarer/internal/security/token"
)

// TokenPair es el resultado de una rotación de refresh token.
type TokenPair struct {
	AccessToken  string
	RefreshToken string
	ExpiresIn    int64
}

// Refresh rota el refresh token: revoca el viejo y emite un par nuevo en
// una sola transacción. Un token con firma inválida devuelve
// ErrRefreshInvalid; uno con firma válida pero registro revocado o ausente
// devuelve ErrRefreshRevoked (es la señal de posible robo de token).
func (s *Service) Refresh(ctx context.Context, refreshToken string) (*TokenPair, error) {
	log := logger.From(ctx).With(logger.Component("auth"), logger.Op("Refresh"))

	claims, err := s.deps.Issuer.VerifyRefresh(refreshToken)
	if err != nil {
		if errors.Is(err, jwtx.ErrTokenExpired) {
			metrics.TokenRefreshes.WithLabelValues("expired").Inc()
		} else {
			metrics.TokenRefreshes.WithLabelValues("invalid").Inc()
		}
		return nil, ErrRefreshInvalid
	}

	// La sesión que originó el token tiene que seguir viva.
	sess, err := s.deps.Sessions.Validate(ctx, claims.SessionID)
	if err != nil {
		return nil, err
	}
	if sess == nil || sess.UserID != claims.UserID {
		metrics.TokenRefreshes.WithLabelValues("revoked").Inc()
		return nil, ErrRefreshRevoked
	}

	var pair *TokenPair
	err = s.deps.Store.WithinTx(ctx, func(ctx context.Context) error {
		rec, err := s.deps.Store.Tokens().GetByHash(ctx, tokens.SHA256Hex(refreshToken))
		if repository.IsNotFound(err) {
			// Firma válida sin registro: ya fue rotado o revocado.
			return ErrRefreshRevoked
		}
		if err != nil {
			return err
		}
		// Solo el caller que transiciona el registro a revocado puede emitir
		// el par nuevo: dos rotaciones concurrentes del mismo token dejan
		// exactamente un ganador.
		won, err := s.deps.Store.Tokens().RevokeIfActive(ctx, rec.ID)
		if err != nil {
			return err
		}
		if !won {
			return ErrRefreshRevoked
		}

		newRefresh, err := s.issueRefresh(ctx, claims.UserID, claims.SessionID)
		if err != nil {
			return err
		}
		newAccess, err := s.deps.Issuer.IssueAccess(claims.UserID, claims.SessionID)
		if err != nil {
			return err
		}

		pair = &TokenPair{
			AccessToken:  newAccess,
			RefreshToken: newRefresh,
			ExpiresIn:    int64(s.deps.Issuer.AccessTTL.Seconds()),
		}
		return nil
	})
	if err != nil {
		if errors.Is(err, ErrRefreshRevoked) {
			metrics.TokenRefreshes.WithLabelValues("revoked").Inc()
			log.Warn("refresh token replay detected", logger.UserID(claims.UserID))
		}
		return nil, err
	}

	metrics.TokenRefreshes.WithLabelValues("success").Inc()
	return pair, nil
}

// RevokeRefresh revoca explícitamente un refresh token. Idempotente: un
// token ya revocado o desconocido no es error.
func (s *Service) RevokeRefresh(ctx context.Context, refreshToken string) error {
	rec, err := s.deps.Store.Tokens().GetByHash(ctx, tokens.SHA256Hex(refreshToken))
	if repository.IsNotFound(err) {
		return nil
	}
	if err != nil {
		return err
	}
	return s.deps.Store.Tokens().Revoke(ctx, rec.ID)
}

// ListRefreshTokens lista los refresh tokens activos del usuario.
func (s *Service) ListRefreshTokens(ctx context.Context, userID string) ([]repository.RefreshToken, error) {
	return s.deps.Store.Tokens().ListActiveByUser(ctx, userID)
}
