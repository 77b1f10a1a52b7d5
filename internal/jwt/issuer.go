// Package jwt emite y verifica los tokens firmados del core.
//
// Hay dos secretos HMAC independientes: uno para access tokens (y tokens de
// verificación de email, que comparten firma pero no tipo) y otro para
// refresh tokens. El claim "typ" discrimina el propósito y evita replay
// cruzado entre flujos.
package jwt

import (
	"errors"
	"fmt"
	"time"

	jwtv5 "github.com/golang-jwt/jwt/v5"
)

// TokenType discrimina el propósito de un token.
type TokenType string

const (
	TokenAccess            TokenType = "access"
	TokenRefresh           TokenType = "refresh"
	TokenEmailVerification TokenType = "email_verification"
)

// Errores de verificación. Los callers distinguen "reintentá login"
// (expirado) de "token forjado/corrupto" (inválido) y de "revocado
// server-side" (revocado).
var (
	ErrTokenInvalid = errors.New("token invalid")
	ErrTokenExpired = errors.New("token expired")
	ErrTokenRevoked = errors.New("token revoked")
)

// Claims son los claims normalizados que el resto del core consume.
type Claims struct {
	UserID    string
	SessionID string
	Type      TokenType
	ExpiresAt time.Time
}

// Issuer firma y verifica tokens.
type Issuer struct {
	Iss           string
	AccessSecret  []byte
	RefreshSecret []byte
	AccessTTL     time.Duration
	RefreshTTL    time.Duration
}

// NewIssuer construye un Issuer con TTLs por defecto si faltan.
func NewIssuer(iss string, accessSecret, refreshSecret []byte, accessTTL, refreshTTL time.Duration) (*Issuer, error) {
	if len(accessSecret) == 0 || len(refreshSecret) == 0 {
		return nil, fmt.Errorf("jwt: secrets required")
	}
	if accessTTL <= 0 {
		accessTTL = 15 * time.Minute
	}
	if refreshTTL <= 0 {
		refreshTTL = 7 * 24 * time.Hour
	}
	return &Issuer{
		Iss:           iss,
		AccessSecret:  accessSecret,
		RefreshSecret: refreshSecret,
		AccessTTL:     accessTTL,
		RefreshTTL:    refreshTTL,
	}, nil
}

// IssueAccess emite un access token con el session id embebido.
func (i *Issuer) IssueAccess(userID, sessionID string) (string, error) {
	return i.sign(userID, sessionID, TokenAccess, i.AccessSecret, i.AccessTTL)
}

// IssueTyped emite un token de propósito específico (ej: email_verification)
// firmado con el secreto de access.
func (i *Issuer) IssueTyped(userID string, typ TokenType, ttl time.Duration) (string, error) {
	if typ == TokenRefresh {
		return "", fmt.Errorf("jwt: refresh tokens use IssueRefresh")
	}
	return i.sign(userID, "", typ, i.AccessSecret, ttl)
}

// IssueRefresh emite un refresh token firmado con el secreto de refresh,
// atado a la sesión que lo originó. La persistencia/revocación del token
// es responsabilidad del caller.
func (i *Issuer) IssueRefresh(userID, sessionID string) (string, error) {
	return i.sign(userID, sessionID, TokenRefresh, i.RefreshSecret, i.RefreshTTL)
}

func (i *Issuer) sign(userID, sessionID string, typ TokenType, secret []byte, ttl time.Duration) (string, error) {
	now := time.Now().UTC()
	claims := jwtv5.MapClaims{
		"iss": i.Iss,
		"sub": userID,
		"typ": string(typ),
		"iat": now.Unix(),
		"nbf": now.Unix(),
		"exp": now.Add(ttl).Unix(),
	}
	if sessionID != "" {
		claims["sid"] = sessionID
	}

	tk := jwtv5.NewWithClaims(jwtv5.SigningMethodHS256, claims)
	signed, err := tk.SignedString(secret)
	if err != nil {
		return "", fmt.Errorf("jwt: sign: %w", err)
	}
	return signed, nil
}

// VerifyAccess verifica un access token.
func (i *Issuer) VerifyAccess(token string) (*Claims, error) {
	return i.verify(token, TokenAccess, i.AccessSecret)
}

// VerifyTyped verifica un token de propósito específico.
func (i *Issuer) VerifyTyped(token string, typ TokenType) (*Claims, error) {
	return i.verify(token, typ, i.AccessSecret)
}

// VerifyRefresh verifica la firma y expiración de un refresh token.
// NO consulta la persistencia: el check de revocación vive en el service.
func (i *Issuer) VerifyRefresh(token string) (*Claims, error) {
	return i.verify(token, TokenRefresh, i.RefreshSecret)
}

func (i *Issuer) verify(token string, wantType TokenType, secret []byte) (*Claims, error) {
	parsed, err := jwtv5.Parse(token, func(t *jwtv5.Token) (any, error) {
		if _, ok := t.Method.(*jwtv5.SigningMethodHMAC); !ok {
			return nil, jwtv5.ErrTokenUnverifiable
		}
		return secret, nil
	}, jwtv5.WithValidMethods([]string{"HS256"}))

	if err != nil {
		if errors.Is(err, jwtv5.ErrTokenExpired) {
			return nil, ErrTokenExpired
		}
		return nil, ErrTokenInvalid
	}

	mc, ok := parsed.Claims.(jwtv5.MapClaims)
	if !ok || !parsed.Valid {
		return nil, ErrTokenInvalid
	}

	typ, _ := mc["typ"].(string)
	if TokenType(typ) != wantType {
		return nil, ErrTokenInvalid
	}

	sub, _ := mc.GetSubject()
	if sub == "" {
		return nil, ErrTokenInvalid
	}

	cl := &Claims{UserID: sub, Type: wantType}
	if sid, ok := mc["sid"].(string); ok {
		cl.SessionID = sid
	}
	if exp, err := mc.GetExpirationTime(); err == nil && exp != nil {
		cl.ExpiresAt = exp.Time
	}
	return cl, nil
}
