// Package auth orquesta los flujos de registro, login (password y OAuth),
// logout, verificación de email y rotación de refresh tokens.
package auth

import (
	"context"
	"errors"
	"net/mail"
	"strings"
	"time"

	"github.com/wayfarerhq/wayfarer/internal/domain/repository"
	"github.com/wayfarerhq/wayfarer/internal/email"
	jwtx "github.com/wayfarerhq/wayfarer/internal/jwt"
	"github.com/wayfarerhq/wayfarer/internal/metrics"
	"github.com/wayfarerhq/wayfarer/internal/oauth"
	"github.com/wayfarerhq/wayfarer/internal/observability/logger"
	"github.com/wayfarerhq/wayfarer/internal/rate"
	"github.com/wayfarerhq/wayfarer/internal/security/password"
	tokens "github.com/wayfarerhq/wayfarer/internal/security/token"
	"github.com/wayfarerhq/wayfarer/internal/session"
)

// Errores del flujo de autenticación.
var (
	ErrMissingFields       = errors.New("missing required fields")
	ErrInvalidEmail        = errors.New("invalid email format")
	ErrWeakPassword        = errors.New("password does not meet minimum requirements")
	ErrEmailTaken          = errors.New("email already registered")
	ErrUsernameTaken       = errors.New("username already taken")
	ErrInvalidCredentials  = errors.New("invalid credentials")
	ErrAccountLocked       = errors.New("account is locked")
	ErrAccountInactive     = errors.New("account is inactive")
	ErrEmailNotVerified    = errors.New("email not verified")
	ErrAlreadyVerified     = errors.New("email already verified")
	ErrInvalidToken        = errors.New("invalid or expired token")
	ErrRefreshInvalid      = errors.New("refresh token invalid")
	ErrRefreshRevoked      = errors.New("refresh token revoked")
	ErrUnsupportedProvider = errors.New("unsupported oauth provider")
)

const (
	// DefaultRole es el rol asignado a cuentas nuevas.
	DefaultRole = "user"

	verificationTTL = 24 * time.Hour
	minPasswordLen  = 8
)

// Deps contiene las dependencias del servicio.
type Deps struct {
	Store     repository.Store
	Sessions  *session.Service
	Issuer    *jwtx.Issuer
	Lockout   *rate.Lockout
	Email     *email.Service
	Providers *oauth.Registry
}

// Service implementa el orquestador de autenticación.
type Service struct {
	deps Deps
}

// NewService crea el servicio de autenticación.
func NewService(deps Deps) *Service {
	return &Service{deps: deps}
}

// Result es el resultado de un flujo que autentica al usuario.
type Result struct {
	User         *repository.User
	RoleName     string
	AccessToken  string
	RefreshToken string
	ExpiresIn    int64 // segundos de vida del access token
}

// RegisterInput son los datos de registro.
type RegisterInput struct {
	Email    string
	Username string
	Password string
}

// LoginMeta describe el dispositivo que inicia sesión.
type LoginMeta struct {
	IPAddress  string
	UserAgent  string
	DeviceInfo string
}

// Register crea la cuenta, dispara el email de verificación (best-effort)
// y deja al usuario logueado con una sesión nueva.
func (s *Service) Register(ctx context.Context, in RegisterInput, meta LoginMeta) (*Result, error) {
	log := logger.From(ctx).With(logger.Component("auth"), logger.Op("Register"))

	in.Email = strings.TrimSpace(strings.ToLower(in.Email))
	in.Username = strings.TrimSpace(in.Username)
	if in.Email == "" || in.Username == "" || in.Password == "" {
		return nil, ErrMissingFields
	}
	if !validEmail(in.Email) {
		return nil, ErrInvalidEmail
	}
	if len(in.Password) < minPasswordLen {
		return nil, ErrWeakPassword
	}

	// Pre-check de unicidad. La unique constraint sigue siendo la fuente
	// de verdad: una carrera se traduce igual a conflicto más abajo.
	if _, err := s.deps.Store.Users().GetByEmail(ctx, in.Email); err == nil {
		return nil, ErrEmailTaken
	}
	if _, err := s.deps.Store.Users().GetByUsername(ctx, in.Username); err == nil {
		return nil, ErrUsernameTaken
	}

	hash, err := password.Hash(in.Password, password.DefaultCost)
	if err != nil {
		return nil, err
	}

	role, err := s.deps.Store.Roles().GetByName(ctx, DefaultRole)
	if err != nil {
		return nil, err
	}

	var user *repository.User
	err = s.deps.Store.WithinTx(ctx, func(ctx context.Context) error {
		var txErr error
		user, txErr = s.deps.Store.Users().Create(ctx, repository.CreateUserInput{
			Email:        in.Email,
			Username:     in.Username,
			PasswordHash: &hash,
			RoleID:       role.ID,
		})
		return txErr
	})
	if repository.IsConflict(err) {
		// No sabemos cuál de los dos chocó; email es el caso común.
		return nil, ErrEmailTaken
	}
	if err != nil {
		return nil, err
	}

	// El email de verificación es best-effort: un SMTP caído no pierde
	// el registro.
	if verifyToken, err := s.deps.Issuer.IssueTyped(user.ID, jwtx.TokenEmailVerification, verificationTTL); err == nil {
		if err := s.deps.Email.SendVerification(user.Email, verifyToken, verificationTTL); err != nil {
			log.Warn("verification email dispatch failed", logger.Email(user.Email), logger.Err(err))
		}
	} else {
		log.Warn("verification token issue failed", logger.Err(err))
	}

	metrics.Registrations.Inc()
	log.Info("user registered", logger.UserID(user.ID), logger.Email(user.Email))

	return s.startSession(ctx, user, role.Name, meta)
}

// Login autentica con email y password. El mensaje de error es idéntico
// para email desconocido y password incorrecta (anti-enumeración).
func (s *Service) Login(ctx context.Context, emailAddr, plainPassword string, meta LoginMeta) (*Result, error) {
	log := logger.From(ctx).With(logger.Component("auth"), logger.Op("Login"))

	emailAddr = strings.TrimSpace(strings.ToLower(emailAddr))
	if emailAddr == "" || plainPassword == "" {
		return nil, ErrMissingFields
	}

	user, err := s.deps.Store.Users().GetByEmail(ctx, emailAddr)
	if repository.IsNotFound(err) {
		metrics.Logins.WithLabelValues("invalid_credentials").Inc()
		return nil, ErrInvalidCredentials
	}
	if err != nil {
		metrics.Logins.WithLabelValues("error").Inc()
		return nil, err
	}

	// El bloqueo se chequea antes de comparar la password: un sexto
	// intento dentro de la ventana falla "locked" aunque la password
	// sea correcta.
	if s.locked(ctx, emailAddr, user) {
		metrics.Logins.WithLabelValues("locked").Inc()
		return nil, ErrAccountLocked
	}

	if !password.Verify(user.PasswordHash, plainPassword) {
		lock := s.deps.Lockout.RecordFailure(ctx, emailAddr)
		if lock > 0 {
			metrics.Lockouts.Inc()
			until := time.Now().UTC().Add(lock)
			failed := int(s.deps.Lockout.Attempts(ctx, emailAddr))
			if err := s.deps.Store.Users().SetLockState(ctx, user.ID, failed, &until); err != nil {
				log.Warn("persisting lock state failed", logger.UserID(user.ID), logger.Err(err))
			}
		}
		metrics.Logins.WithLabelValues("invalid_credentials").Inc()
		return nil, ErrInvalidCredentials
	}

	if !user.Active {
		metrics.Logins.WithLabelValues("inactive").Inc()
		return nil, ErrAccountInactive
	}
	if !user.EmailVerified {
		metrics.Logins.WithLabelValues("unverified").Inc()
		return nil, ErrEmailNotVerified
	}

	s.deps.Lockout.Reset(ctx, emailAddr)
	if err := s.deps.Store.Users().SetLockState(ctx, user.ID, 0, nil); err != nil {
		log.Warn("clearing lock state failed", logger.UserID(user.ID), logger.Err(err))
	}

	role, err := s.deps.Store.Roles().GetByID(ctx, user.RoleID)
	if err != nil {
		metrics.Logins.WithLabelValues("error").Inc()
		return nil, err
	}

	metrics.Logins.WithLabelValues("success").Inc()
	log.Info("login ok", logger.UserID(user.ID))
	return s.startSession(ctx, user, role.Name, meta)
}

// Logout revoca la sesión actual. Idempotente.
func (s *Service) Logout(ctx context.Context, sessionID string) error {
	if sessionID == "" {
		return nil
	}
	return s.deps.Sessions.Revoke(ctx, sessionID)
}

// VerifyEmail consume un token de verificación y marca el email.
func (s *Service) VerifyEmail(ctx context.Context, token string) error {
	claims, err := s.deps.Issuer.VerifyTyped(token, jwtx.TokenEmailVerification)
	if err != nil {
		return ErrInvalidToken
	}

	return s.deps.Store.WithinTx(ctx, func(ctx context.Context) error {
		user, err := s.deps.Store.Users().GetByID(ctx, claims.UserID)
		if err != nil {
			return ErrInvalidToken
		}
		if user.EmailVerified {
			return ErrAlreadyVerified
		}
		return s.deps.Store.Users().SetEmailVerified(ctx, user.ID, time.Now().UTC())
	})
}

// ResendVerification reenvía el email de verificación. A diferencia del
// registro, acá el fallo de SMTP sí se escala: el usuario espera el mail.
func (s *Service) ResendVerification(ctx context.Context, emailAddr string) error {
	emailAddr = strings.TrimSpace(strings.ToLower(emailAddr))
	if emailAddr == "" {
		return ErrMissingFields
	}

	user, err := s.deps.Store.Users().GetByEmail(ctx, emailAddr)
	if repository.IsNotFound(err) {
		// Respuesta indistinguible para emails no registrados.
		return nil
	}
	if err != nil {
		return err
	}
	if user.EmailVerified {
		return ErrAlreadyVerified
	}

	verifyToken, err := s.deps.Issuer.IssueTyped(user.ID, jwtx.TokenEmailVerification, verificationTTL)
	if err != nil {
		return err
	}
	return s.deps.Email.SendVerification(user.Email, verifyToken, verificationTTL)
}

// locked combina el bloqueo del cache con el lock-until persistido, que
// sobrevive a un cache frío.
func (s *Service) locked(ctx context.Context, emailAddr string, user *repository.User) bool {
	if s.deps.Lockout.Locked(ctx, emailAddr) {
		return true
	}
	return user.LockUntil != nil && user.LockUntil.After(time.Now().UTC())
}

// startSession crea la sesión, emite el par de tokens y arma el Result.
func (s *Service) startSession(ctx context.Context, user *repository.User, roleName string, meta LoginMeta) (*Result, error) {
	created, err := s.deps.Sessions.Create(ctx, user.ID, meta.IPAddress, meta.UserAgent, meta.DeviceInfo)
	if err != nil {
		return nil, err
	}

	refresh, err := s.issueRefresh(ctx, user.ID, created.Session.ID)
	if err != nil {
		return nil, err
	}

	return &Result{
		User:         user,
		RoleName:     roleName,
		AccessToken:  created.Token,
		RefreshToken: refresh,
		ExpiresIn:    int64(s.deps.Issuer.AccessTTL.Seconds()),
	}, nil
}

// issueRefresh firma un refresh token nuevo y persiste su hash.
func (s *Service) issueRefresh(ctx context.Context, userID, sessionID string) (string, error) {
	refresh, err := s.deps.Issuer.IssueRefresh(userID, sessionID)
	if err != nil {
		return "", err
	}
	_, err = s.deps.Store.Tokens().Create(ctx, repository.CreateRefreshTokenInput{
		UserID:    userID,
		TokenHash: tokens.SHA256Hex(refresh),
		ExpiresAt: time.Now().UTC().Add(s.deps.Issuer.RefreshTTL),
	})
	if err != nil {
		return "", err
	}
	return refresh, nil
}

func validEmail(s string) bool {
	addr, err := mail.ParseAddress(s)
	return err == nil && addr.Address == s
}
