// Package memory implementa repository.Store sobre maps en proceso.
// Soporta tests de services y el modo dev sin Postgres. No es durable y
// WithinTx no aísla: ejecuta fn directamente (sin rollback).
package memory

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/wayfarerhq/wayfarer/internal/domain/repository"
)

// Store implementa repository.Store en memoria.
type Store struct {
	mu sync.RWMutex

	users       map[string]*repository.User
	roles       map[string]*repository.Role
	permissions map[string]*repository.Permission
	rolePerms   map[string]map[string]bool // roleID -> permissionID set
	sessions    map[string]*repository.Session
	tokens      map[string]*repository.RefreshToken

	usersRepo       *userRepo
	rolesRepo       *roleRepo
	permissionsRepo *permissionRepo
	sessionsRepo    *sessionRepo
	tokensRepo      *tokenRepo
}

// New construye un Store vacío.
func New() *Store {
	s := &Store{
		users:       map[string]*repository.User{},
		roles:       map[string]*repository.Role{},
		permissions: map[string]*repository.Permission{},
		rolePerms:   map[string]map[string]bool{},
		sessions:    map[string]*repository.Session{},
		tokens:      map[string]*repository.RefreshToken{},
	}
	s.usersRepo = &userRepo{s}
	s.rolesRepo = &roleRepo{s}
	s.permissionsRepo = &permissionRepo{s}
	s.sessionsRepo = &sessionRepo{s}
	s.tokensRepo = &tokenRepo{s}
	return s
}

func (s *Store) Users() repository.UserRepository             { return s.usersRepo }
func (s *Store) Roles() repository.RoleRepository             { return s.rolesRepo }
func (s *Store) Permissions() repository.PermissionRepository { return s.permissionsRepo }
func (s *Store) Sessions() repository.SessionRepository       { return s.sessionsRepo }
func (s *Store) Tokens() repository.TokenRepository           { return s.tokensRepo }

// WithinTx ejecuta fn sin transacción real.
func (s *Store) WithinTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

func (s *Store) Ping(ctx context.Context) error { return nil }
func (s *Store) Close()                         {}

// SeedRole inserta un rol directamente (setup de tests).
func (s *Store) SeedRole(r repository.Role) *repository.Role {
	s.mu.Lock()
	defer s.mu.Unlock()
	if r.ID == "" {
		r.ID = uuid.NewString()
	}
	cp := r
	s.roles[cp.ID] = &cp
	return &cp
}

// SeedPermission inserta un permiso directamente.
func (s *Store) SeedPermission(p repository.Permission) *repository.Permission {
	s.mu.Lock()
	defer s.mu.Unlock()
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	cp := p
	s.permissions[cp.ID] = &cp
	return &cp
}

// SeedUser inserta un usuario directamente.
func (s *Store) SeedUser(u repository.User) *repository.User {
	s.mu.Lock()
	defer s.mu.Unlock()
	if u.ID == "" {
		u.ID = uuid.NewString()
	}
	cp := u
	s.users[cp.ID] = &cp
	return &cp
}

// Grant asigna un permiso a un rol directamente.
func (s *Store) Grant(roleID, permissionID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.rolePerms[roleID] == nil {
		s.rolePerms[roleID] = map[string]bool{}
	}
	s.rolePerms[roleID][permissionID] = true
}

// ---- users ----

type userRepo struct{ s *Store }

func (r *userRepo) GetByEmail(ctx context.Context, email string) (*repository.User, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	email = strings.ToLower(email)
	for _, u := range r.s.users {
		if strings.ToLower(u.Email) == email {
			cp := *u
			return &cp, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (r *userRepo) GetByUsername(ctx context.Context, username string) (*repository.User, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	for _, u := range r.s.users {
		if u.Username == username {
			cp := *u
			return &cp, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (r *userRepo) GetByID(ctx context.Context, userID string) (*repository.User, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	u, ok := r.s.users[userID]
	if !ok {
		return nil, repository.ErrNotFound
	}
	cp := *u
	return &cp, nil
}

func (r *userRepo) GetByOAuth(ctx context.Context, provider, providerID string) (*repository.User, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	for _, u := range r.s.users {
		if u.OAuthProvider != nil && *u.OAuthProvider == provider &&
			u.OAuthID != nil && *u.OAuthID == providerID {
			cp := *u
			return &cp, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (r *userRepo) Create(ctx context.Context, input repository.CreateUserInput) (*repository.User, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, u := range r.s.users {
		if strings.EqualFold(u.Email, input.Email) || u.Username == input.Username {
			return nil, repository.ErrConflict
		}
	}
	now := time.Now().UTC()
	u := &repository.User{
		ID:            uuid.NewString(),
		Email:         strings.ToLower(input.Email),
		Username:      input.Username,
		PasswordHash:  input.PasswordHash,
		RoleID:        input.RoleID,
		Active:        true,
		EmailVerified: input.EmailVerified,
		OAuthProvider: input.OAuthProvider,
		OAuthID:       input.OAuthID,
		Picture:       input.Picture,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if input.EmailVerified {
		u.EmailVerifiedAt = &now
	}
	r.s.users[u.ID] = u
	cp := *u
	return &cp, nil
}

func (r *userRepo) UpdatePasswordHash(ctx context.Context, userID, newHash string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	u, ok := r.s.users[userID]
	if !ok {
		return repository.ErrNotFound
	}
	h := newHash
	u.PasswordHash = &h
	u.UpdatedAt = time.Now().UTC()
	return nil
}

func (r *userRepo) SetEmailVerified(ctx context.Context, userID string, at time.Time) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	u, ok := r.s.users[userID]
	if !ok {
		return repository.ErrNotFound
	}
	u.EmailVerified = true
	u.EmailVerifiedAt = &at
	u.UpdatedAt = time.Now().UTC()
	return nil
}

func (r *userRepo) SetActive(ctx context.Context, userID string, active bool) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	u, ok := r.s.users[userID]
	if !ok {
		return repository.ErrNotFound
	}
	u.Active = active
	u.UpdatedAt = time.Now().UTC()
	return nil
}

func (r *userRepo) SetLockState(ctx context.Context, userID string, failedLogins int, lockUntil *time.Time) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	u, ok := r.s.users[userID]
	if !ok {
		return repository.ErrNotFound
	}
	u.FailedLogins = failedLogins
	u.LockUntil = lockUntil
	u.UpdatedAt = time.Now().UTC()
	return nil
}

func (r *userRepo) Delete(ctx context.Context, userID string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.users[userID]; !ok {
		return repository.ErrNotFound
	}
	delete(r.s.users, userID)
	return nil
}

// ---- roles ----

type roleRepo struct{ s *Store }

func (r *roleRepo) GetByName(ctx context.Context, name string) (*repository.Role, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	for _, role := range r.s.roles {
		if role.Name == name {
			cp := *role
			return &cp, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (r *roleRepo) GetByID(ctx context.Context, roleID string) (*repository.Role, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	role, ok := r.s.roles[roleID]
	if !ok {
		return nil, repository.ErrNotFound
	}
	cp := *role
	return &cp, nil
}

func (r *roleRepo) List(ctx context.Context) ([]repository.Role, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	out := make([]repository.Role, 0, len(r.s.roles))
	for _, role := range r.s.roles {
		out = append(out, *role)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Level < out[j].Level })
	return out, nil
}

func (r *roleRepo) Create(ctx context.Context, input repository.RoleInput) (*repository.Role, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, role := range r.s.roles {
		if role.Name == input.Name {
			return nil, repository.ErrConflict
		}
	}
	now := time.Now().UTC()
	role := &repository.Role{
		ID:           uuid.NewString(),
		Name:         input.Name,
		Description:  input.Description,
		ParentRoleID: input.ParentRoleID,
		Level:        input.Level,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	r.s.roles[role.ID] = role
	cp := *role
	return &cp, nil
}

func (r *roleRepo) Update(ctx context.Context, roleID string, input repository.RoleInput) (*repository.Role, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	role, ok := r.s.roles[roleID]
	if !ok {
		return nil, repository.ErrNotFound
	}
	if role.System {
		return nil, repository.ErrSystemProtected
	}
	if input.Name != "" {
		role.Name = input.Name
	}
	role.Description = input.Description
	role.ParentRoleID = input.ParentRoleID
	role.Level = input.Level
	role.UpdatedAt = time.Now().UTC()
	cp := *role
	return &cp, nil
}

func (r *roleRepo) Delete(ctx context.Context, roleID string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	role, ok := r.s.roles[roleID]
	if !ok {
		return repository.ErrNotFound
	}
	if role.System {
		return repository.ErrSystemProtected
	}
	delete(r.s.roles, roleID)
	delete(r.s.rolePerms, roleID)
	return nil
}

func (r *roleRepo) GetPermissions(ctx context.Context, roleID string) ([]repository.Permission, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	var out []repository.Permission
	for pid := range r.s.rolePerms[roleID] {
		if p, ok := r.s.permissions[pid]; ok {
			out = append(out, *p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (r *roleRepo) AssignPermissions(ctx context.Context, roleID string, permissionIDs []string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.roles[roleID]; !ok {
		return repository.ErrNotFound
	}
	if r.s.rolePerms[roleID] == nil {
		r.s.rolePerms[roleID] = map[string]bool{}
	}
	for _, pid := range permissionIDs {
		r.s.rolePerms[roleID][pid] = true
	}
	return nil
}

func (r *roleRepo) RemovePermission(ctx context.Context, roleID, permissionID string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	delete(r.s.rolePerms[roleID], permissionID)
	return nil
}

// ---- permissions ----

type permissionRepo struct{ s *Store }

func (r *permissionRepo) GetByID(ctx context.Context, permissionID string) (*repository.Permission, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	p, ok := r.s.permissions[permissionID]
	if !ok {
		return nil, repository.ErrNotFound
	}
	cp := *p
	return &cp, nil
}

func (r *permissionRepo) GetByName(ctx context.Context, name string) (*repository.Permission, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	for _, p := range r.s.permissions {
		if p.Name == name {
			cp := *p
			return &cp, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (r *permissionRepo) List(ctx context.Context) ([]repository.Permission, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	out := make([]repository.Permission, 0, len(r.s.permissions))
	for _, p := range r.s.permissions {
		out = append(out, *p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (r *permissionRepo) Create(ctx context.Context, input repository.PermissionInput) (*repository.Permission, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, p := range r.s.permissions {
		if p.Name == input.Name {
			return nil, repository.ErrConflict
		}
	}
	p := &repository.Permission{
		ID:        uuid.NewString(),
		Name:      input.Name,
		Group:     input.Group,
		Action:    input.Action,
		Resource:  input.Resource,
		CreatedAt: time.Now().UTC(),
	}
	r.s.permissions[p.ID] = p
	cp := *p
	return &cp, nil
}

func (r *permissionRepo) Deprecate(ctx context.Context, permissionID, reason string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	p, ok := r.s.permissions[permissionID]
	if !ok {
		return repository.ErrNotFound
	}
	p.Deprecated = true
	p.DeprecatedReason = &reason
	return nil
}

func (r *permissionRepo) Delete(ctx context.Context, permissionID string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	p, ok := r.s.permissions[permissionID]
	if !ok {
		return repository.ErrNotFound
	}
	if p.System {
		return repository.ErrSystemProtected
	}
	delete(r.s.permissions, permissionID)
	for roleID := range r.s.rolePerms {
		delete(r.s.rolePerms[roleID], permissionID)
	}
	return nil
}

func (r *permissionRepo) RolesWithPermission(ctx context.Context, permissionID string) ([]string, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	var out []string
	for roleID, perms := range r.s.rolePerms {
		if perms[permissionID] {
			out = append(out, roleID)
		}
	}
	sort.Strings(out)
	return out, nil
}

// ---- sessions ----

type sessionRepo struct{ s *Store }

func (r *sessionRepo) Create(ctx context.Context, input repository.CreateSessionInput) (*repository.Session, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	id := input.ID
	if id == "" {
		id = uuid.NewString()
	}
	sess := &repository.Session{
		ID:         id,
		UserID:     input.UserID,
		IPAddress:  input.IPAddress,
		UserAgent:  input.UserAgent,
		DeviceInfo: input.DeviceInfo,
		CreatedAt:  time.Now().UTC(),
		ExpiresAt:  input.ExpiresAt,
	}
	r.s.sessions[sess.ID] = sess
	cp := *sess
	return &cp, nil
}

func (r *sessionRepo) Get(ctx context.Context, sessionID string) (*repository.Session, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	sess, ok := r.s.sessions[sessionID]
	if !ok {
		return nil, repository.ErrNotFound
	}
	cp := *sess
	return &cp, nil
}

func (r *sessionRepo) Revoke(ctx context.Context, sessionID string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	sess, ok := r.s.sessions[sessionID]
	if !ok {
		return repository.ErrNotFound
	}
	if sess.RevokedAt == nil {
		now := time.Now().UTC()
		sess.RevokedAt = &now
	}
	return nil
}

func (r *sessionRepo) RevokeAllByUser(ctx context.Context, userID, exceptID string) (int, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	now := time.Now().UTC()
	var n int
	for _, sess := range r.s.sessions {
		if sess.UserID != userID || sess.ID == exceptID || sess.RevokedAt != nil {
			continue
		}
		sess.RevokedAt = &now
		n++
	}
	return n, nil
}

func (r *sessionRepo) ListActiveByUser(ctx context.Context, userID string) ([]repository.Session, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	now := time.Now().UTC()
	var out []repository.Session
	for _, sess := range r.s.sessions {
		if sess.UserID == userID && sess.RevokedAt == nil && now.Before(sess.ExpiresAt) {
			out = append(out, *sess)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (r *sessionRepo) DeleteExpired(ctx context.Context) (int, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	now := time.Now().UTC()
	var n int
	for id, sess := range r.s.sessions {
		if sess.RevokedAt != nil || now.After(sess.ExpiresAt) {
			delete(r.s.sessions, id)
			n++
		}
	}
	return n, nil
}

// ---- tokens ----

type tokenRepo struct{ s *Store }

func (r *tokenRepo) Create(ctx context.Context, input repository.CreateRefreshTokenInput) (string, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	tk := &repository.RefreshToken{
		ID:        uuid.NewString(),
		UserID:    input.UserID,
		TokenHash: input.TokenHash,
		IssuedAt:  time.Now().UTC(),
		ExpiresAt: input.ExpiresAt,
	}
	r.s.tokens[tk.ID] = tk
	return tk.ID, nil
}

func (r *tokenRepo) GetByHash(ctx context.Context, tokenHash string) (*repository.RefreshToken, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	for _, tk := range r.s.tokens {
		if tk.TokenHash == tokenHash {
			cp := *tk
			return &cp, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (r *tokenRepo) Revoke(ctx context.Context, tokenID string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	tk, ok := r.s.tokens[tokenID]
	if !ok {
		return repository.ErrNotFound
	}
	if tk.RevokedAt == nil {
		now := time.Now().UTC()
		tk.RevokedAt = &now
	}
	return nil
}

func (r *tokenRepo) RevokeIfActive(ctx context.Context, tokenID string) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	tk, ok := r.s.tokens[tokenID]
	if !ok || tk.RevokedAt != nil {
		return false, nil
	}
	now := time.Now().UTC()
	tk.RevokedAt = &now
	return true, nil
}

func (r *tokenRepo) RevokeAllByUser(ctx context.Context, userID string) (int, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	now := time.Now().UTC()
	var n int
	for _, tk := range r.s.tokens {
		if tk.UserID == userID && tk.RevokedAt == nil {
			tk.RevokedAt = &now
			n++
		}
	}
	return n, nil
}

func (r *tokenRepo) ListActiveByUser(ctx context.Context, userID string) ([]repository.RefreshToken, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	now := time.Now().UTC()
	var out []repository.RefreshToken
	for _, tk := range r.s.tokens {
		if tk.UserID == userID && tk.RevokedAt == nil && now.Before(tk.ExpiresAt) {
			out = append(out, *tk)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].IssuedAt.Before(out[j].IssuedAt) })
	return out, nil
}

var _ repository.Store = (*Store)(nil)
