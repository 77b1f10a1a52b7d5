package rbac_test

import (
	"context"
	"errors"
	"testing"

	"github.com/wayfarerhq/wayfarer/internal/cache"
	"github.com/wayfarerhq/wayfarer/internal/domain/repository"
	"github.com/wayfarerhq/wayfarer/internal/rbac"
	"github.com/wayfarerhq/wayfarer/internal/store/memory"
)

// seedHierarchy arma user <- moderator <- admin con permisos escalonados.
func seedHierarchy(store *memory.Store) (user, moderator, admin *repository.Role) {
	user = store.SeedRole(repository.Role{Name: "user", Level: 1})
	moderator = store.SeedRole(repository.Role{Name: "moderator", ParentRoleID: &user.ID, Level: 2})
	admin = store.SeedRole(repository.Role{Name: "admin", ParentRoleID: &moderator.ID, Level: 3})

	pBlogs := store.SeedPermission(repository.Permission{Name: "blogs:create"})
	pModerate := store.SeedPermission(repository.Permission{Name: "comments:moderate"})
	pUsers := store.SeedPermission(repository.Permission{Name: "users:manage"})

	store.Grant(user.ID, pBlogs.ID)
	store.Grant(moderator.ID, pModerate.ID)
	store.Grant(admin.ID, pUsers.ID)
	return user, moderator, admin
}

func TestEffectivePermissions_Inheritance(t *testing.T) {
	ctx := context.Background()
	store := memory.New()
	seedHierarchy(store)
	r := rbac.NewResolver(store, cache.NewGuarded(cache.NewMemory("")))

	perms, err := r.EffectivePermissions(ctx, "admin")
	if err != nil {
		t.Fatalf("EffectivePermissions: %v", err)
	}
	want := map[string]bool{"blogs:create": true, "comments:moderate": true, "users:manage": true}
	if len(perms) != len(want) {
		t.Fatalf("perms = %v", perms)
	}
	for _, p := range perms {
		if !want[p] {
			t.Errorf("unexpected permission %q", p)
		}
	}

	// el rol base no hereda hacia arriba
	base, err := r.EffectivePermissions(ctx, "user")
	if err != nil {
		t.Fatalf("EffectivePermissions(user): %v", err)
	}
	if len(base) != 1 || base[0] != "blogs:create" {
		t.Fatalf("user perms = %v", base)
	}
}

func TestHasPermission(t *testing.T) {
	ctx := context.Background()
	store := memory.New()
	seedHierarchy(store)
	r := rbac.NewResolver(store, cache.NewGuarded(cache.NewMemory("")))

	cases := []struct {
		role, perm string
		want       bool
	}{
		{"user", "blogs:create", true},
		{"user", "comments:moderate", false},
		{"moderator", "blogs:create", true},
		{"moderator", "users:manage", false},
		{"admin", "users:manage", true},
		{"super_admin", "cualquier:cosa", true},
	}
	for _, c := range cases {
		got, err := r.HasPermission(ctx, c.role, c.perm)
		if err != nil {
			t.Fatalf("HasPermission(%s, %s): %v", c.role, c.perm, err)
		}
		if got != c.want {
			t.Errorf("HasPermission(%s, %s) = %v, want %v", c.role, c.perm, got, c.want)
		}
	}
}

func TestResolver_UnknownRole(t *testing.T) {
	ctx := context.Background()
	store := memory.New()
	r := rbac.NewResolver(store, cache.NewGuarded(cache.NewMemory("")))

	if _, err := r.EffectivePermissions(ctx, "fantasma"); !repository.IsNotFound(err) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
}

func TestResolver_CycleGuard(t *testing.T) {
	ctx := context.Background()
	store := memory.New()
	a := store.SeedRole(repository.Role{Name: "a"})
	b := store.SeedRole(repository.Role{Name: "b", ParentRoleID: &a.ID})
	// cerrar el ciclo a <- b <- a directo en el store
	a.ParentRoleID = &b.ID
	store.SeedRole(*a)

	p := store.SeedPermission(repository.Permission{Name: "p:uno"})
	store.Grant(a.ID, p.ID)

	r := rbac.NewResolver(store, cache.NewGuarded(cache.NewMemory("")))
	perms, err := r.EffectivePermissions(ctx, "a")
	if err != nil {
		t.Fatalf("EffectivePermissions on cyclic data: %v", err)
	}
	if len(perms) != 1 || perms[0] != "p:uno" {
		t.Fatalf("perms = %v", perms)
	}
}

func TestResolver_CacheInvalidation(t *testing.T) {
	ctx := context.Background()
	store := memory.New()
	user, _, _ := seedHierarchy(store)
	r := rbac.NewResolver(store, cache.NewGuarded(cache.NewMemory("")))

	if _, err := r.EffectivePermissions(ctx, "user"); err != nil {
		t.Fatalf("warm: %v", err)
	}

	// nuevo permiso no aparece hasta invalidar
	extra := store.SeedPermission(repository.Permission{Name: "blogs:update"})
	store.Grant(user.ID, extra.ID)

	perms, _ := r.EffectivePermissions(ctx, "user")
	if len(perms) != 1 {
		t.Fatalf("expected stale cache, got %v", perms)
	}

	r.Invalidate(ctx, "user")
	perms, _ = r.EffectivePermissions(ctx, "user")
	if len(perms) != 2 {
		t.Fatalf("after invalidate: %v", perms)
	}
}

func TestManager_CycleRejected(t *testing.T) {
	ctx := context.Background()
	store := memory.New()
	r := rbac.NewResolver(store, cache.NewGuarded(cache.NewMemory("")))
	m := rbac.NewManager(store, r)

	a, err := m.CreateRole(ctx, repository.RoleInput{Name: "editor"})
	if err != nil {
		t.Fatalf("CreateRole: %v", err)
	}
	b, err := m.CreateRole(ctx, repository.RoleInput{Name: "revisor", ParentRoleID: &a.ID})
	if err != nil {
		t.Fatalf("CreateRole child: %v", err)
	}

	// a no puede pasar a heredar de b
	_, err = m.UpdateRole(ctx, a.ID, repository.RoleInput{Name: "editor", ParentRoleID: &b.ID})
	if !errors.Is(err, rbac.ErrInheritanceCycle) {
		t.Fatalf("err = %v, want ErrInheritanceCycle", err)
	}

	// auto-herencia tampoco
	_, err = m.UpdateRole(ctx, a.ID, repository.RoleInput{Name: "editor", ParentRoleID: &a.ID})
	if !errors.Is(err, rbac.ErrInheritanceCycle) {
		t.Fatalf("self parent: err = %v, want ErrInheritanceCycle", err)
	}
}

func TestManager_InvalidNames(t *testing.T) {
	ctx := context.Background()
	store := memory.New()
	r := rbac.NewResolver(store, cache.NewGuarded(cache.NewMemory("")))
	m := rbac.NewManager(store, r)

	if _, err := m.CreateRole(ctx, repository.RoleInput{Name: "Nombre Malo"}); !errors.Is(err, rbac.ErrInvalidName) {
		t.Fatalf("role: err = %v, want ErrInvalidName", err)
	}
	if _, err := m.CreatePermission(ctx, repository.PermissionInput{Name: "MAL;"}); !errors.Is(err, rbac.ErrInvalidName) {
		t.Fatalf("permission: err = %v, want ErrInvalidName", err)
	}
}

func TestManager_AssignPermissions_InvalidatesCache(t *testing.T) {
	ctx := context.Background()
	store := memory.New()
	r := rbac.NewResolver(store, cache.NewGuarded(cache.NewMemory("")))
	m := rbac.NewManager(store, r)

	role, err := m.CreateRole(ctx, repository.RoleInput{Name: "editor"})
	if err != nil {
		t.Fatalf("CreateRole: %v", err)
	}
	perm, err := m.CreatePermission(ctx, repository.PermissionInput{Name: "blogs:update"})
	if err != nil {
		t.Fatalf("CreatePermission: %v", err)
	}

	// cache caliente sin el permiso
	if got, _ := r.HasPermission(ctx, "editor", "blogs:update"); got {
		t.Fatal("permission granted before assignment")
	}

	if err := m.AssignPermissions(ctx, role.ID, []string{perm.ID}); err != nil {
		t.Fatalf("AssignPermissions: %v", err)
	}
	if got, _ := r.HasPermission(ctx, "editor", "blogs:update"); !got {
		t.Fatal("permission missing after assignment")
	}

	if err := m.RemovePermission(ctx, role.ID, perm.ID); err != nil {
		t.Fatalf("RemovePermission: %v", err)
	}
	if got, _ := r.HasPermission(ctx, "editor", "blogs:update"); got {
		t.Fatal("permission still granted after removal")
	}
}

func TestManager_SystemRoleProtected(t *testing.T) {
	ctx := context.Background()
	store := memory.New()
	sys := store.SeedRole(repository.Role{Name: "super_admin", System: true})
	r := rbac.NewResolver(store, cache.NewGuarded(cache.NewMemory("")))
	m := rbac.NewManager(store, r)

	if err := m.DeleteRole(ctx, sys.ID); !errors.Is(err, repository.ErrSystemProtected) {
		t.Fatalf("err = %v, want ErrSystemProtected", err)
	}
}
