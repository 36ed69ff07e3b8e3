package permission

import "testing"

func newTestRegistry(t *testing.T, names ...string) *Registry {
	t.Helper()

	r := NewRegistry()
	for _, name := range names {
		if err := r.Register(name); err != nil {
			t.Fatalf("Register(%q): %v", name, err)
		}
	}
	return r
}

func TestRegistryRegisterAndHas(t *testing.T) {
	r := newTestRegistry(t, "products:read", "orders:write")

	if !r.Has("products:read") {
		t.Fatal("registered permission not found")
	}
	if r.Has("orders:read") {
		t.Fatal("unregistered permission reported present")
	}
	if r.Count() != 2 {
		t.Fatalf("Count = %d, want 2", r.Count())
	}
}

func TestRegistryRejectsDuplicatesAndEmpty(t *testing.T) {
	r := newTestRegistry(t, "products:read")

	if err := r.Register("products:read"); err == nil {
		t.Fatal("duplicate registration accepted")
	}
	if err := r.Register(""); err == nil {
		t.Fatal("empty permission name accepted")
	}
}

func TestRegistryFreeze(t *testing.T) {
	r := newTestRegistry(t, "products:read")
	r.Freeze()

	if err := r.Register("orders:read"); err == nil {
		t.Fatal("registration accepted after Freeze")
	}
	if !r.Has("products:read") {
		t.Fatal("Freeze dropped existing registrations")
	}
}

func TestRegistryNamesSorted(t *testing.T) {
	r := newTestRegistry(t, "c", "a", "b")

	names := r.Names()
	want := []string{"a", "b", "c"}
	for i := range want {
		if names[i] != want[i] {
			t.Fatalf("Names = %v, want %v", names, want)
		}
	}
}

func TestRoleManagerValidatesAgainstRegistry(t *testing.T) {
	r := newTestRegistry(t, "products:read", "orders:read")
	m := NewRoleManager(r)

	if err := m.RegisterRole("customer", []string{"products:read", "orders:read"}); err != nil {
		t.Fatalf("RegisterRole: %v", err)
	}
	if err := m.RegisterRole("broken", []string{"no:such"}); err == nil {
		t.Fatal("role with unregistered permission accepted")
	}
	if err := m.RegisterRole("customer", nil); err == nil {
		t.Fatal("duplicate role accepted")
	}
}

func TestRoleManagerPermissionsForReturnsCopy(t *testing.T) {
	r := newTestRegistry(t, "products:read")
	m := NewRoleManager(r)
	if err := m.RegisterRole("customer", []string{"products:read"}); err != nil {
		t.Fatalf("RegisterRole: %v", err)
	}

	perms, ok := m.PermissionsFor("customer")
	if !ok || len(perms) != 1 {
		t.Fatalf("PermissionsFor = (%v, %v)", perms, ok)
	}

	perms[0] = "mutated"
	again, _ := m.PermissionsFor("customer")
	if again[0] != "products:read" {
		t.Fatalf("caller mutation leaked into manager: %v", again)
	}

	if _, ok := m.PermissionsFor("ghost"); ok {
		t.Fatal("unknown role reported present")
	}
}

func TestRoleManagerChecks(t *testing.T) {
	r := newTestRegistry(t, "products:read", "admin:metrics")
	m := NewRoleManager(r)
	if err := m.RegisterRole("admin", []string{"products:read", "admin:metrics"}); err != nil {
		t.Fatalf("RegisterRole: %v", err)
	}
	m.Freeze()

	if !m.HasRole("admin") || m.HasRole("ghost") {
		t.Fatal("HasRole wrong")
	}
	if !m.HasPermission("admin", "admin:metrics") {
		t.Fatal("HasPermission missed a granted permission")
	}
	if m.HasPermission("admin", "orders:write") {
		t.Fatal("HasPermission granted an absent permission")
	}
	if err := m.RegisterRole("late", nil); err == nil {
		t.Fatal("registration accepted after Freeze")
	}
}
