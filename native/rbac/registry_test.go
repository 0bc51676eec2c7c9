package rbac

import (
	"bytes"
	"errors"
	"testing"

	"grainlify/core/events"
)

type mockState struct {
	roles  map[[20]byte]Role
	paused bool
}

func newMockState() *mockState {
	return &mockState{roles: make(map[[20]byte]Role)}
}

func (m *mockState) RoleGet(addr [20]byte) (Role, bool) {
	role, ok := m.roles[addr]
	return role, ok
}

func (m *mockState) RolePut(addr [20]byte, role Role) error {
	m.roles[addr] = role
	return nil
}

func (m *mockState) RoleDelete(addr [20]byte) error {
	delete(m.roles, addr)
	return nil
}

func (m *mockState) PausedGet() bool { return m.paused }

func (m *mockState) PausedPut(paused bool) error {
	m.paused = paused
	return nil
}

type capturingEmitter struct {
	events []events.Event
}

func (c *capturingEmitter) Emit(evt events.Event) {
	c.events = append(c.events, evt)
}

func testAddr(fill byte) [20]byte {
	var addr [20]byte
	copy(addr[:], bytes.Repeat([]byte{fill}, 20))
	return addr
}

func newTestRegistry() (*Registry, *mockState, [20]byte) {
	state := newMockState()
	reg := NewRegistry(state)
	admin := testAddr(0x01)
	if err := reg.Bootstrap(admin); err != nil {
		panic(err)
	}
	return reg, state, admin
}

func TestBootstrapAssignsAdmin(t *testing.T) {
	reg, _, admin := newTestRegistry()
	role, ok := reg.Role(admin)
	if !ok || role != RoleAdmin {
		t.Fatalf("expected admin role, got %v ok=%v", role, ok)
	}
	if !reg.IsAdmin(admin) {
		t.Fatal("IsAdmin should report true for bootstrapped admin")
	}
}

func TestGrantAndRevokeRoundTrip(t *testing.T) {
	reg, _, admin := newTestRegistry()
	op := testAddr(0x02)

	if err := reg.Grant(admin, op, RoleOperator); err != nil {
		t.Fatalf("grant: %v", err)
	}
	role, ok := reg.Role(op)
	if !ok || role != RoleOperator {
		t.Fatalf("expected operator, got %v ok=%v", role, ok)
	}

	if err := reg.Revoke(admin, op); err != nil {
		t.Fatalf("revoke: %v", err)
	}
	if _, ok := reg.Role(op); ok {
		t.Fatal("expected role mapping removed")
	}
	if err := reg.RequireRole(op, RoleOperator); !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("expected unauthorized after revoke, got %v", err)
	}
}

func TestGrantRequiresLiteralAdmin(t *testing.T) {
	reg, _, admin := newTestRegistry()
	op := testAddr(0x02)
	pauser := testAddr(0x03)
	if err := reg.Grant(admin, op, RoleOperator); err != nil {
		t.Fatalf("grant operator: %v", err)
	}
	if err := reg.Grant(admin, pauser, RolePauser); err != nil {
		t.Fatalf("grant pauser: %v", err)
	}

	target := testAddr(0x04)
	if err := reg.Grant(op, target, RoleViewer); !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("operator grant should fail, got %v", err)
	}
	if err := reg.Grant(pauser, target, RoleViewer); !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("pauser grant should fail, got %v", err)
	}
	if err := reg.Revoke(op, admin); !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("operator revoke should fail, got %v", err)
	}
}

func TestGrantRejectsInvalidRole(t *testing.T) {
	reg, _, admin := newTestRegistry()
	if err := reg.Grant(admin, testAddr(0x09), Role(99)); !errors.Is(err, ErrInvalidRole) {
		t.Fatalf("expected invalid role, got %v", err)
	}
}

func TestGrantOverwritesExistingRole(t *testing.T) {
	reg, _, admin := newTestRegistry()
	addr := testAddr(0x05)
	if err := reg.Grant(admin, addr, RoleViewer); err != nil {
		t.Fatalf("grant viewer: %v", err)
	}
	if err := reg.Grant(admin, addr, RoleOperator); err != nil {
		t.Fatalf("grant operator: %v", err)
	}
	role, _ := reg.Role(addr)
	if role != RoleOperator {
		t.Fatalf("expected overwrite to operator, got %v", role)
	}
}

func TestRequireRoleAdminSubsumesOperatorAndPauser(t *testing.T) {
	reg, _, admin := newTestRegistry()
	if err := reg.RequireRole(admin, RoleOperator); err != nil {
		t.Fatalf("admin as operator: %v", err)
	}
	if err := reg.RequireRole(admin, RolePauser); err != nil {
		t.Fatalf("admin as pauser: %v", err)
	}
	if err := reg.RequireRole(admin, RoleAdmin); err != nil {
		t.Fatalf("admin as admin: %v", err)
	}
}

func TestRequireRoleDisjointSubsets(t *testing.T) {
	reg, _, admin := newTestRegistry()
	op := testAddr(0x02)
	pauser := testAddr(0x03)
	viewer := testAddr(0x04)
	if err := reg.Grant(admin, op, RoleOperator); err != nil {
		t.Fatalf("grant: %v", err)
	}
	if err := reg.Grant(admin, pauser, RolePauser); err != nil {
		t.Fatalf("grant: %v", err)
	}
	if err := reg.Grant(admin, viewer, RoleViewer); err != nil {
		t.Fatalf("grant: %v", err)
	}

	if err := reg.RequireRole(op, RolePauser); !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("operator is not a pauser, got %v", err)
	}
	if err := reg.RequireRole(pauser, RoleOperator); !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("pauser is not an operator, got %v", err)
	}
	if err := reg.RequireRole(op, RoleAdmin); !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("operator is not admin, got %v", err)
	}
	if err := reg.RequireRole(viewer, RoleOperator); !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("viewer has no write capability, got %v", err)
	}
}

func TestMultipleAdmins(t *testing.T) {
	reg, _, admin := newTestRegistry()
	second := testAddr(0x0A)
	if err := reg.Grant(admin, second, RoleAdmin); err != nil {
		t.Fatalf("grant second admin: %v", err)
	}
	third := testAddr(0x0B)
	if err := reg.Grant(second, third, RoleOperator); err != nil {
		t.Fatalf("second admin should be able to grant: %v", err)
	}
}

func TestPauseLifecycle(t *testing.T) {
	reg, _, admin := newTestRegistry()
	pauser := testAddr(0x03)
	op := testAddr(0x02)
	if err := reg.Grant(admin, pauser, RolePauser); err != nil {
		t.Fatalf("grant: %v", err)
	}
	if err := reg.Grant(admin, op, RoleOperator); err != nil {
		t.Fatalf("grant: %v", err)
	}

	if err := reg.Pause(op); !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("operator pause should fail, got %v", err)
	}
	if err := reg.Pause(pauser); err != nil {
		t.Fatalf("pauser pause: %v", err)
	}
	if !reg.IsPaused("escrow") {
		t.Fatal("expected paused")
	}
	if err := reg.Pause(admin); !errors.Is(err, ErrAlreadyPaused) {
		t.Fatalf("double pause should fail, got %v", err)
	}

	if err := reg.Unpause(pauser); !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("pauser unpause should fail, got %v", err)
	}
	if err := reg.Unpause(admin); err != nil {
		t.Fatalf("admin unpause: %v", err)
	}
	if reg.IsPaused("escrow") {
		t.Fatal("expected unpaused")
	}
	if err := reg.Unpause(admin); !errors.Is(err, ErrNotPaused) {
		t.Fatalf("unpause when not paused should fail, got %v", err)
	}
}

func TestEventsEmitted(t *testing.T) {
	reg, _, admin := newTestRegistry()
	emitter := &capturingEmitter{}
	reg.SetEmitter(emitter)

	addr := testAddr(0x07)
	if err := reg.Grant(admin, addr, RolePauser); err != nil {
		t.Fatalf("grant: %v", err)
	}
	if err := reg.Pause(addr); err != nil {
		t.Fatalf("pause: %v", err)
	}
	if err := reg.Unpause(admin); err != nil {
		t.Fatalf("unpause: %v", err)
	}
	if err := reg.Revoke(admin, addr); err != nil {
		t.Fatalf("revoke: %v", err)
	}

	want := []string{EventTypeRoleGranted, EventTypePaused, EventTypeUnpaused, EventTypeRoleRevoked}
	if len(emitter.events) != len(want) {
		t.Fatalf("expected %d events, got %d", len(want), len(emitter.events))
	}
	for i, evt := range emitter.events {
		if evt.EventType() != want[i] {
			t.Fatalf("event %d: expected %s, got %s", i, want[i], evt.EventType())
		}
	}
}
