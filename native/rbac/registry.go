package rbac

import (
	"grainlify/core/events"
)

// RegistryState is the persistence surface the registry needs: the
// address-to-role map and the contract-wide pause switch.
type RegistryState interface {
	RoleGet(addr [20]byte) (Role, bool)
	RolePut(addr [20]byte, role Role) error
	RoleDelete(addr [20]byte) error
	PausedGet() bool
	PausedPut(paused bool) error
}

// Registry enforces role-gated access for every privileged entry point. It is
// threaded explicitly through the engines rather than living as a package
// global so tests can run isolated registries side by side.
type Registry struct {
	state   RegistryState
	emitter events.Emitter
}

// NewRegistry creates a registry backed by the provided state.
func NewRegistry(state RegistryState) *Registry {
	return &Registry{state: state, emitter: events.NoopEmitter{}}
}

// SetEmitter configures the event emitter used to broadcast role changes.
// Passing nil resets the emitter to a no-op implementation.
func (r *Registry) SetEmitter(emitter events.Emitter) {
	if emitter == nil {
		r.emitter = events.NoopEmitter{}
		return
	}
	r.emitter = emitter
}

// Bootstrap assigns the Admin role to the address supplied at contract
// initialization. It is the only implicit grant in the system; every later
// change goes through Grant/Revoke with an Admin caller.
func (r *Registry) Bootstrap(admin [20]byte) error {
	if r == nil || r.state == nil {
		return ErrNilState
	}
	if err := r.state.RolePut(admin, RoleAdmin); err != nil {
		return err
	}
	r.emit(newRoleGrantedEvent(admin, admin, RoleAdmin))
	return nil
}

// Grant stores role for addr, overwriting any existing assignment. The caller
// must hold the literal Admin role; Operator or Pauser capability does not
// suffice.
func (r *Registry) Grant(caller, addr [20]byte, role Role) error {
	if r == nil || r.state == nil {
		return ErrNilState
	}
	if !role.Valid() {
		return ErrInvalidRole
	}
	if !r.IsAdmin(caller) {
		return ErrUnauthorized
	}
	if err := r.state.RolePut(addr, role); err != nil {
		return err
	}
	r.emit(newRoleGrantedEvent(caller, addr, role))
	return nil
}

// Revoke deletes the role mapping for addr, reverting it to "no role". The
// caller must hold the literal Admin role. Revoking an address without a role
// is a no-op.
func (r *Registry) Revoke(caller, addr [20]byte) error {
	if r == nil || r.state == nil {
		return ErrNilState
	}
	if !r.IsAdmin(caller) {
		return ErrUnauthorized
	}
	role, ok := r.state.RoleGet(addr)
	if !ok {
		return nil
	}
	if err := r.state.RoleDelete(addr); err != nil {
		return err
	}
	r.emit(newRoleRevokedEvent(caller, addr, role))
	return nil
}

// RequireRole fails with ErrUnauthorized unless the caller's stored role
// equals expected, or equals Admin when expected is Operator or Pauser.
// Admin subsumes both operational roles but nothing subsumes Admin or Viewer.
func (r *Registry) RequireRole(caller [20]byte, expected Role) error {
	if r == nil || r.state == nil {
		return ErrNilState
	}
	role, ok := r.state.RoleGet(caller)
	if !ok {
		return ErrUnauthorized
	}
	if role == expected {
		return nil
	}
	switch expected {
	case RoleOperator, RolePauser:
		if role == RoleAdmin {
			return nil
		}
	case RoleAdmin, RoleViewer:
		// exact match only, handled above
	}
	return ErrUnauthorized
}

// Role returns the stored role for addr. The boolean reports whether a
// mapping exists. Unrestricted read.
func (r *Registry) Role(addr [20]byte) (Role, bool) {
	if r == nil || r.state == nil {
		return 0, false
	}
	return r.state.RoleGet(addr)
}

// IsAdmin reports whether addr holds the Admin role. No side effects.
func (r *Registry) IsAdmin(addr [20]byte) bool {
	role, ok := r.Role(addr)
	return ok && role == RoleAdmin
}

// IsOperator reports whether addr holds the Operator role. Admin does not
// count here; callers wanting the superset semantics use RequireRole.
func (r *Registry) IsOperator(addr [20]byte) bool {
	role, ok := r.Role(addr)
	return ok && role == RoleOperator
}

// CanPause reports whether addr may pause the contract: Pauser or Admin.
func (r *Registry) CanPause(addr [20]byte) bool {
	role, ok := r.Role(addr)
	return ok && (role == RolePauser || role == RoleAdmin)
}

// Pause flips the contract into the paused state. Requires Pauser-or-Admin.
// Pausing an already-paused contract fails with ErrAlreadyPaused.
func (r *Registry) Pause(caller [20]byte) error {
	if r == nil || r.state == nil {
		return ErrNilState
	}
	if !r.CanPause(caller) {
		return ErrUnauthorized
	}
	if r.state.PausedGet() {
		return ErrAlreadyPaused
	}
	if err := r.state.PausedPut(true); err != nil {
		return err
	}
	r.emit(newPausedEvent(caller))
	return nil
}

// Unpause returns the contract to the unpaused state. Requires the literal
// Admin role; a Pauser cannot undo its own pause.
func (r *Registry) Unpause(caller [20]byte) error {
	if r == nil || r.state == nil {
		return ErrNilState
	}
	if !r.IsAdmin(caller) {
		return ErrUnauthorized
	}
	if !r.state.PausedGet() {
		return ErrNotPaused
	}
	if err := r.state.PausedPut(false); err != nil {
		return err
	}
	r.emit(newUnpausedEvent(caller))
	return nil
}

// IsPaused implements common.PauseView. The pause switch is contract-wide, so
// the module name is ignored.
func (r *Registry) IsPaused(string) bool {
	if r == nil || r.state == nil {
		return false
	}
	return r.state.PausedGet()
}

func (r *Registry) emit(evt events.Event) {
	if r == nil || r.emitter == nil || evt == nil {
		return
	}
	r.emitter.Emit(evt)
}
