package rbac

import (
	"encoding/hex"

	"grainlify/core/types"
)

const (
	EventTypeRoleGranted = "rbac.role.granted"
	EventTypeRoleRevoked = "rbac.role.revoked"
	EventTypePaused      = "rbac.paused"
	EventTypeUnpaused    = "rbac.unpaused"
)

type rbacEvent struct {
	evt *types.Event
}

func (e rbacEvent) EventType() string {
	if e.evt == nil {
		return ""
	}
	return e.evt.Type
}

// Event returns the underlying typed payload.
func (e rbacEvent) Event() *types.Event { return e.evt }

func newRoleGrantedEvent(caller, addr [20]byte, role Role) rbacEvent {
	return rbacEvent{evt: &types.Event{Type: EventTypeRoleGranted, Attributes: map[string]string{
		"caller":  hex.EncodeToString(caller[:]),
		"address": hex.EncodeToString(addr[:]),
		"role":    role.String(),
	}}}
}

func newRoleRevokedEvent(caller, addr [20]byte, role Role) rbacEvent {
	return rbacEvent{evt: &types.Event{Type: EventTypeRoleRevoked, Attributes: map[string]string{
		"caller":  hex.EncodeToString(caller[:]),
		"address": hex.EncodeToString(addr[:]),
		"role":    role.String(),
	}}}
}

func newPausedEvent(caller [20]byte) rbacEvent {
	return rbacEvent{evt: &types.Event{Type: EventTypePaused, Attributes: map[string]string{
		"caller": hex.EncodeToString(caller[:]),
	}}}
}

func newUnpausedEvent(caller [20]byte) rbacEvent {
	return rbacEvent{evt: &types.Event{Type: EventTypeUnpaused, Attributes: map[string]string{
		"caller": hex.EncodeToString(caller[:]),
	}}}
}
