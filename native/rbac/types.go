package rbac

// Role is the access tag stored per address. Each address holds at most one
// role; revocation removes the mapping entry entirely.
type Role uint8

const (
	// RoleAdmin may grant and revoke roles, configure limits, unpause the
	// contract, and do anything Operator or Pauser can.
	RoleAdmin Role = iota + 1
	// RoleOperator may release escrowed funds and manage release schedules.
	RoleOperator
	// RolePauser may pause the contract but not unpause it.
	RolePauser
	// RoleViewer holds no write capability. It exists so integrations can
	// distinguish "known read-only key" from "no role at all".
	RoleViewer
)

// Valid reports whether the role value is within the supported range.
func (r Role) Valid() bool {
	switch r {
	case RoleAdmin, RoleOperator, RolePauser, RoleViewer:
		return true
	default:
		return false
	}
}

// String returns the canonical name used in events and logs.
func (r Role) String() string {
	switch r {
	case RoleAdmin:
		return "admin"
	case RoleOperator:
		return "operator"
	case RolePauser:
		return "pauser"
	case RoleViewer:
		return "viewer"
	default:
		return "unknown"
	}
}
