package common

import "errors"

var ErrModulePaused = errors.New("module paused")

// PauseView exposes the pause switch to the fund-moving engines. Read-only
// operations never consult it.
type PauseView interface {
	IsPaused(module string) bool
}

// Guard fails fast with ErrModulePaused when the named module is paused. A
// nil view or empty module name disables the check.
func Guard(p PauseView, module string) error {
	if p == nil || module == "" {
		return nil
	}
	if p.IsPaused(module) {
		return ErrModulePaused
	}
	return nil
}
