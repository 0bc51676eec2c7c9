package observability

import (
	"errors"
	"math/big"
	"time"

	"grainlify/native/escrow"
	"grainlify/native/program"
)

// observeOp times one engine call and records its outcome. Rate-limited
// rejections additionally bump the throttle counter.
func observeOp(module, op string, throttled error, fn func() error) error {
	start := time.Now()
	err := fn()
	metrics := CustodyMetrics()
	if throttled != nil && errors.Is(err, throttled) {
		metrics.ObserveThrottle(module)
	}
	metrics.Observe(module, op, err, time.Since(start))
	return err
}

// InstrumentedEscrow forwards every bounty escrow entry point to the wrapped
// engine while recording operation counts, outcomes and latency.
type InstrumentedEscrow struct {
	engine *escrow.Engine
}

// NewInstrumentedEscrow wraps an escrow engine with custody metrics.
func NewInstrumentedEscrow(engine *escrow.Engine) *InstrumentedEscrow {
	return &InstrumentedEscrow{engine: engine}
}

func (w *InstrumentedEscrow) Initialize(admin [20]byte, token string) error {
	return observeOp("escrow", "initialize", nil, func() error {
		return w.engine.Initialize(admin, token)
	})
}

func (w *InstrumentedEscrow) LockFunds(depositor [20]byte, bountyID uint64, amount *big.Int, deadline int64) error {
	return observeOp("escrow", "lock_funds", escrow.ErrRateLimited, func() error {
		return w.engine.LockFunds(depositor, bountyID, amount, deadline)
	})
}

func (w *InstrumentedEscrow) BatchLockFunds(items []escrow.LockItem) error {
	return observeOp("escrow", "batch_lock_funds", escrow.ErrRateLimited, func() error {
		return w.engine.BatchLockFunds(items)
	})
}

func (w *InstrumentedEscrow) ReleaseFunds(caller [20]byte, bountyID uint64, contributor [20]byte) error {
	return observeOp("escrow", "release_funds", escrow.ErrRateLimited, func() error {
		return w.engine.ReleaseFunds(caller, bountyID, contributor)
	})
}

func (w *InstrumentedEscrow) BatchReleaseFunds(caller [20]byte, items []escrow.ReleaseItem) error {
	return observeOp("escrow", "batch_release_funds", escrow.ErrRateLimited, func() error {
		return w.engine.BatchReleaseFunds(caller, items)
	})
}

func (w *InstrumentedEscrow) Refund(bountyID uint64) error {
	return observeOp("escrow", "refund", nil, func() error {
		return w.engine.Refund(bountyID)
	})
}

func (w *InstrumentedEscrow) ApproveRefund(caller [20]byte, bountyID uint64, amount *big.Int, recipient [20]byte, mode escrow.RefundMode) error {
	return observeOp("escrow", "approve_refund", nil, func() error {
		return w.engine.ApproveRefund(caller, bountyID, amount, recipient, mode)
	})
}

func (w *InstrumentedEscrow) RefundWithMode(bountyID uint64, amount *big.Int, recipient *[20]byte, mode escrow.RefundMode) error {
	return observeOp("escrow", "refund_with_mode", nil, func() error {
		return w.engine.RefundWithMode(bountyID, amount, recipient, mode)
	})
}

func (w *InstrumentedEscrow) EscrowInfo(bountyID uint64) (*escrow.Escrow, error) {
	var out *escrow.Escrow
	err := observeOp("escrow", "escrow_info", nil, func() error {
		var err error
		out, err = w.engine.EscrowInfo(bountyID)
		return err
	})
	return out, err
}

func (w *InstrumentedEscrow) Balance() (*big.Int, error) {
	var out *big.Int
	err := observeOp("escrow", "balance", nil, func() error {
		var err error
		out, err = w.engine.Balance()
		return err
	})
	return out, err
}

// InstrumentedProgram forwards every program escrow entry point to the
// wrapped engine while recording operation counts, outcomes and latency.
type InstrumentedProgram struct {
	engine *program.Engine
}

// NewInstrumentedProgram wraps a program engine with custody metrics.
func NewInstrumentedProgram(engine *program.Engine) *InstrumentedProgram {
	return &InstrumentedProgram{engine: engine}
}

func (w *InstrumentedProgram) InitProgram(programID string, payoutKey [20]byte, token string) error {
	return observeOp("program", "init_program", nil, func() error {
		return w.engine.InitProgram(programID, payoutKey, token)
	})
}

func (w *InstrumentedProgram) LockProgramFunds(programID string, from [20]byte, amount *big.Int) error {
	return observeOp("program", "lock_program_funds", program.ErrRateLimited, func() error {
		return w.engine.LockProgramFunds(programID, from, amount)
	})
}

func (w *InstrumentedProgram) SinglePayout(caller [20]byte, programID string, recipient [20]byte, amount *big.Int) error {
	return observeOp("program", "single_payout", program.ErrRateLimited, func() error {
		return w.engine.SinglePayout(caller, programID, recipient, amount)
	})
}

func (w *InstrumentedProgram) BatchPayout(caller [20]byte, programID string, recipients [][20]byte, amounts []*big.Int) error {
	return observeOp("program", "batch_payout", program.ErrRateLimited, func() error {
		return w.engine.BatchPayout(caller, programID, recipients, amounts)
	})
}

func (w *InstrumentedProgram) SetLimits(caller [20]byte, programID string, limits program.Limits) error {
	return observeOp("program", "set_limits", nil, func() error {
		return w.engine.SetLimits(caller, programID, limits)
	})
}

func (w *InstrumentedProgram) SetWhitelist(caller [20]byte, programID string, addrs ...[20]byte) error {
	return observeOp("program", "set_whitelist", nil, func() error {
		return w.engine.SetWhitelist(caller, programID, addrs...)
	})
}

func (w *InstrumentedProgram) UpdatePayoutKey(caller [20]byte, programID string, newKey [20]byte) error {
	return observeOp("program", "update_payout_key", nil, func() error {
		return w.engine.UpdatePayoutKey(caller, programID, newKey)
	})
}

func (w *InstrumentedProgram) CreateReleaseSchedule(caller [20]byte, programID string, recipient [20]byte, amount *big.Int, unlockAt int64) ([32]byte, error) {
	var id [32]byte
	err := observeOp("program", "create_release_schedule", nil, func() error {
		var err error
		id, err = w.engine.CreateReleaseSchedule(caller, programID, recipient, amount, unlockAt)
		return err
	})
	return id, err
}

func (w *InstrumentedProgram) CancelReleaseSchedule(caller [20]byte, programID string, scheduleID [32]byte) error {
	return observeOp("program", "cancel_release_schedule", nil, func() error {
		return w.engine.CancelReleaseSchedule(caller, programID, scheduleID)
	})
}

func (w *InstrumentedProgram) ReleaseScheduled(programID string, scheduleID [32]byte) error {
	return observeOp("program", "release_scheduled", nil, func() error {
		return w.engine.ReleaseScheduled(programID, scheduleID)
	})
}

func (w *InstrumentedProgram) ProgramInfo(programID string) (*program.Program, error) {
	var out *program.Program
	err := observeOp("program", "program_info", nil, func() error {
		var err error
		out, err = w.engine.ProgramInfo(programID)
		return err
	})
	return out, err
}

func (w *InstrumentedProgram) RemainingBalance(programID string) (*big.Int, error) {
	var out *big.Int
	err := observeOp("program", "remaining_balance", nil, func() error {
		var err error
		out, err = w.engine.RemainingBalance(programID)
		return err
	})
	return out, err
}

func (w *InstrumentedProgram) PayoutHistory(programID string) ([]program.PayoutRecord, error) {
	var out []program.PayoutRecord
	err := observeOp("program", "payout_history", nil, func() error {
		var err error
		out, err = w.engine.PayoutHistory(programID)
		return err
	})
	return out, err
}
