package observability

import (
	"errors"
	"math/big"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"

	"grainlify/native/common"
	"grainlify/native/escrow"
	"grainlify/native/rbac"
	"grainlify/storage"
)

func newInstrumentedEscrow(t *testing.T) (*InstrumentedEscrow, *escrow.Engine, *storage.State) {
	t.Helper()
	db := storage.NewMemDB()
	t.Cleanup(db.Close)
	state := storage.NewState(db)
	registry := rbac.NewRegistry(state)

	engine := escrow.NewEngine()
	engine.SetState(state)
	engine.SetRoles(registry)
	engine.SetPauses(registry)
	engine.SetNowFunc(func() int64 { return 1_700_000_000 })
	return NewInstrumentedEscrow(engine), engine, state
}

func fundAccount(t *testing.T, state *storage.State, addr [20]byte, amount int64) {
	t.Helper()
	acct, err := state.GetAccount(addr[:])
	if err != nil {
		t.Fatalf("get account: %v", err)
	}
	acct.SetBalance("XLM", big.NewInt(amount))
	if err := state.PutAccount(addr[:], acct); err != nil {
		t.Fatalf("put account: %v", err)
	}
}

func opCount(op, outcome string) float64 {
	return testutil.ToFloat64(CustodyMetrics().operations.WithLabelValues("escrow", op, outcome))
}

func TestInstrumentedEscrowRecordsOutcomes(t *testing.T) {
	wrapped, _, state := newInstrumentedEscrow(t)
	admin := [20]byte{0x01}
	depositor := [20]byte{0x10}
	fundAccount(t, state, depositor, 1_000)

	lockOK := opCount("lock_funds", "success")
	refundErr := opCount("refund", "error")

	if err := wrapped.Initialize(admin, "XLM"); err != nil {
		t.Fatalf("initialize: %v", err)
	}
	if err := wrapped.LockFunds(depositor, 1, big.NewInt(100), 1_700_000_100); err != nil {
		t.Fatalf("lock: %v", err)
	}
	if err := wrapped.Refund(1); !errors.Is(err, escrow.ErrDeadlineNotPassed) {
		t.Fatalf("expected deadline not passed, got %v", err)
	}

	if got := opCount("lock_funds", "success") - lockOK; got != 1 {
		t.Fatalf("expected 1 successful lock recorded, got %v", got)
	}
	if got := opCount("refund", "error") - refundErr; got != 1 {
		t.Fatalf("expected 1 failed refund recorded, got %v", got)
	}
	if _, err := wrapped.EscrowInfo(1); err != nil {
		t.Fatalf("info: %v", err)
	}
	if _, err := wrapped.Balance(); err != nil {
		t.Fatalf("balance: %v", err)
	}
}

func TestInstrumentedEscrowCountsThrottles(t *testing.T) {
	wrapped, engine, state := newInstrumentedEscrow(t)
	engine.SetQuota(common.Quota{MaxRequestsPerWindow: 1, WindowSeconds: 60})
	admin := [20]byte{0x01}
	depositor := [20]byte{0x10}
	fundAccount(t, state, depositor, 1_000)

	if err := wrapped.Initialize(admin, "XLM"); err != nil {
		t.Fatalf("initialize: %v", err)
	}
	before := testutil.ToFloat64(CustodyMetrics().throttles.WithLabelValues("escrow"))

	if err := wrapped.LockFunds(depositor, 1, big.NewInt(10), 1_700_000_100); err != nil {
		t.Fatalf("lock #1: %v", err)
	}
	if err := wrapped.LockFunds(depositor, 2, big.NewInt(10), 1_700_000_100); !errors.Is(err, escrow.ErrRateLimited) {
		t.Fatalf("expected rate limited, got %v", err)
	}

	after := testutil.ToFloat64(CustodyMetrics().throttles.WithLabelValues("escrow"))
	if after-before != 1 {
		t.Fatalf("expected 1 throttle recorded, got %v", after-before)
	}
}
