package escrow

import (
	"fmt"
	"math/big"
	"strings"
)

// EscrowStatus tracks the lifecycle of a bounty escrow. Transitions are
// one-way: Locked escrows end in Released or Refunded and never leave a
// terminal state. PartiallyRefunded sits between Locked and Refunded while a
// remainder is still in custody.
type EscrowStatus uint8

const (
	EscrowLocked EscrowStatus = iota + 1
	EscrowReleased
	EscrowRefunded
	EscrowPartiallyRefunded
)

// Valid reports whether the status value is within the supported range.
func (s EscrowStatus) Valid() bool {
	switch s {
	case EscrowLocked, EscrowReleased, EscrowRefunded, EscrowPartiallyRefunded:
		return true
	default:
		return false
	}
}

// String returns the canonical status name used in events.
func (s EscrowStatus) String() string {
	switch s {
	case EscrowLocked:
		return "locked"
	case EscrowReleased:
		return "released"
	case EscrowRefunded:
		return "refunded"
	case EscrowPartiallyRefunded:
		return "partially_refunded"
	default:
		return "unknown"
	}
}

// refundable reports whether funds can still leave the escrow.
func (s EscrowStatus) refundable() bool {
	return s == EscrowLocked || s == EscrowPartiallyRefunded
}

// RefundMode selects how a refund is routed.
type RefundMode uint8

const (
	// RefundFull returns the entire remaining amount to the depositor.
	RefundFull RefundMode = iota + 1
	// RefundPartial returns a chosen slice of the remaining amount to the
	// depositor.
	RefundPartial
	// RefundCustom routes a chosen amount to an arbitrary recipient. Before
	// the deadline it additionally requires a matching admin approval.
	RefundCustom
)

// Valid reports whether the mode value is within the supported range.
func (m RefundMode) Valid() bool {
	switch m {
	case RefundFull, RefundPartial, RefundCustom:
		return true
	default:
		return false
	}
}

// String returns the canonical mode name used in events.
func (m RefundMode) String() string {
	switch m {
	case RefundFull:
		return "full"
	case RefundPartial:
		return "partial"
	case RefundCustom:
		return "custom"
	default:
		return "unknown"
	}
}

// RefundRecord is one entry of an escrow's append-only refund history.
type RefundRecord struct {
	Amount    *big.Int
	Recipient [20]byte
	Mode      RefundMode
	Timestamp int64
}

// RefundApproval is an admin-signed permission for a custom refund before the
// deadline. It is consumed by the matching refund call.
type RefundApproval struct {
	BountyID   uint64
	Amount     *big.Int
	Recipient  [20]byte
	Mode       RefundMode
	ApprovedBy [20]byte
	ApprovedAt int64
}

// Escrow holds the custody record for a single bounty. The contract's token
// balance attributable to the bounty equals RemainingAmount until a terminal
// transition occurs.
type Escrow struct {
	BountyID        uint64
	Depositor       [20]byte
	Token           string
	Amount          *big.Int
	RemainingAmount *big.Int
	Deadline        int64
	CreatedAt       int64
	Status          EscrowStatus
	RefundHistory   []RefundRecord
}

// Clone returns a deep copy so callers can mutate the copy without touching
// the stored instance.
func (e *Escrow) Clone() *Escrow {
	if e == nil {
		return nil
	}
	clone := *e
	if e.Amount != nil {
		clone.Amount = new(big.Int).Set(e.Amount)
	} else {
		clone.Amount = big.NewInt(0)
	}
	if e.RemainingAmount != nil {
		clone.RemainingAmount = new(big.Int).Set(e.RemainingAmount)
	} else {
		clone.RemainingAmount = big.NewInt(0)
	}
	if len(e.RefundHistory) > 0 {
		clone.RefundHistory = make([]RefundRecord, len(e.RefundHistory))
		for i, rec := range e.RefundHistory {
			clone.RefundHistory[i] = rec
			if rec.Amount != nil {
				clone.RefundHistory[i].Amount = new(big.Int).Set(rec.Amount)
			}
		}
	}
	return &clone
}

// NormalizeToken canonicalises a token symbol: trimmed, uppercase, non-empty.
func NormalizeToken(symbol string) (string, error) {
	trimmed := strings.ToUpper(strings.TrimSpace(symbol))
	if trimmed == "" {
		return "", fmt.Errorf("escrow: empty token symbol")
	}
	return trimmed, nil
}

// SanitizeEscrow validates and normalises the supplied escrow record,
// returning a cloned instance with canonical token casing and non-nil amount
// fields. The original value is not mutated.
func SanitizeEscrow(e *Escrow) (*Escrow, error) {
	if e == nil {
		return nil, fmt.Errorf("escrow: nil escrow")
	}
	clone := e.Clone()
	token, err := NormalizeToken(clone.Token)
	if err != nil {
		return nil, err
	}
	clone.Token = token
	if clone.Amount.Sign() < 0 || clone.RemainingAmount.Sign() < 0 {
		return nil, fmt.Errorf("escrow: negative amount")
	}
	if clone.RemainingAmount.Cmp(clone.Amount) > 0 {
		return nil, fmt.Errorf("escrow: remaining exceeds locked amount")
	}
	if !clone.Status.Valid() {
		return nil, fmt.Errorf("escrow: invalid status %d", clone.Status)
	}
	return clone, nil
}

// LockItem is one entry of a batch lock request.
type LockItem struct {
	BountyID  uint64
	Depositor [20]byte
	Amount    *big.Int
	Deadline  int64
}

// ReleaseItem is one entry of a batch release request.
type ReleaseItem struct {
	BountyID    uint64
	Contributor [20]byte
}
