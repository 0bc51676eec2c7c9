package program

import (
	"encoding/binary"
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/crypto"
)

// Program is the custody record for one prize pool. RemainingBalance only
// moves through overflow-checked additions (lock) and validated subtractions
// (payouts, scheduled releases) and never goes negative.
type Program struct {
	ID               string
	PayoutKey        [20]byte
	Token            string
	TotalFunds       *big.Int
	RemainingBalance *big.Int
	ScheduleSeq      uint64
	CreatedAt        int64
}

// Clone returns a deep copy so callers can mutate the copy without touching
// the stored instance.
func (p *Program) Clone() *Program {
	if p == nil {
		return nil
	}
	clone := *p
	if p.TotalFunds != nil {
		clone.TotalFunds = new(big.Int).Set(p.TotalFunds)
	} else {
		clone.TotalFunds = big.NewInt(0)
	}
	if p.RemainingBalance != nil {
		clone.RemainingBalance = new(big.Int).Set(p.RemainingBalance)
	} else {
		clone.RemainingBalance = big.NewInt(0)
	}
	return &clone
}

// PayoutRecord is one entry of a program's append-only payout history.
// RemainingBalance captures the pool balance after this payout landed.
type PayoutRecord struct {
	Recipient        [20]byte
	Amount           *big.Int
	Timestamp        int64
	RemainingBalance *big.Int
}

// Clone returns an independent copy of the record.
func (r PayoutRecord) Clone() PayoutRecord {
	clone := r
	if r.Amount != nil {
		clone.Amount = new(big.Int).Set(r.Amount)
	}
	if r.RemainingBalance != nil {
		clone.RemainingBalance = new(big.Int).Set(r.RemainingBalance)
	}
	return clone
}

// HardMaxBatchSize is the ceiling no configured limit can raise.
const HardMaxBatchSize = 100

// Limits holds the Admin-configurable operational limits of a program. Zero
// or nil fields disable the corresponding check; MaxBatchSize is additionally
// clamped to HardMaxBatchSize.
type Limits struct {
	MaxSingleAmount  *big.Int
	PerTxCap         *big.Int
	MaxBatchSize     uint32
	WhitelistEnabled bool
}

// Clone returns a deep copy of the limits.
func (l *Limits) Clone() *Limits {
	if l == nil {
		return nil
	}
	clone := *l
	if l.MaxSingleAmount != nil {
		clone.MaxSingleAmount = new(big.Int).Set(l.MaxSingleAmount)
	}
	if l.PerTxCap != nil {
		clone.PerTxCap = new(big.Int).Set(l.PerTxCap)
	}
	return &clone
}

// EffectiveMaxBatch resolves the batch ceiling: the configured value when set,
// otherwise the hard cap, never above the hard cap.
func (l *Limits) EffectiveMaxBatch() int {
	if l == nil || l.MaxBatchSize == 0 || l.MaxBatchSize > HardMaxBatchSize {
		return HardMaxBatchSize
	}
	return int(l.MaxBatchSize)
}

// ReleaseSchedule is a pre-committed future payout: recipient, amount and
// unlock time are fixed at creation, so triggering it needs no authorization.
type ReleaseSchedule struct {
	ID        [32]byte
	ProgramID string
	Recipient [20]byte
	Amount    *big.Int
	UnlockAt  int64
	Consumed  bool
	CreatedAt int64
}

// Clone returns a deep copy of the schedule.
func (s *ReleaseSchedule) Clone() *ReleaseSchedule {
	if s == nil {
		return nil
	}
	clone := *s
	if s.Amount != nil {
		clone.Amount = new(big.Int).Set(s.Amount)
	}
	return &clone
}

// ScheduleID derives a deterministic identifier for a release schedule from
// the program, recipient and the program's schedule sequence number.
func ScheduleID(programID string, recipient [20]byte, seq uint64) [32]byte {
	var seqBytes [8]byte
	binary.BigEndian.PutUint64(seqBytes[:], seq)
	hash := crypto.Keccak256Hash([]byte(programID), recipient[:], seqBytes[:])
	return [32]byte(hash)
}

func normalizeToken(symbol string) (string, error) {
	trimmed := strings.ToUpper(strings.TrimSpace(symbol))
	if trimmed == "" {
		return "", fmt.Errorf("program: empty token symbol")
	}
	return trimmed, nil
}

// NormalizeProgramID canonicalises a program identifier: trimmed, non-empty.
func NormalizeProgramID(id string) (string, error) {
	trimmed := strings.TrimSpace(id)
	if trimmed == "" {
		return "", fmt.Errorf("program: empty program id")
	}
	return trimmed, nil
}
