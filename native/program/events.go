package program

import (
	"encoding/hex"
	"math/big"
	"strconv"

	"grainlify/core/types"
)

const (
	EventTypeInitialized      = "program.initialized"
	EventTypeFundsLocked      = "program.funds_locked"
	EventTypePayout           = "program.payout"
	EventTypeBatchPayout      = "program.batch_payout"
	EventTypeScheduleCreated  = "program.schedule_created"
	EventTypeScheduleCanceled = "program.schedule_cancelled"
	EventTypeScheduleReleased = "program.schedule_released"
	EventTypeLimitsUpdated    = "program.limits_updated"
	EventTypeWhitelistUpdated = "program.whitelist_updated"
	EventTypePayoutKeyUpdated = "program.payout_key_updated"
)

type programEvent struct {
	evt *types.Event
}

func (e programEvent) EventType() string {
	if e.evt == nil {
		return ""
	}
	return e.evt.Type
}

// Event returns the underlying typed payload.
func (e programEvent) Event() *types.Event { return e.evt }

func amountString(v *big.Int) string {
	if v == nil {
		return "0"
	}
	return v.String()
}

func newInitializedEvent(p *Program) programEvent {
	return programEvent{evt: &types.Event{Type: EventTypeInitialized, Attributes: map[string]string{
		"programId":      p.ID,
		"payoutKey":      hex.EncodeToString(p.PayoutKey[:]),
		"token":          p.Token,
		"initialBalance": amountString(p.RemainingBalance),
	}}}
}

func newFundsLockedEvent(programID string, amount, newBalance *big.Int) programEvent {
	return programEvent{evt: &types.Event{Type: EventTypeFundsLocked, Attributes: map[string]string{
		"programId":  programID,
		"amount":     amountString(amount),
		"newBalance": amountString(newBalance),
	}}}
}

func newPayoutEvent(programID string, recipient [20]byte, amount, newBalance *big.Int) programEvent {
	return programEvent{evt: &types.Event{Type: EventTypePayout, Attributes: map[string]string{
		"programId":  programID,
		"recipient":  hex.EncodeToString(recipient[:]),
		"amount":     amountString(amount),
		"newBalance": amountString(newBalance),
	}}}
}

func newBatchPayoutEvent(programID string, count int, total, newBalance *big.Int) programEvent {
	return programEvent{evt: &types.Event{Type: EventTypeBatchPayout, Attributes: map[string]string{
		"programId":      programID,
		"recipientCount": strconv.Itoa(count),
		"totalAmount":    amountString(total),
		"newBalance":     amountString(newBalance),
	}}}
}

func newScheduleCreatedEvent(s *ReleaseSchedule) programEvent {
	return programEvent{evt: &types.Event{Type: EventTypeScheduleCreated, Attributes: map[string]string{
		"programId":  s.ProgramID,
		"scheduleId": hex.EncodeToString(s.ID[:]),
		"recipient":  hex.EncodeToString(s.Recipient[:]),
		"amount":     amountString(s.Amount),
		"unlockAt":   strconv.FormatInt(s.UnlockAt, 10),
	}}}
}

func newScheduleCanceledEvent(s *ReleaseSchedule) programEvent {
	return programEvent{evt: &types.Event{Type: EventTypeScheduleCanceled, Attributes: map[string]string{
		"programId":  s.ProgramID,
		"scheduleId": hex.EncodeToString(s.ID[:]),
	}}}
}

func newScheduleReleasedEvent(s *ReleaseSchedule, newBalance *big.Int) programEvent {
	return programEvent{evt: &types.Event{Type: EventTypeScheduleReleased, Attributes: map[string]string{
		"programId":  s.ProgramID,
		"scheduleId": hex.EncodeToString(s.ID[:]),
		"recipient":  hex.EncodeToString(s.Recipient[:]),
		"amount":     amountString(s.Amount),
		"newBalance": amountString(newBalance),
	}}}
}

func newLimitsUpdatedEvent(programID string, l *Limits) programEvent {
	return programEvent{evt: &types.Event{Type: EventTypeLimitsUpdated, Attributes: map[string]string{
		"programId":        programID,
		"maxSingleAmount":  amountString(l.MaxSingleAmount),
		"perTxCap":         amountString(l.PerTxCap),
		"maxBatchSize":     strconv.FormatUint(uint64(l.MaxBatchSize), 10),
		"whitelistEnabled": strconv.FormatBool(l.WhitelistEnabled),
	}}}
}

func newWhitelistUpdatedEvent(programID string, count int) programEvent {
	return programEvent{evt: &types.Event{Type: EventTypeWhitelistUpdated, Attributes: map[string]string{
		"programId": programID,
		"count":     strconv.Itoa(count),
	}}}
}

func newPayoutKeyUpdatedEvent(programID string, oldKey, newKey [20]byte) programEvent {
	return programEvent{evt: &types.Event{Type: EventTypePayoutKeyUpdated, Attributes: map[string]string{
		"programId": programID,
		"oldKey":    hex.EncodeToString(oldKey[:]),
		"newKey":    hex.EncodeToString(newKey[:]),
	}}}
}
