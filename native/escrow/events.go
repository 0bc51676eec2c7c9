package escrow

import (
	"encoding/hex"
	"math/big"
	"strconv"

	"grainlify/core/types"
)

const (
	EventTypeInitialized    = "escrow.initialized"
	EventTypeFundsLocked    = "escrow.funds_locked"
	EventTypeFundsReleased  = "escrow.funds_released"
	EventTypeFundsRefunded  = "escrow.funds_refunded"
	EventTypeRefundApproved = "escrow.refund_approved"
	EventTypeBatchLocked    = "escrow.batch_locked"
	EventTypeBatchReleased  = "escrow.batch_released"
)

type escrowEvent struct {
	evt *types.Event
}

func (e escrowEvent) EventType() string {
	if e.evt == nil {
		return ""
	}
	return e.evt.Type
}

// Event returns the underlying typed payload.
func (e escrowEvent) Event() *types.Event { return e.evt }

func amountString(v *big.Int) string {
	if v == nil {
		return "0"
	}
	return v.String()
}

func newInitializedEvent(admin [20]byte, token string) escrowEvent {
	return escrowEvent{evt: &types.Event{Type: EventTypeInitialized, Attributes: map[string]string{
		"admin": hex.EncodeToString(admin[:]),
		"token": token,
	}}}
}

func newFundsLockedEvent(e *Escrow) escrowEvent {
	return escrowEvent{evt: &types.Event{Type: EventTypeFundsLocked, Attributes: map[string]string{
		"bountyId":  strconv.FormatUint(e.BountyID, 10),
		"depositor": hex.EncodeToString(e.Depositor[:]),
		"amount":    amountString(e.Amount),
		"deadline":  strconv.FormatInt(e.Deadline, 10),
	}}}
}

func newFundsReleasedEvent(e *Escrow, contributor [20]byte, amount *big.Int) escrowEvent {
	return escrowEvent{evt: &types.Event{Type: EventTypeFundsReleased, Attributes: map[string]string{
		"bountyId":    strconv.FormatUint(e.BountyID, 10),
		"contributor": hex.EncodeToString(contributor[:]),
		"amount":      amountString(amount),
	}}}
}

func newFundsRefundedEvent(e *Escrow, recipient [20]byte, amount *big.Int, mode RefundMode) escrowEvent {
	return escrowEvent{evt: &types.Event{Type: EventTypeFundsRefunded, Attributes: map[string]string{
		"bountyId":        strconv.FormatUint(e.BountyID, 10),
		"recipient":       hex.EncodeToString(recipient[:]),
		"amount":          amountString(amount),
		"mode":            mode.String(),
		"remainingAmount": amountString(e.RemainingAmount),
	}}}
}

func newRefundApprovedEvent(a *RefundApproval) escrowEvent {
	return escrowEvent{evt: &types.Event{Type: EventTypeRefundApproved, Attributes: map[string]string{
		"bountyId":   strconv.FormatUint(a.BountyID, 10),
		"recipient":  hex.EncodeToString(a.Recipient[:]),
		"amount":     amountString(a.Amount),
		"mode":       a.Mode.String(),
		"approvedBy": hex.EncodeToString(a.ApprovedBy[:]),
	}}}
}

func newBatchLockedEvent(count int, total *big.Int) escrowEvent {
	return escrowEvent{evt: &types.Event{Type: EventTypeBatchLocked, Attributes: map[string]string{
		"count":       strconv.Itoa(count),
		"totalAmount": amountString(total),
	}}}
}

func newBatchReleasedEvent(count int, total *big.Int) escrowEvent {
	return escrowEvent{evt: &types.Event{Type: EventTypeBatchReleased, Attributes: map[string]string{
		"count":       strconv.Itoa(count),
		"totalAmount": amountString(total),
	}}}
}
