package escrow

import (
	"errors"
	"math/big"
	"time"

	"grainlify/core/events"
	"grainlify/core/types"
	"grainlify/native/common"
	"grainlify/native/rbac"
)

const (
	moduleName = "escrow"

	// MaxBatchSize is the hard ceiling on batch lock/release entries.
	MaxBatchSize = 100
)

type engineState interface {
	EscrowPut(*Escrow) error
	EscrowGet(bountyID uint64) (*Escrow, bool)
	RefundApprovalPut(*RefundApproval) error
	RefundApprovalGet(bountyID uint64) (*RefundApproval, bool)
	RefundApprovalDelete(bountyID uint64) error
	EscrowTokenGet() (string, bool)
	EscrowTokenPut(token string) error
	VaultAddress(token string) ([20]byte, error)
	GetAccount(addr []byte) (*types.Account, error)
	PutAccount(addr []byte, account *types.Account) error
	QuotaGet(module string, addr [20]byte) (common.QuotaNow, error)
	QuotaPut(module string, addr [20]byte, now common.QuotaNow) error
}

// roleAuthority is the slice of the RBAC registry the engine consumes.
type roleAuthority interface {
	RequireRole(caller [20]byte, expected rbac.Role) error
	IsAdmin(addr [20]byte) bool
	Bootstrap(admin [20]byte) error
}

// Engine wires the bounty escrow lifecycle with external state, role checks
// and event emission. Every entry point validates fully before mutating
// state, and state writes precede the ledger transfer on outbound value.
type Engine struct {
	state   engineState
	roles   roleAuthority
	pauses  common.PauseView
	emitter events.Emitter
	quota   common.Quota
	nowFn   func() int64
}

// NewEngine creates a bounty escrow engine with a no-op emitter and no rate
// limit. Callers configure collaborators via the setters.
func NewEngine() *Engine {
	return &Engine{
		emitter: events.NoopEmitter{},
		nowFn:   func() int64 { return time.Now().Unix() },
	}
}

// SetState configures the state backend used by the engine.
func (e *Engine) SetState(state engineState) { e.state = state }

// SetRoles configures the RBAC registry consulted by privileged entry points.
func (e *Engine) SetRoles(roles roleAuthority) { e.roles = roles }

// SetPauses configures the pause switch guarding fund-moving operations.
func (e *Engine) SetPauses(p common.PauseView) { e.pauses = p }

// SetQuota configures the per-caller rate limit on fund-moving operations.
// A zero quota disables the limit.
func (e *Engine) SetQuota(q common.Quota) { e.quota = q }

// SetEmitter configures the event emitter. Passing nil resets it to no-op.
func (e *Engine) SetEmitter(emitter events.Emitter) {
	if emitter == nil {
		e.emitter = events.NoopEmitter{}
		return
	}
	e.emitter = emitter
}

// SetNowFunc overrides the time source, primarily for deterministic tests.
func (e *Engine) SetNowFunc(now func() int64) {
	if now == nil {
		e.nowFn = func() int64 { return time.Now().Unix() }
		return
	}
	e.nowFn = now
}

func (e *Engine) emit(evt events.Event) {
	if e == nil || e.emitter == nil || evt == nil {
		return
	}
	e.emitter.Emit(evt)
}

func (e *Engine) now() int64 {
	if e == nil || e.nowFn == nil {
		return time.Now().Unix()
	}
	return e.nowFn()
}

func cloneBigInt(v *big.Int) *big.Int {
	if v == nil {
		return big.NewInt(0)
	}
	return new(big.Int).Set(v)
}

// checkQuota counts one invocation against the caller's rate-limit window and
// fails with ErrRateLimited once the ceiling is hit.
func (e *Engine) checkQuota(addr [20]byte) error {
	if !e.quota.Enabled() {
		return nil
	}
	window := e.quota.WindowID(e.now())
	prev, err := e.state.QuotaGet(moduleName, addr)
	if err != nil {
		return err
	}
	next, err := common.CheckQuota(e.quota, window, prev, 1)
	if err != nil {
		if errors.Is(err, common.ErrQuotaRequestsExceeded) {
			return ErrRateLimited
		}
		return err
	}
	return e.state.QuotaPut(moduleName, addr, next)
}

func (e *Engine) token() (string, error) {
	if e == nil || e.state == nil {
		return "", ErrNilState
	}
	token, ok := e.state.EscrowTokenGet()
	if !ok {
		return "", ErrNotInitialized
	}
	return token, nil
}

func (e *Engine) transferToken(from, to [20]byte, token string, amount *big.Int) error {
	amt := cloneBigInt(amount)
	if amt.Sign() == 0 {
		return nil
	}
	if amt.Sign() < 0 {
		return ErrInvalidAmount
	}
	fromAcc, err := e.state.GetAccount(from[:])
	if err != nil {
		return err
	}
	toAcc, err := e.state.GetAccount(to[:])
	if err != nil {
		return err
	}
	fromAcc = types.EnsureAccount(fromAcc)
	toAcc = types.EnsureAccount(toAcc)
	balance := fromAcc.Balance(token)
	if balance.Cmp(amt) < 0 {
		return ErrInsufficientVault
	}
	fromAcc.SetBalance(token, new(big.Int).Sub(balance, amt))
	toAcc.SetBalance(token, new(big.Int).Add(toAcc.Balance(token), amt))
	if err := e.state.PutAccount(from[:], fromAcc); err != nil {
		return err
	}
	return e.state.PutAccount(to[:], toAcc)
}

// Initialize stores the token reference and bootstraps the admin role. It can
// run exactly once; repeat calls fail with ErrAlreadyInitialized.
func (e *Engine) Initialize(admin [20]byte, token string) error {
	if e == nil || e.state == nil {
		return ErrNilState
	}
	if e.roles == nil {
		return ErrNilRoles
	}
	normalized, err := NormalizeToken(token)
	if err != nil {
		return err
	}
	if _, ok := e.state.EscrowTokenGet(); ok {
		return ErrAlreadyInitialized
	}
	if err := e.state.EscrowTokenPut(normalized); err != nil {
		return err
	}
	if err := e.roles.Bootstrap(admin); err != nil {
		return err
	}
	e.emit(newInitializedEvent(admin, normalized))
	return nil
}

// LockFunds transfers amount from the depositor into contract custody and
// creates a Locked escrow record keyed by bountyID. The depositor is the
// authorizing caller; no role is required.
func (e *Engine) LockFunds(depositor [20]byte, bountyID uint64, amount *big.Int, deadline int64) error {
	if e == nil || e.state == nil {
		return ErrNilState
	}
	if err := common.Guard(e.pauses, moduleName); err != nil {
		return err
	}
	if err := e.checkQuota(depositor); err != nil {
		return err
	}
	token, err := e.token()
	if err != nil {
		return err
	}
	amt := cloneBigInt(amount)
	if amt.Sign() <= 0 {
		return ErrInvalidAmount
	}
	if !common.FitsI128(amt) {
		return common.ErrAmountOverflow
	}
	now := e.now()
	if deadline <= now {
		return ErrInvalidDeadline
	}
	if _, ok := e.state.EscrowGet(bountyID); ok {
		return ErrBountyExists
	}
	vault, err := e.state.VaultAddress(token)
	if err != nil {
		return err
	}
	if err := e.transferToken(depositor, vault, token, amt); err != nil {
		return err
	}
	esc := &Escrow{
		BountyID:        bountyID,
		Depositor:       depositor,
		Token:           token,
		Amount:          amt,
		RemainingAmount: cloneBigInt(amt),
		Deadline:        deadline,
		CreatedAt:       now,
		Status:          EscrowLocked,
	}
	if err := e.state.EscrowPut(esc); err != nil {
		return err
	}
	e.emit(newFundsLockedEvent(esc))
	return nil
}

// BatchLockFunds locks several bounties in one invocation. The whole batch is
// validated first; any failing entry rejects the batch with no record created
// and no transfer performed.
func (e *Engine) BatchLockFunds(items []LockItem) error {
	if e == nil || e.state == nil {
		return ErrNilState
	}
	if err := common.Guard(e.pauses, moduleName); err != nil {
		return err
	}
	if len(items) == 0 || len(items) > MaxBatchSize {
		return ErrBatchTooLarge
	}
	token, err := e.token()
	if err != nil {
		return err
	}
	now := e.now()
	seen := make(map[uint64]struct{}, len(items))
	amounts := make([]*big.Int, len(items))
	for i, item := range items {
		if _, dup := seen[item.BountyID]; dup {
			return ErrDuplicateBounty
		}
		seen[item.BountyID] = struct{}{}
		amt := cloneBigInt(item.Amount)
		if amt.Sign() <= 0 {
			return ErrInvalidAmount
		}
		if !common.FitsI128(amt) {
			return common.ErrAmountOverflow
		}
		if item.Deadline <= now {
			return ErrInvalidDeadline
		}
		if _, ok := e.state.EscrowGet(item.BountyID); ok {
			return ErrBountyExists
		}
		amounts[i] = amt
	}
	total, err := common.CheckedSum(amounts)
	if err != nil {
		return err
	}
	perDepositor := make(map[[20]byte]*big.Int, len(items))
	for i, item := range items {
		owed := perDepositor[item.Depositor]
		if owed == nil {
			owed = big.NewInt(0)
		}
		owed, err = common.CheckedAdd(owed, amounts[i])
		if err != nil {
			return err
		}
		perDepositor[item.Depositor] = owed
	}
	// every depositor must cover its share before anything is applied
	for depositor, owed := range perDepositor {
		acc, err := e.state.GetAccount(depositor[:])
		if err != nil {
			return err
		}
		if types.EnsureAccount(acc).Balance(token).Cmp(owed) < 0 {
			return ErrInsufficientVault
		}
	}
	for depositor := range perDepositor {
		if err := e.checkQuota(depositor); err != nil {
			return err
		}
	}
	vault, err := e.state.VaultAddress(token)
	if err != nil {
		return err
	}
	for i, item := range items {
		if err := e.transferToken(item.Depositor, vault, token, amounts[i]); err != nil {
			return err
		}
		esc := &Escrow{
			BountyID:        item.BountyID,
			Depositor:       item.Depositor,
			Token:           token,
			Amount:          amounts[i],
			RemainingAmount: cloneBigInt(amounts[i]),
			Deadline:        item.Deadline,
			CreatedAt:       now,
			Status:          EscrowLocked,
		}
		if err := e.state.EscrowPut(esc); err != nil {
			return err
		}
		e.emit(newFundsLockedEvent(esc))
	}
	e.emit(newBatchLockedEvent(len(items), total))
	return nil
}

// ReleaseFunds pays the escrowed amount out to the contributor and marks the
// escrow Released. The caller must hold Admin or Operator. The status write
// lands before the ledger transfer.
func (e *Engine) ReleaseFunds(caller [20]byte, bountyID uint64, contributor [20]byte) error {
	if e == nil || e.state == nil {
		return ErrNilState
	}
	if e.roles == nil {
		return ErrNilRoles
	}
	if err := common.Guard(e.pauses, moduleName); err != nil {
		return err
	}
	token, err := e.token()
	if err != nil {
		return err
	}
	if err := e.roles.RequireRole(caller, rbac.RoleOperator); err != nil {
		return err
	}
	if err := e.checkQuota(caller); err != nil {
		return err
	}
	esc, ok := e.state.EscrowGet(bountyID)
	if !ok {
		return ErrBountyNotFound
	}
	if esc.Status != EscrowLocked {
		return ErrFundsNotLocked
	}
	amount := cloneBigInt(esc.RemainingAmount)
	esc.Status = EscrowReleased
	esc.RemainingAmount = big.NewInt(0)
	if err := e.state.EscrowPut(esc); err != nil {
		return err
	}
	vault, err := e.state.VaultAddress(token)
	if err != nil {
		return err
	}
	if err := e.transferToken(vault, contributor, token, amount); err != nil {
		return err
	}
	e.emit(newFundsReleasedEvent(esc, contributor, amount))
	return nil
}

// BatchReleaseFunds releases several bounties in one invocation. The whole
// batch is validated, including a checked aggregate total, before any status
// write or transfer; a failing entry rejects the batch untouched.
func (e *Engine) BatchReleaseFunds(caller [20]byte, items []ReleaseItem) error {
	if e == nil || e.state == nil {
		return ErrNilState
	}
	if e.roles == nil {
		return ErrNilRoles
	}
	if err := common.Guard(e.pauses, moduleName); err != nil {
		return err
	}
	if len(items) == 0 || len(items) > MaxBatchSize {
		return ErrBatchTooLarge
	}
	token, err := e.token()
	if err != nil {
		return err
	}
	if err := e.roles.RequireRole(caller, rbac.RoleOperator); err != nil {
		return err
	}
	if err := e.checkQuota(caller); err != nil {
		return err
	}
	seen := make(map[uint64]struct{}, len(items))
	amounts := make([]*big.Int, len(items))
	for i, item := range items {
		if _, dup := seen[item.BountyID]; dup {
			return ErrDuplicateBounty
		}
		seen[item.BountyID] = struct{}{}
		esc, ok := e.state.EscrowGet(item.BountyID)
		if !ok {
			return ErrBountyNotFound
		}
		if esc.Status != EscrowLocked {
			return ErrFundsNotLocked
		}
		amounts[i] = cloneBigInt(esc.RemainingAmount)
	}
	total, err := common.CheckedSum(amounts)
	if err != nil {
		return err
	}
	vault, err := e.state.VaultAddress(token)
	if err != nil {
		return err
	}
	for i, item := range items {
		esc, ok := e.state.EscrowGet(item.BountyID)
		if !ok {
			return ErrBountyNotFound
		}
		esc.Status = EscrowReleased
		esc.RemainingAmount = big.NewInt(0)
		if err := e.state.EscrowPut(esc); err != nil {
			return err
		}
		if err := e.transferToken(vault, item.Contributor, token, amounts[i]); err != nil {
			return err
		}
		e.emit(newFundsReleasedEvent(esc, item.Contributor, amounts[i]))
	}
	e.emit(newBatchReleasedEvent(len(items), total))
	return nil
}

// Refund returns the full remaining amount to the original depositor once the
// deadline has passed. Anyone may call it; the only gate is the deadline, so
// funds are never stuck behind a lost depositor key. The funds always go to
// the depositor, never the caller.
func (e *Engine) Refund(bountyID uint64) error {
	return e.RefundWithMode(bountyID, nil, nil, RefundFull)
}

// ApproveRefund records an admin approval for a custom refund before the
// deadline. The approval must match the later refund call exactly and is
// consumed by it.
func (e *Engine) ApproveRefund(caller [20]byte, bountyID uint64, amount *big.Int, recipient [20]byte, mode RefundMode) error {
	if e == nil || e.state == nil {
		return ErrNilState
	}
	if e.roles == nil {
		return ErrNilRoles
	}
	if !e.roles.IsAdmin(caller) {
		return rbac.ErrUnauthorized
	}
	if !mode.Valid() {
		return ErrInvalidRefundMode
	}
	esc, ok := e.state.EscrowGet(bountyID)
	if !ok {
		return ErrBountyNotFound
	}
	if !esc.Status.refundable() {
		return ErrFundsNotLocked
	}
	amt := cloneBigInt(amount)
	if amt.Sign() <= 0 || amt.Cmp(esc.RemainingAmount) > 0 {
		return ErrInvalidAmount
	}
	approval := &RefundApproval{
		BountyID:   bountyID,
		Amount:     amt,
		Recipient:  recipient,
		Mode:       mode,
		ApprovedBy: caller,
		ApprovedAt: e.now(),
	}
	if err := e.state.RefundApprovalPut(approval); err != nil {
		return err
	}
	e.emit(newRefundApprovedEvent(approval))
	return nil
}

// RefundWithMode routes a refund according to mode. Full and Partial return
// funds to the depositor and require the deadline to have passed. Custom
// routes to an arbitrary recipient; before the deadline it requires a
// matching admin approval, which is consumed. Partial refunds leave the
// escrow in PartiallyRefunded until the remaining amount reaches zero.
func (e *Engine) RefundWithMode(bountyID uint64, amount *big.Int, recipient *[20]byte, mode RefundMode) error {
	if e == nil || e.state == nil {
		return ErrNilState
	}
	if err := common.Guard(e.pauses, moduleName); err != nil {
		return err
	}
	if !mode.Valid() {
		return ErrInvalidRefundMode
	}
	token, err := e.token()
	if err != nil {
		return err
	}
	esc, ok := e.state.EscrowGet(bountyID)
	if !ok {
		return ErrBountyNotFound
	}
	if !esc.Status.refundable() {
		return ErrFundsNotLocked
	}
	now := e.now()
	beforeDeadline := now < esc.Deadline

	var refundAmount *big.Int
	var refundRecipient [20]byte
	switch mode {
	case RefundFull:
		refundAmount = cloneBigInt(esc.RemainingAmount)
		refundRecipient = esc.Depositor
		if beforeDeadline {
			return ErrDeadlineNotPassed
		}
	case RefundPartial:
		if amount == nil {
			refundAmount = cloneBigInt(esc.RemainingAmount)
		} else {
			refundAmount = cloneBigInt(amount)
		}
		refundRecipient = esc.Depositor
		if beforeDeadline {
			return ErrDeadlineNotPassed
		}
	case RefundCustom:
		if amount == nil || recipient == nil {
			return ErrInvalidAmount
		}
		refundAmount = cloneBigInt(amount)
		refundRecipient = *recipient
		if beforeDeadline {
			approval, ok := e.state.RefundApprovalGet(bountyID)
			if !ok {
				return ErrRefundNotApproved
			}
			if approval.Amount == nil || approval.Amount.Cmp(refundAmount) != 0 ||
				approval.Recipient != refundRecipient || approval.Mode != mode {
				return ErrRefundNotApproved
			}
			if err := e.state.RefundApprovalDelete(bountyID); err != nil {
				return err
			}
		}
	}
	if refundAmount.Sign() <= 0 || refundAmount.Cmp(esc.RemainingAmount) > 0 {
		return ErrInvalidAmount
	}

	esc.RemainingAmount = new(big.Int).Sub(esc.RemainingAmount, refundAmount)
	esc.RefundHistory = append(esc.RefundHistory, RefundRecord{
		Amount:    refundAmount,
		Recipient: refundRecipient,
		Mode:      mode,
		Timestamp: now,
	})
	if esc.RemainingAmount.Sign() == 0 {
		esc.Status = EscrowRefunded
	} else {
		esc.Status = EscrowPartiallyRefunded
	}
	if err := e.state.EscrowPut(esc); err != nil {
		return err
	}
	vault, err := e.state.VaultAddress(token)
	if err != nil {
		return err
	}
	if err := e.transferToken(vault, refundRecipient, token, refundAmount); err != nil {
		return err
	}
	e.emit(newFundsRefundedEvent(esc, refundRecipient, refundAmount, mode))
	return nil
}

// EscrowInfo returns a copy of the stored escrow record. Unrestricted read;
// available while paused.
func (e *Engine) EscrowInfo(bountyID uint64) (*Escrow, error) {
	if e == nil || e.state == nil {
		return nil, ErrNilState
	}
	esc, ok := e.state.EscrowGet(bountyID)
	if !ok {
		return nil, ErrBountyNotFound
	}
	return esc.Clone(), nil
}

// Balance returns the token balance held by the custody vault. The vault is
// shared per token across custody modules, so pools funded in the same token
// count toward this figure alongside the remaining locked bounty amounts.
// Unrestricted read; available while paused.
func (e *Engine) Balance() (*big.Int, error) {
	token, err := e.token()
	if err != nil {
		return nil, err
	}
	vault, err := e.state.VaultAddress(token)
	if err != nil {
		return nil, err
	}
	acc, err := e.state.GetAccount(vault[:])
	if err != nil {
		return nil, err
	}
	return types.EnsureAccount(acc).Balance(token), nil
}
