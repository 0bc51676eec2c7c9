package program

import (
	"errors"
	"math/big"
	"time"

	"grainlify/core/events"
	"grainlify/core/types"
	"grainlify/native/common"
	"grainlify/native/rbac"
)

const moduleName = "program"

type engineState interface {
	ProgramPut(*Program) error
	ProgramGet(id string) (*Program, bool)
	LimitsPut(programID string, l *Limits) error
	LimitsGet(programID string) (*Limits, bool)
	WhitelistPut(programID string, addrs [][20]byte) error
	WhitelistGet(programID string) ([][20]byte, bool)
	SchedulePut(*ReleaseSchedule) error
	ScheduleGet(programID string, id [32]byte) (*ReleaseSchedule, bool)
	PayoutAppend(programID string, rec PayoutRecord) error
	PayoutList(programID string) ([]PayoutRecord, error)
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
}

// Engine drives prize-pool custody for any number of programs. Payout
// authorization is keyed per program so a dedicated backend signer can
// disburse without holding a general role; Admin and Operator remain valid
// disbursers through the RBAC registry.
type Engine struct {
	state   engineState
	roles   roleAuthority
	pauses  common.PauseView
	emitter events.Emitter
	quota   common.Quota
	nowFn   func() int64
}

// NewEngine creates a program escrow engine with a no-op emitter and no rate
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

// checkQuota counts one invocation against the caller's window for the given
// program and fails with ErrRateLimited once the ceiling is hit.
func (e *Engine) checkQuota(programID string, addr [20]byte) error {
	if !e.quota.Enabled() {
		return nil
	}
	scope := moduleName + "/" + programID
	window := e.quota.WindowID(e.now())
	prev, err := e.state.QuotaGet(scope, addr)
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
	return e.state.QuotaPut(scope, addr, next)
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

func (e *Engine) program(programID string) (*Program, error) {
	if e == nil || e.state == nil {
		return nil, ErrNilState
	}
	id, err := NormalizeProgramID(programID)
	if err != nil {
		return nil, err
	}
	p, ok := e.state.ProgramGet(id)
	if !ok {
		return nil, ErrProgramNotFound
	}
	return p, nil
}

// authorizePayout admits the program's payout key as well as Admin and
// Operator role holders.
func (e *Engine) authorizePayout(caller [20]byte, p *Program) error {
	if caller == p.PayoutKey {
		return nil
	}
	if e.roles == nil {
		return ErrNilRoles
	}
	if err := e.roles.RequireRole(caller, rbac.RoleOperator); err != nil {
		return rbac.ErrUnauthorized
	}
	return nil
}

func (e *Engine) requireAdmin(caller [20]byte) error {
	if e.roles == nil {
		return ErrNilRoles
	}
	if !e.roles.IsAdmin(caller) {
		return rbac.ErrUnauthorized
	}
	return nil
}

func (e *Engine) limits(programID string) *Limits {
	if l, ok := e.state.LimitsGet(programID); ok {
		return l
	}
	return nil
}

// checkPayoutAmount enforces the configured single-payout ceilings for one
// disbursement against the program's limits.
func checkPayoutAmount(l *Limits, amount *big.Int) error {
	if l == nil {
		return nil
	}
	if l.MaxSingleAmount != nil && l.MaxSingleAmount.Sign() > 0 && amount.Cmp(l.MaxSingleAmount) > 0 {
		return ErrPayoutCapExceeded
	}
	if l.PerTxCap != nil && l.PerTxCap.Sign() > 0 && amount.Cmp(l.PerTxCap) > 0 {
		return ErrPayoutCapExceeded
	}
	return nil
}

// checkWhitelist enforces recipient eligibility when the whitelist is enabled.
func (e *Engine) checkWhitelist(programID string, l *Limits, recipient [20]byte) error {
	if l == nil || !l.WhitelistEnabled {
		return nil
	}
	addrs, ok := e.state.WhitelistGet(programID)
	if !ok {
		return ErrRecipientNotAllowed
	}
	for _, addr := range addrs {
		if addr == recipient {
			return nil
		}
	}
	return ErrRecipientNotAllowed
}

// InitProgram creates the custody record for programID with its dedicated
// payout key and token. It runs exactly once per program; repeats fail with
// ErrAlreadyInitialized.
func (e *Engine) InitProgram(programID string, payoutKey [20]byte, token string) error {
	if e == nil || e.state == nil {
		return ErrNilState
	}
	id, err := NormalizeProgramID(programID)
	if err != nil {
		return err
	}
	normalizedToken, err := normalizeToken(token)
	if err != nil {
		return err
	}
	if _, ok := e.state.ProgramGet(id); ok {
		return ErrAlreadyInitialized
	}
	p := &Program{
		ID:               id,
		PayoutKey:        payoutKey,
		Token:            normalizedToken,
		TotalFunds:       big.NewInt(0),
		RemainingBalance: big.NewInt(0),
		CreatedAt:        e.now(),
	}
	if err := e.state.ProgramPut(p); err != nil {
		return err
	}
	e.emit(newInitializedEvent(p))
	return nil
}

// LockProgramFunds moves amount from the funder into the pool's vault and
// grows the remaining balance with overflow-checked addition. Unrestricted
// and repeatable.
func (e *Engine) LockProgramFunds(programID string, from [20]byte, amount *big.Int) error {
	if e == nil || e.state == nil {
		return ErrNilState
	}
	if err := common.Guard(e.pauses, moduleName); err != nil {
		return err
	}
	p, err := e.program(programID)
	if err != nil {
		return err
	}
	if err := e.checkQuota(p.ID, from); err != nil {
		return err
	}
	amt := cloneBigInt(amount)
	if amt.Sign() <= 0 {
		return ErrInvalidAmount
	}
	if !common.FitsI128(amt) {
		return common.ErrAmountOverflow
	}
	newBalance, err := common.CheckedAdd(p.RemainingBalance, amt)
	if err != nil {
		return err
	}
	newTotal, err := common.CheckedAdd(p.TotalFunds, amt)
	if err != nil {
		return err
	}
	vault, err := e.state.VaultAddress(p.Token)
	if err != nil {
		return err
	}
	if err := e.transferToken(from, vault, p.Token, amt); err != nil {
		return err
	}
	p.RemainingBalance = newBalance
	p.TotalFunds = newTotal
	if err := e.state.ProgramPut(p); err != nil {
		return err
	}
	e.emit(newFundsLockedEvent(p.ID, amt, newBalance))
	return nil
}

// SinglePayout disburses amount to recipient. The caller must be the
// program's payout key or hold Admin/Operator. The balance decrement and
// history append land before the outbound transfer.
func (e *Engine) SinglePayout(caller [20]byte, programID string, recipient [20]byte, amount *big.Int) error {
	if e == nil || e.state == nil {
		return ErrNilState
	}
	if err := common.Guard(e.pauses, moduleName); err != nil {
		return err
	}
	p, err := e.program(programID)
	if err != nil {
		return err
	}
	if err := e.authorizePayout(caller, p); err != nil {
		return err
	}
	if err := e.checkQuota(p.ID, caller); err != nil {
		return err
	}
	amt := cloneBigInt(amount)
	if amt.Sign() <= 0 {
		return ErrInvalidAmount
	}
	limits := e.limits(p.ID)
	if err := checkPayoutAmount(limits, amt); err != nil {
		return err
	}
	if err := e.checkWhitelist(p.ID, limits, recipient); err != nil {
		return err
	}
	if amt.Cmp(p.RemainingBalance) > 0 {
		return ErrInsufficientBalance
	}
	return e.payout(p, recipient, amt)
}

// payout applies one validated disbursement: balance decrement, history
// append, then the transfer out of the vault.
func (e *Engine) payout(p *Program, recipient [20]byte, amount *big.Int) error {
	p.RemainingBalance = new(big.Int).Sub(p.RemainingBalance, amount)
	if err := e.state.ProgramPut(p); err != nil {
		return err
	}
	rec := PayoutRecord{
		Recipient:        recipient,
		Amount:           cloneBigInt(amount),
		Timestamp:        e.now(),
		RemainingBalance: cloneBigInt(p.RemainingBalance),
	}
	if err := e.state.PayoutAppend(p.ID, rec); err != nil {
		return err
	}
	vault, err := e.state.VaultAddress(p.Token)
	if err != nil {
		return err
	}
	if err := e.transferToken(vault, recipient, p.Token, amount); err != nil {
		return err
	}
	e.emit(newPayoutEvent(p.ID, recipient, amount, p.RemainingBalance))
	return nil
}

// batchPlan is the fully validated, immutable disbursement plan for one batch.
type batchPlan struct {
	amounts []*big.Int
	total   *big.Int
}

// BatchPayout disburses amounts[i] to recipients[i] atomically: the whole
// batch is validated, including the checked total against the remaining
// balance, before any balance change or transfer. A failing entry rejects the
// batch with nothing applied.
func (e *Engine) BatchPayout(caller [20]byte, programID string, recipients [][20]byte, amounts []*big.Int) error {
	if e == nil || e.state == nil {
		return ErrNilState
	}
	if err := common.Guard(e.pauses, moduleName); err != nil {
		return err
	}
	p, err := e.program(programID)
	if err != nil {
		return err
	}
	if err := e.authorizePayout(caller, p); err != nil {
		return err
	}
	if err := e.checkQuota(p.ID, caller); err != nil {
		return err
	}
	if len(recipients) != len(amounts) {
		return ErrBatchLengthMismatch
	}
	limits := e.limits(p.ID)
	if len(recipients) == 0 || len(recipients) > limits.EffectiveMaxBatch() {
		return ErrBatchTooLarge
	}
	plan := batchPlan{amounts: make([]*big.Int, len(amounts))}
	for i, amount := range amounts {
		amt := cloneBigInt(amount)
		if amt.Sign() <= 0 {
			return ErrInvalidAmount
		}
		if err := checkPayoutAmount(limits, amt); err != nil {
			return err
		}
		if err := e.checkWhitelist(p.ID, limits, recipients[i]); err != nil {
			return err
		}
		plan.amounts[i] = amt
	}
	plan.total, err = common.CheckedSum(plan.amounts)
	if err != nil {
		return err
	}
	if plan.total.Cmp(p.RemainingBalance) > 0 {
		return ErrInsufficientBalance
	}

	newBalance := new(big.Int).Sub(p.RemainingBalance, plan.total)
	p.RemainingBalance = newBalance
	if err := e.state.ProgramPut(p); err != nil {
		return err
	}
	vault, err := e.state.VaultAddress(p.Token)
	if err != nil {
		return err
	}
	now := e.now()
	running := new(big.Int).Add(newBalance, plan.total)
	for i, recipient := range recipients {
		running = new(big.Int).Sub(running, plan.amounts[i])
		rec := PayoutRecord{
			Recipient:        recipient,
			Amount:           cloneBigInt(plan.amounts[i]),
			Timestamp:        now,
			RemainingBalance: new(big.Int).Set(running),
		}
		if err := e.state.PayoutAppend(p.ID, rec); err != nil {
			return err
		}
		if err := e.transferToken(vault, recipient, p.Token, plan.amounts[i]); err != nil {
			return err
		}
	}
	e.emit(newBatchPayoutEvent(p.ID, len(recipients), plan.total, newBalance))
	return nil
}

// SetLimits replaces the program's operational limits. Admin only.
func (e *Engine) SetLimits(caller [20]byte, programID string, limits Limits) error {
	if e == nil || e.state == nil {
		return ErrNilState
	}
	if err := e.requireAdmin(caller); err != nil {
		return err
	}
	p, err := e.program(programID)
	if err != nil {
		return err
	}
	if limits.MaxBatchSize > HardMaxBatchSize {
		limits.MaxBatchSize = HardMaxBatchSize
	}
	stored := limits.Clone()
	if err := e.state.LimitsPut(p.ID, stored); err != nil {
		return err
	}
	e.emit(newLimitsUpdatedEvent(p.ID, stored))
	return nil
}

// SetWhitelist replaces the program's eligible-recipient set. Admin only. The
// set only takes effect while Limits.WhitelistEnabled is true.
func (e *Engine) SetWhitelist(caller [20]byte, programID string, addrs ...[20]byte) error {
	if e == nil || e.state == nil {
		return ErrNilState
	}
	if err := e.requireAdmin(caller); err != nil {
		return err
	}
	p, err := e.program(programID)
	if err != nil {
		return err
	}
	copied := make([][20]byte, len(addrs))
	copy(copied, addrs)
	if err := e.state.WhitelistPut(p.ID, copied); err != nil {
		return err
	}
	e.emit(newWhitelistUpdatedEvent(p.ID, len(copied)))
	return nil
}

// UpdatePayoutKey rotates the program's authorized payout key. Admin only.
func (e *Engine) UpdatePayoutKey(caller [20]byte, programID string, newKey [20]byte) error {
	if e == nil || e.state == nil {
		return ErrNilState
	}
	if err := e.requireAdmin(caller); err != nil {
		return err
	}
	p, err := e.program(programID)
	if err != nil {
		return err
	}
	oldKey := p.PayoutKey
	p.PayoutKey = newKey
	if err := e.state.ProgramPut(p); err != nil {
		return err
	}
	e.emit(newPayoutKeyUpdatedEvent(p.ID, oldKey, newKey))
	return nil
}

// CreateReleaseSchedule stores a pre-committed future payout. Admin or
// Operator. No funds move until the schedule is released.
func (e *Engine) CreateReleaseSchedule(caller [20]byte, programID string, recipient [20]byte, amount *big.Int, unlockAt int64) ([32]byte, error) {
	var id [32]byte
	if e == nil || e.state == nil {
		return id, ErrNilState
	}
	if e.roles == nil {
		return id, ErrNilRoles
	}
	p, err := e.program(programID)
	if err != nil {
		return id, err
	}
	if err := e.roles.RequireRole(caller, rbac.RoleOperator); err != nil {
		return id, err
	}
	amt := cloneBigInt(amount)
	if amt.Sign() <= 0 {
		return id, ErrInvalidAmount
	}
	if !common.FitsI128(amt) {
		return id, common.ErrAmountOverflow
	}
	seq := p.ScheduleSeq
	p.ScheduleSeq++
	if err := e.state.ProgramPut(p); err != nil {
		return id, err
	}
	id = ScheduleID(p.ID, recipient, seq)
	schedule := &ReleaseSchedule{
		ID:        id,
		ProgramID: p.ID,
		Recipient: recipient,
		Amount:    amt,
		UnlockAt:  unlockAt,
		CreatedAt: e.now(),
	}
	if err := e.state.SchedulePut(schedule); err != nil {
		return id, err
	}
	e.emit(newScheduleCreatedEvent(schedule))
	return id, nil
}

// CancelReleaseSchedule withdraws a pending schedule before it is consumed.
// Admin or Operator.
func (e *Engine) CancelReleaseSchedule(caller [20]byte, programID string, scheduleID [32]byte) error {
	if e == nil || e.state == nil {
		return ErrNilState
	}
	if e.roles == nil {
		return ErrNilRoles
	}
	p, err := e.program(programID)
	if err != nil {
		return err
	}
	if err := e.roles.RequireRole(caller, rbac.RoleOperator); err != nil {
		return err
	}
	schedule, ok := e.state.ScheduleGet(p.ID, scheduleID)
	if !ok {
		return ErrScheduleNotFound
	}
	if schedule.Consumed {
		return ErrScheduleConsumed
	}
	schedule.Consumed = true
	if err := e.state.SchedulePut(schedule); err != nil {
		return err
	}
	e.emit(newScheduleCanceledEvent(schedule))
	return nil
}

// ReleaseScheduled triggers a due schedule. Unrestricted caller: recipient
// and amount were fixed at creation, so there is nothing for the caller to
// steer. The only gates are the unlock time and the consumed flag.
func (e *Engine) ReleaseScheduled(programID string, scheduleID [32]byte) error {
	if e == nil || e.state == nil {
		return ErrNilState
	}
	if err := common.Guard(e.pauses, moduleName); err != nil {
		return err
	}
	p, err := e.program(programID)
	if err != nil {
		return err
	}
	schedule, ok := e.state.ScheduleGet(p.ID, scheduleID)
	if !ok {
		return ErrScheduleNotFound
	}
	if schedule.Consumed {
		return ErrScheduleConsumed
	}
	if e.now() < schedule.UnlockAt {
		return ErrScheduleNotUnlocked
	}
	amount := cloneBigInt(schedule.Amount)
	if amount.Cmp(p.RemainingBalance) > 0 {
		return ErrInsufficientBalance
	}
	schedule.Consumed = true
	if err := e.state.SchedulePut(schedule); err != nil {
		return err
	}
	p.RemainingBalance = new(big.Int).Sub(p.RemainingBalance, amount)
	if err := e.state.ProgramPut(p); err != nil {
		return err
	}
	rec := PayoutRecord{
		Recipient:        schedule.Recipient,
		Amount:           cloneBigInt(amount),
		Timestamp:        e.now(),
		RemainingBalance: cloneBigInt(p.RemainingBalance),
	}
	if err := e.state.PayoutAppend(p.ID, rec); err != nil {
		return err
	}
	vault, err := e.state.VaultAddress(p.Token)
	if err != nil {
		return err
	}
	if err := e.transferToken(vault, schedule.Recipient, p.Token, amount); err != nil {
		return err
	}
	e.emit(newScheduleReleasedEvent(schedule, p.RemainingBalance))
	return nil
}

// ProgramInfo returns a copy of the stored program record. Unrestricted read;
// available while paused.
func (e *Engine) ProgramInfo(programID string) (*Program, error) {
	p, err := e.program(programID)
	if err != nil {
		return nil, err
	}
	return p.Clone(), nil
}

// RemainingBalance returns the program's undisbursed pool balance.
// Unrestricted read; available while paused.
func (e *Engine) RemainingBalance(programID string) (*big.Int, error) {
	p, err := e.program(programID)
	if err != nil {
		return nil, err
	}
	return cloneBigInt(p.RemainingBalance), nil
}

// PayoutHistory returns the program's append-only payout history in order.
// Unrestricted read; available while paused.
func (e *Engine) PayoutHistory(programID string) ([]PayoutRecord, error) {
	p, err := e.program(programID)
	if err != nil {
		return nil, err
	}
	records, err := e.state.PayoutList(p.ID)
	if err != nil {
		return nil, err
	}
	out := make([]PayoutRecord, len(records))
	for i, rec := range records {
		out[i] = rec.Clone()
	}
	return out, nil
}

// Limits returns the program's configured limits, or nil when none are set.
// Unrestricted read.
func (e *Engine) Limits(programID string) (*Limits, error) {
	p, err := e.program(programID)
	if err != nil {
		return nil, err
	}
	if l, ok := e.state.LimitsGet(p.ID); ok {
		return l.Clone(), nil
	}
	return nil, nil
}
