package storage

import (
	"encoding/binary"
	"fmt"
	"math/big"
	"sort"

	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/rlp"

	"grainlify/core/types"
	"grainlify/native/common"
	"grainlify/native/escrow"
	"grainlify/native/program"
	"grainlify/native/rbac"
)

// Key prefixes for the custody state. Every record lives under its own
// prefix so backends without range queries still resolve exact lookups.
const (
	prefixRole      = "custody/role/"
	keyPaused       = "custody/paused"
	prefixEscrow    = "custody/escrow/"
	keyEscrowToken  = "custody/escrow-token"
	prefixApproval  = "custody/refund-approval/"
	prefixProgram   = "custody/program/"
	prefixLimits    = "custody/limits/"
	prefixWhitelist = "custody/whitelist/"
	prefixSchedule  = "custody/schedule/"
	prefixPayouts   = "custody/payouts/"
	prefixAccount   = "custody/account/"
	prefixQuota     = "custody/quota/"
	vaultDomain     = "custody/vault/"
)

// State is the typed persistence adapter the engines run against. It encodes
// every record with RLP under a prefixed key and satisfies the state
// interfaces of the rbac, escrow and program packages.
type State struct {
	db Database
}

// NewState wraps a key-value backend in the typed custody adapter.
func NewState(db Database) *State {
	return &State{db: db}
}

func escrowKey(bountyID uint64) []byte {
	var id [8]byte
	binary.BigEndian.PutUint64(id[:], bountyID)
	return append([]byte(prefixEscrow), id[:]...)
}

func approvalKey(bountyID uint64) []byte {
	var id [8]byte
	binary.BigEndian.PutUint64(id[:], bountyID)
	return append([]byte(prefixApproval), id[:]...)
}

func roleKey(addr [20]byte) []byte {
	return append([]byte(prefixRole), addr[:]...)
}

func accountKey(addr []byte) []byte {
	return append([]byte(prefixAccount), addr...)
}

func scheduleKey(programID string, id [32]byte) []byte {
	key := append([]byte(prefixSchedule), []byte(programID)...)
	key = append(key, '/')
	return append(key, id[:]...)
}

func quotaKey(module string, addr [20]byte) []byte {
	key := append([]byte(prefixQuota), []byte(module)...)
	key = append(key, '/')
	return append(key, addr[:]...)
}

func (s *State) putRLP(key []byte, value interface{}) error {
	encoded, err := rlp.EncodeToBytes(value)
	if err != nil {
		return fmt.Errorf("storage: encode %q: %w", key, err)
	}
	return s.db.Put(key, encoded)
}

// getRLP loads and decodes a record. The boolean reports existence; decode
// failures surface as errors.
func (s *State) getRLP(key []byte, out interface{}) (bool, error) {
	ok, err := s.db.Has(key)
	if err != nil || !ok {
		return false, err
	}
	raw, err := s.db.Get(key)
	if err != nil {
		return false, err
	}
	if err := rlp.DecodeBytes(raw, out); err != nil {
		return false, fmt.Errorf("storage: decode %q: %w", key, err)
	}
	return true, nil
}

// --- RBAC ---

func (s *State) RoleGet(addr [20]byte) (rbac.Role, bool) {
	var stored uint8
	ok, err := s.getRLP(roleKey(addr), &stored)
	if err != nil || !ok {
		return 0, false
	}
	role := rbac.Role(stored)
	if !role.Valid() {
		return 0, false
	}
	return role, true
}

func (s *State) RolePut(addr [20]byte, role rbac.Role) error {
	return s.putRLP(roleKey(addr), uint8(role))
}

func (s *State) RoleDelete(addr [20]byte) error {
	return s.db.Delete(roleKey(addr))
}

func (s *State) PausedGet() bool {
	var paused bool
	ok, err := s.getRLP([]byte(keyPaused), &paused)
	return err == nil && ok && paused
}

func (s *State) PausedPut(paused bool) error {
	return s.putRLP([]byte(keyPaused), paused)
}

// --- Bounty escrow ---

type storedRefundRecord struct {
	Amount    *big.Int
	Recipient [20]byte
	Mode      uint8
	Timestamp uint64
}

type storedEscrow struct {
	BountyID        uint64
	Depositor       [20]byte
	Token           string
	Amount          *big.Int
	RemainingAmount *big.Int
	Deadline        uint64
	CreatedAt       uint64
	Status          uint8
	RefundHistory   []storedRefundRecord
}

func toStoredEscrow(e *escrow.Escrow) *storedEscrow {
	stored := &storedEscrow{
		BountyID:        e.BountyID,
		Depositor:       e.Depositor,
		Token:           e.Token,
		Amount:          e.Amount,
		RemainingAmount: e.RemainingAmount,
		Deadline:        uint64(e.Deadline),
		CreatedAt:       uint64(e.CreatedAt),
		Status:          uint8(e.Status),
	}
	for _, rec := range e.RefundHistory {
		stored.RefundHistory = append(stored.RefundHistory, storedRefundRecord{
			Amount:    rec.Amount,
			Recipient: rec.Recipient,
			Mode:      uint8(rec.Mode),
			Timestamp: uint64(rec.Timestamp),
		})
	}
	return stored
}

func fromStoredEscrow(stored *storedEscrow) *escrow.Escrow {
	e := &escrow.Escrow{
		BountyID:        stored.BountyID,
		Depositor:       stored.Depositor,
		Token:           stored.Token,
		Amount:          stored.Amount,
		RemainingAmount: stored.RemainingAmount,
		Deadline:        int64(stored.Deadline),
		CreatedAt:       int64(stored.CreatedAt),
		Status:          escrow.EscrowStatus(stored.Status),
	}
	for _, rec := range stored.RefundHistory {
		e.RefundHistory = append(e.RefundHistory, escrow.RefundRecord{
			Amount:    rec.Amount,
			Recipient: rec.Recipient,
			Mode:      escrow.RefundMode(rec.Mode),
			Timestamp: int64(rec.Timestamp),
		})
	}
	return e
}

func (s *State) EscrowPut(e *escrow.Escrow) error {
	sanitized, err := escrow.SanitizeEscrow(e)
	if err != nil {
		return err
	}
	return s.putRLP(escrowKey(sanitized.BountyID), toStoredEscrow(sanitized))
}

func (s *State) EscrowGet(bountyID uint64) (*escrow.Escrow, bool) {
	var stored storedEscrow
	ok, err := s.getRLP(escrowKey(bountyID), &stored)
	if err != nil || !ok {
		return nil, false
	}
	return fromStoredEscrow(&stored), true
}

type storedRefundApproval struct {
	BountyID   uint64
	Amount     *big.Int
	Recipient  [20]byte
	Mode       uint8
	ApprovedBy [20]byte
	ApprovedAt uint64
}

func (s *State) RefundApprovalPut(a *escrow.RefundApproval) error {
	return s.putRLP(approvalKey(a.BountyID), &storedRefundApproval{
		BountyID:   a.BountyID,
		Amount:     a.Amount,
		Recipient:  a.Recipient,
		Mode:       uint8(a.Mode),
		ApprovedBy: a.ApprovedBy,
		ApprovedAt: uint64(a.ApprovedAt),
	})
}

func (s *State) RefundApprovalGet(bountyID uint64) (*escrow.RefundApproval, bool) {
	var stored storedRefundApproval
	ok, err := s.getRLP(approvalKey(bountyID), &stored)
	if err != nil || !ok {
		return nil, false
	}
	return &escrow.RefundApproval{
		BountyID:   stored.BountyID,
		Amount:     stored.Amount,
		Recipient:  stored.Recipient,
		Mode:       escrow.RefundMode(stored.Mode),
		ApprovedBy: stored.ApprovedBy,
		ApprovedAt: int64(stored.ApprovedAt),
	}, true
}

func (s *State) RefundApprovalDelete(bountyID uint64) error {
	return s.db.Delete(approvalKey(bountyID))
}

func (s *State) EscrowTokenGet() (string, bool) {
	var token string
	ok, err := s.getRLP([]byte(keyEscrowToken), &token)
	if err != nil || !ok {
		return "", false
	}
	return token, true
}

func (s *State) EscrowTokenPut(token string) error {
	return s.putRLP([]byte(keyEscrowToken), token)
}

// VaultAddress derives the deterministic custody address for a token. No
// private key exists for it, so vault funds only move through the engines.
func (s *State) VaultAddress(token string) ([20]byte, error) {
	var addr [20]byte
	if token == "" {
		return addr, fmt.Errorf("storage: empty token symbol")
	}
	hash := crypto.Keccak256([]byte(vaultDomain), []byte(token))
	copy(addr[:], hash[12:])
	return addr, nil
}

// --- Accounts ---

type tokenBalance struct {
	Token  string
	Amount *big.Int
}

type storedAccount struct {
	Nonce    uint64
	Balances []tokenBalance
}

func (s *State) GetAccount(addr []byte) (*types.Account, error) {
	var stored storedAccount
	ok, err := s.getRLP(accountKey(addr), &stored)
	if err != nil {
		return nil, err
	}
	account := types.EnsureAccount(nil)
	if !ok {
		return account, nil
	}
	account.Nonce = stored.Nonce
	for _, bal := range stored.Balances {
		account.SetBalance(bal.Token, bal.Amount)
	}
	return account, nil
}

func (s *State) PutAccount(addr []byte, account *types.Account) error {
	account = types.EnsureAccount(account)
	stored := storedAccount{Nonce: account.Nonce}
	tokens := make([]string, 0, len(account.Balances))
	for token := range account.Balances {
		tokens = append(tokens, token)
	}
	sort.Strings(tokens)
	for _, token := range tokens {
		stored.Balances = append(stored.Balances, tokenBalance{Token: token, Amount: account.Balance(token)})
	}
	return s.putRLP(accountKey(addr), &stored)
}

// --- Quota counters ---

type storedQuota struct {
	ReqCount uint32
	WindowID uint64
}

func (s *State) QuotaGet(module string, addr [20]byte) (common.QuotaNow, error) {
	var stored storedQuota
	ok, err := s.getRLP(quotaKey(module, addr), &stored)
	if err != nil || !ok {
		return common.QuotaNow{}, err
	}
	return common.QuotaNow{ReqCount: stored.ReqCount, WindowID: stored.WindowID}, nil
}

func (s *State) QuotaPut(module string, addr [20]byte, now common.QuotaNow) error {
	return s.putRLP(quotaKey(module, addr), &storedQuota{ReqCount: now.ReqCount, WindowID: now.WindowID})
}

// --- Program escrow ---

type storedProgram struct {
	ID               string
	PayoutKey        [20]byte
	Token            string
	TotalFunds       *big.Int
	RemainingBalance *big.Int
	ScheduleSeq      uint64
	CreatedAt        uint64
}

func (s *State) ProgramPut(p *program.Program) error {
	return s.putRLP(append([]byte(prefixProgram), []byte(p.ID)...), &storedProgram{
		ID:               p.ID,
		PayoutKey:        p.PayoutKey,
		Token:            p.Token,
		TotalFunds:       p.TotalFunds,
		RemainingBalance: p.RemainingBalance,
		ScheduleSeq:      p.ScheduleSeq,
		CreatedAt:        uint64(p.CreatedAt),
	})
}

func (s *State) ProgramGet(id string) (*program.Program, bool) {
	var stored storedProgram
	ok, err := s.getRLP(append([]byte(prefixProgram), []byte(id)...), &stored)
	if err != nil || !ok {
		return nil, false
	}
	return &program.Program{
		ID:               stored.ID,
		PayoutKey:        stored.PayoutKey,
		Token:            stored.Token,
		TotalFunds:       stored.TotalFunds,
		RemainingBalance: stored.RemainingBalance,
		ScheduleSeq:      stored.ScheduleSeq,
		CreatedAt:        int64(stored.CreatedAt),
	}, true
}

type storedLimits struct {
	MaxSingleAmount  *big.Int
	PerTxCap         *big.Int
	MaxBatchSize     uint32
	WhitelistEnabled bool
}

func (s *State) LimitsPut(programID string, l *program.Limits) error {
	return s.putRLP(append([]byte(prefixLimits), []byte(programID)...), &storedLimits{
		MaxSingleAmount:  l.MaxSingleAmount,
		PerTxCap:         l.PerTxCap,
		MaxBatchSize:     l.MaxBatchSize,
		WhitelistEnabled: l.WhitelistEnabled,
	})
}

func (s *State) LimitsGet(programID string) (*program.Limits, bool) {
	var stored storedLimits
	ok, err := s.getRLP(append([]byte(prefixLimits), []byte(programID)...), &stored)
	if err != nil || !ok {
		return nil, false
	}
	return &program.Limits{
		MaxSingleAmount:  stored.MaxSingleAmount,
		PerTxCap:         stored.PerTxCap,
		MaxBatchSize:     stored.MaxBatchSize,
		WhitelistEnabled: stored.WhitelistEnabled,
	}, true
}

func (s *State) WhitelistPut(programID string, addrs [][20]byte) error {
	return s.putRLP(append([]byte(prefixWhitelist), []byte(programID)...), addrs)
}

func (s *State) WhitelistGet(programID string) ([][20]byte, bool) {
	var addrs [][20]byte
	ok, err := s.getRLP(append([]byte(prefixWhitelist), []byte(programID)...), &addrs)
	if err != nil || !ok {
		return nil, false
	}
	return addrs, true
}

type storedSchedule struct {
	ID        [32]byte
	ProgramID string
	Recipient [20]byte
	Amount    *big.Int
	UnlockAt  uint64
	Consumed  bool
	CreatedAt uint64
}

func (s *State) SchedulePut(schedule *program.ReleaseSchedule) error {
	return s.putRLP(scheduleKey(schedule.ProgramID, schedule.ID), &storedSchedule{
		ID:        schedule.ID,
		ProgramID: schedule.ProgramID,
		Recipient: schedule.Recipient,
		Amount:    schedule.Amount,
		UnlockAt:  uint64(schedule.UnlockAt),
		Consumed:  schedule.Consumed,
		CreatedAt: uint64(schedule.CreatedAt),
	})
}

func (s *State) ScheduleGet(programID string, id [32]byte) (*program.ReleaseSchedule, bool) {
	var stored storedSchedule
	ok, err := s.getRLP(scheduleKey(programID, id), &stored)
	if err != nil || !ok {
		return nil, false
	}
	return &program.ReleaseSchedule{
		ID:        stored.ID,
		ProgramID: stored.ProgramID,
		Recipient: stored.Recipient,
		Amount:    stored.Amount,
		UnlockAt:  int64(stored.UnlockAt),
		Consumed:  stored.Consumed,
		CreatedAt: int64(stored.CreatedAt),
	}, true
}

type storedPayout struct {
	Recipient        [20]byte
	Amount           *big.Int
	Timestamp        uint64
	RemainingBalance *big.Int
}

func (s *State) PayoutAppend(programID string, rec program.PayoutRecord) error {
	records, err := s.payoutRecords(programID)
	if err != nil {
		return err
	}
	records = append(records, storedPayout{
		Recipient:        rec.Recipient,
		Amount:           rec.Amount,
		Timestamp:        uint64(rec.Timestamp),
		RemainingBalance: rec.RemainingBalance,
	})
	return s.putRLP(append([]byte(prefixPayouts), []byte(programID)...), records)
}

func (s *State) PayoutList(programID string) ([]program.PayoutRecord, error) {
	records, err := s.payoutRecords(programID)
	if err != nil {
		return nil, err
	}
	out := make([]program.PayoutRecord, len(records))
	for i, rec := range records {
		out[i] = program.PayoutRecord{
			Recipient:        rec.Recipient,
			Amount:           rec.Amount,
			Timestamp:        int64(rec.Timestamp),
			RemainingBalance: rec.RemainingBalance,
		}
	}
	return out, nil
}

func (s *State) payoutRecords(programID string) ([]storedPayout, error) {
	var records []storedPayout
	if _, err := s.getRLP(append([]byte(prefixPayouts), []byte(programID)...), &records); err != nil {
		return nil, err
	}
	return records, nil
}
