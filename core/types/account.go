package types

import "math/big"

// Account is a ledger entry holding per-token balances. The custody engines
// move value between accounts through their state interfaces; the vault
// accounts holding escrowed funds are ordinary accounts addressed like any
// other.
type Account struct {
	Nonce    uint64              `json:"nonce"`
	Balances map[string]*big.Int `json:"balances"`
}

// EnsureAccount returns a usable account value: a fresh zero-balance account
// when acc is nil, otherwise acc with its balance map initialised.
func EnsureAccount(acc *Account) *Account {
	if acc == nil {
		return &Account{Balances: make(map[string]*big.Int)}
	}
	if acc.Balances == nil {
		acc.Balances = make(map[string]*big.Int)
	}
	return acc
}

// Balance returns the account balance for the given token, never nil.
func (a *Account) Balance(token string) *big.Int {
	if a == nil || a.Balances == nil {
		return big.NewInt(0)
	}
	if bal, ok := a.Balances[token]; ok && bal != nil {
		return new(big.Int).Set(bal)
	}
	return big.NewInt(0)
}

// SetBalance stores the balance for the given token, cloning the value so the
// caller can keep mutating its copy.
func (a *Account) SetBalance(token string, amount *big.Int) {
	if a == nil {
		return
	}
	if a.Balances == nil {
		a.Balances = make(map[string]*big.Int)
	}
	if amount == nil {
		amount = big.NewInt(0)
	}
	a.Balances[token] = new(big.Int).Set(amount)
}

// Clone returns a deep copy of the account.
func (a *Account) Clone() *Account {
	if a == nil {
		return EnsureAccount(nil)
	}
	clone := &Account{Nonce: a.Nonce, Balances: make(map[string]*big.Int, len(a.Balances))}
	for token, bal := range a.Balances {
		if bal == nil {
			clone.Balances[token] = big.NewInt(0)
			continue
		}
		clone.Balances[token] = new(big.Int).Set(bal)
	}
	return clone
}
