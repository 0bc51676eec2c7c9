package common

import (
	"errors"
	"math/big"
)

var (
	ErrAmountOverflow = errors.New("amount overflows signed 128-bit range")
	ErrInvalidAmount  = errors.New("amount must be positive")
)

// maxI128 is the largest value representable by the signed 128-bit amounts
// the custody ledger accounts in. Arithmetic crossing it aborts instead of
// wrapping.
var maxI128 = new(big.Int).Sub(new(big.Int).Lsh(big.NewInt(1), 127), big.NewInt(1))

// FitsI128 reports whether v lies within [0, 2^127-1]. Negative amounts are
// rejected outright; the ledger has no notion of debt.
func FitsI128(v *big.Int) bool {
	if v == nil {
		return false
	}
	return v.Sign() >= 0 && v.Cmp(maxI128) <= 0
}

// CheckedAdd returns a+b, failing with ErrAmountOverflow when the sum leaves
// the signed 128-bit range. Both operands must already fit.
func CheckedAdd(a, b *big.Int) (*big.Int, error) {
	if !FitsI128(a) || !FitsI128(b) {
		return nil, ErrAmountOverflow
	}
	sum := new(big.Int).Add(a, b)
	if sum.Cmp(maxI128) > 0 {
		return nil, ErrAmountOverflow
	}
	return sum, nil
}

// CheckedSum folds CheckedAdd over the given amounts, additionally rejecting
// any non-positive entry. It is the validation step batch payouts run before
// touching state.
func CheckedSum(amounts []*big.Int) (*big.Int, error) {
	total := big.NewInt(0)
	for _, amt := range amounts {
		if amt == nil || amt.Sign() <= 0 {
			return nil, ErrInvalidAmount
		}
		next, err := CheckedAdd(total, amt)
		if err != nil {
			return nil, err
		}
		total = next
	}
	return total, nil
}
