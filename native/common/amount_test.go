package common

import (
	"errors"
	"math/big"
	"testing"
)

func maxAmount() *big.Int {
	return new(big.Int).Sub(new(big.Int).Lsh(big.NewInt(1), 127), big.NewInt(1))
}

func TestFitsI128(t *testing.T) {
	if FitsI128(nil) {
		t.Fatal("nil should not fit")
	}
	if FitsI128(big.NewInt(-1)) {
		t.Fatal("negative should not fit")
	}
	if !FitsI128(maxAmount()) {
		t.Fatal("max i128 should fit")
	}
	over := new(big.Int).Add(maxAmount(), big.NewInt(1))
	if FitsI128(over) {
		t.Fatal("2^127 should not fit")
	}
}

func TestCheckedAddOverflow(t *testing.T) {
	if _, err := CheckedAdd(maxAmount(), big.NewInt(1)); !errors.Is(err, ErrAmountOverflow) {
		t.Fatalf("expected overflow, got %v", err)
	}
	sum, err := CheckedAdd(big.NewInt(40), big.NewInt(2))
	if err != nil {
		t.Fatalf("add: %v", err)
	}
	if sum.Int64() != 42 {
		t.Fatalf("unexpected sum %s", sum)
	}
}

func TestCheckedSum(t *testing.T) {
	total, err := CheckedSum([]*big.Int{big.NewInt(4000), big.NewInt(3000), big.NewInt(2999)})
	if err != nil {
		t.Fatalf("sum: %v", err)
	}
	if total.Int64() != 9999 {
		t.Fatalf("unexpected total %s", total)
	}
	if _, err := CheckedSum([]*big.Int{big.NewInt(1), big.NewInt(0)}); !errors.Is(err, ErrInvalidAmount) {
		t.Fatalf("expected invalid amount, got %v", err)
	}
	if _, err := CheckedSum([]*big.Int{maxAmount(), big.NewInt(1)}); !errors.Is(err, ErrAmountOverflow) {
		t.Fatalf("expected overflow, got %v", err)
	}
}
