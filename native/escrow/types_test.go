package escrow

import (
	"math/big"
	"testing"
)

func TestCloneIsDeep(t *testing.T) {
	original := &Escrow{
		BountyID:        1,
		Depositor:       newTestAddress(0x10),
		Token:           "XLM",
		Amount:          big.NewInt(500),
		RemainingAmount: big.NewInt(300),
		Deadline:        100,
		CreatedAt:       50,
		Status:          EscrowPartiallyRefunded,
		RefundHistory: []RefundRecord{
			{Amount: big.NewInt(200), Recipient: newTestAddress(0x20), Mode: RefundPartial, Timestamp: 60},
		},
	}
	clone := original.Clone()
	clone.Amount.SetInt64(0)
	clone.RemainingAmount.SetInt64(0)
	clone.RefundHistory[0].Amount.SetInt64(0)

	if original.Amount.String() != "500" {
		t.Fatalf("amount mutated through clone: %s", original.Amount)
	}
	if original.RemainingAmount.String() != "300" {
		t.Fatalf("remaining mutated through clone: %s", original.RemainingAmount)
	}
	if original.RefundHistory[0].Amount.String() != "200" {
		t.Fatalf("history mutated through clone: %s", original.RefundHistory[0].Amount)
	}
}

func TestCloneNilAmounts(t *testing.T) {
	clone := (&Escrow{BountyID: 2, Token: "XLM", Status: EscrowLocked}).Clone()
	if clone.Amount == nil || clone.RemainingAmount == nil {
		t.Fatal("clone should materialise nil amounts")
	}
}

func TestNormalizeToken(t *testing.T) {
	got, err := NormalizeToken("  xlm ")
	if err != nil {
		t.Fatalf("normalize: %v", err)
	}
	if got != "XLM" {
		t.Fatalf("got %q", got)
	}
	if _, err := NormalizeToken("   "); err == nil {
		t.Fatal("blank symbol should fail")
	}
}

func TestSanitizeEscrowRejectsBadRecords(t *testing.T) {
	base := func() *Escrow {
		return &Escrow{
			BountyID:        1,
			Token:           "xlm",
			Amount:          big.NewInt(100),
			RemainingAmount: big.NewInt(100),
			Status:          EscrowLocked,
		}
	}

	sanitized, err := SanitizeEscrow(base())
	if err != nil {
		t.Fatalf("sanitize: %v", err)
	}
	if sanitized.Token != "XLM" {
		t.Fatalf("token not normalized: %q", sanitized.Token)
	}

	bad := base()
	bad.RemainingAmount = big.NewInt(101)
	if _, err := SanitizeEscrow(bad); err == nil {
		t.Fatal("remaining above amount should fail")
	}

	bad = base()
	bad.Amount = big.NewInt(-1)
	if _, err := SanitizeEscrow(bad); err == nil {
		t.Fatal("negative amount should fail")
	}

	bad = base()
	bad.Status = EscrowStatus(0)
	if _, err := SanitizeEscrow(bad); err == nil {
		t.Fatal("invalid status should fail")
	}

	if _, err := SanitizeEscrow(nil); err == nil {
		t.Fatal("nil escrow should fail")
	}
}

func TestStatusAndModeStrings(t *testing.T) {
	if EscrowPartiallyRefunded.String() != "partially_refunded" {
		t.Fatalf("status string: %s", EscrowPartiallyRefunded)
	}
	if RefundCustom.String() != "custom" {
		t.Fatalf("mode string: %s", RefundCustom)
	}
	if EscrowStatus(9).Valid() || RefundMode(9).Valid() {
		t.Fatal("out-of-range values should be invalid")
	}
	if !EscrowLocked.refundable() || !EscrowPartiallyRefunded.refundable() {
		t.Fatal("locked states should be refundable")
	}
	if EscrowReleased.refundable() || EscrowRefunded.refundable() {
		t.Fatal("terminal states should not be refundable")
	}
}
