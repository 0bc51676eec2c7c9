package program

import (
	"math/big"
	"testing"
)

func TestProgramCloneIsDeep(t *testing.T) {
	original := &Program{
		ID:               "p1",
		Token:            "XLM",
		TotalFunds:       big.NewInt(1_000),
		RemainingBalance: big.NewInt(400),
	}
	clone := original.Clone()
	clone.TotalFunds.SetInt64(0)
	clone.RemainingBalance.SetInt64(0)

	if original.TotalFunds.String() != "1000" || original.RemainingBalance.String() != "400" {
		t.Fatal("clone mutation leaked into original")
	}

	sparse := (&Program{ID: "p2"}).Clone()
	if sparse.TotalFunds == nil || sparse.RemainingBalance == nil {
		t.Fatal("clone should materialise nil amounts")
	}
}

func TestEffectiveMaxBatch(t *testing.T) {
	cases := []struct {
		name   string
		limits *Limits
		want   int
	}{
		{"nil limits", nil, HardMaxBatchSize},
		{"zero means unset", &Limits{}, HardMaxBatchSize},
		{"configured below cap", &Limits{MaxBatchSize: 10}, 10},
		{"configured above cap", &Limits{MaxBatchSize: 1_000}, HardMaxBatchSize},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := tc.limits.EffectiveMaxBatch(); got != tc.want {
				t.Fatalf("got %d, want %d", got, tc.want)
			}
		})
	}
}

func TestScheduleIDDeterministic(t *testing.T) {
	recipient := newTestAddress(0x40)
	a := ScheduleID("p1", recipient, 0)
	b := ScheduleID("p1", recipient, 0)
	if a != b {
		t.Fatal("same inputs must derive the same id")
	}
	if ScheduleID("p1", recipient, 1) == a {
		t.Fatal("sequence must separate ids")
	}
	if ScheduleID("p2", recipient, 0) == a {
		t.Fatal("program must separate ids")
	}
	if ScheduleID("p1", newTestAddress(0x41), 0) == a {
		t.Fatal("recipient must separate ids")
	}
}

func TestNormalizeProgramID(t *testing.T) {
	got, err := NormalizeProgramID("  p1 ")
	if err != nil {
		t.Fatalf("normalize: %v", err)
	}
	if got != "p1" {
		t.Fatalf("got %q", got)
	}
	if _, err := NormalizeProgramID("   "); err == nil {
		t.Fatal("blank id should fail")
	}
}
