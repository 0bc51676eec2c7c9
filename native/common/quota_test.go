package common

import (
	"errors"
	"testing"
)

func TestCheckQuotaResetsOnNewWindow(t *testing.T) {
	q := Quota{MaxRequestsPerWindow: 2, WindowSeconds: 60}
	now, err := CheckQuota(q, 10, QuotaNow{ReqCount: 2, WindowID: 9}, 1)
	if err != nil {
		t.Fatalf("expected reset on new window, got %v", err)
	}
	if now.ReqCount != 1 || now.WindowID != 10 {
		t.Fatalf("unexpected counters: %+v", now)
	}
}

func TestCheckQuotaEnforcesCeiling(t *testing.T) {
	q := Quota{MaxRequestsPerWindow: 2, WindowSeconds: 60}
	now := QuotaNow{}
	var err error
	for i := 0; i < 2; i++ {
		now, err = CheckQuota(q, 5, now, 1)
		if err != nil {
			t.Fatalf("request %d: %v", i, err)
		}
	}
	if _, err := CheckQuota(q, 5, now, 1); !errors.Is(err, ErrQuotaRequestsExceeded) {
		t.Fatalf("expected quota exceeded, got %v", err)
	}
}

func TestCheckQuotaZeroCeilingUnlimited(t *testing.T) {
	q := Quota{MaxRequestsPerWindow: 0, WindowSeconds: 60}
	now := QuotaNow{}
	var err error
	for i := 0; i < 1000; i++ {
		now, err = CheckQuota(q, 1, now, 1)
		if err != nil {
			t.Fatalf("request %d: %v", i, err)
		}
	}
}

func TestQuotaWindowID(t *testing.T) {
	q := Quota{MaxRequestsPerWindow: 1, WindowSeconds: 60}
	if got := q.WindowID(0); got != 0 {
		t.Fatalf("window at 0: %d", got)
	}
	if got := q.WindowID(59); got != 0 {
		t.Fatalf("window at 59: %d", got)
	}
	if got := q.WindowID(60); got != 1 {
		t.Fatalf("window at 60: %d", got)
	}
}
