package common

import (
	"errors"
	"math"
)

var (
	ErrQuotaRequestsExceeded = errors.New("quota requests exceeded")
	ErrQuotaCounterOverflow  = errors.New("quota counter overflow")
)

// QuotaNow captures the usage counters for an address within the current
// rate-limit window.
type QuotaNow struct {
	ReqCount uint32
	WindowID uint64
}

// Quota defines the fail-fast invocation ceiling enforced for fund-moving
// operations per caller. A zero MaxRequestsPerWindow disables the limit.
type Quota struct {
	MaxRequestsPerWindow uint32
	WindowSeconds        uint32
}

// Enabled reports whether the quota carries an enforceable ceiling.
func (q Quota) Enabled() bool {
	return q.MaxRequestsPerWindow > 0 && q.WindowSeconds > 0
}

// WindowID maps a unix timestamp onto the fixed window it falls into.
func (q Quota) WindowID(now int64) uint64 {
	if q.WindowSeconds == 0 || now < 0 {
		return 0
	}
	return uint64(now) / uint64(q.WindowSeconds)
}

// CheckQuota verifies whether one more request fits within the configured
// quota. Counters reset when the window rolls over. The returned QuotaNow
// reflects the updated counters when the quota is not exceeded; on failure
// the previous counters are returned unchanged.
func CheckQuota(q Quota, nowWindow uint64, prev QuotaNow, addReq uint32) (QuotaNow, error) {
	next := prev
	if prev.WindowID != nowWindow {
		next = QuotaNow{WindowID: nowWindow}
	}

	if addReq > 0 {
		if next.ReqCount > math.MaxUint32-addReq {
			return prev, ErrQuotaCounterOverflow
		}
		next.ReqCount += addReq
	}
	if q.MaxRequestsPerWindow > 0 && next.ReqCount > q.MaxRequestsPerWindow {
		return prev, ErrQuotaRequestsExceeded
	}

	return next, nil
}
