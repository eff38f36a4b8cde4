// Package quota tracks free-tier usage per client IP per UTC day.
//
// DESIGN: The ledger is the only cross-request shared state in the gateway.
// All reads and writes go through one mutex, and Reserve() performs
// check-and-consume in a single critical section so concurrent requests
// from the same IP can never over-admit past the configured limit.
//
// The ledger is scoped to "today" only: the first access on a new UTC day
// discards every prior bucket. Counters are volatile - a restart resets
// everyone's quota, which is acceptable for a best-effort free tier.
package quota

import (
	"sync"
	"time"
)

// Decision is a read-only view of an IP's standing for the current day.
type Decision struct {
	Allowed   bool `json:"allowed"`
	Used      int  `json:"used"`
	Limit     int  `json:"limit"`
	Remaining int  `json:"remaining"`
}

// Ledger counts free-tier requests per (UTC day, client IP).
// Requests carrying a caller-supplied API key bypass the ledger entirely:
// quota exists only to bound consumption of the shared default credential.
type Ledger struct {
	mu     sync.Mutex
	day    string
	counts map[string]int
	limit  int

	now func() time.Time // injectable clock for tests
}

// NewLedger creates a ledger with the given daily limit.
func NewLedger(limit int) *Ledger {
	return &Ledger{
		counts: make(map[string]int),
		limit:  limit,
		now:    time.Now,
	}
}

// Limit returns the configured daily free limit.
func (l *Ledger) Limit() int { return l.limit }

// Allowed reports whether ip may make one more free call today.
// Always true when the caller supplied its own key. Read-only: prefer
// Reserve for the request path, which closes the check-then-increment race.
func (l *Ledger) Allowed(ip string, hasCustomKey bool) bool {
	if hasCustomKey {
		return true
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	l.rollLocked()
	return l.counts[ip] < l.limit
}

// Increment adds one to today's count for ip. No-op when the caller
// supplied its own key.
func (l *Ledger) Increment(ip string, hasCustomKey bool) {
	if hasCustomKey {
		return
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	l.rollLocked()
	l.counts[ip]++
}

// Reserve atomically checks and consumes one unit of today's quota for ip.
// The returned Decision reflects the state after a successful reservation
// (or the rejecting state when over limit). Requests with a custom key are
// always admitted and never counted.
//
// The unit is consumed up front so N concurrent requests at limit L admit
// exactly L; callers must Release when the upstream call later fails, since
// a failed dispatch must not consume quota.
func (l *Ledger) Reserve(ip string, hasCustomKey bool) (Decision, bool) {
	if hasCustomKey {
		return Decision{Allowed: true, Limit: l.limit, Remaining: l.limit}, true
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	l.rollLocked()

	used := l.counts[ip]
	if used >= l.limit {
		return l.decisionLocked(used, false), false
	}
	l.counts[ip] = used + 1
	return l.decisionLocked(used+1, true), true
}

// Release returns one previously reserved unit. No-op for custom-key
// requests and when the count is already zero.
func (l *Ledger) Release(ip string, hasCustomKey bool) {
	if hasCustomKey {
		return
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	l.rollLocked()
	if l.counts[ip] > 0 {
		l.counts[ip]--
	}
}

// Usage reports used/limit/remaining for ip for the current day.
func (l *Ledger) Usage(ip string) Decision {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.rollLocked()
	used := l.counts[ip]
	return l.decisionLocked(used, used < l.limit)
}

// decisionLocked builds a Decision with remaining clamped at zero.
func (l *Ledger) decisionLocked(used int, allowed bool) Decision {
	remaining := l.limit - used
	if remaining < 0 {
		remaining = 0
	}
	return Decision{Allowed: allowed, Used: used, Limit: l.limit, Remaining: remaining}
}

// rollLocked discards all buckets when the UTC day has changed.
// Holds at most one day's worth of entries, bounding memory.
func (l *Ledger) rollLocked() {
	day := l.now().UTC().Format("2006-01-02")
	if day != l.day {
		l.day = day
		l.counts = make(map[string]int)
	}
}
