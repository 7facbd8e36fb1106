// Package resilience provides resiliency patterns for the proxy.
package resilience

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"
)

// DefaultKeyWindow is the trailing interval over which per-key usage is capped.
const DefaultKeyWindow = time.Minute

var (
	// ErrPoolEmpty is returned by Wait when the pool holds no credentials at all,
	// so no amount of waiting can produce one.
	ErrPoolEmpty = errors.New("keypool: no keys configured")

	// ErrInvalidKeyPoolConfig is returned by NewKeyPool for a non-positive cap or window.
	ErrInvalidKeyPoolConfig = errors.New("keypool: invalid configuration")
)

// Credential is an API key handed out by the pool.
type Credential struct {
	ID     string // stable label, e.g. "key_3"
	Secret string
}

// String redacts the secret so credentials can be logged safely.
func (c Credential) String() string {
	return c.ID
}

// KeyStatus is a point-in-time view of one credential. It never carries the secret.
type KeyStatus struct {
	ID        string
	Used      int
	Limit     int
	Available bool
	ResetAt   time.Time // when the oldest counted use expires; zero if unused
}

// KeyPool hands out API keys under a per-key requests-per-window cap.
//
// Usage is tracked as a sliding window of timestamps per key and expired lazily on
// every read, so no background reset task is needed. Among keys with budget left,
// the one with the fewest uses in the window wins; ties go to the lowest position.
// All methods are safe for concurrent use; the lock is never held across I/O.
type KeyPool struct {
	mu     sync.Mutex
	keys   []keyEntry
	index  map[string]int // secret -> position
	limit  int
	window time.Duration
	now    func() time.Time
}

type keyEntry struct {
	id     string
	secret string
	uses   []time.Time // ascending
}

// KeyPoolOption configures a KeyPool.
type KeyPoolOption func(*KeyPool)

// WithWindow overrides the accounting window (default one minute).
func WithWindow(d time.Duration) KeyPoolOption {
	return func(kp *KeyPool) {
		kp.window = d
	}
}

// WithClock injects the time source. Intended for tests.
func WithClock(now func() time.Time) KeyPoolOption {
	return func(kp *KeyPool) {
		kp.now = now
	}
}

// NewKeyPool creates a key pool from a list of API keys. Blank entries are dropped
// and duplicates collapse to their first occurrence. An empty list is valid: such a
// pool never has a key available.
func NewKeyPool(secrets []string, maxRequestsPerWindow int, opts ...KeyPoolOption) (*KeyPool, error) {
	kp := &KeyPool{
		index:  make(map[string]int, len(secrets)),
		limit:  maxRequestsPerWindow,
		window: DefaultKeyWindow,
		now:    time.Now,
	}
	for _, o := range opts {
		o(kp)
	}

	if kp.limit <= 0 {
		return nil, fmt.Errorf("%w: max requests per window must be positive, got %d", ErrInvalidKeyPoolConfig, kp.limit)
	}
	if kp.window <= 0 {
		return nil, fmt.Errorf("%w: window must be positive, got %s", ErrInvalidKeyPoolConfig, kp.window)
	}

	for _, s := range secrets {
		s = strings.TrimSpace(s)
		if s == "" {
			continue
		}
		if _, dup := kp.index[s]; dup {
			continue
		}
		kp.index[s] = len(kp.keys)
		kp.keys = append(kp.keys, keyEntry{
			id:     fmt.Sprintf("key_%d", len(kp.keys)+1),
			secret: s,
		})
	}

	return kp, nil
}

// Acquire selects a key with remaining budget and records one use for it.
// It returns false when every key is at its cap; that is an expected outcome,
// not an error, and Acquire never waits for capacity.
func (kp *KeyPool) Acquire() (Credential, bool) {
	kp.mu.Lock()
	defer kp.mu.Unlock()

	cred, _, ok := kp.acquireLocked(kp.now())
	return cred, ok
}

// Wait acquires a key, sleeping until the earliest recorded use leaves the window
// whenever the pool is exhausted. It returns ErrPoolEmpty for a pool without keys
// and the context error if ctx is done first.
func (kp *KeyPool) Wait(ctx context.Context) (Credential, error) {
	for {
		kp.mu.Lock()
		cred, delay, ok := kp.acquireLocked(kp.now())
		empty := len(kp.keys) == 0
		kp.mu.Unlock()

		if ok {
			return cred, nil
		}
		if empty {
			return Credential{}, ErrPoolEmpty
		}

		t := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			t.Stop()
			return Credential{}, ctx.Err()
		case <-t.C:
		}
	}
}

// acquireLocked prunes, selects and records in one step. When nothing is
// available it reports how long until the next use expires. Must be called with mu held.
func (kp *KeyPool) acquireLocked(now time.Time) (Credential, time.Duration, bool) {
	best := -1
	var nextExpiry time.Time

	for i := range kp.keys {
		e := &kp.keys[i]
		kp.pruneLocked(e, now)

		if len(e.uses) >= kp.limit {
			exp := e.uses[0].Add(kp.window)
			if nextExpiry.IsZero() || exp.Before(nextExpiry) {
				nextExpiry = exp
			}
			continue
		}
		if best < 0 || len(e.uses) < len(kp.keys[best].uses) {
			best = i
		}
	}

	if best < 0 {
		delay := nextExpiry.Sub(now)
		if delay < time.Millisecond {
			delay = time.Millisecond
		}
		return Credential{}, delay, false
	}

	e := &kp.keys[best]
	e.uses = append(e.uses, now)
	return Credential{ID: e.id, Secret: e.secret}, 0, true
}

// pruneLocked drops uses that have left the window. Must be called with mu held.
func (kp *KeyPool) pruneLocked(e *keyEntry, now time.Time) {
	cutoff := 0
	for cutoff < len(e.uses) && now.Sub(e.uses[cutoff]) >= kp.window {
		cutoff++
	}
	if cutoff > 0 {
		e.uses = append(e.uses[:0], e.uses[cutoff:]...)
	}
}

// Release is a no-op kept for callers written against acquire/release pairs.
// Usage under the sliding window expires with time only; releasing early would
// under-count calls the upstream has already seen.
func (kp *KeyPool) Release(Credential) {}

// Exhaust fills the key's window up to the cap as of now. Use it when the upstream
// rate-limits a key that local accounting still considered available. Unknown
// credentials are ignored.
func (kp *KeyPool) Exhaust(cred Credential) {
	kp.mu.Lock()
	defer kp.mu.Unlock()

	i, ok := kp.index[cred.Secret]
	if !ok {
		return
	}
	now := kp.now()
	e := &kp.keys[i]
	kp.pruneLocked(e, now)
	for len(e.uses) < kp.limit {
		e.uses = append(e.uses, now)
	}
}

// AvailableCount returns how many keys currently have budget left.
func (kp *KeyPool) AvailableCount() int {
	kp.mu.Lock()
	defer kp.mu.Unlock()

	now := kp.now()
	n := 0
	for i := range kp.keys {
		kp.pruneLocked(&kp.keys[i], now)
		if len(kp.keys[i].uses) < kp.limit {
			n++
		}
	}
	return n
}

// RetryAfter reports how long until the earliest key regains budget, measured
// on the pool's clock. It is zero while any key is available.
func (kp *KeyPool) RetryAfter() time.Duration {
	kp.mu.Lock()
	defer kp.mu.Unlock()

	now := kp.now()
	var earliest time.Time
	for i := range kp.keys {
		e := &kp.keys[i]
		kp.pruneLocked(e, now)
		if len(e.uses) < kp.limit {
			return 0
		}
		if exp := e.uses[0].Add(kp.window); earliest.IsZero() || exp.Before(earliest) {
			earliest = exp
		}
	}
	if earliest.IsZero() {
		return 0
	}
	return earliest.Sub(now)
}

// Snapshot returns the usage of every key in insertion order.
func (kp *KeyPool) Snapshot() []KeyStatus {
	kp.mu.Lock()
	defer kp.mu.Unlock()

	now := kp.now()
	out := make([]KeyStatus, 0, len(kp.keys))
	for i := range kp.keys {
		e := &kp.keys[i]
		kp.pruneLocked(e, now)

		st := KeyStatus{
			ID:        e.id,
			Used:      len(e.uses),
			Limit:     kp.limit,
			Available: len(e.uses) < kp.limit,
		}
		if len(e.uses) > 0 {
			st.ResetAt = e.uses[0].Add(kp.window)
		}
		out = append(out, st)
	}
	return out
}

// Size returns the number of keys in the pool.
func (kp *KeyPool) Size() int {
	return len(kp.keys)
}

// Limit returns the per-key cap.
func (kp *KeyPool) Limit() int {
	return kp.limit
}

// Window returns the accounting window.
func (kp *KeyPool) Window() time.Duration {
	return kp.window
}
