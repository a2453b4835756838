// Package wakelock implements the counting suspend-blocker the WCM
// dispatcher holds for the duration of a connect/scan/roam attempt (§3
// "wake-lock discipline"). The guard is backed by a Linux eventfd
// counter on platforms that support it and falls back to an in-process
// counter elsewhere, so tests and non-Linux builds never touch a real
// suspend blocker.
package wakelock

import "sync"

// Lock is a reference-counted guard: Acquire increments the count and
// (on the first acquisition) prevents system suspend; Release
// decrements it and, at zero, allows suspend again. It implements the
// wcm.WakeLock capability interface.
type Lock struct {
	mu    sync.Mutex
	count int

	backend backend
}

// backend is the platform-specific suspend-blocker primitive.
type backend interface {
	hold() error
	unhold() error
}

// New creates a Lock using the best available backend for the current
// platform (an eventfd-backed counter on Linux; a no-op elsewhere).
func New() *Lock {
	return &Lock{backend: newPlatformBackend()}
}

// Acquire increments the hold count, arming the underlying suspend
// blocker on the 0->1 transition.
func (l *Lock) Acquire() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.count++
	if l.count == 1 {
		_ = l.backend.hold()
	}
}

// Release decrements the hold count, disarming the suspend blocker on
// the 1->0 transition. Calling Release with no outstanding Acquire is a
// no-op, matching the dispatcher's "release is idempotent at zero"
// discipline for the scan lock.
func (l *Lock) Release() {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.count == 0 {
		return
	}
	l.count--
	if l.count == 0 {
		_ = l.backend.unhold()
	}
}

// Held reports whether the lock is currently held by at least one
// caller.
func (l *Lock) Held() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.count > 0
}
