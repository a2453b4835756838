package wakelock

import "testing"

func TestLockCounting(t *testing.T) {
	l := New()
	if l.Held() {
		t.Fatal("new lock should not be held")
	}

	l.Acquire()
	if !l.Held() {
		t.Fatal("lock should be held after Acquire")
	}

	l.Acquire()
	l.Release()
	if !l.Held() {
		t.Fatal("lock should still be held after one of two releases")
	}

	l.Release()
	if l.Held() {
		t.Fatal("lock should be released after matching releases")
	}
}

func TestLockReleaseWithoutAcquireIsNoop(t *testing.T) {
	l := New()
	l.Release()
	if l.Held() {
		t.Fatal("release without acquire must not hold the lock")
	}
}

func TestLockDoubleAcquireSingleHold(t *testing.T) {
	l := New()
	l.Acquire()
	l.Acquire()
	l.Acquire()
	l.Release()
	l.Release()
	if !l.Held() {
		t.Fatal("lock should remain held until count reaches zero")
	}
	l.Release()
	if l.Held() {
		t.Fatal("lock should be released once count reaches zero")
	}
}
