package keylock_test

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/JaimeStill/docket/pkg/keylock"
)

func TestLockSerializesSameKey(t *testing.T) {
	reg := keylock.New[string]()

	var (
		active  atomic.Int32
		maxSeen atomic.Int32
		wg      sync.WaitGroup
	)

	for range 20 {
		wg.Go(func() {
			unlock, err := reg.Lock(context.Background(), "dossier")
			if err != nil {
				t.Errorf("lock: %v", err)
				return
			}
			defer unlock()

			n := active.Add(1)
			if n > maxSeen.Load() {
				maxSeen.Store(n)
			}
			time.Sleep(time.Millisecond)
			active.Add(-1)
		})
	}

	wg.Wait()

	if maxSeen.Load() != 1 {
		t.Errorf("max concurrent holders = %d, want 1", maxSeen.Load())
	}
}

func TestLockIndependentKeys(t *testing.T) {
	reg := keylock.New[int]()

	unlockA, err := reg.Lock(context.Background(), 1)
	if err != nil {
		t.Fatalf("lock 1: %v", err)
	}
	defer unlockA()

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	unlockB, err := reg.Lock(ctx, 2)
	if err != nil {
		t.Fatalf("key 2 should be free while key 1 is held: %v", err)
	}
	unlockB()
}

func TestLockHonorsCancellation(t *testing.T) {
	reg := keylock.New[string]()

	unlock, err := reg.Lock(context.Background(), "k")
	if err != nil {
		t.Fatalf("lock: %v", err)
	}
	defer unlock()

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	if _, err := reg.Lock(ctx, "k"); !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("err = %v, want DeadlineExceeded", err)
	}
}

func TestUnlockReleases(t *testing.T) {
	reg := keylock.New[string]()

	unlock, _ := reg.Lock(context.Background(), "k")

	held, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	if _, err := reg.Lock(held, "k"); err == nil {
		t.Fatal("lock acquired while held")
	}

	unlock()

	ctx, cancelAgain := context.WithTimeout(context.Background(), time.Second)
	defer cancelAgain()
	again, err := reg.Lock(ctx, "k")
	if err != nil {
		t.Fatalf("lock after release: %v", err)
	}
	again()
}
