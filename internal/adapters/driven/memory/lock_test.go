package memory

import (
	"context"
	"testing"
	"time"
)

func TestLockAcquireRelease(t *testing.T) {
	lock := NewLock()
	ctx := context.Background()

	acquired, err := lock.Acquire(ctx, "ingest:doc-1", time.Minute)
	if err != nil {
		t.Fatalf("Acquire() error = %v", err)
	}
	if !acquired {
		t.Fatal("Acquire() = false for free lock")
	}

	acquired, err = lock.Acquire(ctx, "ingest:doc-1", time.Minute)
	if err != nil {
		t.Fatalf("Acquire() error = %v", err)
	}
	if acquired {
		t.Error("Acquire() = true for held lock")
	}

	// Other names are independent
	if acquired, _ := lock.Acquire(ctx, "ingest:doc-2", time.Minute); !acquired {
		t.Error("Acquire() = false for unrelated lock")
	}

	if err := lock.Release(ctx, "ingest:doc-1"); err != nil {
		t.Fatalf("Release() error = %v", err)
	}
	if acquired, _ := lock.Acquire(ctx, "ingest:doc-1", time.Minute); !acquired {
		t.Error("Acquire() = false after release")
	}
}

func TestLockExpiry(t *testing.T) {
	lock := NewLock()
	ctx := context.Background()

	now := time.Now()
	lock.clock = func() time.Time { return now }

	if acquired, _ := lock.Acquire(ctx, "ingest:doc-1", time.Minute); !acquired {
		t.Fatal("Acquire() = false for free lock")
	}

	lock.clock = func() time.Time { return now.Add(30 * time.Second) }
	if acquired, _ := lock.Acquire(ctx, "ingest:doc-1", time.Minute); acquired {
		t.Error("Acquire() = true before expiry")
	}

	lock.clock = func() time.Time { return now.Add(2 * time.Minute) }
	if acquired, _ := lock.Acquire(ctx, "ingest:doc-1", time.Minute); !acquired {
		t.Error("Acquire() = false after expiry")
	}
}

func TestLockExtend(t *testing.T) {
	lock := NewLock()
	ctx := context.Background()

	if err := lock.Extend(ctx, "ingest:doc-1", time.Minute); err == nil {
		t.Error("Extend() succeeded for unheld lock")
	}

	if acquired, _ := lock.Acquire(ctx, "ingest:doc-1", time.Minute); !acquired {
		t.Fatal("Acquire() = false for free lock")
	}
	if err := lock.Extend(ctx, "ingest:doc-1", time.Hour); err != nil {
		t.Errorf("Extend() error = %v", err)
	}
}
