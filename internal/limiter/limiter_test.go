package limiter

import (
	"context"
	"testing"
	"time"
)

func TestMemory_BlocksAfterMaxFails(t *testing.T) {
	ctx := context.Background()
	m := NewMemory(time.Minute, 3, 10*time.Minute)
	hash := HashIP("192.0.2.1:4711")

	for i := 0; i < 2; i++ {
		blocked, _, err := m.Failure(ctx, "alice", hash)
		if err != nil || blocked {
			t.Fatalf("fail %d: blocked=%v err=%v", i, blocked, err)
		}
		ok, _, err := m.Allow(ctx, "alice", hash)
		if err != nil || !ok {
			t.Fatalf("fail %d: allow=%v err=%v", i, ok, err)
		}
	}

	blocked, retry, err := m.Failure(ctx, "alice", hash)
	if err != nil || !blocked || retry != 10*time.Minute {
		t.Fatalf("third failure: blocked=%v retry=%v err=%v", blocked, retry, err)
	}
	if ok, retry, _ := m.Allow(ctx, "alice", hash); ok || retry <= 0 {
		t.Fatalf("blocked allow: ok=%v retry=%v", ok, retry)
	}
}

func TestMemory_SuccessResetsCounter(t *testing.T) {
	ctx := context.Background()
	m := NewMemory(time.Minute, 3, 10*time.Minute)
	hash := HashIP("192.0.2.1:4711")

	for i := 0; i < 2; i++ {
		if _, _, err := m.Failure(ctx, "alice", hash); err != nil {
			t.Fatalf("failure: %v", err)
		}
	}
	if err := m.Success(ctx, "alice", hash); err != nil {
		t.Fatalf("success: %v", err)
	}

	// counter starts over after a successful login
	blocked, _, err := m.Failure(ctx, "alice", hash)
	if err != nil || blocked {
		t.Fatalf("post-reset failure: blocked=%v err=%v", blocked, err)
	}
}

func TestMemory_KeysAreIndependent(t *testing.T) {
	ctx := context.Background()
	m := NewMemory(time.Minute, 1, 10*time.Minute)

	if blocked, _, _ := m.Failure(ctx, "alice", HashIP("192.0.2.1:1")); !blocked {
		t.Fatalf("alice should be blocked")
	}
	if ok, _, _ := m.Allow(ctx, "bob", HashIP("192.0.2.1:1")); !ok {
		t.Fatalf("bob must not inherit alice's block")
	}
	if ok, _, _ := m.Allow(ctx, "alice", HashIP("198.51.100.9:2")); !ok {
		t.Fatalf("other address must not inherit the block")
	}
}
