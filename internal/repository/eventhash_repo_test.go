package repository

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
)

func TestClaimFirstWinsSecondDuplicate(t *testing.T) {
	repo := NewEventHashRepository(newTestDB(t))
	ctx := context.Background()

	claimed, err := repo.Claim(ctx, "hash-a", "doc-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !claimed {
		t.Error("first claim should succeed")
	}

	claimed, err = repo.Claim(ctx, "hash-a", "doc-2")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if claimed {
		t.Error("second claim for the same hash should report duplicate")
	}

	exists, err := repo.Exists(ctx, "hash-a")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !exists {
		t.Error("claimed hash should exist")
	}
}

// TestClaimConcurrent runs many concurrent claim attempts for the same
// hash and verifies exactly one wins.
func TestClaimConcurrent(t *testing.T) {
	repo := NewEventHashRepository(newTestDB(t))
	ctx := context.Background()

	const attempts = 32
	var wins int64
	var wg sync.WaitGroup
	start := make(chan struct{})

	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func(run int) {
			defer wg.Done()
			<-start
			claimed, err := repo.Claim(ctx, "contested-hash", "doc-concurrent")
			if err != nil {
				t.Errorf("claim %d failed: %v", run, err)
				return
			}
			if claimed {
				atomic.AddInt64(&wins, 1)
			}
		}(i)
	}

	close(start)
	wg.Wait()

	if wins != 1 {
		t.Errorf("expected exactly one winning claim, got %d", wins)
	}
}

func TestReleaseAllowsReclaim(t *testing.T) {
	repo := NewEventHashRepository(newTestDB(t))
	ctx := context.Background()

	if claimed, err := repo.Claim(ctx, "hash-b", "doc-1"); err != nil || !claimed {
		t.Fatalf("initial claim failed: claimed=%v err=%v", claimed, err)
	}

	if err := repo.Release(ctx, "hash-b"); err != nil {
		t.Fatalf("release failed: %v", err)
	}

	claimed, err := repo.Claim(ctx, "hash-b", "doc-2")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !claimed {
		t.Error("claim after release should succeed")
	}
}

func TestReleaseAll(t *testing.T) {
	repo := NewEventHashRepository(newTestDB(t))
	ctx := context.Background()

	hashes := []string{"h1", "h2", "h3"}
	for _, h := range hashes {
		if claimed, err := repo.Claim(ctx, h, "doc-1"); err != nil || !claimed {
			t.Fatalf("claim %s failed: claimed=%v err=%v", h, claimed, err)
		}
	}

	if err := repo.ReleaseAll(ctx, hashes); err != nil {
		t.Fatalf("release all failed: %v", err)
	}

	count, err := repo.CountByDocument(ctx, "doc-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if count != 0 {
		t.Errorf("expected no remaining claims, got %d", count)
	}

	// ReleaseAll with no hashes is a no-op, not an error
	if err := repo.ReleaseAll(ctx, nil); err != nil {
		t.Errorf("empty release should not fail: %v", err)
	}
}
