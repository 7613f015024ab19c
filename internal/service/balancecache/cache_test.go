package balancecache

import (
	"testing"
	"time"

	"github.com/XtheWiz/divvy-jones-backend-sub002/internal/domain"
	"github.com/google/uuid"
)

func TestCache_GetOrCompute_MissComputesAndCachesResult(t *testing.T) {
	c := New(time.Minute)
	groupID := uuid.New()
	calls := 0
	compute := func(id uuid.UUID) (*domain.GroupBalances, error) {
		calls++
		return &domain.GroupBalances{GroupID: id}, nil
	}

	if _, err := c.GetOrCompute(groupID, false, compute); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := c.GetOrCompute(groupID, false, compute); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if calls != 1 {
		t.Fatalf("expected compute to run once (cache hit on second call), got %d calls", calls)
	}
}

func TestCache_GetOrCompute_SkipCacheForcesRecompute(t *testing.T) {
	c := New(time.Minute)
	groupID := uuid.New()
	calls := 0
	compute := func(id uuid.UUID) (*domain.GroupBalances, error) {
		calls++
		return &domain.GroupBalances{GroupID: id}, nil
	}

	if _, err := c.GetOrCompute(groupID, false, compute); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := c.GetOrCompute(groupID, true, compute); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if calls != 2 {
		t.Fatalf("expected skipCache to force a second compute, got %d calls", calls)
	}
}

func TestCache_Invalidate_ForcesRecompute(t *testing.T) {
	c := New(time.Minute)
	groupID := uuid.New()
	calls := 0
	compute := func(id uuid.UUID) (*domain.GroupBalances, error) {
		calls++
		return &domain.GroupBalances{GroupID: id}, nil
	}

	if _, err := c.GetOrCompute(groupID, false, compute); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	c.Invalidate(groupID)
	if _, err := c.GetOrCompute(groupID, false, compute); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if calls != 2 {
		t.Fatalf("expected invalidate to force a recompute, got %d calls", calls)
	}
}

func TestCache_EntryExpiresAfterTTL(t *testing.T) {
	c := New(10 * time.Millisecond)
	groupID := uuid.New()
	c.Put(groupID, &domain.GroupBalances{GroupID: groupID})

	if _, ok := c.Get(groupID); !ok {
		t.Fatalf("expected fresh entry to be present")
	}

	time.Sleep(20 * time.Millisecond)

	if _, ok := c.Get(groupID); ok {
		t.Fatalf("expected entry to have expired after TTL")
	}
}

func TestCache_InvalidateIsIdempotent(t *testing.T) {
	c := New(time.Minute)
	groupID := uuid.New()
	c.Invalidate(groupID)
	c.Invalidate(groupID)
}
