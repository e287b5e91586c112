package ratelimit

import (
	"context"
	"testing"
	"time"
)

func testQuotas(limit int, window time.Duration) map[Class]Quota {
	return map[Class]Quota{
		ClassGeneral: {Limit: 100, Window: time.Minute},
		ClassAuth:    {Limit: limit, Window: window},
	}
}

func TestMemoryAllowsUpToQuota(t *testing.T) {
	m := NewMemory(testQuotas(5, time.Minute))
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		res, err := m.Check(ctx, "203.0.113.9", ClassAuth)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !res.Allowed {
			t.Fatalf("request %d should be allowed", i+1)
		}
		if want := 5 - (i + 1); res.Remaining != want {
			t.Fatalf("request %d: expected remaining %d, got %d", i+1, want, res.Remaining)
		}
	}

	res, err := m.Check(ctx, "203.0.113.9", ClassAuth)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Allowed {
		t.Fatal("sixth request should be rejected")
	}
	if res.RetryAfter <= 0 || res.RetryAfter > time.Minute {
		t.Fatalf("retry-after out of range: %v", res.RetryAfter)
	}
}

func TestMemoryNewWindowAdmits(t *testing.T) {
	m := NewMemory(testQuotas(1, time.Minute))
	ctx := context.Background()

	current := time.Now()
	m.now = func() time.Time { return current }

	if res, _ := m.Check(ctx, "k", ClassAuth); !res.Allowed {
		t.Fatal("first request should be allowed")
	}
	if res, _ := m.Check(ctx, "k", ClassAuth); res.Allowed {
		t.Fatal("second request in window should be rejected")
	}

	current = current.Add(61 * time.Second)
	if res, _ := m.Check(ctx, "k", ClassAuth); !res.Allowed {
		t.Fatal("request in the next window should be allowed")
	}
}

func TestMemoryKeysAndClassesIndependent(t *testing.T) {
	m := NewMemory(testQuotas(1, time.Minute))
	ctx := context.Background()

	if res, _ := m.Check(ctx, "a", ClassAuth); !res.Allowed {
		t.Fatal("first key should be allowed")
	}
	if res, _ := m.Check(ctx, "b", ClassAuth); !res.Allowed {
		t.Fatal("second key should have its own window")
	}
	if res, _ := m.Check(ctx, "a", ClassGeneral); !res.Allowed {
		t.Fatal("other class should have its own quota")
	}
	if res, _ := m.Check(ctx, "a", ClassAuth); res.Allowed {
		t.Fatal("first key second request should be rejected")
	}
}
