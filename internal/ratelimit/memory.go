package ratelimit

import (
	"context"
	"sync"
	"time"

	gocache "github.com/patrickmn/go-cache"
)

type window struct {
	mu    sync.Mutex
	count int
	reset time.Time
}

// Memory is the in-process backend. Windows live in a go-cache instance whose
// expiry matches the window end, so stale counters clean themselves up.
type Memory struct {
	quotas  map[Class]Quota
	entries *gocache.Cache
	now     func() time.Time
}

func NewMemory(quotas map[Class]Quota) *Memory {
	if quotas == nil {
		quotas = DefaultQuotas
	}
	return &Memory{
		quotas:  quotas,
		entries: gocache.New(gocache.NoExpiration, 5*time.Minute),
		now:     time.Now,
	}
}

func (m *Memory) Check(_ context.Context, key string, class Class) (Result, error) {
	q := quotaFor(m.quotas, class)
	now := m.now()
	cacheKey := string(class) + ":" + key

	v, found := m.entries.Get(cacheKey)
	var w *window
	if found {
		w = v.(*window)
	} else {
		w = &window{reset: now.Add(q.Window)}
		m.entries.Set(cacheKey, w, q.Window)
	}

	w.mu.Lock()
	defer w.mu.Unlock()
	if !now.Before(w.reset) {
		// go-cache hasn't evicted the expired entry yet; start a new window.
		w.count = 0
		w.reset = now.Add(q.Window)
		m.entries.Set(cacheKey, w, q.Window)
	}
	w.count++
	if w.count > q.Limit {
		return Result{
			Allowed:    false,
			Limit:      q.Limit,
			Remaining:  0,
			RetryAfter: w.reset.Sub(now),
		}, nil
	}
	return Result{
		Allowed:    true,
		Limit:      q.Limit,
		Remaining:  q.Limit - w.count,
		RetryAfter: 0,
	}, nil
}
