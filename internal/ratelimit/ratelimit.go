// Package ratelimit is the abuse guard: per-client fixed-window counters with
// independent quotas per route class. Counters are damping only; they are
// not durable and not billing-grade.
package ratelimit

import (
	"context"
	"time"
)

type Class string

const (
	ClassGeneral        Class = "general"
	ClassAuth           Class = "auth"
	ClassContact        Class = "contact"
	ClassNewsletter     Class = "newsletter"
	ClassProjectContact Class = "project_contact"
)

type Quota struct {
	Limit  int
	Window time.Duration
}

// DefaultQuotas holds the per-class limits. Auth is deliberately tight.
var DefaultQuotas = map[Class]Quota{
	ClassGeneral:        {Limit: 100, Window: 2 * time.Minute},
	ClassAuth:           {Limit: 5, Window: 15 * time.Minute},
	ClassContact:        {Limit: 3, Window: time.Minute},
	ClassNewsletter:     {Limit: 2, Window: time.Minute},
	ClassProjectContact: {Limit: 3, Window: time.Minute},
}

type Result struct {
	Allowed    bool
	Limit      int
	Remaining  int
	RetryAfter time.Duration
}

// Limiter is injected wherever request damping is needed; backends are the
// in-process counter map or a shared Redis.
type Limiter interface {
	Check(ctx context.Context, key string, class Class) (Result, error)
}

func quotaFor(quotas map[Class]Quota, class Class) Quota {
	if q, ok := quotas[class]; ok {
		return q
	}
	return quotas[ClassGeneral]
}
