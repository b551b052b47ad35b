// Package ratelimit decides whether a client key may make another request.
package ratelimit

import "context"

type Limiter interface {
	Allow(ctx context.Context, key string) (bool, error)
}

const (
	DefaultRate  = 10
	DefaultBurst = 30
)
