package usage

import "context"

// CounterStore persists monotonically increasing token counters.
type CounterStore interface {
	IncrBy(ctx context.Context, key string, val int64) error
	Get(ctx context.Context, key string) ([]byte, error)
}
