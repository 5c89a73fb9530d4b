package usage

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/scholarmesh/paperdex/internal/db"
	"github.com/scholarmesh/paperdex/internal/domain"
	domusage "github.com/scholarmesh/paperdex/internal/domain/usage"
)

// Counter keys. Counters survive restarts when backed by a persistent store.
const (
	inputTokensKey  = domain.KeyPrefix + "usage:input_tokens"
	outputTokensKey = domain.KeyPrefix + "usage:output_tokens"
	requestsKey     = domain.KeyPrefix + "usage:requests"
)

// Service tracks generation token usage and estimated cost.
type Service struct {
	store CounterStore
	rates domusage.Rates
}

// New creates a usage service.
func New(store CounterStore, rates domusage.Rates) *Service {
	return &Service{store: store, rates: rates}
}

// Record accumulates token counts from one generation call.
func (s *Service) Record(ctx context.Context, inputTokens, outputTokens int) error {
	if err := s.store.IncrBy(ctx, inputTokensKey, int64(inputTokens)); err != nil {
		return fmt.Errorf("incr input tokens: %w", err)
	}
	if err := s.store.IncrBy(ctx, outputTokensKey, int64(outputTokens)); err != nil {
		return fmt.Errorf("incr output tokens: %w", err)
	}
	if err := s.store.IncrBy(ctx, requestsKey, 1); err != nil {
		return fmt.Errorf("incr requests: %w", err)
	}
	return nil
}

// Totals returns the accumulated usage snapshot with estimated cost.
func (s *Service) Totals(ctx context.Context) (domusage.Totals, error) {
	input, err := s.counter(ctx, inputTokensKey)
	if err != nil {
		return domusage.Totals{}, fmt.Errorf("read input tokens: %w", err)
	}
	output, err := s.counter(ctx, outputTokensKey)
	if err != nil {
		return domusage.Totals{}, fmt.Errorf("read output tokens: %w", err)
	}
	requests, err := s.counter(ctx, requestsKey)
	if err != nil {
		return domusage.Totals{}, fmt.Errorf("read requests: %w", err)
	}

	cost := domusage.EstimateCost(input, output, s.rates)
	return domusage.NewTotals(input, output, requests, cost), nil
}

// counter reads a single counter. A missing key is zero.
func (s *Service) counter(ctx context.Context, key string) (int, error) {
	raw, err := s.store.Get(ctx, key)
	if err != nil {
		if errors.Is(err, db.ErrKeyNotFound) {
			return 0, nil
		}
		return 0, err
	}
	n, err := strconv.Atoi(string(raw))
	if err != nil {
		return 0, fmt.Errorf("parse counter %s: %w", key, err)
	}
	return n, nil
}
