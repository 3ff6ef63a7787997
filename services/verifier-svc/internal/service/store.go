// services/verifier-svc/internal/service/store.go
package service

import (
	"context"

	"stochastic/pkg/cache"
	"stochastic/pkg/metrics"
)

// exactStore привязывает кэш перебора к параметрам одного эксперимента
type exactStore struct {
	cache   *cache.ExactCache
	params  cache.Params
	metrics *metrics.Metrics
}

func (s *exactStore) Load(ctx context.Context, experiment string, dst any) (bool, error) {
	hit, err := s.cache.Load(ctx, experiment, s.params, dst)
	if err != nil {
		return false, err
	}
	s.metrics.RecordCacheLookup(hit)
	return hit, nil
}

func (s *exactStore) Store(ctx context.Context, experiment string, value any) error {
	return s.cache.Store(ctx, experiment, s.params, value, 0)
}
