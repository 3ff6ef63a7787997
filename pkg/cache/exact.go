package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"
)

// ExactCache хранит результаты точного перебора в JSON.
// Один и тот же набор параметров всегда даёт одно и то же распределение,
// поэтому запись можно держать долго.
type ExactCache struct {
	cache      Cache
	defaultTTL time.Duration
}

type envelope struct {
	Experiment string          `json:"experiment"`
	Params     Params          `json:"params"`
	ComputedAt time.Time       `json:"computed_at"`
	Payload    json.RawMessage `json:"payload"`
}

// NewExactCache создаёт кэш результатов перебора
func NewExactCache(cache Cache, defaultTTL time.Duration) *ExactCache {
	if defaultTTL <= 0 {
		defaultTTL = 24 * time.Hour
	}
	return &ExactCache{cache: cache, defaultTTL: defaultTTL}
}

// Load читает результат в dst. Возвращает false, если записи нет
// или она повреждена; повреждённая запись удаляется.
func (ec *ExactCache) Load(ctx context.Context, experiment string, params Params, dst any) (bool, error) {
	key := BuildExactKey(experiment, ParamsHash(params))

	data, err := ec.cache.Get(ctx, key)
	if err != nil {
		if errors.Is(err, ErrKeyNotFound) {
			return false, nil
		}
		return false, err
	}

	var env envelope
	if err := json.Unmarshal(data, &env); err != nil || env.Experiment != experiment {
		_ = ec.cache.Delete(ctx, key) //nolint:errcheck // best effort cleanup
		return false, nil
	}
	if err := json.Unmarshal(env.Payload, dst); err != nil {
		_ = ec.cache.Delete(ctx, key) //nolint:errcheck // best effort cleanup
		return false, nil
	}

	return true, nil
}

// Store сохраняет результат. ttl <= 0 означает значение по умолчанию.
func (ec *ExactCache) Store(ctx context.Context, experiment string, params Params, value any, ttl time.Duration) error {
	if ttl <= 0 {
		ttl = ec.defaultTTL
	}

	payload, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("marshal %s exact result: %w", experiment, err)
	}

	data, err := json.Marshal(envelope{
		Experiment: experiment,
		Params:     params,
		ComputedAt: time.Now().UTC(),
		Payload:    payload,
	})
	if err != nil {
		return err
	}

	return ec.cache.Set(ctx, BuildExactKey(experiment, ParamsHash(params)), data, ttl)
}

// Invalidate удаляет все записи эксперимента
func (ec *ExactCache) Invalidate(ctx context.Context, experiment string) (int64, error) {
	return ec.cache.DeleteByPattern(ctx, fmt.Sprintf("exact:%s:*", experiment))
}

// InvalidateAll удаляет все результаты перебора
func (ec *ExactCache) InvalidateAll(ctx context.Context) (int64, error) {
	return ec.cache.DeleteByPattern(ctx, "exact:*")
}

// Entries число сохранённых результатов по экспериментам
func (ec *ExactCache) Entries(ctx context.Context) (map[string]int, error) {
	keys, err := ec.cache.Keys(ctx, "exact:*")
	if err != nil {
		return nil, err
	}
	entries := make(map[string]int)
	for _, key := range keys {
		parts := strings.SplitN(key, ":", 3)
		if len(parts) != 3 {
			continue
		}
		entries[parts[1]]++
	}
	return entries, nil
}

// Stats статистика нижележащего кэша
func (ec *ExactCache) Stats(ctx context.Context) (*Stats, error) {
	return ec.cache.Stats(ctx)
}
