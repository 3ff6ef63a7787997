package cache

import (
	"testing"
	"time"

	"stochastic/pkg/config"
)

func TestDefaultOptions(t *testing.T) {
	opts := DefaultOptions()

	if opts.Backend != BackendMemory {
		t.Errorf("expected backend 'memory', got %s", opts.Backend)
	}
	if opts.DefaultTTL != 24*time.Hour {
		t.Errorf("expected default TTL 24h, got %v", opts.DefaultTTL)
	}
	if opts.MaxEntries != 1000 {
		t.Errorf("expected max entries 1000, got %d", opts.MaxEntries)
	}
}

func TestFromConfig(t *testing.T) {
	opts := FromConfig(config.CacheConfig{
		Enabled:    true,
		Driver:     "redis",
		Host:       "redis.local",
		Port:       6380,
		Password:   "secret",
		DB:         1,
		DefaultTTL: 10 * time.Minute,
		MaxEntries: 50,
	})

	if opts.Backend != BackendRedis {
		t.Errorf("expected backend 'redis', got %s", opts.Backend)
	}
	if opts.DefaultTTL != 10*time.Minute {
		t.Errorf("expected TTL 10m, got %v", opts.DefaultTTL)
	}
	if opts.RedisAddr != "redis.local:6380" {
		t.Errorf("expected addr 'redis.local:6380', got %s", opts.RedisAddr)
	}
	if opts.RedisPassword != "secret" || opts.RedisDB != 1 {
		t.Errorf("unexpected credentials: %q db=%d", opts.RedisPassword, opts.RedisDB)
	}
	if opts.MaxEntries != 50 {
		t.Errorf("expected max entries 50, got %d", opts.MaxEntries)
	}
}

func TestFromConfig_KeepsDefaults(t *testing.T) {
	opts := FromConfig(config.CacheConfig{})

	if opts.Backend != BackendMemory {
		t.Errorf("expected memory backend, got %s", opts.Backend)
	}
	if opts.RedisAddr != "localhost:6379" {
		t.Errorf("expected default redis addr, got %s", opts.RedisAddr)
	}
}

func TestNew(t *testing.T) {
	tests := []struct {
		name    string
		opts    *Options
		backend string
	}{
		{"nil options", nil, BackendMemory},
		{"memory", &Options{Backend: BackendMemory}, BackendMemory},
		{"unknown falls back to memory", &Options{Backend: "etcd"}, BackendMemory},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, err := New(tt.opts)
			if err != nil {
				t.Fatalf("New() error = %v", err)
			}
			defer c.Close()

			if _, ok := c.(*MemoryCache); !ok {
				t.Errorf("expected *MemoryCache, got %T", c)
			}
		})
	}
}
