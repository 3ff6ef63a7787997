package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

const (
	envPrefix    = "STOCHASTIC_"
	configEnvVar = "CONFIG_PATH"
)

// Loader загружает конфигурацию из разных источников
type Loader struct {
	k           *koanf.Koanf
	configPaths []string
	envPrefix   string
	source      string
}

// NewLoader создаёт новый загрузчик конфигурации
func NewLoader(opts ...LoaderOption) *Loader {
	l := &Loader{
		k: koanf.New("."),
		configPaths: []string{
			"config.yaml",
			"config/config.yaml",
			"/etc/stochastic/config.yaml",
		},
		envPrefix: envPrefix,
	}

	for _, opt := range opts {
		opt(l)
	}

	return l
}

// LoaderOption - опция для конфигурации загрузчика
type LoaderOption func(*Loader)

// WithConfigPaths устанавливает пути поиска конфигурации
func WithConfigPaths(paths ...string) LoaderOption {
	return func(l *Loader) {
		l.configPaths = paths
	}
}

// Source возвращает путь к прочитанному файлу или пустую строку,
// если конфигурация собрана только из defaults и env
func (l *Loader) Source() string {
	return l.source
}

// Load загружает конфигурацию с приоритетом:
// 1. Defaults (самый низкий)
// 2. Config file (yaml)
// 3. Environment variables (самый высокий)
func (l *Loader) Load() (*Config, error) {
	if err := l.loadDefaults(); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	// Файл не обязателен
	if err := l.loadConfigFile(); err != nil {
		return nil, err
	}

	if err := l.loadEnv(); err != nil {
		return nil, fmt.Errorf("failed to load env: %w", err)
	}

	var cfg Config
	if err := l.k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// loadDefaults загружает значения по умолчанию
func (l *Loader) loadDefaults() error {
	defaults := map[string]any{
		// App
		"app.name":        "verifier",
		"app.version":     "1.0.0",
		"app.environment": "development",
		"app.debug":       false,

		// Log
		"log.level":       "info",
		"log.format":      "",
		"log.output":      "stderr",
		"log.max_size":    100,
		"log.max_backups": 3,
		"log.max_age":     7,
		"log.compress":    true,

		// Metrics
		"metrics.enabled":       true,
		"metrics.namespace":     "stochastic",
		"metrics.subsystem":     "verifier",
		"metrics.textfile_path": "",

		// Tracing
		"tracing.enabled":      false,
		"tracing.endpoint":     "localhost:4317",
		"tracing.service_name": "verifier",
		"tracing.sample_rate":  1.0,

		// Cache
		"cache.enabled":     true,
		"cache.driver":      "memory",
		"cache.host":        "localhost",
		"cache.port":        6379,
		"cache.db":          0,
		"cache.default_ttl": 24 * time.Hour,
		"cache.max_entries": 1000,

		// Engine
		"engine.trials":           10000,
		"engine.seed":             0,
		"engine.workers":          0,
		"engine.chunk_size":       1024,
		"engine.confidence_level": 0.95,
		"engine.enumeration_cap":  1_000_000,

		// Experiments - Pairing
		"experiments.pairing.population": 80,
		"experiments.pairing.stages":     2,
		"experiments.pairing.trials":     10000,
		"experiments.pairing.tolerance":  0.5,

		// Experiments - Sampling
		"experiments.sampling.categories": 6,
		"experiments.sampling.draws":      6,
		"experiments.sampling.trials":     50000,
		"experiments.sampling.tolerance":  0.01,

		// Experiments - Waiting
		"experiments.waiting.probability":  0.95,
		"experiments.waiting.window":       30.0,
		"experiments.waiting.queries":      []float64{10, 27},
		"experiments.waiting.bucket_width": 5.0,
		"experiments.waiting.trials":       50000,
		"experiments.waiting.tolerance":    0.01,

		// Report
		"report.locale":        "en",
		"report.xlsx_path":     "",
		"report.pdf_path":      "",
		"report.min_share":     0.01,
		"report.show_formulas": true,
	}

	return l.k.Load(confmap.Provider(defaults, "."), nil)
}

// loadConfigFile загружает конфигурацию из файла.
// Явно указанный через CONFIG_PATH файл обязан существовать.
func (l *Loader) loadConfigFile() error {
	if configPath := os.Getenv(configEnvVar); configPath != "" {
		if _, err := os.Stat(configPath); err != nil {
			return fmt.Errorf("config file %s: %w", configPath, err)
		}
		l.source = configPath
		return l.k.Load(file.Provider(configPath), yaml.Parser())
	}

	for _, path := range l.configPaths {
		absPath, err := filepath.Abs(path)
		if err != nil {
			continue
		}

		if _, err := os.Stat(absPath); err == nil {
			l.source = absPath
			return l.k.Load(file.Provider(absPath), yaml.Parser())
		}
	}

	return nil
}

// loadEnv загружает конфигурацию из переменных окружения
// Использует явный маппинг для ключей с подчёркиванием
func (l *Loader) loadEnv() error {
	return l.k.Load(env.ProviderWithValue(l.envPrefix, ".", func(envKey string, value string) (string, interface{}) {
		key := strings.ToLower(strings.TrimPrefix(envKey, l.envPrefix))

		if mappedKey, ok := envKeyMappings[key]; ok {
			key = mappedKey
		} else {
			key = strings.ReplaceAll(key, "_", ".")
		}

		if isSliceField(key) {
			return key, splitAndTrim(value)
		}

		return key, value
	}), nil)
}

// envKeyMappings - маппинг переменных окружения на ключи конфига
// Необходим для полей, содержащих подчёркивания в именах
var envKeyMappings = map[string]string{
	// Log
	"log_level":       "log.level",
	"log_format":      "log.format",
	"log_output":      "log.output",
	"log_file_path":   "log.file_path",
	"log_max_size":    "log.max_size",
	"log_max_backups": "log.max_backups",
	"log_max_age":     "log.max_age",
	"log_compress":    "log.compress",

	// Metrics
	"metrics_textfile_path": "metrics.textfile_path",

	// Tracing
	"tracing_service_name": "tracing.service_name",
	"tracing_sample_rate":  "tracing.sample_rate",

	// Cache
	"cache_default_ttl": "cache.default_ttl",
	"cache_max_entries": "cache.max_entries",

	// Engine
	"engine_chunk_size":       "engine.chunk_size",
	"engine_confidence_level": "engine.confidence_level",
	"engine_enumeration_cap":  "engine.enumeration_cap",

	// Experiments
	"experiments_waiting_bucket_width": "experiments.waiting.bucket_width",

	// Report
	"report_xlsx_path":     "report.xlsx_path",
	"report_pdf_path":      "report.pdf_path",
	"report_min_share":     "report.min_share",
	"report_show_formulas": "report.show_formulas",
}

// sliceFields - поля, которые должны парситься как слайсы
var sliceFields = map[string]bool{
	"experiments.waiting.queries": true,
}

func isSliceField(key string) bool {
	return sliceFields[key]
}

func splitAndTrim(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	result := make([]string, 0, len(parts))
	for _, p := range parts {
		trimmed := strings.TrimSpace(p)
		if trimmed != "" {
			result = append(result, trimmed)
		}
	}
	return result
}
