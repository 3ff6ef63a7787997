// pkg/config/config.go
package config

import (
	"fmt"
	"strings"
	"time"

	"stochastic/pkg/apperror"
)

// Config - главная структура конфигурации
type Config struct {
	App         AppConfig         `koanf:"app"`
	Log         LogConfig         `koanf:"log"`
	Metrics     MetricsConfig     `koanf:"metrics"`
	Tracing     TracingConfig     `koanf:"tracing"`
	Cache       CacheConfig       `koanf:"cache"`
	Engine      EngineConfig      `koanf:"engine"`
	Experiments ExperimentsConfig `koanf:"experiments"`
	Report      ReportConfig      `koanf:"report"`
}

// AppConfig - общие настройки приложения
type AppConfig struct {
	Name        string `koanf:"name"`
	Version     string `koanf:"version"`
	Environment string `koanf:"environment"` // development, staging, production
	Debug       bool   `koanf:"debug"`
}

// LogConfig - настройки логирования
type LogConfig struct {
	Level      string `koanf:"level"`       // debug, info, warn, error
	Format     string `koanf:"format"`      // json, text; пусто - по окружению
	Output     string `koanf:"output"`      // stdout, stderr, file
	FilePath   string `koanf:"file_path"`   // путь к файлу логов
	MaxSize    int    `koanf:"max_size"`    // MB
	MaxBackups int    `koanf:"max_backups"` // количество бэкапов
	MaxAge     int    `koanf:"max_age"`     // дней
	Compress   bool   `koanf:"compress"`
}

// MetricsConfig - настройки Prometheus метрик
type MetricsConfig struct {
	Enabled   bool   `koanf:"enabled"`
	Namespace string `koanf:"namespace"`
	Subsystem string `koanf:"subsystem"`
	// TextfilePath - куда выгрузить метрики после прогона (формат textfile collector)
	TextfilePath string `koanf:"textfile_path"`
}

// TracingConfig - настройки OpenTelemetry
type TracingConfig struct {
	Enabled     bool    `koanf:"enabled"`
	Endpoint    string  `koanf:"endpoint"`
	ServiceName string  `koanf:"service_name"`
	SampleRate  float64 `koanf:"sample_rate"`
}

// CacheConfig - настройки кэширования результатов перебора
type CacheConfig struct {
	Enabled    bool          `koanf:"enabled"`
	Driver     string        `koanf:"driver"` // redis, memory
	Host       string        `koanf:"host"`
	Port       int           `koanf:"port"`
	Password   string        `koanf:"password"`
	DB         int           `koanf:"db"`
	DefaultTTL time.Duration `koanf:"default_ttl"`
	MaxEntries int           `koanf:"max_entries"` // для in-memory
}

// Address возвращает адрес кэша
func (c CacheConfig) Address() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// EngineConfig - параметры Monte Carlo и точного перебора
type EngineConfig struct {
	Trials          int     `koanf:"trials"`
	Seed            uint64  `koanf:"seed"` // 0 - от часов
	Workers         int     `koanf:"workers"`
	ChunkSize       int     `koanf:"chunk_size"`
	ConfidenceLevel float64 `koanf:"confidence_level"`
	EnumerationCap  uint64  `koanf:"enumeration_cap"`
}

// ExperimentsConfig - параметры задач
type ExperimentsConfig struct {
	Pairing  PairingConfig  `koanf:"pairing"`
	Sampling SamplingConfig `koanf:"sampling"`
	Waiting  WaitingConfig  `koanf:"waiting"`
}

// PairingConfig - случайные пары в несколько этапов
type PairingConfig struct {
	Population int     `koanf:"population"`
	Stages     int     `koanf:"stages"`
	Trials     int     `koanf:"trials"` // 0 - engine.trials
	Tolerance  float64 `koanf:"tolerance"`
}

// SamplingConfig - выборка с возвращением
type SamplingConfig struct {
	Categories int     `koanf:"categories"`
	Draws      int     `koanf:"draws"`
	Trials     int     `koanf:"trials"`
	Tolerance  float64 `koanf:"tolerance"`
}

// WaitingConfig - экспоненциальное время ожидания
type WaitingConfig struct {
	Probability float64   `koanf:"probability"`
	Window      float64   `koanf:"window"`
	Queries     []float64 `koanf:"queries"`
	BucketWidth float64   `koanf:"bucket_width"`
	Trials      int       `koanf:"trials"`
	Tolerance   float64   `koanf:"tolerance"`
}

// ReportConfig - настройки отчёта
type ReportConfig struct {
	Locale       string  `koanf:"locale"` // ru даёт запятую как десятичный разделитель
	XLSXPath     string  `koanf:"xlsx_path"`
	PDFPath      string  `koanf:"pdf_path"`
	MinShare     float64 `koanf:"min_share"` // строки распределения ниже порога не печатаются
	ShowFormulas bool    `koanf:"show_formulas"`
}

// Validate проверяет конфигурацию; все нарушения собираются в одну ошибку
func (c *Config) Validate() error {
	ve := apperror.NewValidationErrors()
	invalid := func(field, format string, args ...any) {
		ve.AddErrorWithField(apperror.CodeInvalidConfiguration, fmt.Sprintf(format, args...), field)
	}

	if c.App.Name == "" {
		invalid("app.name", "app.name is required")
	}

	if c.Log.Level == "" {
		c.Log.Level = "info"
	}

	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[strings.ToLower(c.Log.Level)] {
		invalid("log.level", "log.level must be one of: debug, info, warn, error, got %s", c.Log.Level)
	}
	validFormats := map[string]bool{"": true, "json": true, "text": true}
	if !validFormats[c.Log.Format] {
		invalid("log.format", "log.format must be json or text, got %s", c.Log.Format)
	}

	if c.Engine.Trials <= 0 {
		invalid("engine.trials", "engine.trials must be positive, got %d", c.Engine.Trials)
	}
	if c.Engine.Workers < 0 {
		invalid("engine.workers", "engine.workers must be non-negative, got %d", c.Engine.Workers)
	}
	if c.Engine.ConfidenceLevel <= 0 || c.Engine.ConfidenceLevel >= 1 {
		invalid("engine.confidence_level", "engine.confidence_level must be in (0, 1), got %v", c.Engine.ConfidenceLevel)
	}

	validDrivers := map[string]bool{"memory": true, "redis": true}
	if c.Cache.Enabled && !validDrivers[c.Cache.Driver] {
		invalid("cache.driver", "cache.driver must be one of: memory, redis, got %s", c.Cache.Driver)
	}

	if c.Report.MinShare < 0 || c.Report.MinShare >= 1 {
		invalid("report.min_share", "report.min_share must be in [0, 1), got %v", c.Report.MinShare)
	}

	return ve.Err()
}

// IsProduction проверяет продакшн режим
func (c *Config) IsProduction() bool {
	return c.App.Environment == "production" || c.App.Environment == "prod"
}

// LogFormat формат логов: явно заданный, иначе json в продакшне и text в остальных окружениях
func (c *Config) LogFormat() string {
	if c.Log.Format != "" {
		return c.Log.Format
	}
	if c.IsProduction() {
		return "json"
	}
	return "text"
}
