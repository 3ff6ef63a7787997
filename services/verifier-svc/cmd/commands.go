// services/verifier-svc/cmd/commands.go
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"stochastic/pkg/cache"
	"stochastic/pkg/config"
	"stochastic/pkg/logger"
	"stochastic/pkg/metrics"
	"stochastic/pkg/telemetry"
	"stochastic/services/verifier-svc/internal/report"
	"stochastic/services/verifier-svc/internal/service"
)

// errMismatch возвращается в режиме --strict, если хотя бы одно утверждение не подтвердилось
var errMismatch = errors.New("some claims do not agree with the estimates")

func buildRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:          "verifier",
		Short:        "Verify closed-form probability results by enumeration and simulation",
		Version:      version,
		SilenceUsage: true,
	}
	root.AddCommand(
		buildRunCmd(),
		buildListCmd(),
		buildKataCmd(),
		buildCacheCmd(),
	)
	return root
}

type runFlags struct {
	configPath  string
	trials      int
	seed        uint64
	workers     int
	xlsxPath    string
	pdfPath     string
	locale      string
	metricsFile string
	strict      bool
}

func buildRunCmd() *cobra.Command {
	var f runFlags
	cmd := &cobra.Command{
		Use:   "run [experiment...]",
		Short: "Run the triple check for the given experiments (all by default)",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runVerify(cmd, f, args)
		},
	}
	cmd.Flags().StringVarP(&f.configPath, "config", "c", "", "Path to YAML configuration file")
	cmd.Flags().IntVarP(&f.trials, "trials", "n", 0, "Monte Carlo trials per experiment (overrides config)")
	cmd.Flags().Uint64Var(&f.seed, "seed", 0, "Master seed; 0 derives one from the clock")
	cmd.Flags().IntVarP(&f.workers, "workers", "w", 0, "Parallel workers; 0 uses all CPUs")
	cmd.Flags().StringVar(&f.xlsxPath, "xlsx", "", "Write an XLSX workbook to this path")
	cmd.Flags().StringVar(&f.pdfPath, "pdf", "", "Write a PDF report to this path")
	cmd.Flags().StringVar(&f.locale, "locale", "", "Report locale, e.g. en or ru")
	cmd.Flags().StringVar(&f.metricsFile, "metrics-file", "", "Write Prometheus metrics in textfile format")
	cmd.Flags().BoolVar(&f.strict, "strict", false, "Exit with an error when a claim does not agree")
	return cmd
}

func buildListCmd() *cobra.Command {
	var configPath string
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List available experiments",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, _, err := loadConfig(configPath)
			if err != nil {
				return err
			}
			svc, err := service.New(cfg, service.WithMetrics(metrics.New(cfg.Metrics.Namespace, cfg.Metrics.Subsystem)))
			if err != nil {
				return err
			}
			for _, name := range svc.Names() {
				fmt.Fprintln(cmd.OutOrStdout(), name)
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&configPath, "config", "c", "", "Path to YAML configuration file")
	return cmd
}

// loadConfig возвращает конфигурацию и путь к прочитанному файлу
func loadConfig(path string) (*config.Config, string, error) {
	var opts []config.LoaderOption
	if path != "" {
		if _, err := os.Stat(path); err != nil {
			return nil, "", fmt.Errorf("config file %s: %w", path, err)
		}
		opts = append(opts, config.WithConfigPaths(path))
	}
	loader := config.NewLoader(opts...)
	cfg, err := loader.Load()
	if err != nil {
		return nil, "", err
	}
	return cfg, loader.Source(), nil
}

// applyFlags переносит явно заданные флаги поверх конфигурации
func applyFlags(cmd *cobra.Command, cfg *config.Config, f runFlags) {
	flags := cmd.Flags()
	if flags.Changed("trials") && f.trials > 0 {
		cfg.Engine.Trials = f.trials
		cfg.Experiments.Pairing.Trials = 0
		cfg.Experiments.Sampling.Trials = 0
		cfg.Experiments.Waiting.Trials = 0
	}
	if flags.Changed("seed") {
		cfg.Engine.Seed = f.seed
	}
	if flags.Changed("workers") {
		cfg.Engine.Workers = f.workers
	}
	if f.xlsxPath != "" {
		cfg.Report.XLSXPath = f.xlsxPath
	}
	if f.pdfPath != "" {
		cfg.Report.PDFPath = f.pdfPath
	}
	if f.locale != "" {
		cfg.Report.Locale = f.locale
	}
	if f.metricsFile != "" {
		cfg.Metrics.Enabled = true
		cfg.Metrics.TextfilePath = f.metricsFile
	}
}

func runVerify(cmd *cobra.Command, f runFlags, names []string) error {
	cfg, src, err := loadConfig(f.configPath)
	if err != nil {
		return err
	}
	applyFlags(cmd, cfg, f)

	logger.InitWithConfig(logger.Config{
		Level:      cfg.Log.Level,
		Format:     cfg.LogFormat(),
		Output:     cfg.Log.Output,
		FilePath:   cfg.Log.FilePath,
		MaxSize:    cfg.Log.MaxSize,
		MaxBackups: cfg.Log.MaxBackups,
		MaxAge:     cfg.Log.MaxAge,
		Compress:   cfg.Log.Compress,
	})
	if src != "" {
		logger.Info("configuration loaded", "source", src)
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Телеметрия
	if cfg.Tracing.Enabled {
		tp, err := telemetry.Init(ctx, telemetry.Config{
			Enabled:     cfg.Tracing.Enabled,
			Endpoint:    cfg.Tracing.Endpoint,
			ServiceName: cfg.Tracing.ServiceName,
			Version:     cfg.App.Version,
			Environment: cfg.App.Environment,
			SampleRate:  cfg.Tracing.SampleRate,
		})
		if err != nil {
			logger.Warn("failed to init telemetry", "error", err)
		} else {
			defer func() {
				if err := tp.Shutdown(context.Background()); err != nil {
					logger.Warn("failed to shutdown telemetry", "error", err)
				}
			}()
		}
	}

	m := metrics.InitMetrics(cfg.Metrics.Namespace, cfg.Metrics.Subsystem)
	m.SetServiceInfo(cfg.App.Version, cfg.App.Environment)

	opts := []service.Option{service.WithMetrics(m)}

	// Кэш перебора не обязателен: без него перебор просто повторяется
	if cfg.Cache.Enabled {
		c, err := cache.New(cache.FromConfig(cfg.Cache))
		if err != nil {
			logger.Warn("exact cache unavailable", "driver", cfg.Cache.Driver, "error", err)
		} else {
			defer c.Close()
			opts = append(opts, service.WithCache(c, cfg.Cache.DefaultTTL))
		}
	}

	svc, err := service.New(cfg, opts...)
	if err != nil {
		return err
	}

	var results []*service.Result
	if len(names) == 0 {
		results, err = svc.RunAll(ctx)
	} else {
		for _, name := range names {
			var res *service.Result
			res, err = svc.Run(ctx, name)
			if err != nil {
				break
			}
			results = append(results, res)
		}
	}
	if err != nil {
		return err
	}

	reportOpts := report.Options{
		Locale:       report.ParseLocale(cfg.Report.Locale),
		MinShare:     cfg.Report.MinShare,
		ShowFormulas: cfg.Report.ShowFormulas,
	}
	if err := report.Text(cmd.OutOrStdout(), results, reportOpts); err != nil {
		return err
	}

	if cfg.Report.XLSXPath != "" {
		if err := report.WriteXLSX(cfg.Report.XLSXPath, results); err != nil {
			return err
		}
		logger.Info("xlsx report written", "path", cfg.Report.XLSXPath)
	}

	if cfg.Report.PDFPath != "" {
		if err := report.WritePDF(cfg.Report.PDFPath, results, reportOpts); err != nil {
			return err
		}
		logger.Info("pdf report written", "path", cfg.Report.PDFPath)
	}

	if cfg.Metrics.Enabled && cfg.Metrics.TextfilePath != "" {
		if err := m.WriteTextfile(cfg.Metrics.TextfilePath); err != nil {
			return fmt.Errorf("write metrics: %w", err)
		}
	}

	if f.strict {
		for _, res := range results {
			if !res.Agrees {
				return errMismatch
			}
		}
	}
	return nil
}
