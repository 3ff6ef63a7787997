// services/verifier-svc/cmd/cache.go
package main

import (
	"fmt"
	"maps"
	"slices"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"stochastic/pkg/apperror"
	"stochastic/pkg/cache"
)

func buildCacheCmd() *cobra.Command {
	var configPath string
	cmd := &cobra.Command{
		Use:   "cache",
		Short: "Inspect or clear cached enumeration results",
	}
	cmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Path to YAML configuration file")

	var all bool
	clearCmd := &cobra.Command{
		Use:   "clear [experiment...]",
		Short: "Remove cached enumeration results (all experiments by default)",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withExactCache(configPath, func(c cache.Cache, ec *cache.ExactCache) error {
				ctx := cmd.Context()
				out := cmd.OutOrStdout()

				// --all чистит кэш целиком, включая чужие ключи
				if all {
					if err := c.Clear(ctx); err != nil {
						return err
					}
					fmt.Fprintln(out, "cache cleared")
					return nil
				}

				if len(args) == 0 {
					n, err := ec.InvalidateAll(ctx)
					if err != nil {
						return err
					}
					fmt.Fprintf(out, "removed %d entries\n", n)
					return nil
				}

				for _, name := range args {
					n, err := ec.Invalidate(ctx, name)
					if err != nil {
						return err
					}
					fmt.Fprintf(out, "%s: removed %d entries\n", name, n)
				}
				return nil
			})
		},
	}
	clearCmd.Flags().BoolVar(&all, "all", false, "Clear the whole cache, not only enumeration results")

	statsCmd := &cobra.Command{
		Use:   "stats",
		Short: "Show cache statistics and cached results per experiment",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withExactCache(configPath, func(_ cache.Cache, ec *cache.ExactCache) error {
				ctx := cmd.Context()
				st, err := ec.Stats(ctx)
				if err != nil {
					return err
				}
				entries, err := ec.Entries(ctx)
				if err != nil {
					return err
				}

				tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
				fmt.Fprintf(tw, "backend\t%s\n", st.Backend)
				fmt.Fprintf(tw, "keys\t%d\n", st.TotalKeys)
				fmt.Fprintf(tw, "hit rate\t%.2f\n", st.HitRate)
				if st.MemoryBytes > 0 {
					fmt.Fprintf(tw, "memory\t%d bytes\n", st.MemoryBytes)
				}
				for _, name := range slices.Sorted(maps.Keys(entries)) {
					fmt.Fprintf(tw, "exact:%s\t%d\n", name, entries[name])
				}
				return tw.Flush()
			})
		},
	}

	cmd.AddCommand(statsCmd, clearCmd)
	return cmd
}

// withExactCache открывает кэш из конфигурации и закрывает его после fn
func withExactCache(configPath string, fn func(cache.Cache, *cache.ExactCache) error) error {
	cfg, _, err := loadConfig(configPath)
	if err != nil {
		return err
	}
	if !cfg.Cache.Enabled {
		return apperror.InvalidConfiguration("cache.enabled", "cache is disabled")
	}

	c, err := cache.New(cache.FromConfig(cfg.Cache))
	if err != nil {
		return fmt.Errorf("open %s cache: %w", cfg.Cache.Driver, err)
	}
	defer c.Close()

	return fn(c, cache.NewExactCache(c, cfg.Cache.DefaultTTL))
}
