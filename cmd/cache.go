package cmd

import (
	"context"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var cacheCmd = &cobra.Command{
	Use:   "cache",
	Short: "Inspect or clear the analysis cache",
}

var cacheClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Remove every cached analysis",
	Run: func(_ *cobra.Command, _ []string) {
		cacheClear()
	},
}

var cacheStatsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Print the number of cached analyses",
	Run: func(_ *cobra.Command, _ []string) {
		cacheStats()
	},
}

func init() {
	cacheCmd.AddCommand(cacheClearCmd, cacheStatsCmd)
	rootCmd.AddCommand(cacheCmd)
}

func cacheClear() {
	ctx := context.Background()

	e := setup(ctx)
	defer e.close()

	if e.cache == nil {
		e.logger.Info("cache is disabled, nothing to clear")
		return
	}
	if err := e.cache.Clear(ctx); err != nil {
		e.logger.Fatal("clearing the cache", zap.Error(err))
	}
}

type cacheReport struct {
	Enabled        bool   `json:"enabled"`
	Backend        string `json:"backend,omitempty"`
	DurableEntries *int   `json:"durable_entries,omitempty"`
}

func cacheStats() {
	ctx := context.Background()

	e := setup(ctx)
	defer e.close()

	report := cacheReport{Enabled: e.cache != nil}
	if e.cache != nil {
		report.Backend = e.config.Cache.Backend
		n, ok, err := e.cache.DurableEntries(ctx)
		if err != nil {
			e.logger.Fatal("counting cache entries", zap.Error(err))
		}
		if ok {
			report.DurableEntries = &n
		}
	}

	if err := printJSON(os.Stdout, report); err != nil {
		e.logger.Fatal("printing the stats", zap.Error(err))
	}
}
