package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/pdiddy/chemscreen/internal/cache"
)

var cacheCmd = &cobra.Command{
	Use:   "cache",
	Short: "Inspect and manage the search-result cache",
}

var cacheStatsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show cache entry counts and disk usage",
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := openCache(cmd)
		if err != nil {
			return err
		}

		stats, err := store.ReadStats()
		if err != nil {
			return err
		}
		fmt.Printf("entries:  %d\n", stats.TotalEntries)
		fmt.Printf("expired:  %d\n", stats.ExpiredEntries)
		fmt.Printf("size:     %.1f KiB\n", float64(stats.TotalBytes)/1024)
		return nil
	},
}

var cacheClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Remove cache entries",
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := openCache(cmd)
		if err != nil {
			return err
		}

		expiredOnly, _ := cmd.Flags().GetBool("expired")
		var removed int
		if expiredOnly {
			removed, err = store.ClearExpired()
		} else {
			removed, err = store.Clear()
		}
		if err != nil {
			return err
		}
		fmt.Printf("removed %d cache entries\n", removed)
		return nil
	},
}

func openCache(cmd *cobra.Command) (*cache.Store, error) {
	log, err := buildLogger(cmd)
	if err != nil {
		return nil, err
	}
	return cache.New(loadConfig().Cache, log)
}

func init() {
	cacheClearCmd.Flags().Bool("expired", false, "remove only entries past their TTL")

	cacheCmd.AddCommand(cacheStatsCmd, cacheClearCmd)
	rootCmd.AddCommand(cacheCmd)
}
