package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/rohankatakam/familydex/internal/storage"
)

var cacheCmd = &cobra.Command{
	Use:   "cache",
	Short: "Inspect or reset the persisted rank and variant caches",
}

var cacheStatsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show cache backend and entry counts",
	Args:  cobra.NoArgs,
	RunE:  runCacheStats,
}

var cacheClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Remove every cached rank and variant",
	Args:  cobra.NoArgs,
	RunE:  runCacheClear,
}

var cacheExportCmd = &cobra.Command{
	Use:   "export",
	Short: "Dump the caches as JSON",
	Args:  cobra.NoArgs,
	RunE:  runCacheExport,
}

func init() {
	cacheCmd.AddCommand(cacheStatsCmd)
	cacheCmd.AddCommand(cacheClearCmd)
	cacheCmd.AddCommand(cacheExportCmd)
}

func openStore() (storage.Store, error) {
	if err := cfg.Validate().Err(); err != nil {
		return nil, err
	}
	return storage.Open(cfg.Cache, log)
}

func runCacheStats(cmd *cobra.Command, args []string) error {
	store, err := openStore()
	if err != nil {
		return err
	}
	defer store.Close()

	stats, err := store.Stats(cmd.Context())
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Backend:  %s\n", stats.Backend)
	fmt.Fprintf(out, "Location: %s\n", stats.Location)
	fmt.Fprintf(out, "Ranks:    %d\n", stats.Ranks)
	fmt.Fprintf(out, "Variants: %d\n", stats.Variants)
	fmt.Fprintf(out, "Vocab:    %s\n", firstNonEmpty(stats.Vocabulary, "(unrecorded)"))
	return nil
}

func runCacheClear(cmd *cobra.Command, args []string) error {
	store, err := openStore()
	if err != nil {
		return err
	}
	defer store.Close()

	if err := store.Clear(cmd.Context()); err != nil {
		return err
	}
	log.Info("Cache cleared")
	fmt.Fprintln(cmd.OutOrStdout(), "Cache cleared")
	return nil
}

func runCacheExport(cmd *cobra.Command, args []string) error {
	store, err := openStore()
	if err != nil {
		return err
	}
	defer store.Close()

	ranks, err := store.LoadRanks(cmd.Context())
	if err != nil {
		return err
	}
	variants, err := store.LoadVariants(cmd.Context())
	if err != nil {
		return err
	}

	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(struct {
		Ranks    map[string]int      `json:"ranks"`
		Variants map[string][]string `json:"variants"`
	}{ranks, variants})
}
