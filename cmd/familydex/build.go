package main

import (
	"context"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/rohankatakam/familydex/internal/family"
	"github.com/rohankatakam/familydex/internal/models"
	"github.com/rohankatakam/familydex/internal/output"
)

var (
	buildOutput   string
	buildFailures string
	buildFormat   string
	buildLimit    int
	buildQuiet    bool
)

var buildCmd = &cobra.Command{
	Use:   "build",
	Short: "Build the family-ordered Pokédex",
	Long: `Fetch every evolution chain, assemble each family with its alternate
forms, order families by National Dex number and write the report.

Rank and variant caches are loaded before the run and saved after it, also
when some chains failed.

Examples:
  # Full run with the configured cache backend
  familydex build

  # First ten chains, JSON report, failures listed separately
  familydex build --limit 10 --format json --output dex.json --failures failures.txt`,
	Args: cobra.NoArgs,
	RunE: runBuild,
}

func init() {
	buildCmd.Flags().StringVarP(&buildOutput, "output", "o", "", "report path (default: report.path)")
	buildCmd.Flags().StringVar(&buildFailures, "failures", "", "write failed chains to this file (default: report.failures_path)")
	buildCmd.Flags().StringVar(&buildFormat, "format", output.FormatText, "report format: text or json")
	buildCmd.Flags().IntVar(&buildLimit, "limit", 0, "process only the first N chains")
	buildCmd.Flags().BoolVarP(&buildQuiet, "quiet", "q", false, "do not print families as they are assembled")
}

func runBuild(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	result := cfg.Validate()
	for _, w := range result.Warnings {
		log.Warn(w)
	}
	if err := result.Err(); err != nil {
		return err
	}

	reportPath := firstNonEmpty(buildOutput, cfg.Report.Path)
	failuresPath := firstNonEmpty(buildFailures, cfg.Report.FailuresPath)

	e, err := newEngine(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer e.Close()

	out := cmd.OutOrStdout()
	builder := family.NewBuilder(e.client, e.assembler, log, family.Options{
		Limit: buildLimit,
		OnFamily: func(i, total int, f *models.Family) {
			if buildQuiet {
				return
			}
			for _, label := range e.renderer.RenderAll(f.Members) {
				fmt.Fprintln(out, label)
			}
		},
	})

	built, buildErr := builder.Build(ctx)

	// Persist whatever was memoized, even after a failed or partial run.
	// A cancelled run context must not stop the save.
	saveCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 30*time.Second)
	defer cancel()
	saveErr := e.saveCaches(saveCtx)
	if buildErr != nil {
		return buildErr
	}
	if saveErr != nil {
		return saveErr
	}

	formatter := output.NewFormatter(buildFormat, e.renderer)
	if err := output.WriteReportFile(reportPath, built.Families, formatter); err != nil {
		return err
	}
	if failuresPath != "" {
		if err := output.WriteFailuresFile(failuresPath, built.Failures); err != nil {
			return err
		}
	}

	stats := e.resolver.Stats()
	log.WithFields(logrus.Fields{
		"families":       len(built.Families),
		"failures":       len(built.Failures),
		"rank_hits":      stats.Hits,
		"rank_fetches":   stats.Fetches,
		"rank_fallbacks": stats.Fallbacks,
		"requests":       e.client.Requests(),
	}).Info("Run statistics")

	fmt.Fprintf(out, "\nSaved to %s\n", reportPath)
	if len(built.Failures) > 0 {
		fmt.Fprintf(out, "%d of %d chains failed", len(built.Failures), built.Chains)
		if failuresPath != "" {
			fmt.Fprintf(out, " (see %s)", failuresPath)
		}
		fmt.Fprintln(out)
	}
	return nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
