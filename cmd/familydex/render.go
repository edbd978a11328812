package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/rohankatakam/familydex/internal/display"
	"github.com/rohankatakam/familydex/internal/models"
)

var renderCmd = &cobra.Command{
	Use:   "render <identity>...",
	Short: "Print display labels for identities",
	Long: `Render API identities the way the report shows them.

Examples:
  familydex render nidoran-f iron-bundle tauros-paldea-aqua-breed`,
	Args: cobra.MinimumNArgs(1),
	RunE: runRender,
}

var inspectCmd = &cobra.Command{
	Use:   "inspect <identity>...",
	Short: "Show how identities are normalized, filtered and prioritized",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runInspect,
}

func runRender(cmd *cobra.Command, args []string) error {
	v, err := loadVocabulary(cfg.Vocabulary.Path)
	if err != nil {
		return err
	}
	f := display.NewFormatter(v)

	for _, arg := range args {
		fmt.Fprintln(cmd.OutOrStdout(), f.Render(models.Identity(arg)))
	}
	return nil
}

func runInspect(cmd *cobra.Command, args []string) error {
	v, err := loadVocabulary(cfg.Vocabulary.Path)
	if err != nil {
		return err
	}
	f := display.NewFormatter(v)

	tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "IDENTITY\tBASE\tELIGIBLE\tPRIORITY\tLABEL")
	for _, arg := range args {
		id := models.Identity(arg)
		fmt.Fprintf(tw, "%s\t%s\t%t\t%d\t%s\n",
			id, v.Normalize(id), v.IsEligible(id), v.RegionPriority(id), f.Render(id))
	}
	return tw.Flush()
}
