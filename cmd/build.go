package cmd

import (
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/JakeFAU/iconsync/internal/app"
)

// newBuildCmd creates the 'build' subcommand, which runs one full sync.
func newBuildCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "build",
		Short: "Downloads, normalizes and exports every icon collection",
		Long: `Lists the top-level collections of the bucket, downloads their SVG files,
normalizes each icon and writes one JSON icon set per collection into the
output directory. Artifacts are minified after the run summary is printed.`,
		RunE: runBuildCommand,
	}
	cmd.Flags().Bool("dry-run", false, "use an in-memory bucket instead of the configured provider")
	cmd.Flags().String("seed-dir", "", "directory loaded into the in-memory bucket for --dry-run")
	cmd.Flags().Bool("prune-svg", false, "remove the svg/ processing tree after the run")
	return cmd
}

func runBuildCommand(cmd *cobra.Command, _ []string) error {
	appInstance, err := resolveApp(cmd.Context())
	if err != nil {
		return err
	}
	prune, _ := cmd.Flags().GetBool("prune-svg")

	p, err := appInstance.NewPipeline(cmd.Context(), app.PipelineOptions{PruneSVG: prune})
	if err != nil {
		return err
	}
	summary, err := p.Run(cmd.Context())
	if err != nil {
		return err
	}

	appInstance.GetLogger().Info("Build command finished.",
		zap.String("run_id", summary.RunID),
		zap.Int("collections", len(summary.Results)),
		zap.Int("failed", summary.Failures()),
		zap.Int("icons", summary.Icons()),
	)
	return nil
}
