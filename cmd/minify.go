package cmd

import (
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/JakeFAU/iconsync/internal/export"
)

// newMinifyCmd creates the 'minify' subcommand, which reruns the minify pass
// over an output directory.
func newMinifyCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "minify [dir]",
		Short: "Rewrites every JSON icon set in a directory without whitespace",
		Args:  cobra.MaximumNArgs(1),
		RunE:  runMinifyCommand,
	}
	return cmd
}

func runMinifyCommand(cmd *cobra.Command, args []string) error {
	appInstance, err := resolveApp(cmd.Context())
	if err != nil {
		return err
	}
	dir := appInstance.Config().Paths.OutputDir
	if len(args) == 1 {
		dir = args[0]
	}
	n, err := export.MinifyDir(cmd.Context(), dir, appInstance.GetLogger())
	if err != nil {
		return err
	}
	appInstance.GetLogger().Info("Minify command finished.", zap.String("dir", dir), zap.Int("files", n))
	return nil
}
