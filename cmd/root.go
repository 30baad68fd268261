// Package cmd defines and implements the CLI commands for the iconsync executable.
package cmd

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/JakeFAU/iconsync/internal/api"
	"github.com/JakeFAU/iconsync/internal/app"
	"github.com/JakeFAU/iconsync/internal/config"
	"github.com/JakeFAU/iconsync/internal/logging"
	"github.com/JakeFAU/iconsync/internal/pipeline"
	pkgconfig "github.com/JakeFAU/iconsync/pkg/config"
)

var (
	cfgFile string
	envFile string
)

// appKeyType is the key for storing the App in the context.
type appKeyType string

const appKey appKeyType = "app"

// App defines the application interface that commands will use.
// This allows us to inject a mock app during tests.
type App interface {
	Close()
	GetLogger() *zap.Logger
	Config() config.Config
	NewPipeline(ctx context.Context, opts app.PipelineOptions) (*pipeline.Pipeline, error)
	NewServing() (*app.Serving, error)
	NewServer(s *app.Serving) *api.Server
}

// newApp is the application factory. It's a variable so we can
// replace it with a mock factory in our tests.
var newApp = func(ctx context.Context, cfg config.Config, opts app.Options, logger *zap.Logger) (App, error) {
	return app.NewApp(ctx, cfg, opts, logger)
}

// newRootCmd creates and configures the root command.
func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "iconsync",
		Short: "Synchronizes icon collections from object storage into JSON icon sets.",
		Long: `iconsync downloads every collection of SVG icons from an object-storage
bucket, normalizes them to single-color optimized markup and writes one
minified JSON icon set per collection. The serve command exposes the
resulting sets over HTTP, starting warm from its init cache when possible.`,
		SilenceUsage: true,

		// Load configuration, swap in the configured logger, then build the
		// application and store it in the context for subcommands.
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			if err := config.LoadDotEnv(envFile); err != nil {
				return err
			}
			cfg, err := config.FromViper(viper.GetViper())
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			logger, err := logging.New(cfg.Logging.Development)
			if err != nil {
				return err
			}
			logging.Use(logger)

			opts := app.Options{}
			opts.DryRun, _ = cmd.Flags().GetBool("dry-run")
			opts.SeedDir, _ = cmd.Flags().GetString("seed-dir")

			appInstance, err := newApp(cmd.Context(), cfg, opts, logger)
			if err != nil {
				return fmt.Errorf("failed to initialize application services: %w", err)
			}

			ctx := context.WithValue(cmd.Context(), appKey, appInstance)
			cmd.SetContext(ctx)
			return nil
		},

		// This hook ensures services are shut down gracefully.
		PersistentPostRun: func(cmd *cobra.Command, _ []string) {
			if appInstance, ok := cmd.Context().Value(appKey).(App); ok && appInstance != nil {
				appInstance.Close()
			}
		},
	}

	cobra.OnInitialize(func() { pkgconfig.InitConfig(cfgFile) })

	cmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is ./config.yaml, /etc/iconsync/ or $HOME/.iconsync)")
	cmd.PersistentFlags().StringVar(&envFile, "env-file", ".env", "dotenv file with S3_* credentials")

	cmd.AddCommand(newBuildCmd())
	cmd.AddCommand(newServeCmd())
	cmd.AddCommand(newMinifyCmd())

	return cmd
}

func resolveApp(ctx context.Context) (App, error) {
	appInstance, ok := ctx.Value(appKey).(App)
	if !ok || appInstance == nil {
		return nil, errors.New("application services not initialized")
	}
	return appInstance, nil
}

// Execute is the main entry point.
func Execute() {
	// Initialize the logger once at the very start.
	logging.InitLogger()

	if err := newRootCmd().Execute(); err != nil {
		logging.L.Fatal("Command execution failed", zap.Error(err))
	}
}
