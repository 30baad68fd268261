package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/JakeFAU/iconsync/internal/initializer"
)

// newServeCmd creates the 'serve' subcommand.
func newServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serves the exported icon sets over HTTP",
		Long: `Initializes the configured icon-set sources, warm from the init cache when
one exists, and serves them over HTTP until interrupted.

--cleanup (default true) purges the storage cache first. Passing
--cleanup=true explicitly also ignores the init cache and forces a cold start;
--cleanup=false keeps both.`,
		RunE: runServeCommand,
	}
	cmd.Flags().Bool("cleanup", true, "purge the storage cache; set explicitly to force a cold start")
	cmd.Flags().Int("port", 0, "listen port (overrides server.port)")
	return cmd
}

func runServeCommand(cmd *cobra.Command, _ []string) error {
	appInstance, err := resolveApp(cmd.Context())
	if err != nil {
		return err
	}
	logger := appInstance.GetLogger()
	cfg := appInstance.Config()

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	serving, err := appInstance.NewServing()
	if err != nil {
		return err
	}
	mode, err := serving.Initializer.Init(ctx, initializer.Options{Cleanup: cleanupFlag(cmd)})
	if err != nil {
		return fmt.Errorf("initialize icon sets: %w", err)
	}
	logger.Info("API startup process complete", zap.String("mode", string(mode)))

	port := cfg.Server.Port
	if p, _ := cmd.Flags().GetInt("port"); p > 0 {
		port = p
	}
	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", port),
		Handler:           appInstance.NewServer(serving).Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		logger.Info("http server started", zap.Int("port", port))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server error", zap.Error(err))
			stop()
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown error", zap.Error(err))
	}
	logger.Info("server stopped")
	return nil
}

// cleanupFlag is nil unless --cleanup was given on the command line.
func cleanupFlag(cmd *cobra.Command) *bool {
	if !cmd.Flags().Changed("cleanup") {
		return nil
	}
	v, _ := cmd.Flags().GetBool("cleanup")
	return &v
}
