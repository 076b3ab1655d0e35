// Package cmd is the CLI boundary. Commands parse arguments and
// present results; every operation is delegated to the core packages.
package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/basescout/basescout/internal/config"
	"github.com/basescout/basescout/internal/data/db"
	"github.com/basescout/basescout/internal/diag"
	"github.com/basescout/basescout/internal/executor"
	"github.com/basescout/basescout/internal/log"
	"github.com/basescout/basescout/internal/metrics"
	"github.com/basescout/basescout/internal/sql"
	"github.com/basescout/basescout/pkg/scan"
	"github.com/basescout/basescout/pkg/scanner"
	"github.com/basescout/basescout/pkg/version"
)

// errFlagRetrieval is the error message for when a flag cannot be retrieved.
var errFlagRetrieval = errors.New("error getting flag")

// errRequiredFlagEmpty is the error message for a required flag that is empty.
var errRequiredFlagEmpty = errors.New("is required and cannot be empty")

// Execute is the main entry point for the CLI.
func Execute(args []string) {
	rootCmd := newRootCmd()
	rootCmd.SetArgs(args)
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "basescout",
		Short: "basescout scans and ranks container base images",
		Long: "basescout analyzes container base images with SBOM and vulnerability " +
			"tools, stores the merged records, and recommends the best-fitting image " +
			"for a set of requirements.",
		SilenceUsage: true,
	}
	rootCmd.Version = fmt.Sprintf(`{"version": "%s", "commit": "%s"}`, version.Version, version.CommitSHA)
	rootCmd.SetVersionTemplate("{{.Version}}\n")

	rootCmd.PersistentFlags().String("config", "", "Path to the YAML settings file")
	rootCmd.PersistentFlags().String("db-path", "", "SQLite database path (overrides settings)")
	rootCmd.PersistentFlags().String("diag-addr", "", "Address for the pprof and metrics server (disabled when empty)")

	rootCmd.AddCommand(newScanCmd())
	rootCmd.AddCommand(newScanReposCmd())
	rootCmd.AddCommand(newRecommendCmd())
	rootCmd.AddCommand(newStatsCmd())
	return rootCmd
}

// loadSettings resolves settings from the optional --config flag plus
// any flag overrides.
func loadSettings(cmd *cobra.Command) (config.Settings, error) {
	path, err := cmd.Flags().GetString("config")
	if err != nil {
		return config.Settings{}, fmt.Errorf("%w: config: %w", errFlagRetrieval, err)
	}
	settings := config.DefaultSettings()
	if path != "" {
		settings, err = config.LoadSettings(path)
		if err != nil {
			return config.Settings{}, err
		}
	}
	if dbPath, _ := cmd.Flags().GetString("db-path"); dbPath != "" { //nolint:errcheck
		settings.DBPath = dbPath
	}
	return settings, nil
}

// openStore connects to the configured database and returns the image store.
func openStore(ctx context.Context, settings config.Settings) (db.ImageStore, error) {
	connector := sql.CreateDBConnector(settings.DBType, settings.DBPath,
		settings.Postgres.Host, settings.Postgres.Port,
		settings.Postgres.User, settings.Postgres.Password, settings.Postgres.DBName)
	database, err := connector.Connect(ctx)
	if err != nil {
		return nil, err
	}
	return db.NewGormImageStore(database)
}

// newOrchestrator assembles the scan pipeline from the settings.
func newOrchestrator(ctx context.Context, settings config.Settings, store db.ImageStore) (*scan.Orchestrator, error) {
	exec := executor.NewCommandExecutor(ctx)
	sbom := scanner.NewSyftAdapter(exec, settings.ToolTimeout)
	vuln := []scanner.Adapter{
		scanner.NewTrivyAdapter(exec, settings.ToolTimeout),
		scanner.NewGrypeAdapter(exec, settings.ToolTimeout),
	}
	var metadata scanner.Adapter
	if inspect := scanner.NewInspectAdapter(exec, settings.ToolTimeout); inspect.Available() {
		metadata = inspect
	}
	return scan.NewOrchestrator(sbom, vuln, metadata, store, exec, settings.DefaultRegistry)
}

// commandContext builds the context every command runs with: a logger,
// a metrics collector, and the optional diagnostics server.
func commandContext(cmd *cobra.Command) context.Context {
	ctx := log.WithLogger(cmd.Context(), log.NewLogger(context.Background()))
	ctx = metrics.WithMetrics(ctx, scan.MetricsName)
	scan.RegisterScanMetrics(ctx)
	if addr, _ := cmd.Flags().GetString("diag-addr"); addr != "" { //nolint:errcheck
		go func() {
			if err := diag.Serve(ctx, addr, scan.MetricsName); err != nil {
				log.NewLogger(ctx).Error("diagnostics server failed", zap.Error(err))
			}
		}()
	}
	return ctx
}
