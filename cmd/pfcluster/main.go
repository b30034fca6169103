// Command pfcluster runs particle-flow clustering and the over-cleaning
// filter over JSON-lines calorimeter event streams.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/banshee-data/pfcluster/internal/monitoring"
	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// app carries the state shared by every subcommand.
type app struct {
	verbose bool
	runID   string
	logger  *zap.Logger
}

func newRootCmd() *cobra.Command {
	a := &app{}
	root := &cobra.Command{
		Use:   "pfcluster",
		Short: "Particle-flow calorimeter clustering",
		Long: `pfcluster groups calorimeter hits into particle-flow clusters.

Hits above a seed threshold that are local energy maxima seed clusters.
Connected hits above the cell threshold form topo-clusters, whose energy is
shared between seeds with a Gaussian shower model.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.setup()
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			a.teardown()
		},
	}
	root.PersistentFlags().BoolVarP(&a.verbose, "verbose", "v", false, "Enable debug logging")

	root.AddCommand(
		newClusterCmd(a),
		newFilterCmd(a),
		newDisplayCmd(a),
		newVersionCmd(),
	)
	return root
}

// setup builds the zap logger and routes package diagnostics through it.
func (a *app) setup() error {
	config := zap.NewProductionConfig()
	if a.verbose {
		config.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
	}
	logger, err := config.Build()
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	a.runID = uuid.NewString()
	a.logger = logger.With(zap.String("run_id", a.runID))

	sugar := a.logger.WithOptions(zap.AddCallerSkip(1)).Sugar()
	monitoring.SetLogger(sugar.Infof)
	monitoring.SetVerbose(a.verbose)
	return nil
}

func (a *app) teardown() {
	if a.logger != nil {
		_ = a.logger.Sync()
	}
}

// log returns the run logger, or a no-op logger before setup.
func (a *app) log() *zap.Logger {
	if a.logger == nil {
		return zap.NewNop()
	}
	return a.logger
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		stop()
		os.Exit(1)
	}
}
