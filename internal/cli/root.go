// Package cli is the civitas command line: long-running serve and worker
// modes plus operator commands against the same database.
package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/josh-kwaku/civitas/internal/config"
	"github.com/josh-kwaku/civitas/internal/logging"
)

const serviceName = "civitas"

type runtime struct {
	cfg *config.Config
}

// withApp wires the application for the duration of fn.
func (rt *runtime) withApp(ctx context.Context, fn func(a *app) error) error {
	a, err := newApp(ctx, rt.cfg)
	if err != nil {
		return err
	}
	defer a.close()
	return fn(a)
}

func NewRootCommand() *cobra.Command {
	rt := &runtime{}

	root := &cobra.Command{
		Use:           serviceName,
		Short:         "A text-command micro-economy of credits, causae and commissiones",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			rt.cfg = cfg
			logging.Init(serviceName, cfg.LogLevel, cfg.AppEnv)
			return nil
		},
	}

	root.AddCommand(
		newServeCommand(rt),
		newWorkerCommand(rt),
		newProcessCommand(rt),
		newIngestCommand(rt),
		newSendCommand(rt),
		newMigrateCommand(rt),
		newGrantCommand(rt),
		newBalanceCommand(rt),
		newHistoryCommand(rt),
		newTokenCommand(rt),
	)
	return root
}

// Execute runs the root command with SIGINT and SIGTERM cancelling the
// context.
func Execute() int {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := NewRootCommand().ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		return 1
	}
	return 0
}
