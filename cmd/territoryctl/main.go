// Command territoryctl is the operator CLI for the territory engine.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"territory_backend/internal/territory"
	"territory_backend/internal/territory/service"
	"territory_backend/platform/config"
	"territory_backend/platform/db"
	"territory_backend/platform/events"
	"territory_backend/platform/logger"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/spf13/cobra"
)

// runtime holds what the subcommands share once the root has connected.
type runtime struct {
	cfg  *config.Config
	log  *logger.Logger
	pool *pgxpool.Pool
	svc  *service.Service
	bus  *events.InMemoryBus
}

var flagJSON bool

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	rt := &runtime{}

	cmd := &cobra.Command{
		Use:           "territoryctl",
		Short:         "Operate the territory assignment engine",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return rt.open(cmd.Context())
		},
		PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
			rt.close()
			return nil
		},
	}
	cmd.PersistentFlags().BoolVar(&flagJSON, "json", false, "output as JSON")

	cmd.AddCommand(migrateCmd(rt))
	cmd.AddCommand(auditCmd(rt))
	cmd.AddCommand(assignCmd(rt))
	cmd.AddCommand(unassignCmd(rt))
	cmd.AddCommand(visibleCmd(rt))

	return cmd
}

func (rt *runtime) open(ctx context.Context) error {
	cfg, err := config.LoadDatabaseOnly()
	if err != nil {
		return err
	}
	rt.cfg = cfg
	rt.log = logger.NewWithWriter(cfg.Env, os.Stderr)

	pool, err := db.NewPool(ctx, cfg)
	if err != nil {
		return fmt.Errorf("connect database: %w", err)
	}
	rt.pool = pool

	rt.bus = events.NewInMemoryBus(rt.log)
	svc, _, err := territory.NewService(pool, rt.bus, cfg, rt.log)
	if err != nil {
		return err
	}
	rt.svc = svc
	return nil
}

func (rt *runtime) close() {
	if rt.bus != nil {
		rt.bus.Wait()
	}
	if rt.pool != nil {
		rt.pool.Close()
	}
}
