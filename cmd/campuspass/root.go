// Command campuspass runs the campus vehicle-passage service and its
// administrative tasks against the embedded store.
//
//	campuspass serve                      # HTTP + gRPC health + pruner
//	campuspass init                       # create schema and admin only
//	campuspass seed                       # load the demo data set
//	campuspass export [-f json|yaml] [-o file]
//	campuspass purge --from T --to T
//	campuspass user add|passwd|delete|list ...
//	campuspass sensor add|status|delete ...
//	campuspass vehicle add|delete ...
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/campuspass/server/internal/campus/service"
	sqlitestore "github.com/campuspass/server/internal/campus/store/sqlite"
	"github.com/campuspass/server/internal/campus/types"
	"github.com/campuspass/server/internal/config"
	"github.com/campuspass/server/internal/db"
	"github.com/campuspass/server/internal/logging"
)

var dbPath string

var rootCmd = &cobra.Command{
	Use:           "campuspass",
	Short:         "Campus vehicle passage tracking service",
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute runs the root command and exits non-zero on failure.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&dbPath, "db", "", "store file (overrides CAMPUSPASS_DB_PATH)")
	rootCmd.AddCommand(serveCmd, initCmd, seedCmd, exportCmd, purgeCmd, userCmd, sensorCmd, vehicleCmd)
}

// runtime is everything a command needs once the store is open.
type runtime struct {
	cfg    config.Config
	logger *slog.Logger
	mgr    *db.Manager
	engine *service.Engine
	store  *sqlitestore.Store
}

func (rt *runtime) Close() {
	if err := rt.mgr.Shutdown(); err != nil {
		rt.logger.Error("store shutdown", logging.Err(err))
	}
}

func openRuntime(ctx context.Context) (*runtime, error) {
	cfg, err := config.FromEnv()
	if err != nil {
		return nil, err
	}
	if dbPath != "" {
		cfg.DBPath = dbPath
	}
	logger := logging.New(os.Stderr, cfg.LogLevel, cfg.LogFormat).With("env", cfg.Env)

	mgr := db.NewManager(db.Config{
		Path:          cfg.DBPath,
		BusyTimeoutMS: cfg.BusyTimeoutMS,
		Retry:         db.RetryPolicy{MaxAttempts: cfg.RetryMaxAttempts, BaseDelay: cfg.RetryBaseDelay},
		AdminName:     cfg.AdminName,
		AdminPassword: cfg.AdminPassword,
	})
	if err := mgr.Initialize(ctx, cfg.DBPath); err != nil {
		return nil, err
	}
	logger.Debug("store initialized", "path", mgr.Path())

	st := sqlitestore.New(mgr)
	return &runtime{
		cfg:    cfg,
		logger: logger,
		mgr:    mgr,
		engine: service.NewEngine(st, logger),
		store:  st,
	}, nil
}

// withRuntime adapts a runtime-taking function to cobra's RunE.
func withRuntime(fn func(cmd *cobra.Command, args []string, rt *runtime) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		rt, err := openRuntime(cmd.Context())
		if err != nil {
			return err
		}
		defer rt.Close()
		return fn(cmd, args, rt)
	}
}

// report prints a mutation result and turns a failure into an error so the
// process exits non-zero.
func report(cmd *cobra.Command, res types.Result) error {
	if !res.OK {
		return fmt.Errorf("%s", res.Message)
	}
	fmt.Fprintln(cmd.OutOrStdout(), res.Message)
	return nil
}
