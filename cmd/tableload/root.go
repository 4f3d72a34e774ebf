package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/JonMunkholm/tableload/internal/config"
	"github.com/JonMunkholm/tableload/internal/core"
	"github.com/JonMunkholm/tableload/internal/destination"
	"github.com/JonMunkholm/tableload/internal/logging"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

// noCatalog marks commands that never touch the destination database.
const noCatalog = "no-catalog"

// app holds the state shared by every command.
type app struct {
	cfgFile   string
	dsn       string
	driver    string
	logLevel  string
	logFormat string

	cfg     *config.Config
	catalog destination.Catalog
	closeDB func() error
}

func newRootCmd() *cobra.Command {
	a := &app{}
	root := &cobra.Command{
		Use:   "tableload",
		Short: "Infer, compare and load tabular files into database tables",
		Long: `tableload samples a CSV, TSV or Arrow file, infers a column type for every
column and loads the file into a database table, creating the table when
needed. Settings come from environment variables (or a .env file), an
optional config file and the flags below, in increasing priority.`,
		SilenceUsage:       true,
		PersistentPreRunE:  a.setup,
		PersistentPostRunE: func(cmd *cobra.Command, args []string) error { return a.close() },
	}

	f := root.PersistentFlags()
	f.StringVar(&a.cfgFile, "config", "", "config file (YAML, TOML or JSON)")
	f.StringVar(&a.dsn, "dsn", "", "destination connection string (overrides DATABASE_URL)")
	f.StringVar(&a.driver, "driver", "", "destination driver: pgx, postgres, mysql, sqlserver, oracle or memory")
	f.StringVar(&a.logLevel, "log-level", "", "log level: debug, info, warn or error")
	f.StringVar(&a.logFormat, "log-format", "", "log format: text or json")

	root.AddCommand(
		newInferCmd(a),
		newCompareCmd(a),
		newLoadCmd(a),
		newServeCmd(a),
	)
	return root
}

// setup loads configuration, configures logging and connects to the
// destination unless the command does not need it.
func (a *app) setup(cmd *cobra.Command, args []string) error {
	// Load .env file if it exists (Overload overwrites existing env vars)
	if err := godotenv.Overload(); err == nil {
		slog.Debug("loaded .env file (overwriting existing env vars)")
	}

	overrides := map[string]string{
		"DATABASE_URL": a.dsn,
		"DB_DRIVER":    a.driver,
		"LOG_LEVEL":    a.logLevel,
		"LOG_FORMAT":   a.logFormat,
	}
	_, offline := cmd.Annotations[noCatalog]
	if offline && a.dsn == "" && os.Getenv("DATABASE_URL") == "" && os.Getenv("DB_URL") == "" {
		overrides["DB_DRIVER"] = "memory"
	}

	cfg, err := config.LoadWith(a.cfgFile, overrides)
	if err != nil {
		return err
	}
	a.cfg = cfg

	logging.SetupTo(cmd.ErrOrStderr(), cfg.Logging.Level, cfg.Logging.Format)
	slog.Debug("configuration loaded", "config", cfg.String())

	if offline {
		a.catalog = destination.NewMemory()
		return nil
	}
	catalog, closeDB, err := destination.Open(cmd.Context(), cfg.Database.Driver, cfg.Database.DSN, cfg.Database.PoolOptions())
	if err != nil {
		return fmt.Errorf("connect to destination: %w", err)
	}
	a.catalog, a.closeDB = catalog, closeDB
	return nil
}

func (a *app) close() error {
	if a.closeDB == nil {
		return nil
	}
	err := a.closeDB()
	a.closeDB = nil
	return err
}

// service builds a service over the connected catalog. configure, when
// set, adjusts the options derived from the configuration.
func (a *app) service(configure func(*core.Options)) (*core.Service, error) {
	opts, err := a.cfg.ServiceOptions()
	if err != nil {
		return nil, err
	}
	if configure != nil {
		configure(&opts)
	}
	return core.NewService(a.catalog, opts), nil
}

// interruptible returns a context cancelled by SIGINT or SIGTERM.
func interruptible(ctx context.Context) (context.Context, context.CancelFunc) {
	return signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
}
