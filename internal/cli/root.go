package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/buildtall-systems/orderlife/internal/config"
	"github.com/buildtall-systems/orderlife/internal/db"
	"github.com/buildtall-systems/orderlife/internal/logger"
	"github.com/buildtall-systems/orderlife/internal/metrics"
	"github.com/buildtall-systems/orderlife/internal/orders"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

// app carries the state shared by one command tree.
type app struct {
	v       *viper.Viper
	cfgFile string
}

// Execute runs the orderlife command line.
func Execute() error {
	return newRootCmd().Execute()
}

func newRootCmd() *cobra.Command {
	a := &app{v: viper.New()}

	root := &cobra.Command{
		Use:           "orderlife",
		Short:         "Order lifecycle engine",
		Long:          `orderlife validates and applies order status transitions, keeps order documents in SQLite and mirrors status changes to the placing business.`,
		SilenceUsage:  true,
		SilenceErrors: false,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.initConfig()
		},
	}

	flags := root.PersistentFlags()
	flags.StringVar(&a.cfgFile, "config", "", "config file (default ./orderlife.yaml)")
	flags.BoolP("verbose", "v", false, "enable debug logging")
	flags.String("log-level", "", "log level (debug, info, warn, error)")
	flags.String("db", "", "path to the SQLite database")
	_ = a.v.BindPFlag("verbose", flags.Lookup("verbose"))
	_ = a.v.BindPFlag("log_level", flags.Lookup("log-level"))
	_ = a.v.BindPFlag("database.path", flags.Lookup("db"))

	root.AddCommand(
		a.serveCmd(),
		a.migrateCmd(),
		a.placeCmd(),
		a.transitionCmd(),
		a.shipCmd(),
		a.linesCmd(),
		a.showCmd(),
		a.listCmd(),
		nextCmd(),
		paymentCmd(),
		versionCmd(),
	)
	return root
}

func (a *app) initConfig() error {
	if a.cfgFile != "" {
		a.v.SetConfigFile(a.cfgFile)
	} else {
		a.v.SetConfigName("orderlife")
		a.v.SetConfigType("yaml")
		a.v.AddConfigPath(".")
		a.v.AddConfigPath("$HOME/.config/orderlife")
	}

	a.v.SetEnvPrefix("ORDERLIFE")
	a.v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	a.v.AutomaticEnv()

	if err := a.v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if a.cfgFile != "" || !errors.As(err, &notFound) {
			return fmt.Errorf("reading config: %w", err)
		}
	}
	return nil
}

// session is everything a command needs to talk to the store.
type session struct {
	cfg      *config.Config
	logger   *zap.Logger
	db       *db.DB
	registry *prometheus.Registry
	exec     *orders.Executor
}

func (a *app) open() (*session, error) {
	cfg, err := config.LoadFrom(a.v)
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}

	log, err := logger.New(cfg.LogLevel)
	if err != nil {
		return nil, fmt.Errorf("creating logger: %w", err)
	}

	database, err := db.Open(cfg.Database.Path)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	if err := database.Migrate(); err != nil {
		_ = database.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}

	reg := prometheus.NewRegistry()
	layout := orders.Layout{Orders: cfg.Collections.Orders, Mirror: cfg.Collections.Mirror}
	exec := orders.NewExecutor(database, layout,
		orders.WithLogger(log),
		orders.WithMetrics(metrics.New(reg)))

	return &session{cfg: cfg, logger: log, db: database, registry: reg, exec: exec}, nil
}

// Close drains mirror writes before closing the database.
func (rt *session) Close() {
	rt.exec.Wait()
	_ = rt.logger.Sync()
	_ = rt.db.Close()
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
