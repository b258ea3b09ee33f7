// ====================================
// File: cmd/migrator/main.go
// ====================================
package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/rovshanmuradov/pump-migrator/internal/bot"
	"github.com/rovshanmuradov/pump-migrator/internal/config"
	"github.com/rovshanmuradov/pump-migrator/internal/migration"
	"github.com/rovshanmuradov/pump-migrator/internal/utils/logger"
	"github.com/rovshanmuradov/pump-migrator/internal/utils/metrics"
)

const (
	applicationName             = "migrator"
	applicationShortDescription = "Move a position from the pump.fun bonding curve into its PumpSwap pool"
	applicationLongDescription  = "migrator sells on the bonding curve and buys in the PumpSwap pool as one atomic transaction or Jito bundle."
	configFlagName              = "config"
	configFlagUsage             = "Path to the YAML configuration file"
	defaultConfigPath           = "configs/config.yaml"
	debugFlagName               = "debug"
	debugFlagUsage              = "Enable debug logging"
	quietFlagName               = "quiet"
	quietFlagUsage              = "Print only errors to the console; the log file is unaffected"
)

// errTasksFailed: не все задачи завершились успешно; отчёт уже напечатан.
var errTasksFailed = errors.New("some tasks failed")

// migrationRunner: то, что командам нужно от bot.Runner.
type migrationRunner interface {
	Migrate(ctx context.Context, walletName string, req migration.Request) (*migration.Result, error)
	Run(ctx context.Context) ([]bot.Outcome, error)
	Metrics() *metrics.Collector
}

type application struct {
	configPath string
	debug      bool
	quiet      bool

	config *config.Config
	logger *logger.Logger
	runner *bot.Runner
}

func newRootCommand(app *application) (*cobra.Command, error) {
	root := &cobra.Command{
		Use:               applicationName,
		Short:             applicationShortDescription,
		Long:              applicationLongDescription,
		SilenceUsage:      true,
		SilenceErrors:     true,
		PersistentPreRunE: app.initialize,
	}
	root.PersistentFlags().StringVar(&app.configPath, configFlagName, defaultConfigPath, configFlagUsage)
	root.PersistentFlags().BoolVar(&app.debug, debugFlagName, false, debugFlagUsage)
	root.PersistentFlags().BoolVar(&app.quiet, quietFlagName, false, quietFlagUsage)

	migrateBuilder := MigrateCommandBuilder{RunnerProvider: app.provideRunner}
	migrateCommand, err := migrateBuilder.Build()
	if err != nil {
		return nil, fmt.Errorf("failed to build migrate command: %w", err)
	}
	root.AddCommand(migrateCommand)

	runBuilder := RunCommandBuilder{
		LoggerProvider: func() *zap.Logger { return app.logger.Logger },
		ConfigProvider: func() *config.Config { return app.config },
		RunnerProvider: app.provideRunner,
	}
	runCommand, err := runBuilder.Build()
	if err != nil {
		return nil, fmt.Errorf("failed to build run command: %w", err)
	}
	root.AddCommand(runCommand)

	return root, nil
}

func (app *application) initialize(*cobra.Command, []string) error {
	cfg, err := config.LoadConfig(app.configPath)
	if err != nil {
		return fmt.Errorf("unable to load configuration: %w", err)
	}

	logCfg := logger.DefaultConfig()
	logCfg.LogFile = cfg.LogFile
	logCfg.Development = cfg.DebugLogging || app.debug
	logCfg.Quiet = app.quiet

	log, err := logger.New(logCfg)
	if err != nil {
		return fmt.Errorf("unable to create logger: %w", err)
	}

	app.config = cfg
	app.logger = log
	log.Debug("Configuration loaded",
		zap.String("config_file", app.configPath),
		zap.Strings("rpc_list", cfg.RPCList),
		zap.Int("concurrency", cfg.Concurrency))
	return nil
}

// provideRunner создаёт Runner при первом обращении; флаги команды к этому
// моменту уже применены к конфигурации.
func (app *application) provideRunner() (migrationRunner, error) {
	if app.runner != nil {
		return app.runner, nil
	}
	runner, err := bot.NewRunner(app.config, app.logger.Logger)
	if err != nil {
		return nil, err
	}
	app.runner = runner
	return runner, nil
}

func (app *application) close() {
	if app.logger != nil {
		_ = app.logger.Sync()
	}
}

func main() {
	app := &application{}
	root, err := newRootCommand(app)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	err = root.ExecuteContext(context.Background())
	if err != nil && app.logger != nil {
		app.logger.LogError("Command failed", err, zap.Bool("safe_to_retry", migration.SafeToRetry(err)))
	}
	app.close()
	if err == nil {
		return
	}
	if !errors.Is(err, errTasksFailed) {
		fmt.Fprintln(os.Stderr, bot.RenderError(err))
	}
	os.Exit(1)
}
