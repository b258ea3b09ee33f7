package main

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/rovshanmuradov/pump-migrator/internal/bot"
	"github.com/rovshanmuradov/pump-migrator/internal/config"
	"github.com/rovshanmuradov/pump-migrator/internal/export"
)

const (
	runUse              = "run"
	runShortDescription = "Run every migration task from the tasks file"
	runLongDescription  = "run executes the tasks file with a pool of workers and prints a summary; SIGINT stops tasks that have not started."
	tasksFlagName       = "tasks"
	tasksFlagUsage      = "Path to the tasks YAML file; overrides tasks_file from the configuration"
	workersFlagName     = "workers"
	workersFlagUsage    = "Number of concurrent workers; overrides concurrency from the configuration"
	reportDirFlagName   = "report-dir"
	reportDirFlagUsage  = "Directory for a report of every task; empty disables the report"
	reportFmtFlagName   = "report-format"
	reportFmtFlagUsage  = "Report format: csv or json"
	metricsFlagName     = "metrics-addr"
	metricsFlagUsage    = "Serve Prometheus metrics on this address while the run lasts, e.g. :9090; empty disables"

	metricsShutdownTimeout = 5 * time.Second
)

var errNoRunnerProvider = errors.New("command requires a runner provider")

// RunCommandBuilder assembles the run command.
type RunCommandBuilder struct {
	LoggerProvider func() *zap.Logger
	ConfigProvider func() *config.Config
	RunnerProvider func() (migrationRunner, error)
}

// Build constructs the run command.
func (builder *RunCommandBuilder) Build() (*cobra.Command, error) {
	if builder.RunnerProvider == nil || builder.ConfigProvider == nil || builder.LoggerProvider == nil {
		return nil, fmt.Errorf("%s: %w", runUse, errNoRunnerProvider)
	}

	command := &cobra.Command{
		Use:   runUse,
		Short: runShortDescription,
		Long:  runLongDescription,
		Args:  cobra.NoArgs,
		RunE:  builder.run,
	}

	command.Flags().String(tasksFlagName, "", tasksFlagUsage)
	command.Flags().Int(workersFlagName, 0, workersFlagUsage)
	command.Flags().String(reportDirFlagName, "", reportDirFlagUsage)
	command.Flags().String(reportFmtFlagName, string(export.FormatCSV), reportFmtFlagUsage)
	command.Flags().String(metricsFlagName, "", metricsFlagUsage)

	return command, nil
}

func (builder *RunCommandBuilder) run(command *cobra.Command, _ []string) error {
	cfg := builder.ConfigProvider()
	if tasksFile, _ := command.Flags().GetString(tasksFlagName); tasksFile != "" {
		cfg.TasksFile = tasksFile
	}
	if workers, _ := command.Flags().GetInt(workersFlagName); workers > 0 {
		cfg.Concurrency = workers
	}

	reportDir, _ := command.Flags().GetString(reportDirFlagName)
	reportFmt, _ := command.Flags().GetString(reportFmtFlagName)
	format, err := export.ParseFormat(reportFmt)
	if err != nil {
		return err
	}

	runner, err := builder.RunnerProvider()
	if err != nil {
		return err
	}

	if addr, _ := command.Flags().GetString(metricsFlagName); addr != "" {
		server, err := runner.Metrics().Listen(addr, builder.LoggerProvider())
		if err != nil {
			return err
		}
		defer func() {
			ctx, cancel := context.WithTimeout(context.Background(), metricsShutdownTimeout)
			defer cancel()
			_ = server.Shutdown(ctx)
		}()
	}

	outcomes, err := runner.Run(commandContext(command))
	if err != nil {
		return err
	}
	fmt.Fprintln(command.OutOrStdout(), bot.RenderSummary(outcomes))

	if reportDir != "" {
		exporter := export.NewReportExporter(builder.LoggerProvider())
		path, err := exporter.Export(bot.Records(outcomes), export.ExportOptions{Format: format, OutputDir: reportDir})
		if err != nil {
			return fmt.Errorf("failed to write report: %w", err)
		}
		fmt.Fprintln(command.OutOrStdout(), "Report: "+path)
	}

	for _, out := range outcomes {
		if out.Err != nil {
			return errTasksFailed
		}
	}
	return nil
}
