package task

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
)

// Manager loads and parses Task definitions.
type Manager struct {
	logger *zap.Logger
}

// TaskConfig represents the structure of tasks YAML file
type TaskConfig struct {
	Tasks []struct {
		TaskName        string  `yaml:"task_name"`
		Wallet          string  `yaml:"wallet"`
		TokenMint       string  `yaml:"token_mint"`
		AmountSol       float64 `yaml:"amount_sol"`
		SlippagePercent float64 `yaml:"slippage_percent"`
		MaxFeeBudget    uint64  `yaml:"max_fee_budget"`
		PriorityFee     uint64  `yaml:"priority_fee"`
		ComputeUnits    uint32  `yaml:"compute_units"`
		UseBundle       bool    `yaml:"use_bundle"`
		TipSol          float64 `yaml:"tip_sol"`
		SimulateOnly    bool    `yaml:"simulate_only"`
	} `yaml:"tasks"`
}

// NewManager constructs a Manager with the given logger.
func NewManager(logger *zap.Logger) *Manager {
	return &Manager{logger: logger.Named("tasks")}
}

func clamp(val, min, max, def float64) float64 {
	if val < min || val > max {
		return def
	}
	return val
}

// LoadTasksYAML reads tasks from YAML file. Невалидные задачи пропускаются с предупреждением.
func (m *Manager) LoadTasksYAML(path string) ([]*Task, error) {
	if filepath.IsAbs(path) {
		m.logger.Debug("Using absolute path for tasks file", zap.String("path", path))
	}

	data, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return nil, fmt.Errorf("failed to read file: %w", err)
	}

	var config TaskConfig
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if len(config.Tasks) == 0 {
		return nil, fmt.Errorf("no tasks found in configuration")
	}

	tasks := make([]*Task, 0, len(config.Tasks))
	for i, taskData := range config.Tasks {
		task := &Task{
			ID:               i,
			TaskName:         taskData.TaskName,
			WalletName:       taskData.Wallet,
			TokenMint:        taskData.TokenMint,
			AmountSol:        taskData.AmountSol,
			SlippagePercent:  clamp(taskData.SlippagePercent, 0, 100, 1.0),
			MaxFeeBudget:     taskData.MaxFeeBudget,
			PriorityFeeMicro: taskData.PriorityFee,
			ComputeUnits:     taskData.ComputeUnits,
			UseBundle:        taskData.UseBundle,
			TipSol:           taskData.TipSol,
			SimulateOnly:     taskData.SimulateOnly,
			CreatedAt:        time.Now(),
		}

		if err := task.Validate(); err != nil {
			m.logger.Warn("Skipping invalid task",
				zap.String("task_name", task.TaskName),
				zap.String("token_mint", task.TokenMint),
				zap.Error(err))
			continue
		}

		tasks = append(tasks, task)
	}

	if len(tasks) == 0 {
		return nil, fmt.Errorf("no valid tasks loaded")
	}

	m.logger.Info("Loaded tasks", zap.Int("count", len(tasks)))
	return tasks, nil
}
