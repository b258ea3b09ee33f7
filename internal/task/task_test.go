package task

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

const tasksYAML = `
tasks:
  - task_name: migrate-a
    wallet: main
    token_mint: 4k3Dyjzvzp8eMZWUXbBCjEvwSkkk59S5iCNLY3QrkX6R
    amount_sol: 0.5
    slippage_percent: 2.5
    max_fee_budget: 1000000
    priority_fee: 5000
    compute_units: 300000
    use_bundle: true
    tip_sol: 0.00002
  - task_name: no-wallet
    token_mint: 4k3Dyjzvzp8eMZWUXbBCjEvwSkkk59S5iCNLY3QrkX6R
    amount_sol: 1
  - task_name: zero-amount
    wallet: main
    token_mint: 4k3Dyjzvzp8eMZWUXbBCjEvwSkkk59S5iCNLY3QrkX6R
  - task_name: bad-slippage
    wallet: main
    token_mint: 4k3Dyjzvzp8eMZWUXbBCjEvwSkkk59S5iCNLY3QrkX6R
    amount_sol: 0.1
    slippage_percent: 250
    simulate_only: true
`

func TestLoadTasksYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tasks.yaml")
	require.NoError(t, os.WriteFile(path, []byte(tasksYAML), 0o600))

	tasks, err := NewManager(zaptest.NewLogger(t)).LoadTasksYAML(path)
	require.NoError(t, err)
	require.Len(t, tasks, 2)

	assert.Equal(t, "migrate-a", tasks[0].TaskName)
	assert.True(t, tasks[0].UseBundle)
	assert.Equal(t, 2.5, tasks[0].SlippagePercent)

	// вне диапазона -> 1%
	assert.Equal(t, "bad-slippage", tasks[1].TaskName)
	assert.Equal(t, 1.0, tasks[1].SlippagePercent)
	assert.True(t, tasks[1].SimulateOnly)
}

func TestLoadTasksYAML_Errors(t *testing.T) {
	dir := t.TempDir()
	m := NewManager(zaptest.NewLogger(t))

	_, err := m.LoadTasksYAML(filepath.Join(dir, "absent.yaml"))
	assert.ErrorContains(t, err, "failed to read file")

	empty := filepath.Join(dir, "empty.yaml")
	require.NoError(t, os.WriteFile(empty, []byte("tasks: []\n"), 0o600))
	_, err = m.LoadTasksYAML(empty)
	assert.ErrorContains(t, err, "no tasks found")

	invalid := filepath.Join(dir, "invalid.yaml")
	require.NoError(t, os.WriteFile(invalid, []byte("tasks:\n  - task_name: x\n"), 0o600))
	_, err = m.LoadTasksYAML(invalid)
	assert.ErrorContains(t, err, "no valid tasks")
}

func TestToRequest(t *testing.T) {
	task := &Task{
		TaskName:         "t",
		WalletName:       "main",
		TokenMint:        "4k3Dyjzvzp8eMZWUXbBCjEvwSkkk59S5iCNLY3QrkX6R",
		AmountSol:        0.25,
		SlippagePercent:  1.5,
		MaxFeeBudget:     42,
		PriorityFeeMicro: 7000,
		ComputeUnits:     250_000,
		UseBundle:        true,
		TipSol:           0.00001,
	}

	req, err := task.ToRequest()
	require.NoError(t, err)

	assert.Equal(t, uint64(250_000_000), req.BuyAmount)
	assert.Equal(t, uint16(150), req.SlippageBps)
	assert.Equal(t, uint64(42), req.MaxFeeBudget)
	assert.Equal(t, uint64(7000), req.Options.ComputeUnitPrice)
	assert.Equal(t, uint32(250_000), req.Options.ComputeUnitLimit)
	assert.Equal(t, uint64(10_000), req.Options.TipAmount)
	assert.True(t, req.Options.UseBundle)

	task.AmountSol = 0
	_, err = task.ToRequest()
	assert.Error(t, err)
}
