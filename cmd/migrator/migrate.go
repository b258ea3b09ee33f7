package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/rovshanmuradov/pump-migrator/internal/bot"
	"github.com/rovshanmuradov/pump-migrator/internal/migration"
	"github.com/rovshanmuradov/pump-migrator/internal/task"
	"github.com/rovshanmuradov/pump-migrator/internal/types"
)

const (
	migrateUse              = "migrate <token-mint>"
	migrateShortDescription = "Run one migration for a token"
	migrateLongDescription  = "migrate sells amount SOL worth of the token on the bonding curve and buys it back in the PumpSwap pool."

	walletFlagName        = "wallet"
	walletFlagUsage       = "Wallet name from the wallets file; may be omitted when only one wallet is configured"
	amountFlagName        = "amount"
	amountFlagUsage       = "SOL received on the curve and spent in the pool"
	slippageFlagName      = "slippage"
	slippageFlagUsage     = "Slippage tolerance in percent (0-100)"
	maxFeeFlagName        = "max-fee"
	maxFeeFlagUsage       = "Largest acceptable implied pool fee in token units"
	priorityFeeFlagName   = "priority-fee"
	priorityFeeFlagUsage  = "Compute unit price in micro-lamports"
	computeUnitsFlagName  = "compute-units"
	computeUnitsFlagUsage = "Compute unit limit; 0 uses the default"
	bundleFlagName        = "bundle"
	bundleFlagUsage       = "Always submit through the Jito relay"
	tipFlagName           = "tip"
	tipFlagUsage          = "Relay tip in SOL; 0 uses the configured default"
	simulateFlagName      = "simulate"
	simulateFlagUsage     = "Simulate the plan instead of submitting it"
)

// MigrateCommandBuilder assembles the migrate command.
type MigrateCommandBuilder struct {
	RunnerProvider func() (migrationRunner, error)
}

// Build constructs the migrate command.
func (builder *MigrateCommandBuilder) Build() (*cobra.Command, error) {
	if builder.RunnerProvider == nil {
		return nil, fmt.Errorf("%s: %w", migrateUse, errNoRunnerProvider)
	}

	command := &cobra.Command{
		Use:   migrateUse,
		Short: migrateShortDescription,
		Long:  migrateLongDescription,
		Args:  cobra.ExactArgs(1),
		RunE:  builder.run,
	}

	flags := command.Flags()
	flags.String(walletFlagName, "", walletFlagUsage)
	flags.Float64(amountFlagName, 0, amountFlagUsage)
	flags.Float64(slippageFlagName, 1.0, slippageFlagUsage)
	flags.Uint64(maxFeeFlagName, 0, maxFeeFlagUsage)
	flags.Uint64(priorityFeeFlagName, 0, priorityFeeFlagUsage)
	flags.Uint32(computeUnitsFlagName, 0, computeUnitsFlagUsage)
	flags.Bool(bundleFlagName, false, bundleFlagUsage)
	flags.Float64(tipFlagName, 0, tipFlagUsage)
	flags.Bool(simulateFlagName, false, simulateFlagUsage)

	for _, name := range []string{amountFlagName, maxFeeFlagName} {
		if err := command.MarkFlagRequired(name); err != nil {
			return nil, err
		}
	}
	return command, nil
}

// requestFromFlags переводит SOL в lamports и проценты в bps.
func requestFromFlags(command *cobra.Command, tokenMint string) (migration.Request, error) {
	flags := command.Flags()
	amount, _ := flags.GetFloat64(amountFlagName)
	slippage, _ := flags.GetFloat64(slippageFlagName)
	maxFee, _ := flags.GetUint64(maxFeeFlagName)
	priorityFee, _ := flags.GetUint64(priorityFeeFlagName)
	computeUnits, _ := flags.GetUint32(computeUnitsFlagName)
	useBundle, _ := flags.GetBool(bundleFlagName)
	tip, _ := flags.GetFloat64(tipFlagName)
	simulate, _ := flags.GetBool(simulateFlagName)

	if amount <= 0 {
		return migration.Request{}, fmt.Errorf("%w: --%s must be positive", types.ErrInvalidAmount, amountFlagName)
	}
	if tip < 0 {
		return migration.Request{}, fmt.Errorf("%w: --%s cannot be negative", types.ErrInvalidAmount, tipFlagName)
	}
	bps, err := types.SlippageBpsFromPercent(slippage)
	if err != nil {
		return migration.Request{}, err
	}

	return migration.Request{
		TokenID:      tokenMint,
		BuyAmount:    task.SolToLamports(amount),
		SlippageBps:  bps,
		MaxFeeBudget: maxFee,
		Options: migration.Options{
			UseBundle:        useBundle,
			ComputeUnitPrice: priorityFee,
			ComputeUnitLimit: computeUnits,
			TipAmount:        task.SolToLamports(tip),
			SimulateOnly:     simulate,
		},
	}, nil
}

func (builder *MigrateCommandBuilder) run(command *cobra.Command, arguments []string) error {
	req, err := requestFromFlags(command, arguments[0])
	if err != nil {
		return err
	}
	walletName, _ := command.Flags().GetString(walletFlagName)

	runner, err := builder.RunnerProvider()
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(commandContext(command), os.Interrupt, syscall.SIGTERM)
	defer stop()

	res, err := runner.Migrate(ctx, walletName, req)
	if err != nil {
		return err
	}
	fmt.Fprintln(command.OutOrStdout(), bot.RenderResult(res))
	return nil
}

func commandContext(command *cobra.Command) context.Context {
	if ctx := command.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}
