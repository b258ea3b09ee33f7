// internal/bot/report.go
package bot

import (
	"errors"
	"fmt"

	"github.com/charmbracelet/lipgloss"

	"github.com/rovshanmuradov/pump-migrator/internal/dispatch"
	"github.com/rovshanmuradov/pump-migrator/internal/export"
	"github.com/rovshanmuradov/pump-migrator/internal/migration"
	"github.com/rovshanmuradov/pump-migrator/internal/task"
	"github.com/rovshanmuradov/pump-migrator/internal/types"
	"github.com/rovshanmuradov/pump-migrator/internal/ui/style"
)

var reportStyles = style.NewReportStyles(style.DefaultPalette())

func row(label, value string) string {
	return lipgloss.JoinHorizontal(lipgloss.Top,
		reportStyles.Label.Render(label),
		reportStyles.Value.Render(value))
}

// RenderResult форматирует успешную миграцию или её симуляцию.
func RenderResult(res *migration.Result) string {
	status := reportStyles.Confirmed.Render("CONFIRMED")
	if res.Simulated {
		status = reportStyles.Simulated.Render("SIMULATED")
	}

	rows := []string{
		reportStyles.Title.Render("Migration") + "  " + status,
		"",
		row("Attempt", res.AttemptID),
		row("Destination pool", res.DestinationPool.String()),
		row("Sold on curve", fmt.Sprintf("%d -> %d (min %d)", res.Exit.TradeAmount, res.Exit.ExpectedOut, res.Exit.WorstAcceptableOut)),
		row("Bought in pool", fmt.Sprintf("%d -> %d (min %d)", res.Entry.TradeAmount, res.Entry.ExpectedOut, res.Entry.WorstAcceptableOut)),
		row("Executed price", fmt.Sprintf("%.9f", res.ExecutedPrice)),
		row("Implied fee", fmt.Sprintf("%d", res.FeePaid)),
	}
	if res.Simulated {
		rows = append(rows, row("Compute units", fmt.Sprintf("%d", res.UnitsConsumed)))
	} else {
		rows = append(rows,
			row(idLabel(res.Kind), res.SignatureOrBundleID),
			row("Slot", fmt.Sprintf("%d", res.Slot)))
	}

	return reportStyles.Container.Render(lipgloss.JoinVertical(lipgloss.Left, rows...))
}

func idLabel(kind string) string {
	if kind == dispatch.KindBundle {
		return "Bundle"
	}
	return "Signature"
}

// RenderError форматирует отказ с подсказкой, можно ли повторять попытку.
func RenderError(err error) string {
	status := reportStyles.Failed.Render("FAILED")
	hint := "Safe to retry: nothing was sent."

	var indeterminate *types.IndeterminateOutcomeError
	var me *migration.Error
	hasState := errors.As(err, &me)
	switch {
	case errors.As(err, &indeterminate):
		status = reportStyles.Indeterminate.Render("INDETERMINATE")
		hint = "Outcome unknown: check " + indeterminate.ID + " on chain before retrying."
	case hasState && me.TouchedChain():
		hint = "Transaction may have reached the network: inspect it before retrying."
	case !hasState:
		hint = "Failed before the migration started."
	}

	rows := []string{
		reportStyles.Title.Render("Migration") + "  " + status,
		"",
	}
	if hasState {
		rows = append(rows,
			row("Attempt", me.AttemptID),
			row("Last state", me.State.String()))
	}
	rows = append(rows,
		row("Error", err.Error()),
		reportStyles.Muted.Render(hint))

	return reportStyles.Container.Render(lipgloss.JoinVertical(lipgloss.Left, rows...))
}

// outcomeLabel: исход задачи в терминах export.Outcome*.
func outcomeLabel(out Outcome) string {
	var indeterminate *types.IndeterminateOutcomeError
	switch {
	case out.Err == nil && out.Result != nil && out.Result.Simulated:
		return export.OutcomeSimulated
	case out.Err == nil && out.Result != nil:
		return export.OutcomeConfirmed
	case errors.As(out.Err, &indeterminate):
		return export.OutcomeIndeterminate
	default:
		return export.OutcomeFailed
	}
}

// Records переводит итоги задач в строки отчёта.
func Records(outcomes []Outcome) []export.Record {
	records := make([]export.Record, 0, len(outcomes))
	for _, out := range outcomes {
		rec := export.Record{
			Timestamp: out.Started,
			TaskName:  out.Task.TaskName,
			Wallet:    out.Task.WalletName,
			TokenMint: out.Task.TokenMint,
			BuyAmount: task.SolToLamports(out.Task.AmountSol),
			Outcome:   outcomeLabel(out),
			ElapsedMS: out.Elapsed.Milliseconds(),
		}
		if res := out.Result; res != nil {
			rec.AttemptID = res.AttemptID
			rec.Kind = res.Kind
			rec.ID = res.SignatureOrBundleID
			if !res.DestinationPool.IsZero() {
				rec.DestinationPool = res.DestinationPool.String()
			}
			rec.ExecutedPrice = res.ExecutedPrice
			rec.FeePaid = res.FeePaid
			rec.UnitsConsumed = res.UnitsConsumed
			rec.Slot = res.Slot
		}
		if out.Err != nil {
			rec.Error = out.Err.Error()
			rec.SafeToRetry = migration.SafeToRetry(out.Err)
			var me *migration.Error
			if errors.As(out.Err, &me) {
				rec.AttemptID = me.AttemptID
				rec.State = me.State.String()
			}
			var indeterminate *types.IndeterminateOutcomeError
			if errors.As(out.Err, &indeterminate) {
				rec.ID = indeterminate.ID
			}
		}
		records = append(records, rec)
	}
	return records
}

// RenderSummary: одна строка на задачу и итоговый счёт.
func RenderSummary(outcomes []Outcome) string {
	var ok, failed int
	lines := []string{reportStyles.Title.Render("Tasks"), ""}
	for _, out := range outcomes {
		var status, detail string
		switch outcomeLabel(out) {
		case export.OutcomeSimulated:
			ok++
			status = reportStyles.Simulated.Render("SIM ")
			detail = fmt.Sprintf("%d CU", out.Result.UnitsConsumed)
		case export.OutcomeConfirmed:
			ok++
			status = reportStyles.Confirmed.Render("OK  ")
			detail = out.Result.SignatureOrBundleID
		case export.OutcomeIndeterminate:
			failed++
			status = reportStyles.Indeterminate.Render("??  ")
			detail = out.Err.Error()
		default:
			failed++
			status = reportStyles.Failed.Render("FAIL")
			if out.Err != nil {
				detail = out.Err.Error()
			}
		}
		lines = append(lines, fmt.Sprintf("%s %s %s", status, reportStyles.Value.Render(out.Task.TaskName), reportStyles.Muted.Render(detail)))
	}
	lines = append(lines, "", fmt.Sprintf("%s %d   %s %d",
		reportStyles.Confirmed.Render("succeeded"), ok,
		reportStyles.Failed.Render("failed"), failed))

	return reportStyles.Container.Render(lipgloss.JoinVertical(lipgloss.Left, lines...))
}
