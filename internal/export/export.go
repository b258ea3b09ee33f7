package export

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"time"

	"go.uber.org/zap"
)

// ExportFormat represents the export file format
type ExportFormat string

const (
	FormatCSV  ExportFormat = "csv"
	FormatJSON ExportFormat = "json"
)

// Исходы попытки; совпадают с меткой outcome в метриках.
const (
	OutcomeConfirmed     = "confirmed"
	OutcomeSimulated     = "simulated"
	OutcomeFailed        = "failed"
	OutcomeIndeterminate = "indeterminate"
)

// ParseFormat проверяет имя формата из флага или конфигурации.
func ParseFormat(s string) (ExportFormat, error) {
	switch f := ExportFormat(s); f {
	case FormatCSV, FormatJSON:
		return f, nil
	}
	return "", fmt.Errorf("unsupported format: %s", s)
}

// Record: одна строка отчёта: итог одной задачи миграции.
type Record struct {
	Timestamp       time.Time `json:"timestamp"`
	TaskName        string    `json:"task_name"`
	Wallet          string    `json:"wallet"`
	TokenMint       string    `json:"token_mint"`
	BuyAmount       uint64    `json:"buy_amount"`
	Outcome         string    `json:"outcome"`
	AttemptID       string    `json:"attempt_id,omitempty"`
	Kind            string    `json:"kind,omitempty"`
	ID              string    `json:"signature_or_bundle_id,omitempty"`
	DestinationPool string    `json:"destination_pool,omitempty"`
	ExecutedPrice   float64   `json:"executed_price,omitempty"`
	FeePaid         uint64    `json:"fee_paid,omitempty"`
	UnitsConsumed   uint64    `json:"units_consumed,omitempty"`
	Slot            uint64    `json:"slot,omitempty"`
	State           string    `json:"state,omitempty"`
	SafeToRetry     bool      `json:"safe_to_retry"`
	Error           string    `json:"error,omitempty"`
	ElapsedMS       int64     `json:"elapsed_ms"`
}

// CSVHeaders returns the column order used by Record.ToCSV
func CSVHeaders() []string {
	return []string{
		"timestamp", "task_name", "wallet", "token_mint", "buy_amount", "outcome",
		"attempt_id", "kind", "signature_or_bundle_id", "destination_pool",
		"executed_price", "fee_paid", "units_consumed", "slot", "state",
		"safe_to_retry", "error", "elapsed_ms",
	}
}

// ToCSV converts the record to a CSV row
func (r Record) ToCSV() []string {
	return []string{
		r.Timestamp.Format(time.RFC3339),
		r.TaskName,
		r.Wallet,
		r.TokenMint,
		strconv.FormatUint(r.BuyAmount, 10),
		r.Outcome,
		r.AttemptID,
		r.Kind,
		r.ID,
		r.DestinationPool,
		strconv.FormatFloat(r.ExecutedPrice, 'f', 9, 64),
		strconv.FormatUint(r.FeePaid, 10),
		strconv.FormatUint(r.UnitsConsumed, 10),
		strconv.FormatUint(r.Slot, 10),
		r.State,
		strconv.FormatBool(r.SafeToRetry),
		r.Error,
		strconv.FormatInt(r.ElapsedMS, 10),
	}
}

// ExportOptions configures the export behavior
type ExportOptions struct {
	Format      ExportFormat
	TokenFilter string // Filter by token mint
	OnlyFailed  bool   // only failed and indeterminate attempts
	OutputDir   string
}

// ReportExporter пишет отчёты о миграциях в CSV или JSON.
type ReportExporter struct {
	logger *zap.Logger
	now    func() time.Time
}

func NewReportExporter(logger *zap.Logger) *ReportExporter {
	return &ReportExporter{
		logger: logger.Named("export"),
		now:    time.Now,
	}
}

// Export writes the records matching options and returns the file path
func (re *ReportExporter) Export(records []Record, options ExportOptions) (string, error) {
	filtered := re.filterRecords(records, options)
	if len(filtered) == 0 {
		return "", fmt.Errorf("no records match the export criteria")
	}

	sort.SliceStable(filtered, func(i, j int) bool {
		return filtered[i].Timestamp.Before(filtered[j].Timestamp)
	})

	outputPath := filepath.Join(options.OutputDir, re.generateFilename(options))
	if err := os.MkdirAll(options.OutputDir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create output directory: %w", err)
	}

	var err error
	switch options.Format {
	case FormatCSV:
		err = re.exportToCSV(filtered, outputPath)
	case FormatJSON:
		err = re.exportToJSON(filtered, outputPath)
	default:
		err = fmt.Errorf("unsupported format: %s", options.Format)
	}
	if err != nil {
		return "", err
	}

	re.logger.Info("Report exported",
		zap.String("file", outputPath),
		zap.Int("count", len(filtered)),
		zap.String("format", string(options.Format)))

	return outputPath, nil
}

func (re *ReportExporter) filterRecords(records []Record, options ExportOptions) []Record {
	var filtered []Record
	for _, r := range records {
		if options.TokenFilter != "" && r.TokenMint != options.TokenFilter {
			continue
		}
		if options.OnlyFailed && r.Outcome != OutcomeFailed && r.Outcome != OutcomeIndeterminate {
			continue
		}
		filtered = append(filtered, r)
	}
	return filtered
}

func (re *ReportExporter) generateFilename(options ExportOptions) string {
	prefix := "migrations_all"
	if options.OnlyFailed {
		prefix = "migrations_failed"
	}
	if len(options.TokenFilter) >= 8 {
		prefix += "_" + options.TokenFilter[:8]
	}
	return fmt.Sprintf("%s_%s.%s", prefix, re.now().Format("20060102_150405"), options.Format)
}

func (re *ReportExporter) exportToCSV(records []Record, outputPath string) error {
	file, err := os.Create(outputPath)
	if err != nil {
		return fmt.Errorf("failed to create CSV file: %w", err)
	}
	defer file.Close()

	writer := csv.NewWriter(file)
	if err := writer.Write(CSVHeaders()); err != nil {
		return fmt.Errorf("failed to write CSV headers: %w", err)
	}
	for _, r := range records {
		if err := writer.Write(r.ToCSV()); err != nil {
			return fmt.Errorf("failed to write record: %w", err)
		}
	}
	writer.Flush()
	return writer.Error()
}

func (re *ReportExporter) exportToJSON(records []Record, outputPath string) error {
	file, err := os.Create(outputPath)
	if err != nil {
		return fmt.Errorf("failed to create JSON file: %w", err)
	}
	defer file.Close()

	encoder := json.NewEncoder(file)
	encoder.SetIndent("", "  ")

	exportData := struct {
		ExportTime  time.Time `json:"export_time"`
		RecordCount int       `json:"record_count"`
		Summary     Summary   `json:"summary"`
		Records     []Record  `json:"records"`
	}{
		ExportTime:  re.now(),
		RecordCount: len(records),
		Summary:     Summarize(records),
		Records:     records,
	}

	if err := encoder.Encode(exportData); err != nil {
		return fmt.Errorf("failed to encode JSON: %w", err)
	}
	return nil
}

// Summary: сводка по набору записей.
type Summary struct {
	Total          int    `json:"total"`
	Confirmed      int    `json:"confirmed"`
	Simulated      int    `json:"simulated"`
	Failed         int    `json:"failed"`
	Indeterminate  int    `json:"indeterminate"`
	UniqueTokens   int    `json:"unique_tokens"`
	TotalBuyAmount uint64 `json:"total_buy_amount"` // только подтверждённые
	TotalFeePaid   uint64 `json:"total_fee_paid"`
}

func Summarize(records []Record) Summary {
	summary := Summary{Total: len(records)}
	tokens := make(map[string]bool)

	for _, r := range records {
		tokens[r.TokenMint] = true
		switch r.Outcome {
		case OutcomeConfirmed:
			summary.Confirmed++
			summary.TotalBuyAmount += r.BuyAmount
			summary.TotalFeePaid += r.FeePaid
		case OutcomeSimulated:
			summary.Simulated++
		case OutcomeIndeterminate:
			summary.Indeterminate++
		default:
			summary.Failed++
		}
	}

	summary.UniqueTokens = len(tokens)
	return summary
}
