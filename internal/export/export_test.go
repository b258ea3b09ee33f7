package export

import (
	"encoding/csv"
	"encoding/json"
	"os"
	"strings"
	"testing"
	"time"

	"go.uber.org/zap"
)

const (
	mintA = "4k3Dyjzvzp8eMZWUXbBCjEvwSkkk59S5iCNLY3QrkX6R"
	mintB = "7GCihgDB8fe6KNjn2MYtkzZcRjQy3t9GHdC8uHYmW2hr"
)

func newTestExporter() *ReportExporter {
	re := NewReportExporter(zap.NewNop())
	re.now = func() time.Time { return time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC) }
	return re
}

func generateTestRecords() []Record {
	base := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)
	return []Record{
		{Timestamp: base.Add(2 * time.Minute), TaskName: "b", TokenMint: mintB, BuyAmount: 200, Outcome: OutcomeFailed, State: "Checked", SafeToRetry: true, Error: "pool not found"},
		{Timestamp: base, TaskName: "a", TokenMint: mintA, BuyAmount: 100, Outcome: OutcomeConfirmed, ID: "sig-a", FeePaid: 3, Kind: "single"},
		{Timestamp: base.Add(time.Minute), TaskName: "c", TokenMint: mintA, BuyAmount: 300, Outcome: OutcomeSimulated, UnitsConsumed: 90_000},
		{Timestamp: base.Add(3 * time.Minute), TaskName: "d", TokenMint: mintA, BuyAmount: 400, Outcome: OutcomeIndeterminate, ID: "bundle-d", Kind: "bundle"},
	}
}

func TestReportExportCSV(t *testing.T) {
	exporter := newTestExporter()

	outputPath, err := exporter.Export(generateTestRecords(), ExportOptions{Format: FormatCSV, OutputDir: t.TempDir()})
	if err != nil {
		t.Fatalf("Failed to export records: %v", err)
	}
	if !strings.HasSuffix(outputPath, "migrations_all_20250301_120000.csv") {
		t.Errorf("unexpected file name %s", outputPath)
	}

	file, err := os.Open(outputPath)
	if err != nil {
		t.Fatalf("Failed to open export: %v", err)
	}
	defer file.Close()

	rows, err := csv.NewReader(file).ReadAll()
	if err != nil {
		t.Fatalf("Failed to parse CSV: %v", err)
	}
	if len(rows) != 5 {
		t.Fatalf("expected header + 4 rows, got %d", len(rows))
	}
	if len(rows[0]) != len(CSVHeaders()) {
		t.Errorf("header has %d columns, want %d", len(rows[0]), len(CSVHeaders()))
	}
	// отсортировано по времени
	if rows[1][1] != "a" || rows[4][1] != "d" {
		t.Errorf("rows not sorted by timestamp: first %s, last %s", rows[1][1], rows[4][1])
	}
}

func TestReportExportJSON(t *testing.T) {
	exporter := newTestExporter()

	outputPath, err := exporter.Export(generateTestRecords(), ExportOptions{Format: FormatJSON, OutputDir: t.TempDir()})
	if err != nil {
		t.Fatalf("Failed to export records: %v", err)
	}

	content, err := os.ReadFile(outputPath)
	if err != nil {
		t.Fatalf("Failed to read export file: %v", err)
	}

	var data struct {
		RecordCount int      `json:"record_count"`
		Summary     Summary  `json:"summary"`
		Records     []Record `json:"records"`
	}
	if err := json.Unmarshal(content, &data); err != nil {
		t.Fatalf("Failed to decode JSON: %v", err)
	}
	if data.RecordCount != 4 || len(data.Records) != 4 {
		t.Errorf("expected 4 records, got %d/%d", data.RecordCount, len(data.Records))
	}
	if data.Summary.Confirmed != 1 || data.Summary.TotalBuyAmount != 100 {
		t.Errorf("unexpected summary %+v", data.Summary)
	}
}

func TestExportFilters(t *testing.T) {
	exporter := newTestExporter()
	dir := t.TempDir()

	outputPath, err := exporter.Export(generateTestRecords(), ExportOptions{
		Format:     FormatJSON,
		OnlyFailed: true,
		OutputDir:  dir,
	})
	if err != nil {
		t.Fatalf("Failed to export records: %v", err)
	}
	if !strings.Contains(outputPath, "migrations_failed") {
		t.Errorf("unexpected file name %s", outputPath)
	}

	filtered := exporter.filterRecords(generateTestRecords(), ExportOptions{TokenFilter: mintB})
	if len(filtered) != 1 || filtered[0].TaskName != "b" {
		t.Errorf("token filter returned %+v", filtered)
	}

	_, err = exporter.Export(generateTestRecords(), ExportOptions{Format: FormatCSV, TokenFilter: "missing", OutputDir: dir})
	if err == nil {
		t.Error("expected error when nothing matches")
	}
}

func TestSummarize(t *testing.T) {
	summary := Summarize(generateTestRecords())

	want := Summary{
		Total:          4,
		Confirmed:      1,
		Simulated:      1,
		Failed:         1,
		Indeterminate:  1,
		UniqueTokens:   2,
		TotalBuyAmount: 100,
		TotalFeePaid:   3,
	}
	if summary != want {
		t.Errorf("Summarize() = %+v, want %+v", summary, want)
	}
}

func TestParseFormat(t *testing.T) {
	tests := []struct {
		in      string
		want    ExportFormat
		wantErr bool
	}{
		{"csv", FormatCSV, false},
		{"json", FormatJSON, false},
		{"xml", "", true},
	}

	for _, tt := range tests {
		got, err := ParseFormat(tt.in)
		if (err != nil) != tt.wantErr || got != tt.want {
			t.Errorf("ParseFormat(%q) = %q, %v", tt.in, got, err)
		}
	}
}
