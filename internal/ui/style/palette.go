package style

import "github.com/charmbracelet/lipgloss"

var (
	Cyan   = lipgloss.Color("#00E5FF") // Primary highlight
	Yellow = lipgloss.Color("#FFB500") // Warnings
	Green  = lipgloss.Color("#2AFFAA") // Confirmed
	Red    = lipgloss.Color("#FF5555") // Failed
	Blue   = lipgloss.Color("#3B82F6") // Simulated / info

	Base01 = lipgloss.Color("#6C7280") // Muted text
	Base2  = lipgloss.Color("#ECEFF4") // Primary text
	Base1  = lipgloss.Color("#B4BCC8") // Secondary text
)

// Palette provides a centralized color management
type Palette struct {
	Primary lipgloss.Color
	Success lipgloss.Color
	Error   lipgloss.Color
	Warning lipgloss.Color
	Info    lipgloss.Color

	Text          lipgloss.Color
	TextMuted     lipgloss.Color
	TextSecondary lipgloss.Color
}

// DefaultPalette returns the default color palette
func DefaultPalette() Palette {
	return Palette{
		Primary: Cyan,
		Success: Green,
		Error:   Red,
		Warning: Yellow,
		Info:    Blue,

		Text:          Base2,
		TextMuted:     Base01,
		TextSecondary: Base1,
	}
}

// ReportStyles: стили отчёта о миграциях в терминале.
type ReportStyles struct {
	Container lipgloss.Style
	Title     lipgloss.Style
	Label     lipgloss.Style
	Value     lipgloss.Style
	Muted     lipgloss.Style

	Confirmed     lipgloss.Style
	Simulated     lipgloss.Style
	Failed        lipgloss.Style
	Indeterminate lipgloss.Style
}

// NewReportStyles creates report styles with the given palette
func NewReportStyles(palette Palette) ReportStyles {
	return ReportStyles{
		Container: lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(palette.Primary).
			Padding(0, 2),

		Title: lipgloss.NewStyle().
			Foreground(palette.Primary).
			Bold(true),

		Label: lipgloss.NewStyle().
			Foreground(palette.TextSecondary).
			Width(18),

		Value: lipgloss.NewStyle().
			Foreground(palette.Text),

		Muted: lipgloss.NewStyle().
			Foreground(palette.TextMuted),

		Confirmed: lipgloss.NewStyle().
			Foreground(palette.Success).
			Bold(true),

		Simulated: lipgloss.NewStyle().
			Foreground(palette.Info).
			Bold(true),

		Failed: lipgloss.NewStyle().
			Foreground(palette.Error).
			Bold(true),

		Indeterminate: lipgloss.NewStyle().
			Foreground(palette.Warning).
			Bold(true),
	}
}
