package runner

import "github.com/charmbracelet/lipgloss"

// palette is the set of colours the check UI draws with.
type palette struct {
	pass, fail, warn, skip, running lipgloss.Color
	dim, muted, border, accent, text lipgloss.Color
}

var defaultPalette = palette{
	pass:    "#10b981",
	fail:    "#ef4444",
	warn:    "#f59e0b",
	skip:    "#eab308",
	running: "#06b6d4",
	dim:     "#6b7280",
	muted:   "#9ca3af",
	border:  "#374151",
	accent:  "#3b82f6",
	text:    "#f8fafc",
}

// Frames of the running spinner, and the cells of the progress bar.
var (
	spinnerFrames = []string{"⠋", "⠙", "⠹", "⠸", "⠼", "⠴", "⠦", "⠧", "⠇", "⠏"}
	progressFull  = "█"
	progressEmpty = "░"
)

// Styles holds the lipgloss styles of the check UI.
type Styles struct {
	Pass    lipgloss.Style
	Fail    lipgloss.Style
	Warn    lipgloss.Style
	Skip    lipgloss.Style
	Running lipgloss.Style
	Error   lipgloss.Style

	Dim       lipgloss.Style
	Muted     lipgloss.Style
	Bold      lipgloss.Style
	FileName  lipgloss.Style
	Namespace lipgloss.Style
	Root      lipgloss.Style
	Code      lipgloss.Style

	ProgressFilled lipgloss.Style
	ProgressEmpty  lipgloss.Style

	// MaxDiagnostics caps the diagnostics listed under a file.
	MaxDiagnostics int

	badges map[nodeStatus]string
}

// DefaultStyles returns the default styles.
func DefaultStyles() *Styles {
	p := defaultPalette
	fg := func(c lipgloss.Color) lipgloss.Style { return lipgloss.NewStyle().Foreground(c) }

	s := &Styles{
		Pass:    fg(p.pass).Bold(true),
		Fail:    fg(p.fail).Bold(true),
		Warn:    fg(p.warn).Bold(true),
		Skip:    fg(p.skip),
		Running: fg(p.running).Bold(true),
		Error:   fg(p.fail).Bold(true),

		Dim:       fg(p.dim),
		Muted:     fg(p.muted),
		Bold:      lipgloss.NewStyle().Bold(true),
		FileName:  fg(p.text),
		Namespace: fg(p.muted).Bold(true),
		Root:      fg(p.accent),
		Code:      fg(p.dim).Italic(true),

		ProgressFilled: fg(p.accent),
		ProgressEmpty:  fg(p.border),

		MaxDiagnostics: 5,
	}

	s.badges = map[nodeStatus]string{
		statusPending: s.Dim.Render("⋯"),
		statusPass:    s.Pass.Render("✓"),
		statusWarn:    s.Warn.Render("!"),
		statusFail:    s.Fail.Render("✗"),
		statusError:   s.Fail.Render("✗"),
		statusSkip:    s.Skip.Render("↓"),
	}

	return s
}

// badge renders the symbol of a finished or pending status. Running files
// draw the spinner instead.
func (s *Styles) badge(status nodeStatus) string {
	if b, ok := s.badges[status]; ok {
		return b
	}

	return " "
}
