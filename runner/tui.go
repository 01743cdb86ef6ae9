package runner

import (
	"context"
	"fmt"
	"io"
	"os"
	"path"
	"slices"
	"strings"
	"sync/atomic"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-isatty"

	"github.com/rlch/cw/analysis"
	"github.com/rlch/cw/module"
)

// TUIHandler draws check progress as a tree of roots, namespaces and files.
// The live view runs on the alternate screen; Summary prints the final tree
// to the normal screen once the run is over.
type TUIHandler struct {
	out    io.Writer
	stderr io.Writer

	model   *tuiModel
	program *tea.Program
	done    chan struct{}
	closed  atomic.Bool
}

// NewTUIHandler creates a handler drawing to out. Call SetFiles before
// Start to lay out the tree.
func NewTUIHandler(out, stderr io.Writer) *TUIHandler {
	return &TUIHandler{out: out, stderr: stderr}
}

// SetFiles lays out the tree for the files about to be checked.
func (h *TUIHandler) SetFiles(files []File) {
	h.model = newTUIModel(BuildCheckTrees(files))
}

// Start runs the bubbletea program in the background.
func (h *TUIHandler) Start() error {
	if h.model == nil {
		h.model = newTUIModel(nil)
	}

	opts := []tea.ProgramOption{tea.WithOutput(h.out), tea.WithoutSignalHandler(), tea.WithAltScreen()}
	if f, ok := h.out.(*os.File); !ok || !isatty.IsTerminal(f.Fd()) {
		opts = append(opts, tea.WithInput(nil))
	}

	h.program = tea.NewProgram(h.model, opts...)
	h.done = make(chan struct{})

	go func() {
		defer close(h.done)

		_, _ = h.program.Run()
	}()

	return nil
}

// Event forwards a check event to the program.
func (h *TUIHandler) Event(_ context.Context, event Event, _ *Result) error {
	if h.program == nil || h.closed.Load() {
		return nil
	}

	h.program.Send(checkEventMsg(event))

	return nil
}

// Err writes to stderr.
func (h *TUIHandler) Err(text string) error {
	_, err := fmt.Fprintln(h.stderr, text)

	return err
}

// Summary stops the program and prints the final tree.
func (h *TUIHandler) Summary(result *Result) error {
	if h.program == nil || !h.closed.CompareAndSwap(false, true) {
		return nil
	}

	h.program.Send(doneMsg{result: result})
	<-h.done

	_, err := io.WriteString(h.out, h.model.FinalView()+"\n")

	return err
}

// nodeStatus is the state of a file, or the rolled-up state of a namespace.
type nodeStatus int

const (
	statusPending nodeStatus = iota
	statusRunning
	statusPass
	statusWarn
	statusFail
	statusSkip
	statusError
)

// finished reports whether a file has produced its final event.
func (s nodeStatus) finished() bool { return s != statusPending && s != statusRunning }

// listed reports whether a file is shown under its namespace.
func (s nodeStatus) listed() bool {
	return s == statusRunning || s == statusWarn || s == statusFail || s == statusError
}

type fileNode struct {
	name    string
	status  nodeStatus
	elapsed time.Duration
	diags   []analysis.Diagnostic
	err     error
}

type namespaceNode struct {
	name  string
	files []*fileNode
}

// status rolls the files up: running wins, then failures, then pending
// files, then warnings.
func (ns *namespaceNode) status() nodeStatus {
	seen := make(map[nodeStatus]bool, len(ns.files))
	for _, f := range ns.files {
		seen[f.status] = true
	}

	switch {
	case seen[statusRunning]:
		return statusRunning
	case seen[statusFail] || seen[statusError]:
		return statusFail
	case seen[statusPending]:
		return statusPending
	case seen[statusWarn]:
		return statusWarn
	default:
		return statusPass
	}
}

// CheckTree groups the files of one root by namespace.
type CheckTree struct {
	root       string
	namespaces []*namespaceNode
	idx        map[string]*fileNode // Event.Key() -> node
}

// BuildCheckTrees groups files by root, then by namespace. Roots keep the
// order they first appear in; namespaces are sorted.
func BuildCheckTrees(files []File) []CheckTree {
	var trees []CheckTree

	for _, f := range files {
		i := slices.IndexFunc(trees, func(t CheckTree) bool { return t.root == f.Root })
		if i < 0 {
			i = len(trees)
			trees = append(trees, CheckTree{root: f.Root, idx: make(map[string]*fileNode)})
		}

		tree := &trees[i]
		name := module.NamespaceOf(f.Path)

		j := slices.IndexFunc(tree.namespaces, func(n *namespaceNode) bool { return n.name == name })
		if j < 0 {
			j = len(tree.namespaces)
			tree.namespaces = append(tree.namespaces, &namespaceNode{name: name})
		}

		node := &fileNode{name: path.Base(f.Path)}
		tree.namespaces[j].files = append(tree.namespaces[j].files, node)
		tree.idx[Event{Root: f.Root, Path: f.Path}.Key()] = node
	}

	for _, tree := range trees {
		slices.SortFunc(tree.namespaces, func(a, b *namespaceNode) int { return strings.Compare(a.name, b.name) })
	}

	return trees
}

// tally counts finished files by outcome. Warned files count as passed too.
type tally struct {
	total   int
	passed  int
	warned  int
	failed  int
	skipped int
	errors  int
}

func (t tally) finished() int { return t.passed + t.failed + t.skipped + t.errors }

func (t tally) failing() bool { return t.failed > 0 || t.errors > 0 }

type (
	checkEventMsg Event
	doneMsg       struct{ result *Result }
)

// scrollKeys maps keys to a scroll step; the extremes jump to either end.
var scrollKeys = map[string]int{
	"j": 1, "down": 1,
	"k": -1, "up": -1,
	"g": -1 << 20, "home": -1 << 20,
	"G": 1 << 20, "end": 1 << 20,
}

type tuiModel struct {
	styles  *Styles
	spinner spinner.Model

	height int

	trees []CheckTree
	files map[string]*fileNode
	tally tally

	started  time.Time
	finished time.Time
	result   *Result

	offset int
	lines  int
}

func newTUIModel(trees []CheckTree) *tuiModel {
	styles := DefaultStyles()

	files := make(map[string]*fileNode)
	for _, tree := range trees {
		for key, node := range tree.idx {
			files[key] = node
		}
	}

	return &tuiModel{
		styles: styles,
		spinner: spinner.New(
			spinner.WithSpinner(spinner.Spinner{Frames: spinnerFrames, FPS: time.Second / 10}),
			spinner.WithStyle(styles.Running),
		),
		height:  24,
		trees:   trees,
		files:   files,
		tally:   tally{total: len(files)},
		started: time.Now(),
	}
}

func (m *tuiModel) Init() tea.Cmd { return m.spinner.Tick }

func (m *tuiModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) { //nolint:ireturn // bubbletea.Model interface required by tea.Program
	switch msg := msg.(type) {
	case tea.KeyMsg:
		if k := msg.String(); k == "ctrl+c" || k == "esc" || k == "q" {
			return m, tea.Quit
		} else if step, ok := scrollKeys[k]; ok {
			m.scroll(step)
		}
	case tea.WindowSizeMsg:
		m.height = msg.Height
	case spinner.TickMsg:
		if m.result == nil {
			var cmd tea.Cmd
			m.spinner, cmd = m.spinner.Update(msg)

			return m, cmd
		}
	case checkEventMsg:
		m.handleEvent(Event(msg))
	case doneMsg:
		m.result = msg.result
		m.finished = time.Now()

		return m, tea.Quit
	}

	return m, nil
}

//nolint:funcorder
func (m *tuiModel) scroll(step int) {
	m.offset = min(max(m.offset+step, 0), max(m.lines-m.viewport(), 0))
}

// viewport is the number of tree lines that fit between the header and the
// summary.
//
//nolint:funcorder
func (m *tuiModel) viewport() int {
	const chrome = 5

	return max(m.height-chrome, 1)
}

func (m *tuiModel) handleEvent(event Event) { //nolint:funcorder
	node, ok := m.files[event.Key()]
	if !ok {
		return
	}

	switch event.Action {
	case ActionRun:
		node.status = statusRunning

		return
	case ActionPass:
		node.status = statusPass
		m.tally.passed++

		if len(event.Diagnostics) > 0 {
			node.status = statusWarn
			m.tally.warned++
		}
	case ActionFail:
		node.status = statusFail
		m.tally.failed++
	case ActionSkip:
		node.status = statusSkip
		m.tally.skipped++
	case ActionError:
		node.status = statusError
		node.err = event.Error
		m.tally.errors++
	}

	node.elapsed = event.Elapsed
	node.diags = event.Diagnostics
}

func (m *tuiModel) body() []string {
	var lines []string
	for _, tree := range m.trees {
		lines = append(lines, m.renderTree(tree)...)
	}

	return lines
}

// FinalView renders the whole tree for printing after the program exits.
func (m *tuiModel) FinalView() string {
	lines := append([]string{m.renderHeader(), ""}, m.body()...)

	return strings.Join(append(lines, "", m.renderSummary()), "\n")
}

func (m *tuiModel) View() string {
	body := m.body()
	m.lines = len(body)

	from := min(m.offset, len(body))
	to := min(from+m.viewport(), len(body))

	var b strings.Builder

	line := func(s string) {
		b.WriteString(s)
		b.WriteString("\033[K\n") // clear to end of line
	}

	line(m.renderHeader())
	line("")

	if from > 0 {
		line(m.styles.Dim.Render("  ↑ more above"))
	}

	for _, s := range body[from:to] {
		line(s)
	}

	if to < len(body) {
		line(m.styles.Dim.Render("  ↓ more below"))
	} else {
		for range m.viewport() - (to - from) {
			line("")
		}
	}

	line("")
	line(m.renderSummary())

	return b.String()
}

func (m *tuiModel) renderHeader() string {
	title := m.styles.Bold.Render("cw") + m.styles.Dim.Render(" check")

	running := 0
	for _, f := range m.files {
		if f.status == statusRunning {
			running++
		}
	}

	var status string

	switch {
	case m.result != nil && m.tally.failing():
		status = m.styles.Fail.Render("FAIL")
	case m.result != nil:
		status = m.styles.Pass.Render("PASS")
	case running > 0:
		status = m.styles.Running.Render(fmt.Sprintf("checking %d", running))
	default:
		status = m.styles.Dim.Render("starting")
	}

	return title + "  " + status
}

// renderTree lists each namespace with its progress, and under it the files
// that are being checked or have something to report.
func (m *tuiModel) renderTree(tree CheckTree) []string {
	lines := []string{m.styles.Root.Render(tree.root)}

	for i, ns := range tree.namespaces {
		branch, indent := treeBranch(i == len(tree.namespaces)-1)

		var (
			done  int
			shown []*fileNode
		)

		for _, f := range ns.files {
			if f.status.finished() {
				done++
			}

			if f.status.listed() {
				shown = append(shown, f)
			}
		}

		lines = append(lines, m.styles.Dim.Render(branch)+m.renderSymbol(ns.status())+" "+
			m.styles.Namespace.Render(ns.name)+m.styles.Dim.Render(fmt.Sprintf("  %d/%d", done, len(ns.files))))

		for j, f := range shown {
			lines = append(lines, m.renderFile(f, indent, j == len(shown)-1)...)
		}
	}

	return append(lines, "")
}

func treeBranch(last bool) (branch, indent string) {
	if last {
		return "╰─ ", "   "
	}

	return "├─ ", "│  "
}

func (m *tuiModel) renderFile(f *fileNode, indent string, last bool) []string {
	branch, _ := treeBranch(last)

	detail := indent + "│    "
	if last {
		detail = indent + "     "
	}

	head := m.styles.Dim.Render(indent+branch) + m.renderSymbol(f.status) + " " + m.styles.FileName.Render(f.name)
	if f.status != statusRunning {
		head += m.styles.Dim.Render("  [" + formatDuration(f.elapsed) + "]")
	}

	lines := []string{head}

	if f.err != nil {
		lines = append(lines, m.styles.Dim.Render(detail)+m.styles.Error.Render(f.err.Error()))
	}

	shown := f.diags
	if len(shown) > m.styles.MaxDiagnostics {
		shown = shown[:m.styles.MaxDiagnostics]
	}

	for _, d := range shown {
		style := m.styles.Warn
		if d.Severity == analysis.SeverityError {
			style = m.styles.Fail
		}

		pos := fmt.Sprintf("%d:%d ", d.Span.Start.Line, d.Span.Start.Column)
		lines = append(lines, m.styles.Dim.Render(detail+pos)+style.Render(d.Message)+" "+m.styles.Code.Render(d.Code))
	}

	if extra := len(f.diags) - len(shown); extra > 0 {
		lines = append(lines, m.styles.Dim.Render(fmt.Sprintf("%s… %d more", detail, extra)))
	}

	return lines
}

func (m *tuiModel) renderSymbol(status nodeStatus) string {
	if status == statusRunning {
		return m.spinner.View()
	}

	return m.styles.badge(status)
}

// renderSummary draws the counts, a progress bar and the elapsed time.
// A count is dimmed while it is zero.
func (m *tuiModel) renderSummary() string {
	counts := []struct {
		n     int
		label string
		style lipgloss.Style
	}{
		{m.tally.passed, "passed", m.styles.Pass},
		{m.tally.failed, "failed", m.styles.Fail},
		{m.tally.errors, "unreadable", m.styles.Error},
	}

	parts := make([]string, 0, len(counts))
	for _, c := range counts {
		style := c.style
		if c.n == 0 {
			style = m.styles.Dim
		}

		parts = append(parts, style.Render(fmt.Sprintf("%d %s", c.n, c.label)))
	}

	end := m.finished
	if end.IsZero() {
		end = time.Now()
	}

	return "  " + strings.Join(parts, m.styles.Dim.Render(" │ ")) + " " +
		m.styles.Muted.Render(fmt.Sprintf("(%d files)", m.tally.total)) + " " +
		m.progressBar(20) + " " +
		m.styles.Dim.Render("["+formatDuration(end.Sub(m.started))+"]")
}

func (m *tuiModel) progressBar(width int) string {
	filled := 0
	if m.tally.total > 0 {
		filled = min(m.tally.finished()*width/m.tally.total, width)
	}

	return m.styles.ProgressFilled.Render(strings.Repeat(progressFull, filled)) +
		m.styles.ProgressEmpty.Render(strings.Repeat(progressEmpty, width-filled))
}

func formatDuration(d time.Duration) string {
	switch {
	case d < time.Millisecond:
		return "<1ms"
	case d < time.Second:
		return fmt.Sprintf("%dms", d.Milliseconds())
	case d < time.Minute:
		return fmt.Sprintf("%.1fs", d.Seconds())
	default:
		return fmt.Sprintf("%dm%ds", int(d.Minutes()), int(d.Seconds())%60)
	}
}
