// Package ui renders build progress in the terminal.
package ui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-runewidth"

	"rawc/internal/buildpipeline"
)

const statusWidth = 10

var (
	titleStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("7"))
	idleStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("7"))
	workingStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("6"))
	doneStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("2"))
	errorStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("1"))
	faintStyle   = lipgloss.NewStyle().Faint(true)
)

type progressModel struct {
	title   string
	events  <-chan buildpipeline.Event
	spinner spinner.Model
	prog    progress.Model
	items   []fileItem
	index   map[string]int
	width   int
	failed  error
	done    bool
}

type fileItem struct {
	path    string
	stage   buildpipeline.Stage
	status  buildpipeline.Status
	elapsed time.Duration
}

type eventMsg buildpipeline.Event
type doneMsg struct{}

// NewProgressModel returns a Bubble Tea model that renders one line per IR
// file until events is closed.
func NewProgressModel(title string, files []string, events <-chan buildpipeline.Event) tea.Model {
	sp := spinner.New()
	sp.Spinner = spinner.MiniDot
	sp.Style = workingStyle

	prog := progress.New(progress.WithDefaultGradient())
	prog.Width = 76

	items := make([]fileItem, len(files))
	index := make(map[string]int, len(files))
	for i, file := range files {
		items[i] = fileItem{path: file, stage: buildpipeline.StageLoad, status: buildpipeline.StatusQueued}
		index[file] = i
	}
	return &progressModel{
		title:   title,
		events:  events,
		spinner: sp,
		prog:    prog,
		items:   items,
		index:   index,
		width:   80,
	}
}

func (m *progressModel) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, m.listenForEvent())
}

func (m *progressModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case eventMsg:
		cmd := m.applyEvent(buildpipeline.Event(msg))
		return m, tea.Batch(cmd, m.listenForEvent())
	case doneMsg:
		m.done = true
		return m, tea.Quit
	case tea.KeyMsg:
		if msg.Type == tea.KeyCtrlC {
			return m, tea.Quit
		}
		return m, nil
	case spinner.TickMsg:
		if m.done {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	case tea.WindowSizeMsg:
		if msg.Width > 0 {
			m.width = msg.Width
			m.prog.Width = max(msg.Width-4, 10)
		}
		return m, nil
	case progress.FrameMsg:
		updated, cmd := m.prog.Update(msg)
		m.prog = updated.(progress.Model)
		return m, cmd
	}
	return m, nil
}

func (m *progressModel) View() string {
	if len(m.items) == 0 {
		return ""
	}
	header := m.title
	switch {
	case m.done && m.failed != nil:
		header = "failed: " + header
	case m.done:
		header = "done: " + header
	default:
		header = m.spinner.View() + " " + header
	}

	var b strings.Builder
	b.WriteString(titleStyle.Render(header))
	b.WriteString("\n\n")

	nameWidth := max(m.width-statusWidth-14, 20)
	for _, item := range m.items {
		label := itemLabel(item)
		fmt.Fprintf(&b, "  %s %s", styleFor(item.status).Render(fmt.Sprintf("%*s", statusWidth, label)), truncate(item.path, nameWidth))
		if item.status == buildpipeline.StatusDone {
			b.WriteString(faintStyle.Render(" " + item.elapsed.Round(time.Millisecond).String()))
		}
		b.WriteString("\n")
	}

	b.WriteString("\n")
	if m.done {
		b.WriteString(m.prog.ViewAs(1.0))
	} else {
		b.WriteString(m.prog.View())
	}
	b.WriteString("\n")
	if m.failed != nil {
		b.WriteString(errorStyle.Render(m.failed.Error()))
		b.WriteString("\n")
	}
	return b.String()
}

func (m *progressModel) listenForEvent() tea.Cmd {
	return func() tea.Msg {
		ev, ok := <-m.events
		if !ok {
			return doneMsg{}
		}
		return eventMsg(ev)
	}
}

func (m *progressModel) applyEvent(ev buildpipeline.Event) tea.Cmd {
	if ev.File == "" {
		if ev.Status == buildpipeline.StatusError {
			m.failed = ev.Err
		}
		return nil
	}
	idx, ok := m.index[ev.File]
	if !ok {
		return nil
	}
	item := &m.items[idx]
	item.stage = ev.Stage
	item.status = ev.Status
	if ev.Status == buildpipeline.StatusDone {
		item.elapsed = ev.Elapsed
	}
	return m.prog.SetPercent(m.fraction())
}

// fraction is the share of per-file stages finished so far.
func (m *progressModel) fraction() float64 {
	if len(m.items) == 0 {
		return 0
	}
	total := 0.0
	for _, item := range m.items {
		total += stageFraction(item)
	}
	return total / float64(len(m.items))
}

func stageFraction(item fileItem) float64 {
	switch item.status {
	case buildpipeline.StatusDone, buildpipeline.StatusError:
		return 1
	case buildpipeline.StatusQueued:
		return 0
	}
	for i, stage := range buildpipeline.Stages {
		if stage == item.stage {
			return float64(i) / float64(len(buildpipeline.Stages))
		}
	}
	return 0
}

func itemLabel(item fileItem) string {
	if item.status == buildpipeline.StatusWorking {
		return stageVerb(item.stage)
	}
	return string(item.status)
}

func stageVerb(stage buildpipeline.Stage) string {
	switch stage {
	case buildpipeline.StageLoad:
		return "loading"
	case buildpipeline.StageValidate:
		return "checking"
	case buildpipeline.StageCodegen:
		return "emitting"
	case buildpipeline.StageWrite:
		return "writing"
	default:
		return string(stage)
	}
}

func styleFor(status buildpipeline.Status) lipgloss.Style {
	switch status {
	case buildpipeline.StatusDone:
		return doneStyle
	case buildpipeline.StatusError:
		return errorStyle
	case buildpipeline.StatusWorking:
		return workingStyle
	default:
		return idleStyle
	}
}

// truncate shortens value to width cells, keeping the end of the path.
func truncate(value string, width int) string {
	if width <= 0 || runewidth.StringWidth(value) <= width {
		return value
	}
	if width <= 3 {
		return runewidth.Truncate(value, width, "")
	}
	// Reverse-truncate so the file name stays visible.
	runes := []rune(value)
	for i := range runes {
		tail := string(runes[i:])
		if runewidth.StringWidth(tail) <= width-3 {
			return "..." + tail
		}
	}
	return runewidth.Truncate(value, width, "")
}
