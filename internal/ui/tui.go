package ui

import (
	"context"
	"fmt"
	"math"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/Dicklesworthstone/coremon/internal/model"
	"github.com/Dicklesworthstone/coremon/internal/sampler"
)

// coresPerColumn bounds the height of the per-core card.
const coresPerColumn = 16

// Model renders live samples from the sampler.
type Model struct {
	latest    model.Sample
	stream    <-chan model.Sample
	observers []func(model.Sample)
	ctxCancel context.CancelFunc
	width     int
	height    int
}

// NewModel wraps a sample stream; cancel stops the producer when the user quits.
func NewModel(stream <-chan model.Sample, cancel context.CancelFunc, observers ...func(model.Sample)) *Model {
	return &Model{
		latest:    model.Zero(),
		stream:    stream,
		observers: observers,
		ctxCancel: cancel,
		width:     120,
		height:    40,
	}
}

// Messages
type (
	tickMsg   struct{}
	sampleMsg model.Sample
)

func tickCmd() tea.Cmd { return tea.Tick(time.Second/5, func(time.Time) tea.Msg { return tickMsg{} }) }

func (m *Model) Init() tea.Cmd { return tickCmd() }

func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			m.ctxCancel()
			return m, tea.Quit
		}
	case sampleMsg:
		m.accept(model.Sample(msg))
	case tickMsg:
		select {
		case samp, ok := <-m.stream:
			if ok {
				m.accept(samp)
			}
		default:
		}
		return m, tickCmd()
	}
	return m, nil
}

func (m *Model) accept(s model.Sample) {
	m.latest = s
	for _, observe := range m.observers {
		observe(s)
	}
}

// Styles
var (
	titleStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("45"))
	subtleStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("244"))
	labelStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("81")).Bold(true)
	gaugeFill   = "█"
	gaugeEmpty  = "░"
	cardStyle   = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("60")).
			Padding(0, 1).
			MarginRight(1)
)

func (m *Model) View() string {
	s := m.latest
	header := titleStyle.Render("coremon") + "  " +
		subtleStyle.Render(s.Timestamp.Format("Mon Jan 2 15:04:05 MST 2006"))

	name := s.Identity.ModelName
	if name == "" {
		name = "unknown processor"
	}
	cpuCard := card("Processor",
		fmt.Sprintf("%s\n%d cores detected", truncate(name, 40), s.Identity.CoreCount))

	mem := s.Memory
	memCard := card("Memory",
		fmt.Sprintf("%s  %d/%d MB (%d MB available)\nSwap %s  %d/%d MB",
			gaugeBar(pct(mem.UsedKB(), mem.TotalKB), 20),
			kbToMB(mem.UsedKB()), kbToMB(mem.TotalKB), kbToMB(mem.AvailableKB),
			gaugeBar(pct(mem.SwapUsedKB(), mem.SwapTotalKB), 20),
			kbToMB(mem.SwapUsedKB()), kbToMB(mem.SwapTotalKB)))

	line1 := lipgloss.JoinHorizontal(lipgloss.Top, cpuCard, memCard)
	line2 := card("Per core", renderCores(s.PerCore, 20))

	footer := subtleStyle.Render(fmt.Sprintf("refresh every %s  q to quit", s.Interval))
	return lipgloss.JoinVertical(lipgloss.Left, header, line1, line2, footer)
}

// Helpers
func renderCores(perCore []float64, width int) string {
	if len(perCore) == 0 {
		return subtleStyle.Render("waiting for the next sample…")
	}
	var columns []string
	for start := 0; start < len(perCore); start += coresPerColumn {
		end := min(start+coresPerColumn, len(perCore))
		rows := make([]string, 0, end-start)
		for i := start; i < end; i++ {
			rows = append(rows, fmt.Sprintf("CPU%02d %s", i, gaugeBar(perCore[i], width)))
		}
		columns = append(columns, lipgloss.NewStyle().MarginRight(2).Render(strings.Join(rows, "\n")))
	}
	return lipgloss.JoinHorizontal(lipgloss.Top, columns...)
}

// Gauge fill colour by load band.
var (
	lowLoad  = lipgloss.NewStyle().Foreground(lipgloss.Color("42"))
	midLoad  = lipgloss.NewStyle().Foreground(lipgloss.Color("214"))
	highLoad = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
)

func loadStyle(pct float64) lipgloss.Style {
	switch {
	case pct >= 85:
		return highLoad
	case pct >= 50:
		return midLoad
	}
	return lowLoad
}

func gaugeBar(pct float64, width int) string {
	pct = math.Max(0, math.Min(100, pct))
	filled := min(int(pct/100*float64(width)), width)
	return fmt.Sprintf("[%s%s] %6.2f%%",
		loadStyle(pct).Render(strings.Repeat(gaugeFill, filled)),
		strings.Repeat(gaugeEmpty, width-filled),
		pct)
}

func card(title, body string) string {
	titleStr := labelStyle.Render(title)
	content := titleStr + "\n" + body
	return cardStyle.Render(content)
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}

func pct(used, total uint64) float64 {
	if total == 0 {
		return 0
	}
	return float64(used) * 100 / float64(total)
}

// RunTUI starts the Bubble Tea program fed by s.Stream until the user quits
// or ctx is done.
func RunTUI(ctx context.Context, s *sampler.Sampler, observers ...func(model.Sample)) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	first := model.Zero()
	first.Interval = s.Interval
	first.Identity = s.Identity()

	m := NewModel(s.Stream(ctx), cancel, observers...)
	m.latest = first
	prog := tea.NewProgram(m, tea.WithAltScreen(), tea.WithContext(ctx))
	_, err := prog.Run()
	if err != nil && ctx.Err() != nil {
		return nil
	}
	return err
}
