// Package tui is the interactive viewer: pick a topology, then page through
// its bond graph, equations, solution and simulation.
package tui

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/san-kum/bondsim/internal/dynamo"
	"github.com/san-kum/bondsim/internal/integrators"
	"github.com/san-kum/bondsim/internal/pipeline"
	"github.com/san-kum/bondsim/internal/render"
	"github.com/san-kum/bondsim/internal/telemetry"
	"github.com/san-kum/bondsim/internal/topology"
)

var (
	cyan   = lipgloss.NewStyle().Foreground(lipgloss.Color("86"))
	white  = lipgloss.NewStyle().Foreground(lipgloss.Color("255"))
	dim    = lipgloss.NewStyle().Foreground(lipgloss.Color("242"))
	dimmer = lipgloss.NewStyle().Foreground(lipgloss.Color("238"))
	red    = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))

	activeTab = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("86")).
			BorderStyle(lipgloss.NormalBorder()).
			BorderBottom(true).
			BorderForeground(lipgloss.Color("86")).
			Padding(0, 1)
	inactiveTab = lipgloss.NewStyle().
			Foreground(lipgloss.Color("242")).
			BorderStyle(lipgloss.HiddenBorder()).
			BorderBottom(true).
			Padding(0, 1)
)

var tabs = []string{"graph", "equations", "solution", "simulation"}

const chrome = 6

type screen int

const (
	screenMenu screen = iota
	screenRunning
	screenView
)

// Options configures the viewer. A zero Run uses each topology's defaults.
type Options struct {
	Integrator string
	Run        dynamo.Config
	Theme      render.Theme
	Logger     *slog.Logger
	Metrics    *telemetry.Metrics
}

type resultMsg struct {
	art *pipeline.Artifacts
	err error
}

type model struct {
	ctx    context.Context
	opts   Options
	screen screen

	tops   []*topology.Topology
	cursor int

	integrators []string
	integ       int

	art   *pipeline.Artifacts
	err   error
	tab   int
	pages []string

	spinner  spinner.Model
	viewport viewport.Model
	width    int
	height   int
}

func newModel(ctx context.Context, tops []*topology.Topology, opts Options) model {
	if opts.Integrator == "" {
		opts.Integrator = integrators.Default
	}
	if opts.Logger == nil {
		opts.Logger = slog.New(slog.DiscardHandler)
	}
	if opts.Theme.Name == "" {
		opts.Theme = render.ThemeCyberpunk
	}
	names := integrators.Names()
	integ := 0
	for i, n := range names {
		if n == opts.Integrator {
			integ = i
		}
	}

	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = cyan

	vp := viewport.New(80, 24-chrome)
	vp.Style = lipgloss.NewStyle().
		BorderStyle(lipgloss.RoundedBorder()).
		BorderForeground(lipgloss.Color("62")).
		PaddingRight(2)

	return model{
		ctx:         ctx,
		opts:        opts,
		tops:        tops,
		integrators: names,
		integ:       integ,
		spinner:     s,
		viewport:    vp,
		width:       80,
		height:      24,
	}
}

func (m model) Init() tea.Cmd { return nil }

func (m model) selected() *topology.Topology { return m.tops[m.cursor] }

// start runs the selected topology with every output in the background.
func (m model) start() (model, tea.Cmd) {
	m.screen = screenRunning
	top := m.selected()
	cfg := m.opts.Run
	if cfg.StepNumber == 0 && cfg.StepSize == 0 {
		cfg.StepNumber, cfg.StepSize = top.StepNumber, top.StepSize
	}
	opts := pipeline.Options{
		Graph: true, Equations: true, Solution: true, Simulation: true,
		Integrator: m.integrators[m.integ],
		Run:        cfg,
		Logger:     m.opts.Logger,
		Metrics:    m.opts.Metrics,
	}
	ctx := m.ctx
	run := func() tea.Msg {
		art, err := pipeline.Run(ctx, top, opts)
		return resultMsg{art: art, err: err}
	}
	return m, tea.Batch(m.spinner.Tick, run)
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKey(msg)
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		m.viewport.Width = msg.Width
		m.viewport.Height = max(msg.Height-chrome, 3)
		if m.art != nil {
			m.renderPages()
		}
		return m, nil
	case spinner.TickMsg:
		if m.screen != screenRunning {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	case resultMsg:
		m.art, m.err = msg.art, msg.err
		m.screen = screenView
		m.renderPages()
		m.tab = m.firstFailedTab()
		m.show()
		return m, nil
	}
	return m, nil
}

func (m model) handleKey(msg tea.KeyMsg) (model, tea.Cmd) {
	if msg.String() == "ctrl+c" {
		return m, tea.Quit
	}
	switch m.screen {
	case screenMenu:
		return m.menuKey(msg)
	case screenView:
		return m.viewKey(msg)
	}
	return m, nil
}

func (m model) menuKey(msg tea.KeyMsg) (model, tea.Cmd) {
	switch msg.String() {
	case "q":
		return m, tea.Quit
	case "up", "k":
		if m.cursor > 0 {
			m.cursor--
		}
	case "down", "j":
		if m.cursor < len(m.tops)-1 {
			m.cursor++
		}
	case "i":
		m.integ = (m.integ + 1) % len(m.integrators)
	case "enter", " ":
		return m.start()
	}
	return m, nil
}

func (m model) viewKey(msg tea.KeyMsg) (model, tea.Cmd) {
	switch msg.String() {
	case "q":
		return m, tea.Quit
	case "esc", "backspace":
		m.screen = screenMenu
		return m, nil
	case "tab", "right", "l":
		m.tab = (m.tab + 1) % len(tabs)
	case "shift+tab", "left", "h":
		m.tab = (m.tab + len(tabs) - 1) % len(tabs)
	case "1", "2", "3", "4":
		m.tab = int(msg.String()[0] - '1')
	case "i":
		m.integ = (m.integ + 1) % len(m.integrators)
		return m.start()
	case "r":
		return m.start()
	default:
		var cmd tea.Cmd
		m.viewport, cmd = m.viewport.Update(msg)
		return m, cmd
	}
	m.show()
	return m, nil
}

func (m *model) show() {
	m.viewport.SetContent(m.pages[m.tab])
	m.viewport.GotoTop()
}

// renderPages renders one page per tab. A page whose stage was not reached
// shows the run error instead.
func (m *model) renderPages() {
	m.pages = make([]string, len(tabs))
	art := m.art
	failed := func() string {
		if m.err != nil {
			return red.Render(m.err.Error())
		}
		return dim.Render("not available")
	}

	page := func(ok bool, fn func(p *render.Printer) error) string {
		if !ok {
			return failed()
		}
		var buf bytes.Buffer
		p := render.NewTerminal(&buf, m.opts.Theme)
		p.Width = max(m.viewport.Width-16, 30)
		p.ChartHeight = max(m.viewport.Height/3, 6)
		if err := fn(p); err != nil {
			return red.Render(err.Error())
		}
		return buf.String()
	}

	m.pages[0] = page(art.Graph != nil, func(p *render.Printer) error {
		p.Graph(art.Graph, art.Causality)
		return nil
	})
	m.pages[1] = page(art.Equations != nil, func(p *render.Printer) error {
		p.Equations(art.Equations)
		return nil
	})
	m.pages[2] = page(art.Space != nil, func(p *render.Printer) error {
		p.Solution(art.Space)
		return nil
	})
	m.pages[3] = page(art.Trajectory != nil, func(p *render.Printer) error {
		return p.Simulation(art, render.FormatText)
	})
}

// firstFailedTab is the tab to open after a run: the first one the run did
// not reach, or the simulation when everything succeeded.
func (m model) firstFailedTab() int {
	switch {
	case m.art.Graph == nil:
		return 0
	case m.art.Equations == nil:
		return 1
	case m.art.Space == nil:
		return 2
	}
	return 3
}

func (m model) View() string {
	switch m.screen {
	case screenRunning:
		return fmt.Sprintf("\n  %s running %s with %s...\n", m.spinner.View(),
			cyan.Render(m.selected().Name), m.integrators[m.integ])
	case screenView:
		return m.viewTabs()
	}
	return m.viewMenu()
}

func (m model) viewMenu() string {
	var b strings.Builder

	b.WriteString("\n")
	b.WriteString(dimmer.Render("    ╺━━━━━━━━━━━━━━━━━━━━━━━━╸") + "\n")
	b.WriteString("           " + cyan.Render("b o n d s i m") + "\n")
	b.WriteString(dimmer.Render("    ╺━━━━━━━━━━━━━━━━━━━━━━━━╸") + "\n")
	b.WriteString("\n")

	for i, top := range m.tops {
		if i == m.cursor {
			b.WriteString("      " + cyan.Render("▸ ") + white.Render(fmt.Sprintf("%-26s", top.Name)) + dim.Render(top.Description) + "\n")
		} else {
			b.WriteString("        " + dim.Render(fmt.Sprintf("%-26s", top.Name)) + dimmer.Render(top.Description) + "\n")
		}
	}

	b.WriteString("\n")
	b.WriteString(dim.Render(fmt.Sprintf("      integrator: %s", m.integrators[m.integ])) + "\n")
	b.WriteString(dim.Render("      ↑↓ select   i integrator   enter run   q quit") + "\n")
	return b.String()
}

func (m model) viewTabs() string {
	rendered := make([]string, len(tabs))
	for i, name := range tabs {
		label := fmt.Sprintf("%d %s", i+1, name)
		if i == m.tab {
			rendered[i] = activeTab.Render(label)
		} else {
			rendered[i] = inactiveTab.Render(label)
		}
	}
	header := lipgloss.JoinHorizontal(lipgloss.Bottom, rendered...)

	status := fmt.Sprintf("%s  %s  run %s", m.art.Topology.Name, m.art.Integrator, m.art.RunID)
	if m.err != nil {
		status = red.Render(fmt.Sprintf("%s  failed (%s)", m.art.Topology.Name, pipeline.Kind(m.err)))
	}
	footer := dim.Render(status + "\n←→ tabs  ↑↓ scroll  i integrator  r rerun  esc back  q quit")

	return lipgloss.JoinVertical(lipgloss.Left, header, m.viewport.View(), footer)
}

// Run starts the viewer on tops. When start names one of them, that
// topology runs immediately.
func Run(ctx context.Context, tops []*topology.Topology, start string, opts Options) error {
	if len(tops) == 0 {
		return fmt.Errorf("tui: no topologies")
	}
	m := newModel(ctx, tops, opts)
	var cmd tea.Cmd
	for i, top := range tops {
		if top.Name == start {
			m.cursor = i
			m, cmd = m.start()
		}
	}
	p := tea.NewProgram(initial{m, cmd}, tea.WithAltScreen(), tea.WithContext(ctx))
	_, err := p.Run()
	return err
}

// initial runs cmd once at program start.
type initial struct {
	model
	cmd tea.Cmd
}

func (i initial) Init() tea.Cmd { return i.cmd }

func (i initial) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	return i.model.Update(msg)
}
