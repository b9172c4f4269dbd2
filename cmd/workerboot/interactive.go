package main

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	workerboot "github.com/hexbound/workerboot"
	"github.com/hexbound/workerboot/loader"
	"github.com/hexbound/workerboot/scope"
	"github.com/hexbound/workerboot/worker"
)

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FAFAFA")).
			Background(lipgloss.Color("#7D56F4")).
			Padding(0, 1)

	sentStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#87CEEB"))

	replyStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#98FB98"))

	kindStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FFD700"))

	stateStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#90EE90"))

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FF6B6B"))

	helpStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#666666"))
)

const historyLimit = 64

type interactiveModel struct {
	err      error
	worker   *worker.Worker
	client   *worker.Client
	dir      string
	loc      workerboot.Locator
	cfg      *loader.Config
	history  []string
	inputs   []textinput.Model
	focusIdx int
	spawned  bool
}

type spawnedMsg struct {
	err error
	w   *worker.Worker
}

type tickMsg time.Time

func newInteractiveModel(dir string, loc workerboot.Locator, cfg *loader.Config) *interactiveModel {
	kind := textinput.New()
	kind.Prompt = "kind: "
	kind.Placeholder = "message"
	kind.Width = 16
	kind.Focus()

	data := textinput.New()
	data.Prompt = "data: "
	data.Width = 40

	return &interactiveModel{
		dir:    dir,
		loc:    loc,
		cfg:    cfg,
		inputs: []textinput.Model{kind, data},
	}
}

func (m *interactiveModel) Init() tea.Cmd {
	return tea.Batch(m.spawnWorker, tick())
}

func (m *interactiveModel) spawnWorker() tea.Msg {
	w, err := worker.Spawn(context.Background(), worker.Options{
		Dir:          m.dir,
		Locator:      m.loc,
		LoaderConfig: m.cfg,
	})
	return spawnedMsg{w: w, err: err}
}

func tick() tea.Cmd {
	return tea.Tick(100*time.Millisecond, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

func (m *interactiveModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "esc":
			if m.worker != nil {
				m.worker.Close(context.Background())
			}
			return m, tea.Quit

		case "tab":
			m.inputs[m.focusIdx].Blur()
			m.focusIdx = (m.focusIdx + 1) % len(m.inputs)
			m.inputs[m.focusIdx].Focus()
			return m, nil

		case "enter":
			m.post()
			return m, nil
		}

	case spawnedMsg:
		if msg.err != nil {
			m.err = msg.err
			return m, nil
		}
		m.worker = msg.w
		m.client = msg.w.Client()
		m.spawned = true

	case tickMsg:
		m.drain()
		return m, tick()
	}

	var cmds []tea.Cmd
	for i := range m.inputs {
		var cmd tea.Cmd
		m.inputs[i], cmd = m.inputs[i].Update(msg)
		cmds = append(cmds, cmd)
	}
	return m, tea.Batch(cmds...)
}

func (m *interactiveModel) post() {
	if m.client == nil || m.client.Dead() {
		return
	}
	kind := m.inputs[0].Value()
	if kind == "" {
		kind = "message"
	}
	msg := scope.Message{Kind: kind, Data: m.inputs[1].Value()}
	if err := m.client.Post(msg); err != nil {
		m.append(errorStyle.Render(fmt.Sprintf("post failed: %v", err)))
		return
	}
	m.append(sentStyle.Render("→ ") + kindStyle.Render(kind) + sentStyle.Render(fmt.Sprintf(" %v", msg.Data)))
	m.inputs[1].SetValue("")
}

// drain moves pending worker output and errors into the history.
func (m *interactiveModel) drain() {
	if m.worker == nil {
		return
	}
	select {
	case err := <-m.worker.Err():
		m.err = err
	default:
	}
	if m.client == nil {
		return
	}
	for {
		msg, ok := m.client.Poll()
		if !ok {
			break
		}
		m.append(replyStyle.Render("← ") + kindStyle.Render(msg.Kind) + replyStyle.Render(fmt.Sprintf(" %v", msg.Data)))
	}
}

func (m *interactiveModel) append(line string) {
	m.history = append(m.history, line)
	if len(m.history) > historyLimit {
		m.history = m.history[len(m.history)-historyLimit:]
	}
}

func (m *interactiveModel) View() string {
	var b strings.Builder

	b.WriteString(titleStyle.Render("workerboot"))
	b.WriteString(" ")
	b.WriteString(m.dir)
	b.WriteString("\n\n")

	switch {
	case m.err != nil:
		b.WriteString(errorStyle.Render(fmt.Sprintf("Worker failed: %v", m.err)))
		b.WriteString("\n\n")
		b.WriteString(helpStyle.Render("esc quit"))
		return b.String()
	case !m.spawned:
		b.WriteString("Spawning worker...\n")
		return b.String()
	}

	b.WriteString("State: ")
	b.WriteString(stateStyle.Render(m.worker.State().String()))
	b.WriteString("\n\n")

	for _, line := range m.history {
		b.WriteString(line)
		b.WriteString("\n")
	}
	if len(m.history) > 0 {
		b.WriteString("\n")
	}

	for _, input := range m.inputs {
		b.WriteString(input.View())
		b.WriteString("\n")
	}
	b.WriteString("\n")
	b.WriteString(helpStyle.Render("tab switch field • enter post • esc quit"))

	return b.String()
}

func runInteractive(dir string, loc workerboot.Locator, cfg *loader.Config) error {
	p := tea.NewProgram(newInteractiveModel(dir, loc, cfg), tea.WithAltScreen())
	_, err := p.Run()
	return err
}
