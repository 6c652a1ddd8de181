package commands

import (
	"context"
	"fmt"

	"github.com/charmbracelet/bubbles/progress"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/leapstack-labs/gridbench/internal/cli/output"
	"github.com/leapstack-labs/gridbench/pkg/core"
)

// jobDoneMsg reports one finished job to the progress view.
type jobDoneMsg struct {
	done   int
	total  int
	status core.Status
	job    string
}

type runDoneMsg struct{}

// progressModel draws a progress bar with running error counts while a grid
// executes.
type progressModel struct {
	bar      progress.Model
	styles   *output.Styles
	done     int
	total    int
	counts   map[core.Status]int
	last     string
	finished bool
}

func newProgressModel(styles *output.Styles) progressModel {
	return progressModel{
		bar:    progress.New(progress.WithDefaultGradient(), progress.WithWidth(40)),
		styles: styles,
		counts: make(map[core.Status]int),
	}
}

func (m progressModel) Init() tea.Cmd { return nil }

func (m progressModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.bar.Width = min(max(msg.Width-40, 10), 60)
	case jobDoneMsg:
		m.done, m.total = msg.done, msg.total
		m.counts[msg.status]++
		m.last = msg.job
	case runDoneMsg:
		m.finished = true
		return m, tea.Quit
	}
	return m, nil
}

func (m progressModel) View() string {
	if m.finished {
		return ""
	}
	pct := 0.0
	if m.total > 0 {
		pct = float64(m.done) / float64(m.total)
	}
	line := fmt.Sprintf("%s %d/%d", m.bar.ViewAs(pct), m.done, m.total)
	if n := m.counts[core.StatusError]; n > 0 {
		line += "  " + m.styles.Error.Render(fmt.Sprintf("%d error", n))
	}
	if n := m.counts[core.StatusIncompatible]; n > 0 {
		line += "  " + m.styles.Warning.Render(fmt.Sprintf("%d incompatible", n))
	}
	if m.last != "" {
		line += "\n" + m.styles.Muted.Render(m.last)
	}
	return line + "\n"
}

// progressView runs a progressModel program alongside the engine.
type progressView struct {
	program *tea.Program
	done    chan struct{}
}

// showProgress reports whether the live progress bar can be drawn. Verbose
// logs share the terminal and would tear the bar.
func showProgress(cmdCtx *CommandContext) bool {
	r := cmdCtx.Renderer
	return r.IsTTY() && r.EffectiveMode() == output.ModeText && !cmdCtx.Cfg.Verbose
}

func startProgress(ctx context.Context, r *output.Renderer) *progressView {
	p := tea.NewProgram(newProgressModel(r.Styles()),
		tea.WithContext(ctx),
		tea.WithOutput(r.Writer()),
		tea.WithInput(nil),
		tea.WithoutSignalHandler(),
	)
	v := &progressView{program: p, done: make(chan struct{})}
	go func() {
		defer close(v.done)
		_, _ = p.Run()
	}()
	return v
}

func (v *progressView) update(done, total int, o core.Outcome) {
	v.program.Send(jobDoneMsg{
		done:   done,
		total:  total,
		status: o.Status,
		job:    fmt.Sprintf("%s on %s", o.Pipeline, o.Dataset),
	})
}

// stop clears the bar and waits for the program to exit.
func (v *progressView) stop() {
	if v == nil {
		return
	}
	v.program.Send(runDoneMsg{})
	<-v.done
}
