package commands

import (
	"bytes"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leapstack-labs/gridbench/internal/cli/config"
	"github.com/leapstack-labs/gridbench/internal/cli/output"
	"github.com/leapstack-labs/gridbench/pkg/core"
)

func plainStyles() *output.Styles {
	return output.NewRendererWithTTY(new(bytes.Buffer), new(bytes.Buffer), false, output.ModeText).Styles()
}

func TestProgressModel_Update(t *testing.T) {
	var m tea.Model = newProgressModel(plainStyles())

	m, cmd := m.Update(jobDoneMsg{done: 1, total: 4, status: core.StatusSuccess, job: "zscore on demo/sine"})
	assert.Nil(t, cmd)
	m, _ = m.Update(jobDoneMsg{done: 2, total: 4, status: core.StatusError, job: "zscore on demo/noisy"})
	m, _ = m.Update(jobDoneMsg{done: 3, total: 4, status: core.StatusIncompatible, job: "centroid on demo/sine"})

	view := m.View()
	assert.Contains(t, view, "3/4")
	assert.Contains(t, view, "1 error")
	assert.Contains(t, view, "1 incompatible")
	assert.Contains(t, view, "centroid on demo/sine")
}

func TestProgressModel_NoErrorsNoCounts(t *testing.T) {
	var m tea.Model = newProgressModel(plainStyles())
	m, _ = m.Update(jobDoneMsg{done: 1, total: 2, status: core.StatusSuccess, job: "a on b/c"})

	view := m.View()
	assert.Contains(t, view, "1/2")
	assert.NotContains(t, view, "error")
	assert.NotContains(t, view, "incompatible")
}

func TestProgressModel_DoneQuits(t *testing.T) {
	var m tea.Model = newProgressModel(plainStyles())
	m, cmd := m.Update(runDoneMsg{})
	require.NotNil(t, cmd)
	assert.IsType(t, tea.QuitMsg{}, cmd())
	assert.Empty(t, m.View())
}

func TestProgressModel_WindowSize(t *testing.T) {
	m := newProgressModel(plainStyles())
	updated, _ := m.Update(tea.WindowSizeMsg{Width: 200})
	assert.Equal(t, 60, updated.(progressModel).bar.Width)
	updated, _ = m.Update(tea.WindowSizeMsg{Width: 20})
	assert.Equal(t, 10, updated.(progressModel).bar.Width)
}

func TestShowProgress(t *testing.T) {
	buf := new(bytes.Buffer)
	tests := []struct {
		name    string
		tty     bool
		mode    output.Mode
		verbose bool
		want    bool
	}{
		{"terminal text", true, output.ModeText, false, true},
		{"terminal auto", true, output.ModeAuto, false, true},
		{"verbose", true, output.ModeText, true, false},
		{"json", true, output.ModeJSON, false, false},
		{"pipe", false, output.ModeAuto, false, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cmdCtx := &CommandContext{
				Cfg:      &config.Config{Verbose: tt.verbose},
				Renderer: output.NewRendererWithTTY(buf, buf, tt.tty, tt.mode),
			}
			assert.Equal(t, tt.want, showProgress(cmdCtx))
		})
	}
}

func TestProgressView_StopNil(t *testing.T) {
	var v *progressView
	assert.NotPanics(t, v.stop)
}
