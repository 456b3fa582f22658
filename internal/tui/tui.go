// Package tui is the terminal front end for the live assistant.
package tui

import (
	"context"
	"fmt"
	"math"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/vango-go/agriguard-live/pkg/core/live"
	"github.com/vango-go/agriguard-live/pkg/prompts"
)

const (
	// Placeholder is shown while live and nothing has been transcribed yet.
	Placeholder = "Listening and watching your plant..."

	meterWidth      = 24
	refreshInterval = 100 * time.Millisecond
	defaultWidth    = 72
)

// Controller is the part of live.Controller the UI drives.
type Controller interface {
	Snapshot() live.Snapshot
	Changed() <-chan struct{}
	Toggle(ctx context.Context) error
	Stop()
}

type changedMsg struct{}

type tickMsg time.Time

type toggledMsg struct{ err error }

// stoppedMsg reports that the session was stopped on the way out.
type stoppedMsg struct{}

// Model is the bubbletea model.
type Model struct {
	ctx    context.Context
	ctl    Controller
	labels prompts.Language
	user   string

	snap     live.Snapshot
	width    int
	err      error
	quitting bool
}

// NewModel creates the UI for ctl. lang selects the button labels.
func NewModel(ctx context.Context, ctl Controller, lang, user string) *Model {
	labels, _ := prompts.Lookup(lang)
	return &Model{
		ctx:    ctx,
		ctl:    ctl,
		labels: labels,
		user:   user,
		snap:   ctl.Snapshot(),
		width:  defaultWidth,
	}
}

// Init implements tea.Model.
func (m *Model) Init() tea.Cmd {
	return tea.Batch(m.waitForChange(), tick())
}

func (m *Model) waitForChange() tea.Cmd {
	ch := m.ctl.Changed()
	ctx := m.ctx
	return func() tea.Msg {
		select {
		case <-ch:
			return changedMsg{}
		case <-ctx.Done():
			return nil
		}
	}
}

func tick() tea.Cmd {
	return tea.Tick(refreshInterval, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

// Update implements tea.Model.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		if msg.Width > 0 {
			m.width = min(msg.Width, 100)
		}
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(msg)

	case changedMsg:
		m.snap = m.ctl.Snapshot()
		return m, m.waitForChange()

	case tickMsg:
		m.snap = m.ctl.Snapshot()
		if m.quitting {
			return m, nil
		}
		return m, tick()

	case toggledMsg:
		m.err = msg.err
		m.snap = m.ctl.Snapshot()
		return m, nil

	case stoppedMsg:
		return m, tea.Quit
	}
	return m, nil
}

func (m *Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q", "ctrl+c", "esc":
		if m.quitting {
			return m, nil
		}
		m.quitting = true
		ctl := m.ctl
		return m, func() tea.Msg {
			ctl.Stop()
			return stoppedMsg{}
		}
	case " ", "space", "enter":
		if m.quitting || m.snap.AcquireErr != nil {
			return m, nil
		}
		ctl, ctx := m.ctl, m.ctx
		return m, func() tea.Msg {
			return toggledMsg{err: ctl.Toggle(ctx)}
		}
	}
	return m, nil
}

// View implements tea.Model.
func (m *Model) View() string {
	if m.quitting {
		return ""
	}
	if m.snap.AcquireErr != nil {
		return m.renderDenied()
	}

	var b strings.Builder
	b.WriteString(m.renderHeader())
	b.WriteString("\n\n")
	b.WriteString(m.renderStatus())
	b.WriteString("\n")
	b.WriteString(m.renderMeter())
	b.WriteString("\n\n")
	b.WriteString(m.renderTranscript())
	b.WriteString("\n")
	if m.err != nil {
		b.WriteString(errorStyle.Render(m.err.Error()))
		b.WriteString("\n")
	}
	b.WriteString(m.renderFooter())
	return b.String()
}

func (m *Model) renderHeader() string {
	indicator := idleStyle.Render("○ " + m.labels.LiveMode)
	if m.snap.Live() {
		indicator = liveStyle.Render("● LIVE")
	}
	title := titleStyle.Render("AgriGuard Live")
	if m.user != "" {
		title += dimStyle.Render("  " + m.user)
	}
	gap := max(1, m.width-lipgloss.Width(title)-lipgloss.Width(indicator))
	return title + strings.Repeat(" ", gap) + indicator
}

func (m *Model) renderStatus() string {
	line := "state: " + strings.ToLower(m.snap.State.String())
	if m.snap.State == live.StateIdle && m.snap.LastEnd != "" {
		line += "  (last session: " + string(m.snap.LastEnd) + ")"
	}
	return dimStyle.Render(line)
}

func (m *Model) renderMeter() string {
	return dimStyle.Render("mic   ") + meterStyle.Render(meterBar(m.snap.Level, meterWidth))
}

// meterBar draws an RMS level on a log scale from -60 dBFS to 0.
func meterBar(level float64, width int) string {
	filled := 0
	if level > 0 {
		db := 20 * math.Log10(level)
		frac := (db + 60) / 60
		filled = int(math.Round(math.Max(0, math.Min(1, frac)) * float64(width)))
	}
	return strings.Repeat("█", filled) + strings.Repeat("░", width-filled)
}

func (m *Model) renderTranscript() string {
	style := transcriptStyle.Width(max(20, m.width-4))
	if !m.snap.Live() && m.snap.State != live.StateOpening {
		return style.Render(placeholderStyle.Render("Press space to start the live assistant."))
	}
	if m.snap.Transcript == "" {
		return style.Render(placeholderStyle.Render(Placeholder))
	}
	return style.Render(m.snap.Transcript)
}

func (m *Model) renderFooter() string {
	action := m.labels.LiveMode
	if m.snap.State != live.StateIdle {
		action = m.labels.StopLive
	}
	return dimStyle.Render(fmt.Sprintf("space: %s  •  q: quit", action))
}

func (m *Model) renderDenied() string {
	body := lipgloss.JoinVertical(lipgloss.Left,
		errorStyle.Bold(true).Render("Camera Access Denied"),
		"",
		"AgriGuard Live needs the camera and microphone.",
		dimStyle.Render(m.snap.AcquireErr.Error()),
		"",
		dimStyle.Render("q: quit"),
	)
	return deniedStyle.Render(body)
}
