// Package progress renders a live, per-task view of a running build by
// subscribing to an internal/eventbus.Bus and driving a Bubble Tea
// program from the events it receives, rather than polling — the same
// "subscribe to a channel, pump events into tea.Msg values" shape
// the teacher's watch mode uses for its own refresh timer, adapted
// from polling a status store to streaming a live bus.
package progress

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	tea "charm.land/bubbletea/v2"
	"charm.land/lipgloss/v2"

	"github.com/enri312/forge/internal/eventbus"
)

var (
	styleRunning = lipgloss.NewStyle().Foreground(lipgloss.Color("#00D7FF"))
	styleSuccess = lipgloss.NewStyle().Foreground(lipgloss.Color("#5FD75F"))
	styleFailed  = lipgloss.NewStyle().Foreground(lipgloss.Color("#FF5F5F"))
	styleMuted   = lipgloss.NewStyle().Foreground(lipgloss.Color("#808080"))
)

// taskRow is the display state the model tracks for one task.
type taskRow struct {
	name       string
	state      string
	cached     bool
	durationMs int64
}

// eventMsg wraps one bus event as a tea.Msg.
type eventMsg eventbus.Event

// doneMsg signals the subscription channel closed (the bus's
// producer side is gone and there is nothing left to render).
type doneMsg struct{}

// Model is the Bubble Tea model driving the live progress view. It
// never touches the scheduler directly; everything it knows comes
// from the events it receives on its subscription.
type Model struct {
	sub       *eventbus.Subscription
	rows      map[string]*taskRow
	order     []string
	buildID   string
	success   bool
	finished  bool
	startedAt time.Time
	width     int
}

// New returns a Model subscribed to bus. The caller owns bus's
// lifetime; the model unsubscribes itself when its program quits.
func New(bus *eventbus.Bus) *Model {
	return &Model{
		sub:   bus.Subscribe(),
		rows:  make(map[string]*taskRow),
		width: 80,
	}
}

// Run starts a Bubble Tea program driving m until the build finishes
// or ctx is canceled, whichever comes first.
func Run(ctx context.Context, m *Model) error {
	p := tea.NewProgram(m, tea.WithContext(ctx))
	_, err := p.Run()
	return err
}

// Init implements tea.Model.
func (m *Model) Init() tea.Cmd {
	return waitForEvent(m.sub)
}

// Update implements tea.Model.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		return m, nil

	case tea.KeyMsg:
		if msg.String() == "ctrl+c" || msg.String() == "q" {
			m.sub.Unsubscribe()
			return m, tea.Quit
		}
		return m, nil

	case eventMsg:
		m.apply(eventbus.Event(msg))
		if m.finished {
			return m, tea.Quit
		}
		return m, waitForEvent(m.sub)

	case doneMsg:
		return m, tea.Quit
	}
	return m, nil
}

// View implements tea.Model.
func (m *Model) View() tea.View {
	var b strings.Builder
	if m.buildID != "" {
		fmt.Fprintf(&b, "build %s\n", m.buildID)
	}
	for _, name := range m.order {
		row := m.rows[name]
		b.WriteString(renderRow(row, m.width))
		b.WriteByte('\n')
	}
	if m.finished {
		status := styleSuccess.Render("success")
		if !m.success {
			status = styleFailed.Render("failed")
		}
		fmt.Fprintf(&b, "\nbuild %s\n", status)
	}
	return tea.NewView(b.String())
}

func renderRow(row *taskRow, width int) string {
	label := row.name
	maxName := width - 20
	if maxName > 0 && len(label) > maxName {
		label = label[:maxName-1] + "…"
	}

	switch row.state {
	case "running":
		return fmt.Sprintf("  %s %s", styleRunning.Render("▸"), label)
	case "failed":
		return fmt.Sprintf("  %s %s", styleFailed.Render("✗"), label)
	case "cached":
		return fmt.Sprintf("  %s %s %s", styleSuccess.Render("✓"), label, styleMuted.Render("(cached)"))
	case "success":
		return fmt.Sprintf("  %s %s %s", styleSuccess.Render("✓"), label, styleMuted.Render(fmt.Sprintf("%dms", row.durationMs)))
	case "skipped-upstream":
		return fmt.Sprintf("  %s %s %s", styleMuted.Render("·"), label, styleMuted.Render("(skipped)"))
	default:
		return fmt.Sprintf("  %s %s", styleMuted.Render("○"), label)
	}
}

func (m *Model) apply(ev eventbus.Event) {
	switch ev.Type {
	case eventbus.TypeBuildStarted:
		m.buildID = ev.BuildID
		m.startedAt = ev.At

	case eventbus.TypeBuildFinished:
		m.finished = true
		m.success = ev.Success

	case eventbus.TypeTaskStarted:
		m.upsert(ev.TaskName).state = "running"

	case eventbus.TypeTaskFinished:
		row := m.upsert(ev.TaskName)
		row.durationMs = ev.DurationMs
		row.cached = ev.Cached
		switch {
		case ev.Failed:
			row.state = "failed"
		case ev.Cached:
			row.state = "cached"
		default:
			row.state = "success"
		}
	}
}

func (m *Model) upsert(name string) *taskRow {
	row, ok := m.rows[name]
	if !ok {
		row = &taskRow{name: name, state: "pending"}
		m.rows[name] = row
		m.order = append(m.order, name)
		sort.Strings(m.order)
	}
	return row
}

// waitForEvent returns a tea.Cmd that blocks on the subscription's
// channel and translates the next event (or its closure) into a
// tea.Msg, the standard Bubble Tea pattern for bridging an external
// channel into the program's message loop.
func waitForEvent(sub *eventbus.Subscription) tea.Cmd {
	return func() tea.Msg {
		ev, ok := <-sub.C
		if !ok {
			return doneMsg{}
		}
		return eventMsg(ev)
	}
}
