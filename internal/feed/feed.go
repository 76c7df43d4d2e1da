// Package feed implements a bubbletea TUI for watching town-wide mail
// traffic scroll by, the live-dashboard counterpart to "gt mail inbox".
package feed

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/gastown/gtr/internal/mail"
	"github.com/gastown/gtr/internal/style"
)

// pollInterval is how often the feed re-reads every mailbox on disk.
// There is no event stream to subscribe to underneath (mail is files,
// not a bus), so polling is the only option.
const pollInterval = 2 * time.Second

// historyLimit caps how many messages the feed keeps rendered at once.
const historyLimit = 200

var (
	headerStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("6"))
	metaStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
	urgentStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("1")).Bold(true)
)

// Model is the feed's bubbletea model: one scrolling viewport over the
// rendered mail history, refreshed on a timer.
type Model struct {
	width, height int
	vp            viewport.Model
	messages      []*mail.Message
	lastErr       error
	followTail    bool
}

// NewModel creates a feed model. The viewport starts at zero size;
// the first tea.WindowSizeMsg sizes it for real.
func NewModel() *Model {
	return &Model{
		vp:         viewport.New(0, 0),
		followTail: true,
	}
}

func (m *Model) Init() tea.Cmd {
	return tea.Batch(m.fetch(), tick(), tea.SetWindowTitle("gt feed"))
}

type messagesMsg struct {
	messages []*mail.Message
	err      error
}

type tickMsg time.Time

func tick() tea.Cmd {
	return tea.Tick(pollInterval, func(t time.Time) tea.Msg { return tickMsg(t) })
}

func (m *Model) fetch() tea.Cmd {
	return func() tea.Msg {
		msgs, err := mail.Recent(historyLimit)
		return messagesMsg{messages: msgs, err: err}
	}
}

func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			return m, tea.Quit
		case "g":
			m.vp.GotoTop()
			m.followTail = false
			return m, nil
		case "G":
			m.vp.GotoBottom()
			m.followTail = true
			return m, nil
		}

	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		m.vp.Width = msg.Width
		m.vp.Height = msg.Height - 1 // reserve the status line
		m.vp.SetContent(m.render())

	case messagesMsg:
		m.messages = msg.messages
		m.lastErr = msg.err
		atBottom := m.vp.AtBottom()
		m.vp.SetContent(m.render())
		if m.followTail || atBottom {
			m.vp.GotoBottom()
		}
		return m, tick()

	case tickMsg:
		return m, m.fetch()
	}

	var cmd tea.Cmd
	m.vp, cmd = m.vp.Update(msg)
	return m, cmd
}

func (m *Model) View() string {
	status := metaStyle.Render(fmt.Sprintf(" %d messages · q quit · g/G top/bottom ", len(m.messages)))
	if m.lastErr != nil {
		status = urgentStyle.Render(fmt.Sprintf(" error reading mail: %v ", m.lastErr))
	}
	return m.vp.View() + "\n" + status
}

// render renders the message history oldest-first, each body pushed
// through glamour so escalation notes written as markdown show up
// formatted rather than as raw asterisks and backticks.
func (m *Model) render() string {
	if len(m.messages) == 0 {
		return metaStyle.Render("(no mail yet)")
	}

	ordered := make([]*mail.Message, len(m.messages))
	copy(ordered, m.messages)
	reverse(ordered)

	var b strings.Builder
	for _, msg := range ordered {
		header := fmt.Sprintf("%s  %s -> %s  [%s]", msg.Timestamp.Format("15:04:05"), msg.From, msg.To, msg.Subject)
		if msg.Priority == mail.PriorityUrgent || msg.Priority == mail.PriorityHigh {
			b.WriteString(urgentStyle.Render(header))
		} else {
			b.WriteString(headerStyle.Render(header))
		}
		b.WriteString("\n")
		if msg.Body != "" {
			b.WriteString(style.RenderMarkdown(msg.Body, m.width-2))
		}
		b.WriteString("\n")
	}
	return b.String()
}

func reverse(m []*mail.Message) {
	for i, j := 0, len(m)-1; i < j; i, j = i+1, j-1 {
		m[i], m[j] = m[j], m[i]
	}
}
