// Package tui is a terminal chat console for talking to the bot locally.
package tui

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"symptombot/internal/bot"
	"symptombot/internal/domain"
)

// Searcher reports the closest symptoms for the status line. Optional.
type Searcher interface {
	Candidates(text string, topK int) []domain.ScoredSymptom
}

type turn struct {
	user bool
	text string
}

// Model is the Bubble Tea model for the chat console.
type Model struct {
	ctx      context.Context
	conv     domain.Conversation
	searcher Searcher
	input    textinput.Model
	viewport viewport.Model
	history  []turn
	summary  string
	status   string
	ready    bool
	quitting bool
}

// New creates a console session. The greeting is shown as the first bot turn.
func New(ctx context.Context, conv domain.Conversation, searcher Searcher, summary string) Model {
	ti := textinput.New()
	ti.Prompt = "> "
	ti.Placeholder = "Describe a symptom and press Enter (/exit to quit)"
	ti.Focus()
	ti.CharLimit = 500
	vp := viewport.New(0, 0)
	m := Model{
		ctx:      ctx,
		conv:     conv,
		searcher: searcher,
		input:    ti,
		viewport: vp,
		summary:  summary,
		status:   "Ready.",
	}
	m.history = append(m.history, turn{text: bot.Respond(ctx, conv, domain.Message{Source: "console", Command: domain.CommandStart})})
	return m
}

func (m Model) Init() tea.Cmd { return textinput.Blink }

// Update handles key and window events and updates the view state.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.ready = true
		_, th := transcriptBoxStyle.GetFrameSize()
		_, ih := inputBoxStyle.GetFrameSize()
		reserved := 2 + 1 + ih + 1 // header + summary, status, spacer
		vh := msg.Height - reserved
		m.viewport.Width = max(20, msg.Width)
		m.viewport.Height = max(3, vh-th)
		m.refresh()
		return m, nil
	case tea.KeyMsg:
		if msg.Type == tea.KeyCtrlC || msg.Type == tea.KeyCtrlD {
			m.quitting = true
			return m, tea.Quit
		}
		if msg.Type == tea.KeyEnter {
			text := strings.TrimSpace(m.input.Value())
			if text == "" {
				return m, nil
			}
			m.input.SetValue("")
			return m.send(text)
		}
	}
	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m Model) send(text string) (tea.Model, tea.Cmd) {
	cmd, rest := bot.ParseCommand(text)
	msg := domain.Message{Source: "console", ChatID: "console", Command: cmd, Text: rest}
	reply := bot.Respond(m.ctx, m.conv, msg)
	m.history = append(m.history, turn{user: true, text: text}, turn{text: reply})
	m.status = m.describe(cmd, rest)
	m.refresh()
	if cmd == domain.CommandExit {
		m.quitting = true
		return m, tea.Quit
	}
	return m, nil
}

func (m Model) describe(cmd domain.Command, text string) string {
	if cmd != domain.CommandNone {
		return fmt.Sprintf("Command /%s", cmd)
	}
	if m.searcher == nil {
		return ""
	}
	cands := m.searcher.Candidates(text, 1)
	if len(cands) == 0 {
		return "No vocabulary loaded."
	}
	return fmt.Sprintf("Closest symptom %q  score=%.3f", cands[0].Symptom, cands[0].Score)
}

func (m *Model) refresh() {
	m.viewport.SetContent(m.renderTranscript())
	m.viewport.GotoBottom()
}

// View renders the header, transcript, input box and status line.
func (m Model) View() string {
	if m.quitting {
		return m.renderTranscript() + "\n"
	}
	if !m.ready {
		return "Loading..."
	}
	header := lipgloss.NewStyle().Bold(true).Render("Healthcare Chatbot")
	summary := lipgloss.NewStyle().Foreground(lipgloss.Color("8")).Render(m.summary)
	transcript := transcriptBoxStyle.Render(m.viewport.View())
	input := inputBoxStyle.Render(m.input.View())
	status := lipgloss.NewStyle().Foreground(lipgloss.Color("10")).Render(m.status)
	return header + "\n" + summary + "\n" + transcript + "\n" + input + "\n" + status
}

func (m Model) renderTranscript() string {
	lines := make([]string, 0, len(m.history))
	for _, t := range m.history {
		if t.user {
			lines = append(lines, userStyle.Render("You: ")+t.text)
		} else {
			lines = append(lines, botStyle.Render("Bot: ")+t.text)
		}
	}
	return strings.Join(lines, "\n\n")
}

var (
	transcriptBoxStyle = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1)
	inputBoxStyle      = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1)
	userStyle          = lipgloss.NewStyle().Foreground(lipgloss.Color("12")).Bold(true)
	botStyle           = lipgloss.NewStyle().Foreground(lipgloss.Color("11")).Bold(true)
)
