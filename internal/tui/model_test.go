package tui

import (
	"context"
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"

	"symptombot/internal/bot"
	"symptombot/internal/domain"
	"symptombot/internal/service"
)

func newModel() Model {
	engine := service.New(&domain.KnowledgeBase{
		Symptoms: []domain.Symptom{"fever"},
		Diseases: map[domain.Symptom][]domain.Disease{"fever": {"flu"}},
	}, service.Config{Threshold: 0.9})
	return New(context.Background(), bot.NewHandler(engine), engine, "1 symptom loaded")
}

func typeLine(m tea.Model, text string) (tea.Model, tea.Cmd) {
	for _, r := range text {
		m, _ = m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{r}})
	}
	return m.Update(tea.KeyMsg{Type: tea.KeyEnter})
}

func TestConsoleGreetsAndAnswers(t *testing.T) {
	var m tea.Model = newModel()
	m, _ = m.Update(tea.WindowSizeMsg{Width: 80, Height: 30})

	if !strings.Contains(m.View(), bot.Greeting) {
		t.Fatalf("greeting missing from view:\n%s", m.View())
	}
	m, cmd := typeLine(m, "fever")
	if cmd != nil {
		t.Error("free text should not quit")
	}
	cm := m.(Model)
	if len(cm.history) != 3 || !strings.Contains(cm.history[2].text, "'flu'") {
		t.Errorf("history = %+v", cm.history)
	}
	if !strings.Contains(cm.status, `"fever"`) {
		t.Errorf("status = %q", cm.status)
	}
}

func TestConsoleExitQuits(t *testing.T) {
	var m tea.Model = newModel()
	m, _ = m.Update(tea.WindowSizeMsg{Width: 80, Height: 30})
	m, cmd := typeLine(m, "/exit")
	if cmd == nil {
		t.Fatal("expected quit command")
	}
	if _, ok := cmd().(tea.QuitMsg); !ok {
		t.Error("command is not tea.Quit")
	}
	if !strings.Contains(m.View(), bot.Goodbye) {
		t.Errorf("goodbye missing from final view:\n%s", m.View())
	}
}

func TestConsoleIgnoresBlankInput(t *testing.T) {
	var m tea.Model = newModel()
	m, _ = m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	if len(m.(Model).history) != 1 {
		t.Error("blank input produced a turn")
	}
}
