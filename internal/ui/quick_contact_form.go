package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/saravenpi/baatcheet/internal/contacts"
	"github.com/saravenpi/baatcheet/internal/models"
)

type quickContactSavedMsg struct {
	err error
}

// QuickContactFormModel nicknames the other person of an open chat. The
// chat keeps syncing underneath and is returned to afterwards.
type QuickContactFormModel struct {
	app          *App
	back         MessagesModel
	participant  models.Participant
	nameInput    textinput.Model
	err          error
	windowWidth  int
	windowHeight int
}

func NewQuickContactFormModel(app *App, back MessagesModel, participant models.Participant) QuickContactFormModel {
	nameInput := textinput.New()
	nameInput.Placeholder = "Nickname"
	nameInput.Focus()
	nameInput.CharLimit = 100
	nameInput.Width = 50
	nameInput.SetValue(participant.Name)

	return QuickContactFormModel{
		app:         app,
		back:        back,
		participant: participant,
		nameInput:   nameInput,
	}
}

func (m QuickContactFormModel) Init() tea.Cmd {
	return textinput.Blink
}

func (m QuickContactFormModel) returnToChat() (tea.Model, tea.Cmd) {
	back := m.back
	back.title = m.app.conversationTitle(back.conv)
	back.updateViewportContent()
	if m.windowWidth > 0 {
		updated, _ := back.Update(tea.WindowSizeMsg{Width: m.windowWidth, Height: m.windowHeight})
		back = updated.(MessagesModel)
	}
	return back, nil
}

func (m QuickContactFormModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.windowWidth = msg.Width
		m.windowHeight = msg.Height
		return m, nil

	case snapshotMsg, sessionEndedMsg:
		updated, cmd := m.back.Update(msg)
		m.back = updated.(MessagesModel)
		return m, cmd

	case quickContactSavedMsg:
		if msg.err == nil {
			return m.returnToChat()
		}
		m.err = msg.err
		return m, nil

	case tea.KeyMsg:
		if msg.String() == "ctrl+c" {
			return m, tea.Quit
		}

		if msg.String() == "esc" {
			return m.returnToChat()
		}

		if msg.String() == "enter" || msg.String() == "ctrl+s" {
			return m, m.saveContact()
		}
	}

	var cmd tea.Cmd
	m.nameInput, cmd = m.nameInput.Update(msg)
	return m, cmd
}

func (m QuickContactFormModel) saveContact() tea.Cmd {
	book := m.app.Contacts
	name := strings.TrimSpace(m.nameInput.Value())
	userID := m.participant.ID
	return func() tea.Msg {
		if name == "" {
			return quickContactSavedMsg{err: fmt.Errorf("name is required")}
		}

		contact := contacts.Contact{Name: name, UserIDs: []int64{userID}}
		if existing, err := book.Load(name); err == nil {
			contact = *existing
			contact.UserIDs = appendUnique(contact.UserIDs, userID)
		}
		return quickContactSavedMsg{err: book.Save(contact)}
	}
}

func appendUnique(ids []int64, id int64) []int64 {
	for _, existing := range ids {
		if existing == id {
			return ids
		}
	}
	return append(ids, id)
}

func (m QuickContactFormModel) View() string {
	var b strings.Builder

	b.WriteString(titleStyle.Render("Add Contact") + "\n\n")
	label := fmt.Sprintf("User #%d", m.participant.ID)
	if m.participant.Name != "" {
		label += " (" + m.participant.Name + ")"
	}
	b.WriteString(normalStyle.Render(label) + "\n\n")

	focusedStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("5"))
	b.WriteString(focusedStyle.Render("Nickname:") + "\n")
	b.WriteString(m.nameInput.View() + "\n\n")

	if m.err != nil {
		b.WriteString(errorStyle.Render(fmt.Sprintf("Error: %v", m.err)) + "\n\n")
	}

	b.WriteString(helpStyle.Render("enter/ctrl+s: save • esc: cancel"))

	return b.String()
}
