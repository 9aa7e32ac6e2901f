package ui

import (
	"context"
	"strconv"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/saravenpi/baatcheet/internal/apperr"
	"github.com/saravenpi/baatcheet/internal/models"
)

type conversationCreatedMsg struct {
	conv models.Conversation
	err  error
}

type NewConversationModel struct {
	app          *App
	userInput    textinput.Model
	creating     bool
	windowWidth  int
	windowHeight int
	err          error
}

func NewNewConversationModel(app *App) NewConversationModel {
	userInput := textinput.New()
	userInput.Placeholder = "User id (e.g., 42)"
	userInput.Focus()
	userInput.CharLimit = 20
	userInput.Width = 40

	return NewConversationModel{
		app:       app,
		userInput: userInput,
	}
}

// parseUserID validates the user id typed into the new chat form.
func parseUserID(raw string) (int64, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0, apperr.InvalidArg("Enter a user id to start a private chat.")
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, apperr.InvalidArg("User id must be a number.")
	}
	return id, nil
}

func (m NewConversationModel) Init() tea.Cmd {
	return textinput.Blink
}

func (m NewConversationModel) createCmd(userID int64) tea.Cmd {
	app := m.app
	return func() tea.Msg {
		lists := app.Conversations()
		if lists == nil {
			return conversationCreatedMsg{err: apperr.Unauthorized("not signed in")}
		}
		ctx, cancel := context.WithTimeout(context.Background(), app.Config.Server.Timeout)
		defer cancel()
		conv, err := lists.StartPrivate(ctx, userID)
		return conversationCreatedMsg{conv: conv, err: err}
	}
}

func (m NewConversationModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.windowWidth = msg.Width
		m.windowHeight = msg.Height
		m.userInput.Width = msg.Width - 20
		return m, nil

	case conversationCreatedMsg:
		m.creating = false
		if msg.err != nil {
			m.err = msg.err
			return m, nil
		}
		messagesModel := resized(NewMessagesModel(m.app, msg.conv), m.windowWidth, m.windowHeight)
		return messagesModel, messagesModel.Init()

	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c":
			return m, tea.Quit

		case "esc":
			conversationsModel := resized(NewConversationsModel(m.app), m.windowWidth, m.windowHeight)
			return conversationsModel, conversationsModel.Init()

		case "enter":
			if m.creating {
				return m, nil
			}
			userID, err := parseUserID(m.userInput.Value())
			if err != nil {
				m.err = err
				return m, nil
			}
			m.err = nil
			m.creating = true
			return m, m.createCmd(userID)
		}
	}

	var cmd tea.Cmd
	m.userInput, cmd = m.userInput.Update(msg)
	return m, cmd
}

func (m NewConversationModel) View() string {
	style := lipgloss.NewStyle().
		Padding(1, 2).
		Border(lipgloss.RoundedBorder()).
		BorderForeground(lipgloss.Color("5"))

	content := titleStyle.Render("New Private Chat") + "\n\n"
	content += style.Render("> Start a chat with user:\n" + m.userInput.View())

	if m.creating {
		content += "\n\n" + statusStyle.Render("Opening chat...")
	} else if m.err != nil {
		content += "\n\n" + errorStyle.Render(apperr.UserMessage(m.err))
	}

	content += "\n\n" + helpStyle.Render("enter: open chat • esc: back")
	return content
}
