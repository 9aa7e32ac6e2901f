package ui

import (
	"context"
	"fmt"
	"time"

	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/muesli/reflow/truncate"

	"github.com/saravenpi/baatcheet/internal/apperr"
	"github.com/saravenpi/baatcheet/internal/models"
)

const emptyPreview = "Start talking to light it up."

type conversationItem struct {
	conv  models.Conversation
	title string
}

type conversationsFetchedMsg struct {
	conversations []models.Conversation
	err           error
}

func (i conversationItem) Title() string {
	return i.title
}

func (i conversationItem) Description() string {
	return conversationPreview(i.conv)
}

func (i conversationItem) FilterValue() string {
	return i.title
}

func conversationPreview(c models.Conversation) string {
	if c.LastMessage == nil || c.LastMessage.Text == "" {
		return emptyPreview
	}
	preview := truncate.StringWithTail(c.LastMessage.Text, 50, "...")
	when := c.LastMessage.CreatedAt
	if when.IsZero() {
		when = c.UpdatedAt
	}
	return fmt.Sprintf("%s • %s", formatTimeAgo(when), preview)
}

func formatTimeAgo(t time.Time) string {
	if t.IsZero() {
		return "unknown"
	}

	now := time.Now()
	duration := now.Sub(t)

	if duration < time.Minute {
		return "just now"
	}
	if duration < 2*time.Minute {
		return "1 min ago"
	}
	if duration < time.Hour {
		return fmt.Sprintf("%dm ago", int(duration.Minutes()))
	}
	if duration < 2*time.Hour {
		return "1h ago"
	}
	if duration < 24*time.Hour {
		return fmt.Sprintf("%dh ago", int(duration.Hours()))
	}
	if duration < 48*time.Hour {
		return "yesterday"
	}
	if duration < 7*24*time.Hour {
		return fmt.Sprintf("%dd ago", int(duration.Hours()/24))
	}
	return t.Format("Jan 2")
}

// conversationTitle prefers contact nicknames over server names for the
// other participants.
func (a *App) conversationTitle(c models.Conversation) string {
	self := a.Auth().User.ID
	named := c
	named.Participants = make([]models.Participant, len(c.Participants))
	for i, p := range c.Participants {
		if nick := a.Contacts.NameFor(p.ID); nick != "" && p.ID != self {
			p.Name = nick
		}
		named.Participants[i] = p
	}
	return named.Title(self)
}

type ConversationsModel struct {
	app           *App
	conversations []models.Conversation
	list          list.Model
	loading       bool
	err           error
	spinner       spinner.Model
	windowWidth   int
	windowHeight  int
}

func NewConversationsModel(app *App) ConversationsModel {
	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = statusStyle

	l := list.New([]list.Item{}, listDelegate(), 80, 20)
	l.Title = "Conversations"
	l.SetShowStatusBar(false)
	l.SetFilteringEnabled(true)
	l.SetShowHelp(false)

	return ConversationsModel{
		app:          app,
		list:         l,
		loading:      true,
		spinner:      s,
		windowWidth:  80,
		windowHeight: 30,
	}
}

func (m ConversationsModel) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, m.fetchConversationsCmd())
}

func (m ConversationsModel) fetchConversationsCmd() tea.Cmd {
	app := m.app
	return func() tea.Msg {
		lists := app.Conversations()
		if lists == nil {
			return conversationsFetchedMsg{err: apperr.Unauthorized("not signed in")}
		}
		ctx, cancel := context.WithTimeout(context.Background(), app.Config.Server.Timeout)
		defer cancel()
		conversations, err := lists.Refresh(ctx)
		return conversationsFetchedMsg{conversations: conversations, err: err}
	}
}

func (m *ConversationsModel) setConversations(conversations []models.Conversation) {
	m.conversations = conversations
	items := make([]list.Item, len(conversations))
	for i, c := range conversations {
		items[i] = conversationItem{conv: c, title: m.app.conversationTitle(c)}
	}
	m.list.SetItems(items)
	m.list.Title = fmt.Sprintf("Conversations - %d chats", len(conversations))
}

func (m ConversationsModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.windowWidth = msg.Width
		m.windowHeight = msg.Height
		m.list.SetWidth(msg.Width)
		m.list.SetHeight(msg.Height - 4)
		return m, nil

	case conversationsFetchedMsg:
		m.loading = false
		m.err = msg.err
		// A failed refresh still returns the last good list.
		m.setConversations(msg.conversations)
		return m, nil

	case spinner.TickMsg:
		if m.loading {
			var cmd tea.Cmd
			m.spinner, cmd = m.spinner.Update(msg)
			return m, cmd
		}
		return m, nil

	case tea.KeyMsg:
		if msg.String() == "ctrl+c" {
			return m, tea.Quit
		}

		if m.list.FilterState() == list.Filtering {
			var cmd tea.Cmd
			m.list, cmd = m.list.Update(msg)
			return m, cmd
		}

		switch msg.String() {
		case "q":
			return m, tea.Quit

		case "esc":
			menuModel := resized(NewMenuModel(m.app), m.windowWidth, m.windowHeight)
			return menuModel, menuModel.Init()

		case "r":
			if !m.loading {
				m.loading = true
				return m, tea.Batch(m.spinner.Tick, m.fetchConversationsCmd())
			}
			return m, nil

		case "n":
			newModel := resized(NewNewConversationModel(m.app), m.windowWidth, m.windowHeight)
			return newModel, newModel.Init()

		case "enter":
			if m.loading || len(m.conversations) == 0 {
				return m, nil
			}
			if item, ok := m.list.SelectedItem().(conversationItem); ok {
				messagesModel := resized(NewMessagesModel(m.app, item.conv), m.windowWidth, m.windowHeight)
				return messagesModel, messagesModel.Init()
			}
			return m, nil
		}
	}

	var cmd tea.Cmd
	m.list, cmd = m.list.Update(msg)
	return m, cmd
}

func (m ConversationsModel) View() string {
	if m.loading && len(m.conversations) == 0 {
		return fmt.Sprintf("\n  %s Loading conversations...\n", m.spinner.View())
	}

	var errLine string
	if m.err != nil {
		errLine = errorStyle.Render("Error: "+apperr.UserMessage(m.err)) + "\n"
	}

	if len(m.conversations) == 0 {
		s := titleStyle.Render("Conversations") + "\n\n"
		s += errLine
		s += normalStyle.Render("  No conversations yet. Press 'n' to start one.") + "\n"
		s += "\n" + helpStyle.Render("n: new chat • r: refresh • esc: back • q: quit")
		return s
	}

	s := m.list.View() + "\n"
	s += errLine
	s += helpStyle.Render("↑↓/jk: navigate • enter: open • n: new chat • /: search • r: refresh • esc: back • q: quit")
	return s
}
