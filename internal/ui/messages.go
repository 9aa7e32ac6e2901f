package ui

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textarea"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/reflow/wordwrap"

	"github.com/saravenpi/baatcheet/internal/apperr"
	"github.com/saravenpi/baatcheet/internal/convsync"
	"github.com/saravenpi/baatcheet/internal/models"
)

type snapshotMsg struct {
	session *convsync.Session
	snap    convsync.Snapshot
}

type sessionEndedMsg struct {
	session *convsync.Session
}

// listenSession waits for the next snapshot of s.
func listenSession(s *convsync.Session) tea.Cmd {
	if s == nil {
		return nil
	}
	return func() tea.Msg {
		snap, ok := <-s.Updates()
		if !ok {
			return sessionEndedMsg{session: s}
		}
		return snapshotMsg{session: s, snap: snap}
	}
}

func (a *App) openConversation(conversationID int64) *convsync.Session {
	engine := a.Engine()
	if engine == nil {
		return nil
	}
	return engine.Open(context.Background(), conversationID)
}

func (a *App) leaveConversation(conversationID int64) {
	if engine := a.Engine(); engine != nil {
		engine.Leave(conversationID)
	}
}

type MessagesModel struct {
	app          *App
	conv         models.Conversation
	title        string
	session      *convsync.Session
	snap         convsync.Snapshot
	viewport     viewport.Model
	textarea     textarea.Model
	composing    bool
	scrolled     bool
	sendErr      error
	spinner      spinner.Model
	windowWidth  int
	windowHeight int
}

// NewMessagesModel opens conv, closing whichever conversation was open.
func NewMessagesModel(app *App, conv models.Conversation) MessagesModel {
	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = statusStyle

	vp := viewport.New(80, 20)
	vp.HighPerformanceRendering = false

	ta := textarea.New()
	ta.Placeholder = "Type your message..."
	ta.CharLimit = 1000
	ta.SetHeight(3)
	ta.ShowLineNumbers = false
	ta.KeyMap.InsertNewline.SetKeys("alt+enter", "ctrl+j")

	m := MessagesModel{
		app:          app,
		conv:         conv,
		title:        app.conversationTitle(conv),
		viewport:     vp,
		textarea:     ta,
		spinner:      s,
		windowWidth:  80,
		windowHeight: 30,
	}
	m.session = app.openConversation(conv.ID)
	if m.session != nil {
		m.snap = m.session.Snapshot()
	}
	return m
}

func (m MessagesModel) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, listenSession(m.session))
}

func (m MessagesModel) loading() bool {
	return m.session != nil && !m.snap.Failed() &&
		(m.snap.State == convsync.StateIdle || m.snap.State == convsync.StateLoading)
}

// otherParticipant returns the single other member of a private chat.
func (m MessagesModel) otherParticipant() (models.Participant, bool) {
	self := m.app.Auth().User.ID
	var others []models.Participant
	for _, p := range m.conv.Participants {
		if p.ID != self {
			others = append(others, p)
		}
	}
	if len(others) != 1 {
		return models.Participant{}, false
	}
	return others[0], true
}

func (m MessagesModel) canAddContact() bool {
	p, ok := m.otherParticipant()
	return ok && m.app.Contacts.NameFor(p.ID) == ""
}

func (m *MessagesModel) resize() {
	headerHeight := 4
	textareaHeight := 5
	helpHeight := 2
	availableHeight := m.windowHeight - headerHeight - helpHeight

	m.viewport.Width = m.windowWidth - 4
	m.viewport.Height = availableHeight
	if m.composing {
		m.viewport.Height = availableHeight - textareaHeight
		m.textarea.SetWidth(m.windowWidth - 4)
	}
	if m.viewport.Height < 3 {
		m.viewport.Height = 3
	}
}

// scroll feeds msg to the viewport; any movement counts as reading.
func (m *MessagesModel) scroll(msg tea.Msg) tea.Cmd {
	before := m.viewport.YOffset
	var cmd tea.Cmd
	m.viewport, cmd = m.viewport.Update(msg)
	if m.viewport.YOffset != before && m.session != nil {
		m.scrolled = true
		m.session.MarkRead()
	}
	return cmd
}

func (m MessagesModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.windowWidth = msg.Width
		m.windowHeight = msg.Height
		m.resize()
		m.updateViewportContent()
		return m, nil

	case snapshotMsg:
		if msg.session != m.session {
			return m, nil
		}
		follow := m.viewport.AtBottom() || !m.scrolled
		m.snap = msg.snap
		m.updateViewportContent()
		if follow {
			m.viewport.GotoBottom()
		}
		return m, listenSession(m.session)

	case sessionEndedMsg:
		return m, nil

	case spinner.TickMsg:
		if m.loading() {
			var cmd tea.Cmd
			m.spinner, cmd = m.spinner.Update(msg)
			return m, cmd
		}
		return m, nil

	case tea.MouseMsg:
		return m, m.scroll(msg)

	case tea.KeyMsg:
		if msg.String() == "ctrl+c" {
			return m, tea.Quit
		}

		if msg.String() == "esc" {
			if m.composing {
				m.composing = false
				m.textarea.Blur()
				m.sendErr = nil
				m.resize()
				return m, nil
			}
			m.app.leaveConversation(m.conv.ID)
			conversationsModel := resized(NewConversationsModel(m.app), m.windowWidth, m.windowHeight)
			return conversationsModel, conversationsModel.Init()
		}

		if m.composing {
			switch msg.String() {
			case "enter", "ctrl+s":
				return m.send()
			default:
				var cmd tea.Cmd
				m.textarea, cmd = m.textarea.Update(msg)
				return m, cmd
			}
		}

		switch msg.String() {
		case "q":
			return m, tea.Quit

		case "n", "c", "i":
			if m.snap.State != convsync.StateLive {
				return m, nil
			}
			m.composing = true
			m.resize()
			m.textarea.Focus()
			return m, textarea.Blink

		case "a":
			if p, ok := m.otherParticipant(); ok && m.canAddContact() {
				quickForm := resized(NewQuickContactFormModel(m.app, m, p), m.windowWidth, m.windowHeight)
				return quickForm, quickForm.Init()
			}
			return m, nil

		case "r":
			if !m.snap.Failed() {
				return m, nil
			}
			m.session = m.app.openConversation(m.conv.ID)
			if m.session != nil {
				m.snap = m.session.Snapshot()
			}
			return m, tea.Batch(m.spinner.Tick, listenSession(m.session))

		default:
			return m, m.scroll(msg)
		}
	}

	return m, nil
}

func (m MessagesModel) send() (tea.Model, tea.Cmd) {
	if m.session == nil {
		return m, nil
	}
	if _, err := m.session.Send(m.textarea.Value()); err != nil {
		m.sendErr = err
		return m, nil
	}
	m.sendErr = nil
	m.scrolled = false
	m.textarea.Reset()
	return m, nil
}

// senderLabel renders the header line of a message.
func (m MessagesModel) senderLabel(message models.Message) string {
	sender := m.app.SenderName(message)
	if !message.Confirmed() {
		sender = "You"
	}
	return fmt.Sprintf("%s • %s", sender, message.CreatedAt.Local().Format("3:04 PM"))
}

func messageBody(message models.Message) string {
	if message.Text != "" {
		return message.Text
	}
	if message.Type != "" && message.Type != "text" {
		return fmt.Sprintf("[%s]", message.Type)
	}
	return ""
}

func statusMarker(message models.Message) string {
	switch message.Status {
	case models.StatusPending:
		return pendingStyle.Render("sending…")
	case models.StatusFailed:
		return failedStyle.Render("failed to send")
	default:
		return ""
	}
}

func (m *MessagesModel) updateViewportContent() {
	if len(m.snap.Messages) == 0 {
		m.viewport.SetContent("")
		return
	}

	var content strings.Builder
	wrapWidth := m.viewport.Width
	if wrapWidth <= 0 {
		wrapWidth = 80
	}
	self := m.app.Auth().User.ID
	right := lipgloss.NewStyle().Align(lipgloss.Right).Width(wrapWidth)

	// Snapshots are newest first; the viewport reads top to bottom.
	for i := len(m.snap.Messages) - 1; i >= 0; i-- {
		message := m.snap.Messages[i]
		if i < len(m.snap.Messages)-1 {
			content.WriteString("\n")
		}

		header := messageHeaderStyle.Render(m.senderLabel(message))
		body := messageBody(message)
		marker := statusMarker(message)

		if message.SenderID == self || !message.Confirmed() {
			content.WriteString(right.Render(header) + "\n")
			if body != "" {
				wrapped := wordwrap.String(body, wrapWidth-10)
				content.WriteString(right.Render(messageFromMeStyle.Render(wrapped)) + "\n")
			}
			if marker != "" {
				content.WriteString(right.Render(marker) + "\n")
			}
			continue
		}

		content.WriteString(header + "\n")
		if body != "" {
			wrapped := wordwrap.String(body, wrapWidth-10)
			content.WriteString(messageFromOtherStyle.Render(wrapped) + "\n")
		}
	}

	m.viewport.SetContent(content.String())
}

func (m MessagesModel) View() string {
	s := titleStyle.Render(fmt.Sprintf("💬 %s", m.title)) + "\n"

	switch {
	case m.session == nil:
		s += errorStyle.Render("You are signed out.") + "\n\n"
		s += helpStyle.Render("esc: back")
		return s

	case m.snap.Failed():
		s += errorStyle.Render("Could not load messages: "+apperr.UserMessage(m.snap.Err)) + "\n\n"
		s += helpStyle.Render("r: retry • esc: back • q: quit")
		return s

	case m.loading():
		return s + fmt.Sprintf("\n  %s Loading messages...\n", m.spinner.View())
	}

	if len(m.snap.Messages) == 0 {
		s += normalStyle.Render("  No messages yet. Say hi!") + "\n"
	} else {
		s += m.viewport.View() + "\n"
	}

	if m.composing {
		s += "\n" + inputStyle.Render("New Message:") + "\n"
		s += m.textarea.View() + "\n"
		if m.sendErr != nil {
			s += errorStyle.Render(apperr.UserMessage(m.sendErr)) + "\n"
		}
		s += helpStyle.Render("enter: send • alt+enter: new line • esc: stop typing")
		return s
	}

	scrollPercent := int(m.viewport.ScrollPercent() * 100)
	helpText := fmt.Sprintf("↑↓/jk: scroll • n: new message • esc: back • q: quit • %d%%", scrollPercent)
	if m.canAddContact() {
		helpText = fmt.Sprintf("↑↓/jk: scroll • n: new message • a: add contact • esc: back • q: quit • %d%%", scrollPercent)
	}
	s += "\n" + helpStyle.Render(helpText)
	return s
}
