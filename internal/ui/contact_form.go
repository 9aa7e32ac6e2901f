package ui

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/saravenpi/baatcheet/internal/contacts"
)

const contactSlots = 3

type contactSavedMsg struct {
	err error
}

type ContactFormModel struct {
	app             *App
	originalContact *contacts.Contact
	nameInput       textinput.Model
	userIDInputs    []textinput.Model
	emailInputs     []textinput.Model
	focusIndex      int
	err             error
	windowWidth     int
	windowHeight    int
}

// NewContactFormModel creates a form for adding or editing a contact.
func NewContactFormModel(app *App, contact *contacts.Contact) ContactFormModel {
	nameInput := textinput.New()
	nameInput.Placeholder = "Nickname"
	nameInput.Focus()
	nameInput.CharLimit = 100
	nameInput.Width = 50

	userIDInputs := make([]textinput.Model, contactSlots)
	for i := range userIDInputs {
		userIDInputs[i] = textinput.New()
		userIDInputs[i].Placeholder = fmt.Sprintf("User id %d (optional)", i+1)
		userIDInputs[i].CharLimit = 20
		userIDInputs[i].Width = 50
	}

	emailInputs := make([]textinput.Model, contactSlots)
	for i := range emailInputs {
		emailInputs[i] = textinput.New()
		emailInputs[i].Placeholder = fmt.Sprintf("Email %d (optional)", i+1)
		emailInputs[i].CharLimit = 100
		emailInputs[i].Width = 50
	}

	m := ContactFormModel{
		app:             app,
		originalContact: contact,
		nameInput:       nameInput,
		userIDInputs:    userIDInputs,
		emailInputs:     emailInputs,
	}

	if contact != nil {
		m.nameInput.SetValue(contact.Name)
		for i, id := range contact.UserIDs {
			if i < len(m.userIDInputs) {
				m.userIDInputs[i].SetValue(strconv.FormatInt(id, 10))
			}
		}
		for i, email := range contact.Emails {
			if i < len(m.emailInputs) {
				m.emailInputs[i].SetValue(email)
			}
		}
	}

	return m
}

func (m ContactFormModel) Init() tea.Cmd {
	return textinput.Blink
}

func (m ContactFormModel) backToList() (tea.Model, tea.Cmd) {
	contactsModel := resized(NewContactsListModel(m.app), m.windowWidth, m.windowHeight)
	return contactsModel, contactsModel.Init()
}

func (m ContactFormModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.windowWidth = msg.Width
		m.windowHeight = msg.Height
		return m, nil

	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c":
			return m, tea.Quit

		case "esc":
			return m.backToList()

		case "tab", "down":
			m.focusIndex = (m.focusIndex + 1) % m.totalInputs()
			m.updateFocus()
			return m, nil

		case "shift+tab", "up":
			m.focusIndex = (m.focusIndex - 1 + m.totalInputs()) % m.totalInputs()
			m.updateFocus()
			return m, nil

		case "ctrl+s":
			return m, m.saveContact()
		}

	case contactSavedMsg:
		if msg.err == nil {
			return m.backToList()
		}
		m.err = msg.err
		return m, nil
	}

	cmd := m.updateInputs(msg)
	return m, cmd
}

func (m ContactFormModel) totalInputs() int {
	return 1 + len(m.userIDInputs) + len(m.emailInputs)
}

func (m *ContactFormModel) updateFocus() {
	m.nameInput.Blur()
	for i := range m.userIDInputs {
		m.userIDInputs[i].Blur()
	}
	for i := range m.emailInputs {
		m.emailInputs[i].Blur()
	}

	switch {
	case m.focusIndex == 0:
		m.nameInput.Focus()
	case m.focusIndex <= len(m.userIDInputs):
		m.userIDInputs[m.focusIndex-1].Focus()
	default:
		emailIndex := m.focusIndex - 1 - len(m.userIDInputs)
		if emailIndex < len(m.emailInputs) {
			m.emailInputs[emailIndex].Focus()
		}
	}
}

func (m *ContactFormModel) updateInputs(msg tea.Msg) tea.Cmd {
	cmds := make([]tea.Cmd, 0, m.totalInputs())

	var cmd tea.Cmd
	m.nameInput, cmd = m.nameInput.Update(msg)
	cmds = append(cmds, cmd)

	for i := range m.userIDInputs {
		m.userIDInputs[i], cmd = m.userIDInputs[i].Update(msg)
		cmds = append(cmds, cmd)
	}

	for i := range m.emailInputs {
		m.emailInputs[i], cmd = m.emailInputs[i].Update(msg)
		cmds = append(cmds, cmd)
	}

	return tea.Batch(cmds...)
}

// buildContact validates the form fields.
func buildContact(name string, rawIDs, rawEmails []string) (contacts.Contact, error) {
	contact := contacts.Contact{Name: strings.TrimSpace(name)}
	if contact.Name == "" {
		return contact, fmt.Errorf("name is required")
	}

	for _, raw := range rawIDs {
		raw = strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(raw), "#"))
		if raw == "" {
			continue
		}
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || id <= 0 {
			return contact, fmt.Errorf("user id %q must be a number", raw)
		}
		contact.UserIDs = appendUnique(contact.UserIDs, id)
	}

	for _, raw := range rawEmails {
		if email := strings.TrimSpace(raw); email != "" {
			contact.Emails = append(contact.Emails, email)
		}
	}

	if len(contact.UserIDs) == 0 && len(contact.Emails) == 0 {
		return contact, fmt.Errorf("at least one user id or email is required")
	}
	return contact, nil
}

func (m ContactFormModel) saveContact() tea.Cmd {
	book := m.app.Contacts
	original := m.originalContact

	rawIDs := make([]string, len(m.userIDInputs))
	for i, input := range m.userIDInputs {
		rawIDs[i] = input.Value()
	}
	rawEmails := make([]string, len(m.emailInputs))
	for i, input := range m.emailInputs {
		rawEmails[i] = input.Value()
	}
	name := m.nameInput.Value()

	return func() tea.Msg {
		contact, err := buildContact(name, rawIDs, rawEmails)
		if err != nil {
			return contactSavedMsg{err: err}
		}

		if original != nil && original.Name != contact.Name {
			if err := book.Delete(original.Name); err != nil {
				return contactSavedMsg{err: fmt.Errorf("failed to delete old contact: %w", err)}
			}
		}

		return contactSavedMsg{err: book.Save(contact)}
	}
}

func (m ContactFormModel) View() string {
	var b strings.Builder

	title := "Add Contact"
	if m.originalContact != nil {
		title = "Edit Contact"
	}

	b.WriteString(titleStyle.Render(title) + "\n\n")

	focusedStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("5"))
	blurredStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("8"))

	renderInput := func(input textinput.Model, label string, focused bool) {
		style := blurredStyle
		if focused {
			style = focusedStyle
		}
		b.WriteString(style.Render(label) + "\n")
		b.WriteString(input.View() + "\n\n")
	}

	renderInput(m.nameInput, "Nickname (required):", m.focusIndex == 0)

	b.WriteString(normalStyle.Render("User ids:") + "\n")
	for i, input := range m.userIDInputs {
		renderInput(input, fmt.Sprintf("  User %d:", i+1), m.focusIndex == i+1)
	}

	b.WriteString(normalStyle.Render("Email Addresses:") + "\n")
	for i, input := range m.emailInputs {
		emailIndex := i + 1 + len(m.userIDInputs)
		renderInput(input, fmt.Sprintf("  Email %d:", i+1), m.focusIndex == emailIndex)
	}

	if m.err != nil {
		b.WriteString(errorStyle.Render(fmt.Sprintf("Error: %v", m.err)) + "\n\n")
	}

	b.WriteString(helpStyle.Render("tab/↑↓: navigate • ctrl+s: save • esc: cancel"))

	return b.String()
}
