package ui

import (
	"context"
	"fmt"

	"github.com/charmbracelet/bubbles/list"
	tea "github.com/charmbracelet/bubbletea"
)

const (
	menuConversations = "💬 Conversations"
	menuContacts      = "👥 Contacts"
	menuLogout        = "🚪 Log out"
)

type menuItem struct {
	title string
	desc  string
}

func (i menuItem) FilterValue() string { return i.title }
func (i menuItem) Title() string       { return i.title }
func (i menuItem) Description() string { return i.desc }

type loggedOutMsg struct {
	err error
}

type MenuModel struct {
	app          *App
	list         list.Model
	err          error
	windowWidth  int
	windowHeight int
}

// NewMenuModel creates the main menu shown after sign-in.
func NewMenuModel(app *App) MenuModel {
	items := []list.Item{
		menuItem{title: menuConversations, desc: "Chat with people"},
		menuItem{title: menuContacts, desc: "Nicknames for the people you talk to"},
		menuItem{title: menuLogout, desc: "Sign out and forget this device"},
	}

	l := list.New(items, listDelegate(), 80, 14)
	l.Title = "BaatCheet"
	if name := app.Auth().User.Name; name != "" {
		l.Title = fmt.Sprintf("BaatCheet - signed in as %s", name)
	}
	l.SetShowStatusBar(false)
	l.SetFilteringEnabled(false)
	l.SetShowHelp(false)

	return MenuModel{
		app:          app,
		list:         l,
		windowWidth:  80,
		windowHeight: 30,
	}
}

func (m MenuModel) Init() tea.Cmd {
	return nil
}

func (m MenuModel) logoutCmd() tea.Cmd {
	app := m.app
	return func() tea.Msg {
		return loggedOutMsg{err: app.SignOut(context.Background())}
	}
}

func (m MenuModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.windowWidth = msg.Width
		m.windowHeight = msg.Height
		m.list.SetWidth(msg.Width)
		m.list.SetHeight(msg.Height - 4)
		return m, nil

	case loggedOutMsg:
		if msg.err != nil {
			m.app.Logger.Warn("logout left a stored session", "error", msg.err)
		}
		loginModel := resized(NewLoginModel(m.app), m.windowWidth, m.windowHeight)
		return loginModel, loginModel.Init()

	case tea.KeyMsg:
		if msg.String() == "ctrl+c" || msg.String() == "q" {
			return m, tea.Quit
		}

		if msg.String() == "enter" {
			selectedItem, ok := m.list.SelectedItem().(menuItem)
			if !ok {
				return m, nil
			}

			switch selectedItem.title {
			case menuConversations:
				conversationsModel := resized(NewConversationsModel(m.app), m.windowWidth, m.windowHeight)
				return conversationsModel, conversationsModel.Init()
			case menuContacts:
				contactsModel := resized(NewContactsListModel(m.app), m.windowWidth, m.windowHeight)
				return contactsModel, contactsModel.Init()
			case menuLogout:
				return m, m.logoutCmd()
			}
		}
	}

	var cmd tea.Cmd
	m.list, cmd = m.list.Update(msg)
	return m, cmd
}

func (m MenuModel) View() string {
	s := m.list.View() + "\n"
	s += helpStyle.Render("↑↓/jk: navigate • enter: select • q: quit")
	return s
}
