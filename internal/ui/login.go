package ui

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/saravenpi/baatcheet/internal/apperr"
)

type loggedInMsg struct {
	err error
}

type LoginModel struct {
	app           *App
	emailInput    textinput.Model
	passwordInput textinput.Model
	focusIndex    int
	busy          bool
	spinner       spinner.Model
	err           error
	windowWidth   int
	windowHeight  int
}

func NewLoginModel(app *App) LoginModel {
	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = statusStyle

	emailInput := textinput.New()
	emailInput.Placeholder = "you@example.com"
	emailInput.Focus()
	emailInput.CharLimit = 100
	emailInput.Width = 50

	passwordInput := textinput.New()
	passwordInput.Placeholder = "Password"
	passwordInput.EchoMode = textinput.EchoPassword
	passwordInput.EchoCharacter = '•'
	passwordInput.CharLimit = 100
	passwordInput.Width = 50

	return LoginModel{
		app:           app,
		emailInput:    emailInput,
		passwordInput: passwordInput,
		spinner:       s,
	}
}

func (m LoginModel) Init() tea.Cmd {
	return textinput.Blink
}

func (m LoginModel) loginCmd(email, password string) tea.Cmd {
	app := m.app
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), app.Config.Server.Timeout)
		defer cancel()

		auth, err := app.API.Login(ctx, email, password)
		if err != nil {
			return loggedInMsg{err: err}
		}
		if err := app.SignIn(ctx, auth); err != nil {
			return loggedInMsg{err: err}
		}
		if app.Store != nil {
			if err := app.Store.Save(ctx, auth); err != nil {
				app.Logger.Warn("could not persist session", "error", err)
			}
		}
		return loggedInMsg{}
	}
}

func (m LoginModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.windowWidth = msg.Width
		m.windowHeight = msg.Height
		m.emailInput.Width = msg.Width - 20
		m.passwordInput.Width = msg.Width - 20
		return m, nil

	case loggedInMsg:
		m.busy = false
		if msg.err != nil {
			m.err = msg.err
			return m, nil
		}
		menuModel := resized(NewMenuModel(m.app), m.windowWidth, m.windowHeight)
		return menuModel, menuModel.Init()

	case spinner.TickMsg:
		if m.busy {
			var cmd tea.Cmd
			m.spinner, cmd = m.spinner.Update(msg)
			return m, cmd
		}
		return m, nil

	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "esc":
			return m, tea.Quit
		}

		if m.busy {
			return m, nil
		}

		switch msg.String() {
		case "tab", "shift+tab", "up", "down":
			m.focusIndex = (m.focusIndex + 1) % 2
			if m.focusIndex == 0 {
				m.emailInput.Focus()
				m.passwordInput.Blur()
			} else {
				m.emailInput.Blur()
				m.passwordInput.Focus()
			}
			return m, nil

		case "enter":
			email := strings.TrimSpace(m.emailInput.Value())
			password := m.passwordInput.Value()
			if email == "" || password == "" {
				m.err = apperr.InvalidArg("Please enter email and password.")
				return m, nil
			}
			m.err = nil
			m.busy = true
			return m, tea.Batch(m.spinner.Tick, m.loginCmd(email, password))
		}
	}

	var cmd tea.Cmd
	if m.focusIndex == 0 {
		m.emailInput, cmd = m.emailInput.Update(msg)
	} else {
		m.passwordInput, cmd = m.passwordInput.Update(msg)
	}
	return m, cmd
}

func (m LoginModel) View() string {
	style := lipgloss.NewStyle().
		Padding(1, 2).
		Border(lipgloss.RoundedBorder()).
		BorderForeground(lipgloss.Color("5"))

	label := func(text string, focused bool) string {
		if focused {
			return "> " + text
		}
		return "  " + text
	}

	content := titleStyle.Render("BaatCheet") + "\n"
	content += helpStyle.Render("Sign in to "+m.app.Config.Server.APIURL) + "\n\n"
	content += style.Render(
		label("Email:", m.focusIndex == 0) + "\n" +
			m.emailInput.View() + "\n\n" +
			label("Password:", m.focusIndex == 1) + "\n" +
			m.passwordInput.View(),
	)

	if m.busy {
		content += fmt.Sprintf("\n\n  %s Signing in...", m.spinner.View())
	} else if m.err != nil {
		content += "\n\n" + errorStyle.Render(apperr.UserMessage(m.err))
	}

	content += "\n\n" + helpStyle.Render("tab: switch field • enter: sign in • esc: quit")
	return content
}
