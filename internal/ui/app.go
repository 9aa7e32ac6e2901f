package ui

import (
	"context"
	"log/slog"
	"sync"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/saravenpi/baatcheet/internal/api"
	"github.com/saravenpi/baatcheet/internal/config"
	"github.com/saravenpi/baatcheet/internal/contacts"
	"github.com/saravenpi/baatcheet/internal/convsync"
	"github.com/saravenpi/baatcheet/internal/models"
	"github.com/saravenpi/baatcheet/internal/push"
	"github.com/saravenpi/baatcheet/internal/store"
)

// App is shared by every screen. The signed-in fields are replaced on
// login and cleared on logout.
type App struct {
	Config   *config.Config
	API      *api.Client
	Store    *store.SessionStore
	Contacts *contacts.Book
	Logger   *slog.Logger

	mu     sync.Mutex
	auth   models.Auth
	push   *push.Client
	engine *convsync.Engine
	list   *convsync.ListSync
}

func NewApp(cfg *config.Config, client *api.Client, sessions *store.SessionStore, book *contacts.Book, logger *slog.Logger) *App {
	return &App{
		Config:   cfg,
		API:      client,
		Store:    sessions,
		Contacts: book,
		Logger:   logger,
	}
}

// SignIn connects the push channel for auth and builds the sync engine.
func (a *App) SignIn(ctx context.Context, auth models.Auth) error {
	a.API.SetToken(auth.Token)

	pc, err := push.Connect(ctx, a.Config.Server.SocketURL, auth, a.Logger)
	if err != nil {
		return err
	}

	engine := convsync.NewEngine(auth, convsync.Deps{
		History:  a.API,
		Sender:   a.API,
		Receipts: a.API,
		Push:     pc,
	}, a.Logger, convsync.WithDebouncer(
		convsync.WithSpacing(a.Config.Receipts.MinSpacing, a.Config.Receipts.SettleDelay),
	))

	a.mu.Lock()
	prevEngine, prevPush := a.engine, a.push
	a.auth = auth
	a.push = pc
	a.engine = engine
	a.list = convsync.NewListSync(a.API, a.API, a.Logger)
	a.mu.Unlock()

	closeSignedIn(prevEngine, prevPush)
	a.Logger.Info("signed in", "user_id", auth.User.ID)
	return nil
}

// SignOut closes the live connection and forgets the stored session.
func (a *App) SignOut(ctx context.Context) error {
	a.Shutdown()
	a.API.SetToken("")

	a.mu.Lock()
	a.auth = models.Auth{}
	a.list = nil
	a.mu.Unlock()

	a.Logger.Info("signed out")
	if a.Store == nil {
		return nil
	}
	return a.Store.Clear(ctx)
}

// Shutdown closes the open conversation and the push channel, keeping the
// stored session.
func (a *App) Shutdown() {
	a.mu.Lock()
	engine, pc := a.engine, a.push
	a.engine, a.push = nil, nil
	a.mu.Unlock()
	closeSignedIn(engine, pc)
}

func closeSignedIn(engine *convsync.Engine, pc *push.Client) {
	if engine != nil {
		engine.Close()
	}
	if pc != nil {
		pc.Close()
	}
}

func (a *App) Auth() models.Auth {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.auth
}

func (a *App) Engine() *convsync.Engine {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.engine
}

func (a *App) Conversations() *convsync.ListSync {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.list
}

// SenderName labels a message sender for display.
func (a *App) SenderName(m models.Message) string {
	return a.Contacts.DisplayName(m.SenderID, a.Auth().User.ID, m.SenderName)
}

// NewRootModel returns the menu when signed in and the login screen
// otherwise.
func NewRootModel(app *App) tea.Model {
	if app.Auth().Valid() && app.Engine() != nil {
		return NewMenuModel(app)
	}
	return NewLoginModel(app)
}

// resized replays the last known window size into a freshly built screen.
func resized[M tea.Model](m M, width, height int) M {
	if width <= 0 {
		return m
	}
	updated, _ := m.Update(tea.WindowSizeMsg{Width: width, Height: height})
	if next, ok := updated.(M); ok {
		return next
	}
	return m
}
