package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/saravenpi/baatcheet/internal/api"
	"github.com/saravenpi/baatcheet/internal/apperr"
	"github.com/saravenpi/baatcheet/internal/config"
	"github.com/saravenpi/baatcheet/internal/contacts"
	"github.com/saravenpi/baatcheet/internal/logger"
	"github.com/saravenpi/baatcheet/internal/models"
	"github.com/saravenpi/baatcheet/internal/store"
	"github.com/saravenpi/baatcheet/internal/ui"
)

var (
	version = "1.0.0"
	commit  = "unknown"
)

var (
	configPath string

	cfg       *config.Config
	log       *slog.Logger
	logCloser io.Closer
)

var rootCmd = &cobra.Command{
	Use:   "baatcheet",
	Short: "Terminal client for BaatCheet chats",
	Long: `BaatCheet is a terminal chat client. Run it without arguments to open
the interactive client; sign in once and the session is remembered.`,
	Version:           fmt.Sprintf("%s (commit: %s)", version, commit),
	SilenceUsage:      true,
	PersistentPreRunE: setup,
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logCloser != nil {
			logCloser.Close()
		}
	},
	RunE: runClient,
}

// Execute runs the command line. It is called by main.main.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.CompletionOptions.DisableDefaultCmd = true
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "config file path (default is $HOME/.baatcheet/config.yml)")
}

func setup(cmd *cobra.Command, args []string) error {
	loaded, err := config.Load(configPath)
	if err != nil {
		return err
	}
	cfg = loaded
	log, logCloser = logger.New(cfg.Log.Level, cfg.Log.File)
	log.Debug("config loaded", "api_url", cfg.Server.APIURL, "data", cfg.Paths.Data)
	return nil
}

func openStore() (*store.SessionStore, error) {
	sessions, err := store.Open(cfg.SessionDBPath())
	if err != nil {
		return nil, fmt.Errorf("open session store: %w", err)
	}
	return sessions, nil
}

func newAPIClient() *api.Client {
	return api.NewClient(cfg.Server.APIURL, cfg.Server.Timeout, log)
}

// storedSession returns the remembered login, or ErrNoSession.
func storedSession(ctx context.Context, sessions *store.SessionStore) (models.Auth, error) {
	auth, savedAt, err := sessions.Load(ctx)
	if err != nil {
		return models.Auth{}, err
	}
	if auth.Server != "" && auth.Server != cfg.Server.APIURL {
		log.Info("stored session belongs to another server", "server", auth.Server)
		return models.Auth{}, store.ErrNoSession
	}
	log.Debug("restoring session", "user_id", auth.User.ID, "saved_at", savedAt)
	return auth, nil
}

func runClient(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	sessions, err := openStore()
	if err != nil {
		return err
	}
	defer sessions.Close()

	app := ui.NewApp(cfg, newAPIClient(), sessions, contacts.NewBook(cfg.ContactsDir()), log)
	defer app.Shutdown()

	auth, err := storedSession(ctx, sessions)
	switch {
	case err == nil:
		connectCtx, cancel := context.WithTimeout(ctx, cfg.Server.Timeout)
		err = app.SignIn(connectCtx, auth)
		cancel()
		if apperr.Is(err, apperr.CodeUnauthenticated) {
			log.Info("stored session rejected, signing out")
			if err := sessions.Clear(ctx); err != nil {
				log.Warn("could not clear session", "error", err)
			}
		} else if err != nil {
			log.Warn("could not restore session", "error", err)
		}
	case errors.Is(err, store.ErrNoSession):
	default:
		log.Warn("could not read stored session", "error", err)
	}

	p := tea.NewProgram(ui.NewRootModel(app), tea.WithAltScreen(), tea.WithMouseCellMotion())
	if _, err := p.Run(); err != nil {
		return fmt.Errorf("ui: %w", err)
	}
	return nil
}
