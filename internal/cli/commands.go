package cli

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/saravenpi/baatcheet/internal/apperr"
	"github.com/saravenpi/baatcheet/internal/convsync"
	"github.com/saravenpi/baatcheet/internal/store"
)

func init() {
	rootCmd.AddCommand(loginCmd)
	rootCmd.AddCommand(logoutCmd)
	rootCmd.AddCommand(conversationsCmd)
	rootCmd.AddCommand(versionCmd)

	loginCmd.Flags().StringP("email", "e", "", "account email")
	loginCmd.Flags().StringP("password", "p", "", "account password (read from stdin when omitted)")
	_ = loginCmd.MarkFlagRequired("email")
}

var loginCmd = &cobra.Command{
	Use:   "login",
	Short: "Sign in and remember the session",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		email, _ := cmd.Flags().GetString("email")
		password, _ := cmd.Flags().GetString("password")
		if password == "" {
			fmt.Fprint(cmd.ErrOrStderr(), "Password: ")
			var err error
			password, err = readLine(cmd.InOrStdin())
			if err != nil {
				return err
			}
		}

		sessions, err := openStore()
		if err != nil {
			return err
		}
		defer sessions.Close()

		auth, err := newAPIClient().Login(cmd.Context(), email, password)
		if err != nil {
			return errors.New(apperr.UserMessage(err))
		}
		if err := sessions.Save(cmd.Context(), auth); err != nil {
			return err
		}

		name := auth.User.Name
		if name == "" {
			name = auth.User.Email
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Signed in as %s (user #%d)\n", name, auth.User.ID)
		return nil
	},
}

var logoutCmd = &cobra.Command{
	Use:   "logout",
	Short: "Forget the stored session",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		sessions, err := openStore()
		if err != nil {
			return err
		}
		defer sessions.Close()

		if err := sessions.Clear(cmd.Context()); err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), "Signed out")
		return nil
	},
}

var conversationsCmd = &cobra.Command{
	Use:     "conversations",
	Aliases: []string{"ls"},
	Short:   "List your conversations",
	Args:    cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		sessions, err := openStore()
		if err != nil {
			return err
		}
		defer sessions.Close()

		auth, err := storedSession(cmd.Context(), sessions)
		if errors.Is(err, store.ErrNoSession) {
			return errors.New("not signed in, run `baatcheet login` first")
		}
		if err != nil {
			return err
		}

		client := newAPIClient()
		client.SetToken(auth.Token)
		list, err := convsync.NewListSync(client, client, log).Refresh(cmd.Context())
		if err != nil {
			return errors.New(apperr.UserMessage(err))
		}

		w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "ID\tTITLE\tLAST MESSAGE")
		for _, c := range list {
			last := "-"
			if c.LastMessage != nil && c.LastMessage.Text != "" {
				last = c.LastMessage.Text
			}
			fmt.Fprintf(w, "%d\t%s\t%s\n", c.ID, c.Title(auth.User.ID), last)
		}
		return w.Flush()
	},
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Show version information",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "BaatCheet v%s (commit: %s)\n", version, commit)
	},
}

func readLine(r io.Reader) (string, error) {
	line, err := bufio.NewReader(r).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return "", err
	}
	return strings.TrimRight(line, "\r\n"), nil
}
