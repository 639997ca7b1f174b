package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"EconDash/internal/di"
	xhttp "EconDash/pkg/http"
)

var loginCmd = &cobra.Command{
	Use:   "login",
	Short: "Log in and store the session token",
	Long: `Exchange a username and password for a session token. The token is kept
in the configured token backend and reused by later commands.

Without --password the password is read from the first line of stdin.`,
	Args: cobra.NoArgs,
	RunE: runLogin,
}

var logoutCmd = &cobra.Command{
	Use:   "logout",
	Short: "Forget the stored session token",
	Args:  cobra.NoArgs,
	RunE:  runLogout,
}

var registerCmd = &cobra.Command{
	Use:   "register",
	Short: "Create an account (does not log in)",
	Args:  cobra.NoArgs,
	RunE:  runRegister,
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the session state",
	Args:  cobra.NoArgs,
	RunE:  runStatus,
}

func init() {
	rootCmd.AddCommand(loginCmd, logoutCmd, registerCmd, statusCmd)

	for _, c := range []*cobra.Command{loginCmd, registerCmd} {
		c.Flags().StringP("username", "u", "", "account username")
		c.Flags().StringP("password", "p", "", "account password")
		_ = c.MarkFlagRequired("username")
	}
	registerCmd.Flags().String("email", "", "optional e-mail address")
}

func readPassword(cmd *cobra.Command) (string, error) {
	password, _ := cmd.Flags().GetString("password")
	if password != "" {
		return password, nil
	}
	line, err := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
	password = strings.TrimRight(line, "\r\n")
	if password == "" {
		if err != nil {
			return "", fmt.Errorf("read password: %w", err)
		}
		return "", errors.New("password is required")
	}
	return password, nil
}

func runLogin(cmd *cobra.Command, args []string) error {
	username, _ := cmd.Flags().GetString("username")
	password, err := readPassword(cmd)
	if err != nil {
		return err
	}

	return withCore(cmd, func(ctx context.Context, core *di.Core) error {
		if err := core.Session.Login(ctx, username, password); err != nil {
			return fmt.Errorf("login failed: %s", xhttp.Message(err))
		}
		out(cmd).success("logged in as %s", username)
		return nil
	})
}

func runLogout(cmd *cobra.Command, args []string) error {
	return withCore(cmd, func(ctx context.Context, core *di.Core) error {
		if err := core.Session.Logout(ctx); err != nil {
			return fmt.Errorf("token could not be removed: %w", err)
		}
		out(cmd).success("logged out")
		return nil
	})
}

func runRegister(cmd *cobra.Command, args []string) error {
	username, _ := cmd.Flags().GetString("username")
	password, err := readPassword(cmd)
	if err != nil {
		return err
	}
	var email *string
	if cmd.Flags().Changed("email") {
		e, _ := cmd.Flags().GetString("email")
		email = &e
	}

	return withCore(cmd, func(ctx context.Context, core *di.Core) error {
		user, err := core.Session.Register(ctx, username, password, email)
		if err != nil {
			if xhttp.IsValidation(err) {
				return fmt.Errorf("invalid registration: %s", validationSummary(err))
			}
			return fmt.Errorf("register failed: %s", xhttp.Message(err))
		}
		p := out(cmd)
		if p.asJSON {
			return p.json(user)
		}
		p.success("registered %s (id %d), now run `econdash login`", user.Username, user.ID)
		return nil
	})
}

type statusView struct {
	LoggedIn  bool       `json:"logged_in"`
	Status    string     `json:"status"`
	Subject   string     `json:"subject,omitempty"`
	ExpiresAt *time.Time `json:"expires_at,omitempty"`
	API       string     `json:"api"`
	Backend   string     `json:"token_backend"`
}

func runStatus(cmd *cobra.Command, args []string) error {
	return withCore(cmd, func(ctx context.Context, core *di.Core) error {
		v := statusView{
			LoggedIn: core.Session.IsLoggedIn(),
			Status:   core.Session.Status().String(),
			Subject:  core.Session.Subject(),
			API:      core.Config.API.BaseURL,
			Backend:  core.Config.Token.Backend,
		}
		if exp, ok := core.Session.ExpiresAt(); ok {
			v.ExpiresAt = &exp
		}

		p := out(cmd)
		if p.asJSON {
			return p.json(v)
		}
		fmt.Fprintf(p.out, "status:  %s\n", v.Status)
		if v.Subject != "" {
			fmt.Fprintf(p.out, "user:    %s\n", v.Subject)
		}
		if v.ExpiresAt != nil {
			fmt.Fprintf(p.out, "expires: %s\n", v.ExpiresAt.Local().Format(time.RFC1123))
			if time.Until(*v.ExpiresAt) < 0 {
				p.warn("the stored token has expired")
			}
		}
		fmt.Fprintf(p.out, "api:     %s\n", v.API)
		fmt.Fprintf(p.out, "backend: %s\n", v.Backend)
		return nil
	})
}

func validationSummary(err error) string {
	verrs := xhttp.ValidationErrors(err)
	msgs := make([]string, 0, len(verrs))
	for _, v := range verrs {
		msgs = append(msgs, v.Message)
	}
	return strings.Join(msgs, "; ")
}
