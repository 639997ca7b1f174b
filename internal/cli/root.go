// Package cli contains the econdash commands.
package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"EconDash/internal/di"
	"EconDash/pkg/config"
	xhttp "EconDash/pkg/http"
	xlogger "EconDash/pkg/logger"
)

var (
	cfgFile    string
	envFile    string
	jsonOutput bool
	cfg        *config.Config
	version    = "dev"

	// replaced in tests
	initializeCore = di.InitializeCore
	initializeApp  = di.InitializeApp
)

// errSessionExpired is returned after the service rejected the stored token
// and the local session was dropped.
var errSessionExpired = errors.New("session expired or invalid, run `econdash login`")

var rootCmd = &cobra.Command{
	Use:   "econdash",
	Short: "Economic indicator dashboard client",
	Long: `econdash talks to the economic indicator service: it keeps your session,
shows indicator summaries and trends, and manages alert rules.

Example usage:
  econdash login -u ana             # Log in and store the token
  econdash summary                  # Dashboard summary
  econdash indicator GDP --force    # Latest GDP series, bypassing the service cache
  econdash alerts create --indicator CPI --condition above --threshold 4
  econdash serve                    # JSON dashboard shell with scheduled alert checks`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		return initConfig()
	},
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

// SetVersion sets the version string for the CLI.
func SetVersion(v string) {
	version = v
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: built-in defaults)")
	rootCmd.PersistentFlags().StringVar(&envFile, "env-file", ".env", "dotenv file applied before the environment")
	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "output as JSON")
}

func initConfig() error {
	var err error
	cfg, err = config.LoadWithEnv(cfgFile, envFile)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	return nil
}

func out(cmd *cobra.Command) *printer {
	return newPrinter(cmd.OutOrStdout(), cmd.ErrOrStderr(), jsonOutput)
}

// withCore builds the stores for one command and releases them afterwards.
func withCore(cmd *cobra.Command, fn func(ctx context.Context, core *di.Core) error) error {
	core, cleanup, err := initializeCore(cfg)
	if err != nil {
		return err
	}
	defer cleanup()

	ctx, cancel := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	return checkSession(ctx, core, fn(ctx, core))
}

// checkSession drops the local session when the service answered 401 to an
// authenticated call.
func checkSession(ctx context.Context, core *di.Core, err error) error {
	if err == nil || !xhttp.IsUnauthorized(err) || !core.Session.IsLoggedIn() {
		return err
	}
	core.Logger.Info("service rejected the stored token, logging out")
	if lerr := core.Session.Logout(ctx); lerr != nil {
		core.Logger.Error("logout after 401 failed", xlogger.Error(lerr))
	}
	return fmt.Errorf("%w: %s", errSessionExpired, xhttp.Message(err))
}

// requireLogin fails fast for commands that only make sense with a token.
func requireLogin(core *di.Core) error {
	if !core.Session.IsLoggedIn() {
		return errors.New("not logged in, run `econdash login`")
	}
	return nil
}
