package cli

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the JSON dashboard shell and scheduled alert checks",
	Args:  cobra.NoArgs,
	RunE:  runServe,
}

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Run only the scheduled alert checks",
	Args:  cobra.NoArgs,
	RunE:  runWatch,
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version",
	Args:  cobra.NoArgs,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		return nil
	},
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "econdash %s\n", version)
	},
}

func init() {
	rootCmd.AddCommand(serveCmd, watchCmd, versionCmd)

	serveCmd.Flags().Int("port", 0, "override server.port")
	watchCmd.Flags().String("schedule", "", "override watcher.schedule (cron spec or @every)")
}

func runServe(cmd *cobra.Command, args []string) error {
	if cmd.Flags().Changed("port") {
		cfg.Server.Port, _ = cmd.Flags().GetInt("port")
	}

	app, cleanup, err := initializeApp(cfg)
	if err != nil {
		return err
	}
	defer cleanup()

	ctx, cancel := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer cancel()
	return app.Serve(ctx)
}

func runWatch(cmd *cobra.Command, args []string) error {
	if cmd.Flags().Changed("schedule") {
		cfg.Watcher.Schedule, _ = cmd.Flags().GetString("schedule")
	}

	app, cleanup, err := initializeApp(cfg)
	if err != nil {
		return err
	}
	defer cleanup()

	ctx, cancel := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer cancel()
	return app.Watch(ctx)
}
