package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"EconDash/internal/di"
	"EconDash/internal/domain/models"
	xhttp "EconDash/pkg/http"
	xlogger "EconDash/pkg/logger"
)

var alertsCmd = &cobra.Command{
	Use:   "alerts",
	Short: "List and manage alert rules",
	Long: `List and manage alert rules. Without a subcommand the rules are listed.

Examples:
  econdash alerts
  econdash alerts create --indicator CPI --condition above --threshold 4
  econdash alerts update 7 --active=false
  econdash alerts delete 7
  econdash alerts check`,
	Args: cobra.NoArgs,
	RunE: runAlertsList,
}

var alertsCreateCmd = &cobra.Command{
	Use:   "create",
	Short: "Create an alert rule",
	Args:  cobra.NoArgs,
	RunE:  runAlertsCreate,
}

var alertsUpdateCmd = &cobra.Command{
	Use:   "update ID",
	Short: "Change the condition, threshold or state of a rule",
	Args:  cobra.ExactArgs(1),
	RunE:  runAlertsUpdate,
}

var alertsDeleteCmd = &cobra.Command{
	Use:   "delete ID",
	Short: "Delete an alert rule",
	Args:  cobra.ExactArgs(1),
	RunE:  runAlertsDelete,
}

var alertsCheckCmd = &cobra.Command{
	Use:   "check",
	Short: "Evaluate all active rules now",
	Args:  cobra.NoArgs,
	RunE:  runAlertsCheck,
}

var alertsTailCmd = &cobra.Command{
	Use:   "tail",
	Short: "Follow alert triggers published to Kafka",
	Args:  cobra.NoArgs,
	RunE:  runAlertsTail,
}

func init() {
	rootCmd.AddCommand(alertsCmd)
	alertsCmd.AddCommand(alertsCreateCmd, alertsUpdateCmd, alertsDeleteCmd, alertsCheckCmd, alertsTailCmd)

	alertsCreateCmd.Flags().String("indicator", "", "indicator code")
	alertsCreateCmd.Flags().String("condition", "above", "above, below or equals")
	alertsCreateCmd.Flags().Float64("threshold", 0, "threshold value")
	_ = alertsCreateCmd.MarkFlagRequired("indicator")
	_ = alertsCreateCmd.MarkFlagRequired("threshold")

	alertsUpdateCmd.Flags().String("condition", "", "above, below or equals")
	alertsUpdateCmd.Flags().Float64("threshold", 0, "threshold value")
	alertsUpdateCmd.Flags().Bool("active", true, "whether the rule is evaluated")
}

func alertRows(rules []models.AlertRule) [][]string {
	rows := make([][]string, 0, len(rules))
	for _, a := range rules {
		last := "-"
		if a.LastTriggered != nil && !a.LastTriggered.IsZero() {
			last = a.LastTriggered.Local().Format(time.DateTime)
		}
		active := "yes"
		if !a.IsActive {
			active = "no"
		}
		rows = append(rows, []string{
			strconv.FormatInt(a.ID, 10),
			a.IndicatorCode,
			a.Condition,
			strconv.FormatFloat(a.Threshold, 'f', -1, 64),
			active,
			last,
		})
	}
	return rows
}

var alertHeaders = []string{"ID", "Indicator", "Condition", "Threshold", "Active", "Last triggered"}

func parseAlertID(s string) (int64, error) {
	id, err := strconv.ParseInt(s, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid alert id %q", s)
	}
	return id, nil
}

func runAlertsList(cmd *cobra.Command, args []string) error {
	return withCore(cmd, func(ctx context.Context, core *di.Core) error {
		if err := requireLogin(core); err != nil {
			return err
		}
		if err := core.Alerts.FetchAlerts(ctx); err != nil {
			return err
		}
		rules := core.Alerts.Alerts()
		return out(cmd).table(rules, alertHeaders, alertRows(rules))
	})
}

func runAlertsCreate(cmd *cobra.Command, args []string) error {
	indicator, _ := cmd.Flags().GetString("indicator")
	condition, _ := cmd.Flags().GetString("condition")
	threshold, _ := cmd.Flags().GetFloat64("threshold")

	return withCore(cmd, func(ctx context.Context, core *di.Core) error {
		if err := requireLogin(core); err != nil {
			return err
		}
		rule, err := core.Alerts.CreateAlert(ctx, models.CreateAlertRequest{
			IndicatorCode: indicator,
			Condition:     condition,
			Threshold:     threshold,
		})
		if err != nil {
			if xhttp.IsValidation(err) {
				return fmt.Errorf("invalid alert: %s", validationSummary(err))
			}
			return err
		}
		p := out(cmd)
		if p.asJSON {
			return p.json(rule)
		}
		p.success("created alert %d", rule.ID)
		return p.table(rule, alertHeaders, alertRows([]models.AlertRule{*rule}))
	})
}

func runAlertsUpdate(cmd *cobra.Command, args []string) error {
	id, err := parseAlertID(args[0])
	if err != nil {
		return err
	}
	req := models.UpdateAlertRequest{}
	if cmd.Flags().Changed("condition") {
		c, _ := cmd.Flags().GetString("condition")
		req.Condition = &c
	}
	if cmd.Flags().Changed("threshold") {
		t, _ := cmd.Flags().GetFloat64("threshold")
		req.Threshold = &t
	}
	if cmd.Flags().Changed("active") {
		a, _ := cmd.Flags().GetBool("active")
		req.IsActive = &a
	}
	if req.Condition == nil && req.Threshold == nil && req.IsActive == nil {
		return fmt.Errorf("nothing to update: set --condition, --threshold or --active")
	}

	return withCore(cmd, func(ctx context.Context, core *di.Core) error {
		if err := requireLogin(core); err != nil {
			return err
		}
		rule, err := core.Alerts.UpdateAlert(ctx, id, req)
		if err != nil {
			if xhttp.IsValidation(err) {
				return fmt.Errorf("invalid alert: %s", validationSummary(err))
			}
			return err
		}
		p := out(cmd)
		if p.asJSON {
			return p.json(rule)
		}
		p.success("updated alert %d", rule.ID)
		return p.table(rule, alertHeaders, alertRows([]models.AlertRule{*rule}))
	})
}

func runAlertsDelete(cmd *cobra.Command, args []string) error {
	id, err := parseAlertID(args[0])
	if err != nil {
		return err
	}
	return withCore(cmd, func(ctx context.Context, core *di.Core) error {
		if err := requireLogin(core); err != nil {
			return err
		}
		if err := core.Alerts.DeleteAlert(ctx, id); err != nil {
			return err
		}
		out(cmd).success("deleted alert %d", id)
		return nil
	})
}

func runAlertsCheck(cmd *cobra.Command, args []string) error {
	return withCore(cmd, func(ctx context.Context, core *di.Core) error {
		if err := requireLogin(core); err != nil {
			return err
		}
		triggers, err := core.Watcher.RunOnce(ctx)
		if err != nil {
			return err
		}
		p := out(cmd)
		if len(triggers) == 0 && !p.asJSON {
			fmt.Fprintln(p.out, "no alerts triggered")
			return nil
		}
		rows := make([][]string, 0, len(triggers))
		for _, t := range triggers {
			rows = append(rows, []string{
				strconv.FormatInt(t.AlertID, 10),
				t.IndicatorCode,
				t.Condition,
				strconv.FormatFloat(t.Threshold, 'f', -1, 64),
				strconv.FormatFloat(t.CurrentValue, 'f', -1, 64),
				t.TriggeredAt.Local().Format(time.DateTime),
			})
		}
		return p.table(triggers, []string{"ID", "Indicator", "Condition", "Threshold", "Value", "Triggered"}, rows)
	})
}

func runAlertsTail(cmd *cobra.Command, args []string) error {
	logger, err := di.ProvideLogger(cfg)
	if err != nil {
		return err
	}
	consumer, err := di.ProvideTriggerConsumer(cfg, logger)
	if err != nil {
		return err
	}
	defer consumer.Close()

	ctx, cancel := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	p := out(cmd)
	logger.Info("following alert triggers", xlogger.String("topic", cfg.Kafka.TriggerTopic))
	return consumer.Run(ctx, func(_ context.Context, _ []byte, value []byte) error {
		var t models.AlertTrigger
		if err := json.Unmarshal(value, &t); err != nil {
			// malformed records are skipped, not retried
			logger.Warn("undecodable trigger record", xlogger.Error(err))
			return nil
		}
		if p.asJSON {
			return p.json(t)
		}
		fmt.Fprintf(p.out, "%s  alert %d  %s %s %s (value %s)\n",
			t.TriggeredAt.Local().Format(time.DateTime), t.AlertID, t.IndicatorCode, t.Condition,
			strconv.FormatFloat(t.Threshold, 'f', -1, 64), strconv.FormatFloat(t.CurrentValue, 'f', -1, 64))
		return nil
	})
}
