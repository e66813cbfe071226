package cli

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/huh"
	"github.com/spf13/cobra"

	"github.com/valter-silva-au/site-planner/internal/credential"
)

var secretCmd = &cobra.Command{
	Use:   "secret",
	Short: "Manage credentials stored in the system keyring",
	Long: `Store credentials in the system keyring instead of .splanconfig.

Known keys:
  slack_webhook_url   Slack incoming webhook used for alert notifications
                      when notifications.slack.use_keyring is true`,
}

var secretSetCmd = &cobra.Command{
	Use:   "set <key> [value]",
	Short: "Store a secret; prompts for the value when omitted",
	Args:  cobra.RangeArgs(1, 2),
	RunE: func(cmd *cobra.Command, args []string) error {
		if Secrets == nil {
			return fmt.Errorf("keyring not available")
		}

		key := args[0]
		var value string
		if len(args) == 2 {
			value = args[1]
		} else {
			err := huh.NewInput().
				Title(key).
				EchoMode(huh.EchoModePassword).
				Value(&value).
				Validate(validateRequired("Value")).
				Run()
			if err != nil {
				return fmt.Errorf("reading secret: %w", err)
			}
		}
		value = strings.TrimSpace(value)
		if value == "" {
			return fmt.Errorf("secret value is empty")
		}
		if key == credential.SlackWebhookKey && !strings.HasPrefix(value, "https://") {
			return fmt.Errorf("slack webhook must be an https URL")
		}

		if err := Secrets.Set(key, value); err != nil {
			return fmt.Errorf("storing secret %s: %w", key, err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Stored %s in the keyring\n", key)
		return nil
	},
}

var secretDeleteCmd = &cobra.Command{
	Use:   "delete <key>",
	Short: "Remove a secret from the keyring",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if Secrets == nil {
			return fmt.Errorf("keyring not available")
		}
		if err := Secrets.Delete(args[0]); err != nil {
			return fmt.Errorf("deleting secret %s: %w", args[0], err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Deleted %s from the keyring\n", args[0])
		return nil
	},
}

func init() {
	secretCmd.AddCommand(secretSetCmd, secretDeleteCmd)
	rootCmd.AddCommand(secretCmd)
}
