package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"liepavoice/internal/notifications"
	"liepavoice/internal/services"
)

func newTestNotifyCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "test-notify",
		Short: "Send a test notification",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			if cfg.Notify.NtfyTopic == "" {
				fmt.Fprintln(cmd.OutOrStdout(), "Notifications disabled (set notify.ntfy_topic)")
				return nil
			}
			if err := notifications.NewNotifier(cfg).Test(commandCtx(cmd)); err != nil {
				return services.Wrap(services.ErrExternalTool, "notify", "test", "Test notification failed", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Test notification sent")
			return nil
		},
	}
}
