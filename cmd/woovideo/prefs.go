package main

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"woovideo/internal/client"
)

func newMeCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "me",
		Short: "Show the account and points balance",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cl, err := ctx.ensureClient()
			if err != nil {
				return err
			}
			me, err := cl.Me(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "User %d (%s)\nPoints: %d\n", me.ID, me.Email, me.PointsBalance)
			return nil
		},
	}
}

func newPrefsCommand(ctx *commandContext) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "prefs",
		Short: "Show or change integration preferences",
		RunE: func(cmd *cobra.Command, args []string) error {
			cl, err := ctx.ensureClient()
			if err != nil {
				return err
			}
			p, err := cl.Preferences(cmd.Context())
			if err != nil {
				return err
			}
			printPreferences(cmd.OutOrStdout(), p)
			return nil
		},
	}
	cmd.AddCommand(newPrefsSetCommand(ctx))
	return cmd
}

func newPrefsSetCommand(ctx *commandContext) *cobra.Command {
	var webhook, store, key, secret string

	cmd := &cobra.Command{
		Use:   "set",
		Short: "Update preferences; omitted flags stay unchanged",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			var update client.PreferencesUpdate
			flags := cmd.Flags()
			if flags.Changed("webhook-url") {
				update.WebhookURL = &webhook
			}
			if flags.Changed("store-url") {
				update.StoreURL = &store
			}
			if flags.Changed("consumer-key") {
				update.ConsumerKey = &key
			}
			if flags.Changed("consumer-secret") {
				update.ConsumerSecret = &secret
			}
			if update == (client.PreferencesUpdate{}) {
				return fmt.Errorf("nothing to update")
			}
			cl, err := ctx.ensureClient()
			if err != nil {
				return err
			}
			p, err := cl.SavePreferences(cmd.Context(), update)
			if err != nil {
				return err
			}
			printPreferences(cmd.OutOrStdout(), p)
			return nil
		},
	}

	flags := cmd.Flags()
	flags.StringVar(&webhook, "webhook-url", "", "N8N generation webhook URL (empty to clear)")
	flags.StringVar(&store, "store-url", "", "WooCommerce store URL")
	flags.StringVar(&key, "consumer-key", "", "WooCommerce consumer key")
	flags.StringVar(&secret, "consumer-secret", "", "WooCommerce consumer secret")
	return cmd
}

func printPreferences(out io.Writer, p client.Preferences) {
	fmt.Fprintf(out, "Webhook URL:     %s\n", orDash(p.WebhookURL))
	fmt.Fprintf(out, "Store URL:       %s\n", orDash(p.StoreURL))
	fmt.Fprintf(out, "Consumer key:    %s\n", orDash(p.ConsumerKey))
	fmt.Fprintf(out, "Consumer secret: %s\n", orDash(p.ConsumerSecret))
	fmt.Fprintf(out, "Generation:      %t\n", p.GenerationEnabled)
	fmt.Fprintf(out, "Publishing:      %t\n", p.PublishingEnabled)
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
