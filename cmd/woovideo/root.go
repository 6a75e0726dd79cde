package main

import (
	"github.com/spf13/cobra"
)

func newRootCommand() *cobra.Command {
	ctx := newCommandContext()

	rootCmd := &cobra.Command{
		Use:           "woovideo",
		Short:         "Generate product videos and wait for them to finish",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	flags := rootCmd.PersistentFlags()
	flags.StringVar(&ctx.apiURL, "api-url", "", "API base URL (env WOOVIDEO_API_URL)")
	flags.StringVar(&ctx.token, "token", "", "Bearer token (env WOOVIDEO_TOKEN)")
	flags.StringVar(&ctx.transport, "transport", transportSSE, "Push transport: sse, ws or none")
	flags.DurationVar(&ctx.policy.InitialDelay, "poll-initial", ctx.policy.InitialDelay, "Delay before the first status poll")
	flags.DurationVar(&ctx.policy.DelayStep, "poll-step", ctx.policy.DelayStep, "Delay added after each pending poll")
	flags.DurationVar(&ctx.policy.MaxDelay, "poll-max", ctx.policy.MaxDelay, "Upper bound of the poll delay")
	flags.IntVar(&ctx.policy.MaxAttempts, "max-attempts", 0, "Give up after this many polls (0 = unlimited)")
	flags.DurationVar(&ctx.policy.MaxWait, "max-wait", 0, "Give up after this long (0 = unlimited)")
	flags.DurationVar(&ctx.policy.PushGrace, "push-grace", ctx.policy.PushGrace, "Check status after this long without a push event (negative = trust the push channel)")
	flags.BoolVarP(&ctx.verbose, "verbose", "v", false, "Log transport diagnostics to stderr")

	rootCmd.AddCommand(newGenerateCommand(ctx))
	rootCmd.AddCommand(newWatchCommand(ctx))
	rootCmd.AddCommand(newPrefsCommand(ctx))
	rootCmd.AddCommand(newMeCommand(ctx))

	return rootCmd
}
