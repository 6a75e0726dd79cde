package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"woovideo/internal/client"
	"woovideo/internal/domain"
)

func newGenerateCommand(ctx *commandContext) *cobra.Command {
	var (
		req    client.GenerateRequest
		noWait bool
	)

	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Request a product video and wait for the result",
		RunE: func(cmd *cobra.Command, args []string) error {
			if req.ProductID == "" && req.ProductName == "" {
				return errors.New("--product-id or --product-name is required")
			}
			cl, err := ctx.ensureClient()
			if err != nil {
				return err
			}
			// The owner is resolved first so the subscription can start as
			// soon as the job is accepted.
			me, err := cl.Me(cmd.Context())
			if err != nil {
				return fmt.Errorf("load account: %w", err)
			}
			res, err := cl.GenerateVideo(cmd.Context(), req)
			switch {
			case errors.Is(err, domain.ErrInsufficientPoints):
				return fmt.Errorf("not enough points (balance %d): %w", me.PointsBalance, err)
			case errors.Is(err, domain.ErrWebhookMissing):
				return fmt.Errorf("no generation webhook configured, set one with `woovideo prefs set --webhook-url`: %w", err)
			case err != nil:
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Job %s accepted (%d points on completion)\n", res.JobID, res.PointsCost)
			if noWait {
				return nil
			}
			return ctx.watchJob(cmd.Context(), out, cl, res.JobID, me.ID)
		},
	}

	flags := cmd.Flags()
	flags.StringVar(&req.ProductID, "product-id", "", "WooCommerce product ID")
	flags.StringVar(&req.ProductName, "product-name", "", "Product name")
	flags.StringVar(&req.ProductImageURL, "image-url", "", "Product image URL")
	flags.StringVar(&req.ProductDescription, "description", "", "Product description")
	flags.IntVar(&req.Duration, "duration", 0, "Video length in seconds")
	flags.StringVar(&req.AspectRatio, "aspect-ratio", "", "Aspect ratio, e.g. 9:16")
	flags.StringVar(&req.Style, "style", "", "Visual style")
	flags.StringVar(&req.Voice, "voice", "", "Narration voice")
	flags.StringVar(&req.Instructions, "instructions", "", "Free-form instructions for the workflow")
	flags.BoolVar(&noWait, "no-wait", false, "Print the job ID and exit without waiting")
	return cmd
}
