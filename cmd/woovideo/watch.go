package main

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"woovideo/internal/client"
	"woovideo/internal/domain"
)

var (
	errJobFailed  = errors.New("video generation failed")
	errJobStalled = errors.New("gave up waiting for the video")
)

func newWatchCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "watch <job_id>",
		Short: "Wait until a generation job completes or fails",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cl, err := ctx.ensureClient()
			if err != nil {
				return err
			}
			me, err := cl.Me(cmd.Context())
			if err != nil {
				return fmt.Errorf("load account: %w", err)
			}
			return ctx.watchJob(cmd.Context(), cmd.OutOrStdout(), cl, args[0], me.ID)
		},
	}
}

// watchJob blocks until the job's terminal event arrives or ctx ends.
func (c *commandContext) watchJob(ctx context.Context, out io.Writer, cl *client.Client, jobID string, ownerID int64) error {
	n, err := c.newNotifier(cl)
	if err != nil {
		return err
	}
	events := make(chan domain.JobEvent, 1)
	sub, err := n.Subscribe(jobID, ownerID, func(ev domain.JobEvent) {
		events <- ev
	})
	if err != nil {
		return err
	}
	defer sub.Cancel()

	fmt.Fprintf(out, "Waiting for job %s...\n", jobID)
	select {
	case <-ctx.Done():
		return ctx.Err()
	case ev := <-events:
		return printEvent(out, ev)
	}
}

func printEvent(out io.Writer, ev domain.JobEvent) error {
	switch ev.Kind {
	case domain.EventVideoCompleted:
		fmt.Fprintf(out, "Video ready: %s\n", ev.VideoURL)
		if ev.NewBalance != nil {
			fmt.Fprintf(out, "Points deducted: %d, balance: %d\n", ev.PointsDeducted, *ev.NewBalance)
		}
		return nil
	case domain.EventVideoFailed:
		if ev.NewBalance != nil {
			fmt.Fprintf(out, "Balance: %d\n", *ev.NewBalance)
		}
		if ev.Message == "" {
			return errJobFailed
		}
		return fmt.Errorf("%w: %s", errJobFailed, ev.Message)
	default:
		return fmt.Errorf("%w after %d status checks", errJobStalled, ev.Attempts)
	}
}
