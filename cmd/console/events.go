package main

import (
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	console "github.com/matgreaves/console/client"
	"github.com/matgreaves/console/spec"
)

func (c *cli) eventsCommand() *cobra.Command {
	var follow bool

	cmd := &cobra.Command{
		Use:   "events <deployment-id>",
		Short: "Show the lifecycle events of a deployment",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			if !follow {
				events, err := c.client.ListDeploymentEvents(ctx, args[0])
				if err != nil {
					return err
				}
				var t0 time.Time
				for _, ev := range events {
					t0 = c.renderEvent(c.out, ev, t0)
				}
				return nil
			}

			var t0 time.Time
			return c.client.StreamDeploymentEvents(ctx, args[0], func(ev spec.DeploymentEvent) (bool, error) {
				t0 = c.renderEvent(c.out, ev, t0)
				return ev.Status != "" && !console.IsUpcomingDeployment(spec.Deployment{Status: ev.Status}), nil
			})
		},
	}

	cmd.Flags().BoolVarP(&follow, "follow", "f", false, "wait for new events until the deployment settles")
	return cmd
}

// renderEvent writes one event row timed relative to t0, the first event's
// timestamp, and returns t0.
func (c *cli) renderEvent(w io.Writer, ev spec.DeploymentEvent, t0 time.Time) time.Time {
	if t0.IsZero() {
		t0 = ev.Timestamp
	}
	status := fmt.Sprintf("%-12s", ev.Status)
	if ev.Status != "" {
		status = c.colorStatus(ev.Status) + status[len(ev.Status):]
	}
	fmt.Fprintf(w, "%s  %s  %s\n", c.dim(formatDuration(ev.Timestamp.Sub(t0))), status, ev.Message)
	return t0
}

func formatDuration(d time.Duration) string {
	return fmt.Sprintf("+%.3fs", d.Seconds())
}
