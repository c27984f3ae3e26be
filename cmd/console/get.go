package main

import (
	"fmt"
	"text/tabwriter"

	"emperror.dev/errors"
	"github.com/spf13/cobra"

	console "github.com/matgreaves/console/client"
)

func (c *cli) getCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "get",
		Short: "Show a service or a deployment",
	}

	var events bool
	deployment := &cobra.Command{
		Use:   "deployment <id>",
		Short: "Show a deployment",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if events {
				evs, err := c.client.ListDeploymentEvents(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				return c.printJSON(evs)
			}
			dep, err := c.client.GetDeployment(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return c.printJSON(dep)
		},
	}
	deployment.Flags().BoolVar(&events, "events", false, "show the deployment's events instead")

	cmd.AddCommand(
		&cobra.Command{
			Use:   "service <id>",
			Short: "Show a service",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				svc, err := c.client.GetService(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				return c.printJSON(svc)
			},
		},
		deployment,
	)
	return cmd
}

func (c *cli) urlsCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "urls <service-id>",
		Short: "List the internal and public URLs of a service",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			svc, err := c.client.GetService(ctx, args[0])
			if err != nil {
				return err
			}
			depID := svc.ActiveDeploymentID
			if depID == "" {
				depID = svc.LatestDeploymentID
			}
			if depID == "" {
				return errors.Errorf("service %s has no deployment", svc.ID)
			}

			dep, err := c.client.GetDeployment(ctx, depID)
			if err != nil {
				return err
			}
			app, err := c.client.GetApp(ctx, svc.AppID)
			if err != nil {
				return err
			}

			urls := console.ServiceURLs(app, svc, dep)
			if len(urls) == 0 {
				fmt.Fprintln(c.out, "no urls")
				return nil
			}

			tw := tabwriter.NewWriter(c.out, 0, 0, 2, ' ', 0)
			fmt.Fprintln(tw, "PORT\tINTERNAL\tPUBLIC")
			for _, u := range urls {
				public := u.ExternalURL
				if public == "" {
					public = "-"
				}
				fmt.Fprintf(tw, "%d\t%s\t%s\n", u.PortNumber, u.InternalURL, public)
			}
			return tw.Flush()
		},
	}
}
