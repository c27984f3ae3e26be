package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	console "github.com/matgreaves/console/client"
	"github.com/matgreaves/console/form"
)

func (c *cli) deployCommand() *cobra.Command {
	var (
		wait        bool
		skipBuild   bool
		saveOnly    bool
		verifyImage bool
		appID       string
		serviceID   string
		ports       []string
	)

	cmd := &cobra.Command{
		Use:   "deploy <form.yaml>",
		Short: "Create or update a service from a service form",
		Long: `deploy submits a service form. A form whose meta.serviceId is set (or
--service) updates that service; otherwise a service is created in
meta.appId (or --app).`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			f, err := loadForm(args[0], ports)
			if err != nil {
				return err
			}
			if appID != "" {
				f.Meta.AppID = &appID
			}
			if serviceID != "" {
				f.Meta.ServiceID = &serviceID
			}
			if cmd.Flags().Changed("skip-build") {
				f.Meta.SkipBuild = skipBuild
			}
			if cmd.Flags().Changed("save-only") {
				f.Meta.SaveOnly = saveOnly
			}
			if f.Meta.ServiceID != nil && f.Meta.SkipBuild {
				if err := c.markPreviousBuild(ctx, &f); err != nil {
					return err
				}
			}

			if verifyImage && f.Source.Type == form.SourceDocker {
				info, err := c.verifyImage(ctx, f.Source.Docker.Image, nil)
				if err != nil {
					return err
				}
				c.log.WithField("digest", info.Digest).Infof("image %s found in %s", info.Reference, info.Registry)
			}

			if !wait {
				svc, err := console.Submit(ctx, c.client, f)
				if err != nil {
					return err
				}
				return c.printJSON(svc)
			}

			svc, dep, err := console.Deploy(ctx, c.client, f)
			if dep.ID != "" {
				fmt.Fprintf(c.out, "service %s (%s): deployment %s %s\n", c.bold(svc.Name), svc.ID, dep.ID, c.colorStatus(dep.Status))
			}
			return err
		},
	}

	fl := cmd.Flags()
	fl.BoolVar(&wait, "wait", false, "wait for the deployment to settle")
	fl.BoolVar(&skipBuild, "skip-build", false, "reuse the previous build of a git or archive service")
	fl.BoolVar(&saveOnly, "save-only", false, "save the definition without deploying it")
	fl.BoolVar(&verifyImage, "verify-image", false, "check that a docker image exists before submitting")
	fl.StringVar(&appID, "app", "", "app to create the service in")
	fl.StringVar(&serviceID, "service", "", "service to update")
	fl.StringArrayVar(&ports, "port", nil, "replace the form's ports, as PORT[/PROTO][@PATH] (repeatable)")
	return cmd
}

// markPreviousBuild records whether the service being updated has a build
// to reuse.
func (c *cli) markPreviousBuild(ctx context.Context, f *form.ServiceForm) error {
	svc, err := c.client.GetService(ctx, *f.Meta.ServiceID)
	if err != nil {
		return err
	}
	if svc.LatestDeploymentID == "" {
		return nil
	}
	dep, err := c.client.GetDeployment(ctx, svc.LatestDeploymentID)
	if err != nil {
		return err
	}
	f.Meta.HasPreviousBuild = console.HasBuild(dep)
	return nil
}

func (c *cli) redeployCommand() *cobra.Command {
	var (
		req  console.RedeployRequest
		wait bool
	)

	cmd := &cobra.Command{
		Use:   "redeploy <service-id>",
		Short: "Deploy the latest definition of a service again",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			dep, err := c.client.RedeployService(ctx, args[0], req)
			if err != nil {
				return err
			}
			if !wait {
				return c.printJSON(dep)
			}

			dep, err = c.client.WaitDeployment(ctx, dep.ID)
			if dep.ID != "" {
				fmt.Fprintf(c.out, "deployment %s %s\n", dep.ID, c.colorStatus(dep.Status))
			}
			return err
		},
	}

	fl := cmd.Flags()
	fl.BoolVar(&req.SkipBuild, "skip-build", false, "reuse the previous build")
	fl.BoolVar(&req.UseCache, "use-cache", false, "allow the build to use its cache")
	fl.BoolVar(&wait, "wait", false, "wait for the deployment to settle")
	return cmd
}
