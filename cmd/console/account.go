package main

import (
	"fmt"

	"emperror.dev/errors"
	"github.com/spf13/cobra"

	"github.com/matgreaves/console/internal/config"
)

func (c *cli) orgCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "org",
		Short: "Manage organizations",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "create <name>",
		Short: "Create an organization and switch to it",
		Long: `create makes a new organization, switches the session to it and saves
the new token to the config file.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			org, err := c.client.JoinNewOrganization(cmd.Context(), args[0])
			if err != nil {
				return err
			}

			// Only the token and organization change; the other layers
			// (env, flags) must not leak into the file.
			saved, err := config.ReadFile(c.configPath)
			if err != nil {
				return err
			}
			saved.Token = c.client.Token()
			saved.Organization = org.ID
			if err := saved.Save(c.configPath); err != nil {
				return errors.Wrap(err, "save session token")
			}

			c.log.WithField("config", c.configPath).Debug("session token saved")
			fmt.Fprintf(c.out, "switched to organization %s (%s)\n", org.Name, org.ID)
			return nil
		},
	})
	return cmd
}

func (c *cli) userCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "user",
		Short: "Show or rename the current user",
		RunE: func(cmd *cobra.Command, args []string) error {
			u, err := c.client.GetUser(cmd.Context())
			if err != nil {
				return err
			}
			return c.printJSON(u)
		},
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "rename <name>",
		Short: "Change the display name of the current user",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			u, err := c.client.UpdateUser(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			fmt.Fprintf(c.out, "renamed to %s\n", u.Name)
			return nil
		},
	})
	return cmd
}
