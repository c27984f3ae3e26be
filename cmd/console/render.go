package main

import (
	"fmt"

	"github.com/spf13/cobra"

	console "github.com/matgreaves/console/client"
	"github.com/matgreaves/console/form"
)

func (c *cli) renderCommand() *cobra.Command {
	var ports []string
	cmd := &cobra.Command{
		Use:   "render <form.yaml>",
		Short: "Print the deployment definition of a service form",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := loadForm(args[0], ports)
			if err != nil {
				return err
			}
			if problems := form.Validate(f); len(problems) > 0 {
				return &console.FormError{Problems: problems}
			}
			return c.printJSON(form.ToDefinition(f))
		},
	}
	cmd.Flags().StringArrayVar(&ports, "port", nil, "replace the form's ports, as PORT[/PROTO][@PATH] (repeatable)")
	return cmd
}

func (c *cli) validateCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "validate <form.yaml>",
		Short: "Check a service form without submitting it",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := form.DecodeFile(args[0])
			if err != nil {
				return err
			}
			if problems := form.Validate(f); len(problems) > 0 {
				return &console.FormError{Problems: problems}
			}
			fmt.Fprintf(c.out, "%s: ok\n", args[0])
			return nil
		},
	}
}

// loadForm decodes the form at path and applies --port overrides.
func loadForm(path string, portFlags []string) (form.ServiceForm, error) {
	f, err := form.DecodeFile(path)
	if err != nil {
		return form.ServiceForm{}, err
	}
	if len(portFlags) > 0 {
		ports, err := parsePorts(portFlags)
		if err != nil {
			return form.ServiceForm{}, err
		}
		f.Ports = ports
	}
	return f, nil
}
