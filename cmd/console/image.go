package main

import (
	"fmt"
	"io"
	"strings"

	"emperror.dev/errors"
	"github.com/spf13/cobra"

	"github.com/matgreaves/console/internal/dockerutil"
)

func (c *cli) verifyImageCommand() *cobra.Command {
	var (
		username      string
		passwordStdin bool
	)

	cmd := &cobra.Command{
		Use:   "verify-image <image>",
		Short: "Check that an image exists in its registry",
		Long: `verify-image asks the image's registry, through the local Docker daemon,
whether the image exists. Private registries take --username and a password
read from stdin.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var auth *dockerutil.RegistryAuth
			if username != "" {
				if !passwordStdin {
					return errors.New("--username needs --password-stdin")
				}
				password, err := readPassword(cmd.InOrStdin())
				if err != nil {
					return err
				}
				auth = &dockerutil.RegistryAuth{Username: username, Password: password}
			}

			info, err := c.verifyImage(cmd.Context(), args[0], auth)
			if err != nil {
				return err
			}

			fmt.Fprintf(c.out, "%s\n  registry:  %s\n  digest:    %s\n", info.Reference, info.Registry, info.Digest)
			if len(info.Platforms) > 0 {
				fmt.Fprintf(c.out, "  platforms: %s\n", strings.Join(info.Platforms, ", "))
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&username, "username", "u", "", "registry username")
	cmd.Flags().BoolVar(&passwordStdin, "password-stdin", false, "read the registry password from stdin")
	return cmd
}

func readPassword(r io.Reader) (string, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return "", errors.Wrap(err, "read password")
	}
	password := strings.TrimRight(string(data), "\r\n")
	if password == "" {
		return "", errors.New("empty password on stdin")
	}
	return password, nil
}
