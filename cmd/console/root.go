package main

import (
	"context"
	"encoding/json"
	"io"

	"emperror.dev/errors"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	console "github.com/matgreaves/console/client"
	"github.com/matgreaves/console/internal/config"
	"github.com/matgreaves/console/internal/dockerutil"
)

// cli is the state shared by every command of one invocation.
type cli struct {
	out   io.Writer
	log   *log.Logger
	color bool

	configPath string
	flags      config.Config
	cfg        config.Config
	client     *console.Client

	verifyImage func(ctx context.Context, image string, auth *dockerutil.RegistryAuth) (dockerutil.ImageInfo, error)
}

func newRootCommand(out io.Writer) *cobra.Command {
	return newCLI(out).rootCommand()
}

func newCLI(out io.Writer) *cli {
	return &cli{
		out:         out,
		log:         log.New(),
		color:       isTTY(out),
		verifyImage: dockerutil.VerifyImage,
	}
}

func (c *cli) rootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:   "console",
		Short: "Manage services on the hosting platform",
		Long: `console creates, deploys and inspects services from service form files.

Settings come from ~/.console/config.yaml (or $CONSOLE_CONFIG), then the
CONSOLE_API_URL, CONSOLE_TOKEN and CONSOLE_LOG_LEVEL variables, then flags.`,
		SilenceUsage:      true,
		SilenceErrors:     true,
		PersistentPreRunE: c.setup,
		PersistentPostRun: func(*cobra.Command, []string) {
			if c.client != nil {
				c.client.Close()
			}
		},
	}
	root.SetOut(c.out)

	pf := root.PersistentFlags()
	pf.StringVar(&c.configPath, "config", "", "config file (default $CONSOLE_CONFIG or ~/.console/config.yaml)")
	pf.StringVar(&c.flags.APIURL, "api-url", "", "API base URL")
	pf.StringVar(&c.flags.Token, "token", "", "session token")
	pf.StringVar(&c.flags.LogLevel, "log-level", "", "log level (debug, info, warn, error)")
	pf.DurationVar(&c.flags.Timeout, "timeout", 0, "per-request timeout")
	pf.Int("retries", 0, "retries for failed reads (0 disables)")

	root.AddCommand(
		c.renderCommand(),
		c.validateCommand(),
		c.deployCommand(),
		c.redeployCommand(),
		c.getCommand(),
		c.eventsCommand(),
		c.urlsCommand(),
		c.orgCommand(),
		c.userCommand(),
		c.verifyImageCommand(),
	)
	return root
}

func (c *cli) setup(cmd *cobra.Command, args []string) error {
	if c.configPath == "" {
		c.configPath = config.Path()
	}
	if f := cmd.Flags().Lookup("retries"); f != nil && f.Changed {
		n, err := cmd.Flags().GetInt("retries")
		if err != nil {
			return err
		}
		c.flags.Retries = &n
	}
	cfg, err := config.Load(c.configPath, c.flags)
	if err != nil {
		return err
	}
	if err := cfg.ConfigureLogger(c.log); err != nil {
		return err
	}
	c.log.SetOutput(cmd.ErrOrStderr())
	c.cfg = cfg
	c.client = cfg.Client(c.log)
	return nil
}

func (c *cli) printJSON(v any) error {
	enc := json.NewEncoder(c.out)
	enc.SetIndent("", "  ")
	return errors.Wrap(enc.Encode(v), "write output")
}
