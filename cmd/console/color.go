package main

import (
	"io"
	"os"

	"github.com/matgreaves/console/spec"
)

func isTTY(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	fi, err := f.Stat()
	if err != nil {
		return false
	}
	return fi.Mode()&os.ModeCharDevice != 0
}

const (
	ansiReset  = "\033[0m"
	ansiBold   = "\033[1m"
	ansiDim    = "\033[2m"
	ansiRed    = "\033[31m"
	ansiGreen  = "\033[32m"
	ansiYellow = "\033[33m"
)

func (c *cli) bold(s string) string {
	if !c.color {
		return s
	}
	return ansiBold + s + ansiReset
}

func (c *cli) dim(s string) string {
	if !c.color {
		return s
	}
	return ansiDim + s + ansiReset
}

// colorStatus colors a deployment status by outcome. Upcoming statuses are
// yellow.
func (c *cli) colorStatus(status spec.DeploymentStatus) string {
	s := string(status)
	if !c.color || s == "" {
		return s
	}
	switch status {
	case spec.StatusHealthy:
		return ansiGreen + s + ansiReset
	case spec.StatusUnhealthy, spec.StatusError, spec.StatusDegraded:
		return ansiRed + s + ansiReset
	case spec.StatusCanceled, spec.StatusStopped, spec.StatusStashed:
		return ansiDim + s + ansiReset
	}
	return ansiYellow + s + ansiReset
}
