// Command consoled serves the hosting API from memory for local
// development against the console client and CLI.
package main

import (
	"context"
	"flag"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"emperror.dev/errors"
	log "github.com/sirupsen/logrus"

	"github.com/matgreaves/console/server"
	"github.com/matgreaves/console/spec"
)

func main() {
	addr := flag.String("addr", "127.0.0.1:8642", "listen address")
	idle := flag.Duration("idle", 0, "idle shutdown timeout (0 to disable)")
	stepDelay := flag.Duration("step-delay", 500*time.Millisecond, "pause between deployment status changes")
	domain := flag.String("domain", "localhost", "domain apps are served under")
	token := flag.String("token", "", "bootstrap session token (default random)")
	level := flag.String("log-level", "info", "log level")
	logJSON := flag.Bool("log-json", false, "log as JSON")
	fail := flag.String("fail-image", "", "docker image whose deployments settle unhealthy")
	flag.Parse()

	logger := log.StandardLogger()
	lvl, err := log.ParseLevel(*level)
	if err != nil {
		logger.WithError(err).Fatal("consoled: invalid log level")
	}
	logger.SetLevel(lvl)
	if *logJSON {
		logger.SetFormatter(&log.JSONFormatter{})
	}

	cfg := server.Config{
		Domain:      *domain,
		StepDelay:   *stepDelay,
		Token:       *token,
		IdleTimeout: *idle,
		Logger:      logger,
	}
	if *fail != "" {
		cfg.Outcome = func(def spec.DeploymentDefinition) spec.DeploymentStatus {
			if def.Docker != nil && def.Docker.Image == *fail {
				return spec.StatusUnhealthy
			}
			return spec.StatusHealthy
		}
	}
	s := server.NewServer(cfg)

	ln, err := net.Listen("tcp", *addr)
	if err != nil {
		logger.WithError(err).Fatal("consoled: listen")
	}

	logger.WithField("addr", ln.Addr().String()).Info("consoled listening")
	if *token == "" {
		logger.WithField("token", s.Token()).Info("generated session token")
	}

	httpSrv := &http.Server{Handler: s}

	serveErr := make(chan error, 1)
	go func() { serveErr <- httpSrv.Serve(ln) }()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-s.ShutdownCh():
		logger.Info("consoled: idle timeout, shutting down")
	case sig := <-sigCh:
		logger.Infof("consoled: received %s, shutting down", sig)
	case err := <-serveErr:
		if !errors.Is(err, http.ErrServerClosed) {
			logger.WithError(err).Error("consoled: serve")
			s.Close()
			os.Exit(1)
		}
	}

	// Ends open event streams so Shutdown does not wait on them.
	s.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpSrv.Shutdown(ctx); err != nil {
		logger.WithError(err).Warn("consoled: shutdown")
	}
}
