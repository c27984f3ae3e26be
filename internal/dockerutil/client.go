// Package dockerutil talks to the local Docker daemon on behalf of the
// console: it shares one client per process and asks registries, through
// the daemon, whether deployable images exist.
package dockerutil

import (
	"os"
	"path/filepath"
	"sync"

	"github.com/docker/docker/client"
)

var (
	sharedClient *client.Client
	clientOnce   sync.Once
	clientErr    error
)

// Client returns the process-wide Docker client. Callers must not close it.
func Client() (*client.Client, error) {
	clientOnce.Do(func() {
		sharedClient, clientErr = newClient(os.Getenv("DOCKER_HOST"), socketCandidates())
	})
	return sharedClient, clientErr
}

// newClient builds a client from the environment. Without DOCKER_HOST the
// first existing socket among candidates is used, so Docker Desktop and
// colima work without extra setup.
func newClient(dockerHost string, candidates []string) (*client.Client, error) {
	opts := []client.Opt{client.FromEnv, client.WithAPIVersionNegotiation()}
	if dockerHost == "" {
		if sock := firstExisting(candidates); sock != "" {
			opts = append(opts, client.WithHost("unix://"+sock))
		}
	}
	return client.NewClientWithOpts(opts...)
}

func socketCandidates() []string {
	candidates := []string{"/var/run/docker.sock"}
	if home, err := os.UserHomeDir(); err == nil {
		candidates = append(candidates,
			filepath.Join(home, ".docker", "run", "docker.sock"),
			filepath.Join(home, ".colima", "default", "docker.sock"),
		)
	}
	return candidates
}

func firstExisting(paths []string) string {
	for _, p := range paths {
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}
	return ""
}
