package console

import (
	"bufio"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"

	"emperror.dev/errors"

	"github.com/matgreaves/console/spec"
)

// ErrDeploymentFailed is returned by WaitDeployment when a deployment
// settles in any status other than healthy.
const ErrDeploymentFailed = errors.Sentinel("deployment failed")

// StreamDeploymentEvents replays the events of a deployment from the
// first and then follows new ones, calling fn for each. It returns when fn
// reports done, fn fails, ctx is cancelled or the server ends the stream.
func (c *Client) StreamDeploymentEvents(ctx context.Context, id string, fn func(spec.DeploymentEvent) (done bool, err error)) error {
	url := urlJoin(c.baseURL, "/v1/deployments/"+id+"/events/stream")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return errors.Wrap(err, "create event stream request")
	}
	req.Header.Set("Accept", "text/event-stream")
	if token := c.Token(); token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.stream.Do(req)
	if err != nil {
		return errors.Wrap(err, "connect to event stream")
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return newAPIError(resp.StatusCode, string(body))
	}

	scanner := bufio.NewScanner(resp.Body)
	var eventType, data string

	for scanner.Scan() {
		line := scanner.Text()

		switch {
		case strings.HasPrefix(line, "event: "):
			eventType = strings.TrimPrefix(line, "event: ")

		case strings.HasPrefix(line, "data: "):
			data = strings.TrimPrefix(line, "data: ")

		case line == "":
			if eventType == "" || data == "" {
				eventType, data = "", ""
				continue
			}

			var ev spec.DeploymentEvent
			if err := json.Unmarshal([]byte(data), &ev); err != nil {
				eventType, data = "", ""
				continue
			}

			done, err := fn(ev)
			if err != nil {
				return err
			}
			if done {
				return nil
			}

			eventType, data = "", ""
		}
	}

	if err := scanner.Err(); err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return errors.Wrap(err, "event stream read")
	}
	return errors.New("event stream closed before the deployment settled")
}

// WaitDeployment blocks until the deployment leaves the upcoming statuses
// and returns it. A deployment that settles unhealthy is returned together
// with an error matching ErrDeploymentFailed.
func (c *Client) WaitDeployment(ctx context.Context, id string) (spec.Deployment, error) {
	err := c.StreamDeploymentEvents(ctx, id, func(ev spec.DeploymentEvent) (bool, error) {
		if ev.Status == "" {
			return false, nil
		}
		c.log.WithField("deployment", id).WithField("status", ev.Status).Debug("deployment status")
		return !isUpcomingStatus(ev.Status), nil
	})
	if err != nil {
		return spec.Deployment{}, errors.WithDetails(err, "deployment", id)
	}

	dep, err := c.GetDeployment(ctx, id)
	if err != nil {
		return spec.Deployment{}, err
	}
	if dep.Status != spec.StatusHealthy {
		return dep, errors.Wrapf(ErrDeploymentFailed, "deployment %s is %s", id, dep.Status)
	}
	return dep, nil
}
