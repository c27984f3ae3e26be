package console

import (
	"context"
	"net/http"

	"emperror.dev/errors"

	"github.com/matgreaves/console/spec"
)

// CreateServiceRequest is the body of POST /v1/services.
type CreateServiceRequest struct {
	AppID      string                    `json:"app_id"`
	Definition spec.DeploymentDefinition `json:"definition"`
}

// UpdateServiceRequest is the body of PUT /v1/services/{id}.
type UpdateServiceRequest struct {
	Definition spec.DeploymentDefinition `json:"definition"`

	// SkipBuild reuses the previous build of a git or archive service.
	SkipBuild bool `json:"skip_build,omitempty"`

	// SaveOnly stores the definition without deploying it.
	SaveOnly bool `json:"save_only,omitempty"`
}

// RedeployRequest is the body of POST /v1/services/{id}/redeploy.
type RedeployRequest struct {
	SkipBuild bool `json:"skip_build,omitempty"`
	UseCache  bool `json:"use_cache,omitempty"`
}

type serviceEnvelope struct {
	Service spec.Service `json:"service"`
}

type servicesEnvelope struct {
	Services []spec.Service `json:"services"`
}

type deploymentEnvelope struct {
	Deployment spec.Deployment `json:"deployment"`
}

type eventsEnvelope struct {
	Events []spec.DeploymentEvent `json:"events"`
}

func (c *Client) GetService(ctx context.Context, id string) (spec.Service, error) {
	var out serviceEnvelope
	if err := c.do(ctx, http.MethodGet, "/v1/services/"+id, nil, nil, &out); err != nil {
		return spec.Service{}, errors.WithDetails(err, "service", id)
	}
	return out.Service, nil
}

// ListServices returns the services of an app, or of the organization
// when appID is empty.
func (c *Client) ListServices(ctx context.Context, appID string) ([]spec.Service, error) {
	var query map[string]string
	if appID != "" {
		query = map[string]string{"app_id": appID}
	}
	var out servicesEnvelope
	if err := c.do(ctx, http.MethodGet, "/v1/services", query, nil, &out); err != nil {
		return nil, err
	}
	return out.Services, nil
}

// CreateService creates a service in an app and starts its first
// deployment.
func (c *Client) CreateService(ctx context.Context, appID string, def spec.DeploymentDefinition) (spec.Service, error) {
	var out serviceEnvelope
	body := CreateServiceRequest{AppID: appID, Definition: def}
	if err := c.do(ctx, http.MethodPost, "/v1/services", nil, body, &out); err != nil {
		return spec.Service{}, errors.WithDetails(err, "service", def.Name)
	}
	return out.Service, nil
}

// UpdateService replaces the definition of a service. Unless SaveOnly is
// set, a new deployment is started.
func (c *Client) UpdateService(ctx context.Context, id string, req UpdateServiceRequest) (spec.Service, error) {
	var out serviceEnvelope
	if err := c.do(ctx, http.MethodPut, "/v1/services/"+id, nil, req, &out); err != nil {
		return spec.Service{}, errors.WithDetails(err, "service", id)
	}
	return out.Service, nil
}

// RedeployService starts a new deployment of the current definition.
func (c *Client) RedeployService(ctx context.Context, id string, req RedeployRequest) (spec.Deployment, error) {
	var out deploymentEnvelope
	if err := c.do(ctx, http.MethodPost, "/v1/services/"+id+"/redeploy", nil, req, &out); err != nil {
		return spec.Deployment{}, errors.WithDetails(err, "service", id)
	}
	return out.Deployment, nil
}

func (c *Client) GetDeployment(ctx context.Context, id string) (spec.Deployment, error) {
	var out deploymentEnvelope
	if err := c.do(ctx, http.MethodGet, "/v1/deployments/"+id, nil, nil, &out); err != nil {
		return spec.Deployment{}, errors.WithDetails(err, "deployment", id)
	}
	return out.Deployment, nil
}

// ListDeploymentEvents returns the events recorded so far for a
// deployment, oldest first.
func (c *Client) ListDeploymentEvents(ctx context.Context, id string) ([]spec.DeploymentEvent, error) {
	var out eventsEnvelope
	if err := c.do(ctx, http.MethodGet, "/v1/deployments/"+id+"/events", nil, nil, &out); err != nil {
		return nil, errors.WithDetails(err, "deployment", id)
	}
	return out.Events, nil
}
