package console

import (
	"context"
	"net/http"

	"emperror.dev/errors"

	"github.com/matgreaves/console/spec"
)

type appEnvelope struct {
	App spec.App `json:"app"`
}

type organizationEnvelope struct {
	Organization spec.Organization `json:"organization"`
}

type tokenEnvelope struct {
	Token spec.Token `json:"token"`
}

type userEnvelope struct {
	User spec.User `json:"user"`
}

type volumeEnvelope struct {
	Volume spec.Volume `json:"volume"`
}

type volumesEnvelope struct {
	Volumes []spec.Volume `json:"volumes"`
}

type secretEnvelope struct {
	Secret spec.Secret `json:"secret"`
}

type secretsEnvelope struct {
	Secrets []spec.Secret `json:"secrets"`
}

type nameRequest struct {
	Name string `json:"name"`
}

func (c *Client) GetApp(ctx context.Context, id string) (spec.App, error) {
	var out appEnvelope
	if err := c.do(ctx, http.MethodGet, "/v1/apps/"+id, nil, nil, &out); err != nil {
		return spec.App{}, errors.WithDetails(err, "app", id)
	}
	return out.App, nil
}

func (c *Client) CreateApp(ctx context.Context, name string) (spec.App, error) {
	var out appEnvelope
	if err := c.do(ctx, http.MethodPost, "/v1/apps", nil, nameRequest{Name: name}, &out); err != nil {
		return spec.App{}, errors.WithDetails(err, "app", name)
	}
	return out.App, nil
}

func (c *Client) CreateOrganization(ctx context.Context, name string) (spec.Organization, error) {
	var out organizationEnvelope
	if err := c.do(ctx, http.MethodPost, "/v1/organizations", nil, nameRequest{Name: name}, &out); err != nil {
		return spec.Organization{}, errors.WithDetails(err, "organization", name)
	}
	return out.Organization, nil
}

// SwitchOrganization exchanges the current token for one scoped to the
// organization. The client keeps using the old token; see
// JoinNewOrganization.
func (c *Client) SwitchOrganization(ctx context.Context, id string) (spec.Token, error) {
	var out tokenEnvelope
	if err := c.do(ctx, http.MethodPost, "/v1/organizations/"+id+"/switch", nil, nil, &out); err != nil {
		return spec.Token{}, errors.WithDetails(err, "organization", id)
	}
	return out.Token, nil
}

// JoinNewOrganization creates an organization, switches to it and makes
// the client use the new token.
func (c *Client) JoinNewOrganization(ctx context.Context, name string) (spec.Organization, error) {
	org, err := c.CreateOrganization(ctx, name)
	if err != nil {
		return spec.Organization{}, err
	}

	token, err := c.SwitchOrganization(ctx, org.ID)
	if err != nil {
		return spec.Organization{}, errors.Wrap(err, "switch to new organization")
	}

	c.SetToken(token.ID)
	return org, nil
}

// GetUser returns the authenticated user.
func (c *Client) GetUser(ctx context.Context) (spec.User, error) {
	var out userEnvelope
	if err := c.do(ctx, http.MethodGet, "/v1/account/profile", nil, nil, &out); err != nil {
		return spec.User{}, err
	}
	return out.User, nil
}

// UpdateUser renames the authenticated user.
func (c *Client) UpdateUser(ctx context.Context, name string) (spec.User, error) {
	var out userEnvelope
	if err := c.do(ctx, http.MethodPut, "/v1/account/profile", nil, nameRequest{Name: name}, &out); err != nil {
		return spec.User{}, err
	}
	return out.User, nil
}

func (c *Client) ListVolumes(ctx context.Context) ([]spec.Volume, error) {
	var out volumesEnvelope
	if err := c.do(ctx, http.MethodGet, "/v1/volumes", nil, nil, &out); err != nil {
		return nil, err
	}
	return out.Volumes, nil
}

func (c *Client) CreateVolume(ctx context.Context, v spec.Volume) (spec.Volume, error) {
	var out volumeEnvelope
	if err := c.do(ctx, http.MethodPost, "/v1/volumes", nil, v, &out); err != nil {
		return spec.Volume{}, errors.WithDetails(err, "volume", v.Name)
	}
	return out.Volume, nil
}

func (c *Client) ListSecrets(ctx context.Context) ([]spec.Secret, error) {
	var out secretsEnvelope
	if err := c.do(ctx, http.MethodGet, "/v1/secrets", nil, nil, &out); err != nil {
		return nil, err
	}
	return out.Secrets, nil
}

// CreateSecret stores value under name. The value is never returned.
func (c *Client) CreateSecret(ctx context.Context, name, value string) (spec.Secret, error) {
	body := struct {
		Name  string `json:"name"`
		Value string `json:"value"`
	}{name, value}

	var out secretEnvelope
	if err := c.do(ctx, http.MethodPost, "/v1/secrets", nil, body, &out); err != nil {
		return spec.Secret{}, errors.WithDetails(err, "secret", name)
	}
	return out.Secret, nil
}
