package console

import (
	"context"
	"strings"

	"emperror.dev/errors"
	"github.com/matgreaves/run"

	"github.com/matgreaves/console/form"
	"github.com/matgreaves/console/spec"
)

// ServiceWriter is the part of the API Submit needs.
type ServiceWriter interface {
	CreateService(ctx context.Context, appID string, def spec.DeploymentDefinition) (spec.Service, error)
	UpdateService(ctx context.Context, id string, req UpdateServiceRequest) (spec.Service, error)
}

// FormError lists the problems that kept a form from being submitted.
type FormError struct {
	Problems []string
}

func (e *FormError) Error() string {
	return "invalid service form:\n  " + strings.Join(e.Problems, "\n  ")
}

// Is makes a FormError match ErrValidation.
func (e *FormError) Is(target error) bool {
	return target == ErrValidation
}

// Submit validates f, maps it to a definition and creates the service, or
// updates it when f.Meta.ServiceID is set.
func Submit(ctx context.Context, api ServiceWriter, f form.ServiceForm) (spec.Service, error) {
	if problems := form.Validate(f); len(problems) > 0 {
		return spec.Service{}, &FormError{Problems: problems}
	}

	def := form.ToDefinition(f)

	if f.Meta.ServiceID == nil {
		if f.Meta.AppID == nil || *f.Meta.AppID == "" {
			return spec.Service{}, &FormError{Problems: []string{"an app id is required to create a service"}}
		}
		return api.CreateService(ctx, *f.Meta.AppID, def)
	}

	return api.UpdateService(ctx, *f.Meta.ServiceID, UpdateServiceRequest{
		Definition: def,
		SkipBuild:  f.Meta.SkipBuild && f.Meta.HasPreviousBuild,
		SaveOnly:   f.Meta.SaveOnly,
	})
}

// Deploy submits f and waits for the resulting deployment to settle. A
// save-only submission starts no deployment and returns the service's
// latest deployment as is.
func Deploy(ctx context.Context, c *Client, f form.ServiceForm) (spec.Service, spec.Deployment, error) {
	var (
		svc spec.Service
		dep spec.Deployment
	)

	submit := run.Func(func(ctx context.Context) error {
		var err error
		svc, err = Submit(ctx, c, f)
		return err
	})

	wait := run.Func(func(ctx context.Context) error {
		if svc.LatestDeploymentID == "" {
			return errors.Errorf("service %s has no deployment", svc.ID)
		}
		var err error
		if f.Meta.SaveOnly {
			dep, err = c.GetDeployment(ctx, svc.LatestDeploymentID)
			return err
		}
		dep, err = c.WaitDeployment(ctx, svc.LatestDeploymentID)
		return err
	})

	err := run.Sequence{submit, wait}.Run(ctx)
	return svc, dep, err
}
