package console

import (
	"context"
	"slices"
	"strconv"
	"strings"

	"emperror.dev/errors"
	"github.com/jinzhu/copier"

	"github.com/matgreaves/console/spec"
)

// DatabasePort is the port database services listen on.
const DatabasePort = 5432

// ServiceURL is an address a service can be reached at. ExternalURL is
// empty for ports that are not routed.
type ServiceURL struct {
	PortNumber  int
	InternalURL string
	ExternalURL string
}

// ServiceURLs lists where a deployed service can be reached. Compute
// services need a domain on the app to be reachable at all; database
// services are reached on their host.
func ServiceURLs(app spec.App, svc spec.Service, dep spec.Deployment) []ServiceURL {
	def := dep.Definition

	if def.Type == spec.Database || dep.DatabaseInfo != nil {
		if dep.DatabaseInfo == nil || dep.DatabaseInfo.Host == "" {
			return nil
		}
		return []ServiceURL{{PortNumber: DatabasePort, InternalURL: dep.DatabaseInfo.Host}}
	}

	if len(app.Domains) == 0 {
		return nil
	}
	domain := app.Domains[0].Name

	urls := make([]ServiceURL, 0, len(def.Ports))
	for _, p := range def.Ports {
		u := ServiceURL{
			PortNumber:  p.Port,
			InternalURL: strings.Join([]string{svc.Name, app.Name, "internal"}, ".") + ":" + strconv.Itoa(p.Port),
		}
		if i := slices.IndexFunc(def.Routes, func(r spec.Route) bool { return r.Port == p.Port }); i >= 0 {
			u.ExternalURL = domain + def.Routes[i].Path
		}
		urls = append(urls, u)
	}
	return urls
}

var upcomingStatuses = []spec.DeploymentStatus{
	spec.StatusPending,
	spec.StatusProvisioning,
	spec.StatusScheduled,
	spec.StatusAllocating,
	spec.StatusStarting,
}

func isUpcomingStatus(s spec.DeploymentStatus) bool {
	return slices.Contains(upcomingStatuses, s)
}

// IsUpcomingDeployment reports whether dep has not started serving yet.
func IsUpcomingDeployment(dep spec.Deployment) bool {
	return isUpcomingStatus(dep.Status)
}

// HasBuild reports whether dep was built from source rather than pulled
// as an image.
func HasBuild(dep spec.Deployment) bool {
	switch dep.Definition.SourceType() {
	case "git", "archive":
		return true
	}
	return false
}

// UpdateDatabaseService applies updater to a copy of the latest
// definition of a service and submits the result.
func (c *Client) UpdateDatabaseService(ctx context.Context, serviceID string, updater func(*spec.DeploymentDefinition)) (spec.Service, error) {
	svc, err := c.GetService(ctx, serviceID)
	if err != nil {
		return spec.Service{}, err
	}
	if svc.LatestDeploymentID == "" {
		return spec.Service{}, errors.Errorf("service %s has no deployment", serviceID)
	}

	dep, err := c.GetDeployment(ctx, svc.LatestDeploymentID)
	if err != nil {
		return spec.Service{}, err
	}

	var def spec.DeploymentDefinition
	if err := copier.CopyWithOption(&def, &dep.Definition, copier.Option{DeepCopy: true}); err != nil {
		return spec.Service{}, errors.Wrap(err, "copy definition")
	}
	// copier allocates empty slices for nil ones; keep omitted keys omitted.
	if dep.Definition.Ports == nil {
		def.Ports = nil
	}
	if dep.Definition.Routes == nil {
		def.Routes = nil
	}
	if dep.Definition.HealthChecks == nil {
		def.HealthChecks = nil
	}

	updater(&def)

	return c.UpdateService(ctx, serviceID, UpdateServiceRequest{Definition: def})
}
