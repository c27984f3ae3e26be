package form

import (
	"slices"
	"strings"

	"github.com/huandu/xstrings"

	"github.com/matgreaves/console/spec"
)

// FromDefinition rebuilds a form from a fetched definition so an existing
// service can be edited and resubmitted. Sections the definition does not
// select keep their Defaults value.
//
// For any definition d produced by ToDefinition,
// ToDefinition(FromDefinition(d)) equals d.
func FromDefinition(def spec.DeploymentDefinition) ServiceForm {
	f := Defaults()

	f.ServiceName = def.Name
	f.ServiceType = Worker
	if def.Type == spec.Web {
		f.ServiceType = Web
	}

	f.Regions = slices.Clone(def.Regions)
	if len(def.InstanceTypes) > 0 {
		instance := def.InstanceTypes[0].Type
		f.Instance = &instance
	}

	switch {
	case def.Archive != nil:
		f.Source.Type = SourceArchive
		f.Source.Archive.ArchiveID = def.Archive.ID
		f.Builder = builderFromSpec(def.Archive.Buildpack, def.Archive.Docker)
	case def.Git != nil:
		f.Source.Type = SourceGit
		gitFromSpec(&f.Source.Git, *def.Git)
		f.Builder = builderFromSpec(def.Git.Buildpack, def.Git.Docker)
	case def.Docker != nil:
		f.Source.Type = SourceDocker
		f.Source.Docker = DockerSource{
			Image:          def.Docker.Image,
			RegistrySecret: optional(def.Docker.ImageRegistrySecret),
		}
		privileged := def.Docker.Privileged
		f.DockerDeployment = DockerDeploymentOptions{
			Entrypoint: slices.Clone(def.Docker.Entrypoint),
			Command:    optional(def.Docker.Command),
			Args:       slices.Clone(def.Docker.Args),
			Privileged: &privileged,
		}
	}

	scalingFromSpec(&f.Scaling, def.Scalings)
	f.EnvironmentVariables = envFromSpec(def.Env)
	f.Volumes = volumesFromSpec(def.Volumes)

	f.Ports = nil
	if def.Type == spec.Web {
		f.Ports = portsFromSpec(def.Ports, def.Routes, def.HealthChecks)
	}

	return f
}

// FromDeployment is FromDefinition for the latest deployment of svc, with
// the meta section filled in for an update.
func FromDeployment(svc spec.Service, dep spec.Deployment) ServiceForm {
	f := FromDefinition(dep.Definition)

	serviceID, appID := svc.ID, svc.AppID
	f.Meta.ServiceID = &serviceID
	f.Meta.AppID = &appID
	f.Meta.HasPreviousBuild = dep.Definition.Git != nil || dep.Definition.Archive != nil

	return f
}

func gitFromSpec(into *GitSource, g spec.GitSource) {
	name := g.Repository
	if host, _, rest := xstrings.Partition(g.Repository, "/"); host == githubHost {
		name = rest
	}
	branch := g.Branch

	into.WorkDirectory = optional(g.Workdir)
	if g.NoDeployOnPush != nil {
		into.RepositoryType = RepositoryOrganization
		into.OrganizationRepository = OrganizationRepository{
			RepositoryName: &name,
			Branch:         &branch,
			AutoDeploy:     !*g.NoDeployOnPush,
		}
		return
	}
	into.RepositoryType = RepositoryPublic
	into.PublicRepository = PublicRepository{
		RepositoryName: &name,
		Branch:         &branch,
	}
}

func builderFromSpec(buildpack *spec.BuildpackBuilder, docker *spec.DockerBuilder) Builder {
	var b Builder
	switch {
	case docker != nil:
		b.Type = BuilderDockerfile
		b.DockerfileOptions = DockerfileOptions{
			Dockerfile: optional(docker.Dockerfile),
			Entrypoint: slices.Clone(docker.Entrypoint),
			Command:    optional(docker.Command),
			Args:       slices.Clone(docker.Args),
			Target:     optional(docker.Target),
			Privileged: docker.Privileged,
		}
	case buildpack != nil:
		b.Type = BuilderBuildpack
		b.BuildpackOptions = BuildpackOptions{
			BuildCommand: optional(buildpack.BuildCommand),
			RunCommand:   optional(buildpack.RunCommand),
			Privileged:   buildpack.Privileged,
		}
	default:
		b.Type = BuilderBuildpack
	}
	return b
}

// scalingFromSpec treats a descriptor without a targets key and with
// min == max as fixed, and anything else as autoscaling.
func scalingFromSpec(into *Scaling, scalings []spec.Scaling) {
	if len(scalings) == 0 {
		return
	}
	s := scalings[0]

	into.AutoScaling.Min = s.Min
	into.AutoScaling.Max = s.Max
	if s.Targets == nil && s.Min == s.Max {
		into.Type = ScalingFixed
		into.Fixed = s.Min
		return
	}

	into.Type = ScalingAutoscaling
	for _, t := range s.Targets {
		field, v := t.Field()
		setting := into.AutoScaling.Targets.Get(TargetForField(field))
		if setting == nil {
			continue
		}
		setting.Enabled = true
		setting.Value = v.Value
	}
}

func envFromSpec(env []spec.Env) []EnvironmentVariable {
	out := make([]EnvironmentVariable, 0, len(env))
	for _, e := range env {
		v := EnvironmentVariable{Name: e.Key, Type: EnvPlaintext}
		switch {
		case e.Secret != nil:
			v.Type = EnvSecret
			v.Value = *e.Secret
		case e.Value != nil:
			v.Value = *e.Value
		}
		out = append(out, v)
	}
	return out
}

func volumesFromSpec(volumes []spec.VolumeMount) []ServiceVolume {
	out := make([]ServiceVolume, 0, len(volumes))
	for _, v := range volumes {
		out = append(out, ServiceVolume{VolumeID: v.ID, MountPath: v.Path})
	}
	return out
}

func portsFromSpec(ports []spec.Port, routes []spec.Route, checks []spec.HealthCheck) []Port {
	out := make([]Port, 0, len(ports))
	for _, p := range ports {
		row := Port{
			PortNumber:  p.Port,
			Protocol:    p.Protocol,
			HealthCheck: DefaultHealthCheck(),
		}
		if i := slices.IndexFunc(routes, func(r spec.Route) bool { return r.Port == p.Port }); i >= 0 {
			row.Public = true
			row.Path = routes[i].Path
		}
		if i := slices.IndexFunc(checks, func(hc spec.HealthCheck) bool { return hc.Port() == p.Port }); i >= 0 {
			row.HealthCheck = healthCheckFromSpec(checks[i])
		}
		out = append(out, row)
	}
	return out
}

func healthCheckFromSpec(hc spec.HealthCheck) HealthCheck {
	out := DefaultHealthCheck()
	out.GracePeriod = hc.GracePeriod
	out.Interval = hc.Interval
	out.RestartLimit = hc.RestartLimit
	out.Timeout = hc.Timeout

	switch {
	case hc.HTTP != nil:
		out.Protocol = HealthCheckHTTP
		out.Path = hc.HTTP.Path
		out.Method = strings.ToLower(hc.HTTP.Method)
		out.Headers = make([]Header, 0, len(hc.HTTP.Headers))
		for _, h := range hc.HTTP.Headers {
			out.Headers = append(out.Headers, Header{Name: h.Key, Value: h.Value})
		}
	case hc.TCP != nil:
		out.Protocol = HealthCheckTCP
	}
	return out
}
