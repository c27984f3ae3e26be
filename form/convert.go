package form

import (
	"slices"

	"github.com/matgreaves/console/spec"
)

// ToDefinition converts a validated form into the deployment definition
// sent to the API. It is pure and total: f must have passed Validate, and
// an unknown discriminant left in f panics.
//
// Worker definitions carry no ports, routes or health checks at all. Web
// definitions always carry all three, even when empty.
func ToDefinition(f ServiceForm) spec.DeploymentDefinition {
	def := spec.DeploymentDefinition{
		Name:          f.ServiceName,
		Type:          serviceTypeToSpec(f.ServiceType),
		Regions:       slices.Clone(f.Regions),
		InstanceTypes: []spec.InstanceType{{Type: deref(f.Instance)}},
		Scalings:      scalingsToSpec(f.Scaling),
		Env:           envToSpec(f.EnvironmentVariables),
		Volumes:       volumesToSpec(f.Volumes),
	}

	switch f.Source.Type {
	case SourceArchive:
		def.Archive = archiveToSpec(f.Source.Archive, f.Builder)
	case SourceGit:
		def.Git = gitToSpec(f.Source.Git, f.Builder)
	case SourceDocker:
		def.Docker = dockerToSpec(f.Source.Docker, f.DockerDeployment)
	default:
		panic(unreachable("source type", f.Source.Type))
	}

	if def.Type == spec.Web {
		def.Ports = portsToSpec(f.Ports)
		def.Routes = routesToSpec(f.Ports)
		def.HealthChecks = healthChecksToSpec(f.Ports)
	}

	return def
}

func serviceTypeToSpec(t ServiceType) spec.ServiceType {
	if t == Web {
		return spec.Web
	}
	return spec.Worker
}

// envToSpec sets exactly one of value or secret per variable.
func envToSpec(vars []EnvironmentVariable) []spec.Env {
	out := make([]spec.Env, 0, len(vars))
	for _, v := range vars {
		env := spec.Env{Key: v.Name}
		value := v.Value
		switch v.Type {
		case EnvPlaintext:
			env.Value = &value
		case EnvSecret:
			env.Secret = &value
		default:
			panic(unreachable("environment variable type", v.Type))
		}
		out = append(out, env)
	}
	return out
}

func volumesToSpec(volumes []ServiceVolume) []spec.VolumeMount {
	out := make([]spec.VolumeMount, 0, len(volumes))
	for _, v := range volumes {
		if v.VolumeID == "" {
			continue
		}
		out = append(out, spec.VolumeMount{ID: v.VolumeID, Path: v.MountPath})
	}
	return out
}
