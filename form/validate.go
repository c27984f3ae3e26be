package form

import (
	"fmt"
	"path"
	"regexp"
	"strings"
)

var serviceNamePattern = regexp.MustCompile(`^[a-z0-9]([a-z0-9-]{0,61}[a-z0-9])?$`)

var healthCheckMethods = map[string]bool{
	"GET": true, "HEAD": true, "POST": true, "PUT": true,
	"PATCH": true, "DELETE": true, "OPTIONS": true,
}

// freeInstance cannot be scaled beyond a single instance.
const freeInstance = "free"

// Validate checks a form for everything ToDefinition relies on and
// everything the API would reject. It returns all problems found, in form
// order, so they can be fixed in one pass.
func Validate(f ServiceForm) []string {
	var errs []string

	if f.ServiceName == "" {
		errs = append(errs, "service name is required")
	} else if !serviceNamePattern.MatchString(f.ServiceName) {
		errs = append(errs, fmt.Sprintf(
			"service name %q must be lowercase letters, digits and hyphens, and may not start or end with a hyphen",
			f.ServiceName,
		))
	}

	if f.ServiceType != Web && f.ServiceType != Worker {
		errs = append(errs, fmt.Sprintf("invalid service type %q (must be one of: web, worker)", f.ServiceType))
	}

	errs = append(errs, validateSource(f)...)
	errs = append(errs, validateRegions(f.Regions)...)

	if deref(f.Instance) == "" {
		errs = append(errs, "instance type is required")
	}

	errs = append(errs, validateScaling(f)...)
	errs = append(errs, validateEnv(f.EnvironmentVariables)...)
	errs = append(errs, validateVolumes(f.Volumes)...)

	if f.ServiceType == Web {
		errs = append(errs, validatePorts(f.Ports)...)
	}

	return errs
}

func validateSource(f ServiceForm) []string {
	var errs []string

	switch f.Source.Type {
	case SourceArchive:
		if f.Source.Archive.ArchiveID == "" {
			errs = append(errs, "archive: archive id is required")
		}
		errs = append(errs, validateBuilder(f.Builder)...)

	case SourceGit:
		git := f.Source.Git
		switch git.RepositoryType {
		case RepositoryOrganization:
			errs = append(errs, validateRepository("organization repository",
				git.OrganizationRepository.RepositoryName, git.OrganizationRepository.Branch)...)
		case RepositoryPublic:
			errs = append(errs, validateRepository("public repository",
				git.PublicRepository.RepositoryName, git.PublicRepository.Branch)...)
		default:
			errs = append(errs, fmt.Sprintf(
				"git: invalid repository type %q (must be one of: organization, public)", git.RepositoryType))
		}
		if wd := deref(git.WorkDirectory); strings.HasPrefix(wd, "/") {
			errs = append(errs, fmt.Sprintf("git: work directory %q must be relative to the repository root", wd))
		}
		errs = append(errs, validateBuilder(f.Builder)...)

	case SourceDocker:
		if f.Source.Docker.Image == "" {
			errs = append(errs, "docker: image is required")
		}

	default:
		errs = append(errs, fmt.Sprintf(
			"invalid source type %q (must be one of: archive, git, docker)", f.Source.Type))
	}

	return errs
}

func validateRepository(label string, name, branch *string) []string {
	var errs []string

	n := deref(name)
	switch {
	case n == "":
		errs = append(errs, fmt.Sprintf("git: %s name is required", label))
	case strings.Count(n, "/") != 1 || strings.HasPrefix(n, "/") || strings.HasSuffix(n, "/"):
		errs = append(errs, fmt.Sprintf("git: %s name %q must be of the form owner/repo", label, n))
	}

	if deref(branch) == "" {
		errs = append(errs, fmt.Sprintf("git: %s branch is required", label))
	}
	return errs
}

func validateBuilder(b Builder) []string {
	switch b.Type {
	case BuilderBuildpack, BuilderDockerfile:
		return nil
	}
	return []string{fmt.Sprintf("invalid builder type %q (must be one of: buildpack, dockerfile)", b.Type)}
}

func validateRegions(regions []string) []string {
	if len(regions) == 0 {
		return []string{"at least one region is required"}
	}

	var errs []string
	seen := make(map[string]bool, len(regions))
	for _, r := range regions {
		if r == "" {
			errs = append(errs, "region name is required")
			continue
		}
		if seen[r] {
			errs = append(errs, fmt.Sprintf("region %q is listed twice", r))
		}
		seen[r] = true
	}
	return errs
}

func validateScaling(f ServiceForm) []string {
	var errs []string
	lowest := MinInstances(f.ServiceType)

	switch f.Scaling.Type {
	case ScalingFixed:
		n := f.Scaling.Fixed
		if n < lowest || n > MaxInstances {
			errs = append(errs, fmt.Sprintf("scaling: instances must be between %d and %d, got %d", lowest, MaxInstances, n))
		}
		if f.lockedToOneInstance() && n != 1 {
			errs = append(errs, f.lockedReason())
		}

	case ScalingAutoscaling:
		as := f.Scaling.AutoScaling
		if as.Min < lowest || as.Min > MaxInstances {
			errs = append(errs, fmt.Sprintf("scaling: min must be between %d and %d, got %d", lowest, MaxInstances, as.Min))
		}
		if as.Max < 1 || as.Max > MaxInstances {
			errs = append(errs, fmt.Sprintf("scaling: max must be between 1 and %d, got %d", MaxInstances, as.Max))
		}
		if as.Min > as.Max {
			errs = append(errs, fmt.Sprintf("scaling: min (%d) must not exceed max (%d)", as.Min, as.Max))
		}
		if f.lockedToOneInstance() && (as.Min != 1 || as.Max != 1) {
			errs = append(errs, f.lockedReason())
		}

		for _, tf := range TargetFields {
			setting := as.Targets.Get(tf.Target)
			if !setting.Enabled {
				continue
			}
			if reason := DisabledTargetReason(f, tf.Target); reason != "" {
				errs = append(errs, fmt.Sprintf("scaling target %q: %s", tf.Target, reason))
				continue
			}
			b := BoundsForTarget(tf.Target)
			if setting.Value < b.Min || setting.Value > b.Max {
				errs = append(errs, fmt.Sprintf(
					"scaling target %q: value must be between %d and %d, got %d",
					tf.Target, b.Min, b.Max, setting.Value,
				))
			}
		}

	default:
		errs = append(errs, fmt.Sprintf(
			"invalid scaling type %q (must be one of: fixed, autoscaling)", f.Scaling.Type))
	}

	return errs
}

// lockedToOneInstance reports whether the service must run exactly one
// instance: free instances and services with volumes cannot scale.
func (f ServiceForm) lockedToOneInstance() bool {
	return deref(f.Instance) == freeInstance || f.HasVolumes()
}

func (f ServiceForm) lockedReason() string {
	if f.HasVolumes() {
		return "scaling: services with volumes must run exactly one instance"
	}
	return "scaling: free instances must run exactly one instance"
}

func validateEnv(vars []EnvironmentVariable) []string {
	var errs []string
	seen := make(map[string]bool, len(vars))

	for i, v := range vars {
		if v.Name == "" {
			errs = append(errs, fmt.Sprintf("environment variable %d: name is required", i))
			continue
		}
		if v.Type != EnvPlaintext && v.Type != EnvSecret {
			errs = append(errs, fmt.Sprintf(
				"environment variable %q: invalid type %q (must be one of: plaintext, secret)", v.Name, v.Type))
		}
		if v.Type == EnvSecret && v.Value == "" {
			errs = append(errs, fmt.Sprintf("environment variable %q: secret name is required", v.Name))
		}
		if seen[v.Name] {
			errs = append(errs, fmt.Sprintf("environment variable %q is defined twice", v.Name))
		}
		seen[v.Name] = true
	}
	return errs
}

func validateVolumes(volumes []ServiceVolume) []string {
	var errs []string
	seen := make(map[string]bool, len(volumes))

	for _, v := range volumes {
		if v.VolumeID == "" {
			continue
		}
		switch {
		case v.MountPath == "":
			errs = append(errs, fmt.Sprintf("volume %q: mount path is required", v.VolumeID))
			continue
		case !path.IsAbs(v.MountPath):
			errs = append(errs, fmt.Sprintf("volume %q: mount path %q must be absolute", v.VolumeID, v.MountPath))
		}
		if seen[v.MountPath] {
			errs = append(errs, fmt.Sprintf("volume %q: mount path %q is already used", v.VolumeID, v.MountPath))
		}
		seen[v.MountPath] = true
	}
	return errs
}

func validatePorts(ports []Port) []string {
	if len(ports) == 0 {
		return []string{"web services must expose at least one port"}
	}

	var errs []string
	seenPorts := make(map[int]bool, len(ports))
	seenPaths := make(map[string]int, len(ports))

	for _, p := range ports {
		if p.PortNumber < 1 || p.PortNumber > 65535 {
			errs = append(errs, fmt.Sprintf("port %d: must be between 1 and 65535", p.PortNumber))
			continue
		}
		if seenPorts[p.PortNumber] {
			errs = append(errs, fmt.Sprintf("port %d is declared twice", p.PortNumber))
		}
		seenPorts[p.PortNumber] = true

		if p.Public {
			if !p.Protocol.Valid() {
				errs = append(errs, fmt.Sprintf(
					"port %d: invalid protocol %q (must be one of: http, http2, tcp)", p.PortNumber, p.Protocol))
			}
			if !strings.HasPrefix(p.Path, "/") {
				errs = append(errs, fmt.Sprintf("port %d: path %q must start with /", p.PortNumber, p.Path))
			} else if other, ok := seenPaths[p.Path]; ok {
				errs = append(errs, fmt.Sprintf("port %d: path %q is already routed to port %d", p.PortNumber, p.Path, other))
			} else {
				seenPaths[p.Path] = p.PortNumber
			}
		}

		errs = append(errs, validateHealthCheck(p.PortNumber, p.HealthCheck)...)
	}
	return errs
}

func validateHealthCheck(port int, hc HealthCheck) []string {
	var errs []string
	prefix := fmt.Sprintf("port %d, health check", port)

	switch hc.Protocol {
	case HealthCheckTCP:
	case HealthCheckHTTP:
		if !strings.HasPrefix(hc.Path, "/") {
			errs = append(errs, fmt.Sprintf("%s: path %q must start with /", prefix, hc.Path))
		}
		if !healthCheckMethods[strings.ToUpper(hc.Method)] {
			errs = append(errs, fmt.Sprintf("%s: unsupported method %q", prefix, hc.Method))
		}
		for i, h := range hc.Headers {
			if h.Name == "" {
				errs = append(errs, fmt.Sprintf("%s: header %d: name is required", prefix, i))
			}
		}
	default:
		errs = append(errs, fmt.Sprintf("%s: invalid protocol %q (must be one of: tcp, http)", prefix, hc.Protocol))
	}

	if hc.GracePeriod < 0 {
		errs = append(errs, fmt.Sprintf("%s: grace period must not be negative", prefix))
	}
	if hc.Interval < 1 {
		errs = append(errs, fmt.Sprintf("%s: interval must be at least 1 second", prefix))
	}
	if hc.Timeout < 1 {
		errs = append(errs, fmt.Sprintf("%s: timeout must be at least 1 second", prefix))
	}
	if hc.RestartLimit < 1 {
		errs = append(errs, fmt.Sprintf("%s: restart limit must be at least 1", prefix))
	}
	return errs
}
