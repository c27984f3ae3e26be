// Package form holds the service form, the editable state behind the
// create and edit service screens, and maps it to the deployment
// definition the hosting API accepts.
//
// The form keeps every section populated, including the variants that are
// not currently selected, the same way an editing session does: switching
// the source from git to docker and back does not lose the repository.
// Discriminator fields (Source.Type, Builder.Type, Scaling.Type, ...) pick
// which section reaches the definition.
//
// Validate checks a form; ToDefinition assumes a form that passed
// validation and never fails.
package form

import "github.com/matgreaves/console/spec"

type ServiceType string

const (
	Web    ServiceType = "web"
	Worker ServiceType = "worker"
)

// ServiceForm is the full editable state of a service.
type ServiceForm struct {
	Meta                 Meta                    `yaml:"meta"`
	ServiceName          string                  `yaml:"serviceName"`
	ServiceType          ServiceType             `yaml:"serviceType"`
	Source               Source                  `yaml:"source"`
	Builder              Builder                 `yaml:"builder"`
	DockerDeployment     DockerDeploymentOptions `yaml:"dockerDeployment"`
	Regions              []string                `yaml:"regions"`
	Instance             *string                 `yaml:"instance"`
	Scaling              Scaling                 `yaml:"scaling"`
	EnvironmentVariables []EnvironmentVariable   `yaml:"environmentVariables"`
	Volumes              []ServiceVolume         `yaml:"volumes"`
	Ports                []Port                  `yaml:"ports"`
}

// Meta carries submission state that is not part of the definition.
type Meta struct {
	// ServiceID is nil for a service that does not exist yet.
	ServiceID        *string `yaml:"serviceId"`
	AppID            *string `yaml:"appId"`
	HasPreviousBuild bool    `yaml:"hasPreviousBuild"`
	SkipBuild        bool    `yaml:"skipBuild"`
	SaveOnly         bool    `yaml:"saveOnly"`
}

type SourceType string

const (
	SourceArchive SourceType = "archive"
	SourceGit     SourceType = "git"
	SourceDocker  SourceType = "docker"
)

type Source struct {
	Type    SourceType    `yaml:"type"`
	Archive ArchiveSource `yaml:"archive"`
	Git     GitSource     `yaml:"git"`
	Docker  DockerSource  `yaml:"docker"`
}

type ArchiveSource struct {
	ArchiveID string `yaml:"archiveId"`
}

type RepositoryType string

const (
	RepositoryOrganization RepositoryType = "organization"
	RepositoryPublic       RepositoryType = "public"
)

type GitSource struct {
	RepositoryType         RepositoryType         `yaml:"repositoryType"`
	WorkDirectory          *string                `yaml:"workDirectory"`
	OrganizationRepository OrganizationRepository `yaml:"organizationRepository"`
	PublicRepository       PublicRepository       `yaml:"publicRepository"`
}

// OrganizationRepository is a repository the organization's GitHub app
// has access to. Its name is "owner/repo".
type OrganizationRepository struct {
	RepositoryName *string `yaml:"repositoryName"`
	Branch         *string `yaml:"branch"`
	AutoDeploy     bool    `yaml:"autoDeploy"`
}

// PublicRepository is any public repository. It cannot deploy on push.
type PublicRepository struct {
	RepositoryName *string `yaml:"repositoryName"`
	Branch         *string `yaml:"branch"`
}

type DockerSource struct {
	Image          string  `yaml:"image"`
	RegistrySecret *string `yaml:"registrySecret"`
}

type BuilderType string

const (
	BuilderBuildpack  BuilderType = "buildpack"
	BuilderDockerfile BuilderType = "dockerfile"
)

// Builder selects how archive and git sources are built.
type Builder struct {
	Type              BuilderType       `yaml:"type"`
	BuildpackOptions  BuildpackOptions  `yaml:"buildpackOptions"`
	DockerfileOptions DockerfileOptions `yaml:"dockerfileOptions"`
}

type BuildpackOptions struct {
	BuildCommand *string `yaml:"buildCommand"`
	RunCommand   *string `yaml:"runCommand"`
	Privileged   bool    `yaml:"privileged"`
}

type DockerfileOptions struct {
	Dockerfile *string  `yaml:"dockerfile"`
	Entrypoint []string `yaml:"entrypoint"`
	Command    *string  `yaml:"command"`
	Args       []string `yaml:"args"`
	Target     *string  `yaml:"target"`
	Privileged bool     `yaml:"privileged"`
}

// DockerDeploymentOptions are the runtime overrides of a docker source.
// They describe how the image runs, not which image it is.
type DockerDeploymentOptions struct {
	Entrypoint []string `yaml:"entrypoint"`
	Command    *string  `yaml:"command"`
	Args       []string `yaml:"args"`
	Privileged *bool    `yaml:"privileged"`
}

type ScalingType string

const (
	ScalingFixed       ScalingType = "fixed"
	ScalingAutoscaling ScalingType = "autoscaling"
)

type Scaling struct {
	Type        ScalingType `yaml:"type"`
	Fixed       int         `yaml:"fixed"`
	AutoScaling AutoScaling `yaml:"autoscaling"`
}

type AutoScaling struct {
	Min     int                `yaml:"min"`
	Max     int                `yaml:"max"`
	Targets AutoScalingTargets `yaml:"targets"`
}

type EnvironmentVariableType string

const (
	EnvPlaintext EnvironmentVariableType = "plaintext"
	EnvSecret    EnvironmentVariableType = "secret"
)

// EnvironmentVariable holds either a literal value or, for secrets, the
// name of the secret to reference.
type EnvironmentVariable struct {
	Name  string                  `yaml:"name"`
	Value string                  `yaml:"value"`
	Type  EnvironmentVariableType `yaml:"type"`
}

// ServiceVolume is a volume row. Rows left with an empty VolumeID are
// placeholders and are dropped from the definition.
type ServiceVolume struct {
	VolumeID  string `yaml:"volumeId"`
	Name      string `yaml:"name"`
	MountPath string `yaml:"mountPath"`
}

// Port is a port row. Protocol and Path only matter for public ports.
type Port struct {
	PortNumber  int           `yaml:"portNumber"`
	Public      bool          `yaml:"public"`
	Protocol    spec.Protocol `yaml:"protocol"`
	Path        string        `yaml:"path"`
	HealthCheck HealthCheck   `yaml:"healthCheck"`
}

type HealthCheckProtocol string

const (
	HealthCheckTCP  HealthCheckProtocol = "tcp"
	HealthCheckHTTP HealthCheckProtocol = "http"
)

// HealthCheck configures the probe of one port. Path, Method and Headers
// only apply to http checks. Durations are seconds.
type HealthCheck struct {
	Protocol     HealthCheckProtocol `yaml:"protocol"`
	GracePeriod  int                 `yaml:"gracePeriod"`
	Interval     int                 `yaml:"interval"`
	RestartLimit int                 `yaml:"restartLimit"`
	Timeout      int                 `yaml:"timeout"`
	Path         string              `yaml:"path"`
	Method       string              `yaml:"method"`
	Headers      []Header            `yaml:"headers"`
}

type Header struct {
	Name  string `yaml:"name"`
	Value string `yaml:"value"`
}

// HasVolumes reports whether any volume row is attached to a volume.
func (f ServiceForm) HasVolumes() bool {
	for _, v := range f.Volumes {
		if v.VolumeID != "" {
			return true
		}
	}
	return false
}
