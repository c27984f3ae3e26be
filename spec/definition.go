package spec

import "encoding/json"

// ServiceType is the kind of workload a deployment definition describes.
type ServiceType string

const (
	Web      ServiceType = "WEB"
	Worker   ServiceType = "WORKER"
	Database ServiceType = "DATABASE"
)

// Valid reports whether t is a recognised service type.
func (t ServiceType) Valid() bool {
	switch t {
	case Web, Worker, Database:
		return true
	}
	return false
}

// DeploymentDefinition describes how to build and run one revision of a
// service. This is the JSON body sent to the create/update service
// endpoints and returned inside every deployment.
//
// Exactly one of Archive, Git, Docker is set for compute services.
// Ports, Routes and HealthChecks use omitzero: a nil slice is omitted from
// the payload while an empty slice is sent as []. Worker definitions leave
// them nil; web definitions always carry all three.
type DeploymentDefinition struct {
	Name string      `json:"name"`
	Type ServiceType `json:"type"`

	Archive *ArchiveSource `json:"archive,omitempty"`
	Git     *GitSource     `json:"git,omitempty"`
	Docker  *DockerSource  `json:"docker,omitempty"`

	// Database holds the database source of DATABASE services. It is
	// passed through untouched.
	Database json.RawMessage `json:"database,omitempty"`

	Regions       []string       `json:"regions"`
	InstanceTypes []InstanceType `json:"instance_types"`
	Scalings      []Scaling      `json:"scalings"`
	Env           []Env          `json:"env"`
	Volumes       []VolumeMount  `json:"volumes"`

	Ports        []Port        `json:"ports,omitzero"`
	Routes       []Route       `json:"routes,omitzero"`
	HealthChecks []HealthCheck `json:"health_checks,omitzero"`
}

// SourceType returns "archive", "git", "docker" or "database" depending on
// which source is populated, or "" if none is.
func (d *DeploymentDefinition) SourceType() string {
	switch {
	case d.Archive != nil:
		return "archive"
	case d.Git != nil:
		return "git"
	case d.Docker != nil:
		return "docker"
	case len(d.Database) > 0:
		return "database"
	}
	return ""
}

// InstanceType selects the instance size for every region.
type InstanceType struct {
	Type string `json:"type"`
}

// Env is a single environment variable. Exactly one of Value or Secret is
// set: Value carries a literal, Secret the name of a stored secret.
type Env struct {
	Key    string  `json:"key"`
	Value  *string `json:"value,omitempty"`
	Secret *string `json:"secret,omitempty"`
}

// VolumeMount attaches a persistent volume at Path.
type VolumeMount struct {
	ID   string `json:"id"`
	Path string `json:"path"`
}
