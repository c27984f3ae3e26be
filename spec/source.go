package spec

// ArchiveSource builds from a previously uploaded archive.
type ArchiveSource struct {
	ID        string            `json:"id"`
	Buildpack *BuildpackBuilder `json:"buildpack,omitempty"`
	Docker    *DockerBuilder    `json:"docker,omitempty"`
}

// GitSource builds from a repository. Repository is host-qualified, e.g.
// "github.com/owner/repo".
//
// NoDeployOnPush is only sent for repositories owned by the organization;
// public repositories cannot be deployed on push and leave it nil.
type GitSource struct {
	Repository     string            `json:"repository"`
	Branch         string            `json:"branch"`
	NoDeployOnPush *bool             `json:"no_deploy_on_push,omitempty"`
	Workdir        *string           `json:"workdir,omitempty"`
	Buildpack      *BuildpackBuilder `json:"buildpack,omitempty"`
	Docker         *DockerBuilder    `json:"docker,omitempty"`
}

// DockerSource runs a prebuilt image.
type DockerSource struct {
	Image               string   `json:"image"`
	Command             *string  `json:"command,omitempty"`
	Args                []string `json:"args,omitzero"`
	ImageRegistrySecret *string  `json:"image_registry_secret,omitempty"`
	Entrypoint          []string `json:"entrypoint,omitzero"`
	Privileged          bool     `json:"privileged"`
}

// BuildpackBuilder builds with autodetected buildpacks.
type BuildpackBuilder struct {
	BuildCommand *string `json:"build_command,omitempty"`
	RunCommand   *string `json:"run_command,omitempty"`
	Privileged   bool    `json:"privileged"`
}

// DockerBuilder builds from a Dockerfile in the source tree.
type DockerBuilder struct {
	Dockerfile *string  `json:"dockerfile,omitempty"`
	Entrypoint []string `json:"entrypoint,omitzero"`
	Command    *string  `json:"command,omitempty"`
	Args       []string `json:"args,omitzero"`
	Target     *string  `json:"target,omitempty"`
	Privileged bool     `json:"privileged"`
}
