package form

import (
	"slices"

	"github.com/matgreaves/console/spec"
)

// githubHost qualifies repository names in git sources.
const githubHost = "github.com"

func qualifyRepository(name string) string {
	return githubHost + "/" + name
}

func archiveToSpec(a ArchiveSource, b Builder) *spec.ArchiveSource {
	buildpack, docker := builderToSpec(b)
	return &spec.ArchiveSource{
		ID:        a.ArchiveID,
		Buildpack: buildpack,
		Docker:    docker,
	}
}

func gitToSpec(g GitSource, b Builder) *spec.GitSource {
	buildpack, docker := builderToSpec(b)
	out := &spec.GitSource{
		Workdir:   optional(g.WorkDirectory),
		Buildpack: buildpack,
		Docker:    docker,
	}

	switch g.RepositoryType {
	case RepositoryOrganization:
		repo := g.OrganizationRepository
		noDeployOnPush := !repo.AutoDeploy
		out.Repository = qualifyRepository(deref(repo.RepositoryName))
		out.Branch = deref(repo.Branch)
		out.NoDeployOnPush = &noDeployOnPush
	case RepositoryPublic:
		repo := g.PublicRepository
		out.Repository = qualifyRepository(deref(repo.RepositoryName))
		out.Branch = deref(repo.Branch)
	default:
		panic(unreachable("repository type", g.RepositoryType))
	}

	return out
}

// dockerToSpec takes the image from the source and everything about how
// it runs from the deployment options.
func dockerToSpec(d DockerSource, opts DockerDeploymentOptions) *spec.DockerSource {
	privileged := false
	if opts.Privileged != nil {
		privileged = *opts.Privileged
	}
	return &spec.DockerSource{
		Image:               d.Image,
		Command:             optional(opts.Command),
		Args:                slices.Clone(opts.Args),
		ImageRegistrySecret: optional(d.RegistrySecret),
		Entrypoint:          slices.Clone(opts.Entrypoint),
		Privileged:          privileged,
	}
}

// builderToSpec returns exactly one non-nil builder.
func builderToSpec(b Builder) (*spec.BuildpackBuilder, *spec.DockerBuilder) {
	switch b.Type {
	case BuilderBuildpack:
		opts := b.BuildpackOptions
		return &spec.BuildpackBuilder{
			BuildCommand: optional(opts.BuildCommand),
			RunCommand:   optional(opts.RunCommand),
			Privileged:   opts.Privileged,
		}, nil
	case BuilderDockerfile:
		opts := b.DockerfileOptions
		return nil, &spec.DockerBuilder{
			Dockerfile: optional(opts.Dockerfile),
			Entrypoint: slices.Clone(opts.Entrypoint),
			Command:    optional(opts.Command),
			Args:       slices.Clone(opts.Args),
			Target:     optional(opts.Target),
			Privileged: opts.Privileged,
		}
	}
	panic(unreachable("builder type", b.Type))
}
