package dockerutil

import (
	"context"
	"strings"

	"emperror.dev/errors"
	"github.com/docker/docker/api/types/registry"
	"github.com/docker/docker/errdefs"
	"github.com/huandu/xstrings"
)

const (
	ErrImageNotFound        = errors.Sentinel("image not found in registry")
	ErrRegistryUnauthorized = errors.Sentinel("registry denied access to image")
)

// DefaultRegistry is the registry of image references without a host.
const DefaultRegistry = "docker.io"

// RegistryAuth are the credentials of a private registry. They are the
// plain values behind a registry secret.
type RegistryAuth struct {
	Username string
	Password string
}

// ImageInfo describes an image found in its registry.
type ImageInfo struct {
	Reference string
	Registry  string
	Digest    string
	Platforms []string
}

// Inspector is the part of the Docker client VerifyImage needs.
type Inspector interface {
	DistributionInspect(ctx context.Context, image, encodedRegistryAuth string) (registry.DistributionInspect, error)
}

// VerifyImage asks the image's registry, through the local daemon, whether
// image exists. auth may be nil for public images.
func VerifyImage(ctx context.Context, image string, auth *RegistryAuth) (ImageInfo, error) {
	cli, err := Client()
	if err != nil {
		return ImageInfo{}, errors.Wrap(err, "docker client")
	}
	return Verify(ctx, cli, image, auth)
}

// Verify is VerifyImage against a given inspector.
func Verify(ctx context.Context, cli Inspector, image string, auth *RegistryAuth) (ImageInfo, error) {
	image = strings.TrimSpace(image)
	if image == "" {
		return ImageInfo{}, errors.New("image reference is required")
	}

	host := RegistryHost(image)

	var encoded string
	if auth != nil {
		var err error
		encoded, err = registry.EncodeAuthConfig(registry.AuthConfig{
			Username:      auth.Username,
			Password:      auth.Password,
			ServerAddress: host,
		})
		if err != nil {
			return ImageInfo{}, errors.Wrap(err, "encode registry credentials")
		}
	}

	inspect, err := cli.DistributionInspect(ctx, image, encoded)
	switch {
	case err == nil:
	case errdefs.IsNotFound(err):
		return ImageInfo{}, errors.WithDetails(errors.Wrap(ErrImageNotFound, err.Error()), "image", image)
	case errdefs.IsUnauthorized(err), errdefs.IsForbidden(err):
		return ImageInfo{}, errors.WithDetails(errors.Wrap(ErrRegistryUnauthorized, err.Error()), "image", image, "registry", host)
	default:
		return ImageInfo{}, errors.WrapWithDetails(err, "inspect image", "image", image)
	}

	info := ImageInfo{
		Reference: image,
		Registry:  host,
		Digest:    inspect.Descriptor.Digest.String(),
	}
	for _, p := range inspect.Platforms {
		platform := p.OS + "/" + p.Architecture
		if p.Variant != "" {
			platform += "/" + p.Variant
		}
		info.Platforms = append(info.Platforms, platform)
	}
	return info, nil
}

// RegistryHost returns the registry an image reference points at. The
// first path component is a host when it has a dot or a port, or is
// localhost; otherwise the image lives on Docker Hub.
func RegistryHost(image string) string {
	head, sep, _ := xstrings.Partition(image, "/")
	if sep == "" {
		return DefaultRegistry
	}
	if head == "localhost" || strings.ContainsAny(head, ".:") {
		return head
	}
	return DefaultRegistry
}
