package dockerutil_test

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"testing"

	"emperror.dev/errors"
	"github.com/docker/docker/api/types/registry"
	"github.com/docker/docker/errdefs"
	"github.com/matryer/is"
	ocispec "github.com/opencontainers/image-spec/specs-go/v1"

	"github.com/matgreaves/console/internal/dockerutil"
)

// fakeInspector answers DistributionInspect from fixed values and records
// the credentials it was sent.
type fakeInspector struct {
	result  registry.DistributionInspect
	err     error
	image   string
	encoded string
}

func (f *fakeInspector) DistributionInspect(ctx context.Context, image, encoded string) (registry.DistributionInspect, error) {
	f.image, f.encoded = image, encoded
	return f.result, f.err
}

func TestRegistryHost(t *testing.T) {
	for image, want := range map[string]string{
		"nginx":                           "docker.io",
		"nginx:1.27":                      "docker.io",
		"library/nginx":                   "docker.io",
		"ghcr.io/acme/api:v1":             "ghcr.io",
		"localhost/api":                   "localhost",
		"registry.local:5000/team/api":    "registry.local:5000",
		"123.dkr.ecr.aws/team/api@sha256": "123.dkr.ecr.aws",
	} {
		if got := dockerutil.RegistryHost(image); got != want {
			t.Errorf("RegistryHost(%q) = %q, want %q", image, got, want)
		}
	}
}

func TestVerify_Found(t *testing.T) {
	is := is.New(t)
	cli := &fakeInspector{result: registry.DistributionInspect{
		Descriptor: ocispec.Descriptor{Digest: "sha256:abc"},
		Platforms: []ocispec.Platform{
			{OS: "linux", Architecture: "amd64"},
			{OS: "linux", Architecture: "arm64", Variant: "v8"},
		},
	}}

	info, err := dockerutil.Verify(context.Background(), cli, " nginx:1.27 ", nil)
	is.NoErr(err)
	is.Equal(cli.image, "nginx:1.27")
	is.Equal(cli.encoded, "")
	is.Equal(info, dockerutil.ImageInfo{
		Reference: "nginx:1.27",
		Registry:  "docker.io",
		Digest:    "sha256:abc",
		Platforms: []string{"linux/amd64", "linux/arm64/v8"},
	})
}

func TestVerify_SendsCredentials(t *testing.T) {
	is := is.New(t)
	cli := &fakeInspector{}

	_, err := dockerutil.Verify(context.Background(), cli, "ghcr.io/acme/api:v1", &dockerutil.RegistryAuth{
		Username: "bot",
		Password: "s3cret",
	})
	is.NoErr(err)

	raw, err := base64.URLEncoding.DecodeString(cli.encoded)
	is.NoErr(err)
	var auth registry.AuthConfig
	is.NoErr(json.Unmarshal(raw, &auth))
	is.Equal(auth.Username, "bot")
	is.Equal(auth.Password, "s3cret")
	is.Equal(auth.ServerAddress, "ghcr.io")
}

func TestVerify_Errors(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		sentinel error
	}{
		{"not found", errdefs.NotFound(errors.New("manifest unknown")), dockerutil.ErrImageNotFound},
		{"unauthorized", errdefs.Unauthorized(errors.New("authentication required")), dockerutil.ErrRegistryUnauthorized},
		{"forbidden", errdefs.Forbidden(errors.New("denied")), dockerutil.ErrRegistryUnauthorized},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			is := is.New(t)
			_, err := dockerutil.Verify(context.Background(), &fakeInspector{err: tt.err}, "nginx", nil)
			is.True(errors.Is(err, tt.sentinel))
		})
	}
}

func TestVerify_OtherErrorPassesThrough(t *testing.T) {
	is := is.New(t)
	boom := errors.New("daemon unreachable")

	_, err := dockerutil.Verify(context.Background(), &fakeInspector{err: boom}, "nginx", nil)
	is.True(errors.Is(err, boom))
	is.True(!errors.Is(err, dockerutil.ErrImageNotFound))
}

func TestVerify_EmptyReference(t *testing.T) {
	is := is.New(t)
	cli := &fakeInspector{}

	_, err := dockerutil.Verify(context.Background(), cli, "  ", nil)
	is.True(err != nil)
	is.Equal(cli.image, "") // registry not contacted
}
