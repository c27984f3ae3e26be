package form_test

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/matryer/is"

	"github.com/matgreaves/console/form"
	"github.com/matgreaves/console/spec"
)

func TestDecode_YAML(t *testing.T) {
	is := is.New(t)

	doc := `
serviceName: api
source:
  type: docker
  docker:
    image: ghcr.io/acme/api:v2
regions: [fra, sin]
scaling:
  type: autoscaling
  autoscaling:
    min: 1
    max: 5
    targets:
      cpu: {enabled: true, value: 75}
ports:
  - portNumber: 8080
    public: true
    protocol: http
    path: /api
    healthCheck:
      protocol: http
      path: /healthz
`
	f, err := form.Decode(strings.NewReader(doc))
	is.NoErr(err)

	is.Equal(f.ServiceName, "api")
	is.Equal(f.ServiceType, form.Web)          // default
	is.Equal(*f.Instance, form.DefaultInstance) // default
	is.Equal(f.Regions, []string{"fra", "sin"})
	is.Equal(f.Scaling.AutoScaling.Targets.CPU, form.TargetSetting{Enabled: true, Value: 75})
	is.Equal(f.Scaling.AutoScaling.Targets.Memory, form.TargetSetting{Value: 80}) // default kept

	is.Equal(len(f.Ports), 1)
	hc := f.Ports[0].HealthCheck
	is.Equal(hc.Protocol, form.HealthCheckHTTP)
	is.Equal(hc.Path, "/healthz")
	is.Equal(hc.Method, "get") // filled from the default health check
	is.Equal(hc.Interval, 30)

	is.Equal(form.Validate(f), nil)
}

func TestDecode_JSON(t *testing.T) {
	is := is.New(t)

	doc := `{"serviceName": "worker", "serviceType": "worker", "source": {"type": "git", "git": {"organizationRepository": {"repositoryName": "acme/w", "autoDeploy": false}}}}`

	f, err := form.Decode(strings.NewReader(doc))
	is.NoErr(err)
	is.Equal(f.ServiceType, form.Worker)
	is.Equal(*f.Source.Git.OrganizationRepository.RepositoryName, "acme/w")
	is.Equal(*f.Source.Git.OrganizationRepository.Branch, form.DefaultBranch)
	is.Equal(f.Source.Git.OrganizationRepository.AutoDeploy, false)

	def := form.ToDefinition(f)
	is.True(*def.Git.NoDeployOnPush)
}

func TestDecode_Empty(t *testing.T) {
	is := is.New(t)

	f, err := form.Decode(strings.NewReader(""))
	is.NoErr(err)
	if diff := cmp.Diff(form.Defaults(), f); diff != "" {
		t.Errorf("empty document should decode to defaults (-want +got):\n%s", diff)
	}
}

func TestDecode_UnknownField(t *testing.T) {
	is := is.New(t)

	_, err := form.Decode(strings.NewReader("serviceName: api\nreplicas: 3\n"))
	is.True(err != nil)
	is.True(strings.Contains(err.Error(), "replicas"))
}

func TestDecodeFile(t *testing.T) {
	is := is.New(t)

	path := filepath.Join(t.TempDir(), "service.yaml")
	is.NoErr(os.WriteFile(path, []byte("serviceName: from-file\n"), 0o644))

	f, err := form.DecodeFile(path)
	is.NoErr(err)
	is.Equal(f.ServiceName, "from-file")

	_, err = form.DecodeFile(filepath.Join(t.TempDir(), "missing.yaml"))
	is.True(err != nil)
}

func TestEncodeDecode(t *testing.T) {
	is := is.New(t)

	f := dockerWeb()
	f.Ports[0].Protocol = spec.HTTP2

	var buf bytes.Buffer
	is.NoErr(form.Encode(&buf, f))

	back, err := form.Decode(&buf)
	is.NoErr(err)
	if diff := cmp.Diff(form.ToDefinition(f), form.ToDefinition(back)); diff != "" {
		t.Errorf("definition changed through encode/decode (-want +got):\n%s", diff)
	}
}
