package server_test

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/matgreaves/console/server"
	"github.com/matgreaves/console/spec"
)

// validWeb returns a minimal valid web definition for tests to modify.
func validWeb() spec.DeploymentDefinition {
	return spec.DeploymentDefinition{
		Name:          "frontend",
		Type:          spec.Web,
		Docker:        &spec.DockerSource{Image: "nginx:1.27"},
		Regions:       []string{"fra"},
		InstanceTypes: []spec.InstanceType{{Type: "nano"}},
		Scalings:      []spec.Scaling{{Min: 1, Max: 1}},
		Env:           []spec.Env{},
		Volumes:       []spec.VolumeMount{},
		Ports:         []spec.Port{{Port: 8000, Protocol: spec.HTTP}},
		Routes:        []spec.Route{{Port: 8000, Path: "/"}},
		HealthChecks: []spec.HealthCheck{{
			GracePeriod: 5, Interval: 30, RestartLimit: 3, Timeout: 5,
			TCP: &spec.TCPHealthCheck{Port: 8000},
		}},
	}
}

func validWorker() spec.DeploymentDefinition {
	def := validWeb()
	def.Name = "jobs"
	def.Type = spec.Worker
	def.Ports, def.Routes, def.HealthChecks = nil, nil, nil
	return def
}

func validate(def spec.DeploymentDefinition) []string {
	return server.ValidateDefinition(&def, server.DefaultRegions)
}

func TestValidateDefinition_Valid(t *testing.T) {
	for _, def := range []spec.DeploymentDefinition{validWeb(), validWorker()} {
		if errs := validate(def); len(errs) > 0 {
			t.Errorf("%s: expected no errors, got: %v", def.Type, errs)
		}
	}
}

func TestValidateDefinition_Database(t *testing.T) {
	def := spec.DeploymentDefinition{
		Name:     "db",
		Type:     spec.Database,
		Database: json.RawMessage(`{"neon_postgres":{"pg_version":16}}`),
		Regions:  []string{"fra"},
	}
	if errs := validate(def); len(errs) > 0 {
		t.Errorf("expected no errors, got: %v", errs)
	}
}

func TestValidateDefinition_NameAndType(t *testing.T) {
	def := validWeb()
	def.Name = ""
	def.Type = "CRON"

	errs := validate(def)
	assertContainsError(t, errs, "name is required")
	assertContainsError(t, errs, `invalid type "CRON"`)
}

func TestValidateDefinition_Source(t *testing.T) {
	tests := []struct {
		name   string
		modify func(*spec.DeploymentDefinition)
		want   string
	}{
		{
			name:   "none",
			modify: func(d *spec.DeploymentDefinition) { d.Docker = nil },
			want:   "one of archive, git, docker or database is required",
		},
		{
			name: "two",
			modify: func(d *spec.DeploymentDefinition) {
				d.Git = &spec.GitSource{Repository: "github.com/acme/web", Branch: "main"}
			},
			want: "exactly one source is allowed, got git, docker",
		},
		{
			name: "database on web",
			modify: func(d *spec.DeploymentDefinition) {
				d.Docker = nil
				d.Database = json.RawMessage(`{}`)
			},
			want: "database source is not allowed for WEB services",
		},
		{
			name:   "empty image",
			modify: func(d *spec.DeploymentDefinition) { d.Docker.Image = "" },
			want:   "docker: image is required",
		},
		{
			name: "git without branch",
			modify: func(d *spec.DeploymentDefinition) {
				d.Docker = nil
				d.Git = &spec.GitSource{Repository: "github.com/acme/web"}
			},
			want: "git: branch is required",
		},
		{
			name: "two builders",
			modify: func(d *spec.DeploymentDefinition) {
				d.Docker = nil
				d.Archive = &spec.ArchiveSource{
					ID:        "arc-1",
					Buildpack: &spec.BuildpackBuilder{},
					Docker:    &spec.DockerBuilder{},
				}
			},
			want: "archive: only one of buildpack or docker builder may be set",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			def := validWeb()
			tt.modify(&def)
			assertContainsError(t, validate(def), tt.want)
		})
	}
}

func TestValidateDefinition_RegionSuggestion(t *testing.T) {
	def := validWeb()
	def.Regions = []string{"fr"}

	errs := validate(def)
	assertContainsError(t, errs, `unknown region "fr"`)
	assertContainsError(t, errs, `did you mean "fra"?`)
}

func TestValidateDefinition_RegionsRequired(t *testing.T) {
	def := validWeb()
	def.Regions = nil
	assertContainsError(t, validate(def), "at least one region is required")
}

func TestValidateDefinition_Scalings(t *testing.T) {
	quantile := spec.ResponseTimeQuantile
	wrong := 50

	tests := []struct {
		name     string
		scalings []spec.Scaling
		want     string
	}{
		{"none", nil, "expected exactly one entry, got 0"},
		{"two", []spec.Scaling{{Min: 1, Max: 1}, {Min: 1, Max: 1}}, "expected exactly one entry, got 2"},
		{"min above max", []spec.Scaling{{Min: 3, Max: 2}}, "invalid range min=3 max=2"},
		{
			"empty target",
			[]spec.Scaling{{Min: 1, Max: 2, Targets: []spec.ScalingTarget{{}}}},
			"target 0 must set exactly one field",
		},
		{
			"duplicate target",
			[]spec.Scaling{{Min: 1, Max: 2, Targets: []spec.ScalingTarget{
				spec.NewScalingTarget(spec.FieldAverageCPU, spec.TargetValue{Value: 80}),
				spec.NewScalingTarget(spec.FieldAverageCPU, spec.TargetValue{Value: 70}),
			}}},
			`target "average_cpu" is set twice`,
		},
		{
			"quantile on cpu",
			[]spec.Scaling{{Min: 1, Max: 2, Targets: []spec.ScalingTarget{
				spec.NewScalingTarget(spec.FieldAverageCPU, spec.TargetValue{Value: 80, Quantile: &quantile}),
			}}},
			`target "average_cpu" does not take a quantile`,
		},
		{
			"response time without quantile 95",
			[]spec.Scaling{{Min: 1, Max: 2, Targets: []spec.ScalingTarget{
				spec.NewScalingTarget(spec.FieldRequestsResponseTime, spec.TargetValue{Value: 1500, Quantile: &wrong}),
			}}},
			`target "requests_response_time" requires quantile 95`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			def := validWeb()
			def.Scalings = tt.scalings
			assertContainsError(t, validate(def), tt.want)
		})
	}
}

func TestValidateDefinition_ResponseTimeQuantileAccepted(t *testing.T) {
	quantile := spec.ResponseTimeQuantile
	def := validWeb()
	def.Scalings = []spec.Scaling{{Min: 1, Max: 3, Targets: []spec.ScalingTarget{
		spec.NewScalingTarget(spec.FieldRequestsResponseTime, spec.TargetValue{Value: 1500, Quantile: &quantile}),
	}}}
	if errs := validate(def); len(errs) > 0 {
		t.Errorf("expected no errors, got: %v", errs)
	}
}

func TestValidateDefinition_Env(t *testing.T) {
	value, secret := "1", "db-password"

	def := validWeb()
	def.Env = []spec.Env{
		{Key: "BOTH", Value: &value, Secret: &secret},
		{Key: "NEITHER"},
		{Value: &value},
	}

	errs := validate(def)
	assertContainsError(t, errs, `env "BOTH": exactly one of value or secret must be set`)
	assertContainsError(t, errs, `env "NEITHER": exactly one of value or secret must be set`)
	assertContainsError(t, errs, "env: key is required")
}

func TestValidateDefinition_Volumes(t *testing.T) {
	def := validWeb()
	def.Volumes = []spec.VolumeMount{{ID: "vol-1", Path: "data"}}
	assertContainsError(t, validate(def), "must have an id and an absolute path")
}

func TestValidateDefinition_WorkerRejectsNetworking(t *testing.T) {
	def := validWorker()
	def.Ports = []spec.Port{}
	def.HealthChecks = []spec.HealthCheck{}

	errs := validate(def)
	if len(errs) != 2 {
		t.Fatalf("expected 2 errors, got: %v", errs)
	}
	if errs[0] != "ports: not allowed for WORKER services" {
		t.Errorf("errs[0] = %q", errs[0])
	}
	if errs[1] != "health_checks: not allowed for WORKER services" {
		t.Errorf("errs[1] = %q", errs[1])
	}
}

func TestValidateDefinition_Ports(t *testing.T) {
	def := validWeb()
	def.Ports = append(def.Ports,
		spec.Port{Port: 8000, Protocol: spec.TCP},
		spec.Port{Port: 9000, Protocol: "udp"},
	)
	def.Routes = append(def.Routes, spec.Route{Port: 7000, Path: "api"})
	def.HealthChecks = append(def.HealthChecks,
		spec.HealthCheck{TCP: &spec.TCPHealthCheck{Port: 7000}},
		spec.HealthCheck{},
	)

	errs := validate(def)
	assertContainsError(t, errs, "port 8000 is declared twice")
	assertContainsError(t, errs, `port 9000 has invalid protocol "udp"`)
	assertContainsError(t, errs, "routes: port 7000 is not declared in ports")
	assertContainsError(t, errs, `routes: path "api" must start with /`)
	assertContainsError(t, errs, "health_checks: port 7000 is not declared in ports")
	assertContainsError(t, errs, "health_checks: entry 2 must set exactly one of tcp or http")
}

func TestValidateDefinition_MultipleErrorsInOrder(t *testing.T) {
	def := validWeb()
	def.Name = ""
	def.Regions = []string{"mars"}
	def.InstanceTypes = nil

	errs := validate(def)
	if len(errs) != 3 {
		t.Fatalf("expected 3 errors, got %d: %v", len(errs), errs)
	}
	for i, prefix := range []string{"name", "regions", "instance_types"} {
		if !strings.HasPrefix(errs[i], prefix) {
			t.Errorf("errs[%d] = %q, want prefix %q", i, errs[i], prefix)
		}
	}
}

func assertContainsError(t *testing.T, errs []string, substr string) {
	t.Helper()
	for _, err := range errs {
		if strings.Contains(err, substr) {
			return
		}
	}
	t.Errorf("expected an error containing %q, got: %v", substr, errs)
}
