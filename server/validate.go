package server

import (
	"fmt"
	"slices"
	"strings"

	"github.com/matgreaves/console/spec"
)

// DefaultRegions are the regions a server accepts unless configured
// otherwise.
var DefaultRegions = []string{"fra", "par", "sfo", "sin", "tyo", "was"}

// ValidateDefinition checks a deployment definition for structural
// errors. It returns every error found, in definition order, so the
// caller can fix them in one pass.
func ValidateDefinition(def *spec.DeploymentDefinition, regions []string) []string {
	var errs []string

	if def.Name == "" {
		errs = append(errs, "name is required")
	}
	if !def.Type.Valid() {
		errs = append(errs, fmt.Sprintf("invalid type %q (must be one of: WEB, WORKER, DATABASE)", def.Type))
	}

	errs = append(errs, validateSource(def)...)
	errs = append(errs, validateRegions(def.Regions, regions)...)

	if def.Type != spec.Database {
		switch {
		case len(def.InstanceTypes) != 1:
			errs = append(errs, fmt.Sprintf("instance_types: expected exactly one entry, got %d", len(def.InstanceTypes)))
		case def.InstanceTypes[0].Type == "":
			errs = append(errs, "instance_types: type is required")
		}
		errs = append(errs, validateScalings(def.Scalings)...)
	}

	for _, env := range def.Env {
		if env.Key == "" {
			errs = append(errs, "env: key is required")
			continue
		}
		if (env.Value == nil) == (env.Secret == nil) {
			errs = append(errs, fmt.Sprintf("env %q: exactly one of value or secret must be set", env.Key))
		}
	}

	for _, v := range def.Volumes {
		if v.ID == "" || !strings.HasPrefix(v.Path, "/") {
			errs = append(errs, fmt.Sprintf("volumes: %q must have an id and an absolute path, got %q", v.ID, v.Path))
		}
	}

	if def.Type == spec.Web {
		errs = append(errs, validatePorts(def)...)
	} else {
		for _, f := range []struct {
			key     string
			present bool
		}{
			{"ports", def.Ports != nil},
			{"routes", def.Routes != nil},
			{"health_checks", def.HealthChecks != nil},
		} {
			if f.present {
				errs = append(errs, fmt.Sprintf("%s: not allowed for %s services", f.key, def.Type))
			}
		}
	}

	return errs
}

func validateSource(def *spec.DeploymentDefinition) []string {
	var set []string
	if def.Archive != nil {
		set = append(set, "archive")
	}
	if def.Git != nil {
		set = append(set, "git")
	}
	if def.Docker != nil {
		set = append(set, "docker")
	}
	if len(def.Database) > 0 {
		set = append(set, "database")
	}

	var errs []string
	switch len(set) {
	case 0:
		return []string{"source: one of archive, git, docker or database is required"}
	case 1:
	default:
		return []string{fmt.Sprintf("source: exactly one source is allowed, got %s", strings.Join(set, ", "))}
	}

	if (set[0] == "database") != (def.Type == spec.Database) {
		errs = append(errs, fmt.Sprintf("source: %s source is not allowed for %s services", set[0], def.Type))
	}

	switch {
	case def.Archive != nil:
		if def.Archive.ID == "" {
			errs = append(errs, "archive: id is required")
		}
		errs = append(errs, validateBuilder("archive", def.Archive.Buildpack, def.Archive.Docker)...)
	case def.Git != nil:
		if def.Git.Repository == "" {
			errs = append(errs, "git: repository is required")
		}
		if def.Git.Branch == "" {
			errs = append(errs, "git: branch is required")
		}
		errs = append(errs, validateBuilder("git", def.Git.Buildpack, def.Git.Docker)...)
	case def.Docker != nil:
		if def.Docker.Image == "" {
			errs = append(errs, "docker: image is required")
		}
	}
	return errs
}

func validateBuilder(source string, buildpack *spec.BuildpackBuilder, docker *spec.DockerBuilder) []string {
	if buildpack != nil && docker != nil {
		return []string{fmt.Sprintf("%s: only one of buildpack or docker builder may be set", source)}
	}
	return nil
}

func validateRegions(got, known []string) []string {
	if len(got) == 0 {
		return []string{"regions: at least one region is required"}
	}

	var errs []string
	for _, r := range got {
		if slices.Contains(known, r) {
			continue
		}
		msg := fmt.Sprintf("regions: unknown region %q", r)
		if suggestion := suggestRegion(r, known); suggestion != "" {
			msg += fmt.Sprintf(" (did you mean %q?)", suggestion)
		}
		errs = append(errs, msg)
	}
	return errs
}

func validateScalings(scalings []spec.Scaling) []string {
	if len(scalings) != 1 {
		return []string{fmt.Sprintf("scalings: expected exactly one entry, got %d", len(scalings))}
	}
	s := scalings[0]

	var errs []string
	if s.Min < 0 || s.Max < 1 || s.Min > s.Max {
		errs = append(errs, fmt.Sprintf("scalings: invalid range min=%d max=%d", s.Min, s.Max))
	}

	seen := make(map[string]bool, len(s.Targets))
	for i, t := range s.Targets {
		if !t.Single() {
			errs = append(errs, fmt.Sprintf("scalings: target %d must set exactly one field", i))
			continue
		}
		field, v := t.Field()
		if seen[field] {
			errs = append(errs, fmt.Sprintf("scalings: target %q is set twice", field))
		}
		seen[field] = true

		if v.Quantile != nil && field != spec.FieldRequestsResponseTime {
			errs = append(errs, fmt.Sprintf("scalings: target %q does not take a quantile", field))
		}
		if field == spec.FieldRequestsResponseTime && (v.Quantile == nil || *v.Quantile != spec.ResponseTimeQuantile) {
			errs = append(errs, fmt.Sprintf("scalings: target %q requires quantile %d", field, spec.ResponseTimeQuantile))
		}
	}
	return errs
}

func validatePorts(def *spec.DeploymentDefinition) []string {
	var errs []string

	declared := make(map[int]bool, len(def.Ports))
	for _, p := range def.Ports {
		if declared[p.Port] {
			errs = append(errs, fmt.Sprintf("ports: port %d is declared twice", p.Port))
		}
		declared[p.Port] = true

		if !p.Protocol.Valid() {
			errs = append(errs, fmt.Sprintf("ports: port %d has invalid protocol %q (must be one of: http, http2, tcp)", p.Port, p.Protocol))
		}
	}

	for _, r := range def.Routes {
		if !declared[r.Port] {
			errs = append(errs, fmt.Sprintf("routes: port %d is not declared in ports", r.Port))
		}
		if !strings.HasPrefix(r.Path, "/") {
			errs = append(errs, fmt.Sprintf("routes: path %q must start with /", r.Path))
		}
	}

	for i, hc := range def.HealthChecks {
		if (hc.TCP == nil) == (hc.HTTP == nil) {
			errs = append(errs, fmt.Sprintf("health_checks: entry %d must set exactly one of tcp or http", i))
			continue
		}
		if !declared[hc.Port()] {
			errs = append(errs, fmt.Sprintf("health_checks: port %d is not declared in ports", hc.Port()))
		}
	}

	return errs
}

// suggestRegion picks the known region nearest to r by edit distance.
// Nothing is suggested unless fewer than half of r's characters differ.
func suggestRegion(r string, known []string) string {
	limit := len([]rune(r))/2 + 1
	suggestion := ""
	for _, k := range known {
		if d := levenshtein([]rune(r), []rune(k)); d < limit {
			limit, suggestion = d, k
		}
	}
	return suggestion
}

// levenshtein keeps a single row of the distance table; diag holds the
// cell above-left of the one being filled.
func levenshtein(a, b []rune) int {
	row := make([]int, len(b)+1)
	for j := range row {
		row[j] = j
	}
	for i, ra := range a {
		diag := row[0]
		row[0] = i + 1
		for j, rb := range b {
			above := row[j+1]
			sub := diag
			if ra != rb {
				sub++
			}
			row[j+1] = min(sub, above+1, row[j]+1)
			diag = above
		}
	}
	return row[len(b)]
}
