package main

import (
	"strings"

	"emperror.dev/errors"
	"github.com/docker/go-connections/nat"

	"github.com/matgreaves/console/form"
	"github.com/matgreaves/console/spec"
)

// parsePort reads a --port value of the form PORT[/PROTO][@PATH]. PROTO
// defaults to tcp. A port with a path is public and routed at that path;
// one without is private.
func parsePort(raw string) (form.Port, error) {
	portProto, path, public := strings.Cut(raw, "@")

	proto, portStr := nat.SplitProtoPort(portProto)
	number, err := nat.ParsePort(portStr)
	if err != nil {
		return form.Port{}, errors.WrapWithDetails(err, "invalid port", "port", raw)
	}
	if number == 0 {
		return form.Port{}, errors.Errorf("invalid port %q: a port number is required", raw)
	}

	protocol := spec.Protocol(strings.ToLower(proto))
	if !protocol.Valid() {
		return form.Port{}, errors.Errorf("invalid port %q: unknown protocol %q (must be one of: http, http2, tcp)", raw, proto)
	}

	p := form.DefaultPortRow()
	p.PortNumber = number
	p.Protocol = protocol
	p.Public = public
	p.Path = path
	if !public {
		p.Path = ""
	}
	if protocol != spec.TCP {
		p.HealthCheck.Protocol = form.HealthCheckHTTP
	}
	return p, nil
}

func parsePorts(raw []string) ([]form.Port, error) {
	ports := make([]form.Port, 0, len(raw))
	for _, r := range raw {
		p, err := parsePort(r)
		if err != nil {
			return nil, err
		}
		ports = append(ports, p)
	}
	return ports, nil
}
