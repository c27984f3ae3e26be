package form

import (
	"strings"

	"github.com/matgreaves/console/spec"
)

// portsToSpec declares every port. Private ports are always tcp; the
// selected protocol only matters once the port is routed.
func portsToSpec(ports []Port) []spec.Port {
	out := make([]spec.Port, 0, len(ports))
	for _, p := range ports {
		protocol := spec.TCP
		if p.Public {
			protocol = p.Protocol
		}
		out = append(out, spec.Port{Port: p.PortNumber, Protocol: protocol})
	}
	return out
}

func routesToSpec(ports []Port) []spec.Route {
	out := make([]spec.Route, 0, len(ports))
	for _, p := range ports {
		if route, ok := routeToSpec(p); ok {
			out = append(out, route)
		}
	}
	return out
}

func routeToSpec(p Port) (spec.Route, bool) {
	if !p.Public {
		return spec.Route{}, false
	}
	return spec.Route{Port: p.PortNumber, Path: p.Path}, true
}

func healthChecksToSpec(ports []Port) []spec.HealthCheck {
	out := make([]spec.HealthCheck, 0, len(ports))
	for _, p := range ports {
		out = append(out, healthCheckToSpec(p.PortNumber, p.HealthCheck))
	}
	return out
}

func healthCheckToSpec(port int, hc HealthCheck) spec.HealthCheck {
	out := spec.HealthCheck{
		GracePeriod:  hc.GracePeriod,
		Interval:     hc.Interval,
		RestartLimit: hc.RestartLimit,
		Timeout:      hc.Timeout,
	}

	switch hc.Protocol {
	case HealthCheckTCP:
		out.TCP = &spec.TCPHealthCheck{Port: port}
	case HealthCheckHTTP:
		headers := make([]spec.HTTPHeader, 0, len(hc.Headers))
		for _, h := range hc.Headers {
			headers = append(headers, spec.HTTPHeader{Key: h.Name, Value: h.Value})
		}
		out.HTTP = &spec.HTTPHealthCheck{
			Port:    port,
			Path:    hc.Path,
			Method:  strings.ToUpper(hc.Method),
			Headers: headers,
		}
	default:
		panic(unreachable("health check protocol", hc.Protocol))
	}

	return out
}
