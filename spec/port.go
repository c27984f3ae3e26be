package spec

// Protocol identifies the protocol a port speaks.
type Protocol string

const (
	TCP   Protocol = "tcp"
	HTTP  Protocol = "http"
	HTTP2 Protocol = "http2"
)

// ValidProtocols returns the set of recognised protocol values.
func ValidProtocols() []Protocol {
	return []Protocol{HTTP, HTTP2, TCP}
}

// Valid reports whether p is a recognised protocol.
func (p Protocol) Valid() bool {
	switch p {
	case TCP, HTTP, HTTP2:
		return true
	}
	return false
}

// Port declares a port the service listens on.
type Port struct {
	Port     int      `json:"port"`
	Protocol Protocol `json:"protocol"`
}

// Route exposes a port publicly under Path.
type Route struct {
	Port int    `json:"port"`
	Path string `json:"path"`
}

// HealthCheck probes one port. Exactly one of TCP or HTTP is set.
// Durations are whole seconds.
type HealthCheck struct {
	GracePeriod  int              `json:"grace_period"`
	Interval     int              `json:"interval"`
	RestartLimit int              `json:"restart_limit"`
	Timeout      int              `json:"timeout"`
	TCP          *TCPHealthCheck  `json:"tcp,omitempty"`
	HTTP         *HTTPHealthCheck `json:"http,omitempty"`
}

// Port returns the probed port of whichever variant is set.
func (h HealthCheck) Port() int {
	switch {
	case h.TCP != nil:
		return h.TCP.Port
	case h.HTTP != nil:
		return h.HTTP.Port
	}
	return 0
}

type TCPHealthCheck struct {
	Port int `json:"port"`
}

type HTTPHealthCheck struct {
	Port    int          `json:"port"`
	Path    string       `json:"path"`
	Method  string       `json:"method"`
	Headers []HTTPHeader `json:"headers"`
}

type HTTPHeader struct {
	Key   string `json:"key"`
	Value string `json:"value"`
}
