package spec

// Scaling bounds the instance count. A fixed scaling has Min == Max and no
// Targets key; an autoscaling carries the targets that drive it, possibly
// an empty list.
type Scaling struct {
	Min     int             `json:"min"`
	Max     int             `json:"max"`
	Targets []ScalingTarget `json:"targets,omitzero"`
}

// Wire names of the scaling target fields.
const (
	FieldAverageCPU           = "average_cpu"
	FieldAverageMem           = "average_mem"
	FieldRequestsPerSecond    = "requests_per_second"
	FieldConcurrentRequests   = "concurrent_requests"
	FieldRequestsResponseTime = "requests_response_time"
	FieldSleepIdleDelay       = "sleep_idle_delay"
)

// ResponseTimeQuantile is the percentile the response-time target is
// measured at.
const ResponseTimeQuantile = 95

// TargetValue is the threshold of a single scaling target.
type TargetValue struct {
	Value int `json:"value"`

	// Quantile is only set on the response-time target.
	Quantile *int `json:"quantile,omitempty"`
}

// ScalingTarget is a single-key object: exactly one field is set, and the
// populated field names the metric.
type ScalingTarget struct {
	AverageCPU           *TargetValue `json:"average_cpu,omitempty"`
	AverageMem           *TargetValue `json:"average_mem,omitempty"`
	RequestsPerSecond    *TargetValue `json:"requests_per_second,omitempty"`
	ConcurrentRequests   *TargetValue `json:"concurrent_requests,omitempty"`
	RequestsResponseTime *TargetValue `json:"requests_response_time,omitempty"`
	SleepIdleDelay       *TargetValue `json:"sleep_idle_delay,omitempty"`
}

// NewScalingTarget returns a target with the wire field named by field set
// to v. It panics on an unknown field name.
func NewScalingTarget(field string, v TargetValue) ScalingTarget {
	var t ScalingTarget
	p := t.slot(field)
	if p == nil {
		panic("spec: unknown scaling target field " + field)
	}
	*p = &v
	return t
}

// Field returns the wire name and value of the populated field, or "" and
// nil when the target is empty.
func (t ScalingTarget) Field() (string, *TargetValue) {
	for _, name := range TargetFieldNames() {
		if v := *t.slot(name); v != nil {
			return name, v
		}
	}
	return "", nil
}

// TargetFieldNames lists the wire names in their canonical order.
func TargetFieldNames() []string {
	return []string{
		FieldAverageCPU,
		FieldAverageMem,
		FieldRequestsPerSecond,
		FieldConcurrentRequests,
		FieldRequestsResponseTime,
		FieldSleepIdleDelay,
	}
}

func (t *ScalingTarget) slot(field string) **TargetValue {
	switch field {
	case FieldAverageCPU:
		return &t.AverageCPU
	case FieldAverageMem:
		return &t.AverageMem
	case FieldRequestsPerSecond:
		return &t.RequestsPerSecond
	case FieldConcurrentRequests:
		return &t.ConcurrentRequests
	case FieldRequestsResponseTime:
		return &t.RequestsResponseTime
	case FieldSleepIdleDelay:
		return &t.SleepIdleDelay
	}
	return nil
}

// count returns how many fields are set. Valid targets have exactly one.
func (t ScalingTarget) count() int {
	n := 0
	for _, name := range TargetFieldNames() {
		if *t.slot(name) != nil {
			n++
		}
	}
	return n
}

// Single reports whether exactly one field is set.
func (t ScalingTarget) Single() bool {
	return t.count() == 1
}
