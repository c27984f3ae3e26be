package form

// TargetBounds is the inclusive range of a target's value.
type TargetBounds struct {
	Min, Max int
}

// MaxInstances caps both fixed and autoscaling instance counts.
const MaxInstances = 20

var targetBounds = map[Target]TargetBounds{
	TargetCPU:                {1, 100},
	TargetMemory:             {1, 100},
	TargetRequests:           {1, 1_000_000_000},
	TargetConcurrentRequests: {1, 1_000_000_000},
	TargetResponseTime:       {1, 1_000_000_000},
	TargetSleepIdleDelay:     {180, 3600},
}

// BoundsForTarget returns the accepted value range of target.
func BoundsForTarget(target Target) TargetBounds {
	return targetBounds[target]
}

// webOnlyTargets measure inbound traffic, which workers do not receive.
var webOnlyTargets = map[Target]bool{
	TargetRequests:           true,
	TargetConcurrentRequests: true,
	TargetResponseTime:       true,
}

// MinInstances is the lowest instance count a service of type t may scale
// down to. Only web services scale to zero.
func MinInstances(t ServiceType) int {
	if t == Web {
		return 0
	}
	return 1
}

// DisabledTargetReason explains why target cannot be enabled with the
// form's current autoscaling range and service type. It returns "" when
// the target is available.
func DisabledTargetReason(f ServiceForm, target Target) string {
	lo, hi := f.Scaling.AutoScaling.Min, f.Scaling.AutoScaling.Max

	if target == TargetSleepIdleDelay {
		if lo == 0 {
			return ""
		}
		return "only available when scaling to zero"
	}

	switch {
	case lo == 0 && hi == 1:
		return "not available when max is 1"
	case lo == hi:
		return "not available with fixed scaling"
	case webOnlyTargets[target] && f.ServiceType == Worker:
		return "not available for workers"
	}
	return ""
}
