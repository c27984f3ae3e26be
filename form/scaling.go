package form

import (
	"slices"

	"github.com/matgreaves/console/spec"
)

// Target names an autoscaling criterion.
type Target string

const (
	TargetCPU                Target = "cpu"
	TargetMemory             Target = "memory"
	TargetRequests           Target = "requests"
	TargetConcurrentRequests Target = "concurrentRequests"
	TargetResponseTime       Target = "responseTime"
	TargetSleepIdleDelay     Target = "sleepIdleDelay"
)

// TargetSetting is one criterion row: a checkbox and a threshold.
type TargetSetting struct {
	Enabled bool `yaml:"enabled"`
	Value   int  `yaml:"value"`
}

type AutoScalingTargets struct {
	CPU                TargetSetting `yaml:"cpu"`
	Memory             TargetSetting `yaml:"memory"`
	Requests           TargetSetting `yaml:"requests"`
	ConcurrentRequests TargetSetting `yaml:"concurrentRequests"`
	ResponseTime       TargetSetting `yaml:"responseTime"`
	SleepIdleDelay     TargetSetting `yaml:"sleepIdleDelay"`
}

// Get returns the setting for target, or nil for an unknown target.
func (t *AutoScalingTargets) Get(target Target) *TargetSetting {
	switch target {
	case TargetCPU:
		return &t.CPU
	case TargetMemory:
		return &t.Memory
	case TargetRequests:
		return &t.Requests
	case TargetConcurrentRequests:
		return &t.ConcurrentRequests
	case TargetResponseTime:
		return &t.ResponseTime
	case TargetSleepIdleDelay:
		return &t.SleepIdleDelay
	}
	return nil
}

// TargetField pairs a form target with its wire field name.
type TargetField struct {
	Target Target
	Field  string
}

// TargetFields is the rename table from form target to definition field.
// Its order is the order targets appear in the definition.
var TargetFields = []TargetField{
	{TargetCPU, spec.FieldAverageCPU},
	{TargetMemory, spec.FieldAverageMem},
	{TargetRequests, spec.FieldRequestsPerSecond},
	{TargetConcurrentRequests, spec.FieldConcurrentRequests},
	{TargetResponseTime, spec.FieldRequestsResponseTime},
	{TargetSleepIdleDelay, spec.FieldSleepIdleDelay},
}

// FieldForTarget returns the wire field of target, or "" if unknown.
func FieldForTarget(target Target) string {
	for _, tf := range TargetFields {
		if tf.Target == target {
			return tf.Field
		}
	}
	return ""
}

// TargetForField is the inverse of FieldForTarget.
func TargetForField(field string) Target {
	for _, tf := range TargetFields {
		if tf.Field == field {
			return tf.Target
		}
	}
	return ""
}

// scalingsToSpec returns the single scaling descriptor of the definition.
func scalingsToSpec(s Scaling) []spec.Scaling {
	switch s.Type {
	case ScalingFixed:
		return []spec.Scaling{{Min: s.Fixed, Max: s.Fixed}}
	case ScalingAutoscaling:
		return []spec.Scaling{{
			Min:     s.AutoScaling.Min,
			Max:     s.AutoScaling.Max,
			Targets: targetsToSpec(s.AutoScaling.Targets),
		}}
	}
	panic(unreachable("scaling type", s.Type))
}

// targetsToSpec emits one target per enabled setting, in TargetFields
// order. The result is never nil.
func targetsToSpec(targets AutoScalingTargets) []spec.ScalingTarget {
	out := make([]spec.ScalingTarget, 0, len(TargetFields))
	for _, tf := range TargetFields {
		setting := targets.Get(tf.Target)
		if !setting.Enabled {
			continue
		}
		out = append(out, spec.NewScalingTarget(tf.Field, spec.TargetValue{Value: setting.Value}))
	}

	if targets.ResponseTime.Enabled {
		i := slices.IndexFunc(out, func(t spec.ScalingTarget) bool {
			return t.RequestsResponseTime != nil
		})
		assert(i >= 0, "response time target is enabled but was not emitted")

		quantile := spec.ResponseTimeQuantile
		out[i].RequestsResponseTime.Quantile = &quantile
	}

	return out
}
