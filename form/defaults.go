package form

import "github.com/matgreaves/console/spec"

// Default values of a new service.
const (
	DefaultRegion   = "fra"
	DefaultInstance = "nano"
	DefaultPort     = 8000
	DefaultBranch   = "main"
)

// Defaults returns the form of a new web service: git source from an
// organization repository built with buildpacks, one instance, and one
// public http port with a tcp health check.
func Defaults() ServiceForm {
	instance := DefaultInstance
	branch := DefaultBranch
	publicBranch := DefaultBranch

	return ServiceForm{
		ServiceType: Web,
		Source: Source{
			Type: SourceGit,
			Git: GitSource{
				RepositoryType: RepositoryOrganization,
				OrganizationRepository: OrganizationRepository{
					Branch:     &branch,
					AutoDeploy: true,
				},
				PublicRepository: PublicRepository{
					Branch: &publicBranch,
				},
			},
		},
		Builder: Builder{
			Type: BuilderBuildpack,
		},
		Regions:  []string{DefaultRegion},
		Instance: &instance,
		Scaling: Scaling{
			Type:  ScalingAutoscaling,
			Fixed: 1,
			AutoScaling: AutoScaling{
				Min:     1,
				Max:     1,
				Targets: DefaultTargets(),
			},
		},
		Ports: []Port{DefaultPortRow()},
	}
}

// DefaultTargets returns every target disabled, with the value it takes
// when first enabled.
func DefaultTargets() AutoScalingTargets {
	return AutoScalingTargets{
		CPU:                TargetSetting{Value: 80},
		Memory:             TargetSetting{Value: 80},
		Requests:           TargetSetting{Value: 100},
		ConcurrentRequests: TargetSetting{Value: 100},
		ResponseTime:       TargetSetting{Value: 1500},
		SleepIdleDelay:     TargetSetting{Value: 300},
	}
}

// DefaultPortRow returns the row added for a new port.
func DefaultPortRow() Port {
	return Port{
		PortNumber:  DefaultPort,
		Public:      true,
		Protocol:    spec.HTTP,
		Path:        "/",
		HealthCheck: DefaultHealthCheck(),
	}
}

// DefaultHealthCheck returns the probe of a new port.
func DefaultHealthCheck() HealthCheck {
	return HealthCheck{
		Protocol:     HealthCheckTCP,
		GracePeriod:  5,
		Interval:     30,
		RestartLimit: 3,
		Timeout:      5,
		Path:         "/",
		Method:       "get",
	}
}
