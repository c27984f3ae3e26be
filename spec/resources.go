package spec

import "time"

// DeploymentStatus is the lifecycle state of a deployment.
type DeploymentStatus string

const (
	StatusPending      DeploymentStatus = "pending"
	StatusProvisioning DeploymentStatus = "provisioning"
	StatusScheduled    DeploymentStatus = "scheduled"
	StatusAllocating   DeploymentStatus = "allocating"
	StatusStarting     DeploymentStatus = "starting"
	StatusHealthy      DeploymentStatus = "healthy"
	StatusDegraded     DeploymentStatus = "degraded"
	StatusUnhealthy    DeploymentStatus = "unhealthy"
	StatusCanceled     DeploymentStatus = "canceled"
	StatusStopped      DeploymentStatus = "stopped"
	StatusError        DeploymentStatus = "error"

	// StatusStashed marks a deployment that was saved without being
	// started.
	StatusStashed DeploymentStatus = "stashed"
)

// ServiceStatus is the aggregate state of a service.
type ServiceStatus string

const (
	ServiceStarting  ServiceStatus = "starting"
	ServiceHealthy   ServiceStatus = "healthy"
	ServiceUnhealthy ServiceStatus = "unhealthy"
	ServicePaused    ServiceStatus = "paused"
	ServiceDeleted   ServiceStatus = "deleted"
)

// Service is a named workload inside an app. Every change to its
// definition produces a new deployment.
type Service struct {
	ID                 string        `json:"id"`
	Name               string        `json:"name"`
	AppID              string        `json:"app_id"`
	OrganizationID     string        `json:"organization_id,omitempty"`
	Type               ServiceType   `json:"type"`
	Status             ServiceStatus `json:"status"`
	LatestDeploymentID string        `json:"latest_deployment_id,omitempty"`
	ActiveDeploymentID string        `json:"active_deployment_id,omitempty"`
	CreatedAt          time.Time     `json:"created_at"`
	UpdatedAt          time.Time     `json:"updated_at"`
}

// Deployment is one revision of a service.
type Deployment struct {
	ID           string               `json:"id"`
	ServiceID    string               `json:"service_id"`
	Status       DeploymentStatus     `json:"status"`
	Definition   DeploymentDefinition `json:"definition"`
	SkipBuild    bool                 `json:"skip_build,omitempty"`
	UseCache     bool                 `json:"use_cache,omitempty"`
	DatabaseInfo *DatabaseInfo        `json:"database_info,omitempty"`
	CreatedAt    time.Time            `json:"created_at"`
}

// DatabaseInfo is set on deployments of DATABASE services.
type DatabaseInfo struct {
	Host string `json:"host"`
}

// App groups services under common domains.
type App struct {
	ID      string   `json:"id"`
	Name    string   `json:"name"`
	Domains []Domain `json:"domains"`
}

type Domain struct {
	ID   string `json:"id,omitempty"`
	Name string `json:"name"`
}

type Organization struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

type User struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email,omitempty"`
}

// Token is a session token. Switching organization mints a new one.
type Token struct {
	ID             string `json:"id"`
	OrganizationID string `json:"organization_id,omitempty"`
}

type Volume struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Region string `json:"region"`
	SizeGB int    `json:"max_size"`
}

// Secret is a stored value referenced from Env.Secret by name. The value
// itself is never returned.
type Secret struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// DeploymentEvent records a deployment lifecycle change.
type DeploymentEvent struct {
	Seq          uint64           `json:"seq"`
	Type         string           `json:"type"`
	DeploymentID string           `json:"deployment_id"`
	Status       DeploymentStatus `json:"status,omitempty"`
	Message      string           `json:"message,omitempty"`
	Timestamp    time.Time        `json:"timestamp"`
}
