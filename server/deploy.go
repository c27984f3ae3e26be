package server

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/matgreaves/run"
	log "github.com/sirupsen/logrus"

	"github.com/matgreaves/console/spec"
)

type deployOptions struct {
	skipBuild bool
	useCache  bool
	saveOnly  bool
}

// upcoming reports whether a deployment with this status is still on its
// way to serving.
func upcoming(status spec.DeploymentStatus) bool {
	switch status {
	case spec.StatusPending, spec.StatusProvisioning, spec.StatusScheduled,
		spec.StatusAllocating, spec.StatusStarting:
		return true
	}
	return false
}

// deployLocked records a new deployment of svc and, unless it is save-only,
// starts its progression. An upcoming deployment it replaces is cancelled.
// Caller must hold s.mu.
func (s *Server) deployLocked(svc *spec.Service, def spec.DeploymentDefinition, opts deployOptions) *deployment {
	now := time.Now().UTC()

	d := &deployment{
		Deployment: spec.Deployment{
			ID:         uuid.NewString(),
			ServiceID:  svc.ID,
			Status:     spec.StatusPending,
			Definition: def,
			SkipBuild:  opts.skipBuild && hasBuild(def),
			UseCache:   opts.useCache,
			CreatedAt:  now,
		},
		orgID: svc.OrganizationID,
	}
	d.events = NewEventLog(d.ID)
	if def.Type == spec.Database {
		d.DatabaseInfo = &spec.DatabaseInfo{Host: s.databaseHost(svc.Name, def.Regions[0])}
	}

	if opts.saveOnly {
		d.Status = spec.StatusStashed
		s.deployments[d.ID] = d
		svc.LatestDeploymentID = d.ID
		svc.UpdatedAt = now
		d.events.Publish(spec.DeploymentEvent{
			Type:    EventDeploymentCreated,
			Status:  spec.StatusStashed,
			Message: "definition saved without deploying",
		})
		return d
	}

	if prev, ok := s.deployments[svc.LatestDeploymentID]; ok && upcoming(prev.Status) && prev.cancel != nil {
		prev.cancel()
	}

	s.deployments[d.ID] = d
	svc.LatestDeploymentID = d.ID
	svc.UpdatedAt = now
	if svc.ActiveDeploymentID == "" {
		svc.Status = spec.ServiceStarting
	}

	d.events.Publish(spec.DeploymentEvent{
		Type:    EventDeploymentCreated,
		Status:  spec.StatusPending,
		Message: "deployment created",
	})
	s.start(d)
	return d
}

// start runs the progression of d in the background. A progression that is
// cancelled by a newer deployment ends in the canceled status; one that is
// cancelled by Close keeps the status it had reached.
func (s *Server) start(d *deployment) {
	if s.ctx.Err() != nil {
		return
	}
	ctx, cancel := context.WithCancel(s.ctx)
	d.cancel = cancel

	release := s.idle.hold()
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		defer release()
		defer cancel()

		err := s.progression(d).Run(ctx)
		if err != nil && s.ctx.Err() == nil {
			s.setStatus(d, spec.StatusCanceled, EventDeploymentCanceled, "superseded by a newer deployment")
		}
	}()
}

// progression walks a deployment from pending to its final status.
func (s *Server) progression(d *deployment) run.Runner {
	return run.Sequence{
		s.advance(d, spec.StatusProvisioning),
		s.advance(d, spec.StatusScheduled),
		s.advance(d, spec.StatusAllocating),
		s.advance(d, spec.StatusStarting),
		s.settle(d),
	}
}

// advance waits one step and moves d to status.
func (s *Server) advance(d *deployment, status spec.DeploymentStatus) run.Runner {
	return run.Func(func(ctx context.Context) error {
		if err := s.pause(ctx); err != nil {
			return err
		}
		s.setStatus(d, status, EventDeploymentStatus, "")
		return nil
	})
}

// settle waits one step and moves d to the status picked by
// Config.Outcome.
func (s *Server) settle(d *deployment) run.Runner {
	return run.Func(func(ctx context.Context) error {
		if err := s.pause(ctx); err != nil {
			return err
		}
		final := spec.StatusHealthy
		if s.cfg.Outcome != nil {
			final = s.cfg.Outcome(d.Definition)
		}
		s.setStatus(d, final, EventDeploymentStatus, "")
		return nil
	})
}

func (s *Server) pause(ctx context.Context) error {
	if s.cfg.StepDelay <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(s.cfg.StepDelay)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// setStatus records a status change of d, updates its service and
// publishes the change. A healthy deployment becomes the active one of its
// service and the previously active deployment is stopped.
func (s *Server) setStatus(d *deployment, status spec.DeploymentStatus, eventType, msg string) {
	var stopped *deployment

	s.mu.Lock()
	d.Status = status
	svc := s.services[d.ServiceID]
	svc.UpdatedAt = time.Now().UTC()
	switch {
	case status == spec.StatusHealthy:
		if prev, ok := s.deployments[svc.ActiveDeploymentID]; ok && prev != d {
			prev.Status = spec.StatusStopped
			stopped = prev
		}
		svc.ActiveDeploymentID = d.ID
		svc.Status = spec.ServiceHealthy
	case upcoming(status), status == spec.StatusCanceled:
	default:
		if svc.ActiveDeploymentID == "" {
			svc.Status = spec.ServiceUnhealthy
		}
	}
	serviceID := svc.ID
	s.mu.Unlock()

	d.events.Publish(spec.DeploymentEvent{Type: eventType, Status: status, Message: msg})
	if stopped != nil {
		stopped.events.Publish(spec.DeploymentEvent{
			Type:    EventDeploymentStatus,
			Status:  spec.StatusStopped,
			Message: fmt.Sprintf("replaced by deployment %s", d.ID),
		})
	}

	s.log.WithFields(log.Fields{
		"service":    serviceID,
		"deployment": d.ID,
		"status":     status,
	}).Info("deployment status")
}

func (s *Server) databaseHost(name, region string) string {
	domain := s.cfg.Domain
	if domain == "" {
		domain = "internal"
	}
	return fmt.Sprintf("%s.%s.db.%s", name, region, domain)
}

func hasBuild(def spec.DeploymentDefinition) bool {
	switch def.SourceType() {
	case "git", "archive":
		return true
	}
	return false
}
