package server

import (
	"cmp"
	"encoding/json"
	"fmt"
	"net/http"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"

	"github.com/matgreaves/console/spec"
)

type serviceEnvelope struct {
	Service spec.Service `json:"service"`
}

type servicesEnvelope struct {
	Services []spec.Service `json:"services"`
}

type deploymentEnvelope struct {
	Deployment spec.Deployment `json:"deployment"`
}

type eventsEnvelope struct {
	Events []spec.DeploymentEvent `json:"events"`
}

// handleCreateService handles POST /v1/services.
func (s *Server) handleCreateService(w http.ResponseWriter, r *http.Request, tok spec.Token) {
	var req struct {
		AppID      string          `json:"app_id"`
		Definition json.RawMessage `json:"definition"`
	}
	if !readJSON(w, r, &req) {
		return
	}
	def, ok := decodeDefinition(w, req.Definition)
	if !ok {
		return
	}

	svc, err := s.createService(tok.OrganizationID, req.AppID, def)
	if err != nil {
		writeFailure(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, serviceEnvelope{svc})
}

// handleUpdateService handles PUT /v1/services/{id}.
func (s *Server) handleUpdateService(w http.ResponseWriter, r *http.Request, tok spec.Token) {
	var req struct {
		Definition json.RawMessage `json:"definition"`
		SkipBuild  bool            `json:"skip_build"`
		SaveOnly   bool            `json:"save_only"`
	}
	if !readJSON(w, r, &req) {
		return
	}
	def, ok := decodeDefinition(w, req.Definition)
	if !ok {
		return
	}

	svc, err := s.updateService(tok.OrganizationID, r.PathValue("id"), def, deployOptions{
		skipBuild: req.SkipBuild,
		saveOnly:  req.SaveOnly,
	})
	if err != nil {
		writeFailure(w, err)
		return
	}
	writeJSON(w, http.StatusOK, serviceEnvelope{svc})
}

// handleRedeployService handles POST /v1/services/{id}/redeploy.
func (s *Server) handleRedeployService(w http.ResponseWriter, r *http.Request, tok spec.Token) {
	var req struct {
		SkipBuild bool `json:"skip_build"`
		UseCache  bool `json:"use_cache"`
	}
	if !readJSON(w, r, &req) {
		return
	}

	dep, err := s.redeployService(tok.OrganizationID, r.PathValue("id"), deployOptions{
		skipBuild: req.SkipBuild,
		useCache:  req.UseCache,
	})
	if err != nil {
		writeFailure(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, deploymentEnvelope{dep})
}

// handleGetService handles GET /v1/services/{id}.
func (s *Server) handleGetService(w http.ResponseWriter, r *http.Request, tok spec.Token) {
	s.mu.Lock()
	svc, ok := s.services[r.PathValue("id")]
	var out spec.Service
	if ok && svc.OrganizationID == tok.OrganizationID {
		out = *svc
	} else {
		ok = false
	}
	s.mu.Unlock()

	if !ok {
		writeFailure(w, notFound("service"))
		return
	}
	writeJSON(w, http.StatusOK, serviceEnvelope{out})
}

// handleListServices handles GET /v1/services, optionally filtered by the
// app_id query parameter. Services are listed oldest first.
func (s *Server) handleListServices(w http.ResponseWriter, r *http.Request, tok spec.Token) {
	appID := r.URL.Query().Get("app_id")

	s.mu.Lock()
	out := make([]spec.Service, 0, len(s.services))
	for _, svc := range s.services {
		if svc.OrganizationID != tok.OrganizationID {
			continue
		}
		if appID != "" && svc.AppID != appID {
			continue
		}
		out = append(out, *svc)
	}
	s.mu.Unlock()

	slices.SortFunc(out, func(a, b spec.Service) int {
		return cmp.Or(a.CreatedAt.Compare(b.CreatedAt), strings.Compare(a.Name, b.Name))
	})
	writeJSON(w, http.StatusOK, servicesEnvelope{out})
}

// handleGetDeployment handles GET /v1/deployments/{id}.
func (s *Server) handleGetDeployment(w http.ResponseWriter, r *http.Request, tok spec.Token) {
	_, dep, ok := s.getDeployment(tok, r.PathValue("id"))
	if !ok {
		writeFailure(w, notFound("deployment"))
		return
	}
	writeJSON(w, http.StatusOK, deploymentEnvelope{dep})
}

// handleListEvents handles GET /v1/deployments/{id}/events.
func (s *Server) handleListEvents(w http.ResponseWriter, r *http.Request, tok spec.Token) {
	d, _, ok := s.getDeployment(tok, r.PathValue("id"))
	if !ok {
		writeFailure(w, notFound("deployment"))
		return
	}
	writeJSON(w, http.StatusOK, eventsEnvelope{d.events.Events()})
}

// getDeployment looks up a deployment visible to tok and returns it with
// a snapshot of its public state.
func (s *Server) getDeployment(tok spec.Token, id string) (*deployment, spec.Deployment, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	d, ok := s.deployments[id]
	if !ok || d.orgID != tok.OrganizationID {
		return nil, spec.Deployment{}, false
	}
	return d, d.Deployment, true
}

func decodeDefinition(w http.ResponseWriter, raw json.RawMessage) (spec.DeploymentDefinition, bool) {
	if len(raw) == 0 {
		writeError(w, http.StatusBadRequest, "definition is required")
		return spec.DeploymentDefinition{}, false
	}
	def, err := spec.DecodeDefinition(raw)
	if err != nil {
		writeError(w, http.StatusBadRequest, "decode definition: "+err.Error())
		return spec.DeploymentDefinition{}, false
	}
	return def, true
}

func (s *Server) createService(orgID, appID string, def spec.DeploymentDefinition) (spec.Service, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	app, ok := s.apps[appID]
	if !ok || app.orgID != orgID {
		return spec.Service{}, notFound("app")
	}
	if err := s.checkDefinitionLocked(orgID, &def); err != nil {
		return spec.Service{}, err
	}
	if s.serviceNamedLocked(appID, def.Name) != nil {
		return spec.Service{}, conflict(fmt.Sprintf("service %q already exists in app %q", def.Name, app.Name))
	}

	now := time.Now().UTC()
	svc := &spec.Service{
		ID:             uuid.NewString(),
		Name:           def.Name,
		AppID:          appID,
		OrganizationID: orgID,
		Type:           def.Type,
		Status:         spec.ServiceStarting,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	s.services[svc.ID] = svc
	s.deployLocked(svc, def, deployOptions{})

	s.log.WithFields(log.Fields{
		"service": svc.ID,
		"name":    svc.Name,
		"type":    svc.Type,
	}).Info("service created")
	return *svc, nil
}

func (s *Server) updateService(orgID, id string, def spec.DeploymentDefinition, opts deployOptions) (spec.Service, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	svc, ok := s.services[id]
	if !ok || svc.OrganizationID != orgID {
		return spec.Service{}, notFound("service")
	}
	if def.Type != svc.Type {
		return spec.Service{}, invalid("invalid deployment definition", []string{
			fmt.Sprintf("type: cannot change from %s to %s", svc.Type, def.Type),
		})
	}
	if err := s.checkDefinitionLocked(orgID, &def); err != nil {
		return spec.Service{}, err
	}
	if other := s.serviceNamedLocked(svc.AppID, def.Name); other != nil && other.ID != svc.ID {
		return spec.Service{}, conflict(fmt.Sprintf("service %q already exists in app", def.Name))
	}

	svc.Name = def.Name
	s.deployLocked(svc, def, opts)
	return *svc, nil
}

func (s *Server) redeployService(orgID, id string, opts deployOptions) (spec.Deployment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	svc, ok := s.services[id]
	if !ok || svc.OrganizationID != orgID {
		return spec.Deployment{}, notFound("service")
	}
	latest, ok := s.deployments[svc.LatestDeploymentID]
	if !ok {
		return spec.Deployment{}, conflict("service has no deployment to redeploy")
	}

	d := s.deployLocked(svc, latest.Definition, opts)
	return d.Deployment, nil
}

// checkDefinitionLocked validates def and the secrets and volumes it
// refers to. Caller must hold s.mu.
func (s *Server) checkDefinitionLocked(orgID string, def *spec.DeploymentDefinition) error {
	problems := ValidateDefinition(def, s.cfg.Regions)

	for _, env := range def.Env {
		if env.Secret != nil && s.secretNamedLocked(orgID, *env.Secret) == nil {
			problems = append(problems, fmt.Sprintf("env %q: secret %q does not exist", env.Key, *env.Secret))
		}
	}
	for _, v := range def.Volumes {
		if v.ID == "" {
			continue
		}
		vol, ok := s.volumes[v.ID]
		if !ok || vol.orgID != orgID {
			problems = append(problems, fmt.Sprintf("volumes: volume %q does not exist", v.ID))
			continue
		}
		if !slices.Contains(def.Regions, vol.Region) {
			problems = append(problems, fmt.Sprintf("volumes: volume %q is in region %q, which the service is not deployed to", vol.Name, vol.Region))
		}
	}

	if len(problems) > 0 {
		return invalid("invalid deployment definition", problems)
	}
	return nil
}

func (s *Server) serviceNamedLocked(appID, name string) *spec.Service {
	for _, svc := range s.services {
		if svc.AppID == appID && svc.Name == name {
			return svc
		}
	}
	return nil
}
