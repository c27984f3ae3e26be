package server

import (
	"cmp"
	"fmt"
	"net/http"
	"slices"
	"strings"

	"github.com/google/uuid"

	"github.com/matgreaves/console/spec"
)

type nameRequest struct {
	Name string `json:"name"`
}

// handleCreateApp handles POST /v1/apps. App names are unique within an
// organization.
func (s *Server) handleCreateApp(w http.ResponseWriter, r *http.Request, tok spec.Token) {
	var req nameRequest
	if !readJSON(w, r, &req) {
		return
	}
	if strings.TrimSpace(req.Name) == "" {
		writeFailure(w, invalid("invalid app", []string{"name is required"}))
		return
	}

	s.mu.Lock()
	for _, a := range s.apps {
		if a.orgID == tok.OrganizationID && a.Name == req.Name {
			s.mu.Unlock()
			writeFailure(w, conflict(fmt.Sprintf("app %q already exists", req.Name)))
			return
		}
	}
	app := &appRecord{
		App:   spec.App{ID: uuid.NewString(), Name: req.Name, Domains: []spec.Domain{}},
		orgID: tok.OrganizationID,
	}
	if s.cfg.Domain != "" {
		app.Domains = append(app.Domains, spec.Domain{ID: uuid.NewString(), Name: req.Name + "." + s.cfg.Domain})
	}
	s.apps[app.ID] = app
	out := app.App
	s.mu.Unlock()

	writeJSON(w, http.StatusCreated, map[string]spec.App{"app": out})
}

// handleGetApp handles GET /v1/apps/{id}.
func (s *Server) handleGetApp(w http.ResponseWriter, r *http.Request, tok spec.Token) {
	s.mu.Lock()
	app, ok := s.apps[r.PathValue("id")]
	var out spec.App
	if ok && app.orgID == tok.OrganizationID {
		out = app.App
	} else {
		ok = false
	}
	s.mu.Unlock()

	if !ok {
		writeFailure(w, notFound("app"))
		return
	}
	writeJSON(w, http.StatusOK, map[string]spec.App{"app": out})
}

// handleCreateOrganization handles POST /v1/organizations. The caller's
// token stays scoped to its current organization until it switches.
func (s *Server) handleCreateOrganization(w http.ResponseWriter, r *http.Request, tok spec.Token) {
	var req nameRequest
	if !readJSON(w, r, &req) {
		return
	}
	if strings.TrimSpace(req.Name) == "" {
		writeFailure(w, invalid("invalid organization", []string{"name is required"}))
		return
	}

	org := spec.Organization{ID: uuid.NewString(), Name: req.Name}
	s.mu.Lock()
	s.orgs[org.ID] = org
	s.mu.Unlock()

	writeJSON(w, http.StatusCreated, map[string]spec.Organization{"organization": org})
}

// handleSwitchOrganization handles POST /v1/organizations/{id}/switch and
// mints a session token scoped to that organization. Existing tokens stay
// valid.
func (s *Server) handleSwitchOrganization(w http.ResponseWriter, r *http.Request, tok spec.Token) {
	id := r.PathValue("id")

	s.mu.Lock()
	_, ok := s.orgs[id]
	next := spec.Token{ID: uuid.NewString(), OrganizationID: id}
	if ok {
		s.tokens[next.ID] = next
	}
	s.mu.Unlock()

	if !ok {
		writeFailure(w, notFound("organization"))
		return
	}
	writeJSON(w, http.StatusOK, map[string]spec.Token{"token": next})
}

// handleGetProfile handles GET /v1/account/profile.
func (s *Server) handleGetProfile(w http.ResponseWriter, r *http.Request, tok spec.Token) {
	s.mu.Lock()
	out := s.user
	s.mu.Unlock()
	writeJSON(w, http.StatusOK, map[string]spec.User{"user": out})
}

// handleUpdateProfile handles PUT /v1/account/profile.
func (s *Server) handleUpdateProfile(w http.ResponseWriter, r *http.Request, tok spec.Token) {
	var req nameRequest
	if !readJSON(w, r, &req) {
		return
	}
	if strings.TrimSpace(req.Name) == "" {
		writeFailure(w, invalid("invalid profile", []string{"name is required"}))
		return
	}

	s.mu.Lock()
	s.user.Name = req.Name
	out := s.user
	s.mu.Unlock()
	writeJSON(w, http.StatusOK, map[string]spec.User{"user": out})
}

// handleListVolumes handles GET /v1/volumes.
func (s *Server) handleListVolumes(w http.ResponseWriter, r *http.Request, tok spec.Token) {
	s.mu.Lock()
	out := make([]spec.Volume, 0, len(s.volumes))
	for _, v := range s.volumes {
		if v.orgID == tok.OrganizationID {
			out = append(out, v.Volume)
		}
	}
	s.mu.Unlock()

	slices.SortFunc(out, func(a, b spec.Volume) int {
		return cmp.Or(strings.Compare(a.Name, b.Name), strings.Compare(a.ID, b.ID))
	})
	writeJSON(w, http.StatusOK, map[string][]spec.Volume{"volumes": out})
}

// handleCreateVolume handles POST /v1/volumes.
func (s *Server) handleCreateVolume(w http.ResponseWriter, r *http.Request, tok spec.Token) {
	var req spec.Volume
	if !readJSON(w, r, &req) {
		return
	}

	var problems []string
	if req.Name == "" {
		problems = append(problems, "name is required")
	}
	problems = append(problems, validateRegions([]string{req.Region}, s.cfg.Regions)...)
	if req.SizeGB < 1 {
		problems = append(problems, fmt.Sprintf("max_size: must be at least 1, got %d", req.SizeGB))
	}
	if len(problems) > 0 {
		writeFailure(w, invalid("invalid volume", problems))
		return
	}

	s.mu.Lock()
	for _, v := range s.volumes {
		if v.orgID == tok.OrganizationID && v.Name == req.Name {
			s.mu.Unlock()
			writeFailure(w, conflict(fmt.Sprintf("volume %q already exists", req.Name)))
			return
		}
	}
	vol := &volumeRecord{Volume: req, orgID: tok.OrganizationID}
	vol.ID = uuid.NewString()
	s.volumes[vol.ID] = vol
	out := vol.Volume
	s.mu.Unlock()

	writeJSON(w, http.StatusCreated, map[string]spec.Volume{"volume": out})
}

// handleListSecrets handles GET /v1/secrets. Values are never returned.
func (s *Server) handleListSecrets(w http.ResponseWriter, r *http.Request, tok spec.Token) {
	s.mu.Lock()
	out := make([]spec.Secret, 0, len(s.secrets))
	for _, sec := range s.secrets {
		if sec.orgID == tok.OrganizationID {
			out = append(out, sec.Secret)
		}
	}
	s.mu.Unlock()

	slices.SortFunc(out, func(a, b spec.Secret) int {
		return strings.Compare(a.Name, b.Name)
	})
	writeJSON(w, http.StatusOK, map[string][]spec.Secret{"secrets": out})
}

// handleCreateSecret handles POST /v1/secrets.
func (s *Server) handleCreateSecret(w http.ResponseWriter, r *http.Request, tok spec.Token) {
	var req struct {
		Name  string `json:"name"`
		Value string `json:"value"`
	}
	if !readJSON(w, r, &req) {
		return
	}
	if req.Name == "" {
		writeFailure(w, invalid("invalid secret", []string{"name is required"}))
		return
	}

	s.mu.Lock()
	if s.secretNamedLocked(tok.OrganizationID, req.Name) != nil {
		s.mu.Unlock()
		writeFailure(w, conflict(fmt.Sprintf("secret %q already exists", req.Name)))
		return
	}
	sec := &secretRecord{
		Secret: spec.Secret{ID: uuid.NewString(), Name: req.Name},
		orgID:  tok.OrganizationID,
		value:  req.Value,
	}
	s.secrets[sec.ID] = sec
	out := sec.Secret
	s.mu.Unlock()

	writeJSON(w, http.StatusCreated, map[string]spec.Secret{"secret": out})
}

func (s *Server) secretNamedLocked(orgID, name string) *secretRecord {
	for _, sec := range s.secrets {
		if sec.orgID == orgID && sec.Name == name {
			return sec
		}
	}
	return nil
}
