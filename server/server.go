// Package server is an in-memory implementation of the hosting API. It
// validates deployment definitions the way the real API does and walks
// each deployment through its status progression, so the console client
// and CLI can be developed and tested without a hosting account.
package server

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"emperror.dev/errors"
	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"

	"github.com/matgreaves/console/spec"
)

// Config configures a Server. The zero value is usable.
type Config struct {
	// Regions accepted in definitions. Defaults to DefaultRegions.
	Regions []string

	// Domain is the parent domain of app domains: an app named "shop"
	// gets "shop.<Domain>". Apps have no domain when empty.
	Domain string

	// StepDelay is the pause between deployment status transitions.
	StepDelay time.Duration

	// Outcome picks the final status of a deployment. Nil means every
	// deployment becomes healthy.
	Outcome func(spec.DeploymentDefinition) spec.DeploymentStatus

	// Token is the bootstrap session token. A random one is generated
	// when empty.
	Token string

	// User is the account the bootstrap token belongs to.
	User spec.User

	// IdleTimeout closes ShutdownCh after this long without requests or
	// in-flight deployments. Zero disables it.
	IdleTimeout time.Duration

	Logger *log.Logger
}

// Server serves the hosting API from memory.
type Server struct {
	mux  *http.ServeMux
	cfg  Config
	log  *log.Entry
	idle *idleWatch

	// ctx is cancelled by Close and parents every deployment progression.
	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu          sync.Mutex
	user        spec.User
	tokens      map[string]spec.Token
	orgs        map[string]spec.Organization
	apps        map[string]*appRecord
	services    map[string]*spec.Service
	deployments map[string]*deployment
	volumes     map[string]*volumeRecord
	secrets     map[string]*secretRecord

	bootstrap spec.Token
}

type appRecord struct {
	spec.App
	orgID string
}

type volumeRecord struct {
	spec.Volume
	orgID string
}

type secretRecord struct {
	spec.Secret
	orgID string
	value string
}

// deployment is the server-side state of one deployment. The embedded
// Deployment is guarded by Server.mu.
type deployment struct {
	spec.Deployment
	orgID  string
	events *EventLog
	cancel context.CancelFunc
}

// NewServer creates a Server with a personal organization and a session
// token for it, and registers all HTTP routes.
func NewServer(cfg Config) *Server {
	if cfg.Regions == nil {
		cfg.Regions = DefaultRegions
	}
	if cfg.Logger == nil {
		cfg.Logger = log.StandardLogger()
	}
	if cfg.Token == "" {
		cfg.Token = uuid.NewString()
	}
	if cfg.User.ID == "" {
		cfg.User.ID = uuid.NewString()
	}
	if cfg.User.Name == "" {
		cfg.User.Name = "developer"
	}

	ctx, cancel := context.WithCancel(context.Background())
	s := &Server{
		mux:         http.NewServeMux(),
		cfg:         cfg,
		log:         cfg.Logger.WithField("component", "consoled"),
		idle:        newIdleWatch(cfg.IdleTimeout),
		ctx:         ctx,
		cancel:      cancel,
		user:        cfg.User,
		tokens:      make(map[string]spec.Token),
		orgs:        make(map[string]spec.Organization),
		apps:        make(map[string]*appRecord),
		services:    make(map[string]*spec.Service),
		deployments: make(map[string]*deployment),
		volumes:     make(map[string]*volumeRecord),
		secrets:     make(map[string]*secretRecord),
	}

	personal := spec.Organization{ID: uuid.NewString(), Name: "personal"}
	s.orgs[personal.ID] = personal
	s.bootstrap = spec.Token{ID: cfg.Token, OrganizationID: personal.ID}
	s.tokens[s.bootstrap.ID] = s.bootstrap

	s.mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	s.mux.HandleFunc("GET /v1/services", s.authed(s.handleListServices))
	s.mux.HandleFunc("POST /v1/services", s.authed(s.handleCreateService))
	s.mux.HandleFunc("GET /v1/services/{id}", s.authed(s.handleGetService))
	s.mux.HandleFunc("PUT /v1/services/{id}", s.authed(s.handleUpdateService))
	s.mux.HandleFunc("POST /v1/services/{id}/redeploy", s.authed(s.handleRedeployService))

	s.mux.HandleFunc("GET /v1/deployments/{id}", s.authed(s.handleGetDeployment))
	s.mux.HandleFunc("GET /v1/deployments/{id}/events", s.authed(s.handleListEvents))
	s.mux.HandleFunc("GET /v1/deployments/{id}/events/stream", s.authed(s.handleSSE))

	s.mux.HandleFunc("POST /v1/apps", s.authed(s.handleCreateApp))
	s.mux.HandleFunc("GET /v1/apps/{id}", s.authed(s.handleGetApp))

	s.mux.HandleFunc("POST /v1/organizations", s.authed(s.handleCreateOrganization))
	s.mux.HandleFunc("POST /v1/organizations/{id}/switch", s.authed(s.handleSwitchOrganization))

	s.mux.HandleFunc("GET /v1/account/profile", s.authed(s.handleGetProfile))
	s.mux.HandleFunc("PUT /v1/account/profile", s.authed(s.handleUpdateProfile))

	s.mux.HandleFunc("GET /v1/volumes", s.authed(s.handleListVolumes))
	s.mux.HandleFunc("POST /v1/volumes", s.authed(s.handleCreateVolume))
	s.mux.HandleFunc("GET /v1/secrets", s.authed(s.handleListSecrets))
	s.mux.HandleFunc("POST /v1/secrets", s.authed(s.handleCreateSecret))

	return s
}

// Token returns the bootstrap session token.
func (s *Server) Token() string {
	return s.bootstrap.ID
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.idle.touch()

	start := time.Now()
	rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
	s.mux.ServeHTTP(rec, r)

	s.log.WithFields(log.Fields{
		"method":   r.Method,
		"path":     r.URL.Path,
		"status":   rec.status,
		"duration": time.Since(start),
	}).Debug("request")
}

// ShutdownCh returns a channel that is closed when the idle timer fires.
func (s *Server) ShutdownCh() <-chan struct{} {
	return s.idle.expired
}

// Close stops every progressing deployment, ends open event streams and
// waits for the progressions to return. Deployments keep the status they
// had reached.
func (s *Server) Close() {
	s.cancel()
	s.wg.Wait()
}

// authedHandler is a handler that runs with a verified session token.
type authedHandler func(w http.ResponseWriter, r *http.Request, tok spec.Token)

// authed resolves the bearer token of the request, answering 401 when it
// is missing or unknown.
func (s *Server) authed(h authedHandler) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		raw, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
		if !ok || raw == "" {
			writeError(w, http.StatusUnauthorized, "missing bearer token")
			return
		}

		s.mu.Lock()
		tok, ok := s.tokens[raw]
		s.mu.Unlock()
		if !ok {
			writeError(w, http.StatusUnauthorized, "invalid session token")
			return
		}
		h(w, r, tok)
	}
}

// statusRecorder captures the response status for the request log. It
// forwards Flush so event streams keep working through it.
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

func (r *statusRecorder) Flush() {
	if f, ok := r.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

func (r *statusRecorder) Unwrap() http.ResponseWriter {
	return r.ResponseWriter
}

// apiError is a failure with an HTTP status. Store operations return it so
// handlers can answer without holding the lock.
type apiError struct {
	status int
	msg    string
	fields []string
}

func (e *apiError) Error() string { return e.msg }

func notFound(kind string) error {
	return &apiError{status: http.StatusNotFound, msg: kind + " not found"}
}

func conflict(msg string) error {
	return &apiError{status: http.StatusConflict, msg: msg}
}

func invalid(msg string, fields []string) error {
	return &apiError{status: http.StatusUnprocessableEntity, msg: msg, fields: fields}
}

type errorBody struct {
	Error  string   `json:"error"`
	Code   string   `json:"code,omitempty"`
	Fields []string `json:"fields,omitempty"`
}

func errorCode(status int) string {
	switch status {
	case http.StatusBadRequest:
		return "bad_request"
	case http.StatusUnauthorized:
		return "unauthorized"
	case http.StatusNotFound:
		return "not_found"
	case http.StatusConflict:
		return "conflict"
	case http.StatusUnprocessableEntity:
		return "validation_error"
	}
	return "internal"
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorBody{Error: msg, Code: errorCode(status)})
}

// writeFailure answers with the status of an *apiError, or 500.
func writeFailure(w http.ResponseWriter, err error) {
	var ae *apiError
	if !errors.As(err, &ae) {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, ae.status, errorBody{Error: ae.msg, Code: errorCode(ae.status), Fields: ae.fields})
}

// readJSON decodes the request body into v, answering 400 on failure.
func readJSON(w http.ResponseWriter, r *http.Request, v any) bool {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		writeError(w, http.StatusBadRequest, "read body: "+err.Error())
		return false
	}
	if len(body) == 0 {
		return true
	}
	if err := json.Unmarshal(body, v); err != nil {
		writeError(w, http.StatusBadRequest, "decode: "+err.Error())
		return false
	}
	return true
}
