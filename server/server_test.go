package server_test

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/matgreaves/console/server"
	"github.com/matgreaves/console/spec"
)

// newTestServer starts a Server behind httptest. The server is closed
// before the listener so progressions never outlive the test.
func newTestServer(t *testing.T, cfg server.Config) (*httptest.Server, *server.Server) {
	t.Helper()
	if cfg.Domain == "" {
		cfg.Domain = "console.test"
	}
	s := server.NewServer(cfg)
	ts := httptest.NewServer(s)
	t.Cleanup(ts.Close)
	t.Cleanup(s.Close)
	return ts, s
}

// call sends a JSON request and decodes a JSON response into out when out
// is non-nil. It returns the status code.
func call(t *testing.T, ts *httptest.Server, token, method, path string, body, out any) int {
	t.Helper()

	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			t.Fatal(err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequest(method, ts.URL+path, reader)
	if err != nil {
		t.Fatal(err)
	}
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			t.Fatalf("%s %s: decode response: %v", method, path, err)
		}
	}
	return resp.StatusCode
}

type errorResponse struct {
	Error  string   `json:"error"`
	Code   string   `json:"code"`
	Fields []string `json:"fields"`
}

func createApp(t *testing.T, ts *httptest.Server, token, name string) spec.App {
	t.Helper()
	var out struct {
		App spec.App `json:"app"`
	}
	if code := call(t, ts, token, http.MethodPost, "/v1/apps", map[string]string{"name": name}, &out); code != http.StatusCreated {
		t.Fatalf("create app: status %d", code)
	}
	return out.App
}

func createService(t *testing.T, ts *httptest.Server, token, appID string, def spec.DeploymentDefinition) spec.Service {
	t.Helper()
	var out struct {
		Service spec.Service `json:"service"`
	}
	body := map[string]any{"app_id": appID, "definition": def}
	if code := call(t, ts, token, http.MethodPost, "/v1/services", body, &out); code != http.StatusCreated {
		t.Fatalf("create service: status %d", code)
	}
	return out.Service
}

func getService(t *testing.T, ts *httptest.Server, token, id string) spec.Service {
	t.Helper()
	var out struct {
		Service spec.Service `json:"service"`
	}
	if code := call(t, ts, token, http.MethodGet, "/v1/services/"+id, nil, &out); code != http.StatusOK {
		t.Fatalf("get service: status %d", code)
	}
	return out.Service
}

func getDeployment(t *testing.T, ts *httptest.Server, token, id string) spec.Deployment {
	t.Helper()
	var out struct {
		Deployment spec.Deployment `json:"deployment"`
	}
	if code := call(t, ts, token, http.MethodGet, "/v1/deployments/"+id, nil, &out); code != http.StatusOK {
		t.Fatalf("get deployment: status %d", code)
	}
	return out.Deployment
}

// streamEvents reads the event stream of a deployment until the server
// ends it, and returns every event received.
func streamEvents(t *testing.T, ts *httptest.Server, token, id, lastEventID string) []spec.DeploymentEvent {
	t.Helper()
	events, err := readStream(ts, token, id, lastEventID)
	if err != nil {
		t.Fatal(err)
	}
	return events
}

func readStream(ts *httptest.Server, token, id, lastEventID string) ([]spec.DeploymentEvent, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, ts.URL+"/v1/deployments/"+id+"/events/stream", nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+token)
	if lastEventID != "" {
		req.Header.Set("Last-Event-ID", lastEventID)
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("stream: status %d", resp.StatusCode)
	}

	var events []spec.DeploymentEvent
	scanner := bufio.NewScanner(resp.Body)
	var data string
	for scanner.Scan() {
		line := scanner.Text()
		switch {
		case strings.HasPrefix(line, "data: "):
			data = strings.TrimPrefix(line, "data: ")
		case line == "" && data != "":
			var e spec.DeploymentEvent
			if err := json.Unmarshal([]byte(data), &e); err != nil {
				return nil, fmt.Errorf("decode event: %w", err)
			}
			events = append(events, e)
			data = ""
		}
	}
	if ctx.Err() != nil {
		return nil, fmt.Errorf("stream did not end, got %d events", len(events))
	}
	return events, nil
}

func statuses(events []spec.DeploymentEvent) []spec.DeploymentStatus {
	var out []spec.DeploymentStatus
	for _, e := range events {
		out = append(out, e.Status)
	}
	return out
}

func TestServer_Health(t *testing.T) {
	ts, _ := newTestServer(t, server.Config{})

	if code := call(t, ts, "", http.MethodGet, "/health", nil, nil); code != http.StatusOK {
		t.Errorf("health: status %d", code)
	}
}

func TestServer_RequiresToken(t *testing.T) {
	ts, _ := newTestServer(t, server.Config{})

	var missing, wrong errorResponse
	if code := call(t, ts, "", http.MethodGet, "/v1/account/profile", nil, &missing); code != http.StatusUnauthorized {
		t.Errorf("no token: status %d", code)
	}
	if missing.Code != "unauthorized" {
		t.Errorf("code = %q", missing.Code)
	}
	if code := call(t, ts, "nope", http.MethodGet, "/v1/account/profile", nil, &wrong); code != http.StatusUnauthorized {
		t.Errorf("unknown token: status %d", code)
	}
}

func TestServer_ConfiguredToken(t *testing.T) {
	ts, s := newTestServer(t, server.Config{Token: "secret-token", User: spec.User{Name: "ada"}})

	if s.Token() != "secret-token" {
		t.Fatalf("Token() = %q", s.Token())
	}
	var out struct {
		User spec.User `json:"user"`
	}
	if code := call(t, ts, "secret-token", http.MethodGet, "/v1/account/profile", nil, &out); code != http.StatusOK {
		t.Fatalf("status %d", code)
	}
	if out.User.Name != "ada" || out.User.ID == "" {
		t.Errorf("user = %+v", out.User)
	}
}

func TestServer_CreateApp(t *testing.T) {
	ts, s := newTestServer(t, server.Config{})

	app := createApp(t, ts, s.Token(), "shop")
	if app.ID == "" {
		t.Fatal("app has no id")
	}
	if len(app.Domains) != 1 || app.Domains[0].Name != "shop.console.test" {
		t.Errorf("domains = %+v", app.Domains)
	}

	var got struct {
		App spec.App `json:"app"`
	}
	if code := call(t, ts, s.Token(), http.MethodGet, "/v1/apps/"+app.ID, nil, &got); code != http.StatusOK {
		t.Fatalf("get app: status %d", code)
	}
	if got.App.Name != "shop" {
		t.Errorf("name = %q", got.App.Name)
	}

	var dup errorResponse
	if code := call(t, ts, s.Token(), http.MethodPost, "/v1/apps", map[string]string{"name": "shop"}, &dup); code != http.StatusConflict {
		t.Errorf("duplicate app: status %d", code)
	}
}

func TestServer_DeploymentProgression(t *testing.T) {
	ts, s := newTestServer(t, server.Config{})
	token := s.Token()
	app := createApp(t, ts, token, "shop")

	svc := createService(t, ts, token, app.ID, validWeb())
	if svc.LatestDeploymentID == "" {
		t.Fatal("service has no latest deployment")
	}
	if svc.Type != spec.Web || svc.Name != "frontend" || svc.AppID != app.ID {
		t.Errorf("service = %+v", svc)
	}

	events := streamEvents(t, ts, token, svc.LatestDeploymentID, "")
	want := []spec.DeploymentStatus{
		spec.StatusPending,
		spec.StatusProvisioning,
		spec.StatusScheduled,
		spec.StatusAllocating,
		spec.StatusStarting,
		spec.StatusHealthy,
	}
	got := statuses(events)
	if len(got) != len(want) {
		t.Fatalf("statuses = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("status %d = %q, want %q", i, got[i], want[i])
		}
		if events[i].Seq != uint64(i+1) {
			t.Errorf("event %d seq = %d", i, events[i].Seq)
		}
	}
	if events[0].Type != server.EventDeploymentCreated {
		t.Errorf("first event type = %q", events[0].Type)
	}

	svc = getService(t, ts, token, svc.ID)
	if svc.Status != spec.ServiceHealthy {
		t.Errorf("service status = %q", svc.Status)
	}
	if svc.ActiveDeploymentID != svc.LatestDeploymentID {
		t.Errorf("active = %q, latest = %q", svc.ActiveDeploymentID, svc.LatestDeploymentID)
	}

	dep := getDeployment(t, ts, token, svc.LatestDeploymentID)
	if dep.Status != spec.StatusHealthy || dep.ServiceID != svc.ID {
		t.Errorf("deployment = %+v", dep)
	}
	if dep.Definition.Docker == nil || dep.Definition.Docker.Image != "nginx:1.27" {
		t.Errorf("definition not stored: %+v", dep.Definition)
	}

	var listed struct {
		Events []spec.DeploymentEvent `json:"events"`
	}
	call(t, ts, token, http.MethodGet, "/v1/deployments/"+dep.ID+"/events", nil, &listed)
	if len(listed.Events) != len(want) {
		t.Errorf("listed %d events, want %d", len(listed.Events), len(want))
	}
}

func TestServer_StreamResumesFromLastEventID(t *testing.T) {
	ts, s := newTestServer(t, server.Config{})
	token := s.Token()
	app := createApp(t, ts, token, "shop")
	svc := createService(t, ts, token, app.ID, validWeb())

	all := streamEvents(t, ts, token, svc.LatestDeploymentID, "")
	resumed := streamEvents(t, ts, token, svc.LatestDeploymentID, "4")

	if len(resumed) != len(all)-4 {
		t.Fatalf("resumed %d events, want %d", len(resumed), len(all)-4)
	}
	if resumed[0].Seq != 5 {
		t.Errorf("first resumed seq = %d", resumed[0].Seq)
	}
}

func TestServer_CreateServiceValidation(t *testing.T) {
	ts, s := newTestServer(t, server.Config{})
	token := s.Token()
	app := createApp(t, ts, token, "shop")

	def := validWeb()
	def.Regions = []string{"fr"}
	def.Scalings = nil

	var out errorResponse
	body := map[string]any{"app_id": app.ID, "definition": def}
	if code := call(t, ts, token, http.MethodPost, "/v1/services", body, &out); code != http.StatusUnprocessableEntity {
		t.Fatalf("status %d", code)
	}
	if out.Code != "validation_error" {
		t.Errorf("code = %q", out.Code)
	}
	assertContainsError(t, out.Fields, `did you mean "fra"?`)
	assertContainsError(t, out.Fields, "scalings: expected exactly one entry")
}

func TestServer_CreateServiceRejectsDuplicateKeys(t *testing.T) {
	ts, s := newTestServer(t, server.Config{})
	token := s.Token()
	app := createApp(t, ts, token, "shop")

	raw := `{"app_id":"` + app.ID + `","definition":{"name":"a","name":"b"}}`
	req, _ := http.NewRequest(http.MethodPost, ts.URL+"/v1/services", strings.NewReader(raw))
	req.Header.Set("Authorization", "Bearer "+token)
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("status %d", resp.StatusCode)
	}
}

func TestServer_CreateServiceConflict(t *testing.T) {
	ts, s := newTestServer(t, server.Config{})
	token := s.Token()
	app := createApp(t, ts, token, "shop")
	createService(t, ts, token, app.ID, validWeb())

	body := map[string]any{"app_id": app.ID, "definition": validWeb()}
	var out errorResponse
	if code := call(t, ts, token, http.MethodPost, "/v1/services", body, &out); code != http.StatusConflict {
		t.Fatalf("status %d", code)
	}
	if !strings.Contains(out.Error, `"frontend" already exists`) {
		t.Errorf("error = %q", out.Error)
	}
}

func TestServer_CreateServiceUnknownApp(t *testing.T) {
	ts, s := newTestServer(t, server.Config{})

	body := map[string]any{"app_id": "missing", "definition": validWeb()}
	if code := call(t, ts, s.Token(), http.MethodPost, "/v1/services", body, nil); code != http.StatusNotFound {
		t.Errorf("status %d", code)
	}
}

func TestServer_ReferencesMustExist(t *testing.T) {
	ts, s := newTestServer(t, server.Config{})
	token := s.Token()
	app := createApp(t, ts, token, "shop")

	secret := "db-password"
	def := validWorker()
	def.Env = []spec.Env{{Key: "DB_PASSWORD", Secret: &secret}}
	def.Volumes = []spec.VolumeMount{{ID: "vol-missing", Path: "/data"}}

	var out errorResponse
	body := map[string]any{"app_id": app.ID, "definition": def}
	if code := call(t, ts, token, http.MethodPost, "/v1/services", body, &out); code != http.StatusUnprocessableEntity {
		t.Fatalf("status %d", code)
	}
	assertContainsError(t, out.Fields, `secret "db-password" does not exist`)
	assertContainsError(t, out.Fields, `volume "vol-missing" does not exist`)

	call(t, ts, token, http.MethodPost, "/v1/secrets", map[string]string{"name": secret, "value": "hunter2"}, nil)
	var vol struct {
		Volume spec.Volume `json:"volume"`
	}
	call(t, ts, token, http.MethodPost, "/v1/volumes", spec.Volume{Name: "data", Region: "fra", SizeGB: 10}, &vol)
	def.Volumes[0].ID = vol.Volume.ID

	body = map[string]any{"app_id": app.ID, "definition": def}
	if code := call(t, ts, token, http.MethodPost, "/v1/services", body, nil); code != http.StatusCreated {
		t.Errorf("after creating references: status %d", code)
	}
}

func TestServer_UpdateSupersedesUpcomingDeployment(t *testing.T) {
	ts, s := newTestServer(t, server.Config{StepDelay: time.Hour})
	token := s.Token()
	app := createApp(t, ts, token, "shop")
	svc := createService(t, ts, token, app.ID, validWeb())
	first := svc.LatestDeploymentID

	def := validWeb()
	def.Docker.Image = "nginx:1.28"
	var out struct {
		Service spec.Service `json:"service"`
	}
	body := map[string]any{"definition": def}
	if code := call(t, ts, token, http.MethodPut, "/v1/services/"+svc.ID, body, &out); code != http.StatusOK {
		t.Fatalf("update: status %d", code)
	}
	if out.Service.LatestDeploymentID == first {
		t.Fatal("update did not create a deployment")
	}

	events := streamEvents(t, ts, token, first, "")
	last := events[len(events)-1]
	if last.Status != spec.StatusCanceled || last.Type != server.EventDeploymentCanceled {
		t.Errorf("last event = %+v", last)
	}
	if dep := getDeployment(t, ts, token, first); dep.Status != spec.StatusCanceled {
		t.Errorf("first deployment status = %q", dep.Status)
	}
	if dep := getDeployment(t, ts, token, out.Service.LatestDeploymentID); dep.Status != spec.StatusPending {
		t.Errorf("second deployment status = %q", dep.Status)
	}
}

func TestServer_UpdateRejectsTypeChange(t *testing.T) {
	ts, s := newTestServer(t, server.Config{})
	token := s.Token()
	app := createApp(t, ts, token, "shop")
	svc := createService(t, ts, token, app.ID, validWeb())

	def := validWorker()
	def.Name = "frontend"
	var out errorResponse
	if code := call(t, ts, token, http.MethodPut, "/v1/services/"+svc.ID, map[string]any{"definition": def}, &out); code != http.StatusUnprocessableEntity {
		t.Fatalf("status %d", code)
	}
	assertContainsError(t, out.Fields, "type: cannot change from WEB to WORKER")
}

func TestServer_SaveOnly(t *testing.T) {
	ts, s := newTestServer(t, server.Config{})
	token := s.Token()
	app := createApp(t, ts, token, "shop")
	svc := createService(t, ts, token, app.ID, validWeb())
	streamEvents(t, ts, token, svc.LatestDeploymentID, "")

	var out struct {
		Service spec.Service `json:"service"`
	}
	body := map[string]any{"definition": validWeb(), "save_only": true}
	if code := call(t, ts, token, http.MethodPut, "/v1/services/"+svc.ID, body, &out); code != http.StatusOK {
		t.Fatalf("status %d", code)
	}

	dep := getDeployment(t, ts, token, out.Service.LatestDeploymentID)
	if dep.Status != spec.StatusStashed {
		t.Errorf("status = %q", dep.Status)
	}
	if out.Service.ActiveDeploymentID != svc.LatestDeploymentID {
		t.Errorf("active deployment changed to %q", out.Service.ActiveDeploymentID)
	}

	events := streamEvents(t, ts, token, dep.ID, "")
	if len(events) != 1 || events[0].Status != spec.StatusStashed {
		t.Errorf("events = %+v", events)
	}
}

func TestServer_SkipBuildOnlyForBuiltSources(t *testing.T) {
	ts, s := newTestServer(t, server.Config{})
	token := s.Token()
	app := createApp(t, ts, token, "shop")
	svc := createService(t, ts, token, app.ID, validWeb())

	var out struct {
		Deployment spec.Deployment `json:"deployment"`
	}
	call(t, ts, token, http.MethodPost, "/v1/services/"+svc.ID+"/redeploy", map[string]bool{"skip_build": true, "use_cache": true}, &out)
	if out.Deployment.SkipBuild {
		t.Error("docker deployment kept skip_build")
	}
	if !out.Deployment.UseCache {
		t.Error("use_cache dropped")
	}
}

func TestServer_RedeployStopsPreviousActive(t *testing.T) {
	ts, s := newTestServer(t, server.Config{})
	token := s.Token()
	app := createApp(t, ts, token, "shop")
	svc := createService(t, ts, token, app.ID, validWeb())
	first := svc.LatestDeploymentID
	streamEvents(t, ts, token, first, "")

	var out struct {
		Deployment spec.Deployment `json:"deployment"`
	}
	if code := call(t, ts, token, http.MethodPost, "/v1/services/"+svc.ID+"/redeploy", map[string]bool{}, &out); code != http.StatusCreated {
		t.Fatalf("redeploy: status %d", code)
	}
	streamEvents(t, ts, token, out.Deployment.ID, "")

	if dep := getDeployment(t, ts, token, first); dep.Status != spec.StatusStopped {
		t.Errorf("previous deployment status = %q", dep.Status)
	}
	if got := getService(t, ts, token, svc.ID); got.ActiveDeploymentID != out.Deployment.ID {
		t.Errorf("active = %q, want %q", got.ActiveDeploymentID, out.Deployment.ID)
	}
}

func TestServer_UnhealthyOutcome(t *testing.T) {
	ts, s := newTestServer(t, server.Config{
		Outcome: func(def spec.DeploymentDefinition) spec.DeploymentStatus {
			return spec.StatusUnhealthy
		},
	})
	token := s.Token()
	app := createApp(t, ts, token, "shop")
	svc := createService(t, ts, token, app.ID, validWeb())

	events := streamEvents(t, ts, token, svc.LatestDeploymentID, "")
	if last := events[len(events)-1]; last.Status != spec.StatusUnhealthy {
		t.Errorf("last status = %q", last.Status)
	}
	if got := getService(t, ts, token, svc.ID); got.Status != spec.ServiceUnhealthy || got.ActiveDeploymentID != "" {
		t.Errorf("service = %+v", got)
	}
}

func TestServer_DatabaseHost(t *testing.T) {
	ts, s := newTestServer(t, server.Config{})
	token := s.Token()
	app := createApp(t, ts, token, "shop")

	def := spec.DeploymentDefinition{
		Name:     "db",
		Type:     spec.Database,
		Database: json.RawMessage(`{"neon_postgres":{"pg_version":16}}`),
		Regions:  []string{"fra"},
	}
	svc := createService(t, ts, token, app.ID, def)

	dep := getDeployment(t, ts, token, svc.LatestDeploymentID)
	if dep.DatabaseInfo == nil || dep.DatabaseInfo.Host != "db.fra.db.console.test" {
		t.Errorf("database info = %+v", dep.DatabaseInfo)
	}
}

func TestServer_ListServices(t *testing.T) {
	ts, s := newTestServer(t, server.Config{})
	token := s.Token()
	shop := createApp(t, ts, token, "shop")
	blog := createApp(t, ts, token, "blog")
	createService(t, ts, token, shop.ID, validWeb())
	createService(t, ts, token, shop.ID, validWorker())
	createService(t, ts, token, blog.ID, validWeb())

	var out struct {
		Services []spec.Service `json:"services"`
	}
	call(t, ts, token, http.MethodGet, "/v1/services?app_id="+shop.ID, nil, &out)
	if len(out.Services) != 2 {
		t.Fatalf("got %d services", len(out.Services))
	}

	call(t, ts, token, http.MethodGet, "/v1/services", nil, &out)
	if len(out.Services) != 3 {
		t.Errorf("got %d services across apps", len(out.Services))
	}
}

func TestServer_SwitchOrganization(t *testing.T) {
	ts, s := newTestServer(t, server.Config{})
	token := s.Token()
	app := createApp(t, ts, token, "shop")

	var org struct {
		Organization spec.Organization `json:"organization"`
	}
	if code := call(t, ts, token, http.MethodPost, "/v1/organizations", map[string]string{"name": "acme"}, &org); code != http.StatusCreated {
		t.Fatalf("create org: status %d", code)
	}

	var switched struct {
		Token spec.Token `json:"token"`
	}
	if code := call(t, ts, token, http.MethodPost, "/v1/organizations/"+org.Organization.ID+"/switch", nil, &switched); code != http.StatusOK {
		t.Fatalf("switch: status %d", code)
	}
	if switched.Token.ID == "" || switched.Token.ID == token {
		t.Fatalf("token = %+v", switched.Token)
	}
	if switched.Token.OrganizationID != org.Organization.ID {
		t.Errorf("token org = %q", switched.Token.OrganizationID)
	}

	// The new token cannot see the personal organization's app.
	if code := call(t, ts, switched.Token.ID, http.MethodGet, "/v1/apps/"+app.ID, nil, nil); code != http.StatusNotFound {
		t.Errorf("cross-org get: status %d", code)
	}
	// The old token keeps working.
	if code := call(t, ts, token, http.MethodGet, "/v1/apps/"+app.ID, nil, nil); code != http.StatusOK {
		t.Errorf("old token: status %d", code)
	}

	if code := call(t, ts, token, http.MethodPost, "/v1/organizations/missing/switch", nil, nil); code != http.StatusNotFound {
		t.Errorf("unknown org: status %d", code)
	}
}

func TestServer_UpdateProfile(t *testing.T) {
	ts, s := newTestServer(t, server.Config{})

	var out struct {
		User spec.User `json:"user"`
	}
	if code := call(t, ts, s.Token(), http.MethodPut, "/v1/account/profile", map[string]string{"name": "grace"}, &out); code != http.StatusOK {
		t.Fatalf("status %d", code)
	}
	if out.User.Name != "grace" {
		t.Errorf("name = %q", out.User.Name)
	}

	if code := call(t, ts, s.Token(), http.MethodPut, "/v1/account/profile", map[string]string{"name": " "}, nil); code != http.StatusUnprocessableEntity {
		t.Errorf("blank name: status %d", code)
	}
}

func TestServer_Volumes(t *testing.T) {
	ts, s := newTestServer(t, server.Config{})
	token := s.Token()

	var bad errorResponse
	if code := call(t, ts, token, http.MethodPost, "/v1/volumes", spec.Volume{Name: "data", Region: "frx"}, &bad); code != http.StatusUnprocessableEntity {
		t.Fatalf("status %d", code)
	}
	assertContainsError(t, bad.Fields, `did you mean "fra"?`)
	assertContainsError(t, bad.Fields, "max_size: must be at least 1")

	call(t, ts, token, http.MethodPost, "/v1/volumes", spec.Volume{Name: "data", Region: "fra", SizeGB: 10}, nil)
	if code := call(t, ts, token, http.MethodPost, "/v1/volumes", spec.Volume{Name: "data", Region: "fra", SizeGB: 10}, nil); code != http.StatusConflict {
		t.Errorf("duplicate volume: status %d", code)
	}

	var list struct {
		Volumes []spec.Volume `json:"volumes"`
	}
	call(t, ts, token, http.MethodGet, "/v1/volumes", nil, &list)
	if len(list.Volumes) != 1 || list.Volumes[0].SizeGB != 10 {
		t.Errorf("volumes = %+v", list.Volumes)
	}
}

func TestServer_SecretsNeverReturnValues(t *testing.T) {
	ts, s := newTestServer(t, server.Config{})
	token := s.Token()

	call(t, ts, token, http.MethodPost, "/v1/secrets", map[string]string{"name": "api-key", "value": "hunter2"}, nil)

	req, _ := http.NewRequest(http.MethodGet, ts.URL+"/v1/secrets", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	body, _ := io.ReadAll(resp.Body)
	resp.Body.Close()

	if !strings.Contains(string(body), "api-key") {
		t.Errorf("secret missing from list: %s", body)
	}
	if strings.Contains(string(body), "hunter2") {
		t.Errorf("secret value leaked: %s", body)
	}
}

func TestServer_CloseEndsStreams(t *testing.T) {
	ts, s := newTestServer(t, server.Config{StepDelay: time.Hour})
	token := s.Token()
	app := createApp(t, ts, token, "shop")
	svc := createService(t, ts, token, app.ID, validWeb())

	type result struct {
		events []spec.DeploymentEvent
		err    error
	}
	done := make(chan result, 1)
	go func() {
		events, err := readStream(ts, token, svc.LatestDeploymentID, "")
		done <- result{events, err}
	}()

	time.Sleep(50 * time.Millisecond)
	s.Close()

	select {
	case r := <-done:
		if r.err != nil {
			t.Fatal(r.err)
		}
		if len(r.events) != 1 || r.events[0].Status != spec.StatusPending {
			t.Errorf("events = %+v", r.events)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("stream still open after Close")
	}
}

func TestServer_IdleShutdown(t *testing.T) {
	ts, s := newTestServer(t, server.Config{IdleTimeout: 100 * time.Millisecond})

	// Requests push the deadline back.
	for range 3 {
		time.Sleep(40 * time.Millisecond)
		call(t, ts, "", http.MethodGet, "/health", nil, nil)
	}
	select {
	case <-s.ShutdownCh():
		t.Fatal("idle timer fired while requests were arriving")
	default:
	}

	select {
	case <-s.ShutdownCh():
	case <-time.After(2 * time.Second):
		t.Fatal("idle timer did not fire")
	}
}
