package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/growwiz/growwiz-core/internal/audit"
	"github.com/growwiz/growwiz-core/internal/automation"
	"github.com/growwiz/growwiz-core/internal/device"
	"github.com/growwiz/growwiz-core/internal/infrastructure/config"
	"github.com/growwiz/growwiz-core/internal/infrastructure/database"
	"github.com/growwiz/growwiz-core/internal/infrastructure/logging"
	"github.com/growwiz/growwiz-core/internal/reading"
	"github.com/growwiz/growwiz-core/migrations"
)

// fixedProvider returns a canned reading or error.
type fixedProvider struct {
	r   reading.Reading
	err error
}

func (p *fixedProvider) Latest(context.Context) (reading.Reading, error) {
	return p.r, p.err
}

type failingCheck struct{}

func (failingCheck) HealthCheck(context.Context) error { return errors.New("broker unreachable") }

// testEnv is a server wired to real stores on an in-memory database.
type testEnv struct {
	srv      *Server
	router   http.Handler
	db       *database.DB
	registry *device.Registry
	rules    *automation.Store
	activity *audit.Log
	history  *reading.SQLiteRepository
	provider *fixedProvider
}

func newTestEnv(t *testing.T, opts ...func(*Deps)) *testEnv {
	t.Helper()
	ctx := context.Background()

	db, err := database.Open(ctx, config.DatabaseConfig{Path: database.MemoryPath})
	if err != nil {
		t.Fatalf("database.Open() error = %v", err)
	}
	t.Cleanup(func() { db.Close() })
	if err := db.Migrate(ctx, migrations.FS); err != nil {
		t.Fatalf("Migrate() error = %v", err)
	}

	registry := device.NewRegistry(device.NewSQLiteRepository(db.DB))
	if err := registry.RefreshCache(ctx); err != nil {
		t.Fatalf("registry.RefreshCache() error = %v", err)
	}
	rules := automation.NewStore(automation.NewSQLiteRepository(db.DB))
	if err := rules.RefreshCache(ctx); err != nil {
		t.Fatalf("rules.RefreshCache() error = %v", err)
	}
	activity := audit.NewLog(audit.NewSQLiteRepository(db.DB))
	history := reading.NewSQLiteRepository(db.DB)
	provider := &fixedProvider{r: reading.Reading{
		Temperature: reading.Float(24),
		Humidity:    reading.Float(55),
		Timestamp:   time.Now().Unix(),
	}}

	log := logging.Discard()
	wsCfg := config.WebSocketConfig{MaxMessageSize: 8192, PingInterval: 30, PongTimeout: 10}
	hub := NewHub(wsCfg, log)
	controller := automation.NewController(registry, rules, provider, activity, hub, nil)

	deps := Deps{
		Config:         config.APIConfig{Host: "127.0.0.1", Timeouts: config.APITimeoutConfig{Read: 5, Write: 5, Idle: 5}},
		WS:             wsCfg,
		Logger:         log,
		Registry:       registry,
		Controller:     controller,
		Rules:          rules,
		Activity:       activity,
		Readings:       provider,
		History:        history,
		Hub:            hub,
		HealthChecks:   map[string]HealthChecker{"database": db},
		SimulationMode: true,
		Version:        "test",
	}
	for _, opt := range opts {
		opt(&deps)
	}

	srv, err := New(deps)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	return &testEnv{
		srv:      srv,
		router:   srv.buildRouter(),
		db:       db,
		registry: registry,
		rules:    rules,
		activity: activity,
		history:  history,
		provider: provider,
	}
}

// do sends a request through the router and returns the recorder.
func (e *testEnv) do(t *testing.T, method, path string, body any, headers ...string) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if s, ok := body.(string); ok {
			buf.WriteString(s)
		} else if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encoding body: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.Unmarshal(w.Body.Bytes(), &v); err != nil {
		t.Fatalf("unmarshal %q: %v", w.Body.String(), err)
	}
	return v
}

func assertError(t *testing.T, w *httptest.ResponseRecorder, status int, code string) {
	t.Helper()
	if w.Code != status {
		t.Fatalf("status = %d, want %d (body %s)", w.Code, status, w.Body.String())
	}
	resp := decode[errorResponse](t, w)
	if resp.Error.Code != code {
		t.Errorf("error code = %q, want %q", resp.Error.Code, code)
	}
	if resp.Error.Message == "" {
		t.Error("error message is empty")
	}
}

// ─── Health & Status ───────────────────────────────────────────────

func TestHealth(t *testing.T) {
	env := newTestEnv(t)

	w := env.do(t, http.MethodGet, "/api/v1/health", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
	resp := decode[map[string]any](t, w)
	if resp["status"] != "ok" {
		t.Errorf("status = %v, want ok", resp["status"])
	}
	if resp["version"] != "test" {
		t.Errorf("version = %v, want test", resp["version"])
	}
	checks, _ := resp["checks"].(map[string]any)
	if checks["database"] != "ok" {
		t.Errorf("checks.database = %v, want ok", checks["database"])
	}
}

func TestHealth_Degraded(t *testing.T) {
	env := newTestEnv(t, func(d *Deps) {
		d.HealthChecks = map[string]HealthChecker{"mqtt": failingCheck{}}
	})

	resp := decode[map[string]any](t, env.do(t, http.MethodGet, "/api/v1/health", nil))
	if resp["status"] != "degraded" {
		t.Errorf("status = %v, want degraded", resp["status"])
	}
	checks, _ := resp["checks"].(map[string]any)
	if checks["mqtt"] != "broker unreachable" {
		t.Errorf("checks.mqtt = %v, want broker unreachable", checks["mqtt"])
	}
}

func TestStatus(t *testing.T) {
	env := newTestEnv(t)
	if _, _, err := env.rules.Upsert(context.Background(), fanRule()); err != nil {
		t.Fatalf("Upsert() error = %v", err)
	}

	resp := decode[map[string]any](t, env.do(t, http.MethodGet, "/api/v1/status", nil))
	if resp["state"] != "idle" {
		t.Errorf("state = %v, want idle", resp["state"])
	}
	if resp["simulation_mode"] != true {
		t.Errorf("simulation_mode = %v, want true", resp["simulation_mode"])
	}
	if resp["total_rules"] != float64(1) || resp["active_rules"] != float64(1) {
		t.Errorf("rules = %v/%v, want 1/1", resp["active_rules"], resp["total_rules"])
	}
	devices, _ := resp["devices"].(map[string]any)
	if len(devices) != 6 {
		t.Errorf("len(devices) = %d, want 6", len(devices))
	}
}

// ─── Devices ───────────────────────────────────────────────────────

func TestDeviceStates(t *testing.T) {
	env := newTestEnv(t)

	states := decode[map[string]bool](t, env.do(t, http.MethodGet, "/api/v1/devices", nil))
	if len(states) != 6 {
		t.Fatalf("len(states) = %d, want 6", len(states))
	}
	for id, on := range states {
		if on {
			t.Errorf("%s = on, want off", id)
		}
	}

	details := decode[struct {
		Devices []device.Device `json:"devices"`
		Count   int             `json:"count"`
	}](t, env.do(t, http.MethodGet, "/api/v1/devices/details", nil))
	if details.Count != 6 || details.Devices[0].ID != device.Fan {
		t.Errorf("details = %+v, want 6 devices starting with fan", details)
	}
}

func TestDeviceControl(t *testing.T) {
	env := newTestEnv(t)

	w := env.do(t, http.MethodPost, "/api/v1/devices/control", controlRequest{Device: "fan", Action: "on"})
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200 (body %s)", w.Code, w.Body.String())
	}
	resp := decode[map[string]string](t, w)
	if resp["state"] != "on" || resp["previous"] != "off" {
		t.Errorf("response = %v, want state on previous off", resp)
	}
	if on, _ := env.registry.GetState(device.Fan); !on {
		t.Error("fan is off after control")
	}

	resp = decode[map[string]string](t, env.do(t, http.MethodPost, "/api/v1/devices/control", controlRequest{Device: "fan", Action: "toggle"}))
	if resp["state"] != "off" || resp["previous"] != "on" {
		t.Errorf("toggle response = %v, want state off previous on", resp)
	}

	entries, err := env.activity.Recent(context.Background(), 10, time.Time{})
	if err != nil {
		t.Fatalf("Recent() error = %v", err)
	}
	if len(entries) != 2 || entries[1].Message != "Manual control: fan turned on" {
		t.Errorf("activity = %+v, want two manual control entries", entries)
	}
}

func TestDeviceControl_Errors(t *testing.T) {
	env := newTestEnv(t)

	tests := []struct {
		name   string
		body   any
		status int
		code   string
	}{
		{"unknown device", controlRequest{Device: "sprinkler", Action: "on"}, http.StatusBadRequest, ErrCodeUnknownDevice},
		{"bad action", controlRequest{Device: "fan", Action: "maybe"}, http.StatusBadRequest, ErrCodeBadRequest},
		{"invalid JSON", "{not json", http.StatusBadRequest, ErrCodeBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assertError(t, env.do(t, http.MethodPost, "/api/v1/devices/control", tt.body), tt.status, tt.code)
		})
	}
}

// ─── Emergency stop ────────────────────────────────────────────────

func TestEmergencyStopAndResume(t *testing.T) {
	env := newTestEnv(t)
	env.do(t, http.MethodPost, "/api/v1/devices/control", controlRequest{Device: "pump", Action: "on"})

	w := env.do(t, http.MethodPost, "/api/v1/emergency-stop", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
	resp := decode[struct {
		Status string      `json:"status"`
		Off    []device.ID `json:"devices_turned_off"`
	}](t, w)
	if resp.Status != "emergency_stop_activated" || len(resp.Off) != 1 || resp.Off[0] != device.Pump {
		t.Errorf("response = %+v, want pump turned off", resp)
	}

	assertError(t, env.do(t, http.MethodPost, "/api/v1/devices/control", controlRequest{Device: "fan", Action: "on"}),
		http.StatusConflict, ErrCodeEmergencyStopActive)
	assertError(t, env.do(t, http.MethodPost, "/api/v1/automation/run", nil),
		http.StatusConflict, ErrCodeEmergencyStopActive)

	// A second stop still succeeds and reports nothing to turn off.
	again := decode[map[string]any](t, env.do(t, http.MethodPost, "/api/v1/emergency-stop", nil))
	if off, _ := again["devices_turned_off"].([]any); len(off) != 0 {
		t.Errorf("second stop turned off %v, want none", off)
	}

	resumed := decode[map[string]any](t, env.do(t, http.MethodPost, "/api/v1/resume", nil))
	if resumed["resumed"] != true {
		t.Errorf("resume = %v, want resumed true", resumed)
	}
	resumed = decode[map[string]any](t, env.do(t, http.MethodPost, "/api/v1/resume", nil))
	if resumed["resumed"] != false || resumed["status"] != "not_stopped" {
		t.Errorf("second resume = %v, want not_stopped", resumed)
	}

	if w := env.do(t, http.MethodPost, "/api/v1/devices/control", controlRequest{Device: "fan", Action: "on"}); w.Code != http.StatusOK {
		t.Errorf("control after resume status = %d, want 200", w.Code)
	}
}

// ─── Automation ────────────────────────────────────────────────────

func fanRule() automation.Rule {
	return automation.Rule{
		Name:          "Cool down",
		Metric:        reading.Temperature,
		LowThreshold:  20,
		HighThreshold: 28,
		TargetDevice:  device.Fan,
		ActionBelow:   automation.ActionOff,
		ActionAbove:   automation.ActionOn,
		Enabled:       true,
	}
}

func TestRunCycle(t *testing.T) {
	env := newTestEnv(t)
	rule, _, err := env.rules.Upsert(context.Background(), fanRule())
	if err != nil {
		t.Fatalf("Upsert() error = %v", err)
	}
	env.provider.r.Temperature = reading.Float(31)

	w := env.do(t, http.MethodPost, "/api/v1/automation/run", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200 (body %s)", w.Code, w.Body.String())
	}
	resp := decode[struct {
		Transitions []automation.Transition `json:"transitions"`
		Count       int                     `json:"count"`
	}](t, w)
	want := automation.Transition{Device: device.Fan, State: true, RuleID: rule.ID}
	if resp.Count != 1 || resp.Transitions[0] != want {
		t.Errorf("transitions = %+v, want [%+v]", resp.Transitions, want)
	}

	// Same reading again: nothing left to change.
	resp = decode[struct {
		Transitions []automation.Transition `json:"transitions"`
		Count       int                     `json:"count"`
	}](t, env.do(t, http.MethodPost, "/api/v1/automation/run", nil))
	if resp.Count != 0 || resp.Transitions == nil {
		t.Errorf("second run = %+v, want empty list", resp)
	}
}

func TestRunCycle_ReadingUnavailable(t *testing.T) {
	env := newTestEnv(t)
	env.provider.err = reading.ErrReadingUnavailable

	resp := decode[map[string]any](t, env.do(t, http.MethodPost, "/api/v1/automation/run", nil))
	if resp["count"] != float64(0) {
		t.Errorf("count = %v, want 0", resp["count"])
	}
	if resp["last_error"] == "" {
		t.Error("last_error is empty after a failed fetch")
	}
}

// ─── Rules ─────────────────────────────────────────────────────────

func ruleBody(low, high float64) map[string]any {
	return map[string]any{
		"name":           "Humidify",
		"metric":         "humidity",
		"low_threshold":  low,
		"high_threshold": high,
		"target_device":  "humidifier",
		"action_below":   "on",
		"action_above":   "off",
	}
}

func TestRulesCRUD(t *testing.T) {
	env := newTestEnv(t)

	w := env.do(t, http.MethodPost, "/api/v1/rules", ruleBody(40, 60))
	if w.Code != http.StatusCreated {
		t.Fatalf("create status = %d, want 201 (body %s)", w.Code, w.Body.String())
	}
	created := decode[automation.Rule](t, w)
	if !strings.HasPrefix(created.ID, "rule-") || !created.Enabled {
		t.Fatalf("created = %+v, want generated id and enabled", created)
	}

	got := decode[automation.Rule](t, env.do(t, http.MethodGet, "/api/v1/rules/"+created.ID, nil))
	if got.Name != "Humidify" {
		t.Errorf("get name = %q, want Humidify", got.Name)
	}

	w = env.do(t, http.MethodPut, "/api/v1/rules/"+created.ID, ruleBody(45, 65))
	if w.Code != http.StatusOK {
		t.Fatalf("update status = %d, want 200 (body %s)", w.Code, w.Body.String())
	}
	updated := decode[automation.Rule](t, w)
	if updated.LowThreshold != 45 || updated.Position != created.Position {
		t.Errorf("updated = %+v, want low 45 at position %d", updated, created.Position)
	}

	disabled := decode[automation.Rule](t, env.do(t, http.MethodPost, "/api/v1/rules/"+created.ID+"/disable", nil))
	if disabled.Enabled {
		t.Error("rule still enabled after disable")
	}
	enabled := decode[automation.Rule](t, env.do(t, http.MethodPost, "/api/v1/rules/"+created.ID+"/enable", nil))
	if !enabled.Enabled {
		t.Error("rule still disabled after enable")
	}

	list := decode[map[string]any](t, env.do(t, http.MethodGet, "/api/v1/rules", nil))
	if list["count"] != float64(1) {
		t.Errorf("count = %v, want 1", list["count"])
	}

	if w := env.do(t, http.MethodDelete, "/api/v1/rules/"+created.ID, nil); w.Code != http.StatusNoContent {
		t.Errorf("delete status = %d, want 204", w.Code)
	}
	assertError(t, env.do(t, http.MethodGet, "/api/v1/rules/"+created.ID, nil), http.StatusNotFound, ErrCodeNotFound)
}

func TestRules_Errors(t *testing.T) {
	env := newTestEnv(t)
	existing, _, err := env.rules.Upsert(context.Background(), fanRule())
	if err != nil {
		t.Fatalf("Upsert() error = %v", err)
	}

	dup := ruleBody(40, 60)
	dup["id"] = existing.ID
	missing := ruleBody(40, 60)
	delete(missing, "high_threshold")
	badDevice := ruleBody(40, 60)
	badDevice["target_device"] = "sprinkler"

	tests := []struct {
		name   string
		method string
		path   string
		body   any
		status int
		code   string
	}{
		{"inverted thresholds", http.MethodPost, "/api/v1/rules", ruleBody(60, 40), http.StatusBadRequest, ErrCodeValidation},
		{"missing threshold", http.MethodPost, "/api/v1/rules", missing, http.StatusBadRequest, ErrCodeValidation},
		{"unknown device", http.MethodPost, "/api/v1/rules", badDevice, http.StatusBadRequest, ErrCodeValidation},
		{"duplicate id", http.MethodPost, "/api/v1/rules", dup, http.StatusConflict, ErrCodeConflict},
		{"update unknown", http.MethodPut, "/api/v1/rules/rule-missing", ruleBody(40, 60), http.StatusNotFound, ErrCodeNotFound},
		{"delete unknown", http.MethodDelete, "/api/v1/rules/rule-missing", nil, http.StatusNotFound, ErrCodeNotFound},
		{"enable unknown", http.MethodPost, "/api/v1/rules/rule-missing/enable", nil, http.StatusNotFound, ErrCodeNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assertError(t, env.do(t, tt.method, tt.path, tt.body), tt.status, tt.code)
		})
	}
}

// ─── Activity & readings ───────────────────────────────────────────

func TestActivity(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	env.activity.Record(ctx, audit.TypeSystem, "first", "", "")
	env.activity.Record(ctx, audit.TypeError, "second", "", "")
	env.activity.Record(ctx, audit.TypeSystem, "third", "", "")

	resp := decode[struct {
		Entries []audit.Entry `json:"entries"`
		Count   int           `json:"count"`
	}](t, env.do(t, http.MethodGet, "/api/v1/activity?limit=2", nil))
	if resp.Count != 2 || resp.Entries[0].Message != "third" {
		t.Errorf("entries = %+v, want newest two starting with third", resp.Entries)
	}

	resp = decode[struct {
		Entries []audit.Entry `json:"entries"`
		Count   int           `json:"count"`
	}](t, env.do(t, http.MethodGet, "/api/v1/activity?type=error", nil))
	if resp.Count != 1 || resp.Entries[0].Message != "second" {
		t.Errorf("error entries = %+v, want only second", resp.Entries)
	}

	future := time.Now().Add(time.Hour).UTC().Format(time.RFC3339)
	resp = decode[struct {
		Entries []audit.Entry `json:"entries"`
		Count   int           `json:"count"`
	}](t, env.do(t, http.MethodGet, "/api/v1/activity?since="+future, nil))
	if resp.Count != 0 || resp.Entries == nil {
		t.Errorf("future since = %+v, want empty list", resp)
	}

	for _, q := range []string{"limit=0", "limit=abc", "since=yesterday", "type=gossip"} {
		t.Run(q, func(t *testing.T) {
			assertError(t, env.do(t, http.MethodGet, "/api/v1/activity?"+q, nil), http.StatusBadRequest, ErrCodeBadRequest)
		})
	}
}

func TestReadings(t *testing.T) {
	env := newTestEnv(t)

	latest := decode[struct {
		Reading reading.Reading   `json:"reading"`
		Units   map[string]string `json:"units"`
	}](t, env.do(t, http.MethodGet, "/api/v1/readings/latest", nil))
	if latest.Reading.Temperature == nil || *latest.Reading.Temperature != 24 {
		t.Errorf("temperature = %v, want 24", latest.Reading.Temperature)
	}
	if latest.Reading.SoilMoisture != nil {
		t.Errorf("soil_moisture = %v, want null", *latest.Reading.SoilMoisture)
	}
	if latest.Units["co2"] != "ppm" {
		t.Errorf("units[co2] = %q, want ppm", latest.Units["co2"])
	}

	if err := env.history.Record(context.Background(), env.provider.r); err != nil {
		t.Fatalf("Record() error = %v", err)
	}
	history := decode[map[string]any](t, env.do(t, http.MethodGet, "/api/v1/readings/history?hours=1", nil))
	if history["count"] != float64(1) || history["hours"] != float64(1) {
		t.Errorf("history = %v, want one reading over 1h", history)
	}
	assertError(t, env.do(t, http.MethodGet, "/api/v1/readings/history?hours=0", nil), http.StatusBadRequest, ErrCodeBadRequest)

	env.provider.err = reading.ErrReadingUnavailable
	assertError(t, env.do(t, http.MethodGet, "/api/v1/readings/latest", nil), http.StatusServiceUnavailable, ErrCodeReadingUnavailable)
}

// ─── Middleware ────────────────────────────────────────────────────

func TestRequestID(t *testing.T) {
	env := newTestEnv(t)

	w := env.do(t, http.MethodGet, "/api/v1/health", nil)
	if w.Header().Get("X-Request-ID") == "" {
		t.Error("X-Request-ID not generated")
	}
	w = env.do(t, http.MethodGet, "/api/v1/health", nil, "X-Request-ID", "abc-123")
	if got := w.Header().Get("X-Request-ID"); got != "abc-123" {
		t.Errorf("X-Request-ID = %q, want abc-123", got)
	}
}

func TestCORSPreflight(t *testing.T) {
	env := newTestEnv(t, func(d *Deps) {
		d.Config.CORS.AllowedOrigins = []string{"http://dashboard.local"}
	})

	w := env.do(t, http.MethodOptions, "/api/v1/devices/control", nil, "Origin", "http://dashboard.local")
	if w.Code != http.StatusNoContent {
		t.Errorf("status = %d, want 204", w.Code)
	}
	if got := w.Header().Get("Access-Control-Allow-Origin"); got != "http://dashboard.local" {
		t.Errorf("Allow-Origin = %q, want http://dashboard.local", got)
	}

	w = env.do(t, http.MethodOptions, "/api/v1/devices/control", nil, "Origin", "http://evil.example")
	if got := w.Header().Get("Access-Control-Allow-Origin"); got != "" {
		t.Errorf("Allow-Origin = %q for a foreign origin, want empty", got)
	}
}

func TestRateLimit(t *testing.T) {
	env := newTestEnv(t, func(d *Deps) {
		d.Security.RateLimit = config.RateLimitConfig{Enabled: true, RequestsPerMinute: 1, Burst: 2}
	})

	body := controlRequest{Device: "fan", Action: "on"}
	for i := 0; i < 2; i++ {
		if w := env.do(t, http.MethodPost, "/api/v1/devices/control", body); w.Code != http.StatusOK {
			t.Fatalf("request %d status = %d, want 200", i, w.Code)
		}
	}
	w := env.do(t, http.MethodPost, "/api/v1/devices/control", body)
	assertError(t, w, http.StatusTooManyRequests, ErrCodeRateLimited)
	if w.Header().Get("Retry-After") == "" {
		t.Error("Retry-After header missing")
	}

	// Reads are not limited.
	if w := env.do(t, http.MethodGet, "/api/v1/devices", nil); w.Code != http.StatusOK {
		t.Errorf("GET /devices status = %d, want 200", w.Code)
	}
}

func TestRateLimiter_Disabled(t *testing.T) {
	l := newRateLimiter(config.RateLimitConfig{Enabled: false, RequestsPerMinute: 1})
	for i := 0; i < 10; i++ {
		if !l.allow("192.0.2.1") {
			t.Fatalf("disabled limiter rejected request %d", i)
		}
	}
}

func TestRateLimiter_PerClient(t *testing.T) {
	l := newRateLimiter(config.RateLimitConfig{Enabled: true, RequestsPerMinute: 1, Burst: 1})
	if !l.allow("192.0.2.1") {
		t.Fatal("first request rejected")
	}
	if l.allow("192.0.2.1") {
		t.Error("second request from the same client allowed")
	}
	if !l.allow("192.0.2.2") {
		t.Error("another client shares the first client's bucket")
	}
}

func TestNew_RequiresDeps(t *testing.T) {
	if _, err := New(Deps{}); err == nil {
		t.Error("New(Deps{}) error = nil, want missing logger")
	}

	env := newTestEnv(t)
	_, err := New(Deps{
		Logger:     logging.Discard(),
		Registry:   env.registry,
		Controller: env.srv.controller,
		Rules:      env.rules,
		Activity:   env.activity,
		Security:   config.SecurityConfig{Auth: config.AuthConfig{Enabled: true}},
	})
	if err == nil {
		t.Error("New() with auth enabled and no authenticator error = nil")
	}
}
