package server

import (
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

	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/kingrea/casefile/internal/config"
	"github.com/kingrea/casefile/internal/deduction"
	"github.com/kingrea/casefile/internal/detective"
	"github.com/kingrea/casefile/internal/evidence"
	"github.com/kingrea/casefile/internal/metrics"
	"github.com/kingrea/casefile/internal/session"
)

var butlerKnifeLibrary = deduction.Solution{Suspect: "Butler", Weapon: "Knife", Location: "Library"}

type fixture struct {
	store   session.Store
	game    *session.Service
	handler http.Handler
	metrics *metrics.Recorder
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	rec := metrics.New()
	store := session.NewMemoryStore()
	game, err := session.New(store, session.WithRecorder(rec), session.WithIDGenerator(func() string { return "session-test" }))
	if err != nil {
		t.Fatalf("session.New: %v", err)
	}
	det, err := detective.New(game, detective.WithRecorder(rec))
	if err != nil {
		t.Fatalf("detective.New: %v", err)
	}
	settings := Settings{Enabled: true, Host: "127.0.0.1", Port: 0, CORS: CORS{Origins: []string{"*"}}}
	srv, err := New(settings, game, det, WithMetrics(rec.Handler()), WithVersion("test"))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return &fixture{store: store, game: game, handler: srv.Handler(), metrics: rec}
}

func (f *fixture) rig(t *testing.T, id string) {
	t.Helper()
	_, err := f.store.Update(id, func(st *session.State) error {
		st.Solution = butlerKnifeLibrary
		st.Available = evidence.DefaultCatalog().Deal(butlerKnifeLibrary)
		return nil
	})
	if err != nil {
		t.Fatalf("rig: %v", err)
	}
}

func (f *fixture) do(t *testing.T, method, path, body string) (int, map[string]any) {
	t.Helper()
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	f.handler.ServeHTTP(rec, req)
	var decoded map[string]any
	if rec.Body.Len() > 0 && strings.HasPrefix(rec.Header().Get("Content-Type"), "application/json") {
		if err := json.Unmarshal(rec.Body.Bytes(), &decoded); err != nil {
			t.Fatalf("decode %s %s: %v (%s)", method, path, err, rec.Body.String())
		}
	}
	return rec.Code, decoded
}

func TestSettingsFromConfigHonorsEnv(t *testing.T) {
	t.Setenv("CASEFILE_PORT", "9001")
	t.Setenv("CASEFILE_HOST", "0.0.0.0")
	t.Setenv("CASEFILE_SERVER_ENABLED", "false")
	cfg := &config.Config{}
	settings := SettingsFromConfig(cfg)
	if settings.Port != 9001 {
		t.Fatalf("expected port 9001, got %d", settings.Port)
	}
	if settings.Host != "0.0.0.0" {
		t.Fatalf("expected host override, got %s", settings.Host)
	}
	if settings.Enabled {
		t.Fatalf("expected enabled=false from env override")
	}
}

func TestSettingsFromConfigUsesProjectValues(t *testing.T) {
	t.Setenv("CASEFILE_PORT", "")
	t.Setenv("CASEFILE_HOST", "")
	t.Setenv("CASEFILE_SERVER_ENABLED", "")
	cfg := &config.Config{}
	cfg.Project.Server.Port = 7001
	cfg.Project.Server.AllowedOrigins = []string{"http://localhost:3000"}
	settings := SettingsFromConfig(cfg)
	if settings.Port != 7001 || settings.Host != DefaultHost || !settings.Enabled {
		t.Fatalf("unexpected settings %+v", settings)
	}
	if settings.CORS.allow("http://localhost:3000") != "http://localhost:3000" {
		t.Fatalf("expected configured origin to be allowed")
	}
	if settings.CORS.allow("http://evil.example") != "" {
		t.Fatalf("expected other origins to be rejected")
	}
}

func TestStartGameReturnsPublicState(t *testing.T) {
	f := newFixture(t)
	code, body := f.do(t, http.MethodPost, "/api/game/start", `{}`)
	if code != http.StatusOK {
		t.Fatalf("expected 200, got %d", code)
	}
	if body["success"] != true || body["session_id"] != "session-test" {
		t.Fatalf("unexpected body %v", body)
	}
	state := body["game_state"].(map[string]any)
	if state["possible_solutions"].(float64) != 27 {
		t.Fatalf("expected 27 possible solutions, got %v", state["possible_solutions"])
	}
	actions := body["available_actions"].([]any)
	if len(actions) != 12 {
		t.Fatalf("expected 12 actions, got %d", len(actions))
	}
	for _, raw := range actions {
		if _, leaked := raw.(map[string]any)["clue"]; leaked {
			t.Fatalf("available action leaked its clue: %v", raw)
		}
	}
}

func TestStartGameAcceptsEmptyBodyAndExplicitID(t *testing.T) {
	f := newFixture(t)
	if code, _ := f.do(t, http.MethodPost, "/api/game/start", ""); code != http.StatusOK {
		t.Fatalf("expected 200 for empty body, got %d", code)
	}
	_, body := f.do(t, http.MethodPost, "/api/game/start", `{"session_id":"mine"}`)
	if body["session_id"] != "mine" {
		t.Fatalf("expected explicit id, got %v", body["session_id"])
	}
}

func TestTakeActionFlow(t *testing.T) {
	f := newFixture(t)
	f.do(t, http.MethodPost, "/api/game/start", `{"session_id":"case"}`)
	f.rig(t, "case")

	code, body := f.do(t, http.MethodPost, "/api/game/action", `{"session_id":"case","evidence_id":1}`)
	if code != http.StatusOK {
		t.Fatalf("expected 200, got %d (%v)", code, body)
	}
	ev := body["evidence"].(map[string]any)
	if ev["clue"] != "The Butler seems nervous and avoids eye contact." {
		t.Fatalf("unexpected clue %v", ev["clue"])
	}
	csp := body["csp_result"].(map[string]any)
	if csp["constraints_applied"].(float64) != 1 || csp["consistent"] != true {
		t.Fatalf("unexpected csp_result %v", csp)
	}
	state := body["game_state"].(map[string]any)
	if state["possible_solutions"].(float64) != 9 || state["total_cost"].(float64) != 5 {
		t.Fatalf("unexpected state %v", state)
	}
	if len(body["available_actions"].([]any)) != 11 {
		t.Fatalf("expected 11 remaining actions")
	}

	code, body = f.do(t, http.MethodPost, "/api/game/action", `{"session_id":"case","evidence_id":1}`)
	if code != http.StatusNotFound || body["message"] != "Action not found or session invalid" {
		t.Fatalf("expected 404 on repeated action, got %d %v", code, body)
	}
}

func TestTakeActionValidation(t *testing.T) {
	f := newFixture(t)
	for _, payload := range []string{`{}`, `{"session_id":"case"}`, `{"evidence_id":1}`} {
		code, body := f.do(t, http.MethodPost, "/api/game/action", payload)
		if code != http.StatusBadRequest || body["message"] != "Missing session_id or evidence_id" {
			t.Fatalf("payload %s: expected 400, got %d %v", payload, code, body)
		}
	}
	code, body := f.do(t, http.MethodPost, "/api/game/action", `{"session_id":"nope","evidence_id":1}`)
	if code != http.StatusNotFound {
		t.Fatalf("expected 404 for unknown session, got %d %v", code, body)
	}
	code, _ = f.do(t, http.MethodPost, "/api/game/action", `{not json`)
	if code != http.StatusBadRequest {
		t.Fatalf("expected 400 for invalid JSON, got %d", code)
	}
}

func TestAccuse(t *testing.T) {
	f := newFixture(t)
	f.do(t, http.MethodPost, "/api/game/start", `{"session_id":"case"}`)
	f.rig(t, "case")

	code, body := f.do(t, http.MethodPost, "/api/game/accuse",
		`{"session_id":"case","guess":{"suspect":"Butler","weapon":"Knife","location":"Library"}}`)
	if code != http.StatusOK || body["correct"] != true {
		t.Fatalf("expected correct verdict, got %d %v", code, body)
	}
	solution := body["solution"].(map[string]any)
	if solution["suspect"] != "Butler" {
		t.Fatalf("unexpected solution %v", solution)
	}

	code, body = f.do(t, http.MethodPost, "/api/game/accuse", `{"session_id":"case"}`)
	if code != http.StatusBadRequest || body["message"] != "Missing session_id or guess" {
		t.Fatalf("expected 400, got %d %v", code, body)
	}
	code, body = f.do(t, http.MethodPost, "/api/game/accuse",
		`{"session_id":"gone","guess":{"suspect":"Butler","weapon":"Knife","location":"Library"}}`)
	if code != http.StatusNotFound || body["message"] != "Game session not found" {
		t.Fatalf("expected 404, got %d %v", code, body)
	}
}

func TestDetectiveRoutes(t *testing.T) {
	f := newFixture(t)
	f.do(t, http.MethodPost, "/api/game/start", `{"session_id":"case"}`)
	f.rig(t, "case")

	code, body := f.do(t, http.MethodPost, "/api/ai/suggest", `{"session_id":"case"}`)
	if code != http.StatusOK {
		t.Fatalf("suggest: expected 200, got %d %v", code, body)
	}
	suggestion := body["suggestion"].(map[string]any)
	if suggestion["action"] != "Question the Butler" || suggestion["cost"].(float64) != 5 {
		t.Fatalf("unexpected suggestion %v", suggestion)
	}
	if len(body["all_evaluations"].([]any)) != 12 {
		t.Fatalf("expected 12 evaluations")
	}

	code, body = f.do(t, http.MethodPost, "/api/ai/make-move", `{"session_id":"case"}`)
	if code != http.StatusOK {
		t.Fatalf("make-move: expected 200, got %d %v", code, body)
	}
	taken := body["action_taken"].(map[string]any)
	if taken["action"] != "Question the Butler" {
		t.Fatalf("unexpected action_taken %v", taken)
	}
	aiState := body["ai_state"].(map[string]any)
	if aiState["next_best_action"] != "Question the Chef" {
		t.Fatalf("unexpected ai_state %v", aiState)
	}

	code, body = f.do(t, http.MethodPost, "/api/ai/auto-solve", `{"session_id":"case"}`)
	if code != http.StatusOK || body["solved"] != true {
		t.Fatalf("auto-solve: expected solved, got %d %v", code, body)
	}
	if len(body["solution_path"].([]any)) == 0 {
		t.Fatalf("expected a non-empty solution path")
	}

	f.do(t, http.MethodPost, "/api/game/start", `{"session_id":"case"}`)
	code, body = f.do(t, http.MethodPost, "/api/ai/make-move", `{"session_id":"case"}`)
	if code != http.StatusOK || body["action_taken"] == nil {
		t.Fatalf("make-move after restart: expected a fresh move, got %d %v", code, body)
	}

	for _, path := range []string{"/api/ai/suggest", "/api/ai/make-move", "/api/ai/auto-solve"} {
		code, body = f.do(t, http.MethodPost, path, `{}`)
		if code != http.StatusBadRequest || body["message"] != "Missing session_id" {
			t.Fatalf("%s: expected 400, got %d %v", path, code, body)
		}
		code, body = f.do(t, http.MethodPost, path, `{"session_id":"gone"}`)
		if code != http.StatusNotFound || body["message"] != "No active game found" {
			t.Fatalf("%s: expected 404, got %d %v", path, code, body)
		}
	}

	if got := testutil.ToFloat64(f.metrics.DetectiveMoves.WithLabelValues("move")); got != 2 {
		t.Fatalf("expected two recorded moves, got %v", got)
	}
}

func TestUnknownEndpointAndMethod(t *testing.T) {
	f := newFixture(t)
	code, body := f.do(t, http.MethodGet, "/api/nope", "")
	if code != http.StatusNotFound || body["message"] != "Endpoint not found" || body["success"] != false {
		t.Fatalf("expected JSON 404, got %d %v", code, body)
	}
	code, body = f.do(t, http.MethodGet, "/api/game/start", "")
	if code != http.StatusMethodNotAllowed {
		t.Fatalf("expected 405, got %d %v", code, body)
	}
	code, body = f.do(t, http.MethodGet, "/", "")
	if code != http.StatusOK || body["version"] != "test" {
		t.Fatalf("unexpected root %d %v", code, body)
	}
}

func TestCORSOnAPIRoutes(t *testing.T) {
	f := newFixture(t)
	req := httptest.NewRequest(http.MethodOptions, "/api/game/start", nil)
	req.Header.Set("Origin", "http://localhost:3000")
	rec := httptest.NewRecorder()
	f.handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusNoContent {
		t.Fatalf("expected 204 preflight, got %d", rec.Code)
	}
	if rec.Header().Get("Access-Control-Allow-Origin") != "*" {
		t.Fatalf("expected wildcard CORS header, got %q", rec.Header().Get("Access-Control-Allow-Origin"))
	}

	rec = httptest.NewRecorder()
	f.handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	if rec.Header().Get("Access-Control-Allow-Origin") != "" {
		t.Fatalf("expected no CORS header outside /api")
	}
}

func TestMetricsEndpoint(t *testing.T) {
	f := newFixture(t)
	f.do(t, http.MethodPost, "/api/game/start", `{}`)
	rec := httptest.NewRecorder()
	f.handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "casefile_sessions_started_total 1") {
		t.Fatalf("expected session counter in metrics output")
	}
}

func TestServerLifecycle(t *testing.T) {
	t.Parallel()
	game, err := session.New(session.NewMemoryStore())
	if err != nil {
		t.Fatal(err)
	}
	det, err := detective.New(game)
	if err != nil {
		t.Fatal(err)
	}
	settings := Settings{Enabled: true, Host: "127.0.0.1", Port: 0, Timeouts: Timeouts{Read: time.Second, Write: time.Second, Idle: time.Second}}
	srv, err := New(settings, game, det)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() {
		_ = srv.Shutdown(context.Background())
	})
	if err := srv.Start(context.Background()); err != nil {
		t.Fatalf("start server: %v", err)
	}
	if srv.Status() != StatusReady {
		t.Fatalf("expected ready status, got %s", srv.Status())
	}
	if err := srv.Start(context.Background()); err == nil {
		t.Fatalf("expected second start to fail")
	}
	base := srv.BaseURL()
	resp, err := http.Get(base + "/health")
	if err != nil {
		t.Fatalf("health request failed: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200 health, got %d", resp.StatusCode)
	}
	resp, err = http.Post(base+"/api/game/start", "application/json", bytes.NewReader([]byte(`{"session_id":"live"}`)))
	if err != nil {
		t.Fatalf("post start: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	if err := srv.Shutdown(context.Background()); err != nil {
		t.Fatalf("shutdown: %v", err)
	}
	if srv.Addr() != "" {
		t.Fatalf("expected no address after shutdown")
	}
}

func TestServerDisabled(t *testing.T) {
	game, _ := session.New(session.NewMemoryStore())
	det, _ := detective.New(game)
	srv, err := New(Settings{Enabled: false}, game, det)
	if err != nil {
		t.Fatal(err)
	}
	if err := srv.Start(context.Background()); err != ErrDisabled {
		t.Fatalf("expected ErrDisabled, got %v", err)
	}
}

func TestServerEnforcesPayloadLimit(t *testing.T) {
	game, _ := session.New(session.NewMemoryStore())
	det, _ := detective.New(game)
	srv, err := New(Settings{Enabled: true, MaxBodyBytes: 64}, game, det)
	if err != nil {
		t.Fatal(err)
	}
	payload := `{"session_id":"` + strings.Repeat("a", 512) + `"}`
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/game/start", strings.NewReader(payload)))
	if rec.Code != http.StatusRequestEntityTooLarge {
		t.Fatalf("expected 413, got %d", rec.Code)
	}
}

func TestSettingsDefaultsAndCORSNormalization(t *testing.T) {
	t.Setenv("CASEFILE_PORT", "not-a-port")
	t.Setenv("CASEFILE_HOST", "")
	t.Setenv("CASEFILE_SERVER_ENABLED", "maybe")
	cfg := &config.Config{}
	cfg.Project.Server.AllowedOrigins = []string{" http://localhost:3000/ ", "HTTP://LOCALHOST:3000", ""}
	settings := SettingsFromConfig(cfg)
	if settings.Port != DefaultPort || !settings.Enabled {
		t.Fatalf("expected defaults when env is unusable, got %+v", settings)
	}
	if got := settings.CORS.Origins; len(got) != 1 || got[0] != "http://localhost:3000" {
		t.Fatalf("expected one normalized origin, got %v", got)
	}
	if settings.Timeouts.Idle != 60*time.Second || settings.MaxBodyBytes != DefaultMaxBodyBytes {
		t.Fatalf("expected default limits, got %+v", settings)
	}

	header := http.Header{}
	req := httptest.NewRequest(http.MethodPost, "/api/game/start", nil)
	req.Header.Set("Origin", "http://localhost:3000")
	settings.CORS.apply(header, req)
	if header.Get("Access-Control-Allow-Origin") != "http://localhost:3000" || header.Get("Vary") != "Origin" {
		t.Fatalf("unexpected CORS headers %v", header)
	}
	header = http.Header{}
	req.Header.Set("Origin", "http://evil.example")
	settings.CORS.apply(header, req)
	if len(header) != 0 {
		t.Fatalf("expected no CORS headers for a foreign origin, got %v", header)
	}
}

type failingDetective struct {
	err error
}

func (d failingDetective) Suggest(string) (detective.Suggestion, error) {
	return detective.Suggestion{}, d.err
}
func (d failingDetective) MakeMove(string) (detective.Move, error) { return detective.Move{}, d.err }
func (d failingDetective) AutoSolve(string) (detective.AutoResult, error) {
	return detective.AutoResult{}, d.err
}
func (d failingDetective) Forget(string) {}

func TestDetectiveFailureMessages(t *testing.T) {
	game, err := session.New(session.NewMemoryStore())
	if err != nil {
		t.Fatalf("session.New: %v", err)
	}
	cases := []struct {
		err     error
		code    int
		message string
	}{
		{fmt.Errorf("lookup: %w", session.ErrSessionNotFound), http.StatusNotFound, "No active game found"},
		{fmt.Errorf("apply: %w", session.ErrActionNotFound), http.StatusNotFound, "Action not found or session invalid"},
		{fmt.Errorf("%w: case", detective.ErrNoActions), http.StatusBadRequest, "No available actions"},
		{fmt.Errorf("boom"), http.StatusInternalServerError, "Internal server error"},
	}
	for _, tc := range cases {
		srv, err := New(Settings{Enabled: true}, game, failingDetective{err: tc.err})
		if err != nil {
			t.Fatalf("New: %v", err)
		}
		f := &fixture{handler: srv.Handler()}
		for _, path := range []string{"/api/ai/suggest", "/api/ai/make-move", "/api/ai/auto-solve"} {
			code, body := f.do(t, http.MethodPost, path, `{"session_id":"case"}`)
			if code != tc.code || body["message"] != tc.message {
				t.Fatalf("%s with %v: expected %d %q, got %d %v", path, tc.err, tc.code, tc.message, code, body)
			}
		}
	}
}
