package server

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/claude/scanflow/internal/auth"
	"github.com/claude/scanflow/internal/coach"
	"github.com/claude/scanflow/internal/document"
	"github.com/claude/scanflow/internal/recommend"
)

type fixedGenerator struct{ reply recommend.Reply }

func (g fixedGenerator) Generate(context.Context, recommend.Prompt) (recommend.Reply, error) {
	return g.reply, nil
}

type harness struct {
	srv    *httptest.Server
	docs   *document.Memory
	tokens *auth.Tokens
}

func newHarness(t *testing.T, gen recommend.Generator) *harness {
	t.Helper()
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	docs := document.NewMemory()
	tokens := auth.NewTokens("test-secret", "scanflow", time.Hour)
	s := New(coach.NewService(docs, log), recommend.NewService(docs, gen, log), tokens, log)
	srv := httptest.NewServer(s)
	t.Cleanup(srv.Close)
	return &harness{srv: srv, docs: docs, tokens: tokens}
}

func (h *harness) token(t *testing.T, uid string) string {
	t.Helper()
	tok, err := h.tokens.Issue(auth.Caller{UID: uid, Email: uid + "@example.com"})
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	return tok
}

// call sends body to path as uid (anonymous when uid is empty) and decodes the reply into out.
func (h *harness) call(t *testing.T, method, path, uid string, body any, out any) int {
	t.Helper()
	var rd io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			t.Fatal(err)
		}
		rd = bytes.NewReader(data)
	}
	req, err := http.NewRequest(method, h.srv.URL+path, rd)
	if err != nil {
		t.Fatal(err)
	}
	req.Header.Set("Content-Type", "application/json")
	if uid != "" {
		req.Header.Set("Authorization", "Bearer "+h.token(t, uid))
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, path, err)
	}
	defer resp.Body.Close()
	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			t.Fatalf("decode %s: %v", path, err)
		}
	}
	return resp.StatusCode
}

// TestHealthz verifies the health endpoint needs no identity.
func TestHealthz(t *testing.T) {
	h := newHarness(t, nil)
	var body map[string]string
	if code := h.call(t, http.MethodGet, "/healthz", "", nil, &body); code != http.StatusOK {
		t.Fatalf("status = %d", code)
	}
	if body["status"] != "ok" {
		t.Errorf("body = %v", body)
	}
}

// TestUserLifecycle walks a user through signup, onboarding, scan and plan generation.
func TestUserLifecycle(t *testing.T) {
	h := newHarness(t, nil)

	var status coach.StatusResult
	if code := h.call(t, http.MethodPost, "/api/v1/users", "u1", coach.ProfileInput{DisplayName: "Sam"}, &status); code != http.StatusOK {
		t.Fatalf("create status = %d", code)
	}
	if status.Status != "success" {
		t.Errorf("create = %+v", status)
	}
	h.call(t, http.MethodPost, "/api/v1/users", "u1", nil, &status)
	if status.Status != "exists" {
		t.Errorf("second create = %+v", status)
	}

	onboarding := map[string]any{"age": 31, "heightCm": 180, "goals": []string{"endurance"}}
	if code := h.call(t, http.MethodPost, "/api/v1/onboarding", "u1", onboarding, &status); code != http.StatusOK {
		t.Fatalf("onboarding status = %d", code)
	}

	var scan coach.ScanResult
	weight := 81.0
	if code := h.call(t, http.MethodPost, "/api/v1/scans", "u1", coach.ScanInput{ManualMetrics: &coach.ManualMetrics{Weight: &weight}}, &scan); code != http.StatusOK {
		t.Fatalf("scan status = %d", code)
	}
	if scan.Metrics.Weight != 81 {
		t.Errorf("scan weight = %v", scan.Metrics.Weight)
	}

	var training coach.TrainingPlanResult
	h.call(t, http.MethodPost, "/api/v1/plans/training", "u1", nil, &training)
	if training.Plan.CycleFocus != coach.FocusHybrid {
		t.Errorf("focus = %q, want %q", training.Plan.CycleFocus, coach.FocusHybrid)
	}

	var nutrition coach.NutritionPlanResult
	h.call(t, http.MethodPost, "/api/v1/plans/nutrition", "u1", coach.NutritionInput{DietType: "keto"}, &nutrition)
	if nutrition.Plan.DailyCalories != 2300 || nutrition.Plan.DietType != "keto" {
		t.Errorf("nutrition = %+v", nutrition.Plan)
	}

	var me map[string]any
	if code := h.call(t, http.MethodGet, "/api/v1/me", "u1", nil, &me); code != http.StatusOK {
		t.Fatalf("me status = %d", code)
	}
	if me["onboardingStatus"] != coach.StatusComplete || me["email"] != "u1@example.com" {
		t.Errorf("me = %v", me)
	}
}

// TestFeedbackCascades verifies both feedback callables adapt the plans.
func TestFeedbackCascades(t *testing.T) {
	h := newHarness(t, nil)
	h.call(t, http.MethodPost, "/api/v1/users", "u1", nil, nil)
	h.call(t, http.MethodPost, "/api/v1/plans/training", "u1", nil, nil)
	h.call(t, http.MethodPost, "/api/v1/plans/nutrition", "u1", nil, nil)

	var fb coach.FeedbackResult
	h.call(t, http.MethodPost, "/api/v1/feedback/workout", "u1", map[string]any{"rating": 7, "notes": "knee pain"}, &fb)
	if !fb.PlanUpdated {
		t.Errorf("workout feedback = %+v", fb)
	}
	h.call(t, http.MethodPost, "/api/v1/feedback/nutrition", "u1", map[string]any{"ateOffPlan": true}, &fb)
	if !fb.PlanUpdated {
		t.Errorf("nutrition feedback = %+v", fb)
	}

	doc, _ := h.docs.Get(context.Background(), "u1")
	if got := document.String(doc, "trainingPlan.cycleFocus"); got != coach.FocusRecovery {
		t.Errorf("focus = %q", got)
	}
	if n, _ := document.Number(doc, "nutritionPlan.dailyCalories"); n != 2300 {
		t.Errorf("dailyCalories = %v, want 2300", n)
	}

	var logs []map[string]any
	if code := h.call(t, http.MethodGet, "/api/v1/logs/workout?limit=5", "u1", nil, &logs); code != http.StatusOK {
		t.Fatalf("logs status = %d", code)
	}
	if len(logs) != 1 || logs[0]["notes"] != "knee pain" {
		t.Errorf("logs = %v", logs)
	}
}

// TestChatEndpoint verifies the chat callable applies model updates.
func TestChatEndpoint(t *testing.T) {
	kcal := 1900.0
	h := newHarness(t, fixedGenerator{reply: recommend.UpdateRequest{DailyCalories: &kcal, Justification: "Lower intake for the cut."}})
	h.call(t, http.MethodPost, "/api/v1/users", "u1", nil, nil)

	var res recommend.ChatResult
	if code := h.call(t, http.MethodPost, "/api/v1/chat", "u1", map[string]any{"message": "I want to lean out"}, &res); code != http.StatusOK {
		t.Fatalf("status = %d", code)
	}
	if res.UpdatesApplied[recommend.PathDailyCalories] != 1900.0 {
		t.Errorf("result = %+v", res)
	}
}

// TestErrorMapping verifies error codes become HTTP statuses with a code/error body.
func TestErrorMapping(t *testing.T) {
	h := newHarness(t, fixedGenerator{reply: recommend.TextReply{Text: "hi"}})
	h.call(t, http.MethodPost, "/api/v1/users", "u1", nil, nil)

	tests := []struct {
		name   string
		method string
		path   string
		uid    string
		body   any
		status int
		code   string
	}{
		{"anonymous", http.MethodPost, "/api/v1/plans/training", "", nil, http.StatusUnauthorized, "unauthenticated"},
		{"no document", http.MethodPost, "/api/v1/feedback/workout", "ghost", map[string]any{"rating": 2}, http.StatusNotFound, "not-found"},
		{"protected field", http.MethodPost, "/api/v1/onboarding", "u1", map[string]any{"role": "admin"}, http.StatusBadRequest, "invalid-argument"},
		{"non-string message", http.MethodPost, "/api/v1/chat", "u1", map[string]any{"message": 42}, http.StatusBadRequest, "invalid-argument"},
		{"unknown log kind", http.MethodGet, "/api/v1/logs/sleep", "u1", nil, http.StatusBadRequest, "invalid-argument"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var body map[string]string
			code := h.call(t, tt.method, tt.path, tt.uid, tt.body, &body)
			if code != tt.status {
				t.Errorf("status = %d, want %d", code, tt.status)
			}
			if body["code"] != tt.code || body["error"] == "" {
				t.Errorf("body = %v", body)
			}
		})
	}
}

// TestInvalidJSON verifies malformed bodies are invalid-argument.
func TestInvalidJSON(t *testing.T) {
	h := newHarness(t, nil)
	req, _ := http.NewRequest(http.MethodPost, h.srv.URL+"/api/v1/onboarding", strings.NewReader("{not json"))
	req.Header.Set("Authorization", "Bearer "+h.token(t, "u1"))
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", resp.StatusCode)
	}
}
