package cmd

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/boostcampwm2025/ios02-damago/internal/config"
	"github.com/boostcampwm2025/ios02-damago/internal/middleware"
	"github.com/boostcampwm2025/ios02-damago/internal/repository/memstore"
	"github.com/boostcampwm2025/ios02-damago/internal/scheduler"
)

type testServer struct {
	app *app
	srv *httptest.Server
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()

	cfg := &config.Config{
		Storage: config.StorageConfig{Driver: config.DriverMemory},
		JWT:     config.JWTConfig{Secret: "test-secret"},
		Catalog: config.CatalogConfig{Source: "../internal/catalog/testdata/catalog.yaml"},
		Tasks:   config.TasksConfig{Secret: "task-secret"},
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Validate: %v", err)
	}

	a, err := assemble(context.Background(), cfg, memstore.New(), scheduler.NewMemoryQueue(5))
	if err != nil {
		t.Fatalf("assemble: %v", err)
	}
	srv := httptest.NewServer(a.router())
	t.Cleanup(srv.Close)
	return &testServer{app: a, srv: srv}
}

// do sends a request as accountID (empty for anonymous) and decodes the JSON body into out
func (s *testServer) do(t *testing.T, method, path, accountID string, body any, out any) int {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}
	req, err := http.NewRequest(method, s.srv.URL+path, &buf)
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	if accountID != "" {
		token, err := s.app.verifier.Issue(accountID)
		if err != nil {
			t.Fatalf("Issue: %v", err)
		}
		req.Header.Set("Authorization", "Bearer "+token)
	}

	res, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, path, err)
	}
	defer res.Body.Close()

	if out != nil && res.StatusCode < 300 && res.StatusCode != http.StatusNoContent {
		if err := json.NewDecoder(res.Body).Decode(out); err != nil {
			t.Fatalf("decode %s %s: %v", method, path, err)
		}
	}
	return res.StatusCode
}

func TestHealthAndMetrics(t *testing.T) {
	s := newTestServer(t)

	for _, path := range []string{"/healthz", "/metrics"} {
		res, err := http.Get(s.srv.URL + path)
		if err != nil {
			t.Fatalf("GET %s: %v", path, err)
		}
		res.Body.Close()
		if res.StatusCode != http.StatusOK {
			t.Fatalf("GET %s = %d", path, res.StatusCode)
		}
	}
}

func TestAPIRequiresToken(t *testing.T) {
	s := newTestServer(t)

	if code := s.do(t, http.MethodGet, "/api/v1/me", "", nil, nil); code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", code)
	}
}

func TestCoupleFlow(t *testing.T) {
	s := newTestServer(t)

	var codeA, codeB struct {
		Code    string `json:"code"`
		Created bool   `json:"created"`
	}
	if code := s.do(t, http.MethodPost, "/api/v1/pairing-code", "alice", nil, &codeA); code != http.StatusCreated {
		t.Fatalf("issue code alice = %d", code)
	}
	if code := s.do(t, http.MethodPost, "/api/v1/pairing-code", "bob", nil, &codeB); code != http.StatusCreated {
		t.Fatalf("issue code bob = %d", code)
	}
	if code := s.do(t, http.MethodPost, "/api/v1/pairing-code", "bob", nil, &codeB); code != http.StatusOK || codeB.Created {
		t.Fatalf("reissue should return the existing code, got %d %+v", code, codeB)
	}

	var conn struct {
		CoupleID string `json:"couple_id"`
	}
	if code := s.do(t, http.MethodPost, "/api/v1/couple", "alice", map[string]string{"target_code": codeB.Code}, &conn); code != http.StatusCreated {
		t.Fatalf("connect = %d", code)
	}
	if conn.CoupleID == "" {
		t.Fatal("expected couple id")
	}

	var info struct {
		CoupleID  *string `json:"couple_id"`
		TotalCoin int64   `json:"total_coin"`
		Food      int64   `json:"food"`
		Pet       *struct {
			ID string `json:"id"`
		} `json:"pet_status"`
	}
	if code := s.do(t, http.MethodGet, "/api/v1/me", "bob", nil, &info); code != http.StatusOK {
		t.Fatalf("me = %d", code)
	}
	if info.CoupleID == nil || *info.CoupleID != conn.CoupleID || info.Pet == nil {
		t.Fatalf("unexpected info: %+v", info)
	}

	var fed struct {
		Exp  int   `json:"exp"`
		Food int64 `json:"food"`
	}
	if code := s.do(t, http.MethodPost, "/api/v1/pets/"+info.Pet.ID+"/feed", "bob", nil, &fed); code != http.StatusOK {
		t.Fatalf("feed = %d", code)
	}
	if fed.Exp == 0 || fed.Food != info.Food-1 {
		t.Fatalf("unexpected feed result: %+v", fed)
	}
	if tasks := s.app.queue.(*scheduler.MemoryQueue).Tasks(scheduler.QueueHunger); len(tasks) != 1 {
		t.Fatalf("expected one hunger task, got %d", len(tasks))
	}

	var cur struct {
		ID string `json:"id"`
	}
	if code := s.do(t, http.MethodGet, "/api/v1/interactions/daily_question/current", "alice", nil, &cur); code != http.StatusOK {
		t.Fatalf("current = %d", code)
	}
	if cur.ID != "dq-001" {
		t.Fatalf("expected dq-001, got %s", cur.ID)
	}

	answer := map[string]string{"item_id": cur.ID, "answer": "this morning"}
	if code := s.do(t, http.MethodPost, "/api/v1/interactions/daily_question/answers", "alice", answer, nil); code != http.StatusOK {
		t.Fatalf("first answer = %d", code)
	}
	var done struct {
		CompletedNow bool  `json:"completed_now"`
		Coins        int64 `json:"coins"`
	}
	if code := s.do(t, http.MethodPost, "/api/v1/interactions/daily_question/answers", "bob", answer, &done); code != http.StatusOK {
		t.Fatalf("second answer = %d", code)
	}
	if !done.CompletedNow || done.Coins != info.TotalCoin+30 {
		t.Fatalf("unexpected completion: %+v", done)
	}

	if code := s.do(t, http.MethodGet, "/api/v1/interactions/quiz/current", "alice", nil, nil); code != http.StatusBadRequest {
		t.Fatalf("unknown track = %d", code)
	}

	if code := s.do(t, http.MethodDelete, "/api/v1/me", "alice", nil, nil); code != http.StatusNoContent {
		t.Fatalf("withdraw = %d", code)
	}
	var connected struct {
		IsConnected bool `json:"is_connected"`
	}
	if code := s.do(t, http.MethodGet, "/api/v1/me/connection", "bob", nil, &connected); code != http.StatusOK || connected.IsConnected {
		t.Fatalf("expected bob unpaired, got %d %+v", code, connected)
	}
}

func TestTaskRoutesRequireSecret(t *testing.T) {
	s := newTestServer(t)

	body, _ := json.Marshal(map[string]any{"couple_id": "nope", "delta": 10})

	req, _ := http.NewRequest(http.MethodPost, s.srv.URL+"/tasks/coins", bytes.NewReader(body))
	res, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("POST /tasks/coins: %v", err)
	}
	res.Body.Close()
	if res.StatusCode != http.StatusUnauthorized {
		t.Fatalf("expected 401 without secret, got %d", res.StatusCode)
	}

	req, _ = http.NewRequest(http.MethodPost, s.srv.URL+"/tasks/coins", bytes.NewReader(body))
	req.Header.Set(middleware.TaskSecretHeader, "task-secret")
	res, err = http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("POST /tasks/coins: %v", err)
	}
	res.Body.Close()
	if res.StatusCode != http.StatusNotFound {
		t.Fatalf("expected 404 for unknown couple, got %d", res.StatusCode)
	}
}
