package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"go.uber.org/zap"

	"github.com/soyamu/soyamu/internal/config"
	"github.com/soyamu/soyamu/internal/embedding"
	"github.com/soyamu/soyamu/internal/engine"
	"github.com/soyamu/soyamu/internal/models"
	"github.com/soyamu/soyamu/internal/relations"
	"github.com/soyamu/soyamu/internal/rl"
	"github.com/soyamu/soyamu/internal/storage"
)

func newTestServer(t *testing.T) *Server {
	t.Helper()
	cfg := &config.Config{}
	config.ApplyDefaults(cfg)

	snapshots := storage.NewSnapshotStore(t.TempDir(), zap.NewNop())
	eng, err := engine.New(nil, snapshots, embedding.NewLexicalEmbedder(64), cfg, zap.NewNop())
	if err != nil {
		t.Fatalf("engine.New: %v", err)
	}
	if err := eng.Load(context.Background()); err != nil {
		t.Fatalf("Load: %v", err)
	}
	t.Cleanup(func() { _ = eng.Close() })

	graphPath := filepath.Join(t.TempDir(), "relations.yaml")
	if err := os.WriteFile(graphPath, []byte("wallet: [id card, cash]\n"), 0644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	graph := relations.Load(graphPath, zap.NewNop())
	tuner := rl.NewAgent("", 0, 1)

	return NewServer(eng, graph, tuner, &cfg.Server, zap.NewNop())
}

func postJSON(t *testing.T, router http.Handler, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	data, err := json.Marshal(body)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	r := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(data))
	r.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, r)
	return w
}

func TestHandleAddItem(t *testing.T) {
	srv := newTestServer(t)
	router := srv.Router()

	w := postJSON(t, router, "/api/v1/items", models.ItemInput{
		Description: "black leather wallet", Category: "wallet",
	})
	if w.Code != http.StatusCreated {
		t.Fatalf("status: got %d, body %s", w.Code, w.Body.String())
	}
	var out map[string]string
	if err := json.NewDecoder(w.Body).Decode(&out); err != nil {
		t.Fatal(err)
	}
	if out["item_id"] == "" || out["status"] != "indexed" {
		t.Errorf("response = %v", out)
	}
}

func TestHandleAddItem_BadBody(t *testing.T) {
	srv := newTestServer(t)
	r := httptest.NewRequest(http.MethodPost, "/api/v1/items", bytes.NewReader([]byte("{nope")))
	w := httptest.NewRecorder()
	srv.Router().ServeHTTP(w, r)
	if w.Code != http.StatusBadRequest {
		t.Errorf("status: got %d, want 400", w.Code)
	}
}

func TestHandleAddItem_EmptyDescription(t *testing.T) {
	srv := newTestServer(t)
	w := postJSON(t, srv.Router(), "/api/v1/items", models.ItemInput{Description: "  "})
	if w.Code != http.StatusBadRequest {
		t.Errorf("status: got %d, want 400", w.Code)
	}
}

func TestHandleSearch(t *testing.T) {
	srv := newTestServer(t)
	router := srv.Router()

	postJSON(t, router, "/api/v1/items", models.ItemInput{Description: "black leather wallet", Category: "wallet"})
	postJSON(t, router, "/api/v1/items", models.ItemInput{Description: "red umbrella", Category: "accessories"})

	w := postJSON(t, router, "/api/v1/search", models.SearchQuery{Text: "black wallet", Category: "wallet"})
	if w.Code != http.StatusOK {
		t.Fatalf("status: got %d, body %s", w.Code, w.Body.String())
	}
	var resp models.SearchResponse
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatal(err)
	}
	if resp.TotalMatches != 1 {
		t.Fatalf("TotalMatches = %d, want 1", resp.TotalMatches)
	}
	if resp.Matches[0].Item.Category != "wallet" {
		t.Errorf("category filter leaked: %+v", resp.Matches[0].Item)
	}
	if len(resp.RelatedCategories) != 2 {
		t.Errorf("RelatedCategories = %v, want 2 entries", resp.RelatedCategories)
	}
}

func TestHandleSearch_EmptyText(t *testing.T) {
	srv := newTestServer(t)
	w := postJSON(t, srv.Router(), "/api/v1/search", models.SearchQuery{Text: ""})
	if w.Code != http.StatusBadRequest {
		t.Errorf("status: got %d, want 400", w.Code)
	}
}

// faultyEmbedder serves the first call and then fails, simulating a model
// backend that goes away after items are indexed.
type faultyEmbedder struct {
	inner embedding.Embedder
	calls int
}

func (f *faultyEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	f.calls++
	if f.calls > 1 {
		return nil, errors.New("model backend offline")
	}
	return f.inner.Embed(ctx, text)
}

func (f *faultyEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	return nil, errors.New("model backend offline")
}

func (f *faultyEmbedder) Dimensions() int { return f.inner.Dimensions() }
func (f *faultyEmbedder) Name() string    { return f.inner.Name() }
func (f *faultyEmbedder) Close() error    { return f.inner.Close() }

func TestHandleSearch_EmbedFailureIsServerError(t *testing.T) {
	cfg := &config.Config{}
	config.ApplyDefaults(cfg)
	emb := &faultyEmbedder{inner: embedding.NewLexicalEmbedder(16)}
	eng, err := engine.New(nil, storage.NewSnapshotStore(t.TempDir(), zap.NewNop()), emb, cfg, zap.NewNop())
	if err != nil {
		t.Fatalf("engine.New: %v", err)
	}
	if err := eng.Load(context.Background()); err != nil {
		t.Fatalf("Load: %v", err)
	}
	t.Cleanup(func() { _ = eng.Close() })
	if _, err := eng.Add(context.Background(), &models.ItemInput{Description: "black leather wallet"}); err != nil {
		t.Fatalf("Add: %v", err)
	}

	srv := NewServer(eng, nil, nil, &cfg.Server, zap.NewNop())
	w := postJSON(t, srv.Router(), "/api/v1/search", models.SearchQuery{Text: "wallet"})
	if w.Code != http.StatusInternalServerError {
		t.Errorf("status: got %d, want 500", w.Code)
	}
}

func TestHandleSearch_NotReady(t *testing.T) {
	cfg := &config.Config{}
	config.ApplyDefaults(cfg)
	eng, err := engine.New(nil, storage.NewSnapshotStore(t.TempDir(), zap.NewNop()),
		embedding.NewLexicalEmbedder(16), cfg, zap.NewNop())
	if err != nil {
		t.Fatalf("engine.New: %v", err)
	}
	// Engine deliberately not loaded.
	srv := NewServer(eng, nil, nil, &cfg.Server, zap.NewNop())
	w := postJSON(t, srv.Router(), "/api/v1/search", models.SearchQuery{Text: "wallet"})
	if w.Code != http.StatusServiceUnavailable {
		t.Errorf("status: got %d, want 503", w.Code)
	}
}

func TestHandleFraudCheck(t *testing.T) {
	srv := newTestServer(t)
	w := postJSON(t, srv.Router(), "/api/v1/fraud-check", map[string]interface{}{
		"claim_count":             10,
		"claim_frequency_per_day": 8,
		"avg_time_between_claims": 0.5,
		"location_variance":       200,
		"account_age_days":        1,
	})
	if w.Code != http.StatusOK {
		t.Fatalf("status: got %d", w.Code)
	}
	var out struct {
		FraudScore   float64 `json:"fraud_score"`
		IsSuspicious bool    `json:"is_suspicious"`
	}
	if err := json.NewDecoder(w.Body).Decode(&out); err != nil {
		t.Fatal(err)
	}
	if !out.IsSuspicious || out.FraudScore < 50 {
		t.Errorf("expected suspicious verdict, got %+v", out)
	}
}

func TestHandleFeedback(t *testing.T) {
	srv := newTestServer(t)
	w := postJSON(t, srv.Router(), "/api/v1/feedback", feedbackRequest{
		CategoryMatched: true, FinalScorePct: 85, Accepted: true,
	})
	if w.Code != http.StatusAccepted {
		t.Fatalf("status: got %d", w.Code)
	}
	if srv.tuner.Updates() != 1 {
		t.Errorf("tuner updates = %d, want 1", srv.tuner.Updates())
	}
}

func TestHandleStatus(t *testing.T) {
	srv := newTestServer(t)
	r := httptest.NewRequest(http.MethodGet, "/api/v1/status", nil)
	w := httptest.NewRecorder()
	srv.Router().ServeHTTP(w, r)
	if w.Code != http.StatusOK {
		t.Fatalf("status: got %d", w.Code)
	}
	var out map[string]interface{}
	if err := json.NewDecoder(w.Body).Decode(&out); err != nil {
		t.Fatal(err)
	}
	if out["state"] != "ready" {
		t.Errorf("state = %v, want ready", out["state"])
	}
	if out["provider"] != "lexical" {
		t.Errorf("provider = %v, want lexical", out["provider"])
	}
}

func TestHandleHealth(t *testing.T) {
	srv := newTestServer(t)
	r := httptest.NewRequest(http.MethodGet, "/health", nil)
	w := httptest.NewRecorder()
	srv.Router().ServeHTTP(w, r)
	if w.Code != http.StatusOK {
		t.Errorf("status: got %d", w.Code)
	}
}
