package engine

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/dataconfessional/confessional/internal/config"
	"github.com/dataconfessional/confessional/internal/gpu"
	"github.com/dataconfessional/confessional/internal/storage"
)

// memStore is an in-memory ConfigStore.
type memStore struct {
	mu      sync.Mutex
	cfg     config.EngineConfig
	loads   int
	saves   int
	loadErr error
	saveErr error
}

func (m *memStore) Load() (config.EngineConfig, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.loads++
	if m.loadErr != nil {
		return config.EngineConfig{}, m.loadErr
	}
	cfg := m.cfg
	if cfg.ActivePackID != nil {
		id := *cfg.ActivePackID
		cfg.ActivePackID = &id
	}
	return cfg, nil
}

func (m *memStore) Save(cfg config.EngineConfig) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.saveErr != nil {
		return m.saveErr
	}
	m.saves++
	m.cfg = cfg
	return nil
}

func (m *memStore) activeID() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.cfg.ActivePackID == nil {
		return ""
	}
	return *m.cfg.ActivePackID
}

// fakeOllama emulates the subset of the Ollama API the engine uses.
type fakeOllama struct {
	mu        sync.Mutex
	installed []string
	tagsBody  string         // overrides the generated /api/tags body
	pullFail  map[string]int // model -> status code
	pulls     []string
	requests  []map[string]any

	chatStatus int
	chatBody   string
	chatChunks []string
	chatAbort  bool // drop the connection after the chunks

	completeStatus int
	completeBody   string
}

func (f *fakeOllama) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()

	switch r.URL.Path {
	case "/api/tags":
		if f.tagsBody != "" {
			w.Write([]byte(f.tagsBody))
			return
		}
		type entry struct {
			Name string `json:"name"`
		}
		entries := []entry{}
		for _, n := range f.installed {
			entries = append(entries, entry{Name: n})
		}
		json.NewEncoder(w).Encode(map[string]any{"models": entries})

	case "/api/pull":
		var req struct {
			Name string `json:"name"`
		}
		json.NewDecoder(r.Body).Decode(&req)
		f.pulls = append(f.pulls, req.Name)
		if code := f.pullFail[req.Name]; code != 0 {
			w.WriteHeader(code)
			w.Write([]byte(`{"error":"pull model manifest: file does not exist"}`))
			return
		}
		f.installed = append(f.installed, req.Name)
		w.Write([]byte(`{"status":"success"}`))

	case "/v1/chat/completions":
		var req map[string]any
		json.NewDecoder(r.Body).Decode(&req)
		f.requests = append(f.requests, req)

		if stream, _ := req["stream"].(bool); !stream {
			if f.completeStatus != 0 {
				w.WriteHeader(f.completeStatus)
			}
			w.Write([]byte(f.completeBody))
			return
		}

		if f.chatStatus != 0 {
			w.WriteHeader(f.chatStatus)
			w.Write([]byte(f.chatBody))
			return
		}
		w.Header().Set("Content-Type", "text/event-stream")
		flusher, _ := w.(http.Flusher)
		for _, c := range f.chatChunks {
			w.Write([]byte(c))
			if flusher != nil {
				flusher.Flush()
			}
		}
		if f.chatAbort {
			panic(http.ErrAbortHandler)
		}

	default:
		http.NotFound(w, r)
	}
}

func (f *fakeOllama) pulled() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.pulls...)
}

func (f *fakeOllama) chatRequests() []map[string]any {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]map[string]any(nil), f.requests...)
}

// recordingStore captures interactions.
type recordingStore struct {
	mu    sync.Mutex
	saved []storage.Interaction
	err   error
}

func (r *recordingStore) SaveInteraction(i storage.Interaction) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return "", r.err
	}
	r.saved = append(r.saved, i)
	return "id", nil
}

// newTestService starts fake behind an httptest server and returns a
// Service whose config points at it with the given active pack.
func newTestService(t *testing.T, fake *fakeOllama, active string, opts ...Option) (*Service, *memStore) {
	t.Helper()
	srv := httptest.NewServer(fake)
	t.Cleanup(srv.Close)

	cfg := testConfig(srv.URL, active)
	store := &memStore{cfg: cfg}
	opts = append([]Option{WithGPUDetector(func() *gpu.Summary { return gpu.Unknown() })}, opts...)
	return New(store, opts...), store
}

// downURL returns the address of a server that is no longer listening.
func downURL() string {
	srv := httptest.NewServer(http.NotFoundHandler())
	srv.Close()
	return srv.URL
}

func testConfig(baseURL, active string) config.EngineConfig {
	cfg := config.EngineConfig{
		Provider: "ollama",
		BaseURL:  baseURL,
		Packs: map[string]config.ModelPack{
			"light": {
				Label:          "Light",
				AnalysisModel:  "qwen3:4b",
				ReportModel:    "qwen3:4b",
				EmbeddingModel: "qwen3-embedding:4b",
			},
			"analyst": {
				Label:          "Analyst",
				AnalysisModel:  "analyst:7b",
				ReportModel:    "writer:7b",
				EmbeddingModel: "embed:1b",
			},
		},
	}
	if active != "" {
		cfg.ActivePackID = &active
	}
	return cfg
}

func TestPacks(t *testing.T) {
	svc, _ := newTestService(t, &fakeOllama{}, "light")

	packs, err := svc.Packs()
	if err != nil {
		t.Fatalf("Packs: %v", err)
	}
	if len(packs) != 2 || packs[0].ID != "analyst" || packs[1].ID != "light" {
		t.Fatalf("packs = %+v, want sorted analyst, light", packs)
	}
	if packs[0].Active || !packs[1].Active {
		t.Errorf("active flags = %v, %v", packs[0].Active, packs[1].Active)
	}
}

func TestConfigLoadFailureIsConfigError(t *testing.T) {
	store := &memStore{loadErr: errors.New("parsing engine config: bad json")}
	svc := New(store)

	if _, err := svc.ComputeHealth(context.Background()); !errors.Is(err, ErrConfig) {
		t.Errorf("ComputeHealth err = %v, want ErrConfig", err)
	}
	if _, err := svc.Chat(context.Background(), ChatRequest{}, nil); !errors.Is(err, ErrConfig) {
		t.Errorf("Chat err = %v, want ErrConfig", err)
	}
	if _, err := svc.GenerateReport(context.Background(), ReportRequest{}); !errors.Is(err, ErrConfig) {
		t.Errorf("GenerateReport err = %v, want ErrConfig", err)
	}
	if _, err := svc.Install(context.Background(), "light"); !errors.Is(err, ErrConfig) {
		t.Errorf("Install err = %v, want ErrConfig", err)
	}
}

func TestConfigReadFreshPerOperation(t *testing.T) {
	fake := &fakeOllama{installed: []string{"qwen3:4b", "qwen3-embedding:4b"}}
	svc, store := newTestService(t, fake, "light")

	h, err := svc.ComputeHealth(context.Background())
	if err != nil || !h.EngineConfigured {
		t.Fatalf("first health = %+v, %v; want configured", h, err)
	}

	store.mu.Lock()
	store.cfg.BaseURL = downURL()
	store.mu.Unlock()

	h, err = svc.ComputeHealth(context.Background())
	if err != nil {
		t.Fatalf("ComputeHealth: %v", err)
	}
	if h.OllamaAvailable {
		t.Error("health used a stale base URL")
	}
	if store.loads != 2 {
		t.Errorf("loads = %d, want 2", store.loads)
	}
}
