package syncline_test

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	syncline "github.com/dkhromov/syncline"
)

// fakeServer is a minimal remote record store: one snapshot per entity
// kind, plus a log of mutating requests.
type fakeServer struct {
	mu        sync.Mutex
	snapshots map[string]string
	mutations []string

	srv *httptest.Server
}

func newFakeServer() *fakeServer {
	f := &fakeServer{snapshots: make(map[string]string)}
	f.srv = httptest.NewServer(http.HandlerFunc(f.handle))
	return f
}

func (f *fakeServer) handle(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path == "/api/health" {
		w.WriteHeader(http.StatusOK)
		return
	}

	kind := r.URL.Path[len("/api/sync/"):]
	f.mu.Lock()
	defer f.mu.Unlock()

	switch r.Method {
	case http.MethodGet:
		snapshot, ok := f.snapshots[kind]
		if !ok {
			http.Error(w, "no record", http.StatusNotFound)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(snapshot))
	default:
		var body struct {
			Data json.RawMessage `json:"data"`
		}
		_ = json.NewDecoder(r.Body).Decode(&body)
		f.mutations = append(f.mutations, r.Method+" "+kind+" "+string(body.Data))
		w.WriteHeader(http.StatusOK)
	}
}

func (f *fakeServer) mutationLog() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.mutations...)
}

func (f *fakeServer) setSnapshot(kind, snapshot string) {
	f.mu.Lock()
	f.snapshots[kind] = snapshot
	f.mu.Unlock()
}

func testConfig(baseURL string) *syncline.Config {
	cfg := syncline.DefaultConfig()
	cfg.Engine.DeviceID = "dev-test"
	cfg.Remote.BaseURL = baseURL
	cfg.Remote.ProbeInterval = 10 * time.Millisecond
	cfg.Queue.DrainBackoff = time.Millisecond
	cfg.Queue.SettleDelay = time.Millisecond
	cfg.Workers.SyncInterval = 0
	cfg.Storage.DSN = "memory"
	return cfg
}

func testToken(t *testing.T) string {
	t.Helper()
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub": "user-1",
	}).SignedString([]byte("test-key"))
	require.NoError(t, err)
	return token
}

func TestNew_RejectsInvalidConfig(t *testing.T) {
	cfg := syncline.DefaultConfig()
	// No device id, no base URL.
	_, err := syncline.New(context.Background(), cfg)
	require.Error(t, err)
}

func TestEngine_RunReturnsImmediately(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	server := newFakeServer()
	defer server.srv.Close()

	engine, err := syncline.New(ctx, testConfig(server.srv.URL))
	require.NoError(t, err)
	defer engine.Close()

	done := make(chan struct{})
	go func() {
		engine.Run(ctx)
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Run blocked instead of starting workers in the background")
	}
}

func TestEngine_EnqueueUpdatesLocalCacheImmediately(t *testing.T) {
	ctx := context.Background()
	server := newFakeServer()
	defer server.srv.Close()

	engine, err := syncline.New(ctx, testConfig(server.srv.URL))
	require.NoError(t, err)
	defer engine.Close()

	engine.SetToken(testToken(t))
	engine.Enqueue(ctx, syncline.Op{
		Kind:       syncline.OpUpdate,
		EntityKind: syncline.UserInfo,
		Payload:    json.RawMessage(`{"name":"offline edit"}`),
	})

	entry, ok := engine.Get(ctx, syncline.UserInfo)
	require.True(t, ok)
	assert.JSONEq(t, `{"name":"offline edit"}`, string(entry.Data))
	assert.False(t, entry.Synced)
	assert.Equal(t, 1, engine.State().PendingCount)
}

func TestEngine_SyncAllDeliversQueueAndAdoptsServer(t *testing.T) {
	ctx := context.Background()
	server := newFakeServer()
	defer server.srv.Close()

	server.setSnapshot("medical_info", fmt.Sprintf(`{"data":{"bloodType":"A+"},"updated_at":%d,"device_id":"dev-other"}`, time.Now().UnixMilli()))

	engine, err := syncline.New(ctx, testConfig(server.srv.URL))
	require.NoError(t, err)
	defer engine.Close()

	engine.SetToken(testToken(t))
	engine.Run(ctx)

	engine.Enqueue(ctx, syncline.Op{
		Kind:       syncline.OpCreate,
		EntityKind: syncline.EmergencyContacts,
		Payload:    json.RawMessage(`[{"name":"mom"}]`),
	})

	require.True(t, engine.SyncAll(ctx))

	// The queued create reached the server.
	log := server.mutationLog()
	require.NotEmpty(t, log)
	assert.Contains(t, log[0], "POST emergency_contacts")

	// The server's medical record was adopted locally.
	entry, ok := engine.Get(ctx, syncline.MedicalInfo)
	require.True(t, ok)
	assert.JSONEq(t, `{"bloodType":"A+"}`, string(entry.Data))
	assert.True(t, entry.Synced)

	state := engine.State()
	assert.Equal(t, 0, state.PendingCount)
	assert.False(t, state.Syncing)
	assert.Contains(t, state.LastSyncedAt, syncline.MedicalInfo)
}

func TestEngine_SubscribeSeesQueueDepth(t *testing.T) {
	ctx := context.Background()
	server := newFakeServer()
	defer server.srv.Close()

	engine, err := syncline.New(ctx, testConfig(server.srv.URL))
	require.NoError(t, err)
	defer engine.Close()

	var mu sync.Mutex
	var observed []syncline.State
	unsubscribe := engine.Subscribe(func(s syncline.State) {
		mu.Lock()
		observed = append(observed, s)
		mu.Unlock()
	})
	defer unsubscribe()

	engine.SetToken(testToken(t))
	require.True(t, engine.SyncAll(ctx))

	mu.Lock()
	defer mu.Unlock()
	require.NotEmpty(t, observed)
	assert.False(t, observed[len(observed)-1].Syncing)
}

func TestEngine_LogoutClearsCacheKeepsQueue(t *testing.T) {
	ctx := context.Background()
	server := newFakeServer()
	defer server.srv.Close()

	engine, err := syncline.New(ctx, testConfig(server.srv.URL))
	require.NoError(t, err)
	defer engine.Close()

	engine.SetToken(testToken(t))
	engine.Enqueue(ctx, syncline.Op{
		Kind:       syncline.OpUpdate,
		EntityKind: syncline.UserInfo,
		Payload:    json.RawMessage(`{"name":"x"}`),
	})

	require.NoError(t, engine.Logout(ctx))

	_, ok := engine.Get(ctx, syncline.UserInfo)
	assert.False(t, ok)
	assert.Equal(t, 1, engine.State().PendingCount)
	assert.Empty(t, engine.Token())
}

func TestEngine_DeleteOperationRemovesLocalCopy(t *testing.T) {
	ctx := context.Background()
	server := newFakeServer()
	defer server.srv.Close()

	engine, err := syncline.New(ctx, testConfig(server.srv.URL))
	require.NoError(t, err)
	defer engine.Close()

	engine.SetToken(testToken(t))
	engine.Enqueue(ctx, syncline.Op{
		Kind:       syncline.OpCreate,
		EntityKind: syncline.UserInfo,
		Payload:    json.RawMessage(`{"name":"x"}`),
	})
	engine.Enqueue(ctx, syncline.Op{
		Kind:       syncline.OpDelete,
		EntityKind: syncline.UserInfo,
	})

	_, ok := engine.Get(ctx, syncline.UserInfo)
	assert.False(t, ok)
	assert.Equal(t, 2, engine.State().PendingCount)
}

func TestEngine_WaitForOnline(t *testing.T) {
	ctx := context.Background()
	server := newFakeServer()
	defer server.srv.Close()

	engine, err := syncline.New(ctx, testConfig(server.srv.URL))
	require.NoError(t, err)
	defer engine.Close()

	// The construction-time snapshot poll already saw the server up.
	assert.True(t, engine.Online())
	assert.True(t, engine.WaitForOnline(ctx, 100*time.Millisecond))
}
