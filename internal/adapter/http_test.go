// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Dmitry Khromov

package adapter

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dkhromov/syncline/internal/config"
	"github.com/dkhromov/syncline/internal/logger"
	"github.com/dkhromov/syncline/models"
)

func newTestStore(t *testing.T, srv *httptest.Server) RemoteStore {
	t.Helper()
	store, err := NewRESTRemoteStore(config.Remote{
		BaseURL:        srv.URL,
		RequestTimeout: 2 * time.Second,
	}, "dev-test", logger.Nop())
	require.NoError(t, err)
	return store
}

func TestNormalizeBaseURL(t *testing.T) {
	tests := []struct {
		name    string
		in      string
		want    string
		wantErr bool
	}{
		{name: "already normalized", in: "https://api.example.com", want: "https://api.example.com"},
		{name: "scheme added", in: "api.example.com:8080", want: "http://api.example.com:8080"},
		{name: "trailing slash trimmed", in: "http://api.example.com/", want: "http://api.example.com"},
		{name: "surrounding whitespace", in: "  http://api.example.com  ", want: "http://api.example.com"},
		{name: "empty", in: "", wantErr: true},
		{name: "blank", in: "   ", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := normalizeBaseURL(tt.in)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestRESTRemoteStore_Fetch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "/api/sync/user_info", r.URL.Path)
		assert.Equal(t, "Bearer tok-1", r.Header.Get("Authorization"))

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"data":{"name":"alice"},"updated_at":"2026-08-29T10:00:00Z","device_id":"dev-remote"}`))
	}))
	defer srv.Close()

	store := newTestStore(t, srv)
	store.SetToken("tok-1")

	snapshot, err := store.Fetch(context.Background(), models.UserInfo)
	require.NoError(t, err)
	assert.JSONEq(t, `{"name":"alice"}`, string(snapshot.Data))
	assert.Equal(t, "dev-remote", snapshot.DeviceID)

	want := time.Date(2026, 8, 29, 10, 0, 0, 0, time.UTC).UnixMilli()
	assert.Equal(t, want, snapshot.UpdatedAt.Millis())
}

func TestRESTRemoteStore_FetchEpochSeconds(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"data":{"name":"bob"},"updated_at":1756461600}`))
	}))
	defer srv.Close()

	store := newTestStore(t, srv)

	snapshot, err := store.Fetch(context.Background(), models.UserInfo)
	require.NoError(t, err)
	assert.Equal(t, int64(1756461600000), snapshot.UpdatedAt.Millis())
}

func TestRESTRemoteStore_FetchErrors(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		wantErr error
	}{
		{name: "unauthorized", status: http.StatusUnauthorized, wantErr: ErrUnauthorized},
		{name: "forbidden maps to unauthorized", status: http.StatusForbidden, wantErr: ErrUnauthorized},
		{name: "not found", status: http.StatusNotFound, wantErr: ErrNotFound},
		{name: "conflict", status: http.StatusConflict, wantErr: ErrConflict},
		{name: "bad gateway", status: http.StatusBadGateway, wantErr: ErrServerUnavailable},
		{name: "service unavailable", status: http.StatusServiceUnavailable, wantErr: ErrServerUnavailable},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				http.Error(w, tt.name, tt.status)
			}))
			defer srv.Close()

			store := newTestStore(t, srv)
			_, err := store.Fetch(context.Background(), models.MedicalInfo)
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestRESTRemoteStore_Push(t *testing.T) {
	var got models.ServerSnapshot
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPut, r.Method)
		assert.Equal(t, "/api/sync/medical_info", r.URL.Path)
		assert.Equal(t, "Bearer tok-2", r.Header.Get("Authorization"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	store := newTestStore(t, srv)
	store.SetToken("tok-2")

	err := store.Push(context.Background(), models.MedicalInfo, []byte(`{"bloodType":"A+"}`))
	require.NoError(t, err)
	assert.JSONEq(t, `{"bloodType":"A+"}`, string(got.Data))
	assert.Equal(t, "dev-test", got.DeviceID)
	assert.NotZero(t, got.UpdatedAt.Millis())
}

func TestRESTRemoteStore_Dispatch(t *testing.T) {
	tests := []struct {
		kind       models.OperationKind
		wantMethod string
	}{
		{kind: models.OpCreate, wantMethod: http.MethodPost},
		{kind: models.OpUpdate, wantMethod: http.MethodPut},
		{kind: models.OpDelete, wantMethod: http.MethodDelete},
	}

	for _, tt := range tests {
		t.Run(string(tt.kind), func(t *testing.T) {
			var gotMethod, gotAuth string
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				gotMethod = r.Method
				gotAuth = r.Header.Get("Authorization")
				w.WriteHeader(http.StatusOK)
			}))
			defer srv.Close()

			store := newTestStore(t, srv)
			store.SetToken("stored-token")

			err := store.Dispatch(context.Background(), models.QueuedOperation{
				ID:         "op-1",
				Kind:       tt.kind,
				EntityKind: models.EmergencyContacts,
				Payload:    json.RawMessage(`[{"name":"mom"}]`),
				EnqueuedAt: 1756461600000,
				AuthToken:  "op-token",
			})
			require.NoError(t, err)
			assert.Equal(t, tt.wantMethod, gotMethod)
			// The token captured at enqueue time wins over the stored one.
			assert.Equal(t, "Bearer op-token", gotAuth)
		})
	}
}

func TestRESTRemoteStore_DispatchUnknownKind(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("no request expected")
	}))
	defer srv.Close()

	store := newTestStore(t, srv)
	err := store.Dispatch(context.Background(), models.QueuedOperation{Kind: "MOVE"})
	assert.ErrorIs(t, err, ErrUnsupportedOp)
}

func TestRESTRemoteStore_Ping(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// Unauthenticated 401 still proves reachability.
		w.WriteHeader(http.StatusUnauthorized)
	}))

	store := newTestStore(t, srv)
	assert.True(t, store.Ping(context.Background()))

	srv.Close()
	assert.False(t, store.Ping(context.Background()))
}

func TestRemoteStore_ConcurrentTokenRotation(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"data":{},"updated_at":0,"device_id":"dev-other"}`))
	}))
	defer srv.Close()

	store := newTestStore(t, srv)
	ctx := context.Background()

	// Token rotation must be safe against in-flight requests; run with
	// -race to verify.
	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			for j := 0; j < 25; j++ {
				store.SetToken(fmt.Sprintf("token-%d-%d", n, j))
			}
		}(i)
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 25; j++ {
				_, _ = store.Fetch(ctx, models.UserInfo)
				_ = store.Token()
			}
		}()
	}
	wg.Wait()
}

func TestHTTPProbe_ReportsReadings(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	store := newTestStore(t, srv)
	probe := NewHTTPProbe(store, 5*time.Millisecond, logger.Nop())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	probe.Run(ctx)

	assert.True(t, probe.Online(ctx))

	select {
	case online := <-probe.Events():
		assert.True(t, online)
	case <-time.After(time.Second):
		t.Fatal("no probe reading received")
	}
}
