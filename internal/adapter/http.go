package adapter

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strings"
	"sync"

	"github.com/go-resty/resty/v2"

	"github.com/dkhromov/syncline/internal/config"
	"github.com/dkhromov/syncline/internal/logger"
	"github.com/dkhromov/syncline/internal/utils"
	"github.com/dkhromov/syncline/models"
)

type restRemoteStore struct {
	client   *resty.Client
	deviceID string

	mu    sync.Mutex
	token string

	logger *logger.Logger
}

// NewRESTRemoteStore constructs an HTTP/REST implementation of [RemoteStore].
// It normalises and validates the base URL from remoteCfg.BaseURL and
// configures the underlying client with the resolved base URL and request
// timeout. deviceID is stamped on every pushed payload so other devices can
// attribute writes.
//
// Returns an error if remoteCfg.BaseURL is empty or cannot be parsed as a
// valid URL.
func NewRESTRemoteStore(remoteCfg config.Remote, deviceID string, logger *logger.Logger) (RemoteStore, error) {
	baseURL, err := normalizeBaseURL(remoteCfg.BaseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid remote base url: %w", err)
	}

	client := resty.New().
		SetBaseURL(baseURL).
		SetTimeout(remoteCfg.RequestTimeout)

	return &restRemoteStore{client: client, deviceID: deviceID, logger: logger}, nil
}

func normalizeBaseURL(raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", fmt.Errorf("empty address")
	}

	if !strings.Contains(raw, "://") {
		raw = "http://" + raw
	}

	u, err := url.Parse(raw)
	if err != nil {
		return "", err
	}
	if u.Scheme == "" || u.Host == "" {
		return "", fmt.Errorf("address must include host and scheme")
	}

	return strings.TrimRight(u.String(), "/"), nil
}

// SetToken implements [RemoteStore]. The token is stored whitespace-trimmed.
// Safe for concurrent use with in-flight requests.
func (r *restRemoteStore) SetToken(token string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.token = strings.TrimSpace(token)
}

// Token implements [RemoteStore].
func (r *restRemoteStore) Token() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.token
}

// Fetch implements [RemoteStore]. It GETs /api/sync/{kind} and decodes the
// snapshot envelope. The endpoint accepts both epoch and ISO-8601 server
// timestamps.
func (r *restRemoteStore) Fetch(ctx context.Context, kind models.EntityKind) (models.ServerSnapshot, error) {
	var snapshot models.ServerSnapshot

	resp, err := r.client.R().
		SetContext(ctx).
		SetHeader("Authorization", "Bearer "+r.Token()).
		SetResult(&snapshot).
		Get("/api/sync/" + string(kind))
	if err != nil {
		return models.ServerSnapshot{}, fmt.Errorf("fetch %s request: %w", kind, err)
	}
	if err = mapHTTPError(resp); err != nil {
		return models.ServerSnapshot{}, fmt.Errorf("fetch %s: %w", kind, err)
	}

	return snapshot, nil
}

// Push implements [RemoteStore]. It PUTs the reconciled payload to
// /api/sync/{kind} wrapped in the snapshot envelope, stamped with the local
// device id and the current time.
func (r *restRemoteStore) Push(ctx context.Context, kind models.EntityKind, data []byte) error {
	body := models.ServerSnapshot{
		Data:      json.RawMessage(data),
		UpdatedAt: models.EpochTime(utils.NowMillis()),
		DeviceID:  r.deviceID,
	}

	resp, err := r.client.R().
		SetContext(ctx).
		SetHeader("Content-Type", "application/json").
		SetHeader("Authorization", "Bearer "+r.Token()).
		SetBody(body).
		Put("/api/sync/" + string(kind))
	if err != nil {
		return fmt.Errorf("push %s request: %w", kind, err)
	}
	if err = mapHTTPError(resp); err != nil {
		return fmt.Errorf("push %s: %w", kind, err)
	}

	r.logger.Debug().
		Str("func", "restRemoteStore.Push").
		Str("entity", string(kind)).
		Msg("write-back pushed")
	return nil
}

// Dispatch implements [RemoteStore]. The operation's own token, captured at
// enqueue time, takes priority over the stored one.
func (r *restRemoteStore) Dispatch(ctx context.Context, op models.QueuedOperation) error {
	token := op.AuthToken
	if token == "" {
		token = r.Token()
	}

	req := r.client.R().
		SetContext(ctx).
		SetHeader("Content-Type", "application/json").
		SetHeader("Authorization", "Bearer "+token).
		SetBody(models.ServerSnapshot{
			Data:      op.Payload,
			UpdatedAt: models.EpochTime(op.EnqueuedAt),
			DeviceID:  r.deviceID,
		})

	var (
		resp *resty.Response
		err  error
	)
	path := "/api/sync/" + string(op.EntityKind)
	switch op.Kind {
	case models.OpCreate:
		resp, err = req.Post(path)
	case models.OpUpdate:
		resp, err = req.Put(path)
	case models.OpDelete:
		resp, err = req.Delete(path)
	default:
		return fmt.Errorf("%w: %q", ErrUnsupportedOp, op.Kind)
	}
	if err != nil {
		return fmt.Errorf("dispatch %s %s request: %w", op.Kind, op.EntityKind, err)
	}
	if err = mapHTTPError(resp); err != nil {
		return fmt.Errorf("dispatch %s %s: %w", op.Kind, op.EntityKind, err)
	}
	return nil
}

// Ping implements [RemoteStore]. Any HTTP response counts as reachable, the
// status code does not matter: an authentication failure still proves the
// network path is up.
func (r *restRemoteStore) Ping(ctx context.Context) bool {
	_, err := r.client.R().
		SetContext(ctx).
		Get("/api/health")
	return err == nil
}
