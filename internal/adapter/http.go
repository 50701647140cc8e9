package adapter

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/deeprecall/replica/models"
)

// HTTPRemoteConfig configures the HTTP/websocket remote store client.
type HTTPRemoteConfig struct {
	// BaseURL is the HTTP base address of the remote store's mutation API.
	BaseURL string
	// WSURL is the websocket address of the live subscription feed.
	WSURL string
	// Timeout is the per-request timeout for mutation sends.
	Timeout time.Duration
}

// mutationRequest is the wire shape of one mutation send.
type mutationRequest struct {
	EntityType string        `json:"entity_type"`
	Kind       models.OpKind `json:"kind"`
	EntityID   string        `json:"entity_id"`
	Payload    models.Record `json:"payload,omitempty"`
}

type httpRemoteStore struct {
	client *resty.Client
	wsURL  string
}

// NewHTTPRemoteStore constructs the production RemoteStore over HTTP
// (mutations) and websocket (live subscription).
func NewHTTPRemoteStore(cfg HTTPRemoteConfig) RemoteStore {
	if cfg.BaseURL == "" {
		cfg.BaseURL = "http://localhost:8080"
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 15 * time.Second
	}

	cli := resty.New().
		SetBaseURL(strings.TrimRight(cfg.BaseURL, "/")).
		SetTimeout(cfg.Timeout)

	return &httpRemoteStore{client: cli, wsURL: cfg.WSURL}
}

func (h *httpRemoteStore) Send(ctx context.Context, et models.EntityType, op models.PendingOp) error {
	req := mutationRequest{
		EntityType: et.Name,
		Kind:       op.Kind,
		EntityID:   op.EntityID,
		Payload:    op.Payload,
	}

	resp, err := h.client.R().
		SetContext(ctx).
		SetHeader("Content-Type", "application/json").
		SetBody(req).
		Post("/api/sync/" + et.Name + "/mutations")
	if err != nil {
		return fmt.Errorf("send %s mutation (entity_id=%s): %w", op.Kind, op.EntityID, err)
	}

	return mapHTTPError(resp)
}

func (h *httpRemoteStore) Subscribe(ctx context.Context, et models.EntityType) (Subscription, error) {
	return dialSubscription(ctx, h.wsURL, et)
}
