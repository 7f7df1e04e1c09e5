package service

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/cydxin/presence-sdk/config"
	"github.com/cydxin/presence-sdk/models"
	"go.uber.org/zap"
)

// HTTPPushSender posts notifications to a push gateway (FCM/APNs relay) as
// JSON:
//
//	{"tokens": [...], "title": "...", "body": "...", "data": {...}}
type HTTPPushSender struct {
	devices  *DeviceService
	endpoint string
	apiKey   string
	client   *http.Client
	logger   *zap.Logger
}

var _ PushSender = (*HTTPPushSender)(nil)

func NewHTTPPushSender(devices *DeviceService, cfg config.PushConfig) *HTTPPushSender {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &HTTPPushSender{
		devices:  devices,
		endpoint: cfg.Endpoint,
		apiKey:   cfg.APIKey,
		client:   &http.Client{Timeout: timeout},
		logger:   devices.log("push"),
	}
}

type pushRequest struct {
	Tokens       []string        `json:"tokens"`
	Title        string          `json:"title"`
	Body         string          `json:"body,omitempty"`
	Notification string          `json:"notification_id"`
	Type         string          `json:"type"`
	Data         json.RawMessage `json:"data,omitempty"`
}

func (p *HTTPPushSender) Send(ctx context.Context, userID string, n *models.Notification) error {
	tokens, err := p.devices.TokensOf(ctx, userID)
	if err != nil {
		return fmt.Errorf("load devices: %w", err)
	}
	if len(tokens) == 0 {
		return fmt.Errorf("%w: no push device", ErrNoRecipient)
	}

	body, err := json.Marshal(pushRequest{
		Tokens:       tokens,
		Title:        n.Title,
		Body:         n.Message,
		Notification: n.ID,
		Type:         n.Type,
		Data:         json.RawMessage(n.Data),
	})
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.endpoint, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	if p.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+p.apiKey)
	}

	resp, err := p.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return fmt.Errorf("push gateway returned status %d", resp.StatusCode)
	}
	p.logger.Debug("push sent", zap.String("user", userID), zap.Int("devices", len(tokens)))
	return nil
}
