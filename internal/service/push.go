package service

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

// PushClient sends push notifications through the hosted dispatch
// service.  The service exposes a single REST endpoint; no SDK exists
// for it, so this is a plain HTTP caller.  A client with an empty
// endpoint is disabled and drops every send.
type PushClient struct {
	endpoint string
	http     *http.Client
}

func NewPushClient(endpoint string) *PushClient {
	return &PushClient{
		endpoint: endpoint,
		http:     &http.Client{Timeout: 5 * time.Second},
	}
}

// Send dispatches one push message to a user's registered devices.
func (p *PushClient) Send(ctx context.Context, userID uint64, title, message string) error {
	if p.endpoint == "" {
		return nil // push disabled
	}
	body, err := json.Marshal(map[string]any{
		"user_id": userID,
		"title":   title,
		"message": message,
	})
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.endpoint, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := p.http.Do(req)
	if err != nil {
		return err
	}
	defer func() { _ = resp.Body.Close() }()
	if resp.StatusCode >= 300 {
		return fmt.Errorf("push gateway returned %d", resp.StatusCode)
	}
	return nil
}
