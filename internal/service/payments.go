package service

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"
)

// ErrDeclined is returned when the gateway refuses a charge.  It maps to
// a client error, unlike transport failures which are server errors.
var ErrDeclined = errors.New("payment declined")

// PaymentGateway is a thin client for the external payment service.
// The charge/refund protocol itself lives upstream; this client only
// moves JSON.  An unconfigured gateway (empty endpoint) runs in sandbox
// mode and approves everything, which keeps local development working
// without credentials.
type PaymentGateway struct {
	endpoint string
	apiKey   string
	http     *http.Client
}

func NewPaymentGateway(endpoint, apiKey string) *PaymentGateway {
	return &PaymentGateway{
		endpoint: endpoint,
		apiKey:   apiKey,
		http:     &http.Client{Timeout: 10 * time.Second},
	}
}

type gatewayResult struct {
	Approved bool   `json:"approved"`
	Reason   string `json:"reason"`
}

// Charge authorizes and captures a payment identified by ref.
func (g *PaymentGateway) Charge(ctx context.Context, ref string, amount int64) error {
	return g.call(ctx, "/charges", map[string]any{"ref": ref, "amount": amount})
}

// Refund reverses a captured payment.
func (g *PaymentGateway) Refund(ctx context.Context, ref, reason string) error {
	return g.call(ctx, "/refunds", map[string]any{"ref": ref, "reason": reason})
}

func (g *PaymentGateway) call(ctx context.Context, path string, payload map[string]any) error {
	if g.endpoint == "" {
		return nil // sandbox mode
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.endpoint+path, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+g.apiKey)
	resp, err := g.http.Do(req)
	if err != nil {
		return err
	}
	defer func() { _ = resp.Body.Close() }()
	if resp.StatusCode >= 500 {
		return fmt.Errorf("payment gateway returned %d", resp.StatusCode)
	}
	var result gatewayResult
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return err
	}
	if !result.Approved {
		return fmt.Errorf("%w: %s", ErrDeclined, result.Reason)
	}
	return nil
}
