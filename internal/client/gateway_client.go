// Package client talks to the upstream messaging gateway over HTTP.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"golang.org/x/time/rate"
)

// GatewayClient drives sessions and message delivery on the remote gateway.
// Message sends go through a process-wide rate limiter so bulk jobs cannot
// flood the upstream.
type GatewayClient struct {
	baseURL string
	client  *http.Client
	limiter *rate.Limiter
}

func NewGatewayClient(baseURL string, ratePerSec int) *GatewayClient {
	if ratePerSec <= 0 {
		ratePerSec = 10
	}
	return &GatewayClient{
		baseURL: baseURL,
		client: &http.Client{
			Timeout: 10 * time.Second,
		},
		limiter: rate.NewLimiter(rate.Limit(ratePerSec), ratePerSec),
	}
}

type sendRequest struct {
	PhoneNumber string `json:"phoneNumber"`
	Message     string `json:"message"`
}

type sendResponse struct {
	MessageID string `json:"messageId"`
}

// SendText delivers one rendered message through an established session and
// returns the gateway's message identifier. The gateway acknowledges accepted
// messages with 202; anything else is an error.
func (c *GatewayClient) SendText(ctx context.Context, sessionID, phone, message string) (string, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return "", err
	}

	body, err := c.do(ctx, http.MethodPost, "/sessions/"+url.PathEscape(sessionID)+"/messages",
		sendRequest{PhoneNumber: phone, Message: message}, http.StatusAccepted)
	if err != nil {
		return "", err
	}

	var sr sendResponse
	if err := json.Unmarshal(body, &sr); err != nil {
		return "", fmt.Errorf("failed to decode json: %w body=%q", err, string(body))
	}
	if sr.MessageID == "" {
		return "", fmt.Errorf("missing messageId in response body=%q", string(body))
	}
	return sr.MessageID, nil
}

// Connect establishes the session on the gateway. Blocks until the gateway
// reports the session up or ctx expires.
func (c *GatewayClient) Connect(ctx context.Context, sessionID string) error {
	_, err := c.do(ctx, http.MethodPost, "/sessions/"+url.PathEscape(sessionID)+"/connect", nil, http.StatusOK)
	return err
}

// Disconnect tears the session down on the gateway.
func (c *GatewayClient) Disconnect(ctx context.Context, sessionID string) error {
	_, err := c.do(ctx, http.MethodDelete, "/sessions/"+url.PathEscape(sessionID), nil, http.StatusNoContent)
	return err
}

// Ping checks the session is still up on the gateway.
func (c *GatewayClient) Ping(ctx context.Context, sessionID string) error {
	_, err := c.do(ctx, http.MethodGet, "/sessions/"+url.PathEscape(sessionID)+"/status", nil, http.StatusOK)
	return err
}

func (c *GatewayClient) do(ctx context.Context, method, path string, payload any, wantStatus int) ([]byte, error) {
	var reqBody io.Reader
	if payload != nil {
		raw, err := json.Marshal(payload)
		if err != nil {
			return nil, err
		}
		reqBody = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reqBody)
	if err != nil {
		return nil, err
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(resp.Body)

	if resp.StatusCode != wantStatus {
		return nil, fmt.Errorf("unexpected status code: %d body=%q", resp.StatusCode, string(body))
	}
	return body, nil
}
