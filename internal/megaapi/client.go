// Package megaapi is a client for the MEGA API WhatsApp gateway.
package megaapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/linsalefe/mega-api-whatsapp-ai/internal/domain"
	"github.com/linsalefe/mega-api-whatsapp-ai/internal/logging"
)

const (
	sendTimeout   = 15 * time.Second
	statusTimeout = 5 * time.Second
)

// Client sends WhatsApp messages through a MEGA API instance.
type Client struct {
	baseURL    string
	token      string
	instanceID string
	client     *http.Client
	log        *logging.Logger
}

// New creates a MEGA API client for one instance.
func New(baseURL, token, instanceID string, log *logging.Logger) *Client {
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		token:      token,
		instanceID: instanceID,
		client:     &http.Client{Timeout: sendTimeout},
		log:        log.Sub("megaapi"),
	}
}

type sendTextRequest struct {
	MessageData messageData `json:"messageData"`
}

type messageData struct {
	To   string `json:"to"`
	Text string `json:"text"`
}

// SendText delivers a text message to a recipient. The recipient may be
// a bare number or a full JID; it is normalized before sending.
func (c *Client) SendText(ctx context.Context, to, text string) error {
	recipient := domain.Recipient(to)

	body, err := json.Marshal(sendTextRequest{
		MessageData: messageData{To: recipient, Text: text},
	})
	if err != nil {
		return fmt.Errorf("marshaling send request: %w", err)
	}

	url := fmt.Sprintf("%s/rest/sendMessage/%s/text", c.baseURL, c.instanceID)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("creating send request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.token)

	resp, err := c.client.Do(req)
	if err != nil {
		c.log.Error().Err(err).Str("to", recipient).Msg("send request failed")
		return fmt.Errorf("sending message: %w", err)
	}
	defer resp.Body.Close()

	data, _ := io.ReadAll(io.LimitReader(resp.Body, 64*1024))

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		c.log.Error().Int("status", resp.StatusCode).Str("to", recipient).Str("body", string(data)).Msg("gateway rejected message")
		return fmt.Errorf("gateway returned %d: %s", resp.StatusCode, string(data))
	}

	// The gateway reports some failures inside a 2xx body.
	var parsed struct {
		Error any `json:"error"`
	}
	if err := json.Unmarshal(data, &parsed); err == nil && truthy(parsed.Error) {
		c.log.Error().Str("to", recipient).Str("body", string(data)).Msg("gateway reported send error")
		return fmt.Errorf("gateway reported an error: %s", string(data))
	}

	c.log.Info().Str("to", recipient).Int("chars", len(text)).Msg("message sent")
	return nil
}

// InstanceStatus returns the raw status document for the instance, used
// by health checks to verify gateway connectivity.
func (c *Client) InstanceStatus(ctx context.Context) (map[string]any, error) {
	ctx, cancel := context.WithTimeout(ctx, statusTimeout)
	defer cancel()

	url := fmt.Sprintf("%s/rest/instance/%s/status", c.baseURL, c.instanceID)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("creating status request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.token)

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("checking instance status: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		data, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, fmt.Errorf("status endpoint returned %d: %s", resp.StatusCode, string(data))
	}

	var status map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&status); err != nil {
		return nil, fmt.Errorf("decoding status response: %w", err)
	}
	return status, nil
}

// truthy reports whether a decoded JSON error field carries a value.
// The gateway uses false, null, "" and {} interchangeably for success.
func truthy(v any) bool {
	switch val := v.(type) {
	case nil:
		return false
	case bool:
		return val
	case string:
		return val != ""
	case map[string]any:
		return len(val) > 0
	default:
		return true
	}
}
