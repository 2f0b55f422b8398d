// Package splashcat uploads versus battles to a Splashcat server.
package splashcat

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log"
	"net/http"
	"strings"
	"sync"
	"time"

	json "github.com/goccy/go-json"
	"github.com/vmihailenco/msgpack/v5"

	"github.com/withObsrvr/obsrvr-battle-exporter/internal/exporter"
	"github.com/withObsrvr/obsrvr-battle-exporter/internal/translate"
)

// DataTypeSplatNet3 marks an upload carrying a raw SplatNet detail.
const DataTypeSplatNet3 = "splatnet3"

const (
	recentPath = "/battles/api/recent/"
	uploadPath = "/battles/api/upload/"
)

// ClientConfig configures a Client.
type ClientConfig struct {
	BaseURL   string
	APIKey    string
	UserAgent string
	Timeout   time.Duration
}

// Client talks to the Splashcat battle API. It keeps at most one request
// in flight.
type Client struct {
	cfg    ClientConfig
	client *http.Client
	mu     sync.Mutex
}

// NewClient creates a new API client.
func NewClient(cfg ClientConfig) *Client {
	if cfg.Timeout == 0 {
		cfg.Timeout = 30 * time.Second
	}
	cfg.BaseURL = strings.TrimSuffix(cfg.BaseURL, "/")
	return &Client{
		cfg:    cfg,
		client: &http.Client{Timeout: cfg.Timeout},
	}
}

// RecentBattleIDs returns the ids of the battles most recently uploaded
// with this API key.
func (c *Client) RecentBattleIDs(ctx context.Context) ([]string, error) {
	var out struct {
		BattleIDs []string `json:"battle_ids"`
	}
	body, err := c.do(ctx, http.MethodGet, recentPath, "", nil)
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal(body, &out); err != nil {
		return nil, fmt.Errorf("decode recent battles: %w", err)
	}
	return out.BattleIDs, nil
}

// UploadBattle posts a translated battle as msgpack.
func (c *Client) UploadBattle(ctx context.Context, body *translate.UploadBody) error {
	data, err := msgpack.Marshal(body)
	if err != nil {
		return fmt.Errorf("encode battle: %w", err)
	}
	_, err = c.do(ctx, http.MethodPost, uploadPath, "application/x-msgpack", data)
	return err
}

// UploadSplatNet3 posts a raw SplatNet detail as JSON for the server to
// translate itself.
func (c *Client) UploadSplatNet3(ctx context.Context, detail any) error {
	data, err := json.Marshal(map[string]any{
		"data_type": DataTypeSplatNet3,
		"battle":    detail,
	})
	if err != nil {
		return fmt.Errorf("encode battle: %w", err)
	}
	_, err = c.do(ctx, http.MethodPost, uploadPath, "application/json", data)
	return err
}

// do sends one request and returns the response body. Statuses other than
// 200 and 201, and bodies carrying an error field, are write failures.
func (c *Client) do(ctx context.Context, method, path, contentType string, body []byte) ([]byte, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.cfg.BaseURL+path, reader)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("User-Agent", c.cfg.UserAgent)
	req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %s %s: %v", exporter.ErrDestinationWrite, method, path, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: read response: %v", exporter.ErrDestinationWrite, err)
	}

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		return nil, fmt.Errorf("%w: %s %s -> http %d: %s", exporter.ErrDestinationWrite, method, path, resp.StatusCode, truncate(respBody))
	}
	if msg := errorField(respBody); msg != "" {
		return nil, fmt.Errorf("%w: %s %s: %s", exporter.ErrDestinationWrite, method, path, msg)
	}

	log.Printf("[splashcat] %s %s -> %d", method, path, resp.StatusCode)
	return respBody, nil
}

// errorField returns the error reported in a JSON response body, if any.
func errorField(body []byte) string {
	var resp struct {
		Error json.RawMessage `json:"error"`
	}
	if err := json.Unmarshal(body, &resp); err != nil || len(resp.Error) == 0 {
		return ""
	}
	var msg string
	if err := json.Unmarshal(resp.Error, &msg); err == nil {
		return msg
	}
	switch s := strings.TrimSpace(string(resp.Error)); s {
	case "null", "false":
		return ""
	default:
		return s
	}
}

func truncate(b []byte) string {
	const limit = 512
	if len(b) > limit {
		return string(b[:limit]) + "..."
	}
	return string(b)
}
