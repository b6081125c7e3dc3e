// Package rooms talks to the room service's two plain REST endpoints and
// builds socket URLs from the results. The room key is the canonical
// identifier everywhere in this client; the server-assigned id is carried
// opaquely and never used to reconcile anything.
package rooms

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/mukhtarkv/CTF/internal/game"
)

// ErrNoGameInfo is what callers see for any create/join failure; the cause
// is logged, not propagated.
var ErrNoGameInfo = errors.New("no game info")

type Info struct {
	Key string `json:"room_id"`
	ID  string `json:"id"`
}

type Client struct {
	base string
	http *http.Client
	log  *zap.Logger
}

func NewClient(base string, log *zap.Logger) *Client {
	return &Client{
		base: strings.TrimRight(base, "/"),
		http: &http.Client{Timeout: 10 * time.Second},
		log:  log,
	}
}

// Create asks the service for a fresh room.
func (c *Client) Create(ctx context.Context) (Info, error) {
	return c.do(ctx, http.MethodPost, c.base+"/rooms")
}

// Join validates a room key and fetches its metadata before any socket is
// dialed.
func (c *Client) Join(ctx context.Context, key string) (Info, error) {
	return c.do(ctx, http.MethodGet, fmt.Sprintf("%s/rooms/%s/join", c.base, url.PathEscape(key)))
}

func (c *Client) do(ctx context.Context, method, target string) (Info, error) {
	req, err := http.NewRequestWithContext(ctx, method, target, nil)
	if err != nil {
		c.log.Warn("room request build failed", zap.String("url", target), zap.Error(err))
		return Info{}, ErrNoGameInfo
	}

	resp, err := c.http.Do(req)
	if err != nil {
		c.log.Warn("room request failed", zap.String("url", target), zap.Error(err))
		return Info{}, ErrNoGameInfo
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		c.log.Warn("room request rejected", zap.String("url", target), zap.Int("status", resp.StatusCode))
		return Info{}, ErrNoGameInfo
	}

	var info Info
	if err := json.NewDecoder(resp.Body).Decode(&info); err != nil {
		c.log.Warn("room response undecodable", zap.String("url", target), zap.Error(err))
		return Info{}, ErrNoGameInfo
	}
	if info.Key == "" {
		c.log.Warn("room response missing key", zap.String("url", target))
		return Info{}, ErrNoGameInfo
	}
	return info, nil
}

// SocketURL derives the websocket target for a room from the HTTP base URL:
// ws(s)://host/rooms/{key}?role={host|player}. An empty key yields an empty
// URL, which the connection manager treats as "do not connect".
func SocketURL(base, key string, role game.Role) string {
	if key == "" {
		return ""
	}
	u, err := url.Parse(base)
	if err != nil {
		return ""
	}
	switch u.Scheme {
	case "https":
		u.Scheme = "wss"
	default:
		u.Scheme = "ws"
	}
	u.Path = "/rooms/" + key
	u.RawQuery = "role=" + string(role)
	return u.String()
}
