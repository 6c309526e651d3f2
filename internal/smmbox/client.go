// Package smmbox is a client for the SMMBox postponed-posting API, the
// downstream service that actually publishes scheduled clips to VK.
package smmbox

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"golang.org/x/time/rate"

	logx "clipbot/pkg/logx"
)

const DefaultBaseURL = "https://smmbox.com/api/v1"

// ErrNoVKGroup means the SMMBox account has no connected VK community.
var ErrNoVKGroup = errors.New("smmbox: no VK group connected")

// Config configures the client.
type Config struct {
	Token   string
	BaseURL string // empty means DefaultBaseURL
	// RatePerSec caps outbound API calls; 0 means 2/s.
	RatePerSec int
}

// Client talks to the SMMBox HTTP API.
type Client struct {
	http    *http.Client
	baseURL string
	token   string
	limiter *rate.Limiter
	log     logx.Logger
}

func New(cfg Config, client *http.Client, log logx.Logger) (*Client, error) {
	if strings.TrimSpace(cfg.Token) == "" {
		return nil, errors.New("smmbox: token is required")
	}
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}
	if log.IsZero() {
		log = logx.Nop()
	}
	base := strings.TrimRight(cfg.BaseURL, "/")
	if base == "" {
		base = DefaultBaseURL
	}
	rps := cfg.RatePerSec
	if rps <= 0 {
		rps = 2
	}
	return &Client{
		http:    client,
		baseURL: base,
		token:   cfg.Token,
		limiter: rate.NewLimiter(rate.Limit(rps), rps),
		log:     log,
	}, nil
}

// Groups lists all communities connected to the account.
func (c *Client) Groups(ctx context.Context) ([]Group, error) {
	var groups []Group
	if err := c.call(ctx, http.MethodGet, "/groups", nil, &groups); err != nil {
		return nil, err
	}
	return groups, nil
}

// VKGroup returns the first connected VK community.
func (c *Client) VKGroup(ctx context.Context) (*Group, error) {
	groups, err := c.Groups(ctx)
	if err != nil {
		return nil, err
	}
	for _, g := range groups {
		if g.Social == "vk" {
			return &g, nil
		}
	}
	return nil, ErrNoVKGroup
}

// PostClip schedules a postponed wall post with the video attached as a VK
// clip (the "reels" option makes VK convert it).
func (c *Client) PostClip(ctx context.Context, clip ClipPost) error {
	group, err := c.VKGroup(ctx)
	if err != nil {
		return err
	}

	attach := attachment{
		Type:  "video",
		URL:   clip.VideoURL,
		Title: clip.Title,
	}
	if clip.PreviewURL != "" {
		attach.Preview = clip.PreviewURL
		attach.CustomPreview = true
	}

	req := postRequest{Posts: []postEntry{{
		Group:       groupRef{ID: group.ID, Social: group.Social, Type: group.Type},
		Date:        clip.ScheduledAt,
		Attachments: []attachment{attach},
		Options:     []string{"reels"},
	}}}

	c.log.Info("submitting postponed clip",
		logx.String("group", group.Name),
		logx.Int64("date", clip.ScheduledAt),
	)
	return c.call(ctx, http.MethodPost, "/posts/postpone", req, nil)
}

// call performs one rate-limited API request and unwraps the envelope.
func (c *Client) call(ctx context.Context, method, path string, body, out any) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return err
	}

	var rd io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return err
		}
		rd = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, rd)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+c.token)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("smmbox: %s %s: unexpected status %d", method, path, resp.StatusCode)
	}

	var env envelope
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		return fmt.Errorf("smmbox: decode response: %w", err)
	}
	if !env.Success {
		if env.Error != nil {
			return env.Error
		}
		return fmt.Errorf("smmbox: %s %s: request not successful", method, path)
	}
	if out != nil && len(env.Response) > 0 {
		if err := json.Unmarshal(env.Response, out); err != nil {
			return fmt.Errorf("smmbox: decode payload: %w", err)
		}
	}
	return nil
}
