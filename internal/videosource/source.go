package videosource

import (
	"context"
	"errors"
	"net/http"
	"time"

	logx "clipbot/pkg/logx"
)

// ErrUnsupportedURL is returned for links that match no known platform.
var ErrUnsupportedURL = errors.New("unsupported video platform")

// VideoInfo is the metadata the bot needs before scheduling a clip.
type VideoInfo struct {
	URL       string
	Title     string
	Platform  string
	Thumbnail string
	Author    string
}

// Platform resolves links of one video service.
type Platform interface {
	Name() string
	Match(url string) bool
	Resolve(ctx context.Context, url string) (*VideoInfo, error)
}

// Resolver owns the ordered platform list and routes each URL to the first
// platform claiming it.
type Resolver struct {
	platforms []Platform
	log       logx.Logger
}

// NewResolver creates a resolver over the default platform set
// (YouTube, TikTok, Instagram). A nil client gets a 15s-timeout default.
func NewResolver(client *http.Client, log logx.Logger) *Resolver {
	if client == nil {
		client = &http.Client{Timeout: 15 * time.Second}
	}
	if log.IsZero() {
		log = logx.Nop()
	}
	return &Resolver{
		platforms: []Platform{
			NewYouTube(client),
			NewTikTok(client),
			NewInstagram(client),
		},
		log: log,
	}
}

// Lookup returns the platform claiming the URL, if any.
func (r *Resolver) Lookup(url string) (Platform, bool) {
	for _, p := range r.platforms {
		if p.Match(url) {
			return p, true
		}
	}
	return nil, false
}

// IsValidURL reports whether any platform claims the URL.
func (r *Resolver) IsValidURL(url string) bool {
	_, ok := r.Lookup(url)
	return ok
}

// Resolve fetches metadata for the URL via its platform.
func (r *Resolver) Resolve(ctx context.Context, url string) (*VideoInfo, error) {
	p, ok := r.Lookup(url)
	if !ok {
		return nil, ErrUnsupportedURL
	}
	r.log.Debug("resolving video", logx.String("platform", p.Name()), logx.String("url", url))
	info, err := p.Resolve(ctx, url)
	if err != nil {
		return nil, err
	}
	info.Platform = p.Name()
	if info.URL == "" {
		info.URL = url
	}
	return info, nil
}

// Supported lists the platform names in match order.
func (r *Resolver) Supported() []string {
	names := make([]string, 0, len(r.platforms))
	for _, p := range r.platforms {
		names = append(names, p.Name())
	}
	return names
}
