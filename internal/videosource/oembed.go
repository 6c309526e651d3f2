package videosource

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
)

// oembedDoc is the subset of the oEmbed response we care about.
type oembedDoc struct {
	Title        string `json:"title"`
	AuthorName   string `json:"author_name"`
	ThumbnailURL string `json:"thumbnail_url"`
}

// fetchOEmbed queries a platform's public oEmbed endpoint for videoURL.
func fetchOEmbed(ctx context.Context, client *http.Client, endpoint, videoURL string) (*oembedDoc, error) {
	q := url.Values{}
	q.Set("url", videoURL)
	q.Set("format", "json")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint+"?"+q.Encode(), nil)
	if err != nil {
		return nil, err
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("oembed: unexpected status %d", resp.StatusCode)
	}

	var doc oembedDoc
	if err := json.NewDecoder(resp.Body).Decode(&doc); err != nil {
		return nil, fmt.Errorf("oembed: decode: %w", err)
	}
	return &doc, nil
}
