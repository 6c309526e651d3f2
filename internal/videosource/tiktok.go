package videosource

import (
	"context"
	"net/http"
	"strings"
)

// TikTok resolves videos (including vm.tiktok.com short links) via oEmbed.
type TikTok struct {
	client   *http.Client
	endpoint string
}

func NewTikTok(client *http.Client) *TikTok {
	return &TikTok{client: client, endpoint: "https://www.tiktok.com/oembed"}
}

func (t *TikTok) Name() string { return "TikTok" }

func (t *TikTok) Match(url string) bool {
	return strings.Contains(url, "tiktok.com")
}

func (t *TikTok) Resolve(ctx context.Context, url string) (*VideoInfo, error) {
	doc, err := fetchOEmbed(ctx, t.client, t.endpoint, url)
	if err != nil {
		return nil, err
	}
	return &VideoInfo{
		URL:       url,
		Title:     doc.Title,
		Thumbnail: doc.ThumbnailURL,
		Author:    doc.AuthorName,
	}, nil
}
