package videosource

import (
	"context"
	"net/http"
	"strings"
)

// YouTube resolves Shorts (and regular watch links) via the oEmbed endpoint.
type YouTube struct {
	client   *http.Client
	endpoint string
}

func NewYouTube(client *http.Client) *YouTube {
	return &YouTube{client: client, endpoint: "https://www.youtube.com/oembed"}
}

func (y *YouTube) Name() string { return "YouTube" }

func (y *YouTube) Match(url string) bool {
	for _, pat := range []string{
		"youtube.com/shorts/",
		"youtu.be/",
		"youtube.com/watch?v=",
	} {
		if strings.Contains(url, pat) {
			return true
		}
	}
	return false
}

func (y *YouTube) Resolve(ctx context.Context, url string) (*VideoInfo, error) {
	doc, err := fetchOEmbed(ctx, y.client, y.endpoint, url)
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
