package videosource

import (
	"context"
	"fmt"
	"html"
	"io"
	"net/http"
	"regexp"
	"strings"
)

// Instagram resolves Reels by reading the page's OpenGraph meta tags:
// Instagram's oEmbed endpoint requires an app token, the og: tags do not.
type Instagram struct {
	client  *http.Client
	baseURL string // test override; empty means fetch the link itself
}

func NewInstagram(client *http.Client) *Instagram {
	return &Instagram{client: client}
}

func (i *Instagram) Name() string { return "Instagram" }

func (i *Instagram) Match(url string) bool {
	for _, pat := range []string{
		"instagram.com/reel/",
		"instagram.com/p/",
	} {
		if strings.Contains(url, pat) {
			return true
		}
	}
	return false
}

var ogMetaRe = regexp.MustCompile(`<meta[^>]+property="og:(title|description|image)"[^>]+content="([^"]*)"`)

func (i *Instagram) Resolve(ctx context.Context, url string) (*VideoInfo, error) {
	fetchURL := url
	if i.baseURL != "" {
		fetchURL = i.baseURL
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fetchURL, nil)
	if err != nil {
		return nil, err
	}
	// Instagram serves a login wall to obvious bots; a browser-ish UA keeps
	// the og: tags in the response.
	req.Header.Set("User-Agent", "Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36")

	resp, err := i.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("instagram: unexpected status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, err
	}

	info := &VideoInfo{URL: url}
	var description string
	for _, m := range ogMetaRe.FindAllStringSubmatch(string(body), -1) {
		val := html.UnescapeString(m[2])
		switch m[1] {
		case "title":
			info.Title = val
		case "description":
			description = val
		case "image":
			info.Thumbnail = val
		}
	}

	// The og:title is usually "<author> on Instagram"; the caption describes
	// the video better, so its first line wins when present.
	if t := captionTitle(description); t != "" {
		info.Title = t
	}
	if info.Title == "" {
		return nil, fmt.Errorf("instagram: no usable metadata in page")
	}
	return info, nil
}

// captionTitle reduces a caption to a single title-sized line.
func captionTitle(caption string) string {
	caption = strings.TrimSpace(caption)
	if caption == "" {
		return ""
	}
	first, _, _ := strings.Cut(caption, "\n")
	first = strings.TrimSpace(first)
	if r := []rune(first); len(r) > 200 {
		return string(r[:197]) + "..."
	}
	return first
}
