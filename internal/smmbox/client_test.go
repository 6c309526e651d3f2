package smmbox

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	logx "clipbot/pkg/logx"
)

const groupsJSON = `{"success":true,"response":[
	{"id":10,"social":"tg","type":"channel","name":"TG"},
	{"id":42,"social":"vk","type":"group","name":"Клипы"}
]}`

func newTestClient(t *testing.T, handler http.Handler) (*Client, *httptest.Server) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	c, err := New(Config{Token: "test-token", BaseURL: srv.URL, RatePerSec: 100}, srv.Client(), logx.Nop())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return c, srv
}

func TestNewRequiresToken(t *testing.T) {
	t.Parallel()
	if _, err := New(Config{}, nil, logx.Nop()); err == nil {
		t.Fatal("expected error for empty token")
	}
}

func TestVKGroupPicksFirstVK(t *testing.T) {
	t.Parallel()
	c, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/groups" {
			t.Errorf("path = %s", r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer test-token" {
			t.Errorf("Authorization = %q", got)
		}
		_, _ = w.Write([]byte(groupsJSON))
	}))

	g, err := c.VKGroup(context.Background())
	if err != nil {
		t.Fatalf("VKGroup: %v", err)
	}
	if g.ID != 42 || g.Social != "vk" || g.Type != "group" {
		t.Fatalf("VKGroup = %+v", g)
	}
}

func TestVKGroupMissing(t *testing.T) {
	t.Parallel()
	c, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"success":true,"response":[{"id":1,"social":"tg","type":"channel"}]}`))
	}))

	if _, err := c.VKGroup(context.Background()); !errors.Is(err, ErrNoVKGroup) {
		t.Fatalf("err = %v, want ErrNoVKGroup", err)
	}
}

func TestPostClipPayload(t *testing.T) {
	t.Parallel()
	c, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/groups":
			_, _ = w.Write([]byte(groupsJSON))
		case "/posts/postpone":
			var req postRequest
			if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
				t.Errorf("decode request: %v", err)
			}
			if len(req.Posts) != 1 {
				t.Fatalf("posts = %d, want 1", len(req.Posts))
			}
			p := req.Posts[0]
			if p.Group.ID != 42 || p.Group.Social != "vk" {
				t.Errorf("group = %+v", p.Group)
			}
			if p.Date != 1741600000 {
				t.Errorf("date = %d", p.Date)
			}
			if len(p.Options) != 1 || p.Options[0] != "reels" {
				t.Errorf("options = %v, want [reels]", p.Options)
			}
			if len(p.Attachments) != 1 {
				t.Fatalf("attachments = %d", len(p.Attachments))
			}
			a := p.Attachments[0]
			if a.Type != "video" || a.URL != "https://cdn/video.mp4" || a.Title != "Заголовок" {
				t.Errorf("attachment = %+v", a)
			}
			if a.Preview != "https://cdn/prev.jpg" || !a.CustomPreview {
				t.Errorf("preview = %+v", a)
			}
			_, _ = w.Write([]byte(`{"success":true,"response":{"ids":[7]}}`))
		default:
			t.Errorf("unexpected path %s", r.URL.Path)
		}
	}))

	err := c.PostClip(context.Background(), ClipPost{
		VideoURL:    "https://cdn/video.mp4",
		Title:       "Заголовок",
		ScheduledAt: 1741600000,
		PreviewURL:  "https://cdn/prev.jpg",
	})
	if err != nil {
		t.Fatalf("PostClip: %v", err)
	}
}

func TestPostClipAPIError(t *testing.T) {
	t.Parallel()
	c, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/groups" {
			_, _ = w.Write([]byte(groupsJSON))
			return
		}
		_, _ = w.Write([]byte(`{"success":false,"error":{"code":409,"message":"time slot busy"}}`))
	}))

	err := c.PostClip(context.Background(), ClipPost{VideoURL: "u", Title: "t", ScheduledAt: 1})
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("err = %v, want *APIError", err)
	}
	if apiErr.Code != 409 {
		t.Fatalf("Code = %d, want 409", apiErr.Code)
	}
}

func TestCallRejectsBadStatus(t *testing.T) {
	t.Parallel()
	c, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "down", http.StatusBadGateway)
	}))

	if _, err := c.Groups(context.Background()); err == nil {
		t.Fatal("expected error for HTTP 502")
	}
}
