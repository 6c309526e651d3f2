// Package translator turns video titles into Russian so posts read natively.
package translator

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	logx "clipbot/pkg/logx"
)

const defaultEndpoint = "https://translate.googleapis.com/translate_a/single"

// Translator translates text to Russian via the public Google endpoint.
//
// Translation is best-effort: a failed call returns the original text so a
// broken translation service never blocks posting.
type Translator struct {
	client   *http.Client
	endpoint string
	log      logx.Logger
}

func New(client *http.Client, log logx.Logger) *Translator {
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}
	if log.IsZero() {
		log = logx.Nop()
	}
	return &Translator{client: client, endpoint: defaultEndpoint, log: log}
}

// ToRussian translates text to Russian. Text that already contains Cyrillic
// letters is returned unchanged.
func (t *Translator) ToRussian(ctx context.Context, text string) string {
	if strings.TrimSpace(text) == "" {
		return text
	}
	if hasCyrillic(text) {
		t.log.Debug("text already in Russian, skipping translation")
		return text
	}

	translated, err := t.translate(ctx, text)
	if err != nil {
		t.log.Warn("translation failed, keeping original title", logx.Err(err))
		return text
	}
	return translated
}

func (t *Translator) translate(ctx context.Context, text string) (string, error) {
	q := url.Values{}
	q.Set("client", "gtx")
	q.Set("sl", "auto")
	q.Set("tl", "ru")
	q.Set("dt", "t")
	q.Set("q", text)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, t.endpoint+"?"+q.Encode(), nil)
	if err != nil {
		return "", err
	}
	resp, err := t.client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("translate: unexpected status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return "", err
	}
	return decodeSegments(body)
}

// decodeSegments extracts translated text from the endpoint's nested-array
// response: [[["segment1",...],["segment2",...],...],...].
func decodeSegments(body []byte) (string, error) {
	var doc []json.RawMessage
	if err := json.Unmarshal(body, &doc); err != nil {
		return "", fmt.Errorf("translate: decode: %w", err)
	}
	if len(doc) == 0 {
		return "", fmt.Errorf("translate: empty response")
	}

	var segments [][]json.RawMessage
	if err := json.Unmarshal(doc[0], &segments); err != nil {
		return "", fmt.Errorf("translate: decode segments: %w", err)
	}

	var b strings.Builder
	for _, seg := range segments {
		if len(seg) == 0 {
			continue
		}
		var s string
		if err := json.Unmarshal(seg[0], &s); err != nil {
			continue
		}
		b.WriteString(s)
	}
	out := b.String()
	if out == "" {
		return "", fmt.Errorf("translate: no text segments in response")
	}
	return out, nil
}

func hasCyrillic(text string) bool {
	for _, r := range text {
		if (r >= 'а' && r <= 'я') || (r >= 'А' && r <= 'Я') || r == 'ё' || r == 'Ё' {
			return true
		}
	}
	return false
}
