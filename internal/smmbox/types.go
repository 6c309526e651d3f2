package smmbox

import (
	"encoding/json"
	"fmt"
)

// Group is a community connected to the SMMBox account.
type Group struct {
	ID     int64  `json:"id"`
	Social string `json:"social"`
	Type   string `json:"type"`
	Name   string `json:"name"`
}

// ClipPost describes one postponed clip publication.
type ClipPost struct {
	VideoURL    string
	Title       string
	ScheduledAt int64 // Unix seconds; when SMMBox should publish
	PreviewURL  string
}

// APIError is an application-level failure reported by the SMMBox API
// (HTTP 200 with success=false).
type APIError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func (e *APIError) Error() string {
	if e.Code != 0 {
		return fmt.Sprintf("smmbox: api error %d: %s", e.Code, e.Message)
	}
	return "smmbox: api error: " + e.Message
}

// envelope is the common response wrapper of every SMMBox endpoint.
type envelope struct {
	Success  bool            `json:"success"`
	Response json.RawMessage `json:"response"`
	Error    *APIError       `json:"error"`
}

// ---- request payloads ----

type postRequest struct {
	Posts []postEntry `json:"posts"`
}

type postEntry struct {
	Group       groupRef     `json:"group"`
	Date        int64        `json:"date"`
	Attachments []attachment `json:"attachments"`
	Options     []string     `json:"options,omitempty"`
}

type groupRef struct {
	ID     int64  `json:"id"`
	Social string `json:"social"`
	Type   string `json:"type"`
}

type attachment struct {
	Type          string `json:"type"`
	URL           string `json:"url,omitempty"`
	Title         string `json:"title,omitempty"`
	Preview       string `json:"preview,omitempty"`
	CustomPreview bool   `json:"custom_preview,omitempty"`
}
