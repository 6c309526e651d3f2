// Package videosource detects which platform a short-video link belongs to
// and fetches its metadata (title, thumbnail, author) without downloading
// the media itself.
package videosource
