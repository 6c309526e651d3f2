// Package storage persists the posting calendar.
//
// One table, one row per scheduled post. Timestamps are integer Unix
// seconds so day-range queries stay exact and timezone-independent.
package storage
