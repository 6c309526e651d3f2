// Package tgui holds small Telegram UI helpers: HTML-safe text building
// and inline keyboard construction.
package tgui
