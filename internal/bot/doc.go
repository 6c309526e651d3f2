// Package bot routes incoming chat updates to command handlers and drives
// the clip submission dialog (URL -> title confirmation -> publish).
package bot
