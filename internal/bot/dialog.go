package bot

import (
	"sync"

	"clipbot/internal/videosource"
)

type dialogState int

const (
	stateIdle dialogState = iota
	stateAwaitConfirm
	stateAwaitTitle
)

// draft holds the in-flight clip submission for one chat.
type draft struct {
	State         dialogState
	Info          *videosource.VideoInfo
	OriginalTitle string
	Title         string // translated or user-provided
}

// dialogs is the in-memory per-chat FSM store. State does not survive
// restarts; an interrupted dialog simply starts over.
type dialogs struct {
	mu sync.Mutex
	m  map[int64]*draft
}

func newDialogs() *dialogs {
	return &dialogs{m: map[int64]*draft{}}
}

func (d *dialogs) get(chatID int64) *draft {
	d.mu.Lock()
	defer d.mu.Unlock()
	if dr, ok := d.m[chatID]; ok {
		return dr
	}
	return &draft{State: stateIdle}
}

func (d *dialogs) put(chatID int64, dr *draft) {
	d.mu.Lock()
	d.m[chatID] = dr
	d.mu.Unlock()
}

func (d *dialogs) clear(chatID int64) {
	d.mu.Lock()
	delete(d.m, chatID)
	d.mu.Unlock()
}
