package autosave

import (
	"sync"
	"time"
)

// State is the chart load lifecycle. Autosave checks state == Ready and
// nothing else.
type State int

const (
	// Loading: the chart's initial fetch (including dependent reference
	// lists) has not completed.
	Loading State = iota
	// Loaded: the fetch completed; the settle delay is running so the load
	// sequence's own default-state writes cannot race real server data.
	Loaded
	// Ready: autosave is armed.
	Ready
)

// LoadState is the readiness gate for one open chart tab.
type LoadState struct {
	mu     sync.Mutex
	state  State
	settle time.Duration
	timer  *time.Timer
}

func NewLoadState(settle time.Duration) *LoadState {
	return &LoadState{settle: settle}
}

// MarkLoaded is the single transition function: Loading → Loaded, then
// Ready after the settle delay. Calling it again is a no-op.
func (l *LoadState) MarkLoaded() {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.state != Loading {
		return
	}
	l.state = Loaded
	l.timer = time.AfterFunc(l.settle, func() {
		l.mu.Lock()
		defer l.mu.Unlock()
		if l.state == Loaded {
			l.state = Ready
		}
	})
}

// State returns the current lifecycle state.
func (l *LoadState) State() State {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.state
}

// Ready reports whether autosave flushes may fire.
func (l *LoadState) Ready() bool {
	return l.State() == Ready
}
