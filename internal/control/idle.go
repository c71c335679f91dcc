package control

import (
	"log"
	"sync"

	"github.com/famish99/casterboard/internal/board"
)

// Subsystems reported to idle waiters
const (
	SubsystemPlayer = "player" // slot play/pause/stop
	SubsystemMixer  = "mixer"  // ducking
	SubsystemBoard  = "board"  // slot configuration or board name
	SubsystemDeck   = "deck"   // boards opened, closed, or activated
)

// Waiter is one registered idle wait
type Waiter struct {
	subsystems map[string]bool // empty = all
	notify     chan string
}

// C delivers the names of changed subsystems
func (w *Waiter) C() <-chan string {
	return w.notify
}

// Idle fans subsystem changes out to waiting clients. Safe for concurrent use.
type Idle struct {
	mu      sync.RWMutex
	waiters map[*Waiter]bool
}

// NewIdle creates an empty notifier
func NewIdle() *Idle {
	return &Idle{waiters: make(map[*Waiter]bool)}
}

// Register starts watching the given subsystems (none = all)
func (i *Idle) Register(subsystems ...string) *Waiter {
	w := &Waiter{
		subsystems: make(map[string]bool),
		notify:     make(chan string, 10),
	}
	for _, s := range subsystems {
		w.subsystems[s] = true
	}

	i.mu.Lock()
	defer i.mu.Unlock()
	i.waiters[w] = true
	return w
}

// Unregister stops delivering to w
func (i *Idle) Unregister(w *Waiter) {
	i.mu.Lock()
	defer i.mu.Unlock()
	delete(i.waiters, w)
}

// Notify tells every interested waiter that subsystem changed.
// It never blocks; a waiter with a full channel misses the notification.
func (i *Idle) Notify(subsystem string) {
	i.mu.RLock()
	defer i.mu.RUnlock()

	for w := range i.waiters {
		if len(w.subsystems) > 0 && !w.subsystems[subsystem] {
			continue
		}
		select {
		case w.notify <- subsystem:
		default:
			log.Printf("Warning: idle notification channel full")
		}
	}
}

// Listener adapts slot events to subsystem notifications
func (i *Idle) Listener() board.Listener {
	return func(ev board.Event) {
		switch ev.Kind {
		case board.EventTransition:
			i.Notify(SubsystemPlayer)
		case board.EventDucking:
			i.Notify(SubsystemMixer)
		case board.EventReconfigured:
			i.Notify(SubsystemBoard)
		}
	}
}
