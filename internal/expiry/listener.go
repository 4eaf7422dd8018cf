package expiry

import (
	"context"
	"log"
	"sync"

	"github.com/quickpick/api/internal/store"
)

// ReasonInactivity tags expiries driven by the TTL lapsing rather than an
// explicit delete.
const ReasonInactivity = "inactivity"

// Listener is the process-wide subscription to the store's expired-key
// feed. It watches for bare session-record keys (sub-keys expire at the
// same instant and would otherwise fire one event per owned key), extracts
// the code and hands it to the callback. One instance per process, owned by
// whoever wires the engine together.
type Listener struct {
	store     store.Store
	onExpired func(code, reason string)

	mu      sync.Mutex
	stop    func()
	done    chan struct{}
	started bool
}

func NewListener(st store.Store, onExpired func(code, reason string)) *Listener {
	return &Listener{store: st, onExpired: onExpired}
}

// Start opens the subscription and begins dispatching. The subscription
// uses a connection of its own; failure to open it is returned to the
// caller, who may treat it as non-fatal since passive TTL expiry still
// purges sessions without it.
func (l *Listener) Start(ctx context.Context) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.started {
		return nil
	}

	feed, stop, err := l.store.SubscribeExpired(ctx)
	if err != nil {
		return err
	}
	l.stop = stop
	l.done = make(chan struct{})
	l.started = true

	go func() {
		defer close(l.done)
		for key := range feed {
			code, ok := store.SessionCodeFromExpiredKey(key)
			if !ok {
				// Sub-keys of a session expire alongside the record
				// and are skipped quietly; anything outside the key
				// layout should not be on this feed at all.
				if !store.IsOwnedKey(key) {
					log.Printf("Warning: ignoring unexpected expired key %q", key)
				}
				continue
			}
			log.Printf("session %s expired (%s)", code, ReasonInactivity)
			l.onExpired(code, ReasonInactivity)
		}
	}()

	log.Println("Expiry listener started")
	return nil
}

// Stop closes the subscription and waits for the dispatch loop to drain.
func (l *Listener) Stop() {
	l.mu.Lock()
	defer l.mu.Unlock()

	if !l.started {
		return
	}
	l.stop()
	<-l.done
	l.started = false
}
