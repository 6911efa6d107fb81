package session

import (
	"context"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/workbench-ai/cli/internal/store"
)

// Refresher re-fetches the document collection into the store
type Refresher interface {
	RefreshDocuments(ctx context.Context) error
}

// Poller keeps the document collection fresh while any entry is still
// processing. It idles until the store reports a non-terminal document, then
// refreshes on a fixed interval until the collection settles again. The
// interval is a tunable, not a correctness property.
type Poller struct {
	refresher Refresher
	store     *store.Store
	interval  time.Duration
	log       *slog.Logger
	running   atomic.Bool
}

// NewPoller creates a poller over the given refresher and store
func NewPoller(r Refresher, st *store.Store, interval time.Duration, log *slog.Logger) *Poller {
	if interval <= 0 {
		interval = 2 * time.Second
	}
	return &Poller{refresher: r, store: st, interval: interval, log: log}
}

// Run drives the poll loop until ctx is cancelled. Calling Run on a poller
// that is already running returns immediately: the loop never
// double-schedules.
func (p *Poller) Run(ctx context.Context) {
	if !p.running.CompareAndSwap(false, true) {
		return
	}
	defer p.running.Store(false)

	// Subscribe before the first settled check so a mutation that lands in
	// between still wakes the idle wait.
	changes := p.store.Watch()

	for {
		if p.store.DocumentsSettled() {
			// Idle: no ticks, no requests. Woken only by a store change
			// or teardown.
			select {
			case <-ctx.Done():
				return
			case <-changes:
			}
			continue
		}

		p.poll(ctx)
		if ctx.Err() != nil {
			return
		}
	}
}

// poll runs ticks until the collection settles or ctx is cancelled
func (p *Poller) poll(ctx context.Context) {
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if p.store.DocumentsSettled() {
				// Converged between ticks (e.g. a local delete emptied the
				// collection); stop without another round trip.
				return
			}
			if err := p.refresher.RefreshDocuments(ctx); err != nil {
				if ctx.Err() != nil {
					return
				}
				// Stay on schedule: a transient fetch failure must not
				// silently stop background convergence.
				p.log.Warn("document refresh failed", "error", err)
			}
			if p.store.DocumentsSettled() {
				return
			}
		}
	}
}
