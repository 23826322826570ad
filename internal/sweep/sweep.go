// Package sweep periodically force-expires due donations. Each due id goes
// through the worker pool and lands on the coordinator's CAS, so the sweep
// can run as often as it likes without racing claims.
package sweep

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/surpluslink/go-surpluslink/internal/capacity"
	"github.com/surpluslink/go-surpluslink/internal/worker"
)

// Expirer is the slice of the coordinator the sweep needs.
type Expirer interface {
	DueDonationIDs(ctx context.Context) ([]string, error)
	ExpireOne(ctx context.Context, donationID string) (bool, error)
}

type Manager struct {
	interval time.Duration
	expirer  Expirer
	tracker  *capacity.Tracker
	pool     *worker.Pool
	wg       sync.WaitGroup
}

func NewManager(interval time.Duration, workers, bufferSize int, expirer Expirer, tracker *capacity.Tracker) *Manager {
	m := &Manager{
		interval: interval,
		expirer:  expirer,
		tracker:  tracker,
	}
	m.pool = worker.NewPool(workers, bufferSize, func(ctx context.Context, task worker.Task) error {
		_, err := expirer.ExpireOne(ctx, string(task))
		if err != nil {
			slog.Error("expire task failed", "id", string(task), "error", err)
		}
		return err
	})
	return m
}

func (m *Manager) Start(ctx context.Context) {
	m.pool.Start(ctx)

	m.wg.Add(1)
	go m.run(ctx)
}

func (m *Manager) run(ctx context.Context) {
	defer m.wg.Done()
	slog.Info("starting expiry sweep", "interval", m.interval)

	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	// Initial pass picks up anything that went stale while we were down.
	m.sweep(ctx)

	for {
		select {
		case <-ctx.Done():
			slog.Info("expiry sweep shutting down")
			return
		case <-ticker.C:
			m.sweep(ctx)
		}
	}
}

func (m *Manager) sweep(ctx context.Context) {
	ids, err := m.expirer.DueDonationIDs(ctx)
	if err != nil {
		slog.Error("sweep listing failed", "error", err)
		return
	}

	for _, id := range ids {
		select {
		case <-ctx.Done():
			return
		default:
			m.pool.Submit(worker.Task(id))
		}
	}

	if m.tracker != nil {
		m.tracker.Prune()
	}

	if len(ids) > 0 {
		slog.Debug("sweep pass complete", "due", len(ids))
	}
}

func (m *Manager) Stop() {
	m.wg.Wait()
	m.pool.Stop()
	slog.Info("expiry sweep stopped")
}
