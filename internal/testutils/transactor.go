package testutils

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/phrazzld/certquest-api/internal/store"
)

// Transactor serialises every transaction through one mutex, modelling the
// row and advisory locks of the Postgres implementation. The *sql.Tx handed
// to fn is nil; the in-memory stores ignore it in WithTx.
//
// Writes made before fn returns an error are undone only for the tracked
// stores; the rest keep them.
type Transactor struct {
	mu      sync.Mutex
	count   atomic.Int64
	tracked []Snapshotter
}

// Snapshotter is an in-memory store whose state can be restored when a
// transaction fails.
type Snapshotter interface {
	Snapshot() (restore func())
}

// NewTransactor returns a ready Transactor that rolls back the tracked stores.
func NewTransactor(tracked ...Snapshotter) *Transactor {
	return &Transactor{tracked: tracked}
}

var _ store.Transactor = (*Transactor)(nil)

// WithinTx implements store.Transactor.
func (t *Transactor) WithinTx(ctx context.Context, fn store.TxFn) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.count.Add(1)

	restore := make([]func(), len(t.tracked))
	for i, s := range t.tracked {
		restore[i] = s.Snapshot()
	}
	err := fn(ctx, nil)
	if err != nil {
		for i := len(restore) - 1; i >= 0; i-- {
			restore[i]()
		}
	}
	return err
}

// Count returns the number of transactions run so far.
func (t *Transactor) Count() int {
	return int(t.count.Load())
}
