// Package txn implements the Transaction Coordinator of spec.md §4.4: a
// cross-cutting two-phase-commit protocol binding Installation Log
// mutations and Virtual Mod Activator filesystem work into an
// all-or-nothing unit, replaying journaled undo records on abort.
package txn

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"github.com/modforge/modforge/pkg/merr"
	"github.com/modforge/modforge/pkg/mlog"
)

// Persister is something the coordinator promotes at commit time —
// normally *ledger.Ledger.Save and *vma.Activator.Save, each already
// bound to their document path.
type Persister struct {
	Name string
	Save func(path string) error
	Path string
}

// Coordinator serializes transactions with a process-wide mutex (spec.md
// §4.4 "Isolation") and holds the cross-process advisory lock for the
// duration of every transaction via ledgerLocker.
type Coordinator struct {
	// mu is the process-wide mutex; only one transaction may be open at
	// a time. Nested Begin calls within the same transaction re-enter
	// without acquiring it again (detected via the context-carried Tx).
	mu sync.Mutex

	ledgerLocker LedgerLocker
	blockOnLock  bool
	persisters   []Persister
}

// LedgerLocker is the narrow view of *ledger.Ledger the coordinator
// needs: the advisory cross-process lock spec.md §5 and §6.1 describe.
type LedgerLocker interface {
	Lock(block bool) error
	Unlock() error
}

// NewCoordinator returns a Coordinator that locks locker for the
// duration of every transaction and promotes persisters on commit.
// blockOnLock selects the policy spec.md §5 calls out: true blocks a
// concurrent second process's begin() until the lock frees, false fails
// it fast.
func NewCoordinator(locker LedgerLocker, blockOnLock bool, persisters ...Persister) *Coordinator {
	return &Coordinator{ledgerLocker: locker, blockOnLock: blockOnLock, persisters: persisters}
}

type ctxKey struct{}

// FromContext returns the transaction carried by ctx, if any.
func FromContext(ctx context.Context) (*Tx, bool) {
	tx, ok := ctx.Value(ctxKey{}).(*Tx)
	return tx, ok
}

func withTx(ctx context.Context, tx *Tx) context.Context {
	return context.WithValue(ctx, ctxKey{}, tx)
}

// undoRecord is the journaled inverse of one mutation, per spec.md
// §4.4's "each mutation enqueues an undo record (inverse operation +
// enough state to restore it)".
type undoRecord struct {
	id   string
	desc string
	fn   func() error
}

// Tx is a transaction handle. Callers obtain one from Coordinator.Begin
// and conclude it with Commit or Rollback; nested Begin calls carrying
// the same context re-enter this same Tx (spec.md §4.4).
type Tx struct {
	ID          string
	coordinator *Coordinator

	mu    sync.Mutex
	depth int
	undo  []undoRecord
}

// Begin opens a new transaction, or re-enters the one already carried
// by ctx. The returned context carries the Tx for downstream calls;
// pass it to nested Begin calls instead of the original ctx to get
// re-entrant behavior. On a fresh Begin this acquires both the
// process-wide mutex and the ledger's cross-process advisory lock,
// releasing both only when the outermost Commit or Rollback completes.
func (c *Coordinator) Begin(ctx context.Context) (context.Context, *Tx, error) {
	if tx, ok := FromContext(ctx); ok && tx.coordinator == c {
		tx.mu.Lock()
		tx.depth++
		tx.mu.Unlock()
		return ctx, tx, nil
	}

	c.mu.Lock()
	if err := c.ledgerLocker.Lock(c.blockOnLock); err != nil {
		c.mu.Unlock()
		return ctx, nil, merr.Wrap(err, merr.ErrTransactionAborted, "failed to begin transaction")
	}

	id := uuid.New().String()
	tx := &Tx{ID: id, coordinator: c, depth: 1}
	log := mlog.Get("txn")
	log.Info().Str("txID", id).Msg("transaction begun")
	return withTx(ctx, tx), tx, nil
}

// Journal enqueues undo, the inverse of a mutation already applied by
// the caller, to be replayed in reverse order on Rollback. Filesystem
// mutations and IL/VMA mutations alike are journaled this way; spec.md
// §4.4's "forward staging record" is simply the caller's own already-
// executed call, since IL and VMA apply mutations to their in-memory
// state (the "shadow") synchronously rather than queuing them.
func (tx *Tx) Journal(desc string, undo func() error) {
	tx.mu.Lock()
	defer tx.mu.Unlock()
	tx.undo = append(tx.undo, undoRecord{id: uuid.New().String(), desc: desc, fn: undo})
}

// Commit promotes every registered Persister (writing the IL and
// overlay documents to disk) and discards the undo journal on success.
// A nested Commit (depth > 1) only decrements the re-entrancy counter.
// If ctx has already been cancelled, Commit rolls back instead,
// implementing spec.md §5's "cancellation received mid-transaction is
// equivalent to abort".
func (tx *Tx) Commit(ctx context.Context) error {
	if !tx.leaveNested() {
		return nil
	}

	if err := ctx.Err(); err != nil {
		_ = tx.replayUndo()
		tx.end()
		return merr.Wrap(err, merr.ErrCancelled, "transaction cancelled before commit")
	}

	for _, p := range tx.coordinator.persisters {
		if err := p.Save(p.Path); err != nil {
			_ = tx.replayUndo()
			tx.end()
			return merr.Wrap(err, merr.ErrTransactionAborted, "commit failed, rolled back").
				WithDetail("persister", p.Name)
		}
	}

	tx.mu.Lock()
	tx.undo = nil
	tx.mu.Unlock()
	log := mlog.Get("txn")
	log.Info().Str("txID", tx.ID).Msg("transaction committed")
	tx.end()
	return nil
}

// Rollback replays the undo journal in reverse order and releases the
// transaction's locks. A nested Rollback only decrements the
// re-entrancy counter; only the outermost call actually replays.
func (tx *Tx) Rollback() error {
	if !tx.leaveNested() {
		return nil
	}
	err := tx.replayUndo()
	tx.end()
	return err
}

// leaveNested decrements the re-entrancy depth and reports whether this
// call is the outermost one (the one that should actually act).
func (tx *Tx) leaveNested() bool {
	tx.mu.Lock()
	defer tx.mu.Unlock()
	if tx.depth > 1 {
		tx.depth--
		return false
	}
	return true
}

func (tx *Tx) replayUndo() error {
	tx.mu.Lock()
	records := tx.undo
	tx.undo = nil
	tx.mu.Unlock()

	log := mlog.Get("txn")
	var failed []string
	for i := len(records) - 1; i >= 0; i-- {
		r := records[i]
		if err := r.fn(); err != nil {
			log.Warn().Str("txID", tx.ID).Str("undo", r.desc).Err(err).Msg("undo step failed")
			failed = append(failed, r.desc)
		}
	}
	log.Info().Str("txID", tx.ID).Int("steps", len(records)).Msg("transaction rolled back")
	if len(failed) > 0 {
		return merr.New(merr.ErrTransactionAborted, "one or more undo steps failed").
			WithDetail("steps", failed)
	}
	return nil
}

func (tx *Tx) end() {
	tx.coordinator.ledgerLocker.Unlock()
	tx.coordinator.mu.Unlock()
}
