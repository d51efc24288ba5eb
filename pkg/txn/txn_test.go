package txn_test

import (
	"context"
	"errors"
	"testing"

	"github.com/modforge/modforge/pkg/merr"
	"github.com/modforge/modforge/pkg/txn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeLocker struct {
	locked   bool
	blockErr error
}

func (f *fakeLocker) Lock(block bool) error {
	if f.locked && !block {
		return errors.New("locked by another process")
	}
	f.locked = true
	return nil
}

func (f *fakeLocker) Unlock() error {
	f.locked = false
	return nil
}

func TestCommitPromotesPersistersAndDiscardsUndo(t *testing.T) {
	locker := &fakeLocker{}
	saved := false
	coord := txn.NewCoordinator(locker, true, txn.Persister{
		Name: "doc", Path: "/doc.xml",
		Save: func(path string) error { saved = true; return nil },
	})

	ctx, tx, err := coord.Begin(context.Background())
	require.NoError(t, err)

	undoRan := false
	tx.Journal("noop", func() error { undoRan = true; return nil })

	require.NoError(t, tx.Commit(ctx))
	assert.True(t, saved)
	assert.False(t, undoRan, "commit must discard the undo journal, not run it")
	assert.False(t, locker.locked, "commit must release the ledger lock")
}

func TestRollbackReplaysUndoInReverseOrder(t *testing.T) {
	locker := &fakeLocker{}
	coord := txn.NewCoordinator(locker, true)

	_, tx, err := coord.Begin(context.Background())
	require.NoError(t, err)

	var order []int
	tx.Journal("first", func() error { order = append(order, 1); return nil })
	tx.Journal("second", func() error { order = append(order, 2); return nil })
	tx.Journal("third", func() error { order = append(order, 3); return nil })

	require.NoError(t, tx.Rollback())
	assert.Equal(t, []int{3, 2, 1}, order)
	assert.False(t, locker.locked)
}

func TestCommitFailureRollsBackAndReturnsAbortedCode(t *testing.T) {
	locker := &fakeLocker{}
	coord := txn.NewCoordinator(locker, true, txn.Persister{
		Name: "doc", Path: "/doc.xml",
		Save: func(path string) error { return errors.New("disk full") },
	})

	ctx, tx, err := coord.Begin(context.Background())
	require.NoError(t, err)

	undone := false
	tx.Journal("step", func() error { undone = true; return nil })

	err = tx.Commit(ctx)
	require.Error(t, err)
	assert.True(t, merr.Is(err, merr.ErrTransactionAborted))
	assert.True(t, undone, "commit failure must replay the undo journal")
}

func TestCancelledContextForcesRollbackOnCommit(t *testing.T) {
	locker := &fakeLocker{}
	coord := txn.NewCoordinator(locker, true)

	ctx, cancel := context.WithCancel(context.Background())
	txCtx, tx, err := coord.Begin(ctx)
	require.NoError(t, err)
	cancel()

	undone := false
	tx.Journal("step", func() error { undone = true; return nil })

	err = tx.Commit(txCtx)
	require.Error(t, err)
	assert.True(t, merr.Is(err, merr.ErrCancelled))
	assert.True(t, undone)
}

func TestNestedBeginReentersSameTransactionUntilOutermostConcludes(t *testing.T) {
	locker := &fakeLocker{}
	saveCount := 0
	coord := txn.NewCoordinator(locker, true, txn.Persister{
		Name: "doc", Path: "/doc.xml",
		Save: func(path string) error { saveCount++; return nil },
	})

	ctx, outer, err := coord.Begin(context.Background())
	require.NoError(t, err)

	innerCtx, inner, err := coord.Begin(ctx)
	require.NoError(t, err)
	assert.Same(t, outer, inner, "nested Begin must re-enter the same Tx")

	// The nested Commit must not release the lock or promote persisters.
	require.NoError(t, inner.Commit(innerCtx))
	assert.True(t, locker.locked, "nested commit must not release the outer transaction's lock")
	assert.Equal(t, 0, saveCount)

	require.NoError(t, outer.Commit(ctx))
	assert.Equal(t, 1, saveCount)
	assert.False(t, locker.locked)
}

func TestFailFastLockPolicyReturnsErrorWhenAlreadyHeld(t *testing.T) {
	locker := &fakeLocker{locked: true}
	coord := txn.NewCoordinator(locker, false)

	_, _, err := coord.Begin(context.Background())
	require.Error(t, err)
	assert.True(t, merr.Is(err, merr.ErrTransactionAborted))
}
