package txnlog_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kavih/zabcore/internal/txn"
	"github.com/kavih/zabcore/internal/txnlog"
	"github.com/kavih/zabcore/internal/zxid"
)

func mustTxn(t *testing.T, epoch, xid int64, txnType int32, body string) txn.Transaction {
	t.Helper()

	tx, err := txn.New(zxid.New(epoch, xid), txnType, []byte(body))
	require.NoError(t, err)

	return tx
}

// TestSimpleAppendAndRecover is scenario S1 from the spec: append three
// transactions, sync, close, reopen without a hint, and confirm both
// the recovered last zxid and a full iteration match.
func TestSimpleAppendAndRecover(t *testing.T) {
	t.Parallel()

	fsys := newMemFS()
	path := "log"

	l, err := txnlog.Open(fsys, path, nil)
	require.NoError(t, err)

	txns := []txn.Transaction{
		mustTxn(t, 0, 1, 1, "a"),
		mustTxn(t, 0, 2, 1, "b"),
		mustTxn(t, 0, 3, 1, "c"),
	}

	for _, tx := range txns {
		require.NoError(t, l.Append(tx))
	}

	require.NoError(t, l.Sync())
	require.NoError(t, l.Close())

	reopened, err := txnlog.Open(fsys, path, nil)
	require.NoError(t, err)

	assert.Equal(t, zxid.New(0, 3), reopened.GetLatestZxid())

	it, err := reopened.GetIterator(zxid.NotExist)
	require.NoError(t, err)

	var got []txn.Transaction

	for it.HasNext() {
		tx, err := it.Next()
		require.NoError(t, err)
		got = append(got, tx)
	}

	require.NoError(t, it.Close())
	require.Len(t, got, 3)

	for i, tx := range got {
		assert.Equal(t, txns[i].Zxid, tx.Zxid)
		assert.Equal(t, txns[i].Body, tx.Body)
	}
}

// TestTruncateSuffix is scenario S2: after S1, truncate to (0,2) and
// confirm the file length, latest zxid, and iteration all reflect only
// the kept prefix.
func TestTruncateSuffix(t *testing.T) {
	t.Parallel()

	fsys := newMemFS()
	path := "log"

	l, err := txnlog.Open(fsys, path, nil)
	require.NoError(t, err)

	for _, tx := range []txn.Transaction{
		mustTxn(t, 0, 1, 1, "a"),
		mustTxn(t, 0, 2, 1, "b"),
		mustTxn(t, 0, 3, 1, "c"),
	} {
		require.NoError(t, l.Append(tx))
	}

	require.NoError(t, l.Sync())

	require.NoError(t, l.Truncate(zxid.New(0, 2)))

	length, err := l.Length()
	require.NoError(t, err)
	assert.Equal(t, int64(50), length)
	assert.Equal(t, zxid.New(0, 2), l.GetLatestZxid())

	it, err := l.GetIterator(zxid.NotExist)
	require.NoError(t, err)

	var got []zxid.Zxid

	for it.HasNext() {
		tx, err := it.Next()
		require.NoError(t, err)
		got = append(got, tx.Zxid)
	}

	require.NoError(t, it.Close())
	assert.Equal(t, []zxid.Zxid{zxid.New(0, 1), zxid.New(0, 2)}, got)
}

func TestAppendOutOfOrderRejected(t *testing.T) {
	t.Parallel()

	fsys := newMemFS()

	l, err := txnlog.Open(fsys, "log", nil)
	require.NoError(t, err)

	require.NoError(t, l.Append(mustTxn(t, 0, 5, 1, "x")))

	err = l.Append(mustTxn(t, 0, 5, 1, "y"))
	assert.ErrorIs(t, err, txnlog.ErrOutOfOrder)

	err = l.Append(mustTxn(t, 0, 4, 1, "z"))
	assert.ErrorIs(t, err, txnlog.ErrOutOfOrder)

	assert.Equal(t, zxid.New(0, 5), l.GetLatestZxid(), "a rejected append must not change last-seen zxid")
}

func TestGetIteratorPositionsAtOrAfterTarget(t *testing.T) {
	t.Parallel()

	fsys := newMemFS()

	l, err := txnlog.Open(fsys, "log", nil)
	require.NoError(t, err)

	for _, x := range []int64{1, 3, 5, 7} {
		require.NoError(t, l.Append(mustTxn(t, 0, x, 1, "x")))
	}

	require.NoError(t, l.Sync())

	it, err := l.GetIterator(zxid.New(0, 4))
	require.NoError(t, err)
	require.True(t, it.HasNext())

	first, err := it.Next()
	require.NoError(t, err)
	assert.Equal(t, zxid.New(0, 5), first.Zxid)

	it2, err := l.GetIterator(zxid.New(0, 100))
	require.NoError(t, err)
	assert.False(t, it2.HasNext())
}

func TestBackwardIdempotence(t *testing.T) {
	t.Parallel()

	fsys := newMemFS()

	l, err := txnlog.Open(fsys, "log", nil)
	require.NoError(t, err)

	require.NoError(t, l.Append(mustTxn(t, 0, 1, 1, "a")))
	require.NoError(t, l.Append(mustTxn(t, 0, 2, 1, "bb")))
	require.NoError(t, l.Sync())

	it, err := l.GetIterator(zxid.NotExist)
	require.NoError(t, err)

	first, err := it.Next()
	require.NoError(t, err)
	assert.Equal(t, zxid.New(0, 1), first.Zxid)

	require.NoError(t, it.Backward())

	again, err := it.Next()
	require.NoError(t, err)
	assert.Equal(t, first.Zxid, again.Zxid)
	assert.Equal(t, first.Body, again.Body)

	second, err := it.Next()
	require.NoError(t, err)
	assert.Equal(t, zxid.New(0, 2), second.Zxid)
}

func TestOpenRecoversFromEmptyFile(t *testing.T) {
	t.Parallel()

	fsys := newMemFS()

	l, err := txnlog.Open(fsys, "log", nil)
	require.NoError(t, err)
	assert.Equal(t, zxid.NotExist, l.GetLatestZxid())
}

func TestOpenFailsOnPartialTrailingRecord(t *testing.T) {
	t.Parallel()

	fsys := newMemFS()

	l, err := txnlog.Open(fsys, "log", nil)
	require.NoError(t, err)
	require.NoError(t, l.Append(mustTxn(t, 0, 1, 1, "hello")))
	require.NoError(t, l.Sync())
	require.NoError(t, l.Close())

	backing := fsys.files["log"]
	backing.data = backing.data[:len(backing.data)-2]

	_, err = txnlog.Open(fsys, "log", nil)
	assert.ErrorIs(t, err, txnlog.ErrCorrupt)
}

func TestTrimIsUnsupported(t *testing.T) {
	t.Parallel()

	fsys := newMemFS()

	l, err := txnlog.Open(fsys, "log", nil)
	require.NoError(t, err)

	err = l.Trim(zxid.New(0, 1))
	assert.ErrorIs(t, err, txnlog.ErrUnsupported)
}

func TestSyncFailureClosesWriter(t *testing.T) {
	t.Parallel()

	fsys := newMemFS()

	l, err := txnlog.Open(fsys, "log", nil)
	require.NoError(t, err)
	require.NoError(t, l.Append(mustTxn(t, 0, 1, 1, "x")))

	fsys.backing("log").failNextSync = true

	err = l.Sync()
	require.Error(t, err)

	err = l.Append(mustTxn(t, 0, 2, 1, "y"))
	assert.ErrorIs(t, err, txnlog.ErrClosed, "append after a failed sync must not silently continue writing")
}

func TestOpenWithSuppliedHintSkipsScan(t *testing.T) {
	t.Parallel()

	fsys := newMemFS()

	l, err := txnlog.Open(fsys, "log", nil)
	require.NoError(t, err)
	require.NoError(t, l.Append(mustTxn(t, 0, 1, 1, "x")))
	require.NoError(t, l.Sync())
	require.NoError(t, l.Close())

	hint := zxid.New(0, 1)

	reopened, err := txnlog.Open(fsys, "log", &hint)
	require.NoError(t, err)
	assert.Equal(t, hint, reopened.GetLatestZxid())
}
