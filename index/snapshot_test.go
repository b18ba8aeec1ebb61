package index_test

import (
	"testing"

	"github.com/fwojciec/optsearch"
	"github.com/fwojciec/optsearch/index"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSnapshotRoundTrip(t *testing.T) {
	t.Parallel()

	ix := index.New()
	ix.Build(nginxRecords())

	snap := ix.Snapshot()
	require.NotNil(t, snap)

	encoded, err := index.EncodeDerived(snap.Derived)
	require.NoError(t, err)

	decoded, err := index.DecodeDerived(encoded)
	require.NoError(t, err)

	restored := index.New()
	require.NoError(t, restored.Restore(&index.Snapshot{
		Dataset: snap.Dataset,
		Derived: decoded,
	}, 1))

	// The restored index answers queries identically.
	want, err := ix.Search("nginx", 10)
	require.NoError(t, err)
	got, err := restored.Search("nginx", 10)
	require.NoError(t, err)
	assert.Equal(t, resultNames(want), resultNames(got))

	opts, err := restored.ListPrefix("services.nginx")
	require.NoError(t, err)
	assert.Len(t, opts, 3)
}

func TestSnapshotOfEmptyIndexIsNil(t *testing.T) {
	t.Parallel()

	assert.Nil(t, index.New().Snapshot())
}

func TestRestoreRejectsTooSmallSnapshot(t *testing.T) {
	t.Parallel()

	ix := index.New()
	ix.Build(nginxRecords())
	snap := ix.Snapshot()

	restored := index.New()
	err := restored.Restore(snap, 10)
	assert.Equal(t, optsearch.EINVALID, optsearch.ErrorCode(err))
	assert.False(t, restored.Built(), "failed restore must leave the index empty")
}

func TestValidateRejectsCorruptSnapshots(t *testing.T) {
	t.Parallel()

	build := func() *index.Snapshot {
		ix := index.New()
		ix.Build(nginxRecords())
		return ix.Snapshot()
	}

	t.Run("nil snapshot", func(t *testing.T) {
		t.Parallel()
		var s *index.Snapshot
		assert.Error(t, s.Validate(1))
	})

	t.Run("version mismatch", func(t *testing.T) {
		t.Parallel()
		s := build()
		s.Derived.Version = index.DerivedVersion + 1
		assert.Error(t, s.Validate(1))
	})

	t.Run("count mismatch", func(t *testing.T) {
		t.Parallel()
		s := build()
		s.Dataset.Count++
		assert.Error(t, s.Validate(1))
	})

	t.Run("missing derived mapping", func(t *testing.T) {
		t.Parallel()
		s := build()
		s.Derived.Words = nil
		assert.Error(t, s.Validate(1))
	})

	t.Run("dangling derived name", func(t *testing.T) {
		t.Parallel()
		s := build()
		s.Derived.Words["ghost"] = []string{"no.such.option"}
		assert.Error(t, s.Validate(1))
	})
}
