// Copyright (C) 2024, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package state

import (
	"testing"

	"github.com/ava-labs/avalanchego/database"
	"github.com/ava-labs/avalanchego/database/memdb"
	"github.com/stretchr/testify/require"

	"github.com/ava-labs/movevm/pebble"
)

func keys(it database.Iterator) []string {
	defer it.Release()

	var out []string
	for it.Next() {
		out = append(out, string(it.Key()))
	}
	return out
}

func fill(t *testing.T, s *Store) {
	for _, k := range []string{"a", "b", "c", "d"} {
		require.NoError(t, s.Set([]byte(k), []byte(k)))
	}
}

func TestStoreIterators(t *testing.T) {
	pdb, _, err := pebble.New(t.TempDir(), pebble.NewDefaultConfig())
	require.NoError(t, err)
	defer func() {
		require.NoError(t, pdb.Close())
	}()

	for name, db := range map[string]database.Database{
		"memdb":  memdb.New(),
		"pebble": pdb,
	} {
		t.Run(name, func(t *testing.T) {
			require := require.New(t)

			s := NewStore(db)
			fill(t, s)

			require.Equal([]string{"a", "b", "c", "d"}, keys(s.Iterator(nil, nil)))
			require.Equal([]string{"b", "c"}, keys(s.Iterator([]byte("b"), []byte("d"))))
			require.Equal([]string{"d", "c", "b", "a"}, keys(s.ReverseIterator(nil, nil)))
			require.Equal([]string{"c", "b"}, keys(s.ReverseIterator([]byte("b"), []byte("d"))))
			require.Empty(keys(s.Iterator([]byte("x"), nil)))
		})
	}
}

func TestStoreNilValue(t *testing.T) {
	require := require.New(t)

	s := NewStore(memdb.New())
	require.NoError(s.Set([]byte("k"), nil))
	v, err := s.Get([]byte("k"))
	require.NoError(err)
	require.Equal([]byte{}, v)

	require.NoError(s.Delete([]byte("k")))
	_, err = s.Get([]byte("k"))
	require.ErrorIs(err, database.ErrNotFound)
}

func TestStaged(t *testing.T) {
	require := require.New(t)

	db := memdb.New()
	base := NewStore(db)
	fill(t, base)

	s := NewStaged(db)
	require.NoError(s.Set([]byte("e"), []byte("e")))
	require.NoError(s.Delete([]byte("a")))
	require.Equal([]string{"b", "c", "d", "e"}, keys(s.Iterator(nil, nil)))
	require.Equal([]string{"e", "d", "c", "b"}, keys(s.ReverseIterator(nil, nil)))

	// Nothing reaches the database before Commit.
	_, err := base.Get([]byte("e"))
	require.ErrorIs(err, database.ErrNotFound)

	s.Abort()
	_, err = s.Get([]byte("e"))
	require.ErrorIs(err, database.ErrNotFound)
	v, err := s.Get([]byte("a"))
	require.NoError(err)
	require.Equal([]byte("a"), v)

	require.NoError(s.Set([]byte("e"), []byte("e")))
	require.NoError(s.Commit())
	v, err = base.Get([]byte("e"))
	require.NoError(err)
	require.Equal([]byte("e"), v)
}

func TestReverseIterator(t *testing.T) {
	require := require.New(t)

	s := NewStore(memdb.New())
	fill(t, s)

	it := s.ReverseIterator([]byte("b"), nil)
	require.Nil(it.Key())
	require.True(it.Next())
	require.Equal([]byte("d"), it.Key())
	require.Equal([]byte("d"), it.Value())
	require.True(it.Next())
	require.True(it.Next())
	require.Equal([]byte("b"), it.Key())
	require.False(it.Next())
	require.Nil(it.Key())
	require.NoError(it.Error())
	it.Release()
	require.False(it.Next())
}

func TestRecorder(t *testing.T) {
	require := require.New(t)

	s := NewStore(memdb.New())
	require.NoError(s.Set([]byte("old"), []byte("1")))

	r := NewRecorder(s)
	_, err := r.Get([]byte("missing"))
	require.ErrorIs(err, database.ErrNotFound)
	require.NoError(r.Set([]byte("old"), []byte("2")))
	require.NoError(r.Set([]byte("new"), []byte("3")))
	require.NoError(r.Delete([]byte("gone")))
	require.Equal([]string{"new", "old"}, keys(r.Iterator([]byte("n"), nil)))

	k := r.Keys()
	require.Equal([]string{"gone", "missing", "new", "old"}, k.Sorted())
	require.Equal(Read, k["missing"])
	require.Equal(Update|Scan, k["old"])
	require.Equal(Create|Scan, k["new"])
	require.Equal(Delete, k["gone"])
	require.True(k["new"].Mutates())
	require.False(k["missing"].Mutates())
	require.Equal("scan|create", k["new"].String())
	require.Equal("read", k["missing"].String())
	require.Equal("none", None.String())
}

func TestCommittableRecorder(t *testing.T) {
	require := require.New(t)

	db := memdb.New()
	r := NewCommittableRecorder(NewStaged(db))
	require.NoError(r.Set([]byte("k"), []byte("v")))
	r.Abort()
	has, err := db.Has([]byte("k"))
	require.NoError(err)
	require.False(has)

	require.NoError(r.Set([]byte("k"), []byte("v")))
	require.NoError(r.Commit())
	v, err := db.Get([]byte("k"))
	require.NoError(err)
	require.Equal([]byte("v"), v)
	require.Equal(Create, r.Keys()["k"])
}
