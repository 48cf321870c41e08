// Copyright (c) 2025 The core-lido developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package store

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPutGet(t *testing.T) {
	db, err := NewMem()
	require.NoError(t, err)
	defer db.Close()

	key := []byte("key")
	value := []byte("value")

	require.NoError(t, db.Put(key, value))

	got, err := db.Get(key)
	require.NoError(t, err)
	assert.Equal(t, value, got)

	has, err := db.Has(key)
	require.NoError(t, err)
	assert.True(t, has)
}

func TestGetMissing(t *testing.T) {
	db, err := NewMem()
	require.NoError(t, err)
	defer db.Close()

	_, err = db.Get([]byte("missing"))
	require.Error(t, err)
	assert.True(t, db.IsNotFound(err))

	has, err := db.Has([]byte("missing"))
	require.NoError(t, err)
	assert.False(t, has)
}

func TestDelete(t *testing.T) {
	db, err := NewMem()
	require.NoError(t, err)
	defer db.Close()

	key := []byte("key")
	require.NoError(t, db.Put(key, []byte("value")))
	require.NoError(t, db.Delete(key))

	_, err = db.Get(key)
	assert.True(t, db.IsNotFound(err))

	// deleting an absent key is not an error
	require.NoError(t, db.Delete(key))
}

func TestOverwrite(t *testing.T) {
	db, err := NewMem()
	require.NoError(t, err)
	defer db.Close()

	key := []byte("key")
	require.NoError(t, db.Put(key, []byte("one")))
	require.NoError(t, db.Put(key, []byte("two")))

	got, err := db.Get(key)
	require.NoError(t, err)
	assert.Equal(t, []byte("two"), got)
}
