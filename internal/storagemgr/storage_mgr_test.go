package storagemgr

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/axiomesh/axiom-relay/pkg/repo"
)

func TestInitializeWrongType(t *testing.T) {
	err := Initialize("unsupport", repo.KVStorageCacheSize, false)
	require.NotNil(t, err)
	require.Contains(t, err.Error(), "unknow kv type unsupport")
}

func TestOpen(t *testing.T) {
	for _, typ := range []string{repo.KVStorageTypeMemory, repo.KVStorageTypePebble} {
		t.Run(typ, func(t *testing.T) {
			require.Nil(t, Initialize(typ, repo.KVStorageCacheSize, false))

			rep := repo.MockRepo(t)
			p := GetLedgerComponentPath(rep, Ledger)
			s, err := Open(p)
			require.Nil(t, err)
			require.NotNil(t, s)

			s2, err := Open(p)
			require.Nil(t, err)
			assert.True(t, s == s2)

			s.Put([]byte("k"), []byte("v"))
			assert.EqualValues(t, []byte("v"), s.Get([]byte("k")))
			require.Nil(t, Close(p))
		})
	}
}

func TestStorageBackends(t *testing.T) {
	require.Nil(t, Initialize(repo.KVStorageTypePebble, repo.KVStorageCacheSize, false))
	pebbleStorage, err := OpenSpecifyType(repo.KVStorageTypePebble, repo.GetStoragePath(t.TempDir()))
	require.Nil(t, err)
	defer pebbleStorage.Close()

	backends := map[string]Storage{
		"memory":        NewMemory(),
		"cached_memory": NewCachedStorage(NewMemory(), 10),
		"cached_pebble": pebbleStorage,
	}

	tests := []struct {
		key   []byte
		value []byte
	}{
		{key: []byte("k1"), value: []byte("v1")},
		{key: []byte("k2"), value: []byte("value2")},
	}
	for name, s := range backends {
		for i, tt := range tests {
			t.Run(fmt.Sprintf("%s_non_batch_%d", name, i), func(t *testing.T) {
				require.Nil(t, s.Get(tt.key))
				require.False(t, s.Has(tt.key))

				s.Put(tt.key, tt.value)
				require.EqualValues(t, tt.value, s.Get(tt.key))
				require.True(t, s.Has(tt.key))

				s.Put(tt.key, nil)
				require.Nil(t, s.Get(tt.key))
				require.False(t, s.Has(tt.key))
			})
		}

		t.Run(name+"_batch", func(t *testing.T) {
			b := s.NewBatch()
			for _, tt := range tests {
				b.Put(tt.key, tt.value)
			}
			assert.Greater(t, b.Size(), 0)
			require.Nil(t, s.Get(tests[0].key))
			b.Commit()
			for _, tt := range tests {
				require.EqualValues(t, tt.value, s.Get(tt.key))
			}

			b = s.NewBatch()
			for _, tt := range tests {
				b.Delete(tt.key)
			}
			b.Commit()
			for _, tt := range tests {
				require.Nil(t, s.Get(tt.key))
			}
		})
	}
}
