package storagemgr

import (
	"fmt"
	"path/filepath"
	"runtime"
	"sync"
	"time"

	"github.com/Rican7/retry"
	"github.com/Rican7/retry/strategy"
	pebbledb "github.com/cockroachdb/pebble"
	"github.com/cockroachdb/pebble/bloom"

	"github.com/axiomesh/axiom-relay/pkg/loggers"
	"github.com/axiomesh/axiom-relay/pkg/repo"
)

const (
	Ledger = "ledger"
)

type builder func(p string) (Storage, error)

var globalStorageMgr = &storageMgr{
	storageBuilderMap: make(map[string]builder),
	storages:          make(map[string]Storage),
	lock:              new(sync.Mutex),
}

func init() {
	memoryBuilder := func(p string) (Storage, error) {
		return NewMemory(), nil
	}

	globalStorageMgr.storageBuilderMap[repo.KVStorageTypeMemory] = memoryBuilder
	globalStorageMgr.storageBuilderMap[""] = memoryBuilder
	globalStorageMgr.defaultKVType = repo.KVStorageTypeMemory
}

type storageMgr struct {
	storageBuilderMap map[string]builder
	storages          map[string]Storage
	defaultKVType     string
	cacheSize         int
	lock              *sync.Mutex
}

func defaultPebbleOptions(cacheSize int) *pebbledb.Options {
	return &pebbledb.Options{
		Cache:                       pebbledb.NewCache(int64(cacheSize * 1024 * 1024)),
		MemTableStopWritesThreshold: 2,
		MaxConcurrentCompactions:    func() int { return runtime.NumCPU() },
		Levels: []pebbledb.LevelOptions{
			{TargetFileSize: 2 * 1024 * 1024, BlockSize: 32 * 1024, FilterPolicy: bloom.FilterPolicy(10)},
			{TargetFileSize: 4 * 1024 * 1024, BlockSize: 32 * 1024, FilterPolicy: bloom.FilterPolicy(10)},
			{TargetFileSize: 8 * 1024 * 1024, BlockSize: 32 * 1024, FilterPolicy: bloom.FilterPolicy(10)},
		},
	}
}

func (m *storageMgr) open(typ string, p string) (Storage, error) {
	b, ok := m.storageBuilderMap[typ]
	if !ok {
		return nil, fmt.Errorf("unknow kv type %s, expect memory or pebble", typ)
	}
	return b(p)
}

func Initialize(typ string, cacheSize int, sync bool) error {
	globalStorageMgr.lock.Lock()
	defer globalStorageMgr.lock.Unlock()

	globalStorageMgr.storageBuilderMap[repo.KVStorageTypePebble] = func(p string) (Storage, error) {
		var s Storage
		// another process may still hold the directory lock right after a restart
		err := retry.Retry(func(attempt uint) error {
			var err error
			s, err = NewPebble(p, defaultPebbleOptions(cacheSize), &pebbledb.WriteOptions{Sync: sync}, loggers.Logger(loggers.Storage))
			if err != nil {
				loggers.Logger(loggers.Storage).Warnf("open pebble %s failed, attempt %d: %v", p, attempt, err)
			}
			return err
		}, strategy.Limit(3), strategy.Wait(200*time.Millisecond))
		if err != nil {
			return nil, err
		}
		return NewCachedStorage(s, cacheSize), nil
	}
	if _, ok := globalStorageMgr.storageBuilderMap[typ]; !ok {
		return fmt.Errorf("unknow kv type %s, expect memory or pebble", typ)
	}
	globalStorageMgr.defaultKVType = typ
	globalStorageMgr.cacheSize = cacheSize
	return nil
}

func Open(p string) (Storage, error) {
	return OpenSpecifyType(globalStorageMgr.defaultKVType, p)
}

func OpenSpecifyType(typ string, p string) (Storage, error) {
	globalStorageMgr.lock.Lock()
	defer globalStorageMgr.lock.Unlock()
	s, ok := globalStorageMgr.storages[p]
	if !ok {
		var err error
		s, err = globalStorageMgr.open(typ, p)
		if err != nil {
			return nil, err
		}
		globalStorageMgr.storages[p] = s
	}
	return s, nil
}

// Close closes and forgets the storage opened at p
func Close(p string) error {
	globalStorageMgr.lock.Lock()
	defer globalStorageMgr.lock.Unlock()
	s, ok := globalStorageMgr.storages[p]
	if !ok {
		return nil
	}
	delete(globalStorageMgr.storages, p)
	return s.Close()
}

func GetLedgerComponentPath(rep *repo.Repo, component string) string {
	return filepath.Join(repo.GetStoragePath(rep.RepoRoot), component)
}
