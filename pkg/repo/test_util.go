package repo

import (
	"testing"
	"time"
)

func MockRepo(t testing.TB) *Repo {
	rep := Default(t.TempDir())
	rep.Config.Storage.KvType = KVStorageTypeMemory
	rep.Config.JsonRPC.Enable = false
	rep.Config.Monitor.Enable = false
	rep.Config.Stake.FixedLockPeriod = Duration(time.Hour)
	rep.Config.Stake.MinimumUnstakeDelay = Duration(time.Hour)
	return rep
}
