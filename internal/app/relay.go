package app

import (
	"context"
	"encoding/binary"
	"math/big"
	"sync"
	"time"

	"github.com/common-nighthawk/go-figure"
	ethcommon "github.com/ethereum/go-ethereum/common"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/axiomesh/axiom-relay/internal/executor/system"
	"github.com/axiomesh/axiom-relay/internal/executor/system/common"
	"github.com/axiomesh/axiom-relay/internal/executor/system/saccount"
	"github.com/axiomesh/axiom-relay/internal/executor/system/saccount/interfaces"
	"github.com/axiomesh/axiom-relay/internal/executor/system/stake"
	"github.com/axiomesh/axiom-relay/internal/ledger"
	"github.com/axiomesh/axiom-relay/internal/storagemgr"
	"github.com/axiomesh/axiom-relay/pkg/loggers"
	"github.com/axiomesh/axiom-relay/pkg/repo"
)

var batchHeightKey = []byte("relay-batch-height")

var ErrStopped = errors.New("relay stopped")

// Relay owns the state ledger and runs operation batches against it one at a time
type Relay struct {
	Ctx    context.Context
	Cancel context.CancelFunc
	Repo   *repo.Repo
	logger logrus.FieldLogger

	StateLedger *ledger.StateLedgerImpl
	NVM         *system.NativeVM

	storagePath string
	backend     storagemgr.Storage
	baseFee     *big.Int
	redeemer    ethcommon.Address
	now         func() time.Time

	// guards the ledger, batches and queries never overlap
	lock        sync.Mutex
	batchHeight uint64
}

func NewRelay(rep *repo.Repo, ctx context.Context, cancel context.CancelFunc) (*Relay, error) {
	logger := loggers.Logger(loggers.App)
	cfg := rep.Config

	if err := storagemgr.Initialize(cfg.Storage.KvType, cfg.Storage.KvCacheSize, cfg.Storage.Sync); err != nil {
		return nil, errors.Wrap(err, "init storage manager")
	}
	storagePath := storagemgr.GetLedgerComponentPath(rep, storagemgr.Ledger)
	backend, err := storagemgr.Open(storagePath)
	if err != nil {
		return nil, errors.Wrap(err, "open ledger storage")
	}

	r := &Relay{
		Ctx:         ctx,
		Cancel:      cancel,
		Repo:        rep,
		logger:      logger,
		StateLedger: ledger.NewStateLedger(backend),
		NVM:         system.New(),
		storagePath: storagePath,
		backend:     backend,
		baseFee:     new(big.Int).SetUint64(cfg.Relay.BaseFee),
		now:         time.Now,
	}
	if cfg.Relay.Redeemer != "" {
		if !ethcommon.IsHexAddress(cfg.Relay.Redeemer) {
			return nil, errors.Errorf("invalid redeemer address %q", cfg.Relay.Redeemer)
		}
		r.redeemer = ethcommon.HexToAddress(cfg.Relay.Redeemer)
	}
	r.NVM.DeployGenesis(rep.GenesisConfig)
	saccount.ResizeAddressCache(cfg.Relay.AddressCacheSize)

	if !r.StateLedger.HasCode(ethcommon.HexToAddress(common.EntryPointContractAddr)) {
		if err := rep.GenesisConfig.Validate(); err != nil {
			return nil, err
		}
		if err := system.InitGenesisData(r.NVM, cfg, rep.GenesisConfig, r.StateLedger); err != nil {
			return nil, errors.Wrap(err, "init genesis data")
		}
		if err := r.StateLedger.Commit(); err != nil {
			return nil, errors.Wrap(err, "commit genesis data")
		}
		logger.WithFields(logrus.Fields{
			"tokens":      len(rep.GenesisConfig.Tokens),
			"price_feeds": len(rep.GenesisConfig.PriceFeeds),
			"accounts":    len(rep.GenesisConfig.Accounts),
		}).Info("Initialize genesis")
	}

	if raw := backend.Get(batchHeightKey); len(raw) == 8 {
		r.batchHeight = binary.BigEndian.Uint64(raw)
	}
	logger.WithField("batch_height", r.batchHeight).Info("Relay state loaded")
	return r, nil
}

func (r *Relay) Start() error {
	r.logger.WithFields(logrus.Fields{
		"chain_id":       r.Repo.Config.ChainID,
		"base_fee":       r.baseFee,
		"max_batch_size": r.Repo.Config.Relay.MaxBatchSize,
	}).Infof("%s started", repo.AppName)
	fig := figure.NewFigure(repo.AppName, "slant", true)
	r.logger.Infof(`
=========================================================================================
%s
=========================================================================================
`, fig.String())
	return nil
}

func (r *Relay) Stop() error {
	r.Cancel()

	r.lock.Lock()
	defer r.lock.Unlock()
	if err := storagemgr.Close(r.storagePath); err != nil {
		return errors.Wrap(err, "close ledger storage")
	}
	r.logger.Infof("%s stopped", repo.AppName)
	return nil
}

func (r *Relay) ChainID() uint64 {
	return r.Repo.Config.ChainID
}

func (r *Relay) BatchHeight() uint64 {
	r.lock.Lock()
	defer r.lock.Unlock()
	return r.batchHeight
}

func (r *Relay) newContext(from ethcommon.Address, blockNumber uint64) *common.VMContext {
	ctx := common.NewVMContext(r.StateLedger, blockNumber, uint64(r.now().Unix()), new(big.Int).SetUint64(r.Repo.Config.ChainID), from)
	ctx.GasMeter = common.NewInfiniteGasMeter()
	ctx.Caller = r.NVM
	return ctx
}

func (r *Relay) entryPoint(ctx *common.VMContext) *saccount.EntryPoint {
	ep := saccount.EntryPointBuildConfig.Build(ctx)
	ep.Configure(r.baseFee, r.Repo.Config.Relay.MaxBatchSize)
	return ep
}

// SubmitBatch runs ops as one batch paying redeemer, the configured redeemer is used when it is zero.
// On success the ledger is committed, otherwise nothing of the batch is kept.
func (r *Relay) SubmitBatch(ops []*interfaces.Operation, redeemer ethcommon.Address) (*saccount.BatchResult, error) {
	r.lock.Lock()
	defer r.lock.Unlock()

	if r.Ctx.Err() != nil {
		return nil, ErrStopped
	}
	if redeemer == (ethcommon.Address{}) {
		redeemer = r.redeemer
	}

	start := time.Now()
	height := r.batchHeight + 1
	snapshot := r.StateLedger.Snapshot()
	result, err := r.entryPoint(r.newContext(redeemer, height)).HandleOps(ops, redeemer)
	if err != nil {
		r.StateLedger.RevertToSnapshot(snapshot)
		r.StateLedger.Finalise()
		batchCounter.WithLabelValues(batchStatusRejected).Inc()
		opFailureCounter.WithLabelValues(string(interfaces.ErrorCode(err))).Inc()
		return nil, err
	}

	if err := r.StateLedger.Commit(); err != nil {
		r.logger.WithField("height", height).Errorf("commit batch failed: %v", err)
		return nil, errors.Wrap(err, "commit batch")
	}
	r.batchHeight = height
	raw := make([]byte, 8)
	binary.BigEndian.PutUint64(raw, height)
	r.backend.Put(batchHeightKey, raw)

	batchCounter.WithLabelValues(batchStatusCommitted).Inc()
	opCounter.Add(float64(len(result.Receipts)))
	batchDuration.Observe(time.Since(start).Seconds())
	collected, _ := new(big.Float).SetInt(result.Collected).Float64()
	collectedCostCounter.Add(collected)

	r.logger.WithFields(logrus.Fields{
		"height":    height,
		"ops":       len(result.Receipts),
		"redeemer":  redeemer,
		"collected": result.Collected,
		"elapsed":   time.Since(start),
	}).Info("Batch committed")
	return result, nil
}

// query runs fn against a throwaway entry point, nothing it writes is kept
func (r *Relay) query(fn func(ep *saccount.EntryPoint) error) error {
	r.lock.Lock()
	defer r.lock.Unlock()

	snapshot := r.StateLedger.Snapshot()
	defer func() {
		r.StateLedger.RevertToSnapshot(snapshot)
		r.StateLedger.Finalise()
	}()
	return fn(r.entryPoint(r.newContext(ethcommon.Address{}, r.batchHeight+1)))
}

func (r *Relay) SimulateValidation(op *interfaces.Operation) (res *saccount.ValidationResult, err error) {
	err = r.query(func(ep *saccount.EntryPoint) error {
		res, err = ep.SimulateValidation(op)
		return err
	})
	return res, err
}

func (r *Relay) GetRequestHash(op *interfaces.Operation) (hash ethcommon.Hash, err error) {
	err = r.query(func(ep *saccount.EntryPoint) error {
		hash = ep.GetRequestHash(op)
		return nil
	})
	return hash, err
}

func (r *Relay) GetSenderAddress(initCode []byte) (addr ethcommon.Address, err error) {
	err = r.query(func(ep *saccount.EntryPoint) error {
		addr, err = ep.GetSenderAddress(initCode)
		return err
	})
	return addr, err
}

func (r *Relay) GetNonce(sender ethcommon.Address) (nonce *big.Int, err error) {
	err = r.query(func(ep *saccount.EntryPoint) error {
		nonce, err = ep.GetNonce(sender)
		return err
	})
	return nonce, err
}

func (r *Relay) GetGuardians(sender ethcommon.Address) (guardians []ethcommon.Address, err error) {
	err = r.query(func(ep *saccount.EntryPoint) error {
		guardians, err = ep.GetGuardians(sender)
		return err
	})
	return guardians, err
}

func (r *Relay) GetStake(addr ethcommon.Address) (entry *stake.Entry, err error) {
	err = r.query(func(ep *saccount.EntryPoint) error {
		entry, err = ep.GetStake(addr)
		return err
	})
	return entry, err
}

func (r *Relay) GetBalance(addr ethcommon.Address) *big.Int {
	r.lock.Lock()
	defer r.lock.Unlock()
	return new(big.Int).Set(r.StateLedger.GetBalance(addr))
}
