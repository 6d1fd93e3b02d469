package relay

import (
	"context"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/juju/ratelimit"
	"github.com/samber/lo"
	"github.com/sirupsen/logrus"

	"github.com/axiomesh/axiom-relay/internal/coreapi/api"
	"github.com/axiomesh/axiom-relay/internal/executor/system/saccount"
	"github.com/axiomesh/axiom-relay/internal/executor/system/saccount/interfaces"
	"github.com/axiomesh/axiom-relay/internal/executor/system/stake"
	"github.com/axiomesh/axiom-relay/pkg/repo"
)

// RelayAPI provides the relay_ namespace
type RelayAPI struct {
	ctx    context.Context
	cancel context.CancelFunc
	rep    *repo.Repo
	api    api.CoreAPI
	logger logrus.FieldLogger

	readLimiter  *ratelimit.Bucket
	writeLimiter *ratelimit.Bucket
}

func NewRelayAPI(rep *repo.Repo, api api.CoreAPI, logger logrus.FieldLogger) *RelayAPI {
	ctx, cancel := context.WithCancel(context.Background())
	return &RelayAPI{
		ctx:          ctx,
		cancel:       cancel,
		rep:          rep,
		api:          api,
		logger:       logger,
		readLimiter:  newLimiter(rep.Config.JsonRPC.ReadLimiter),
		writeLimiter: newLimiter(rep.Config.JsonRPC.WriteLimiter),
	}
}

func newLimiter(cfg repo.JLimiter) *ratelimit.Bucket {
	if !cfg.Enable || cfg.Interval <= 0 || cfg.Capacity <= 0 || cfg.Quantum <= 0 {
		return nil
	}
	return ratelimit.NewBucketWithQuantum(cfg.Interval.ToDuration(), cfg.Capacity, cfg.Quantum)
}

func take(bucket *ratelimit.Bucket) error {
	if bucket != nil && bucket.TakeAvailable(1) == 0 {
		return ErrRateLimited
	}
	return nil
}

// SubmitBatch handles ops as one batch, the whole batch is rejected when any operation fails
func (api *RelayAPI) SubmitBatch(ops []*interfaces.Operation, redeemer common.Address) (*saccount.BatchResult, error) {
	if err := take(api.writeLimiter); err != nil {
		return nil, err
	}
	if lo.Contains(ops, nil) {
		return nil, newRelayError(ErrNilOperation)
	}
	result, err := api.api.Broker().SubmitBatch(ops, redeemer)
	if err != nil {
		api.logger.WithFields(logrus.Fields{
			"ops":  len(ops),
			"code": interfaces.ErrorCode(err),
		}).Debugf("submit batch failed: %v", err)
		return nil, newRelayError(err)
	}
	return result, nil
}

func (api *RelayAPI) SimulateValidation(op *interfaces.Operation) (*saccount.ValidationResult, error) {
	if err := take(api.readLimiter); err != nil {
		return nil, err
	}
	if op == nil {
		return nil, newRelayError(ErrNilOperation)
	}
	res, err := api.api.Broker().SimulateValidation(op)
	return res, newRelayError(err)
}

func (api *RelayAPI) GetRequestHash(op *interfaces.Operation) (common.Hash, error) {
	if err := take(api.readLimiter); err != nil {
		return common.Hash{}, err
	}
	if op == nil {
		return common.Hash{}, newRelayError(ErrNilOperation)
	}
	hash, err := api.api.Broker().GetRequestHash(op)
	return hash, newRelayError(err)
}

func (api *RelayAPI) GetSenderAddress(initCode hexutil.Bytes) (common.Address, error) {
	if err := take(api.readLimiter); err != nil {
		return common.Address{}, err
	}
	addr, err := api.api.Broker().GetSenderAddress(initCode)
	return addr, newRelayError(err)
}

func (api *RelayAPI) GetNonce(sender common.Address) (*hexutil.Big, error) {
	if err := take(api.readLimiter); err != nil {
		return nil, err
	}
	nonce, err := api.api.Chain().GetNonce(sender)
	if err != nil {
		return nil, newRelayError(err)
	}
	return (*hexutil.Big)(nonce), nil
}

func (api *RelayAPI) GetGuardians(sender common.Address) ([]common.Address, error) {
	if err := take(api.readLimiter); err != nil {
		return nil, err
	}
	guardians, err := api.api.Chain().GetGuardians(sender)
	return guardians, newRelayError(err)
}

func (api *RelayAPI) GetStake(addr common.Address) (*stake.Entry, error) {
	if err := take(api.readLimiter); err != nil {
		return nil, err
	}
	entry, err := api.api.Chain().GetStake(addr)
	return entry, newRelayError(err)
}

func (api *RelayAPI) GetBalance(addr common.Address) *hexutil.Big {
	return (*hexutil.Big)(api.api.Chain().GetBalance(addr))
}

func (api *RelayAPI) ChainId() hexutil.Uint64 {
	return hexutil.Uint64(api.api.Chain().ChainID())
}

func (api *RelayAPI) BatchHeight() hexutil.Uint64 {
	return hexutil.Uint64(api.api.Chain().BatchHeight())
}

func (api *RelayAPI) Status() any {
	return map[string]any{
		"status":       api.api.Chain().Status(),
		"batch_height": api.api.Chain().BatchHeight(),
	}
}
