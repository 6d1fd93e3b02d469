package common

import (
	"math/big"
	"testing"

	ethcommon "github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/require"

	"github.com/axiomesh/axiom-relay/internal/ledger"
	"github.com/axiomesh/axiom-relay/pkg/repo"
)

const TestBlockTime = uint64(1700000000)

// TestNVM runs system contracts against an in-memory ledger
type TestNVM struct {
	t           testing.TB
	Rep         *repo.Repo
	StateLedger *ledger.StateLedgerImpl
	BlockNumber uint64
	BlockTime   uint64
	Caller      CrossCaller
	Logs        []Log
}

func NewTestNVM(t testing.TB) *TestNVM {
	return &TestNVM{
		t:           t,
		Rep:         repo.MockRepo(t),
		StateLedger: ledger.NewMemory(),
		BlockNumber: 1,
		BlockTime:   TestBlockTime,
	}
}

func (nvm *TestNVM) ChainID() *big.Int {
	return new(big.Int).SetUint64(nvm.Rep.Config.ChainID)
}

func (nvm *TestNVM) NewContext(from ethcommon.Address) *VMContext {
	ctx := NewVMContext(nvm.StateLedger, nvm.BlockNumber, nvm.BlockTime, nvm.ChainID(), from)
	ctx.CurrentLogs = &nvm.Logs
	ctx.GasMeter = NewInfiniteGasMeter()
	ctx.Caller = nvm.Caller
	return ctx
}

func (nvm *TestNVM) GenesisInit(init func(ctx *VMContext) error) {
	ctx := nvm.NewContext(ethcommon.Address{})
	ctx.CallFromSystem = true
	require.Nil(nvm.t, init(ctx))
	nvm.StateLedger.Finalise()
}

type TestNVMRunOption func(ctx *VMContext)

func TestNVMRunOptionCallFromSystem() TestNVMRunOption {
	return func(ctx *VMContext) {
		ctx.CallFromSystem = true
	}
}

func TestNVMRunOptionValue(value *big.Int) TestNVMRunOption {
	return func(ctx *VMContext) {
		ctx.Value = value
	}
}

func TestNVMRunOptionGasMeter(meter *GasMeter) TestNVMRunOption {
	return func(ctx *VMContext) {
		ctx.GasMeter = meter
	}
}

// RunSingleTX executes like one transaction: attached value moves to the contract first
// and every change is reverted when executor fails
func (nvm *TestNVM) RunSingleTX(contract SystemContract, from ethcommon.Address, executor func() error, opts ...TestNVMRunOption) error {
	snapshot := nvm.StateLedger.Snapshot()
	ctx := nvm.NewContext(from)
	for _, opt := range opts {
		opt(ctx)
	}
	contract.SetContext(ctx)

	err := func() error {
		if ctx.Value != nil && ctx.Value.Sign() > 0 {
			if base, ok := contract.(interface{ ContractAddress() ethcommon.Address }); ok {
				if err := nvm.StateLedger.Transfer(from, base.ContractAddress(), ctx.Value); err != nil {
					return err
				}
			}
		}
		return executor()
	}()
	if err != nil {
		nvm.StateLedger.RevertToSnapshot(snapshot)
		return err
	}
	nvm.StateLedger.Finalise()
	return nil
}

// Call runs a read only executor, all changes are reverted
func (nvm *TestNVM) Call(contract SystemContract, from ethcommon.Address, executor func()) {
	snapshot := nvm.StateLedger.Snapshot()
	contract.SetContext(nvm.NewContext(from))
	executor()
	nvm.StateLedger.RevertToSnapshot(snapshot)
}
