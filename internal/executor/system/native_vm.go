package system

import (
	"fmt"
	"math/big"
	"reflect"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/accounts/abi"
	ethcommon "github.com/ethereum/go-ethereum/common"
	"github.com/pkg/errors"
	"github.com/samber/lo"
	"github.com/sirupsen/logrus"

	"github.com/axiomesh/axiom-relay/internal/executor/system/common"
	"github.com/axiomesh/axiom-relay/internal/executor/system/pricefeed"
	"github.com/axiomesh/axiom-relay/internal/executor/system/saccount"
	"github.com/axiomesh/axiom-relay/internal/executor/system/stake"
	"github.com/axiomesh/axiom-relay/internal/executor/system/token"
	"github.com/axiomesh/axiom-relay/internal/ledger"
	"github.com/axiomesh/axiom-relay/pkg/loggers"
	"github.com/axiomesh/axiom-relay/pkg/repo"
)

var (
	ErrNotExistMethodName             = errors.New("not exist method name of this system contract")
	ErrNotImplementFuncSystemContract = errors.New("not implement the function for this system contract")
	ErrNegativeValue                  = errors.New("negative call value")
)

var errorType = reflect.TypeOf((*error)(nil)).Elem()

// deployment builds the contract instance serving one call
type deployment struct {
	name  string
	abi   *abi.ABI
	build func(addr ethcommon.Address, ctx *common.VMContext) common.SystemContract
}

func newDeployment[T common.SystemContract](cfg *common.SystemContractBuildConfig[T]) *deployment {
	return &deployment{
		name: cfg.Name,
		abi:  cfg.GetABI(),
		build: func(addr ethcommon.Address, ctx *common.VMContext) common.SystemContract {
			return cfg.BuildAt(addr, ctx)
		},
	}
}

var _ common.CrossCaller = (*NativeVM)(nil)

// NativeVM handle abi decoding for parameters and abi encoding for return data.
// Calls to addresses without a contract behave like calls to an externally owned account.
type NativeVM struct {
	logger logrus.FieldLogger

	// contract address mapping to deployment
	contracts map[ethcommon.Address]*deployment
	// every materialized smart account is served by this deployment
	account *deployment
}

func New() *NativeVM {
	nvm := &NativeVM{
		logger:    loggers.Logger(loggers.SystemContract),
		contracts: make(map[ethcommon.Address]*deployment),
		account:   newDeployment(saccount.SmartAccountBuildConfig),
	}

	// deploy all system contract
	nvm.Deploy(ethcommon.HexToAddress(common.EntryPointContractAddr), newDeployment(saccount.EntryPointBuildConfig))
	nvm.Deploy(ethcommon.HexToAddress(common.AccountFactoryContractAddr), newDeployment(saccount.SmartAccountFactoryBuildConfig))
	nvm.Deploy(ethcommon.HexToAddress(common.FixedLockStakeContractAddr), newDeployment(stake.FixedLockBuildConfig))
	nvm.Deploy(ethcommon.HexToAddress(common.DelayStakeContractAddr), newDeployment(stake.DelayBuildConfig))

	return nvm
}

func (nvm *NativeVM) Deploy(addr ethcommon.Address, d *deployment) {
	if _, ok := nvm.contracts[addr]; ok {
		panic(fmt.Sprintf("deploy system contract %s repeated", addr))
	}
	nvm.contracts[addr] = d
}

// DeployGenesis serves the tokens and price feeds created in genesis
func (nvm *NativeVM) DeployGenesis(genesis *repo.GenesisConfig) {
	for _, t := range genesis.Tokens {
		nvm.Deploy(ethcommon.HexToAddress(t.Address), newDeployment(token.BuildConfig))
	}
	for _, f := range genesis.PriceFeeds {
		nvm.Deploy(ethcommon.HexToAddress(f.Address), newDeployment(pricefeed.BuildConfig))
	}
}

// IsSystemContract reports whether calls to addr are served by a fixed deployment
func (nvm *NativeVM) IsSystemContract(addr ethcommon.Address) bool {
	_, ok := nvm.contracts[addr]
	return ok
}

func (nvm *NativeVM) resolve(ctx *common.VMContext, addr ethcommon.Address) *deployment {
	if d, ok := nvm.contracts[addr]; ok {
		return d
	}
	if saccount.IsSmartAccount(ctx, addr) {
		return nvm.account
	}
	return nil
}

// Call sends value and data from one address to another.
// Gas is charged to ctx's meter and every change made by a failed call is reverted.
func (nvm *NativeVM) Call(ctx *common.VMContext, from, to ethcommon.Address, value *big.Int, data []byte) (ret []byte, err error) {
	if value == nil {
		value = new(big.Int)
	}
	if value.Sign() < 0 {
		return nil, ErrNegativeValue
	}
	gas := common.CallGas + common.CalculateDynamicGas(data)
	if value.Sign() > 0 {
		gas += common.CallValueTransferGas
	}
	if ctx.GasMeter != nil {
		if err := ctx.GasMeter.Consume(gas, fmt.Sprintf("call %s", to)); err != nil {
			return nil, err
		}
	}

	snapshot := ctx.StateLedger.Snapshot()
	logStart := 0
	if ctx.CurrentLogs != nil {
		logStart = len(*ctx.CurrentLogs)
	}
	defer func() {
		if r := recover(); r != nil {
			nvm.logger.WithFields(logrus.Fields{"to": to, "from": from}).Errorf("system contract panic: %v", r)
			err = errors.Errorf("%v", r)
		}
		if err != nil {
			ctx.StateLedger.RevertToSnapshot(snapshot)
			if ctx.CurrentLogs != nil {
				*ctx.CurrentLogs = (*ctx.CurrentLogs)[:logStart]
			}
		}
	}()

	if err := ctx.StateLedger.Transfer(from, to, value); err != nil {
		return nil, err
	}

	d := nvm.resolve(ctx, to)
	if d == nil || len(data) == 0 {
		return nil, nil
	}
	child := ctx.Derive(from, value)
	child.Caller = nvm
	return nvm.run(d, to, child, data)
}

func (nvm *NativeVM) run(d *deployment, to ethcommon.Address, ctx *common.VMContext, data []byte) ([]byte, error) {
	if len(data) < 4 {
		return nil, ErrNotExistMethodName
	}
	method, err := d.abi.MethodById(data[:4])
	if err != nil {
		return nil, errors.Wrapf(ErrNotExistMethodName, "%s: %x", d.name, data[:4])
	}
	args, err := method.Inputs.Unpack(data[4:])
	if err != nil {
		return nil, errors.Wrapf(err, "unpack %s.%s args", d.name, method.Name)
	}

	instance := d.build(to, ctx)

	// capitalize the first letter of a function
	funcName := strings.ToUpper(method.RawName[:1]) + method.RawName[1:]
	fn := reflect.ValueOf(instance).MethodByName(funcName)
	if !fn.IsValid() {
		return nil, errors.Wrapf(ErrNotImplementFuncSystemContract, "%s.%s", d.name, funcName)
	}
	nvm.logger.Debugf("run system contract %s method %s", d.name, funcName)

	// maybe panic when inputs mismatch, but we recover
	results := fn.Call(lo.Map(args, func(arg any, _ int) reflect.Value {
		return reflect.ValueOf(arg)
	}))

	if n := len(results); n > 0 && fn.Type().Out(n-1) == errorType {
		if errValue := results[n-1]; !errValue.IsNil() {
			return nil, errValue.Interface().(error)
		}
		results = results[:n-1]
	}
	if len(method.Outputs) == 0 {
		return nil, nil
	}
	return method.Outputs.Pack(lo.Map(results, func(r reflect.Value, _ int) any {
		return r.Interface()
	})...)
}

// InitGenesisData creates the system contracts, genesis balances, tokens, price feeds and accounts
func InitGenesisData(nvm *NativeVM, cfg *repo.Config, genesis *repo.GenesisConfig, lg ledger.StateLedger) error {
	ctx := common.NewVMContext(lg, 0, 0, new(big.Int).SetUint64(cfg.ChainID), ethcommon.Address{})
	ctx.CallFromSystem = true
	ctx.GasMeter = common.NewInfiniteGasMeter()
	ctx.Caller = nvm

	saccount.EntryPointBuildConfig.Build(ctx).GenesisInit()
	saccount.SmartAccountFactoryBuildConfig.Build(ctx).GenesisInit()
	if err := stake.FixedLockBuildConfig.Build(ctx).GenesisInit(durationSeconds(cfg.Stake.FixedLockPeriod)); err != nil {
		return errors.Wrap(err, "init fixed lock stake")
	}
	if err := stake.DelayBuildConfig.Build(ctx).GenesisInit(durationSeconds(cfg.Stake.MinimumUnstakeDelay)); err != nil {
		return errors.Wrap(err, "init delay stake")
	}

	for _, b := range genesis.Balances {
		lg.AddBalance(ethcommon.HexToAddress(b.Address), b.BalanceValue())
	}

	admin := ethcommon.HexToAddress(genesis.Admin)
	for _, t := range genesis.Tokens {
		if err := token.BuildConfig.BuildAt(ethcommon.HexToAddress(t.Address), ctx).GenesisInit(admin, t); err != nil {
			return errors.Wrapf(err, "init token %s", t.Symbol)
		}
	}
	for _, f := range genesis.PriceFeeds {
		if err := pricefeed.BuildConfig.BuildAt(ethcommon.HexToAddress(f.Address), ctx).GenesisInit(admin, f); err != nil {
			return errors.Wrapf(err, "init price feed %s", f.Address)
		}
	}

	factory := saccount.SmartAccountFactoryBuildConfig.Build(ctx)
	implementation := ethcommon.HexToAddress(common.SmartAccountImplContractAddr)
	for _, a := range genesis.Accounts {
		guardians := lo.Map(a.Guardians, func(g string, _ int) ethcommon.Address {
			return ethcommon.HexToAddress(g)
		})
		addr, err := factory.CreateAccount(implementation, ethcommon.HexToAddress(a.Owner), guardians)
		if err != nil {
			return errors.Wrapf(err, "init account of %s", a.Owner)
		}
		if a.Balance != "" {
			lg.AddBalance(addr, (&repo.GenesisBalance{Balance: a.Balance}).BalanceValue())
		}
	}

	lg.Finalise()
	return nil
}

func durationSeconds(d repo.Duration) uint64 {
	return uint64(time.Duration(d) / time.Second)
}
