package common

import (
	"math/big"
	"strings"
	"sync"

	"github.com/ethereum/go-ethereum/accounts/abi"
	ethcommon "github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/sirupsen/logrus"

	"github.com/axiomesh/axiom-relay/internal/ledger"
	"github.com/axiomesh/axiom-relay/pkg/loggers"
)

const (
	// ZeroAddress is a special address, no one has control
	ZeroAddress = "0x0000000000000000000000000000000000000000"

	// system contract address range 0x1000-0xffff, start from 1000, avoid conflicts with precompiled contracts
	// SystemContractStartAddr is the start address of system contract
	SystemContractStartAddr = "0x0000000000000000000000000000000000001000"

	// EntryPointContractAddr is the relay identity: it is bound into every request hash and holds batch custody
	EntryPointContractAddr = "0x0000000000000000000000000000000000001000"

	// AccountFactoryContractAddr derives and materializes smart accounts
	AccountFactoryContractAddr = "0x0000000000000000000000000000000000001001"

	// FixedLockStakeContractAddr is the stake ledger used to collateralize fee sponsors
	FixedLockStakeContractAddr = "0x0000000000000000000000000000000000001002"

	// DelayStakeContractAddr is the stake ledger with a user chosen unstake delay
	DelayStakeContractAddr = "0x0000000000000000000000000000000000001003"

	// SmartAccountImplContractAddr identifies the smart account implementation accounts are created with
	SmartAccountImplContractAddr = "0x0000000000000000000000000000000000001010"

	// SystemContractEndAddr is the end address of system contract
	SystemContractEndAddr = "0x000000000000000000000000000000000000ffff"
)

// SmartAccountCode is the code marker written to every materialized smart account
var SmartAccountCode = hexutil.MustDecode("0xef0100a5")

// SystemContractCode is the code marker written to system contracts at genesis
var SystemContractCode = hexutil.MustDecode("0xef0100a0")

func IsSystemContractAddr(addr ethcommon.Address) bool {
	hex := strings.ToLower(addr.Hex())
	return hex >= SystemContractStartAddr && hex <= SystemContractEndAddr
}

// CrossCaller performs a message call from one contract into another
type CrossCaller interface {
	Call(ctx *VMContext, from, to ethcommon.Address, value *big.Int, data []byte) ([]byte, error)
}

type VMContext struct {
	StateLedger ledger.StateLedger
	BlockNumber uint64
	// BlockTime is the unix time in seconds the current batch runs at
	BlockTime   uint64
	ChainID     *big.Int
	From        ethcommon.Address
	Value       *big.Int
	CurrentLogs *[]Log
	GasMeter    *GasMeter
	Caller      CrossCaller

	// CallFromSystem marks calls issued by the relay itself, e.g. entry point hooks
	CallFromSystem bool
}

func NewVMContext(stateLedger ledger.StateLedger, blockNumber, blockTime uint64, chainID *big.Int, from ethcommon.Address) *VMContext {
	return &VMContext{
		StateLedger: stateLedger,
		BlockNumber: blockNumber,
		BlockTime:   blockTime,
		ChainID:     chainID,
		From:        from,
		Value:       new(big.Int),
		CurrentLogs: &[]Log{},
	}
}

// Derive returns a child context sharing ledger, logs and gas meter with a new caller and value
func (ctx *VMContext) Derive(from ethcommon.Address, value *big.Int) *VMContext {
	if value == nil {
		value = new(big.Int)
	}
	return &VMContext{
		StateLedger:    ctx.StateLedger,
		BlockNumber:    ctx.BlockNumber,
		BlockTime:      ctx.BlockTime,
		ChainID:        ctx.ChainID,
		From:           from,
		Value:          value,
		CurrentLogs:    ctx.CurrentLogs,
		GasMeter:       ctx.GasMeter,
		Caller:         ctx.Caller,
		CallFromSystem: ctx.CallFromSystem,
	}
}

// WithGasMeter returns a copy of ctx metering against meter
func (ctx *VMContext) WithGasMeter(meter *GasMeter) *VMContext {
	c := ctx.Derive(ctx.From, ctx.Value)
	c.GasMeter = meter
	return c
}

// SystemContract must be implemented by all system contract
type SystemContract interface {
	SetContext(*VMContext)
}

type SystemContractBase struct {
	Logger       logrus.FieldLogger
	Address      ethcommon.Address
	Abi          *abi.ABI
	Ctx          *VMContext
	StateAccount ledger.IAccount
}

func (s *SystemContractBase) SetContext(ctx *VMContext) {
	s.Ctx = ctx
	s.StateAccount = ctx.StateLedger.GetOrCreateAccount(s.Address)
}

func (s *SystemContractBase) ContractAddress() ethcommon.Address {
	return s.Address
}

// CrossCallSystemContractContext is the context used when this contract calls another one directly
func (s *SystemContractBase) CrossCallSystemContractContext() *VMContext {
	return s.Ctx.Derive(s.Address, nil)
}

// CallContract sends a message call from this contract through the virtual machine
func (s *SystemContractBase) CallContract(to ethcommon.Address, value *big.Int, data []byte) ([]byte, error) {
	if s.Ctx.Caller == nil {
		return nil, ErrNoCrossCaller
	}
	return s.Ctx.Caller.Call(s.Ctx, s.Address, to, value, data)
}

func (s *SystemContractBase) UseGas(amount uint64, descriptor string) error {
	if s.Ctx.GasMeter == nil {
		return nil
	}
	return s.Ctx.GasMeter.Consume(amount, descriptor)
}

func (s *SystemContractBase) Now() uint64 {
	return s.Ctx.BlockTime
}

func (s *SystemContractBase) EmitEvent(name string, args ...any) {
	l, err := PackEvent(s.Abi, s.Address, name, args...)
	if err != nil {
		s.Logger.WithFields(logrus.Fields{"contract": s.Address, "event": name}).Errorf("pack event failed: %v", err)
		return
	}
	if s.Ctx.CurrentLogs != nil {
		*s.Ctx.CurrentLogs = append(*s.Ctx.CurrentLogs, *l)
	}
}

type SystemContractBuildConfig[T SystemContract] struct {
	Name        string
	Address     string
	AbiStr      string
	Constructor func(systemContractBase SystemContractBase) T

	once        sync.Once
	contractABI *abi.ABI
}

func (cfg *SystemContractBuildConfig[T]) GetABI() *abi.ABI {
	cfg.once.Do(func() {
		contractABI, err := abi.JSON(strings.NewReader(cfg.AbiStr))
		if err != nil {
			panic(err)
		}
		cfg.contractABI = &contractABI
	})
	return cfg.contractABI
}

func (cfg *SystemContractBuildConfig[T]) Build(ctx *VMContext) T {
	return cfg.BuildAt(ethcommon.HexToAddress(cfg.Address), ctx)
}

// BuildAt builds the contract bound to addr, used by contracts that live at derived addresses
func (cfg *SystemContractBuildConfig[T]) BuildAt(addr ethcommon.Address, ctx *VMContext) T {
	contract := cfg.Constructor(SystemContractBase{
		Logger:  loggers.Logger(loggers.SystemContract).WithField("contract", cfg.Name),
		Address: addr,
		Abi:     cfg.GetABI(),
	})
	if ctx != nil {
		contract.SetContext(ctx)
	}
	return contract
}

type Log struct {
	Address ethcommon.Address `json:"address"`
	Topics  []ethcommon.Hash  `json:"topics"`
	Data    hexutil.Bytes     `json:"data"`
}
