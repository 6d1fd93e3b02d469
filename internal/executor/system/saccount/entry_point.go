package saccount

import (
	_ "embed"
	"math"
	"math/big"

	ethcommon "github.com/ethereum/go-ethereum/common"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/axiomesh/axiom-relay/internal/executor/system/common"
	"github.com/axiomesh/axiom-relay/internal/executor/system/saccount/interfaces"
	"github.com/axiomesh/axiom-relay/internal/executor/system/stake"
	"github.com/axiomesh/axiom-relay/pkg/loggers"
)

const DefaultMaxBatchSize = 64

//go:embed solidity/EntryPoint.abi
var entryPointABI string

var EntryPointBuildConfig = &common.SystemContractBuildConfig[*EntryPoint]{
	Name:    "saccount_entry_point",
	Address: common.EntryPointContractAddr,
	AbiStr:  entryPointABI,
	Constructor: func(systemContractBase common.SystemContractBase) *EntryPoint {
		systemContractBase.Logger = loggers.Logger(loggers.Relay)
		return &EntryPoint{
			SystemContractBase: systemContractBase,
			baseFee:            new(big.Int),
			maxBatchSize:       DefaultMaxBatchSize,
		}
	},
}

// Receipt is the outcome of one operation of a committed batch
type Receipt struct {
	RequestHash   ethcommon.Hash    `json:"requestHash"`
	Sender        ethcommon.Address `json:"sender"`
	Nonce         *big.Int          `json:"nonce"`
	FeeSponsor    ethcommon.Address `json:"feeSponsor"`
	ActualGasUsed *big.Int          `json:"actualGasUsed"`
	ActualCost    *big.Int          `json:"actualCost"`
}

type BatchResult struct {
	Receipts []*Receipt   `json:"receipts"`
	Logs     []common.Log `json:"logs"`
	// Collected is the total paid to the redeemer
	Collected *big.Int `json:"collected"`
}

// ValidationResult is returned by SimulateValidation
type ValidationResult struct {
	RequestHash         ethcommon.Hash `json:"requestHash"`
	EffectiveGasPrice   *big.Int       `json:"effectiveGasPrice"`
	RequiredPrefund     *big.Int       `json:"requiredPrefund"`
	VerificationGasUsed uint64         `json:"verificationGasUsed"`
	SponsorStake        *stake.Entry   `json:"sponsorStake,omitempty"`
}

// batchContext only lives for one HandleOps call
type batchContext struct {
	redeemer  ethcommon.Address
	receipts  []*Receipt
	collected *big.Int
}

type opInfo struct {
	op                  *interfaces.Operation
	requestHash         ethcommon.Hash
	gasPrice            *big.Int
	prefund             *big.Int
	verificationGasUsed uint64
	chargeContext       []byte
	sponsorStake        *stake.Entry
}

// EntryPoint is the operation relay: it validates, executes and settles batches of operations.
// A batch either fully commits or leaves no trace in the ledger.
type EntryPoint struct {
	common.SystemContractBase

	guard        *common.ReentrancyGuard
	baseFee      *big.Int
	maxBatchSize int
}

// Configure sets the network base fee and the largest accepted batch
func (ep *EntryPoint) Configure(baseFee *big.Int, maxBatchSize int) {
	if baseFee != nil {
		ep.baseFee = new(big.Int).Set(baseFee)
	}
	if maxBatchSize > 0 {
		ep.maxBatchSize = maxBatchSize
	}
}

func (ep *EntryPoint) SetContext(ctx *common.VMContext) {
	ep.SystemContractBase.SetContext(ctx)

	ep.guard = common.NewReentrancyGuard(ep.StateAccount)
}

func (ep *EntryPoint) GenesisInit() {
	ep.StateAccount.SetCodeAndHash(common.SystemContractCode)
}

// HandleOps processes ops in order and pays the cost of every operation to redeemer.
// Any failure reverts the whole batch and is reported as a FailedOpError.
func (ep *EntryPoint) HandleOps(ops []*interfaces.Operation, redeemer ethcommon.Address) (result *BatchResult, err error) {
	if len(ops) == 0 {
		return nil, interfaces.ErrEmptyBatch
	}
	if len(ops) > ep.maxBatchSize {
		return nil, errors.Wrapf(interfaces.ErrBatchTooLarge, "%d operations, limit %d", len(ops), ep.maxBatchSize)
	}
	if redeemer == (ethcommon.Address{}) {
		return nil, interfaces.ErrInvalidRedeemer
	}
	if err := ep.guard.Enter(); err != nil {
		return nil, errors.Wrap(interfaces.ErrReentrantCall, err.Error())
	}
	defer ep.guard.Exit()

	snapshot := ep.Ctx.StateLedger.Snapshot()
	logStart := len(*ep.Ctx.CurrentLogs)
	defer func() {
		if err != nil {
			ep.Ctx.StateLedger.RevertToSnapshot(snapshot)
			*ep.Ctx.CurrentLogs = (*ep.Ctx.CurrentLogs)[:logStart]
		}
	}()

	batch := &batchContext{
		redeemer:  redeemer,
		collected: new(big.Int),
	}
	for i, op := range ops {
		if err := ep.handleOp(batch, op); err != nil {
			ep.Logger.WithFields(logrus.Fields{"index": i, "sender": op.Sender, "code": interfaces.ErrorCode(err)}).Warnf("operation rejected: %v", err)
			return nil, &interfaces.FailedOpError{OpIndex: i, Err: err}
		}
	}

	logs := make([]common.Log, len(*ep.Ctx.CurrentLogs)-logStart)
	copy(logs, (*ep.Ctx.CurrentLogs)[logStart:])
	ep.Logger.WithFields(logrus.Fields{"ops": len(ops), "redeemer": redeemer, "collected": batch.collected}).Info("batch handled")
	return &BatchResult{
		Receipts:  batch.receipts,
		Logs:      logs,
		Collected: batch.collected,
	}, nil
}

func (ep *EntryPoint) handleOp(batch *batchContext, op *interfaces.Operation) error {
	info, err := ep.validateOp(op)
	if err != nil {
		return err
	}

	ep.EmitEvent("BeforeExecution")
	callGasUsed, err := ep.execute(info)
	if err != nil {
		return err
	}

	actualGas := new(big.Int).Add(op.PreVerificationGas, new(big.Int).SetUint64(info.verificationGasUsed))
	actualGas.Add(actualGas, new(big.Int).SetUint64(callGasUsed))
	actualCost := new(big.Int).Mul(actualGas, info.gasPrice)

	if err := ep.settle(info, actualCost); err != nil {
		return err
	}
	if err := ep.Ctx.StateLedger.Transfer(ep.Address, batch.redeemer, actualCost); err != nil {
		return errors.Wrap(err, "pay redeemer")
	}
	batch.collected.Add(batch.collected, actualCost)

	receipt := &Receipt{
		RequestHash:   info.requestHash,
		Sender:        op.Sender,
		Nonce:         op.Nonce,
		FeeSponsor:    op.FeeSponsor,
		ActualGasUsed: actualGas,
		ActualCost:    actualCost,
	}
	batch.receipts = append(batch.receipts, receipt)
	ep.EmitEvent("UserOperationEvent", info.requestHash, op.Sender, op.FeeSponsor, op.Nonce, true, actualCost, actualGas)
	return nil
}

// relayContext is the context the relay calls accounts, sponsors and stake ledgers with
func (ep *EntryPoint) relayContext(meter *common.GasMeter) *common.VMContext {
	ctx := ep.CrossCallSystemContractContext().WithGasMeter(meter)
	ctx.CallFromSystem = false
	return ctx
}

func gasLimit(v *big.Int) uint64 {
	if !v.IsUint64() {
		return math.MaxUint64
	}
	return v.Uint64()
}

// validateOp runs everything before execution: account creation, sponsor checks and account authorization
func (ep *EntryPoint) validateOp(op *interfaces.Operation) (*opInfo, error) {
	if err := op.CheckGasValues(); err != nil {
		return nil, err
	}
	gasPrice := op.EffectiveGasPrice(ep.baseFee)
	info := &opInfo{
		op:          op,
		requestHash: interfaces.GetRequestHash(op, ep.Address, ep.Ctx.ChainID),
		gasPrice:    gasPrice,
		prefund:     op.RequiredPrefund(gasPrice),
	}

	meter := common.NewGasMeter(gasLimit(op.VerificationGas))
	ctx := ep.relayContext(meter)
	err := func() error {
		if err := ep.createSenderIfNeeded(ctx, info); err != nil {
			return err
		}
		accountPrefund := info.prefund
		if op.HasFeeSponsor() {
			if err := ep.validateSponsor(ctx, info); err != nil {
				return err
			}
			accountPrefund = new(big.Int)
		}
		account := SmartAccountBuildConfig.BuildAt(op.Sender, ctx)
		return account.Validate(op, info.requestHash.Bytes(), accountPrefund)
	}()
	if err != nil {
		if errors.Is(err, common.ErrOutOfGas) {
			return nil, errors.Wrapf(interfaces.ErrOverVerificationGas, "verification gas %s: %v", op.VerificationGas, err)
		}
		return nil, err
	}
	info.verificationGasUsed = meter.Used()
	return info, nil
}

func (ep *EntryPoint) createSenderIfNeeded(ctx *common.VMContext, info *opInfo) error {
	op := info.op
	if IsSmartAccount(ctx, op.Sender) {
		if len(op.InitCode) != 0 {
			return errors.Wrapf(interfaces.ErrSenderAlreadyConstructed, "%s", op.Sender)
		}
		return nil
	}
	if len(op.InitCode) == 0 {
		return errors.Wrapf(interfaces.ErrNoWalletAndInitCode, "%s", op.Sender)
	}

	factory := SmartAccountFactoryBuildConfig.Build(ctx)
	implementation, owner, guardians, err := factory.ParseInitCode(op.InitCode)
	if err != nil {
		return err
	}
	derived, err := factory.GetAddress(implementation, owner, guardians)
	if err != nil {
		return err
	}
	if derived != op.Sender {
		return errors.Wrapf(interfaces.ErrSenderAddressMismatch, "init code derives %s, sender is %s", derived, op.Sender)
	}
	if _, err := factory.CreateAccount(implementation, owner, guardians); err != nil {
		return err
	}

	ep.EmitEvent("AccountDeployed", info.requestHash, op.Sender, factory.Address, implementation)
	return nil
}

func (ep *EntryPoint) validateSponsor(ctx *common.VMContext, info *opInfo) error {
	op := info.op
	entry, err := stake.FixedLockBuildConfig.Build(ctx).GetEntry(op.FeeSponsor)
	if err != nil {
		return err
	}
	info.sponsorStake = entry
	if !entry.IsEligible(stake.ModeFixedLock, ctx.BlockTime) {
		return errors.Wrapf(interfaces.ErrStakeNotLocked, "fee sponsor %s stake is %s", op.FeeSponsor, entry.State)
	}
	if entry.Amount.Cmp(info.prefund) < 0 {
		return errors.Wrapf(interfaces.ErrInsufficientStake, "fee sponsor %s stake %s, required %s", op.FeeSponsor, entry.Amount, info.prefund)
	}
	if !IsSmartAccount(ctx, op.FeeSponsor) {
		return errors.Wrapf(interfaces.ErrInvalidSponsorData, "fee sponsor %s is not an account", op.FeeSponsor)
	}

	sponsor := FeeSponsorBuildConfig.BuildAt(op.FeeSponsor, ctx)
	chargeContext, err := sponsor.ValidateSponsorship(op, info.prefund)
	if err != nil {
		return err
	}
	info.chargeContext = chargeContext
	return nil
}

// execute runs op.callData against the sender, metered by op.callGas
func (ep *EntryPoint) execute(info *opInfo) (uint64, error) {
	op := info.op
	if len(op.CallData) == 0 {
		return 0, nil
	}
	meter := common.NewGasMeter(gasLimit(op.CallGas))
	ctx := ep.relayContext(meter)
	if ctx.Caller == nil {
		return 0, interfaces.NewExecutionFailedError(common.ErrNoCrossCaller)
	}
	if _, err := ctx.Caller.Call(ctx, ep.Address, op.Sender, nil, op.CallData); err != nil {
		if errors.Is(err, common.ErrOutOfGas) {
			return 0, errors.Wrapf(interfaces.ErrOutOfGas, "call gas %s: %v", op.CallGas, err)
		}
		return 0, interfaces.NewExecutionFailedError(err)
	}
	return meter.Used(), nil
}

// settle recovers actualCost into the relay custody, from the sponsor's stake or from the account prefund
func (ep *EntryPoint) settle(info *opInfo, actualCost *big.Int) error {
	op := info.op
	ctx := ep.relayContext(common.NewInfiniteGasMeter())
	if op.HasFeeSponsor() {
		if err := stake.FixedLockBuildConfig.Build(ctx).Debit(op.FeeSponsor, actualCost); err != nil {
			return err
		}
		return FeeSponsorBuildConfig.BuildAt(op.FeeSponsor, ctx).Settle(info.chargeContext, actualCost)
	}

	refund := new(big.Int).Sub(info.prefund, actualCost)
	if refund.Sign() > 0 {
		if err := ep.Ctx.StateLedger.Transfer(ep.Address, op.Sender, refund); err != nil {
			return errors.Wrap(err, "refund prefund")
		}
	}
	return nil
}

// SimulateValidation runs the validation of op without keeping any change
func (ep *EntryPoint) SimulateValidation(op *interfaces.Operation) (*ValidationResult, error) {
	snapshot := ep.Ctx.StateLedger.Snapshot()
	logStart := len(*ep.Ctx.CurrentLogs)
	defer func() {
		ep.Ctx.StateLedger.RevertToSnapshot(snapshot)
		*ep.Ctx.CurrentLogs = (*ep.Ctx.CurrentLogs)[:logStart]
	}()

	info, err := ep.validateOp(op)
	if err != nil {
		return nil, err
	}
	return &ValidationResult{
		RequestHash:         info.requestHash,
		EffectiveGasPrice:   info.gasPrice,
		RequiredPrefund:     info.prefund,
		VerificationGasUsed: info.verificationGasUsed,
		SponsorStake:        info.sponsorStake,
	}, nil
}

func (ep *EntryPoint) GetRequestHash(op *interfaces.Operation) ethcommon.Hash {
	return interfaces.GetRequestHash(op, ep.Address, ep.Ctx.ChainID)
}

// GetSenderAddress returns the account address initCode creates
func (ep *EntryPoint) GetSenderAddress(initCode []byte) (ethcommon.Address, error) {
	factory := SmartAccountFactoryBuildConfig.Build(nil)
	implementation, owner, guardians, err := factory.ParseInitCode(initCode)
	if err != nil {
		return ethcommon.Address{}, err
	}
	return factory.GetAddress(implementation, owner, guardians)
}

func (ep *EntryPoint) GetNonce(sender ethcommon.Address) (*big.Int, error) {
	if !IsSmartAccount(ep.Ctx, sender) {
		return new(big.Int), nil
	}
	return SmartAccountBuildConfig.BuildAt(sender, ep.Ctx).GetNonce()
}

func (ep *EntryPoint) GetGuardians(sender ethcommon.Address) ([]ethcommon.Address, error) {
	if !IsSmartAccount(ep.Ctx, sender) {
		return []ethcommon.Address{}, nil
	}
	return SmartAccountBuildConfig.BuildAt(sender, ep.Ctx).GetGuardians()
}

// GetStake returns the fee sponsor collateral of addr
func (ep *EntryPoint) GetStake(addr ethcommon.Address) (*stake.Entry, error) {
	return stake.FixedLockBuildConfig.Build(ep.Ctx).GetEntry(addr)
}
