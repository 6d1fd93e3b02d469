package saccount_test

import (
	"crypto/ecdsa"
	"math/big"
	"testing"

	ethcommon "github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/axiomesh/axiom-relay/internal/executor/system"
	"github.com/axiomesh/axiom-relay/internal/executor/system/common"
	"github.com/axiomesh/axiom-relay/internal/executor/system/saccount"
	"github.com/axiomesh/axiom-relay/internal/executor/system/saccount/interfaces"
	"github.com/axiomesh/axiom-relay/internal/executor/system/stake"
	"github.com/axiomesh/axiom-relay/internal/executor/system/token"
	"github.com/axiomesh/axiom-relay/internal/ledger"
	"github.com/axiomesh/axiom-relay/pkg/repo"
)

var (
	redeemer           = ethcommon.HexToAddress("0x6bA5D3F2c1D9Fc0A7b8F16e1b0c6E3fA3B2d4e11")
	receiver           = ethcommon.HexToAddress("0x2a8E4E9D9f4F0d8F3B3fC5d7A2C3cE1A8b4f2e10")
	implementationAddr = ethcommon.HexToAddress(common.SmartAccountImplContractAddr)
	fixedLockAddr      = ethcommon.HexToAddress(common.FixedLockStakeContractAddr)
)

type relayEnv struct {
	t       *testing.T
	nvm     *system.NativeVM
	lg      *ledger.StateLedgerImpl
	rep     *repo.Repo
	genesis *repo.GenesisConfig

	feeToken  ethcommon.Address
	priceFeed ethcommon.Address
}

// newRelayEnv boots a genesis whose fee token has no decimals and is priced at 2 tokens per native unit
func newRelayEnv(t *testing.T) *relayEnv {
	rep := repo.MockRepo(t)
	genesis := repo.DefaultGenesisConfig()
	genesis.Tokens[0].Decimals = 0
	genesis.PriceFeeds[0].Rates[0].Answer = "2"
	genesis.PriceFeeds[0].Rates[0].Decimals = 0

	lg := ledger.NewMemory()
	nvm := system.New()
	nvm.DeployGenesis(genesis)
	require.Nil(t, system.InitGenesisData(nvm, rep.Config, genesis, lg))

	return &relayEnv{
		t:         t,
		nvm:       nvm,
		lg:        lg,
		rep:       rep,
		genesis:   genesis,
		feeToken:  ethcommon.HexToAddress(genesis.Tokens[0].Address),
		priceFeed: ethcommon.HexToAddress(genesis.PriceFeeds[0].Address),
	}
}

func (e *relayEnv) context(from ethcommon.Address) *common.VMContext {
	ctx := common.NewVMContext(e.lg, 1, common.TestBlockTime, new(big.Int).SetUint64(e.rep.Config.ChainID), from)
	ctx.GasMeter = common.NewInfiniteGasMeter()
	ctx.Caller = e.nvm
	return ctx
}

func (e *relayEnv) entryPoint() *saccount.EntryPoint {
	return saccount.EntryPointBuildConfig.Build(e.context(redeemer))
}

// call sends a message through the virtual machine and commits it
func (e *relayEnv) call(from, to ethcommon.Address, value *big.Int, data []byte) []byte {
	ret, err := e.nvm.Call(e.context(from), from, to, value, data)
	require.Nil(e.t, err)
	e.lg.Finalise()
	return ret
}

func (e *relayEnv) balance(addr ethcommon.Address) *big.Int {
	return new(big.Int).Set(e.lg.GetBalance(addr))
}

func (e *relayEnv) tokenBalance(addr ethcommon.Address) *big.Int {
	balance, err := token.BuildConfig.BuildAt(e.feeToken, e.context(addr)).BalanceOf(addr)
	require.Nil(e.t, err)
	return balance
}

func (e *relayEnv) fundToken(to ethcommon.Address, amount int64) {
	data, err := token.ABI().Pack("transfer", to, big.NewInt(amount))
	require.Nil(e.t, err)
	e.call(ethcommon.HexToAddress(e.genesis.Admin), e.feeToken, nil, data)
}

func (e *relayEnv) stakeEntry(addr ethcommon.Address) *stake.Entry {
	entry, err := e.entryPoint().GetStake(addr)
	require.Nil(e.t, err)
	return entry
}

type testAccount struct {
	key      *ecdsa.PrivateKey
	owner    ethcommon.Address
	address  ethcommon.Address
	initCode []byte
}

func newTestAccount(t *testing.T, ep *saccount.EntryPoint, guardians ...ethcommon.Address) *testAccount {
	sk, err := crypto.GenerateKey()
	require.Nil(t, err)
	owner := crypto.PubkeyToAddress(sk.PublicKey)
	initCode, err := saccount.PackInitCode(implementationAddr, owner, guardians)
	require.Nil(t, err)
	addr, err := ep.GetSenderAddress(initCode)
	require.Nil(t, err)
	return &testAccount{key: sk, owner: owner, address: addr, initCode: initCode}
}

// deployed creates the account outside of any operation
func (e *relayEnv) deployed(a *testAccount) *testAccount {
	e.call(redeemer, ethcommon.HexToAddress(common.AccountFactoryContractAddr), nil, a.initCode)
	return a
}

func (a *testAccount) operation(nonce int64, callData []byte) *interfaces.Operation {
	return &interfaces.Operation{
		Sender:               a.address,
		Nonce:                big.NewInt(nonce),
		CallData:             callData,
		CallGas:              big.NewInt(100000),
		VerificationGas:      big.NewInt(200000),
		PreVerificationGas:   big.NewInt(21000),
		MaxFeePerGas:         big.NewInt(10),
		MaxPriorityFeePerGas: big.NewInt(10),
	}
}

func (a *testAccount) sign(t *testing.T, ep *saccount.EntryPoint, op *interfaces.Operation) *interfaces.Operation {
	sig, err := interfaces.NewOwnerSignature(ep.GetRequestHash(op).Bytes(), a.key)
	require.Nil(t, err)
	op.Signature = sig
	return op
}

func execute(t *testing.T, target ethcommon.Address, value int64, data []byte) []byte {
	callData, err := saccount.SmartAccountBuildConfig.GetABI().Pack("execute", target, big.NewInt(value), data)
	require.Nil(t, err)
	return callData
}

// lockedSponsor deploys a fee sponsor account with amount of locked collateral
func (e *relayEnv) lockedSponsor(amount int64, lock bool) *testAccount {
	sponsor := e.deployed(newTestAccount(e.t, e.entryPoint()))
	e.lg.AddBalance(sponsor.address, big.NewInt(amount))
	e.lg.Finalise()

	stakeABI := stake.FixedLockBuildConfig.GetABI()
	deposit, err := stakeABI.Pack("deposit")
	require.Nil(e.t, err)
	e.call(sponsor.address, fixedLockAddr, big.NewInt(amount), deposit)
	if lock {
		lockData, err := stakeABI.Pack("lock")
		require.Nil(e.t, err)
		e.call(sponsor.address, fixedLockAddr, nil, lockData)
	}
	return sponsor
}

func (e *relayEnv) sponsor(op *interfaces.Operation, sponsor *testAccount, mode interfaces.SponsorMode, fee int64) {
	op.FeeSponsor = sponsor.address
	chainID := new(big.Int).SetUint64(e.rep.Config.ChainID)
	hash := interfaces.GetSponsorHash(op, chainID, big.NewInt(fee), mode, e.feeToken, e.priceFeed)
	sig, err := interfaces.SignHash(hash.Bytes(), sponsor.key)
	require.Nil(e.t, err)
	data, err := (&interfaces.SponsorData{
		Fee:       big.NewInt(fee),
		Mode:      mode,
		FeeToken:  e.feeToken,
		PriceFeed: e.priceFeed,
		Signature: sig,
	}).Encode()
	require.Nil(e.t, err)
	op.FeeSponsorData = data
}

func requireFailedOp(t *testing.T, err error, index int, target error) {
	require.NotNil(t, err)
	failed, ok := err.(*interfaces.FailedOpError)
	require.True(t, ok, "%v is not a FailedOp", err)
	assert.Equal(t, index, failed.OpIndex)
	assert.ErrorIs(t, err, target)
}

func TestEntryPoint_HandleOps_NoWalletAndInitCode(t *testing.T) {
	env := newRelayEnv(t)
	ep := env.entryPoint()
	account := newTestAccount(t, ep)
	env.lg.AddBalance(account.address, big.NewInt(1e18))

	op := account.sign(t, ep, account.operation(0, execute(t, receiver, 1, nil)))
	_, err := ep.HandleOps([]*interfaces.Operation{op}, redeemer)
	requireFailedOp(t, err, 0, interfaces.ErrNoWalletAndInitCode)
	assert.Equal(t, interfaces.Code("NoWalletAndInitCode"), interfaces.ErrorCode(err))
	assert.Equal(t, interfaces.ClassMalformedInput, interfaces.CodeClass(interfaces.ErrorCode(err)))
	assert.Zero(t, env.balance(redeemer).Sign())
}

func TestEntryPoint_HandleOps_SelfPay(t *testing.T) {
	env := newRelayEnv(t)
	ep := env.entryPoint()
	account := newTestAccount(t, ep)
	env.lg.AddBalance(account.address, big.NewInt(1e18))
	env.lg.Finalise()
	before := env.balance(account.address)

	op := account.operation(0, execute(t, receiver, 1000, nil))
	op.InitCode = account.initCode
	account.sign(t, ep, op)

	result, err := ep.HandleOps([]*interfaces.Operation{op}, redeemer)
	require.Nil(t, err)
	require.Len(t, result.Receipts, 1)
	receipt := result.Receipts[0]
	assert.Equal(t, account.address, receipt.Sender)
	assert.Equal(t, ep.GetRequestHash(op), receipt.RequestHash)
	assert.Zero(t, new(big.Int).Mul(receipt.ActualGasUsed, big.NewInt(10)).Cmp(receipt.ActualCost))
	assert.Greater(t, receipt.ActualGasUsed.Uint64(), uint64(21000+common.CreateAccountGas))

	expected := new(big.Int).Sub(before, receipt.ActualCost)
	expected.Sub(expected, big.NewInt(1000))
	assert.Zero(t, expected.Cmp(env.balance(account.address)))
	assert.Zero(t, receipt.ActualCost.Cmp(env.balance(redeemer)))
	assert.Zero(t, receipt.ActualCost.Cmp(result.Collected))
	assert.EqualValues(t, 1000, env.balance(receiver).Int64())
	assert.Zero(t, env.balance(ep.Address).Sign())

	nonce, err := ep.GetNonce(account.address)
	require.Nil(t, err)
	assert.EqualValues(t, 1, nonce.Int64())

	// AccountDeployed, BeforeExecution and UserOperationEvent of the relay
	relayLogs := 0
	for _, l := range result.Logs {
		if l.Address == ep.Address {
			relayLogs++
		}
	}
	assert.Equal(t, 3, relayLogs)
	event, err := common.UnpackEvent(ep.Abi, "UserOperationEvent", result.Logs[len(result.Logs)-1])
	require.Nil(t, err)
	assert.Equal(t, true, event["success"])
	assert.Zero(t, receipt.ActualCost.Cmp(event["actualCost"].(*big.Int)))

	t.Run("replayed operation", func(t *testing.T) {
		op.InitCode = nil
		account.sign(t, ep, op)
		_, err := ep.HandleOps([]*interfaces.Operation{op}, redeemer)
		requireFailedOp(t, err, 0, interfaces.ErrInvalidNonce)
	})

	t.Run("init code for an existing account", func(t *testing.T) {
		next := account.operation(1, nil)
		next.InitCode = account.initCode
		account.sign(t, ep, next)
		_, err := ep.HandleOps([]*interfaces.Operation{next}, redeemer)
		requireFailedOp(t, err, 0, interfaces.ErrSenderAlreadyConstructed)
	})
}

func TestEntryPoint_HandleOps_Sponsored(t *testing.T) {
	env := newRelayEnv(t)
	ep := env.entryPoint()
	sponsor := env.lockedSponsor(1e15, true)
	account := newTestAccount(t, ep)
	env.fundToken(account.address, 1e9)

	approve, err := token.ABI().Pack("approve", sponsor.address, big.NewInt(1e12))
	require.Nil(t, err)
	op := account.operation(0, execute(t, env.feeToken, 0, approve))
	op.InitCode = account.initCode
	env.sponsor(op, sponsor, interfaces.SponsorModeTokenCost, 100)
	account.sign(t, ep, op)

	result, err := ep.HandleOps([]*interfaces.Operation{op}, redeemer)
	require.Nil(t, err)
	receipt := result.Receipts[0]
	actualCost := receipt.ActualCost
	assert.Equal(t, sponsor.address, receipt.FeeSponsor)

	charged := new(big.Int).Mul(actualCost, big.NewInt(2))
	charged.Add(charged, big.NewInt(100))
	assert.Zero(t, charged.Cmp(env.tokenBalance(sponsor.address)))
	assert.Zero(t, new(big.Int).Sub(big.NewInt(1e9), charged).Cmp(env.tokenBalance(account.address)))

	entry := env.stakeEntry(sponsor.address)
	assert.Zero(t, new(big.Int).Sub(big.NewInt(1e15), actualCost).Cmp(entry.Amount))
	assert.Equal(t, stake.StateLocked, entry.State)
	assert.Zero(t, env.balance(account.address).Sign())
	assert.Zero(t, actualCost.Cmp(env.balance(redeemer)))
	assert.Zero(t, env.balance(ep.Address).Sign())

	t.Run("flat fee", func(t *testing.T) {
		op := account.operation(1, nil)
		env.sponsor(op, sponsor, interfaces.SponsorModeFlatFee, 7)
		account.sign(t, ep, op)
		before := env.tokenBalance(sponsor.address)

		_, err := ep.HandleOps([]*interfaces.Operation{op}, redeemer)
		require.Nil(t, err)
		assert.EqualValues(t, 7, new(big.Int).Sub(env.tokenBalance(sponsor.address), before).Int64())
	})

	t.Run("allowance too low", func(t *testing.T) {
		op := account.operation(2, execute(t, env.feeToken, 0, mustPack(t, "approve", sponsor.address, big.NewInt(1))))
		env.sponsor(op, sponsor, interfaces.SponsorModeTokenCost, 100)
		account.sign(t, ep, op)

		_, err := ep.HandleOps([]*interfaces.Operation{op}, redeemer)
		requireFailedOp(t, err, 0, interfaces.ErrNotApproved)
	})
}

func mustPack(t *testing.T, method string, args ...any) []byte {
	data, err := token.ABI().Pack(method, args...)
	require.Nil(t, err)
	return data
}

func TestEntryPoint_HandleOps_SponsorStake(t *testing.T) {
	env := newRelayEnv(t)
	ep := env.entryPoint()
	account := newTestAccount(t, ep)
	env.fundToken(account.address, 1e9)
	approve := execute(t, env.feeToken, 0, mustPack(t, "approve", ethcommon.Address{}, big.NewInt(0)))

	t.Run("stake not locked", func(t *testing.T) {
		sponsor := env.lockedSponsor(1e15, false)
		op := account.operation(0, approve)
		op.InitCode = account.initCode
		env.sponsor(op, sponsor, interfaces.SponsorModeFlatFee, 0)
		account.sign(t, ep, op)

		_, err := ep.HandleOps([]*interfaces.Operation{op}, redeemer)
		requireFailedOp(t, err, 0, interfaces.ErrStakeNotLocked)
		assert.Equal(t, interfaces.ClassInsufficientResources, interfaces.CodeClass(interfaces.ErrorCode(err)))
	})

	t.Run("stake below prefund", func(t *testing.T) {
		sponsor := env.lockedSponsor(1000, true)
		op := account.operation(0, approve)
		op.InitCode = account.initCode
		env.sponsor(op, sponsor, interfaces.SponsorModeFlatFee, 0)
		account.sign(t, ep, op)

		_, err := ep.HandleOps([]*interfaces.Operation{op}, redeemer)
		requireFailedOp(t, err, 0, interfaces.ErrInsufficientStake)
	})

	t.Run("sponsor without stake", func(t *testing.T) {
		op := account.operation(0, approve)
		op.InitCode = account.initCode
		op.FeeSponsor = receiver
		op.FeeSponsorData = []byte{}
		account.sign(t, ep, op)

		_, err := ep.HandleOps([]*interfaces.Operation{op}, redeemer)
		requireFailedOp(t, err, 0, interfaces.ErrStakeNotLocked)
	})
}

func TestEntryPoint_HandleOps_Error(t *testing.T) {
	env := newRelayEnv(t)
	ep := env.entryPoint()
	account := env.deployed(newTestAccount(t, ep))
	env.lg.AddBalance(account.address, big.NewInt(1e18))
	env.lg.Finalise()

	_, err := ep.HandleOps(nil, redeemer)
	assert.ErrorIs(t, err, interfaces.ErrEmptyBatch)

	op := account.sign(t, ep, account.operation(0, nil))
	_, err = ep.HandleOps([]*interfaces.Operation{op}, ethcommon.Address{})
	assert.ErrorIs(t, err, interfaces.ErrInvalidRedeemer)

	ep.Configure(nil, 2)
	_, err = ep.HandleOps([]*interfaces.Operation{op, op, op}, redeemer)
	assert.ErrorIs(t, err, interfaces.ErrBatchTooLarge)

	testcases := []struct {
		name   string
		modify func(op *interfaces.Operation)
		err    error
	}{
		{
			name:   "gas value overflow",
			modify: func(op *interfaces.Operation) { op.CallGas = new(big.Int).Lsh(big.NewInt(1), 130) },
			err:    interfaces.ErrGasValuesOverflow,
		},
		{
			name:   "verification gas too low",
			modify: func(op *interfaces.Operation) { op.VerificationGas = big.NewInt(1000) },
			err:    interfaces.ErrOverVerificationGas,
		},
		{
			name:   "call gas too low",
			modify: func(op *interfaces.Operation) { op.CallGas = big.NewInt(800) },
			err:    interfaces.ErrOutOfGas,
		},
		{
			name: "prefund above balance",
			modify: func(op *interfaces.Operation) {
				op.MaxFeePerGas = big.NewInt(1e16)
				op.MaxPriorityFeePerGas = big.NewInt(1e16)
			},
			err: interfaces.ErrInsufficientBalance,
		},
		{
			name: "failed call",
			modify: func(op *interfaces.Operation) {
				op.CallData = execute(t, env.feeToken, 0, mustPack(t, "transfer", receiver, big.NewInt(1)))
			},
			err: interfaces.ErrExecutionFailed,
		},
	}
	for _, tc := range testcases {
		t.Run(tc.name, func(t *testing.T) {
			op := account.operation(0, execute(t, receiver, 1, nil))
			tc.modify(op)
			account.sign(t, ep, op)
			_, err := ep.HandleOps([]*interfaces.Operation{op}, redeemer)
			requireFailedOp(t, err, 0, tc.err)

			nonce, err := ep.GetNonce(account.address)
			require.Nil(t, err)
			assert.Zero(t, nonce.Sign())
		})
	}
}

func TestEntryPoint_HandleOps_BatchRevert(t *testing.T) {
	env := newRelayEnv(t)
	ep := env.entryPoint()
	first := newTestAccount(t, ep)
	second := env.deployed(newTestAccount(t, ep))
	env.lg.AddBalance(first.address, big.NewInt(1e18))
	env.lg.AddBalance(second.address, big.NewInt(1e18))
	env.lg.Finalise()
	firstBalance := env.balance(first.address)

	valid := first.operation(0, execute(t, receiver, 1000, nil))
	valid.InitCode = first.initCode
	first.sign(t, ep, valid)
	invalid := second.sign(t, ep, second.operation(5, nil))

	_, err := ep.HandleOps([]*interfaces.Operation{valid, invalid}, redeemer)
	requireFailedOp(t, err, 1, interfaces.ErrInvalidNonce)

	assert.Zero(t, firstBalance.Cmp(env.balance(first.address)))
	assert.Zero(t, env.balance(receiver).Sign())
	assert.Zero(t, env.balance(redeemer).Sign())
	assert.False(t, saccount.IsSmartAccount(ep.Ctx, first.address))
	assert.Empty(t, *ep.Ctx.CurrentLogs)

	// the same batch passes once fixed
	invalid = second.sign(t, ep, second.operation(0, nil))
	result, err := ep.HandleOps([]*interfaces.Operation{valid, invalid}, redeemer)
	require.Nil(t, err)
	assert.Len(t, result.Receipts, 2)
	total := new(big.Int).Add(result.Receipts[0].ActualCost, result.Receipts[1].ActualCost)
	assert.Zero(t, total.Cmp(env.balance(redeemer)))
}

func TestEntryPoint_HandleOps_Reentrant(t *testing.T) {
	env := newRelayEnv(t)
	ep := env.entryPoint()
	account := env.deployed(newTestAccount(t, ep))
	env.lg.AddBalance(account.address, big.NewInt(1e18))
	op := account.sign(t, ep, account.operation(0, nil))

	// an entry point built separately on the same ledger shares the entered flag
	guard := common.NewReentrancyGuard(ep.StateAccount)
	require.Nil(t, guard.Enter())
	_, err := env.entryPoint().HandleOps([]*interfaces.Operation{op}, redeemer)
	assert.ErrorIs(t, err, interfaces.ErrReentrantCall)
	guard.Exit()

	_, err = env.entryPoint().HandleOps([]*interfaces.Operation{op}, redeemer)
	require.Nil(t, err)
	assert.False(t, guard.IsEntered())
}

func TestEntryPoint_HandleOps_GuardianRecovery(t *testing.T) {
	env := newRelayEnv(t)
	ep := env.entryPoint()

	guardianKeys := make([]*ecdsa.PrivateKey, 0, 3)
	guardians := make([]ethcommon.Address, 0, 3)
	for i := 0; i < 3; i++ {
		sk, err := crypto.GenerateKey()
		require.Nil(t, err)
		guardianKeys = append(guardianKeys, sk)
		guardians = append(guardians, crypto.PubkeyToAddress(sk.PublicKey))
	}
	account := env.deployed(newTestAccount(t, ep, guardians...))
	env.lg.AddBalance(account.address, big.NewInt(1e18))
	env.lg.Finalise()

	newOwnerKey, err := crypto.GenerateKey()
	require.Nil(t, err)
	newOwner := crypto.PubkeyToAddress(newOwnerKey.PublicKey)
	transferOwner, err := saccount.SmartAccountBuildConfig.GetABI().Pack("transferOwner", newOwner)
	require.Nil(t, err)

	guardianSign := func(op *interfaces.Operation, keys ...*ecdsa.PrivateKey) *interfaces.Operation {
		sig, err := interfaces.NewGuardianSignature(ep.GetRequestHash(op).Bytes(), keys...)
		require.Nil(t, err)
		op.Signature = sig
		return op
	}

	op := guardianSign(account.operation(0, transferOwner), guardianKeys[0])
	_, err = ep.HandleOps([]*interfaces.Operation{op}, redeemer)
	requireFailedOp(t, err, 0, interfaces.ErrInsufficientGuardians)

	op = guardianSign(account.operation(0, execute(t, receiver, 1, nil)), guardianKeys...)
	_, err = ep.HandleOps([]*interfaces.Operation{op}, redeemer)
	requireFailedOp(t, err, 0, interfaces.ErrInvalidGuardianAction)

	op = guardianSign(account.operation(0, transferOwner), guardianKeys[0], guardianKeys[1])
	_, err = ep.HandleOps([]*interfaces.Operation{op}, redeemer)
	require.Nil(t, err)

	owner, err := saccount.SmartAccountBuildConfig.BuildAt(account.address, ep.Ctx).GetOwner()
	require.Nil(t, err)
	assert.Equal(t, newOwner, owner)

	// the previous owner key no longer authorizes operations
	op = account.sign(t, ep, account.operation(1, nil))
	_, err = ep.HandleOps([]*interfaces.Operation{op}, redeemer)
	requireFailedOp(t, err, 0, interfaces.ErrInvalidOwnerSignature)

	account.key = newOwnerKey
	op = account.sign(t, ep, account.operation(1, nil))
	_, err = ep.HandleOps([]*interfaces.Operation{op}, redeemer)
	require.Nil(t, err)

	got, err := ep.GetGuardians(account.address)
	require.Nil(t, err)
	assert.Equal(t, guardians, got)
}

func TestEntryPoint_SimulateValidation(t *testing.T) {
	env := newRelayEnv(t)
	ep := env.entryPoint()
	account := newTestAccount(t, ep)
	env.lg.AddBalance(account.address, big.NewInt(1e18))
	env.lg.Finalise()
	before := env.balance(account.address)

	op := account.operation(0, nil)
	op.InitCode = account.initCode
	account.sign(t, ep, op)

	result, err := ep.SimulateValidation(op)
	require.Nil(t, err)
	assert.Equal(t, ep.GetRequestHash(op), result.RequestHash)
	assert.EqualValues(t, 10, result.EffectiveGasPrice.Int64())
	assert.EqualValues(t, (100000+200000+21000)*10, result.RequiredPrefund.Int64())
	assert.Greater(t, result.VerificationGasUsed, uint64(common.CreateAccountGas))
	assert.Nil(t, result.SponsorStake)

	// nothing is kept
	assert.False(t, saccount.IsSmartAccount(ep.Ctx, account.address))
	assert.Zero(t, before.Cmp(env.balance(account.address)))
	nonce, err := ep.GetNonce(account.address)
	require.Nil(t, err)
	assert.Zero(t, nonce.Sign())

	op.Nonce = big.NewInt(3)
	account.sign(t, ep, op)
	_, err = ep.SimulateValidation(op)
	assert.ErrorIs(t, err, interfaces.ErrInvalidNonce)
}

func TestEntryPoint_GetSenderAddress(t *testing.T) {
	env := newRelayEnv(t)
	ep := env.entryPoint()
	account := env.deployed(newTestAccount(t, ep))
	assert.True(t, saccount.IsSmartAccount(ep.Ctx, account.address))

	_, err := ep.GetSenderAddress([]byte{0x01})
	assert.ErrorIs(t, err, interfaces.ErrInvalidInitCode)

	entry := env.stakeEntry(account.address)
	assert.Zero(t, entry.Amount.Sign())
	assert.Equal(t, stake.StateFree, entry.State)

	guardians, err := ep.GetGuardians(receiver)
	require.Nil(t, err)
	assert.Empty(t, guardians)
}
