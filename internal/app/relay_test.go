package app

import (
	"context"
	"crypto/ecdsa"
	"math/big"
	"testing"

	ethcommon "github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/axiomesh/axiom-relay/internal/executor/system/common"
	"github.com/axiomesh/axiom-relay/internal/executor/system/saccount"
	"github.com/axiomesh/axiom-relay/internal/executor/system/saccount/interfaces"
	"github.com/axiomesh/axiom-relay/pkg/repo"
)

var (
	testRedeemer = ethcommon.HexToAddress("0x6bA5D3F2c1D9Fc0A7b8F16e1b0c6E3fA3B2d4e11")
	testReceiver = ethcommon.HexToAddress("0x2a8E4E9D9f4F0d8F3B3fC5d7A2C3cE1A8b4f2e10")
)

type testAccount struct {
	key      *ecdsa.PrivateKey
	address  ethcommon.Address
	initCode []byte
}

// newFundedAccount derives a fresh account and funds its address in genesis
func newFundedAccount(t *testing.T, rep *repo.Repo) *testAccount {
	sk, err := crypto.GenerateKey()
	require.Nil(t, err)
	initCode, err := saccount.PackInitCode(ethcommon.HexToAddress(common.SmartAccountImplContractAddr), crypto.PubkeyToAddress(sk.PublicKey), nil)
	require.Nil(t, err)
	addr, err := saccount.SmartAccountFactoryBuildConfig.Build(nil).GetAddress(ethcommon.HexToAddress(common.SmartAccountImplContractAddr), crypto.PubkeyToAddress(sk.PublicKey), nil)
	require.Nil(t, err)
	rep.GenesisConfig.Balances = append(rep.GenesisConfig.Balances, &repo.GenesisBalance{
		Address: addr.Hex(),
		Balance: "1000000000000000000",
	})
	return &testAccount{key: sk, address: addr, initCode: initCode}
}

func (a *testAccount) operation(t *testing.T, r *Relay, nonce int64, value int64, withInitCode bool) *interfaces.Operation {
	callData, err := saccount.SmartAccountBuildConfig.GetABI().Pack("execute", testReceiver, big.NewInt(value), []byte{})
	require.Nil(t, err)
	op := &interfaces.Operation{
		Sender:               a.address,
		Nonce:                big.NewInt(nonce),
		CallData:             callData,
		CallGas:              big.NewInt(100000),
		VerificationGas:      big.NewInt(200000),
		PreVerificationGas:   big.NewInt(21000),
		MaxFeePerGas:         big.NewInt(10),
		MaxPriorityFeePerGas: big.NewInt(10),
	}
	if withInitCode {
		op.InitCode = a.initCode
	}
	hash, err := r.GetRequestHash(op)
	require.Nil(t, err)
	op.Signature, err = interfaces.NewOwnerSignature(hash.Bytes(), a.key)
	require.Nil(t, err)
	return op
}

func newTestRelay(t *testing.T, rep *repo.Repo) *Relay {
	ctx, cancel := context.WithCancel(context.Background())
	r, err := NewRelay(rep, ctx, cancel)
	require.Nil(t, err)
	require.Nil(t, r.Start())
	return r
}

func TestRelay_SubmitBatch(t *testing.T) {
	rep := repo.MockRepo(t)
	account := newFundedAccount(t, rep)
	r := newTestRelay(t, rep)
	defer r.Stop()

	addr, err := r.GetSenderAddress(account.initCode)
	require.Nil(t, err)
	assert.Equal(t, account.address, addr)

	result, err := r.SubmitBatch([]*interfaces.Operation{account.operation(t, r, 0, 1000, true)}, testRedeemer)
	require.Nil(t, err)
	require.Len(t, result.Receipts, 1)
	assert.Zero(t, new(big.Int).Mul(result.Receipts[0].ActualGasUsed, big.NewInt(10)).Cmp(result.Receipts[0].ActualCost))
	assert.EqualValues(t, 1, r.BatchHeight())
	assert.EqualValues(t, 1000, r.GetBalance(testReceiver).Int64())
	assert.Zero(t, result.Collected.Cmp(r.GetBalance(testRedeemer)))

	nonce, err := r.GetNonce(account.address)
	require.Nil(t, err)
	assert.EqualValues(t, 1, nonce.Int64())

	guardians, err := r.GetGuardians(account.address)
	require.Nil(t, err)
	assert.Empty(t, guardians)

	t.Run("rejected batch keeps no trace", func(t *testing.T) {
		before := r.GetBalance(account.address)
		ops := []*interfaces.Operation{
			account.operation(t, r, 1, 10, false),
			account.operation(t, r, 5, 10, false),
		}
		_, err := r.SubmitBatch(ops, testRedeemer)
		var failed *interfaces.FailedOpError
		require.ErrorAs(t, err, &failed)
		assert.Equal(t, 1, failed.OpIndex)
		assert.ErrorIs(t, err, interfaces.ErrInvalidNonce)

		assert.EqualValues(t, 1, r.BatchHeight())
		assert.Zero(t, before.Cmp(r.GetBalance(account.address)))
		assert.EqualValues(t, 1000, r.GetBalance(testReceiver).Int64())
		nonce, err := r.GetNonce(account.address)
		require.Nil(t, err)
		assert.EqualValues(t, 1, nonce.Int64())
	})

	t.Run("simulation keeps no trace", func(t *testing.T) {
		before := r.GetBalance(account.address)
		res, err := r.SimulateValidation(account.operation(t, r, 1, 10, false))
		require.Nil(t, err)
		assert.EqualValues(t, 10*(100000+200000+21000), res.RequiredPrefund.Int64())
		assert.Zero(t, before.Cmp(r.GetBalance(account.address)))
		nonce, err := r.GetNonce(account.address)
		require.Nil(t, err)
		assert.EqualValues(t, 1, nonce.Int64())
	})

	t.Run("default redeemer", func(t *testing.T) {
		_, err := r.SubmitBatch([]*interfaces.Operation{account.operation(t, r, 1, 10, false)}, ethcommon.Address{})
		assert.ErrorIs(t, err, interfaces.ErrInvalidRedeemer)

		r.redeemer = testRedeemer
		before := r.GetBalance(testRedeemer)
		result, err := r.SubmitBatch([]*interfaces.Operation{account.operation(t, r, 1, 10, false)}, ethcommon.Address{})
		require.Nil(t, err)
		assert.Zero(t, new(big.Int).Add(before, result.Collected).Cmp(r.GetBalance(testRedeemer)))
		assert.EqualValues(t, 2, r.BatchHeight())
	})

	t.Run("empty batch", func(t *testing.T) {
		_, err := r.SubmitBatch(nil, testRedeemer)
		assert.ErrorIs(t, err, interfaces.ErrEmptyBatch)
	})
}

func TestRelay_Restart(t *testing.T) {
	rep := repo.MockRepo(t)
	rep.Config.Storage.KvType = repo.KVStorageTypePebble
	account := newFundedAccount(t, rep)

	r := newTestRelay(t, rep)
	_, err := r.SubmitBatch([]*interfaces.Operation{account.operation(t, r, 0, 1000, true)}, testRedeemer)
	require.Nil(t, err)
	balance := r.GetBalance(account.address)
	next := account.operation(t, r, 1, 1000, false)
	require.Nil(t, r.Stop())

	_, err = r.SubmitBatch([]*interfaces.Operation{next}, testRedeemer)
	assert.ErrorIs(t, err, ErrStopped)

	// genesis must not run again on a persisted ledger
	r = newTestRelay(t, rep)
	defer r.Stop()
	assert.EqualValues(t, 1, r.BatchHeight())
	assert.Zero(t, balance.Cmp(r.GetBalance(account.address)))
	assert.EqualValues(t, 1000, r.GetBalance(testReceiver).Int64())
	nonce, err := r.GetNonce(account.address)
	require.Nil(t, err)
	assert.EqualValues(t, 1, nonce.Int64())

	_, err = r.SubmitBatch([]*interfaces.Operation{next}, testRedeemer)
	require.Nil(t, err)
	assert.EqualValues(t, 2, r.BatchHeight())
}

func TestNewRelay_InvalidRedeemer(t *testing.T) {
	rep := repo.MockRepo(t)
	rep.Config.Relay.Redeemer = "not an address"
	_, err := NewRelay(rep, context.Background(), func() {})
	assert.ErrorContains(t, err, "invalid redeemer")
}
