package token

import (
	"math/big"
	"testing"

	ethcommon "github.com/ethereum/go-ethereum/common"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/axiomesh/axiom-relay/internal/executor/system/common"
	"github.com/axiomesh/axiom-relay/pkg/repo"
)

var (
	admin   = ethcommon.HexToAddress("0xc7F999b83Af6DF9e67d0a37Ee7e900bF38b3D013")
	alice   = ethcommon.HexToAddress("0x8464135c8F25Da09e49BC8782676a84730C318bC")
	sponsor = ethcommon.HexToAddress("0x6bA5D3F2c1D9Fc0A7b8F16e1b0c6E3fA3B2d4e11")
	tokenAt = ethcommon.HexToAddress("0x00000000000000000000000000000000000a0001")
)

func prepare(t *testing.T) (*common.TestNVM, *FeeToken) {
	nvm := common.NewTestNVM(t)
	nvm.GenesisInit(func(ctx *common.VMContext) error {
		return BuildConfig.BuildAt(tokenAt, ctx).GenesisInit(admin, &repo.GenesisToken{
			Address:  tokenAt.Hex(),
			Name:     "Relay Fee Token",
			Symbol:   "RFT",
			Decimals: 6,
			Holders:  []*repo.GenesisBalance{{Address: alice.Hex(), Balance: "1000"}},
		})
	})
	return nvm, BuildConfig.BuildAt(tokenAt, nil)
}

func TestFeeTokenMeta(t *testing.T) {
	nvm, tk := prepare(t)
	nvm.Call(tk, alice, func() {
		name, err := tk.Name()
		assert.Nil(t, err)
		assert.Equal(t, "Relay Fee Token", name)
		symbol, err := tk.Symbol()
		assert.Nil(t, err)
		assert.Equal(t, "RFT", symbol)
		decimals, err := tk.Decimals()
		assert.Nil(t, err)
		assert.EqualValues(t, 6, decimals)
		supply, err := tk.TotalSupply()
		assert.Nil(t, err)
		assert.EqualValues(t, 1000, supply.Int64())
		balance, err := tk.BalanceOf(alice)
		assert.Nil(t, err)
		assert.EqualValues(t, 1000, balance.Int64())
	})
}

func TestFeeTokenTransferFrom(t *testing.T) {
	nvm, tk := prepare(t)

	err := nvm.RunSingleTX(tk, sponsor, func() error {
		_, err := tk.TransferFrom(alice, sponsor, big.NewInt(10))
		return err
	})
	var revertErr *common.RevertError
	require.True(t, errors.As(err, &revertErr))
	assert.Equal(t, "ERC20InsufficientAllowance", revertErr.Name)

	require.Nil(t, nvm.RunSingleTX(tk, alice, func() error {
		ok, err := tk.Approve(sponsor, big.NewInt(100))
		assert.True(t, ok)
		return err
	}))
	require.Nil(t, nvm.RunSingleTX(tk, sponsor, func() error {
		_, err := tk.TransferFrom(alice, sponsor, big.NewInt(60))
		return err
	}))

	nvm.Call(tk, alice, func() {
		allowance, err := tk.Allowance(alice, sponsor)
		assert.Nil(t, err)
		assert.EqualValues(t, 40, allowance.Int64())
		balance, err := tk.BalanceOf(sponsor)
		assert.Nil(t, err)
		assert.EqualValues(t, 60, balance.Int64())
		balance, err = tk.BalanceOf(alice)
		assert.Nil(t, err)
		assert.EqualValues(t, 940, balance.Int64())
	})
}

func TestFeeTokenTransfer(t *testing.T) {
	nvm, tk := prepare(t)

	err := nvm.RunSingleTX(tk, alice, func() error {
		_, err := tk.Transfer(sponsor, big.NewInt(1001))
		return err
	})
	var revertErr *common.RevertError
	require.True(t, errors.As(err, &revertErr))
	assert.Equal(t, "ERC20InsufficientBalance", revertErr.Name)

	err = nvm.RunSingleTX(tk, alice, func() error {
		_, err := tk.Transfer(ethcommon.Address{}, big.NewInt(1))
		return err
	})
	require.True(t, errors.As(err, &revertErr))
	assert.Equal(t, "ERC20InvalidReceiver", revertErr.Name)

	err = nvm.RunSingleTX(tk, alice, func() error {
		_, err := tk.Transfer(sponsor, big.NewInt(-1))
		return err
	})
	assert.ErrorIs(t, err, ErrValue)

	require.Nil(t, nvm.RunSingleTX(tk, alice, func() error {
		_, err := tk.Transfer(alice, big.NewInt(10))
		return err
	}))
	nvm.Call(tk, alice, func() {
		balance, err := tk.BalanceOf(alice)
		assert.Nil(t, err)
		assert.EqualValues(t, 1000, balance.Int64())
	})
}

func TestFeeTokenMint(t *testing.T) {
	nvm, tk := prepare(t)

	err := nvm.RunSingleTX(tk, alice, func() error {
		_, err := tk.Mint(alice, big.NewInt(1))
		return err
	})
	var revertErr *common.RevertError
	require.True(t, errors.As(err, &revertErr))
	assert.Equal(t, "OwnableUnauthorizedAccount", revertErr.Name)

	require.Nil(t, nvm.RunSingleTX(tk, admin, func() error {
		_, err := tk.Mint(sponsor, big.NewInt(5))
		return err
	}))
	nvm.Call(tk, alice, func() {
		supply, err := tk.TotalSupply()
		assert.Nil(t, err)
		assert.EqualValues(t, 1005, supply.Int64())
	})
}
