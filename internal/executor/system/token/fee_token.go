package token

import (
	_ "embed"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/accounts/abi"
	ethcommon "github.com/ethereum/go-ethereum/common"
	"github.com/pkg/errors"

	"github.com/axiomesh/axiom-relay/internal/executor/system/common"
	"github.com/axiomesh/axiom-relay/pkg/repo"
)

const (
	nameStorageKey        = "name"
	symbolStorageKey      = "symbol"
	decimalsStorageKey    = "decimals"
	totalSupplyStorageKey = "totalSupply"
	ownerStorageKey       = "owner"
	balancesStorageKey    = "balances"
	allowancesStorageKey  = "allowances"
)

var ErrValue = errors.New("token value below zero")

//go:embed solidity/FeeToken.abi
var feeTokenABI string

// BuildConfig builds fee tokens, each token lives at the address it was created with in genesis
var BuildConfig = &common.SystemContractBuildConfig[*FeeToken]{
	Name:   "fee_token",
	AbiStr: feeTokenABI,
	Constructor: func(systemContractBase common.SystemContractBase) *FeeToken {
		return &FeeToken{
			SystemContractBase: systemContractBase,
		}
	},
}

// ABI is the erc20 interface of fee tokens, used by callers that encode token calls
func ABI() *abi.ABI {
	return BuildConfig.GetABI()
}

type allowanceKey struct {
	Owner   ethcommon.Address
	Spender ethcommon.Address
}

// FeeToken is an erc20 shaped token used to pay fee sponsors
type FeeToken struct {
	common.SystemContractBase

	name        *common.VMSlot[string]
	symbol      *common.VMSlot[string]
	decimals    *common.VMSlot[uint8]
	totalSupply *common.VMSlot[*big.Int]
	owner       *common.VMSlot[ethcommon.Address]
	balances    *common.VMMap[ethcommon.Address, *big.Int]
	allowances  *common.VMMap[allowanceKey, *big.Int]
}

func (t *FeeToken) SetContext(ctx *common.VMContext) {
	t.SystemContractBase.SetContext(ctx)

	t.name = common.NewVMSlot[string](t.StateAccount, nameStorageKey)
	t.symbol = common.NewVMSlot[string](t.StateAccount, symbolStorageKey)
	t.decimals = common.NewVMSlot[uint8](t.StateAccount, decimalsStorageKey)
	t.totalSupply = common.NewVMSlot[*big.Int](t.StateAccount, totalSupplyStorageKey)
	t.owner = common.NewVMSlot[ethcommon.Address](t.StateAccount, ownerStorageKey)
	t.balances = common.NewVMMap[ethcommon.Address, *big.Int](t.StateAccount, balancesStorageKey, common.AddressKey)
	t.allowances = common.NewVMMap[allowanceKey, *big.Int](t.StateAccount, allowancesStorageKey, func(key allowanceKey) string {
		return fmt.Sprintf("%s_%s", key.Owner.Hex(), key.Spender.Hex())
	})
}

func (t *FeeToken) GenesisInit(owner ethcommon.Address, cfg *repo.GenesisToken) error {
	t.StateAccount.SetCodeAndHash(common.SystemContractCode)
	if err := t.name.Put(cfg.Name); err != nil {
		return err
	}
	if err := t.symbol.Put(cfg.Symbol); err != nil {
		return err
	}
	if err := t.decimals.Put(cfg.Decimals); err != nil {
		return err
	}
	if err := t.owner.Put(owner); err != nil {
		return err
	}
	if err := t.totalSupply.Put(new(big.Int)); err != nil {
		return err
	}
	for _, holder := range cfg.Holders {
		if err := t.mint(ethcommon.HexToAddress(holder.Address), holder.BalanceValue()); err != nil {
			return err
		}
	}
	return nil
}

func (t *FeeToken) Name() (string, error) {
	return t.name.MustGet()
}

func (t *FeeToken) Symbol() (string, error) {
	return t.symbol.MustGet()
}

func (t *FeeToken) Decimals() (uint8, error) {
	return t.decimals.MustGet()
}

func (t *FeeToken) TotalSupply() (*big.Int, error) {
	return t.totalSupply.GetOrDefault(new(big.Int))
}

func (t *FeeToken) Owner() (ethcommon.Address, error) {
	return t.owner.MustGet()
}

func (t *FeeToken) BalanceOf(account ethcommon.Address) (*big.Int, error) {
	return t.balances.GetOrDefault(account, new(big.Int))
}

func (t *FeeToken) Allowance(owner, spender ethcommon.Address) (*big.Int, error) {
	return t.allowances.GetOrDefault(allowanceKey{Owner: owner, Spender: spender}, new(big.Int))
}

func (t *FeeToken) Approve(spender ethcommon.Address, value *big.Int) (bool, error) {
	if err := checkValue(value); err != nil {
		return false, err
	}
	if err := t.allowances.Put(allowanceKey{Owner: t.Ctx.From, Spender: spender}, value); err != nil {
		return false, err
	}
	t.EmitEvent("Approval", t.Ctx.From, spender, value)
	return true, nil
}

func (t *FeeToken) Transfer(to ethcommon.Address, value *big.Int) (bool, error) {
	if err := t.transfer(t.Ctx.From, to, value); err != nil {
		return false, err
	}
	return true, nil
}

// TransferFrom moves value from from to to, spending the allowance from granted to the caller
func (t *FeeToken) TransferFrom(from, to ethcommon.Address, value *big.Int) (bool, error) {
	if err := checkValue(value); err != nil {
		return false, err
	}
	spender := t.Ctx.From
	allowance, err := t.Allowance(from, spender)
	if err != nil {
		return false, err
	}
	if allowance.Cmp(value) < 0 {
		return false, common.NewRevertError("ERC20InsufficientAllowance", t.Abi.Errors["ERC20InsufficientAllowance"].Inputs, []any{spender, allowance, value})
	}
	if err := t.transfer(from, to, value); err != nil {
		return false, err
	}
	if err := t.allowances.Put(allowanceKey{Owner: from, Spender: spender}, new(big.Int).Sub(allowance, value)); err != nil {
		return false, err
	}
	return true, nil
}

// Mint is restricted to the token owner
func (t *FeeToken) Mint(to ethcommon.Address, value *big.Int) (bool, error) {
	owner, err := t.Owner()
	if err != nil {
		return false, err
	}
	if t.Ctx.From != owner {
		return false, common.NewRevertError("OwnableUnauthorizedAccount", t.Abi.Errors["OwnableUnauthorizedAccount"].Inputs, []any{t.Ctx.From})
	}
	if err := t.mint(to, value); err != nil {
		return false, err
	}
	return true, nil
}

func (t *FeeToken) mint(to ethcommon.Address, value *big.Int) error {
	if err := checkValue(value); err != nil {
		return err
	}
	totalSupply, err := t.TotalSupply()
	if err != nil {
		return err
	}
	balance, err := t.BalanceOf(to)
	if err != nil {
		return err
	}
	if err := t.totalSupply.Put(new(big.Int).Add(totalSupply, value)); err != nil {
		return err
	}
	if err := t.balances.Put(to, new(big.Int).Add(balance, value)); err != nil {
		return err
	}
	t.EmitEvent("Transfer", ethcommon.Address{}, to, value)
	return nil
}

func (t *FeeToken) transfer(from, to ethcommon.Address, value *big.Int) error {
	if err := checkValue(value); err != nil {
		return err
	}
	if to == (ethcommon.Address{}) {
		return common.NewRevertError("ERC20InvalidReceiver", t.Abi.Errors["ERC20InvalidReceiver"].Inputs, []any{to})
	}
	fromBalance, err := t.BalanceOf(from)
	if err != nil {
		return err
	}
	if fromBalance.Cmp(value) < 0 {
		return common.NewRevertError("ERC20InsufficientBalance", t.Abi.Errors["ERC20InsufficientBalance"].Inputs, []any{from, fromBalance, value})
	}
	if err := t.balances.Put(from, new(big.Int).Sub(fromBalance, value)); err != nil {
		return err
	}
	toBalance, err := t.BalanceOf(to)
	if err != nil {
		return err
	}
	if err := t.balances.Put(to, new(big.Int).Add(toBalance, value)); err != nil {
		return err
	}
	t.EmitEvent("Transfer", from, to, value)
	return nil
}

func checkValue(value *big.Int) error {
	if value == nil || value.Sign() < 0 {
		return ErrValue
	}
	return nil
}
