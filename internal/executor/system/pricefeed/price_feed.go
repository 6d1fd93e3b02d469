package pricefeed

import (
	_ "embed"
	"math/big"

	ethcommon "github.com/ethereum/go-ethereum/common"
	"github.com/pkg/errors"

	"github.com/axiomesh/axiom-relay/internal/executor/system/common"
	"github.com/axiomesh/axiom-relay/pkg/repo"
)

const (
	ownerStorageKey = "owner"
	ratesStorageKey = "rates"
)

var (
	ErrRateNotFound = errors.New("rate not found")
	ErrNotOwner     = errors.New("caller is not the price feed owner")
)

//go:embed solidity/PriceFeed.abi
var priceFeedABI string

// BuildConfig builds price feeds, each feed lives at the address it was created with in genesis
var BuildConfig = &common.SystemContractBuildConfig[*PriceFeed]{
	Name:   "price_feed",
	AbiStr: priceFeedABI,
	Constructor: func(systemContractBase common.SystemContractBase) *PriceFeed {
		return &PriceFeed{
			SystemContractBase: systemContractBase,
		}
	},
}

// Rate is how many units of a token one unit of native value is worth, scaled by 10^Decimals
type Rate struct {
	Answer   *big.Int `json:"answer"`
	Decimals uint8    `json:"decimals"`
}

// PriceFeed is an owner maintained rate table per token
type PriceFeed struct {
	common.SystemContractBase

	owner *common.VMSlot[ethcommon.Address]
	rates *common.VMMap[ethcommon.Address, Rate]
}

func (f *PriceFeed) SetContext(ctx *common.VMContext) {
	f.SystemContractBase.SetContext(ctx)

	f.owner = common.NewVMSlot[ethcommon.Address](f.StateAccount, ownerStorageKey)
	f.rates = common.NewVMMap[ethcommon.Address, Rate](f.StateAccount, ratesStorageKey, common.AddressKey)
}

func (f *PriceFeed) GenesisInit(owner ethcommon.Address, cfg *repo.GenesisPriceFeed) error {
	f.StateAccount.SetCodeAndHash(common.SystemContractCode)
	if err := f.owner.Put(owner); err != nil {
		return err
	}
	for _, r := range cfg.Rates {
		answer, ok := new(big.Int).SetString(r.Answer, 10)
		if !ok {
			return errors.Errorf("invalid rate answer %q for token %s", r.Answer, r.Token)
		}
		if err := f.putRate(ethcommon.HexToAddress(r.Token), answer, r.Decimals); err != nil {
			return err
		}
	}
	return nil
}

func (f *PriceFeed) Owner() (ethcommon.Address, error) {
	return f.owner.MustGet()
}

func (f *PriceFeed) GetRate(token ethcommon.Address) (*big.Int, uint8, error) {
	if err := f.UseGas(common.StorageReadGas, "read rate"); err != nil {
		return nil, 0, err
	}
	exist, rate, err := f.rates.Get(token)
	if err != nil {
		return nil, 0, err
	}
	if !exist {
		return nil, 0, errors.Wrapf(ErrRateNotFound, "token %s in feed %s", token, f.Address)
	}
	return rate.Answer, rate.Decimals, nil
}

func (f *PriceFeed) SetRate(token ethcommon.Address, answer *big.Int, decimals uint8) error {
	owner, err := f.Owner()
	if err != nil {
		return err
	}
	if f.Ctx.From != owner {
		return errors.Wrapf(ErrNotOwner, "caller %s", f.Ctx.From)
	}
	return f.putRate(token, answer, decimals)
}

func (f *PriceFeed) putRate(token ethcommon.Address, answer *big.Int, decimals uint8) error {
	if answer.Sign() < 0 {
		return errors.Errorf("negative rate %s", answer)
	}
	if err := f.rates.Put(token, Rate{Answer: answer, Decimals: decimals}); err != nil {
		return err
	}
	f.EmitEvent("RateUpdated", token, answer, decimals)
	return nil
}
