package saccount

import (
	"math/big"

	ethcommon "github.com/ethereum/go-ethereum/common"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/axiomesh/axiom-relay/internal/executor/system/common"
	"github.com/axiomesh/axiom-relay/internal/executor/system/pricefeed"
	"github.com/axiomesh/axiom-relay/internal/executor/system/saccount/interfaces"
	"github.com/axiomesh/axiom-relay/internal/executor/system/token"
	"github.com/axiomesh/axiom-relay/pkg/loggers"
)

var FeeSponsorBuildConfig = &common.SystemContractBuildConfig[*FeeSponsor]{
	Name:   "saccount_fee_sponsor",
	AbiStr: smartAccountABI,
	Constructor: func(systemContractBase common.SystemContractBase) *FeeSponsor {
		systemContractBase.Logger = loggers.Logger(loggers.Sponsor)
		sponsor := &FeeSponsor{
			SmartAccount: SmartAccount{SystemContractBase: systemContractBase},
		}
		sponsor.tokens = &vmTokenReader{base: &sponsor.SystemContractBase}
		sponsor.priceFeeds = &vmPriceFeedReader{base: &sponsor.SystemContractBase}
		return sponsor
	},
}

var _ interfaces.IFeeSponsor = (*FeeSponsor)(nil)

// FeeSponsor is a smart account that pays operations upfront and charges the account a token fee.
// Its collateral lives in the fixed lock stake ledger.
type FeeSponsor struct {
	SmartAccount

	tokens     interfaces.TokenReader
	priceFeeds interfaces.PriceFeedReader
}

// SetReaders replaces how token state and price feeds are read
func (s *FeeSponsor) SetReaders(tokens interfaces.TokenReader, priceFeeds interfaces.PriceFeedReader) {
	s.tokens = tokens
	s.priceFeeds = priceFeeds
}

// ValidateSponsorship checks the owner's authorization of op and that the account allowance
// covers maxCost, it returns the encoded charge context settle consumes
func (s *FeeSponsor) ValidateSponsorship(op *interfaces.Operation, maxCost *big.Int) ([]byte, error) {
	if err := s.onlyRelay(); err != nil {
		return nil, err
	}
	data, err := interfaces.DecodeSponsorData(op.FeeSponsorData)
	if err != nil {
		return nil, err
	}
	if !data.Mode.Valid() {
		return nil, errors.Wrapf(interfaces.ErrUnsupportedSponsorMode, "mode %d", data.Mode)
	}

	owner, err := s.GetOwner()
	if err != nil {
		return nil, err
	}
	hash := interfaces.GetSponsorHash(op, s.Ctx.ChainID, data.Fee, data.Mode, data.FeeToken, data.PriceFeed)
	ok, err := s.verify(hash.Bytes(), interfaces.SignerSignature{Signer: owner, Signature: data.Signature})
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, errors.Wrap(interfaces.ErrInvalidSignature, "sponsor signature does not recover to the sponsor owner")
	}

	allowance, err := s.allowance(op, data.FeeToken)
	if err != nil {
		return nil, err
	}
	exchangeRate := new(big.Int)
	if data.Mode == interfaces.SponsorModeTokenCost {
		if exchangeRate, err = s.exchangeRate(data.FeeToken, data.PriceFeed); err != nil {
			return nil, err
		}
	}

	charge := &interfaces.ChargeContext{
		Sender:       op.Sender,
		FeeToken:     data.FeeToken,
		ExchangeRate: exchangeRate,
		Fee:          data.Fee,
		Mode:         data.Mode,
	}
	if required := charge.AmountDue(maxCost); allowance.Cmp(required) < 0 {
		return nil, errors.Wrapf(interfaces.ErrNotApproved, "allowance %s, required %s", allowance, required)
	}
	return charge.Encode()
}

// allowance of sender to the sponsor, an approval made by op itself takes precedence
func (s *FeeSponsor) allowance(op *interfaces.Operation, feeToken ethcommon.Address) (*big.Int, error) {
	method, args, err := s.decodeCall(op.CallData)
	if err == nil && method.Name == "execute" && args[0].(ethcommon.Address) == feeToken {
		if spender, amount, ok := decodeApprove(args[2].([]byte)); ok && spender == s.Address {
			return amount, nil
		}
	}
	return s.tokens.Allowance(feeToken, op.Sender, s.Address)
}

// exchangeRate is the token base units charged per native base unit
func (s *FeeSponsor) exchangeRate(feeToken, priceFeed ethcommon.Address) (*big.Int, error) {
	answer, feedDecimals, err := s.priceFeeds.GetRate(priceFeed, feeToken)
	if err != nil {
		return nil, errors.Wrapf(err, "read rate of %s from %s", feeToken, priceFeed)
	}
	tokenDecimals, err := s.tokens.Decimals(feeToken)
	if err != nil {
		return nil, errors.Wrapf(err, "read decimals of %s", feeToken)
	}
	rate := new(big.Int).Mul(answer, new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(tokenDecimals)), nil))
	return rate.Div(rate, new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(feedDecimals)), nil)), nil
}

// Settle charges the account actualCost * exchangeRate + fee of the fee token
func (s *FeeSponsor) Settle(context []byte, actualCost *big.Int) error {
	if err := s.onlyRelay(); err != nil {
		return err
	}
	charge, err := interfaces.DecodeChargeContext(context)
	if err != nil {
		return err
	}
	amount := charge.AmountDue(actualCost)
	if amount.Sign() == 0 {
		return nil
	}

	calldata, err := token.ABI().Pack("transferFrom", charge.Sender, s.Address, amount)
	if err != nil {
		return err
	}
	if _, err := s.CallContract(charge.FeeToken, nil, calldata); err != nil {
		return errors.Wrapf(interfaces.ErrSettleFailed, "charge %s of %s from %s: %v", amount, charge.FeeToken, charge.Sender, err)
	}

	s.EmitEvent("SponsorCharged", charge.Sender, charge.FeeToken, amount)
	s.Logger.WithFields(logrus.Fields{"sponsor": s.Address, "sender": charge.Sender, "token": charge.FeeToken, "amount": amount}).Info("sponsor charged")
	return nil
}

type vmTokenReader struct {
	base *common.SystemContractBase
}

func (r *vmTokenReader) Decimals(feeToken ethcommon.Address) (uint8, error) {
	out, err := r.call(feeToken, "decimals")
	if err != nil {
		return 0, err
	}
	return out[0].(uint8), nil
}

func (r *vmTokenReader) Allowance(feeToken, owner, spender ethcommon.Address) (*big.Int, error) {
	out, err := r.call(feeToken, "allowance", owner, spender)
	if err != nil {
		return nil, err
	}
	return out[0].(*big.Int), nil
}

func (r *vmTokenReader) call(feeToken ethcommon.Address, method string, args ...any) ([]any, error) {
	tokenABI := token.ABI()
	calldata, err := tokenABI.Pack(method, args...)
	if err != nil {
		return nil, err
	}
	ret, err := r.base.CallContract(feeToken, nil, calldata)
	if err != nil {
		return nil, err
	}
	return tokenABI.Unpack(method, ret)
}

type vmPriceFeedReader struct {
	base *common.SystemContractBase
}

func (r *vmPriceFeedReader) GetRate(feed, feeToken ethcommon.Address) (*big.Int, uint8, error) {
	feedABI := pricefeed.BuildConfig.GetABI()
	calldata, err := feedABI.Pack("getRate", feeToken)
	if err != nil {
		return nil, 0, err
	}
	ret, err := r.base.CallContract(feed, nil, calldata)
	if err != nil {
		return nil, 0, err
	}
	out, err := feedABI.Unpack("getRate", ret)
	if err != nil {
		return nil, 0, err
	}
	return out[0].(*big.Int), out[1].(uint8), nil
}
