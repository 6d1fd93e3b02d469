package interfaces

import (
	"math/big"

	"github.com/ethereum/go-ethereum/accounts/abi"
	ethcommon "github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/pkg/errors"

	"github.com/axiomesh/axiom-relay/internal/executor/system/common"
)

// SponsorMode selects how a fee sponsor charges the account
type SponsorMode uint8

const (
	// SponsorModeTokenCost charges the gas cost converted into the fee token plus the flat fee
	SponsorModeTokenCost SponsorMode = iota
	// SponsorModeFlatFee charges only the flat fee, the sponsor absorbs the gas cost
	SponsorModeFlatFee
)

func (m SponsorMode) Valid() bool {
	return m == SponsorModeTokenCost || m == SponsorModeFlatFee
}

// SponsorData is the decoded op.feeSponsorData
type SponsorData struct {
	Fee       *big.Int
	Mode      SponsorMode
	FeeToken  ethcommon.Address
	PriceFeed ethcommon.Address
	Signature []byte
}

var sponsorDataArgs = abi.Arguments{
	{Name: "fee", Type: common.BigIntType},
	{Name: "mode", Type: common.Uint8Type},
	{Name: "feeToken", Type: common.AddressType},
	{Name: "priceFeed", Type: common.AddressType},
	{Name: "signature", Type: common.BytesType},
}

func DecodeSponsorData(raw []byte) (*SponsorData, error) {
	values, err := sponsorDataArgs.Unpack(raw)
	if err != nil {
		return nil, errors.Wrap(ErrInvalidSponsorData, err.Error())
	}
	return &SponsorData{
		Fee:       values[0].(*big.Int),
		Mode:      SponsorMode(values[1].(uint8)),
		FeeToken:  values[2].(ethcommon.Address),
		PriceFeed: values[3].(ethcommon.Address),
		Signature: values[4].([]byte),
	}, nil
}

func (d *SponsorData) Encode() ([]byte, error) {
	return sponsorDataArgs.Pack(d.Fee, uint8(d.Mode), d.FeeToken, d.PriceFeed, d.Signature)
}

// GetSponsorHash is the hash the fee sponsor owner signs to authorize charging op
func GetSponsorHash(op *Operation, chainID *big.Int, fee *big.Int, mode SponsorMode, feeToken, priceFeed ethcommon.Address) ethcommon.Hash {
	args := abi.Arguments{
		{Name: "sender", Type: common.AddressType},
		{Name: "nonce", Type: common.BigIntType},
		{Name: "initCode", Type: common.Bytes32Type},
		{Name: "callData", Type: common.Bytes32Type},
		{Name: "callGas", Type: common.BigIntType},
		{Name: "verificationGas", Type: common.BigIntType},
		{Name: "preVerificationGas", Type: common.BigIntType},
		{Name: "maxFeePerGas", Type: common.BigIntType},
		{Name: "maxPriorityFeePerGas", Type: common.BigIntType},
		{Name: "feeSponsor", Type: common.AddressType},
		{Name: "chainId", Type: common.BigIntType},
		{Name: "fee", Type: common.BigIntType},
		{Name: "mode", Type: common.Uint8Type},
		{Name: "feeToken", Type: common.AddressType},
		{Name: "priceFeed", Type: common.AddressType},
	}
	packed, _ := args.Pack(
		op.Sender,
		op.Nonce,
		crypto.Keccak256Hash(op.InitCode),
		crypto.Keccak256Hash(op.CallData),
		op.CallGas,
		op.VerificationGas,
		op.PreVerificationGas,
		op.MaxFeePerGas,
		op.MaxPriorityFeePerGas,
		op.FeeSponsor,
		chainID,
		fee,
		uint8(mode),
		feeToken,
		priceFeed,
	)
	return crypto.Keccak256Hash(packed)
}

// ChargeContext is produced by sponsor validation and consumed by settlement
type ChargeContext struct {
	Sender       ethcommon.Address
	FeeToken     ethcommon.Address
	ExchangeRate *big.Int
	Fee          *big.Int
	Mode         SponsorMode
}

var chargeContextArgs = abi.Arguments{
	{Name: "sender", Type: common.AddressType},
	{Name: "feeToken", Type: common.AddressType},
	{Name: "exchangeRate", Type: common.BigIntType},
	{Name: "fee", Type: common.BigIntType},
	{Name: "mode", Type: common.Uint8Type},
}

func (c *ChargeContext) Encode() ([]byte, error) {
	return chargeContextArgs.Pack(c.Sender, c.FeeToken, c.ExchangeRate, c.Fee, uint8(c.Mode))
}

func DecodeChargeContext(raw []byte) (*ChargeContext, error) {
	values, err := chargeContextArgs.Unpack(raw)
	if err != nil {
		return nil, errors.Wrap(err, "decode charge context")
	}
	return &ChargeContext{
		Sender:       values[0].(ethcommon.Address),
		FeeToken:     values[1].(ethcommon.Address),
		ExchangeRate: values[2].(*big.Int),
		Fee:          values[3].(*big.Int),
		Mode:         SponsorMode(values[4].(uint8)),
	}, nil
}

// AmountDue is actualCost * exchangeRate + fee
func (c *ChargeContext) AmountDue(actualCost *big.Int) *big.Int {
	due := new(big.Int).Mul(actualCost, c.ExchangeRate)
	return due.Add(due, c.Fee)
}
