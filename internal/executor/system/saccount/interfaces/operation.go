package interfaces

import (
	"encoding/json"
	"math/big"

	"github.com/ethereum/go-ethereum/accounts/abi"
	ethcommon "github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/common/math"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/pkg/errors"

	"github.com/axiomesh/axiom-relay/internal/executor/system/common"
)

// MaxGasValueBits bounds every gas limit and fee field of an operation
const MaxGasValueBits = 128

// Operation is one signed unit of work submitted to the relay
type Operation struct {
	Sender               ethcommon.Address
	Nonce                *big.Int
	InitCode             []byte
	CallData             []byte
	CallGas              *big.Int
	VerificationGas      *big.Int
	PreVerificationGas   *big.Int
	MaxFeePerGas         *big.Int
	MaxPriorityFeePerGas *big.Int
	// FeeSponsor is the zero address when the account pays itself
	FeeSponsor     ethcommon.Address
	FeeSponsorData []byte
	Signature      []byte
}

type operationJSON struct {
	Sender               ethcommon.Address `json:"sender"`
	Nonce                *hexutil.Big      `json:"nonce"`
	InitCode             hexutil.Bytes     `json:"initCode"`
	CallData             hexutil.Bytes     `json:"callData"`
	CallGas              *hexutil.Big      `json:"callGas"`
	VerificationGas      *hexutil.Big      `json:"verificationGas"`
	PreVerificationGas   *hexutil.Big      `json:"preVerificationGas"`
	MaxFeePerGas         *hexutil.Big      `json:"maxFeePerGas"`
	MaxPriorityFeePerGas *hexutil.Big      `json:"maxPriorityFeePerGas"`
	FeeSponsor           ethcommon.Address `json:"feeSponsor"`
	FeeSponsorData       hexutil.Bytes     `json:"feeSponsorData"`
	Signature            hexutil.Bytes     `json:"signature"`
}

func (op Operation) MarshalJSON() ([]byte, error) {
	return json.Marshal(&operationJSON{
		Sender:               op.Sender,
		Nonce:                (*hexutil.Big)(op.Nonce),
		InitCode:             op.InitCode,
		CallData:             op.CallData,
		CallGas:              (*hexutil.Big)(op.CallGas),
		VerificationGas:      (*hexutil.Big)(op.VerificationGas),
		PreVerificationGas:   (*hexutil.Big)(op.PreVerificationGas),
		MaxFeePerGas:         (*hexutil.Big)(op.MaxFeePerGas),
		MaxPriorityFeePerGas: (*hexutil.Big)(op.MaxPriorityFeePerGas),
		FeeSponsor:           op.FeeSponsor,
		FeeSponsorData:       op.FeeSponsorData,
		Signature:            op.Signature,
	})
}

func (op *Operation) UnmarshalJSON(input []byte) error {
	var dec operationJSON
	if err := json.Unmarshal(input, &dec); err != nil {
		return err
	}
	toBig := func(v *hexutil.Big) *big.Int {
		if v == nil {
			return new(big.Int)
		}
		return v.ToInt()
	}
	*op = Operation{
		Sender:               dec.Sender,
		Nonce:                toBig(dec.Nonce),
		InitCode:             dec.InitCode,
		CallData:             dec.CallData,
		CallGas:              toBig(dec.CallGas),
		VerificationGas:      toBig(dec.VerificationGas),
		PreVerificationGas:   toBig(dec.PreVerificationGas),
		MaxFeePerGas:         toBig(dec.MaxFeePerGas),
		MaxPriorityFeePerGas: toBig(dec.MaxPriorityFeePerGas),
		FeeSponsor:           dec.FeeSponsor,
		FeeSponsorData:       dec.FeeSponsorData,
		Signature:            dec.Signature,
	}
	return nil
}

func (op *Operation) HasFeeSponsor() bool {
	return op.FeeSponsor != (ethcommon.Address{})
}

// CheckGasValues rejects missing, negative or wider than 128 bit gas fields and a nonce wider than 256 bits
func (op *Operation) CheckGasValues() error {
	fields := []struct {
		name  string
		value *big.Int
	}{
		{"callGas", op.CallGas},
		{"verificationGas", op.VerificationGas},
		{"preVerificationGas", op.PreVerificationGas},
		{"maxFeePerGas", op.MaxFeePerGas},
		{"maxPriorityFeePerGas", op.MaxPriorityFeePerGas},
	}
	for _, f := range fields {
		if f.value == nil || f.value.Sign() < 0 || f.value.BitLen() > MaxGasValueBits {
			return errors.Wrapf(ErrGasValuesOverflow, "%s: %v", f.name, f.value)
		}
	}
	if op.Nonce == nil || op.Nonce.Sign() < 0 || op.Nonce.BitLen() > 256 {
		return errors.Wrapf(ErrGasValuesOverflow, "nonce: %v", op.Nonce)
	}
	return nil
}

// EffectiveGasPrice is min(maxFeePerGas, baseFee + maxPriorityFeePerGas)
func (op *Operation) EffectiveGasPrice(baseFee *big.Int) *big.Int {
	if baseFee == nil {
		baseFee = new(big.Int)
	}
	return math.BigMin(op.MaxFeePerGas, new(big.Int).Add(baseFee, op.MaxPriorityFeePerGas))
}

func (op *Operation) TotalGas() *big.Int {
	total := new(big.Int).Add(op.CallGas, op.VerificationGas)
	return total.Add(total, op.PreVerificationGas)
}

// RequiredPrefund is the worst case cost reserved before execution
func (op *Operation) RequiredPrefund(gasPrice *big.Int) *big.Int {
	return new(big.Int).Mul(op.TotalGas(), gasPrice)
}

// PackForSignature abi encodes the operation with variable length fields replaced by their hashes
func PackForSignature(op *Operation) []byte {
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
		{Name: "feeSponsorData", Type: common.Bytes32Type},
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
		crypto.Keccak256Hash(op.FeeSponsorData),
	)

	return packed
}

// GetRequestHash returns the hash of the operation bound to the relay identity and chain id
func GetRequestHash(op *Operation, entryPoint ethcommon.Address, chainID *big.Int) ethcommon.Hash {
	return crypto.Keccak256Hash(
		crypto.Keccak256(PackForSignature(op)),
		ethcommon.LeftPadBytes(entryPoint.Bytes(), 32),
		ethcommon.LeftPadBytes(chainID.Bytes(), 32),
	)
}
