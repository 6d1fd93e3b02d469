package saccount

import (
	"bytes"
	_ "embed"

	"github.com/ethereum/go-ethereum/accounts/abi"
	ethcommon "github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/axiomesh/axiom-relay/internal/executor/system/common"
	"github.com/axiomesh/axiom-relay/internal/executor/system/saccount/interfaces"
)

const DefaultAddressCacheSize = 4096

//go:embed solidity/SmartAccountFactory.abi
var smartAccountFactoryABI string

var SmartAccountFactoryBuildConfig = &common.SystemContractBuildConfig[*SmartAccountFactory]{
	Name:    "saccount_factory",
	Address: common.AccountFactoryContractAddr,
	AbiStr:  smartAccountFactoryABI,
	Constructor: func(systemContractBase common.SystemContractBase) *SmartAccountFactory {
		return &SmartAccountFactory{
			SystemContractBase: systemContractBase,
		}
	},
}

// derived addresses keyed by the hash of the derivation inputs
var addressCache, _ = lru.New[ethcommon.Hash, ethcommon.Address](DefaultAddressCacheSize)

// ResizeAddressCache changes how many derived account addresses are memoized
func ResizeAddressCache(size int) {
	if size <= 0 {
		size = DefaultAddressCacheSize
	}
	addressCache.Resize(size)
}

var derivationArgs = abi.Arguments{
	{Name: "implementation", Type: common.AddressType},
	{Name: "entryPoint", Type: common.AddressType},
	{Name: "owner", Type: common.AddressType},
	{Name: "guardians", Type: common.AddressSliceType},
}

// SmartAccountFactory derives account addresses from (implementation, relay, owner, guardians)
// and materializes accounts at them.
// createAccount returns the address even if the account already exists, so the address
// can be computed before or after creation.
type SmartAccountFactory struct {
	common.SystemContractBase
}

func (f *SmartAccountFactory) GenesisInit() {
	f.StateAccount.SetCodeAndHash(common.SystemContractCode)
}

// GetAddress returns the deterministic account address, it is pure and needs no context
func (f *SmartAccountFactory) GetAddress(implementation, owner ethcommon.Address, guardians []ethcommon.Address) (ethcommon.Address, error) {
	entryPoint := ethcommon.HexToAddress(common.EntryPointContractAddr)
	packed, err := derivationArgs.Pack(implementation, entryPoint, owner, guardians)
	if err != nil {
		return ethcommon.Address{}, errors.Wrap(interfaces.ErrInvalidInitCode, err.Error())
	}
	salt := crypto.Keccak256Hash(packed)
	if addr, ok := addressCache.Get(salt); ok {
		return addr, nil
	}

	addr := crypto.CreateAddress2(f.Address, salt, crypto.Keccak256(implementation.Bytes(), entryPoint.Bytes()))
	addressCache.Add(salt, addr)
	return addr, nil
}

func (f *SmartAccountFactory) CreateAccount(implementation, owner ethcommon.Address, guardians []ethcommon.Address) (ethcommon.Address, error) {
	if !IsRegisteredImplementation(implementation) {
		return ethcommon.Address{}, errors.Wrapf(interfaces.ErrUnknownImplementation, "%s", implementation)
	}
	if owner == (ethcommon.Address{}) {
		return ethcommon.Address{}, errors.Wrap(interfaces.ErrInvalidInitCode, "owner is the zero address")
	}
	addr, err := f.GetAddress(implementation, owner, guardians)
	if err != nil {
		return ethcommon.Address{}, err
	}
	if IsSmartAccount(f.Ctx, addr) {
		return addr, nil
	}

	if err := f.UseGas(common.CreateAccountGas, "create account"); err != nil {
		return ethcommon.Address{}, err
	}
	account := SmartAccountBuildConfig.BuildAt(addr, f.CrossCallSystemContractContext())
	if err := account.Initialize(owner, guardians, implementation); err != nil {
		return ethcommon.Address{}, err
	}

	f.EmitEvent("AccountCreated", addr, owner, implementation)
	f.Logger.WithFields(logrus.Fields{"account": addr, "owner": owner}).Info("smart account created")
	return addr, nil
}

// ParseInitCode decodes initCode, which is createAccount calldata of the factory
func (f *SmartAccountFactory) ParseInitCode(initCode []byte) (implementation, owner ethcommon.Address, guardians []ethcommon.Address, err error) {
	method := f.Abi.Methods["createAccount"]
	if len(initCode) < 4 || !bytes.Equal(initCode[:4], method.ID) {
		return implementation, owner, nil, errors.Wrap(interfaces.ErrInvalidInitCode, "not a createAccount call")
	}
	args, err := method.Inputs.Unpack(initCode[4:])
	if err != nil {
		return implementation, owner, nil, errors.Wrap(interfaces.ErrInvalidInitCode, err.Error())
	}
	return args[0].(ethcommon.Address), args[1].(ethcommon.Address), args[2].([]ethcommon.Address), nil
}

// PackInitCode encodes the initCode creating an account for owner with guardians
func PackInitCode(implementation, owner ethcommon.Address, guardians []ethcommon.Address) ([]byte, error) {
	return SmartAccountFactoryBuildConfig.GetABI().Pack("createAccount", implementation, owner, guardians)
}
