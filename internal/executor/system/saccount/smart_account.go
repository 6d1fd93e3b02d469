package saccount

import (
	"bytes"
	_ "embed"
	"math/big"

	"github.com/ethereum/go-ethereum/accounts/abi"
	ethcommon "github.com/ethereum/go-ethereum/common"
	"github.com/pkg/errors"
	"github.com/samber/lo"
	"github.com/sirupsen/logrus"

	"github.com/axiomesh/axiom-relay/internal/executor/system/common"
	"github.com/axiomesh/axiom-relay/internal/executor/system/saccount/interfaces"
	"github.com/axiomesh/axiom-relay/internal/executor/system/token"
	"github.com/axiomesh/axiom-relay/pkg/loggers"
)

const (
	ownerKey          = "owner"
	guardiansKey      = "guardians"
	nonceKey          = "nonce"
	implementationKey = "implementation"
)

var (
	// ValidSignatureMagic is returned by isValidSignature for a valid owner signature
	ValidSignatureMagic = [4]byte{0x16, 0x26, 0xba, 0x7e}

	invalidSignatureMagic = [4]byte{0xff, 0xff, 0xff, 0xff}
)

//go:embed solidity/SmartAccount.abi
var smartAccountABI string

var SmartAccountBuildConfig = &common.SystemContractBuildConfig[*SmartAccount]{
	Name:   "saccount_account",
	AbiStr: smartAccountABI,
	Constructor: func(systemContractBase common.SystemContractBase) *SmartAccount {
		systemContractBase.Logger = loggers.Logger(loggers.Account)
		return &SmartAccount{
			SystemContractBase: systemContractBase,
		}
	},
}

// registered implementations accounts may be created with or upgraded to
var implementations = []ethcommon.Address{
	ethcommon.HexToAddress(common.SmartAccountImplContractAddr),
}

func IsRegisteredImplementation(addr ethcommon.Address) bool {
	return lo.Contains(implementations, addr)
}

// IsSmartAccount reports whether a smart account is materialized at addr
func IsSmartAccount(ctx *common.VMContext, addr ethcommon.Address) bool {
	return bytes.Equal(ctx.StateLedger.GetCode(addr), common.SmartAccountCode)
}

// GuardianThreshold is the number of distinct guardian signatures needed by a guardian signed operation
func GuardianThreshold(guardianCount int) uint64 {
	return uint64(lo.Max([]int{1, guardianCount/2 + 1}))
}

var _ interfaces.IAccount = (*SmartAccount)(nil)

// SmartAccount is a user account controlled by one owner key, with a guardian set able to recover ownership
type SmartAccount struct {
	common.SystemContractBase

	owner          *common.VMSlot[ethcommon.Address]
	guardians      *common.VMSlot[[]ethcommon.Address]
	nonce          *common.VMSlot[*big.Int]
	implementation *common.VMSlot[ethcommon.Address]
}

func (sa *SmartAccount) SetContext(context *common.VMContext) {
	sa.SystemContractBase.SetContext(context)

	sa.owner = common.NewVMSlot[ethcommon.Address](sa.StateAccount, ownerKey)
	sa.guardians = common.NewVMSlot[[]ethcommon.Address](sa.StateAccount, guardiansKey)
	sa.nonce = common.NewVMSlot[*big.Int](sa.StateAccount, nonceKey)
	sa.implementation = common.NewVMSlot[ethcommon.Address](sa.StateAccount, implementationKey)
}

func (sa *SmartAccount) entryPoint() ethcommon.Address {
	return ethcommon.HexToAddress(common.EntryPointContractAddr)
}

func (sa *SmartAccount) onlyRelay() error {
	if sa.Ctx.From != sa.entryPoint() {
		return errors.Wrapf(interfaces.ErrUnauthorizedCaller, "%s is not the relay", sa.Ctx.From)
	}
	return nil
}

// administrative methods are reachable from a validated operation, either directly or as a self call
func (sa *SmartAccount) onlyRelayOrSelf() error {
	if sa.Ctx.From != sa.entryPoint() && sa.Ctx.From != sa.Address {
		return errors.Wrapf(interfaces.ErrUnauthorizedCaller, "%s is neither the relay nor the account", sa.Ctx.From)
	}
	return nil
}

// Initialize materializes the account, only the factory may call it
func (sa *SmartAccount) Initialize(owner ethcommon.Address, guardians []ethcommon.Address, implementation ethcommon.Address) error {
	if sa.Ctx.From != ethcommon.HexToAddress(common.AccountFactoryContractAddr) {
		return errors.Wrapf(interfaces.ErrUnauthorizedCaller, "%s is not the account factory", sa.Ctx.From)
	}
	if sa.owner.Has() {
		return interfaces.ErrSenderAlreadyConstructed
	}
	guardians = lo.Uniq(guardians)
	if lo.Contains(guardians, owner) {
		return interfaces.ErrOwnerCannotBeGuardian
	}

	if err := sa.owner.Put(owner); err != nil {
		return err
	}
	if err := sa.guardians.Put(guardians); err != nil {
		return err
	}
	if err := sa.nonce.Put(new(big.Int)); err != nil {
		return err
	}
	if err := sa.implementation.Put(implementation); err != nil {
		return err
	}
	sa.StateAccount.SetCodeAndHash(common.SmartAccountCode)

	sa.EmitEvent("AccountInitialized", owner, implementation, guardians)
	sa.Logger.WithFields(logrus.Fields{"account": sa.Address, "owner": owner, "guardians": len(guardians)}).Info("smart account initialized")
	return nil
}

// Validate authorizes op against the owner or the guardian set, consumes the nonce
// and moves requiredPrefund of native balance into the relay custody
func (sa *SmartAccount) Validate(op *interfaces.Operation, requestHash []byte, requiredPrefund *big.Int) error {
	if err := sa.onlyRelay(); err != nil {
		return err
	}

	sig, err := interfaces.DecodeSignature(op.Signature)
	if err != nil {
		return err
	}
	switch sig.Type {
	case interfaces.SignerTypeOwner:
		err = sa.validateOwnerSignature(sig, requestHash)
	case interfaces.SignerTypeGuardian:
		err = sa.validateGuardianSignature(op, sig, requestHash)
	}
	if err != nil {
		return err
	}

	if err := sa.useNonce(op.Nonce); err != nil {
		return err
	}

	if requiredPrefund != nil && requiredPrefund.Sign() > 0 {
		if err := sa.Ctx.StateLedger.Transfer(sa.Address, sa.entryPoint(), requiredPrefund); err != nil {
			return errors.Wrapf(interfaces.ErrInsufficientBalance, "prefund %s: %v", requiredPrefund, err)
		}
	}
	return nil
}

func (sa *SmartAccount) validateOwnerSignature(sig *interfaces.Signature, requestHash []byte) error {
	if len(sig.Pairs) != 1 {
		return errors.Wrapf(interfaces.ErrInvalidSignatureFormat, "owner signature with %d signers", len(sig.Pairs))
	}
	owner, err := sa.GetOwner()
	if err != nil {
		return err
	}
	pair := sig.Pairs[0]
	if pair.Signer != owner {
		return errors.Wrapf(interfaces.ErrInvalidOwnerSignature, "signer %s is not the owner", pair.Signer)
	}
	ok, err := sa.verify(requestHash, pair)
	if err != nil {
		return err
	}
	if !ok {
		return errors.Wrapf(interfaces.ErrInvalidOwnerSignature, "signature does not recover to %s", pair.Signer)
	}
	return nil
}

func (sa *SmartAccount) validateGuardianSignature(op *interfaces.Operation, sig *interfaces.Signature, requestHash []byte) error {
	guardians, err := sa.GetGuardians()
	if err != nil {
		return err
	}
	if len(guardians) == 0 {
		return interfaces.ErrNoGuardiansAllowed
	}

	// pairs that are not from a guardian or do not recover are not counted
	signed := make(map[ethcommon.Address]struct{})
	for _, pair := range sig.Pairs {
		if _, ok := signed[pair.Signer]; ok {
			continue
		}
		if !lo.Contains(guardians, pair.Signer) {
			sa.Logger.WithField("account", sa.Address).Debugf("skip signature of non guardian %s", pair.Signer)
			continue
		}
		ok, err := sa.verify(requestHash, pair)
		if err != nil {
			return err
		}
		if !ok {
			continue
		}
		signed[pair.Signer] = struct{}{}
	}

	if threshold := GuardianThreshold(len(guardians)); uint64(len(signed)) < threshold {
		return errors.Wrapf(interfaces.ErrInsufficientGuardians, "%d of %d guardian signatures", len(signed), threshold)
	}
	return sa.checkGuardianAction(op)
}

// checkGuardianAction restricts guardian signed operations to an ownership transfer
// or an approval of the fee token to the operation's fee sponsor
func (sa *SmartAccount) checkGuardianAction(op *interfaces.Operation) error {
	method, args, err := sa.decodeCall(op.CallData)
	if err != nil {
		return errors.Wrap(interfaces.ErrInvalidGuardianAction, err.Error())
	}
	switch method.Name {
	case "transferOwner":
		return nil
	case "execute":
		target, value, data := args[0].(ethcommon.Address), args[1].(*big.Int), args[2].([]byte)
		if target == sa.Address {
			inner, _, err := sa.decodeCall(data)
			if err == nil && inner.Name == "transferOwner" {
				return nil
			}
			return errors.Wrap(interfaces.ErrInvalidGuardianAction, "self call other than transferOwner")
		}
		if !op.HasFeeSponsor() || value.Sign() != 0 {
			return errors.Wrap(interfaces.ErrInvalidGuardianAction, "guardians may only approve the fee sponsor")
		}
		sponsorData, err := interfaces.DecodeSponsorData(op.FeeSponsorData)
		if err != nil {
			return err
		}
		if target != sponsorData.FeeToken {
			return errors.Wrapf(interfaces.ErrInvalidGuardianAction, "call target %s is not the fee token %s", target, sponsorData.FeeToken)
		}
		spender, _, ok := decodeApprove(data)
		if !ok || spender != op.FeeSponsor {
			return errors.Wrap(interfaces.ErrInvalidGuardianAction, "guardians may only approve the fee sponsor")
		}
		return nil
	default:
		return errors.Wrapf(interfaces.ErrInvalidGuardianAction, "method %s", method.Name)
	}
}

func (sa *SmartAccount) decodeCall(data []byte) (*abi.Method, []any, error) {
	if len(data) < 4 {
		return nil, nil, errors.New("call data too short")
	}
	method, err := sa.Abi.MethodById(data[:4])
	if err != nil {
		return nil, nil, err
	}
	args, err := method.Inputs.Unpack(data[4:])
	if err != nil {
		return nil, nil, err
	}
	return method, args, nil
}

// decodeApprove decodes an erc20 approve(spender, amount) call
func decodeApprove(data []byte) (ethcommon.Address, *big.Int, bool) {
	approve := token.ABI().Methods["approve"]
	if len(data) < 4 || !bytes.Equal(data[:4], approve.ID) {
		return ethcommon.Address{}, nil, false
	}
	args, err := approve.Inputs.Unpack(data[4:])
	if err != nil {
		return ethcommon.Address{}, nil, false
	}
	return args[0].(ethcommon.Address), args[1].(*big.Int), true
}

// verify reports whether pair.Signature recovers to pair.Signer, only running out of gas is an error
func (sa *SmartAccount) verify(hash []byte, pair interfaces.SignerSignature) (bool, error) {
	if err := sa.UseGas(common.EcrecoverGas, "ecrecover"); err != nil {
		return false, err
	}
	signer, err := interfaces.RecoverSigner(hash, pair.Signature)
	if err != nil {
		sa.Logger.WithField("account", sa.Address).Debugf("recover signer failed: %v", err)
		return false, nil
	}
	return signer == pair.Signer, nil
}

func (sa *SmartAccount) useNonce(nonce *big.Int) error {
	current, err := sa.GetNonce()
	if err != nil {
		return err
	}
	if nonce.Cmp(current) != 0 {
		return errors.Wrapf(interfaces.ErrInvalidNonce, "expect %s, got %s", current, nonce)
	}
	if err := sa.UseGas(common.StorageWriteGas, "nonce"); err != nil {
		return err
	}
	return sa.nonce.Put(new(big.Int).Add(current, big.NewInt(1)))
}

// Execute performs exactly one call from the account, the callee's error is returned unchanged
func (sa *SmartAccount) Execute(target ethcommon.Address, value *big.Int, data []byte) error {
	if err := sa.onlyRelay(); err != nil {
		return err
	}
	sa.Logger.WithFields(logrus.Fields{"account": sa.Address, "target": target, "value": value}).Debug("execute")

	_, err := sa.CallContract(target, value, data)
	return err
}

func (sa *SmartAccount) GrantGuardian(guardian ethcommon.Address) error {
	if err := sa.onlyRelayOrSelf(); err != nil {
		return err
	}
	owner, err := sa.GetOwner()
	if err != nil {
		return err
	}
	if guardian == owner {
		return interfaces.ErrOwnerCannotBeGuardian
	}
	guardians, err := sa.GetGuardians()
	if err != nil {
		return err
	}
	if lo.Contains(guardians, guardian) {
		return nil
	}
	if err := sa.guardians.Put(append(guardians, guardian)); err != nil {
		return err
	}

	sa.EmitEvent("GuardianGranted", guardian)
	return nil
}

func (sa *SmartAccount) RevokeGuardian(guardian ethcommon.Address) error {
	if err := sa.onlyRelayOrSelf(); err != nil {
		return err
	}
	guardians, err := sa.GetGuardians()
	if err != nil {
		return err
	}
	if !lo.Contains(guardians, guardian) {
		return nil
	}
	if err := sa.guardians.Put(lo.Without(guardians, guardian)); err != nil {
		return err
	}

	sa.EmitEvent("GuardianRevoked", guardian)
	return nil
}

// TransferOwner sets a new owner, a guardian becoming owner leaves the guardian set
func (sa *SmartAccount) TransferOwner(newOwner ethcommon.Address) error {
	if err := sa.onlyRelayOrSelf(); err != nil {
		return err
	}
	if newOwner == (ethcommon.Address{}) {
		return errors.Wrap(interfaces.ErrInvalidCallData, "new owner is the zero address")
	}
	previous, err := sa.GetOwner()
	if err != nil {
		return err
	}
	guardians, err := sa.GetGuardians()
	if err != nil {
		return err
	}
	if lo.Contains(guardians, newOwner) {
		if err := sa.guardians.Put(lo.Without(guardians, newOwner)); err != nil {
			return err
		}
		sa.EmitEvent("GuardianRevoked", newOwner)
	}
	if err := sa.owner.Put(newOwner); err != nil {
		return err
	}

	sa.EmitEvent("OwnerTransferred", previous, newOwner)
	sa.Logger.WithFields(logrus.Fields{"account": sa.Address, "previous": previous, "owner": newOwner}).Info("owner transferred")
	return nil
}

func (sa *SmartAccount) UpgradeImplementation(implementation ethcommon.Address) error {
	if err := sa.onlyRelayOrSelf(); err != nil {
		return err
	}
	if !IsRegisteredImplementation(implementation) {
		return errors.Wrapf(interfaces.ErrUnknownImplementation, "%s", implementation)
	}
	if err := sa.implementation.Put(implementation); err != nil {
		return err
	}

	sa.EmitEvent("ImplementationUpgraded", implementation)
	return nil
}

func (sa *SmartAccount) GetOwner() (ethcommon.Address, error) {
	return sa.owner.MustGet()
}

func (sa *SmartAccount) GetGuardians() ([]ethcommon.Address, error) {
	return sa.guardians.GetOrDefault([]ethcommon.Address{})
}

func (sa *SmartAccount) GetGuardianThreshold() (uint64, error) {
	guardians, err := sa.GetGuardians()
	if err != nil {
		return 0, err
	}
	return GuardianThreshold(len(guardians)), nil
}

func (sa *SmartAccount) GetNonce() (*big.Int, error) {
	return sa.nonce.GetOrDefault(new(big.Int))
}

func (sa *SmartAccount) GetImplementation() (ethcommon.Address, error) {
	return sa.implementation.MustGet()
}

// IsValidSignature checks an owner signature over hash, following erc1271
func (sa *SmartAccount) IsValidSignature(hash [32]byte, signature []byte) ([4]byte, error) {
	owner, err := sa.GetOwner()
	if err != nil {
		return invalidSignatureMagic, err
	}
	ok, err := sa.verify(hash[:], interfaces.SignerSignature{Signer: owner, Signature: signature})
	if err != nil || !ok {
		return invalidSignatureMagic, err
	}
	return ValidSignatureMagic, nil
}
