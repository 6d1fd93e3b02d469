package interfaces

import (
	"crypto/ecdsa"

	"github.com/ethereum/go-ethereum/accounts"
	"github.com/ethereum/go-ethereum/accounts/abi"
	ethcommon "github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/pkg/errors"

	"github.com/axiomesh/axiom-relay/internal/executor/system/common"
)

// SignerType tags which authority signed an operation
type SignerType uint8

const (
	SignerTypeOwner SignerType = iota
	SignerTypeGuardian
)

func (t SignerType) String() string {
	switch t {
	case SignerTypeOwner:
		return "owner"
	case SignerTypeGuardian:
		return "guardian"
	default:
		return "unknown"
	}
}

type SignerSignature struct {
	Signer    ethcommon.Address
	Signature []byte
}

// Signature is the decoded op.signature: an owner signature carries exactly one pair,
// a guardian signature one pair per co-signing guardian
type Signature struct {
	Type  SignerType
	Pairs []SignerSignature
}

var signatureArgs = abi.Arguments{
	{Name: "signerType", Type: common.Uint8Type},
	{Name: "signers", Type: common.AddressSliceType},
	{Name: "signatures", Type: common.BytesSliceType},
}

func DecodeSignature(raw []byte) (*Signature, error) {
	values, err := signatureArgs.Unpack(raw)
	if err != nil {
		return nil, errors.Wrap(ErrInvalidSignatureFormat, err.Error())
	}
	signerType := SignerType(values[0].(uint8))
	signers := values[1].([]ethcommon.Address)
	sigs := values[2].([][]byte)
	if len(signers) != len(sigs) || len(signers) == 0 {
		return nil, errors.Wrapf(ErrInvalidSignatureFormat, "%d signers with %d signatures", len(signers), len(sigs))
	}
	switch signerType {
	case SignerTypeOwner, SignerTypeGuardian:
	default:
		return nil, errors.Wrapf(ErrInvalidSignatureFormat, "unknown signer type %d", signerType)
	}

	sig := &Signature{Type: signerType}
	for i := range signers {
		sig.Pairs = append(sig.Pairs, SignerSignature{Signer: signers[i], Signature: sigs[i]})
	}
	return sig, nil
}

func (s *Signature) Encode() ([]byte, error) {
	signers := make([]ethcommon.Address, 0, len(s.Pairs))
	sigs := make([][]byte, 0, len(s.Pairs))
	for _, p := range s.Pairs {
		signers = append(signers, p.Signer)
		sigs = append(sigs, p.Signature)
	}
	return signatureArgs.Pack(uint8(s.Type), signers, sigs)
}

// RecoverSigner recovers the address that signed the EIP-191 text hash of hash.
// v may be 0/1 or 27/28.
func RecoverSigner(hash []byte, signature []byte) (ethcommon.Address, error) {
	if len(signature) != crypto.SignatureLength {
		return ethcommon.Address{}, errors.Errorf("invalid signature length %d", len(signature))
	}
	sig := make([]byte, len(signature))
	copy(sig, signature)
	if sig[crypto.RecoveryIDOffset] >= 27 {
		sig[crypto.RecoveryIDOffset] -= 27
	}
	if sig[crypto.RecoveryIDOffset] > 1 {
		return ethcommon.Address{}, errors.Errorf("invalid signature recovery id %d", signature[crypto.RecoveryIDOffset])
	}

	pubKey, err := crypto.SigToPub(accounts.TextHash(hash), sig)
	if err != nil {
		return ethcommon.Address{}, err
	}
	return crypto.PubkeyToAddress(*pubKey), nil
}

// SignHash signs the EIP-191 text hash of hash the way wallets sign messages
func SignHash(hash []byte, key *ecdsa.PrivateKey) ([]byte, error) {
	sig, err := crypto.Sign(accounts.TextHash(hash), key)
	if err != nil {
		return nil, err
	}
	sig[crypto.RecoveryIDOffset] += 27
	return sig, nil
}

// NewOwnerSignature builds the encoded op.signature of an owner signed request hash
func NewOwnerSignature(requestHash []byte, owner *ecdsa.PrivateKey) ([]byte, error) {
	sig, err := SignHash(requestHash, owner)
	if err != nil {
		return nil, err
	}
	return (&Signature{
		Type:  SignerTypeOwner,
		Pairs: []SignerSignature{{Signer: crypto.PubkeyToAddress(owner.PublicKey), Signature: sig}},
	}).Encode()
}

// NewGuardianSignature builds the encoded op.signature co-signed by guardians
func NewGuardianSignature(requestHash []byte, guardians ...*ecdsa.PrivateKey) ([]byte, error) {
	s := &Signature{Type: SignerTypeGuardian}
	for _, g := range guardians {
		sig, err := SignHash(requestHash, g)
		if err != nil {
			return nil, err
		}
		s.Pairs = append(s.Pairs, SignerSignature{Signer: crypto.PubkeyToAddress(g.PublicKey), Signature: sig})
	}
	return s.Encode()
}
