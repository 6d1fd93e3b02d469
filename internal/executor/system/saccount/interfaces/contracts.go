package interfaces

import (
	"math/big"

	ethcommon "github.com/ethereum/go-ethereum/common"

	"github.com/axiomesh/axiom-relay/internal/executor/system/common"
)

// IAccount is what the relay needs from an account
type IAccount interface {
	common.SystemContract

	// Validate checks signature and nonce of op, and moves requiredPrefund into the relay custody
	Validate(op *Operation, requestHash []byte, requiredPrefund *big.Int) error

	GetNonce() (*big.Int, error)

	GetOwner() (ethcommon.Address, error)

	GetGuardians() ([]ethcommon.Address, error)
}

// IFeeSponsor is what the relay needs from a fee sponsor
type IFeeSponsor interface {
	IAccount

	// ValidateSponsorship returns the encoded charge context for op
	ValidateSponsorship(op *Operation, maxCost *big.Int) ([]byte, error)

	// Settle charges the account amountDue of actualCost
	Settle(context []byte, actualCost *big.Int) error
}
