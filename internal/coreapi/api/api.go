package api

import (
	"math/big"

	ethcommon "github.com/ethereum/go-ethereum/common"

	"github.com/axiomesh/axiom-relay/internal/executor/system/saccount"
	"github.com/axiomesh/axiom-relay/internal/executor/system/saccount/interfaces"
	"github.com/axiomesh/axiom-relay/internal/executor/system/stake"
)

type CoreAPI interface {
	Broker() BrokerAPI
	Chain() ChainAPI
}

// BrokerAPI accepts operations from clients
type BrokerAPI interface {
	SubmitBatch(ops []*interfaces.Operation, redeemer ethcommon.Address) (*saccount.BatchResult, error)
	SimulateValidation(op *interfaces.Operation) (*saccount.ValidationResult, error)
	GetRequestHash(op *interfaces.Operation) (ethcommon.Hash, error)
	GetSenderAddress(initCode []byte) (ethcommon.Address, error)
}

// ChainAPI reads the committed state
type ChainAPI interface {
	ChainID() uint64
	BatchHeight() uint64
	Status() string
	GetBalance(addr ethcommon.Address) *big.Int
	GetNonce(sender ethcommon.Address) (*big.Int, error)
	GetGuardians(sender ethcommon.Address) ([]ethcommon.Address, error)
	GetStake(addr ethcommon.Address) (*stake.Entry, error)
}
