package coreapi

import (
	ethcommon "github.com/ethereum/go-ethereum/common"
	"github.com/sirupsen/logrus"

	"github.com/axiomesh/axiom-relay/internal/coreapi/api"
	"github.com/axiomesh/axiom-relay/internal/executor/system/saccount"
	"github.com/axiomesh/axiom-relay/internal/executor/system/saccount/interfaces"
)

type BrokerAPI CoreAPI

var _ api.BrokerAPI = (*BrokerAPI)(nil)

func (b *BrokerAPI) SubmitBatch(ops []*interfaces.Operation, redeemer ethcommon.Address) (*saccount.BatchResult, error) {
	b.logger.WithFields(logrus.Fields{
		"ops":      len(ops),
		"redeemer": redeemer,
	}).Debug("Receive batch")
	return b.relay.SubmitBatch(ops, redeemer)
}

func (b *BrokerAPI) SimulateValidation(op *interfaces.Operation) (*saccount.ValidationResult, error) {
	return b.relay.SimulateValidation(op)
}

func (b *BrokerAPI) GetRequestHash(op *interfaces.Operation) (ethcommon.Hash, error) {
	return b.relay.GetRequestHash(op)
}

func (b *BrokerAPI) GetSenderAddress(initCode []byte) (ethcommon.Address, error) {
	return b.relay.GetSenderAddress(initCode)
}
