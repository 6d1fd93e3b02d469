package coreapi

import (
	"math/big"

	ethcommon "github.com/ethereum/go-ethereum/common"

	"github.com/axiomesh/axiom-relay/internal/coreapi/api"
	"github.com/axiomesh/axiom-relay/internal/executor/system/stake"
)

type ChainAPI CoreAPI

var _ api.ChainAPI = (*ChainAPI)(nil)

func (c *ChainAPI) ChainID() uint64 {
	return c.relay.ChainID()
}

func (c *ChainAPI) BatchHeight() uint64 {
	return c.relay.BatchHeight()
}

func (c *ChainAPI) Status() string {
	if c.relay.Ctx.Err() != nil {
		return "stopped"
	}
	return "normal"
}

func (c *ChainAPI) GetBalance(addr ethcommon.Address) *big.Int {
	return c.relay.GetBalance(addr)
}

func (c *ChainAPI) GetNonce(sender ethcommon.Address) (*big.Int, error) {
	return c.relay.GetNonce(sender)
}

func (c *ChainAPI) GetGuardians(sender ethcommon.Address) ([]ethcommon.Address, error) {
	return c.relay.GetGuardians(sender)
}

func (c *ChainAPI) GetStake(addr ethcommon.Address) (*stake.Entry, error) {
	return c.relay.GetStake(addr)
}
