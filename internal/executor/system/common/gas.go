package common

import (
	"math"

	"github.com/ethereum/go-ethereum/params"
	"github.com/pkg/errors"
)

const (
	CallGas              = params.CallGasEIP150
	CallValueTransferGas = params.CallValueTransferGas
	EcrecoverGas         = params.EcrecoverGas
	CreateAccountGas     = params.CreateGas
	StorageReadGas       = params.SloadGasEIP2200
	StorageWriteGas      = params.SstoreResetGasEIP2200
)

// GasMeter tracks gas consumed against a limit, consuming past the limit fails with ErrOutOfGas
type GasMeter struct {
	limit uint64
	used  uint64
}

func NewGasMeter(limit uint64) *GasMeter {
	return &GasMeter{limit: limit}
}

// NewInfiniteGasMeter is used for view calls and genesis
func NewInfiniteGasMeter() *GasMeter {
	return &GasMeter{limit: math.MaxUint64}
}

func (g *GasMeter) Consume(amount uint64, descriptor string) error {
	used := g.used + amount
	if used < g.used || used > g.limit {
		g.used = g.limit
		return errors.Wrapf(ErrOutOfGas, "%s: need %d, remaining %d", descriptor, amount, g.Remaining())
	}
	g.used = used
	return nil
}

func (g *GasMeter) Used() uint64 {
	return g.used
}

func (g *GasMeter) Limit() uint64 {
	return g.limit
}

func (g *GasMeter) Remaining() uint64 {
	if g.used >= g.limit {
		return 0
	}
	return g.limit - g.used
}

// CalculateDynamicGas is the calldata cost of a message
func CalculateDynamicGas(data []byte) uint64 {
	var gas uint64
	for _, b := range data {
		if b == 0 {
			gas += params.TxDataZeroGas
		} else {
			gas += params.TxDataNonZeroGasEIP2028
		}
	}
	return gas
}
