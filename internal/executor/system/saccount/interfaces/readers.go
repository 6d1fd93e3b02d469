package interfaces

import (
	"math/big"

	ethcommon "github.com/ethereum/go-ethereum/common"
)

//go:generate mockgen -destination mock_interfaces/mock_readers.go -package mock_interfaces -source readers.go -typed

// PriceFeedReader reads (answer, decimals) of token from the price feed at feed
type PriceFeedReader interface {
	GetRate(feed, token ethcommon.Address) (answer *big.Int, decimals uint8, err error)
}

// TokenReader reads erc20 state of a fee token
type TokenReader interface {
	Decimals(token ethcommon.Address) (uint8, error)

	Allowance(token, owner, spender ethcommon.Address) (*big.Int, error)
}
