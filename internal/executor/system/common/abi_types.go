package common

import (
	"github.com/ethereum/go-ethereum/accounts/abi"
)

var (
	BoolType, _         = abi.NewType("bool", "", nil)
	Uint8Type, _        = abi.NewType("uint8", "", nil)
	Uint64Type, _       = abi.NewType("uint64", "", nil)
	BigIntType, _       = abi.NewType("uint256", "", nil)
	StringType, _       = abi.NewType("string", "", nil)
	BytesType, _        = abi.NewType("bytes", "", nil)
	Bytes32Type, _      = abi.NewType("bytes32", "", nil)
	AddressType, _      = abi.NewType("address", "", nil)
	AddressSliceType, _ = abi.NewType("address[]", "", nil)
	BytesSliceType, _   = abi.NewType("bytes[]", "", nil)
)
