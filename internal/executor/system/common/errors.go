package common

import (
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/pkg/errors"
)

var (
	ErrNoCrossCaller = errors.New("cross contract call is not available in this context")
	ErrOutOfGas      = errors.New("out of gas")
)

// RevertError carries abi encoded revert data of a custom error or Error(string)
type RevertError struct {
	Name   string
	Data   []byte
	reason string
}

func (e *RevertError) Error() string {
	return e.reason
}

// NewRevertError encodes the custom error name(args) with the given values
func NewRevertError(name string, args abi.Arguments, values []any) error {
	types := make([]string, 0, len(args))
	for _, arg := range args {
		types = append(types, arg.Type.String())
	}
	selector := crypto.Keccak256([]byte(fmt.Sprintf("%s(%s)", name, strings.Join(types, ","))))[:4]

	packed, err := args.Pack(values...)
	if err != nil {
		return errors.Wrapf(err, "pack revert error %s", name)
	}

	reason := name
	if len(values) != 0 {
		reason = fmt.Sprintf("%s%v", name, values)
	}
	return &RevertError{
		Name:   name,
		Data:   append(selector, packed...),
		reason: reason,
	}
}

var revertStringSelector = crypto.Keccak256([]byte("Error(string)"))[:4]

func NewRevertStringError(reason string) error {
	packed, err := abi.Arguments{{Type: StringType}}.Pack(reason)
	if err != nil {
		return errors.Wrap(err, "pack revert reason")
	}
	return &RevertError{
		Name:   "Error",
		Data:   append(append([]byte{}, revertStringSelector...), packed...),
		reason: reason,
	}
}
