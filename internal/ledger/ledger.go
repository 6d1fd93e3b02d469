package ledger

import (
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

// IAccount is one ledger account: native balance, a code marker for materialized contracts and a byte keyed storage
type IAccount interface {
	fmt.Stringer

	GetAddress() common.Address

	GetState(key []byte) (bool, []byte)

	SetState(key []byte, value []byte)

	SetCodeAndHash(code []byte)

	Code() []byte

	CodeHash() common.Hash

	GetBalance() *big.Int

	SetBalance(balance *big.Int)

	SubBalance(amount *big.Int)

	AddBalance(amount *big.Int)

	IsEmpty() bool
}

// StateLedger is the journaled world state.
// Every mutation made after Snapshot can be undone by RevertToSnapshot until Finalise is called.
type StateLedger interface {
	GetOrCreateAccount(addr common.Address) IAccount

	// GetAccount returns nil when the account was never touched
	GetAccount(addr common.Address) IAccount

	GetBalance(addr common.Address) *big.Int

	SetBalance(addr common.Address, value *big.Int)

	AddBalance(addr common.Address, value *big.Int)

	SubBalance(addr common.Address, value *big.Int)

	// Transfer moves value between accounts, it fails without side effects when from can not afford it
	Transfer(from, to common.Address, value *big.Int) error

	GetState(addr common.Address, key []byte) (bool, []byte)

	SetState(addr common.Address, key []byte, value []byte)

	SetCode(addr common.Address, code []byte)

	GetCode(addr common.Address) []byte

	// HasCode reports whether a contract (account) is materialized at addr
	HasCode(addr common.Address) bool

	Snapshot() int

	RevertToSnapshot(revid int)

	// Finalise drops the journal, the current state becomes the new baseline
	Finalise()

	// Commit finalises and flushes all dirty accounts into the backend
	Commit() error
}
