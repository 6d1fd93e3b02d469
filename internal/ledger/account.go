package ledger

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/sirupsen/logrus"

	"github.com/axiomesh/axiom-relay/internal/storagemgr"
)

var _ IAccount = (*SimpleAccount)(nil)

// InnerAccount is the persisted account header
type InnerAccount struct {
	Balance  *big.Int    `json:"balance"`
	CodeHash common.Hash `json:"code_hash"`
}

type SimpleAccount struct {
	logger logrus.FieldLogger
	Addr   common.Address

	balance  *big.Int
	code     []byte
	codeHash common.Hash

	// committed state loaded from backend
	originState map[string][]byte

	// state written since the last commit, nil value means deleted
	dirtyState map[string][]byte

	backend storagemgr.Storage
	changer *stateChanger
}

func newAccount(logger logrus.FieldLogger, backend storagemgr.Storage, changer *stateChanger, addr common.Address) *SimpleAccount {
	return &SimpleAccount{
		logger:      logger,
		Addr:        addr,
		balance:     big.NewInt(0),
		originState: make(map[string][]byte),
		dirtyState:  make(map[string][]byte),
		backend:     backend,
		changer:     changer,
	}
}

// loadAccount returns nil if addr was never committed
func loadAccount(logger logrus.FieldLogger, backend storagemgr.Storage, changer *stateChanger, addr common.Address) *SimpleAccount {
	data := backend.Get(compositeAccountKey(addr))
	if data == nil {
		return nil
	}
	var inner InnerAccount
	if err := json.Unmarshal(data, &inner); err != nil {
		panic(fmt.Errorf("unmarshal account %s failed: %w", addr, err))
	}
	acc := newAccount(logger, backend, changer, addr)
	if inner.Balance != nil {
		acc.balance = inner.Balance
	}
	acc.codeHash = inner.CodeHash
	if inner.CodeHash != (common.Hash{}) {
		acc.code = backend.Get(compositeCodeKey(inner.CodeHash))
	}
	return acc
}

func (o *SimpleAccount) String() string {
	return fmt.Sprintf("{addr: %s, balance: %s, code length: %d}", o.Addr, o.balance, len(o.code))
}

func (o *SimpleAccount) GetAddress() common.Address {
	return o.Addr
}

func (o *SimpleAccount) GetState(key []byte) (bool, []byte) {
	if value, exist := o.dirtyState[string(key)]; exist {
		return value != nil, value
	}

	if value, exist := o.originState[string(key)]; exist {
		return value != nil, value
	}

	val := o.backend.Get(compositeStorageKey(o.Addr, key))
	o.originState[string(key)] = val
	return val != nil, val
}

func (o *SimpleAccount) SetState(key []byte, value []byte) {
	_, prev := o.GetState(key)
	o.changer.append(storageChange{
		account:  &o.Addr,
		key:      key,
		prevalue: prev,
	})
	o.logger.Debugf("[SetState] addr: %s, key: %s, value: %x", o.Addr, key, value)
	o.setState(key, value)
}

func (o *SimpleAccount) setState(key []byte, value []byte) {
	if len(value) == 0 {
		value = nil
	}
	o.dirtyState[string(key)] = value
}

func (o *SimpleAccount) SetCodeAndHash(code []byte) {
	o.changer.append(codeChange{
		account:  &o.Addr,
		prevcode: o.code,
		prevhash: o.codeHash,
	})
	o.setCodeAndHash(code, crypto.Keccak256Hash(code))
}

func (o *SimpleAccount) setCodeAndHash(code []byte, hash common.Hash) {
	o.code = code
	o.codeHash = hash
}

func (o *SimpleAccount) Code() []byte {
	return o.code
}

func (o *SimpleAccount) CodeHash() common.Hash {
	return o.codeHash
}

func (o *SimpleAccount) GetBalance() *big.Int {
	return new(big.Int).Set(o.balance)
}

func (o *SimpleAccount) SetBalance(balance *big.Int) {
	o.changer.append(balanceChange{
		account: &o.Addr,
		prev:    new(big.Int).Set(o.balance),
	})
	o.setBalance(balance)
}

func (o *SimpleAccount) setBalance(balance *big.Int) {
	o.balance = new(big.Int).Set(balance)
}

func (o *SimpleAccount) SubBalance(amount *big.Int) {
	if amount.Sign() == 0 {
		return
	}
	o.SetBalance(new(big.Int).Sub(o.balance, amount))
}

func (o *SimpleAccount) AddBalance(amount *big.Int) {
	if amount.Sign() == 0 {
		return
	}
	o.SetBalance(new(big.Int).Add(o.balance, amount))
}

func (o *SimpleAccount) IsEmpty() bool {
	return o.balance.Sign() == 0 && len(o.code) == 0 && o.codeHash == (common.Hash{})
}

// flush writes the account header, code and dirty storage into batch
func (o *SimpleAccount) flush(batch storagemgr.Batch) error {
	data, err := json.Marshal(&InnerAccount{Balance: o.balance, CodeHash: o.codeHash})
	if err != nil {
		return err
	}
	batch.Put(compositeAccountKey(o.Addr), data)
	if len(o.code) != 0 {
		batch.Put(compositeCodeKey(o.codeHash), o.code)
	}
	for k, v := range o.dirtyState {
		if v == nil {
			batch.Delete(compositeStorageKey(o.Addr, []byte(k)))
		} else {
			batch.Put(compositeStorageKey(o.Addr, []byte(k)), v)
		}
		o.originState[k] = v
	}
	o.dirtyState = make(map[string][]byte)
	return nil
}

const (
	accountKeyPrefix = "acc-"
	codeKeyPrefix    = "code-"
	storageKeyPrefix = "st-"
)

func compositeAccountKey(addr common.Address) []byte {
	return append([]byte(accountKeyPrefix), addr.Bytes()...)
}

func compositeCodeKey(hash common.Hash) []byte {
	return append([]byte(codeKeyPrefix), hash.Bytes()...)
}

func compositeStorageKey(addr common.Address, key []byte) []byte {
	return bytes.Join([][]byte{[]byte(storageKeyPrefix), addr.Bytes(), key}, nil)
}
