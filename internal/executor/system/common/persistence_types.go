package common

import (
	"encoding/json"
	"fmt"

	ethcommon "github.com/ethereum/go-ethereum/common"
	"github.com/pkg/errors"

	"github.com/axiomesh/axiom-relay/internal/ledger"
)

// stored values are prefixed by one flag byte, 0 marks a deleted value
const (
	valueDeleted byte = 0
	valueExist   byte = 1
)

func loadValue[V any](account ledger.IAccount, key []byte) (bool, V, error) {
	var v V
	exist, data := account.GetState(key)
	if !exist || len(data) == 0 || data[0] == valueDeleted {
		return false, v, nil
	}
	if err := json.Unmarshal(data[1:], &v); err != nil {
		return false, v, errors.Wrapf(err, "decode state %s of %s", key, account.GetAddress())
	}
	return true, v, nil
}

func storeValue[V any](account ledger.IAccount, key []byte, v V) error {
	data, err := json.Marshal(v)
	if err != nil {
		return errors.Wrapf(err, "encode state %s of %s", key, account.GetAddress())
	}
	account.SetState(key, append([]byte{valueExist}, data...))
	return nil
}

func AddressKey(addr ethcommon.Address) string {
	return addr.Hex()
}

// VMMap is a typed mapping stored under mapName in a contract account
type VMMap[K, V any] struct {
	contractAccount ledger.IAccount
	mapName         string
	keyToString     func(key K) string
}

func NewVMMap[K, V any](contractAccount ledger.IAccount, mapName string, keyToString func(key K) string) *VMMap[K, V] {
	return &VMMap[K, V]{
		contractAccount: contractAccount,
		mapName:         mapName,
		keyToString:     keyToString,
	}
}

func (m *VMMap[K, V]) stateKey(key K) []byte {
	return []byte(fmt.Sprintf("%s_%s", m.mapName, m.keyToString(key)))
}

func (m *VMMap[K, V]) Get(k K) (exist bool, v V, err error) {
	return loadValue[V](m.contractAccount, m.stateKey(k))
}

// GetOrDefault returns def when the key does not exist
func (m *VMMap[K, V]) GetOrDefault(k K, def V) (V, error) {
	exist, v, err := m.Get(k)
	if err != nil {
		return v, err
	}
	if !exist {
		return def, nil
	}
	return v, nil
}

func (m *VMMap[K, V]) MustGet(k K) (V, error) {
	exist, v, err := m.Get(k)
	if err != nil {
		return v, err
	}
	if !exist {
		return v, errors.Errorf("system contract[%s] map[%s] key[%s] not exist", m.contractAccount.GetAddress(), m.mapName, m.keyToString(k))
	}
	return v, nil
}

func (m *VMMap[K, V]) Has(k K) bool {
	exist, data := m.contractAccount.GetState(m.stateKey(k))
	return exist && len(data) != 0 && data[0] != valueDeleted
}

func (m *VMMap[K, V]) Put(k K, v V) error {
	return storeValue(m.contractAccount, m.stateKey(k), v)
}

func (m *VMMap[K, V]) Delete(k K) error {
	m.contractAccount.SetState(m.stateKey(k), []byte{valueDeleted})
	return nil
}

// VMSlot is a single typed value stored under slotName in a contract account
type VMSlot[V any] struct {
	contractAccount ledger.IAccount
	slotName        string
}

func NewVMSlot[V any](contractAccount ledger.IAccount, slotName string) *VMSlot[V] {
	return &VMSlot[V]{
		contractAccount: contractAccount,
		slotName:        slotName,
	}
}

func (s *VMSlot[V]) stateKey() []byte {
	return []byte(s.slotName)
}

func (s *VMSlot[V]) Get() (exist bool, v V, err error) {
	return loadValue[V](s.contractAccount, s.stateKey())
}

func (s *VMSlot[V]) GetOrDefault(def V) (V, error) {
	exist, v, err := s.Get()
	if err != nil {
		return v, err
	}
	if !exist {
		return def, nil
	}
	return v, nil
}

func (s *VMSlot[V]) MustGet() (V, error) {
	exist, v, err := s.Get()
	if err != nil {
		return v, err
	}
	if !exist {
		return v, errors.Errorf("system contract[%s] slot[%s] not exist", s.contractAccount.GetAddress(), s.slotName)
	}
	return v, nil
}

func (s *VMSlot[V]) Has() bool {
	exist, data := s.contractAccount.GetState(s.stateKey())
	return exist && len(data) != 0 && data[0] != valueDeleted
}

func (s *VMSlot[V]) Put(v V) error {
	return storeValue(s.contractAccount, s.stateKey(), v)
}

func (s *VMSlot[V]) Delete() error {
	s.contractAccount.SetState(s.stateKey(), []byte{valueDeleted})
	return nil
}
