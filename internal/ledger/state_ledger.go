package ledger

import (
	"fmt"
	"math/big"
	"sort"

	"github.com/ethereum/go-ethereum/common"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/axiomesh/axiom-relay/internal/storagemgr"
	"github.com/axiomesh/axiom-relay/pkg/loggers"
)

var _ StateLedger = (*StateLedgerImpl)(nil)

var ErrInsufficientBalance = errors.New("insufficient balance for transfer")

type revision struct {
	id           int
	changerIndex int
}

type StateLedgerImpl struct {
	logger  logrus.FieldLogger
	backend storagemgr.Storage

	// accounts loaded or created since start, flushed on every commit
	accounts map[common.Address]*SimpleAccount

	validRevisions []revision
	nextRevisionId int
	changer        *stateChanger
}

func NewStateLedger(backend storagemgr.Storage) *StateLedgerImpl {
	return &StateLedgerImpl{
		logger:   loggers.Logger(loggers.Storage),
		backend:  backend,
		accounts: make(map[common.Address]*SimpleAccount),
		changer:  newChanger(),
	}
}

// NewMemory returns a ledger backed by an in-memory kv, for tests and dry runs
func NewMemory() *StateLedgerImpl {
	return NewStateLedger(storagemgr.NewMemory())
}

func (l *StateLedgerImpl) getAccount(addr common.Address) *SimpleAccount {
	if acc, ok := l.accounts[addr]; ok {
		return acc
	}
	acc := loadAccount(l.logger, l.backend, l.changer, addr)
	if acc != nil {
		l.accounts[addr] = acc
	}
	return acc
}

func (l *StateLedgerImpl) getOrCreateAccount(addr common.Address) *SimpleAccount {
	acc := l.getAccount(addr)
	if acc == nil {
		acc = newAccount(l.logger, l.backend, l.changer, addr)
		l.accounts[addr] = acc
		l.changer.append(createObjectChange{account: &acc.Addr})
	}
	return acc
}

func (l *StateLedgerImpl) GetOrCreateAccount(addr common.Address) IAccount {
	return l.getOrCreateAccount(addr)
}

func (l *StateLedgerImpl) GetAccount(addr common.Address) IAccount {
	acc := l.getAccount(addr)
	if acc == nil {
		return nil
	}
	return acc
}

func (l *StateLedgerImpl) GetBalance(addr common.Address) *big.Int {
	acc := l.getAccount(addr)
	if acc == nil {
		return big.NewInt(0)
	}
	return acc.GetBalance()
}

func (l *StateLedgerImpl) SetBalance(addr common.Address, value *big.Int) {
	l.getOrCreateAccount(addr).SetBalance(value)
}

func (l *StateLedgerImpl) AddBalance(addr common.Address, value *big.Int) {
	l.getOrCreateAccount(addr).AddBalance(value)
}

func (l *StateLedgerImpl) SubBalance(addr common.Address, value *big.Int) {
	l.getOrCreateAccount(addr).SubBalance(value)
}

func (l *StateLedgerImpl) Transfer(from, to common.Address, value *big.Int) error {
	if value == nil || value.Sign() == 0 {
		return nil
	}
	if value.Sign() < 0 {
		return errors.Errorf("negative transfer value %s", value)
	}
	if l.GetBalance(from).Cmp(value) < 0 {
		return errors.Wrapf(ErrInsufficientBalance, "%s has %s, need %s", from, l.GetBalance(from), value)
	}
	l.SubBalance(from, value)
	l.AddBalance(to, value)
	return nil
}

func (l *StateLedgerImpl) GetState(addr common.Address, key []byte) (bool, []byte) {
	acc := l.getAccount(addr)
	if acc == nil {
		return false, nil
	}
	return acc.GetState(key)
}

func (l *StateLedgerImpl) SetState(addr common.Address, key []byte, value []byte) {
	l.getOrCreateAccount(addr).SetState(key, value)
}

func (l *StateLedgerImpl) SetCode(addr common.Address, code []byte) {
	l.getOrCreateAccount(addr).SetCodeAndHash(code)
}

func (l *StateLedgerImpl) GetCode(addr common.Address) []byte {
	acc := l.getAccount(addr)
	if acc == nil {
		return nil
	}
	return acc.Code()
}

func (l *StateLedgerImpl) HasCode(addr common.Address) bool {
	return len(l.GetCode(addr)) != 0
}

func (l *StateLedgerImpl) Snapshot() int {
	id := l.nextRevisionId
	l.nextRevisionId++
	l.validRevisions = append(l.validRevisions, revision{id: id, changerIndex: l.changer.length()})
	return id
}

func (l *StateLedgerImpl) RevertToSnapshot(revid int) {
	idx := sort.Search(len(l.validRevisions), func(i int) bool {
		return l.validRevisions[i].id >= revid
	})
	if idx == len(l.validRevisions) || l.validRevisions[idx].id != revid {
		panic(fmt.Errorf("revision id %v cannod be reverted", revid))
	}
	snap := l.validRevisions[idx].changerIndex

	l.changer.revert(l, snap)
	l.validRevisions = l.validRevisions[:idx]
}

func (l *StateLedgerImpl) Finalise() {
	l.changer.reset()
	l.validRevisions = l.validRevisions[:0]
	l.nextRevisionId = 0
}

func (l *StateLedgerImpl) Commit() error {
	l.Finalise()
	batch := l.backend.NewBatch()
	for addr, acc := range l.accounts {
		if err := acc.flush(batch); err != nil {
			return errors.Wrapf(err, "flush account %s failed", addr)
		}
	}
	batch.Commit()
	l.logger.Debugf("[Commit] flush %d accounts", len(l.accounts))
	return nil
}
