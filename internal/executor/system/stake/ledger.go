package stake

import (
	"math/big"

	ethcommon "github.com/ethereum/go-ethereum/common"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/axiomesh/axiom-relay/internal/executor/system/common"
	"github.com/axiomesh/axiom-relay/pkg/loggers"
)

const (
	entriesStorageKey = "entries"
)

var (
	ErrLockNotExpired             = errors.New("LockNotExpired")
	ErrNotLocked                  = errors.New("NotLocked")
	ErrStakeLocked                = errors.New("StakeLocked")
	ErrNothingToLock              = errors.New("NothingToLock")
	ErrLowUnstakeDelay            = errors.New("LowUnstakeDelay")
	ErrCannotDecreaseUnstakeDelay = errors.New("CannotDecreaseUnstakeDelay")
	ErrDepositNotStaked           = errors.New("DepositNotStaked")
	ErrUnstakingInProgress        = errors.New("UnstakingInProgress")
	ErrWithdrawAmountZero         = errors.New("WithdrawAmountZero")
	ErrInsufficientStake          = errors.New("InsufficientStake")
	ErrStakeValueMismatch         = errors.New("StakeValueMismatch")
	ErrOnlyRelay                  = errors.New("OnlyRelay")
)

// Mode selects which transitions a Ledger accepts
type Mode uint8

const (
	ModeFixedLock Mode = iota
	ModeDelay
)

func (m Mode) String() string {
	if m == ModeFixedLock {
		return "fixed_lock"
	}
	return "delay"
}

type State uint8

const (
	StateFree State = iota
	StateLocked
	StateStaked
	StateUnstaking
)

func (s State) String() string {
	switch s {
	case StateFree:
		return "free"
	case StateLocked:
		return "locked"
	case StateStaked:
		return "staked"
	case StateUnstaking:
		return "unstaking"
	default:
		return "unknown"
	}
}

// Entry is the collateral of one depositor.
// Expiry is the lock expiry in fixed lock mode and the withdraw time while unstaking in delay mode.
type Entry struct {
	Amount          *big.Int `json:"amount"`
	State           State    `json:"state"`
	Expiry          uint64   `json:"expiry"`
	UnstakeDelaySec uint64   `json:"unstake_delay_sec"`
}

func emptyEntry() *Entry {
	return &Entry{Amount: new(big.Int)}
}

func (e *Entry) IsEligible(mode Mode, now uint64) bool {
	if e.Amount.Sign() <= 0 {
		return false
	}
	if mode == ModeFixedLock {
		return e.State == StateLocked && now < e.Expiry
	}
	return e.State == StateStaked
}

func (e *Entry) CanWithdraw(now uint64) bool {
	if e.Amount.Sign() <= 0 {
		return false
	}
	switch e.State {
	case StateFree:
		return true
	case StateUnstaking:
		return now >= e.Expiry
	default:
		return false
	}
}

// Ledger is the collateral state machine shared by both stake contracts
type Ledger struct {
	common.SystemContractBase

	mode    Mode
	entries *common.VMMap[ethcommon.Address, *Entry]
}

func newLedger(base common.SystemContractBase, mode Mode) Ledger {
	base.Logger = loggers.Logger(loggers.Stake).WithField("mode", mode)
	return Ledger{
		SystemContractBase: base,
		mode:               mode,
	}
}

func (l *Ledger) SetContext(ctx *common.VMContext) {
	l.SystemContractBase.SetContext(ctx)

	l.entries = common.NewVMMap[ethcommon.Address, *Entry](l.StateAccount, entriesStorageKey, common.AddressKey)
}

func (l *Ledger) Mode() Mode {
	return l.mode
}

func (l *Ledger) GetEntry(account ethcommon.Address) (*Entry, error) {
	return l.entries.GetOrDefault(account, emptyEntry())
}

func (l *Ledger) putEntry(account ethcommon.Address, entry *Entry) error {
	if entry.Amount.Sign() == 0 && entry.State != StateLocked && entry.State != StateStaked {
		return l.entries.Delete(account)
	}
	return l.entries.Put(account, entry)
}

func (l *Ledger) Deposit() error {
	return l.DepositTo(l.Ctx.From)
}

// DepositTo credits the attached value to account, the state of the entry is kept
func (l *Ledger) DepositTo(account ethcommon.Address) error {
	entry, err := l.GetEntry(account)
	if err != nil {
		return err
	}
	entry.Amount = new(big.Int).Add(entry.Amount, l.value())
	if err := l.entries.Put(account, entry); err != nil {
		return err
	}

	l.EmitEvent("Deposited", account, entry.Amount)
	l.Logger.WithFields(logrus.Fields{"mode": l.mode, "account": account, "total": entry.Amount}).Debug("stake deposited")
	return nil
}

func (l *Ledger) IsEligible(account ethcommon.Address) (bool, error) {
	entry, err := l.GetEntry(account)
	if err != nil {
		return false, err
	}
	return entry.IsEligible(l.mode, l.Now()), nil
}

func (l *Ledger) CanWithdraw(account ethcommon.Address) (bool, error) {
	entry, err := l.GetEntry(account)
	if err != nil {
		return false, err
	}
	return entry.CanWithdraw(l.Now()), nil
}

func (l *Ledger) GetStake(account ethcommon.Address) (*big.Int, uint8, uint64, uint64, error) {
	entry, err := l.GetEntry(account)
	if err != nil {
		return nil, 0, 0, 0, err
	}
	return entry.Amount, uint8(entry.State), entry.Expiry, entry.UnstakeDelaySec, nil
}

// withdraw pays amount of account's entry out to withdrawAddress, the entry is cleared once empty
func (l *Ledger) withdraw(account, withdrawAddress ethcommon.Address, entry *Entry, amount *big.Int) error {
	if amount.Sign() <= 0 {
		return ErrWithdrawAmountZero
	}
	if amount.Cmp(entry.Amount) > 0 {
		return errors.Wrapf(ErrInsufficientStake, "withdraw %s, available %s", amount, entry.Amount)
	}

	entry.Amount = new(big.Int).Sub(entry.Amount, amount)
	if entry.Amount.Sign() == 0 {
		entry = emptyEntry()
	}
	if err := l.putEntry(account, entry); err != nil {
		return err
	}
	if err := l.Ctx.StateLedger.Transfer(l.Address, withdrawAddress, amount); err != nil {
		return errors.Wrap(err, "pay out stake")
	}

	l.EmitEvent("Withdrawn", account, withdrawAddress, amount)
	l.Logger.WithFields(logrus.Fields{"mode": l.mode, "account": account, "to": withdrawAddress, "amount": amount}).Info("stake withdrawn")
	return nil
}

func (l *Ledger) value() *big.Int {
	if l.Ctx.Value == nil {
		return new(big.Int)
	}
	return l.Ctx.Value
}

func (l *Ledger) isRelayCall() bool {
	return l.Ctx.CallFromSystem || l.Ctx.From == ethcommon.HexToAddress(common.EntryPointContractAddr)
}
