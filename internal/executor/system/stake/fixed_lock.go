package stake

import (
	_ "embed"
	"math/big"

	ethcommon "github.com/ethereum/go-ethereum/common"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/axiomesh/axiom-relay/internal/executor/system/common"
)

const (
	lockPeriodStorageKey = "lockPeriod"
)

//go:embed solidity/FixedLockStake.abi
var fixedLockStakeABI string

var FixedLockBuildConfig = &common.SystemContractBuildConfig[*FixedLockStake]{
	Name:    "stake_fixed_lock",
	Address: common.FixedLockStakeContractAddr,
	AbiStr:  fixedLockStakeABI,
	Constructor: func(systemContractBase common.SystemContractBase) *FixedLockStake {
		return &FixedLockStake{
			Ledger: newLedger(systemContractBase, ModeFixedLock),
		}
	},
}

// FixedLockStake collateralizes fee sponsors: a sponsor is eligible while its deposit is locked
type FixedLockStake struct {
	Ledger

	lockPeriod *common.VMSlot[uint64]
}

func (s *FixedLockStake) SetContext(ctx *common.VMContext) {
	s.Ledger.SetContext(ctx)

	s.lockPeriod = common.NewVMSlot[uint64](s.StateAccount, lockPeriodStorageKey)
}

func (s *FixedLockStake) GenesisInit(lockPeriodSec uint64) error {
	s.StateAccount.SetCodeAndHash(common.SystemContractCode)
	return s.lockPeriod.Put(lockPeriodSec)
}

func (s *FixedLockStake) LockPeriod() (uint64, error) {
	return s.lockPeriod.MustGet()
}

// Lock moves the caller's deposit to Locked(now + lock period), locking again re-arms the expiry
func (s *FixedLockStake) Lock() error {
	account := s.Ctx.From
	entry, err := s.GetEntry(account)
	if err != nil {
		return err
	}
	if entry.Amount.Sign() <= 0 {
		return ErrNothingToLock
	}
	period, err := s.LockPeriod()
	if err != nil {
		return err
	}

	entry.State = StateLocked
	entry.Expiry = s.Now() + period
	if err := s.putEntry(account, entry); err != nil {
		return err
	}

	s.EmitEvent("Locked", account, entry.Amount, entry.Expiry)
	s.Logger.WithFields(logrus.Fields{"account": account, "amount": entry.Amount, "expiry": entry.Expiry}).Info("stake locked")
	return nil
}

func (s *FixedLockStake) Unlock() error {
	account := s.Ctx.From
	entry, err := s.GetEntry(account)
	if err != nil {
		return err
	}
	if entry.State != StateLocked {
		return ErrNotLocked
	}
	if s.Now() < entry.Expiry {
		return errors.Wrapf(ErrLockNotExpired, "lock expires at %d, now %d", entry.Expiry, s.Now())
	}

	entry.State = StateFree
	entry.Expiry = 0
	if err := s.putEntry(account, entry); err != nil {
		return err
	}

	s.EmitEvent("Unlocked", account, entry.Amount)
	return nil
}

// Withdraw pays the whole free deposit of the caller to withdrawAddress
func (s *FixedLockStake) Withdraw(withdrawAddress ethcommon.Address) error {
	account := s.Ctx.From
	entry, err := s.GetEntry(account)
	if err != nil {
		return err
	}
	if entry.State == StateLocked {
		return ErrStakeLocked
	}
	return s.withdraw(account, withdrawAddress, entry, new(big.Int).Set(entry.Amount))
}

// Debit moves amount of account's collateral into the relay custody, only the relay may call it
func (s *FixedLockStake) Debit(account ethcommon.Address, amount *big.Int) error {
	if !s.isRelayCall() {
		return errors.Wrapf(ErrOnlyRelay, "debit called by %s", s.Ctx.From)
	}
	if amount.Sign() == 0 {
		return nil
	}
	entry, err := s.GetEntry(account)
	if err != nil {
		return err
	}
	if amount.Sign() < 0 || amount.Cmp(entry.Amount) > 0 {
		return errors.Wrapf(ErrInsufficientStake, "debit %s, available %s", amount, entry.Amount)
	}

	entry.Amount = new(big.Int).Sub(entry.Amount, amount)
	if err := s.putEntry(account, entry); err != nil {
		return err
	}
	if err := s.Ctx.StateLedger.Transfer(s.Address, ethcommon.HexToAddress(common.EntryPointContractAddr), amount); err != nil {
		return errors.Wrap(err, "move stake to relay custody")
	}

	s.EmitEvent("Debited", account, amount)
	return nil
}
