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
	minimumUnstakeDelayStorageKey = "minimumUnstakeDelay"
)

//go:embed solidity/DelayStake.abi
var delayStakeABI string

var DelayBuildConfig = &common.SystemContractBuildConfig[*DelayStake]{
	Name:    "stake_delay",
	Address: common.DelayStakeContractAddr,
	AbiStr:  delayStakeABI,
	Constructor: func(systemContractBase common.SystemContractBase) *DelayStake {
		return &DelayStake{
			Ledger: newLedger(systemContractBase, ModeDelay),
		}
	},
}

// DelayStake is general purpose staking, a stake is released a user chosen delay after unstake
type DelayStake struct {
	Ledger

	minimumUnstakeDelay *common.VMSlot[uint64]
}

func (s *DelayStake) SetContext(ctx *common.VMContext) {
	s.Ledger.SetContext(ctx)

	s.minimumUnstakeDelay = common.NewVMSlot[uint64](s.StateAccount, minimumUnstakeDelayStorageKey)
}

func (s *DelayStake) GenesisInit(minimumUnstakeDelaySec uint64) error {
	s.StateAccount.SetCodeAndHash(common.SystemContractCode)
	return s.minimumUnstakeDelay.Put(minimumUnstakeDelaySec)
}

func (s *DelayStake) MinimumUnstakeDelay() (uint64, error) {
	return s.minimumUnstakeDelay.MustGet()
}

// Stake deposits amount (which must be the attached value) and marks the entry staked with unstakeDelaySec.
// Staking again cancels a pending unstake.
func (s *DelayStake) Stake(unstakeDelaySec uint64, amount *big.Int) error {
	account := s.Ctx.From
	if s.value().Cmp(amount) != 0 {
		return errors.Wrapf(ErrStakeValueMismatch, "attached %s, declared %s", s.value(), amount)
	}
	minDelay, err := s.MinimumUnstakeDelay()
	if err != nil {
		return err
	}
	if unstakeDelaySec < minDelay {
		return errors.Wrapf(ErrLowUnstakeDelay, "delay %d, minimum %d", unstakeDelaySec, minDelay)
	}
	entry, err := s.GetEntry(account)
	if err != nil {
		return err
	}
	if unstakeDelaySec < entry.UnstakeDelaySec {
		return errors.Wrapf(ErrCannotDecreaseUnstakeDelay, "delay %d, current %d", unstakeDelaySec, entry.UnstakeDelaySec)
	}
	total := new(big.Int).Add(entry.Amount, amount)
	if total.Sign() <= 0 {
		return ErrNothingToLock
	}

	entry.Amount = total
	entry.State = StateStaked
	entry.Expiry = 0
	entry.UnstakeDelaySec = unstakeDelaySec
	if err := s.putEntry(account, entry); err != nil {
		return err
	}

	s.EmitEvent("Staked", account, entry.Amount, unstakeDelaySec)
	s.Logger.WithFields(logrus.Fields{"account": account, "amount": entry.Amount, "delay": unstakeDelaySec}).Info("staked")
	return nil
}

// Unstake starts the countdown, amount and delay are kept
func (s *DelayStake) Unstake() error {
	account := s.Ctx.From
	entry, err := s.GetEntry(account)
	if err != nil {
		return err
	}
	switch entry.State {
	case StateUnstaking:
		return ErrUnstakingInProgress
	case StateStaked:
	default:
		return ErrDepositNotStaked
	}

	entry.State = StateUnstaking
	entry.Expiry = s.Now() + entry.UnstakeDelaySec
	if err := s.putEntry(account, entry); err != nil {
		return err
	}

	s.EmitEvent("Unstaked", account, entry.Expiry)
	return nil
}

// Withdraw is allowed for never staked deposits or once the withdraw time has passed
func (s *DelayStake) Withdraw(withdrawAddress ethcommon.Address, amount *big.Int) error {
	account := s.Ctx.From
	entry, err := s.GetEntry(account)
	if err != nil {
		return err
	}
	switch entry.State {
	case StateStaked:
		return ErrStakeLocked
	case StateUnstaking:
		if s.Now() < entry.Expiry {
			return errors.Wrapf(ErrStakeLocked, "withdraw time %d, now %d", entry.Expiry, s.Now())
		}
	}
	return s.withdraw(account, withdrawAddress, entry, amount)
}
