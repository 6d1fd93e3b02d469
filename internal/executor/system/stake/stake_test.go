package stake

import (
	"math/big"
	"testing"

	ethcommon "github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/axiomesh/axiom-relay/internal/executor/system/common"
)

const testPeriod = uint64(3600)

var (
	user     = ethcommon.HexToAddress("0x8464135c8F25Da09e49BC8782676a84730C318bC")
	receiver = ethcommon.HexToAddress("0x6bA5D3F2c1D9Fc0A7b8F16e1b0c6E3fA3B2d4e11")
	initial  = big.NewInt(1000)
)

func prepare(t *testing.T) *common.TestNVM {
	nvm := common.NewTestNVM(t)
	nvm.GenesisInit(func(ctx *common.VMContext) error {
		if err := FixedLockBuildConfig.Build(ctx).GenesisInit(testPeriod); err != nil {
			return err
		}
		return DelayBuildConfig.Build(ctx).GenesisInit(testPeriod)
	})
	nvm.StateLedger.SetBalance(user, initial)
	nvm.StateLedger.Finalise()
	return nvm
}

func TestFixedLockRoundTrip(t *testing.T) {
	nvm := prepare(t)
	s := FixedLockBuildConfig.Build(nil)

	require.Nil(t, nvm.RunSingleTX(s, user, func() error {
		return s.Deposit()
	}, common.TestNVMRunOptionValue(big.NewInt(100))))
	assert.EqualValues(t, 900, nvm.StateLedger.GetBalance(user).Int64())
	assert.EqualValues(t, 100, nvm.StateLedger.GetBalance(s.Address).Int64())

	err := nvm.RunSingleTX(s, user, func() error {
		return s.Unlock()
	})
	assert.ErrorIs(t, err, ErrNotLocked)

	require.Nil(t, nvm.RunSingleTX(s, user, func() error {
		return s.Lock()
	}))
	nvm.Call(s, user, func() {
		eligible, err := s.IsEligible(user)
		assert.Nil(t, err)
		assert.True(t, eligible)
		canWithdraw, err := s.CanWithdraw(user)
		assert.Nil(t, err)
		assert.False(t, canWithdraw)
		amount, state, expiry, _, err := s.GetStake(user)
		assert.Nil(t, err)
		assert.EqualValues(t, 100, amount.Int64())
		assert.EqualValues(t, StateLocked, state)
		assert.Equal(t, nvm.BlockTime+testPeriod, expiry)
	})

	err = nvm.RunSingleTX(s, user, func() error {
		return s.Withdraw(user)
	})
	assert.ErrorIs(t, err, ErrStakeLocked)

	err = nvm.RunSingleTX(s, user, func() error {
		return s.Unlock()
	})
	assert.ErrorIs(t, err, ErrLockNotExpired)

	nvm.BlockTime += testPeriod
	nvm.Call(s, user, func() {
		eligible, err := s.IsEligible(user)
		assert.Nil(t, err)
		assert.False(t, eligible)
	})
	require.Nil(t, nvm.RunSingleTX(s, user, func() error {
		return s.Unlock()
	}))
	require.Nil(t, nvm.RunSingleTX(s, user, func() error {
		return s.Withdraw(user)
	}))

	assert.Equal(t, initial, nvm.StateLedger.GetBalance(user))
	assert.EqualValues(t, 0, nvm.StateLedger.GetBalance(s.Address).Int64())
	nvm.Call(s, user, func() {
		entry, err := s.GetEntry(user)
		assert.Nil(t, err)
		assert.EqualValues(t, 0, entry.Amount.Int64())
		assert.Equal(t, StateFree, entry.State)
	})

	err = nvm.RunSingleTX(s, user, func() error {
		return s.Withdraw(user)
	})
	assert.ErrorIs(t, err, ErrWithdrawAmountZero)
}

func TestFixedLockRules(t *testing.T) {
	nvm := prepare(t)
	s := FixedLockBuildConfig.Build(nil)

	err := nvm.RunSingleTX(s, user, func() error {
		return s.Lock()
	})
	assert.ErrorIs(t, err, ErrNothingToLock)

	// deposit for another account, then lock and re-arm
	require.Nil(t, nvm.RunSingleTX(s, user, func() error {
		return s.DepositTo(receiver)
	}, common.TestNVMRunOptionValue(big.NewInt(50))))
	require.Nil(t, nvm.RunSingleTX(s, receiver, func() error {
		return s.Lock()
	}))
	nvm.BlockTime += 10
	require.Nil(t, nvm.RunSingleTX(s, receiver, func() error {
		return s.Lock()
	}))
	nvm.Call(s, receiver, func() {
		_, _, expiry, _, err := s.GetStake(receiver)
		assert.Nil(t, err)
		assert.Equal(t, nvm.BlockTime+testPeriod, expiry)
	})

	// deposit while locked keeps the lock
	require.Nil(t, nvm.RunSingleTX(s, user, func() error {
		return s.DepositTo(receiver)
	}, common.TestNVMRunOptionValue(big.NewInt(50))))
	nvm.Call(s, receiver, func() {
		entry, err := s.GetEntry(receiver)
		assert.Nil(t, err)
		assert.EqualValues(t, 100, entry.Amount.Int64())
		assert.Equal(t, StateLocked, entry.State)
	})

	var names []string
	abi := FixedLockBuildConfig.GetABI()
	for _, l := range nvm.Logs {
		ev, err := abi.EventByID(l.Topics[0])
		require.Nil(t, err)
		names = append(names, ev.Name)
	}
	assert.Equal(t, []string{"Deposited", "Locked", "Locked", "Deposited"}, names)
}

func TestFixedLockDebit(t *testing.T) {
	nvm := prepare(t)
	s := FixedLockBuildConfig.Build(nil)
	entryPoint := ethcommon.HexToAddress(common.EntryPointContractAddr)

	require.Nil(t, nvm.RunSingleTX(s, user, func() error {
		return s.Deposit()
	}, common.TestNVMRunOptionValue(big.NewInt(100))))

	err := nvm.RunSingleTX(s, user, func() error {
		return s.Debit(user, big.NewInt(10))
	})
	assert.ErrorIs(t, err, ErrOnlyRelay)

	err = nvm.RunSingleTX(s, entryPoint, func() error {
		return s.Debit(user, big.NewInt(101))
	})
	assert.ErrorIs(t, err, ErrInsufficientStake)

	require.Nil(t, nvm.RunSingleTX(s, entryPoint, func() error {
		return s.Debit(user, big.NewInt(30))
	}))
	assert.EqualValues(t, 30, nvm.StateLedger.GetBalance(entryPoint).Int64())
	assert.EqualValues(t, 70, nvm.StateLedger.GetBalance(s.Address).Int64())
	nvm.Call(s, user, func() {
		entry, err := s.GetEntry(user)
		assert.Nil(t, err)
		assert.EqualValues(t, 70, entry.Amount.Int64())
	})
}

func TestDelayStakeRoundTrip(t *testing.T) {
	nvm := prepare(t)
	s := DelayBuildConfig.Build(nil)

	err := nvm.RunSingleTX(s, user, func() error {
		return s.Unstake()
	})
	assert.ErrorIs(t, err, ErrDepositNotStaked)

	err = nvm.RunSingleTX(s, user, func() error {
		return s.Stake(testPeriod-1, big.NewInt(100))
	}, common.TestNVMRunOptionValue(big.NewInt(100)))
	assert.ErrorIs(t, err, ErrLowUnstakeDelay)
	assert.Equal(t, initial, nvm.StateLedger.GetBalance(user))

	err = nvm.RunSingleTX(s, user, func() error {
		return s.Stake(testPeriod, big.NewInt(100))
	}, common.TestNVMRunOptionValue(big.NewInt(99)))
	assert.ErrorIs(t, err, ErrStakeValueMismatch)

	require.Nil(t, nvm.RunSingleTX(s, user, func() error {
		return s.Stake(testPeriod*2, big.NewInt(100))
	}, common.TestNVMRunOptionValue(big.NewInt(100))))

	err = nvm.RunSingleTX(s, user, func() error {
		return s.Stake(testPeriod, big.NewInt(0))
	})
	assert.ErrorIs(t, err, ErrCannotDecreaseUnstakeDelay)

	nvm.Call(s, user, func() {
		eligible, err := s.IsEligible(user)
		assert.Nil(t, err)
		assert.True(t, eligible)
	})

	err = nvm.RunSingleTX(s, user, func() error {
		return s.Withdraw(user, big.NewInt(100))
	})
	assert.ErrorIs(t, err, ErrStakeLocked)

	require.Nil(t, nvm.RunSingleTX(s, user, func() error {
		return s.Unstake()
	}))
	err = nvm.RunSingleTX(s, user, func() error {
		return s.Unstake()
	})
	assert.ErrorIs(t, err, ErrUnstakingInProgress)

	nvm.Call(s, user, func() {
		eligible, err := s.IsEligible(user)
		assert.Nil(t, err)
		assert.False(t, eligible)
		amount, state, withdrawTime, delay, err := s.GetStake(user)
		assert.Nil(t, err)
		assert.EqualValues(t, 100, amount.Int64())
		assert.EqualValues(t, StateUnstaking, state)
		assert.Equal(t, nvm.BlockTime+2*testPeriod, withdrawTime)
		assert.Equal(t, 2*testPeriod, delay)
	})

	err = nvm.RunSingleTX(s, user, func() error {
		return s.Withdraw(user, big.NewInt(100))
	})
	assert.ErrorIs(t, err, ErrStakeLocked)

	nvm.BlockTime += 2 * testPeriod
	err = nvm.RunSingleTX(s, user, func() error {
		return s.Withdraw(user, big.NewInt(0))
	})
	assert.ErrorIs(t, err, ErrWithdrawAmountZero)
	err = nvm.RunSingleTX(s, user, func() error {
		return s.Withdraw(user, big.NewInt(101))
	})
	assert.ErrorIs(t, err, ErrInsufficientStake)

	require.Nil(t, nvm.RunSingleTX(s, user, func() error {
		return s.Withdraw(receiver, big.NewInt(40))
	}))
	require.Nil(t, nvm.RunSingleTX(s, user, func() error {
		return s.Withdraw(user, big.NewInt(60))
	}))

	assert.EqualValues(t, 960, nvm.StateLedger.GetBalance(user).Int64())
	assert.EqualValues(t, 40, nvm.StateLedger.GetBalance(receiver).Int64())
	nvm.Call(s, user, func() {
		entry, err := s.GetEntry(user)
		assert.Nil(t, err)
		assert.EqualValues(t, 0, entry.Amount.Int64())
		assert.Equal(t, StateFree, entry.State)
		assert.EqualValues(t, 0, entry.UnstakeDelaySec)
		assert.EqualValues(t, 0, entry.Expiry)
	})
}

func TestDelayDepositWithoutStake(t *testing.T) {
	nvm := prepare(t)
	s := DelayBuildConfig.Build(nil)

	require.Nil(t, nvm.RunSingleTX(s, user, func() error {
		return s.Deposit()
	}, common.TestNVMRunOptionValue(big.NewInt(100))))
	nvm.Call(s, user, func() {
		eligible, err := s.IsEligible(user)
		assert.Nil(t, err)
		assert.False(t, eligible)
		canWithdraw, err := s.CanWithdraw(user)
		assert.Nil(t, err)
		assert.True(t, canWithdraw)
	})
	require.Nil(t, nvm.RunSingleTX(s, user, func() error {
		return s.Withdraw(user, big.NewInt(100))
	}))
	assert.Equal(t, initial, nvm.StateLedger.GetBalance(user))
}

func TestEntryPredicates(t *testing.T) {
	testcases := []struct {
		entry       *Entry
		mode        Mode
		now         uint64
		eligible    bool
		canWithdraw bool
	}{
		{entry: emptyEntry(), mode: ModeFixedLock, now: 1},
		{entry: &Entry{Amount: big.NewInt(1), State: StateFree}, mode: ModeFixedLock, now: 1, canWithdraw: true},
		{entry: &Entry{Amount: big.NewInt(1), State: StateLocked, Expiry: 10}, mode: ModeFixedLock, now: 9, eligible: true},
		{entry: &Entry{Amount: big.NewInt(1), State: StateLocked, Expiry: 10}, mode: ModeFixedLock, now: 10},
		{entry: &Entry{Amount: big.NewInt(1), State: StateStaked, UnstakeDelaySec: 5}, mode: ModeDelay, now: 1, eligible: true},
		{entry: &Entry{Amount: big.NewInt(1), State: StateUnstaking, Expiry: 10}, mode: ModeDelay, now: 9},
		{entry: &Entry{Amount: big.NewInt(1), State: StateUnstaking, Expiry: 10}, mode: ModeDelay, now: 10, canWithdraw: true},
	}
	for i, tc := range testcases {
		assert.Equal(t, tc.eligible, tc.entry.IsEligible(tc.mode, tc.now), "testcase %d", i)
		assert.Equal(t, tc.canWithdraw, tc.entry.CanWithdraw(tc.now), "testcase %d", i)
	}
}
