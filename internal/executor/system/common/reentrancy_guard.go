package common

import (
	"github.com/ethereum/go-ethereum/accounts/abi"

	"github.com/axiomesh/axiom-relay/internal/ledger"
)

const reentrancyGuardKey = "reentrancy_guard_entered"

// ReentrancyGuard rejects nested entry into a non reentrant section.
// The flag lives in the contract account, so every instance built on the same ledger shares it.
type ReentrancyGuard struct {
	entered *VMSlot[bool]
}

func NewReentrancyGuard(contractAccount ledger.IAccount) *ReentrancyGuard {
	return &ReentrancyGuard{entered: NewVMSlot[bool](contractAccount, reentrancyGuardKey)}
}

func (rg *ReentrancyGuard) Enter() error {
	entered, err := rg.entered.GetOrDefault(false)
	if err != nil {
		return err
	}
	if entered {
		return ReentrancyGuardReentrantCall()
	}
	return rg.entered.Put(true)
}

func (rg *ReentrancyGuard) Exit() {
	_ = rg.entered.Delete()
}

func (rg *ReentrancyGuard) IsEntered() bool {
	entered, err := rg.entered.GetOrDefault(false)
	return err == nil && entered
}

func ReentrancyGuardReentrantCall() error {
	return NewRevertError("ReentrancyGuardReentrantCall", abi.Arguments{}, nil)
}
