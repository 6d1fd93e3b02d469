package interfaces

import (
	"fmt"

	"github.com/pkg/errors"

	"github.com/axiomesh/axiom-relay/internal/executor/system/stake"
)

// Class tells a client how to react to a rejected operation
type Class uint8

const (
	ClassUnknown Class = iota
	// ClassMalformedInput is rejected before any state mutation, fix the operation
	ClassMalformedInput
	// ClassAuthorization is rejected before execution, re-sign or use the current nonce
	ClassAuthorization
	// ClassInsufficientResources needs a top up of balance, allowance or stake
	ClassInsufficientResources
	// ClassExecutionFailure means the requested call itself failed, do not retry unchanged
	ClassExecutionFailure
)

func (c Class) String() string {
	switch c {
	case ClassMalformedInput:
		return "malformed_input"
	case ClassAuthorization:
		return "authorization"
	case ClassInsufficientResources:
		return "insufficient_resources"
	case ClassExecutionFailure:
		return "execution_failure"
	default:
		return "unknown"
	}
}

// Code is the stable reason of a rejection
type Code string

// CodedError is a sentinel error carrying a stable code
type CodedError struct {
	Code  Code
	Class Class
}

func (e *CodedError) Error() string {
	return string(e.Code)
}

func newCodedError(code Code, class Class) *CodedError {
	e := &CodedError{Code: code, Class: class}
	codeClasses[code] = class
	return e
}

var codeClasses = make(map[Code]Class)

var (
	ErrInvalidSignatureFormat   = newCodedError("InvalidSignatureFormat", ClassMalformedInput)
	ErrNoWalletAndInitCode      = newCodedError("NoWalletAndInitCode", ClassMalformedInput)
	ErrInvalidInitCode          = newCodedError("InvalidInitCode", ClassMalformedInput)
	ErrSenderAddressMismatch    = newCodedError("SenderAddressMismatch", ClassMalformedInput)
	ErrSenderAlreadyConstructed = newCodedError("SenderAlreadyConstructed", ClassMalformedInput)
	ErrGasValuesOverflow        = newCodedError("GasValuesOverflow", ClassMalformedInput)
	ErrInvalidSponsorData       = newCodedError("InvalidSponsorData", ClassMalformedInput)
	ErrUnsupportedSponsorMode   = newCodedError("UnsupportedSponsorMode", ClassMalformedInput)
	ErrInvalidRedeemer          = newCodedError("InvalidRedeemer", ClassMalformedInput)
	ErrInvalidCallData          = newCodedError("InvalidCallData", ClassMalformedInput)
	ErrEmptyBatch               = newCodedError("EmptyBatch", ClassMalformedInput)
	ErrBatchTooLarge            = newCodedError("BatchTooLarge", ClassMalformedInput)
	ErrUnknownImplementation    = newCodedError("UnknownImplementation", ClassMalformedInput)

	ErrInvalidOwnerSignature = newCodedError("InvalidOwnerSignature", ClassAuthorization)
	ErrNoGuardiansAllowed    = newCodedError("NoGuardiansAllowed", ClassAuthorization)
	ErrInvalidGuardianAction = newCodedError("InvalidGuardianAction", ClassAuthorization)
	ErrInsufficientGuardians = newCodedError("InsufficientGuardians", ClassAuthorization)
	ErrInvalidNonce          = newCodedError("InvalidNonce", ClassAuthorization)
	ErrInvalidSignature      = newCodedError("InvalidSignature", ClassAuthorization)
	ErrOwnerCannotBeGuardian = newCodedError("OwnerCannotBeGuardian", ClassAuthorization)
	ErrUnauthorizedCaller    = newCodedError("UnauthorizedCaller", ClassAuthorization)
	ErrReentrantCall         = newCodedError("ReentrantCall", ClassAuthorization)

	ErrInsufficientBalance = newCodedError("InsufficientBalance", ClassInsufficientResources)
	ErrNotApproved         = newCodedError("NotApproved", ClassInsufficientResources)
	ErrInsufficientStake   = newCodedError("InsufficientStake", ClassInsufficientResources)
	ErrStakeNotLocked      = newCodedError("StakeNotLocked", ClassInsufficientResources)
	ErrOverVerificationGas = newCodedError("OverVerificationGas", ClassInsufficientResources)
	ErrOutOfGas            = newCodedError("OutOfGas", ClassInsufficientResources)
	ErrSettleFailed        = newCodedError("SettleFailed", ClassInsufficientResources)

	ErrExecutionFailed = newCodedError("ExecutionFailed", ClassExecutionFailure)
)

// stake ledger errors surface with their own names as codes
var stakeErrorClasses = []struct {
	err   error
	class Class
}{
	{stake.ErrLockNotExpired, ClassAuthorization},
	{stake.ErrNotLocked, ClassAuthorization},
	{stake.ErrStakeLocked, ClassAuthorization},
	{stake.ErrDepositNotStaked, ClassAuthorization},
	{stake.ErrUnstakingInProgress, ClassAuthorization},
	{stake.ErrCannotDecreaseUnstakeDelay, ClassMalformedInput},
	{stake.ErrLowUnstakeDelay, ClassMalformedInput},
	{stake.ErrStakeValueMismatch, ClassMalformedInput},
	{stake.ErrWithdrawAmountZero, ClassMalformedInput},
	{stake.ErrNothingToLock, ClassInsufficientResources},
	{stake.ErrInsufficientStake, ClassInsufficientResources},
	{stake.ErrOnlyRelay, ClassAuthorization},
}

func init() {
	for _, e := range stakeErrorClasses {
		codeClasses[Code(e.err.Error())] = e.class
	}
}

// ExecutionFailedError carries the verbatim failure of the requested call
type ExecutionFailedError struct {
	Reason error
}

func (e *ExecutionFailedError) Error() string {
	return fmt.Sprintf("%s: %v", ErrExecutionFailed.Code, e.Reason)
}

func (e *ExecutionFailedError) Unwrap() error {
	return e.Reason
}

func (e *ExecutionFailedError) Is(target error) bool {
	return target == ErrExecutionFailed
}

func NewExecutionFailedError(reason error) error {
	return &ExecutionFailedError{Reason: reason}
}

// FailedOpError rejects a batch because of the operation at OpIndex
type FailedOpError struct {
	OpIndex int
	Err     error
}

func (e *FailedOpError) Error() string {
	return fmt.Sprintf("FailedOp(%d, %s): %v", e.OpIndex, ErrorCode(e.Err), e.Err)
}

func (e *FailedOpError) Unwrap() error {
	return e.Err
}

// ErrorCode returns the stable code of err, the outermost code in the chain wins
func ErrorCode(err error) Code {
	if err == nil {
		return ""
	}
	for e := err; e != nil; e = errors.Unwrap(e) {
		switch x := e.(type) {
		case *ExecutionFailedError:
			return ErrExecutionFailed.Code
		case *CodedError:
			return x.Code
		}
	}
	for _, e := range stakeErrorClasses {
		if errors.Is(err, e.err) {
			return Code(e.err.Error())
		}
	}
	return "Internal"
}

// CodeClass returns the class of a code returned by ErrorCode
func CodeClass(code Code) Class {
	return codeClasses[code]
}
