package relay

import (
	"github.com/pkg/errors"

	"github.com/axiomesh/axiom-relay/internal/executor/system/saccount/interfaces"
)

// json-rpc error codes by failure class
const (
	ErrCodeInternal              = -32000
	ErrCodeMalformedInput        = -32602
	ErrCodeAuthorization         = -32001
	ErrCodeInsufficientResources = -32002
	ErrCodeExecutionFailure      = -32003
	ErrCodeRateLimited           = -32005
)

var ErrNilOperation = errors.New("operation is required")

var ErrRateLimited = &limitError{}

type limitError struct{}

func (e *limitError) Error() string {
	return "request rate limit exceeded"
}

func (e *limitError) ErrorCode() int {
	return ErrCodeRateLimited
}

// RelayError exposes the stable failure code of a rejected request to rpc clients
type RelayError struct {
	err     error
	code    interfaces.Code
	class   interfaces.Class
	opIndex *int
}

// ErrorData is the data member of a RelayError response
type ErrorData struct {
	Code    interfaces.Code `json:"code"`
	Class   string          `json:"class"`
	OpIndex *int            `json:"opIndex,omitempty"`
}

func newRelayError(err error) error {
	if err == nil {
		return nil
	}
	code := interfaces.ErrorCode(err)
	class := interfaces.CodeClass(code)
	if errors.Is(err, ErrNilOperation) {
		code, class = "NilOperation", interfaces.ClassMalformedInput
	}
	e := &RelayError{err: err, code: code, class: class}
	var failed *interfaces.FailedOpError
	if errors.As(err, &failed) {
		index := failed.OpIndex
		e.opIndex = &index
	}
	return e
}

func (e *RelayError) Error() string {
	return e.err.Error()
}

func (e *RelayError) Unwrap() error {
	return e.err
}

func (e *RelayError) ErrorCode() int {
	switch e.class {
	case interfaces.ClassMalformedInput:
		return ErrCodeMalformedInput
	case interfaces.ClassAuthorization:
		return ErrCodeAuthorization
	case interfaces.ClassInsufficientResources:
		return ErrCodeInsufficientResources
	case interfaces.ClassExecutionFailure:
		return ErrCodeExecutionFailure
	default:
		return ErrCodeInternal
	}
}

func (e *RelayError) ErrorData() any {
	return &ErrorData{
		Code:    e.code,
		Class:   e.class.String(),
		OpIndex: e.opIndex,
	}
}
