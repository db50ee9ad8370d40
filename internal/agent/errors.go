package agent

import (
	"errors"
	"fmt"
)

// ErrorKind 是交易周期的终止原因分类。
type ErrorKind string

const (
	KindDataUnavailable ErrorKind = "data_unavailable"
	KindNoCandidate     ErrorKind = "no_candidate"
	KindExecution       ErrorKind = "execution_failed"
)

var (
	ErrDataUnavailable = errors.New("market data unavailable")
	ErrNoCandidate     = errors.New("no tradable candidate")
	ErrExecution       = errors.New("order execution failed")
)

// CycleError 表示周期被中止；errors.Is 可匹配对应的哨兵错误。
type CycleError struct {
	Kind   ErrorKind
	Symbol string
	Err    error
}

func (e *CycleError) Error() string {
	if e.Symbol != "" {
		return fmt.Sprintf("%s (%s): %v", e.Kind, e.Symbol, e.Err)
	}
	return fmt.Sprintf("%s: %v", e.Kind, e.Err)
}

func (e *CycleError) Unwrap() error { return e.Err }

func (e *CycleError) Is(target error) bool {
	switch target {
	case ErrDataUnavailable:
		return e.Kind == KindDataUnavailable
	case ErrNoCandidate:
		return e.Kind == KindNoCandidate
	case ErrExecution:
		return e.Kind == KindExecution
	}
	return false
}

func cycleErr(kind ErrorKind, symbol string, err error) *CycleError {
	return &CycleError{Kind: kind, Symbol: symbol, Err: err}
}
