package search

import (
	"context"
	"errors"
	"fmt"
)

var (
	// ErrInvalidInput 查询为空或 max_results < 1
	ErrInvalidInput = errors.New("invalid input")
	// ErrAllEnginesFailed 所有引擎都失败或超时
	ErrAllEnginesFailed = errors.New("no results available: all engines failed")
	// ErrEngineTimeout 引擎在截止时间前没有响应
	ErrEngineTimeout = errors.New("timeout")
)

// EngineError 单个引擎的失败
type EngineError struct {
	Engine string
	Reason string
	Err    error
}

func (e *EngineError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("engine %s: %s: %v", e.Engine, e.Reason, e.Err)
	}
	return fmt.Sprintf("engine %s: %s", e.Engine, e.Reason)
}

func (e *EngineError) Unwrap() error {
	return e.Err
}

func isTimeout(err error) bool {
	return errors.Is(err, ErrEngineTimeout) || errors.Is(err, context.DeadlineExceeded)
}
