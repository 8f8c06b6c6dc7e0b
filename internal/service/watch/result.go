package watch

import (
	"context"
	"errors"

	"github.com/LouYuanbo1/watchagent/internal/domain/model"
)

var (
	ErrNavigationBlocked = errors.New("navigation blocked")
	ErrNavigation        = errors.New("navigation error")
	ErrFrameNotFound     = errors.New("frame not found")
	ErrInteraction       = errors.New("interaction failure")
	ErrMonitorRead       = errors.New("monitor read failure")
	ErrTimerNotStarted   = errors.New("reward timer did not start")
)

type StepStatus int

const (
	StepSucceeded StepStatus = iota
	// StepRecoverable 本次尝试失败, 退避后重试
	StepRecoverable
	// StepFatal 立即结束整个会话(目前只有根 ctx 被取消)
	StepFatal
)

func (s StepStatus) String() string {
	switch s {
	case StepSucceeded:
		return "succeeded"
	case StepRecoverable:
		return "recoverable"
	case StepFatal:
		return "fatal"
	default:
		return "unknown"
	}
}

// StepResult 每个步骤的三态结果, 代替用异常做控制流
type StepResult struct {
	Status  StepStatus
	Outcome model.Outcome
	URL     string
	Err     error
}

func succeeded() StepResult {
	return StepResult{Status: StepSucceeded, Outcome: model.OutcomeSuccess}
}

func fatal(err error) StepResult {
	return StepResult{Status: StepFatal, Err: err}
}

// failure 根 ctx 已取消时升级为 fatal, 否则为可重试失败
func failure(ctx context.Context, outcome model.Outcome, url string, err error) StepResult {
	if ctxErr := ctx.Err(); ctxErr != nil {
		return fatal(ctxErr)
	}
	return StepResult{Status: StepRecoverable, Outcome: outcome, URL: url, Err: err}
}

// outcomeOf 超时归为 timeout, 其余错误归为 exception
func outcomeOf(err error) model.Outcome {
	if errors.Is(err, context.DeadlineExceeded) {
		return model.OutcomeTimeout
	}
	return model.OutcomeException
}
