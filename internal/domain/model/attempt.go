package model

import "fmt"

type Outcome string

const (
	OutcomeSuccess       Outcome = "success"
	OutcomeBlocked       Outcome = "blocked"
	OutcomeFrameNotFound Outcome = "frameNotFound"
	OutcomeException     Outcome = "exception"
	OutcomeTimeout       Outcome = "timeout"
)

// AttemptRecord 一次尝试的结果, 只用于日志与重试决策, 循环结束后不保留
type AttemptRecord struct {
	Number  int
	Outcome Outcome
	URL     string
	Err     error
}

func (r AttemptRecord) String() string {
	s := fmt.Sprintf("attempt %d: %s", r.Number, r.Outcome)
	if r.URL != "" {
		s += " @ " + r.URL
	}
	if r.Err != nil {
		s += ": " + r.Err.Error()
	}
	return s
}

// Terminal 会话的最终结果
type Terminal string

const (
	TerminalSuccess   Terminal = "success"
	TerminalExhausted Terminal = "exhausted"
)

// RetryBudget 重试预算, 以值传递, 不使用包级状态
// 不变式: 0 <= Used <= Max
type RetryBudget struct {
	Max  int
	Used int
}

func NewRetryBudget(maxAttempts int) RetryBudget {
	return RetryBudget{Max: max(maxAttempts, 0)}
}

// Consume 占用一次尝试; 预算已耗尽时返回原值与 false
func (b RetryBudget) Consume() (RetryBudget, bool) {
	if b.Used >= b.Max {
		return b, false
	}
	b.Used++
	return b, true
}

func (b RetryBudget) Exhausted() bool {
	return b.Used >= b.Max
}

func (b RetryBudget) Remaining() int {
	return b.Max - b.Used
}
