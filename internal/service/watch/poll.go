package watch

import (
	"context"
	"time"
)

type PollState int

const (
	PollNotStarted PollState = iota
	PollStarted
	PollTimedOut
)

func (s PollState) String() string {
	switch s {
	case PollNotStarted:
		return "notStarted"
	case PollStarted:
		return "started"
	case PollTimedOut:
		return "timedOut"
	default:
		return "unknown"
	}
}

// Poll 立即检查一次, 之后每隔 interval 检查一次, 直到 check 返回 true 或超过 timeout.
// 父 ctx 被取消同样返回 PollTimedOut, 由调用方检查 ctx.Err()
func Poll(ctx context.Context, interval, timeout time.Duration, check func(ctx context.Context) bool) PollState {
	pctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		if check(pctx) {
			return PollStarted
		}
		select {
		case <-pctx.Done():
			return PollTimedOut
		case <-ticker.C:
		}
	}
}
