package humanize

import (
	"context"
	"math/rand/v2"
	"time"
)

// Range 随机等待区间,实际等待时间落在 [Min, Max] 内
type Range struct {
	Min time.Duration `mapstructure:"min" json:"min"`
	Max time.Duration `mapstructure:"max" json:"max"`
}

func (r Range) IsValid() bool {
	return r.Min >= 0 && r.Max >= r.Min
}

// Delayer 生成拟人化的随机停顿,避免固定间隔被识别为自动化
type Delayer interface {
	Between(r Range) time.Duration
	Sleep(ctx context.Context, r Range) error
}

type delayer struct {
	rng *rand.Rand
}

func NewDelayer(seed uint64) Delayer {
	return &delayer{rng: rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))}
}

func NewTimeSeededDelayer() Delayer {
	return NewDelayer(uint64(time.Now().UnixNano()))
}

func (d *delayer) Between(r Range) time.Duration {
	if r.Max <= r.Min {
		return max(r.Min, 0)
	}
	return r.Min + time.Duration(d.rng.Int64N(int64(r.Max-r.Min)+1))
}

// Sleep 在区间内随机等待,ctx 取消时提前返回 ctx.Err()
func (d *delayer) Sleep(ctx context.Context, r Range) error {
	return Wait(ctx, d.Between(r))
}

// Wait 可取消的固定等待
func Wait(ctx context.Context, dur time.Duration) error {
	if dur <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(dur)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
