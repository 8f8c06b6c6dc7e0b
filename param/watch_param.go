package param

import (
	"time"

	"github.com/LouYuanbo1/watchagent/internal/infra/crawler/humanize"
)

type WatchMode string

const (
	// WatchAuto 有计时器时按计时器确认,页面上找不到计时器时退化为固定时长观看
	WatchAuto  WatchMode = "auto"
	WatchTimer WatchMode = "timer"
	WatchFixed WatchMode = "fixed"
)

// Session 单次会话的重试与各步骤的超时/等待参数
type Session struct {
	MaxAttempts       int            `mapstructure:"max_attempts" json:"max_attempts"`
	StepDelay         humanize.Range `mapstructure:"step_delay" json:"step_delay"`
	Backoff           humanize.Range `mapstructure:"backoff" json:"backoff"`
	ClickDelay        humanize.Range `mapstructure:"click_delay" json:"click_delay"`
	NavigationTimeout time.Duration  `mapstructure:"navigation_timeout" json:"navigation_timeout"`
	FrameTimeout      time.Duration  `mapstructure:"frame_timeout" json:"frame_timeout"`
	ClickTimeout      time.Duration  `mapstructure:"click_timeout" json:"click_timeout"`
}

func (s *Session) IsValid() bool {
	return s.MaxAttempts > 0 &&
		s.NavigationTimeout > 0 &&
		s.FrameTimeout > 0 &&
		s.ClickTimeout > 0 &&
		s.StepDelay.IsValid() &&
		s.Backoff.IsValid() &&
		s.ClickDelay.IsValid()
}

// Monitor 计时器轮询与观看时长策略
type Monitor struct {
	Mode            WatchMode      `mapstructure:"mode" json:"mode"`
	PollInterval    time.Duration  `mapstructure:"poll_interval" json:"poll_interval"`
	StartTimeout    time.Duration  `mapstructure:"start_timeout" json:"start_timeout"`
	Observe         bool           `mapstructure:"observe" json:"observe"`
	ObserveInterval time.Duration  `mapstructure:"observe_interval" json:"observe_interval"`
	WatchWindow     time.Duration  `mapstructure:"watch_window" json:"watch_window"`
	FixedWatch      humanize.Range `mapstructure:"fixed_watch" json:"fixed_watch"`
}

func (m *Monitor) IsValid() bool {
	switch m.Mode {
	case WatchFixed:
		return m.FixedWatch.IsValid()
	case WatchAuto, WatchTimer:
		if m.PollInterval <= 0 || m.StartTimeout <= 0 || !m.FixedWatch.IsValid() {
			return false
		}
		if m.Observe {
			return m.ObserveInterval > 0 && m.WatchWindow >= 0
		}
		return true
	default:
		return false
	}
}
