package watch

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/LouYuanbo1/watchagent/internal/infra/crawler/chrome"
	"go.uber.org/zap"
)

const missWarnEvery = 10

// StartResult AwaitStart 的结果, Seen 表示计时器元素至少被读到过一次
type StartResult struct {
	Started  bool
	Seen     bool
	LastText string
}

type ProgressMonitor struct {
	crawler         chrome.ChromeCrawler
	selector        string
	sentinel        string
	pollInterval    time.Duration
	observeInterval time.Duration
	logger          *zap.Logger
}

func NewProgressMonitor(crawler chrome.ChromeCrawler, selector, sentinel string, pollInterval, observeInterval time.Duration, logger *zap.Logger) *ProgressMonitor {
	return &ProgressMonitor{
		crawler:         crawler,
		selector:        selector,
		sentinel:        sentinel,
		pollInterval:    pollInterval,
		observeInterval: observeInterval,
		logger:          logger,
	}
}

// AwaitStart 等待计时器文本不再以占位符开头
func (pm *ProgressMonitor) AwaitStart(ctx context.Context, timeout time.Duration) StartResult {
	var (
		res    StartResult
		misses int
	)
	state := Poll(ctx, pm.pollInterval, timeout, func(c context.Context) bool {
		text, err := pm.read(c, pm.pollInterval)
		if err != nil {
			misses++
			pm.logMiss(misses, err)
			return false
		}
		res.Seen = true
		res.LastText = text
		if !pm.Started(text) {
			pm.logger.Debug("计时器尚未开始", zap.String("timer", text))
			return false
		}
		return true
	})
	res.Started = state == PollStarted
	if res.Started {
		pm.logger.Info("计时器已开始", zap.String("timer", res.LastText))
	}
	return res
}

// ObserveForDuration 在整个观看窗口内定期打印计时器, 元素缺失不算错误
func (pm *ProgressMonitor) ObserveForDuration(ctx context.Context, d time.Duration) {
	var misses int
	Poll(ctx, pm.observeInterval, d, func(c context.Context) bool {
		text, err := pm.read(c, pm.observeInterval)
		if err != nil {
			misses++
			pm.logMiss(misses, err)
			return false
		}
		pm.logger.Info("计时器", zap.String("timer", text))
		return false
	})
}

// logMiss 第一次和之后每 missWarnEvery 次读取失败打 Warn, 其余打 Debug
func (pm *ProgressMonitor) logMiss(misses int, err error) {
	if misses == 1 || misses%missWarnEvery == 0 {
		pm.logger.Warn("读取计时器失败", zap.String("selector", pm.selector), zap.Int("misses", misses), zap.Error(err))
		return
	}
	pm.logger.Debug("读取计时器失败", zap.Int("misses", misses), zap.Error(err))
}

// Started 空文本或以占位符开头都视为未开始
func (pm *ProgressMonitor) Started(text string) bool {
	text = strings.TrimSpace(text)
	if text == "" {
		return false
	}
	return pm.sentinel == "" || !strings.HasPrefix(text, pm.sentinel)
}

func (pm *ProgressMonitor) read(ctx context.Context, limit time.Duration) (text string, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: panic: %v", ErrMonitorRead, r)
		}
	}()

	rctx, cancel := context.WithTimeout(ctx, max(limit, time.Second))
	defer cancel()
	text, err = pm.crawler.Text(rctx, pm.selector)
	if err != nil {
		return "", fmt.Errorf("%w: %s: %w", ErrMonitorRead, pm.selector, err)
	}
	return text, nil
}
