package watch

import (
	"context"
	"fmt"
	"time"

	"github.com/LouYuanbo1/watchagent/internal/infra/crawler/chrome"
	"go.uber.org/zap"
)

type PlaybackTrigger struct {
	hoverSelector string
	playSelectors []string
	timeout       time.Duration
	logger        *zap.Logger
}

func NewPlaybackTrigger(hoverSelector string, playSelectors []string, timeout time.Duration, logger *zap.Logger) *PlaybackTrigger {
	return &PlaybackTrigger{
		hoverSelector: hoverSelector,
		playSelectors: playSelectors,
		timeout:       timeout,
		logger:        logger,
	}
}

// Trigger 依次尝试: 悬停后点击 body, 点击第一个存在的播放按钮.
// 任一成功即返回 true; 全部失败只记录日志, 不影响本次尝试
func (pt *PlaybackTrigger) Trigger(ctx context.Context, frame chrome.Frame) bool {
	if pt.hoverSelector != "" {
		err := pt.try(ctx, func(c context.Context) error {
			return frame.HoverClick(c, pt.hoverSelector)
		})
		if err == nil {
			pt.logger.Info("已悬停并点击播放器", zap.String("selector", pt.hoverSelector))
			return true
		}
		pt.logger.Warn("悬停点击失败", zap.Error(err))
	}

	if len(pt.playSelectors) > 0 {
		var matched string
		err := pt.try(ctx, func(c context.Context) error {
			var err error
			matched, err = frame.ClickFirst(c, pt.playSelectors)
			return err
		})
		if err == nil {
			pt.logger.Info("已点击播放按钮", zap.String("selector", matched))
			return true
		}
		pt.logger.Warn("点击播放按钮失败", zap.Strings("selectors", pt.playSelectors), zap.Error(err))
	}
	return false
}

// try 为单个策略加上超时, 并把驱动层 panic 转换为错误
func (pt *PlaybackTrigger) try(ctx context.Context, action func(context.Context) error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: panic: %v", ErrInteraction, r)
		}
	}()

	cctx, cancel := context.WithTimeout(ctx, pt.timeout)
	defer cancel()
	if err := action(cctx); err != nil {
		return fmt.Errorf("%w: %w", ErrInteraction, err)
	}
	return nil
}
