package watch

import (
	"context"
	"fmt"
	"time"

	"github.com/LouYuanbo1/watchagent/internal/infra/crawler/chrome"
	"go.uber.org/zap"
)

const inventoryTimeout = 5 * time.Second

type FrameLocator struct {
	crawler chrome.ChromeCrawler
	logger  *zap.Logger
}

func NewFrameLocator(crawler chrome.ChromeCrawler, logger *zap.Logger) *FrameLocator {
	return &FrameLocator{crawler: crawler, logger: logger}
}

// Locate 在 timeout 内等待容器出现并取得其内容上下文;
// 失败时打印页面上所有 iframe 方便排查
func (fl *FrameLocator) Locate(ctx context.Context, selector string, timeout time.Duration) (chrome.Frame, error) {
	frame, err := fl.find(ctx, selector, timeout)
	if err == nil && frame != nil {
		fl.logger.Debug("找到播放器 iframe", zap.String("selector", selector), zap.String("url", frame.URL()))
		return frame, nil
	}
	if err == nil {
		err = chrome.ErrNoContentFrame
	}
	if ctx.Err() != nil {
		return nil, ctx.Err()
	}

	fl.logger.Warn("未找到播放器 iframe", zap.String("selector", selector), zap.Error(err))
	fl.inventory(ctx)
	return nil, fmt.Errorf("%w: %s: %w", ErrFrameNotFound, selector, err)
}

func (fl *FrameLocator) find(ctx context.Context, selector string, timeout time.Duration) (chrome.Frame, error) {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	return fl.crawler.Frame(ctx, selector)
}

// inventory 只用于诊断, 任何错误都吞掉
func (fl *FrameLocator) inventory(ctx context.Context) {
	defer func() {
		if r := recover(); r != nil {
			fl.logger.Warn("列举 iframe 时发生 panic", zap.Any("panic", r))
		}
	}()

	ictx, cancel := context.WithTimeout(ctx, inventoryTimeout)
	defer cancel()
	frames, err := fl.crawler.Frames(ictx)
	if err != nil {
		fl.logger.Warn("无法列举页面 iframe", zap.Error(err))
		return
	}
	fl.logger.Info("页面 iframe 列表", zap.Int("count", len(frames)))
	for _, f := range frames {
		fl.logger.Info("iframe",
			zap.Int("index", f.Index),
			zap.String("id", f.ID),
			zap.String("src", f.Src),
		)
	}
}
