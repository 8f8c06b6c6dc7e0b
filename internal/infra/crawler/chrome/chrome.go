package chrome

import (
	"context"
	"errors"

	"github.com/LouYuanbo1/watchagent/internal/config"
	"github.com/LouYuanbo1/watchagent/internal/domain/model"
	"github.com/LouYuanbo1/watchagent/internal/infra/crawler/types"
	"go.uber.org/zap"
)

var (
	// ErrElementNotFound 在 ctx 截止前没有找到元素
	ErrElementNotFound = errors.New("element not found")
	// ErrNoContentFrame 容器元素存在, 但拿不到其内部文档(跨域限制或尚未渲染)
	ErrNoContentFrame = errors.New("container has no content frame")
)

// ChromeCrawler 持有一个浏览器进程和唯一的活动页面
// 所有方法都是顺序调用的, 超时由传入的 ctx 决定
type ChromeCrawler interface {
	SetCookies(ctx context.Context, cookies []*model.Cookie) error
	Navigate(ctx context.Context, url string) error
	Location(ctx context.Context) (string, error)
	Frame(ctx context.Context, selector string) (Frame, error)
	Frames(ctx context.Context) ([]types.FrameInfo, error)
	Text(ctx context.Context, selector string) (string, error)
	Close() error
}

// Frame 指向当前页面某个 iframe 内部文档的弱引用, 页面导航后即失效
type Frame interface {
	URL() string
	HoverClick(ctx context.Context, selector string) error
	// ClickFirst 点击 selectors 中最先出现的元素, 返回命中的选择器
	ClickFirst(ctx context.Context, selectors []string) (string, error)
}

// InitChromeCrawler 按配置选择驱动并启动浏览器
func InitChromeCrawler(ctx context.Context, cfg *config.Config, logger *zap.Logger) (ChromeCrawler, error) {
	switch cfg.Browser.Driver {
	case config.DriverChromedp:
		return InitChromedpCrawler(ctx, cfg, logger)
	default:
		return InitRodCrawler(cfg, logger)
	}
}
