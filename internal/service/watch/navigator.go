package watch

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/LouYuanbo1/watchagent/internal/infra/crawler/chrome"
	"github.com/LouYuanbo1/watchagent/internal/infra/crawler/humanize"
	"github.com/LouYuanbo1/watchagent/param"
	"go.uber.org/zap"
)

type Classification int

const (
	Expected Classification = iota
	Blocked
	Errored
)

func (c Classification) String() string {
	switch c {
	case Expected:
		return "expected"
	case Blocked:
		return "blocked"
	case Errored:
		return "errored"
	default:
		return "unknown"
	}
}

// Landing 一次页面跳转的落点
type Landing struct {
	Class Classification
	URL   string
	Err   error
}

// Navigator 执行单次页面跳转并对落点分类, 不做重试
type Navigator struct {
	crawler chrome.ChromeCrawler
	delayer humanize.Delayer
	site    param.Site
	timeout time.Duration
	settle  humanize.Range
	logger  *zap.Logger
}

func NewNavigator(crawler chrome.ChromeCrawler, delayer humanize.Delayer, site param.Site, timeout time.Duration, settle humanize.Range, logger *zap.Logger) *Navigator {
	return &Navigator{
		crawler: crawler,
		delayer: delayer,
		site:    site,
		timeout: timeout,
		settle:  settle,
		logger:  logger,
	}
}

func (n *Navigator) Goto(ctx context.Context, path string) Landing {
	target := n.site.URL(path)

	if err := n.navigate(ctx, target); err != nil {
		return Landing{Class: Errored, URL: target, Err: fmt.Errorf("%w: %s: %w", ErrNavigation, target, err)}
	}

	// 页面可能在加载完成后再异步重定向, 拟人化停顿之后再读地址
	if err := n.delayer.Sleep(ctx, n.settle); err != nil {
		return Landing{Class: Errored, URL: target, Err: err}
	}

	location, err := n.location(ctx)
	if err != nil {
		return Landing{Class: Errored, URL: target, Err: fmt.Errorf("%w: %w", ErrNavigation, err)}
	}

	class := Classify(location, path, n.site.BlockedPath)
	n.logger.Debug("页面落点", zap.String("target", target), zap.String("location", location), zap.Stringer("class", class))
	if class == Blocked {
		return Landing{Class: Blocked, URL: location, Err: fmt.Errorf("%w: 期望 %s, 实际落在 %s", ErrNavigationBlocked, path, location)}
	}
	return Landing{Class: Expected, URL: location}
}

func (n *Navigator) navigate(ctx context.Context, target string) error {
	ctx, cancel := context.WithTimeout(ctx, n.timeout)
	defer cancel()
	return n.crawler.Navigate(ctx, target)
}

func (n *Navigator) location(ctx context.Context) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, n.timeout)
	defer cancel()
	return n.crawler.Location(ctx)
}

// Classify 先匹配拦截页, 再匹配目标路径; 落在其它任何页面(例如登录页)也视为 Blocked
func Classify(location, targetPath, blockedPath string) Classification {
	if blockedPath != "" && strings.Contains(location, blockedPath) {
		return Blocked
	}
	u, err := url.Parse(location)
	if err != nil {
		return Blocked
	}
	landed := strings.TrimRight(u.Path, "/")
	target := strings.TrimRight(targetPath, "/")
	if landed == target || strings.HasPrefix(landed, target+"/") {
		return Expected
	}
	return Blocked
}
