package chrome

import (
	"context"
	"fmt"
	"strings"

	"github.com/LouYuanbo1/watchagent/internal/config"
	"github.com/LouYuanbo1/watchagent/internal/domain/model"
	"github.com/LouYuanbo1/watchagent/internal/infra/crawler/types"
	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/launcher/flags"
	"github.com/go-rod/rod/lib/proto"
	"github.com/go-rod/stealth"
	"go.uber.org/zap"
)

type rodCrawler struct {
	launcher    *launcher.Launcher
	browser     *rod.Browser
	page        *rod.Page
	keepDataDir bool
	logger      *zap.Logger
}

func InitRodCrawler(cfg *config.Config, logger *zap.Logger) (ChromeCrawler, error) {
	l := newLauncher(cfg.Browser)
	controlURL, err := l.Launch()
	if err != nil {
		return nil, fmt.Errorf("启动浏览器失败: %w", err)
	}
	logger.Debug("浏览器可以连接的URL", zap.String("control_url", controlURL))

	browser := rod.New().
		ControlURL(controlURL).
		Trace(cfg.Browser.Trace)
	if err := browser.Connect(); err != nil {
		l.Kill()
		return nil, fmt.Errorf("连接浏览器失败: %w", err)
	}

	var page *rod.Page
	if cfg.Browser.Stealth {
		page, err = stealth.Page(browser)
	} else {
		page, err = browser.Page(proto.TargetCreateTarget{})
	}
	if err != nil {
		_ = browser.Close()
		l.Kill()
		return nil, fmt.Errorf("创建页面失败: %w", err)
	}

	return &rodCrawler{
		launcher:    l,
		browser:     browser,
		page:        page,
		keepDataDir: cfg.Browser.UserDataDir != "",
		logger:      logger,
	}, nil
}

func (rc *rodCrawler) SetCookies(ctx context.Context, cookies []*model.Cookie) error {
	params := make([]*proto.NetworkCookieParam, 0, len(cookies))
	for _, c := range cookies {
		params = append(params, &proto.NetworkCookieParam{
			Name:   c.Name,
			Value:  c.Value,
			Domain: c.Domain,
			Path:   c.Path,
		})
	}
	if err := rc.page.Context(ctx).SetCookies(params); err != nil {
		return fmt.Errorf("设置cookie失败: %w", err)
	}
	return nil
}

func (rc *rodCrawler) Navigate(ctx context.Context, url string) error {
	page := rc.page.Context(ctx)
	if err := page.Navigate(url); err != nil {
		return fmt.Errorf("导航失败: %w", err)
	}
	if err := page.WaitLoad(); err != nil {
		return fmt.Errorf("等待页面加载失败: %w", err)
	}
	return nil
}

func (rc *rodCrawler) Location(ctx context.Context) (string, error) {
	info, err := rc.page.Context(ctx).Info()
	if err != nil {
		return "", fmt.Errorf("获取页面地址失败: %w", err)
	}
	return info.URL, nil
}

func (rc *rodCrawler) Frame(ctx context.Context, selector string) (Frame, error) {
	el, err := rc.page.Context(ctx).Element(selector)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrElementNotFound, selector, err)
	}
	// Element.Frame 不检查节点是否真的拥有文档, 先确认 contentDocument 存在
	node, err := el.Describe(1, true)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrNoContentFrame, selector, err)
	}
	if err := contentFrame(node); err != nil {
		return nil, fmt.Errorf("%s: %w", selector, err)
	}
	frame, err := el.Frame()
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrNoContentFrame, selector, err)
	}
	return &rodFrame{page: frame, url: attr(el, "src")}, nil
}

// contentFrame 只有带内部文档的节点才能当作 Frame 使用,
// 例如播放器 API 尚未把占位 div 替换为 iframe 时会返回 ErrNoContentFrame
func contentFrame(node *proto.DOMNode) error {
	if node == nil {
		return ErrNoContentFrame
	}
	if node.ContentDocument == nil {
		return fmt.Errorf("%w: <%s>", ErrNoContentFrame, strings.ToLower(node.NodeName))
	}
	return nil
}

func (rc *rodCrawler) Frames(ctx context.Context) ([]types.FrameInfo, error) {
	els, err := rc.page.Context(ctx).Elements("iframe")
	if err != nil {
		return nil, fmt.Errorf("枚举iframe失败: %w", err)
	}
	infos := make([]types.FrameInfo, 0, len(els))
	for i, el := range els {
		infos = append(infos, types.FrameInfo{
			Index: i,
			ID:    attr(el, "id"),
			Src:   attr(el, "src"),
		})
	}
	return infos, nil
}

func (rc *rodCrawler) Text(ctx context.Context, selector string) (string, error) {
	has, el, err := rc.page.Context(ctx).Has(selector)
	if err != nil {
		return "", fmt.Errorf("查找元素失败: %w", err)
	}
	if !has {
		return "", fmt.Errorf("%w: %s", ErrElementNotFound, selector)
	}
	return el.Text()
}

func (rc *rodCrawler) Close() error {
	err := rc.browser.Close()
	rc.launcher.Kill()
	if !rc.keepDataDir {
		// 临时用户目录随浏览器一起清理
		rc.launcher.Cleanup()
	}
	if err != nil {
		return fmt.Errorf("关闭浏览器失败: %w", err)
	}
	return nil
}

// attr 读取属性, 属性不存在或读取失败时返回空字符串
func attr(el *rod.Element, name string) string {
	v, err := el.Attribute(name)
	if err != nil || v == nil {
		return ""
	}
	return *v
}

type rodFrame struct {
	page *rod.Page
	url  string
}

func (rf *rodFrame) URL() string {
	return rf.url
}

func (rf *rodFrame) HoverClick(ctx context.Context, selector string) error {
	el, err := rf.page.Context(ctx).Element(selector)
	if err != nil {
		return fmt.Errorf("%w: %s: %w", ErrElementNotFound, selector, err)
	}
	if err := el.Hover(); err != nil {
		return fmt.Errorf("悬停失败: %w", err)
	}
	if err := el.Click(proto.InputMouseButtonLeft, 1); err != nil {
		return fmt.Errorf("点击失败: %w", err)
	}
	return nil
}

func (rf *rodFrame) ClickFirst(ctx context.Context, selectors []string) (string, error) {
	if len(selectors) == 0 {
		return "", fmt.Errorf("%w: 没有可用的选择器", ErrElementNotFound)
	}
	var matched string
	race := rf.page.Context(ctx).Race()
	for _, selector := range selectors {
		race = race.Element(selector).Handle(func(*rod.Element) error {
			matched = selector
			return nil
		})
	}
	el, err := race.Do()
	if err != nil {
		return "", fmt.Errorf("%w: %v: %w", ErrElementNotFound, selectors, err)
	}
	if err := el.Click(proto.InputMouseButtonLeft, 1); err != nil {
		return matched, fmt.Errorf("点击失败: %w", err)
	}
	return matched, nil
}

// newLauncher 按配置组装启动参数, 不启动进程
func newLauncher(cfg config.Browser) *launcher.Launcher {
	l := launcher.New().
		Headless(cfg.Headless).
		Leakless(cfg.Leakless).
		NoSandbox(cfg.NoSandbox)
	if cfg.Bin != "" {
		l = l.Bin(cfg.Bin)
	}
	if cfg.UserDataDir != "" {
		l = l.UserDataDir(cfg.UserDataDir)
	}
	if cfg.DisableBlinkFeatures != "" {
		l = l.Set(flags.Flag("disable-blink-features"), cfg.DisableBlinkFeatures)
	}
	if cfg.Incognito {
		l = l.Set("incognito")
	}
	if cfg.DisableDevShmUsage {
		l = l.Set("disable-dev-shm-usage")
	}
	if cfg.UserAgent != "" {
		l = l.Set(flags.Flag("user-agent"), cfg.UserAgent)
	}
	// 跨域的播放器 iframe 默认在独立进程中, 父页面 DOM 里拿不到它的 contentDocument
	l = l.Set("disable-site-isolation-trials").
		Set(flags.Flag("disable-features"), "IsolateOrigins,site-per-process")
	return l
}
