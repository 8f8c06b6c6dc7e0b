package chrome

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/LouYuanbo1/watchagent/internal/config"
	"github.com/LouYuanbo1/watchagent/internal/domain/model"
	"github.com/LouYuanbo1/watchagent/internal/infra/crawler/types"
	"github.com/chromedp/cdproto/cdp"
	"github.com/chromedp/cdproto/dom"
	"github.com/chromedp/cdproto/input"
	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/cdproto/runtime"
	"github.com/chromedp/chromedp"
	"go.uber.org/zap"
)

const listFramesJS = `Array.from(document.querySelectorAll('iframe')).map((f, i) => ({
	index: i,
	id: f.getAttribute('id') || '',
	src: f.getAttribute('src') || ''
}))`

type chromedpCrawler struct {
	allocCtx      context.Context
	allocCtxFuc   context.CancelFunc
	pageCtx       context.Context
	pageCtxFuc    context.CancelFunc
	timeoutCtxFuc context.CancelFunc
	logger        *zap.Logger
}

func InitChromedpCrawler(ctx context.Context, cfg *config.Config, logger *zap.Logger) (ChromeCrawler, error) {
	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", cfg.Browser.Headless),
		chromedp.Flag("incognito", cfg.Browser.Incognito),
		chromedp.Flag("disable-dev-shm-usage", cfg.Browser.DisableDevShmUsage),
		chromedp.Flag("no-sandbox", cfg.Browser.NoSandbox),
		// 关闭站点隔离, 跨域 iframe 与主页面同进程, 才能通过 FromNode 访问其文档
		chromedp.Flag("disable-site-isolation-trials", true),
		chromedp.Flag("disable-features", "IsolateOrigins,site-per-process"),
	)
	if cfg.Browser.DisableBlinkFeatures != "" {
		opts = append(opts, chromedp.Flag("disable-blink-features", cfg.Browser.DisableBlinkFeatures))
	}
	if cfg.Browser.UserDataDir != "" {
		opts = append(opts, chromedp.UserDataDir(cfg.Browser.UserDataDir))
	}
	if cfg.Browser.UserAgent != "" {
		opts = append(opts, chromedp.UserAgent(cfg.Browser.UserAgent))
	}
	if cfg.Browser.Bin != "" {
		opts = append(opts, chromedp.ExecPath(cfg.Browser.Bin))
	}

	var (
		timeoutCtx    context.Context
		cancelTimeout context.CancelFunc
	)
	if cfg.Browser.LifeTime > 0 {
		timeoutCtx, cancelTimeout = context.WithTimeout(ctx, cfg.Browser.LifeTime)
	} else {
		timeoutCtx, cancelTimeout = context.WithCancel(ctx)
	}
	allocCtx, cancelAlloc := chromedp.NewExecAllocator(timeoutCtx, opts...)
	pageCtx, cancelPage := chromedp.NewContext(allocCtx,
		chromedp.WithErrorf(logger.Sugar().Debugf),
	)

	cc := &chromedpCrawler{
		allocCtx:      allocCtx,
		allocCtxFuc:   cancelAlloc,
		pageCtx:       pageCtx,
		pageCtxFuc:    cancelPage,
		timeoutCtxFuc: cancelTimeout,
		logger:        logger,
	}
	// 第一次 Run 才会真正启动浏览器
	if err := chromedp.Run(pageCtx, network.Enable()); err != nil {
		_ = cc.Close()
		return nil, fmt.Errorf("启动浏览器失败: %w", err)
	}
	return cc, nil
}

// run 在页面上下文中执行动作, 并继承调用方 ctx 的截止时间与取消
func (cc *chromedpCrawler) run(ctx context.Context, actions ...chromedp.Action) error {
	runCtx, cancel := bind(cc.pageCtx, ctx)
	defer cancel()
	return chromedp.Run(runCtx, actions...)
}

func bind(execCtx, ctx context.Context) (context.Context, context.CancelFunc) {
	runCtx, cancel := context.WithCancel(execCtx)
	if deadline, ok := ctx.Deadline(); ok {
		var cancelDeadline context.CancelFunc
		runCtx, cancelDeadline = context.WithDeadline(runCtx, deadline)
		parent := cancel
		cancel = func() {
			cancelDeadline()
			parent()
		}
	}
	stop := context.AfterFunc(ctx, cancel)
	return runCtx, func() {
		stop()
		cancel()
	}
}

func (cc *chromedpCrawler) SetCookies(ctx context.Context, cookies []*model.Cookie) error {
	params := make([]*network.CookieParam, 0, len(cookies))
	for _, c := range cookies {
		params = append(params, &network.CookieParam{
			Name:   c.Name,
			Value:  c.Value,
			Domain: c.Domain,
			Path:   c.Path,
		})
	}
	if err := cc.run(ctx, network.SetCookies(params)); err != nil {
		return fmt.Errorf("设置cookie失败: %w", err)
	}
	return nil
}

func (cc *chromedpCrawler) Navigate(ctx context.Context, url string) error {
	if err := cc.run(ctx, chromedp.Navigate(url)); err != nil {
		return fmt.Errorf("导航失败: %w", err)
	}
	return nil
}

func (cc *chromedpCrawler) Location(ctx context.Context) (string, error) {
	var location string
	if err := cc.run(ctx, chromedp.Location(&location)); err != nil {
		return "", fmt.Errorf("获取页面地址失败: %w", err)
	}
	return location, nil
}

func (cc *chromedpCrawler) Frame(ctx context.Context, selector string) (Frame, error) {
	var nodes []*cdp.Node
	if err := cc.run(ctx, chromedp.Nodes(selector, &nodes, chromedp.ByQuery)); err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrElementNotFound, selector, err)
	}
	if len(nodes) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrElementNotFound, selector)
	}
	container := nodes[0]
	if container.ContentDocument == nil {
		return nil, fmt.Errorf("%w: %s", ErrNoContentFrame, selector)
	}
	return &chromedpFrame{
		crawler: cc,
		root:    container.ContentDocument,
		url:     container.AttributeValue("src"),
	}, nil
}

func (cc *chromedpCrawler) Frames(ctx context.Context) ([]types.FrameInfo, error) {
	var infos []types.FrameInfo
	if err := cc.run(ctx, chromedp.Evaluate(listFramesJS, &infos)); err != nil {
		return nil, fmt.Errorf("枚举iframe失败: %w", err)
	}
	return infos, nil
}

func (cc *chromedpCrawler) Text(ctx context.Context, selector string) (string, error) {
	quoted, err := json.Marshal(selector)
	if err != nil {
		return "", err
	}
	js := fmt.Sprintf(`(() => { const el = document.querySelector(%s); return el ? el.textContent : null; })()`, quoted)
	var text *string
	if err := cc.run(ctx, chromedp.Evaluate(js, &text)); err != nil {
		return "", fmt.Errorf("读取元素文本失败: %w", err)
	}
	if text == nil {
		return "", fmt.Errorf("%w: %s", ErrElementNotFound, selector)
	}
	return *text, nil
}

func (cc *chromedpCrawler) Close() error {
	cc.pageCtxFuc()
	cc.allocCtxFuc()
	cc.timeoutCtxFuc()
	return nil
}

type chromedpFrame struct {
	crawler *chromedpCrawler
	root    *cdp.Node
	url     string
}

func (cf *chromedpFrame) URL() string {
	return cf.url
}

func (cf *chromedpFrame) HoverClick(ctx context.Context, selector string) error {
	err := cf.crawler.run(ctx,
		chromedp.QueryAfter(selector, hoverNode, chromedp.ByQuery, chromedp.FromNode(cf.root)),
		chromedp.Click(selector, chromedp.ByQuery, chromedp.FromNode(cf.root)),
	)
	if err != nil {
		return fmt.Errorf("悬停点击失败 %s: %w", selector, err)
	}
	return nil
}

// ClickFirst 先等待任一选择器出现, 再按给定顺序找到第一个命中的并点击它
func (cf *chromedpFrame) ClickFirst(ctx context.Context, selectors []string) (string, error) {
	if len(selectors) == 0 {
		return "", fmt.Errorf("%w: 没有可用的选择器", ErrElementNotFound)
	}
	combined := strings.Join(selectors, ", ")
	if err := cf.crawler.run(ctx,
		chromedp.WaitReady(combined, chromedp.ByQuery, chromedp.FromNode(cf.root)),
	); err != nil {
		return "", fmt.Errorf("%w: %s: %w", ErrElementNotFound, combined, err)
	}

	found := make([][]*cdp.Node, len(selectors))
	for i, selector := range selectors {
		if err := cf.crawler.run(ctx,
			chromedp.Nodes(selector, &found[i], chromedp.ByQueryAll, chromedp.FromNode(cf.root), chromedp.AtLeast(0)),
		); err != nil {
			return "", fmt.Errorf("查询元素失败 %s: %w", selector, err)
		}
	}
	i, ok := firstMatch(found)
	if !ok {
		return "", fmt.Errorf("%w: %s", ErrElementNotFound, combined)
	}
	if err := cf.crawler.run(ctx, chromedp.MouseClickNode(found[i][0])); err != nil {
		return selectors[i], fmt.Errorf("点击失败 %s: %w", selectors[i], err)
	}
	return selectors[i], nil
}

// firstMatch 返回第一个非空结果的下标
func firstMatch(found [][]*cdp.Node) (int, bool) {
	for i, nodes := range found {
		if len(nodes) > 0 {
			return i, true
		}
	}
	return -1, false
}

// hoverNode 把鼠标移动到节点盒模型的中心
func hoverNode(ctx context.Context, _ runtime.ExecutionContextID, nodes ...*cdp.Node) error {
	if len(nodes) == 0 {
		return ErrElementNotFound
	}
	box, err := dom.GetBoxModel().WithNodeID(nodes[0].NodeID).Do(ctx)
	if err != nil {
		return err
	}
	x, y := quadCenter(box.Content)
	return chromedp.MouseEvent(input.MouseMoved, x, y).Do(ctx)
}

func quadCenter(q dom.Quad) (float64, float64) {
	var x, y float64
	n := len(q) / 2
	if n == 0 {
		return 0, 0
	}
	for i := 0; i < n; i++ {
		x += q[2*i]
		y += q[2*i+1]
	}
	return x / float64(n), y / float64(n)
}
