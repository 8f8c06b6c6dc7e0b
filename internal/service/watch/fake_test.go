package watch

import (
	"context"
	"errors"
	"net/url"
	"sync"
	"testing"
	"time"

	"github.com/LouYuanbo1/watchagent/internal/domain/model"
	"github.com/LouYuanbo1/watchagent/internal/infra/crawler/chrome"
	"github.com/LouYuanbo1/watchagent/internal/infra/crawler/humanize"
	"github.com/LouYuanbo1/watchagent/internal/infra/crawler/types"
	"github.com/LouYuanbo1/watchagent/param"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

const testBase = "https://litefaucet.test"

func testSite() param.Site {
	return param.Site{
		BaseURL:        testBase,
		DashboardPath:  "/dashboard",
		WatchPath:      "/smm/watch",
		BlockedPath:    "/dashboard/adblock",
		PlayerSelector: "#youtube-player",
		TimerSelector:  "#timer",
		TimerSentinel:  "---",
		PlaySelectors:  []string{`button[aria-label="Play"]`, ".ytp-large-play-button"},
		HoverSelector:  "body",
		CookieDomain:   "litefaucet.test",
		CookiePath:     "/",
	}
}

func testSession(maxAttempts int) param.Session {
	return param.Session{
		MaxAttempts:       maxAttempts,
		NavigationTimeout: time.Second,
		FrameTimeout:      time.Second,
		ClickTimeout:      time.Second,
	}
}

func testMonitor(mode param.WatchMode) param.Monitor {
	return param.Monitor{
		Mode:            mode,
		PollInterval:    time.Millisecond,
		StartTimeout:    50 * time.Millisecond,
		Observe:         true,
		ObserveInterval: time.Millisecond,
		WatchWindow:     5 * time.Millisecond,
	}
}

// 区间全为 0, 测试中所有拟人化等待立即返回
func testDelayer() humanize.Delayer {
	return humanize.NewDelayer(1)
}

type fakeFrame struct {
	mu         sync.Mutex
	hoverErr   error
	clickErr   error
	hoverPanic bool
	hovers     int
	clicks     int
}

func (f *fakeFrame) URL() string { return "https://www.youtube.com/embed/abc" }

func (f *fakeFrame) HoverClick(ctx context.Context, selector string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.hovers++
	if f.hoverPanic {
		panic("node detached")
	}
	return f.hoverErr
}

func (f *fakeFrame) ClickFirst(ctx context.Context, selectors []string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.clicks++
	if f.clickErr != nil {
		return "", f.clickErr
	}
	return selectors[0], nil
}

// fakeCrawler 按路径改写落点, 按顺序返回计时器文本
type fakeCrawler struct {
	mu sync.Mutex

	// redirects 请求路径 -> 实际落点(完整 URL), 未配置时原样落地
	redirects map[string]string
	navErr    error
	// navPanics 前 N 次导航直接 panic
	navPanics int

	frame     chrome.Frame
	frameErrs []error
	frames    []types.FrameInfo
	framesErr error

	texts   []string
	textErr error

	location    string
	navigations []string
	frameCalls  int
	framesCalls int
	textCalls   int
}

func (c *fakeCrawler) SetCookies(ctx context.Context, cookies []*model.Cookie) error {
	return nil
}

func (c *fakeCrawler) Navigate(ctx context.Context, target string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := ctx.Err(); err != nil {
		return err
	}
	c.navigations = append(c.navigations, target)
	if c.navPanics > 0 {
		c.navPanics--
		panic("target closed")
	}
	if c.navErr != nil {
		return c.navErr
	}
	u, err := url.Parse(target)
	if err != nil {
		return err
	}
	if landed, ok := c.redirects[u.Path]; ok {
		c.location = landed
	} else {
		c.location = target
	}
	return nil
}

func (c *fakeCrawler) Location(ctx context.Context) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.location, nil
}

func (c *fakeCrawler) Frame(ctx context.Context, selector string) (chrome.Frame, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.frameCalls++
	if len(c.frameErrs) > 0 {
		err := c.frameErrs[0]
		c.frameErrs = c.frameErrs[1:]
		if err != nil {
			return nil, err
		}
	}
	if c.frame == nil {
		return nil, chrome.ErrElementNotFound
	}
	return c.frame, nil
}

func (c *fakeCrawler) Frames(ctx context.Context) ([]types.FrameInfo, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.framesCalls++
	return c.frames, c.framesErr
}

func (c *fakeCrawler) Text(ctx context.Context, selector string) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.textCalls++
	if c.textErr != nil {
		return "", c.textErr
	}
	if len(c.texts) == 0 {
		return "", chrome.ErrElementNotFound
	}
	text := c.texts[0]
	if len(c.texts) > 1 {
		c.texts = c.texts[1:]
	}
	return text, nil
}

func (c *fakeCrawler) Close() error { return nil }

var errBoom = errors.New("boom")
