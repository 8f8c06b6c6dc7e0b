package main

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/LouYuanbo1/watchagent/internal/config"
	"github.com/LouYuanbo1/watchagent/internal/domain/model"
	"github.com/LouYuanbo1/watchagent/internal/infra/crawler/chrome"
	"github.com/LouYuanbo1/watchagent/internal/infra/crawler/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// 测试配置: 所有等待为 0, 固定时长观看
const fastConfig = `{
  "session": {
    "max_attempts": 2,
    "step_delay": {"min": "0s", "max": "0s"},
    "backoff": {"min": "0s", "max": "0s"},
    "click_delay": {"min": "0s", "max": "0s"},
    "navigation_timeout": "1s",
    "frame_timeout": "1s",
    "click_timeout": "1s"
  },
  "monitor": {
    "fixed_watch": {"min": "0s", "max": "0s"}
  },
  "logger": {"level": "error"}
}`

type fakeFrame struct{}

func (fakeFrame) URL() string { return "https://www.youtube.com/embed/abc" }

func (fakeFrame) HoverClick(ctx context.Context, sel string) error { return nil }

func (fakeFrame) ClickFirst(ctx context.Context, sels []string) (string, error) {
	return sels[0], nil
}

type fakeCrawler struct {
	mu          sync.Mutex
	blockWatch  bool
	location    string
	cookies     []*model.Cookie
	navigations int
	closed      int
}

func (c *fakeCrawler) SetCookies(ctx context.Context, cookies []*model.Cookie) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.cookies = cookies
	return nil
}

func (c *fakeCrawler) Navigate(ctx context.Context, url string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.navigations++
	c.location = url
	if c.blockWatch && strings.HasSuffix(url, "/smm/watch") {
		c.location = strings.TrimSuffix(url, "/smm/watch") + "/dashboard/adblock"
	}
	return nil
}

func (c *fakeCrawler) Location(ctx context.Context) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.location, nil
}

func (c *fakeCrawler) Frame(ctx context.Context, selector string) (chrome.Frame, error) {
	return fakeFrame{}, nil
}

func (c *fakeCrawler) Frames(ctx context.Context) ([]types.FrameInfo, error) {
	return nil, nil
}

func (c *fakeCrawler) Text(ctx context.Context, selector string) (string, error) {
	return "", chrome.ErrElementNotFound
}

func (c *fakeCrawler) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed++
	return nil
}

type factorySpy struct {
	crawler *fakeCrawler
	calls   int
	cfg     *config.Config
}

func (s *factorySpy) factory(ctx context.Context, cfg *config.Config, logger *zap.Logger) (chrome.ChromeCrawler, error) {
	s.calls++
	s.cfg = cfg
	return s.crawler, nil
}

func writeConfig(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "watchagent.json")
	require.NoError(t, os.WriteFile(path, []byte(fastConfig), 0o600))
	return path
}

func clearCookieEnv(t *testing.T) {
	t.Setenv("LITEFAUCET_COOKIES", "")
	t.Setenv("WATCHAGENT_COOKIES", "")
}

func TestMissingCookiesExitsBeforeBrowser(t *testing.T) {
	clearCookieEnv(t)
	spy := &factorySpy{crawler: &fakeCrawler{}}

	code := execute(context.Background(), []string{"--config", writeConfig(t)}, spy.factory)
	assert.Equal(t, 1, code)
	assert.Zero(t, spy.calls)
}

func TestMalformedCookiesExitsBeforeBrowser(t *testing.T) {
	clearCookieEnv(t)
	spy := &factorySpy{crawler: &fakeCrawler{}}

	code := execute(context.Background(), []string{"--config", writeConfig(t), "--cookies", "sessionid"}, spy.factory)
	assert.Equal(t, 1, code)
	assert.Zero(t, spy.calls)
}

func TestSuccessfulRun(t *testing.T) {
	clearCookieEnv(t)
	crawler := &fakeCrawler{}
	spy := &factorySpy{crawler: crawler}

	code := execute(context.Background(), []string{
		"--config", writeConfig(t),
		"--cookies", "sid=abc; token=x=y=z",
		"--mode", "fixed",
		"--driver", "chromedp",
	}, spy.factory)
	assert.Equal(t, 0, code)
	assert.Equal(t, 1, spy.calls)
	assert.Equal(t, 1, crawler.closed)
	assert.Equal(t, 2, crawler.navigations)
	assert.Equal(t, config.DriverChromedp, spy.cfg.Browser.Driver)

	require.Len(t, crawler.cookies, 2)
	assert.Equal(t, "x=y=z", crawler.cookies[1].Value)
	assert.Equal(t, "litefaucet.in", crawler.cookies[1].Domain)
	assert.Equal(t, "/", crawler.cookies[1].Path)
}

func TestCookiesFromEnvironment(t *testing.T) {
	clearCookieEnv(t)
	t.Setenv("LITEFAUCET_COOKIES", "sid=from-env")
	crawler := &fakeCrawler{}
	spy := &factorySpy{crawler: crawler}

	code := execute(context.Background(), []string{"--config", writeConfig(t), "--mode", "fixed"}, spy.factory)
	assert.Equal(t, 0, code)
	require.Len(t, crawler.cookies, 1)
	assert.Equal(t, "from-env", crawler.cookies[0].Value)
}

func TestWatchPageAlwaysBlockedExhausts(t *testing.T) {
	clearCookieEnv(t)
	crawler := &fakeCrawler{blockWatch: true}
	spy := &factorySpy{crawler: crawler}

	code := execute(context.Background(), []string{
		"--config", writeConfig(t),
		"--cookies", "sid=abc",
		"--max-attempts", "3",
	}, spy.factory)
	assert.Equal(t, 1, code)
	assert.Equal(t, 1, spy.calls)
	assert.Equal(t, 1, crawler.closed)
	assert.Equal(t, 6, crawler.navigations)
	assert.Equal(t, 3, spy.cfg.Session.MaxAttempts)
}

func TestInterruptedRunExitsWithFailure(t *testing.T) {
	clearCookieEnv(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	crawler := &fakeCrawler{}
	spy := &factorySpy{crawler: crawler}

	code := execute(ctx, []string{"--config", writeConfig(t), "--cookies", "sid=abc"}, spy.factory)
	assert.Equal(t, 1, code)
	assert.Equal(t, 1, crawler.closed)
}
