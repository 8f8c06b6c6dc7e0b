package collector

import (
	"context"
	"fmt"
	"net/http"
	"net/http/cookiejar"

	"github.com/LouYuanbo1/watchagent/internal/config"
	"github.com/LouYuanbo1/watchagent/internal/domain/model"
	"github.com/gocolly/colly/v2"
	"go.uber.org/zap"
)

type collyProbe struct {
	cfg    config.Preflight
	logger *zap.Logger
}

func InitCollyProbe(cfg config.Preflight, logger *zap.Logger) SessionProbe {
	logger.Debug("InitCollyProbe", zap.Duration("timeout", cfg.Timeout), zap.String("user_agent", cfg.UserAgent))
	return &collyProbe{cfg: cfg, logger: logger}
}

// Check 每次调用都新建 collector, 预检之间不共享 cookie
func (p *collyProbe) Check(ctx context.Context, target string, cookies []*model.Cookie) (*Probe, error) {
	opts := []colly.CollectorOption{
		colly.StdlibContext(ctx),
		colly.IgnoreRobotsTxt(),
		colly.AllowURLRevisit(),
	}
	if p.cfg.UserAgent != "" {
		opts = append(opts, colly.UserAgent(p.cfg.UserAgent))
	}
	c := colly.NewCollector(opts...)
	c.SetRequestTimeout(p.cfg.Timeout)

	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, fmt.Errorf("创建 cookie jar 失败: %w", err)
	}
	c.SetCookieJar(jar)
	// 不带 Domain, 让 jar 按目标地址设置 host-only cookie
	httpCookies := make([]*http.Cookie, 0, len(cookies))
	for _, ck := range cookies {
		httpCookies = append(httpCookies, &http.Cookie{Name: ck.Name, Value: ck.Value, Path: ck.Path})
	}
	if err := c.SetCookies(target, httpCookies); err != nil {
		return nil, fmt.Errorf("设置 cookie 失败: %w", err)
	}

	probe := &Probe{RequestedURL: target}
	c.OnResponse(func(r *colly.Response) {
		probe.FinalURL = r.Request.URL.String()
		probe.StatusCode = r.StatusCode
	})
	c.OnError(func(r *colly.Response, err error) {
		if r != nil && r.Request != nil {
			probe.FinalURL = r.Request.URL.String()
			probe.StatusCode = r.StatusCode
		}
		p.logger.Debug("预检请求出错", zap.String("url", target), zap.Error(err))
	})

	if err := c.Visit(target); err != nil {
		return probe, fmt.Errorf("访问URL失败: %w", err)
	}
	c.Wait()
	p.logger.Debug("预检完成",
		zap.String("url", target),
		zap.String("final_url", probe.FinalURL),
		zap.Int("status", probe.StatusCode),
	)
	return probe, nil
}
