package collector

import (
	"context"

	"github.com/LouYuanbo1/watchagent/internal/domain/model"
)

// Probe 一次预检请求的结果
type Probe struct {
	RequestedURL string
	// FinalURL 跟随重定向之后的地址, 会话失效时通常是登录页
	FinalURL   string
	StatusCode int
}

// SessionProbe 在启动浏览器之前, 用纯 HTTP 请求检查 cookie 是否仍然有效
type SessionProbe interface {
	Check(ctx context.Context, target string, cookies []*model.Cookie) (*Probe, error)
}
