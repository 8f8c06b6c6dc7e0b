package model

import (
	"errors"
	"fmt"
	"strings"
)

var ErrMalformedCookie = errors.New("malformed cookie pair")

// Cookie 注入浏览器上下文的会话 cookie
// Domain 与 Path 取自站点约定, 不从输入解析, 调用方无法把 cookie 投放到其它域
type Cookie struct {
	Name   string
	Value  string
	Domain string
	Path   string
}

// ParseCookies 解析 "a=1; b=x=y" 形式的原始字符串
// 以第一个 '=' 分割名称与值, 值中可以继续包含 '='; 空片段(如结尾的 ';')被忽略
func ParseCookies(raw, domain, path string) ([]*Cookie, error) {
	parts := strings.Split(raw, ";")
	cookies := make([]*Cookie, 0, len(parts))
	for i, part := range parts {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		name, value, ok := strings.Cut(part, "=")
		name = strings.TrimSpace(name)
		if !ok || name == "" {
			return nil, fmt.Errorf("%w: 第 %d 段 %q", ErrMalformedCookie, i+1, part)
		}
		cookies = append(cookies, &Cookie{
			Name:   name,
			Value:  value,
			Domain: domain,
			Path:   path,
		})
	}
	if len(cookies) == 0 {
		return nil, fmt.Errorf("%w: 未解析到任何 cookie", ErrMalformedCookie)
	}
	return cookies, nil
}
