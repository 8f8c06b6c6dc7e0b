package param

import (
	"net/url"
	"strings"
)

// Site 目标站点约定:页面路径、拦截页、播放器与计时器选择器、cookie 作用域
// 站点改版只能通过 blocked / frameNotFound 结果间接发现
type Site struct {
	BaseURL        string   `mapstructure:"base_url" json:"base_url"`
	DashboardPath  string   `mapstructure:"dashboard_path" json:"dashboard_path"`
	WatchPath      string   `mapstructure:"watch_path" json:"watch_path"`
	BlockedPath    string   `mapstructure:"blocked_path" json:"blocked_path"`
	PlayerSelector string   `mapstructure:"player_selector" json:"player_selector"`
	TimerSelector  string   `mapstructure:"timer_selector" json:"timer_selector"`
	TimerSentinel  string   `mapstructure:"timer_sentinel" json:"timer_sentinel"`
	PlaySelectors  []string `mapstructure:"play_selectors" json:"play_selectors"`
	HoverSelector  string   `mapstructure:"hover_selector" json:"hover_selector"`
	CookieDomain   string   `mapstructure:"cookie_domain" json:"cookie_domain"`
	CookiePath     string   `mapstructure:"cookie_path" json:"cookie_path"`
}

func (s *Site) IsValid() bool {
	if s.BaseURL == "" ||
		s.DashboardPath == "" ||
		s.WatchPath == "" ||
		s.BlockedPath == "" ||
		s.PlayerSelector == "" ||
		s.TimerSelector == "" ||
		s.TimerSentinel == "" ||
		s.CookieDomain == "" ||
		s.CookiePath == "" ||
		(len(s.PlaySelectors) == 0 && s.HoverSelector == "") {
		return false
	}
	u, err := url.Parse(s.BaseURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return false
	}
	return strings.HasPrefix(s.DashboardPath, "/") && strings.HasPrefix(s.WatchPath, "/")
}

// URL 拼接站点根地址与页面路径
func (s *Site) URL(path string) string {
	return strings.TrimRight(s.BaseURL, "/") + path
}
