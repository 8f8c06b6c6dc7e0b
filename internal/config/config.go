package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/LouYuanbo1/watchagent/param"
)

// ErrConfiguration 配置缺失或非法,在创建浏览器会话之前即终止进程
var ErrConfiguration = errors.New("configuration error")

const (
	DriverRod      = "rod"
	DriverChromedp = "chromedp"
)

type Config struct {
	// Cookies 原始 cookie 字符串, 形如 "a=1; b=2"
	Cookies string `mapstructure:"cookies" json:"cookies"`

	Site      param.Site    `mapstructure:"site" json:"site"`
	Browser   Browser       `mapstructure:"browser" json:"browser"`
	Session   param.Session `mapstructure:"session" json:"session"`
	Monitor   param.Monitor `mapstructure:"monitor" json:"monitor"`
	Preflight Preflight     `mapstructure:"preflight" json:"preflight"`
	Logger    Logger        `mapstructure:"logger" json:"logger"`
}

type Browser struct {
	Driver               string        `mapstructure:"driver" json:"driver"`
	Bin                  string        `mapstructure:"bin" json:"bin"`
	UserDataDir          string        `mapstructure:"user_data_dir" json:"user_data_dir"`
	Headless             bool          `mapstructure:"headless" json:"headless"`
	DisableBlinkFeatures string        `mapstructure:"disable_blink_features" json:"disable_blink_features"`
	Incognito            bool          `mapstructure:"incognito" json:"incognito"`
	DisableDevShmUsage   bool          `mapstructure:"disable_dev_shm_usage" json:"disable_dev_shm_usage"`
	NoSandbox            bool          `mapstructure:"no_sandbox" json:"no_sandbox"`
	UserAgent            string        `mapstructure:"user_agent" json:"user_agent"`
	Leakless             bool          `mapstructure:"leakless" json:"leakless"`
	Stealth              bool          `mapstructure:"stealth" json:"stealth"`
	Trace                bool          `mapstructure:"trace" json:"trace"`
	LifeTime             time.Duration `mapstructure:"life_time" json:"life_time"`
}

// Preflight 启动浏览器前用 HTTP 请求探测 cookie 是否仍然有效
type Preflight struct {
	Enabled   bool          `mapstructure:"enabled" json:"enabled"`
	Timeout   time.Duration `mapstructure:"timeout" json:"timeout"`
	UserAgent string        `mapstructure:"user_agent" json:"user_agent"`
}

type Logger struct {
	Level       string      `mapstructure:"level" json:"level"`
	Format      string      `mapstructure:"format" json:"format"`
	ServiceName string      `mapstructure:"service_name" json:"service_name"`
	AddSource   bool        `mapstructure:"add_source" json:"add_source"`
	LogFile     string      `mapstructure:"log_file" json:"log_file"`
	MaxSize     int         `mapstructure:"max_size" json:"max_size"`
	MaxBackups  int         `mapstructure:"max_backups" json:"max_backups"`
	MaxAge      int         `mapstructure:"max_age" json:"max_age"`
	Compress    bool        `mapstructure:"compress" json:"compress"`
	Colors      ColorConfig `mapstructure:"colors" json:"colors"`
}

type ColorConfig struct {
	Debug string `mapstructure:"debug" json:"debug"`
	Info  string `mapstructure:"info" json:"info"`
	Warn  string `mapstructure:"warn" json:"warn"`
	Error string `mapstructure:"error" json:"error"`
}

// Validate 校验配置, 所有错误都包装 ErrConfiguration
func (c *Config) Validate() error {
	raw := strings.TrimSpace(c.Cookies)
	if raw == "" {
		return fmt.Errorf("%w: 缺少 cookie, 请设置环境变量 LITEFAUCET_COOKIES 或使用 --cookies", ErrConfiguration)
	}
	if !strings.Contains(raw, "=") {
		return fmt.Errorf("%w: cookie 格式错误, 应为 name=value; name2=value2", ErrConfiguration)
	}
	if !c.Site.IsValid() {
		return fmt.Errorf("%w: site 配置不完整", ErrConfiguration)
	}
	switch c.Browser.Driver {
	case DriverRod, DriverChromedp:
	default:
		return fmt.Errorf("%w: 未知的浏览器驱动 %q", ErrConfiguration, c.Browser.Driver)
	}
	if !c.Session.IsValid() {
		return fmt.Errorf("%w: session 参数非法 (max_attempts 须大于 0, 超时须为正, 区间须 min<=max)", ErrConfiguration)
	}
	if !c.Monitor.IsValid() {
		return fmt.Errorf("%w: monitor 参数非法 (mode=%q)", ErrConfiguration, c.Monitor.Mode)
	}
	if c.Preflight.Enabled && c.Preflight.Timeout <= 0 {
		return fmt.Errorf("%w: preflight.timeout 须为正", ErrConfiguration)
	}
	return nil
}
