package main

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/LouYuanbo1/watchagent/internal/config"
	"github.com/LouYuanbo1/watchagent/internal/domain/model"
	"github.com/LouYuanbo1/watchagent/internal/infra/crawler/chrome"
	"github.com/LouYuanbo1/watchagent/internal/infra/crawler/collector"
	"github.com/LouYuanbo1/watchagent/internal/infra/crawler/humanize"
	"github.com/LouYuanbo1/watchagent/internal/observability"
	"github.com/LouYuanbo1/watchagent/internal/service/watch"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

var errExhausted = errors.New("retry budget exhausted")

type crawlerFactory func(ctx context.Context, cfg *config.Config, logger *zap.Logger) (chrome.ChromeCrawler, error)

// execute 返回进程退出码: 成功为 0, 配置错误、重试耗尽或被中断为 1
func execute(ctx context.Context, args []string, factory crawlerFactory) int {
	cmd := newRootCommand(factory)
	cmd.SetArgs(args)
	if err := cmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(cmd.ErrOrStderr(), "watchagent:", err)
		return 1
	}
	return 0
}

func newRootCommand(factory crawlerFactory) *cobra.Command {
	v := viper.New()
	cmd := &cobra.Command{
		Use:           "watchagent",
		Short:         "使用已有会话 cookie 在 litefaucet 观看页完成一次观看",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			configFile, _ := cmd.Flags().GetString("config")
			cfg, err := loadConfig(v, configFile)
			if err != nil {
				return err
			}
			return run(cmd.Context(), cfg, factory)
		},
	}

	flags := cmd.Flags()
	flags.String("cookies", "", "原始 cookie 字符串 (覆盖 LITEFAUCET_COOKIES)")
	flags.String("config", "", "配置文件路径 (json/yaml), 覆盖内置默认值")
	flags.String("driver", config.DriverRod, "浏览器驱动: rod|chromedp")
	flags.Int("max-attempts", 5, "最大尝试次数")
	flags.Bool("headless", true, "无头模式运行浏览器")
	flags.String("mode", "auto", "观看策略: auto|timer|fixed")
	flags.Bool("preflight", false, "启动浏览器前用 HTTP 请求预检会话")
	flags.String("log-level", "info", "日志级别")
	flags.String("log-file", "", "额外写入的 JSON 日志文件")

	for key, name := range map[string]string{
		"cookies":              "cookies",
		"browser.driver":       "driver",
		"session.max_attempts": "max-attempts",
		"browser.headless":     "headless",
		"monitor.mode":         "mode",
		"preflight.enabled":    "preflight",
		"logger.level":         "log-level",
		"logger.log_file":      "log-file",
	} {
		_ = v.BindPFlag(key, flags.Lookup(name))
	}
	return cmd
}

// loadConfig 合并顺序: 内置默认值 < 配置文件 < 环境变量 < 命令行
func loadConfig(v *viper.Viper, configFile string) (*config.Config, error) {
	if err := config.ReadDefaults(v, appConfig); err != nil {
		return nil, fmt.Errorf("%w: 内置配置: %w", config.ErrConfiguration, err)
	}
	if configFile != "" {
		fv := viper.New()
		fv.SetConfigFile(configFile)
		if err := fv.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("%w: 读取配置文件失败: %w", config.ErrConfiguration, err)
		}
		if err := v.MergeConfigMap(fv.AllSettings()); err != nil {
			return nil, fmt.Errorf("%w: 合并配置文件失败: %w", config.ErrConfiguration, err)
		}
	}

	v.SetEnvPrefix("WATCHAGENT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	_ = v.BindEnv("cookies", "LITEFAUCET_COOKIES", "WATCHAGENT_COOKIES")

	cfg, err := config.Load(v)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", config.ErrConfiguration, err)
	}
	return cfg, nil
}

func run(ctx context.Context, cfg *config.Config, factory crawlerFactory) error {
	logger := observability.NewStdoutLogger(cfg.Logger)
	defer observability.Sync(logger)

	if err := cfg.Validate(); err != nil {
		logger.Error("配置错误", zap.Error(err))
		return err
	}
	cookies, err := model.ParseCookies(cfg.Cookies, cfg.Site.CookieDomain, cfg.Site.CookiePath)
	if err != nil {
		logger.Error("配置错误", zap.Error(err))
		return fmt.Errorf("%w: %w", config.ErrConfiguration, err)
	}
	logger.Info("已解析 cookie", zap.Int("count", len(cookies)), zap.String("domain", cfg.Site.CookieDomain))

	if cfg.Preflight.Enabled {
		preflight(ctx, cfg, cookies, logger.Named("preflight"))
	}

	crawler, err := factory(ctx, cfg, logger.Named("chrome"))
	if err != nil {
		logger.Error("启动浏览器失败", zap.Error(err))
		return fmt.Errorf("启动浏览器失败: %w", err)
	}
	defer func() {
		if err := crawler.Close(); err != nil {
			logger.Warn("关闭浏览器失败", zap.Error(err))
		}
	}()

	if err := crawler.SetCookies(ctx, cookies); err != nil {
		logger.Error("注入 cookie 失败", zap.Error(err))
		return fmt.Errorf("注入 cookie 失败: %w", err)
	}

	svc := watch.InitWatchService(crawler, humanize.NewTimeSeededDelayer(), cfg.Site, cfg.Session, cfg.Monitor, logger.Named("watch"))
	terminal, err := svc.Run(ctx)
	switch {
	case err != nil:
		logger.Error("任务失败: 会话被中断", zap.Error(err))
		return err
	case terminal != model.TerminalSuccess:
		logger.Error("任务失败: 多次尝试均未成功", zap.Int("max_attempts", cfg.Session.MaxAttempts))
		return errExhausted
	}
	logger.Info("任务成功")
	return nil
}

// preflight 只做提示, 任何失败都不阻止启动浏览器
func preflight(ctx context.Context, cfg *config.Config, cookies []*model.Cookie, logger *zap.Logger) {
	target := cfg.Site.URL(cfg.Site.DashboardPath)
	probe, err := collector.InitCollyProbe(cfg.Preflight, logger).Check(ctx, target, cookies)
	if err != nil {
		logger.Warn("会话预检失败, 继续启动浏览器", zap.String("url", target), zap.Error(err))
		return
	}
	if watch.Classify(probe.FinalURL, cfg.Site.DashboardPath, cfg.Site.BlockedPath) != watch.Expected {
		logger.Warn("会话可能已失效, 仪表盘被重定向",
			zap.String("url", target),
			zap.String("final_url", probe.FinalURL),
			zap.Int("status", probe.StatusCode),
		)
		return
	}
	logger.Info("会话预检通过", zap.String("final_url", probe.FinalURL))
}

