package watch

import (
	"context"
	"fmt"

	"github.com/LouYuanbo1/watchagent/internal/domain/model"
	"github.com/LouYuanbo1/watchagent/internal/infra/crawler/chrome"
	"github.com/LouYuanbo1/watchagent/internal/infra/crawler/humanize"
	"github.com/LouYuanbo1/watchagent/param"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// WatchService 驱动一次完整的观看会话
type WatchService interface {
	// Run 在重试预算内反复尝试, 直到成功或预算耗尽;
	// 只有 ctx 被取消时才返回非 nil 错误
	Run(ctx context.Context) (model.Terminal, error)
}

type watchService struct {
	delayer      humanize.Delayer
	site         param.Site
	session      param.Session
	monitorParam param.Monitor

	navigator *Navigator
	locator   *FrameLocator
	trigger   *PlaybackTrigger
	monitor   *ProgressMonitor
	logger    *zap.Logger
}

func InitWatchService(
	crawler chrome.ChromeCrawler,
	delayer humanize.Delayer,
	site param.Site,
	session param.Session,
	monitor param.Monitor,
	logger *zap.Logger,
) WatchService {
	return &watchService{
		delayer:      delayer,
		site:         site,
		session:      session,
		monitorParam: monitor,
		navigator:    NewNavigator(crawler, delayer, site, session.NavigationTimeout, session.StepDelay, logger.Named("navigator")),
		locator:      NewFrameLocator(crawler, logger.Named("frame")),
		trigger:      NewPlaybackTrigger(site.HoverSelector, site.PlaySelectors, session.ClickTimeout, logger.Named("playback")),
		monitor:      NewProgressMonitor(crawler, site.TimerSelector, site.TimerSentinel, monitor.PollInterval, monitor.ObserveInterval, logger.Named("monitor")),
		logger:       logger,
	}
}

func (ws *watchService) Run(ctx context.Context) (model.Terminal, error) {
	logger := ws.logger.With(zap.String("run_id", uuid.NewString()))
	logger.Info("开始观看会话",
		zap.String("site", ws.site.BaseURL),
		zap.Int("max_attempts", ws.session.MaxAttempts),
		zap.String("mode", string(ws.monitorParam.Mode)),
	)

	budget := model.NewRetryBudget(ws.session.MaxAttempts)
	for {
		var ok bool
		if budget, ok = budget.Consume(); !ok {
			logger.Error("已达到最大尝试次数, 放弃", zap.Int("max_attempts", budget.Max))
			return model.TerminalExhausted, nil
		}

		attemptLogger := logger.With(zap.Int("attempt", budget.Used))
		attemptLogger.Info("开始新一次尝试", zap.Int("remaining", budget.Remaining()))
		result := ws.attempt(ctx, attemptLogger)

		switch result.Status {
		case StepSucceeded:
			logger.Info("观看完成", zap.Int("attempts", budget.Used))
			return model.TerminalSuccess, nil
		case StepFatal:
			logger.Error("会话被中断", zap.Int("attempts", budget.Used), zap.Error(result.Err))
			return model.TerminalExhausted, result.Err
		}

		record := model.AttemptRecord{
			Number:  budget.Used,
			Outcome: result.Outcome,
			URL:     result.URL,
			Err:     result.Err,
		}
		attemptLogger.Warn("本次尝试失败", zap.Stringer("record", record))

		if budget.Exhausted() {
			continue
		}
		wait := ws.delayer.Between(ws.session.Backoff)
		attemptLogger.Info("退避后重试", zap.Duration("backoff", wait))
		if err := humanize.Wait(ctx, wait); err != nil {
			logger.Error("会话被中断", zap.Int("attempts", budget.Used), zap.Error(err))
			return model.TerminalExhausted, err
		}
	}
}

// attempt 单次尝试, 驱动层的 panic 在这里转换为 exception
func (ws *watchService) attempt(ctx context.Context, logger *zap.Logger) (result StepResult) {
	defer func() {
		if r := recover(); r != nil {
			result = failure(ctx, model.OutcomeException, "", fmt.Errorf("panic: %v", r))
		}
	}()

	logger.Info("打开仪表盘", zap.String("path", ws.site.DashboardPath))
	if res := ws.visit(ctx, ws.site.DashboardPath); res.Status != StepSucceeded {
		return res
	}
	logger.Info("仪表盘加载成功")

	logger.Info("打开观看页", zap.String("path", ws.site.WatchPath))
	if res := ws.visit(ctx, ws.site.WatchPath); res.Status != StepSucceeded {
		return res
	}
	logger.Info("观看页加载成功")

	logger.Info("等待播放器 iframe", zap.String("selector", ws.site.PlayerSelector))
	frame, err := ws.locator.Locate(ctx, ws.site.PlayerSelector, ws.session.FrameTimeout)
	if err != nil {
		return failure(ctx, model.OutcomeFrameNotFound, ws.site.URL(ws.site.WatchPath), err)
	}

	if err := ws.delayer.Sleep(ctx, ws.session.ClickDelay); err != nil {
		return fatal(err)
	}
	if ws.trigger.Trigger(ctx, frame) {
		logger.Info("已点击播放, 开始观看")
	} else {
		logger.Warn("未能点击播放, 继续检查计时器")
	}

	return ws.watch(ctx, logger)
}

func (ws *watchService) visit(ctx context.Context, path string) StepResult {
	landing := ws.navigator.Goto(ctx, path)
	switch landing.Class {
	case Expected:
		return succeeded()
	case Blocked:
		return failure(ctx, model.OutcomeBlocked, landing.URL, landing.Err)
	default:
		return failure(ctx, outcomeOf(landing.Err), landing.URL, landing.Err)
	}
}

func (ws *watchService) watch(ctx context.Context, logger *zap.Logger) StepResult {
	if ws.monitorParam.Mode == param.WatchFixed {
		return ws.fixedWatch(ctx, logger)
	}

	start := ws.monitor.AwaitStart(ctx, ws.monitorParam.StartTimeout)
	if err := ctx.Err(); err != nil {
		return fatal(err)
	}
	if !start.Started {
		if ws.monitorParam.Mode == param.WatchAuto && !start.Seen {
			logger.Warn("页面上没有计时器, 改为固定时长观看", zap.String("selector", ws.site.TimerSelector))
			return ws.fixedWatch(ctx, logger)
		}
		return failure(ctx, model.OutcomeTimeout, ws.site.URL(ws.site.WatchPath),
			fmt.Errorf("%w: 最后读数 %q", ErrTimerNotStarted, start.LastText))
	}

	if ws.monitorParam.Observe {
		logger.Info("持续观察计时器", zap.Duration("window", ws.monitorParam.WatchWindow))
		ws.monitor.ObserveForDuration(ctx, ws.monitorParam.WatchWindow)
		if err := ctx.Err(); err != nil {
			return fatal(err)
		}
	}
	return succeeded()
}

func (ws *watchService) fixedWatch(ctx context.Context, logger *zap.Logger) StepResult {
	wait := ws.delayer.Between(ws.monitorParam.FixedWatch)
	logger.Info("固定时长观看", zap.Duration("duration", wait))
	if err := humanize.Wait(ctx, wait); err != nil {
		return fatal(err)
	}
	return succeeded()
}
