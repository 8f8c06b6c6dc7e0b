package main

import (
	"context"
	_ "embed"
	"os"
	"os/signal"
	"syscall"

	"github.com/LouYuanbo1/watchagent/internal/infra/crawler/chrome"
)

// 默认配置, --config 指定的文件、环境变量与命令行参数依次覆盖它
//
//go:embed appconfig/appconfig.json
var appConfig []byte

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := execute(ctx, os.Args[1:], chrome.InitChromeCrawler)
	stop()
	os.Exit(code)
}
