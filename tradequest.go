// Code scaffolded by goctl. Safe to edit.
// goctl 1.9.2

package main

import (
	"flag"
	"fmt"

	"tradequest-api/internal/cli"
	"tradequest-api/internal/config"
	"tradequest-api/internal/errorx"
	"tradequest-api/internal/handler"
	"tradequest-api/internal/svc"

	"github.com/zeromicro/go-zero/rest"
	"github.com/zeromicro/go-zero/rest/httpx"
)

var configFile = flag.String("f", "etc/tradequest.yaml", "the config file")

func main() {
	flag.Parse()

	cfg := config.MustLoad(*configFile)

	server := rest.MustNewServer(cfg.RestConf)
	defer server.Stop()

	cli.LogConfigSummary(cfg)
	ctx := svc.MustNewServiceContext(*cfg)
	handler.RegisterHandlers(server, ctx)
	httpx.SetErrorHandlerCtx(errorx.Handler)

	fmt.Printf("Starting server at %s:%d...\n", cfg.Host, cfg.Port)
	server.Start()
}
