package main

import (
	"context"
	"errors"
	"flag"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/zeromicro/go-zero/core/logx"
	"github.com/zeromicro/go-zero/core/stores/redis"

	cachekeys "tradequest-api/internal/cache"
	"tradequest-api/internal/cli"
	"tradequest-api/internal/config"
	"tradequest-api/internal/publisher"
	"tradequest-api/internal/svc"
	"tradequest-api/internal/watch"
	marketpkg "tradequest-api/pkg/market"
)

const (
	shutdownTimeout = 10 * time.Second
	// Outlives the default run timeout so a crashed run frees the lock.
	lockExpireSeconds = 150
)

var (
	configFile = flag.String("f", "etc/tradequest.yaml", "the config file")
	once       = flag.Bool("once", false, "run a single refresh and exit")
)

func main() {
	flag.Parse()

	cfg := config.MustLoad(*configFile)
	logx.MustSetup(cfg.Log)
	defer logx.Close()
	cli.LogConfigSummary(cfg)

	svcCtx := svc.MustNewServiceContext(*cfg)

	targets, err := watch.TargetsFromConfig(cfg.Watch)
	logx.Must(err)
	if len(targets) == 0 {
		logx.Must(errors.New("watch: no targets configured under Watch.Targets"))
	}
	period, err := marketpkg.ParsePeriod(cfg.Watch.Period)
	logx.Must(err)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := publisher.EnsureTopic(ctx, cfg.Watch.Kafka); err != nil {
		logx.Errorf("watch: %v", err)
	}
	pub := publisher.New(cfg.Watch.Kafka)
	defer func() {
		if err := pub.Close(); err != nil {
			logx.Errorf("watch: close publisher: %v", err)
		}
	}()

	opts := []watch.Option{watch.WithPublisher(pub)}
	if svcCtx.Redis != nil {
		lock := redis.NewRedisLock(svcCtx.Redis, cachekeys.WatchLockKey())
		lock.SetExpire(lockExpireSeconds)
		opts = append(opts, watch.WithLocker(lock))
	}
	job := watch.NewJob(svcCtx.Market, targets, period, opts...)

	scheduler, err := watch.NewScheduler(ctx, cfg.Watch.Cron, job)
	logx.Must(err)

	if *once {
		report, err := scheduler.RunNow()
		logx.Must(err)
		logx.Infof("watch: refreshed %d of %d targets", report.Refreshed, len(targets))
		return
	}

	scheduler.Start()
	<-ctx.Done()
	logx.Info("watch: shutdown signal received")

	select {
	case <-scheduler.Stop().Done():
	case <-time.After(shutdownTimeout):
		logx.Error("watch: shutdown timeout exceeded")
	}
}
