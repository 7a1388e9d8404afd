package svc

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib" // register pgx driver
	"github.com/shopspring/decimal"
	"github.com/zeromicro/go-zero/core/logx"
	gocache "github.com/zeromicro/go-zero/core/stores/cache"
	"github.com/zeromicro/go-zero/core/stores/redis"
	"github.com/zeromicro/go-zero/core/stores/sqlx"
	"github.com/zeromicro/go-zero/core/syncx"
	_ "modernc.org/sqlite" // register sqlite driver

	cachekeys "tradequest-api/internal/cache"
	"tradequest-api/internal/config"
	marketpersist "tradequest-api/internal/persistence/market"
	marketpkg "tradequest-api/pkg/market"
	_ "tradequest-api/pkg/market/sources/coingecko"
	_ "tradequest-api/pkg/market/sources/demo"
	_ "tradequest-api/pkg/market/sources/exchangerate"
	_ "tradequest-api/pkg/market/sources/twelvedata"
	_ "tradequest-api/pkg/market/sources/yahoo"
	"tradequest-api/pkg/portfolio"
)

const startupTimeout = 30 * time.Second

type ServiceContext struct {
	Config config.Config

	MarketConfig    *marketpkg.Config
	MarketProviders map[string]marketpkg.Provider
	Market          *marketpkg.Service
	Trader          *portfolio.Trader

	// Optional stores, nil when not configured.
	DBConn sqlx.SqlConn
	Redis  *redis.Redis
	Store  *marketpersist.Store
	TTL    cachekeys.TTLSet
}

func MustNewServiceContext(c config.Config) *ServiceContext {
	svc, err := NewServiceContext(c)
	logx.Must(err)
	return svc
}

func NewServiceContext(c config.Config) (*ServiceContext, error) {
	if !c.Market.Loaded() {
		return nil, errors.New("svc: market config not loaded")
	}
	svc := &ServiceContext{
		Config:       c,
		MarketConfig: c.Market.Value,
		TTL:          cachekeys.NewTTLSet(c.TTL),
	}

	providers, err := svc.MarketConfig.BuildProviders()
	if err != nil {
		return nil, fmt.Errorf("build market providers: %w", err)
	}
	svc.MarketProviders = providers

	ctx, cancel := context.WithTimeout(context.Background(), startupTimeout)
	defer cancel()

	if strings.TrimSpace(c.Database.DSN) != "" {
		conn, err := openDB(c.Database)
		if err != nil {
			return nil, err
		}
		if c.Database.Migrate {
			if err := marketpersist.Migrate(ctx, conn); err != nil {
				return nil, err
			}
		}
		svc.DBConn = conn
	}

	var quoteMirror gocache.Cache
	if strings.TrimSpace(c.Redis.Host) != "" {
		rds, err := redis.NewRedis(c.Redis)
		if err != nil {
			return nil, fmt.Errorf("connect redis: %w", err)
		}
		svc.Redis = rds
		quoteMirror = gocache.New(gocache.ClusterConf{{RedisConf: c.Redis, Weight: 100}},
			syncx.NewSingleFlight(), gocache.NewStat("tradequest"), marketpersist.ErrNotFound)
	}

	svc.Store = marketpersist.NewStore(marketpersist.Config{
		Conn:    svc.DBConn,
		Dialect: marketpersist.Dialect(c.Database.Driver),
		Cache:   quoteMirror,
		TTL:     svc.TTL,
	})

	var opts []marketpkg.ServiceOption
	if svc.Store != nil {
		opts = append(opts, marketpkg.WithPersistence(svc.Store))
	}
	if svc.Redis != nil && svc.MarketConfig.CacheTTL > 0 {
		opts = append(opts, marketpkg.WithOverviewCache(marketpersist.NewRedisOverviewCache(svc.Redis)))
	}
	market, err := marketpkg.NewService(svc.MarketConfig, providers, opts...)
	if err != nil {
		return nil, fmt.Errorf("build market service: %w", err)
	}
	svc.Market = market

	book := portfolio.NewBook(
		portfolio.WithInitialCash(decimal.NewFromFloat(c.Portfolio.InitialCash)),
		portfolio.WithCurrency(market.Currency()),
	)
	var journal portfolio.Journal
	if svc.Store != nil {
		journal = svc.Store
		trades, err := svc.Store.AllTrades(ctx)
		if err != nil {
			return nil, fmt.Errorf("load trade journal: %w", err)
		}
		if err := book.Replay(trades); err != nil {
			return nil, err
		}
		if len(trades) > 0 {
			logx.Infof("portfolio: replayed %d journaled trades", len(trades))
		}
	}
	traderOpts := []portfolio.TraderOption{portfolio.WithConverter(market)}
	if svc.Store != nil {
		traderOpts = append(traderOpts, portfolio.WithLastKnown(svc.Store))
	}
	svc.Trader = portfolio.NewTrader(book, market, journal, traderOpts...)
	return svc, nil
}

func openDB(c config.DatabaseConf) (sqlx.SqlConn, error) {
	db, err := sql.Open(c.Driver, c.DSN)
	if err != nil {
		return nil, fmt.Errorf("open %s database: %w", c.Driver, err)
	}
	db.SetMaxOpenConns(c.MaxOpen)
	db.SetMaxIdleConns(c.MaxIdle)
	if c.Driver == string(marketpersist.SQLite) {
		// sqlite serialises writers.
		db.SetMaxOpenConns(1)
	}
	return sqlx.NewSqlConnFromDB(db), nil
}
