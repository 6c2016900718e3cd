package main

import (
	"context"
	"flag"
	"log"
	"os"
	ossignal "os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"tvbridge/api"
	"tvbridge/config"
	"tvbridge/notify"
	"tvbridge/pkg/logger"
	"tvbridge/signal"
	"tvbridge/signal/inbox"
	"tvbridge/trader"
)

func main() {
	poll := flag.Int("poll", 0, "seconds between inbox polls (overrides BOT_POLL_SECONDS)")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("❌ 配置错误: %v", err)
	}
	// 启动前一次性确定轮询间隔，运行期间不再修改
	if *poll < 0 {
		log.Fatalf("❌ --poll 必须为正整数: %d", *poll)
	}
	if *poll > 0 {
		cfg.PollSeconds = *poll
	}

	logger.InitLogger(cfg.LogDir, cfg.Debug)
	defer logger.Sync()
	logger.Info("🚀 TradingView 邮件 → OANDA 执行器启动",
		zap.String("env", cfg.Oanda.Env),
		zap.Duration("poll", cfg.PollInterval()))

	ctx, stop := ossignal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	broker := trader.NewOandaTrader(cfg.Oanda.APIKey, cfg.Oanda.AccountID, cfg.Oanda.Live(),
		trader.WithTimeout(cfg.Oanda.Timeout()),
		trader.WithRateLimit(cfg.Oanda.RateLimit))
	executor := signal.NewExecutor(broker, cfg.SharedSecret)

	var opts []signal.ManagerOption
	db, err := config.NewDatabase(cfg.DBPath)
	if err != nil {
		logger.Warn("⚠️ 执行记录库不可用，继续运行", zap.Error(err))
	} else {
		defer db.Close()
		opts = append(opts, signal.WithLedger(db))
	}

	if d := newDeduper(ctx, cfg, db); d != nil {
		opts = append(opts, signal.WithDeduper(d))
	}

	if cfg.Telegram.Enabled() {
		tg, err := notify.NewTelegram(cfg.Telegram.BotToken, cfg.Telegram.ChatID)
		if err != nil {
			logger.Warn("⚠️ Telegram 通知不可用", zap.Error(err))
		} else {
			opts = append(opts, signal.WithNotifier(tg))
		}
	}

	manager := signal.NewAlertManager(inbox.NewMonitor(&cfg.Inbox), executor, cfg.PollInterval(), opts...)

	if cfg.APIPort > 0 {
		if db == nil {
			logger.Warn("⚠️ 执行记录库不可用，API 服务未启动")
		} else {
			server := api.NewServer(manager, db, cfg.APIPort, api.WithCORSOrigin(cfg.APICORSOrigin))
			go func() {
				if err := server.Start(); err != nil {
					logger.Error("API服务器异常退出", zap.Error(err))
				}
			}()
			defer func() {
				shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				_ = server.Shutdown(shutdownCtx)
			}()
		}
	}

	manager.Run(ctx)
	logger.Info("👋 已退出")
}

// newDeduper 按配置选择去重存储；TTL 为 0 时关闭
// 优先 Redis，其次执行记录库，都不可用时退回进程内去重
func newDeduper(ctx context.Context, cfg *config.Config, db *config.Database) signal.Deduper {
	if cfg.DedupTTL() <= 0 {
		return nil
	}
	local := func() signal.Deduper {
		if db != nil {
			return signal.NewLedgerDedup(db, cfg.DedupTTL())
		}
		return signal.NewMemoryDedup(cfg.DedupTTL())
	}
	if cfg.Redis.Addr == "" {
		return local()
	}

	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
	})
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		logger.Warn("⚠️ Redis 不可用，改用本地去重", zap.String("addr", cfg.Redis.Addr), zap.Error(err))
		_ = rdb.Close()
		return local()
	}
	return signal.NewRedisDedup(rdb, cfg.DedupTTL())
}
