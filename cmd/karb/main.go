// Command karb runs the cross-venue arbitrage engine.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/shopspring/decimal"

	"github.com/HomuraCatMadoka/VC-Trader-Platform-v1/internal/config"
	"github.com/HomuraCatMadoka/VC-Trader-Platform-v1/internal/engine"
	"github.com/HomuraCatMadoka/VC-Trader-Platform-v1/internal/exchange"
	"github.com/HomuraCatMadoka/VC-Trader-Platform-v1/internal/executor"
	"github.com/HomuraCatMadoka/VC-Trader-Platform-v1/internal/risk"
	"github.com/HomuraCatMadoka/VC-Trader-Platform-v1/internal/strategy"
)

func main() {
	configPath := flag.String("config", "", "path to config file (default: configs/config.yaml)")
	flag.Parse()

	path := *configPath
	if path == "" {
		path = os.Getenv("KARB_CONFIG")
	}
	cfg, err := config.Load(path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}

	logger := newLogger(cfg)
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logger); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("engine stopped", "error", err)
		os.Exit(1)
	}
	logger.Info("shutdown complete")
}

func run(ctx context.Context, cfg *config.Config, logger *slog.Logger) error {
	upbitGW := exchange.NewUpbitGateway(exchange.Settings{
		RESTBase:       cfg.Upbit.RESTBase,
		WebsocketURL:   cfg.Upbit.WebsocketURL,
		AccessKey:      cfg.Upbit.AccessKey,
		SecretKey:      cfg.Upbit.SecretKey,
		RequestTimeout: cfg.Upbit.RequestTimeout,
	}, bucketLimit(cfg.Upbit.RateLimit))
	bithumbGW := exchange.NewBithumbGateway(exchange.Settings{
		RESTBase:       cfg.Bithumb.RESTBase,
		WebsocketURL:   cfg.Bithumb.WebsocketURL,
		AccessKey:      cfg.Bithumb.AccessKey,
		SecretKey:      cfg.Bithumb.SecretKey,
		RequestTimeout: cfg.Bithumb.RequestTimeout,
	}, bucketLimit(cfg.Bithumb.RateLimit))

	upbit := exchange.NewUpbitWrapper(upbitGW, logger)
	bithumb := exchange.NewBithumbWrapper(bithumbGW, logger)
	defer upbit.Close()
	defer bithumb.Close()

	strat := strategy.New(strategy.Config{
		MinProfitRate: decimal.NewFromFloat(cfg.Trading.MinProfitRate),
		MaxVolume:     decimal.NewFromFloat(cfg.Trading.MaxVolume),
		UpbitFee:      decimal.NewFromFloat(cfg.Trading.UpbitFee),
		BithumbFee:    decimal.NewFromFloat(cfg.Trading.BithumbFee),
	})
	riskMgr := risk.NewManager(risk.Config{
		ReserveRatio: decimal.NewFromFloat(cfg.Risk.ReserveRatio),
		Position: risk.PositionLimit{
			MaxVolume:   decimal.NewFromFloat(cfg.Risk.MaxVolume),
			MaxNotional: decimal.NewFromFloat(cfg.Risk.MaxNotional),
		},
		Breaker: risk.BreakerConfig{
			FailureThreshold: cfg.Risk.FailureThreshold,
			CoolDown:         cfg.Risk.CoolDown,
		},
	})
	exec := executor.New(upbit, bithumb, cfg.DryRun, logger)

	specs, err := cfg.ResolvePairs()
	if err != nil {
		return err
	}
	pairs := make([]*engine.Pair, 0, len(specs))
	for _, s := range specs {
		pairs = append(pairs, engine.NewPair(s.Name, s.Base, s.Quote, s.UpbitSymbol, s.BithumbSymbol, upbit, bithumb, logger))
	}

	logger.Info("starting engine",
		"pairs", len(pairs), "dry_run", cfg.DryRun, "poll_interval", cfg.Trading.PollInterval.String())
	eng := engine.New(upbit, bithumb, pairs, strat, riskMgr, exec, cfg.Trading.PollInterval, logger)
	return eng.Run(ctx)
}

func bucketLimit(rl config.RateLimitConfig) exchange.Limit {
	return exchange.Limit{
		PublicCapacity:  rl.PublicCapacity,
		PublicRate:      rl.PublicRate,
		PrivateCapacity: rl.PrivateCapacity,
		PrivateRate:     rl.PrivateRate,
	}
}

func newLogger(cfg *config.Config) *slog.Logger {
	var level slog.Level
	switch cfg.LogLevel {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}
	opts := &slog.HandlerOptions{Level: level}
	if cfg.LogFormat == "text" {
		return slog.New(slog.NewTextHandler(os.Stdout, opts))
	}
	return slog.New(slog.NewJSONHandler(os.Stdout, opts))
}
