package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"github.com/shopspring/decimal"
	"github.com/vadiminshakov/chainprobe/config"
	"github.com/vadiminshakov/chainprobe/internal/derive"
	"github.com/vadiminshakov/chainprobe/internal/domain"
	"github.com/vadiminshakov/chainprobe/internal/rates"
	"github.com/vadiminshakov/chainprobe/internal/registry"
	"github.com/vadiminshakov/chainprobe/internal/resolver"
	"github.com/vadiminshakov/chainprobe/internal/scanner"
	"go.uber.org/zap"
)

func main() {
	configPath := flag.String("config", "config.yaml", "path to yaml config")
	mnemonic := flag.String("mnemonic", "", "BIP39 mnemonic phrase to probe")
	flag.Parse()

	logger, _ := zap.NewProduction()
	defer logger.Sync()

	if *mnemonic == "" {
		logger.Fatal("--mnemonic is required")
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		logger.Fatal("failed to load configuration", zap.Error(err))
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	reg := registry.New(logger, registry.WithFailureCooldown(cfg.FailureCooldown))
	for currency, network := range cfg.Networks {
		reg.RegisterProviders(currency, network.Providers)
	}

	cache := rates.New(logger, cfg.Rates.FeedURL, cfg.TrackedSymbols(), cfg.Rates.Fallback)
	if err := cache.Refresh(ctx); err != nil {
		logger.Warn("initial rate refresh failed, fallback prices in effect", zap.Error(err))
	}
	go cache.Run(ctx, cfg.Rates.RefreshInterval)

	networks := cfg.NetworkConfigs()
	res := resolver.New(logger, reg, networks, resolver.WithFailureSink(reg))
	scan := scanner.New(logger, res, cache, derive.New(), networks)

	reports, err := scan.ScanOnce(ctx, domain.KeyMaterial{Mnemonic: *mnemonic})
	if err != nil {
		logger.Fatal("scan failed", zap.Error(err))
	}

	total := decimal.Zero
	for _, r := range reports {
		total = total.Add(r.USD)
		logger.Info("balance",
			zap.String("currency", r.Currency.String()),
			zap.String("address", r.Address),
			zap.String("native", r.Result.Native.String()),
			zap.Int("tokens", len(r.Result.Tokens)),
			zap.String("usd", r.USD.StringFixed(2)))
	}

	logger.Info("scan complete",
		zap.Int("currencies", len(reports)),
		zap.String("total_usd", total.StringFixed(2)))
}
