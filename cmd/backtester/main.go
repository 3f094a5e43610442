// Command backtester replays historical candles through trading strategies
// and reports how each would have performed. Data can come from Binance,
// Bybit, Hyperliquid or a local CSV file.
//
// Usage:
//
//	backtester --config config.yaml
//	backtester --strategy rules --pair BTC_USDT --start 2024-01-01 --end 2024-06-01
//	backtester setup   (interactive wizard, writes config.gen.yaml)
//
// Optional environment variables:
//
//	For Binance: BINANCE_API_KEY, BINANCE_API_SECRET
//	For Bybit: BYBIT_API_KEY, BYBIT_API_SECRET
//	For Hyperliquid: HYPERLIQUID_PRIVATE_KEY, HYPERLIQUID_BASE_URL
package main

import (
	"context"
	"fmt"
	"log"
	"os"

	"github.com/vadiminshakov/backtester/config"
	"github.com/vadiminshakov/backtester/internal/clients"
	"github.com/vadiminshakov/backtester/internal/render"
	"github.com/vadiminshakov/backtester/internal/services/engine"
	"github.com/vadiminshakov/backtester/internal/services/market"
	"github.com/vadiminshakov/backtester/internal/services/registry"
	"github.com/vadiminshakov/backtester/internal/services/strategy/ai"
	"github.com/vadiminshakov/backtester/internal/services/strategy/meanrev"
	"github.com/vadiminshakov/backtester/internal/services/strategy/momentum"
	"github.com/vadiminshakov/backtester/internal/services/strategy/mtf"
	"github.com/vadiminshakov/backtester/internal/services/strategy/random"
	"github.com/vadiminshakov/backtester/internal/services/strategy/rules"
	"github.com/vadiminshakov/backtester/internal/setup"
	"github.com/vadiminshakov/backtester/internal/storage/reports"
	"go.uber.org/zap"
)

const defaultRandomSeed = 42

func main() {
	if len(os.Args) > 1 && os.Args[1] == "setup" {
		if err := setup.RunTUI(); err != nil {
			log.Fatal(err)
		}
		os.Args = append(os.Args[:1], "--config", "config.gen.yaml")
	}

	configs, err := config.Get()
	if err != nil {
		log.Fatal(err)
	}

	logger, _ := zap.NewProduction()
	defer logger.Sync()

	ctx := context.Background()

	for _, conf := range configs {
		if err := runBacktest(ctx, conf, logger); err != nil {
			logger.Fatal("backtest failed", zap.Error(err))
		}
	}
}

func runBacktest(ctx context.Context, conf config.Config, logger *zap.Logger) error {
	reg, err := buildRegistry(conf, logger)
	if err != nil {
		return err
	}

	sources, err := buildSources(conf)
	if err != nil {
		return err
	}

	eng := engine.New(reg, sources, logger)

	params := engine.Params{
		StrategyID:      conf.Strategy,
		Pair:            conf.Pair,
		Interval:        conf.Interval,
		Start:           conf.Start,
		End:             conf.End,
		InitialCapital:  conf.InitialCapital,
		FeePercent:      conf.FeePercent,
		SlippagePercent: conf.SlippagePercent,
		DataSource:      conf.DataSource,
		StrategyParams:  conf.StrategyParams,
	}

	store, err := reports.NewWALStore(conf.ReportDir)
	if err != nil {
		return err
	}
	defer store.Close()

	if len(conf.Compare) > 0 {
		ids := append([]string{conf.Strategy}, conf.Compare...)
		results, err := engine.NewComparison(eng).Run(ctx, params, ids)
		if err != nil {
			return err
		}
		for _, report := range results {
			if err := store.Save(*report); err != nil {
				return err
			}
		}
		fmt.Print(render.Comparison(results))
		return nil
	}

	report, err := eng.Run(ctx, params)
	if err != nil {
		return err
	}
	if err := store.Save(*report); err != nil {
		return err
	}
	fmt.Print(render.Report(report))

	return nil
}

func buildRegistry(conf config.Config, logger *zap.Logger) (*registry.Registry, error) {
	reg := registry.New()

	for _, s := range []error{
		reg.Register(random.New(logger, defaultRandomSeed)),
		reg.Register(rules.New(logger)),
		reg.Register(rules.NewAdaptive(logger)),
		reg.Register(momentum.New(logger)),
		reg.Register(momentum.NewOptimized(logger)),
		reg.Register(meanrev.New(logger)),
		reg.Register(mtf.New(logger)),
	} {
		if s != nil {
			return nil, s
		}
	}

	if conf.LLMAPIKey != "" {
		llmClient := clients.NewOpenAICompatibleClient(conf.LLMAPIURL, conf.LLMAPIKey, conf.Model)
		aiStrategy, err := ai.New(logger, llmClient)
		if err != nil {
			return nil, err
		}
		if err := reg.Register(aiStrategy); err != nil {
			return nil, err
		}
	}

	return reg, nil
}

func buildSources(conf config.Config) (market.Sources, error) {
	sources := market.Sources{}

	switch conf.DataSource {
	case market.SourceBinance:
		apiKey := os.Getenv("BINANCE_API_KEY")
		apiSecret := os.Getenv("BINANCE_API_SECRET")
		sources[market.SourceBinance] = market.NewBinanceProvider(clients.NewBinanceClient(apiKey, apiSecret))

	case market.SourceBybit:
		apiKey := os.Getenv("BYBIT_API_KEY")
		apiSecret := os.Getenv("BYBIT_API_SECRET")
		sources[market.SourceBybit] = market.NewBybitProvider(clients.NewBybitClient(apiKey, apiSecret))

	case market.SourceHyperliquid:
		privateKey := os.Getenv("HYPERLIQUID_PRIVATE_KEY")
		baseURL := os.Getenv("HYPERLIQUID_BASE_URL")
		client, err := clients.NewHyperliquidClient(privateKey, baseURL)
		if err != nil {
			return nil, fmt.Errorf("failed to create hyperliquid client: %w", err)
		}
		sources[market.SourceHyperliquid] = market.NewHyperliquidProvider(client.Info())

	case market.SourceCSV:
		sources[market.SourceCSV] = market.NewCSVProvider(conf.DataFile)

	default:
		return nil, fmt.Errorf("unsupported data source: %s", conf.DataSource)
	}

	return sources, nil
}
