// Command sim runs the whole pipeline in one process: order manager,
// gateway feeds, the feed-to-store bridge, and the strategy engine,
// then prints the session trade summary.
package main

import (
	"context"
	"flag"
	"log"
	"os/signal"
	"sync"
	"syscall"
	"time"

	pyroscope "github.com/grafana/pyroscope-go"
	"github.com/yanun0323/logs"

	"main/internal/gateway"
	"main/internal/mdg"
	"main/internal/obs"
	"main/internal/ops"
	"main/internal/orderbook"
	"main/internal/ordermanager"
	"main/internal/pricestore"
	"main/internal/schema"
	"main/internal/strategy"
)

type emptyLogger struct{}

func (emptyLogger) Infof(_ string, _ ...interface{})  {}
func (emptyLogger) Debugf(_ string, _ ...interface{}) {}
func (emptyLogger) Errorf(_ string, _ ...interface{}) {}

func main() {
	configPath := flag.String("config", "", "Path to YAML config")
	duration := flag.Duration("duration", 0, "Override run duration")
	seed := flag.Int64("seed", 0, "Generator seed (0=time-based)")
	flag.Parse()

	cfg, err := ops.Load(*configPath)
	if err != nil {
		log.Fatalf("config load failed: %v", err)
	}
	if *duration > 0 {
		cfg.RunDuration = ops.Duration(*duration)
	}
	if *seed != 0 {
		cfg.Feed.Seed = *seed
	}
	if cfg.Feed.Seed == 0 {
		cfg.Feed.Seed = time.Now().UnixNano()
	}

	if cfg.Profiling.Enable {
		profiler, err := pyroscope.Start(pyroscope.Config{
			ApplicationName: "trading/sim",
			ServerAddress:   cfg.Profiling.ServerURL,
			Tags: map[string]string{
				"env": "local",
			},
			Logger: emptyLogger{},
			ProfileTypes: []pyroscope.ProfileType{
				pyroscope.ProfileCPU,
				pyroscope.ProfileAllocObjects,
				pyroscope.ProfileAllocSpace,
				pyroscope.ProfileInuseObjects,
				pyroscope.ProfileInuseSpace,
			},
		})
		if err != nil {
			log.Fatalf("pyroscope start failed: %v", err)
		}
		defer func() {
			_ = profiler.Stop()
		}()
	}

	if err := run(cfg); err != nil {
		log.Fatalf("sim failed: %v", err)
	}
}

// run brings the pipeline up sink-first so every upstream finds its
// downstream listening, and tears it down in reverse.
func run(cfg ops.Config) error {
	metrics := obs.NewMetrics()

	tradeLog := ordermanager.NewTradeLog()
	omSrv := ordermanager.NewServer(cfg.OrderManager.Addr, tradeLog, metrics)
	if err := omSrv.Start(); err != nil {
		return err
	}
	defer omSrv.Stop()

	priceGen, err := mdg.NewPriceGenerator(cfg.Store.Symbols, cfg.Feed.InitialPrices, cfg.Feed.Volatility, cfg.Feed.Seed)
	if err != nil {
		return err
	}
	sentGen := mdg.NewSentimentGenerator(schema.SentimentNeutral, cfg.Feed.Seed+1)

	gw, err := gateway.New(gateway.Config{
		PriceAddr:         cfg.Feed.PriceAddr,
		SentimentAddr:     cfg.Feed.SentimentAddr,
		PriceInterval:     cfg.Feed.TickInterval.Std(),
		SentimentInterval: cfg.Feed.SentimentInterval.Std(),
	}, priceGen, sentGen, metrics)
	if err != nil {
		return err
	}
	if err := gw.Start(); err != nil {
		return err
	}
	defer gw.Stop()

	store, err := pricestore.Create(cfg.Store.Name, cfg.Store.Symbols)
	if err != nil {
		return err
	}
	defer func() {
		if err := store.Unlink(); err != nil {
			logs.Warnf("store unlink failed: %v", err)
		}
		_ = store.Close()
	}()

	bridge, err := orderbook.NewClient(cfg.Feed.PriceAddr, store, metrics)
	if err != nil {
		return err
	}
	if err := bridge.Connect(); err != nil {
		return err
	}
	defer bridge.Close()

	engine, err := strategy.New(strategy.Config{
		SentimentAddr:    cfg.Feed.SentimentAddr,
		OrderManagerAddr: cfg.OrderManager.Addr,
		ShortWindow:      cfg.Strategy.ShortWindow,
		LongWindow:       cfg.Strategy.LongWindow,
		BullishThreshold: schema.Sentiment(cfg.Strategy.BullishThreshold),
		BearishThreshold: schema.Sentiment(cfg.Strategy.BearishThreshold),
		OrderQty:         cfg.Strategy.OrderQty,
	}, store, metrics)
	if err != nil {
		return err
	}
	if err := engine.Connect(); err != nil {
		return err
	}
	defer engine.Close()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	logs.Infof("sim running for %v", cfg.RunDuration.Std())

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		err := bridge.Run(ctx, cfg.RunDuration.Std(), cfg.Bridge.ReconnectAttempts, cfg.Bridge.ReconnectDelay.Std())
		if err != nil && err != context.Canceled {
			logs.Errorf("bridge ended: %+v", err)
		}
	}()
	go func() {
		defer wg.Done()
		err := engine.Run(ctx, cfg.RunDuration.Std(), cfg.Strategy.Interval.Std())
		if err != nil && err != context.Canceled {
			logs.Errorf("strategy ended: %+v", err)
		}
	}()
	wg.Wait()

	printSummary(tradeLog.Summarize(), metrics.Snapshot())
	return nil
}

func printSummary(sum ordermanager.Summary, snap obs.Snapshot) {
	logs.Info("===== session summary =====")
	logs.Infof("trades total=%d buys=%d sells=%d", sum.TotalTrades, sum.BuyCount, sum.SellCount)
	logs.Infof("symbols traded: %v", sum.SymbolsTraded)
	logs.Infof("volume=%d value=%s", sum.TotalVolume, sum.TotalValue.StringFixed(2))
	logs.Infof("pipeline: broadcasts=%d frames=%d dropped=%d store updates=%d",
		snap.TicksBroadcast, snap.FramesDecoded, snap.FramesDropped, snap.StoreUpdates)
	logs.Infof("orders: admitted=%d sent=%d rejected=%d",
		snap.OrdersAdmitted, snap.OrdersSent, snap.OrdersRejected)
	logs.Infof("order send latency avg=%v max=%v", snap.OrderSendLatency.Avg, snap.OrderSendLatency.Max)
}
