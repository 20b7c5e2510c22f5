package main

import (
	"context"
	"flag"
	"log"
	"os/signal"
	"syscall"

	"github.com/yanun0323/logs"

	"main/internal/obs"
	"main/internal/ops"
	"main/internal/pricestore"
	"main/internal/schema"
	"main/internal/strategy"
)

func main() {
	configPath := flag.String("config", "", "Path to YAML config")
	flag.Parse()

	cfg, err := ops.Load(*configPath)
	if err != nil {
		log.Fatalf("config load failed: %v", err)
	}

	store, err := pricestore.Attach(cfg.Store.Name, cfg.Store.Symbols)
	if err != nil {
		log.Fatalf("price store attach failed: %v", err)
	}
	defer store.Close()

	metrics := obs.NewMetrics()
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
		log.Fatalf("strategy setup failed: %v", err)
	}
	if err := engine.Connect(); err != nil {
		log.Fatalf("strategy connect failed: %v", err)
	}
	defer engine.Close()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	err = engine.Run(ctx, cfg.RunDuration.Std(), cfg.Strategy.Interval.Std())
	if err != nil && err != context.Canceled {
		logs.Errorf("strategy run ended: %+v", err)
	}

	snap := metrics.Snapshot()
	logs.Infof("strategy done: orders=%d rejected=%d send avg=%v max=%v",
		snap.OrdersSent, snap.OrdersRejected, snap.OrderSendLatency.Avg, snap.OrderSendLatency.Max)
}
