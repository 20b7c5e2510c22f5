package main

import (
	"flag"
	"log"
	"time"

	"github.com/yanun0323/logs"
	"github.com/yanun0323/pkg/sys"

	"main/internal/gateway"
	"main/internal/mdg"
	"main/internal/obs"
	"main/internal/ops"
	"main/internal/schema"
)

func main() {
	configPath := flag.String("config", "", "Path to YAML config")
	seed := flag.Int64("seed", 0, "Generator seed (0=time-based)")
	flag.Parse()

	cfg, err := ops.Load(*configPath)
	if err != nil {
		log.Fatalf("config load failed: %v", err)
	}
	if *seed != 0 {
		cfg.Feed.Seed = *seed
	}
	if cfg.Feed.Seed == 0 {
		cfg.Feed.Seed = time.Now().UnixNano()
	}

	priceGen, err := mdg.NewPriceGenerator(cfg.Store.Symbols, cfg.Feed.InitialPrices, cfg.Feed.Volatility, cfg.Feed.Seed)
	if err != nil {
		log.Fatalf("price generator failed: %v", err)
	}
	sentGen := mdg.NewSentimentGenerator(schema.SentimentNeutral, cfg.Feed.Seed+1)

	metrics := obs.NewMetrics()
	gw, err := gateway.New(gateway.Config{
		PriceAddr:         cfg.Feed.PriceAddr,
		SentimentAddr:     cfg.Feed.SentimentAddr,
		PriceInterval:     cfg.Feed.TickInterval.Std(),
		SentimentInterval: cfg.Feed.SentimentInterval.Std(),
	}, priceGen, sentGen, metrics)
	if err != nil {
		log.Fatalf("gateway setup failed: %v", err)
	}
	if err := gw.Start(); err != nil {
		log.Fatalf("gateway start failed: %v", err)
	}

	<-sys.Shutdown()
	gw.Stop()

	snap := metrics.Snapshot()
	logs.Infof("gateway done: broadcasts=%d clients=%d pruned=%d",
		snap.TicksBroadcast, snap.ClientsAccepted, snap.ClientsPruned)
}
