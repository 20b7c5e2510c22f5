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
	"main/internal/orderbook"
	"main/internal/pricestore"
)

func main() {
	configPath := flag.String("config", "", "Path to YAML config")
	attach := flag.Bool("attach", false, "Attach to an existing store instead of creating it")
	flag.Parse()

	cfg, err := ops.Load(*configPath)
	if err != nil {
		log.Fatalf("config load failed: %v", err)
	}

	var store *pricestore.Store
	if *attach {
		store, err = pricestore.Attach(cfg.Store.Name, cfg.Store.Symbols)
	} else {
		store, err = pricestore.Create(cfg.Store.Name, cfg.Store.Symbols)
	}
	if err != nil {
		log.Fatalf("price store failed: %v", err)
	}
	defer func() {
		if store.Owner() {
			if err := store.Unlink(); err != nil {
				logs.Warnf("store unlink failed: %v", err)
			}
		}
		_ = store.Close()
	}()

	metrics := obs.NewMetrics()
	client, err := orderbook.NewClient(cfg.Feed.PriceAddr, store, metrics)
	if err != nil {
		log.Fatalf("bridge setup failed: %v", err)
	}
	if err := client.Connect(); err != nil {
		log.Fatalf("bridge connect failed: %v", err)
	}
	defer client.Close()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	err = client.Run(ctx, cfg.RunDuration.Std(), cfg.Bridge.ReconnectAttempts, cfg.Bridge.ReconnectDelay.Std())
	if err != nil && err != context.Canceled {
		logs.Errorf("bridge run ended: %+v", err)
	}

	snap := metrics.Snapshot()
	logs.Infof("bridge done: frames=%d dropped=%d store updates=%d",
		snap.FramesDecoded, snap.FramesDropped, snap.StoreUpdates)
}
