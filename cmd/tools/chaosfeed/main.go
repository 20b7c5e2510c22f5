// Command chaosfeed is a drop-in replacement for the gateway price feed
// that drops, duplicates, and reorders ticks. Point the bridge at it to
// verify the pipeline tolerates a misbehaving upstream.
package main

import (
	"flag"
	"log"
	"time"

	"github.com/yanun0323/logs"
	"github.com/yanun0323/pkg/sys"

	"main/internal/chaos"
	"main/internal/codec"
	"main/internal/gateway"
	"main/internal/mdg"
	"main/internal/obs"
	"main/internal/ops"
)

func main() {
	configPath := flag.String("config", "", "Path to YAML config")
	dropRate := flag.Float64("drop", 0.1, "Tick drop probability")
	dupRate := flag.Float64("dup", 0.1, "Tick duplicate probability")
	reorder := flag.Int("reorder", 3, "Reorder window size")
	seed := flag.Int64("seed", 0, "Seed (0=time-based)")
	flag.Parse()

	cfg, err := ops.Load(*configPath)
	if err != nil {
		log.Fatalf("config load failed: %v", err)
	}
	if *seed == 0 {
		*seed = time.Now().UnixNano()
	}

	priceGen, err := mdg.NewPriceGenerator(cfg.Store.Symbols, cfg.Feed.InitialPrices, cfg.Feed.Volatility, *seed)
	if err != nil {
		log.Fatalf("price generator failed: %v", err)
	}
	engine, err := chaos.NewEngine(chaos.Config{
		Seed:          *seed,
		DropRate:      *dropRate,
		DuplicateRate: *dupRate,
		ReorderWindow: *reorder,
	})
	if err != nil {
		log.Fatalf("chaos engine failed: %v", err)
	}

	metrics := obs.NewMetrics()
	encode := func(dst []byte) []byte {
		priceGen.Tick()
		for _, tick := range priceGen.Ticks() {
			frame := codec.AppendPriceTick(nil, tick)
			for _, out := range engine.Process(frame) {
				dst = append(dst, out...)
			}
		}
		return dst
	}

	srv := gateway.NewBroadcastServer("chaosfeed", cfg.Feed.PriceAddr, cfg.Feed.TickInterval.Std(), encode, metrics)
	if err := srv.Start(); err != nil {
		log.Fatalf("chaosfeed start failed: %v", err)
	}
	logs.Infof("chaosfeed up: drop=%.2f dup=%.2f reorder=%d seed=%d", *dropRate, *dupRate, *reorder, *seed)

	<-sys.Shutdown()
	srv.Stop()
}
