package main

import (
	"flag"
	"log"

	"github.com/yanun0323/pkg/sys"

	"main/internal/obs"
	"main/internal/ops"
	"main/internal/ordermanager"
)

func main() {
	configPath := flag.String("config", "", "Path to YAML config")
	flag.Parse()

	cfg, err := ops.Load(*configPath)
	if err != nil {
		log.Fatalf("config load failed: %v", err)
	}

	srv := ordermanager.NewServer(cfg.OrderManager.Addr, ordermanager.NewTradeLog(), obs.NewMetrics())
	if err := srv.Start(); err != nil {
		log.Fatalf("order manager start failed: %v", err)
	}

	<-sys.Shutdown()
	srv.Stop()
}
