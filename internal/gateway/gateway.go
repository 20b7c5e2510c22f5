package gateway

import (
	"sync"
	"time"

	"github.com/yanun0323/errors"

	"main/internal/codec"
	"main/internal/mdg"
	"main/internal/obs"
)

// Config carries the listening addresses and cadences of the two feeds.
type Config struct {
	PriceAddr         string
	SentimentAddr     string
	PriceInterval     time.Duration
	SentimentInterval time.Duration
}

// Gateway owns the price and sentiment generators and the two broadcast
// servers streaming their output.
type Gateway struct {
	price     *BroadcastServer
	sentiment *BroadcastServer

	mu       sync.Mutex
	priceGen *mdg.PriceGenerator
	sentGen  *mdg.SentimentGenerator
}

// New wires generators into the two broadcast servers. Generators are
// only ever advanced from their server's broadcast loop.
func New(cfg Config, priceGen *mdg.PriceGenerator, sentGen *mdg.SentimentGenerator, metrics *obs.Metrics) (*Gateway, error) {
	if priceGen == nil || sentGen == nil {
		return nil, errors.New("gateway: nil generator")
	}

	g := &Gateway{priceGen: priceGen, sentGen: sentGen}
	g.price = NewBroadcastServer("price", cfg.PriceAddr, cfg.PriceInterval, g.encodePrices, metrics)
	g.sentiment = NewBroadcastServer("sentiment", cfg.SentimentAddr, cfg.SentimentInterval, g.encodeSentiment, metrics)
	return g, nil
}

// Start launches both feeds. On partial failure the started feed is
// stopped again.
func (g *Gateway) Start() error {
	if err := g.price.Start(); err != nil {
		return err
	}
	if err := g.sentiment.Start(); err != nil {
		g.price.Stop()
		return err
	}
	return nil
}

// Stop halts both feeds and disconnects every client.
func (g *Gateway) Stop() {
	g.price.Stop()
	g.sentiment.Stop()
}

// PriceServer exposes the price feed, mainly for tests.
func (g *Gateway) PriceServer() *BroadcastServer {
	return g.price
}

// SentimentServer exposes the sentiment feed, mainly for tests.
func (g *Gateway) SentimentServer() *BroadcastServer {
	return g.sentiment
}

func (g *Gateway) encodePrices(dst []byte) []byte {
	g.mu.Lock()
	g.priceGen.Tick()
	ticks := g.priceGen.Ticks()
	g.mu.Unlock()

	for _, tick := range ticks {
		dst = codec.AppendPriceTick(dst, tick)
	}
	return dst
}

func (g *Gateway) encodeSentiment(dst []byte) []byte {
	g.mu.Lock()
	s := g.sentGen.Tick()
	g.mu.Unlock()

	return codec.AppendSentiment(dst, s)
}
