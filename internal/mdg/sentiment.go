package mdg

import (
	"math/rand"

	"main/internal/schema"
)

const (
	jumpProbability = 0.1
	jumpRange       = 20
	stepRange       = 5
)

// SentimentGenerator drifts an aggregate news-mood scalar in [0, 100].
// Most ticks move it by a small step; occasionally a news event jumps it.
type SentimentGenerator struct {
	current schema.Sentiment
	rng     *rand.Rand
}

// NewSentimentGenerator starts the walk at the given value, clamped.
func NewSentimentGenerator(initial schema.Sentiment, seed int64) *SentimentGenerator {
	return &SentimentGenerator{
		current: initial.Clamp(),
		rng:     rand.New(rand.NewSource(seed)),
	}
}

// Tick advances the walk and returns the new sentiment.
func (g *SentimentGenerator) Tick() schema.Sentiment {
	span := stepRange
	if g.rng.Float64() < jumpProbability {
		span = jumpRange
	}
	change := g.rng.Intn(2*span+1) - span
	g.current = (g.current + schema.Sentiment(change)).Clamp()
	return g.current
}

// Current returns the latest value without advancing the walk.
func (g *SentimentGenerator) Current() schema.Sentiment {
	return g.current
}
