package schema

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseSide(t *testing.T) {
	side, ok := ParseSide("BUY")
	require.True(t, ok)
	assert.Equal(t, SideBuy, side)

	side, ok = ParseSide("SELL")
	require.True(t, ok)
	assert.Equal(t, SideSell, side)

	_, ok = ParseSide("buy")
	assert.False(t, ok)
	_, ok = ParseSide("HOLD")
	assert.False(t, ok)
}

func TestSignalSide(t *testing.T) {
	assert.Equal(t, SideBuy, SignalBuy.Side())
	assert.Equal(t, SideSell, SignalSell.Side())
	assert.Equal(t, SideUnknown, SignalNeutral.Side())
}

func TestSentimentClamp(t *testing.T) {
	assert.Equal(t, SentimentMin, Sentiment(-5).Clamp())
	assert.Equal(t, SentimentMax, Sentiment(130).Clamp())
	assert.Equal(t, Sentiment(75), Sentiment(75).Clamp())
}

func TestOrderNotionalExact(t *testing.T) {
	order := Order{ID: 1, Side: SideBuy, Qty: 10, Symbol: "AAPL", Price: 150.25}
	assert.Equal(t, "1502.5", order.Notional().String())
}
