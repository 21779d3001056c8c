package pricefeed

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func dec(t *testing.T, s string) decimal.Decimal {
	t.Helper()
	d, err := decimal.NewFromString(s)
	require.NoError(t, err)
	return d
}

func TestCurrentPriceREST(t *testing.T) {
	var hits atomic.Int64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		assert.Equal(t, "/api/v3/ticker/price", r.URL.Path)
		assert.Equal(t, "BTCUSDT", r.URL.Query().Get("symbol"))
		w.Write([]byte(`{"symbol":"BTCUSDT","price":"65000.10"}`))
	}))
	defer srv.Close()

	feed := NewBinanceFeed(srv.URL, "", map[string]string{"BTCUSD": "BTCUSDT"}, zap.NewNop())

	price, err := feed.CurrentPrice(context.Background(), "BTCUSD")
	require.NoError(t, err)
	assert.Equal(t, "65000.1", price.String())

	// Second lookup inside the TTL is served from cache.
	_, err = feed.CurrentPrice(context.Background(), "BTCUSD")
	require.NoError(t, err)
	assert.Equal(t, int64(1), hits.Load())
}

func TestCurrentPriceUnmappedSymbol(t *testing.T) {
	feed := NewBinanceFeed("http://localhost:1", "", map[string]string{}, zap.NewNop())
	_, err := feed.CurrentPrice(context.Background(), "XAUUSD")
	assert.Error(t, err)
}

func TestCurrentPriceUpstreamError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"code":-1121,"msg":"Invalid symbol."}`, http.StatusBadRequest)
	}))
	defer srv.Close()

	feed := NewBinanceFeed(srv.URL, "", map[string]string{"BTCUSD": "NOPE"}, zap.NewNop())
	_, err := feed.CurrentPrice(context.Background(), "BTCUSD")
	assert.Error(t, err)
}

func TestStreamEventUpdatesCache(t *testing.T) {
	feed := NewBinanceFeed("http://localhost:1", "", map[string]string{"BTCUSD": "BTCUSDT"}, zap.NewNop())

	// Simulate a miniTicker event landing in the cache; the next lookup must
	// not touch REST (the base URL above is unreachable).
	feed.storePrice("BTCUSDT", dec(t, "64321.5"))

	price, err := feed.CurrentPrice(context.Background(), "BTCUSD")
	require.NoError(t, err)
	assert.Equal(t, "64321.5", price.String())
}
