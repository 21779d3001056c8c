package pricefeed

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

const (
	BinanceBaseURL = "https://api.binance.com"
	BinanceWSURL   = "wss://stream.binance.com:9443/stream"
)

// BinanceFeed answers current-price lookups for canonical asset symbols.
// An optional miniTicker websocket stream keeps a last-price cache warm;
// cache misses fall back to the REST ticker endpoint. The symbol map
// translates canonical symbols (BTCUSD) to feed symbols (BTCUSDT); assets
// without a mapping are simply not priceable by this feed.
type BinanceFeed struct {
	baseURL   string
	wsURL     string
	client    *http.Client
	symbolMap map[string]string
	logger    *zap.Logger

	mu         sync.RWMutex
	lastPrices map[string]decimal.Decimal // feed symbol -> price
	priceTime  map[string]time.Time
	wsConn     *websocket.Conn
}

const cacheTTL = 10 * time.Second

func NewBinanceFeed(baseURL, wsURL string, symbolMap map[string]string, logger *zap.Logger) *BinanceFeed {
	if baseURL == "" {
		baseURL = BinanceBaseURL
	}
	if wsURL == "" {
		wsURL = BinanceWSURL
	}
	return &BinanceFeed{
		baseURL:    baseURL,
		wsURL:      wsURL,
		client:     &http.Client{Timeout: 10 * time.Second},
		symbolMap:  symbolMap,
		logger:     logger,
		lastPrices: make(map[string]decimal.Decimal),
		priceTime:  make(map[string]time.Time),
	}
}

// CurrentPrice implements domain.PriceProvider.
func (b *BinanceFeed) CurrentPrice(ctx context.Context, symbol string) (decimal.Decimal, error) {
	feedSymbol, ok := b.symbolMap[symbol]
	if !ok || feedSymbol == "" {
		return decimal.Decimal{}, fmt.Errorf("no feed symbol configured for %s", symbol)
	}

	b.mu.RLock()
	price, cached := b.lastPrices[feedSymbol]
	ts := b.priceTime[feedSymbol]
	b.mu.RUnlock()
	if cached && time.Since(ts) < cacheTTL {
		return price, nil
	}

	return b.fetchPrice(ctx, feedSymbol)
}

func (b *BinanceFeed) fetchPrice(ctx context.Context, feedSymbol string) (decimal.Decimal, error) {
	url := b.baseURL + "/api/v3/ticker/price?symbol=" + feedSymbol
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return decimal.Decimal{}, err
	}

	resp, err := b.client.Do(req)
	if err != nil {
		return decimal.Decimal{}, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return decimal.Decimal{}, err
	}
	if resp.StatusCode != http.StatusOK {
		return decimal.Decimal{}, fmt.Errorf("ticker request failed: %s", string(body))
	}

	var result struct {
		Symbol string `json:"symbol"`
		Price  string `json:"price"`
	}
	if err := json.Unmarshal(body, &result); err != nil {
		return decimal.Decimal{}, err
	}

	price, err := decimal.NewFromString(result.Price)
	if err != nil {
		return decimal.Decimal{}, fmt.Errorf("bad ticker price %q: %w", result.Price, err)
	}

	b.storePrice(feedSymbol, price)
	return price, nil
}

// Connect dials the combined stream and subscribes to the miniTicker of
// every mapped symbol. Optional: the feed works REST-only without it.
func (b *BinanceFeed) Connect() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.wsConn != nil {
		return nil
	}

	c, _, err := websocket.DefaultDialer.Dial(b.wsURL, nil)
	if err != nil {
		return err
	}
	b.wsConn = c

	var params []string
	for _, feedSymbol := range b.symbolMap {
		if feedSymbol != "" {
			params = append(params, strings.ToLower(feedSymbol)+"@miniTicker")
		}
	}
	if len(params) > 0 {
		sub := map[string]interface{}{
			"method": "SUBSCRIBE",
			"params": params,
			"id":     1,
		}
		if err := c.WriteJSON(sub); err != nil {
			c.Close()
			b.wsConn = nil
			return err
		}
	}

	go b.readLoop(c)
	return nil
}

func (b *BinanceFeed) readLoop(c *websocket.Conn) {
	defer func() {
		c.Close()
		b.mu.Lock()
		if b.wsConn == c {
			b.wsConn = nil
		}
		b.mu.Unlock()
	}()

	for {
		_, message, err := c.ReadMessage()
		if err != nil {
			b.logger.Warn("price stream read error", zap.Error(err))
			return
		}

		var event struct {
			Stream string `json:"stream"`
			Data   struct {
				Symbol string `json:"s"`
				Close  string `json:"c"`
			} `json:"data"`
		}
		if err := json.Unmarshal(message, &event); err != nil {
			continue
		}
		if event.Data.Symbol == "" || event.Data.Close == "" {
			continue
		}

		price, err := decimal.NewFromString(event.Data.Close)
		if err != nil {
			continue
		}
		b.storePrice(event.Data.Symbol, price)
	}
}

func (b *BinanceFeed) storePrice(feedSymbol string, price decimal.Decimal) {
	b.mu.Lock()
	b.lastPrices[feedSymbol] = price
	b.priceTime[feedSymbol] = time.Now()
	b.mu.Unlock()
}

func (b *BinanceFeed) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.wsConn != nil {
		err := b.wsConn.Close()
		b.wsConn = nil
		return err
	}
	return nil
}
