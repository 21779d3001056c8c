package tests

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/vitos/trade_signal_levels/internal/domain"
	"github.com/vitos/trade_signal_levels/internal/infrastructure/rulesource"
	"github.com/vitos/trade_signal_levels/internal/usecase"
)

// MockFeed serves scripted prices per symbol, standing in for the exchange.
type MockFeed struct {
	Prices map[string]string
	Err    error
	Calls  int
}

func (m *MockFeed) CurrentPrice(ctx context.Context, symbol string) (decimal.Decimal, error) {
	m.Calls++
	if m.Err != nil {
		return decimal.Decimal{}, m.Err
	}
	return decimal.RequireFromString(m.Prices[symbol]), nil
}

const rulesYAML = `
assets:
  BTCUSD:
    aliases: [BTC, BITCOIN, BTCUSDT]
    price_scale: 2
    timeframes:
      M1: {tp1: "0.5", tp2: "1.0", tp3: "1.8", sl: "0.8", unit: "%"}
      M5: {tp1: "1.0", tp2: "2.0", tp3: "3.5", sl: "1.5", unit: "%"}
      M15: {tp1: "1.5", tp2: "3.0", tp3: "5.0", sl: "2.0", unit: "%"}

  XAUUSD:
    aliases: [GOLD, XAU]
    price_scale: 2
    timeframes:
      M1: {tp1: "0.2", tp2: "0.4", tp3: "0.7", sl: "0.3", unit: "%"}
      H1: {tp1: "12", tp2: "24", tp3: "40", sl: "15", unit: points}

  EURUSD:
    pip_size: "0.0001"
    price_scale: 5
    timeframes:
      M5: {tp1: "15", tp2: "30", tp3: "50", sl: "20", unit: pips}
`

// newStack wires the full processing stack on a real YAML rule file, a mock
// price feed and an in-memory journal, the way the binaries wire it.
func newStack(t *testing.T, feed domain.PriceProvider) (*usecase.SignalService, *usecase.RuleStore) {
	t.Helper()

	path := filepath.Join(t.TempDir(), "rules.yaml")
	if err := os.WriteFile(path, []byte(rulesYAML), 0o644); err != nil {
		t.Fatalf("write rules: %v", err)
	}

	rules := usecase.NewRuleStore(rulesource.NewFileSource(path), zap.NewNop())
	if err := rules.Reload(context.Background()); err != nil {
		t.Fatalf("load rules: %v", err)
	}

	pipeline := usecase.NewPipeline(rules, feed, time.Second, zap.NewNop())
	formatter := usecase.NewSignalFormatter(usecase.TemplateStandard, "")
	service := usecase.NewSignalService(pipeline, formatter, newMemJournal(), zap.NewNop())
	return service, rules
}

type memJournal struct {
	records []*domain.SignalRecord
}

func newMemJournal() *memJournal {
	return &memJournal{}
}

func (m *memJournal) SaveSignal(ctx context.Context, rec *domain.SignalRecord) error {
	m.records = append(m.records, rec)
	return nil
}

func (m *memJournal) ListSignals(ctx context.Context, limit int) ([]*domain.SignalRecord, error) {
	if limit > len(m.records) {
		limit = len(m.records)
	}
	return m.records[:limit], nil
}
