package rulesource

import (
	"context"
	"fmt"
	"os"

	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"

	"github.com/vitos/trade_signal_levels/internal/domain"
)

// FileSource loads the rule table from a YAML file:
//
//	assets:
//	  BTCUSD:
//	    aliases: [BTC, XBT]
//	    price_scale: 2
//	    timeframes:
//	      M5: {tp1: "1.0", tp2: "2.0", tp3: "3.5", sl: "1.5", unit: "%"}
//	  EURUSD:
//	    pip_size: "0.0001"
//	    timeframes:
//	      H1: {tp1: "20", tp2: "40", tp3: "60", sl: "25", unit: pips}
type FileSource struct {
	path string
}

func NewFileSource(path string) *FileSource {
	return &FileSource{path: path}
}

// Magnitudes are decoded as strings and converted through decimal to avoid
// binary float drift sneaking in at the config boundary.
type fileAsset struct {
	Aliases    []string              `yaml:"aliases"`
	PipSize    string                `yaml:"pip_size"`
	PriceScale int32                 `yaml:"price_scale"`
	Timeframes map[string]fileTFRule `yaml:"timeframes"`
}

type fileTFRule struct {
	TP1  string `yaml:"tp1"`
	TP2  string `yaml:"tp2"`
	TP3  string `yaml:"tp3"`
	SL   string `yaml:"sl"`
	Unit string `yaml:"unit"`
}

type fileConfig struct {
	Assets map[string]fileAsset `yaml:"assets"`
}

func (f *FileSource) Load(ctx context.Context) (*domain.RuleTable, error) {
	file, err := os.Open(f.path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	var cfg fileConfig
	if err := yaml.NewDecoder(file).Decode(&cfg); err != nil {
		return nil, fmt.Errorf("failed to decode %s: %w", f.path, err)
	}

	table := &domain.RuleTable{Assets: make(map[string]*domain.AssetRule, len(cfg.Assets))}
	for symbol, a := range cfg.Assets {
		rule := &domain.AssetRule{
			Symbol:     symbol,
			Aliases:    a.Aliases,
			PriceScale: a.PriceScale,
			Timeframes: make(map[string]domain.TFRule, len(a.Timeframes)),
		}

		if a.PipSize != "" {
			rule.PipSize, err = decimal.NewFromString(a.PipSize)
			if err != nil {
				return nil, fmt.Errorf("asset %s: bad pip_size %q: %w", symbol, a.PipSize, err)
			}
		}

		for tf, r := range a.Timeframes {
			norm, ok := domain.NormalizeTimeframe(tf)
			if !ok {
				return nil, fmt.Errorf("asset %s: bad timeframe key %q", symbol, tf)
			}
			tfRule, err := parseTFRule(r)
			if err != nil {
				return nil, fmt.Errorf("asset %s %s: %w", symbol, tf, err)
			}
			rule.Timeframes[norm] = tfRule
		}

		table.Assets[symbol] = rule
	}

	return table, nil
}

func parseTFRule(r fileTFRule) (domain.TFRule, error) {
	var rule domain.TFRule
	var err error

	for name, pair := range map[string]struct {
		raw string
		dst *decimal.Decimal
	}{
		"tp1": {r.TP1, &rule.TP1},
		"tp2": {r.TP2, &rule.TP2},
		"tp3": {r.TP3, &rule.TP3},
		"sl":  {r.SL, &rule.SL},
	} {
		*pair.dst, err = decimal.NewFromString(pair.raw)
		if err != nil {
			return rule, fmt.Errorf("bad %s magnitude %q: %w", name, pair.raw, err)
		}
	}

	rule.Unit, err = domain.ParseUnit(r.Unit)
	if err != nil {
		return rule, err
	}
	return rule, nil
}
