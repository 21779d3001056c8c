package usecase

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync/atomic"

	"go.uber.org/zap"

	"github.com/vitos/trade_signal_levels/internal/domain"
)

// RuleStore resolves (assetToken, timeframeToken) pairs against the active
// rule table. The table is an immutable snapshot behind an atomic pointer:
// Reload swaps it wholesale, so a resolve in progress sees either the fully
// old or fully new table, never a partial mix.
type RuleStore struct {
	source domain.RuleSource
	logger *zap.Logger
	index  atomic.Pointer[ruleIndex]
}

type ruleIndex struct {
	table    *domain.RuleTable
	bySymbol map[string]*domain.AssetRule // upper-cased canonical symbols and aliases
}

func NewRuleStore(source domain.RuleSource, logger *zap.Logger) *RuleStore {
	return &RuleStore{source: source, logger: logger}
}

// Reload loads and validates a fresh table and atomically activates it.
// On any error the previous table stays active; the store never serves a
// partial or invalid configuration.
func (s *RuleStore) Reload(ctx context.Context) error {
	table, err := s.source.Load(ctx)
	if err != nil {
		return fmt.Errorf("failed to load rule table: %w", err)
	}
	if err := table.Validate(); err != nil {
		return fmt.Errorf("refusing to activate rule table: %w", err)
	}

	idx := &ruleIndex{
		table:    table,
		bySymbol: make(map[string]*domain.AssetRule),
	}
	for symbol, rule := range table.Assets {
		idx.bySymbol[strings.ToUpper(symbol)] = rule
		for _, alias := range rule.Aliases {
			idx.bySymbol[strings.ToUpper(strings.TrimSpace(alias))] = rule
		}
		for tf, tfRule := range rule.Timeframes {
			if !(tfRule.TP1.LessThan(tfRule.TP2) && tfRule.TP2.LessThan(tfRule.TP3)) {
				s.logger.Warn("targets are not strictly increasing",
					zap.String("asset", symbol), zap.String("timeframe", tf))
			}
		}
	}

	s.index.Store(idx)
	s.logger.Info("rule table activated", zap.Int("assets", len(table.Assets)))
	return nil
}

// Resolve looks the asset token up case-insensitively against canonical
// symbols and aliases, normalizes the timeframe token, and returns the
// applicable rule. Unknown timeframe is reported distinctly from unknown
// asset.
func (s *RuleStore) Resolve(assetToken, timeframeToken string) (*domain.AssetRule, *domain.TFRule, error) {
	idx := s.index.Load()
	if idx == nil {
		return nil, nil, fmt.Errorf("rule table not loaded")
	}

	key := strings.ToUpper(strings.TrimSpace(assetToken))
	asset, ok := idx.bySymbol[key]
	if !ok {
		return nil, nil, &domain.RuleNotFoundError{Reason: domain.RuleUnknownAsset, Token: assetToken}
	}

	tf, ok := domain.NormalizeTimeframe(timeframeToken)
	if !ok {
		return nil, nil, &domain.RuleNotFoundError{Reason: domain.RuleUnknownTimeframe, Token: timeframeToken}
	}
	tfRule, ok := asset.Timeframes[tf]
	if !ok {
		return nil, nil, &domain.RuleNotFoundError{Reason: domain.RuleUnknownTimeframe, Token: timeframeToken}
	}

	return asset, &tfRule, nil
}

// Assets returns the sorted canonical symbols of the active table.
func (s *RuleStore) Assets() []string {
	idx := s.index.Load()
	if idx == nil {
		return nil
	}
	symbols := make([]string, 0, len(idx.table.Assets))
	for symbol := range idx.table.Assets {
		symbols = append(symbols, symbol)
	}
	sort.Strings(symbols)
	return symbols
}
