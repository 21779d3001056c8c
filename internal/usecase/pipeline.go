package usecase

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/vitos/trade_signal_levels/internal/domain"
)

// Pipeline sequences Parser -> Rule lookup -> Calculator, independent of
// transport. Each invocation is stateless aside from reading one rule store
// snapshot, so concurrent runs need no coordination.
type Pipeline struct {
	parser       *SignalParser
	rules        *RuleStore
	calculator   *LevelCalculator
	prices       domain.PriceProvider
	priceTimeout time.Duration
	logger       *zap.Logger
}

func NewPipeline(rules *RuleStore, prices domain.PriceProvider, priceTimeout time.Duration, logger *zap.Logger) *Pipeline {
	if priceTimeout <= 0 {
		priceTimeout = 3 * time.Second
	}
	return &Pipeline{
		parser:       NewSignalParser(),
		rules:        rules,
		calculator:   NewLevelCalculator(),
		prices:       prices,
		priceTimeout: priceTimeout,
		logger:       logger,
	}
}

// Process runs one raw message through the full pipeline. Failures come back
// as *domain.PipelineError tagged with the originating stage; callers ignore
// NOT_A_SIGNAL silently and surface the rest.
func (p *Pipeline) Process(ctx context.Context, raw string) (*domain.LevelResult, error) {
	intent, err := p.parser.Parse(raw)
	if err != nil {
		return nil, &domain.PipelineError{Stage: domain.StageParse, Err: err}
	}

	asset, tfRule, err := p.rules.Resolve(intent.Asset, intent.Timeframe)
	if err != nil {
		return nil, &domain.PipelineError{Stage: domain.StageResolve, Err: err}
	}

	entry := intent.EntryPrice
	if !intent.HasEntryPrice() {
		entry, err = p.lookupPrice(ctx, asset.Symbol)
		if err != nil {
			return nil, &domain.PipelineError{Stage: domain.StagePrice, Err: err}
		}
	}

	result, err := p.calculator.Calculate(intent.Direction, asset, tfRule, intent.Timeframe, entry)
	if err != nil {
		return nil, &domain.PipelineError{Stage: domain.StageCalculate, Err: err}
	}

	p.logger.Debug("signal processed",
		zap.String("asset", result.Asset),
		zap.String("direction", string(result.Direction)),
		zap.String("timeframe", result.Timeframe),
		zap.String("entry", result.Entry.String()))

	return result, nil
}

// lookupPrice is the only external call inside a pipeline run; it is bounded
// by priceTimeout so a slow feed degrades into PRICE_UNAVAILABLE instead of
// hanging the caller.
func (p *Pipeline) lookupPrice(ctx context.Context, symbol string) (entry decimal.Decimal, err error) {
	if p.prices == nil {
		return entry, &domain.CalculationError{
			Reason: domain.CalcMissingEntryPrice,
			Detail: "no entry price in message and no price provider configured",
		}
	}

	ctx, cancel := context.WithTimeout(ctx, p.priceTimeout)
	defer cancel()

	price, err := p.prices.CurrentPrice(ctx, symbol)
	if err != nil {
		return entry, &domain.CalculationError{
			Reason: domain.CalcPriceUnavailable,
			Detail: symbol + ": " + err.Error(),
		}
	}
	return price, nil
}
