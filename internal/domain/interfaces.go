package domain

import (
	"context"

	"github.com/shopspring/decimal"
)

// RuleSource loads a full rule table from somewhere (file, remote sheet).
// The store validates and atomically activates what it returns.
type RuleSource interface {
	Load(ctx context.Context) (*RuleTable, error)
}

// PriceProvider answers "what is the current price of this canonical symbol".
// The pipeline calls it with a bounded timeout when a message carries no
// explicit entry price.
type PriceProvider interface {
	CurrentPrice(ctx context.Context, symbol string) (decimal.Decimal, error)
}

// SignalRepository journals processed signals.
type SignalRepository interface {
	SaveSignal(ctx context.Context, rec *SignalRecord) error
	ListSignals(ctx context.Context, limit int) ([]*SignalRecord, error)
}
