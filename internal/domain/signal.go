package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

type Direction string

const (
	SideLong  Direction = "LONG"
	SideShort Direction = "SHORT"
)

// TradingIntent is the parser output. Asset holds the raw token as written
// in the message; alias resolution to a canonical symbol is the rule store's
// job. Timeframe is already normalized (M5, H1, ...).
type TradingIntent struct {
	Direction  Direction
	Asset      string
	Timeframe  string
	EntryPrice decimal.Decimal
	Raw        string
}

// HasEntryPrice reports whether the message carried an explicit @price.
func (i *TradingIntent) HasEntryPrice() bool {
	return i.EntryPrice.IsPositive()
}

// LevelResult holds the computed TP/SL prices for a signal. It is immutable
// once produced; transports render and discard it.
type LevelResult struct {
	Direction  Direction
	Asset      string // canonical symbol
	Timeframe  string
	Entry      decimal.Decimal
	TP1        decimal.Decimal
	TP2        decimal.Decimal
	TP3        decimal.Decimal
	SL         decimal.Decimal
	TP1Dist    decimal.Decimal // rule magnitudes, for presentation
	TP2Dist    decimal.Decimal
	TP3Dist    decimal.Decimal
	SLDist     decimal.Decimal
	Unit       Unit
	RR         decimal.Decimal // reward-to-risk, tp1 distance over sl distance
	PriceScale int32
}

// SignalRecord is the journal row persisted for every processed signal.
type SignalRecord struct {
	ID         string
	Direction  Direction
	Asset      string
	Timeframe  string
	Entry      decimal.Decimal
	TP1        decimal.Decimal
	TP2        decimal.Decimal
	TP3        decimal.Decimal
	SL         decimal.Decimal
	RR         decimal.Decimal
	Source     string // "telegram", "webhook", "cli"
	RawMessage string
	CreatedAt  time.Time
}
