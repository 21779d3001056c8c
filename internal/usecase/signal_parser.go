package usecase

import (
	"strings"

	"github.com/shopspring/decimal"

	"github.com/vitos/trade_signal_levels/internal/domain"
)

// SignalParser turns a raw alert line ("LONG BTCUSD M5 @65000") into a
// TradingIntent. It knows the direction keywords and the timeframe grammar
// but not the asset alias table; it only extracts the raw asset token and
// leaves resolution to the rule store.
type SignalParser struct{}

func NewSignalParser() *SignalParser {
	return &SignalParser{}
}

var directionKeywords = map[string]domain.Direction{
	"LONG":  domain.SideLong,
	"BUY":   domain.SideLong,
	"L":     domain.SideLong,
	"SHORT": domain.SideShort,
	"SELL":  domain.SideShort,
	"S":     domain.SideShort,
}

// Supported formats:
//
//	LONG BTCUSD M5
//	BUY GOLD 5M
//	SHORT ETH M1 @2450.50
//	🟢 BTC 15
func (p *SignalParser) Parse(raw string) (*domain.TradingIntent, error) {
	msg := strings.ToUpper(strings.TrimSpace(raw))
	msg = strings.ReplaceAll(msg, "🟢", " LONG ")
	msg = strings.ReplaceAll(msg, "🔴", " SHORT ")

	var tokens []string
	for _, f := range strings.Fields(msg) {
		if t := cleanToken(f); t != "" {
			tokens = append(tokens, t)
		}
	}
	if len(tokens) == 0 {
		return nil, &domain.ParseError{Reason: domain.ParseNotASignal, Input: raw}
	}

	direction, ok := directionKeywords[strings.Trim(tokens[0], "@.,")]
	if !ok {
		// A bad leading keyword on something that otherwise looks like a
		// signal is a user error; anything else is ordinary chatter.
		if looksLikeSignal(tokens) {
			return nil, &domain.ParseError{Reason: domain.ParseUnrecognizedDirection, Input: raw}
		}
		return nil, &domain.ParseError{Reason: domain.ParseNotASignal, Input: raw}
	}

	rest, priceToken, err := extractPriceToken(tokens[1:])
	if err != nil {
		return nil, &domain.ParseError{Reason: domain.ParseInvalidPrice, Input: raw}
	}

	var assetToken, timeframe string
	for _, tok := range rest {
		if tf, ok := domain.NormalizeTimeframe(tok); ok && timeframe == "" {
			timeframe = tf
			continue
		}
		if assetToken == "" {
			assetToken = tok
		}
	}
	if assetToken == "" || timeframe == "" {
		return nil, &domain.ParseError{Reason: domain.ParseIncompleteMessage, Input: raw}
	}

	intent := &domain.TradingIntent{
		Direction: direction,
		Asset:     assetToken,
		Timeframe: timeframe,
		Raw:       raw,
	}

	if priceToken != "" {
		price, perr := decimal.NewFromString(strings.ReplaceAll(priceToken, ",", ""))
		if perr != nil || !price.IsPositive() {
			return nil, &domain.ParseError{Reason: domain.ParseInvalidPrice, Input: raw}
		}
		intent.EntryPrice = price
	}

	return intent, nil
}

// extractPriceToken pulls the "@<decimal>" marker out of the token stream.
// "@ 2450.50" (detached marker) is accepted too. A bare trailing "@" is
// malformed.
func extractPriceToken(tokens []string) (rest []string, price string, err error) {
	for i := 0; i < len(tokens); i++ {
		tok := tokens[i]
		if !strings.HasPrefix(tok, "@") {
			rest = append(rest, tok)
			continue
		}
		if tok == "@" {
			if i+1 >= len(tokens) {
				return nil, "", errInvalidPrice
			}
			price = tokens[i+1]
			i++
			continue
		}
		price = tok[1:]
	}
	return rest, price, nil
}

var errInvalidPrice = &domain.ParseError{Reason: domain.ParseInvalidPrice}

// cleanToken strips decorative punctuation but keeps the characters the
// grammar needs: word characters, the price marker and decimal separators.
func cleanToken(tok string) string {
	var b strings.Builder
	for _, r := range tok {
		switch {
		case r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '@', r == '.', r == ',':
			b.WriteRune(r)
		}
	}
	return strings.Trim(b.String(), ".,")
}

// looksLikeSignal is the evidence check that separates a mistyped direction
// keyword from unrelated chat text: an @price marker, or a timeframe token
// next to a short keyword-like leading token.
func looksLikeSignal(tokens []string) bool {
	hasTF := false
	for _, tok := range tokens[1:] {
		if strings.HasPrefix(tok, "@") {
			return true
		}
		if _, ok := domain.NormalizeTimeframe(tok); ok {
			hasTF = true
		}
	}
	return hasTF && len(tokens[0]) <= 5
}
