package domain

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
)

type Unit string

const (
	UnitPercent Unit = "percent"
	UnitPips    Unit = "pips"
	UnitPoints  Unit = "points"
)

// ParseUnit accepts the spellings used in rule files and sheets.
func ParseUnit(s string) (Unit, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "%", "percent", "pct":
		return UnitPercent, nil
	case "pips", "pip":
		return UnitPips, nil
	case "points", "point", "pts":
		return UnitPoints, nil
	}
	return "", fmt.Errorf("unknown unit %q", s)
}

// TFRule holds the TP/SL magnitudes for one asset/timeframe pair.
// tp1 < tp2 < tp3 is recommended but not enforced; the calculator uses the
// values as given.
type TFRule struct {
	TP1  decimal.Decimal
	TP2  decimal.Decimal
	TP3  decimal.Decimal
	SL   decimal.Decimal
	Unit Unit
}

// AssetRule is the per-asset configuration: canonical symbol, alias set and
// the rule per normalized timeframe. PipSize is per asset so pip math stays
// correct on non-default instruments (0.01 for JPY pairs etc).
type AssetRule struct {
	Symbol     string
	Aliases    []string
	PipSize    decimal.Decimal
	PriceScale int32
	Timeframes map[string]TFRule
}

// RuleTable is one immutable snapshot of the full rule configuration, keyed
// by canonical symbol.
type RuleTable struct {
	Assets map[string]*AssetRule
}

// DefaultPipSize applies when a pips-unit asset does not configure one.
var DefaultPipSize = decimal.RequireFromString("0.0001")

// Validate rejects a bad table before it can be activated: duplicate aliases,
// aliases shadowing another canonical symbol, non-positive magnitudes,
// unknown timeframe keys. Load errors are fatal at load time, never at
// query time.
func (t *RuleTable) Validate() error {
	if len(t.Assets) == 0 {
		return fmt.Errorf("rule table has no assets")
	}

	canonical := make(map[string]string, len(t.Assets))
	for symbol := range t.Assets {
		canonical[strings.ToUpper(symbol)] = symbol
	}

	seenAlias := make(map[string]string)
	for symbol, rule := range t.Assets {
		if rule == nil {
			return fmt.Errorf("asset %s: nil rule", symbol)
		}
		if rule.Symbol != symbol {
			return fmt.Errorf("asset %s: symbol mismatch (%s)", symbol, rule.Symbol)
		}
		if len(rule.Timeframes) == 0 {
			return fmt.Errorf("asset %s: no timeframes configured", symbol)
		}
		if rule.PipSize.IsNegative() {
			return fmt.Errorf("asset %s: negative pip_size %s", symbol, rule.PipSize)
		}

		for _, alias := range rule.Aliases {
			key := strings.ToUpper(strings.TrimSpace(alias))
			if key == "" {
				return fmt.Errorf("asset %s: empty alias", symbol)
			}
			if owner, ok := canonical[key]; ok && owner != symbol {
				return fmt.Errorf("asset %s: alias %q shadows canonical symbol %s", symbol, alias, owner)
			}
			if owner, ok := seenAlias[key]; ok && owner != symbol {
				return fmt.Errorf("duplicate alias %q configured under both %s and %s", alias, owner, symbol)
			}
			seenAlias[key] = symbol
		}

		for tf, tfRule := range rule.Timeframes {
			norm, ok := NormalizeTimeframe(tf)
			if !ok || norm != tf {
				return fmt.Errorf("asset %s: timeframe key %q is not canonical", symbol, tf)
			}
			for name, v := range map[string]decimal.Decimal{
				"tp1": tfRule.TP1, "tp2": tfRule.TP2, "tp3": tfRule.TP3, "sl": tfRule.SL,
			} {
				if !v.IsPositive() {
					return fmt.Errorf("asset %s %s: %s must be strictly positive, got %s", symbol, tf, name, v)
				}
			}
			switch tfRule.Unit {
			case UnitPercent, UnitPoints:
			case UnitPips:
				if !rule.PipSize.IsPositive() {
					return fmt.Errorf("asset %s %s: pips unit requires a positive pip_size", symbol, tf)
				}
			default:
				return fmt.Errorf("asset %s %s: unknown unit %q", symbol, tf, tfRule.Unit)
			}
		}
	}

	return nil
}

// NormalizeTimeframe maps the accepted timeframe spellings to the canonical
// letter-prefixed form: "5" -> "M5", "15m" -> "M15", "1H" -> "H1",
// "H4" -> "H4", "1d" -> "D1", "30min" -> "M30". Bare digits are minutes.
// It is the single normalization table shared by the parser and the rule
// store so the two can never diverge.
func NormalizeTimeframe(token string) (string, bool) {
	t := strings.ToUpper(strings.TrimSpace(token))
	if t == "" {
		return "", false
	}

	letter := byte('M')
	digits := t

	switch {
	case isTFLetter(t[0]):
		letter = t[0]
		digits = t[1:]
	case strings.HasSuffix(t, "MIN"):
		digits = t[:len(t)-3]
	case isTFLetter(t[len(t)-1]):
		letter = t[len(t)-1]
		digits = t[:len(t)-1]
	}

	n, err := strconv.Atoi(digits)
	if err != nil || n <= 0 || n > 1440 {
		return "", false
	}
	return fmt.Sprintf("%c%d", letter, n), true
}

func isTFLetter(c byte) bool {
	return c == 'M' || c == 'H' || c == 'D'
}
