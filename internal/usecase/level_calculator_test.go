package usecase_test

import (
	"errors"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/vitos/trade_signal_levels/internal/domain"
	"github.com/vitos/trade_signal_levels/internal/usecase"
)

func d(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func btcAsset() *domain.AssetRule {
	return &domain.AssetRule{
		Symbol:     "BTCUSD",
		PriceScale: 2,
		Timeframes: map[string]domain.TFRule{
			"M5": {TP1: d("1.0"), TP2: d("2.0"), TP3: d("3.5"), SL: d("1.5"), Unit: domain.UnitPercent},
		},
	}
}

func TestCalculatePercentLong(t *testing.T) {
	calc := usecase.NewLevelCalculator()
	asset := btcAsset()
	rule := asset.Timeframes["M5"]

	// 65000 with 1.0/2.0/3.5% targets and a 1.5% stop.
	res, err := calc.Calculate(domain.SideLong, asset, &rule, "M5", d("65000"))
	if err != nil {
		t.Fatalf("Calculate() error: %v", err)
	}

	checks := []struct {
		name string
		got  decimal.Decimal
		want string
	}{
		{"tp1", res.TP1, "65650"},
		{"tp2", res.TP2, "66300"},
		{"tp3", res.TP3, "67275"},
		{"sl", res.SL, "64025"},
		{"rr", res.RR, "0.67"},
	}
	for _, c := range checks {
		if !c.got.Equal(d(c.want)) {
			t.Errorf("%s = %s, want %s", c.name, c.got, c.want)
		}
	}
	if res.Asset != "BTCUSD" || res.Timeframe != "M5" || res.Direction != domain.SideLong {
		t.Errorf("result identity wrong: %+v", res)
	}
}

func TestCalculatePercentShortMirrors(t *testing.T) {
	calc := usecase.NewLevelCalculator()
	asset := btcAsset()
	rule := asset.Timeframes["M5"]

	long, err := calc.Calculate(domain.SideLong, asset, &rule, "M5", d("65000"))
	if err != nil {
		t.Fatalf("long: %v", err)
	}
	short, err := calc.Calculate(domain.SideShort, asset, &rule, "M5", d("65000"))
	if err != nil {
		t.Fatalf("short: %v", err)
	}

	// Each short level must sit as far below entry as the long one sits above.
	entry := d("65000")
	pairs := []struct {
		name        string
		long, short decimal.Decimal
	}{
		{"tp1", long.TP1, short.TP1},
		{"tp2", long.TP2, short.TP2},
		{"tp3", long.TP3, short.TP3},
		{"sl", long.SL, short.SL},
	}
	for _, p := range pairs {
		if !p.long.Sub(entry).Equal(entry.Sub(p.short)) {
			t.Errorf("%s not mirrored: long %s short %s", p.name, p.long, p.short)
		}
	}
	if !long.RR.Equal(short.RR) {
		t.Errorf("rr differs by direction: %s vs %s", long.RR, short.RR)
	}
	if !short.SL.GreaterThan(entry) {
		t.Errorf("short stop must be above entry, got %s", short.SL)
	}
}

func TestCalculatePips(t *testing.T) {
	calc := usecase.NewLevelCalculator()

	tests := []struct {
		name    string
		asset   *domain.AssetRule
		entry   string
		wantTP1 string
		wantSL  string
	}{
		{
			name: "standard pip size",
			asset: &domain.AssetRule{
				Symbol:     "EURUSD",
				PipSize:    d("0.0001"),
				PriceScale: 5,
				Timeframes: map[string]domain.TFRule{
					"M5": {TP1: d("15"), TP2: d("30"), TP3: d("50"), SL: d("20"), Unit: domain.UnitPips},
				},
			},
			entry:   "1.0850",
			wantTP1: "1.0865",
			wantSL:  "1.0830",
		},
		{
			name: "jpy pip size",
			asset: &domain.AssetRule{
				Symbol:     "USDJPY",
				PipSize:    d("0.01"),
				PriceScale: 3,
				Timeframes: map[string]domain.TFRule{
					"M5": {TP1: d("20"), TP2: d("40"), TP3: d("65"), SL: d("25"), Unit: domain.UnitPips},
				},
			},
			entry:   "147.250",
			wantTP1: "147.45",
			wantSL:  "147",
		},
		{
			name: "default pip size when unset",
			asset: &domain.AssetRule{
				Symbol:     "GBPUSD",
				PriceScale: 5,
				Timeframes: map[string]domain.TFRule{
					"M5": {TP1: d("10"), TP2: d("20"), TP3: d("30"), SL: d("10"), Unit: domain.UnitPips},
				},
			},
			entry:   "1.2700",
			wantTP1: "1.271",
			wantSL:  "1.269",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rule := tt.asset.Timeframes["M5"]
			res, err := calc.Calculate(domain.SideLong, tt.asset, &rule, "M5", d(tt.entry))
			if err != nil {
				t.Fatalf("Calculate() error: %v", err)
			}
			if !res.TP1.Equal(d(tt.wantTP1)) {
				t.Errorf("tp1 = %s, want %s", res.TP1, tt.wantTP1)
			}
			if !res.SL.Equal(d(tt.wantSL)) {
				t.Errorf("sl = %s, want %s", res.SL, tt.wantSL)
			}
		})
	}
}

func TestCalculatePoints(t *testing.T) {
	calc := usecase.NewLevelCalculator()
	asset := &domain.AssetRule{
		Symbol:     "US30",
		PriceScale: 1,
		Timeframes: map[string]domain.TFRule{
			"H1": {TP1: d("150"), TP2: d("300"), TP3: d("500"), SL: d("200"), Unit: domain.UnitPoints},
		},
	}
	rule := asset.Timeframes["H1"]

	res, err := calc.Calculate(domain.SideShort, asset, &rule, "H1", d("39500"))
	if err != nil {
		t.Fatalf("Calculate() error: %v", err)
	}
	if !res.TP1.Equal(d("39350")) {
		t.Errorf("tp1 = %s, want 39350", res.TP1)
	}
	if !res.TP3.Equal(d("39000")) {
		t.Errorf("tp3 = %s, want 39000", res.TP3)
	}
	if !res.SL.Equal(d("39700")) {
		t.Errorf("sl = %s, want 39700", res.SL)
	}
	if !res.RR.Equal(d("0.75")) {
		t.Errorf("rr = %s, want 0.75", res.RR)
	}
}

func TestCalculateGuards(t *testing.T) {
	calc := usecase.NewLevelCalculator()
	asset := btcAsset()
	rule := asset.Timeframes["M5"]

	_, err := calc.Calculate(domain.SideLong, asset, &rule, "M5", decimal.Zero)
	var ce *domain.CalculationError
	if !errors.As(err, &ce) || ce.Reason != domain.CalcMissingEntryPrice {
		t.Errorf("zero entry: got %v, want MISSING_ENTRY_PRICE", err)
	}

	// A percent stop collapses to zero distance when the magnitude is zero.
	zeroSL := domain.TFRule{TP1: d("1"), TP2: d("2"), TP3: d("3"), SL: decimal.Zero, Unit: domain.UnitPercent}
	_, err = calc.Calculate(domain.SideLong, asset, &zeroSL, "M5", d("65000"))
	if !errors.As(err, &ce) || ce.Reason != domain.CalcZeroRiskDistance {
		t.Errorf("zero sl: got %v, want ZERO_RISK_DISTANCE", err)
	}
}

func TestCalculateDeterministic(t *testing.T) {
	calc := usecase.NewLevelCalculator()
	asset := btcAsset()
	rule := asset.Timeframes["M5"]

	first, err := calc.Calculate(domain.SideLong, asset, &rule, "M5", d("65000.13"))
	if err != nil {
		t.Fatalf("Calculate() error: %v", err)
	}
	for i := 0; i < 5; i++ {
		again, err := calc.Calculate(domain.SideLong, asset, &rule, "M5", d("65000.13"))
		if err != nil {
			t.Fatalf("Calculate() error: %v", err)
		}
		if again.TP1.String() != first.TP1.String() || again.SL.String() != first.SL.String() {
			t.Fatalf("run %d differs: %s/%s vs %s/%s", i, again.TP1, again.SL, first.TP1, first.SL)
		}
	}
}
