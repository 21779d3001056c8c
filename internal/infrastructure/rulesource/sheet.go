package rulesource

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/vitos/trade_signal_levels/internal/domain"
)

// SheetSource loads the rule table from a published spreadsheet's CSV export
// URL. Expected columns, one row per (asset, timeframe) pair:
//
//	Asset,Aliases,TF,TP1,TP2,TP3,SL,Unit,PipSize,PriceScale
//	BTCUSD,BTC|XBT,M5,1.0,2.0,3.5,1.5,%,,2
//
// Aliases are pipe-separated; Aliases/PipSize/PriceScale only need to be
// filled on the first row of an asset.
type SheetSource struct {
	url    string
	client *http.Client
}

func NewSheetSource(url string) *SheetSource {
	return &SheetSource{
		url:    url,
		client: &http.Client{Timeout: 10 * time.Second},
	}
}

func (s *SheetSource) Load(ctx context.Context) (*domain.RuleTable, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.url, nil)
	if err != nil {
		return nil, err
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch rule sheet: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("rule sheet returned status %d", resp.StatusCode)
	}

	return parseSheet(resp.Body)
}

func parseSheet(r io.Reader) (*domain.RuleTable, error) {
	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true

	rows, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to read rule sheet: %w", err)
	}
	if len(rows) < 2 {
		return nil, fmt.Errorf("rule sheet has no data rows")
	}

	table := &domain.RuleTable{Assets: make(map[string]*domain.AssetRule)}
	for i, row := range rows[1:] { // skip header
		if len(row) < 10 {
			return nil, fmt.Errorf("row %d: expected 10 columns, got %d", i+2, len(row))
		}

		symbol := strings.TrimSpace(row[0])
		if symbol == "" {
			continue
		}

		rule, ok := table.Assets[symbol]
		if !ok {
			rule = &domain.AssetRule{
				Symbol:     symbol,
				Timeframes: make(map[string]domain.TFRule),
			}
			if aliases := strings.TrimSpace(row[1]); aliases != "" {
				rule.Aliases = strings.Split(aliases, "|")
			}
			if pip := strings.TrimSpace(row[8]); pip != "" {
				rule.PipSize, err = decimal.NewFromString(pip)
				if err != nil {
					return nil, fmt.Errorf("row %d: bad pip size %q: %w", i+2, pip, err)
				}
			}
			if scale := strings.TrimSpace(row[9]); scale != "" {
				n, err := strconv.Atoi(scale)
				if err != nil {
					return nil, fmt.Errorf("row %d: bad price scale %q: %w", i+2, scale, err)
				}
				rule.PriceScale = int32(n)
			}
			table.Assets[symbol] = rule
		}

		tf, ok := domain.NormalizeTimeframe(row[2])
		if !ok {
			return nil, fmt.Errorf("row %d: bad timeframe %q", i+2, row[2])
		}

		tfRule, err := parseTFRule(fileTFRule{
			TP1:  strings.TrimSpace(row[3]),
			TP2:  strings.TrimSpace(row[4]),
			TP3:  strings.TrimSpace(row[5]),
			SL:   strings.TrimSpace(row[6]),
			Unit: row[7],
		})
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", i+2, err)
		}
		rule.Timeframes[tf] = tfRule
	}

	return table, nil
}
