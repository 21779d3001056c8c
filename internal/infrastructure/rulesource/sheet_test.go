package rulesource

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vitos/trade_signal_levels/internal/domain"
)

const sampleSheet = `Asset,Aliases,TF,TP1,TP2,TP3,SL,Unit,PipSize,PriceScale
BTCUSD,BTC|XBT,M5,1.0,2.0,3.5,1.5,%,,2
BTCUSD,,H1,2.5,5.0,8.0,3.0,%,,
EURUSD,EUR,H1,40,80,130,50,pips,0.0001,5
,,,,,,,,,
`

func TestParseSheet(t *testing.T) {
	table, err := parseSheet(strings.NewReader(sampleSheet))
	require.NoError(t, err)
	require.NoError(t, table.Validate())
	require.Len(t, table.Assets, 2)

	btc := table.Assets["BTCUSD"]
	require.NotNil(t, btc)
	assert.Equal(t, []string{"BTC", "XBT"}, btc.Aliases)
	assert.Equal(t, int32(2), btc.PriceScale)
	assert.Len(t, btc.Timeframes, 2)
	assert.Equal(t, "3.5", btc.Timeframes["M5"].TP3.String())
	assert.Equal(t, domain.UnitPercent, btc.Timeframes["H1"].Unit)

	eur := table.Assets["EURUSD"]
	require.NotNil(t, eur)
	assert.Equal(t, "0.0001", eur.PipSize.String())
	assert.Equal(t, domain.UnitPips, eur.Timeframes["H1"].Unit)
}

func TestParseSheetErrors(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"header only", "Asset,Aliases,TF,TP1,TP2,TP3,SL,Unit,PipSize,PriceScale\n"},
		{"short row", "Asset,Aliases,TF,TP1,TP2,TP3,SL,Unit,PipSize,PriceScale\nBTCUSD,,M5\n"},
		{"bad timeframe", "Asset,Aliases,TF,TP1,TP2,TP3,SL,Unit,PipSize,PriceScale\nBTCUSD,,SOON,1,2,3,1,%,,2\n"},
		{"bad magnitude", "Asset,Aliases,TF,TP1,TP2,TP3,SL,Unit,PipSize,PriceScale\nBTCUSD,,M5,one,2,3,1,%,,2\n"},
		{"bad scale", "Asset,Aliases,TF,TP1,TP2,TP3,SL,Unit,PipSize,PriceScale\nBTCUSD,,M5,1,2,3,1,%,,two\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := parseSheet(strings.NewReader(tt.body))
			assert.Error(t, err)
		})
	}
}

func TestSheetSourceLoad(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(sampleSheet))
	}))
	defer srv.Close()

	table, err := NewSheetSource(srv.URL).Load(context.Background())
	require.NoError(t, err)
	assert.Len(t, table.Assets, 2)
}

func TestSheetSourceHTTPError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "gone", http.StatusNotFound)
	}))
	defer srv.Close()

	_, err := NewSheetSource(srv.URL).Load(context.Background())
	assert.Error(t, err)
}
