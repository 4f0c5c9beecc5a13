package feed

import (
	"errors"
	"testing"

	"github.com/shopspring/decimal"
)

func TestParseStreamMessage(t *testing.T) {
	tests := []struct {
		name      string
		data      string
		wantSym   string
		wantPrice string
		wantPct   string
		wantErr   bool
	}{
		{
			name:      "combined frame",
			data:      `{"stream":"btcusdt@ticker","data":{"e":"24hrTicker","s":"BTCUSDT","c":"67012.34000000","P":"1.234"}}`,
			wantSym:   "BTCUSDT",
			wantPrice: "67012.34",
			wantPct:   "1.234",
		},
		{
			name:      "bare payload",
			data:      `{"e":"24hrTicker","s":"ETHUSDT","c":"3100.5","P":"-0.75"}`,
			wantSym:   "ETHUSDT",
			wantPrice: "3100.5",
			wantPct:   "-0.75",
		},
		{name: "not json", data: `hello`, wantErr: true},
		{name: "truncated", data: `{"stream":"btcusdt@ticker","data":{"s":"BTC`, wantErr: true},
		{name: "bad price", data: `{"data":{"s":"BTCUSDT","c":"NaN?","P":"1"}}`, wantErr: true},
		{name: "missing symbol", data: `{"data":{"c":"1","P":"1"}}`, wantErr: true},
		{name: "ack frame", data: `{"result":null,"id":1}`, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseStreamMessage([]byte(tt.data))
			if tt.wantErr {
				if err == nil {
					t.Errorf("expected error, got %+v", got)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got.Symbol != tt.wantSym {
				t.Errorf("Symbol = %q, want %q", got.Symbol, tt.wantSym)
			}
			if !got.LastPrice.Equal(decimal.RequireFromString(tt.wantPrice)) {
				t.Errorf("LastPrice = %s, want %s", got.LastPrice, tt.wantPrice)
			}
			if !got.PercentChange24h.Equal(decimal.RequireFromString(tt.wantPct)) {
				t.Errorf("PercentChange24h = %s, want %s", got.PercentChange24h, tt.wantPct)
			}
		})
	}
}

func TestParseStreamMessage_Ack(t *testing.T) {
	_, err := ParseStreamMessage([]byte(`{"result":null,"id":1}`))
	if !errors.Is(err, ErrNotTicker) {
		t.Errorf("err = %v, want ErrNotTicker", err)
	}
}
