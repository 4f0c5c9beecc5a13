package feed

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/rickgao/homepage/internal/api"
	"github.com/rickgao/homepage/internal/model"
)

// ErrNotTicker is returned for well-formed frames that carry no ticker,
// such as subscription acknowledgements.
var ErrNotTicker = errors.New("not a ticker message")

// combinedFrame wraps every payload on a combined stream.
type combinedFrame struct {
	Stream string          `json:"stream"`
	Data   json.RawMessage `json:"data"`
}

// tickerEvent is the 24h ticker payload; only the fields we use are decoded.
type tickerEvent struct {
	Symbol        string `json:"s"`
	LastPrice     string `json:"c"`
	PercentChange string `json:"P"`
}

// ParseStreamMessage normalizes a stream frame into a Ticker. Both combined
// frames ({"stream":..,"data":{..}}) and bare ticker payloads are accepted.
func ParseStreamMessage(data []byte) (model.Ticker, error) {
	var frame combinedFrame
	if err := json.Unmarshal(data, &frame); err != nil {
		return model.Ticker{}, fmt.Errorf("decode frame: %w", err)
	}

	payload := data
	if len(frame.Data) > 0 && !bytes.Equal(frame.Data, []byte("null")) {
		payload = frame.Data
	}

	var ev tickerEvent
	if err := json.Unmarshal(payload, &ev); err != nil {
		return model.Ticker{}, fmt.Errorf("decode ticker: %w", err)
	}
	if ev.Symbol == "" && ev.LastPrice == "" {
		return model.Ticker{}, ErrNotTicker
	}

	t, err := api.NewTicker(ev.Symbol, ev.LastPrice, ev.PercentChange)
	if err != nil {
		return model.Ticker{}, fmt.Errorf("ticker %q: %w", ev.Symbol, err)
	}
	return t, nil
}
