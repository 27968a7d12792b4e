package journal

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/newthinker/tradelog/internal/core"
)

// Decode reads a JSON array of trades and validates each one.
func Decode(r io.Reader, v *Validator) ([]core.Trade, error) {
	var trades []core.Trade
	if err := json.NewDecoder(r).Decode(&trades); err != nil {
		return nil, core.WrapError(core.ErrInvalidTrade, fmt.Errorf("decoding trades: %w", err))
	}

	for i, t := range trades {
		if err := v.Trade(t); err != nil {
			return nil, fmt.Errorf("trade %d (%s): %w", i, t.Symbol, err)
		}
	}
	return trades, nil
}

// ReadFile decodes the trade file at path.
func ReadFile(path string, v *Validator) ([]core.Trade, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening trade file: %w", err)
	}
	defer f.Close()

	return Decode(f, v)
}
