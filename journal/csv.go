package journal

import (
	"encoding/csv"
	"io"
	"strconv"
	"time"
)

// ExitsHeader is the header row written by WriteExitsCSV.
var ExitsHeader = []string{
	"entry_id", "coin", "exchange", "direction", "exit_index", "timestamp",
	"price", "percentage", "type", "pnl", "pnl_source", "fees", "exchange_trade_id",
}

// WriteExitsCSV writes one row per recorded exit across entries.
func WriteExitsCSV(w io.Writer, entries []Entry) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(ExitsHeader); err != nil {
		return err
	}

	for _, e := range entries {
		for i, x := range e.ActualExits {
			fee := ""
			if x.Fees != nil {
				fee = f(*x.Fees)
			}
			tradeID := ""
			if x.ExchangeTradeID != nil {
				tradeID = *x.ExchangeTradeID
			}
			err := cw.Write([]string{
				e.ID,
				e.Coin,
				e.Exchange,
				string(e.Direction),
				strconv.Itoa(i),
				x.Timestamp.UTC().Format(time.RFC3339),
				f(x.Price),
				f(x.Percentage),
				string(x.Type),
				f(x.PnL),
				string(x.PnLSource),
				fee,
				tradeID,
			})
			if err != nil {
				return err
			}
		}
	}

	cw.Flush()
	return cw.Error()
}

func f(x float64) string {
	return strconv.FormatFloat(x, 'f', 6, 64)
}
