package match

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"time"
)

// Trade is one broker fill from the analytics feed.
type Trade struct {
	Broker       string     `json:"Broker"`
	Asset        string     `json:"Asset"`
	Date         string     `json:"Date"`
	Side         string     `json:"Side"` // Buy or Sell
	Type         string     `json:"Type"`
	Quantity     float64    `json:"Quantity"`
	Price        float64    `json:"Price"`
	PNL          *float64   `json:"PNL"`
	Fee          float64    `json:"Fee"`
	Leverage     flexString `json:"Leverage"`
	OrderOptions flexString `json:"Order_Options"`
	ID           string     `json:"id,omitempty"`
}

// Feed dates come from Python's isoformat, with or without a zone.
var dateLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02T15:04",
	"2006-01-02",
}

// Time parses Date. Dates without a zone are taken as UTC.
func (t Trade) Time() (time.Time, error) {
	for _, layout := range dateLayouts {
		if ts, err := time.Parse(layout, t.Date); err == nil {
			return ts.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("trade %s: unparseable date %q", t.Broker, t.Date)
}

// TradeID identifies the trade for ActualExit.ExchangeTradeID.
func (t Trade) TradeID() string {
	if t.ID != "" {
		return t.ID
	}
	return t.Broker + "_" + t.Date
}

// Metadata describes when the feed was generated.
type Metadata struct {
	GeneratedAt string `json:"generated_at"`
	TotalSheets int    `json:"total_sheets"`
	DataVersion string `json:"data_version"`
}

// Feed is the part of the analytics document the matcher reads. The
// summary and chart arrays are ignored.
type Feed struct {
	Blofin   []Trade  `json:"blofin"`
	Edgex    []Trade  `json:"edgex"`
	Breakout []Trade  `json:"breakout"`
	Metadata Metadata `json:"metadata"`
}

// LoadFeed reads an analytics JSON document.
func LoadFeed(path string) (*Feed, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read feed: %w", err)
	}
	return ParseFeed(data)
}

// ParseFeed decodes an analytics JSON document. The offline converter
// writes NaN for missing numbers; those are read as null.
func ParseFeed(data []byte) (*Feed, error) {
	data = bytes.ReplaceAll(data, []byte(": NaN"), []byte(": null"))
	data = bytes.ReplaceAll(data, []byte(":NaN"), []byte(":null"))

	f := &Feed{}
	if err := json.Unmarshal(data, f); err != nil {
		return nil, fmt.Errorf("parse feed: %w", err)
	}
	return f, nil
}

// BrokerTrades flattens the broker arrays in blofin, edgex, breakout order.
func (f *Feed) BrokerTrades() []Trade {
	out := make([]Trade, 0, len(f.Blofin)+len(f.Edgex)+len(f.Breakout))
	out = append(out, f.Blofin...)
	out = append(out, f.Edgex...)
	out = append(out, f.Breakout...)
	return out
}

// flexString accepts a JSON string, number or null.
type flexString string

func (s *flexString) UnmarshalJSON(b []byte) error {
	if bytes.Equal(b, []byte("null")) {
		*s = ""
		return nil
	}
	if len(b) > 0 && b[0] == '"' {
		var v string
		if err := json.Unmarshal(b, &v); err != nil {
			return err
		}
		*s = flexString(v)
		return nil
	}
	var n float64
	if err := json.Unmarshal(b, &n); err != nil {
		return err
	}
	*s = flexString(strconv.FormatFloat(n, 'f', -1, 64))
	return nil
}
