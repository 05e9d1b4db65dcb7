package fees

import (
	"errors"
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
)

// OrderType is how an order is executed. Limit orders pay the maker rate,
// everything else pays the taker rate.
type OrderType string

const (
	Market OrderType = "Market"
	Limit  OrderType = "Limit"
)

// Valid reports whether o is a known order type.
func (o OrderType) Valid() bool {
	return o == Market || o == Limit
}

// ErrInvalidInput is returned by sizing when prices or budgets are not positive.
var ErrInvalidInput = errors.New("invalid fee input")

// Schedule holds maker/taker fees in percent (0.020 means 0.020%).
type Schedule struct {
	Maker float64 `json:"maker" yaml:"maker"`
	Taker float64 `json:"taker" yaml:"taker"`
}

// Rate returns the fractional rate for an order type.
func (s Schedule) Rate(o OrderType) float64 {
	if o == Limit {
		return s.Maker / 100
	}
	return s.Taker / 100
}

// DefaultSchedules are the fee schedules of the supported exchanges.
var DefaultSchedules = map[string]Schedule{
	"Blofin":   {Maker: 0.020, Taker: 0.060},
	"EdgeX":    {Maker: 0.015, Taker: 0.038},
	"Breakout": {Maker: 0.035, Taker: 0.035},
}

// UnknownExchangeWarning is attached to results computed with the fallback
// schedule. It is informational; the computation still succeeds.
type UnknownExchangeWarning struct {
	Exchange string
	Fallback string
}

func (w *UnknownExchangeWarning) Error() string {
	return fmt.Sprintf("unknown exchange %q, using %s fees as fallback", w.Exchange, w.Fallback)
}

// Calculator computes trading fees from a static fee table.
type Calculator struct {
	table    map[string]Schedule
	names    []string
	fallback string
}

// New builds a calculator over table. The fallback for unknown exchanges is
// the schedule with the highest combined maker and taker fee.
func New(table map[string]Schedule) *Calculator {
	c := &Calculator{table: make(map[string]Schedule, len(table))}
	for name, s := range table {
		c.table[name] = s
		c.names = append(c.names, name)
	}
	sort.Strings(c.names)

	best := -1.0
	for _, name := range c.names {
		s := c.table[name]
		if s.Maker+s.Taker > best {
			best = s.Maker + s.Taker
			c.fallback = name
		}
	}
	return c
}

// Default returns a calculator over DefaultSchedules.
func Default() *Calculator {
	return New(DefaultSchedules)
}

// Exchanges returns the known exchange names, sorted.
func (c *Calculator) Exchanges() []string {
	out := make([]string, len(c.names))
	copy(out, c.names)
	return out
}

// Lookup resolves an exchange name: exact match, then case-insensitive,
// then the fallback schedule with a warning.
func (c *Calculator) Lookup(exchange string) (string, Schedule, *UnknownExchangeWarning) {
	name := strings.TrimSpace(exchange)
	if s, ok := c.table[name]; ok {
		return name, s, nil
	}
	for _, known := range c.names {
		if strings.EqualFold(known, name) {
			return known, c.table[known], nil
		}
	}

	w := &UnknownExchangeWarning{Exchange: exchange, Fallback: c.fallback}
	log.Warn().Str("exchange", exchange).Str("fallback", c.fallback).Msg("unknown exchange, using fallback fees")
	return c.fallback, c.table[c.fallback], w
}

// Fee is a single-side fee.
type Fee struct {
	Amount  float64
	Rate    float64
	Warning *UnknownExchangeWarning
}

// EntryFee is size × price × rate for the entry order.
func (c *Calculator) EntryFee(exchange string, orderType OrderType, size, price float64) Fee {
	_, s, w := c.Lookup(exchange)
	rate := s.Rate(orderType)
	return Fee{Amount: size * price * rate, Rate: rate, Warning: w}
}

// ExitFee is size × price × rate evaluated at the exit price.
func (c *Calculator) ExitFee(exchange string, orderType OrderType, size, price float64) Fee {
	return c.EntryFee(exchange, orderType, size, price)
}

// TradeFees is the fee breakdown of a round trip.
type TradeFees struct {
	EntryFee  float64
	ExitFee   float64
	Total     float64
	EntryRate float64
	ExitRate  float64
	Warning   *UnknownExchangeWarning
}

// TradeFees computes entry and exit fees of a round trip. When exitPrice is
// nil the exit fee reuses the entry notional as an approximation.
func (c *Calculator) TradeFees(exchange string, entryType, exitType OrderType, size, entryPrice float64, exitPrice *float64) TradeFees {
	_, s, w := c.Lookup(exchange)

	entryRate := s.Rate(entryType)
	exitRate := s.Rate(exitType)

	entryNotional := size * entryPrice
	exitNotional := entryNotional
	if exitPrice != nil {
		exitNotional = size * *exitPrice
	}

	tf := TradeFees{
		EntryFee:  entryNotional * entryRate,
		ExitFee:   exitNotional * exitRate,
		EntryRate: entryRate,
		ExitRate:  exitRate,
		Warning:   w,
	}
	tf.Total = tf.EntryFee + tf.ExitFee
	return tf
}

// Comparison is one row of CompareFees.
type Comparison struct {
	Exchange      string
	TotalFees     float64
	EntryFee      float64
	ExitFee       float64
	FeePercentage float64 // total fees as percent of notional
}

// CompareFees prices the same trade on every known exchange, cheapest first.
func (c *Calculator) CompareFees(size, price float64, entryType, exitType OrderType) []Comparison {
	notional := size * price

	out := make([]Comparison, 0, len(c.names))
	for _, name := range c.names {
		tf := c.TradeFees(name, entryType, exitType, size, price, nil)
		cmp := Comparison{
			Exchange:  name,
			TotalFees: tf.Total,
			EntryFee:  tf.EntryFee,
			ExitFee:   tf.ExitFee,
		}
		if notional != 0 {
			cmp.FeePercentage = tf.Total / notional * 100
		}
		out = append(out, cmp)
	}

	sort.SliceStable(out, func(i, j int) bool {
		return out[i].TotalFees < out[j].TotalFees
	})
	return out
}

// ExchangeInfo is the display form of a fee schedule.
type ExchangeInfo struct {
	Exchange string
	MakerFee string
	TakerFee string
	Schedule Schedule
	Warning  *UnknownExchangeWarning
}

// Info returns display strings for an exchange's schedule.
func (c *Calculator) Info(exchange string) ExchangeInfo {
	_, s, w := c.Lookup(exchange)
	return ExchangeInfo{
		Exchange: exchange,
		MakerFee: decimal.NewFromFloat(s.Maker).String() + "%",
		TakerFee: decimal.NewFromFloat(s.Taker).String() + "%",
		Schedule: s,
		Warning:  w,
	}
}

// Round4 rounds x half away from zero to 4 decimal places.
func Round4(x float64) float64 {
	if math.IsNaN(x) || math.IsInf(x, 0) {
		return x
	}
	return decimal.NewFromFloat(x).Round(4).InexactFloat64()
}
