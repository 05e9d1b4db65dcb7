package fees

import (
	"fmt"

	"github.com/rustyeddy/tradejournal/risk"
)

// Sizing is the result of PositionSizeForRisk.
type Sizing struct {
	Size          float64
	TotalFees     float64
	EffectiveRisk float64 // size × riskPerUnit + fees
	RiskPerUnit   float64
	Warning       *UnknownExchangeWarning
}

// PositionSizeForRisk solves
//
//	budget = size × (|entry − stop| + entry × (entryRate + exitRate))
//
// for size, rounded to 4 decimal places. Both fee legs are priced at the
// entry notional, matching RiskForSize.
func (c *Calculator) PositionSizeForRisk(exchange string, entryType, exitType OrderType, budget, entryPrice, stopPrice float64) (Sizing, error) {
	if budget <= 0 {
		return Sizing{}, fmt.Errorf("%w: risk budget must be positive, got %v", ErrInvalidInput, budget)
	}
	if entryPrice <= 0 || stopPrice <= 0 {
		return Sizing{}, fmt.Errorf("%w: entry and stop must be positive", ErrInvalidInput)
	}

	_, s, w := c.Lookup(exchange)
	entryRate := s.Rate(entryType)
	exitRate := s.Rate(exitType)

	perUnit := risk.StopDistance(entryPrice, stopPrice)
	effective := perUnit + entryPrice*(entryRate+exitRate)
	if effective <= 0 {
		return Sizing{}, fmt.Errorf("%w: zero risk per unit", ErrInvalidInput)
	}

	size := Round4(budget / effective)
	totalFees := (entryRate + exitRate) * size * entryPrice

	return Sizing{
		Size:          size,
		TotalFees:     totalFees,
		EffectiveRisk: size*perUnit + totalFees,
		RiskPerUnit:   perUnit,
		Warning:       w,
	}, nil
}

// RiskForSize is the forward form of PositionSizeForRisk: the amount lost
// at the stop including both fee legs priced at the entry notional.
func (c *Calculator) RiskForSize(exchange string, entryType, exitType OrderType, size, entryPrice, stopPrice float64) float64 {
	tf := c.TradeFees(exchange, entryType, exitType, size, entryPrice, nil)
	return risk.PlannedRisk(size, entryPrice, stopPrice) + tf.Total
}
