package risk

import "math"

// StopDistance is the price distance between entry and stop.
func StopDistance(entry, stop float64) float64 {
	return math.Abs(entry - stop)
}

// PlannedRisk is the amount lost if the stop is hit, before fees.
func PlannedRisk(size, entry, stop float64) float64 {
	return size * StopDistance(entry, stop)
}

// RR is the reward distance to takeProfit divided by the stop distance.
// A zero stop distance yields 0.
func RR(entry, stop, takeProfit float64) float64 {
	risk := StopDistance(entry, stop)
	if risk == 0 {
		return 0
	}
	return math.Abs(takeProfit-entry) / risk
}

// RiskPct expresses risk as a percentage of the account (2 means 2%).
// An account size of zero or less yields 0.
func RiskPct(risk, accountSize float64) float64 {
	if accountSize <= 0 {
		return 0
	}
	return risk / accountSize * 100
}

// Budget is the amount an account of accountSize may risk at pct percent.
func Budget(accountSize, pct float64) float64 {
	if accountSize <= 0 || pct <= 0 {
		return 0
	}
	return accountSize * pct / 100
}

// Profitable reports whether exiting at price is on the profitable side of
// entry for a long (long=true) or short position.
func Profitable(long bool, entry, price float64) bool {
	if long {
		return price > entry
	}
	return price < entry
}

// PnL is the gross P&L of closing qty units at exit.
func PnL(long bool, entry, exit, qty float64) float64 {
	if long {
		return (exit - entry) * qty
	}
	return (entry - exit) * qty
}
