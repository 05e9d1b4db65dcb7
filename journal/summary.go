package journal

import (
	"time"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// Summary aggregates a set of entries.
type Summary struct {
	Entries         int
	Open            int
	PartiallyClosed int
	Closed          int

	RealizedPnL float64 // net of fees
	Fees        float64 // recorded on exits
	OpenRisk    float64 // planned risk of entries not yet closed

	Wins    int // closed entries with positive realized P&L
	Losses  int // closed entries with zero or negative realized P&L
	WinRate float64

	AvgRiskReward float64 // mean of every planned R:R ratio
	AvgPnL        float64 // mean realized P&L of closed entries
	StdDevPnL     float64
}

// Summarize computes a Summary over entries.
func Summarize(entries []Entry) Summary {
	var (
		s      Summary
		rr     []float64
		closed []float64
		pnls   []float64
		fees   []float64
	)

	s.Entries = len(entries)
	for _, e := range entries {
		switch DeriveStatus(e.ActualExits) {
		case StatusOpen:
			s.Open++
			s.OpenRisk += e.Risk
		case StatusPartiallyClosed:
			s.PartiallyClosed++
			s.OpenRisk += e.Risk
		case StatusClosed:
			s.Closed++
			pnl := e.TotalRealizedPnL()
			closed = append(closed, pnl)
			if pnl > 0 {
				s.Wins++
			} else {
				s.Losses++
			}
		}

		rr = append(rr, e.RiskReward...)
		for _, x := range e.ActualExits {
			pnls = append(pnls, x.PnL)
			if x.Fees != nil {
				fees = append(fees, *x.Fees)
			}
		}
	}

	s.RealizedPnL = floats.Sum(pnls)
	s.Fees = floats.Sum(fees)
	if len(closed) > 0 {
		s.WinRate = float64(s.Wins) / float64(len(closed)) * 100
		s.AvgPnL, s.StdDevPnL = stat.MeanStdDev(closed, nil)
		if len(closed) == 1 {
			s.StdDevPnL = 0
		}
	}
	if len(rr) > 0 {
		s.AvgRiskReward = stat.Mean(rr, nil)
	}
	return s
}

// RealizedBetween sums the P&L of exits timestamped in [from, to).
func RealizedBetween(entries []Entry, from, to time.Time) float64 {
	var pnls []float64
	for _, e := range entries {
		for _, x := range e.ActualExits {
			if !x.Timestamp.Before(from) && x.Timestamp.Before(to) {
				pnls = append(pnls, x.PnL)
			}
		}
	}
	return floats.Sum(pnls)
}

// OpenCount is the number of entries that are not closed.
func OpenCount(entries []Entry) int {
	n := 0
	for _, e := range entries {
		if DeriveStatus(e.ActualExits) != StatusClosed {
			n++
		}
	}
	return n
}
