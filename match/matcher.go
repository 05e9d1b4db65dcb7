package match

import (
	"context"
	"fmt"
	"math"
	"strings"
	"time"
	"unicode"

	"github.com/rs/zerolog/log"
	"github.com/rustyeddy/tradejournal/journal"
)

// Confidence grades how well an entry's candidates fit it.
type Confidence string

const (
	High   Confidence = "high"
	Medium Confidence = "medium"
	Low    Confidence = "low"
)

// Matcher reconciles journal entries against broker trades. The zero
// value matches nothing; use NewMatcher.
type Matcher struct {
	Window     time.Duration // max distance between entry and trade time
	LooseSize  float64       // relative size tolerance for a candidate
	TightSize  float64       // relative size tolerance for a high-confidence match
	TightPrice float64       // relative price tolerance for a high-confidence match
	MaxMedium  int           // more candidates than this is too ambiguous

	PriceDiscrepancy float64 // relative, entry vs average candidate price
	SizeDiscrepancy  float64 // relative, entry size vs total candidate quantity
	PnLDiscrepancy   float64 // absolute, calculated exit vs total candidate P&L

	RecordedPrice float64 // absolute price distance for an already recorded exit
}

// NewMatcher returns a Matcher with the default tolerances.
func NewMatcher() *Matcher {
	return &Matcher{
		Window:           48 * time.Hour,
		LooseSize:        0.10,
		TightSize:        0.05,
		TightPrice:       0.02,
		MaxMedium:        3,
		PriceDiscrepancy: 0.05,
		SizeDiscrepancy:  0.10,
		PnLDiscrepancy:   1,
		RecordedPrice:    0.01,
	}
}

// Result is the match report for one entry.
type Result struct {
	Entry         journal.Entry
	Trades        []Trade
	Confidence    Confidence
	Discrepancies []string
	Suggested     []journal.ActualExit
}

// Approval is asked before AutoUpdate changes anything.
type Approval func(ctx context.Context, results []Result) (bool, error)

// HasSuggestions reports whether any result proposes an exit.
func HasSuggestions(results []Result) bool {
	for _, r := range results {
		if len(r.Suggested) > 0 {
			return true
		}
	}
	return false
}

// FindMatches returns one Result per entry, in entry order.
func (m *Matcher) FindMatches(entries []journal.Entry, trades []Trade) []Result {
	times := make([]time.Time, len(trades))
	valid := make([]bool, len(trades))
	for i, t := range trades {
		ts, err := t.Time()
		if err != nil {
			log.Warn().Err(err).Msg("skipping broker trade")
			continue
		}
		times[i], valid[i] = ts, true
	}

	results := make([]Result, 0, len(entries))
	for _, e := range entries {
		var (
			cands []Trade
			at    []time.Time
		)
		for i, t := range trades {
			if valid[i] && m.candidate(e, t, times[i]) {
				cands = append(cands, t)
				at = append(at, times[i])
			}
		}

		results = append(results, Result{
			Entry:         e.Clone(),
			Trades:        cands,
			Confidence:    m.confidence(e, cands),
			Discrepancies: m.discrepancies(e, cands),
			Suggested:     m.suggest(e, cands, at),
		})
		log.Debug().Str("entry", e.ID).Int("candidates", len(cands)).Msg("matched")
	}
	return results
}

// AutoUpdate appends every suggested exit to its entry once approve says
// yes. When there is nothing to suggest, or approval is declined or fails,
// entries is returned as given and applied is false.
func (m *Matcher) AutoUpdate(ctx context.Context, entries []journal.Entry, trades []Trade, approve Approval) (out []journal.Entry, applied bool, err error) {
	results := m.FindMatches(entries, trades)
	if !HasSuggestions(results) {
		return entries, false, nil
	}
	if err := ctx.Err(); err != nil {
		return entries, false, err
	}

	ok, err := approve(ctx, results)
	if err != nil {
		return entries, false, fmt.Errorf("approval: %w", err)
	}
	if !ok {
		return entries, false, nil
	}

	out = make([]journal.Entry, len(entries))
	for i, e := range entries {
		c := e.Clone()
		for _, x := range results[i].Suggested {
			c.ActualExits = append(c.ActualExits, x.Clone())
		}
		c.Status = journal.DeriveStatus(c.ActualExits)
		out[i] = c
	}
	return out, true, nil
}

func (m *Matcher) candidate(e journal.Entry, t Trade, at time.Time) bool {
	if absDuration(e.Timestamp.Sub(at)) > m.Window {
		return false
	}
	if !assetMatch(e.Coin, t.Asset) {
		return false
	}
	return sizeWithin(e.Size, t.Quantity, m.LooseSize) || sideMatch(e.Direction, t.Side)
}

func (m *Matcher) confidence(e journal.Entry, cands []Trade) Confidence {
	if len(cands) == 0 {
		return Low
	}
	for _, t := range cands {
		if assetMatch(e.Coin, t.Asset) && sizeWithin(e.Size, t.Quantity, m.TightSize) && priceWithin(e.EntryPrice, t.Price, m.TightPrice) {
			return High
		}
	}
	if len(cands) <= m.MaxMedium {
		return Medium
	}
	return Low
}

func (m *Matcher) discrepancies(e journal.Entry, cands []Trade) []string {
	if len(cands) == 0 {
		return []string{"No matching trades found in exchange data"}
	}

	var (
		out      []string
		sumPrice float64
		sumQty   float64
		sumPnL   float64
	)
	for _, t := range cands {
		sumPrice += t.Price
		sumQty += math.Abs(t.Quantity)
		if t.PNL != nil {
			sumPnL += *t.PNL
		}
	}

	avg := sumPrice / float64(len(cands))
	if e.EntryPrice > 0 && math.Abs(e.EntryPrice-avg)/e.EntryPrice > m.PriceDiscrepancy {
		out = append(out, fmt.Sprintf("Price difference: journal %.4f vs exchange %.4f", e.EntryPrice, avg))
	}
	if e.Size > 0 && math.Abs(e.Size-sumQty)/e.Size > m.SizeDiscrepancy {
		out = append(out, fmt.Sprintf("Size difference: journal %g vs exchange %g", e.Size, sumQty))
	}
	for i, x := range e.ActualExits {
		if x.PnLSource != journal.SourceCalculated {
			continue
		}
		if math.Abs(x.PnL-sumPnL) > m.PnLDiscrepancy {
			out = append(out, fmt.Sprintf("P&L difference in exit %d: journal %.2f vs exchange %.2f", i+1, x.PnL, sumPnL))
		}
	}
	return out
}

func (m *Matcher) suggest(e journal.Entry, cands []Trade, at []time.Time) []journal.ActualExit {
	var out []journal.ActualExit
	for i, t := range cands {
		if t.PNL == nil || m.recorded(e, t, at[i]) {
			continue
		}
		out = append(out, journal.ActualExit{
			Timestamp:       at[i],
			Price:           t.Price,
			Percentage:      100,
			Type:            journal.ExitManual,
			PnL:             *t.PNL,
			PnLSource:       journal.SourceExchange,
			ExchangeTradeID: journal.Ptr(t.TradeID()),
			Notes:           journal.Ptr(fmt.Sprintf("Auto-suggested from %s exchange data", t.Broker)),
		})
	}
	return out
}

func (m *Matcher) recorded(e journal.Entry, t Trade, at time.Time) bool {
	for _, x := range e.ActualExits {
		if math.Abs(x.Price-t.Price) < m.RecordedPrice && x.Timestamp.Equal(at) {
			return true
		}
	}
	return false
}

func normalizeAsset(s string) string {
	return strings.Map(func(r rune) rune {
		r = unicode.ToUpper(r)
		if (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') {
			return r
		}
		return -1
	}, s)
}

// assetMatch compares symbols after normalization, either containing the
// other, so "BTC" matches "BTC-USDT" and "btcusdt".
func assetMatch(coin, asset string) bool {
	a, b := normalizeAsset(coin), normalizeAsset(asset)
	if a == "" || b == "" {
		return false
	}
	return strings.Contains(a, b) || strings.Contains(b, a)
}

func sizeWithin(size, qty, tol float64) bool {
	if size <= 0 {
		return false
	}
	return math.Abs(size-math.Abs(qty))/size <= tol
}

func priceWithin(entry, price, tol float64) bool {
	if entry <= 0 {
		return false
	}
	return math.Abs(entry-price)/entry < tol
}

func sideMatch(d journal.Direction, side string) bool {
	return d.IsLong() == strings.EqualFold(side, "buy")
}

func absDuration(d time.Duration) time.Duration {
	if d < 0 {
		return -d
	}
	return d
}
