package journal

import (
	"fmt"
	"strings"
	"time"
)

// FormatEntryOrg renders an entry as an Org-mode block. Structured facts go
// into a PROPERTIES drawer; follow-ups and exits become sub-headings.
func FormatEntryOrg(e Entry) string {
	var b strings.Builder

	fmt.Fprintf(&b, "** %s %s on %s (%s) [%s]\n", e.Direction, e.Coin, e.Exchange, shortID(e.ID), e.Status)
	b.WriteString(":PROPERTIES:\n")
	fmt.Fprintf(&b, ":ID: %s\n", e.ID)
	fmt.Fprintf(&b, ":OPENED: %s\n", e.Timestamp.UTC().Format(time.RFC3339))
	fmt.Fprintf(&b, ":SIZE: %g\n", e.Size)
	fmt.Fprintf(&b, ":ENTRY: %g\n", e.EntryPrice)
	fmt.Fprintf(&b, ":STOP_LOSS: %g\n", e.StopLoss)
	fmt.Fprintf(&b, ":ORDER_TYPES: %s/%s\n", orMarket(e.EntryOrderType), orMarket(e.DefaultExitOrderType))
	fmt.Fprintf(&b, ":RISK: %.2f\n", e.Risk)
	fmt.Fprintf(&b, ":EST_FEES: %.2f\n", e.EstimatedFees)
	fmt.Fprintf(&b, ":REMAINING: %.2f%%\n", e.RemainingPosition())
	fmt.Fprintf(&b, ":REALIZED_PL: %.2f\n", e.TotalRealizedPnL())
	b.WriteString(":END:\n")

	if len(e.TakeProfits) > 0 {
		b.WriteString("\n*** Plan\n")
		for i, tp := range e.TakeProfits {
			pct := 0.0
			if tp.Percentage != nil {
				pct = *tp.Percentage
			}
			rr := 0.0
			if i < len(e.RiskReward) {
				rr = e.RiskReward[i]
			}
			fmt.Fprintf(&b, "- TP%d %g (%.0f%%, R:R %.2f)\n", tp.Level, tp.Price, pct, rr)
		}
	}

	if e.Notes != "" {
		b.WriteString("\n*** Notes\n")
		b.WriteString(e.Notes)
		b.WriteString("\n")
	}

	if len(e.FollowUps) > 0 {
		b.WriteString("\n*** Follow-ups\n")
		for _, f := range e.FollowUps {
			fmt.Fprintf(&b, "- [%s] %s: %s", f.Timestamp.UTC().Format("2006-01-02 15:04"), f.Type, f.Description)
			if f.Reasoning != "" {
				fmt.Fprintf(&b, " (%s)", f.Reasoning)
			}
			b.WriteString("\n")
		}
	}

	if len(e.ActualExits) > 0 {
		b.WriteString("\n*** Exits\n")
		for i, x := range e.ActualExits {
			fmt.Fprintf(&b, "- #%d [%s] %s %g x %.2f%% -> %.2f (%s)\n",
				i, x.Timestamp.UTC().Format("2006-01-02 15:04"), x.Type, x.Price, x.Percentage, x.PnL, x.PnLSource)
		}
	}

	return b.String()
}

// FormatEntriesOrg renders multiple entries separated by blank lines.
func FormatEntriesOrg(entries []Entry) string {
	var b strings.Builder
	for i, e := range entries {
		if i > 0 {
			b.WriteString("\n\n")
		}
		b.WriteString(FormatEntryOrg(e))
	}
	return b.String()
}

func shortID(full string) string {
	if i := strings.LastIndexByte(full, '_'); i >= 0 {
		full = full[i+1:]
	}
	if len(full) <= 8 {
		return full
	}
	return full[len(full)-8:]
}
