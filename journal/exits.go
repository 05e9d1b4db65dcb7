package journal

import (
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/rustyeddy/tradejournal/fees"
	"github.com/rustyeddy/tradejournal/pkg/id"
	"github.com/rustyeddy/tradejournal/risk"
)

// Plausibility thresholds for manually entered P&L.
const (
	pnlNoiseFloor       = 1.0  // ignore sign disagreements below $1
	pnlMismatchAbsolute = 10.0 // dollars
	pnlMismatchRelative = 20.0 // percent of |calculated|
)

// ExitRequest holds the fields of a new or edited exit. Zero values mean
// "not given".
type ExitRequest struct {
	Price      float64
	Percentage float64 // of the original position
	Type       ExitType

	Fees      *float64 // overrides the estimate when set
	ManualPnL *float64 // gross P&L entered by the user
	OrderType *fees.OrderType

	// Calculated drops a manual P&L carried over from the edited exit.
	Calculated bool

	Notes           string
	ExchangeTradeID string
	Timestamp       time.Time
}

// PnLCheck is the result of CheckPnL.
type PnLCheck struct {
	IsValid       bool
	Warning       *Warning
	CalculatedPnL float64
}

// CheckPnL compares a manually entered P&L with the P&L implied by the
// prices. It is advisory; the caller decides whether to proceed.
func CheckPnL(direction Direction, entryPrice, exitPrice, manualPnL, positionSize float64) PnLCheck {
	long := direction.IsLong()
	calculated := risk.PnL(long, entryPrice, exitPrice, positionSize)

	expectedProfit := calculated > 0
	manualProfit := manualPnL > 0
	if expectedProfit != manualProfit && math.Abs(manualPnL) > pnlNoiseFloor {
		movement := "did not move"
		switch {
		case exitPrice > entryPrice:
			movement = "moved up"
		case exitPrice < entryPrice:
			movement = "moved down"
		}
		return PnLCheck{
			IsValid: false,
			Warning: &Warning{
				Code: WarnPnLSignMismatch,
				Msg: fmt.Sprintf("for a %s position, price %s (%.4f -> %.4f), suggesting %s, but the manual P&L shows %s",
					strings.ToLower(string(direction)), movement, entryPrice, exitPrice,
					profitOrLoss(expectedProfit), profitOrLoss(manualProfit)),
			},
			CalculatedPnL: calculated,
		}
	}

	diff := math.Abs(manualPnL - calculated)
	pct := 0.0
	if calculated != 0 {
		pct = diff / math.Abs(calculated) * 100
	}
	if diff > pnlMismatchAbsolute && pct > pnlMismatchRelative {
		return PnLCheck{
			IsValid: false,
			Warning: &Warning{
				Code: WarnPnLMagnitudeMismatch,
				Msg:  fmt.Sprintf("manual P&L ($%.2f) differs significantly from calculated P&L ($%.2f)", manualPnL, calculated),
			},
			CalculatedPnL: calculated,
		}
	}

	return PnLCheck{IsValid: true, CalculatedPnL: calculated}
}

func profitOrLoss(profit bool) string {
	if profit {
		return "profit"
	}
	return "loss"
}

// buildExit computes an exit for entry from req. base is the exit being
// edited, or nil for a new exit; unset request fields fall back to it. An
// edited exit keeps its recorded fees (none recorded means zero) and, unless
// req.Calculated is set, its manual P&L.
func (e *Engine) buildExit(entry Entry, req ExitRequest, base *ActualExit) (ActualExit, warnings, error) {
	if !(req.Price > 0) {
		return ActualExit{}, nil, invalid("price", "must be positive, got %v", req.Price)
	}
	if !(req.Percentage > 0) {
		return ActualExit{}, nil, invalid("percentage", "must be positive, got %v", req.Percentage)
	}
	if req.Type != "" && !req.Type.Valid() {
		return ActualExit{}, nil, invalid("type", "unknown exit type %q", req.Type)
	}
	if req.OrderType != nil && !req.OrderType.Valid() {
		return ActualExit{}, nil, invalid("orderType", "unknown order type %q", *req.OrderType)
	}
	if req.Fees != nil && (*req.Fees < 0 || math.IsNaN(*req.Fees)) {
		return ActualExit{}, nil, invalid("fees", "must not be negative, got %v", *req.Fees)
	}
	if req.ManualPnL != nil && (math.IsNaN(*req.ManualPnL) || math.IsInf(*req.ManualPnL, 0)) {
		return ActualExit{}, nil, invalid("manualPnl", "must be a finite number")
	}

	if base != nil {
		if req.Fees == nil {
			req.Fees = Ptr(0.0)
			if base.Fees != nil {
				req.Fees = Ptr(*base.Fees)
			}
		}
		if req.ManualPnL == nil && !req.Calculated && base.PnLSource == SourceManual && base.ManualPnL != nil {
			req.ManualPnL = Ptr(*base.ManualPnL)
		}
	}

	var ws warnings
	x := ActualExit{
		Timestamp:  req.Timestamp,
		Price:      req.Price,
		Percentage: req.Percentage,
		Type:       req.Type,
	}
	if base != nil {
		if x.Timestamp.IsZero() {
			x.Timestamp = base.Timestamp
		}
		if x.Type == "" {
			x.Type = base.Type
		}
		x.ExchangeTradeID = clonePtr(base.ExchangeTradeID)
		x.Notes = clonePtr(base.Notes)
	}
	if x.Timestamp.IsZero() {
		x.Timestamp = e.now()
	}
	if x.Type == "" {
		x.Type = ExitManual
	}
	if req.ExchangeTradeID != "" {
		x.ExchangeTradeID = Ptr(req.ExchangeTradeID)
	}
	if req.Notes != "" {
		x.Notes = Ptr(req.Notes)
	}

	orderType := orMarket(entry.DefaultExitOrderType)
	if base != nil && base.OrderType != nil {
		orderType = *base.OrderType
	}
	if req.OrderType != nil {
		orderType = *req.OrderType
	}
	x.OrderType = Ptr(orderType)

	qty := entry.Size * req.Percentage / 100
	calculated := risk.PnL(entry.Direction.IsLong(), entry.EntryPrice, req.Price, qty)

	fee := 0.0
	if req.Fees != nil {
		fee = *req.Fees
	} else {
		price := req.Price
		tf := e.calc().TradeFees(entry.Exchange, orMarket(entry.EntryOrderType), orderType, qty, entry.EntryPrice, &price)
		feeWarning(&ws, tf.Warning)
		fee = tf.Total
	}
	if fee > 0 {
		x.Fees = Ptr(fee)
	}

	gross := calculated
	x.PnLSource = SourceCalculated
	if req.ManualPnL != nil {
		check := CheckPnL(entry.Direction, entry.EntryPrice, req.Price, *req.ManualPnL, qty)
		if check.Warning != nil {
			ws = append(ws, *check.Warning)
		}
		gross = *req.ManualPnL
		x.PnLSource = SourceManual
		x.ManualPnL = Ptr(*req.ManualPnL)
	}
	x.PnL = gross - fee

	return x, ws, nil
}

func overAllocation(ws *warnings, out Entry) {
	if total := out.ExitedPercentage(); total > 100 {
		ws.add(WarnOverAllocated, "exits total %.2f%% of the position", total)
	}
}

// AddExit records a realized exit and re-derives the status. Exits that
// push the total past 100% are accepted and reported with a warning.
func (e *Engine) AddExit(entry Entry, req ExitRequest) (Entry, []Warning, error) {
	x, ws, err := e.buildExit(entry, req, nil)
	if err != nil {
		return Entry{}, nil, err
	}

	out := entry.Clone()
	out.ActualExits = append(out.ActualExits, x)
	out.Status = DeriveStatus(out.ActualExits)
	overAllocation(&ws, out)
	return out, ws, nil
}

// EditExit replaces the exit at index, recomputing its P&L.
func (e *Engine) EditExit(entry Entry, index int, req ExitRequest) (Entry, []Warning, error) {
	if index < 0 || index >= len(entry.ActualExits) {
		return Entry{}, nil, &IndexError{Index: index, Len: len(entry.ActualExits)}
	}

	base := entry.ActualExits[index]
	x, ws, err := e.buildExit(entry, req, &base)
	if err != nil {
		return Entry{}, nil, err
	}

	out := entry.Clone()
	out.ActualExits[index] = x
	out.Status = DeriveStatus(out.ActualExits)
	overAllocation(&ws, out)
	return out, ws, nil
}

// DeleteExit removes the exit at index and re-derives the status.
func (e *Engine) DeleteExit(entry Entry, index int) (Entry, error) {
	if index < 0 || index >= len(entry.ActualExits) {
		return Entry{}, &IndexError{Index: index, Len: len(entry.ActualExits)}
	}

	out := entry.Clone()
	out.ActualExits = append(out.ActualExits[:index], out.ActualExits[index+1:]...)
	out.Status = DeriveStatus(out.ActualExits)
	return out, nil
}

// AddFollowUp appends f. A partial or full exit follow-up with an exit
// price also records an exit using the entry's default exit order type;
// the two records are independent afterwards.
func (e *Engine) AddFollowUp(entry Entry, f FollowUp) (Entry, []Warning, error) {
	if !f.Type.Valid() {
		return Entry{}, nil, invalid("type", "unknown follow-up type %q", f.Type)
	}

	f = f.clone()
	if f.ID == "" {
		f.ID = e.newID(id.PrefixFollowUp)
	}
	if f.Timestamp.IsZero() {
		f.Timestamp = e.now()
	}

	out := entry.Clone()
	var ws []Warning

	isExit := f.Type == FollowUpPartialExit || f.Type == FollowUpFullExit
	if isExit && f.ExitPrice != nil && *f.ExitPrice > 0 {
		req := ExitRequest{
			Price:     *f.ExitPrice,
			Type:      ExitTakeProfit,
			OrderType: Ptr(orMarket(entry.DefaultExitOrderType)),
			Timestamp: f.Timestamp,
		}
		if f.Type == FollowUpFullExit {
			req.Percentage = 100
			req.Type = ExitManual
		} else if f.ExitPercentage != nil {
			req.Percentage = *f.ExitPercentage
		}

		var err error
		out, ws, err = e.AddExit(out, req)
		if err != nil {
			return Entry{}, nil, fmt.Errorf("follow-up exit: %w", err)
		}
	}

	out.FollowUps = append(out.FollowUps, f)
	return out, ws, nil
}
