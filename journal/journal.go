package journal

import (
	"time"

	"github.com/rustyeddy/tradejournal/fees"
)

// Direction of a position.
type Direction string

const (
	Long  Direction = "Long"
	Short Direction = "Short"
)

// Valid reports whether d is Long or Short.
func (d Direction) Valid() bool {
	return d == Long || d == Short
}

// IsLong reports whether d is Long.
func (d Direction) IsLong() bool {
	return d == Long
}

// Status of an entry. It is always derived from the entry's exits, see
// DeriveStatus.
type Status string

const (
	StatusOpen            Status = "Open"
	StatusPartiallyClosed Status = "Partially Closed"
	StatusClosed          Status = "Closed"
)

// FollowUpType classifies a follow-up annotation.
type FollowUpType string

const (
	FollowUpNote        FollowUpType = "note"
	FollowUpStopMove    FollowUpType = "stop_move"
	FollowUpPartialExit FollowUpType = "partial_exit"
	FollowUpFullExit    FollowUpType = "full_exit"
	FollowUpAddPosition FollowUpType = "add_position"
)

// Valid reports whether t is a known follow-up type.
func (t FollowUpType) Valid() bool {
	switch t {
	case FollowUpNote, FollowUpStopMove, FollowUpPartialExit, FollowUpFullExit, FollowUpAddPosition:
		return true
	}
	return false
}

// ExitType classifies how part of a position was closed.
type ExitType string

const (
	ExitStopLoss   ExitType = "stop_loss"
	ExitTakeProfit ExitType = "take_profit"
	ExitManual     ExitType = "manual"
)

// Valid reports whether t is a known exit type.
func (t ExitType) Valid() bool {
	return t == ExitStopLoss || t == ExitTakeProfit || t == ExitManual
}

// PnLSource records where an exit's P&L came from.
type PnLSource string

const (
	SourceCalculated PnLSource = "calculated"
	SourceManual     PnLSource = "manual"
	SourceExchange   PnLSource = "exchange"
)

// MaxTakeProfits is the number of planned take-profit levels an entry can carry.
const MaxTakeProfits = 4

// TakeProfit is a planned exit level.
type TakeProfit struct {
	Level      int      `json:"level"`
	Price      float64  `json:"price"`
	Percentage *float64 `json:"percentage,omitempty"` // of the position; nil means an even split
}

// FollowUp is an append-only annotation on an entry.
type FollowUp struct {
	ID             string       `json:"id"`
	Timestamp      time.Time    `json:"timestamp"`
	Type           FollowUpType `json:"type"`
	Description    string       `json:"description"`
	NewStopLoss    *float64     `json:"newStopLoss,omitempty"`
	ExitPrice      *float64     `json:"exitPrice,omitempty"`
	ExitPercentage *float64     `json:"exitPercentage,omitempty"`
	Reasoning      string       `json:"reasoning"`
	Images         []string     `json:"images,omitempty"`
}

// ActualExit is a realized close of part of a position. PnL is always the
// net value used for aggregates; ManualPnL keeps the raw user input.
type ActualExit struct {
	Timestamp       time.Time       `json:"timestamp"`
	Price           float64         `json:"price"`
	Percentage      float64         `json:"percentage"` // of the original position
	Type            ExitType        `json:"type"`
	PnL             float64         `json:"pnl"`
	PnLSource       PnLSource       `json:"pnlSource"`
	ManualPnL       *float64        `json:"manualPnl,omitempty"`
	ExchangeTradeID *string         `json:"exchangeTradeId,omitempty"`
	Fees            *float64        `json:"fees,omitempty"`
	OrderType       *fees.OrderType `json:"orderType,omitempty"`
	Notes           *string         `json:"notes,omitempty"`
}

// Entry is one manually tracked position.
type Entry struct {
	ID                   string         `json:"id"`
	Exchange             string         `json:"exchange"`
	Coin                 string         `json:"coin"`
	Size                 float64        `json:"size"`
	Direction            Direction      `json:"direction"`
	EntryPrice           float64        `json:"entry"`
	StopLoss             float64        `json:"stopLoss"`
	TakeProfits          []TakeProfit   `json:"takeProfits"`
	Timestamp            time.Time      `json:"timestamp"`
	Status               Status         `json:"status"`
	EntryOrderType       fees.OrderType `json:"entryOrderType,omitempty"`
	DefaultExitOrderType fees.OrderType `json:"defaultExitOrderType,omitempty"`

	Risk          float64   `json:"risk"`
	RiskReward    []float64 `json:"riskReward"`
	EstimatedFees float64   `json:"estimatedFees"`

	FollowUps   []FollowUp   `json:"followUps"`
	ActualExits []ActualExit `json:"actualExits"`
	Images      []string     `json:"images"`
	Notes       string       `json:"notes"`

	LinkedTrades []string `json:"linkedTrades,omitempty"`
}

// Settings is the process-wide journal configuration.
type Settings struct {
	DefaultExchanges []string `json:"defaultExchanges" yaml:"default_exchanges"`
	RiskPercentage   float64  `json:"riskPercentage" yaml:"risk_percentage"`
	AccountSize      float64  `json:"accountSize" yaml:"account_size"`
}

// DefaultSettings returns the settings used until the user changes them.
func DefaultSettings() Settings {
	return Settings{
		DefaultExchanges: []string{"Blofin", "EdgeX", "Breakout"},
		RiskPercentage:   2,
		AccountSize:      10000,
	}
}

// DeriveStatus maps the cumulative exited percentage to a status.
func DeriveStatus(exits []ActualExit) Status {
	total := exitedPercentage(exits)
	switch {
	case total >= 100:
		return StatusClosed
	case total > 0:
		return StatusPartiallyClosed
	default:
		return StatusOpen
	}
}

func exitedPercentage(exits []ActualExit) float64 {
	total := 0.0
	for _, x := range exits {
		total += x.Percentage
	}
	return total
}

// ExitedPercentage is the sum of exit percentages. It can exceed 100.
func (e Entry) ExitedPercentage() float64 {
	return exitedPercentage(e.ActualExits)
}

// RemainingPosition is the percentage of the position still open, never negative.
func (e Entry) RemainingPosition() float64 {
	rem := 100 - e.ExitedPercentage()
	if rem < 0 {
		return 0
	}
	return rem
}

// TotalRealizedPnL sums exit P&L, already net of fees, whatever its source.
func (e Entry) TotalRealizedPnL() float64 {
	total := 0.0
	for _, x := range e.ActualExits {
		total += x.PnL
	}
	return total
}

// Clone returns a deep copy of e.
func (e Entry) Clone() Entry {
	out := e
	out.TakeProfits = cloneTakeProfits(e.TakeProfits)
	out.RiskReward = cloneSlice(e.RiskReward)
	out.FollowUps = make([]FollowUp, len(e.FollowUps))
	for i, f := range e.FollowUps {
		out.FollowUps[i] = f.clone()
	}
	out.ActualExits = make([]ActualExit, len(e.ActualExits))
	for i, x := range e.ActualExits {
		out.ActualExits[i] = x.Clone()
	}
	out.Images = cloneSlice(e.Images)
	out.LinkedTrades = cloneSlice(e.LinkedTrades)
	return out
}

// Clone returns a deep copy of x.
func (x ActualExit) Clone() ActualExit {
	out := x
	out.ManualPnL = clonePtr(x.ManualPnL)
	out.ExchangeTradeID = clonePtr(x.ExchangeTradeID)
	out.Fees = clonePtr(x.Fees)
	out.OrderType = clonePtr(x.OrderType)
	out.Notes = clonePtr(x.Notes)
	return out
}

func (f FollowUp) clone() FollowUp {
	out := f
	out.NewStopLoss = clonePtr(f.NewStopLoss)
	out.ExitPrice = clonePtr(f.ExitPrice)
	out.ExitPercentage = clonePtr(f.ExitPercentage)
	out.Images = cloneSlice(f.Images)
	return out
}

func cloneTakeProfits(tps []TakeProfit) []TakeProfit {
	if tps == nil {
		return nil
	}
	out := make([]TakeProfit, len(tps))
	for i, tp := range tps {
		out[i] = tp
		out[i].Percentage = clonePtr(tp.Percentage)
	}
	return out
}

func cloneSlice[T any](s []T) []T {
	if s == nil {
		return nil
	}
	out := make([]T, len(s))
	copy(out, s)
	return out
}

func clonePtr[T any](p *T) *T {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}

// Ptr returns a pointer to v, for filling optional fields.
func Ptr[T any](v T) *T {
	return &v
}
