package journal

import (
	"strings"
	"time"

	"github.com/rustyeddy/tradejournal/fees"
	"github.com/rustyeddy/tradejournal/pkg/id"
	"github.com/rustyeddy/tradejournal/risk"
)

// Engine applies trade-lifecycle actions to entries. Every operation takes
// an entry by value and returns a new one; the input is never modified and
// a failed operation changes nothing.
type Engine struct {
	Fees  *fees.Calculator
	Now   func() time.Time
	NewID func(prefix string) string
}

// NewEngine returns an engine using calc for fee estimates.
func NewEngine(calc *fees.Calculator) *Engine {
	return &Engine{
		Fees:  calc,
		Now:   time.Now,
		NewID: id.WithPrefix,
	}
}

func (e *Engine) calc() *fees.Calculator {
	if e.Fees == nil {
		e.Fees = fees.Default()
	}
	return e.Fees
}

func (e *Engine) now() time.Time {
	if e.Now == nil {
		return time.Now().UTC()
	}
	return e.Now().UTC()
}

func (e *Engine) newID(prefix string) string {
	if e.NewID == nil {
		return id.WithPrefix(prefix)
	}
	return e.NewID(prefix)
}

// EntryInput holds the form fields of a new or edited entry.
type EntryInput struct {
	Exchange             string
	Coin                 string
	Direction            Direction
	Size                 float64
	EntryPrice           float64
	StopLoss             float64
	TakeProfits          []TakeProfit
	EntryOrderType       fees.OrderType // empty means Market
	DefaultExitOrderType fees.OrderType // empty means Market
	Notes                string
	Images               []string
}

func orMarket(o fees.OrderType) fees.OrderType {
	if o == "" {
		return fees.Market
	}
	return o
}

// Calculations are the figures derived from an EntryInput.
type Calculations struct {
	PositionSize     float64
	StopLossDistance float64
	RiskAmount       float64 // stop distance × size + estimated fees
	RiskPercentage   float64 // of the account, for display only
	EntryFee         float64
	ExitFee          float64
	EstimatedFees    float64

	// One element per priced take-profit, in input order.
	TakeProfits         []TakeProfit
	RiskRewardRatios    []float64
	PotentialPnL        []float64 // net of fees
	TakeProfitDistances []float64
}

func (in EntryInput) validate() error {
	if strings.TrimSpace(in.Exchange) == "" {
		return invalid("exchange", "required")
	}
	if strings.TrimSpace(in.Coin) == "" {
		return invalid("coin", "required")
	}
	if !in.Direction.Valid() {
		return invalid("direction", "must be Long or Short, got %q", in.Direction)
	}
	if !(in.Size > 0) {
		return invalid("size", "must be positive, got %v", in.Size)
	}
	if !(in.EntryPrice > 0) {
		return invalid("entry", "must be positive, got %v", in.EntryPrice)
	}
	if !(in.StopLoss > 0) {
		return invalid("stopLoss", "must be positive, got %v", in.StopLoss)
	}
	if risk.StopDistance(in.EntryPrice, in.StopLoss) == 0 {
		return invalid("stopLoss", "must differ from the entry price")
	}
	if len(in.TakeProfits) > MaxTakeProfits {
		return invalid("takeProfits", "at most %d levels, got %d", MaxTakeProfits, len(in.TakeProfits))
	}
	for i, tp := range in.TakeProfits {
		if tp.Percentage != nil && !(*tp.Percentage > 0 && *tp.Percentage <= 100) {
			return invalid("takeProfits", "level %d percentage must be in (0,100], got %v", i+1, *tp.Percentage)
		}
	}
	if in.EntryOrderType != "" && !in.EntryOrderType.Valid() {
		return invalid("entryOrderType", "unknown order type %q", in.EntryOrderType)
	}
	if in.DefaultExitOrderType != "" && !in.DefaultExitOrderType.Valid() {
		return invalid("defaultExitOrderType", "unknown order type %q", in.DefaultExitOrderType)
	}
	return nil
}

// pricedTakeProfits drops levels without a price and fills in levels and
// default percentages (an even split over the remaining levels).
func pricedTakeProfits(tps []TakeProfit) []TakeProfit {
	var out []TakeProfit
	for _, tp := range tps {
		if tp.Price > 0 {
			out = append(out, tp)
		}
	}
	out = cloneTakeProfits(out)
	for i := range out {
		if out[i].Level <= 0 {
			out[i].Level = i + 1
		}
		if out[i].Percentage == nil {
			out[i].Percentage = Ptr(100 / float64(len(out)))
		}
	}
	return out
}

func feeWarning(ws *warnings, w *fees.UnknownExchangeWarning) {
	if w != nil {
		ws.addOnce(WarnUnknownExchange, w.Error())
	}
}

// DeriveCalculations computes risk, fees, R:R ratios and potential P&L for
// in. Callers re-run it whenever the inputs change.
func (e *Engine) DeriveCalculations(in EntryInput, settings Settings) (Calculations, []Warning, error) {
	if err := in.validate(); err != nil {
		return Calculations{}, nil, err
	}

	var ws warnings
	long := in.Direction.IsLong()
	entryType := orMarket(in.EntryOrderType)
	exitType := orMarket(in.DefaultExitOrderType)

	dist := risk.StopDistance(in.EntryPrice, in.StopLoss)
	stop := in.StopLoss
	tf := e.calc().TradeFees(in.Exchange, entryType, exitType, in.Size, in.EntryPrice, &stop)
	feeWarning(&ws, tf.Warning)

	c := Calculations{
		PositionSize:     in.Size,
		StopLossDistance: dist,
		RiskAmount:       risk.PlannedRisk(in.Size, in.EntryPrice, in.StopLoss) + tf.Total,
		EntryFee:         tf.EntryFee,
		ExitFee:          tf.ExitFee,
		EstimatedFees:    tf.Total,
	}
	c.RiskPercentage = risk.RiskPct(c.RiskAmount, settings.AccountSize)

	c.TakeProfits = pricedTakeProfits(in.TakeProfits)
	for _, tp := range c.TakeProfits {
		price := tp.Price
		qty := in.Size * *tp.Percentage / 100
		tpFees := e.calc().TradeFees(in.Exchange, entryType, exitType, qty, in.EntryPrice, &price)

		distance := risk.StopDistance(in.EntryPrice, tp.Price)
		gross := distance * qty
		net := -(gross + tpFees.Total)
		if risk.Profitable(long, in.EntryPrice, tp.Price) {
			net = gross - tpFees.Total
		} else {
			ws.add(WarnTakeProfitWrongSide, "take-profit %d at %v is on the losing side of entry %v for a %s position",
				tp.Level, tp.Price, in.EntryPrice, strings.ToLower(string(in.Direction)))
		}

		c.RiskRewardRatios = append(c.RiskRewardRatios, risk.RR(in.EntryPrice, in.StopLoss, tp.Price))
		c.PotentialPnL = append(c.PotentialPnL, net)
		c.TakeProfitDistances = append(c.TakeProfitDistances, distance)
	}

	return c, ws, nil
}

// CreateEntry validates in and returns a new open entry with its derived
// fields filled in.
func (e *Engine) CreateEntry(in EntryInput, settings Settings) (Entry, Calculations, []Warning, error) {
	c, ws, err := e.DeriveCalculations(in, settings)
	if err != nil {
		return Entry{}, Calculations{}, nil, err
	}

	out := Entry{
		ID:          e.newID(id.PrefixTrade),
		Timestamp:   e.now(),
		Status:      StatusOpen,
		FollowUps:   []FollowUp{},
		ActualExits: []ActualExit{},
		Images:      []string{},
	}
	applyInput(&out, in, c)
	if in.Images != nil {
		out.Images = cloneSlice(in.Images)
	}
	return out, c, ws, nil
}

// UpdateEntry re-applies edited form fields to existing. Identity, creation
// time and lifecycle records are kept; status is re-derived from the exits.
func (e *Engine) UpdateEntry(existing Entry, in EntryInput, settings Settings) (Entry, Calculations, []Warning, error) {
	c, ws, err := e.DeriveCalculations(in, settings)
	if err != nil {
		return Entry{}, Calculations{}, nil, err
	}

	out := existing.Clone()
	applyInput(&out, in, c)
	if in.Images != nil {
		out.Images = cloneSlice(in.Images)
	}
	out.Status = DeriveStatus(out.ActualExits)
	return out, c, ws, nil
}

func applyInput(out *Entry, in EntryInput, c Calculations) {
	out.Exchange = strings.TrimSpace(in.Exchange)
	out.Coin = strings.TrimSpace(in.Coin)
	out.Size = in.Size
	out.Direction = in.Direction
	out.EntryPrice = in.EntryPrice
	out.StopLoss = in.StopLoss
	out.TakeProfits = c.TakeProfits
	if out.TakeProfits == nil {
		out.TakeProfits = []TakeProfit{}
	}
	out.EntryOrderType = orMarket(in.EntryOrderType)
	out.DefaultExitOrderType = orMarket(in.DefaultExitOrderType)
	out.Risk = c.RiskAmount
	out.RiskReward = cloneSlice(c.RiskRewardRatios)
	if out.RiskReward == nil {
		out.RiskReward = []float64{}
	}
	out.EstimatedFees = c.EstimatedFees
	out.Notes = in.Notes
}
