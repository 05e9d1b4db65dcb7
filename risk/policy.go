package risk

import "fmt"

// Policy limits planned entries. A zero field is not checked. Percentages
// are of the account size (2 means 2%).
type Policy struct {
	MaxRiskPct float64 `json:"maxRiskPct" yaml:"max_risk_pct"`
	MinRR      float64 `json:"minRR" yaml:"min_rr"`

	MaxOpenTrades int `json:"maxOpenTrades" yaml:"max_open_trades"`

	// Circuit breakers on realized losses.
	MaxDailyLossPct  float64 `json:"maxDailyLossPct" yaml:"max_daily_loss_pct"`
	MaxWeeklyLossPct float64 `json:"maxWeeklyLossPct" yaml:"max_weekly_loss_pct"`
}

// DefaultPolicy returns the limits used when none are configured.
func DefaultPolicy() Policy {
	return Policy{
		MaxRiskPct:       2,
		MinRR:            1.5,
		MaxOpenTrades:    5,
		MaxDailyLossPct:  3,
		MaxWeeklyLossPct: 6,
	}
}

// Validate reports the first field that can never be satisfied.
func (p Policy) Validate() error {
	switch {
	case p.MaxRiskPct < 0 || p.MaxRiskPct > 100:
		return fmt.Errorf("max_risk_pct must be between 0 and 100")
	case p.MinRR < 0:
		return fmt.Errorf("min_rr must not be negative")
	case p.MaxOpenTrades < 0:
		return fmt.Errorf("max_open_trades must not be negative")
	case p.MaxDailyLossPct < 0 || p.MaxWeeklyLossPct < 0:
		return fmt.Errorf("loss limits must not be negative")
	}
	return nil
}

// Intent is a planned entry as the policy sees it.
type Intent struct {
	Risk       float64   // planned loss at the stop, fees included
	RiskReward []float64 // one ratio per take-profit
}

// Account is the state the intent is checked against.
type Account struct {
	Size         float64
	OpenTrades   int     // entries not yet closed, excluding the intent
	DayRealized  float64 // net realized P&L since the start of the day
	WeekRealized float64
}

// Violation is one broken limit.
type Violation struct {
	Code string
	Msg  string
}

func (v Violation) String() string { return v.Code + ": " + v.Msg }

// Violation codes.
const (
	RiskTooHigh       = "RISK_TOO_HIGH"
	RRTooLow          = "RR_TOO_LOW"
	TooManyOpenTrades = "TOO_MANY_OPEN_TRADES"
	DailyLossLimit    = "DAILY_LOSS_LIMIT"
	WeeklyLossLimit   = "WEEKLY_LOSS_LIMIT"
)

// Decision is the outcome of Evaluate.
type Decision struct {
	Allowed    bool
	Violations []Violation

	RiskPct float64 // planned risk as a percent of the account
	BestRR  float64 // highest planned R:R, 0 without take-profits
}

func (d *Decision) add(code, msg string) {
	d.Violations = append(d.Violations, Violation{Code: code, Msg: msg})
	d.Allowed = false
}

// Evaluate checks intent against p. Limits expressed as a percentage of the
// account are skipped when the account size is unknown.
func Evaluate(p Policy, intent Intent, acct Account) Decision {
	d := Decision{Allowed: true}
	d.RiskPct = RiskPct(intent.Risk, acct.Size)
	for _, rr := range intent.RiskReward {
		if rr > d.BestRR {
			d.BestRR = rr
		}
	}

	if p.MaxRiskPct > 0 && acct.Size > 0 && d.RiskPct > p.MaxRiskPct {
		d.add(RiskTooHigh,
			fmt.Sprintf("planned risk %.2f%% exceeds max %.2f%%", d.RiskPct, p.MaxRiskPct))
	}
	if p.MinRR > 0 && len(intent.RiskReward) > 0 && d.BestRR < p.MinRR {
		d.add(RRTooLow,
			fmt.Sprintf("best R:R %.2f below minimum %.2f", d.BestRR, p.MinRR))
	}
	if p.MaxOpenTrades > 0 && acct.OpenTrades >= p.MaxOpenTrades {
		d.add(TooManyOpenTrades,
			fmt.Sprintf("open trades %d >= max %d", acct.OpenTrades, p.MaxOpenTrades))
	}

	if acct.Size > 0 {
		if limit := -Budget(acct.Size, p.MaxDailyLossPct); limit < 0 && acct.DayRealized <= limit {
			d.add(DailyLossLimit,
				fmt.Sprintf("day realized %.2f <= limit %.2f", acct.DayRealized, limit))
		}
		if limit := -Budget(acct.Size, p.MaxWeeklyLossPct); limit < 0 && acct.WeekRealized <= limit {
			d.add(WeeklyLossLimit,
				fmt.Sprintf("week realized %.2f <= limit %.2f", acct.WeekRealized, limit))
		}
	}
	return d
}
