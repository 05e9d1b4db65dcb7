package cmd

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/rustyeddy/tradejournal/fees"
	"github.com/rustyeddy/tradejournal/journal"
	"github.com/spf13/cobra"
)

// entryFlags are shared by entry add and entry update.
type entryFlags struct {
	exchange  string
	coin      string
	direction string
	size      float64
	entry     float64
	stop      float64
	tps       []string
	entryType string
	exitType  string
	notes     string
	images    []string
}

func (f *entryFlags) register(cmd *cobra.Command) {
	fl := cmd.Flags()
	fl.StringVarP(&f.exchange, "exchange", "x", "", "exchange name (Blofin, EdgeX, Breakout)")
	fl.StringVarP(&f.coin, "coin", "c", "", "asset symbol, e.g. BTCUSDT")
	fl.StringVarP(&f.direction, "direction", "d", "Long", "Long or Short")
	fl.Float64VarP(&f.size, "size", "s", 0, "position size in units of the asset")
	fl.Float64VarP(&f.entry, "entry", "e", 0, "entry price")
	fl.Float64Var(&f.stop, "stop", 0, "stop-loss price")
	fl.StringArrayVar(&f.tps, "tp", nil, "take-profit as PRICE or PRICE:PERCENT (repeatable, up to 4)")
	fl.StringVar(&f.entryType, "entry-order", "Market", "entry order type: Market or Limit")
	fl.StringVar(&f.exitType, "exit-order", "Market", "default exit order type: Market or Limit")
	fl.StringVar(&f.notes, "notes", "", "free-text notes")
	fl.StringArrayVar(&f.images, "image", nil, "image reference (repeatable)")
}

// input builds an EntryInput starting from base, taking only the flags
// that were set when base is not empty.
func (f *entryFlags) input(cmd *cobra.Command, base journal.EntryInput) (journal.EntryInput, error) {
	in := base
	fresh := base.Coin == ""
	set := func(name string) bool { return fresh || cmd.Flags().Changed(name) }

	if set("exchange") {
		in.Exchange = f.exchange
	}
	if set("coin") {
		in.Coin = f.coin
	}
	if set("direction") {
		d, err := parseDirection(f.direction)
		if err != nil {
			return in, err
		}
		in.Direction = d
	}
	if set("size") {
		in.Size = f.size
	}
	if set("entry") {
		in.EntryPrice = f.entry
	}
	if set("stop") {
		in.StopLoss = f.stop
	}
	if set("tp") {
		tps, err := parseTakeProfits(f.tps)
		if err != nil {
			return in, err
		}
		in.TakeProfits = tps
	}
	if set("entry-order") {
		in.EntryOrderType = fees.OrderType(canonical(f.entryType))
	}
	if set("exit-order") {
		in.DefaultExitOrderType = fees.OrderType(canonical(f.exitType))
	}
	if set("notes") {
		in.Notes = f.notes
	}
	if set("image") {
		in.Images = f.images
	}
	return in, nil
}

func inputFromEntry(e journal.Entry) journal.EntryInput {
	return journal.EntryInput{
		Exchange:             e.Exchange,
		Coin:                 e.Coin,
		Direction:            e.Direction,
		Size:                 e.Size,
		EntryPrice:           e.EntryPrice,
		StopLoss:             e.StopLoss,
		TakeProfits:          e.TakeProfits,
		EntryOrderType:       e.EntryOrderType,
		DefaultExitOrderType: e.DefaultExitOrderType,
		Notes:                e.Notes,
		Images:               e.Images,
	}
}

func parseDirection(s string) (journal.Direction, error) {
	switch strings.ToLower(s) {
	case "long", "buy":
		return journal.Long, nil
	case "short", "sell":
		return journal.Short, nil
	}
	return "", fmt.Errorf("direction must be Long or Short, got %q", s)
}

// canonical title-cases ASCII words like "limit" to "Limit".
func canonical(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + strings.ToLower(s[1:])
}

func parseOrderType(s string) (fees.OrderType, error) {
	o := fees.OrderType(canonical(s))
	if !o.Valid() {
		return "", fmt.Errorf("order type must be Market or Limit, got %q", s)
	}
	return o, nil
}

// parseTakeProfits reads PRICE or PRICE:PERCENT values in level order.
func parseTakeProfits(vals []string) ([]journal.TakeProfit, error) {
	tps := make([]journal.TakeProfit, 0, len(vals))
	for i, v := range vals {
		price, pct, hasPct := strings.Cut(v, ":")
		p, err := strconv.ParseFloat(strings.TrimSpace(price), 64)
		if err != nil {
			return nil, fmt.Errorf("take-profit %d: bad price %q", i+1, price)
		}
		tp := journal.TakeProfit{Level: i + 1, Price: p}
		if hasPct {
			x, err := strconv.ParseFloat(strings.TrimSuffix(strings.TrimSpace(pct), "%"), 64)
			if err != nil {
				return nil, fmt.Errorf("take-profit %d: bad percentage %q", i+1, pct)
			}
			tp.Percentage = journal.Ptr(x)
		}
		tps = append(tps, tp)
	}
	return tps, nil
}

func printCalculations(out io.Writer, c journal.Calculations) {
	fmt.Fprintf(out, "  Stop distance: %.4f\n", c.StopLossDistance)
	fmt.Fprintf(out, "  Fees:          %.4f (entry %.4f, exit %.4f)\n", c.EstimatedFees, c.EntryFee, c.ExitFee)
	fmt.Fprintf(out, "  Risk:          $%.2f (%.2f%% of account)\n", c.RiskAmount, c.RiskPercentage)
	for i, tp := range c.TakeProfits {
		pct := 0.0
		if tp.Percentage != nil {
			pct = *tp.Percentage
		}
		fmt.Fprintf(out, "  TP%d %-10g %5.1f%%  R:R %.2f  net $%.2f\n", tp.Level, tp.Price, pct, c.RiskRewardRatios[i], c.PotentialPnL[i])
	}
}
