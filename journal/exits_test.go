package journal

import (
	"errors"
	"testing"
	"time"

	"github.com/rustyeddy/tradejournal/fees"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openLong(t *testing.T, e *Engine) Entry {
	t.Helper()

	entry, _, _, err := e.CreateEntry(EntryInput{
		Exchange:             "Blofin",
		Coin:                 "SOL",
		Direction:            Long,
		Size:                 10,
		EntryPrice:           100,
		StopLoss:             90,
		TakeProfits:          []TakeProfit{{Price: 120}},
		DefaultExitOrderType: fees.Limit,
	}, DefaultSettings())
	require.NoError(t, err)
	return entry
}

func TestCheckPnL(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		direction Direction
		entry     float64
		exit      float64
		manual    float64
		size      float64
		valid     bool
		code      string
		calc      float64
	}{
		{"long loss entered as profit", Long, 100, 90, 50, 1, false, WarnPnLSignMismatch, -10},
		{"long within noise", Long, 100, 110, 99, 10, true, "", 100},
		{"short profit entered as loss", Short, 100, 90, -40, 4, false, WarnPnLSignMismatch, 40},
		{"sign flip under $1 floor", Long, 100, 99, 0.5, 1, true, "", -1},
		{"magnitude mismatch", Long, 100, 110, 150, 10, false, WarnPnLMagnitudeMismatch, 100},
		{"large but under 20 percent", Long, 100, 200, 1150, 10, true, "", 1000},
		{"over 20 percent but under $10", Long, 100, 101, 9, 1, true, "", 1},
		{"flat price", Short, 100, 100, -0.5, 3, true, "", 0},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got := CheckPnL(tt.direction, tt.entry, tt.exit, tt.manual, tt.size)
			assert.Equal(t, tt.valid, got.IsValid)
			assert.InDelta(t, tt.calc, got.CalculatedPnL, 1e-9)
			if tt.valid {
				assert.Nil(t, got.Warning)
				return
			}
			require.NotNil(t, got.Warning)
			assert.Equal(t, tt.code, got.Warning.Code)
		})
	}
}

func TestCheckPnLSignMessage(t *testing.T) {
	t.Parallel()

	got := CheckPnL(Long, 100, 90, 50, 1)
	require.NotNil(t, got.Warning)
	assert.Contains(t, got.Warning.Msg, "long position, price moved down")
	assert.Contains(t, got.Warning.Msg, "suggesting loss")
	assert.Contains(t, got.Warning.Msg, "manual P&L shows profit")
}

func TestCheckPnLFlatPriceMessage(t *testing.T) {
	t.Parallel()

	for _, d := range []Direction{Long, Short} {
		got := CheckPnL(d, 100, 100, 5, 1)
		require.NotNil(t, got.Warning, "%s", d)
		assert.Contains(t, got.Warning.Msg, "price did not move (100.0000 -> 100.0000)")
		assert.Contains(t, got.Warning.Msg, "suggesting loss")
	}

	got := CheckPnL(Short, 100, 110, 30, 1)
	require.NotNil(t, got.Warning)
	assert.Contains(t, got.Warning.Msg, "short position, price moved up")
}

func TestAddExitCalculated(t *testing.T) {
	t.Parallel()

	e := newTestEngine()
	entry := openLong(t, e)

	out, ws, err := e.AddExit(entry, ExitRequest{Price: 110, Percentage: 50, Fees: Ptr(2.0), Notes: "TP1"})
	require.NoError(t, err)
	assert.Empty(t, ws)

	require.Len(t, out.ActualExits, 1)
	x := out.ActualExits[0]
	assert.InDelta(t, 48.0, x.PnL, 1e-9)
	assert.Equal(t, SourceCalculated, x.PnLSource)
	assert.Nil(t, x.ManualPnL)
	assert.InDelta(t, 2.0, *x.Fees, 1e-12)
	assert.Equal(t, ExitManual, x.Type)
	assert.Equal(t, fees.Limit, *x.OrderType)
	assert.Equal(t, "TP1", *x.Notes)
	assert.True(t, x.Timestamp.Equal(testNow))

	assert.Equal(t, StatusPartiallyClosed, out.Status)
	assert.InDelta(t, 50.0, out.RemainingPosition(), 1e-12)

	// The input entry is unchanged.
	assert.Empty(t, entry.ActualExits)
	assert.Equal(t, StatusOpen, entry.Status)
}

func TestAddExitEstimatesFees(t *testing.T) {
	t.Parallel()

	e := newTestEngine()
	entry := openLong(t, e)

	out, _, err := e.AddExit(entry, ExitRequest{Price: 110, Percentage: 50, OrderType: Ptr(fees.Market)})
	require.NoError(t, err)

	// Round trip on 5 units: entry 5×100×0.0006, exit 5×110×0.0006.
	fee := 0.3 + 0.33
	x := out.ActualExits[0]
	require.NotNil(t, x.Fees)
	assert.InDelta(t, fee, *x.Fees, 1e-9)
	assert.InDelta(t, 50-fee, x.PnL, 1e-9)
	assert.Equal(t, fees.Market, *x.OrderType)
}

func TestAddExitManualPnL(t *testing.T) {
	t.Parallel()

	e := newTestEngine()
	entry := openLong(t, e)

	out, ws, err := e.AddExit(entry, ExitRequest{Price: 110, Percentage: 100, ManualPnL: Ptr(99.0), Fees: Ptr(0.0)})
	require.NoError(t, err)
	assert.Empty(t, ws)

	x := out.ActualExits[0]
	assert.Equal(t, SourceManual, x.PnLSource)
	assert.InDelta(t, 99.0, *x.ManualPnL, 1e-12)
	assert.InDelta(t, 99.0, x.PnL, 1e-12)
	assert.Nil(t, x.Fees)
	assert.Equal(t, StatusClosed, out.Status)
}

func TestAddExitImplausibleManualPnLIsRecorded(t *testing.T) {
	t.Parallel()

	e := newTestEngine()
	entry := openLong(t, e)

	out, ws, err := e.AddExit(entry, ExitRequest{Price: 90, Percentage: 10, ManualPnL: Ptr(50.0), Fees: Ptr(1.0)})
	require.NoError(t, err)
	require.Len(t, ws, 1)
	assert.Equal(t, WarnPnLSignMismatch, ws[0].Code)
	assert.True(t, HasPnLWarning(ws))

	require.Len(t, out.ActualExits, 1)
	assert.InDelta(t, 49.0, out.ActualExits[0].PnL, 1e-12)
}

func TestAddExitOverAllocation(t *testing.T) {
	t.Parallel()

	e := newTestEngine()
	entry := openLong(t, e)

	entry, ws, err := e.AddExit(entry, ExitRequest{Price: 110, Percentage: 60, Fees: Ptr(0.0)})
	require.NoError(t, err)
	assert.Empty(t, ws)

	entry, ws, err = e.AddExit(entry, ExitRequest{Price: 115, Percentage: 60, Fees: Ptr(0.0)})
	require.NoError(t, err)
	require.Len(t, ws, 1)
	assert.Equal(t, WarnOverAllocated, ws[0].Code)

	assert.Equal(t, StatusClosed, entry.Status)
	assert.InDelta(t, 120.0, entry.ExitedPercentage(), 1e-12)
	assert.Equal(t, 0.0, entry.RemainingPosition())
}

func TestAddExitValidation(t *testing.T) {
	t.Parallel()

	e := newTestEngine()
	entry := openLong(t, e)

	bad := []ExitRequest{
		{Price: 0, Percentage: 10},
		{Price: 110, Percentage: 0},
		{Price: 110, Percentage: -5},
		{Price: 110, Percentage: 10, Type: "liquidation"},
		{Price: 110, Percentage: 10, OrderType: Ptr(fees.OrderType("Stop"))},
		{Price: 110, Percentage: 10, Fees: Ptr(-1.0)},
	}
	for _, req := range bad {
		_, _, err := e.AddExit(entry, req)
		assert.True(t, errors.Is(err, ErrValidation), "request %+v", req)
	}
	assert.Empty(t, entry.ActualExits)
}

func TestEditExit(t *testing.T) {
	t.Parallel()

	e := newTestEngine()
	entry := openLong(t, e)

	stamp := time.Date(2024, 5, 2, 9, 30, 0, 0, time.UTC)
	entry, _, err := e.AddExit(entry, ExitRequest{
		Price: 110, Percentage: 50, Fees: Ptr(0.0),
		ExchangeTradeID: "blofin-1", Timestamp: stamp, Type: ExitTakeProfit,
	})
	require.NoError(t, err)

	out, ws, err := e.EditExit(entry, 0, ExitRequest{Price: 112, Percentage: 100, ManualPnL: Ptr(118.0), Fees: Ptr(3.0)})
	require.NoError(t, err)
	assert.Empty(t, ws)

	x := out.ActualExits[0]
	assert.True(t, x.Timestamp.Equal(stamp))
	assert.Equal(t, ExitTakeProfit, x.Type)
	assert.Equal(t, "blofin-1", *x.ExchangeTradeID)
	assert.Equal(t, SourceManual, x.PnLSource)
	assert.InDelta(t, 115.0, x.PnL, 1e-12)
	assert.Equal(t, StatusClosed, out.Status)

	// Editing back to a calculated P&L drops the manual value.
	out, _, err = e.EditExit(out, 0, ExitRequest{Price: 112, Percentage: 25, Fees: Ptr(0.0), Calculated: true})
	require.NoError(t, err)
	assert.Equal(t, SourceCalculated, out.ActualExits[0].PnLSource)
	assert.Nil(t, out.ActualExits[0].ManualPnL)
	assert.InDelta(t, 30.0, out.ActualExits[0].PnL, 1e-12)
	assert.Equal(t, StatusPartiallyClosed, out.Status)
}

func TestEditExitKeepsFeesAndManualPnL(t *testing.T) {
	t.Parallel()

	e := newTestEngine()
	entry := openLong(t, e)
	entry, _, err := e.AddExit(entry, ExitRequest{Price: 110, Percentage: 50, Fees: Ptr(5.0), ManualPnL: Ptr(48.0)})
	require.NoError(t, err)
	require.InDelta(t, 43.0, entry.ActualExits[0].PnL, 1e-12)

	out, ws, err := e.EditExit(entry, 0, ExitRequest{Price: 111, Percentage: 50})
	require.NoError(t, err)
	assert.Empty(t, ws)

	x := out.ActualExits[0]
	assert.InDelta(t, 111.0, x.Price, 1e-12)
	require.NotNil(t, x.Fees)
	assert.InDelta(t, 5.0, *x.Fees, 1e-12)
	require.NotNil(t, x.ManualPnL)
	assert.InDelta(t, 48.0, *x.ManualPnL, 1e-12)
	assert.Equal(t, SourceManual, x.PnLSource)
	assert.InDelta(t, 43.0, x.PnL, 1e-12)

	// The stored exit is not aliased.
	*x.Fees = 9
	assert.InDelta(t, 5.0, *entry.ActualExits[0].Fees, 1e-12)

	// Explicit values still win.
	out, _, err = e.EditExit(entry, 0, ExitRequest{Price: 111, Percentage: 50, Fees: Ptr(1.0), ManualPnL: Ptr(50.0)})
	require.NoError(t, err)
	assert.InDelta(t, 49.0, out.ActualExits[0].PnL, 1e-12)
}

func TestEditExitWithoutRecordedFees(t *testing.T) {
	t.Parallel()

	e := newTestEngine()
	entry := openLong(t, e)
	entry, _, err := e.AddExit(entry, ExitRequest{Price: 110, Percentage: 50, Fees: Ptr(0.0)})
	require.NoError(t, err)
	require.Nil(t, entry.ActualExits[0].Fees)

	out, _, err := e.EditExit(entry, 0, ExitRequest{Price: 112, Percentage: 50})
	require.NoError(t, err)
	x := out.ActualExits[0]
	assert.Nil(t, x.Fees)
	assert.Equal(t, SourceCalculated, x.PnLSource)
	assert.InDelta(t, 60.0, x.PnL, 1e-12)
}

func TestEditAndDeleteExitIndexErrors(t *testing.T) {
	t.Parallel()

	e := newTestEngine()
	entry := openLong(t, e)
	entry, _, err := e.AddExit(entry, ExitRequest{Price: 110, Percentage: 50, Fees: Ptr(0.0)})
	require.NoError(t, err)

	for _, idx := range []int{-1, 1, 7} {
		_, _, err := e.EditExit(entry, idx, ExitRequest{Price: 110, Percentage: 10})
		assert.True(t, errors.Is(err, ErrIndex))

		_, err = e.DeleteExit(entry, idx)
		var ie *IndexError
		require.True(t, errors.As(err, &ie))
		assert.Equal(t, idx, ie.Index)
		assert.Equal(t, 1, ie.Len)
	}
	assert.Len(t, entry.ActualExits, 1)
}

func TestDeleteOnlyExitReopens(t *testing.T) {
	t.Parallel()

	e := newTestEngine()
	entry := openLong(t, e)
	entry, _, err := e.AddExit(entry, ExitRequest{Price: 120, Percentage: 100, Fees: Ptr(0.0)})
	require.NoError(t, err)
	require.Equal(t, StatusClosed, entry.Status)

	out, err := e.DeleteExit(entry, 0)
	require.NoError(t, err)
	assert.Empty(t, out.ActualExits)
	assert.Equal(t, StatusOpen, out.Status)
	assert.Equal(t, StatusClosed, entry.Status)
}

func TestStatusFollowsExitedPercentage(t *testing.T) {
	t.Parallel()

	e := newTestEngine()
	entry := openLong(t, e)

	type op struct {
		kind  string
		index int
		pct   float64
	}
	ops := []op{
		{"add", 0, 25},
		{"add", 0, 25},
		{"edit", 1, 75},
		{"add", 0, 10},
		{"delete", 0, 0},
		{"delete", 0, 0},
		{"edit", 0, 100},
		{"delete", 0, 0},
	}

	for i, o := range ops {
		var err error
		switch o.kind {
		case "add":
			entry, _, err = e.AddExit(entry, ExitRequest{Price: 105, Percentage: o.pct, Fees: Ptr(0.0)})
		case "edit":
			entry, _, err = e.EditExit(entry, o.index, ExitRequest{Price: 105, Percentage: o.pct, Fees: Ptr(0.0)})
		case "delete":
			entry, err = e.DeleteExit(entry, o.index)
		}
		require.NoError(t, err, "op %d", i)

		sum := entry.ExitedPercentage()
		switch {
		case sum == 0:
			assert.Equal(t, StatusOpen, entry.Status, "op %d", i)
		case sum < 100:
			assert.Equal(t, StatusPartiallyClosed, entry.Status, "op %d", i)
		default:
			assert.Equal(t, StatusClosed, entry.Status, "op %d", i)
		}
		assert.GreaterOrEqual(t, entry.RemainingPosition(), 0.0)
	}
	assert.Equal(t, StatusOpen, entry.Status)
}

func TestTotalRealizedPnLIgnoresSource(t *testing.T) {
	t.Parallel()

	entry := Entry{ActualExits: []ActualExit{
		{Percentage: 20, PnL: 12.5, PnLSource: SourceCalculated},
		{Percentage: 30, PnL: -4, PnLSource: SourceManual},
		{Percentage: 50, PnL: 30.25, PnLSource: SourceExchange},
	}}
	assert.InDelta(t, 38.75, entry.TotalRealizedPnL(), 1e-12)
	assert.Equal(t, StatusClosed, DeriveStatus(entry.ActualExits))
}

func TestAddFollowUpNote(t *testing.T) {
	t.Parallel()

	e := newTestEngine()
	entry := openLong(t, e)

	out, ws, err := e.AddFollowUp(entry, FollowUp{
		Type:        FollowUpStopMove,
		Description: "stop to breakeven",
		Reasoning:   "new higher low",
		NewStopLoss: Ptr(100.0),
	})
	require.NoError(t, err)
	assert.Empty(t, ws)

	require.Len(t, out.FollowUps, 1)
	f := out.FollowUps[0]
	assert.Equal(t, "followup_2", f.ID)
	assert.True(t, f.Timestamp.Equal(testNow))
	assert.Empty(t, out.ActualExits)
	assert.Equal(t, StatusOpen, out.Status)
	assert.Empty(t, entry.FollowUps)
}

func TestAddFollowUpPartialExit(t *testing.T) {
	t.Parallel()

	e := newTestEngine()
	entry := openLong(t, e)

	out, _, err := e.AddFollowUp(entry, FollowUp{
		Type:           FollowUpPartialExit,
		Description:    "scaled out",
		Reasoning:      "resistance",
		ExitPrice:      Ptr(110.0),
		ExitPercentage: Ptr(25.0),
	})
	require.NoError(t, err)

	require.Len(t, out.FollowUps, 1)
	require.Len(t, out.ActualExits, 1)

	x := out.ActualExits[0]
	assert.InDelta(t, 25.0, x.Percentage, 1e-12)
	assert.Equal(t, ExitTakeProfit, x.Type)
	assert.Equal(t, fees.Limit, *x.OrderType)
	assert.Equal(t, SourceCalculated, x.PnLSource)
	assert.True(t, x.Timestamp.Equal(out.FollowUps[0].Timestamp))

	// 2.5 units, Market entry 0.06% and Limit exit 0.02%.
	fee := 2.5*100*0.0006 + 2.5*110*0.0002
	assert.InDelta(t, 25-fee, x.PnL, 1e-9)
	assert.Equal(t, StatusPartiallyClosed, out.Status)
}

func TestAddFollowUpFullExit(t *testing.T) {
	t.Parallel()

	e := newTestEngine()
	entry := openLong(t, e)

	out, _, err := e.AddFollowUp(entry, FollowUp{
		Type:           FollowUpFullExit,
		Description:    "closed",
		Reasoning:      "target hit",
		ExitPrice:      Ptr(120.0),
		ExitPercentage: Ptr(25.0),
	})
	require.NoError(t, err)

	require.Len(t, out.ActualExits, 1)
	assert.InDelta(t, 100.0, out.ActualExits[0].Percentage, 1e-12)
	assert.Equal(t, ExitManual, out.ActualExits[0].Type)
	assert.Equal(t, StatusClosed, out.Status)
}

func TestAddFollowUpExitWithoutPriceIsNoteOnly(t *testing.T) {
	t.Parallel()

	e := newTestEngine()
	entry := openLong(t, e)

	out, _, err := e.AddFollowUp(entry, FollowUp{Type: FollowUpFullExit, Description: "plan to close", Reasoning: "weak"})
	require.NoError(t, err)
	assert.Len(t, out.FollowUps, 1)
	assert.Empty(t, out.ActualExits)
}

func TestAddFollowUpFailsAtomically(t *testing.T) {
	t.Parallel()

	e := newTestEngine()
	entry := openLong(t, e)

	// A partial exit without a percentage cannot produce an exit.
	_, _, err := e.AddFollowUp(entry, FollowUp{Type: FollowUpPartialExit, Description: "x", Reasoning: "y", ExitPrice: Ptr(110.0)})
	assert.True(t, errors.Is(err, ErrValidation))

	_, _, err = e.AddFollowUp(entry, FollowUp{Type: "rebalance"})
	assert.True(t, errors.Is(err, ErrValidation))

	assert.Empty(t, entry.FollowUps)
	assert.Empty(t, entry.ActualExits)
}

func TestCloneIsDeep(t *testing.T) {
	t.Parallel()

	e := newTestEngine()
	entry := openLong(t, e)
	entry, _, err := e.AddExit(entry, ExitRequest{Price: 110, Percentage: 50, Notes: "a"})
	require.NoError(t, err)

	c := entry.Clone()
	*c.ActualExits[0].Notes = "b"
	*c.TakeProfits[0].Percentage = 1
	c.RiskReward[0] = 99

	assert.Equal(t, "a", *entry.ActualExits[0].Notes)
	assert.InDelta(t, 100.0, *entry.TakeProfits[0].Percentage, 1e-12)
	assert.NotEqual(t, 99.0, entry.RiskReward[0])
}
