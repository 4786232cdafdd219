// Package calc derives P&L and performance figures from position snapshots.
// Every function is pure; the current time is always passed in.
package calc

import (
	"time"

	"investorportal/internal/models"

	"github.com/Rhymond/go-money"
	"github.com/shopspring/decimal"
)

// percentPrecision is the number of decimal places kept when dividing.
const percentPrecision = 12

var hundred = decimal.NewFromInt(100)

// UnrealizedPnL returns (market - entry) * quantity for an open position.
// Closed positions and positions without a market price yield zero.
func UnrealizedPnL(p *models.Position) decimal.Decimal {
	if p.Status == models.StatusClosed || !present(p.MarketPrice) {
		return decimal.Zero
	}
	return p.MarketPrice.Decimal.Sub(p.EntryPrice).Mul(p.Quantity)
}

// PerformancePct returns ((current / entry) - 1) * 100 where current is the
// closing price of a closed position and the market price otherwise.
func PerformancePct(p *models.Position) decimal.Decimal {
	current := p.MarketPrice
	if p.Status == models.StatusClosed {
		current = p.ClosingPrice
	}
	if !present(current) || p.EntryPrice.IsZero() {
		return decimal.Zero
	}
	return current.Decimal.Sub(p.EntryPrice).Mul(hundred).DivRound(p.EntryPrice, percentPrecision)
}

// DaysHeld counts whole days from the entry date to the closing date of a
// closed position, or to now.
func DaysHeld(p *models.Position, now time.Time) int {
	end := models.DateOf(now.UTC())
	if p.Status == models.StatusClosed && p.ClosingDate != nil {
		end = *p.ClosingDate
	}
	return int(end.Sub(p.EntryDate.Time) / (24 * time.Hour))
}

// Enrich attaches the derived metrics to a copy of p.
func Enrich(p *models.Position, now time.Time) models.PositionWithCalculations {
	return models.PositionWithCalculations{
		Position:       *p,
		UnrealizedPnL:  UnrealizedPnL(p),
		PerformancePct: PerformancePct(p),
		DaysHeld:       DaysHeld(p, now),
	}
}

// EnrichAll is Enrich over a slice.
func EnrichAll(positions []models.Position, now time.Time) []models.PositionWithCalculations {
	out := make([]models.PositionWithCalculations, len(positions))
	for i := range positions {
		out[i] = Enrich(&positions[i], now)
	}
	return out
}

// PortfolioCostBasis sums cost basis over Live positions.
func PortfolioCostBasis(positions []models.Position) decimal.Decimal {
	total := decimal.Zero
	for i := range positions {
		if positions[i].Status == models.StatusLive {
			total = total.Add(positions[i].CostBasis)
		}
	}
	return total
}

// TotalUnrealizedPnL sums unrealized P&L over Live positions.
func TotalUnrealizedPnL(positions []models.Position) decimal.Decimal {
	total := decimal.Zero
	for i := range positions {
		if positions[i].Status == models.StatusLive {
			total = total.Add(UnrealizedPnL(&positions[i]))
		}
	}
	return total
}

// TotalRealizedPnL sums realized P&L over Closed positions that have one.
func TotalRealizedPnL(positions []models.Position) decimal.Decimal {
	total := decimal.Zero
	for i := range positions {
		p := &positions[i]
		if p.Status == models.StatusClosed && p.RealizedPnL.Valid {
			total = total.Add(p.RealizedPnL.Decimal)
		}
	}
	return total
}

// FormatCurrency renders v as US dollars, e.g. "$1,234.56". The optional
// argument overrides the default of two decimals.
func FormatCurrency(v decimal.Decimal, decimals ...int) string {
	d := 2
	if len(decimals) > 0 && decimals[0] >= 0 {
		d = decimals[0]
	}
	cur := money.GetCurrency(money.USD)
	f := money.NewFormatter(d, cur.Decimal, cur.Thousand, cur.Grapheme, cur.Template)
	return f.Format(v.Shift(int32(d)).Round(0).IntPart())
}

// FormatPercentage renders v with a fixed number of decimals (default two)
// and an explicit "+" for non-negative values.
func FormatPercentage(v decimal.Decimal, decimals ...int) string {
	d := 2
	if len(decimals) > 0 && decimals[0] >= 0 {
		d = decimals[0]
	}
	sign := ""
	if !v.IsNegative() {
		sign = "+"
	}
	return sign + v.StringFixed(int32(d)) + "%"
}

func present(v decimal.NullDecimal) bool {
	return v.Valid && !v.Decimal.IsZero()
}
