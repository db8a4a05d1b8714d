package renderer

import (
	"os"
	"strconv"
	"time"

	"github.com/etnz/backtest"
)

// formatRatio formats a dimensionless ratio (like the Sharpe ratio) with two
// decimals.
func formatRatio(v float64) string { return strconv.FormatFloat(v, 'f', 2, 64) }

// Now is the current time used in reports.
// it has to be a global variable so that tests can override it.
func Now() time.Time {
	if os.Getenv("BACKTEST_TESTING_NOW") != "" {
		t, err := time.Parse("2006-01-02 15:04:05", os.Getenv("BACKTEST_TESTING_NOW"))
		if err != nil {
			panic(err)
		}
		return t
	}
	return time.Now()
}

// Report is a struct to represent a completed run for rendering.
type Report struct {
	Name string `json:"name,omitempty"`
	AsOf string `json:"asOf"`
	From string `json:"from"`
	To   string `json:"to"`
	Days int    `json:"days"`

	StartValue backtest.Money `json:"startValue"`
	FinalValue backtest.Money `json:"finalValue"`
	FinalCash  backtest.Money `json:"finalCash"`
	TotalCost  backtest.Money `json:"totalCost"`
	Rebalances int            `json:"rebalances"`

	TotalReturn          backtest.Percent `json:"totalReturn"`
	AnnualizedReturn     backtest.Percent `json:"annualizedReturn"`
	AnnualizedVolatility backtest.Percent `json:"annualizedVolatility"`
	Sharpe               string           `json:"sharpe"`
	MaxDrawdown          backtest.Percent `json:"maxDrawdown"`

	HasBenchmark    bool             `json:"hasBenchmark"`
	BenchmarkReturn backtest.Percent `json:"benchmarkReturn"`
	ExcessReturn    backtest.Percent `json:"excessReturn"`

	Positions []PositionLine `json:"positions"`
	DayLines  []DayLine      `json:"dayLines"`
}

// PositionLine holds the data for a single position line in a report.
type PositionLine struct {
	Security string
	Units    backtest.Quantity
	Price    backtest.Money
	Value    backtest.Money
}

// DayLine holds the data for a single day line in a report.
type DayLine struct {
	Date       string
	Value      backtest.Money
	Cash       backtest.Money
	Cost       backtest.Money
	Positions  int
	Rebalanced string
}

// NewReport creates a renderer.Report from a run review and its history.
func NewReport(name string, rv *backtest.Review, h *backtest.History) *Report {
	r := &Report{
		Name: name,
		AsOf: Now().Format("2006-01-02 15:04:05"),
		From: rv.From.String(),
		To:   rv.To.String(),
		Days: rv.Days,

		TotalCost:  rv.TotalCost,
		Rebalances: rv.Rebalances,

		TotalReturn:          rv.TotalReturn,
		AnnualizedReturn:     rv.AnnualizedReturn,
		AnnualizedVolatility: rv.AnnualizedVolatility,
		Sharpe:               formatRatio(rv.Sharpe),
		MaxDrawdown:          rv.MaxDrawdown,

		HasBenchmark:    rv.HasBenchmark,
		BenchmarkReturn: rv.BenchmarkReturn,
		ExcessReturn:    rv.ExcessReturn,
	}

	for rec := range h.Records() {
		flag := ""
		if rec.Rebalanced {
			flag = "✔"
		}
		r.DayLines = append(r.DayLines, DayLine{
			Date:       rec.Date.String(),
			Value:      rec.Value,
			Cash:       rec.Cash,
			Cost:       rec.Cost,
			Positions:  rec.Portfolio.Len(),
			Rebalanced: flag,
		})
	}

	if last, ok := h.Latest(); ok {
		r.StartValue = h.At(0).Value
		r.FinalValue = last.Value
		r.FinalCash = last.Cash
		for p := range last.Portfolio.Positions() {
			r.Positions = append(r.Positions, PositionLine{
				Security: p.Security,
				Units:    p.Units,
				Price:    p.Price,
				Value:    p.Value,
			})
		}
	}
	return r
}
