package backtest

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/stat"
)

// tradingDaysPerYear is the annualization basis for daily history records.
const tradingDaysPerYear = 252

// Review is the post-run performance summary, computed from the committed
// history. It is a consumer of the produced records; nothing in it feeds back
// into the simulation.
type Review struct {
	From, To Date
	Days     int

	StartValue float64
	FinalValue float64

	TotalReturn          Percent
	AnnualizedReturn     Percent
	AnnualizedVolatility Percent
	Sharpe               float64
	MaxDrawdown          Percent

	TotalCost  Money
	Rebalances int

	// Benchmark comparison, present when an index series was supplied.
	BenchmarkReturn Percent
	ExcessReturn    Percent
	HasBenchmark    bool
}

// NewReview computes the review of a completed (or aborted) run.
// riskFreeRate is the annual risk-free rate used for the Sharpe ratio.
// benchmark may be nil.
func NewReview(h *History, benchmark *Series, riskFreeRate float64) (*Review, error) {
	if h.Len() == 0 {
		return nil, fmt.Errorf("review: history is empty")
	}
	first, last := h.At(0), h.At(h.Len()-1)

	r := &Review{
		From:       first.Date,
		To:         last.Date,
		Days:       h.Len(),
		StartValue: first.Value.AsFloat(),
		FinalValue: last.Value.AsFloat(),
		TotalCost:  M(0, first.Cost.Currency()),
	}

	values := make([]float64, 0, h.Len())
	for rec := range h.Records() {
		values = append(values, rec.Value.AsFloat())
		r.TotalCost = r.TotalCost.Add(rec.Cost)
		if rec.Rebalanced {
			r.Rebalances++
		}
	}

	returns := make([]float64, 0, len(values)-1)
	for i := 1; i < len(values); i++ {
		returns = append(returns, values[i]/values[i-1]-1)
	}

	r.TotalReturn = Percent((r.FinalValue/r.StartValue - 1) * 100)
	r.AnnualizedReturn = Percent(annualizeReturns(returns, tradingDaysPerYear) * 100)
	r.AnnualizedVolatility = Percent(annualizeVolatility(returns, tradingDaysPerYear) * 100)
	r.Sharpe = sharpeRatio(returns, riskFreeRate, tradingDaysPerYear)
	r.MaxDrawdown = Percent(maxDrawdown(values) * 100)

	if benchmark != nil && benchmark.Len() > 0 {
		from, okFrom := benchmark.AsOf(first.Date)
		to, okTo := benchmark.AsOf(last.Date)
		if okFrom && okTo && from > 0 {
			r.HasBenchmark = true
			r.BenchmarkReturn = Percent((to/from - 1) * 100)
			r.ExcessReturn = Percent(float64(r.TotalReturn) - float64(r.BenchmarkReturn))
		}
	}
	return r, nil
}

// annualizeReturns compounds a series of per-period returns into an
// annualized rate.
func annualizeReturns(returns []float64, periodsPerYear float64) float64 {
	if len(returns) == 0 {
		return 0
	}
	growth := 1.0
	for _, ret := range returns {
		growth *= 1 + ret
	}
	return math.Pow(growth, periodsPerYear/float64(len(returns))) - 1
}

// annualizeVolatility scales the per-period standard deviation to a year.
func annualizeVolatility(returns []float64, periodsPerYear float64) float64 {
	if len(returns) < 2 {
		return 0
	}
	return stat.StdDev(returns, nil) * math.Sqrt(periodsPerYear)
}

// sharpeRatio is the annualized excess return over the annualized
// volatility. The annual risk-free rate is converted to a per-period rate
// before the excess is taken.
func sharpeRatio(returns []float64, riskFreeRate, periodsPerYear float64) float64 {
	if len(returns) < 2 {
		return 0
	}
	rfPerPeriod := math.Pow(1+riskFreeRate, 1/periodsPerYear) - 1
	excess := make([]float64, len(returns))
	for i, ret := range returns {
		excess[i] = ret - rfPerPeriod
	}
	vol := annualizeVolatility(returns, periodsPerYear)
	if vol == 0 {
		return 0
	}
	return annualizeReturns(excess, periodsPerYear) / vol
}

// maxDrawdown is the largest peak-to-trough loss of the value series, as a
// negative fraction.
func maxDrawdown(values []float64) float64 {
	peak := math.Inf(-1)
	worst := 0.0
	for _, v := range values {
		if v > peak {
			peak = v
		}
		if peak > 0 {
			dd := (v - peak) / peak
			if dd < worst {
				worst = dd
			}
		}
	}
	return worst
}
