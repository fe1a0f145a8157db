// Copyright 2021-2023
// SPDX-License-Identifier: Apache-2.0
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package analytics implements C7: pure functions over a net-equity time
// series — total return, CAGR, volatility, Sharpe (CAGR-based), max
// drawdown, win rate, best/worst day, Calmar, and alpha/beta against a
// benchmark series supplied by the (out-of-core) orchestrator.
package analytics

import (
	"math"
	"time"

	"github.com/rs/zerolog/log"
	"gonum.org/v1/gonum/stat"
)

// MaxDrawdownResult is max_drawdown plus the peak/trough dates it was
// measured between.
type MaxDrawdownResult struct {
	Percent    float64
	PeakDate   time.Time
	TroughDate time.Time
}

// DayResult is best_day/worst_day plus the date it occurred on.
type DayResult struct {
	Percent float64
	Date    time.Time
}

// TotalReturnPct is the simple (non-annualized) return on invested
// principal (§4.7).
func TotalReturnPct(finalEquity, totalInvested float64) float64 {
	if totalInvested <= 0 {
		return 0
	}
	return 100 * (finalEquity - totalInvested) / totalInvested
}

// CAGR uses totalInvested as the baseline rather than day-1 equity, to
// avoid distortion from DCA's growing principal (§4.7, GLOSSARY).
func CAGR(finalEquity, totalInvested float64, numDays int) float64 {
	if finalEquity <= 0 || totalInvested <= 0 || numDays <= 0 {
		return 0
	}
	return 100 * (math.Pow(finalEquity/totalInvested, 365.0/float64(numDays)) - 1)
}

// DailyReturns computes the daily return series of §4.7; index 0 is
// always 0.
func DailyReturns(equity []float64) []float64 {
	returns := make([]float64, len(equity))
	for i := 1; i < len(equity); i++ {
		if equity[i-1] > 0 {
			returns[i] = (equity[i] - equity[i-1]) / equity[i-1]
		}
	}
	return returns
}

// Volatility is annualized, population-divisor standard deviation of
// daily returns, as a percentage (§4.7).
func Volatility(dailyReturns []float64) float64 {
	if len(dailyReturns) < 2 {
		return 0
	}
	return stat.PopStdDev(dailyReturns, nil) * math.Sqrt(252) * 100
}

// SharpeRatio is the CAGR-based form explicitly chosen to avoid
// DCA-contribution contamination in raw daily returns (§4.7). cagrPct and
// volatilityPct are both percentages; riskFreeRate is a decimal fraction.
func SharpeRatio(cagrPct, riskFreeRate, volatilityPct float64) float64 {
	if volatilityPct <= 0 {
		return 0
	}
	cagrDecimal := cagrPct / 100
	return (cagrDecimal - riskFreeRate) / (volatilityPct / 100)
}

// MaxDrawdown scans the equity series tracking the running peak and the
// largest (E[i]-peak)/peak ratio. Ties favor the earliest peak and
// latest trough satisfying the max, per §4.7.
func MaxDrawdown(equity []float64, dates []time.Time) MaxDrawdownResult {
	if len(equity) == 0 {
		return MaxDrawdownResult{}
	}

	peak := equity[0]
	peakDate := dates[0]
	worst := 0.0
	var worstPeakDate, worstTroughDate time.Time

	for i, v := range equity {
		if v > peak {
			peak = v
			peakDate = dates[i]
		}
		if peak <= 0 {
			continue
		}
		drawdown := (v - peak) / peak
		if drawdown <= worst {
			worst = drawdown
			worstPeakDate = peakDate
			worstTroughDate = dates[i]
		}
	}

	return MaxDrawdownResult{
		Percent:    worst * 100,
		PeakDate:   worstPeakDate,
		TroughDate: worstTroughDate,
	}
}

// WinRate is the percentage of daily_returns[1:] that are strictly
// positive (§4.7).
func WinRate(dailyReturns []float64) float64 {
	if len(dailyReturns) <= 1 {
		return 0
	}
	wins := 0
	for _, r := range dailyReturns[1:] {
		if r > 0 {
			wins++
		}
	}
	return 100 * float64(wins) / float64(len(dailyReturns)-1)
}

// BestDay and WorstDay find the max/min of daily_returns[1:] (§4.7).

func BestDay(dailyReturns []float64, dates []time.Time) DayResult {
	return extremeDay(dailyReturns, dates, true)
}

func WorstDay(dailyReturns []float64, dates []time.Time) DayResult {
	return extremeDay(dailyReturns, dates, false)
}

func extremeDay(dailyReturns []float64, dates []time.Time, best bool) DayResult {
	if len(dailyReturns) <= 1 {
		return DayResult{}
	}
	idx := 1
	for i := 2; i < len(dailyReturns); i++ {
		if best && dailyReturns[i] > dailyReturns[idx] {
			idx = i
		}
		if !best && dailyReturns[i] < dailyReturns[idx] {
			idx = i
		}
	}
	return DayResult{Percent: dailyReturns[idx] * 100, Date: dates[idx]}
}

// CalmarRatio is cagr / |max_drawdown| when max_drawdown < 0, else 0
// (§4.7). cagrPct and maxDrawdownPct are both percentages.
func CalmarRatio(cagrPct, maxDrawdownPct float64) float64 {
	if maxDrawdownPct >= 0 {
		return 0
	}
	return cagrPct / math.Abs(maxDrawdownPct)
}

// AlphaBeta computes beta between a strategy and benchmark daily-return
// series (both with their leading zero skipped), using population
// covariance and variance. It returns beta only, and 1.0 on degenerate
// input (§4.7); alpha comes from AlphaFromCAGR.
func AlphaBeta(strategyReturns, benchmarkReturns []float64) float64 {
	if len(strategyReturns) < 2 || len(benchmarkReturns) < 2 || len(strategyReturns) != len(benchmarkReturns) {
		log.Debug().Msg("insufficient data to compute beta, defaulting to 1.0")
		return 1.0
	}
	p := strategyReturns[1:]
	b := benchmarkReturns[1:]

	varB := stat.PopVariance(b, nil)
	if varB == 0 {
		return 1.0
	}
	// stat.Covariance uses the n-1 divisor; rescale it to the population form.
	n := float64(len(p))
	return stat.Covariance(p, b, nil) * (n - 1) / n / varB
}

// AlphaFromCAGR computes alpha in percent using CAGRs rather than raw
// returns, per §4.7.
func AlphaFromCAGR(strategyCAGRPct, benchmarkCAGRPct, beta float64) float64 {
	return (strategyCAGRPct/100 - beta*benchmarkCAGRPct/100) * 100
}
