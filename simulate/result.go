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

package simulate

import (
	"math"
	"time"

	"github.com/quantleaf/dca-backtest/analytics"
	"github.com/quantleaf/dca-backtest/data"
)

// EventDetail is the before/after snapshot recorded for a margin-call or
// withdrawal event, in presentation units (§4.2, §6).
type EventDetail struct {
	Date       string      `json:"date"`
	Before     SnapshotDTO `json:"before"`
	After      SnapshotDTO `json:"after"`
	SharesSold float64     `json:"shares_sold"`
	DebtRepaid float64     `json:"debt_repaid"`
	Withdrawn  float64     `json:"withdrawn"`
}

// SnapshotDTO is Snapshot rounded for presentation, with nullable cash.
type SnapshotDTO struct {
	Shares float64  `json:"shares"`
	Cash   *float64 `json:"cash"`
	Debt   float64  `json:"debt"`
}

// Summary is the terminal-state rollup of §6.
type Summary struct {
	TotalInvested     float64  `json:"total_invested"`
	CurrentValue      float64  `json:"current_value"`
	TotalShares       float64  `json:"total_shares"`
	TotalDividends    float64  `json:"total_dividends"`
	ROI               *float64 `json:"roi"`
	AccountBalance    *float64 `json:"account_balance"`
	TotalBorrowed     float64  `json:"total_borrowed"`
	TotalInterestPaid float64  `json:"total_interest_paid"`
	CurrentLeverage   float64  `json:"current_leverage"`
	MarginCalls       int      `json:"margin_calls"`
	NetPortfolioValue float64  `json:"net_portfolio_value"`
	AverageCost       float64  `json:"average_cost"`

	InsolvencyDetected bool    `json:"insolvency_detected"`
	InsolvencyDate     *string `json:"insolvency_date"`

	MinEquityValue   float64 `json:"min_equity_value"`
	MinEquityDate    *string `json:"min_equity_date"`
	ActualMaxDrawdown float64 `json:"actual_max_drawdown"`

	TotalWithdrawn          float64 `json:"total_withdrawn"`
	WithdrawalModeActive    bool    `json:"withdrawal_mode_active"`
	WithdrawalModeStartDate *string `json:"withdrawal_mode_start_date"`
}

// Analytics is C7's output, in presentation units (§6).
type Analytics struct {
	TotalReturnPct        float64  `json:"total_return_pct"`
	CAGR                  float64  `json:"cagr"`
	Volatility            float64  `json:"volatility"`
	SharpeRatio           float64  `json:"sharpe_ratio"`
	MaxDrawdown           float64  `json:"max_drawdown"`
	MaxDrawdownPeakDate   string   `json:"max_drawdown_peak_date"`
	MaxDrawdownTroughDate string   `json:"max_drawdown_trough_date"`
	WinRate               float64  `json:"win_rate"`
	BestDay               float64  `json:"best_day"`
	BestDayDate           string   `json:"best_day_date"`
	WorstDay              float64  `json:"worst_day"`
	WorstDayDate          string   `json:"worst_day_date"`
	CalmarRatio           float64  `json:"calmar_ratio"`
	Alpha                 *float64 `json:"alpha"`
	Beta                  *float64 `json:"beta"`
}

// AssembledResult is the external result shape of §6: equal-length
// parallel arrays, event arrays, and the summary/analytics rollups. It is
// the only shape Run's caller should marshal.
type AssembledResult struct {
	Dates          []string  `json:"dates"`
	Invested       []float64 `json:"invested"`
	Portfolio      []float64 `json:"portfolio"`
	Dividends      []float64 `json:"dividends"`
	Balance        []*float64 `json:"balance"`
	Borrowed       []float64 `json:"borrowed"`
	Interest       []float64 `json:"interest"`
	NetPortfolio   []float64 `json:"net_portfolio"`
	Leverage       []float64 `json:"leverage"`
	AverageCost    []float64 `json:"average_cost"`
	WithdrawalMode []bool    `json:"withdrawal_mode"`
	Withdrawals    []float64 `json:"withdrawals"`

	MarginCallDates   []string      `json:"margin_call_dates"`
	MarginCallDetails []EventDetail `json:"margin_call_details"`
	WithdrawalDates   []string      `json:"withdrawal_dates"`
	WithdrawalDetails []EventDetail `json:"withdrawal_details"`

	ActualStartDate string `json:"actual_start_date"`

	Summary   Summary   `json:"summary"`
	Analytics Analytics `json:"analytics"`
}

const dateLayout = "2006-01-02"

// Assemble is C8: it rounds and packages a raw Result into the external
// shape. Rounding happens exclusively here — never inside the driver loop
// — so idempotence and internal precision are both preserved (§9 REDESIGN
// FLAGS). rates supplies the risk-free rate used by the Sharpe ratio,
// looked up once against the run's final date, matching C4's "lookup
// yields only the base annual rate" contract.
func (r *Result) Assemble(rates data.RateProvider) *AssembledResult {
	n := len(r.Rows)

	out := &AssembledResult{
		Dates:          make([]string, n),
		Invested:       make([]float64, n),
		Portfolio:      make([]float64, n),
		Dividends:      make([]float64, n),
		Balance:        make([]*float64, n),
		Borrowed:       make([]float64, n),
		Interest:       make([]float64, n),
		NetPortfolio:   make([]float64, n),
		Leverage:       make([]float64, n),
		AverageCost:    make([]float64, n),
		WithdrawalMode: make([]bool, n),
		Withdrawals:    make([]float64, n),
		ActualStartDate: r.ActualStart.Format(dateLayout),
	}

	netEquity := make([]float64, n)

	for i, row := range r.Rows {
		out.Dates[i] = row.Date.Format(dateLayout)
		out.Invested[i] = round2(row.TotalInvested)
		out.Portfolio[i] = round2(row.PortfolioValue)
		out.Dividends[i] = round2(row.CumulativeDividends)
		out.Balance[i] = cashPtr(row.Cash)
		out.Borrowed[i] = round2(row.Debt)
		out.Interest[i] = round2(row.CumulativeInterest)
		out.NetPortfolio[i] = round2(row.NetPortfolio)
		out.Leverage[i] = round2(row.Leverage)
		out.AverageCost[i] = round2(row.AverageCost)
		out.WithdrawalMode[i] = row.WithdrawalModeActive
		out.Withdrawals[i] = round2(row.CumulativeWithdrawn)

		netEquity[i] = row.NetPortfolio
	}

	for _, ev := range r.Events {
		detail := EventDetail{
			Date:       ev.Date.Format(dateLayout),
			Before:     snapshotDTO(ev.Before),
			After:      snapshotDTO(ev.After),
			SharesSold: round4(ev.SharesSold),
			DebtRepaid: round2(ev.DebtRepaid),
			Withdrawn:  round2(ev.Withdrawn),
		}
		switch ev.Kind {
		case EventMarginCall:
			out.MarginCallDates = append(out.MarginCallDates, detail.Date)
			out.MarginCallDetails = append(out.MarginCallDetails, detail)
		case EventWithdrawal, EventThresholdDebtPayoff:
			out.WithdrawalDates = append(out.WithdrawalDates, detail.Date)
			out.WithdrawalDetails = append(out.WithdrawalDetails, detail)
		}
	}

	out.Summary = r.buildSummary()
	if n > 0 {
		out.Analytics = buildAnalytics(netEquity, r.Rows, r.Rows[n-1].TotalInvested, rates)
	}

	return out
}

func (r *Result) buildSummary() Summary {
	n := len(r.Rows)
	if n == 0 {
		return Summary{}
	}
	last := r.Rows[n-1]

	marginCalls := 0
	for _, ev := range r.Events {
		if ev.Kind == EventMarginCall {
			marginCalls++
		}
	}

	var roi *float64
	if last.TotalInvested > 0 {
		v := round2(100 * (last.NetPortfolio - last.TotalInvested) / last.TotalInvested)
		roi = &v
	}

	var insolvencyDate *string
	if r.Insolvent {
		s := r.InsolventDate.Format(dateLayout)
		insolvencyDate = &s
	}

	var minEquityDate *string
	if !r.MinEquityDate.IsZero() {
		s := r.MinEquityDate.Format(dateLayout)
		minEquityDate = &s
	}

	actualMaxDrawdown := 0.0
	if r.PeakEquity > 0 && !math.IsInf(r.PeakEquity, 0) && !math.IsInf(r.MinEquity, 0) {
		actualMaxDrawdown = (r.MinEquity - r.PeakEquity) / r.PeakEquity
	}

	var withdrawalStart *string
	if last.WithdrawalModeActive {
		for _, row := range r.Rows {
			if row.WithdrawalModeActive {
				s := row.Date.Format(dateLayout)
				withdrawalStart = &s
				break
			}
		}
	}

	return Summary{
		TotalInvested:           round2(last.TotalInvested),
		CurrentValue:            round2(last.PortfolioValue),
		TotalShares:             round4(last.Shares),
		TotalDividends:          round2(last.CumulativeDividends),
		ROI:                     roi,
		AccountBalance:          cashPtr(last.Cash),
		TotalBorrowed:           round2(last.Debt),
		TotalInterestPaid:       round2(last.CumulativeInterest),
		CurrentLeverage:         round2(last.Leverage),
		MarginCalls:             marginCalls,
		NetPortfolioValue:       round2(last.NetPortfolio),
		AverageCost:             round2(last.AverageCost),
		InsolvencyDetected:      r.Insolvent,
		InsolvencyDate:          insolvencyDate,
		MinEquityValue:          round2(r.MinEquity),
		MinEquityDate:           minEquityDate,
		ActualMaxDrawdown:       round2(actualMaxDrawdown),
		TotalWithdrawn:          round2(last.CumulativeWithdrawn),
		WithdrawalModeActive:    last.WithdrawalModeActive,
		WithdrawalModeStartDate: withdrawalStart,
	}
}

func buildAnalytics(netEquity []float64, rows []DailyRow, totalInvested float64, rates data.RateProvider) Analytics {
	last := netEquity[len(netEquity)-1]
	numDays := len(rows)
	dates := datesOf(rows)

	cagr := analytics.CAGR(last, totalInvested, numDays)
	totalReturn := analytics.TotalReturnPct(last, totalInvested)
	dailyReturns := analytics.DailyReturns(netEquity)
	volatility := analytics.Volatility(dailyReturns)

	riskFreeRate := data.DefaultRiskFreeRatePercent / 100
	if rates != nil {
		riskFreeRate = rates.RateFor(rows[len(rows)-1].Date)
	}
	sharpe := analytics.SharpeRatio(cagr, riskFreeRate, volatility)

	drawdown := analytics.MaxDrawdown(netEquity, dates)
	win := analytics.WinRate(dailyReturns)
	best := analytics.BestDay(dailyReturns, dates)
	worst := analytics.WorstDay(dailyReturns, dates)
	calmar := analytics.CalmarRatio(cagr, drawdown.Percent)

	return Analytics{
		TotalReturnPct:        round2(totalReturn),
		CAGR:                  round2(cagr),
		Volatility:            round2(volatility),
		SharpeRatio:           round2(sharpe),
		MaxDrawdown:           round2(drawdown.Percent),
		MaxDrawdownPeakDate:   drawdown.PeakDate.Format(dateLayout),
		MaxDrawdownTroughDate: drawdown.TroughDate.Format(dateLayout),
		WinRate:               round2(win),
		BestDay:               round2(best.Percent),
		BestDayDate:           best.Date.Format(dateLayout),
		WorstDay:              round2(worst.Percent),
		WorstDayDate:          worst.Date.Format(dateLayout),
		CalmarRatio:           round2(calmar),
	}
}

func datesOf(rows []DailyRow) []time.Time {
	out := make([]time.Time, len(rows))
	for i, r := range rows {
		out[i] = r.Date
	}
	return out
}

func snapshotDTO(s Snapshot) SnapshotDTO {
	return SnapshotDTO{
		Shares: round4(s.Shares),
		Cash:   cashPtr(s.Cash),
		Debt:   round2(s.Debt),
	}
}

func cashPtr(c Cash) *float64 {
	if c.Unbounded {
		return nil
	}
	v := round2(c.Amount)
	return &v
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

func round4(v float64) float64 {
	return math.Round(v*10000) / 10000
}
