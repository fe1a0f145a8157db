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

	"github.com/google/uuid"
	"github.com/quantleaf/dca-backtest/data"
	log "github.com/sirupsen/logrus"
)

// state is the mutable portfolio state of §3, owned exclusively by Run
// for the duration of one call.
type state struct {
	shares             float64
	costBasis          float64
	cash               Cash
	debt               float64
	availablePrincipal float64

	cumulativeDividends    float64
	cumulativeInterestPaid float64
	cumulativeWithdrawn    float64
	totalInvested          float64

	lastInterestMonth   string
	lastWithdrawalMonth string

	withdrawalModeActive    bool
	withdrawalModeStartDate time.Time

	insolvent     bool
	insolventDate time.Time
}

func (s *state) snapshot() Snapshot {
	return Snapshot{Shares: s.shares, Cash: s.cash, Debt: s.debt}
}

// Run is C6: the simulation driver. It owns the mutable state and
// executes the daily pipeline in the exact order of §4.3. prices must
// already be aligned onto the trading-day calendar to be simulated
// (C3's concern); dividends is the ticker's full dividend history;
// rates answers the monthly risk-free-rate lookup (C4).
func Run(cfg Config, prices []data.PricePoint, dividends []data.DividendPoint, rates data.RateProvider) (*Result, error) {
	if len(prices) == 0 {
		return nil, ErrUnavailable
	}

	dividendByDate := make(map[string]float64, len(dividends))
	for _, d := range dividends {
		dividendByDate[d.Date.Format("2006-01-02")] = d.DividendPerShare
	}

	st := &state{
		cash:              cfg.AccountBalance,
		lastInterestMonth: monthKey(prices[0].Date),
	}
	if !cfg.AccountBalance.Unbounded {
		st.availablePrincipal = cfg.AccountBalance.Amount
	}

	gate := newFrequencyGate(cfg.Frequency, cfg.Start)

	result := &Result{
		RunID:       uuid.New().String(),
		ActualStart: prices[0].Date,
		MinEquity:   math.Inf(1),
		PeakEquity:  math.Inf(-1),
	}

	firstDay := true

	for _, pt := range prices {
		date, price := pt.Date, pt.Close

		// Step 1: margin call, pre-dividend.
		if cfg.MarginRatio > 1 && st.debt > 0 && st.shares > 0 {
			before := st.snapshot()
			mc := executeMarginCall(st.shares, price, st.debt, st.cash, cfg.MaintenanceMargin)
			if mc.triggered {
				st.shares, st.cash, st.debt = mc.newShares, mc.newCash, mc.newDebt
				result.Events = append(result.Events, Event{
					Kind:                EventMarginCall,
					Date:                date,
					Before:              before,
					After:               st.snapshot(),
					SharesSold:          mc.sharesSold,
					MarginCallTriggered: true,
				})
				log.WithFields(log.Fields{
					"Date":       date,
					"SharesSold": mc.sharesSold,
				}).Warn("margin call triggered forced liquidation")
			}
		}

		// Step 2: insolvency probe.
		portfolioValue := st.shares * price
		if !firstDay && portfolioValue+st.cash.nonNegative()-st.debt <= 0 {
			st.insolvent = true
			st.insolventDate = date
			result.Insolvent = true
			result.InsolventDate = date
			result.Rows = append(result.Rows, buildRow(st, date, portfolioValue))
			log.WithFields(log.Fields{"Date": date}).Warn("insolvency detected, terminating simulation")
			break
		}

		// Step 3: withdrawal-mode transition.
		if !st.withdrawalModeActive && cfg.WithdrawalThreshold != nil {
			netValue := st.shares*price + st.cash.nonNegative() - st.debt
			if netValue >= *cfg.WithdrawalThreshold {
				if st.debt > 0 {
					before := st.snapshot()
					wr := executeMonthlyWithdrawal(0, st.shares, price, st.debt, st.cash, st.costBasis)
					st.shares, st.cash, st.debt, st.costBasis = wr.newShares, wr.newCash, wr.newDebt, wr.newCostBasis
					st.cumulativeWithdrawn += wr.withdrawn
					result.Events = append(result.Events, Event{
						Kind:       EventThresholdDebtPayoff,
						Date:       date,
						Before:     before,
						After:      st.snapshot(),
						SharesSold: wr.sharesSold,
						DebtRepaid: wr.debtRepaid,
						Withdrawn:  wr.withdrawn,
					})
				}
				st.withdrawalModeActive = true
				st.withdrawalModeStartDate = date
			}
		}

		// Step 4: monthly withdrawal.
		if st.withdrawalModeActive && cfg.MonthlyWithdrawalAmount > 0 && monthKey(date) != st.lastWithdrawalMonth {
			before := st.snapshot()
			wr := executeMonthlyWithdrawal(cfg.MonthlyWithdrawalAmount, st.shares, price, st.debt, st.cash, st.costBasis)
			st.shares, st.cash, st.debt, st.costBasis = wr.newShares, wr.newCash, wr.newDebt, wr.newCostBasis
			st.cumulativeWithdrawn += wr.withdrawn
			result.Events = append(result.Events, Event{
				Kind:       EventWithdrawal,
				Date:       date,
				Before:     before,
				After:      st.snapshot(),
				SharesSold: wr.sharesSold,
				DebtRepaid: wr.debtRepaid,
				Withdrawn:  wr.withdrawn,
			})
			st.lastWithdrawalMonth = monthKey(date)
		}

		// Step 5: dividend.
		dps := dividendByDate[date.Format("2006-01-02")]
		effectiveReinvest := cfg.ReinvestDividends && !st.withdrawalModeActive
		dr := processDividend(st.shares, dps, price, effectiveReinvest, st.cash, st.costBasis)
		st.shares += dr.sharesAdded
		st.costBasis = dr.newCostBasis
		st.cash = dr.newCash
		st.cumulativeDividends += dr.income
		if st.withdrawalModeActive && dr.income > 0 {
			result.Events = append(result.Events, Event{
				Kind: EventDividendDuringWithdrawal,
				Date: date,
			})
		}

		// Step 6: interest. Debt is still zero when this runs on day 1
		// (margin borrowing only happens in step 7's contribution), and
		// lastInterestMonth starts at day 1's month, so the starting month
		// is never charged; interest is charged on each later day whose
		// month differs from the last charged month while debt is positive.
		if st.debt > 0 && monthKey(date) != st.lastInterestMonth {
			rate := rates.RateFor(date)
			ir := processInterest(st.debt, rate, st.cash)
			st.cash, st.debt = ir.newCash, ir.newDebt
			st.cumulativeInterestPaid += ir.interest
			st.lastInterestMonth = monthKey(date)
		}

		// Step 7: contribution.
		if !st.withdrawalModeActive {
			invest := gate.tick(date) || firstDay
			if invest {
				contribution := cfg.ContributionAmount
				if firstDay {
					contribution += cfg.InitialAmount
				}
				pr := executePurchase(contribution, price, st.cash, st.debt, cfg.MarginRatio, st.shares, st.availablePrincipal)
				st.shares += pr.sharesBought
				st.costBasis += pr.actualInvestment
				st.cash, st.debt = pr.newCash, pr.newDebt
				if st.cash.Unbounded {
					st.totalInvested += pr.cashUsed
				} else {
					st.totalInvested += pr.principalUsed
					st.availablePrincipal -= pr.principalUsed
					if st.availablePrincipal < 0 {
						st.availablePrincipal = 0
					}
				}
			}
		}

		portfolioValue = st.shares * price
		row := buildRow(st, date, portfolioValue)
		result.Rows = append(result.Rows, row)

		equity := row.NetPortfolio
		if equity > result.PeakEquity {
			result.PeakEquity = equity
		}
		if equity < result.MinEquity {
			result.MinEquity = equity
			result.MinEquityDate = date
		}

		firstDay = false
	}

	return result, nil
}

func buildRow(st *state, date time.Time, portfolioValue float64) DailyRow {
	avgCost := 0.0
	if st.shares > 0 {
		avgCost = st.costBasis / st.shares
	}
	return DailyRow{
		Date:                 date,
		Shares:               st.shares,
		TotalInvested:        st.totalInvested,
		PortfolioValue:       portfolioValue,
		CumulativeDividends:  st.cumulativeDividends,
		Cash:                 st.cash,
		Debt:                 st.debt,
		CumulativeInterest:   st.cumulativeInterestPaid,
		NetPortfolio:         portfolioValue - st.debt,
		Leverage:             leverage(portfolioValue, st.cash, st.debt),
		AverageCost:          avgCost,
		WithdrawalModeActive: st.withdrawalModeActive,
		CumulativeWithdrawn:  st.cumulativeWithdrawn,
	}
}
