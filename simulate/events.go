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

// Event handlers (C2). Each takes an immutable subset of state plus
// event inputs and returns the resulting delta. None of these raise or
// panic for degenerate numeric input (§4.9) — they return a no-op delta
// instead.

type dividendResult struct {
	sharesAdded   float64
	newCostBasis  float64
	newCash       Cash
	income        float64
}

// processDividend is C2.
func processDividend(shares, dps, price float64, reinvest bool, cash Cash, costBasis float64) dividendResult {
	income := dividendIncome(shares, dps)
	if reinvest {
		return dividendResult{
			sharesAdded:  sharesBought(income, price),
			newCostBasis: costBasis + income,
			newCash:      cash,
			income:       income,
		}
	}
	return dividendResult{
		sharesAdded:  0,
		newCostBasis: costBasis,
		newCash:      cash.add(income),
		income:       income,
	}
}

type interestResult struct {
	newCash    Cash
	newDebt    float64
	interest   float64
}

// processInterest is C2.
func processInterest(debt, annualRate float64, cash Cash) interestResult {
	interest := monthlyInterest(debt, annualRate)
	if cash.Unbounded {
		return interestResult{newCash: cash, newDebt: debt, interest: interest}
	}

	available := cash.nonNegative()
	paidFromCash := interest
	if available < paidFromCash {
		paidFromCash = available
	}
	shortfall := interest - paidFromCash

	return interestResult{
		newCash:  cash.sub(paidFromCash),
		newDebt:  debt + shortfall,
		interest: interest,
	}
}

type purchaseResult struct {
	sharesBought     float64
	cashUsed         float64
	marginBorrowed   float64
	actualInvestment float64
	principalUsed    float64
	newCash          Cash
	newDebt          float64
}

// executePurchase is C2.
func executePurchase(desiredContribution, price float64, cash Cash, debt, marginRatio, shares, availablePrincipal float64) purchaseResult {
	if cash.Unbounded {
		return purchaseResult{
			sharesBought:     sharesBought(desiredContribution, price),
			cashUsed:         desiredContribution,
			marginBorrowed:   0,
			actualInvestment: desiredContribution,
			principalUsed:    desiredContribution,
			newCash:          cash,
			newDebt:          debt,
		}
	}

	available := cash.nonNegative()

	var actualInvestment, cashUsed, marginBorrowed float64

	if marginRatio == 1.0 {
		actualInvestment = desiredContribution
		if available < actualInvestment {
			actualInvestment = available
		}
		cashUsed = actualInvestment
		marginBorrowed = 0
	} else if available >= desiredContribution {
		actualInvestment = desiredContribution
		cashUsed = desiredContribution
		marginBorrowed = 0
	} else {
		portfolioValue := shares * price
		equity := portfolioValue + available - debt
		maxAdditional := equity*marginRatio - portfolioValue
		if maxAdditional < 0 {
			maxAdditional = 0
		}

		if desiredContribution <= maxAdditional {
			actualInvestment = desiredContribution
			cashUsed = available
			marginBorrowed = actualInvestment - cashUsed
		} else {
			actualInvestment = maxAdditional
			cashUsed = actualInvestment
			if cashUsed > available {
				cashUsed = available
			}
			marginBorrowed = actualInvestment - cashUsed
		}
	}

	principalUsed := cashUsed
	if availablePrincipal < principalUsed {
		principalUsed = availablePrincipal
	}
	if principalUsed < 0 {
		principalUsed = 0
	}

	return purchaseResult{
		sharesBought:     sharesBought(actualInvestment, price),
		cashUsed:         cashUsed,
		marginBorrowed:   marginBorrowed,
		actualInvestment: actualInvestment,
		principalUsed:    principalUsed,
		newCash:          cash.sub(cashUsed),
		newDebt:          debt + marginBorrowed,
	}
}

type marginCallResult struct {
	newShares  float64
	newCash    Cash
	newDebt    float64
	triggered  bool
	sharesSold float64
}

// executeMarginCall is C2.
func executeMarginCall(shares, price, debt float64, cash Cash, maint float64) marginCallResult {
	portfolioValue := shares * price
	if equityRatio(portfolioValue, cash, debt) >= maint {
		return marginCallResult{newShares: shares, newCash: cash, newDebt: debt, triggered: false}
	}

	target := targetPortfolioForCall(debt, cash, maint)

	var sell float64
	if target > 0 && target < portfolioValue {
		valueToSell := portfolioValue - target
		sell = valueToSell / price
		if sell > shares {
			sell = shares
		}
	} else {
		sell = shares
	}

	proceeds := sell * price
	newShares := shares - sell

	if cash.Unbounded {
		return marginCallResult{
			newShares:  newShares,
			newCash:    cash,
			newDebt:    debt,
			triggered:  true,
			sharesSold: sell,
		}
	}

	cashAfterSale := cash.add(proceeds)
	repay := cashAfterSale.nonNegative()
	if debt < repay {
		repay = debt
	}

	return marginCallResult{
		newShares:  newShares,
		newCash:    cashAfterSale.sub(repay),
		newDebt:    debt - repay,
		triggered:  true,
		sharesSold: sell,
	}
}

type withdrawalResult struct {
	newShares    float64
	newCash      Cash
	newDebt      float64
	newCostBasis float64
	sharesSold   float64
	debtRepaid   float64
	withdrawn    float64
}

// executeMonthlyWithdrawal is C2 — also used with amount=0 for the
// threshold debt payoff (§4.3 step 3a).
func executeMonthlyWithdrawal(amount, shares, price, debt float64, cash Cash, costBasis float64) withdrawalResult {
	split := splitWithdrawal(amount, debt, cash, price)

	sharesSold := split.sharesToSell
	if sharesSold > shares {
		sharesSold = shares
	}

	newCostBasis := costBasis
	if shares > 0 {
		newCostBasis = costBasis * (1 - sharesSold/shares)
	}

	proceeds := sharesSold * price
	pool := cash.add(proceeds)

	debtRepaid := split.debtRepayment
	withdrawn := split.actualWithdrawal

	return withdrawalResult{
		newShares:    shares - sharesSold,
		newCash:      pool.sub(debtRepaid + withdrawn),
		newDebt:      debt - debtRepaid,
		newCostBasis: newCostBasis,
		sharesSold:   sharesSold,
		debtRepaid:   debtRepaid,
		withdrawn:    withdrawn,
	}
}
