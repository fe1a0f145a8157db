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

import "time"

// Frequency is the contribution cadence (§3, §4.4).
type Frequency string

const (
	FrequencyDaily   Frequency = "DAILY"
	FrequencyWeekly  Frequency = "WEEKLY"
	FrequencyMonthly Frequency = "MONTHLY"
)

// Cash is the tagged variant the source's nullable "no cap" sentinel is
// re-expressed as (§9 REDESIGN FLAGS): either a tracked, non-negative
// balance, or Unbounded, meaning every contribution is funded from an
// inexhaustible external source. Every primitive and handler switches on
// the Unbounded tag rather than branching on a null value.
type Cash struct {
	Unbounded bool
	Amount    float64
}

// FiniteCash builds a tracked cash balance.
func FiniteCash(amount float64) Cash {
	return Cash{Amount: amount}
}

// UnboundedCash builds the "no cap" sentinel.
func UnboundedCash() Cash {
	return Cash{Unbounded: true}
}

// Value returns the tracked amount, or 0 for Unbounded — callers that
// need to test "is there a cap" should check Unbounded directly instead
// of relying on this returning a sentinel number.
func (c Cash) Value() float64 {
	if c.Unbounded {
		return 0
	}
	return c.Amount
}

// add returns a new Cash with amount added; Unbounded stays Unbounded.
func (c Cash) add(amount float64) Cash {
	if c.Unbounded {
		return c
	}
	return FiniteCash(c.Amount + amount)
}

// sub returns a new Cash with amount subtracted, floored at zero;
// Unbounded stays Unbounded.
func (c Cash) sub(amount float64) Cash {
	if c.Unbounded {
		return c
	}
	v := c.Amount - amount
	if v < 0 {
		v = 0
	}
	return FiniteCash(v)
}

// nonNegative returns max(0, amount), or 0 for Unbounded — the
// `max(0, cash or 0)` idiom used throughout §4.1/§4.2.
func (c Cash) nonNegative() float64 {
	if c.Unbounded {
		return 0
	}
	if c.Amount < 0 {
		return 0
	}
	return c.Amount
}

// EventKind replaces the source's stringly-typed event_type discriminator
// (§9 REDESIGN FLAGS) with a typed enum.
type EventKind string

const (
	EventMarginCall               EventKind = "MARGIN_CALL"
	EventWithdrawal               EventKind = "WITHDRAWAL"
	EventThresholdDebtPayoff      EventKind = "THRESHOLD_DEBT_PAYOFF"
	EventDividendDuringWithdrawal EventKind = "DIVIDEND_DURING_WITHDRAWAL"
)

// Event records an observability-only snapshot of a handler invocation;
// it never feeds back into subsequent logic (§4.2).
type Event struct {
	Kind   EventKind
	Date   time.Time
	Before Snapshot
	After  Snapshot

	SharesSold  float64
	DebtRepaid  float64
	Withdrawn   float64
	MarginCallTriggered bool
}

// Snapshot is the before/after state a margin-call or withdrawal event
// records for observability (§4.2).
type Snapshot struct {
	Shares float64
	Cash   Cash
	Debt   float64
}

// Config is the immutable configuration for one simulation run (§3).
type Config struct {
	Ticker   string
	Start    time.Time
	End      time.Time

	ContributionAmount float64
	InitialAmount      float64
	ReinvestDividends  bool

	AccountBalance Cash

	MarginRatio       float64
	MaintenanceMargin float64

	WithdrawalThreshold     *float64
	MonthlyWithdrawalAmount float64

	Frequency Frequency
}

// DailyRow is one day's append-only snapshot, collected during the loop
// and mapped to the result shape once at assembly time (§9 REDESIGN
// FLAGS: "Result assembly").
type DailyRow struct {
	Date                 time.Time
	Shares               float64
	TotalInvested        float64
	PortfolioValue       float64
	CumulativeDividends  float64
	Cash                 Cash
	Debt                 float64
	CumulativeInterest   float64
	NetPortfolio         float64
	Leverage             float64
	AverageCost          float64
	WithdrawalModeActive bool
	CumulativeWithdrawn  float64
}

// Result is the raw output of Run: the append-only daily sequence plus
// the recorded events and terminal markers. Result.Assemble (C8) rounds
// and packages this into the external shape of §6.
type Result struct {
	RunID         string
	ActualStart   time.Time
	Rows          []DailyRow
	Events        []Event
	Insolvent     bool
	InsolventDate time.Time
	MinEquity     float64
	MinEquityDate time.Time
	PeakEquity    float64
}
