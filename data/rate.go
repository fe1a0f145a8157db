// Copyright 2021-2023
// SPDX-License-Identifier: Apache-2.0
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
// http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package data

import (
	"sort"
	"time"
)

// RateTable is an explicitly constructed, immutable table of monthly
// risk-free-rate observations. It is built once (by NewRateTable, or by
// database.LoadRateTable from Postgres) and passed into the simulation
// driver — it is never package-level global state, and never mutates
// after construction.
type RateTable struct {
	observations []RateObservation
}

// NewRateTable builds a RateTable from observations in any order.
func NewRateTable(observations []RateObservation) *RateTable {
	sorted := make([]RateObservation, len(observations))
	copy(sorted, observations)
	sort.Slice(sorted, func(i, j int) bool {
		return sorted[i].MonthStart.Before(sorted[j].MonthStart)
	})
	return &RateTable{observations: sorted}
}

// RateFor returns the annualized rate, as a decimal fraction (5.0% -> 0.05),
// in effect on the given date: the most recent observation whose
// MonthStart is on or before the first of that date's month. If every
// observation is later than date, the earliest observation is used. If
// the table has no observations at all, the safe default of 5% is
// returned, per §4.6/§4.9.
func (t *RateTable) RateFor(date time.Time) float64 {
	if len(t.observations) == 0 {
		return DefaultRiskFreeRatePercent / 100.0
	}

	firstOfMonth := time.Date(date.Year(), date.Month(), 1, 0, 0, 0, 0, date.Location())

	best := t.observations[0]
	found := false
	for _, obs := range t.observations {
		if !obs.MonthStart.After(firstOfMonth) {
			best = obs
			found = true
			continue
		}
		break
	}
	if !found {
		best = t.observations[0]
	}
	return best.AnnualRatePercent / 100.0
}
