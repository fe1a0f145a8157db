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

// frequencyGate is C5, re-expressed per §9 REDESIGN FLAGS as a small
// stateful object whose tick(date) returns a boolean, owned by the
// driver — rather than the source's (should_invest, updated_memo) pair
// threaded through every call.
//
// Weekly frequency here respects the literal weekday of the start date,
// matching the source faithfully; see DESIGN.md for why that answer was
// chosen over market-calendar-aware weekly scheduling (§9 Open Questions).
type frequencyGate struct {
	frequency  Frequency
	startDate  time.Time
	lastMonth  string
}

func newFrequencyGate(frequency Frequency, startDate time.Time) *frequencyGate {
	return &frequencyGate{frequency: frequency, startDate: startDate}
}

// tick reports whether today is an eligible contribution day, and
// updates the monthly memo when it is. It does not special-case the
// first day — the driver forces investment on day 1 regardless (§4.4).
func (g *frequencyGate) tick(today time.Time) bool {
	switch g.frequency {
	case FrequencyWeekly:
		return today.Weekday() == g.startDate.Weekday()
	case FrequencyMonthly:
		month := monthKey(today)
		if month != g.lastMonth {
			g.lastMonth = month
			return true
		}
		return false
	default: // FrequencyDaily, and any malformed value falls back to daily
		return true
	}
}

func monthKey(t time.Time) string {
	return t.Format("2006-01")
}
