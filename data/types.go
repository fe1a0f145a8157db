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

import "time"

// PricePoint is a single day's closing price for a ticker.
type PricePoint struct {
	Date  time.Time
	Close float64
}

// DividendPoint is a single cash dividend paid on a given date.
type DividendPoint struct {
	Date            time.Time
	DividendPerShare float64
}

// RateObservation is one row of a monthly risk-free-rate table: the
// annualized rate, expressed as a percentage (e.g. 5.25, not 0.0525),
// in effect starting the first of the given month.
type RateObservation struct {
	MonthStart        time.Time
	AnnualRatePercent float64
}

// DefaultRiskFreeRatePercent is the fallback annual rate, in percent,
// used when a rate lookup cannot be satisfied (§4.6 / §4.9).
const DefaultRiskFreeRatePercent = 5.0
