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

package data_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/quantleaf/dca-backtest/data"
)

var _ = Describe("RateTable", func() {
	table := data.NewRateTable([]data.RateObservation{
		{MonthStart: day(2023, 3, 1), AnnualRatePercent: 5.0},
		{MonthStart: day(2023, 1, 1), AnnualRatePercent: 4.0},
		{MonthStart: day(2023, 2, 1), AnnualRatePercent: 4.5},
	})

	It("returns the most recent observation on or before the date", func() {
		Expect(table.RateFor(day(2023, 2, 15))).To(BeNumerically("~", 0.045))
	})

	It("returns the earliest observation when the date precedes the table", func() {
		Expect(table.RateFor(day(2022, 1, 1))).To(BeNumerically("~", 0.04))
	})

	It("falls back to the safe default when the table is empty", func() {
		empty := data.NewRateTable(nil)
		Expect(empty.RateFor(day(2023, 1, 1))).To(BeNumerically("~", 0.05))
	})
})
