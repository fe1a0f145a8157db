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
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/quantleaf/dca-backtest/data"
)

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, tz())
}

var _ = Describe("AlignToDates", func() {
	Context("when the series covers every target date", func() {
		It("forward-fills gaps", func() {
			series := []data.PricePoint{
				{Date: day(2023, 1, 2), Close: 100},
				{Date: day(2023, 1, 5), Close: 110},
			}
			targets := []time.Time{day(2023, 1, 2), day(2023, 1, 3), day(2023, 1, 4), day(2023, 1, 5)}

			aligned, err := data.AlignToDates(series, targets)
			Expect(err).To(BeNil())
			Expect(aligned).To(HaveLen(4))
			Expect(aligned[0].Close).To(Equal(100.0))
			Expect(aligned[1].Close).To(Equal(100.0))
			Expect(aligned[2].Close).To(Equal(100.0))
			Expect(aligned[3].Close).To(Equal(110.0))
		})
	})

	Context("when a target date precedes the first observation", func() {
		It("back-fills with the earliest observation", func() {
			series := []data.PricePoint{
				{Date: day(2023, 1, 5), Close: 110},
			}
			targets := []time.Time{day(2023, 1, 2), day(2023, 1, 5)}

			aligned, err := data.AlignToDates(series, targets)
			Expect(err).To(BeNil())
			Expect(aligned[0].Close).To(Equal(110.0))
		})
	})

	Context("when the series is empty", func() {
		It("reports no alignable data", func() {
			_, err := data.AlignToDates(nil, []time.Time{day(2023, 1, 2)})
			Expect(err).To(Equal(data.ErrNoAlignableData))
		})
	})
})

var _ = Describe("CommonDateRange", func() {
	It("returns the intersection of two date sets", func() {
		a := []data.PricePoint{
			{Date: day(2023, 1, 2), Close: 1},
			{Date: day(2023, 1, 3), Close: 1},
			{Date: day(2023, 1, 4), Close: 1},
		}
		b := []data.PricePoint{
			{Date: day(2023, 1, 3), Close: 1},
			{Date: day(2023, 1, 4), Close: 1},
			{Date: day(2023, 1, 5), Close: 1},
		}

		begin, end, err := data.CommonDateRange(a, b, day(2023, 1, 1), day(2023, 1, 31))
		Expect(err).To(BeNil())
		Expect(begin).To(Equal(day(2023, 1, 3)))
		Expect(end).To(Equal(day(2023, 1, 4)))
	})

	It("reports no alignable data when the sets are disjoint", func() {
		a := []data.PricePoint{{Date: day(2023, 1, 2), Close: 1}}
		b := []data.PricePoint{{Date: day(2023, 2, 2), Close: 1}}

		_, _, err := data.CommonDateRange(a, b, day(2023, 1, 1), day(2023, 3, 1))
		Expect(err).To(Equal(data.ErrNoAlignableData))
	})
})
